// Copyright 2017 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

package vm

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

type twoOperandTest struct {
	x        string // top of the stack
	y        string
	expected string
}

const (
	maxWord = "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff"
	minWord = "8000000000000000000000000000000000000000000000000000000000000000"
)

// runOp places args on a fresh stack, the first one on top, and executes fn.
func runOp(t *testing.T, fn executionFunc, args ...*uint256.Int) *uint256.Int {
	t.Helper()
	scope := &ScopeContext{Stack: newstack(), Memory: NewMemory()}
	for i := len(args) - 1; i >= 0; i-- {
		scope.Stack.push(args[i])
	}
	pc := uint64(0)
	_, err := fn(&pc, nil, scope)
	require.NoError(t, err)
	require.Equal(t, 1, scope.Stack.len(), "result must be the only item left")
	res := scope.Stack.pop()
	returnStack(scope.Stack)
	return &res
}

func word(s string) *uint256.Int {
	return uint256.MustFromHex("0x" + trimLeadingZeroes(s))
}

func trimLeadingZeroes(s string) string {
	for len(s) > 1 && s[0] == '0' {
		s = s[1:]
	}
	return s
}

func testTwoOperandOp(t *testing.T, tests []twoOperandTest, fn executionFunc, name string) {
	for i, test := range tests {
		have := runOp(t, fn, word(test.x), word(test.y))
		want := word(test.expected)
		if !have.Eq(want) {
			t.Errorf("testcase %s %d: have %x, want %x", name, i, have, want)
		}
	}
}

func TestAddSubMul(t *testing.T) {
	testTwoOperandOp(t, []twoOperandTest{
		{maxWord, "01", "00"},
		{"05", "07", "0c"},
	}, opAdd, "add")
	testTwoOperandOp(t, []twoOperandTest{
		{"00", "01", maxWord},
		{"07", "05", "02"},
	}, opSub, "sub")
	testTwoOperandOp(t, []twoOperandTest{
		{minWord, "02", "00"},
		{maxWord, maxWord, "01"},
	}, opMul, "mul")
}

func TestDivisionByZero(t *testing.T) {
	for name, fn := range map[string]executionFunc{
		"div": opDiv, "sdiv": opSdiv, "mod": opMod, "smod": opSmod,
	} {
		testTwoOperandOp(t, []twoOperandTest{
			{"05", "00", "00"},
			{maxWord, "00", "00"},
		}, fn, name)
	}
}

func TestSignedDivision(t *testing.T) {
	testTwoOperandOp(t, []twoOperandTest{
		{minWord, maxWord, minWord}, // MIN / -1 wraps to MIN
		{maxWord, maxWord, "01"},
		{"fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff8", "03", "fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffe"},
	}, opSdiv, "sdiv")
	testTwoOperandOp(t, []twoOperandTest{
		// -8 % 3 = -2, the sign follows the dividend
		{"fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff8", "03", "fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffe"},
		{"08", "fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffd", "02"},
	}, opSmod, "smod")
}

func TestExp(t *testing.T) {
	testTwoOperandOp(t, []twoOperandTest{
		{"02", "0100", "00"}, // 2**256 wraps to zero
		{"02", "ff", minWord},
		{"00", "00", "01"},
		{"03", "03", "1b"},
		{maxWord, "02", "01"},
	}, opExp, "exp")
}

func TestSignExtend(t *testing.T) {
	testTwoOperandOp(t, []twoOperandTest{
		{"00", "ff", maxWord},
		{"00", "7f", "7f"},
		{"01", "8000", "ffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff8000"},
		{"1f", "ff", "ff"},
		{"20", "80", "80"},
	}, opSignExtend, "signextend")
}

func TestByteOp(t *testing.T) {
	val := "102030405060708090a0b0c0d0e0ff00000000000000000000000000000000ab"
	testTwoOperandOp(t, []twoOperandTest{
		{"00", val, "10"},
		{"0e", val, "ff"},
		{"1f", val, "ab"},
		{"20", val, "00"},
		{maxWord, val, "00"},
	}, opByte, "byte")
}

func TestShifts(t *testing.T) {
	// Testcases from https://github.com/ethereum/EIPs/blob/master/EIPS/eip-145.md#shl-shift-left
	testTwoOperandOp(t, []twoOperandTest{
		{"00", "01", "01"},
		{"01", "01", "02"},
		{"ff", "01", minWord},
		{"0100", "01", "00"},
		{"01", maxWord, "fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffe"},
	}, opSHL, "shl")
	testTwoOperandOp(t, []twoOperandTest{
		{"01", minWord, "4000000000000000000000000000000000000000000000000000000000000000"},
		{"ff", minWord, "01"},
		{"0100", minWord, "00"},
		{"0101", maxWord, "00"},
	}, opSHR, "shr")
	testTwoOperandOp(t, []twoOperandTest{
		{"01", minWord, "c000000000000000000000000000000000000000000000000000000000000000"},
		{"ff", minWord, maxWord},
		{"0100", minWord, maxWord},
		{"0100", "4000000000000000000000000000000000000000000000000000000000000000", "00"},
		{"fe", "4000000000000000000000000000000000000000000000000000000000000000", "01"},
		{maxWord, "7fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff", "00"},
	}, opSAR, "sar")
}

func TestComparisons(t *testing.T) {
	testTwoOperandOp(t, []twoOperandTest{{"01", "02", "01"}, {"02", "01", "00"}}, opLt, "lt")
	testTwoOperandOp(t, []twoOperandTest{{"02", "01", "01"}, {"01", "01", "00"}}, opGt, "gt")
	testTwoOperandOp(t, []twoOperandTest{{maxWord, "00", "01"}, {"00", maxWord, "00"}}, opSlt, "slt")
	testTwoOperandOp(t, []twoOperandTest{{"00", maxWord, "01"}, {minWord, "00", "00"}}, opSgt, "sgt")
	testTwoOperandOp(t, []twoOperandTest{{maxWord, maxWord, "01"}, {"00", "01", "00"}}, opEq, "eq")
}

func TestModularArithmetic(t *testing.T) {
	// (max + max) % 7 computed without intermediate wraparound
	have := runOp(t, opAddmod, word(maxWord), word(maxWord), uint256.NewInt(7))
	require.Equal(t, uint64(2), have.Uint64())

	have = runOp(t, opMulmod, word(maxWord), word(maxWord), uint256.NewInt(12))
	require.Equal(t, uint64(9), have.Uint64())

	have = runOp(t, opAddmod, uint256.NewInt(5), uint256.NewInt(6), new(uint256.Int))
	require.True(t, have.IsZero())
}

func TestUnaryOps(t *testing.T) {
	require.True(t, runOp(t, opNot, new(uint256.Int)).Eq(word(maxWord)))
	require.Equal(t, uint64(1), runOp(t, opIszero, new(uint256.Int)).Uint64())
	require.Equal(t, uint64(0), runOp(t, opIszero, uint256.NewInt(3)).Uint64())

	require.Equal(t, uint64(256), runOp(t, opCLZ, new(uint256.Int)).Uint64())
	require.Equal(t, uint64(255), runOp(t, opCLZ, uint256.NewInt(1)).Uint64())
	require.Equal(t, uint64(0), runOp(t, opCLZ, word(minWord)).Uint64())
}

func TestPushPadsShortImmediate(t *testing.T) {
	// PUSH3 with only one byte of immediate data left
	code := []byte{byte(PUSH3), 0xaa}
	scope := &ScopeContext{
		Stack:    newstack(),
		Memory:   NewMemory(),
		Contract: &Contract{Code: code},
	}
	defer returnStack(scope.Stack)

	pc := uint64(0)
	_, err := makePush(3, 3)(&pc, nil, scope)
	require.NoError(t, err)
	require.Equal(t, uint64(0xaa0000), scope.Stack.peek().Uint64())
	require.Equal(t, uint64(3), pc)
}
