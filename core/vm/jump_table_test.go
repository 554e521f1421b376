// Copyright 2022 The go-ethereum Authors
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
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/go-evm/params"
	"github.com/sunyihoo/go-evm/params/forks"
)

// rulesFor returns the rules of a chain with every fork up to f active.
func rulesFor(f forks.Fork) params.Rules {
	return params.ConfigForFork(f).Rules(new(big.Int), f >= forks.Paris, 0)
}

func TestJumpTablesComplete(t *testing.T) {
	for f := forks.Frontier; f <= forks.Latest; f++ {
		jt := LookupInstructionSet(rulesFor(f))
		for i, op := range jt {
			require.NotNil(t, op, "fork %v op %#x", f, i)
			if op.memorySize != nil {
				require.NotNil(t, op.dynamicGas, "fork %v op %v", f, OpCode(i))
			}
			if op.undefined {
				pc := uint64(0)
				scope := &ScopeContext{Contract: &Contract{Code: []byte{byte(i)}}}
				_, err := op.execute(&pc, nil, scope)
				var invalid *ErrInvalidOpCode
				require.True(t, errors.As(err, &invalid), "fork %v op %#x", f, i)
			}
		}
	}
}

func TestOpcodeActivation(t *testing.T) {
	tests := []struct {
		op    OpCode
		since forks.Fork
	}{
		{DELEGATECALL, forks.Homestead},
		{REVERT, forks.Byzantium},
		{STATICCALL, forks.Byzantium},
		{RETURNDATASIZE, forks.Byzantium},
		{SHL, forks.Constantinople},
		{CREATE2, forks.Constantinople},
		{EXTCODEHASH, forks.Constantinople},
		{CHAINID, forks.Istanbul},
		{SELFBALANCE, forks.Istanbul},
		{BASEFEE, forks.London},
		{PUSH0, forks.Shanghai},
		{TLOAD, forks.Cancun},
		{MCOPY, forks.Cancun},
		{BLOBHASH, forks.Cancun},
		{BLOBBASEFEE, forks.Cancun},
		{CLZ, forks.Osaka},
	}
	for _, tt := range tests {
		for f := forks.Frontier; f <= forks.Latest; f++ {
			jt := instructionSetForRules(rulesFor(f))
			require.Equal(t, f < tt.since, jt[tt.op].undefined, "%v at %v", tt.op, f)
		}
	}
}

func TestForkGasChanges(t *testing.T) {
	frontier := instructionSetForRules(rulesFor(forks.Frontier))
	tangerine := instructionSetForRules(rulesFor(forks.TangerineWhistle))
	istanbul := instructionSetForRules(rulesFor(forks.Istanbul))
	berlin := instructionSetForRules(rulesFor(forks.Berlin))

	require.Equal(t, uint64(20), frontier[BALANCE].constantGas)
	require.Equal(t, uint64(400), tangerine[BALANCE].constantGas)
	require.Equal(t, uint64(700), istanbul[BALANCE].constantGas)
	// Berlin moves account access costs into the dynamic part
	require.Equal(t, params.WarmStorageReadCostEIP2929, berlin[BALANCE].constantGas)
	require.NotNil(t, berlin[BALANCE].dynamicGas)
}

func TestPragueMatchesCancunOpcodes(t *testing.T) {
	cancun := instructionSetForRules(rulesFor(forks.Cancun))
	prague := instructionSetForRules(rulesFor(forks.Prague))
	for i := range cancun {
		require.Equal(t, cancun[i].undefined, prague[i].undefined, "op %v", OpCode(i))
		require.Equal(t, cancun[i].constantGas, prague[i].constantGas, "op %v", OpCode(i))
	}
}

func TestEnableEIP(t *testing.T) {
	jt := LookupInstructionSet(rulesFor(forks.London))
	require.True(t, jt[PUSH0].undefined)
	require.NoError(t, EnableEIP(3855, &jt))
	require.False(t, jt[PUSH0].undefined)
	require.Equal(t, GasQuickStep, jt[PUSH0].constantGas)

	// the shared London table is untouched
	require.True(t, instructionSetForRules(rulesFor(forks.London))[PUSH0].undefined)

	require.Error(t, EnableEIP(1, &jt))
	require.True(t, ValidEip(7939))
	require.False(t, ValidEip(7702))
	require.Contains(t, ActivateableEips(), "1153")
	require.Equal(t, "PUSH0 instruction", EipTitle(3855))
	require.Empty(t, EipTitle(7702))
	for i := 1; i < len(eips); i++ {
		require.Less(t, eips[i-1].number, eips[i].number)
	}
}
