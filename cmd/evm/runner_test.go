// Copyright 2023 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/go-evm/common"
	"github.com/sunyihoo/go-evm/core/vm"
	"github.com/sunyihoo/go-evm/crypto"
)

// runEvm runs the command line against a fresh app and returns what it
// wrote to stdout and stderr.
func runEvm(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.Reader = strings.NewReader(stdin)
	err := app.Run(append([]string{"evm"}, args...))
	return stdout.String(), stderr.String(), err
}

const (
	// returns the 32 byte word 0x2a
	return42Code = "602a60005260206000f3"
	// stores 0x2a in slot 0
	store42Code = "602a600055"
	// returns the word in slot 0
	loadSlot0Code = "60005460005260206000f3"
)

var word42 = "0x" + strings.Repeat("00", 31) + "2a\n"

func TestRunCode(t *testing.T) {
	out, _, err := runEvm(t, "", "run", "--code", return42Code)
	require.NoError(t, err)
	require.Equal(t, word42, out)

	// positional code and 0x prefix
	out, _, err = runEvm(t, "", "run", "0x"+return42Code)
	require.NoError(t, err)
	require.Equal(t, word42, out)
}

func TestRunCodeFromStdin(t *testing.T) {
	out, _, err := runEvm(t, return42Code+"\n", "run", "--codefile", "-")
	require.NoError(t, err)
	require.Equal(t, word42, out)
}

func TestRunAsm(t *testing.T) {
	src := "push 42\npush 0\nmstore\npush 32\npush 0\nreturn"
	out, _, err := runEvm(t, "", "run", "--asm", "--code", src)
	require.NoError(t, err)
	require.Equal(t, word42, out)
}

func TestRunInput(t *testing.T) {
	// CALLDATALOAD(0) returned as a word
	code := "60003560005260206000f3"
	out, _, err := runEvm(t, "", "run", "--code", code, "--input", "0x"+strings.Repeat("00", 31)+"2a")
	require.NoError(t, err)
	require.Equal(t, word42, out)
}

func TestRunRevert(t *testing.T) {
	out, _, err := runEvm(t, "", "run", "--code", "60006000fd")
	require.NoError(t, err)
	require.Equal(t, "0x\n error: execution reverted\n", out)
}

func TestRunErrors(t *testing.T) {
	_, _, err := runEvm(t, "", "run")
	require.ErrorIs(t, err, errNoCode)

	_, _, err = runEvm(t, "", "run", "--code", "zz")
	require.ErrorContains(t, err, "invalid hex")

	_, _, err = runEvm(t, "", "run", "--code", "00", "--codefile", "x")
	require.ErrorContains(t, err, "can't be used at the same time")

	_, _, err = runEvm(t, "", "run", "--code", "00", "--fork", "Shanghaii")
	require.ErrorContains(t, err, "unknown fork")

	_, _, err = runEvm(t, "", "run", "--code", "00", "--db", "pebble")
	require.ErrorContains(t, err, "--datadir is required")

	_, _, err = runEvm(t, "", "run", "--code", "00", "--sender", "0x1234")
	require.ErrorContains(t, err, "invalid address")
}

func TestRunForkRules(t *testing.T) {
	// PUSH0 only exists from Shanghai on
	out, _, err := runEvm(t, "", "run", "--code", "5f00", "--fork", "London")
	require.NoError(t, err)
	require.Contains(t, out, "invalid opcode: PUSH0")

	out, _, err = runEvm(t, "", "run", "--code", "5f00", "--fork", "Shanghai")
	require.NoError(t, err)
	require.Equal(t, "0x\n", out)
}

func TestRunCreate(t *testing.T) {
	// deploys the single byte 0x00
	initcode := "6000600053" + "60016000f3"
	out, _, err := runEvm(t, "", "run", "--create", "--code", initcode)
	require.NoError(t, err)

	sender := common.BytesToAddress([]byte("sender"))
	require.Equal(t, "0x00\ncontract: "+crypto.CreateAddress(sender, 0).Hex()+"\n", out)
}

func TestRunJSONTrace(t *testing.T) {
	out, errOut, err := runEvm(t, "", "run", "--json", "--code", "6001600201")
	require.NoError(t, err)
	require.Empty(t, out)

	var ops []string
	scanner := bufio.NewScanner(strings.NewReader(errOut))
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line), scanner.Text())
		if op, ok := line["opName"]; ok {
			ops = append(ops, op.(string))
		}
	}
	require.Equal(t, []string{"PUSH1", "PUSH1", "ADD", "STOP"}, ops)
}

func TestRunDebugTrace(t *testing.T) {
	out, errOut, err := runEvm(t, "", "run", "--debug", "--code", "6001600201")
	require.NoError(t, err)
	require.Equal(t, "0x\n", out)
	require.Contains(t, errOut, "#### TRACE ####")
	require.Contains(t, errOut, "ADD             pc=00000004")
	require.Contains(t, errOut, "#### LOGS ####")

	_, _, err = runEvm(t, "", "run", "--debug", "--json", "--code", "00")
	require.ErrorContains(t, err, "can't be used at the same time")
}

func TestRunStatDump(t *testing.T) {
	_, errOut, err := runEvm(t, "", "run", "--statdump", "--code", "6001600201")
	require.NoError(t, err)
	require.Contains(t, errOut, "EVM gas used:    9\n")
	require.Contains(t, errOut, "allocated bytes:")
}

func TestRunDump(t *testing.T) {
	out, _, err := runEvm(t, "", "run", "--dump", "--code", store42Code)
	require.NoError(t, err)

	receiver := common.BytesToAddress([]byte("receiver"))
	dump := out[strings.Index(out, "{") : strings.LastIndex(out, "}")+1]
	var parsed struct {
		Accounts map[string]struct {
			Storage map[string]string `json:"storage"`
		} `json:"accounts"`
	}
	require.NoError(t, json.Unmarshal([]byte(dump), &parsed))
	require.Contains(t, parsed.Accounts, receiver.Hex())
	require.Equal(t, "2a", parsed.Accounts[receiver.Hex()].Storage[common.Hash{}.Hex()])
}

func TestRunPersistentState(t *testing.T) {
	for _, db := range []string{"leveldb", "pebble"} {
		t.Run(db, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), db)
			_, _, err := runEvm(t, "", "run", "--db", db, "--datadir", dir, "--commit", "--code", store42Code)
			require.NoError(t, err)

			// the slot written by the first run is read back from disk
			out, _, err := runEvm(t, "", "run", "--db", db, "--datadir", dir, "--code", loadSlot0Code)
			require.NoError(t, err)
			require.Equal(t, word42, out)
		})
	}
}

func TestDisasm(t *testing.T) {
	out, _, err := runEvm(t, "", "disasm", "--code", "6001600201")
	require.NoError(t, err)
	require.Equal(t, "00000: PUSH1 0x01\n00002: PUSH1 0x02\n00004: ADD\n", out)

	out, _, err = runEvm(t, "0x600100\n", "disasm", "-")
	require.NoError(t, err)
	require.Equal(t, "00000: PUSH1 0x01\n00002: STOP\n", out)

	_, _, err = runEvm(t, "", "disasm", "--code", "61aa")
	require.ErrorContains(t, err, "incomplete push")
}

func TestCompile(t *testing.T) {
	out, _, err := runEvm(t, "start:\n  push 1\n  jump @start\n", "compile", "-")
	require.NoError(t, err)
	require.Equal(t, "5b6001610000"+"56\n", out)

	_, _, err = runEvm(t, "bogus", "compile", "-")
	require.ErrorContains(t, err, "unknown opcode")

	_, _, err = runEvm(t, "", "compile")
	require.ErrorContains(t, err, "filename required")
}

func TestRunExtraEips(t *testing.T) {
	out, _, err := runEvm(t, "", "run", "--fork", "Berlin", "--code", "5f00")
	require.NoError(t, err)
	require.Contains(t, out, "invalid opcode: PUSH0")

	out, _, err = runEvm(t, "", "run", "--fork", "Berlin", "--eips", "3855", "--code", "5f00")
	require.NoError(t, err)
	require.NotContains(t, out, "invalid opcode")

	_, _, err = runEvm(t, "", "run", "--eips", "7702", "--code", "00")
	require.ErrorContains(t, err, "eip 7702 cannot be activated")
}

func TestEipsCommand(t *testing.T) {
	out, _, err := runEvm(t, "", "eips")
	require.NoError(t, err)
	require.Contains(t, out, "EIP-1153  Transient storage opcodes\n")
	require.Contains(t, out, "EIP-3855  PUSH0 instruction\n")
	require.Equal(t, len(vm.ActivateableEips()), strings.Count(out, "\n"))
}

func TestRunTimeout(t *testing.T) {
	_, _, err := runEvm(t, "", "run", "--timeout", "20ms", "--gas", "18446744073709551615", "--code", "5b600056")
	require.ErrorContains(t, err, "execution aborted")
}
