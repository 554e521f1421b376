// Copyright 2021 The go-ethereum Authors
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

package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/go-evm/common"
	"github.com/sunyihoo/go-evm/core/types"
	"github.com/sunyihoo/go-evm/core/vm"
	"github.com/sunyihoo/go-evm/core/vm/runtime"
)

// PUSH1 0x2a PUSH1 1 SSTORE PUSH1 1 SLOAD STOP
var storeLoad = []byte{
	byte(vm.PUSH1), 0x2a, byte(vm.PUSH1), 1, byte(vm.SSTORE),
	byte(vm.PUSH1), 1, byte(vm.SLOAD), byte(vm.STOP),
}

func TestStructLogger(t *testing.T) {
	l := NewStructLogger(&Config{EnableMemory: true})
	_, _, err := runtime.Execute(storeLoad, nil, &runtime.Config{EVMConfig: vm.Config{Tracer: l.Hooks()}})
	require.NoError(t, err)

	logs := l.StructLogs()
	require.Len(t, logs, 6)
	ops := make([]vm.OpCode, len(logs))
	for i, entry := range logs {
		ops[i] = entry.Op
		require.Equal(t, 1, entry.Depth)
	}
	require.Equal(t, []vm.OpCode{vm.PUSH1, vm.PUSH1, vm.SSTORE, vm.PUSH1, vm.SLOAD, vm.STOP}, ops)

	one, val := common.BigToHash(common.Big1), common.BytesToHash([]byte{0x2a})
	require.Equal(t, Storage{one: val}, Storage(logs[2].Storage))
	require.Equal(t, Storage{one: val}, Storage(logs[4].Storage))
	require.Len(t, logs[2].Stack, 2)
	require.Equal(t, uint64(1), logs[2].Stack[1].Uint64(), "the slot is on top")
	require.Equal(t, uint64(3), logs[0].GasCost)
	require.NoError(t, l.Error())
}

func TestStructLoggerLimit(t *testing.T) {
	l := NewStructLogger(&Config{Limit: 2})
	_, _, err := runtime.Execute(storeLoad, nil, &runtime.Config{EVMConfig: vm.Config{Tracer: l.Hooks()}})
	require.NoError(t, err)
	require.Len(t, l.StructLogs(), 2)
	require.ErrorIs(t, l.Error(), ErrTraceLimitReached)
}

func TestStructLoggerOutput(t *testing.T) {
	// PUSH1 0 PUSH1 0 REVERT
	l := NewStructLogger(nil)
	res, _, err := runtime.Execute([]byte{byte(vm.PUSH1), 0, byte(vm.PUSH1), 0, byte(vm.REVERT)}, nil, &runtime.Config{EVMConfig: vm.Config{Tracer: l.Hooks()}})
	require.NoError(t, err)
	require.True(t, res.Failed())
	require.ErrorIs(t, l.Error(), vm.ErrExecutionReverted)
	require.Equal(t, res.GasUsed, l.GasUsed())
}

func TestJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	hooks := NewJSONLogger(nil, &buf)
	_, _, err := runtime.Execute(storeLoad, nil, &runtime.Config{EVMConfig: vm.Config{Tracer: hooks}})
	require.NoError(t, err)

	var lines []map[string]any
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.Len(t, lines, 7, "six steps and the summary")
	require.Equal(t, "PUSH1", lines[0]["opName"])
	require.Equal(t, "0x3", lines[0]["gasCost"])
	require.Equal(t, []any{"0x2a", "0x1"}, lines[2]["stack"])
	require.Equal(t, "SSTORE", lines[2]["opName"])

	end := lines[6]
	require.Equal(t, "", end["output"])
	require.Contains(t, end, "gasUsed")
	require.NotContains(t, end, "error")
}

func TestStructLogMarshal(t *testing.T) {
	entry := StructLog{Pc: 7, Op: vm.ADD, Gas: 100, GasCost: 3, Depth: 1, Err: vm.ErrOutOfGas}
	blob, err := json.Marshal(entry)
	require.NoError(t, err)
	require.JSONEq(t, `{"pc":7,"op":1,"gas":"0x64","gasCost":"0x3","memSize":0,"stack":null,"depth":1,"refund":0,"opName":"ADD","error":"out of gas"}`, string(blob))
}

func TestWriteTrace(t *testing.T) {
	var stack [2]uint256.Int
	stack[0].SetUint64(1)
	stack[1].SetUint64(2)
	logs := []StructLog{
		{Pc: 4, Op: vm.ADD, Gas: 97, GasCost: 3, Stack: stack[:]},
		{Pc: 5, Op: vm.STOP, Gas: 94, Err: vm.ErrOutOfGas},
	}
	var buf bytes.Buffer
	WriteTrace(&buf, logs)
	out := buf.String()
	require.Contains(t, out, "ADD             pc=00000004 gas=97 cost=3\n")
	// top of the stack first
	require.Contains(t, out, "Stack:\n00000000  0x2\n00000001  0x1\n")
	require.Contains(t, out, "ERROR: out of gas")
}

func TestWriteLogs(t *testing.T) {
	var buf bytes.Buffer
	WriteLogs(&buf, []*types.Log{{
		Address: common.HexToAddress("0xc0de"),
		Topics:  []common.Hash{common.HexToHash("0x01")},
		Data:    []byte("hi"),
	}})
	lines := strings.Split(buf.String(), "\n")
	require.True(t, strings.HasPrefix(lines[0], "LOG1: 000000000000000000000000000000000000c0de"))
	require.Equal(t, "00000000  0000000000000000000000000000000000000000000000000000000000000001", lines[1])
}
