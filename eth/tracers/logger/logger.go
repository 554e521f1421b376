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

// Package logger implements step-level tracers: a StructLogger keeping every
// step in memory and a JSON logger streaming one object per step.
package logger

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"

	"github.com/holiman/uint256"
	"github.com/sunyihoo/go-evm/common"
	"github.com/sunyihoo/go-evm/common/hexutil"
	"github.com/sunyihoo/go-evm/core/tracing"
	"github.com/sunyihoo/go-evm/core/types"
	"github.com/sunyihoo/go-evm/core/vm"
)

// Storage represents a contract's storage.
type Storage map[common.Hash]common.Hash

// Copy duplicates the current storage.
func (s Storage) Copy() Storage {
	return maps.Clone(s)
}

// Config are the configuration options for structured logger the EVM
type Config struct {
	EnableMemory     bool // enable memory capture
	DisableStack     bool // disable stack capture
	DisableStorage   bool // disable storage capture
	EnableReturnData bool // enable return data capture
	Limit            int  // maximum size of output, but zero means unlimited
}

// StructLog is emitted to the EVM each cycle and lists information about the
// current internal state prior to the execution of the statement.
type StructLog struct {
	Pc            uint64                      `json:"pc"`
	Op            vm.OpCode                   `json:"op"`
	Gas           uint64                      `json:"gas"`
	GasCost       uint64                      `json:"gasCost"`
	Memory        []byte                      `json:"memory,omitempty"`
	MemorySize    int                         `json:"memSize"`
	Stack         []uint256.Int               `json:"stack"`
	ReturnData    []byte                      `json:"returnData,omitempty"`
	Storage       map[common.Hash]common.Hash `json:"-"`
	Depth         int                         `json:"depth"`
	RefundCounter uint64                      `json:"refund"`
	Err           error                       `json:"-"`
}

// OpName formats the operand name in a human-readable format.
func (s *StructLog) OpName() string {
	return s.Op.String()
}

// ErrorString formats the log's error as a string.
func (s *StructLog) ErrorString() string {
	if s.Err != nil {
		return s.Err.Error()
	}
	return ""
}

type structLogMarshaling struct {
	Pc            uint64         `json:"pc"`
	Op            vm.OpCode      `json:"op"`
	Gas           hexutil.Uint64 `json:"gas"`
	GasCost       hexutil.Uint64 `json:"gasCost"`
	Memory        hexutil.Bytes  `json:"memory,omitempty"`
	MemorySize    int            `json:"memSize"`
	Stack         []string       `json:"stack"`
	ReturnData    hexutil.Bytes  `json:"returnData,omitempty"`
	Depth         int            `json:"depth"`
	RefundCounter uint64         `json:"refund"`
	OpName        string         `json:"opName"`
	Error         string         `json:"error,omitempty"`
}

// MarshalJSON renders the step with hex quantities and the opcode name.
func (s StructLog) MarshalJSON() ([]byte, error) {
	enc := structLogMarshaling{
		Pc:            s.Pc,
		Op:            s.Op,
		Gas:           hexutil.Uint64(s.Gas),
		GasCost:       hexutil.Uint64(s.GasCost),
		Memory:        s.Memory,
		MemorySize:    s.MemorySize,
		ReturnData:    s.ReturnData,
		Depth:         s.Depth,
		RefundCounter: s.RefundCounter,
		OpName:        s.OpName(),
		Error:         s.ErrorString(),
	}
	if s.Stack != nil {
		enc.Stack = make([]string, len(s.Stack))
		for i := range s.Stack {
			enc.Stack[i] = s.Stack[i].Hex()
		}
	}
	return json.Marshal(&enc)
}

// ErrTraceLimitReached is recorded once the configured number of steps has
// been captured.
var ErrTraceLimitReached = errors.New("the number of logs reached the specified limit")

// StructLogger is an EVM state logger and implements tracing.Hooks.
//
// StructLogger can capture state based on the given Log configuration and also keeps
// a track record of modified storage which is used in reporting snapshots of the
// contract their storage.
type StructLogger struct {
	cfg Config
	env *tracing.VMContext

	storage map[common.Address]Storage
	logs    []StructLog
	output  []byte
	gasUsed uint64
	err     error
	skip    bool
}

// NewStructLogger returns a new logger
func NewStructLogger(cfg *Config) *StructLogger {
	logger := &StructLogger{
		storage: make(map[common.Address]Storage),
	}
	if cfg != nil {
		logger.cfg = *cfg
	}
	return logger
}

// Hooks returns the hooks feeding the logger.
func (l *StructLogger) Hooks() *tracing.Hooks {
	return &tracing.Hooks{
		OnTxStart: l.OnTxStart,
		OnTxEnd:   l.OnTxEnd,
		OnExit:    l.OnExit,
		OnOpcode:  l.OnOpcode,
	}
}

// OnTxStart resets the logger for a new message.
func (l *StructLogger) OnTxStart(env *tracing.VMContext, from common.Address, to *common.Address, gas uint64) {
	l.env = env
}

// OnOpcode logs a new structured log message and pushes it out to the environment
func (l *StructLogger) OnOpcode(pc uint64, opcode byte, gas, cost uint64, scope tracing.OpContext, rData []byte, depth int, err error) {
	if l.skip {
		return
	}
	if l.cfg.Limit != 0 && l.cfg.Limit <= len(l.logs) {
		l.skip = true
		l.err = ErrTraceLimitReached
		return
	}
	var (
		op     = vm.OpCode(opcode)
		memory = scope.MemoryData()
		stack  = scope.StackData()
	)
	entry := StructLog{
		Pc:         pc,
		Op:         op,
		Gas:        gas,
		GasCost:    cost,
		MemorySize: len(memory),
		Depth:      depth,
		Err:        err,
	}
	if l.env != nil && l.env.StateDB != nil {
		entry.RefundCounter = l.env.StateDB.GetRefund()
	}
	if l.cfg.EnableMemory {
		entry.Memory = common.CopyBytes(memory)
	}
	if !l.cfg.DisableStack {
		entry.Stack = make([]uint256.Int, len(stack))
		copy(entry.Stack, stack)
	}
	if l.cfg.EnableReturnData {
		entry.ReturnData = common.CopyBytes(rData)
	}
	if !l.cfg.DisableStorage && (op == vm.SLOAD || op == vm.SSTORE) {
		entry.Storage = l.captureStorage(op, scope, stack)
	}
	l.logs = append(l.logs, entry)
}

// captureStorage records the slot touched by SLOAD or SSTORE and returns a
// snapshot of the contract's storage seen so far.
func (l *StructLogger) captureStorage(op vm.OpCode, scope tracing.OpContext, stack []uint256.Int) Storage {
	addr := scope.Address()
	if l.storage[addr] == nil {
		l.storage[addr] = make(Storage)
	}
	n := len(stack)
	switch {
	case op == vm.SLOAD && n >= 1:
		slot := common.Hash(stack[n-1].Bytes32())
		if l.env != nil && l.env.StateDB != nil {
			l.storage[addr][slot] = l.env.StateDB.GetState(addr, slot)
		}
	case op == vm.SSTORE && n >= 2:
		slot := common.Hash(stack[n-1].Bytes32())
		l.storage[addr][slot] = common.Hash(stack[n-2].Bytes32())
	}
	return l.storage[addr].Copy()
}

// OnExit records the output of the outermost frame.
func (l *StructLogger) OnExit(depth int, output []byte, gasUsed uint64, err error, reverted bool) {
	if depth != 0 {
		return
	}
	l.output = common.CopyBytes(output)
	if err != nil && l.err == nil {
		l.err = err
	}
}

// OnTxEnd records the gas used by the message.
func (l *StructLogger) OnTxEnd(gasUsed uint64, err error) {
	l.gasUsed = gasUsed
}

// StructLogs returns the captured log entries.
func (l *StructLogger) StructLogs() []StructLog { return l.logs }

// Error returns the VM error captured by the trace.
func (l *StructLogger) Error() error { return l.err }

// Output returns the VM return value captured by the trace.
func (l *StructLogger) Output() []byte { return l.output }

// GasUsed returns the gas used by the traced message.
func (l *StructLogger) GasUsed() uint64 { return l.gasUsed }

// WriteTrace writes a formatted trace to the given writer
func WriteTrace(writer io.Writer, logs []StructLog) {
	for _, log := range logs {
		fmt.Fprintf(writer, "%-16spc=%08d gas=%v cost=%v", log.Op, log.Pc, log.Gas, log.GasCost)
		if log.Err != nil {
			fmt.Fprintf(writer, " ERROR: %v", log.Err)
		}
		fmt.Fprintln(writer)

		if len(log.Stack) > 0 {
			fmt.Fprintln(writer, "Stack:")
			for i := len(log.Stack) - 1; i >= 0; i-- {
				fmt.Fprintf(writer, "%08d  %s\n", len(log.Stack)-i-1, log.Stack[i].Hex())
			}
		}
		if len(log.Memory) > 0 {
			fmt.Fprintln(writer, "Memory:")
			fmt.Fprint(writer, hex.Dump(log.Memory))
		}
		if len(log.Storage) > 0 {
			fmt.Fprintln(writer, "Storage:")
			for h, item := range log.Storage {
				fmt.Fprintf(writer, "%x: %x\n", h, item)
			}
		}
		if len(log.ReturnData) > 0 {
			fmt.Fprintln(writer, "ReturnData:")
			fmt.Fprint(writer, hex.Dump(log.ReturnData))
		}
		fmt.Fprintln(writer)
	}
}

// WriteLogs writes vm logs in a readable format to the given writer
func WriteLogs(writer io.Writer, logs []*types.Log) {
	for _, log := range logs {
		fmt.Fprintf(writer, "LOG%d: %x bn=%d txi=%x\n", len(log.Topics), log.Address, log.BlockNumber, log.TxIndex)

		for i, topic := range log.Topics {
			fmt.Fprintf(writer, "%08d  %x\n", i, topic)
		}
		fmt.Fprint(writer, hex.Dump(log.Data))
		fmt.Fprintln(writer)
	}
}
