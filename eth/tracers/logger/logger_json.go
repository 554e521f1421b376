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
	"encoding/json"
	"io"

	"github.com/sunyihoo/go-evm/common"
	"github.com/sunyihoo/go-evm/common/hexutil"
	"github.com/sunyihoo/go-evm/core/tracing"
	"github.com/sunyihoo/go-evm/core/vm"
	"github.com/sunyihoo/go-evm/log"
)

// jsonLogger writes one JSON object per executed step, followed by a summary
// line once the outermost frame returns.
type jsonLogger struct {
	encoder *json.Encoder
	cfg     *Config
	env     *tracing.VMContext
}

// NewJSONLogger creates a new EVM tracer that prints execution steps as JSON objects
// into the provided stream.
func NewJSONLogger(cfg *Config, writer io.Writer) *tracing.Hooks {
	l := &jsonLogger{encoder: json.NewEncoder(writer), cfg: cfg}
	if l.cfg == nil {
		l.cfg = &Config{}
	}
	return &tracing.Hooks{
		OnTxStart: l.OnTxStart,
		OnExit:    l.OnExit,
		OnOpcode:  l.OnOpcode,
		OnFault:   l.OnFault,
	}
}

func (l *jsonLogger) OnTxStart(env *tracing.VMContext, from common.Address, to *common.Address, gas uint64) {
	l.env = env
}

func (l *jsonLogger) OnFault(pc uint64, op byte, gas uint64, cost uint64, scope tracing.OpContext, depth int, err error) {
	l.OnOpcode(pc, op, gas, cost, scope, nil, depth, err)
}

func (l *jsonLogger) OnOpcode(pc uint64, op byte, gas, cost uint64, scope tracing.OpContext, rData []byte, depth int, err error) {
	memory := scope.MemoryData()
	stack := scope.StackData()

	entry := StructLog{
		Pc:         pc,
		Op:         vm.OpCode(op),
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
		entry.Memory = memory
	}
	if !l.cfg.DisableStack {
		entry.Stack = stack
	}
	if l.cfg.EnableReturnData {
		entry.ReturnData = rData
	}
	l.write(entry)
}

// OnExit writes the summary line once the outermost frame returns.
func (l *jsonLogger) OnExit(depth int, output []byte, gasUsed uint64, err error, reverted bool) {
	if depth > 0 {
		return
	}
	type endLog struct {
		Output  string         `json:"output"`
		GasUsed hexutil.Uint64 `json:"gasUsed"`
		Err     string         `json:"error,omitempty"`
	}
	var errMsg string
	if err != nil {
		errMsg = err.Error()
	}
	l.write(endLog{common.Bytes2Hex(output), hexutil.Uint64(gasUsed), errMsg})
}

func (l *jsonLogger) write(v any) {
	if err := l.encoder.Encode(v); err != nil {
		log.Warn("Failed to write trace line", "err", err)
	}
}
