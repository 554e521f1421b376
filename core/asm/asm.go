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

// Package asm disassembles EVM bytecode and compiles a small assembly
// language into it. The evm command uses both.
package asm

import (
	"fmt"
	"io"

	"github.com/sunyihoo/go-evm/core/vm"
)

// Instruction is one decoded opcode together with its immediate bytes.
type Instruction struct {
	PC  uint64
	Op  vm.OpCode
	Arg []byte // push data, nil for other opcodes
}

func (in Instruction) String() string {
	if len(in.Arg) > 0 {
		return fmt.Sprintf("%05x: %v %#x", in.PC, in.Op, in.Arg)
	}
	return fmt.Sprintf("%05x: %v", in.PC, in.Op)
}

// InstructionIterator walks the instructions of legacy bytecode. Push data is
// skipped the same way the interpreter's jump destination analysis skips it.
type InstructionIterator struct {
	code    []byte
	pc      uint64
	arg     []byte
	op      vm.OpCode
	err     error
	started bool
}

// NewInstructionIterator creates a new instruction iterator.
func NewInstructionIterator(code []byte) *InstructionIterator {
	return &InstructionIterator{code: code}
}

// Next returns true if there is a next instruction and moves on.
func (it *InstructionIterator) Next() bool {
	if it.err != nil || uint64(len(it.code)) <= it.pc {
		return false
	}
	if it.started {
		it.pc += uint64(len(it.arg)) + 1
	} else {
		it.started = true
	}
	if uint64(len(it.code)) <= it.pc {
		return false
	}
	it.op = vm.OpCode(it.code[it.pc])
	it.arg = nil

	if n := it.op.PushSize(); n > 0 {
		end := it.pc + 1 + uint64(n)
		if end > uint64(len(it.code)) {
			it.err = fmt.Errorf("incomplete push instruction at %v", it.pc)
			return false
		}
		it.arg = it.code[it.pc+1 : end]
	}
	return true
}

// Error returns any error that may have been encountered.
func (it *InstructionIterator) Error() error { return it.err }

// PC returns the PC of the current instruction.
func (it *InstructionIterator) PC() uint64 { return it.pc }

// Op returns the opcode of the current instruction.
func (it *InstructionIterator) Op() vm.OpCode { return it.op }

// Arg returns the argument of the current instruction.
func (it *InstructionIterator) Arg() []byte { return it.arg }

// Instruction returns the current instruction.
func (it *InstructionIterator) Instruction() Instruction {
	return Instruction{PC: it.pc, Op: it.op, Arg: it.arg}
}

// Disassemble decodes every instruction of code. A push running past the end
// of code is reported as an error together with the instructions before it.
func Disassemble(code []byte) ([]Instruction, error) {
	var instrs []Instruction
	it := NewInstructionIterator(code)
	for it.Next() {
		instrs = append(instrs, it.Instruction())
	}
	return instrs, it.Error()
}

// Fprint writes the disassembly of code to w, one instruction per line.
func Fprint(w io.Writer, code []byte) error {
	it := NewInstructionIterator(code)
	for it.Next() {
		if _, err := fmt.Fprintln(w, it.Instruction()); err != nil {
			return err
		}
	}
	return it.Error()
}
