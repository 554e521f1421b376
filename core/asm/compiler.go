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

package asm

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sunyihoo/go-evm/common/math"
	"github.com/sunyihoo/go-evm/core/vm"
	"github.com/sunyihoo/go-evm/log"
)

// labelWidth is the number of bytes a label reference is pushed with.
const labelWidth = 2

// Compiler contains information about the parsed source
// and holds the tokens for the program.
type Compiler struct {
	tokens []token
	out    []byte

	labels map[string]int
	errs   []error

	pc, pos int
}

// Compile assembles source into bytecode. All syntax errors are collected
// and returned together.
//
// The language has one instruction per line: an opcode name, "push" followed
// by a number, quoted string or @label, "jump"/"jumpi" with an optional
// target, or a "name:" label definition which emits a JUMPDEST. ";;" starts a
// comment.
func Compile(source string) ([]byte, error) {
	c := &Compiler{labels: make(map[string]int)}
	c.feed(lex(source))
	for c.pos < len(c.tokens) {
		if err := c.compileLine(); err != nil {
			c.errs = append(c.errs, err)
		}
	}
	if len(c.errs) > 0 {
		return nil, errors.Join(c.errs...)
	}
	log.Debug("Compiled assembly", "labels", len(c.labels), "size", len(c.out))
	return c.out, nil
}

// feed is the first pass: it counts the bytes every token produces so the
// label positions are known before any push of a label is emitted.
func (c *Compiler) feed(tokens []token) {
	var prev token
	for _, tok := range tokens {
		jumpArg := prev.typ == element && isJump(prev.text)
		switch tok.typ {
		case number:
			n := 1
			if b, err := parseNumber(tok); err == nil {
				n = len(b)
			}
			c.pc += n
			if jumpArg {
				c.pc++
			}
		case stringValue:
			c.pc += len(tok.text) - 2
		case element:
			c.pc++
		case labelDef:
			if _, ok := c.labels[tok.text]; ok {
				c.errs = append(c.errs, fmt.Errorf("%d: label %q redefined", tok.lineno+1, tok.text))
			}
			c.labels[tok.text] = c.pc
			c.pc++
		case label:
			c.pc += labelWidth
			if jumpArg {
				c.pc++
			}
		}
		c.tokens = append(c.tokens, tok)
		prev = tok
	}
}

func (c *Compiler) next() token {
	tok := c.tokens[c.pos]
	c.pos++
	return tok
}

// compileLine compiles a single line instruction e.g.
// "push 1", "jump @label".
func (c *Compiler) compileLine() error {
	n := c.next()
	if n.typ == eof {
		return nil
	}
	if n.typ != lineStart {
		c.skipLine()
		return compileErr(n, n.typ.String(), lineStart.String())
	}
	lvalue := c.next()
	switch lvalue.typ {
	case element:
		if err := c.compileElement(lvalue); err != nil {
			c.skipLine()
			return err
		}
	case labelDef:
		c.outputOpcode(vm.JUMPDEST)
	case lineEnd:
		return nil
	default:
		c.skipLine()
		return compileErr(lvalue, lvalue.text, fmt.Sprintf("%v or %v", labelDef, element))
	}
	if n := c.next(); n.typ != lineEnd {
		c.skipLine()
		return compileErr(n, n.text, lineEnd.String())
	}
	return nil
}

// skipLine moves past the end of the current line so one bad line yields
// a single error.
func (c *Compiler) skipLine() {
	for c.pos < len(c.tokens) {
		if tok := c.next(); tok.typ == lineEnd {
			return
		}
	}
}

// parseNumber compiles the number to its minimal big-endian bytes.
func parseNumber(tok token) ([]byte, error) {
	num, ok := math.ParseBig256(tok.text)
	if !ok {
		return nil, fmt.Errorf("%d: invalid number %q", tok.lineno+1, tok.text)
	}
	b := num.Bytes()
	if len(b) == 0 {
		b = []byte{0}
	}
	return b, nil
}

func (c *Compiler) compileElement(element token) error {
	switch {
	case isJump(element.text):
		return c.compileJump(element)
	case isPush(element.text):
		return c.compilePush()
	}
	op, ok := vm.StringToOp(strings.ToUpper(element.text))
	if !ok {
		return fmt.Errorf("%d: unknown opcode %q", element.lineno+1, element.text)
	}
	c.outputOpcode(op)
	return nil
}

// compileJump emits the jump, preceded by a push of its target when one is
// given. Without a target the destination is taken from the stack.
func (c *Compiler) compileJump(jump token) error {
	rvalue := c.next()
	switch rvalue.typ {
	case number:
		b, err := parseNumber(rvalue)
		if err != nil {
			return err
		}
		c.outputPush(b)
	case label:
		b, err := c.labelBytes(rvalue)
		if err != nil {
			return err
		}
		c.outputPush(b)
	case lineEnd:
		c.pos--
	default:
		c.pos--
		return compileErr(rvalue, rvalue.text, "number or label")
	}
	op, _ := vm.StringToOp(strings.ToUpper(jump.text))
	c.outputOpcode(op)
	return nil
}

func (c *Compiler) compilePush() error {
	var (
		value []byte
		err   error
	)
	rvalue := c.next()
	switch rvalue.typ {
	case number:
		value, err = parseNumber(rvalue)
	case stringValue:
		value = []byte(rvalue.text[1 : len(rvalue.text)-1])
	case label:
		value, err = c.labelBytes(rvalue)
	default:
		c.pos--
		return compileErr(rvalue, rvalue.text, "number, string or label")
	}
	if err != nil {
		return err
	}
	if len(value) == 0 || len(value) > 32 {
		return fmt.Errorf("%d: push of %d bytes, want 1 to 32", rvalue.lineno+1, len(value))
	}
	c.outputPush(value)
	return nil
}

// labelBytes returns the fixed width position of a defined label.
func (c *Compiler) labelBytes(tok token) ([]byte, error) {
	pos, ok := c.labels[tok.text]
	if !ok {
		return nil, fmt.Errorf("%d: undefined label %q", tok.lineno+1, tok.text)
	}
	if pos >= 1<<(8*labelWidth) {
		return nil, fmt.Errorf("%d: label %q at %d is out of push range", tok.lineno+1, tok.text, pos)
	}
	return []byte{byte(pos >> 8), byte(pos)}, nil
}

// outputPush emits PUSH1..PUSH32 sized to value.
func (c *Compiler) outputPush(value []byte) {
	c.outputOpcode(vm.PUSH1 + vm.OpCode(len(value)-1))
	c.out = append(c.out, value...)
}

func (c *Compiler) outputOpcode(op vm.OpCode) {
	c.out = append(c.out, byte(op))
}

// isPush returns whether the string op is either any of
// push(N).
func isPush(op string) bool {
	return strings.EqualFold(op, "PUSH")
}

// isJump returns whether the string op is jump(i)
func isJump(op string) bool {
	return strings.EqualFold(op, "JUMPI") || strings.EqualFold(op, "JUMP")
}

type compileError struct {
	got  string
	want string

	lineno int
}

func (err compileError) Error() string {
	return fmt.Sprintf("%d: syntax error: unexpected %v, expected %v", err.lineno, err.got, err.want)
}

func compileErr(c token, got, want string) error {
	return compileError{
		got:    got,
		want:   want,
		lineno: c.lineno + 1,
	}
}
