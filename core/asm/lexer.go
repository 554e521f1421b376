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
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/sunyihoo/go-evm/log"
)

// stateFn scans from the current position and returns the next state, nil
// once the input is exhausted.
type stateFn func(*lexer) stateFn

type token struct {
	typ    tokenType
	lineno int
	text   string
}

type tokenType int

const (
	eof tokenType = iota
	lineStart
	lineEnd
	invalidStatement // unexpected character or unterminated string
	element          // instruction name
	label            // @name reference
	labelDef         // name: definition
	number
	stringValue // quoted, quotes included
)

var tokenNames = [...]string{
	eof:              "eof",
	lineStart:        "line start",
	lineEnd:          "line end",
	invalidStatement: "invalid statement",
	element:          "element",
	label:            "label",
	labelDef:         "label definition",
	number:           "number",
	stringValue:      "string",
}

func (t tokenType) String() string {
	if int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return fmt.Sprintf("tokenType(%d)", int(t))
}

func isDecimal(r rune) bool { return '0' <= r && r <= '9' }

func isHex(r rune) bool {
	return isDecimal(r) || ('a' <= r && r <= 'f') || ('A' <= r && r <= 'F')
}

// isIdent matches the characters allowed after the first one of an
// instruction or label name.
func isIdent(r rune) bool {
	return r == '_' || isDecimal(r) || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z')
}

// lexer turns assembly source into tokens for the compiler. start is the
// offset of the token being scanned, pos the read position.
type lexer struct {
	input  string
	tokens []token

	lineno     int
	start, pos int
}

// lex tokenizes source. Every line is framed by lineStart and lineEnd
// tokens and the stream ends with eof. Unexpected characters produce an
// invalidStatement token for the compiler to report.
func lex(source string) []token {
	l := &lexer{input: source}
	l.emit(lineStart)
	for state := stateFn(lexLine); state != nil; {
		state = state(l)
	}
	l.emit(lineEnd)
	l.emit(eof)
	return l.tokens
}

// peek returns the next rune without consuming it, 0 at the end of input.
func (l *lexer) peek() (rune, int) {
	if l.pos >= len(l.input) {
		return 0, 0
	}
	return utf8.DecodeRuneInString(l.input[l.pos:])
}

func (l *lexer) next() rune {
	r, width := l.peek()
	l.pos += width
	return r
}

// skip drops the text scanned so far.
func (l *lexer) skip() {
	l.start = l.pos
}

// consume advances over the next rune if it matches.
func (l *lexer) consume(match func(rune) bool) bool {
	if r, width := l.peek(); width > 0 && match(r) {
		l.pos += width
		return true
	}
	return false
}

func (l *lexer) consumeWhile(match func(rune) bool) {
	for l.consume(match) {
	}
}

func (l *lexer) emit(t tokenType) {
	tok := token{typ: t, lineno: l.lineno, text: l.input[l.start:l.pos]}
	log.Trace("Assembler token", "line", tok.lineno, "type", tok.typ, "text", tok.text)
	l.tokens = append(l.tokens, tok)
	l.start = l.pos
}

func lexLine(l *lexer) stateFn {
	for {
		r := l.next()
		switch {
		case r == 0:
			return nil
		case r == '\n':
			l.skip()
			l.emit(lineEnd)
			l.lineno++
			l.emit(lineStart)
		case r == ';' && strings.HasPrefix(l.input[l.pos:], ";"):
			return lexComment
		case unicode.IsSpace(r):
			l.skip()
		case unicode.IsLetter(r) || r == '_':
			return lexElement
		case unicode.IsDigit(r):
			return lexNumber
		case r == '@':
			l.skip()
			return lexLabel
		case r == '"':
			return lexString
		default:
			l.emit(invalidStatement)
		}
	}
}

// lexComment discards everything up to the end of the line.
func lexComment(l *lexer) stateFn {
	l.consumeWhile(func(r rune) bool { return r != '\n' })
	l.skip()
	return lexLine
}

func lexLabel(l *lexer) stateFn {
	l.consumeWhile(isIdent)
	l.emit(label)
	return lexLine
}

// lexString emits the string including its quotes. An unterminated string
// swallows the rest of the input as an invalid statement.
func lexString(l *lexer) stateFn {
	end := strings.IndexByte(l.input[l.pos:], '"')
	if end < 0 {
		l.pos = len(l.input)
		l.emit(invalidStatement)
		return lexLine
	}
	l.pos += end + 1
	l.emit(stringValue)
	return lexLine
}

// lexNumber scans a decimal number or, after a 0x prefix, a hex one.
func lexNumber(l *lexer) stateFn {
	digits := isDecimal
	if l.consume(func(r rune) bool { return r == 'x' || r == 'X' }) {
		digits = isHex
	}
	l.consumeWhile(digits)
	l.emit(number)
	return lexLine
}

// lexElement scans an instruction name, or a label definition when the
// name is followed by a colon. The colon is not part of the token.
func lexElement(l *lexer) stateFn {
	l.consumeWhile(isIdent)
	if r, _ := l.peek(); r != ':' {
		l.emit(element)
		return lexLine
	}
	l.emit(labelDef)
	l.next()
	l.skip()
	return lexLine
}
