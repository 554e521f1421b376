// Copyright 2023 The go-ethereum Authors
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

package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/holiman/uint256"
)

// DiscardHandler returns a handler that drops every record.
func DiscardHandler() slog.Handler {
	return discardHandler{}
}

type discardHandler struct{}

func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }

// TerminalHandler formats records for a human reader:
//
//	LEVEL[MM-DD|HH:MM:SS.mmm] MESSAGE                          key=value key=value
//
// 终端输出按级别着色，属性值按键名记忆最大宽度做对齐。
type TerminalHandler struct {
	mu       sync.Mutex
	wr       io.Writer
	lvl      slog.Level
	useColor bool
	attrs    []slog.Attr

	// fieldPadding remembers the widest value seen per key.
	fieldPadding map[string]int
	buf          []byte
}

// NewTerminalHandler returns a terminal handler that emits every level.
func NewTerminalHandler(wr io.Writer, useColor bool) *TerminalHandler {
	return NewTerminalHandlerWithLevel(wr, levelMaxVerbosity, useColor)
}

// NewTerminalHandlerWithLevel returns a terminal handler that drops records
// below lvl.
func NewTerminalHandlerWithLevel(wr io.Writer, lvl slog.Level, useColor bool) *TerminalHandler {
	return &TerminalHandler{wr: wr, lvl: lvl, useColor: useColor, fieldPadding: make(map[string]int)}
}

func (h *TerminalHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.buf = h.format(h.buf[:0], r, h.useColor)
	_, err := h.wr.Write(h.buf)
	return err
}

func (h *TerminalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.lvl
}

// WithGroup is not supported, groups are flattened into the parent.
func (h *TerminalHandler) WithGroup(string) slog.Handler {
	return h
}

func (h *TerminalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	child := NewTerminalHandlerWithLevel(h.wr, h.lvl, h.useColor)
	child.attrs = append(slices.Clone(h.attrs), attrs...)
	return child
}

// ResetFieldPadding forgets the value widths seen so far.
func (h *TerminalHandler) ResetFieldPadding() {
	h.mu.Lock()
	clear(h.fieldPadding)
	h.mu.Unlock()
}

// JSONHandler prints every record as a JSON object.
func JSONHandler(wr io.Writer) slog.Handler {
	return JSONHandlerWithLevel(wr, levelMaxVerbosity)
}

// JSONHandlerWithLevel prints records at or above level as JSON objects.
func JSONHandlerWithLevel(wr io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(wr, &slog.HandlerOptions{Level: level, ReplaceAttr: replaceAttr(false)})
}

// LogfmtHandlerWithLevel prints records at or above level as logfmt lines.
func LogfmtHandlerWithLevel(wr io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(wr, &slog.HandlerOptions{Level: level, ReplaceAttr: replaceAttr(true)})
}

// replaceAttr renames the builtin time and level keys to t and lvl and
// renders numbers and Stringers the way the terminal output does. Text
// output also gets the terminal time format.
func replaceAttr(text bool) func([]string, slog.Attr) slog.Attr {
	return func(_ []string, attr slog.Attr) slog.Attr {
		switch attr.Key {
		case slog.TimeKey:
			if attr.Value.Kind() == slog.KindTime {
				if text {
					return slog.String("t", attr.Value.Time().Format(timeFormat))
				}
				return slog.Attr{Key: "t", Value: attr.Value}
			}
		case slog.LevelKey:
			if l, ok := attr.Value.Any().(slog.Level); ok {
				return slog.String("lvl", LevelString(l))
			}
		}
		switch v := attr.Value.Any().(type) {
		case time.Time:
			if text {
				attr.Value = slog.StringValue(v.Format(timeFormat))
			}
		case *big.Int:
			attr.Value = slog.StringValue(nilOr(v == nil, v.String))
		case *uint256.Int:
			attr.Value = slog.StringValue(nilOr(v == nil, v.Dec))
		case fmt.Stringer:
			rv := reflect.ValueOf(v)
			attr.Value = slog.StringValue(nilOr(rv.Kind() == reflect.Pointer && rv.IsNil(), v.String))
		}
		return attr
	}
}

func nilOr(isNil bool, str func() string) string {
	if isNil {
		return "<nil>"
	}
	return str()
}
