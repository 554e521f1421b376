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

// Package log is a thin key/value logging layer on top of log/slog.
//
// 日志调用统一写成 log.Info("msg", "key", value) 的形式，级别沿用 geth 的
// trace/debug/info/warn/error/crit 六级。
package log

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"runtime"
	"strings"
	"time"
)

// errorKey tags records whose attribute list had to be repaired.
const errorKey = "LOG_ERROR"

const (
	levelMaxVerbosity slog.Level = math.MinInt
	LevelTrace        slog.Level = -8
	LevelDebug                   = slog.LevelDebug
	LevelInfo                    = slog.LevelInfo
	LevelWarn                    = slog.LevelWarn
	LevelError                   = slog.LevelError
	LevelCrit         slog.Level = 12
)

// levels lists the named levels by their command line verbosity, 0 being the
// most severe.
var levels = []struct {
	level   slog.Level
	name    string
	aliases []string
}{
	{LevelCrit, "crit", nil},
	{LevelError, "error", []string{"eror"}},
	{LevelWarn, "warn", nil},
	{LevelInfo, "info", nil},
	{LevelDebug, "debug", []string{"dbug"}},
	{LevelTrace, "trace", []string{"trce"}},
}

// FromLegacyLevel maps a --verbosity value (0=crit ... 5=trace) onto slog.
// Values beyond the range saturate.
func FromLegacyLevel(verbosity int) slog.Level {
	verbosity = max(0, min(verbosity, len(levels)-1))
	return levels[verbosity].level
}

// LvlFromString parses a level name, as used in flags and config files.
func LvlFromString(name string) (slog.Level, error) {
	name = strings.ToLower(name)
	for _, l := range levels {
		if l.name == name {
			return l.level, nil
		}
		for _, alias := range l.aliases {
			if alias == name {
				return l.level, nil
			}
		}
	}
	return LevelDebug, fmt.Errorf("unknown level: %v", name)
}

// LevelString returns the lower case name of l, or "unknown".
func LevelString(l slog.Level) string {
	for _, named := range levels {
		if named.level == l {
			return named.name
		}
	}
	return "unknown"
}

// LevelAlignedString returns the upper case name of l padded to 5 characters.
func LevelAlignedString(l slog.Level) string {
	name := LevelString(l)
	if name == "unknown" {
		return "unknown level"
	}
	return fmt.Sprintf("%-5s", strings.ToUpper(name))
}

// Logger writes key/value records to an slog.Handler.
type Logger interface {
	// With returns a child logger that adds ctx to every record.
	With(ctx ...interface{}) Logger

	Trace(msg string, ctx ...interface{})
	Debug(msg string, ctx ...interface{})
	Info(msg string, ctx ...interface{})
	Warn(msg string, ctx ...interface{})
	Error(msg string, ctx ...interface{})
	// Crit logs and terminates the process.
	Crit(msg string, ctx ...interface{})

	// Write emits a record at an arbitrary level.
	Write(level slog.Level, msg string, attrs ...any)

	Enabled(ctx context.Context, level slog.Level) bool
}

type logger struct {
	inner *slog.Logger
}

// NewLogger returns a logger writing to h.
func NewLogger(h slog.Handler) Logger {
	return &logger{slog.New(h)}
}

// Write must be called directly from an exported helper: the recorded PC
// skips exactly that one frame.
func (l *logger) Write(level slog.Level, msg string, attrs ...any) {
	ctx := context.Background()
	if !l.inner.Enabled(ctx, level) {
		return
	}
	var pc [1]uintptr
	runtime.Callers(3, pc[:])

	if len(attrs)%2 == 1 {
		attrs = append(attrs, nil, errorKey, "Normalized odd number of arguments by adding nil")
	}
	rec := slog.NewRecord(time.Now(), level, msg, pc[0])
	rec.Add(attrs...)
	l.inner.Handler().Handle(ctx, rec)
}

func (l *logger) With(ctx ...interface{}) Logger {
	return &logger{l.inner.With(ctx...)}
}

func (l *logger) Enabled(ctx context.Context, level slog.Level) bool {
	return l.inner.Enabled(ctx, level)
}

func (l *logger) Trace(msg string, ctx ...interface{}) { l.Write(LevelTrace, msg, ctx...) }
func (l *logger) Debug(msg string, ctx ...interface{}) { l.Write(LevelDebug, msg, ctx...) }
func (l *logger) Info(msg string, ctx ...interface{})  { l.Write(LevelInfo, msg, ctx...) }
func (l *logger) Warn(msg string, ctx ...interface{})  { l.Write(LevelWarn, msg, ctx...) }
func (l *logger) Error(msg string, ctx ...interface{}) { l.Write(LevelError, msg, ctx...) }

func (l *logger) Crit(msg string, ctx ...interface{}) {
	l.Write(LevelCrit, msg, ctx...)
	os.Exit(1)
}
