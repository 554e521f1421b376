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
	"log/slog"
	"os"
	"sync/atomic"
)

// rootLogger holds the process wide logger. It starts out discarding every
// record until the command line sets it up.
var rootLogger atomic.Pointer[Logger]

func init() {
	SetDefault(NewLogger(DiscardHandler()))
}

// SetDefault replaces the root logger. The standard library default follows
// it, so slog calls made by dependencies end up in the same output.
func SetDefault(l Logger) {
	rootLogger.Store(&l)
	if lg, ok := l.(*logger); ok {
		slog.SetDefault(lg.inner)
	}
}

// Root returns the root logger
func Root() Logger {
	return *rootLogger.Load()
}

// Enabled reports whether the root logger emits records at level.
func Enabled(level slog.Level) bool {
	return Root().Enabled(context.Background(), level)
}

// The helpers below call Write directly so every path to the handler has the
// same call depth and the reported source is the caller of the helper.

// Trace is a convenient alias for Root().Trace
func Trace(msg string, ctx ...interface{}) { Root().Write(LevelTrace, msg, ctx...) }

// Debug is a convenient alias for Root().Debug
func Debug(msg string, ctx ...interface{}) { Root().Write(LevelDebug, msg, ctx...) }

// Info is a convenient alias for Root().Info
//
//	log.Info("Committed state", "accounts", 3, "root", root)
func Info(msg string, ctx ...interface{}) { Root().Write(LevelInfo, msg, ctx...) }

// Warn is a convenient alias for Root().Warn
func Warn(msg string, ctx ...interface{}) { Root().Write(LevelWarn, msg, ctx...) }

// Error is a convenient alias for Root().Error
func Error(msg string, ctx ...interface{}) { Root().Write(LevelError, msg, ctx...) }

// Crit logs at the critical level and exits the process.
func Crit(msg string, ctx ...interface{}) {
	Root().Write(LevelCrit, msg, ctx...)
	os.Exit(1)
}

// New returns a child of the root logger carrying the given context.
func New(ctx ...interface{}) Logger {
	return Root().With(ctx...)
}
