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
	"bytes"
	"errors"
	"log/slog"
	"math/big"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestTerminalHandlerFormat(t *testing.T) {
	out := new(bytes.Buffer)
	l := NewLogger(NewTerminalHandlerWithLevel(out, LevelInfo, false))
	l.Info("state committed", "accounts", 3, "gas", uint64(1234567))
	l.Debug("dropped")

	line := out.String()
	require.True(t, strings.HasPrefix(line, "INFO ["), "line: %q", line)
	require.Contains(t, line, "state committed")
	require.Contains(t, line, "accounts=3")
	require.Contains(t, line, "gas=1,234,567")
	require.NotContains(t, line, "dropped")
	require.Equal(t, 1, strings.Count(line, "\n"))
}

func TestLoggerWithContext(t *testing.T) {
	out := new(bytes.Buffer)
	l := NewLogger(NewTerminalHandler(out, false)).With("database", "memory")
	l.Warn("slow", "err", errors.New("boom"))
	require.Contains(t, out.String(), "database=memory")
	require.Contains(t, out.String(), "err=boom")
}

func TestOddAttributes(t *testing.T) {
	out := new(bytes.Buffer)
	l := NewLogger(NewTerminalHandler(out, false))
	l.Info("odd", "key")
	require.Contains(t, out.String(), errorKey)
}

func TestFormatSlogValue(t *testing.T) {
	tests := []struct {
		v    slog.Value
		want string
	}{
		{slog.Int64Value(-1234567), "-1,234,567"},
		{slog.Uint64Value(99999), "99999"},
		{slog.StringValue("a b"), `"a b"`},
		{slog.AnyValue(new(uint256.Int).SetUint64(1000000)), "1,000,000"},
		{slog.AnyValue(new(big.Int).Lsh(big.NewInt(1), 70)), "1,180,591,620,717,411,303,424"},
		{slog.AnyValue(nil), "<nil>"},
	}
	for i, tt := range tests {
		if have := string(FormatSlogValue(tt.v, nil)); have != tt.want {
			t.Errorf("test %d: have %q, want %q", i, have, tt.want)
		}
	}
}

func TestLvlFromString(t *testing.T) {
	for name, want := range map[string]slog.Level{
		"trace": LevelTrace, "debug": LevelDebug, "INFO": LevelInfo, "warn": LevelWarn, "error": LevelError, "crit": LevelCrit,
	} {
		have, err := LvlFromString(name)
		require.NoError(t, err)
		require.Equal(t, want, have, name)
	}
	_, err := LvlFromString("loud")
	require.Error(t, err)
	require.Equal(t, LevelTrace, FromLegacyLevel(5))
	require.Equal(t, LevelInfo, FromLegacyLevel(3))
	require.Equal(t, LevelTrace, FromLegacyLevel(9))
	require.Equal(t, LevelCrit, FromLegacyLevel(-1))

	require.Equal(t, "INFO ", LevelAlignedString(LevelInfo))
	require.Equal(t, "ERROR", LevelAlignedString(LevelError))
	require.Equal(t, "unknown", LevelString(slog.Level(3)))
}

func TestRootLogger(t *testing.T) {
	prev := Root()
	defer SetDefault(prev)

	out := new(bytes.Buffer)
	SetDefault(NewLogger(NewTerminalHandlerWithLevel(out, LevelWarn, false)))
	require.True(t, Enabled(LevelWarn))
	require.False(t, Enabled(LevelInfo))

	Info("hidden")
	New("module", "state").Warn("slot bloom seeded", "slots", 2)
	require.NotContains(t, out.String(), "hidden")
	require.Contains(t, out.String(), "module=state")
	require.Contains(t, out.String(), "slots=2")
}
