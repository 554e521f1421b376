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

package debug

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/go-evm/log"
)

func TestNewHandler(t *testing.T) {
	var buf bytes.Buffer
	for _, format := range []string{"", "terminal", "json", "logfmt"} {
		h, err := newHandler(format, &buf, slog.LevelInfo, false)
		require.NoError(t, err, format)
		require.True(t, h.Enabled(context.Background(), slog.LevelWarn), format)
		require.False(t, h.Enabled(context.Background(), slog.LevelDebug), format)
	}
	_, err := newHandler("xml", &buf, slog.LevelInfo, false)
	require.ErrorContains(t, err, "unknown log format")
}

func TestJSONHandlerOutput(t *testing.T) {
	var buf bytes.Buffer
	h, err := newHandler("json", &buf, log.LevelTrace, false)
	require.NoError(t, err)
	log.NewLogger(h).Info("hello", "answer", 42)
	require.Contains(t, buf.String(), `"msg":"hello"`)
	require.Contains(t, buf.String(), `"answer":42`)
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/evm")
	require.Equal(t, "/home/evm/prof.out", expandHome("~/prof.out"))
	require.Equal(t, "/tmp/a.out", expandHome("/tmp/x/../a.out"))
}

func TestValidateLogLocation(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	require.NoError(t, validateLogLocation(dir))
	_, err := os.Stat(dir)
	require.NoError(t, err)
}
