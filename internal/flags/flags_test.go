// Copyright 2015 The go-ethereum Authors
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

package flags

import (
	"math/big"
	"os"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestPathExpansion(t *testing.T) {
	home := HomeDir()
	tests := map[string]string{
		"/home/someuser/tmp": "/home/someuser/tmp",
		"~/tmp":              home + "/tmp",
		"~thisOtherUser/b/":  "~thisOtherUser/b",
		"$DDDXXX/a/b":        "/tmp/a/b",
		"/a/b/":              "/a/b",
	}
	if runtime.GOOS == "windows" {
		t.Skip("posix paths only")
	}
	os.Setenv("DDDXXX", "/tmp")
	for test, expected := range tests {
		require.Equal(t, expected, expandPath(test), test)
	}
}

// runApp parses args against flags and returns the context seen by the action.
func runApp(t *testing.T, fs []cli.Flag, args ...string) *cli.Context {
	t.Helper()
	var got *cli.Context
	app := NewApp("test")
	app.Flags = fs
	app.Action = func(ctx *cli.Context) error {
		got = ctx
		return nil
	}
	require.NoError(t, app.Run(append([]string{"test"}, args...)))
	return got
}

func TestBigFlag(t *testing.T) {
	price := &BigFlag{Name: "price", Value: big.NewInt(7)}
	ctx := runApp(t, []cli.Flag{price})
	require.Equal(t, "7", GlobalBig(ctx, "price").String())

	price = &BigFlag{Name: "price", Value: big.NewInt(7)}
	ctx = runApp(t, []cli.Flag{price}, "--price", "0x100")
	require.Equal(t, "256", GlobalBig(ctx, "price").String())
	require.Equal(t, "7", price.GetDefaultText())
}

func TestBigFlagInvalid(t *testing.T) {
	app := NewApp("test")
	app.Flags = []cli.Flag{&BigFlag{Name: "value"}}
	app.Action = func(*cli.Context) error { return nil }
	app.Writer, app.ErrWriter = os.Stderr, os.Stderr
	require.Error(t, app.Run([]string{"test", "--value", "twelve"}))
}

func TestDirectoryFlag(t *testing.T) {
	t.Setenv("EVMDIR", "/tmp/evm")
	dir := &DirectoryFlag{Name: "datadir", EnvVars: []string{"EVMDIR"}}
	runApp(t, []cli.Flag{dir})
	require.Equal(t, "/tmp/evm", dir.Value.String())
	require.True(t, dir.IsSet())
}

func TestCheckExclusive(t *testing.T) {
	a := &cli.StringFlag{Name: "code"}
	b := &cli.StringFlag{Name: "codefile"}
	ctx := runApp(t, []cli.Flag{a, b}, "--code", "00")
	require.NoError(t, CheckExclusive(ctx, a, b))

	ctx = runApp(t, []cli.Flag{a, b}, "--code", "00", "--codefile", "x")
	require.ErrorContains(t, CheckExclusive(ctx, a, b), "can't be used at the same time")
}
