// Copyright 2017 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

// evm executes EVM code snippets.
package main

import (
	"fmt"
	"math/big"
	"os"

	"github.com/sunyihoo/go-evm/internal/debug"
	"github.com/sunyihoo/go-evm/internal/flags"
	"github.com/sunyihoo/go-evm/params/forks"
	"github.com/urfave/cli/v2"
)

var (
	CodeFlag = &cli.StringFlag{
		Name:     "code",
		Usage:    "EVM code",
		Category: flags.VMCategory,
	}
	CodeFileFlag = &cli.StringFlag{
		Name:     "codefile",
		Usage:    "File containing EVM code. If '-' is specified, code is read from stdin ",
		Category: flags.VMCategory,
	}
	AsmFlag = &cli.BoolFlag{
		Name:     "asm",
		Usage:    "Treat the code as assembly source and compile it first",
		Category: flags.VMCategory,
	}
	InputFlag = &cli.StringFlag{
		Name:     "input",
		Usage:    "Input for the EVM",
		Category: flags.VMCategory,
	}
	InputFileFlag = &cli.StringFlag{
		Name:     "inputfile",
		Usage:    "File containing input for the EVM",
		Category: flags.VMCategory,
	}
	GasFlag = &cli.Uint64Flag{
		Name:     "gas",
		Usage:    "Gas limit for the evm",
		Value:    10000000000,
		Category: flags.VMCategory,
	}
	PriceFlag = &flags.BigFlag{
		Name:     "price",
		Usage:    "Price set for the evm",
		Value:    new(big.Int),
		Category: flags.VMCategory,
	}
	ValueFlag = &flags.BigFlag{
		Name:     "value",
		Usage:    "Value set for the evm",
		Value:    new(big.Int),
		Category: flags.VMCategory,
	}
	ForkFlag = &cli.StringFlag{
		Name:     "fork",
		Usage:    "Fork rules to execute under (e.g. Berlin, Cancun)",
		Value:    forks.Cancun.String(),
		Category: flags.VMCategory,
	}
	CreateFlag = &cli.BoolFlag{
		Name:     "create",
		Usage:    "Indicates the action should be create rather than call",
		Category: flags.VMCategory,
	}
	SenderFlag = &cli.StringFlag{
		Name:     "sender",
		Usage:    "The transaction origin",
		Category: flags.VMCategory,
	}
	ReceiverFlag = &cli.StringFlag{
		Name:     "receiver",
		Usage:    "The transaction receiver (execution context)",
		Category: flags.VMCategory,
	}
	SenderBalanceFlag = &flags.BigFlag{
		Name:     "sender.balance",
		Usage:    "Balance credited to the sender before execution",
		Category: flags.VMCategory,
	}
	BlockNumberFlag = &cli.Uint64Flag{
		Name:     "block.number",
		Usage:    "Number of the block the code runs in",
		Category: flags.VMCategory,
	}
	TimestampFlag = &cli.Uint64Flag{
		Name:     "block.time",
		Usage:    "Timestamp of the block the code runs in",
		Category: flags.VMCategory,
	}
	IntrinsicFlag = &cli.BoolFlag{
		Name:     "intrinsic",
		Usage:    "Charge the intrinsic transaction gas before execution",
		Category: flags.VMCategory,
	}
	ExtraEipsFlag = &cli.IntSliceFlag{
		Name:     "eips",
		Usage:    "Additional EIPs to activate on top of the fork (see 'evm eips')",
		Category: flags.VMCategory,
	}
	TimeoutFlag = &cli.DurationFlag{
		Name:     "timeout",
		Usage:    "Abort the execution after the given duration, zero means no limit",
		Category: flags.VMCategory,
	}

	DBFlag = &cli.StringFlag{
		Name:     "db",
		Usage:    "State database backend (memory, leveldb or pebble)",
		Value:    "memory",
		Category: flags.StateCategory,
	}
	DataDirFlag = &flags.DirectoryFlag{
		Name:     "datadir",
		Usage:    "Data directory of a persistent state database",
		Category: flags.StateCategory,
	}
	CommitFlag = &cli.BoolFlag{
		Name:     "commit",
		Usage:    "Write the resulting state back to the database",
		Category: flags.StateCategory,
	}
	DumpFlag = &cli.BoolFlag{
		Name:     "dump",
		Usage:    "Dumps the state after the run",
		Category: flags.StateCategory,
	}
	DBStatsFlag = &cli.BoolFlag{
		Name:     "db.stats",
		Usage:    "Print database statistics after the run",
		Category: flags.StateCategory,
	}

	DebugFlag = &cli.BoolFlag{
		Name:     "debug",
		Usage:    "Output full trace logs",
		Category: flags.TracingCategory,
	}
	JSONFlag = &cli.BoolFlag{
		Name:     "json",
		Usage:    "Output trace logs in machine readable format (json)",
		Category: flags.TracingCategory,
	}
	TraceMemoryFlag = &cli.BoolFlag{
		Name:     "trace.memory",
		Usage:    "Enable full memory dump in traces",
		Category: flags.TracingCategory,
	}
	TraceNoStackFlag = &cli.BoolFlag{
		Name:     "trace.nostack",
		Usage:    "Disable stack output in traces",
		Category: flags.TracingCategory,
	}
	TraceNoStorageFlag = &cli.BoolFlag{
		Name:     "trace.nostorage",
		Usage:    "Disable storage output in traces",
		Category: flags.TracingCategory,
	}
	TraceReturnDataFlag = &cli.BoolFlag{
		Name:     "trace.returndata",
		Usage:    "Enable return data output in traces",
		Category: flags.TracingCategory,
	}
	TraceLimitFlag = &cli.IntFlag{
		Name:     "trace.limit",
		Usage:    "Maximum number of steps kept by the trace, zero means unlimited",
		Category: flags.TracingCategory,
	}
	StatDumpFlag = &cli.BoolFlag{
		Name:     "statdump",
		Usage:    "Displays stack and heap memory information",
		Category: flags.MiscCategory,
	}
)

var vmFlags = []cli.Flag{
	CodeFlag,
	CodeFileFlag,
	AsmFlag,
	InputFlag,
	InputFileFlag,
	GasFlag,
	PriceFlag,
	ValueFlag,
	ForkFlag,
	CreateFlag,
	SenderFlag,
	ReceiverFlag,
	SenderBalanceFlag,
	BlockNumberFlag,
	TimestampFlag,
	IntrinsicFlag,
	ExtraEipsFlag,
	TimeoutFlag,
}

var stateFlags = []cli.Flag{
	DBFlag,
	DataDirFlag,
	CommitFlag,
	DumpFlag,
	DBStatsFlag,
}

var traceFlags = []cli.Flag{
	DebugFlag,
	JSONFlag,
	TraceMemoryFlag,
	TraceNoStackFlag,
	TraceNoStorageFlag,
	TraceReturnDataFlag,
	TraceLimitFlag,
}

func newApp() *cli.App {
	app := flags.NewApp("the evm command line interface")
	app.Flags = append(debug.Flags, configFileFlag)
	app.Commands = []*cli.Command{
		runCommand,
		disasmCommand,
		compileCommand,
		dumpConfigCommand,
		eipsCommand,
	}
	app.Before = func(ctx *cli.Context) error {
		return debug.Setup(ctx)
	}
	app.After = func(ctx *cli.Context) error {
		debug.Exit()
		return nil
	}
	return app
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
