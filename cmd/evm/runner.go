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

package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	goruntime "runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/holiman/uint256"
	"github.com/sunyihoo/go-evm/common"
	"github.com/sunyihoo/go-evm/common/hexutil"
	"github.com/sunyihoo/go-evm/core/asm"
	"github.com/sunyihoo/go-evm/core/state"
	"github.com/sunyihoo/go-evm/core/tracing"
	"github.com/sunyihoo/go-evm/core/vm"
	"github.com/sunyihoo/go-evm/core/vm/runtime"
	"github.com/sunyihoo/go-evm/eth/tracers/logger"
	"github.com/sunyihoo/go-evm/internal/flags"
	"github.com/sunyihoo/go-evm/log"
	"github.com/sunyihoo/go-evm/params"
	"github.com/sunyihoo/go-evm/params/forks"
	"github.com/urfave/cli/v2"
)

var runCommand = &cli.Command{
	Action:      runCmd,
	Name:        "run",
	Usage:       "Run arbitrary evm binary",
	ArgsUsage:   "<code>",
	Description: `The run command runs arbitrary EVM code.`,
	Flags:       slices.Concat(vmFlags, stateFlags, traceFlags, []cli.Flag{StatDumpFlag}),
}

var errNoCode = errors.New("no code given, use --code, --codefile or pass it as argument")

// readCode returns the code to execute from --code, --codefile or the first
// argument, compiling it first when --asm is set.
func readCode(ctx *cli.Context) ([]byte, error) {
	if err := flags.CheckExclusive(ctx, CodeFlag, CodeFileFlag); err != nil {
		return nil, err
	}
	var src []byte
	switch {
	case ctx.IsSet(CodeFlag.Name):
		src = []byte(ctx.String(CodeFlag.Name))
	case ctx.IsSet(CodeFileFlag.Name):
		var err error
		if src, err = readFileOrStdin(ctx, ctx.String(CodeFileFlag.Name)); err != nil {
			return nil, fmt.Errorf("could not load code from file: %v", err)
		}
	case ctx.NArg() > 0:
		src = []byte(ctx.Args().First())
	default:
		return nil, errNoCode
	}
	if ctx.Bool(AsmFlag.Name) {
		return asm.Compile(string(src))
	}
	return decodeHex(src)
}

func readInput(ctx *cli.Context) ([]byte, error) {
	if err := flags.CheckExclusive(ctx, InputFlag, InputFileFlag); err != nil {
		return nil, err
	}
	switch {
	case ctx.IsSet(InputFlag.Name):
		return decodeHex([]byte(ctx.String(InputFlag.Name)))
	case ctx.IsSet(InputFileFlag.Name):
		src, err := readFileOrStdin(ctx, ctx.String(InputFileFlag.Name))
		if err != nil {
			return nil, fmt.Errorf("could not load input from file: %v", err)
		}
		return decodeHex(src)
	}
	return nil, nil
}

func readFileOrStdin(ctx *cli.Context, fn string) ([]byte, error) {
	if fn == "-" {
		return io.ReadAll(ctx.App.Reader)
	}
	return os.ReadFile(fn)
}

// decodeHex decodes hex text with an optional 0x prefix. Whitespace,
// including newlines in code files, is ignored.
func decodeHex(src []byte) ([]byte, error) {
	s := strings.Join(strings.Fields(string(src)), "")
	if len(s) >= 2 && (s[:2] == "0x" || s[:2] == "0X") {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %v", err)
	}
	return b, nil
}

type execStats struct {
	Time           time.Duration `json:"time"`           // The execution Time.
	Allocs         int64         `json:"allocs"`         // The number of heap allocations during execution.
	BytesAllocated int64         `json:"bytesAllocated"` // The cumulative number of bytes allocated during execution.
	GasUsed        uint64        `json:"gasUsed"`        // the amount of gas used during execution
}

func timedExec(execFunc func() (*runtime.Result, error)) (*runtime.Result, execStats, error) {
	var (
		stats         execStats
		before, after goruntime.MemStats
	)
	goruntime.ReadMemStats(&before)
	start := time.Now()
	res, err := execFunc()
	stats.Time = time.Since(start)
	goruntime.ReadMemStats(&after)

	stats.Allocs = int64(after.Mallocs - before.Mallocs)
	stats.BytesAllocated = int64(after.TotalAlloc - before.TotalAlloc)
	if res != nil {
		stats.GasUsed = res.GasUsed
	}
	return res, stats, err
}

func runCmd(ctx *cli.Context) error {
	cfg, err := loadBaseConfig(ctx)
	if err != nil {
		return err
	}
	if err := flags.CheckExclusive(ctx, JSONFlag, DebugFlag); err != nil {
		return err
	}
	fork, _ := forks.Parse(cfg.Env.Fork)

	persistent := cfg.State.DB != "memory"
	code, err := readCode(ctx)
	if err != nil && !(errors.Is(err, errNoCode) && persistent && !ctx.Bool(CreateFlag.Name)) {
		return err
	}
	input, err := readInput(ctx)
	if err != nil {
		return err
	}

	db, err := openDatabase(cfg.State)
	if err != nil {
		return err
	}
	defer db.Close()
	backend, err := state.NewDatabase(db)
	if err != nil {
		return err
	}
	statedb := state.New(backend)

	var (
		tracer      *tracing.Hooks
		debugLogger *logger.StructLogger
		errW        = ctx.App.ErrWriter
	)
	switch {
	case ctx.Bool(JSONFlag.Name):
		tracer = logger.NewJSONLogger(&cfg.Trace, errW)
	case ctx.Bool(DebugFlag.Name):
		debugLogger = logger.NewStructLogger(&cfg.Trace)
		tracer = debugLogger.Hooks()
	}

	if cfg.Env.SenderBalance != nil {
		balance, overflow := uint256.FromBig(cfg.Env.SenderBalance)
		if overflow || cfg.Env.SenderBalance.Sign() < 0 {
			return fmt.Errorf("invalid sender balance %v", cfg.Env.SenderBalance)
		}
		statedb.SetBalance(cfg.Env.Sender, balance, tracing.BalanceChangeUnspecified)
	}
	rcfg := &runtime.Config{
		ChainConfig:  params.ConfigForFork(fork),
		Origin:       cfg.Env.Sender,
		Coinbase:     cfg.Env.Coinbase,
		BlockNumber:  new(big.Int).SetUint64(cfg.Env.BlockNumber),
		Time:         cfg.Env.Timestamp,
		GasLimit:     cfg.Env.GasLimit,
		GasPrice:     cfg.Env.GasPrice,
		Value:        cfg.Env.Value,
		BaseFee:      cfg.Env.BaseFee,
		IntrinsicGas: cfg.Env.Intrinsic,
		Timeout:      ctx.Duration(TimeoutFlag.Name),
		EVMConfig: vm.Config{
			Tracer:    tracer,
			ExtraEips: cfg.Env.ExtraEips,
		},
		State: statedb,
	}
	if persistent {
		rcfg.GetHashFn = backend.BlockHash
	}

	var execFunc func() (*runtime.Result, error)
	if ctx.Bool(CreateFlag.Name) {
		initcode := append(code, input...)
		execFunc = func() (*runtime.Result, error) {
			return runtime.Create(initcode, rcfg)
		}
	} else {
		receiver := cfg.Env.Receiver
		if code != nil {
			statedb.SetCode(receiver, code)
		}
		execFunc = func() (*runtime.Result, error) {
			return runtime.Call(receiver, input, rcfg)
		}
	}
	log.Debug("Executing code", "fork", fork, "size", len(code), "input", len(input), "gas", cfg.Env.GasLimit)

	res, stats, err := timedExec(execFunc)
	if err != nil {
		return err
	}
	w := ctx.App.Writer

	if cfg.State.Commit {
		update, err := statedb.Commit(true)
		if err != nil {
			return err
		}
		log.Info("Committed state", "accounts", len(update.Accounts), "destructs", len(update.Destructs), "codes", len(update.Codes))
	}
	if ctx.Bool(DumpFlag.Name) {
		fmt.Fprintln(w, string(statedb.Dump(nil)))
	}
	if debugLogger != nil {
		fmt.Fprintln(errW, "#### TRACE ####")
		logger.WriteTrace(errW, debugLogger.StructLogs())
		fmt.Fprintln(errW, "#### LOGS ####")
		logger.WriteLogs(errW, statedb.Logs())
	}
	if ctx.Bool(StatDumpFlag.Name) {
		fmt.Fprintf(errW, `EVM gas used:    %d
execution time:  %v
allocations:     %d
allocated bytes: %d
`, stats.GasUsed, stats.Time, stats.Allocs, stats.BytesAllocated)
	}
	if ctx.Bool(DBStatsFlag.Name) {
		showDBStats(errW, db)
	}
	if tracer == nil || debugLogger != nil {
		fmt.Fprintln(w, hexutil.Encode(res.ReturnData))
		if ctx.Bool(CreateFlag.Name) && !res.Failed() {
			fmt.Fprintf(w, "contract: %v\n", res.ContractAddress)
		}
		if res.Err != nil {
			fmt.Fprintf(w, " error: %v\n", res.Err)
		}
	}
	return nil
}

var disasmCommand = &cli.Command{
	Action:    disasmCmd,
	Name:      "disasm",
	Usage:     "Disassembles evm binary",
	ArgsUsage: "<file>",
	Flags:     []cli.Flag{CodeFlag, CodeFileFlag},
}

func disasmCmd(ctx *cli.Context) error {
	var src []byte
	switch {
	case ctx.NArg() == 1:
		var err error
		if src, err = readFileOrStdin(ctx, ctx.Args().First()); err != nil {
			return err
		}
	case ctx.IsSet(CodeFlag.Name):
		src = []byte(ctx.String(CodeFlag.Name))
	case ctx.IsSet(CodeFileFlag.Name):
		var err error
		if src, err = readFileOrStdin(ctx, ctx.String(CodeFileFlag.Name)); err != nil {
			return err
		}
	default:
		return errors.New("missing filename or --code")
	}
	code, err := decodeHex(src)
	if err != nil {
		return err
	}
	return asm.Fprint(ctx.App.Writer, code)
}

var eipsCommand = &cli.Command{
	Action: eipsCmd,
	Name:   "eips",
	Usage:  "Lists the EIPs accepted by --eips",
}

func eipsCmd(ctx *cli.Context) error {
	for _, num := range vm.ActivateableEips() {
		n, _ := strconv.Atoi(num)
		fmt.Fprintf(ctx.App.Writer, "EIP-%-5s %s\n", num, vm.EipTitle(n))
	}
	return nil
}

var compileCommand = &cli.Command{
	Action:    compileCmd,
	Name:      "compile",
	Usage:     "Compiles easm source to evm binary",
	ArgsUsage: "<file>",
}

func compileCmd(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return errors.New("filename required")
	}
	src, err := readFileOrStdin(ctx, ctx.Args().First())
	if err != nil {
		return err
	}
	bin, err := asm.Compile(string(src))
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, common.Bytes2Hex(bin))
	return nil
}
