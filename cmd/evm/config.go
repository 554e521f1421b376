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
	"bufio"
	"errors"
	"fmt"
	"math/big"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"
	"github.com/sunyihoo/go-evm/common"
	"github.com/sunyihoo/go-evm/core/vm"
	"github.com/sunyihoo/go-evm/eth/tracers/logger"
	"github.com/sunyihoo/go-evm/internal/flags"
	"github.com/sunyihoo/go-evm/log"
	"github.com/sunyihoo/go-evm/params/forks"
	"github.com/urfave/cli/v2"
)

var (
	configFileFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "TOML configuration file",
		Category: flags.MiscCategory,
	}

	dumpConfigCommand = &cli.Command{
		Action:      dumpConfig,
		Name:        "dumpconfig",
		Usage:       "Export configuration values in a TOML format",
		ArgsUsage:   "<dumpfile>",
		Flags:       append(append(append([]cli.Flag{}, vmFlags...), stateFlags...), traceFlags...),
		Description: `Export configuration values in TOML format (to stdout by default).`,
	}
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		id := fmt.Sprintf("%s.%s", rt.String(), field)
		if deprecatedConfigFields[id] {
			log.Warn(fmt.Sprintf("Config field '%s' is deprecated and won't have any effect.", id))
			return nil
		}
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

// 合并之后 DIFFICULTY 被 PREVRANDAO 取代，旧配置里的字段直接忽略。
var deprecatedConfigFields = map[string]bool{
	"main.envConfig.Difficulty": true,
}

// envConfig is the message and block environment the code runs in.
type envConfig struct {
	Fork          string
	Sender        common.Address
	Receiver      common.Address
	Coinbase      common.Address
	SenderBalance *big.Int `toml:",omitempty"`
	GasLimit      uint64
	GasPrice      *big.Int
	Value         *big.Int
	BaseFee       *big.Int `toml:",omitempty"`
	BlockNumber   uint64
	Timestamp     uint64
	Intrinsic     bool
	ExtraEips     []int `toml:",omitempty"`
}

// stateConfig selects the key-value store behind the state.
type stateConfig struct {
	DB      string // memory, leveldb or pebble
	DataDir string `toml:",omitempty"`
	Cache   int    // megabytes of read cache for persistent stores
	Handles int    // open file handles for persistent stores
	Commit  bool
}

type evmConfig struct {
	Env   envConfig
	State stateConfig
	Trace logger.Config
}

func defaultConfig() evmConfig {
	return evmConfig{
		Env: envConfig{
			Fork:     forks.Cancun.String(),
			Sender:   common.BytesToAddress([]byte("sender")),
			Receiver: common.BytesToAddress([]byte("receiver")),
			GasLimit: GasFlag.Value,
			GasPrice: new(big.Int),
			Value:    new(big.Int),
		},
		State: stateConfig{
			DB:      "memory",
			Cache:   16,
			Handles: 16,
		},
	}
}

func loadConfig(file string, cfg *evmConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// loadBaseConfig assembles the configuration: defaults first, then the
// config file, then any flag explicitly given on the command line.
func loadBaseConfig(ctx *cli.Context) (evmConfig, error) {
	cfg := defaultConfig()
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			return cfg, err
		}
	}
	if err := applyFlags(ctx, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}

func applyFlags(ctx *cli.Context, cfg *evmConfig) error {
	env := &cfg.Env
	if ctx.IsSet(ForkFlag.Name) {
		env.Fork = ctx.String(ForkFlag.Name)
	}
	for _, f := range []struct {
		flag *cli.StringFlag
		dst  *common.Address
	}{{SenderFlag, &env.Sender}, {ReceiverFlag, &env.Receiver}} {
		if !ctx.IsSet(f.flag.Name) {
			continue
		}
		s := ctx.String(f.flag.Name)
		if !common.IsHexAddress(s) {
			return fmt.Errorf("invalid address for --%s: %q", f.flag.Name, s)
		}
		*f.dst = common.HexToAddress(s)
	}
	if ctx.IsSet(GasFlag.Name) {
		env.GasLimit = ctx.Uint64(GasFlag.Name)
	}
	if ctx.IsSet(PriceFlag.Name) {
		env.GasPrice = flags.GlobalBig(ctx, PriceFlag.Name)
	}
	if ctx.IsSet(ValueFlag.Name) {
		env.Value = flags.GlobalBig(ctx, ValueFlag.Name)
	}
	if ctx.IsSet(SenderBalanceFlag.Name) {
		env.SenderBalance = flags.GlobalBig(ctx, SenderBalanceFlag.Name)
	}
	if ctx.IsSet(BlockNumberFlag.Name) {
		env.BlockNumber = ctx.Uint64(BlockNumberFlag.Name)
	}
	if ctx.IsSet(TimestampFlag.Name) {
		env.Timestamp = ctx.Uint64(TimestampFlag.Name)
	}
	if ctx.IsSet(IntrinsicFlag.Name) {
		env.Intrinsic = ctx.Bool(IntrinsicFlag.Name)
	}
	if ctx.IsSet(ExtraEipsFlag.Name) {
		env.ExtraEips = ctx.IntSlice(ExtraEipsFlag.Name)
	}

	if ctx.IsSet(DBFlag.Name) {
		cfg.State.DB = ctx.String(DBFlag.Name)
	}
	if ctx.IsSet(DataDirFlag.Name) {
		cfg.State.DataDir = DataDirFlag.Value.String()
	}
	if ctx.IsSet(CommitFlag.Name) {
		cfg.State.Commit = ctx.Bool(CommitFlag.Name)
	}

	trace := &cfg.Trace
	if ctx.IsSet(TraceMemoryFlag.Name) {
		trace.EnableMemory = ctx.Bool(TraceMemoryFlag.Name)
	}
	if ctx.IsSet(TraceNoStackFlag.Name) {
		trace.DisableStack = ctx.Bool(TraceNoStackFlag.Name)
	}
	if ctx.IsSet(TraceNoStorageFlag.Name) {
		trace.DisableStorage = ctx.Bool(TraceNoStorageFlag.Name)
	}
	if ctx.IsSet(TraceReturnDataFlag.Name) {
		trace.EnableReturnData = ctx.Bool(TraceReturnDataFlag.Name)
	}
	if ctx.IsSet(TraceLimitFlag.Name) {
		trace.Limit = ctx.Int(TraceLimitFlag.Name)
	}
	return nil
}

func (cfg *evmConfig) validate() error {
	if _, err := forks.Parse(cfg.Env.Fork); err != nil {
		return err
	}
	for _, num := range cfg.Env.ExtraEips {
		if !vm.ValidEip(num) {
			return fmt.Errorf("eip %d cannot be activated, see 'evm eips'", num)
		}
	}
	switch cfg.State.DB {
	case "memory":
	case "leveldb", "pebble":
		if cfg.State.DataDir == "" {
			return fmt.Errorf("--%s is required for the %s database", DataDirFlag.Name, cfg.State.DB)
		}
	default:
		return fmt.Errorf("unknown database type %q", cfg.State.DB)
	}
	if cfg.State.Commit && cfg.State.DB == "memory" {
		log.Warn("Committing to an in-memory database, state is discarded on exit")
	}
	return nil
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg, err := loadBaseConfig(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}

	dump := ctx.App.Writer
	if ctx.NArg() > 0 {
		f, err := os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		dump = f
	}
	dump.Write(out)
	return nil
}
