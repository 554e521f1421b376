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

// Package runtime runs bytecode outside of a chain: it builds the block and
// transaction context from a Config, executes one message through the
// execution stages and reports a Result.
package runtime

import (
	"errors"
	"math"
	"math/big"
	"time"

	"github.com/sunyihoo/go-evm/common"
	"github.com/sunyihoo/go-evm/core"
	"github.com/sunyihoo/go-evm/core/state"
	"github.com/sunyihoo/go-evm/core/types"
	"github.com/sunyihoo/go-evm/core/vm"
	"github.com/sunyihoo/go-evm/crypto"
	"github.com/sunyihoo/go-evm/ethdb/memorydb"
	"github.com/sunyihoo/go-evm/params"
	"github.com/sunyihoo/go-evm/params/forks"
)

// Config is a basic type specifying certain configuration flags for running
// the EVM.
type Config struct {
	ChainConfig *params.ChainConfig
	Difficulty  *big.Int
	Origin      common.Address
	Coinbase    common.Address
	BlockNumber *big.Int
	Time        uint64
	GasLimit    uint64
	GasPrice    *big.Int
	Value       *big.Int
	EVMConfig   vm.Config
	BaseFee     *big.Int
	BlobBaseFee *big.Int
	BlobHashes  []common.Hash
	BlobFeeCap  *big.Int
	Random      *common.Hash
	AccessList  types.AccessList

	// IntrinsicGas charges the transaction base cost before the interpreter
	// runs, as a real transaction would.
	IntrinsicGas bool

	// GasPool, when set, is the block budget shared by several executions.
	// The gas limit is reserved from it before the run and the unused gas is
	// handed back afterwards.
	GasPool *core.GasPool

	// Timeout cancels the execution once elapsed. Zero means no limit.
	Timeout time.Duration

	// Precompiles replaces the fork's precompile set when non-nil.
	Precompiles vm.PrecompiledContracts

	State     *state.StateDB
	GetHashFn vm.GetHashFunc
}

// ErrExecutionAborted is returned when the execution outlived Config.Timeout.
var ErrExecutionAborted = errors.New("execution aborted")

// Result is the outcome of one top-level execution.
type Result struct {
	Halt            vm.HaltReason
	GasUsed         uint64 // after the refund
	GasLeft         uint64
	Refund          uint64 // refund applied, already capped
	ReturnData      []byte
	ContractAddress common.Address // set by Create
	Err             error          // the VM error behind Halt, nil on success
}

// Failed reports whether the execution did not halt successfully.
func (r *Result) Failed() bool { return r.Halt != vm.HaltSuccess }

// sets defaults on the config
func setDefaults(cfg *Config) {
	if cfg.ChainConfig == nil {
		cfg.ChainConfig = params.ConfigForFork(forks.Cancun)
	}
	if cfg.Difficulty == nil {
		cfg.Difficulty = new(big.Int)
	}
	if cfg.GasLimit == 0 {
		cfg.GasLimit = math.MaxUint64
	}
	if cfg.GasPrice == nil {
		cfg.GasPrice = new(big.Int)
	}
	if cfg.Value == nil {
		cfg.Value = new(big.Int)
	}
	if cfg.BlockNumber == nil {
		cfg.BlockNumber = new(big.Int)
	}
	if cfg.GetHashFn == nil {
		cfg.GetHashFn = func(n uint64) (common.Hash, error) {
			return common.BytesToHash(crypto.Keccak256([]byte(new(big.Int).SetUint64(n).String()))), nil
		}
	}
	if cfg.BaseFee == nil {
		cfg.BaseFee = big.NewInt(params.InitialBaseFee)
	}
	if cfg.BlobBaseFee == nil {
		cfg.BlobBaseFee = big.NewInt(params.BlobTxMinBlobGasprice)
	}
	// 合并之后 PREVRANDAO 必须存在
	if cfg.Random == nil && cfg.ChainConfig.IsMerge(cfg.BlockNumber) {
		cfg.Random = new(common.Hash)
	}
}

// NewState returns an empty state backed by an in-memory database.
func NewState() *state.StateDB {
	db, err := state.NewDatabase(memorydb.New())
	if err != nil {
		// The in-memory store cannot fail to open.
		panic(err)
	}
	return state.New(db)
}

func prepare(cfg *Config) *Config {
	if cfg == nil {
		cfg = new(Config)
	}
	setDefaults(cfg)
	if cfg.State == nil {
		cfg.State = NewState()
	}
	return cfg
}

// Execute executes the code using the input as call data during the execution.
// It returns the execution result and the state the code ran against.
//
// Execute sets up an in-memory, temporary, environment for the execution of
// the given code. The returned error is non-nil only when the message could
// not be executed at all: the caller cannot pay, or the state backend failed.
// VM level failures are reported through Result.
func Execute(code, input []byte, cfg *Config) (*Result, *state.StateDB, error) {
	cfg = prepare(cfg)
	address := common.BytesToAddress([]byte("contract"))
	cfg.State.CreateAccount(address)
	// set the receiver's (the executing contract) code for execution.
	cfg.State.SetCode(address, code)

	res, err := run(cfg, &address, input)
	return res, cfg.State, err
}

// Create executes the code using the EVM create method
func Create(input []byte, cfg *Config) (*Result, error) {
	cfg = prepare(cfg)
	return run(cfg, nil, input)
}

// Call executes the code given by the contract's address. It will return the
// EVM's return value or an error if it failed.
//
// Call, unlike Execute, requires a config and also requires the State field to
// be set.
func Call(address common.Address, input []byte, cfg *Config) (*Result, error) {
	if cfg == nil || cfg.State == nil {
		return nil, errors.New("runtime: call requires a state")
	}
	setDefaults(cfg)
	return run(cfg, &address, input)
}

func run(cfg *Config, to *common.Address, input []byte) (*Result, error) {
	ex := &execution{cfg: cfg, msg: newMessage(cfg, to, input)}
	if err := runStages(Stages, ex); err != nil {
		return nil, err
	}
	return ex.result(), nil
}
