// Copyright 2025 The go-ethereum Authors
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

package runtime

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/holiman/uint256"
	"github.com/sunyihoo/go-evm/common"
	"github.com/sunyihoo/go-evm/core"
	"github.com/sunyihoo/go-evm/core/vm"
	"github.com/sunyihoo/go-evm/log"
	"github.com/sunyihoo/go-evm/params"
)

// Stage is one named step of a top-level execution. Stages run in order and
// the first error aborts the remaining ones.
type Stage struct {
	Name string
	Run  func(*execution) error
}

// execution is the state threaded through the stages of one message.
// 各阶段之间通过 execution 传递数据，分叉规则也在这里随调用链传递。
type execution struct {
	cfg   *Config
	msg   *core.Message
	evm   *vm.EVM
	rules params.Rules

	precompiles []common.Address
	gas         uint64 // gas handed to the interpreter
	gasLeft     uint64
	refund      uint64

	ret     []byte
	created common.Address
	vmErr   error
}

// Stages lists the steps every message goes through.
var Stages = []Stage{
	{Name: "load-precompiles", Run: loadPrecompiles},
	{Name: "load-accounts", Run: loadAccounts},
	{Name: "deduct-caller", Run: deductCaller},
	{Name: "run-interpreter", Run: runInterpreter},
	{Name: "finalize", Run: finalize},
}

func runStages(stages []Stage, ex *execution) error {
	for _, stage := range stages {
		log.Trace("Running execution stage", "stage", stage.Name)
		if err := stage.Run(ex); err != nil {
			log.Debug("Execution stage failed", "stage", stage.Name, "err", err)
			return fmt.Errorf("%s: %w", stage.Name, err)
		}
	}
	return nil
}

// loadPrecompiles resolves the fork rules and the precompile set.
func loadPrecompiles(ex *execution) error {
	ex.evm = NewEnv(ex.cfg)
	ex.rules = ex.evm.Rules()
	ex.precompiles = vm.ActivePrecompiles(ex.rules)
	if ex.cfg.Precompiles != nil {
		ex.evm.SetPrecompiles(ex.cfg.Precompiles)
		ex.precompiles = ex.precompiles[:0:0]
		for addr := range ex.cfg.Precompiles {
			ex.precompiles = append(ex.precompiles, addr)
		}
	}
	return nil
}

// loadAccounts warms the access list and reads the caller and the target
// so backend failures surface before any gas is bought.
func loadAccounts(ex *execution) error {
	db := ex.cfg.State
	db.Prepare(ex.rules, ex.msg.From, ex.cfg.Coinbase, ex.msg.To, ex.precompiles, ex.msg.AccessList)
	db.GetBalance(ex.msg.From)
	if ex.msg.To != nil {
		db.GetCodeHash(*ex.msg.To)
	}
	if err := db.Error(); err != nil {
		return &vm.BackendError{Err: err}
	}
	return nil
}

// deductCaller applies the intrinsic charge when requested, reserves the gas
// limit from the shared pool, buys the gas and bumps the caller nonce for
// calls. The balance is debited last so a rejected message leaves it alone.
// Creations bump the nonce inside the EVM.
func deductCaller(ex *execution) error {
	db := ex.cfg.State
	ex.gas = ex.msg.GasLimit
	if ex.cfg.IntrinsicGas {
		intrinsic, err := core.IntrinsicGas(ex.msg.Data, ex.msg.AccessList, ex.msg.IsCreate(), ex.rules.IsHomestead, ex.rules.IsIstanbul, ex.rules.IsShanghai)
		if err != nil {
			return err
		}
		if ex.gas < intrinsic {
			return fmt.Errorf("%w: have %d, want %d", core.ErrIntrinsicGas, ex.gas, intrinsic)
		}
		ex.gas -= intrinsic
	}
	var nonce uint64
	if !ex.msg.IsCreate() {
		nonce = db.GetNonce(ex.msg.From)
		if nonce+1 < nonce {
			return core.ErrNonceMax
		}
	}
	gp := ex.cfg.GasPool
	if gp != nil {
		if err := gp.SubGas(ex.msg.GasLimit); err != nil {
			return err
		}
	}
	if ex.msg.GasPrice != nil && ex.msg.GasPrice.Sign() > 0 {
		if err := core.BuyGas(db, ex.msg, ex.cfg.EVMConfig.Tracer); err != nil {
			if gp != nil {
				gp.ReturnGas(ex.msg.GasLimit)
			}
			return err
		}
	}
	if !ex.msg.IsCreate() {
		db.SetNonce(ex.msg.From, nonce+1)
	}
	return nil
}

func runInterpreter(ex *execution) error {
	value, overflow := uint256.FromBig(ex.msg.Value)
	if overflow {
		return errors.New("value exceeds 256 bits")
	}
	tracer := ex.cfg.EVMConfig.Tracer
	if tracer != nil && tracer.OnTxStart != nil {
		tracer.OnTxStart(ex.evm.GetVMContext(), ex.msg.From, ex.msg.To, ex.msg.GasLimit)
	}
	if timeout := ex.cfg.Timeout; timeout > 0 {
		timer := time.AfterFunc(timeout, ex.evm.Cancel)
		defer timer.Stop()
	}
	if ex.msg.IsCreate() {
		ex.ret, ex.created, ex.gasLeft, ex.vmErr = ex.evm.Create(ex.msg.From, ex.msg.Data, ex.gas, value)
	} else {
		ex.ret, ex.gasLeft, ex.vmErr = ex.evm.Call(ex.msg.From, *ex.msg.To, ex.msg.Data, ex.gas, value)
	}
	if ex.evm.Cancelled() || errors.Is(ex.vmErr, vm.ErrExecutionCancelled) {
		return fmt.Errorf("%w (timeout = %v)", ErrExecutionAborted, ex.cfg.Timeout)
	}
	if vm.IsBackendError(ex.vmErr) {
		return ex.vmErr
	}
	return nil
}

// finalize applies the capped refund, returns unused gas to the caller and
// finalises the state.
func finalize(ex *execution) error {
	db := ex.cfg.State
	gasUsed := ex.msg.GasLimit - ex.gasLeft
	refund := core.CappedRefund(db.GetRefund(), gasUsed, ex.rules)
	ex.gasLeft += refund
	ex.refund = refund
	core.ReturnGas(db, ex.msg, ex.gasLeft, ex.cfg.EVMConfig.Tracer)
	if gp := ex.cfg.GasPool; gp != nil {
		if err := gp.ReturnGas(ex.gasLeft); err != nil {
			return err
		}
	}

	tracer := ex.cfg.EVMConfig.Tracer
	if tracer != nil && tracer.OnTxEnd != nil {
		tracer.OnTxEnd(ex.msg.GasLimit-ex.gasLeft, ex.vmErr)
	}
	db.Finalise(ex.rules.IsEIP158)
	if err := db.Error(); err != nil {
		return &vm.BackendError{Err: err}
	}
	return nil
}

// result assembles the outcome of a completed execution.
func (ex *execution) result() *Result {
	gasUsed := ex.msg.GasLimit - ex.gasLeft
	return &Result{
		Halt:            vm.HaltReasonOf(ex.vmErr),
		GasUsed:         gasUsed,
		GasLeft:         ex.gasLeft,
		Refund:          ex.refund,
		ReturnData:      ex.ret,
		ContractAddress: ex.created,
		Err:             ex.vmErr,
	}
}

func newMessage(cfg *Config, to *common.Address, input []byte) *core.Message {
	return &core.Message{
		To:            to,
		From:          cfg.Origin,
		Nonce:         cfg.State.GetNonce(cfg.Origin),
		Value:         new(big.Int).Set(cfg.Value),
		GasLimit:      cfg.GasLimit,
		GasPrice:      cfg.GasPrice,
		Data:          input,
		AccessList:    cfg.AccessList,
		BlobHashes:    cfg.BlobHashes,
		BlobGasFeeCap: cfg.BlobFeeCap,
	}
}
