// Copyright 2014 The go-ethereum Authors
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

package vm

import (
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/holiman/uint256"
	"github.com/sunyihoo/go-evm/common"
	"github.com/sunyihoo/go-evm/core/tracing"
	"github.com/sunyihoo/go-evm/core/types"
	"github.com/sunyihoo/go-evm/crypto"
	"github.com/sunyihoo/go-evm/params"
)

type (
	// CanTransferFunc reports whether the account can afford to send amount.
	CanTransferFunc func(StateDB, common.Address, *uint256.Int) bool
	// TransferFunc moves amount between two accounts.
	TransferFunc func(StateDB, common.Address, common.Address, *uint256.Int)
	// GetHashFunc returns the hash of block n for BLOCKHASH. A failing lookup
	// aborts the execution with a BackendError.
	GetHashFunc func(uint64) (common.Hash, error)
)

// BlockContext is the block an execution runs in. It does not change during
// the block.
type BlockContext struct {
	CanTransfer CanTransferFunc
	Transfer    TransferFunc
	GetHash     GetHashFunc

	Coinbase    common.Address // COINBASE
	GasLimit    uint64         // GASLIMIT
	BlockNumber *big.Int       // NUMBER
	Time        uint64         // TIMESTAMP
	Difficulty  *big.Int       // DIFFICULTY before the merge
	BaseFee     *big.Int       // BASEFEE
	BlobBaseFee *big.Int       // BLOBBASEFEE
	Random      *common.Hash   // PREVRANDAO, non-nil after the merge
}

// TxContext is the transaction an execution runs for.
type TxContext struct {
	Origin     common.Address // ORIGIN
	GasPrice   *big.Int       // GASPRICE
	BlobHashes []common.Hash  // BLOBHASH
	BlobFeeCap *big.Int
}

// EVM executes messages against a StateDB within one block context. A step
// error inside a frame reverts that frame and burns its gas; only a
// BackendError escapes to the top level.
//
// The EVM is not safe for concurrent use, except for Cancel.
type EVM struct {
	Context BlockContext
	TxContext

	StateDB StateDB
	Config  Config

	depth      int
	chainRules params.Rules

	interpreter *EVMInterpreter
	precompiles PrecompiledContracts
	jumpDests   *jumpDestCache // shared by every frame of this EVM

	// abort is polled on jumps, the only way code can loop.
	abort atomic.Bool

	// callGasTemp carries the gas the CALL family forwards from the gas
	// function, which applies the 63/64 rule, to the instruction.
	callGasTemp uint64
}

// NewEVM returns an EVM for the given block. The transaction context is set
// separately with SetTxContext.
func NewEVM(blockCtx BlockContext, statedb StateDB, chainConfig *params.ChainConfig, config Config) *EVM {
	if blockCtx.BlockNumber == nil {
		blockCtx.BlockNumber = new(big.Int)
	}
	evm := &EVM{
		Context:    blockCtx,
		StateDB:    statedb,
		Config:     config,
		chainRules: chainConfig.Rules(blockCtx.BlockNumber, blockCtx.Random != nil, blockCtx.Time),
		jumpDests:  newJumpDestCache(config.JumpDestCacheSize),
	}
	evm.precompiles = ActivePrecompiledContracts(evm.chainRules)
	evm.interpreter = NewEVMInterpreter(evm)
	return evm
}

// SetPrecompiles replaces the precompile set of the fork.
func (evm *EVM) SetPrecompiles(precompiles PrecompiledContracts) {
	evm.precompiles = precompiles
}

func (evm *EVM) SetTxContext(txCtx TxContext) {
	evm.TxContext = txCtx
}

// Cancel stops the running execution at the next jump. It may be called
// from any goroutine, any number of times.
func (evm *EVM) Cancel() {
	evm.abort.Store(true)
}

// Cancelled reports whether Cancel has been called.
func (evm *EVM) Cancelled() bool {
	return evm.abort.Load()
}

// Rules returns the fork rules the EVM was created with.
func (evm *EVM) Rules() params.Rules {
	return evm.chainRules
}

// Depth returns the current call depth.
func (evm *EVM) Depth() int {
	return evm.depth
}

func (evm *EVM) tooDeep() bool {
	return evm.depth > int(params.CallCreateDepth)
}

// traceFrame reports the start of a frame and returns the matching end hook.
// It is deferred with pointers to the frame results:
//
//	defer evm.traceFrame(CALL, caller, addr, input, gas, value)(&ret, &leftOverGas, &err)
func (evm *EVM) traceFrame(typ OpCode, from, to common.Address, input []byte, gas uint64, value *uint256.Int) func(*[]byte, *uint64, *error) {
	depth := evm.depth
	evm.captureBegin(depth, typ, from, to, input, gas, value)
	return func(ret *[]byte, leftOverGas *uint64, err *error) {
		evm.captureEnd(depth, gas, *leftOverGas, *ret, *err)
	}
}

// runFrame executes the code stored at codeAddr in a fresh frame.
func (evm *EVM) runFrame(caller, address common.Address, value *uint256.Int, gas uint64, codeAddr common.Address, input []byte, readOnly bool) ([]byte, uint64, error) {
	contract := NewContract(caller, address, value, gas, evm.jumpDests)
	contract.SetCallCode(evm.StateDB.GetCodeHash(codeAddr), evm.StateDB.GetCode(codeAddr))
	ret, err := evm.interpreter.Run(contract, input, readOnly)
	return ret, contract.Gas, err
}

// execute runs the precompile or the code at codeAddr.
func (evm *EVM) execute(caller, address common.Address, value *uint256.Int, gas uint64, codeAddr common.Address, input []byte, readOnly bool) ([]byte, uint64, error) {
	if p, ok := evm.precompiles[codeAddr]; ok {
		return RunPrecompiledContract(p, input, gas, evm.Config.Tracer)
	}
	return evm.runFrame(caller, address, value, gas, codeAddr, input, readOnly)
}

// settle reverts the frame's state changes on failure. Everything but a
// REVERT consumes the remaining gas.
// 除 REVERT 外的错误都会耗尽剩余 gas。
func (evm *EVM) settle(snapshot int, gas uint64, err error) uint64 {
	if err == nil {
		return gas
	}
	evm.StateDB.RevertToSnapshot(snapshot)
	if err == ErrExecutionReverted {
		return gas
	}
	if gas > 0 && evm.Config.Tracer != nil && evm.Config.Tracer.OnGasChange != nil {
		evm.Config.Tracer.OnGasChange(gas, 0, tracing.GasChangeCallFailedExecution)
	}
	return 0
}

// Call runs the code at addr with input, transferring value from caller
// first. Calling an account that does not exist creates it, unless after
// EIP-158 nothing is transferred, in which case the call does nothing.
func (evm *EVM) Call(caller common.Address, addr common.Address, input []byte, gas uint64, value *uint256.Int) (ret []byte, leftOverGas uint64, err error) {
	if evm.Config.Tracer != nil {
		defer evm.traceFrame(CALL, caller, addr, input, gas, value)(&ret, &leftOverGas, &err)
	}
	if evm.tooDeep() {
		return nil, gas, ErrDepth
	}
	if !value.IsZero() && !evm.Context.CanTransfer(evm.StateDB, caller, value) {
		return nil, gas, ErrInsufficientBalance
	}
	snapshot := evm.StateDB.Snapshot()
	_, isPrecompile := evm.precompiles[addr]

	if !evm.StateDB.Exist(addr) {
		if !isPrecompile && evm.chainRules.IsEIP158 && value.IsZero() {
			return nil, gas, nil
		}
		evm.StateDB.CreateAccount(addr)
	}
	evm.Context.Transfer(evm.StateDB, caller, addr, value)

	if isPrecompile || evm.StateDB.GetCodeSize(addr) != 0 {
		ret, gas, err = evm.execute(caller, addr, value, gas, addr, input, false)
	}
	return ret, evm.settle(snapshot, gas, err), err
}

// CallCode runs the code at addr in the context of caller: storage and
// balance are the caller's own.
func (evm *EVM) CallCode(caller common.Address, addr common.Address, input []byte, gas uint64, value *uint256.Int) (ret []byte, leftOverGas uint64, err error) {
	if evm.Config.Tracer != nil {
		defer evm.traceFrame(CALLCODE, caller, addr, input, gas, value)(&ret, &leftOverGas, &err)
	}
	if evm.tooDeep() {
		return nil, gas, ErrDepth
	}
	// The transfer is to itself, still the caller must be able to afford it.
	if !evm.Context.CanTransfer(evm.StateDB, caller, value) {
		return nil, gas, ErrInsufficientBalance
	}
	snapshot := evm.StateDB.Snapshot()
	ret, gas, err = evm.execute(caller, caller, value, gas, addr, input, false)
	return ret, evm.settle(snapshot, gas, err), err
}

// DelegateCall runs the code at addr in the context of caller, keeping the
// sender and value of the delegating frame.
func (evm *EVM) DelegateCall(originCaller common.Address, caller common.Address, addr common.Address, input []byte, gas uint64, value *uint256.Int) (ret []byte, leftOverGas uint64, err error) {
	if evm.Config.Tracer != nil {
		defer evm.traceFrame(DELEGATECALL, caller, addr, input, gas, value)(&ret, &leftOverGas, &err)
	}
	if evm.tooDeep() {
		return nil, gas, ErrDepth
	}
	snapshot := evm.StateDB.Snapshot()
	// 委托调用：沿用上层帧的调用者与 value，代码取自 addr。
	ret, gas, err = evm.execute(originCaller, caller, value, gas, addr, input, false)
	return ret, evm.settle(snapshot, gas, err), err
}

// StaticCall runs the code at addr with every state modification turned
// into a step error.
func (evm *EVM) StaticCall(caller common.Address, addr common.Address, input []byte, gas uint64) (ret []byte, leftOverGas uint64, err error) {
	if evm.Config.Tracer != nil {
		defer evm.traceFrame(STATICCALL, caller, addr, input, gas, nil)(&ret, &leftOverGas, &err)
	}
	if evm.tooDeep() {
		return nil, gas, ErrDepth
	}
	snapshot := evm.StateDB.Snapshot()

	// A static call still touches its target, which matters for empty
	// account removal on chains that kept empty accounts past Byzantium.
	evm.StateDB.AddBalance(addr, new(uint256.Int), tracing.BalanceChangeTouchAccount)

	ret, gas, err = evm.execute(caller, addr, new(uint256.Int), gas, addr, input, true)
	return ret, evm.settle(snapshot, gas, err), err
}

// create deploys code at address. typ tells CREATE from CREATE2 for the tracer.
func (evm *EVM) create(caller common.Address, code []byte, codeHash common.Hash, gas uint64, value *uint256.Int, address common.Address, typ OpCode) (ret []byte, createAddress common.Address, leftOverGas uint64, err error) {
	if evm.Config.Tracer != nil {
		defer evm.traceFrame(typ, caller, address, code, gas, value)(&ret, &leftOverGas, &err)
	}
	if evm.tooDeep() {
		return nil, common.Address{}, gas, ErrDepth
	}
	if evm.chainRules.IsShanghai && len(code) > params.MaxInitCodeSize {
		return nil, common.Address{}, gas, fmt.Errorf("%w: code size %v limit %v", ErrMaxInitCodeSizeExceeded, len(code), params.MaxInitCodeSize)
	}
	if !evm.Context.CanTransfer(evm.StateDB, caller, value) {
		return nil, common.Address{}, gas, ErrInsufficientBalance
	}
	nonce := evm.StateDB.GetNonce(caller)
	if nonce+1 < nonce {
		return nil, common.Address{}, gas, ErrNonceUintOverflow
	}
	evm.StateDB.SetNonce(caller, nonce+1)

	// Warmed before the snapshot, a failed creation keeps the address warm.
	if evm.chainRules.IsEIP2929 {
		evm.StateDB.AddAddressToAccessList(address)
	}
	// 状态接口不暴露存储根，碰撞检查只看 nonce 与代码。
	contractHash := evm.StateDB.GetCodeHash(address)
	if evm.StateDB.GetNonce(address) != 0 ||
		(contractHash != (common.Hash{}) && contractHash != types.EmptyCodeHash) {
		if evm.Config.Tracer != nil && evm.Config.Tracer.OnGasChange != nil {
			evm.Config.Tracer.OnGasChange(gas, 0, tracing.GasChangeCallFailedExecution)
		}
		return nil, common.Address{}, 0, ErrContractAddressCollision
	}
	// The address may already hold a balance, which the contract inherits.
	snapshot := evm.StateDB.Snapshot()
	if !evm.StateDB.Exist(address) {
		evm.StateDB.CreateAccount(address)
	}
	// Marked before the initcode runs, so that it may destroy itself.
	evm.StateDB.CreateContract(address)

	if evm.chainRules.IsEIP158 {
		evm.StateDB.SetNonce(address, 1)
	}
	evm.Context.Transfer(evm.StateDB, caller, address, value)

	// CREATE passes a zero hash, which keeps the initcode analysis out of the
	// shared cache.
	contract := NewContract(caller, address, value, gas, evm.jumpDests)
	contract.SetCallCode(codeHash, code)
	contract.IsDeployment = true

	ret, err = evm.initNewContract(contract, address)
	if err != nil && (evm.chainRules.IsHomestead || err != ErrCodeStoreOutOfGas) {
		evm.StateDB.RevertToSnapshot(snapshot)
		if err != ErrExecutionReverted {
			contract.UseGas(contract.Gas, evm.Config.Tracer, tracing.GasChangeCallFailedExecution)
		}
	}
	return ret, address, contract.Gas, err
}

// initNewContract runs the initcode and stores what it returns as the code of
// address, after checking the size and prefix rules and charging the deposit.
func (evm *EVM) initNewContract(contract *Contract, address common.Address) ([]byte, error) {
	ret, err := evm.interpreter.Run(contract, nil, false)
	if err != nil {
		return ret, err
	}
	if evm.chainRules.IsEIP158 && len(ret) > params.MaxCodeSize {
		return ret, ErrMaxCodeSizeExceeded
	}
	// EIP-3541
	if len(ret) >= 1 && ret[0] == 0xEF && evm.chainRules.IsLondon {
		return ret, ErrInvalidCode
	}

	createDataGas := uint64(len(ret)) * params.CreateDataGas
	if !contract.UseGas(createDataGas, evm.Config.Tracer, tracing.GasChangeCallCodeStorage) {
		return ret, ErrCodeStoreOutOfGas
	}
	evm.StateDB.SetCode(address, ret)
	return ret, nil
}

// Create deploys code at the address derived from the caller and its nonce.
func (evm *EVM) Create(caller common.Address, code []byte, gas uint64, value *uint256.Int) (ret []byte, contractAddr common.Address, leftOverGas uint64, err error) {
	contractAddr = crypto.CreateAddress(caller, evm.StateDB.GetNonce(caller))
	return evm.create(caller, code, common.Hash{}, gas, value, contractAddr, CREATE)
}

// Create2 deploys code at keccak256(0xff ++ caller ++ salt ++ keccak256(code))[12:].
func (evm *EVM) Create2(caller common.Address, code []byte, gas uint64, endowment *uint256.Int, salt *uint256.Int) (ret []byte, contractAddr common.Address, leftOverGas uint64, err error) {
	inithash := crypto.Keccak256Hash(code)
	contractAddr = crypto.CreateAddress2(caller, salt.Bytes32(), inithash[:])
	return evm.create(caller, code, inithash, gas, endowment, contractAddr, CREATE2)
}

func (evm *EVM) captureBegin(depth int, typ OpCode, from common.Address, to common.Address, input []byte, startGas uint64, value *uint256.Int) {
	tracer := evm.Config.Tracer
	if tracer.OnEnter != nil {
		tracer.OnEnter(depth, byte(typ), from, to, input, startGas, value)
	}
	if tracer.OnGasChange != nil {
		tracer.OnGasChange(0, startGas, tracing.GasChangeCallInitialBalance)
	}
}

func (evm *EVM) captureEnd(depth int, startGas uint64, leftOverGas uint64, ret []byte, err error) {
	tracer := evm.Config.Tracer
	if leftOverGas != 0 && tracer.OnGasChange != nil {
		tracer.OnGasChange(leftOverGas, 0, tracing.GasChangeCallLeftOverReturned)
	}
	// Before Homestead a failed code deposit kept the created account.
	reverted := err != nil && (evm.chainRules.IsHomestead || !errors.Is(err, ErrCodeStoreOutOfGas))
	if tracer.OnExit != nil {
		tracer.OnExit(depth, ret, startGas-leftOverGas, VMErrorFromErr(err), reverted)
	}
}

// GetVMContext is the block view handed to tracers at transaction start.
func (evm *EVM) GetVMContext() *tracing.VMContext {
	return &tracing.VMContext{
		Coinbase:    evm.Context.Coinbase,
		BlockNumber: evm.Context.BlockNumber.Uint64(),
		Time:        evm.Context.Time,
		Random:      evm.Context.Random,
		BaseFee:     bigToWord(evm.Context.BaseFee),
		BlobBaseFee: bigToWord(evm.Context.BlobBaseFee),
		StateDB:     evm.StateDB,
	}
}
