// Copyright 2024 The go-ethereum Authors
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

// Package tracing defines the hooks the interpreter and the state invoke while
// executing. A tracer fills in only the hooks it cares about; nil hooks are
// skipped.
//
// 钩子分两类：VM 事件（帧进出、逐条指令、gas 变化）和状态事件（余额、nonce、
// 代码、存储、日志）。
package tracing

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/sunyihoo/go-evm/common"
	"github.com/sunyihoo/go-evm/core/types"
)

// OpContext provides the context at which the opcode is being
// executed in, including the memory, stack and various contract-level information.
type OpContext interface {
	MemoryData() []byte
	StackData() []uint256.Int
	Caller() common.Address
	Address() common.Address
	CallValue() *uint256.Int
	CallInput() []byte
	ContractCode() []byte
}

// StateDB gives tracers access to the whole state.
type StateDB interface {
	GetBalance(common.Address) *uint256.Int
	GetNonce(common.Address) uint64
	GetCode(common.Address) []byte
	GetCodeHash(common.Address) common.Hash
	GetState(common.Address, common.Hash) common.Hash
	GetTransientState(common.Address, common.Hash) common.Hash
	Exist(common.Address) bool
	GetRefund() uint64
}

// VMContext provides the context for the EVM execution.
type VMContext struct {
	Coinbase    common.Address
	BlockNumber uint64
	Time        uint64
	Random      *common.Hash
	BaseFee     *uint256.Int
	BlobBaseFee *uint256.Int
	StateDB     StateDB
}

type (
	// TxStartHook is called before the execution of a top-level message starts.
	// to is nil for contract creations.
	TxStartHook = func(vm *VMContext, from common.Address, to *common.Address, gas uint64)

	// TxEndHook is called after the execution of a top-level message ends.
	TxEndHook = func(gasUsed uint64, err error)

	// EnterHook is invoked when the processing of a message starts.
	EnterHook = func(depth int, typ byte, from common.Address, to common.Address, input []byte, gas uint64, value *uint256.Int)

	// ExitHook is invoked when the processing of a message ends.
	// `revert` is true when there was an error during the execution.
	// Exceptionally, before the homestead hardfork a contract creation that
	// ran out of gas when attempting to persist the code to database did not
	// count as a call failure and did not cause a revert of the call. This will
	// be indicated by `reverted == false` and `err == ErrCodeStoreOutOfGas`.
	ExitHook = func(depth int, output []byte, gasUsed uint64, err error, reverted bool)

	// OpcodeHook is invoked just prior to the execution of an opcode.
	OpcodeHook = func(pc uint64, op byte, gas, cost uint64, scope OpContext, rData []byte, depth int, err error)

	// FaultHook is invoked when an error occurs during the execution of an opcode.
	FaultHook = func(pc uint64, op byte, gas, cost uint64, scope OpContext, depth int, err error)

	// GasChangeHook is invoked when the gas changes.
	GasChangeHook = func(old, new uint64, reason GasChangeReason)

	// BalanceChangeHook is called when the balance of an account changes.
	BalanceChangeHook = func(addr common.Address, prev, new *uint256.Int, reason BalanceChangeReason)

	// NonceChangeHook is called when the nonce of an account changes.
	NonceChangeHook = func(addr common.Address, prev, new uint64)

	// CodeChangeHook is called when the code of an account changes.
	CodeChangeHook = func(addr common.Address, prevCodeHash common.Hash, prevCode []byte, codeHash common.Hash, code []byte)

	// StorageChangeHook is called when the storage of an account changes.
	StorageChangeHook = func(addr common.Address, slot common.Hash, prev, new common.Hash)

	// LogHook is called when a log is emitted.
	LogHook = func(log *types.Log)
)

// Hooks is the set of callbacks a tracer registers. Every field is optional.
type Hooks struct {
	// VM events
	OnTxStart   TxStartHook
	OnTxEnd     TxEndHook
	OnEnter     EnterHook
	OnExit      ExitHook
	OnOpcode    OpcodeHook
	OnFault     FaultHook
	OnGasChange GasChangeHook
	// State events
	OnBalanceChange BalanceChangeHook
	OnNonceChange   NonceChangeHook
	OnCodeChange    CodeChangeHook
	OnStorageChange StorageChangeHook
	OnLog           LogHook
}

// BalanceChangeReason tells a tracer why a balance moved.
type BalanceChangeReason byte

// The numeric values are shared with other tracers of the same hook set and
// must not be renumbered.
const (
	BalanceChangeUnspecified BalanceChangeReason = 0

	// Gas purchase and refund of the top level message.
	BalanceDecreaseGasBuy    BalanceChangeReason = 6
	BalanceIncreaseGasReturn BalanceChangeReason = 7

	// BalanceChangeTransfer is value moved by a call or create, it is
	// reported once for each side.
	BalanceChangeTransfer BalanceChangeReason = 10
	// BalanceChangeTouchAccount is a zero value transfer that only touches
	// the recipient.
	BalanceChangeTouchAccount BalanceChangeReason = 11

	// SELFDESTRUCT moves the remaining balance to the beneficiary.
	BalanceIncreaseSelfdestruct BalanceChangeReason = 12
	BalanceDecreaseSelfdestruct BalanceChangeReason = 13
	// BalanceDecreaseSelfdestructBurn is ether received by an account after
	// it self-destructed in the same transaction, burnt at finalisation.
	BalanceDecreaseSelfdestructBurn BalanceChangeReason = 14
)

var balanceReasonNames = map[BalanceChangeReason]string{
	BalanceChangeUnspecified:        "Unspecified",
	BalanceDecreaseGasBuy:           "GasBuy",
	BalanceIncreaseGasReturn:        "GasReturn",
	BalanceChangeTransfer:           "Transfer",
	BalanceChangeTouchAccount:       "TouchAccount",
	BalanceIncreaseSelfdestruct:     "SelfdestructBeneficiary",
	BalanceDecreaseSelfdestruct:     "Selfdestruct",
	BalanceDecreaseSelfdestructBurn: "SelfdestructBurn",
}

func (r BalanceChangeReason) String() string {
	if name, ok := balanceReasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("BalanceChangeReason(%d)", byte(r))
}

// GasChangeReason tells a tracer why the gas of a frame moved. Reasons named
// GasChangeTx are reported at most once per message, GasChangeCall ones once
// per frame or instruction.
type GasChangeReason byte

const (
	GasChangeUnspecified GasChangeReason = iota

	// GasChangeTxInitialBalance is the gas limit of the message.
	GasChangeTxInitialBalance
	// GasChangeTxIntrinsicGas is the intrinsic charge, when enabled.
	GasChangeTxIntrinsicGas
	// GasChangeTxRefunds is the capped refund added back after execution.
	GasChangeTxRefunds
	// GasChangeTxLeftOverReturned drains the remaining gas to zero once it
	// has been paid back to the sender.
	GasChangeTxLeftOverReturned

	// GasChangeCallInitialBalance is the gas a child frame starts with.
	GasChangeCallInitialBalance
	// GasChangeCallLeftOverReturned drains a finished frame.
	GasChangeCallLeftOverReturned
	// GasChangeCallLeftOverRefunded returns the unused gas of a child to its
	// caller.
	GasChangeCallLeftOverRefunded
	GasChangeCallContractCreation
	GasChangeCallContractCreation2
	// GasChangeCallCodeStorage is the per byte charge for deployed code.
	GasChangeCallCodeStorage
	// GasChangeCallOpCode is the static plus dynamic charge of an instruction.
	GasChangeCallOpCode
	GasChangeCallPrecompiledContract
	// GasChangeCallStorageColdAccess is the EIP-2929 cold surcharge of a call.
	GasChangeCallStorageColdAccess
	// GasChangeCallFailedExecution burns the remaining gas after an
	// exceptional halt.
	GasChangeCallFailedExecution

	// GasChangeIgnored marks changes that are never reported.
	GasChangeIgnored GasChangeReason = 0xFF
)

var gasReasonNames = [...]string{
	GasChangeUnspecified:             "Unspecified",
	GasChangeTxInitialBalance:        "TxInitialBalance",
	GasChangeTxIntrinsicGas:          "TxIntrinsicGas",
	GasChangeTxRefunds:               "TxRefunds",
	GasChangeTxLeftOverReturned:      "TxLeftOverReturned",
	GasChangeCallInitialBalance:      "CallInitialBalance",
	GasChangeCallLeftOverReturned:    "CallLeftOverReturned",
	GasChangeCallLeftOverRefunded:    "CallLeftOverRefunded",
	GasChangeCallContractCreation:    "CallContractCreation",
	GasChangeCallContractCreation2:   "CallContractCreation2",
	GasChangeCallCodeStorage:         "CallCodeStorage",
	GasChangeCallOpCode:              "CallOpCode",
	GasChangeCallPrecompiledContract: "CallPrecompiledContract",
	GasChangeCallStorageColdAccess:   "CallStorageColdAccess",
	GasChangeCallFailedExecution:     "CallFailedExecution",
}

func (r GasChangeReason) String() string {
	switch {
	case r == GasChangeIgnored:
		return "Ignored"
	case int(r) < len(gasReasonNames):
		return gasReasonNames[r]
	}
	return fmt.Sprintf("GasChangeReason(%d)", byte(r))
}
