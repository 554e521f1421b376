// Copyright 2017 The go-ethereum Authors
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

	"github.com/sunyihoo/go-evm/common"
	"github.com/sunyihoo/go-evm/common/math"
	"github.com/sunyihoo/go-evm/params"
)

// maxMemorySize is the largest memory size whose expansion cost can be
// computed without overflowing a uint64.
const maxMemorySize = 0x1FFFFFFFE0

var errReentrancySentry = errors.New("not enough gas for reentrancy sentry")

// memoryGasCost returns the fee for growing mem to newMemSize bytes. The cost
// of a memory of w words is 3*w + w*w/512; only the difference to what was
// already paid is charged.
// 只对扩展出的部分收费：返回值是新总费用与上次已收费用的差。
func memoryGasCost(mem *Memory, newMemSize uint64) (uint64, error) {
	if newMemSize == 0 {
		return 0, nil
	}
	// Beyond this size words*words no longer fits into 64 bits.
	if newMemSize > maxMemorySize {
		return 0, ErrGasUintOverflow
	}
	words := toWordSize(newMemSize)
	if words*32 <= uint64(mem.Len()) {
		return 0, nil
	}
	total := words*params.MemoryGas + words*words/params.QuadCoeffDiv
	fee := total - mem.lastGasCost
	mem.lastGasCost = total
	return fee, nil
}

// addGas sums the given terms, failing on uint64 overflow.
func addGas(terms ...uint64) (uint64, error) {
	var sum uint64
	for _, t := range terms {
		var overflow bool
		if sum, overflow = math.SafeAdd(sum, t); overflow {
			return 0, ErrGasUintOverflow
		}
	}
	return sum, nil
}

// perWordGas charges perWord for every 32 byte word of the length found at
// stack position pos.
func perWordGas(stack *Stack, pos int, perWord uint64) (uint64, error) {
	size, overflow := stack.Back(pos).Uint64WithOverflow()
	if overflow {
		return 0, ErrGasUintOverflow
	}
	gas, overflow := math.SafeMul(toWordSize(size), perWord)
	if overflow {
		return 0, ErrGasUintOverflow
	}
	return gas, nil
}

// memoryWordGas builds the dynamic gas of an instruction which expands memory
// and then pays perWord for every word of the length operand at pos.
func memoryWordGas(pos int, perWord uint64) gasFunc {
	return func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		gas, err := memoryGasCost(mem, memorySize)
		if err != nil {
			return 0, err
		}
		words, err := perWordGas(stack, pos, perWord)
		if err != nil {
			return 0, err
		}
		return addGas(gas, words)
	}
}

var (
	gasCallDataCopy   = memoryWordGas(2, params.CopyGas)
	gasCodeCopy       = memoryWordGas(2, params.CopyGas)
	gasMcopy          = memoryWordGas(2, params.CopyGas)
	gasReturnDataCopy = memoryWordGas(2, params.CopyGas)
	gasExtCodeCopy    = memoryWordGas(3, params.CopyGas)

	gasKeccak256 = memoryWordGas(1, params.Keccak256WordGas)
	gasCreate2   = memoryWordGas(2, params.Keccak256WordGas)
)

// initCodeGas is the CREATE family variant once initcode is metered: the
// initcode may be at most MaxInitCodeSize bytes and each of its words costs
// perWord.
func initCodeGas(perWord uint64) gasFunc {
	return func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		gas, err := memoryGasCost(mem, memorySize)
		if err != nil {
			return 0, err
		}
		size, overflow := stack.Back(2).Uint64WithOverflow()
		if overflow {
			return 0, ErrGasUintOverflow
		}
		if size > params.MaxInitCodeSize {
			return 0, fmt.Errorf("%w: size %d", ErrMaxInitCodeSizeExceeded, size)
		}
		return addGas(gas, toWordSize(size)*perWord)
	}
}

var (
	gasCreateEip3860  = initCodeGas(params.InitCodeWordGas)
	gasCreate2Eip3860 = initCodeGas(params.InitCodeWordGas + params.Keccak256WordGas)
)

// makeGasLog 返回带 n 个主题的 LOG 指令的动态 gas 函数。
func makeGasLog(n uint64) gasFunc {
	return func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		size, overflow := stack.Back(1).Uint64WithOverflow()
		if overflow {
			return 0, ErrGasUintOverflow
		}
		gas, err := memoryGasCost(mem, memorySize)
		if err != nil {
			return 0, err
		}
		dataGas, overflow := math.SafeMul(size, params.LogDataGas)
		if overflow {
			return 0, ErrGasUintOverflow
		}
		return addGas(gas, params.LogGas, n*params.LogTopicGas, dataGas)
	}
}

// pureMemoryGascost is the dynamic part of instructions whose only variable
// cost is memory expansion.
func pureMemoryGascost(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return memoryGasCost(mem, memorySize)
}

var (
	gasReturn  = pureMemoryGascost
	gasRevert  = pureMemoryGascost
	gasMLoad   = pureMemoryGascost
	gasMStore8 = pureMemoryGascost
	gasMStore  = pureMemoryGascost
	gasCreate  = pureMemoryGascost
)

// makeGasExp prices EXP by the byte length of the exponent. The exponent has
// at most 32 bytes, so the product cannot overflow.
func makeGasExp(byteGas uint64) gasFunc {
	return func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		expBytes := uint64((stack.Back(1).BitLen() + 7) / 8)
		return addGas(params.ExpGas, expBytes*byteGas)
	}
}

var (
	gasExpFrontier = makeGasExp(params.ExpByteFrontier)
	gasExpEIP158   = makeGasExp(params.ExpByteEIP158)
)

// makeCallGas builds the dynamic gas of the CALL family. extra returns the
// instruction specific surcharge (account creation, value transfer); the
// gas forwarded to the callee is then derived with the 63/64 rule and parked
// on the EVM for the instruction to pick up.
func makeCallGas(extra func(evm *EVM, contract *Contract, stack *Stack) uint64) gasFunc {
	return func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		var surcharge uint64
		if extra != nil {
			surcharge = extra(evm, contract, stack)
		}
		memGas, err := memoryGasCost(mem, memorySize)
		if err != nil {
			return 0, err
		}
		gas, err := addGas(surcharge, memGas)
		if err != nil {
			return 0, err
		}
		evm.callGasTemp, err = callGas(evm.chainRules.IsEIP150, contract.Gas, gas, stack.Back(0))
		if err != nil {
			return 0, err
		}
		return addGas(gas, evm.callGasTemp)
	}
}

func callValueGas(stack *Stack) uint64 {
	if stack.Back(2).IsZero() {
		return 0
	}
	return params.CallValueTransferGas
}

var (
	gasCall = makeCallGas(func(evm *EVM, contract *Contract, stack *Stack) uint64 {
		var (
			gas     = callValueGas(stack)
			address = common.Address(stack.Back(1).Bytes20())
		)
		// After EIP-158 only value transfers into empty accounts create them.
		if evm.chainRules.IsEIP158 {
			if gas != 0 && evm.StateDB.Empty(address) {
				gas += params.CallNewAccountGas
			}
		} else if !evm.StateDB.Exist(address) {
			gas += params.CallNewAccountGas
		}
		return gas
	})
	gasCallCode = makeCallGas(func(evm *EVM, contract *Contract, stack *Stack) uint64 {
		return callValueGas(stack)
	})
	gasDelegateCall = makeCallGas(nil)
	gasStaticCall   = makeCallGas(nil)
)

// gasSStore meters SSTORE before Istanbul. Frontier through Byzantium, and
// Petersburg after it, price by the current value alone. Constantinople
// uses net metering.
func gasSStore(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	if !evm.chainRules.IsPetersburg && evm.chainRules.IsConstantinople {
		return sstoreEIP1283.gas(evm, contract, stack, mem, memorySize)
	}
	var (
		value   = stack.Back(1)
		current = evm.StateDB.GetState(contract.Address(), stack.Back(0).Bytes32())
	)
	switch {
	case current == (common.Hash{}) && !value.IsZero():
		return params.SstoreSetGas, nil
	case current != (common.Hash{}) && value.IsZero():
		evm.StateDB.AddRefund(params.SstoreRefundGas)
		return params.SstoreClearGas, nil
	default:
		return params.SstoreResetGas, nil
	}
}

// sstoreSchedule holds the prices of one net gas metering flavour. The
// branches are the same for EIP-1283, EIP-2200 and EIP-2929/3529, only the
// numbers and the extra checks differ.
//
//	noop              current == new
//	init, clean       original == current != new, slot zero / non-zero
//	dirty             original != current, refund adjustments apply
//	resetClear, reset dirty slot written back to its original value
type sstoreSchedule struct {
	sentry           bool // 剩余 gas 不超过 2300 时直接失败
	accessList       bool // 冷槽位额外收取 COLD_SLOAD_COST
	noop             uint64
	init             uint64
	clean            uint64
	dirty            uint64
	clearRefund      uint64
	resetClearRefund uint64
	resetRefund      uint64
}

func (s *sstoreSchedule) gas(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	if s.sentry && contract.Gas <= params.SstoreSentryGasEIP2200 {
		return 0, errReentrancySentry
	}
	var (
		db      = evm.StateDB
		addr    = contract.Address()
		slot    = common.Hash(stack.Back(0).Bytes32())
		value   = common.Hash(stack.Back(1).Bytes32())
		current = db.GetState(addr, slot)
		cold    uint64
	)
	if s.accessList {
		if _, warm := db.SlotInAccessList(addr, slot); !warm {
			cold = params.ColdSloadCostEIP2929
			db.AddSlotToAccessList(addr, slot)
		}
	}
	if current == value {
		return cold + s.noop, nil
	}
	original := db.GetCommittedState(addr, slot)
	if original == current {
		if original == (common.Hash{}) {
			return cold + s.init, nil
		}
		if value == (common.Hash{}) {
			db.AddRefund(s.clearRefund)
		}
		return cold + s.clean, nil
	}
	if original != (common.Hash{}) {
		if current == (common.Hash{}) {
			db.SubRefund(s.clearRefund)
		} else if value == (common.Hash{}) {
			db.AddRefund(s.clearRefund)
		}
	}
	if original == value {
		if original == (common.Hash{}) {
			db.AddRefund(s.resetClearRefund)
		} else {
			db.AddRefund(s.resetRefund)
		}
	}
	return cold + s.dirty, nil
}

var sstoreEIP1283 = &sstoreSchedule{
	noop:             params.NetSstoreNoopGas,
	init:             params.NetSstoreInitGas,
	clean:            params.NetSstoreCleanGas,
	dirty:            params.NetSstoreDirtyGas,
	clearRefund:      params.NetSstoreClearRefund,
	resetClearRefund: params.NetSstoreResetClearRefund,
	resetRefund:      params.NetSstoreResetRefund,
}

var sstoreEIP2200 = &sstoreSchedule{
	sentry:           true,
	noop:             params.SloadGasEIP2200,
	init:             params.SstoreSetGasEIP2200,
	clean:            params.SstoreResetGasEIP2200,
	dirty:            params.SloadGasEIP2200,
	clearRefund:      params.SstoreClearsScheduleRefundEIP2200,
	resetClearRefund: params.SstoreSetGasEIP2200 - params.SloadGasEIP2200,
	resetRefund:      params.SstoreResetGasEIP2200 - params.SloadGasEIP2200,
}

// sstoreEIP2929 reprices EIP-2200: SLOAD_GAS becomes the warm read cost and
// SSTORE_RESET_GAS drops by the cold slot cost, which is charged separately.
func sstoreEIP2929(clearRefund uint64) *sstoreSchedule {
	const (
		warm  = params.WarmStorageReadCostEIP2929
		reset = params.SstoreResetGasEIP2200 - params.ColdSloadCostEIP2929
	)
	return &sstoreSchedule{
		sentry:           true,
		accessList:       true,
		noop:             warm,
		init:             params.SstoreSetGasEIP2200,
		clean:            reset,
		dirty:            warm,
		clearRefund:      clearRefund,
		resetClearRefund: params.SstoreSetGasEIP2200 - warm,
		resetRefund:      reset - warm,
	}
}

var (
	gasSStoreEIP2200 = sstoreEIP2200.gas
	gasSStoreEIP2929 = sstoreEIP2929(params.SstoreClearsScheduleRefundEIP2200).gas
	// EIP-3529 lowers the clearing refund to SSTORE_RESET_GAS + ACCESS_LIST_STORAGE_KEY_COST.
	gasSStoreEIP3529 = sstoreEIP2929(params.SstoreClearsScheduleRefundEIP3529).gas
)

func gasSelfdestruct(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	var gas uint64
	if evm.chainRules.IsEIP150 {
		gas = params.SelfdestructGasEIP150
		beneficiary := common.Address(stack.Back(0).Bytes20())

		if evm.chainRules.IsEIP158 {
			if evm.StateDB.Empty(beneficiary) && evm.StateDB.GetBalance(contract.Address()).Sign() != 0 {
				gas += params.CreateBySelfdestructGas
			}
		} else if !evm.StateDB.Exist(beneficiary) {
			gas += params.CreateBySelfdestructGas
		}
	}
	if !evm.StateDB.HasSelfDestructed(contract.Address()) {
		evm.StateDB.AddRefund(params.SelfdestructRefundGas)
	}
	return gas, nil
}
