// Copyright 2020 The go-ethereum Authors
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
	"github.com/sunyihoo/go-evm/common"
	"github.com/sunyihoo/go-evm/core/tracing"
	"github.com/sunyihoo/go-evm/params"
)

// gasSLoadEIP2929 charges the full cold read for a slot outside the access
// list and the warm read otherwise. The slot is warm afterwards.
func gasSLoadEIP2929(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	slot := common.Hash(stack.peek().Bytes32())
	if _, warm := evm.StateDB.SlotInAccessList(contract.Address(), slot); warm {
		return params.WarmStorageReadCostEIP2929, nil
	}
	evm.StateDB.AddSlotToAccessList(contract.Address(), slot)
	return params.ColdSloadCostEIP2929, nil
}

// warmAccount adds addr to the access list and returns the cold access
// surcharge on a miss. The warm read cost is part of the constant gas of
// every instruction using it.
// 调用方付不起时，访问列表的修改会随帧一起回滚。
func warmAccount(evm *EVM, addr common.Address) uint64 {
	if evm.StateDB.AddressInAccessList(addr) {
		return 0
	}
	evm.StateDB.AddAddressToAccessList(addr)
	return params.ColdAccountAccessCostEIP2929 - params.WarmStorageReadCostEIP2929
}

// gasExtCodeCopyEIP2929 is EXTCODECOPY with the EIP-2929 account surcharge
// added on top of memory expansion and copy cost.
func gasExtCodeCopyEIP2929(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	gas, err := gasExtCodeCopy(evm, contract, stack, mem, memorySize)
	if err != nil {
		return 0, err
	}
	return addGas(gas, warmAccount(evm, common.Address(stack.peek().Bytes20())))
}

// gasEip2929AccountCheck charges the cold surcharge for the account on top
// of the stack. Used by BALANCE, EXTCODESIZE and EXTCODEHASH.
func gasEip2929AccountCheck(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
	return warmAccount(evm, common.Address(stack.peek().Bytes20())), nil
}

// makeCallVariantGasCallEIP2929 wraps a CALL family gas function with the
// account access surcharge. The surcharge is taken from the frame before
// inner runs so the 63/64 rule sees the reduced gas, then put back and
// reported as part of the dynamic cost.
func makeCallVariantGasCallEIP2929(inner gasFunc, addressPosition int) gasFunc {
	return func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		coldCost := warmAccount(evm, common.Address(stack.Back(addressPosition).Bytes20()))
		if coldCost > 0 && !contract.UseGas(coldCost, evm.Config.Tracer, tracing.GasChangeCallStorageColdAccess) {
			return 0, ErrOutOfGas
		}
		gas, err := inner(evm, contract, stack, mem, memorySize)
		if coldCost == 0 || err != nil {
			return gas, err
		}
		contract.Gas += coldCost
		return addGas(gas, coldCost)
	}
}

var (
	gasCallEIP2929         = makeCallVariantGasCallEIP2929(gasCall, 1)
	gasDelegateCallEIP2929 = makeCallVariantGasCallEIP2929(gasDelegateCall, 1)
	gasStaticCallEIP2929   = makeCallVariantGasCallEIP2929(gasStaticCall, 1)
	gasCallCodeEIP2929     = makeCallVariantGasCallEIP2929(gasCallCode, 1)
	gasSelfdestructEIP2929 = makeSelfdestructGasFn(true)
	// EIP-3529 removes the SELFDESTRUCT refund.
	gasSelfdestructEIP3529 = makeSelfdestructGasFn(false)
)

// makeSelfdestructGasFn builds SELFDESTRUCT gas after EIP-2929. The
// beneficiary pays the full cold account cost since the constant gas holds
// no warm read here.
func makeSelfdestructGasFn(refundsEnabled bool) gasFunc {
	return func(evm *EVM, contract *Contract, stack *Stack, mem *Memory, memorySize uint64) (uint64, error) {
		var (
			gas         uint64
			beneficiary = common.Address(stack.peek().Bytes20())
		)
		if !evm.StateDB.AddressInAccessList(beneficiary) {
			evm.StateDB.AddAddressToAccessList(beneficiary)
			gas = params.ColdAccountAccessCostEIP2929
		}
		if evm.StateDB.Empty(beneficiary) && evm.StateDB.GetBalance(contract.Address()).Sign() != 0 {
			gas += params.CreateBySelfdestructGas
		}
		if refundsEnabled && !evm.StateDB.HasSelfDestructed(contract.Address()) {
			evm.StateDB.AddRefund(params.SelfdestructRefundGas)
		}
		return gas, nil
	}
}
