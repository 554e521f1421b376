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

package core

import (
	"fmt"
	"math"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/sunyihoo/go-evm/common"
	"github.com/sunyihoo/go-evm/core/tracing"
	"github.com/sunyihoo/go-evm/core/types"
	"github.com/sunyihoo/go-evm/core/vm"
	"github.com/sunyihoo/go-evm/params"
)

// IntrinsicGas computes the 'intrinsic gas' for a message with the given data.
func IntrinsicGas(data []byte, accessList types.AccessList, isContractCreation, isHomestead, isEIP2028, isEIP3860 bool) (uint64, error) {
	// Set the starting gas for the raw transaction
	var gas uint64
	if isContractCreation && isHomestead {
		gas = params.TxGasContractCreation
	} else {
		gas = params.TxGas
	}
	dataLen := uint64(len(data))
	// Bump the required gas by the amount of transactional data
	if dataLen > 0 {
		// Zero and non-zero bytes are priced differently
		var nz uint64
		for _, byt := range data {
			if byt != 0 {
				nz++
			}
		}
		// Make sure we don't exceed uint64 for all data combinations
		nonZeroGas := params.TxDataNonZeroGasFrontier
		if isEIP2028 {
			nonZeroGas = params.TxDataNonZeroGasEIP2028
		}
		if (math.MaxUint64-gas)/nonZeroGas < nz {
			return 0, ErrGasUintOverflow
		}
		gas += nz * nonZeroGas

		z := dataLen - nz
		if (math.MaxUint64-gas)/params.TxDataZeroGas < z {
			return 0, ErrGasUintOverflow
		}
		gas += z * params.TxDataZeroGas

		if isContractCreation && isEIP3860 {
			lenWords := toWordSize(dataLen)
			if (math.MaxUint64-gas)/params.InitCodeWordGas < lenWords {
				return 0, ErrGasUintOverflow
			}
			gas += lenWords * params.InitCodeWordGas
		}
	}
	if accessList != nil {
		gas += uint64(len(accessList)) * params.TxAccessListAddressGas
		gas += uint64(accessList.StorageKeys()) * params.TxAccessListStorageKeyGas
	}
	return gas, nil
}

// toWordSize returns the ceiled word size required for init code payment calculation.
func toWordSize(size uint64) uint64 {
	if size > math.MaxUint64-31 {
		return math.MaxUint64/32 + 1
	}
	return (size + 31) / 32
}

// A Message contains the data derived from a single transaction that is relevant to state
// processing.
type Message struct {
	To            *common.Address
	From          common.Address
	Nonce         uint64
	Value         *big.Int
	GasLimit      uint64
	GasPrice      *big.Int
	Data          []byte
	AccessList    types.AccessList
	BlobHashes    []common.Hash
	BlobGasFeeCap *big.Int
}

// IsCreate reports whether the message deploys a contract.
func (msg *Message) IsCreate() bool { return msg.To == nil }

// BuyGas checks that the sender can pay for gasLimit*gasPrice plus the value
// and deducts the gas part.
// 只扣除 gas 费用；转账金额由 EVM 在调用时转移。
func BuyGas(db vm.StateDB, msg *Message, tracer *tracing.Hooks) error {
	mgval := new(big.Int).SetUint64(msg.GasLimit)
	if msg.GasPrice != nil {
		mgval.Mul(mgval, msg.GasPrice)
	} else {
		mgval.SetUint64(0)
	}
	balanceCheck := new(big.Int).Set(mgval)
	if msg.Value != nil {
		balanceCheck.Add(balanceCheck, msg.Value)
	}
	balanceCheckU256, overflow := uint256.FromBig(balanceCheck)
	if overflow {
		return fmt.Errorf("%w: address %v required balance exceeds 256 bits", ErrInsufficientFunds, msg.From)
	}
	if have, want := db.GetBalance(msg.From), balanceCheckU256; have.Cmp(want) < 0 {
		return fmt.Errorf("%w: address %v have %v want %v", ErrInsufficientFunds, msg.From, have, want)
	}
	if tracer != nil && tracer.OnGasChange != nil {
		tracer.OnGasChange(0, msg.GasLimit, tracing.GasChangeTxInitialBalance)
	}
	mgvalU256, _ := uint256.FromBig(mgval)
	db.SubBalance(msg.From, mgvalU256, tracing.BalanceDecreaseGasBuy)
	return nil
}

// CappedRefund returns the refund counter capped to gasUsed/2 before London
// and gasUsed/5 from London on (EIP-3529).
func CappedRefund(refund, gasUsed uint64, rules params.Rules) uint64 {
	quotient := params.RefundQuotient
	if rules.IsLondon {
		quotient = params.RefundQuotientEIP3529
	}
	return min(refund, gasUsed/quotient)
}

// ReturnGas credits the sender with the unused gas at the message gas price.
func ReturnGas(db vm.StateDB, msg *Message, gasLeft uint64, tracer *tracing.Hooks) {
	if tracer != nil && tracer.OnGasChange != nil && gasLeft > 0 {
		tracer.OnGasChange(gasLeft, 0, tracing.GasChangeTxLeftOverReturned)
	}
	if msg.GasPrice != nil && msg.GasPrice.Sign() > 0 {
		remaining := new(big.Int).Mul(new(big.Int).SetUint64(gasLeft), msg.GasPrice)
		if r, overflow := uint256.FromBig(remaining); !overflow {
			db.AddBalance(msg.From, r, tracing.BalanceIncreaseGasReturn)
		}
	}
}
