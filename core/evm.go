// Copyright 2016 The go-ethereum Authors
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
	"math/big"

	"github.com/holiman/uint256"
	"github.com/sunyihoo/go-evm/common"
	"github.com/sunyihoo/go-evm/core/tracing"
	"github.com/sunyihoo/go-evm/core/vm"
)

// BlockInfo carries the block header fields visible to contract code.
type BlockInfo struct {
	Coinbase    common.Address
	Number      *big.Int
	Time        uint64
	GasLimit    uint64
	Difficulty  *big.Int
	BaseFee     *big.Int
	BlobBaseFee *big.Int
	Random      *common.Hash // PREVRANDAO, nil before the merge
}

// NewEVMBlockContext creates a new context for use in the EVM. Block hashes are
// served by getHash; a nil getHash answers every lookup with the zero hash.
func NewEVMBlockContext(info BlockInfo, getHash vm.GetHashFunc) vm.BlockContext {
	if getHash == nil {
		getHash = func(uint64) (common.Hash, error) { return common.Hash{}, nil }
	}
	ctx := vm.BlockContext{
		CanTransfer: CanTransfer,
		Transfer:    Transfer,
		GetHash:     getHash,
		Coinbase:    info.Coinbase,
		BlockNumber: new(big.Int),
		Time:        info.Time,
		Difficulty:  new(big.Int),
		GasLimit:    info.GasLimit,
		Random:      info.Random,
	}
	if info.Number != nil {
		ctx.BlockNumber.Set(info.Number)
	}
	if info.Difficulty != nil {
		ctx.Difficulty.Set(info.Difficulty)
	}
	if info.BaseFee != nil {
		ctx.BaseFee = new(big.Int).Set(info.BaseFee)
	}
	if info.BlobBaseFee != nil {
		ctx.BlobBaseFee = new(big.Int).Set(info.BlobBaseFee)
	}
	return ctx
}

// NewEVMTxContext creates a new transaction context for a single transaction.
func NewEVMTxContext(msg *Message) vm.TxContext {
	ctx := vm.TxContext{
		Origin:     msg.From,
		GasPrice:   new(big.Int),
		BlobHashes: msg.BlobHashes,
	}
	if msg.GasPrice != nil {
		ctx.GasPrice.Set(msg.GasPrice)
	}
	if msg.BlobGasFeeCap != nil {
		ctx.BlobFeeCap = new(big.Int).Set(msg.BlobGasFeeCap)
	}
	return ctx
}

// CanTransfer checks whether there are enough funds in the address' account to make a transfer.
// This does not take the necessary gas in to account to make the transfer valid.
func CanTransfer(db vm.StateDB, addr common.Address, amount *uint256.Int) bool {
	return db.GetBalance(addr).Cmp(amount) >= 0
}

// Transfer subtracts amount from sender and adds amount to recipient using the given Db
func Transfer(db vm.StateDB, sender, recipient common.Address, amount *uint256.Int) {
	db.SubBalance(sender, amount, tracing.BalanceChangeTransfer)
	db.AddBalance(recipient, amount, tracing.BalanceChangeTransfer)
}
