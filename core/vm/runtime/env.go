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

package runtime

import (
	"github.com/sunyihoo/go-evm/core"
	"github.com/sunyihoo/go-evm/core/vm"
)

// NewEnv returns an EVM configured with the block and transaction fields of
// cfg.
func NewEnv(cfg *Config) *vm.EVM {
	blockContext := core.NewEVMBlockContext(core.BlockInfo{
		Coinbase:    cfg.Coinbase,
		Number:      cfg.BlockNumber,
		Time:        cfg.Time,
		GasLimit:    cfg.GasLimit,
		Difficulty:  cfg.Difficulty,
		BaseFee:     cfg.BaseFee,
		BlobBaseFee: cfg.BlobBaseFee,
		Random:      cfg.Random,
	}, cfg.GetHashFn)

	evm := vm.NewEVM(blockContext, cfg.State, cfg.ChainConfig, cfg.EVMConfig)
	evm.SetTxContext(vm.TxContext{
		Origin:     cfg.Origin,
		GasPrice:   cfg.GasPrice,
		BlobHashes: cfg.BlobHashes,
		BlobFeeCap: cfg.BlobFeeCap,
	})
	return evm
}
