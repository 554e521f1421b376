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

package state

import (
	"github.com/sunyihoo/go-evm/common"
	"github.com/sunyihoo/go-evm/core/types"
)

// StateUpdate represents the difference between the backend state and the
// state after execution. It carries the final value of every mutated account,
// contract code and storage slot. Original values are not tracked since the
// flat backend keeps no history.
//
// StateUpdate 是一次 Commit 产生的扁平差异：销毁集合、账户、代码与槽位。
type StateUpdate struct {
	Destructs map[common.Address]struct{}                    // accounts whose storage must be wiped first
	Accounts  map[common.Address]*types.StateAccount         // live accounts with their final data
	Codes     map[common.Hash][]byte                         // newly deployed contract code
	Storages  map[common.Address]map[common.Hash]common.Hash // mutated slots, zero means deletion
}

func newStateUpdate() *StateUpdate {
	return &StateUpdate{
		Destructs: make(map[common.Address]struct{}),
		Accounts:  make(map[common.Address]*types.StateAccount),
		Codes:     make(map[common.Hash][]byte),
		Storages:  make(map[common.Address]map[common.Hash]common.Hash),
	}
}

// Empty reports whether the update carries no change at all.
func (sc *StateUpdate) Empty() bool {
	return len(sc.Destructs) == 0 && len(sc.Accounts) == 0 && len(sc.Codes) == 0 && len(sc.Storages) == 0
}

// Slots returns the number of mutated storage slots.
func (sc *StateUpdate) Slots() int {
	var n int
	for _, storage := range sc.Storages {
		n += len(storage)
	}
	return n
}
