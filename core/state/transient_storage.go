// Copyright 2022 The go-ethereum Authors
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
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/sunyihoo/go-evm/common"
)

// transientSlot addresses one word of transient storage.
type transientSlot struct {
	addr common.Address
	key  common.Hash
}

func (a transientSlot) cmp(b transientSlot) int {
	if c := a.addr.Cmp(b.addr); c != 0 {
		return c
	}
	return a.key.Cmp(b.key)
}

// transientStorage holds the TSTORE words of the current execution.
// 瞬态存储只在一笔交易内有效，Prepare 时整体丢弃，从不写入后端。
// Zero words are never stored, so the map only holds live slots.
type transientStorage map[transientSlot]common.Hash

func newTransientStorage() transientStorage {
	return make(transientStorage)
}

// Set stores value at key of addr. A zero value deletes the slot.
func (t transientStorage) Set(addr common.Address, key, value common.Hash) {
	slot := transientSlot{addr, key}
	if value == (common.Hash{}) {
		delete(t, slot)
		return
	}
	t[slot] = value
}

// Get returns the word at key of addr, zero if unset.
func (t transientStorage) Get(addr common.Address, key common.Hash) common.Hash {
	return t[transientSlot{addr, key}]
}

// Copy returns an independent copy. Hash values are arrays, so a shallow map
// copy is already deep.
func (t transientStorage) Copy() transientStorage {
	return maps.Clone(t)
}

// String lists the live slots ordered by address then key.
func (t transientStorage) String() string {
	slots := make([]transientSlot, 0, len(t))
	for slot := range t {
		slots = append(slots, slot)
	}
	slices.SortFunc(slots, transientSlot.cmp)
	out := new(strings.Builder)
	var last *common.Address
	for i, slot := range slots {
		if last == nil || *last != slot.addr {
			fmt.Fprintf(out, "%#x:\n", slot.addr)
			last = &slots[i].addr
		}
		fmt.Fprintf(out, "  %x: %x\n", slot.key, t[slot])
	}
	return out.String()
}
