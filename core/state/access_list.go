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

package state

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/sunyihoo/go-evm/common"
)

// accessList tracks the warm accounts and slots of an execution (EIP-2929).
// 首次访问为 cold，计入访问列表后为 warm，回滚时按加入顺序逆序删除。
//
// Slots share the key type of transient storage. A slot is only ever added
// together with, or after, its address, and the journal removes them in
// reverse order, so an address outlives all of its slots.
type accessList struct {
	addresses map[common.Address]int // address -> number of warm slots
	slots     map[transientSlot]struct{}
}

func newAccessList() *accessList {
	return &accessList{
		addresses: make(map[common.Address]int),
		slots:     make(map[transientSlot]struct{}),
	}
}

// ContainsAddress reports whether the address is warm.
func (al *accessList) ContainsAddress(address common.Address) bool {
	_, ok := al.addresses[address]
	return ok
}

// Contains reports separately whether the address and the slot are warm.
func (al *accessList) Contains(address common.Address, slot common.Hash) (addressPresent bool, slotPresent bool) {
	if _, addressPresent = al.addresses[address]; !addressPresent {
		return false, false
	}
	_, slotPresent = al.slots[transientSlot{address, slot}]
	return true, slotPresent
}

// Copy creates an independent copy of an accessList.
func (al *accessList) Copy() *accessList {
	return &accessList{
		addresses: maps.Clone(al.addresses),
		slots:     maps.Clone(al.slots),
	}
}

// AddAddress warms an address and reports whether it was cold.
func (al *accessList) AddAddress(address common.Address) bool {
	if _, present := al.addresses[address]; present {
		return false
	}
	al.addresses[address] = 0
	return true
}

// AddSlot warms the (address, slot) pair, warming the address too if needed.
// Each true result must be matched by a journal entry.
func (al *accessList) AddSlot(address common.Address, slot common.Hash) (addrChange bool, slotChange bool) {
	addrChange = al.AddAddress(address)

	key := transientSlot{address, slot}
	if _, ok := al.slots[key]; ok {
		return addrChange, false
	}
	al.slots[key] = struct{}{}
	al.addresses[address]++
	return addrChange, true
}

// DeleteSlot undoes an AddSlot. It is called by the journal only.
func (al *accessList) DeleteSlot(address common.Address, slot common.Hash) {
	n, ok := al.addresses[address]
	if !ok {
		panic("reverting slot change, address not present in list")
	}
	key := transientSlot{address, slot}
	if _, ok := al.slots[key]; !ok {
		panic("reverting slot change, slot not present in list")
	}
	delete(al.slots, key)
	al.addresses[address] = n - 1
}

// DeleteAddress undoes an AddAddress. It is called by the journal only.
func (al *accessList) DeleteAddress(address common.Address) {
	if al.addresses[address] != 0 {
		panic("reverting account change, slots still present")
	}
	delete(al.addresses, address)
}

// Equal returns true if the two access lists are identical
func (al *accessList) Equal(other *accessList) bool {
	return maps.Equal(al.addresses, other.addresses) && maps.Equal(al.slots, other.slots)
}

// String lists the warm addresses with their warm slots.
func (al *accessList) String() string {
	addrs := make([]common.Address, 0, len(al.addresses))
	for addr := range al.addresses {
		addrs = append(addrs, addr)
	}
	slices.SortFunc(addrs, common.Address.Cmp)

	slots := make([]transientSlot, 0, len(al.slots))
	for slot := range al.slots {
		slots = append(slots, slot)
	}
	slices.SortFunc(slots, transientSlot.cmp)

	out := new(strings.Builder)
	for _, addr := range addrs {
		fmt.Fprintf(out, "%#x (%d slots)\n", addr, al.addresses[addr])
		for _, slot := range slots {
			if slot.addr == addr {
				fmt.Fprintf(out, "    %#x\n", slot.key)
			}
		}
	}
	return out.String()
}
