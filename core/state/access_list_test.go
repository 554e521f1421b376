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
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/go-evm/common"
)

func TestAccessListJournalOrder(t *testing.T) {
	var (
		addr  = common.HexToAddress("0x01")
		slot1 = common.HexToHash("0x01")
		slot2 = common.HexToHash("0x02")
	)
	al := newAccessList()

	addrAdded, slotAdded := al.AddSlot(addr, slot1)
	require.True(t, addrAdded)
	require.True(t, slotAdded)

	addrAdded, slotAdded = al.AddSlot(addr, slot2)
	require.False(t, addrAdded)
	require.True(t, slotAdded)

	addrAdded, slotAdded = al.AddSlot(addr, slot2)
	require.False(t, addrAdded)
	require.False(t, slotAdded)
	require.Equal(t, "0x0000000000000000000000000000000000000001 (2 slots)\n"+
		"    0x0000000000000000000000000000000000000000000000000000000000000001\n"+
		"    0x0000000000000000000000000000000000000000000000000000000000000002\n", al.String())

	cpy := al.Copy()

	// unwind in reverse order
	al.DeleteSlot(addr, slot2)
	addrOk, slotOk := al.Contains(addr, slot2)
	require.True(t, addrOk)
	require.False(t, slotOk)

	al.DeleteSlot(addr, slot1)
	al.DeleteAddress(addr)
	require.False(t, al.ContainsAddress(addr))
	require.True(t, al.Equal(newAccessList()))

	// the copy is unaffected
	addrOk, slotOk = cpy.Contains(addr, slot2)
	require.True(t, addrOk)
	require.True(t, slotOk)
}

func TestAccessListOutOfOrderRevertPanics(t *testing.T) {
	addr := common.HexToAddress("0x01")
	al := newAccessList()
	al.AddSlot(addr, common.HexToHash("0x01"))

	require.Panics(t, func() { al.DeleteAddress(addr) })
	require.Panics(t, func() { al.DeleteSlot(addr, common.HexToHash("0x02")) })
	require.Panics(t, func() { al.DeleteSlot(common.HexToAddress("0x02"), common.Hash{}) })
}

func TestTransientStorageSlots(t *testing.T) {
	var (
		a = common.HexToAddress("0x0a")
		b = common.HexToAddress("0x0b")
		k = common.HexToHash("0x01")
		v = common.HexToHash("0xff")
	)
	ts := newTransientStorage()
	ts.Set(b, k, v)
	ts.Set(a, k, v)
	require.Equal(t, v, ts.Get(a, k))
	require.Equal(t, common.Hash{}, ts.Get(a, common.Hash{}))

	cpy := ts.Copy()
	ts.Set(a, k, common.Hash{})
	require.Len(t, ts, 1, "zero writes delete the slot")
	require.Equal(t, v, cpy.Get(a, k))

	require.Equal(t, "0x000000000000000000000000000000000000000a:\n"+
		"  0000000000000000000000000000000000000000000000000000000000000001: 00000000000000000000000000000000000000000000000000000000000000ff\n"+
		"0x000000000000000000000000000000000000000b:\n"+
		"  0000000000000000000000000000000000000000000000000000000000000001: 00000000000000000000000000000000000000000000000000000000000000ff\n", cpy.String())
}
