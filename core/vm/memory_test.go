// Copyright 2023 The go-ethereum Authors
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
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/go-evm/common"
)

func TestMemoryResizeRounds(t *testing.T) {
	m := NewMemory()
	defer m.Free()

	m.Resize(1)
	require.Equal(t, 32, m.Len())
	m.Resize(33)
	require.Equal(t, 64, m.Len())
	m.Resize(10) // never shrinks
	require.Equal(t, 64, m.Len())
	require.True(t, bytes.Equal(m.Data(), make([]byte, 64)))
}

func TestMemoryOutOfBounds(t *testing.T) {
	m := NewMemory()
	defer m.Free()
	m.Resize(32)

	require.True(t, errors.Is(m.Set(16, 32, make([]byte, 32)), ErrMemoryOutOfBounds))
	require.True(t, errors.Is(m.Set32(1, uint256.NewInt(1)), ErrMemoryOutOfBounds))
	_, err := m.GetCopy(0, 33)
	require.True(t, errors.Is(err, ErrMemoryOutOfBounds))
	_, err = m.GetPtr(^uint64(0), 2)
	require.True(t, errors.Is(err, ErrMemoryOutOfBounds))
	require.True(t, errors.Is(m.Copy(0, 1, 32), ErrMemoryOutOfBounds))

	// zero sized accesses never fail
	require.NoError(t, m.Set(1000, 0, nil))
	out, err := m.GetCopy(1000, 0)
	require.NoError(t, err)
	require.Nil(t, out)
}

func TestMemorySet32(t *testing.T) {
	m := NewMemory()
	defer m.Free()
	m.Resize(64)

	require.NoError(t, m.Set32(32, uint256.NewInt(0x0102)))
	got, err := m.GetCopy(32, 32)
	require.NoError(t, err)
	want := make([]byte, 32)
	want[30], want[31] = 1, 2
	require.Equal(t, want, got)
}

func TestMemoryCopy(t *testing.T) {
	// Test cases from https://eips.ethereum.org/EIPS/eip-5656#test-cases
	for i, tc := range []struct {
		dst, src, len uint64
		pre           string
		want          string
	}{
		{ // MCOPY 0 32 32 - copy 32 bytes from offset 32 to offset 0.
			0, 32, 32,
			"0000000000000000000000000000000000000000000000000000000000000000 000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f",
			"000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f 000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f",
		},
		{ // MCOPY 0 0 32 - copy 32 bytes from offset 0 to offset 0.
			0, 0, 32,
			"0101010101010101010101010101010101010101010101010101010101010101",
			"0101010101010101010101010101010101010101010101010101010101010101",
		},
		{ // MCOPY 0 1 8 - copy 8 bytes from offset 1 to offset 0 (overlapping).
			0, 1, 8,
			"000102030405060708 000000000000000000000000000000000000000000000000",
			"010203040506070808 000000000000000000000000000000000000000000000000",
		},
		{ // MCOPY 1 0 8 - copy 8 bytes from offset 0 to offset 1 (overlapping).
			1, 0, 8,
			"000102030405060708 000000000000000000000000000000000000000000000000",
			"000001020304050607 000000000000000000000000000000000000000000000000",
		},
	} {
		m := NewMemory()
		data := fromSpacedHex(tc.pre)
		m.Resize(uint64(len(data)))
		require.NoError(t, m.Set(0, uint64(len(data)), data))
		require.NoError(t, m.Copy(tc.dst, tc.src, tc.len), "case %d", i)
		require.Equal(t, fromSpacedHex(tc.want), m.Data()[:len(data)], "case %d", i)
		m.Free()
	}
}

func fromSpacedHex(s string) []byte {
	return common.FromHex(strings.ReplaceAll(s, " ", ""))
}

func TestMemoryGasCost(t *testing.T) {
	tests := []struct {
		size     uint64
		cost     uint64
		overflow bool
	}{
		{0x1fffffffe0, 36028809887088637, false},
		{0x1fffffffe1, 0, true},
		{32, 3, false},
		{1024, 98, false},
	}
	for i, tt := range tests {
		v, err := memoryGasCost(&Memory{}, tt.size)
		if (err == ErrGasUintOverflow) != tt.overflow {
			t.Errorf("test %d: overflow mismatch: have %v, want %v", i, err == ErrGasUintOverflow, tt.overflow)
		}
		if v != tt.cost {
			t.Errorf("test %d: gas cost mismatch: have %v, want %v", i, v, tt.cost)
		}
	}
}

func TestMemoryGasCostIsIncremental(t *testing.T) {
	m := &Memory{}
	first, err := memoryGasCost(m, 64)
	require.NoError(t, err)
	require.Equal(t, uint64(6), first)
	m.Resize(64)

	// growing to the same size is free, growing further pays the delta
	again, err := memoryGasCost(m, 64)
	require.NoError(t, err)
	require.Zero(t, again)

	more, err := memoryGasCost(m, 1024)
	require.NoError(t, err)
	require.Equal(t, uint64(98-6), more)
}
