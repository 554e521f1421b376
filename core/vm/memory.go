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

package vm

import (
	"sync"

	"github.com/holiman/uint256"
)

var memoryPool = sync.Pool{
	New: func() any {
		return &Memory{}
	},
}

// Memory implements a simple memory model for the ethereum virtual machine.
//
// The interpreter resizes (and charges for) memory before an instruction
// touches it. Accesses outside the current length are reported with
// ErrMemoryOutOfBounds.
type Memory struct {
	store       []byte
	lastGasCost uint64 // 上次已收取的内存扩展费用，下次只收差值
}

// NewMemory returns a new memory model.
func NewMemory() *Memory {
	return memoryPool.Get().(*Memory)
}

// Free returns the memory to the pool.
func (m *Memory) Free() {
	// To reduce peak allocation, return only smaller memory instances to the pool.
	const maxBufferSize = 16 << 10
	if cap(m.store) <= maxBufferSize {
		m.store = m.store[:0]
		m.lastGasCost = 0
		memoryPool.Put(m)
	}
}

// inBounds reports whether [offset, offset+size) lies within the store.
func (m *Memory) inBounds(offset, size uint64) bool {
	end := offset + size
	return end >= offset && end <= uint64(len(m.store))
}

// Set sets offset + size to value
func (m *Memory) Set(offset, size uint64, value []byte) error {
	// It's possible the offset is greater than 0 and size equals 0. This is because
	// the calcMemSize (common.go) could potentially return 0 when size is zero (NO-OP)
	if size == 0 {
		return nil
	}
	if !m.inBounds(offset, size) {
		return ErrMemoryOutOfBounds
	}
	copy(m.store[offset:offset+size], value)
	return nil
}

// Set32 sets the 32 bytes starting at offset to the value of val, left-padded with zeroes to
// 32 bytes.
func (m *Memory) Set32(offset uint64, val *uint256.Int) error {
	if !m.inBounds(offset, 32) {
		return ErrMemoryOutOfBounds
	}
	val.PutUint256(m.store[offset:])
	return nil
}

// Resize grows the memory to the smallest multiple of 32 bytes that holds
// size bytes. Memory never shrinks.
func (m *Memory) Resize(size uint64) {
	if size%32 != 0 {
		size += 32 - size%32
	}
	if uint64(m.Len()) < size {
		m.store = append(m.store, make([]byte, size-uint64(m.Len()))...)
	}
}

// GetCopy returns offset + size as a new slice
func (m *Memory) GetCopy(offset, size uint64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	if !m.inBounds(offset, size) {
		return nil, ErrMemoryOutOfBounds
	}
	cpy := make([]byte, size)
	copy(cpy, m.store[offset:offset+size])
	return cpy, nil
}

// GetPtr returns the offset + size
func (m *Memory) GetPtr(offset, size uint64) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	if !m.inBounds(offset, size) {
		return nil, ErrMemoryOutOfBounds
	}
	return m.store[offset : offset+size], nil
}

// Len returns the length of the backing slice
func (m *Memory) Len() int {
	return len(m.store)
}

// Data returns the backing slice
func (m *Memory) Data() []byte {
	return m.store
}

// Copy copies data from the src position slice into the dst position.
// The source and destination may overlap.
// 源和目标区间可以重叠，等价于经由临时缓冲区复制。
func (m *Memory) Copy(dst, src, len uint64) error {
	if len == 0 {
		return nil
	}
	if !m.inBounds(dst, len) || !m.inBounds(src, len) {
		return ErrMemoryOutOfBounds
	}
	copy(m.store[dst:], m.store[src:src+len])
	return nil
}
