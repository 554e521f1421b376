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

// Package ethdb defines the key-value store the state backend persists into.
// 这里只保留键值存储接口：KV 状态后端把账户、代码和存储槽平铺写入其中。
package ethdb

import (
	"errors"
	"io"
)

// ErrNotFound is returned by every KeyValueReader implementation when the
// requested key is absent. Callers use errors.Is to tell a missing entry apart
// from a failing store.
var ErrNotFound = errors.New("not found")

// KeyValueReader reads single entries.
type KeyValueReader interface {
	Has(key []byte) (bool, error)
	Get(key []byte) ([]byte, error)
}

// KeyValueWriter writes single entries. Deleting an absent key is not an error.
type KeyValueWriter interface {
	Put(key []byte, value []byte) error
	Delete(key []byte) error
}

// KeyValueStater reports backend statistics in a human readable form.
type KeyValueStater interface {
	Stat() (string, error)
}

// Batch buffers writes until Write applies them to the host store in one go.
// A batch is not safe for concurrent use.
// 状态提交时所有脏数据先写入一个 Batch，再一次性落盘。
type Batch interface {
	KeyValueWriter

	// ValueSize returns the number of key and value bytes queued so far.
	ValueSize() int

	// Write applies the queued operations atomically.
	Write() error

	// Reset empties the batch for reuse.
	Reset()

	// Replay feeds the queued operations, in order, into w.
	Replay(w KeyValueWriter) error
}

// Batcher creates batches against a store.
type Batcher interface {
	NewBatch() Batch
}

// Iterator walks key/value pairs in ascending key order.
//
// Once an error is hit Next returns false and Error reports it. Release must be
// called in every case, and may be called more than once.
type Iterator interface {
	Next() bool
	Error() error

	// Key and Value are only valid until the next call to Next and must
	// not be modified.
	Key() []byte
	Value() []byte

	Release()
}

// Iteratee creates prefix iterators.
// 状态后端启动时按前缀遍历存储槽键来预热布隆过滤器。
type Iteratee interface {
	// NewIterator iterates the keys carrying prefix, beginning at prefix+start.
	// start must not include the prefix.
	NewIterator(prefix []byte, start []byte) Iterator
}

// KeyValueStore is the full contract of a state backend store.
type KeyValueStore interface {
	KeyValueReader
	KeyValueWriter
	KeyValueStater
	Batcher
	Iteratee
	io.Closer
}
