// Copyright 2018 The go-ethereum Authors
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
// Package memorydb implements the key-value database layer based on memory maps.
package memorydb

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sunyihoo/go-evm/common"
	"github.com/sunyihoo/go-evm/ethdb"
)

// errMemorydbClosed is returned if a memory database was already closed at the
// invocation of a data access operation.
var errMemorydbClosed = errors.New("database closed")

// Database is an ephemeral key-value store. Apart from basic data storage
// functionality it also supports batch writes and iterating over the keyspace in
// binary-alphabetical order.
// 纯内存的键值存储，CLI 的默认后端，也是状态测试的底座。
type Database struct {
	db    map[string][]byte
	fault error // 注入的故障，非 nil 时所有访问都返回它
	lock  sync.RWMutex
}

// New returns a wrapped map with all the required database interface methods
// implemented.
func New() *Database {
	return &Database{
		db: make(map[string][]byte),
	}
}

// Fail makes every later access return err, as a broken disk would. Passing
// nil heals the store. Stored data is kept either way.
func (db *Database) Fail(err error) {
	db.lock.Lock()
	defer db.lock.Unlock()

	db.fault = err
}

// usable must be called with the lock held.
func (db *Database) usable() error {
	if db.db == nil {
		return errMemorydbClosed
	}
	return db.fault
}

// Close deallocates the internal map and ensures any consecutive data access op
// fails with an error.
func (db *Database) Close() error {
	db.lock.Lock()
	defer db.lock.Unlock()

	db.db = nil
	return nil
}

// Has retrieves if a key is present in the key-value store.
func (db *Database) Has(key []byte) (bool, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if err := db.usable(); err != nil {
		return false, err
	}
	_, ok := db.db[string(key)]
	return ok, nil
}

// Get retrieves the given key if it's present in the key-value store.
func (db *Database) Get(key []byte) ([]byte, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if err := db.usable(); err != nil {
		return nil, err
	}
	if entry, ok := db.db[string(key)]; ok {
		return common.CopyBytes(entry), nil
	}
	return nil, ethdb.ErrNotFound
}

// Put inserts the given value into the key-value store.
func (db *Database) Put(key []byte, value []byte) error {
	return db.apply([]keyvalue{{key: string(key), value: common.CopyBytes(value)}})
}

// Delete removes the key from the key-value store.
func (db *Database) Delete(key []byte) error {
	return db.apply([]keyvalue{{key: string(key), delete: true}})
}

// apply performs the writes under one lock, so a batch lands all at once.
func (db *Database) apply(writes []keyvalue) error {
	db.lock.Lock()
	defer db.lock.Unlock()

	if err := db.usable(); err != nil {
		return err
	}
	for _, kv := range writes {
		if kv.delete {
			delete(db.db, kv.key)
		} else {
			db.db[kv.key] = kv.value
		}
	}
	return nil
}

// NewBatch creates a write-only key-value store that buffers changes to its host
// database until a final write is called.
func (db *Database) NewBatch() ethdb.Batch {
	return &batch{db: db}
}

// NewIterator returns a snapshot iterator over the keys with the given prefix,
// starting at prefix+start. Later writes are not observed.
func (db *Database) NewIterator(prefix []byte, start []byte) ethdb.Iterator {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if err := db.usable(); err != nil {
		return &iterator{index: -1, err: err}
	}
	var (
		pr   = string(prefix)
		st   = pr + string(start)
		keys []string
	)
	for key := range db.db {
		if strings.HasPrefix(key, pr) && key >= st {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	values := make([][]byte, len(keys))
	for i, key := range keys {
		values[i] = db.db[key]
	}
	return &iterator{index: -1, keys: keys, values: values}
}

// Stat returns the number of stored entries.
func (db *Database) Stat() (string, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	if err := db.usable(); err != nil {
		return "", err
	}
	return fmt.Sprintf("memorydb entries: %d", len(db.db)), nil
}

// Len returns the number of stored entries. It ignores closing and injected
// faults, so tests can inspect a store they broke on purpose.
func (db *Database) Len() int {
	db.lock.RLock()
	defer db.lock.RUnlock()

	return len(db.db)
}

// keyvalue is one queued batch operation.
type keyvalue struct {
	key    string
	value  []byte
	delete bool
}

// batch is a write-only memory batch that commits changes to its host
// database when Write is called. A batch cannot be used concurrently.
type batch struct {
	db     *Database
	writes []keyvalue
	size   int
}

// Put inserts the given value into the batch for later committing.
func (b *batch) Put(key, value []byte) error {
	b.writes = append(b.writes, keyvalue{key: string(key), value: common.CopyBytes(value)})
	b.size += len(key) + len(value)
	return nil
}

// Delete inserts the key removal into the batch for later committing.
func (b *batch) Delete(key []byte) error {
	b.writes = append(b.writes, keyvalue{key: string(key), delete: true})
	b.size += len(key)
	return nil
}

// ValueSize retrieves the amount of data queued up for writing.
func (b *batch) ValueSize() int {
	return b.size
}

// Write flushes any accumulated data to the memory database.
func (b *batch) Write() error {
	return b.db.apply(b.writes)
}

// Reset resets the batch for reuse.
func (b *batch) Reset() {
	b.writes = b.writes[:0]
	b.size = 0
}

// Replay replays the batch contents.
func (b *batch) Replay(w ethdb.KeyValueWriter) error {
	for _, kv := range b.writes {
		var err error
		if kv.delete {
			err = w.Delete([]byte(kv.key))
		} else {
			err = w.Put([]byte(kv.key), kv.value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// iterator walks a sorted copy of the matched keyspace.
type iterator struct {
	index  int
	keys   []string
	values [][]byte
	err    error
}

func (it *iterator) valid() bool {
	return it.index >= 0 && it.index < len(it.keys)
}

// Next moves to the following pair and reports whether one exists.
func (it *iterator) Next() bool {
	if it.err != nil || it.index >= len(it.keys) {
		return false
	}
	it.index++
	return it.index < len(it.keys)
}

// Error returns the fault the store was failing with when the iterator was
// created, if any.
func (it *iterator) Error() error {
	return it.err
}

// Key returns the key of the current key/value pair, or nil if done.
func (it *iterator) Key() []byte {
	if !it.valid() {
		return nil
	}
	return []byte(it.keys[it.index])
}

// Value returns the value of the current key/value pair, or nil if done.
func (it *iterator) Value() []byte {
	if !it.valid() {
		return nil
	}
	return it.values[it.index]
}

// Release releases associated resources.
func (it *iterator) Release() {
	it.index, it.keys, it.values = -1, nil, nil
}
