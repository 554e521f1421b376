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
// Package pebble implements the key-value database layer based on pebble.
package pebble

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
	"github.com/sunyihoo/go-evm/common"
	"github.com/sunyihoo/go-evm/ethdb"
	"github.com/sunyihoo/go-evm/log"
)

const (
	// minCache is the minimum amount of memory in megabytes to allocate to pebble
	// read and write caching, split half and half.
	minCache = 16

	// minHandles is the minimum number of files handles to allocate to the open
	// database files.
	minHandles = 16

	// numLevels is the depth of the LSM tree.
	numLevels = 7
)

var errReadOnly = errors.New("database opened read-only")

// compactionStats is filled in by the pebble event listener. Pebble calls the
// listener from its own goroutines.
type compactionStats struct {
	mu          sync.Mutex
	active      int
	activeSince time.Time
	total       time.Duration
	perLevel    [numLevels]int // compactions by input level

	stallSince time.Time
	stalls     int
	stallTime  time.Duration
}

func (s *compactionStats) begin(info pebble.CompactionInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == 0 {
		s.activeSince = time.Now()
	}
	s.active++
	if len(info.Input) > 0 {
		if l := info.Input[0].Level; l >= 0 && l < numLevels {
			s.perLevel[l]++
		}
	}
}

func (s *compactionStats) end(pebble.CompactionInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == 0 {
		return
	}
	s.active--
	// 只统计有压缩进行的墙钟时间，并发的压缩不重复计算
	if s.active == 0 {
		s.total += time.Since(s.activeSince)
	}
}

func (s *compactionStats) stallBegin() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stallSince = time.Now()
	s.stalls++
}

func (s *compactionStats) stallEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.stallSince.IsZero() {
		s.stallTime += time.Since(s.stallSince)
		s.stallSince = time.Time{}
	}
}

func (s *compactionStats) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	levels := make([]string, numLevels)
	for i, n := range s.perLevel {
		levels[i] = fmt.Sprintf("L%d=%d", i, n)
	}
	return fmt.Sprintf("compactions: %s active=%d time=%v\nwrite stalls: count=%d time=%v\n",
		strings.Join(levels, " "), s.active, s.total, s.stalls, s.stallTime)
}

// Database is a persistent key-value store based on the pebble storage engine.
// Apart from basic data storage functionality it also supports batch writes and
// iterating over the keyspace in binary-alphabetical order.
type Database struct {
	fn       string     // filename for reporting
	db       *pebble.DB // Underlying pebble storage engine
	readonly bool

	quitLock sync.RWMutex // Mutex protecting the closed flag
	closed   bool         // keep track of whether we're Closed

	log   log.Logger // Contextual logger tracking the database path
	stats compactionStats
}

// silentLogger is just a noop logger to disable Pebble's internal logger.
type silentLogger struct{}

func (silentLogger) Infof(format string, args ...interface{})  {}
func (silentLogger) Errorf(format string, args ...interface{}) {}

func (silentLogger) Fatalf(format string, args ...interface{}) {
	panic(fmt.Errorf("fatal: "+format, args...))
}

// New opens the pebble store in the directory file, creating it unless
// readonly is set.
// 缓存一半分给 block cache，另一半分给两个 memtable。
func New(file string, cache int, handles int, readonly bool) (*Database, error) {
	cache = max(cache, minCache)
	handles = max(handles, minHandles)

	logger := log.New("database", file)
	logger.Info("Allocated cache and file handles", "cache", common.StorageSize(cache*1024*1024), "handles", handles, "readonly", readonly)

	// The max memtable size is limited by the uint32 offsets stored in
	// internal/arenaskl.node, DeferredBatchOp, and flushableBatchEntry.
	maxMemTableSize := (1<<31)<<(^uint(0)>>63) - 1

	memTableLimit := 2
	memTableSize := min(cache*1024*1024/2/memTableLimit, maxMemTableSize-1)

	db := &Database{fn: file, log: logger, readonly: readonly}

	levels := make([]pebble.LevelOptions, numLevels)
	for i := range levels {
		levels[i] = pebble.LevelOptions{
			TargetFileSize: int64(2*1024*1024) << i,
			FilterPolicy:   bloom.FilterPolicy(10),
		}
	}
	opt := &pebble.Options{
		Cache:                       pebble.NewCache(int64(cache * 1024 * 1024)),
		MaxOpenFiles:                handles,
		MemTableSize:                uint64(memTableSize),
		MemTableStopWritesThreshold: memTableLimit,
		MaxConcurrentCompactions:    runtime.NumCPU,
		Levels:                      levels,
		ReadOnly:                    readonly,
		EventListener: &pebble.EventListener{
			CompactionBegin: db.stats.begin,
			CompactionEnd:   db.stats.end,
			WriteStallBegin: func(info pebble.WriteStallBeginInfo) {
				db.stats.stallBegin()
				db.log.Warn("Database compacting, degraded performance", "reason", info.Reason)
			},
			WriteStallEnd: db.stats.stallEnd,
		},
		Logger: silentLogger{},
	}
	// Disable seek compaction explicitly.
	opt.Experimental.ReadSamplingMultiplier = -1

	innerDB, err := pebble.Open(file, opt)
	if err != nil {
		return nil, err
	}
	db.db = innerDB
	return db, nil
}

// Close flushes any pending data to disk and closes all io accesses to the
// underlying key-value store.
func (d *Database) Close() error {
	d.quitLock.Lock()
	defer d.quitLock.Unlock()
	// Allow double closing, simplifies things
	if d.closed {
		return nil
	}
	d.closed = true
	return d.db.Close()
}

// usable must be called with quitLock held.
func (d *Database) usable() error {
	if d.closed {
		return pebble.ErrClosed
	}
	return nil
}

// writable must be called with quitLock held.
func (d *Database) writable() error {
	if d.readonly {
		return errReadOnly
	}
	return d.usable()
}

// Has retrieves if a key is present in the key-value store.
func (d *Database) Has(key []byte) (bool, error) {
	d.quitLock.RLock()
	defer d.quitLock.RUnlock()
	if err := d.usable(); err != nil {
		return false, err
	}
	_, closer, err := d.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, closer.Close()
}

// Get retrieves the given key if it's present in the key-value store.
func (d *Database) Get(key []byte) ([]byte, error) {
	d.quitLock.RLock()
	defer d.quitLock.RUnlock()
	if err := d.usable(); err != nil {
		return nil, err
	}
	dat, closer, err := d.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ethdb.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ret := common.CopyBytes(dat)
	if ret == nil {
		ret = []byte{}
	}
	if err = closer.Close(); err != nil {
		return nil, err
	}
	return ret, nil
}

// Put inserts the given value into the key-value store.
func (d *Database) Put(key []byte, value []byte) error {
	d.quitLock.RLock()
	defer d.quitLock.RUnlock()
	if err := d.writable(); err != nil {
		return err
	}
	return d.db.Set(key, value, pebble.NoSync)
}

// Delete removes the key from the key-value store.
func (d *Database) Delete(key []byte) error {
	d.quitLock.RLock()
	defer d.quitLock.RUnlock()
	if err := d.writable(); err != nil {
		return err
	}
	return d.db.Delete(key, pebble.NoSync)
}

// NewBatch creates a write-only key-value store that buffers changes to its host
// database until a final write is called.
func (d *Database) NewBatch() ethdb.Batch {
	return &batch{
		b:  d.db.NewBatch(),
		db: d,
	}
}

// upperBound returns the upper bound for the given prefix
func upperBound(prefix []byte) (limit []byte) {
	for i := len(prefix) - 1; i >= 0; i-- {
		c := prefix[i]
		if c == 0xff {
			continue
		}
		limit = make([]byte, i+1)
		copy(limit, prefix)
		limit[i] = c + 1
		break
	}
	return limit
}

// Stat returns the internal metrics of Pebble in a text format, followed by
// the compaction and write stall counters gathered by the event listener.
func (d *Database) Stat() (string, error) {
	d.quitLock.RLock()
	defer d.quitLock.RUnlock()
	if err := d.usable(); err != nil {
		return "", err
	}
	return d.db.Metrics().String() + "\n" + d.stats.String(), nil
}

// Path returns the path to the database directory.
func (d *Database) Path() string {
	return d.fn
}

// batch is a write-only batch that commits changes to its host database
// when Write is called. A batch cannot be used concurrently.
type batch struct {
	b    *pebble.Batch
	db   *Database
	size int
}

// Put inserts the given value into the batch for later committing.
func (b *batch) Put(key, value []byte) error {
	if err := b.b.Set(key, value, nil); err != nil {
		return err
	}
	b.size += len(key) + len(value)
	return nil
}

// Delete inserts the key removal into the batch for later committing.
func (b *batch) Delete(key []byte) error {
	if err := b.b.Delete(key, nil); err != nil {
		return err
	}
	b.size += len(key)
	return nil
}

// ValueSize retrieves the amount of data queued up for writing.
func (b *batch) ValueSize() int {
	return b.size
}

// Write applies the batch and syncs the WAL. A state update is the last thing
// a run does before the process exits, so it has to be on disk when Write
// returns.
func (b *batch) Write() error {
	b.db.quitLock.RLock()
	defer b.db.quitLock.RUnlock()
	if err := b.db.writable(); err != nil {
		return err
	}
	return b.b.Commit(pebble.Sync)
}

// Reset resets the batch for reuse.
func (b *batch) Reset() {
	b.b.Reset()
	b.size = 0
}

// Replay replays the batch contents.
func (b *batch) Replay(w ethdb.KeyValueWriter) error {
	reader := b.b.Reader()
	for {
		kind, k, v, ok, err := reader.Next()
		if !ok || err != nil {
			return err
		}
		// The (k,v) slices might be overwritten if the batch is reset/reused,
		// and the receiver should copy them if they are to be retained long-term.
		if kind == pebble.InternalKeyKindSet {
			if err = w.Put(k, v); err != nil {
				return err
			}
		} else if kind == pebble.InternalKeyKindDelete {
			if err = w.Delete(k); err != nil {
				return err
			}
		} else {
			return fmt.Errorf("unhandled operation, keytype: %v", kind)
		}
	}
}

// pebbleIterator is a wrapper of underlying iterator in storage engine.
// The purpose of this structure is to implement the missing APIs.
//
// The pebble iterator is not thread-safe.
type pebbleIterator struct {
	iter     *pebble.Iterator
	err      error // set when the iterator could not be opened
	moved    bool
	released bool
}

// NewIterator creates a binary-alphabetical iterator over a subset
// of database content with a particular key prefix, starting at a particular
// initial key (or after, if it does not exist).
func (d *Database) NewIterator(prefix []byte, start []byte) ethdb.Iterator {
	iter, err := d.db.NewIter(&pebble.IterOptions{
		LowerBound: slices.Concat(prefix, start),
		UpperBound: upperBound(prefix),
	})
	if err != nil {
		return &pebbleIterator{err: err, released: true}
	}
	iter.First()
	return &pebbleIterator{iter: iter, moved: true}
}

// Next moves the iterator to the next key/value pair. It returns whether the
// iterator is exhausted.
func (iter *pebbleIterator) Next() bool {
	if iter.err != nil {
		return false
	}
	if iter.moved {
		iter.moved = false
		return iter.iter.Valid()
	}
	return iter.iter.Next()
}

// Error returns any accumulated error. Exhausting all the key/value pairs
// is not considered to be an error.
func (iter *pebbleIterator) Error() error {
	if iter.err != nil {
		return iter.err
	}
	return iter.iter.Error()
}

// Key returns the key of the current key/value pair, or nil if done. The caller
// should not modify the contents of the returned slice, and its contents may
// change on the next call to Next.
func (iter *pebbleIterator) Key() []byte {
	if iter.err != nil {
		return nil
	}
	return iter.iter.Key()
}

// Value returns the value of the current key/value pair, or nil if done. The
// caller should not modify the contents of the returned slice, and its contents
// may change on the next call to Next.
func (iter *pebbleIterator) Value() []byte {
	if iter.err != nil {
		return nil
	}
	return iter.iter.Value()
}

// Release releases associated resources. Release should always succeed and can
// be called multiple times without causing error.
func (iter *pebbleIterator) Release() {
	if !iter.released {
		iter.iter.Close()
		iter.released = true
	}
}
