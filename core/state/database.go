// Copyright 2017 The go-ethereum Authors
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
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/golang/snappy"
	bloomfilter "github.com/holiman/bloomfilter/v2"
	"github.com/sunyihoo/go-evm/common"
	"github.com/sunyihoo/go-evm/common/lru"
	"github.com/sunyihoo/go-evm/core/types"
	"github.com/sunyihoo/go-evm/crypto"
	"github.com/sunyihoo/go-evm/ethdb"
	"github.com/sunyihoo/go-evm/log"
)

const (
	// Cache size granted for caching clean code.
	codeCacheSize = 64 * 1024 * 1024

	// Number of decoded accounts (including known-missing ones) to keep.
	accountCacheSize = 4096

	// Number of bits in the absent-slot filter, and hash functions per key.
	slotFilterBits = 8 * 1024 * 1024 * 8
	slotFilterK    = 4
)

// Key layout of the flat state inside the key-value store:
//
//	accountPrefix + address            -> StateAccount.Encode()
//	storagePrefix + address + slot     -> slot value with leading zeroes trimmed
//	codePrefix + code hash             -> snappy compressed contract code
//	blockHashPrefix + number (uint64)  -> block hash
//
// 平铺存储，没有 trie：一个账户的所有槽位共享 storagePrefix+address 前缀，便于整体删除。
var (
	accountPrefix   = []byte("a")
	storagePrefix   = []byte("o")
	codePrefix      = []byte("c")
	blockHashPrefix = []byte("h")
)

// Backend is the read side of the world state that a StateDB overlays. Every
// method may fail; such a failure is a backend error, not an EVM-level
// exceptional halt, and is surfaced to the interpreter through StateDB.Error.
//
// Backend 的所有方法都可能失败，失败会被 StateDB 记录并中止整个执行。
type Backend interface {
	// Account returns the account stored under addr, or nil if there is none.
	Account(addr common.Address) (*types.StateAccount, error)

	// Code returns the contract code that hashes to codeHash.
	Code(addr common.Address, codeHash common.Hash) ([]byte, error)

	// Storage returns the value of the given slot. Absent slots are zero.
	Storage(addr common.Address, slot common.Hash) (common.Hash, error)

	// BlockHash returns the hash of the canonical block with the given number,
	// or the zero hash if it is unknown.
	BlockHash(number uint64) (common.Hash, error)
}

// Writer is implemented by backends that can persist a StateUpdate.
type Writer interface {
	Commit(update *StateUpdate) error
}

func accountKey(addr common.Address) []byte {
	return append(common.CopyBytes(accountPrefix), addr[:]...)
}

func storageKey(addr common.Address, slot common.Hash) []byte {
	key := make([]byte, 0, len(storagePrefix)+common.AddressLength+common.HashLength)
	key = append(key, storagePrefix...)
	key = append(key, addr[:]...)
	return append(key, slot[:]...)
}

func codeKey(hash common.Hash) []byte {
	return append(common.CopyBytes(codePrefix), hash[:]...)
}

func blockHashKey(number uint64) []byte {
	key := make([]byte, len(blockHashPrefix)+8)
	copy(key, blockHashPrefix)
	binary.BigEndian.PutUint64(key[len(blockHashPrefix):], number)
	return key
}

// slotBloomHash maps a storage key to the 64-bit value fed into the filter.
func slotBloomHash(key []byte) uint64 {
	return binary.BigEndian.Uint64(crypto.Keccak256(key)[:8])
}

// Database is a Backend keeping the flat state in an ethdb.KeyValueStore.
// Clean code is cached in a fastcache, decoded accounts in an LRU, and a bloom
// filter over every stored slot key short-circuits reads of empty slots.
//
// Database is not safe for concurrent Commit calls.
type Database struct {
	disk      ethdb.KeyValueStore
	codeCache *fastcache.Cache
	accounts  *lru.Cache[common.Address, *types.StateAccount]
	slots     *bloomfilter.Filter // 假阳性只会多查一次磁盘，假阴性不存在
	logger    log.Logger
}

// NewDatabase wraps the given key-value store as a state backend. The slot
// filter is seeded from the storage entries already present in the store.
func NewDatabase(disk ethdb.KeyValueStore) (*Database, error) {
	filter, err := bloomfilter.New(slotFilterBits, slotFilterK)
	if err != nil {
		return nil, err
	}
	db := &Database{
		disk:      disk,
		codeCache: fastcache.New(codeCacheSize),
		accounts:  lru.NewCache[common.Address, *types.StateAccount](accountCacheSize),
		slots:     filter,
		logger:    log.New("module", "state"),
	}
	it := disk.NewIterator(storagePrefix, nil)
	defer it.Release()

	var seeded int
	for it.Next() {
		db.slots.AddHash(slotBloomHash(it.Key()))
		seeded++
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("failed to seed slot filter: %w", err)
	}
	db.logger.Debug("Opened state database", "slots", seeded)
	return db, nil
}

// DiskDB returns the underlying key-value store.
func (db *Database) DiskDB() ethdb.KeyValueStore {
	return db.disk
}

// Account implements Backend.
func (db *Database) Account(addr common.Address) (*types.StateAccount, error) {
	if acct, ok := db.accounts.Get(addr); ok {
		if acct == nil {
			return nil, nil
		}
		return acct.Copy(), nil
	}
	blob, err := db.disk.Get(accountKey(addr))
	if errors.Is(err, ethdb.ErrNotFound) {
		db.accounts.Add(addr, nil)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	acct, err := types.DecodeStateAccount(blob)
	if err != nil {
		return nil, fmt.Errorf("account %x: %w", addr, err)
	}
	db.accounts.Add(addr, acct)
	return acct.Copy(), nil
}

// Code implements Backend.
func (db *Database) Code(addr common.Address, codeHash common.Hash) ([]byte, error) {
	if codeHash == types.EmptyCodeHash {
		return nil, nil
	}
	if code, ok := db.codeCache.HasGet(nil, codeHash[:]); ok {
		return code, nil
	}
	blob, err := db.disk.Get(codeKey(codeHash))
	if err != nil {
		if errors.Is(err, ethdb.ErrNotFound) {
			return nil, fmt.Errorf("missing code %x of account %x", codeHash, addr)
		}
		return nil, err
	}
	code, err := snappy.Decode(nil, blob)
	if err != nil {
		return nil, fmt.Errorf("corrupt code %x: %w", codeHash, err)
	}
	db.codeCache.Set(codeHash[:], code)
	return code, nil
}

// Storage implements Backend.
func (db *Database) Storage(addr common.Address, slot common.Hash) (common.Hash, error) {
	key := storageKey(addr, slot)
	if !db.slots.ContainsHash(slotBloomHash(key)) {
		return common.Hash{}, nil
	}
	blob, err := db.disk.Get(key)
	if errors.Is(err, ethdb.ErrNotFound) {
		return common.Hash{}, nil
	}
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(blob), nil
}

// BlockHash implements Backend.
func (db *Database) BlockHash(number uint64) (common.Hash, error) {
	blob, err := db.disk.Get(blockHashKey(number))
	if errors.Is(err, ethdb.ErrNotFound) {
		return common.Hash{}, nil
	}
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(blob), nil
}

// SetBlockHash records the hash of a historical block so that the BLOCKHASH
// opcode can serve it.
func (db *Database) SetBlockHash(number uint64, hash common.Hash) error {
	return db.disk.Put(blockHashKey(number), hash[:])
}

// Commit writes the given state update into the key-value store in a single
// batch. Destructed accounts have all of their storage wiped before the
// updated accounts are applied, so an account destructed and re-created in
// the same update ends up with only its new slots.
//
// Commit 先处理销毁再处理更新，整个更新在一个 batch 中原子写入。
func (db *Database) Commit(update *StateUpdate) error {
	if update.Empty() {
		return nil
	}
	batch := db.disk.NewBatch()
	var wiped int
	for addr := range update.Destructs {
		if err := batch.Delete(accountKey(addr)); err != nil {
			return err
		}
		n, err := db.wipeStorage(batch, addr)
		if err != nil {
			return err
		}
		wiped += n
	}
	for addr, acct := range update.Accounts {
		if err := batch.Put(accountKey(addr), acct.Encode()); err != nil {
			return err
		}
	}
	for hash, code := range update.Codes {
		if err := batch.Put(codeKey(hash), snappy.Encode(nil, code)); err != nil {
			return err
		}
	}
	var slots []uint64
	for addr, storage := range update.Storages {
		for slot, value := range storage {
			key := storageKey(addr, slot)
			if value == (common.Hash{}) {
				if err := batch.Delete(key); err != nil {
					return err
				}
				continue
			}
			if err := batch.Put(key, common.TrimLeftZeroes(value[:])); err != nil {
				return err
			}
			slots = append(slots, slotBloomHash(key))
		}
	}
	size := batch.ValueSize()
	if err := batch.Write(); err != nil {
		return fmt.Errorf("failed to write state update: %w", err)
	}
	// Caches are refreshed only once the batch made it to disk.
	for _, h := range slots {
		db.slots.AddHash(h)
	}
	for addr := range update.Destructs {
		db.accounts.Add(addr, nil)
	}
	for addr, acct := range update.Accounts {
		db.accounts.Add(addr, acct.Copy())
	}
	for hash, code := range update.Codes {
		db.codeCache.Set(hash[:], code)
	}
	db.logger.Debug("Committed state", "accounts", len(update.Accounts), "destructs", len(update.Destructs),
		"codes", len(update.Codes), "wiped", wiped, "size", common.StorageSize(size))
	return nil
}

// wipeStorage schedules the deletion of every slot of addr into the batch.
func (db *Database) wipeStorage(batch ethdb.Batch, addr common.Address) (int, error) {
	prefix := append(common.CopyBytes(storagePrefix), addr[:]...)
	it := db.disk.NewIterator(prefix, nil)
	defer it.Release()

	var n int
	for it.Next() {
		if !bytes.HasPrefix(it.Key(), prefix) {
			break
		}
		if err := batch.Delete(common.CopyBytes(it.Key())); err != nil {
			return n, err
		}
		n++
	}
	return n, it.Error()
}
