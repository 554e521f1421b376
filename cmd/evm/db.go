// Copyright 2021 The go-ethereum Authors
// This file is part of go-ethereum.
//
// go-ethereum is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// go-ethereum is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with go-ethereum. If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/sunyihoo/go-evm/ethdb"
	"github.com/sunyihoo/go-evm/ethdb/leveldb"
	"github.com/sunyihoo/go-evm/ethdb/memorydb"
	"github.com/sunyihoo/go-evm/ethdb/pebble"
	"github.com/sunyihoo/go-evm/log"
)

// errDatadirUsed is returned when another evm process holds the data
// directory.
var errDatadirUsed = errors.New("datadir already used by another process")

// openDatabase opens the key-value store selected by the state config.
// Persistent stores live in the state subdirectory of the data directory,
// which is locked for the lifetime of the returned store.
func openDatabase(cfg stateConfig) (ethdb.KeyValueStore, error) {
	var open func(dir string) (ethdb.KeyValueStore, error)
	switch cfg.DB {
	case "", "memory":
		return memorydb.New(), nil
	case "leveldb":
		open = func(dir string) (ethdb.KeyValueStore, error) {
			return leveldb.New(dir, cfg.Cache, cfg.Handles, false)
		}
	case "pebble":
		open = func(dir string) (ethdb.KeyValueStore, error) {
			return pebble.New(dir, cfg.Cache, cfg.Handles, false)
		}
	default:
		return nil, fmt.Errorf("unknown database type %q", cfg.DB)
	}
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, err
	}
	lock := flock.New(filepath.Join(cfg.DataDir, "LOCK"))
	if locked, err := lock.TryLock(); err != nil {
		return nil, err
	} else if !locked {
		return nil, errDatadirUsed
	}
	dir := filepath.Join(cfg.DataDir, "state")
	log.Debug("Opening state database", "type", cfg.DB, "dir", dir, "cache", cfg.Cache, "handles", cfg.Handles)
	db, err := open(dir)
	if err != nil {
		lock.Unlock()
		return nil, err
	}
	return &lockedStore{KeyValueStore: db, lock: lock}, nil
}

// lockedStore releases the data directory lock once the store is closed.
type lockedStore struct {
	ethdb.KeyValueStore
	lock *flock.Flock
}

func (s *lockedStore) Close() error {
	err := s.KeyValueStore.Close()
	if uerr := s.lock.Unlock(); err == nil {
		err = uerr
	}
	return err
}

func showDBStats(w io.Writer, db ethdb.KeyValueStater) {
	stats, err := db.Stat()
	if err != nil {
		log.Warn("Failed to read database stats", "error", err)
		return
	}
	fmt.Fprintln(w, stats)
}
