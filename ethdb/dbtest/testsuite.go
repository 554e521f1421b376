// Copyright 2019 The go-ethereum Authors
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

// Package dbtest holds the conformance checks every ethdb.KeyValueStore backend
// must pass.
package dbtest

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sunyihoo/go-evm/ethdb"
)

// TestDatabaseSuite runs a suite of tests against a KeyValueStore database
// implementation.
func TestDatabaseSuite(t *testing.T, New func() ethdb.KeyValueStore) {
	t.Run("KeyValueOperations", func(t *testing.T) {
		db := New()
		defer db.Close()

		key := []byte("foo")
		if got, err := db.Has(key); err != nil {
			t.Error(err)
		} else if got {
			t.Errorf("wrong value: %t", got)
		}
		if _, err := db.Get(key); !errors.Is(err, ethdb.ErrNotFound) {
			t.Errorf("missing key: have %v, want %v", err, ethdb.ErrNotFound)
		}
		value := []byte("hello world")
		if err := db.Put(key, value); err != nil {
			t.Error(err)
		}
		if got, err := db.Has(key); err != nil {
			t.Error(err)
		} else if !got {
			t.Errorf("wrong value: %t", got)
		}
		if got, err := db.Get(key); err != nil {
			t.Error(err)
		} else if !bytes.Equal(got, value) {
			t.Errorf("wrong value: %q", got)
		}
		if err := db.Delete(key); err != nil {
			t.Error(err)
		}
		if got, err := db.Has(key); err != nil {
			t.Error(err)
		} else if got {
			t.Errorf("wrong value: %t", got)
		}
	})

	t.Run("Batch", func(t *testing.T) {
		db := New()
		defer db.Close()

		b := db.NewBatch()
		for _, k := range []string{"1", "2", "3", "4"} {
			if err := b.Put([]byte(k), nil); err != nil {
				t.Fatal(err)
			}
		}
		if has, err := db.Has([]byte("1")); err != nil {
			t.Fatal(err)
		} else if has {
			t.Error("db contains element before batch write")
		}
		if err := b.Write(); err != nil {
			t.Fatal(err)
		}
		if got := iterateKeys(db.NewIterator(nil, nil)); !equalKeys(got, []string{"1", "2", "3", "4"}) {
			t.Errorf("got keys %v", got)
		}
		b.Reset()
		if b.ValueSize() != 0 {
			t.Errorf("batch not reset, size %d", b.ValueSize())
		}
		for _, k := range []string{"1", "3"} {
			if err := b.Delete([]byte(k)); err != nil {
				t.Fatal(err)
			}
		}
		if err := b.Write(); err != nil {
			t.Fatal(err)
		}
		if got := iterateKeys(db.NewIterator(nil, nil)); !equalKeys(got, []string{"2", "4"}) {
			t.Errorf("got keys %v", got)
		}
	})

	t.Run("BatchReplay", func(t *testing.T) {
		db := New()
		defer db.Close()

		want := []string{"1", "2", "3", "4"}
		b := db.NewBatch()
		for _, k := range want {
			if err := b.Put([]byte(k), nil); err != nil {
				t.Fatal(err)
			}
		}
		b2 := db.NewBatch()
		if err := b.Replay(b2); err != nil {
			t.Fatal(err)
		}
		if err := b2.Write(); err != nil {
			t.Fatal(err)
		}
		if got := iterateKeys(db.NewIterator(nil, nil)); !equalKeys(got, want) {
			t.Errorf("got keys %v, want %v", got, want)
		}
	})

	t.Run("Iterator", func(t *testing.T) {
		db := New()
		defer db.Close()

		for _, k := range []string{"1", "2", "3", "5", "6", "10", "11", "12", "a", "aa", "ab"} {
			if err := db.Put([]byte(k), []byte("val-"+k)); err != nil {
				t.Fatal(err)
			}
		}
		tests := []struct {
			prefix, start string
			want          []string
		}{
			{"", "", []string{"1", "10", "11", "12", "2", "3", "5", "6", "a", "aa", "ab"}},
			{"1", "", []string{"1", "10", "11", "12"}},
			{"1", "1", []string{"11", "12"}},
			{"", "4", []string{"5", "6", "a", "aa", "ab"}},
			{"a", "b", []string{"ab"}},
			{"x", "", nil},
		}
		for i, tt := range tests {
			it := db.NewIterator([]byte(tt.prefix), []byte(tt.start))
			if got := iterateKeys(it); !equalKeys(got, tt.want) {
				t.Errorf("test %d: got %v, want %v", i, got, tt.want)
			}
		}
		it := db.NewIterator([]byte("5"), nil)
		if !it.Next() || string(it.Value()) != "val-5" {
			t.Errorf("wrong value under key 5: %q", it.Value())
		}
		it.Release()
	})

	t.Run("IteratorLeavesPrefixAlone", func(t *testing.T) {
		db := New()
		defer db.Close()

		if err := db.Put([]byte("ab"), []byte("v")); err != nil {
			t.Fatal(err)
		}
		// spare capacity behind the prefix must not be written to
		buf := []byte("axyz")
		prefix := buf[:1]
		it := db.NewIterator(prefix, []byte("b"))
		if got := iterateKeys(it); !equalKeys(got, []string{"ab"}) {
			t.Errorf("got keys %v, want [ab]", got)
		}
		if string(buf) != "axyz" {
			t.Errorf("prefix backing array modified: %q", buf)
		}
	})
}

func iterateKeys(it ethdb.Iterator) []string {
	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	it.Release()
	return keys
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
