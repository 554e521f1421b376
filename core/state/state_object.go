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

package state

import (
	"bytes"
	"fmt"
	"maps"
	"slices"

	"github.com/holiman/uint256"
	"github.com/sunyihoo/go-evm/common"
	"github.com/sunyihoo/go-evm/core/types"
)

// Storage is a set of slot values of one account.
type Storage map[common.Hash]common.Hash

func (s Storage) Copy() Storage {
	return maps.Clone(s)
}

// stateObject represents an account which is being modified.
//
// Storage is layered in three caches, searched from the newest:
//
//	dirtyStorage   - written within the current transaction
//	pendingStorage - finalised by earlier transactions, not yet committed
//	originStorage  - values as read from (or last committed to) the backend
//
// 读槽位时依次查 dirty、pending、origin，最后才访问 Backend。
type stateObject struct {
	db      *StateDB
	address common.Address
	origin  *types.StateAccount // nil if the account did not exist in the backend
	data    types.StateAccount

	code      []byte // loaded lazily from the backend
	dirtyCode bool

	originStorage  Storage
	pendingStorage Storage
	dirtyStorage   Storage

	// Flag whether the account was marked as self-destructed. The account is
	// still accessible in the scope of the same transaction.
	selfDestructed bool
}

// empty returns whether the account is considered empty (EIP-161).
func (s *stateObject) empty() bool {
	return s.data.Nonce == 0 && s.data.Balance.IsZero() && bytes.Equal(s.data.CodeHash, types.EmptyCodeHash.Bytes())
}

// newObject creates a state object. acct is nil for accounts unknown to the
// backend.
func newObject(db *StateDB, address common.Address, acct *types.StateAccount) *stateObject {
	origin := acct
	if acct == nil {
		acct = types.NewEmptyStateAccount()
	}
	if acct.Balance == nil {
		acct.Balance = new(uint256.Int)
	}
	if len(acct.CodeHash) == 0 {
		acct.CodeHash = types.EmptyCodeHash.Bytes()
	}
	return &stateObject{
		db:             db,
		address:        address,
		origin:         origin,
		data:           *acct,
		originStorage:  make(Storage),
		pendingStorage: make(Storage),
		dirtyStorage:   make(Storage),
	}
}

func (s *stateObject) markSelfdestructed() {
	s.selfDestructed = true
}

func (s *stateObject) touch() {
	s.db.journal.touchChange(s.address)
}

// GetState retrieves a value associated with the given storage key.
func (s *stateObject) GetState(key common.Hash) common.Hash {
	value, _ := s.getState(key)
	return value
}

// getState retrieves a value associated with the given storage key, along with
// its original value.
func (s *stateObject) getState(key common.Hash) (common.Hash, common.Hash) {
	origin := s.GetCommittedState(key)
	if value, dirty := s.dirtyStorage[key]; dirty {
		return value, origin
	}
	return origin, origin
}

// GetCommittedState retrieves the value as of the start of the current
// transaction. A backend failure is recorded on the StateDB and the zero
// value is returned.
func (s *stateObject) GetCommittedState(key common.Hash) common.Hash {
	if value, pending := s.pendingStorage[key]; pending {
		return value
	}
	if value, cached := s.originStorage[key]; cached {
		return value
	}
	// 账户在本块内被销毁过，旧存储已失效，不能再去后端读。
	if _, destructed := s.db.stateObjectsDestruct[s.address]; destructed {
		s.originStorage[key] = common.Hash{}
		return common.Hash{}
	}
	value, err := s.db.backend.Storage(s.address, key)
	if err != nil {
		s.db.setError(fmt.Errorf("can't load slot %x of %x: %w", key, s.address, err))
		return common.Hash{}
	}
	s.originStorage[key] = value
	return value
}

// SetState updates a value in account storage and returns the previous value.
func (s *stateObject) SetState(key, value common.Hash) common.Hash {
	prev, origin := s.getState(key)
	if prev == value {
		return prev
	}
	s.db.journal.storageChange(s.address, key, prev, origin)
	s.setState(key, value, origin)
	return prev
}

// setState updates a value in account dirty storage. The dirtiness will be
// removed if the value being set equals to the original value.
func (s *stateObject) setState(key common.Hash, value common.Hash, origin common.Hash) {
	if value == origin {
		delete(s.dirtyStorage, key)
		return
	}
	s.dirtyStorage[key] = value
}

// finalise moves all dirty storage slots into the pending area, to be
// written to the backend at the next commit.
func (s *stateObject) finalise() {
	for key, value := range s.dirtyStorage {
		s.pendingStorage[key] = value
	}
	if len(s.dirtyStorage) > 0 {
		s.dirtyStorage = make(Storage)
	}
}

// commit collects the account changes into the update and folds the pending
// storage into the origin layer.
func (s *stateObject) commit(update *StateUpdate) {
	update.Accounts[s.address] = s.data.Copy()
	if s.dirtyCode && len(s.code) > 0 {
		update.Codes[common.BytesToHash(s.data.CodeHash)] = s.code
		s.dirtyCode = false
	}
	for key, val := range s.pendingStorage {
		if prev, ok := s.originStorage[key]; ok && prev == val {
			continue
		}
		slots := update.Storages[s.address]
		if slots == nil {
			slots = make(map[common.Hash]common.Hash)
			update.Storages[s.address] = slots
		}
		slots[key] = val
		s.originStorage[key] = val
	}
	s.pendingStorage = make(Storage)
	s.origin = s.data.Copy()
}

// AddBalance adds amount to s's balance and returns the previous balance.
// An empty account receiving zero is still touched, which matters for the
// EIP-161 deletion rules.
func (s *stateObject) AddBalance(amount *uint256.Int) uint256.Int {
	if amount.IsZero() {
		if s.empty() {
			s.touch()
		}
		return *(s.Balance())
	}
	return s.SetBalance(new(uint256.Int).Add(s.Balance(), amount))
}

// SetBalance sets the balance for the object, and returns the previous balance.
func (s *stateObject) SetBalance(amount *uint256.Int) uint256.Int {
	prev := *s.data.Balance
	s.db.journal.balanceChange(s.address, s.data.Balance)
	s.setBalance(amount)
	return prev
}

func (s *stateObject) setBalance(amount *uint256.Int) {
	s.data.Balance = amount
}

func (s *stateObject) deepCopy(db *StateDB) *stateObject {
	obj := &stateObject{
		db:             db,
		address:        s.address,
		origin:         s.origin,
		data:           *s.data.Copy(),
		code:           s.code,
		dirtyCode:      s.dirtyCode,
		originStorage:  s.originStorage.Copy(),
		pendingStorage: s.pendingStorage.Copy(),
		dirtyStorage:   s.dirtyStorage.Copy(),
		selfDestructed: s.selfDestructed,
	}
	if s.origin != nil {
		obj.origin = s.origin.Copy()
	}
	return obj
}

// Address returns the address of the contract/account.
func (s *stateObject) Address() common.Address {
	return s.address
}

// Code returns the contract code associated with this object, if any.
func (s *stateObject) Code() []byte {
	if len(s.code) != 0 {
		return s.code
	}
	if bytes.Equal(s.CodeHash(), types.EmptyCodeHash.Bytes()) {
		return nil
	}
	code, err := s.db.backend.Code(s.address, common.BytesToHash(s.CodeHash()))
	if err != nil {
		s.db.setError(fmt.Errorf("can't load code hash %x: %w", s.CodeHash(), err))
		return nil
	}
	if len(code) == 0 {
		s.db.setError(fmt.Errorf("code is not found %x", s.CodeHash()))
	}
	s.code = code
	return code
}

// CodeSize returns the size of the contract code associated with this object.
func (s *stateObject) CodeSize() int {
	return len(s.Code())
}

func (s *stateObject) SetCode(codeHash common.Hash, code []byte) (prev []byte) {
	prev = slices.Clone(s.code)
	s.db.journal.setCode(s.address, common.BytesToHash(s.data.CodeHash), prev)
	s.setCode(codeHash, code)
	return prev
}

func (s *stateObject) setCode(codeHash common.Hash, code []byte) {
	s.code = code
	s.data.CodeHash = codeHash[:]
	s.dirtyCode = true
}

func (s *stateObject) SetNonce(nonce uint64) {
	s.db.journal.nonceChange(s.address, s.data.Nonce)
	s.setNonce(nonce)
}

func (s *stateObject) setNonce(nonce uint64) {
	s.data.Nonce = nonce
}

func (s *stateObject) CodeHash() []byte {
	return s.data.CodeHash
}

func (s *stateObject) Balance() *uint256.Int {
	return s.data.Balance
}

func (s *stateObject) Nonce() uint64 {
	return s.data.Nonce
}
