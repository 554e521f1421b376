// Copyright 2016 The go-ethereum Authors
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
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/holiman/uint256"
	"github.com/sunyihoo/go-evm/common"
)

// 每个调用帧开始时 EVM 取一次快照，帧失败时回滚该快照之后的全部日志条目。
// 访问列表、瞬态存储、退款计数和日志都走同一个 journal，因此回滚是原子的。

// journalEntry is one undoable state modification. Entries are immutable
// values, a journal can therefore be copied by copying the slice.
type journalEntry interface {
	revert(*StateDB)

	// dirtied returns the account the entry modified, if any. Finalise only
	// looks at dirtied accounts.
	dirtied() (common.Address, bool)
}

type revision struct {
	id    int
	index int
}

// journal records the modifications since the last Finalise.
type journal struct {
	entries []journalEntry
	dirties map[common.Address]int // number of entries per dirtied account

	revisions []revision
	nextID    int
}

func newJournal() *journal {
	return &journal{dirties: make(map[common.Address]int)}
}

// reset empties the journal for the next transaction, keeping its buffers.
func (j *journal) reset() {
	j.entries = j.entries[:0]
	j.revisions = j.revisions[:0]
	clear(j.dirties)
	j.nextID = 0
}

func (j *journal) snapshot() int {
	id := j.nextID
	j.nextID++
	j.revisions = append(j.revisions, revision{id: id, index: len(j.entries)})
	return id
}

// revertToSnapshot undoes everything recorded after revision id was taken.
// The revision itself and all later ones become invalid.
func (j *journal) revertToSnapshot(id int, s *StateDB) {
	idx, found := slices.BinarySearchFunc(j.revisions, id, func(r revision, id int) int {
		return cmp.Compare(r.id, id)
	})
	if !found {
		panic(fmt.Errorf("revision id %v cannot be reverted", id))
	}
	j.revert(s, j.revisions[idx].index)
	j.revisions = j.revisions[:idx]
}

func (j *journal) append(entry journalEntry) {
	j.entries = append(j.entries, entry)
	if addr, ok := entry.dirtied(); ok {
		j.dirties[addr]++
	}
}

// revert unwinds the entries from the newest down to index.
func (j *journal) revert(s *StateDB, index int) {
	for i := len(j.entries) - 1; i >= index; i-- {
		entry := j.entries[i]
		entry.revert(s)

		if addr, ok := entry.dirtied(); ok {
			if j.dirties[addr]--; j.dirties[addr] == 0 {
				delete(j.dirties, addr)
			}
		}
	}
	j.entries = j.entries[:index]
}

func (j *journal) copy() *journal {
	return &journal{
		entries:   slices.Clone(j.entries),
		dirties:   maps.Clone(j.dirties),
		revisions: slices.Clone(j.revisions),
		nextID:    j.nextID,
	}
}

// ripemd stays dirty even when the touch that dirtied it is reverted. The
// mainnet consensus kept it that way after an out-of-gas call in block 1714175.
var ripemd = common.HexToAddress("0000000000000000000000000000000000000003")

func (j *journal) touchChange(addr common.Address) {
	j.append(touchChange{accountEntry{addr}})
	if addr == ripemd {
		j.dirties[addr]++
	}
}

func (j *journal) logChange(txHash common.Hash) {
	j.append(addLogChange{txhash: txHash})
}

func (j *journal) createObject(addr common.Address) {
	j.append(createObjectChange{accountEntry{addr}})
}

func (j *journal) createContract(addr common.Address) {
	j.append(createContractChange{account: addr})
}

func (j *journal) destruct(addr common.Address) {
	j.append(selfDestructChange{accountEntry{addr}})
}

func (j *journal) refundChange(prev uint64) {
	j.append(refundChange{prev: prev})
}

func (j *journal) balanceChange(addr common.Address, prev *uint256.Int) {
	j.append(balanceChange{accountEntry{addr}, *prev})
}

func (j *journal) nonceChange(addr common.Address, prev uint64) {
	j.append(nonceChange{accountEntry{addr}, prev})
}

func (j *journal) setCode(addr common.Address, prevHash common.Hash, prevCode []byte) {
	j.append(codeChange{accountEntry{addr}, prevHash, prevCode})
}

func (j *journal) storageChange(addr common.Address, key, prev, origin common.Hash) {
	j.append(storageChange{accountEntry{addr}, key, prev, origin})
}

func (j *journal) transientStateChange(addr common.Address, key, prev common.Hash) {
	j.append(transientStorageChange{account: addr, key: key, prev: prev})
}

func (j *journal) accessListAddAccount(addr common.Address) {
	j.append(accessListAddAccountChange{address: addr})
}

func (j *journal) accessListAddSlot(addr common.Address, slot common.Hash) {
	j.append(accessListAddSlotChange{address: addr, slot: slot})
}

// accountEntry marks entries that modify an account.
type accountEntry struct {
	account common.Address
}

func (e accountEntry) dirtied() (common.Address, bool) { return e.account, true }

// clean marks entries outside of the account set.
type clean struct{}

func (clean) dirtied() (common.Address, bool) { return common.Address{}, false }

type (
	createObjectChange struct{ accountEntry }
	selfDestructChange struct{ accountEntry }
	touchChange        struct{ accountEntry }
	balanceChange      struct {
		accountEntry
		prev uint256.Int
	}
	nonceChange struct {
		accountEntry
		prev uint64
	}
	codeChange struct {
		accountEntry
		prevHash common.Hash
		prevCode []byte
	}
	storageChange struct {
		accountEntry
		key, prev, origin common.Hash
	}

	// createContractChange tracks the accounts created in this transaction,
	// which is what allows a same transaction SELFDESTRUCT after Cancun.
	createContractChange struct {
		clean
		account common.Address
	}
	refundChange struct {
		clean
		prev uint64
	}
	addLogChange struct {
		clean
		txhash common.Hash
	}
	accessListAddAccountChange struct {
		clean
		address common.Address
	}
	accessListAddSlotChange struct {
		clean
		address common.Address
		slot    common.Hash
	}
	transientStorageChange struct {
		clean
		account   common.Address
		key, prev common.Hash
	}
)

func (ch createObjectChange) revert(s *StateDB) { delete(s.stateObjects, ch.account) }

func (ch selfDestructChange) revert(s *StateDB) {
	if obj := s.getStateObject(ch.account); obj != nil {
		obj.selfDestructed = false
	}
}

func (ch touchChange) revert(*StateDB) {}

func (ch balanceChange) revert(s *StateDB) {
	prev := ch.prev
	s.getStateObject(ch.account).setBalance(&prev)
}

func (ch nonceChange) revert(s *StateDB) { s.getStateObject(ch.account).setNonce(ch.prev) }

func (ch codeChange) revert(s *StateDB) {
	s.getStateObject(ch.account).setCode(ch.prevHash, ch.prevCode)
}

func (ch storageChange) revert(s *StateDB) {
	s.getStateObject(ch.account).setState(ch.key, ch.prev, ch.origin)
}

func (ch createContractChange) revert(s *StateDB) { s.createdContracts.Remove(ch.account) }

func (ch refundChange) revert(s *StateDB) { s.refund = ch.prev }

func (ch addLogChange) revert(s *StateDB) {
	logs := s.logs[ch.txhash]
	if len(logs) == 1 {
		delete(s.logs, ch.txhash)
	} else {
		s.logs[ch.txhash] = logs[:len(logs)-1]
	}
	s.logSize--
}

// Adding a slot of a fresh address journals the address first, so by the
// time the address entry is unwound none of its slots are left.
func (ch accessListAddAccountChange) revert(s *StateDB) { s.accessList.DeleteAddress(ch.address) }

func (ch accessListAddSlotChange) revert(s *StateDB) { s.accessList.DeleteSlot(ch.address, ch.slot) }

func (ch transientStorageChange) revert(s *StateDB) {
	s.setTransientState(ch.account, ch.key, ch.prev)
}
