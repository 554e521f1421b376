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
	"errors"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/go-evm/common"
	"github.com/sunyihoo/go-evm/core/tracing"
	"github.com/sunyihoo/go-evm/core/types"
	"github.com/sunyihoo/go-evm/crypto"
	"github.com/sunyihoo/go-evm/ethdb/memorydb"
	"github.com/sunyihoo/go-evm/params"
)

var errBackendDown = errors.New("backend down")

// failingBackend fails every read of the selected kinds.
type failingBackend struct {
	account, storage, code, hash bool
	inner                        Backend
}

func (b *failingBackend) Account(addr common.Address) (*types.StateAccount, error) {
	if b.account {
		return nil, errBackendDown
	}
	return b.inner.Account(addr)
}

func (b *failingBackend) Code(addr common.Address, hash common.Hash) ([]byte, error) {
	if b.code {
		return nil, errBackendDown
	}
	return b.inner.Code(addr, hash)
}

func (b *failingBackend) Storage(addr common.Address, slot common.Hash) (common.Hash, error) {
	if b.storage {
		return common.Hash{}, errBackendDown
	}
	return b.inner.Storage(addr, slot)
}

func (b *failingBackend) BlockHash(number uint64) (common.Hash, error) {
	if b.hash {
		return common.Hash{}, errBackendDown
	}
	return b.inner.BlockHash(number)
}

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(memorydb.New())
	require.NoError(t, err)
	return db
}

func TestSnapshotRevert(t *testing.T) {
	var (
		state = New(newTestDatabase(t))
		addr  = common.HexToAddress("0xaaaa")
		slot  = common.HexToHash("0x01")
	)
	state.AddBalance(addr, uint256.NewInt(100), tracing.BalanceChangeUnspecified)
	state.SetNonce(addr, 1)
	state.SetState(addr, slot, common.HexToHash("0x11"))

	snap := state.Snapshot()
	state.AddBalance(addr, uint256.NewInt(50), tracing.BalanceChangeUnspecified)
	state.SetNonce(addr, 7)
	state.SetState(addr, slot, common.HexToHash("0x22"))
	state.SetCode(addr, []byte{0x60, 0x00})
	state.AddRefund(15)

	state.RevertToSnapshot(snap)

	require.Equal(t, uint64(100), state.GetBalance(addr).Uint64())
	require.Equal(t, uint64(1), state.GetNonce(addr))
	require.Equal(t, common.HexToHash("0x11"), state.GetState(addr, slot))
	require.Empty(t, state.GetCode(addr))
	require.Equal(t, types.EmptyCodeHash, state.GetCodeHash(addr))
	require.Zero(t, state.GetRefund())
}

func TestNestedSnapshots(t *testing.T) {
	state := New(newTestDatabase(t))
	addr := common.HexToAddress("0xbbbb")

	s0 := state.Snapshot()
	state.AddBalance(addr, uint256.NewInt(1), tracing.BalanceChangeUnspecified)
	s1 := state.Snapshot()
	state.AddBalance(addr, uint256.NewInt(2), tracing.BalanceChangeUnspecified)

	state.RevertToSnapshot(s1)
	require.Equal(t, uint64(1), state.GetBalance(addr).Uint64())

	state.RevertToSnapshot(s0)
	require.False(t, state.Exist(addr))

	// s1 was invalidated by reverting to s0.
	require.Panics(t, func() { state.RevertToSnapshot(s1) })
}

func TestCommitPersists(t *testing.T) {
	var (
		db    = newTestDatabase(t)
		state = New(db)
		addr  = common.HexToAddress("0xcccc")
		code  = []byte{0x60, 0x2a, 0x60, 0x00, 0x55}
		slot  = common.HexToHash("0x05")
	)
	state.SetNonce(addr, 3)
	state.AddBalance(addr, uint256.NewInt(1000), tracing.BalanceChangeUnspecified)
	state.SetCode(addr, code)
	state.SetState(addr, slot, common.HexToHash("0x2a"))

	update, err := state.Commit(true)
	require.NoError(t, err)
	require.Contains(t, update.Accounts, addr, "update: %s", spew.Sdump(update))
	require.Equal(t, 1, update.Slots(), "update: %s", spew.Sdump(update))
	require.Contains(t, update.Codes, crypto.Keccak256Hash(code))

	fresh := New(db)
	require.Equal(t, uint64(3), fresh.GetNonce(addr))
	require.Equal(t, uint64(1000), fresh.GetBalance(addr).Uint64())
	require.Equal(t, code, fresh.GetCode(addr))
	require.Equal(t, common.HexToHash("0x2a"), fresh.GetState(addr, slot))
	require.Equal(t, common.HexToHash("0x2a"), fresh.GetCommittedState(addr, slot))
	require.NoError(t, fresh.Error())
}

func TestCommitDeletesEmptyAccounts(t *testing.T) {
	var (
		db    = newTestDatabase(t)
		state = New(db)
		addr  = common.HexToAddress("0xdddd")
	)
	// A zero-value transfer touches the account without giving it content.
	state.AddBalance(addr, new(uint256.Int), tracing.BalanceChangeTransfer)
	require.True(t, state.Exist(addr))

	_, err := state.Commit(true)
	require.NoError(t, err)
	require.False(t, New(db).Exist(addr))
}

func TestSelfDestructWipesStorage(t *testing.T) {
	var (
		db   = newTestDatabase(t)
		addr = common.HexToAddress("0xeeee")
		slot = common.HexToHash("0x01")
	)
	state := New(db)
	state.SetNonce(addr, 1)
	state.SetState(addr, slot, common.HexToHash("0xff"))
	_, err := state.Commit(true)
	require.NoError(t, err)

	state = New(db)
	state.AddBalance(addr, uint256.NewInt(9), tracing.BalanceChangeUnspecified)
	prev := state.SelfDestruct(addr)
	require.Equal(t, uint64(9), prev.Uint64())
	require.True(t, state.HasSelfDestructed(addr))
	require.True(t, state.Exist(addr), "destructed account stays visible within the transaction")

	update, err := state.Commit(true)
	require.NoError(t, err)
	require.Contains(t, update.Destructs, addr, "update: %s", spew.Sdump(update))

	fresh := New(db)
	require.False(t, fresh.Exist(addr))
	require.Equal(t, common.Hash{}, fresh.GetState(addr, slot))

	value, err := db.Storage(addr, slot)
	require.NoError(t, err)
	require.Equal(t, common.Hash{}, value)
}

func TestSelfDestruct6780(t *testing.T) {
	state := New(newTestDatabase(t))
	var (
		created = common.HexToAddress("0x1111")
		old     = common.HexToAddress("0x2222")
	)
	state.SetNonce(old, 1)
	state.Finalise(true)

	state.CreateAccount(created)
	state.CreateContract(created)
	state.AddBalance(created, uint256.NewInt(5), tracing.BalanceChangeUnspecified)

	_, destructed := state.SelfDestruct6780(old)
	require.False(t, destructed)
	require.False(t, state.HasSelfDestructed(old))

	snap := state.Snapshot()
	bal, destructed := state.SelfDestruct6780(created)
	require.True(t, destructed)
	require.Equal(t, uint64(5), bal.Uint64())
	state.RevertToSnapshot(snap)
	require.False(t, state.HasSelfDestructed(created))

	// Reverting the creation forgets that the contract is new.
	state = New(newTestDatabase(t))
	snap = state.Snapshot()
	state.CreateAccount(created)
	state.CreateContract(created)
	state.RevertToSnapshot(snap)
	state.CreateAccount(created)
	state.Finalise(false)
	_, destructed = state.SelfDestruct6780(created)
	require.False(t, destructed)
}

func TestTransientStorage(t *testing.T) {
	state := New(newTestDatabase(t))
	var (
		addr = common.HexToAddress("0x3333")
		key  = common.HexToHash("0x01")
		val  = common.HexToHash("0xabcd")
	)
	snap := state.Snapshot()
	state.SetTransientState(addr, key, val)
	require.Equal(t, val, state.GetTransientState(addr, key))

	state.RevertToSnapshot(snap)
	require.Equal(t, common.Hash{}, state.GetTransientState(addr, key))

	state.SetTransientState(addr, key, val)
	state.Prepare(params.Rules{}, addr, addr, nil, nil, nil)
	require.Equal(t, common.Hash{}, state.GetTransientState(addr, key), "prepare resets transient storage")
}

func TestAccessListRevert(t *testing.T) {
	state := New(newTestDatabase(t))
	var (
		sender   = common.HexToAddress("0x01")
		coinbase = common.HexToAddress("0xc0")
		target   = common.HexToAddress("0x4444")
		slot     = common.HexToHash("0x07")
	)
	state.Prepare(params.Rules{IsEIP2929: true, IsShanghai: true}, sender, coinbase, nil,
		[]common.Address{common.BytesToAddress([]byte{1})}, nil)
	require.True(t, state.AddressInAccessList(sender))
	require.True(t, state.AddressInAccessList(coinbase))

	snap := state.Snapshot()
	state.AddSlotToAccessList(target, slot)
	addrOk, slotOk := state.SlotInAccessList(target, slot)
	require.True(t, addrOk)
	require.True(t, slotOk)

	state.RevertToSnapshot(snap)
	addrOk, slotOk = state.SlotInAccessList(target, slot)
	require.False(t, addrOk)
	require.False(t, slotOk)
	require.True(t, state.AddressInAccessList(sender))
}

func TestLogsRevert(t *testing.T) {
	state := New(newTestDatabase(t))
	txhash := common.HexToHash("0x1d")
	state.SetTxContext(txhash, 2)

	state.AddLog(&types.Log{Address: common.HexToAddress("0x01")})
	snap := state.Snapshot()
	state.AddLog(&types.Log{Address: common.HexToAddress("0x02")})
	require.Len(t, state.Logs(), 2)

	state.RevertToSnapshot(snap)
	logs := state.GetLogs(txhash, 10)
	require.Len(t, logs, 1)
	require.Equal(t, uint(2), logs[0].TxIndex)
	require.Equal(t, uint64(10), logs[0].BlockNumber)
}

func TestBackendErrorIsRecorded(t *testing.T) {
	addr := common.HexToAddress("0x5555")

	state := New(&failingBackend{account: true, inner: newTestDatabase(t)})
	require.True(t, state.GetBalance(addr).IsZero())
	require.ErrorIs(t, state.Error(), errBackendDown)

	// Writes on top of a failed backend do not create phantom accounts.
	state.SetState(addr, common.Hash{}, common.HexToHash("0x01"))
	require.False(t, state.Exist(addr))

	_, err := state.Commit(true)
	require.Error(t, err)
}

func TestBackendStorageError(t *testing.T) {
	var (
		db   = newTestDatabase(t)
		addr = common.HexToAddress("0x6666")
	)
	setup := New(db)
	setup.SetNonce(addr, 1)
	_, err := setup.Commit(true)
	require.NoError(t, err)

	state := New(&failingBackend{storage: true, hash: true, inner: db})
	require.Equal(t, uint64(1), state.GetNonce(addr))
	require.NoError(t, state.Error())

	require.Equal(t, common.Hash{}, state.GetState(addr, common.HexToHash("0x01")))
	require.ErrorIs(t, state.Error(), errBackendDown)

	_, err = state.BlockHash(1)
	require.ErrorIs(t, err, errBackendDown)
}

func TestCopyIsIndependent(t *testing.T) {
	state := New(newTestDatabase(t))
	addr := common.HexToAddress("0x7777")
	state.AddBalance(addr, uint256.NewInt(10), tracing.BalanceChangeUnspecified)

	cpy := state.Copy()
	cpy.AddBalance(addr, uint256.NewInt(5), tracing.BalanceChangeUnspecified)

	require.Equal(t, uint64(10), state.GetBalance(addr).Uint64())
	require.Equal(t, uint64(15), cpy.GetBalance(addr).Uint64())
}

func TestHookedState(t *testing.T) {
	var (
		balances []uint64
		nonces   [][2]uint64
		slots    int
	)
	hooks := &tracing.Hooks{
		OnBalanceChange: func(addr common.Address, prev, new *uint256.Int, reason tracing.BalanceChangeReason) {
			balances = append(balances, new.Uint64())
		},
		OnNonceChange: func(addr common.Address, prev, new uint64) {
			nonces = append(nonces, [2]uint64{prev, new})
		},
		OnStorageChange: func(addr common.Address, slot common.Hash, prev, new common.Hash) {
			slots++
		},
	}
	state := NewHookedState(New(newTestDatabase(t)), hooks)
	addr := common.HexToAddress("0x8888")

	state.AddBalance(addr, uint256.NewInt(3), tracing.BalanceChangeTransfer)
	state.SubBalance(addr, uint256.NewInt(1), tracing.BalanceChangeTransfer)
	state.SetNonce(addr, 4)
	state.SetState(addr, common.Hash{}, common.HexToHash("0x01"))
	state.SetState(addr, common.Hash{}, common.HexToHash("0x01")) // no-op

	require.Equal(t, []uint64{3, 2}, balances)
	require.Equal(t, [][2]uint64{{0, 4}}, nonces)
	require.Equal(t, 1, slots)
}

func TestSetStorageReplaces(t *testing.T) {
	var (
		db   = newTestDatabase(t)
		addr = common.HexToAddress("0x9999")
	)
	setup := New(db)
	setup.SetNonce(addr, 1)
	setup.SetState(addr, common.HexToHash("0x01"), common.HexToHash("0x01"))
	_, err := setup.Commit(true)
	require.NoError(t, err)

	state := New(db)
	state.SetStorage(addr, map[common.Hash]common.Hash{
		common.HexToHash("0x02"): common.HexToHash("0x02"),
	})
	require.Equal(t, uint64(1), state.GetNonce(addr))
	require.Equal(t, common.Hash{}, state.GetState(addr, common.HexToHash("0x01")))
	require.Equal(t, common.HexToHash("0x02"), state.GetState(addr, common.HexToHash("0x02")))
}

func TestDump(t *testing.T) {
	state := New(newTestDatabase(t))
	addr := common.HexToAddress("0xabcd")
	state.AddBalance(addr, uint256.NewInt(42), tracing.BalanceChangeUnspecified)
	state.SetState(addr, common.HexToHash("0x01"), common.HexToHash("0x0102"))

	dump := state.RawDump(nil)
	account, ok := dump.Accounts[addr.Hex()]
	require.True(t, ok, "dump: %s", spew.Sdump(dump))
	require.Equal(t, "42", account.Balance)
	require.Equal(t, "0102", account.Storage[common.HexToHash("0x01")])
}
