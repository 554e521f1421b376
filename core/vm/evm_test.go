// Copyright 2024 The go-ethereum Authors
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
	"errors"
	"math"
	"math/big"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/go-evm/common"
	"github.com/sunyihoo/go-evm/core/state"
	"github.com/sunyihoo/go-evm/core/tracing"
	"github.com/sunyihoo/go-evm/crypto"
	"github.com/sunyihoo/go-evm/ethdb/memorydb"
	"github.com/sunyihoo/go-evm/params"
	"github.com/sunyihoo/go-evm/params/forks"
)

var (
	testCaller   = common.HexToAddress("0xc0ffee")
	testContract = common.HexToAddress("0xc0de")
)

func newTestBlockContext() BlockContext {
	return BlockContext{
		CanTransfer: func(db StateDB, addr common.Address, amount *uint256.Int) bool {
			return db.GetBalance(addr).Cmp(amount) >= 0
		},
		Transfer: func(db StateDB, from, to common.Address, amount *uint256.Int) {
			db.SubBalance(from, amount, tracing.BalanceChangeTransfer)
			db.AddBalance(to, amount, tracing.BalanceChangeTransfer)
		},
		GetHash:     func(n uint64) (common.Hash, error) { return common.BigToHash(new(big.Int).SetUint64(n)), nil },
		BlockNumber: big.NewInt(1),
		Random:      &common.Hash{},
	}
}

// newTestEVM returns a Cancun EVM over backend with code deployed at testContract.
func newTestEVM(t *testing.T, backend state.Backend, code []byte) (*EVM, *state.StateDB) {
	t.Helper()
	if backend == nil {
		db, err := state.NewDatabase(memorydb.New())
		require.NoError(t, err)
		backend = db
	}
	statedb := state.New(backend)
	statedb.SetCode(testContract, code)
	return NewEVM(newTestBlockContext(), statedb, params.ConfigForFork(forks.Cancun), Config{}), statedb
}

func TestCallHaltReasons(t *testing.T) {
	tests := []struct {
		name    string
		code    []byte
		gasLeft uint64
		halt    HaltReason
		err     error
	}{
		{"stop", []byte{byte(STOP)}, 100000, HaltSuccess, nil},
		{"end of code", []byte{byte(PUSH1), 1}, 100000 - 3, HaltSuccess, nil},
		{"revert keeps gas", []byte{byte(PUSH1), 0, byte(PUSH1), 0, byte(REVERT)}, 100000 - 6, HaltRevert, ErrExecutionReverted},
		{"invalid opcode", []byte{byte(INVALID)}, 0, HaltError, nil},
		{"stack underflow", []byte{byte(ADD)}, 0, HaltError, errStackUnderflow},
		{"jump into push data", []byte{byte(PUSH1), byte(JUMPDEST), byte(PUSH1), 1, byte(JUMP)}, 0, HaltError, ErrInvalidJump},
		{"valid jump", []byte{byte(PUSH1), 4, byte(JUMP), byte(INVALID), byte(JUMPDEST), byte(STOP)}, 100000 - 12, HaltSuccess, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evm, _ := newTestEVM(t, nil, tt.code)
			_, gasLeft, err := evm.Call(testCaller, testContract, nil, 100000, new(uint256.Int))
			require.Equal(t, tt.halt, HaltReasonOf(err), "err: %v", err)
			require.Equal(t, tt.gasLeft, gasLeft)
			if tt.err != nil {
				require.True(t, errors.Is(err, tt.err), "have %v, want %v", err, tt.err)
			}
		})
	}
}

func TestCallOutOfGas(t *testing.T) {
	// PUSH1 0 PUSH1 0 needs 6 gas
	evm, _ := newTestEVM(t, nil, []byte{byte(PUSH1), 0, byte(PUSH1), 0})
	_, gasLeft, err := evm.Call(testCaller, testContract, nil, 5, new(uint256.Int))
	require.ErrorIs(t, err, ErrOutOfGas)
	require.Zero(t, gasLeft)
}

type gasChange struct {
	from, to uint64
	reason   tracing.GasChangeReason
}

func TestChargeReportsOutOfGas(t *testing.T) {
	var changes []gasChange
	hooks := &tracing.Hooks{OnGasChange: func(from, to uint64, reason tracing.GasChangeReason) {
		changes = append(changes, gasChange{from, to, reason})
	}}
	c := NewContract(testCaller, testContract, nil, 10, nil)
	require.NoError(t, c.Charge(4, hooks, tracing.GasChangeCallFailedExecution))
	require.Empty(t, changes)

	require.ErrorIs(t, c.Charge(7, hooks, tracing.GasChangeCallFailedExecution), ErrOutOfGas)
	require.Zero(t, c.Gas)
	require.Equal(t, []gasChange{{6, 0, tracing.GasChangeCallFailedExecution}}, changes)

	// nothing left to burn
	require.ErrorIs(t, c.Charge(1, hooks, tracing.GasChangeCallFailedExecution), ErrOutOfGas)
	require.Len(t, changes, 1)
}

func TestOutOfGasTraced(t *testing.T) {
	// PUSH1 1 PUSH1 2 ADD with gas for the first push only
	code := []byte{byte(PUSH1), 1, byte(PUSH1), 2, byte(ADD)}
	evm, _ := newTestEVM(t, nil, code)
	var changes []gasChange
	evm.Config.Tracer = &tracing.Hooks{OnGasChange: func(from, to uint64, reason tracing.GasChangeReason) {
		changes = append(changes, gasChange{from, to, reason})
	}}
	_, gasLeft, err := evm.Call(testCaller, testContract, nil, 5, new(uint256.Int))
	require.ErrorIs(t, err, ErrOutOfGas)
	require.Zero(t, gasLeft)
	require.Equal(t, []gasChange{
		{0, 5, tracing.GasChangeCallInitialBalance},
		{5, 2, tracing.GasChangeCallOpCode},
		{2, 0, tracing.GasChangeCallFailedExecution},
	}, changes)
}

func TestMemoryExpansionGasOverflow(t *testing.T) {
	// MSTORE at offset 2^64-1
	code := []byte{byte(PUSH1), 1, byte(PUSH8), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, byte(MSTORE)}
	evm, _ := newTestEVM(t, nil, code)
	_, gasLeft, err := evm.Call(testCaller, testContract, nil, math.MaxUint64, new(uint256.Int))
	require.ErrorIs(t, err, ErrGasUintOverflow)
	require.Zero(t, gasLeft)
}

func TestReturnMsize(t *testing.T) {
	// PUSH1 0 PUSH1 0 MSTORE MSIZE PUSH1 0 MSTORE PUSH1 32 PUSH1 0 RETURN
	code := common.Hex2Bytes("6000600052596000526020" + "6000f3")
	evm, _ := newTestEVM(t, nil, code)
	ret, _, err := evm.Call(testCaller, testContract, nil, 100000, new(uint256.Int))
	require.NoError(t, err)
	require.Equal(t, common.LeftPadBytes([]byte{32}, 32), ret)
}

func TestColdWarmStorageAccess(t *testing.T) {
	// SLOAD the same slot twice: cold 2100 then warm 100
	code := []byte{byte(PUSH1), 0, byte(SLOAD), byte(PUSH1), 0, byte(SLOAD), byte(STOP)}
	evm, _ := newTestEVM(t, nil, code)
	_, gasLeft, err := evm.Call(testCaller, testContract, nil, 100000, new(uint256.Int))
	require.NoError(t, err)
	require.Equal(t, uint64(100000-3-2100-3-100), gasLeft)
}

func TestStaticCallWriteProtection(t *testing.T) {
	for name, code := range map[string][]byte{
		"sstore":       {byte(PUSH1), 1, byte(PUSH1), 0, byte(SSTORE)},
		"tstore":       {byte(PUSH1), 1, byte(PUSH1), 0, byte(TSTORE)},
		"log0":         {byte(PUSH1), 0, byte(PUSH1), 0, byte(LOG0)},
		"create":       {byte(PUSH1), 0, byte(PUSH1), 0, byte(PUSH1), 0, byte(CREATE)},
		"selfdestruct": {byte(PUSH1), 0, byte(SELFDESTRUCT)},
	} {
		t.Run(name, func(t *testing.T) {
			evm, _ := newTestEVM(t, nil, code)
			_, gasLeft, err := evm.StaticCall(testCaller, testContract, nil, 100000)
			require.ErrorIs(t, err, ErrWriteProtection)
			require.Zero(t, gasLeft)
		})
	}
}

func TestValueTransfer(t *testing.T) {
	evm, statedb := newTestEVM(t, nil, []byte{byte(STOP)})
	statedb.AddBalance(testCaller, uint256.NewInt(100), tracing.BalanceChangeUnspecified)

	_, _, err := evm.Call(testCaller, testContract, nil, 100000, uint256.NewInt(40))
	require.NoError(t, err)
	require.Equal(t, uint64(60), statedb.GetBalance(testCaller).Uint64())
	require.Equal(t, uint64(40), statedb.GetBalance(testContract).Uint64())

	_, gasLeft, err := evm.Call(testCaller, testContract, nil, 100000, uint256.NewInt(61))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.Equal(t, uint64(100000), gasLeft, "a rejected transfer costs nothing")
}

func TestRevertRollsBackState(t *testing.T) {
	// SSTORE 1 at slot 0 then REVERT
	code := []byte{byte(PUSH1), 1, byte(PUSH1), 0, byte(SSTORE), byte(PUSH1), 0, byte(PUSH1), 0, byte(REVERT)}
	evm, statedb := newTestEVM(t, nil, code)
	_, _, err := evm.Call(testCaller, testContract, nil, 100000, new(uint256.Int))
	require.ErrorIs(t, err, ErrExecutionReverted)
	require.Equal(t, common.Hash{}, statedb.GetState(testContract, common.Hash{}))
}

func TestCancelRevertsFrame(t *testing.T) {
	// PUSH1 1 PUSH1 0 SSTORE JUMPDEST PUSH1 5 JUMP
	code := []byte{byte(PUSH1), 1, byte(PUSH1), 0, byte(SSTORE), byte(JUMPDEST), byte(PUSH1), 5, byte(JUMP)}
	evm, statedb := newTestEVM(t, nil, code)
	evm.Cancel()

	_, gasLeft, err := evm.Call(testCaller, testContract, nil, 100000, new(uint256.Int))
	require.ErrorIs(t, err, ErrExecutionCancelled)
	require.Zero(t, gasLeft)
	require.Equal(t, common.Hash{}, statedb.GetState(testContract, common.Hash{}))
	require.Equal(t, VMErrorCodeCancelled, VMErrorFromErr(err).(*VMError).ErrorCode())
}

func TestCreate(t *testing.T) {
	// PUSH1 0xfe PUSH1 0 MSTORE8 PUSH1 1 PUSH1 0 RETURN: deploys the single byte 0xfe
	initcode := []byte{byte(PUSH1), 0xfe, byte(PUSH1), 0, byte(MSTORE8), byte(PUSH1), 1, byte(PUSH1), 0, byte(RETURN)}
	evm, statedb := newTestEVM(t, nil, nil)

	_, addr, _, err := evm.Create(testCaller, initcode, 100000, new(uint256.Int))
	require.NoError(t, err)
	require.Equal(t, crypto.CreateAddress(testCaller, 0), addr)
	require.Equal(t, []byte{0xfe}, statedb.GetCode(addr))
	require.Equal(t, uint64(1), statedb.GetNonce(addr))
	require.Equal(t, uint64(1), statedb.GetNonce(testCaller))

	// EIP-3541: code starting with 0xEF is rejected
	initcode[1] = 0xef
	_, _, gasLeft, err := evm.Create(testCaller, initcode, 100000, new(uint256.Int))
	require.ErrorIs(t, err, ErrInvalidCode)
	require.Zero(t, gasLeft)

	// a second creation from the same nonce collides after a reset
	statedb.SetNonce(testCaller, 0)
	_, _, _, err = evm.Create(testCaller, []byte{byte(STOP)}, 100000, new(uint256.Int))
	require.ErrorIs(t, err, ErrContractAddressCollision)
}

func TestCreate2Address(t *testing.T) {
	evm, _ := newTestEVM(t, nil, nil)
	initcode := []byte{byte(STOP)}
	salt := uint256.NewInt(42)

	_, addr, _, err := evm.Create2(testCaller, initcode, 100000, new(uint256.Int), salt)
	require.NoError(t, err)
	require.Equal(t, crypto.CreateAddress2(testCaller, salt.Bytes32(), crypto.Keccak256(initcode)), addr)
}

func TestMaxInitCodeSize(t *testing.T) {
	evm, _ := newTestEVM(t, nil, nil)
	nonce := evm.StateDB.GetNonce(testCaller)
	_, _, _, err := evm.Create(testCaller, make([]byte, params.MaxInitCodeSize+1), math.MaxUint64, new(uint256.Int))
	require.ErrorIs(t, err, ErrMaxInitCodeSizeExceeded)
	require.Equal(t, nonce, evm.StateDB.GetNonce(testCaller))

	// exactly at the limit is fine
	_, _, _, err = evm.Create(testCaller, make([]byte, params.MaxInitCodeSize), 10_000_000, new(uint256.Int))
	require.NoError(t, err)
}

func TestCallDepthLimit(t *testing.T) {
	// Calls itself forever with all available gas:
	// PUSH1 0 (x4) ADDRESS GAS CALL
	code := []byte{byte(PUSH1), 0, byte(PUSH1), 0, byte(PUSH1), 0, byte(PUSH1), 0, byte(PUSH1), 0, byte(ADDRESS), byte(GAS), byte(CALL)}
	evm, _ := newTestEVM(t, nil, code)
	evm.depth = int(params.CallCreateDepth) - 2
	_, _, err := evm.Call(testCaller, testContract, nil, 1000000, new(uint256.Int))
	// the innermost CALL fails with ErrDepth, which only pushes zero
	require.NoError(t, err)

	evm.depth = int(params.CallCreateDepth) + 1
	_, gasLeft, err := evm.Call(testCaller, testContract, nil, 1000000, new(uint256.Int))
	require.ErrorIs(t, err, ErrDepth)
	require.Equal(t, uint64(1000000), gasLeft)
}

func TestPrecompileCall(t *testing.T) {
	evm, _ := newTestEVM(t, nil, nil)
	identity := common.BytesToAddress([]byte{4})
	input := []byte("hello")

	ret, gasLeft, err := evm.Call(testCaller, identity, input, 1000, new(uint256.Int))
	require.NoError(t, err)
	require.Equal(t, input, ret)
	require.Equal(t, uint64(1000-18), gasLeft)

	_, gasLeft, err = evm.Call(testCaller, identity, input, 17, new(uint256.Int))
	require.ErrorIs(t, err, ErrOutOfGas)
	require.Zero(t, gasLeft)
}

var errDiskGone = errors.New("disk gone")

type storageFailingBackend struct {
	state.Backend
}

func (b storageFailingBackend) Storage(common.Address, common.Hash) (common.Hash, error) {
	return common.Hash{}, errDiskGone
}

func TestBackendErrorIsFatal(t *testing.T) {
	db, err := state.NewDatabase(memorydb.New())
	require.NoError(t, err)

	// The outer contract calls the inner one, which reads storage. The
	// failure must surface at the top even though CALL would normally
	// swallow the inner error.
	inner := common.HexToAddress("0x1111")
	outer := []byte{
		byte(PUSH1), 0, byte(PUSH1), 0, byte(PUSH1), 0, byte(PUSH1), 0, byte(PUSH1), 0,
		byte(PUSH2), 0x11, 0x11, byte(GAS), byte(CALL), byte(STOP),
	}
	evm, statedb := newTestEVM(t, storageFailingBackend{db}, outer)
	statedb.SetCode(inner, []byte{byte(PUSH1), 0, byte(SLOAD), byte(STOP)})

	_, _, err = evm.Call(testCaller, testContract, nil, 100000, new(uint256.Int))
	require.True(t, IsBackendError(err), "have %v", err)
	require.ErrorIs(t, err, errDiskGone)
	require.Equal(t, HaltError, HaltReasonOf(err))

	var vmErr *VMError
	require.ErrorAs(t, VMErrorFromErr(err), &vmErr)
	require.Equal(t, VMErrorCodeBackend, vmErr.ErrorCode())
}

func TestBlockhashRange(t *testing.T) {
	// BLOCKHASH(n) for n = 0 at block 1, and for the current block
	evm, _ := newTestEVM(t, nil, nil)
	evm.Context.BlockNumber = big.NewInt(300)

	for _, tt := range []struct {
		num  uint64
		want uint64
	}{
		{299, 299}, {44, 44}, {43, 0}, {300, 0}, {1000, 0},
	} {
		code := []byte{byte(PUSH2), byte(tt.num >> 8), byte(tt.num), byte(BLOCKHASH), byte(PUSH1), 0, byte(MSTORE), byte(PUSH1), 32, byte(PUSH1), 0, byte(RETURN)}
		evm.StateDB.SetCode(testContract, code)
		ret, _, err := evm.Call(testCaller, testContract, nil, 100000, new(uint256.Int))
		require.NoError(t, err)
		require.Equal(t, tt.want, new(uint256.Int).SetBytes(ret).Uint64(), "block %d", tt.num)
	}
}
