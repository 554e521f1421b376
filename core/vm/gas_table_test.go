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

package vm

import (
	"math"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/go-evm/common"
	"github.com/sunyihoo/go-evm/params"
)

func stackOf(items ...uint64) *Stack {
	st := newstack()
	for _, v := range items {
		st.push(uint256.NewInt(v))
	}
	return st
}

// sstore runs fn for SSTORE(slot, value) and returns the charge and the
// refund counter afterwards.
func sstore(t *testing.T, evm *EVM, fn gasFunc, gas uint64, slot, value uint64) (uint64, uint64, error) {
	t.Helper()
	contract := NewContract(testCaller, testContract, nil, gas, nil)
	cost, err := fn(evm, contract, stackOf(value, slot), NewMemory(), 0)
	if err == nil {
		evm.StateDB.SetState(testContract, common.BigToHash(uint256.NewInt(slot).ToBig()), common.BigToHash(uint256.NewInt(value).ToBig()))
	}
	return cost, evm.StateDB.GetRefund(), err
}

func TestSStoreNetMetering(t *testing.T) {
	tests := []struct {
		name string
		fn   gasFunc
		// 0 -> 1, 1 -> 0 (back to original), 0 -> 0
		costs   [3]uint64
		refunds [3]uint64
	}{
		{"eip1283", sstoreEIP1283.gas, [3]uint64{20000, 200, 200}, [3]uint64{0, 19800, 19800}},
		{"eip2200", gasSStoreEIP2200, [3]uint64{20000, 800, 800}, [3]uint64{0, 19200, 19200}},
		{"eip2929", gasSStoreEIP2929, [3]uint64{22100, 100, 100}, [3]uint64{0, 19900, 19900}},
		{"eip3529", gasSStoreEIP3529, [3]uint64{22100, 100, 100}, [3]uint64{0, 19900, 19900}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evm, _ := newTestEVM(t, nil, nil)
			for i, write := range []uint64{1, 0, 0} {
				cost, refund, err := sstore(t, evm, tt.fn, 100000, 7, write)
				require.NoError(t, err)
				require.Equal(t, tt.costs[i], cost, "write %d", i)
				require.Equal(t, tt.refunds[i], refund, "write %d", i)
			}
		})
	}
}

func TestSStoreClearRefund(t *testing.T) {
	for name, tt := range map[string]struct {
		fn     gasFunc
		refund uint64
	}{
		"eip2929": {gasSStoreEIP2929, params.SstoreClearsScheduleRefundEIP2200},
		"eip3529": {gasSStoreEIP3529, params.SstoreClearsScheduleRefundEIP3529},
	} {
		t.Run(name, func(t *testing.T) {
			evm, statedb := newTestEVM(t, nil, nil)
			statedb.SetState(testContract, common.Hash{31: 1}, common.Hash{31: 5})
			statedb.Finalise(false)

			cost, refund, err := sstore(t, evm, tt.fn, 100000, 1, 0)
			require.NoError(t, err)
			require.Equal(t, params.SstoreResetGasEIP2200, cost)
			require.Equal(t, tt.refund, refund)

			// writing the slot back revokes the clearing refund
			cost, refund, err = sstore(t, evm, tt.fn, 100000, 1, 5)
			require.NoError(t, err)
			require.Equal(t, params.WarmStorageReadCostEIP2929, cost)
			require.Equal(t, params.SstoreResetGasEIP2200-params.ColdSloadCostEIP2929-params.WarmStorageReadCostEIP2929, refund)
		})
	}
}

func TestSStoreSentry(t *testing.T) {
	evm, _ := newTestEVM(t, nil, nil)
	_, _, err := sstore(t, evm, gasSStoreEIP2929, params.SstoreSentryGasEIP2200, 1, 1)
	require.ErrorIs(t, err, errReentrancySentry)

	_, _, err = sstore(t, evm, sstoreEIP1283.gas, params.SstoreSentryGasEIP2200, 1, 1)
	require.NoError(t, err)
}

func TestSStoreLegacy(t *testing.T) {
	evm, _ := newTestEVM(t, nil, nil)
	evm.chainRules.IsConstantinople, evm.chainRules.IsPetersburg = false, false

	cost, _, err := sstore(t, evm, gasSStore, 100000, 1, 1)
	require.NoError(t, err)
	require.Equal(t, params.SstoreSetGas, cost)

	cost, _, err = sstore(t, evm, gasSStore, 100000, 1, 2)
	require.NoError(t, err)
	require.Equal(t, params.SstoreResetGas, cost)

	cost, refund, err := sstore(t, evm, gasSStore, 100000, 1, 0)
	require.NoError(t, err)
	require.Equal(t, params.SstoreClearGas, cost)
	require.Equal(t, params.SstoreRefundGas, refund)

	// Constantinople alone switches to net metering
	evm.chainRules.IsConstantinople = true
	cost, _, err = sstore(t, evm, gasSStore, 100000, 1, 0)
	require.NoError(t, err)
	require.Equal(t, params.NetSstoreNoopGas, cost)
}

func TestExpGas(t *testing.T) {
	evm, _ := newTestEVM(t, nil, nil)
	for _, tt := range []struct {
		exp      uint64
		frontier uint64
		eip158   uint64
	}{
		{0, 10, 10},
		{0xff, 20, 60},
		{0x100, 30, 110},
	} {
		st := stackOf(tt.exp, 2)
		gas, err := gasExpFrontier(evm, nil, st, nil, 0)
		require.NoError(t, err)
		require.Equal(t, tt.frontier, gas)
		gas, err = gasExpEIP158(evm, nil, st, nil, 0)
		require.NoError(t, err)
		require.Equal(t, tt.eip158, gas)
	}
}

func TestCopyGas(t *testing.T) {
	evm, _ := newTestEVM(t, nil, nil)
	// length 33 spans two words, memory of 64 bytes costs 6
	gas, err := gasCallDataCopy(evm, nil, stackOf(33, 0, 0), NewMemory(), 64)
	require.NoError(t, err)
	require.Equal(t, uint64(6+2*params.CopyGas), gas)

	st := newstack()
	st.push(new(uint256.Int).SetAllOne())
	st.push(uint256.NewInt(0))
	st.push(uint256.NewInt(0))
	_, err = gasCallDataCopy(evm, nil, st, NewMemory(), 0)
	require.ErrorIs(t, err, ErrGasUintOverflow)

	gas, err = gasKeccak256(evm, nil, stackOf(64, 0), NewMemory(), 64)
	require.NoError(t, err)
	require.Equal(t, uint64(6+2*params.Keccak256WordGas), gas)
}

func TestInitCodeGas(t *testing.T) {
	evm, _ := newTestEVM(t, nil, nil)
	gas, err := gasCreateEip3860(evm, nil, stackOf(64, 0, 0), NewMemory(), 64)
	require.NoError(t, err)
	require.Equal(t, uint64(6+2*params.InitCodeWordGas), gas)

	gas, err = gasCreate2Eip3860(evm, nil, stackOf(0, 64, 0, 0), NewMemory(), 64)
	require.NoError(t, err)
	require.Equal(t, uint64(6+2*(params.InitCodeWordGas+params.Keccak256WordGas)), gas)

	_, err = gasCreateEip3860(evm, nil, stackOf(params.MaxInitCodeSize+1, 0, 0), NewMemory(), 0)
	require.ErrorIs(t, err, ErrMaxInitCodeSizeExceeded)
}

func TestLogGas(t *testing.T) {
	evm, _ := newTestEVM(t, nil, nil)
	gas, err := makeGasLog(2)(evm, nil, stackOf(0, 0, 10, 0), NewMemory(), 10)
	require.NoError(t, err)
	require.Equal(t, uint64(3+params.LogGas+2*params.LogTopicGas+10*params.LogDataGas), gas)

	_, err = makeGasLog(0)(evm, nil, stackOf(math.MaxUint64/2, 0), NewMemory(), 0)
	require.ErrorIs(t, err, ErrGasUintOverflow)
}

func TestAddGas(t *testing.T) {
	sum, err := addGas(1, 2, 3)
	require.NoError(t, err)
	require.Equal(t, uint64(6), sum)

	_, err = addGas(math.MaxUint64, 1)
	require.ErrorIs(t, err, ErrGasUintOverflow)
}

func TestCallColdSurcharge(t *testing.T) {
	evm, _ := newTestEVM(t, nil, nil)
	// outSize, outOffset, inSize, inOffset, value, addr, gas
	call := func() *Stack {
		return stackOf(0, 0, 0, 0, 0, 0xbeef, 1000)
	}
	contract := NewContract(testCaller, testContract, nil, 100000, nil)
	gas, err := gasCallEIP2929(evm, contract, call(), NewMemory(), 0)
	require.NoError(t, err)
	require.Equal(t, uint64(1000+params.ColdAccountAccessCostEIP2929-params.WarmStorageReadCostEIP2929), gas)
	require.Equal(t, uint64(100000), contract.Gas)
	require.Equal(t, uint64(1000), evm.callGasTemp)

	gas, err = gasCallEIP2929(evm, contract, call(), NewMemory(), 0)
	require.NoError(t, err)
	require.Equal(t, uint64(1000), gas)
}
