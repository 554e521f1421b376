// Copyright 2015 The go-ethereum Authors
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

package runtime

import (
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/go-evm/common"
	"github.com/sunyihoo/go-evm/core"
	"github.com/sunyihoo/go-evm/core/state"
	"github.com/sunyihoo/go-evm/core/tracing"
	"github.com/sunyihoo/go-evm/core/types"
	"github.com/sunyihoo/go-evm/core/vm"
	"github.com/sunyihoo/go-evm/crypto"
	"github.com/sunyihoo/go-evm/ethdb/memorydb"
	"github.com/sunyihoo/go-evm/params"
	"github.com/sunyihoo/go-evm/params/forks"
)

func TestDefaults(t *testing.T) {
	cfg := new(Config)
	setDefaults(cfg)

	require.NotNil(t, cfg.ChainConfig)
	require.Equal(t, uint64(1<<64-1), cfg.GasLimit)
	require.Zero(t, cfg.GasPrice.Sign())
	require.Zero(t, cfg.Value.Sign())
	require.Zero(t, cfg.BlockNumber.Sign())
	require.Equal(t, int64(params.InitialBaseFee), cfg.BaseFee.Int64())
	require.NotNil(t, cfg.GetHashFn)
	require.NotNil(t, cfg.Random, "a merged fork needs PREVRANDAO")

	pre := new(Config)
	pre.ChainConfig = params.ConfigForFork(forks.London)
	setDefaults(pre)
	require.Nil(t, pre.Random)
}

func TestStageOrder(t *testing.T) {
	var names []string
	for _, s := range Stages {
		names = append(names, s.Name)
	}
	require.Equal(t, []string{"load-precompiles", "load-accounts", "deduct-caller", "run-interpreter", "finalize"}, names)
}

func TestExecute(t *testing.T) {
	// PUSH1 0 PUSH1 0 MSTORE MSIZE PUSH1 0 MSTORE PUSH1 32 PUSH1 0 RETURN
	res, _, err := Execute(common.Hex2Bytes("6000600052596000526020"+"6000f3"), nil, nil)
	require.NoError(t, err)
	require.Equal(t, vm.HaltSuccess, res.Halt)
	require.False(t, res.Failed())
	require.Equal(t, common.LeftPadBytes([]byte{32}, 32), res.ReturnData)
	require.Equal(t, uint64(26), res.GasUsed)
}

func TestExecuteRevert(t *testing.T) {
	res, _, err := Execute([]byte{byte(vm.PUSH1), 0, byte(vm.PUSH1), 0, byte(vm.REVERT)}, nil, nil)
	require.NoError(t, err, "a revert is a result, not an error")
	require.Equal(t, vm.HaltRevert, res.Halt)
	require.True(t, res.Failed())
	require.ErrorIs(t, res.Err, vm.ErrExecutionReverted)
	require.Equal(t, uint64(6), res.GasUsed)
}

func TestExecuteExceptionalHalt(t *testing.T) {
	res, _, err := Execute([]byte{byte(vm.INVALID)}, nil, &Config{GasLimit: 50000})
	require.NoError(t, err)
	require.Equal(t, vm.HaltError, res.Halt)
	require.Equal(t, uint64(50000), res.GasUsed)
	require.Zero(t, res.GasLeft)
}

func TestRefundCap(t *testing.T) {
	// SSTORE 1 then 0 into slot 0: the reset earns 19900, capped at a fifth.
	code := []byte{
		byte(vm.PUSH1), 1, byte(vm.PUSH1), 0, byte(vm.SSTORE),
		byte(vm.PUSH1), 0, byte(vm.PUSH1), 0, byte(vm.SSTORE),
		byte(vm.STOP),
	}
	res, _, err := Execute(code, nil, nil)
	require.NoError(t, err)
	const used = 3 + 3 + 22100 + 3 + 3 + 100
	require.Equal(t, uint64(used/5), res.Refund)
	require.Equal(t, uint64(used-used/5), res.GasUsed)

	// before London the cap is a half and the reset refund is larger than that
	res, _, err = Execute(code, nil, &Config{ChainConfig: params.ConfigForFork(forks.Berlin)})
	require.NoError(t, err)
	require.Equal(t, uint64(used/2), res.Refund)
	require.Equal(t, uint64(used-used/2), res.GasUsed)
}

func TestExecuteStorage(t *testing.T) {
	// SSTORE 0x2a at slot 1
	code := []byte{byte(vm.PUSH1), 0x2a, byte(vm.PUSH1), 1, byte(vm.SSTORE)}
	res, statedb, err := Execute(code, nil, nil)
	require.NoError(t, err)
	require.False(t, res.Failed())

	addr := common.BytesToAddress([]byte("contract"))
	require.Equal(t, common.BigToHash(big.NewInt(0x2a)), statedb.GetState(addr, common.BigToHash(big.NewInt(1))))
}

func TestCreate(t *testing.T) {
	// initcode returning the single byte 0xfe
	initcode := []byte{
		byte(vm.PUSH1), 0xfe, byte(vm.PUSH1), 0, byte(vm.MSTORE8),
		byte(vm.PUSH1), 1, byte(vm.PUSH1), 0, byte(vm.RETURN),
	}
	origin := common.HexToAddress("0xdeadbeef")
	cfg := &Config{Origin: origin}
	res, err := Create(initcode, cfg)
	require.NoError(t, err)
	require.False(t, res.Failed())
	require.Equal(t, crypto.CreateAddress(origin, 0), res.ContractAddress)
	require.Equal(t, []byte{0xfe}, cfg.State.GetCode(res.ContractAddress))
	require.Equal(t, uint64(1), cfg.State.GetNonce(origin))

	// the deployed code is callable
	res, err = Call(res.ContractAddress, nil, cfg)
	require.NoError(t, err)
	require.Equal(t, vm.HaltError, res.Halt)
	require.Equal(t, uint64(2), cfg.State.GetNonce(origin))
}

func TestCallRequiresState(t *testing.T) {
	_, err := Call(common.Address{}, nil, nil)
	require.Error(t, err)
	_, err = Call(common.Address{}, nil, &Config{})
	require.Error(t, err)
}

func TestIntrinsicGas(t *testing.T) {
	cfg := &Config{IntrinsicGas: true, GasLimit: params.TxGas - 1}
	_, _, err := Execute([]byte{byte(vm.STOP)}, nil, cfg)
	require.ErrorIs(t, err, core.ErrIntrinsicGas)
	require.True(t, strings.HasPrefix(err.Error(), "deduct-caller: "), err.Error())

	res, _, err := Execute([]byte{byte(vm.STOP)}, []byte{0, 1}, &Config{IntrinsicGas: true, GasLimit: 100000})
	require.NoError(t, err)
	require.Equal(t, params.TxGas+params.TxDataZeroGas+params.TxDataNonZeroGasEIP2028, res.GasUsed)
}

func TestGasPurchase(t *testing.T) {
	origin := common.HexToAddress("0xfee")

	_, _, err := Execute([]byte{byte(vm.STOP)}, nil, &Config{Origin: origin, GasPrice: big.NewInt(1), GasLimit: 100000})
	require.ErrorIs(t, err, core.ErrInsufficientFunds)

	statedb := NewState()
	statedb.AddBalance(origin, uint256.NewInt(1_000_000), tracing.BalanceChangeUnspecified)
	code := []byte{byte(vm.PUSH1), 0, byte(vm.PUSH1), 0, byte(vm.STOP)}
	res, _, err := Execute(code, nil, &Config{Origin: origin, GasPrice: big.NewInt(2), GasLimit: 100000, State: statedb})
	require.NoError(t, err)
	require.Equal(t, uint64(6), res.GasUsed)
	require.Equal(t, uint64(1_000_000-2*6), statedb.GetBalance(origin).Uint64())
}

func TestSharedGasPool(t *testing.T) {
	gp := core.NewGasPool(100000)
	code := []byte{byte(vm.PUSH1), 1, byte(vm.PUSH1), 2, byte(vm.ADD), byte(vm.STOP)}

	res, _, err := Execute(code, nil, &Config{GasLimit: 60000, GasPool: gp})
	require.NoError(t, err)
	require.Equal(t, uint64(9), res.GasUsed)
	require.Equal(t, uint64(9), gp.Used(), "only the spent gas stays reserved")

	res, _, err = Execute(code, nil, &Config{GasLimit: 60000, GasPool: gp})
	require.NoError(t, err)
	require.Equal(t, uint64(18), gp.Used())

	_, _, err = Execute(code, nil, &Config{GasLimit: 100000, GasPool: gp})
	require.ErrorIs(t, err, core.ErrGasLimitReached)
	require.Equal(t, uint64(18), gp.Used())
}

func TestRejectedMessageKeepsBalance(t *testing.T) {
	origin := common.BytesToAddress([]byte("origin"))
	code := []byte{byte(vm.STOP)}

	// the pool cannot cover the limit
	statedb := NewState()
	statedb.AddBalance(origin, uint256.NewInt(1_000_000), tracing.BalanceChangeUnspecified)
	gp := core.NewGasPool(100)
	_, _, err := Execute(code, nil, &Config{Origin: origin, GasPrice: big.NewInt(1), GasLimit: 1000, GasPool: gp, State: statedb})
	require.ErrorIs(t, err, core.ErrGasLimitReached)
	require.Equal(t, uint64(1_000_000), statedb.GetBalance(origin).Uint64())
	require.Zero(t, gp.Used())

	// the limit does not cover the intrinsic charge
	_, _, err = Execute(code, nil, &Config{Origin: origin, GasPrice: big.NewInt(1), GasLimit: 1000, IntrinsicGas: true, State: statedb})
	require.ErrorIs(t, err, core.ErrIntrinsicGas)
	require.Equal(t, uint64(1_000_000), statedb.GetBalance(origin).Uint64())

	// unaffordable gas gives the reservation back
	gp = core.NewGasPool(1_000_000_000)
	_, _, err = Execute(code, nil, &Config{Origin: origin, GasPrice: big.NewInt(1000), GasLimit: 100000, GasPool: gp, State: statedb})
	require.ErrorIs(t, err, core.ErrInsufficientFunds)
	require.Zero(t, gp.Used())
	require.Equal(t, uint64(1_000_000), statedb.GetBalance(origin).Uint64())
}

func TestAccessListWarmsSlots(t *testing.T) {
	addr := common.BytesToAddress([]byte("contract"))
	code := []byte{byte(vm.PUSH1), 0, byte(vm.SLOAD), byte(vm.STOP)}

	res, _, err := Execute(code, nil, nil)
	require.NoError(t, err)
	require.Equal(t, uint64(3+2100), res.GasUsed)

	al := types.AccessList{{Address: addr, StorageKeys: []common.Hash{{}}}}
	res, _, err = Execute(code, nil, &Config{AccessList: al})
	require.NoError(t, err)
	require.Equal(t, uint64(3+100), res.GasUsed)
}

func TestPrecompileOverride(t *testing.T) {
	// CALL the identity address with no code behind it
	code := []byte{
		byte(vm.PUSH1), 0, byte(vm.PUSH1), 0, byte(vm.PUSH1), 0, byte(vm.PUSH1), 0, byte(vm.PUSH1), 0,
		byte(vm.PUSH1), 4, byte(vm.GAS), byte(vm.CALL),
		byte(vm.PUSH1), 0, byte(vm.MSTORE), byte(vm.PUSH1), 32, byte(vm.PUSH1), 0, byte(vm.RETURN),
	}
	res, _, err := Execute(code, nil, nil)
	require.NoError(t, err)
	require.Equal(t, common.LeftPadBytes([]byte{1}, 32), res.ReturnData)

	// without precompiles the call hits an empty account and still succeeds,
	// but the address is no longer prewarmed
	over, _, err := Execute(code, nil, &Config{Precompiles: vm.PrecompiledContracts{}})
	require.NoError(t, err)
	require.Equal(t, common.LeftPadBytes([]byte{1}, 32), over.ReturnData)
	require.Greater(t, over.GasUsed, res.GasUsed)
}

var errBackendDown = errors.New("backend down")

type accountFailingBackend struct {
	state.Backend
}

func (accountFailingBackend) Account(common.Address) (*types.StateAccount, error) {
	return nil, errBackendDown
}

func TestBackendError(t *testing.T) {
	db, err := state.NewDatabase(memorydb.New())
	require.NoError(t, err)

	res, _, err := Execute([]byte{byte(vm.STOP)}, nil, &Config{State: state.New(accountFailingBackend{db})})
	require.Nil(t, res)
	require.True(t, vm.IsBackendError(err), "have %v", err)
	require.ErrorIs(t, err, errBackendDown)
}

func TestTracerHooks(t *testing.T) {
	var (
		started, ended bool
		steps          int
	)
	hooks := &tracing.Hooks{
		OnTxStart: func(*tracing.VMContext, common.Address, *common.Address, uint64) { started = true },
		OnTxEnd:   func(uint64, error) { ended = true },
		OnOpcode: func(uint64, byte, uint64, uint64, tracing.OpContext, []byte, int, error) {
			steps++
		},
	}
	_, _, err := Execute([]byte{byte(vm.PUSH1), 1, byte(vm.POP), byte(vm.STOP)}, nil, &Config{EVMConfig: vm.Config{Tracer: hooks}})
	require.NoError(t, err)
	require.True(t, started)
	require.True(t, ended)
	require.Equal(t, 3, steps)
}

func TestTimeout(t *testing.T) {
	// JUMPDEST PUSH1 0 JUMP
	_, _, err := Execute(common.Hex2Bytes("5b600056"), nil, &Config{GasLimit: 1<<64 - 1, Timeout: 50 * time.Millisecond})
	require.ErrorIs(t, err, ErrExecutionAborted)
}

func TestTimeoutRevertsWrites(t *testing.T) {
	// PUSH1 1 PUSH1 0 SSTORE JUMPDEST PUSH1 5 JUMP
	code := []byte{byte(vm.PUSH1), 1, byte(vm.PUSH1), 0, byte(vm.SSTORE), byte(vm.JUMPDEST), byte(vm.PUSH1), 5, byte(vm.JUMP)}
	_, statedb, err := Execute(code, nil, &Config{GasLimit: 1<<64 - 1, Timeout: 20 * time.Millisecond})
	require.ErrorIs(t, err, ErrExecutionAborted)
	addr := common.BytesToAddress([]byte("contract"))
	require.Equal(t, common.Hash{}, statedb.GetState(addr, common.Hash{}))
}
