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

package vm

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/holiman/uint256"
	"github.com/sunyihoo/go-evm/params"
)

// eip is an opt-in change to a fork's instruction set.
type eip struct {
	number int
	title  string
	enable func(*JumpTable)
}

// eips lists every EIP that can be layered on a fork table, by number.
var eips = []eip{
	{1153, "Transient storage opcodes", enable1153},
	{1344, "CHAINID opcode", enable1344},
	{1884, "Repricing for trie-size-dependent opcodes", enable1884},
	{2200, "Structured definitions for net gas metering", enable2200},
	{2929, "Gas cost increases for state access opcodes", enable2929},
	{3198, "BASEFEE opcode", enable3198},
	{3529, "Reduction in refunds", enable3529},
	{3855, "PUSH0 instruction", enable3855},
	{3860, "Limit and meter initcode", enable3860},
	{4844, "BLOBHASH opcode", enable4844},
	{5656, "MCOPY instruction", enable5656},
	{6780, "SELFDESTRUCT only in same transaction", enable6780},
	{7516, "BLOBBASEFEE opcode", enable7516},
	{7939, "Count leading zeros (CLZ) opcode", enable7939},
}

func lookupEip(num int) (eip, bool) {
	i, found := slices.BinarySearchFunc(eips, num, func(e eip, n int) int { return e.number - n })
	if !found {
		return eip{}, false
	}
	return eips[i], true
}

// EnableEIP applies eipNum to jt in place. Callers must pass a copy, never
// one of the shared fork tables.
func EnableEIP(eipNum int, jt *JumpTable) error {
	e, ok := lookupEip(eipNum)
	if !ok {
		return fmt.Errorf("undefined eip %d", eipNum)
	}
	e.enable(jt)
	return nil
}

// ValidEip reports whether eipNum can be activated on top of a fork table.
func ValidEip(eipNum int) bool {
	_, ok := lookupEip(eipNum)
	return ok
}

// ActivateableEips returns the numbers accepted by EnableEIP in ascending order.
func ActivateableEips() []string {
	nums := make([]string, len(eips))
	for i, e := range eips {
		nums[i] = strconv.Itoa(e.number)
	}
	return nums
}

// EipTitle returns the short title of an activatable EIP.
func EipTitle(eipNum int) string {
	e, _ := lookupEip(eipNum)
	return e.title
}

// simpleOp describes an instruction with a fixed price and no memory access.
func simpleOp(execute executionFunc, gas uint64, pops, pushes int) *operation {
	return &operation{
		execute:     execute,
		constantGas: gas,
		minStack:    minStack(pops, pushes),
		maxStack:    maxStack(pops, pushes),
	}
}

// enable1884 reprices SLOAD, BALANCE and EXTCODEHASH and adds SELFBALANCE.
func enable1884(jt *JumpTable) {
	jt[SLOAD].constantGas = params.SloadGasEIP1884
	jt[BALANCE].constantGas = params.BalanceGasEIP1884
	jt[EXTCODEHASH].constantGas = params.ExtcodeHashGasEIP1884

	jt[SELFBALANCE] = simpleOp(opSelfBalance, GasFastStep, 0, 1)
}

func opSelfBalance(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	balance := interpreter.evm.StateDB.GetBalance(scope.Contract.Address())
	scope.Stack.push(balance)
	return nil, nil
}

func enable1344(jt *JumpTable) {
	jt[CHAINID] = simpleOp(opChainID, GasQuickStep, 0, 1)
}

// opChainID pushes the EIP-155 chain identifier.
func opChainID(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(bigToWord(interpreter.evm.chainRules.ChainID))
	return nil, nil
}

func enable2200(jt *JumpTable) {
	jt[SLOAD].constantGas = params.SloadGasEIP2200
	jt[SSTORE].dynamicGas = gasSStoreEIP2200
}

// enable2929 introduces access lists for accounts and slots.
// 温访问费用计入 constantGas，冷访问的差额在 dynamicGas 中收取。
func enable2929(jt *JumpTable) {
	jt[SSTORE].dynamicGas = gasSStoreEIP2929

	jt[SLOAD].constantGas = 0
	jt[SLOAD].dynamicGas = gasSLoadEIP2929

	for op, fn := range map[OpCode]gasFunc{
		EXTCODECOPY:  gasExtCodeCopyEIP2929,
		EXTCODESIZE:  gasEip2929AccountCheck,
		EXTCODEHASH:  gasEip2929AccountCheck,
		BALANCE:      gasEip2929AccountCheck,
		CALL:         gasCallEIP2929,
		CALLCODE:     gasCallCodeEIP2929,
		STATICCALL:   gasStaticCallEIP2929,
		DELEGATECALL: gasDelegateCallEIP2929,
	} {
		jt[op].constantGas = params.WarmStorageReadCostEIP2929
		jt[op].dynamicGas = fn
	}
	// The EIP-150 base price moves from the dynamic to the constant part.
	jt[SELFDESTRUCT].constantGas = params.SelfdestructGasEIP150
	jt[SELFDESTRUCT].dynamicGas = gasSelfdestructEIP2929
}

// enable3529 drops the SELFDESTRUCT refund and lowers the SSTORE clearing
// refund. The refund cap moves to gas used / 5 in the state transition.
func enable3529(jt *JumpTable) {
	jt[SSTORE].dynamicGas = gasSStoreEIP3529
	jt[SELFDESTRUCT].dynamicGas = gasSelfdestructEIP3529
}

func enable3198(jt *JumpTable) {
	jt[BASEFEE] = simpleOp(opBaseFee, GasQuickStep, 0, 1)
}

func opBaseFee(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(bigToWord(interpreter.evm.Context.BaseFee))
	return nil, nil
}

// enable1153 adds TLOAD and TSTORE. Both cost a warm read and the values
// live until the end of the transaction.
func enable1153(jt *JumpTable) {
	jt[TLOAD] = simpleOp(opTload, params.WarmStorageReadCostEIP2929, 1, 1)
	jt[TSTORE] = simpleOp(opTstore, params.WarmStorageReadCostEIP2929, 2, 0)
}

func opTload(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	slot := scope.Stack.peek()
	value := interpreter.evm.StateDB.GetTransientState(scope.Contract.Address(), slot.Bytes32())
	slot.SetBytes32(value[:])
	return nil, nil
}

func opTstore(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	if interpreter.readOnly {
		return nil, ErrWriteProtection
	}
	slot, value := scope.Stack.pop(), scope.Stack.pop()
	interpreter.evm.StateDB.SetTransientState(scope.Contract.Address(), slot.Bytes32(), value.Bytes32())
	return nil, nil
}

func enable3855(jt *JumpTable) {
	jt[PUSH0] = simpleOp(opPush0, GasQuickStep, 0, 1)
}

func opPush0(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(new(uint256.Int))
	return nil, nil
}

// enable3860 caps initcode at twice the code size limit and charges for it
// per word.
func enable3860(jt *JumpTable) {
	jt[CREATE].dynamicGas = gasCreateEip3860
	jt[CREATE2].dynamicGas = gasCreate2Eip3860
}

func enable5656(jt *JumpTable) {
	jt[MCOPY] = &operation{
		execute:     opMcopy,
		constantGas: GasFastestStep,
		dynamicGas:  gasMcopy,
		minStack:    minStack(3, 0),
		maxStack:    maxStack(3, 0),
		memorySize:  memoryMcopy,
	}
}

// opMcopy copies within memory. The operands were bounded by memoryMcopy
// before the interpreter got here.
func opMcopy(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	dst, src, length := scope.Stack.pop(), scope.Stack.pop(), scope.Stack.pop()
	return nil, scope.Memory.Copy(dst.Uint64(), src.Uint64(), length.Uint64())
}

func enable4844(jt *JumpTable) {
	jt[BLOBHASH] = simpleOp(opBlobHash, GasFastestStep, 1, 1)
}

// opBlobHash replaces the index on the stack with the versioned hash of
// that blob, or zero when the transaction carries fewer blobs.
func opBlobHash(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	var (
		index  = scope.Stack.peek()
		hashes = interpreter.evm.TxContext.BlobHashes
	)
	if !index.LtUint64(uint64(len(hashes))) {
		index.Clear()
		return nil, nil
	}
	index.SetBytes32(hashes[index.Uint64()][:])
	return nil, nil
}

func enable7516(jt *JumpTable) {
	jt[BLOBBASEFEE] = simpleOp(opBlobBaseFee, GasQuickStep, 0, 1)
}

func opBlobBaseFee(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	scope.Stack.push(bigToWord(interpreter.evm.Context.BlobBaseFee))
	return nil, nil
}

// enable6780 limits SELFDESTRUCT to accounts created in the same transaction.
func enable6780(jt *JumpTable) {
	jt[SELFDESTRUCT] = &operation{
		execute:     opSelfdestruct6780,
		dynamicGas:  gasSelfdestructEIP3529,
		constantGas: params.SelfdestructGasEIP150,
		minStack:    minStack(1, 0),
		maxStack:    maxStack(1, 0),
	}
}

// 统计前导零个数，输入为 0 时结果为 256。
func enable7939(jt *JumpTable) {
	jt[CLZ] = simpleOp(opCLZ, GasFastStep, 1, 1)
}

func opCLZ(pc *uint64, interpreter *EVMInterpreter, scope *ScopeContext) ([]byte, error) {
	x := scope.Stack.peek()
	x.SetUint64(256 - uint64(x.BitLen()))
	return nil, nil
}
