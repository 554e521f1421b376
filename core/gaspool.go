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

package core

import "fmt"

// GasPool tracks the gas available to a sequence of executions that share one
// block gas limit. Each execution reserves its whole gas limit up front and
// hands back what it did not spend.
type GasPool struct {
	limit     uint64
	remaining uint64
}

// NewGasPool returns a pool holding limit gas.
func NewGasPool(limit uint64) *GasPool {
	return &GasPool{limit: limit, remaining: limit}
}

// SubGas reserves amount from the pool. A failed reservation leaves the pool
// untouched.
func (gp *GasPool) SubGas(amount uint64) error {
	if gp.remaining < amount {
		return fmt.Errorf("%w: have %d, want %d", ErrGasLimitReached, gp.remaining, amount)
	}
	gp.remaining -= amount
	return nil
}

// ReturnGas gives back reserved gas. The pool never grows past its limit.
func (gp *GasPool) ReturnGas(amount uint64) error {
	if used := gp.Used(); amount > used {
		return fmt.Errorf("%w: returning %d with %d in use", ErrGasPoolOverflow, amount, used)
	}
	gp.remaining += amount
	return nil
}

// Gas returns the amount of gas remaining in the pool.
func (gp *GasPool) Gas() uint64 { return gp.remaining }

// Used returns the gas currently reserved or spent.
func (gp *GasPool) Used() uint64 { return gp.limit - gp.remaining }

func (gp *GasPool) String() string {
	return fmt.Sprintf("%d/%d", gp.Used(), gp.limit)
}
