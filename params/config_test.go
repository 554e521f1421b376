// Copyright 2017 The go-ethereum Authors
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
// Package forks enumerates the protocol upgrades the interpreter understands.
package params

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/go-evm/params/forks"
)

func TestConfigForFork(t *testing.T) {
	for f := forks.Frontier; f <= forks.Latest; f++ {
		c := ConfigForFork(f)
		require.NoError(t, c.CheckConfigForkOrder(), "fork %v", f)
		require.Equal(t, f, c.LatestFork(big.NewInt(0), 0), "fork %v", f)
	}
}

func TestRules(t *testing.T) {
	c := ConfigForFork(forks.Cancun)
	r := c.Rules(big.NewInt(0), true, 0)
	require.True(t, r.IsCancun)
	require.True(t, r.IsEIP2929)
	require.False(t, r.IsPrague)

	// Merge cannot be claimed before London.
	c = ConfigForFork(forks.Berlin)
	r = c.Rules(big.NewInt(0), true, 0)
	require.False(t, r.IsMerge)
	require.True(t, r.IsBerlin)
}

func TestCheckCompatibleOrder(t *testing.T) {
	c := &ChainConfig{
		HomesteadBlock: big.NewInt(0),
		EIP150Block:    nil,
		EIP155Block:    big.NewInt(10),
	}
	require.Error(t, c.CheckConfigForkOrder())

	c = &ChainConfig{
		HomesteadBlock: big.NewInt(10),
		EIP150Block:    big.NewInt(5),
	}
	require.Error(t, c.CheckConfigForkOrder())
}

func TestMainnetSchedule(t *testing.T) {
	c := MainnetChainConfig
	require.NoError(t, c.CheckConfigForkOrder())
	require.Equal(t, forks.Byzantium, c.LatestFork(big.NewInt(4_370_000), 0))
	require.Equal(t, forks.SpuriousDragon, c.LatestFork(big.NewInt(4_369_999), 0))
	require.Equal(t, forks.Cancun, c.LatestFork(big.NewInt(20_000_000), 1710338135))
}
