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
// Package forks enumerates the protocol upgrades the interpreter understands.
package params

import (
	"fmt"
	"math"
	"math/big"

	"github.com/sunyihoo/go-evm/params/forks"
)

func newUint64(val uint64) *uint64 { return &val }

var (
	// MainnetChainConfig is the chain parameters of the main network. Only the
	// fork schedule is carried, the interpreter needs nothing else.
	// 主网的分叉时间表。
	MainnetChainConfig = &ChainConfig{
		ChainID:             big.NewInt(1),
		HomesteadBlock:      big.NewInt(1_150_000),
		EIP150Block:         big.NewInt(2_463_000),
		EIP155Block:         big.NewInt(2_675_000),
		EIP158Block:         big.NewInt(2_675_000),
		ByzantiumBlock:      big.NewInt(4_370_000),
		ConstantinopleBlock: big.NewInt(7_280_000),
		PetersburgBlock:     big.NewInt(7_280_000),
		IstanbulBlock:       big.NewInt(9_069_000),
		BerlinBlock:         big.NewInt(12_244_000),
		LondonBlock:         big.NewInt(12_965_000),
		MergeBlock:          big.NewInt(15_537_394),
		ShanghaiTime:        newUint64(1681338455),
		CancunTime:          newUint64(1710338135),
		PragueTime:          newUint64(1746612311),
	}

	// AllDevChainProtocolChanges contains every protocol change introduced
	// and accepted by the Ethereum core developers, active from genesis.
	// 所有分叉都在创世时激活，供测试和 CLI 默认使用。
	AllDevChainProtocolChanges = ConfigForFork(forks.Latest)

	// TestChainConfig is the pre-merge configuration used by most unit tests.
	TestChainConfig = ConfigForFork(forks.London)
)

// ChainConfig is the core config which determines the blockchain settings.
//
// ChainConfig is stored in the CLI's TOML file on a per block basis. Forks up to
// and including the merge are scheduled by block number, later ones by timestamp.
type ChainConfig struct {
	ChainID *big.Int `json:"chainId" toml:",omitempty"` // chainId identifies the current chain and is used for replay protection

	HomesteadBlock *big.Int `json:"homesteadBlock,omitempty" toml:",omitempty"` // Homestead switch block (nil = no fork, 0 = already homestead)

	EIP150Block *big.Int `json:"eip150Block,omitempty" toml:",omitempty"` // EIP150 HF block (nil = no fork)
	EIP155Block *big.Int `json:"eip155Block,omitempty" toml:",omitempty"` // EIP155 HF block
	EIP158Block *big.Int `json:"eip158Block,omitempty" toml:",omitempty"` // EIP158 HF block

	ByzantiumBlock      *big.Int `json:"byzantiumBlock,omitempty" toml:",omitempty"`      // Byzantium switch block (nil = no fork, 0 = already on byzantium)
	ConstantinopleBlock *big.Int `json:"constantinopleBlock,omitempty" toml:",omitempty"` // Constantinople switch block (nil = no fork, 0 = already activated)
	PetersburgBlock     *big.Int `json:"petersburgBlock,omitempty" toml:",omitempty"`     // Petersburg switch block (nil = same as Constantinople)
	IstanbulBlock       *big.Int `json:"istanbulBlock,omitempty" toml:",omitempty"`       // Istanbul switch block (nil = no fork, 0 = already on istanbul)
	BerlinBlock         *big.Int `json:"berlinBlock,omitempty" toml:",omitempty"`         // Berlin switch block (nil = no fork, 0 = already on berlin)
	LondonBlock         *big.Int `json:"londonBlock,omitempty" toml:",omitempty"`         // London switch block (nil = no fork, 0 = already on london)
	MergeBlock          *big.Int `json:"mergeBlock,omitempty" toml:",omitempty"`          // First proof-of-stake block (nil = never merged)

	ShanghaiTime *uint64 `json:"shanghaiTime,omitempty" toml:",omitempty"` // Shanghai switch time (nil = no fork, 0 = already on shanghai)
	CancunTime   *uint64 `json:"cancunTime,omitempty" toml:",omitempty"`   // Cancun switch time (nil = no fork, 0 = already on cancun)
	PragueTime   *uint64 `json:"pragueTime,omitempty" toml:",omitempty"`   // Prague switch time (nil = no fork, 0 = already on prague)
	OsakaTime    *uint64 `json:"osakaTime,omitempty" toml:",omitempty"`    // Osaka switch time (nil = no fork, 0 = already on osaka)
}

// ConfigForFork returns a chain configuration with every fork up to and
// including f active from genesis and all later forks disabled.
func ConfigForFork(f forks.Fork) *ChainConfig {
	c := &ChainConfig{ChainID: big.NewInt(1337)}
	block := func(at forks.Fork) *big.Int {
		if f >= at {
			return big.NewInt(0)
		}
		return nil
	}
	time := func(at forks.Fork) *uint64 {
		if f >= at {
			return newUint64(0)
		}
		return nil
	}
	c.HomesteadBlock = block(forks.Homestead)
	c.EIP150Block = block(forks.TangerineWhistle)
	c.EIP155Block = block(forks.SpuriousDragon)
	c.EIP158Block = block(forks.SpuriousDragon)
	c.ByzantiumBlock = block(forks.Byzantium)
	c.ConstantinopleBlock = block(forks.Constantinople)
	c.PetersburgBlock = block(forks.Petersburg)
	if f == forks.Constantinople {
		// A nil Petersburg block means Petersburg rules apply together with
		// Constantinople, so push it out of reach to keep EIP-1283 metering.
		c.PetersburgBlock = new(big.Int).SetUint64(math.MaxUint64)
	}
	c.IstanbulBlock = block(forks.Istanbul)
	c.BerlinBlock = block(forks.Berlin)
	c.LondonBlock = block(forks.London)
	c.MergeBlock = block(forks.Paris)
	c.ShanghaiTime = time(forks.Shanghai)
	c.CancunTime = time(forks.Cancun)
	c.PragueTime = time(forks.Prague)
	c.OsakaTime = time(forks.Osaka)
	return c
}

// Description returns a human-readable description of ChainConfig.
func (c *ChainConfig) Description() string {
	var banner string
	banner += fmt.Sprintf("Chain ID:  %v\n", c.ChainID)
	banner += "Hard forks (block based):\n"
	banner += fmt.Sprintf(" - Homestead:      #%-8v\n", c.HomesteadBlock)
	banner += fmt.Sprintf(" - Tangerine    :  #%-8v\n", c.EIP150Block)
	banner += fmt.Sprintf(" - Spurious     :  #%-8v\n", c.EIP155Block)
	banner += fmt.Sprintf(" - Byzantium:      #%-8v\n", c.ByzantiumBlock)
	banner += fmt.Sprintf(" - Constantinople: #%-8v\n", c.ConstantinopleBlock)
	banner += fmt.Sprintf(" - Petersburg:     #%-8v\n", c.PetersburgBlock)
	banner += fmt.Sprintf(" - Istanbul:       #%-8v\n", c.IstanbulBlock)
	banner += fmt.Sprintf(" - Berlin:         #%-8v\n", c.BerlinBlock)
	banner += fmt.Sprintf(" - London:         #%-8v\n", c.LondonBlock)
	banner += fmt.Sprintf(" - Merge:          #%-8v\n", c.MergeBlock)
	banner += "Hard forks (timestamp based):\n"
	for _, f := range []struct {
		name string
		time *uint64
	}{
		{"Shanghai", c.ShanghaiTime},
		{"Cancun", c.CancunTime},
		{"Prague", c.PragueTime},
		{"Osaka", c.OsakaTime},
	} {
		if f.time != nil {
			banner += fmt.Sprintf(" - %-15s @%-10v\n", f.name+":", *f.time)
		}
	}
	return banner
}

// IsHomestead returns whether num is either equal to the homestead block or greater.
func (c *ChainConfig) IsHomestead(num *big.Int) bool {
	return isBlockForked(c.HomesteadBlock, num)
}

// IsEIP150 returns whether num is either equal to the EIP150 fork block or greater.
func (c *ChainConfig) IsEIP150(num *big.Int) bool {
	return isBlockForked(c.EIP150Block, num)
}

// IsEIP155 returns whether num is either equal to the EIP155 fork block or greater.
func (c *ChainConfig) IsEIP155(num *big.Int) bool {
	return isBlockForked(c.EIP155Block, num)
}

// IsEIP158 returns whether num is either equal to the EIP158 fork block or greater.
func (c *ChainConfig) IsEIP158(num *big.Int) bool {
	return isBlockForked(c.EIP158Block, num)
}

// IsByzantium returns whether num is either equal to the Byzantium fork block or greater.
func (c *ChainConfig) IsByzantium(num *big.Int) bool {
	return isBlockForked(c.ByzantiumBlock, num)
}

// IsConstantinople returns whether num is either equal to the Constantinople fork block or greater.
func (c *ChainConfig) IsConstantinople(num *big.Int) bool {
	return isBlockForked(c.ConstantinopleBlock, num)
}

// IsPetersburg returns whether num is either
// - equal to or greater than the PetersburgBlock fork block,
// - OR is nil, and Constantinople is active
func (c *ChainConfig) IsPetersburg(num *big.Int) bool {
	return isBlockForked(c.PetersburgBlock, num) || c.PetersburgBlock == nil && isBlockForked(c.ConstantinopleBlock, num)
}

// IsIstanbul returns whether num is either equal to the Istanbul fork block or greater.
func (c *ChainConfig) IsIstanbul(num *big.Int) bool {
	return isBlockForked(c.IstanbulBlock, num)
}

// IsBerlin returns whether num is either equal to the Berlin fork block or greater.
func (c *ChainConfig) IsBerlin(num *big.Int) bool {
	return isBlockForked(c.BerlinBlock, num)
}

// IsLondon returns whether num is either equal to the London fork block or greater.
func (c *ChainConfig) IsLondon(num *big.Int) bool {
	return isBlockForked(c.LondonBlock, num)
}

// IsMerge returns whether num is at or past the first proof-of-stake block.
func (c *ChainConfig) IsMerge(num *big.Int) bool {
	return isBlockForked(c.MergeBlock, num)
}

// IsShanghai returns whether time is either equal to the Shanghai fork time or greater.
func (c *ChainConfig) IsShanghai(num *big.Int, time uint64) bool {
	return c.IsLondon(num) && isTimestampForked(c.ShanghaiTime, time)
}

// IsCancun returns whether time is either equal to the Cancun fork time or greater.
func (c *ChainConfig) IsCancun(num *big.Int, time uint64) bool {
	return c.IsLondon(num) && isTimestampForked(c.CancunTime, time)
}

// IsPrague returns whether time is either equal to the Prague fork time or greater.
func (c *ChainConfig) IsPrague(num *big.Int, time uint64) bool {
	return c.IsLondon(num) && isTimestampForked(c.PragueTime, time)
}

// IsOsaka returns whether time is either equal to the Osaka fork time or greater.
func (c *ChainConfig) IsOsaka(num *big.Int, time uint64) bool {
	return c.IsLondon(num) && isTimestampForked(c.OsakaTime, time)
}

// LatestFork returns the latest fork active at the given block and time.
func (c *ChainConfig) LatestFork(num *big.Int, time uint64) forks.Fork {
	switch {
	case c.IsOsaka(num, time):
		return forks.Osaka
	case c.IsPrague(num, time):
		return forks.Prague
	case c.IsCancun(num, time):
		return forks.Cancun
	case c.IsShanghai(num, time):
		return forks.Shanghai
	case c.IsMerge(num):
		return forks.Paris
	case c.IsLondon(num):
		return forks.London
	case c.IsBerlin(num):
		return forks.Berlin
	case c.IsIstanbul(num):
		return forks.Istanbul
	case c.IsPetersburg(num):
		return forks.Petersburg
	case c.IsConstantinople(num):
		return forks.Constantinople
	case c.IsByzantium(num):
		return forks.Byzantium
	case c.IsEIP158(num):
		return forks.SpuriousDragon
	case c.IsEIP150(num):
		return forks.TangerineWhistle
	case c.IsHomestead(num):
		return forks.Homestead
	default:
		return forks.Frontier
	}
}

// CheckConfigForkOrder checks that we don't "skip" any forks, geth isn't pluggable enough
// to guarantee that forks can be implemented in a different order than on official networks
func (c *ChainConfig) CheckConfigForkOrder() error {
	type fork struct {
		name      string
		block     *big.Int // forks up to - and including the merge - were defined with block numbers
		timestamp *uint64  // forks after the merge are scheduled using timestamps
		optional  bool     // if true, the fork may be nil and next fork is still allowed
	}
	var lastFork fork
	for _, cur := range []fork{
		{name: "homesteadBlock", block: c.HomesteadBlock},
		{name: "eip150Block", block: c.EIP150Block},
		{name: "eip155Block", block: c.EIP155Block},
		{name: "eip158Block", block: c.EIP158Block},
		{name: "byzantiumBlock", block: c.ByzantiumBlock},
		{name: "constantinopleBlock", block: c.ConstantinopleBlock},
		{name: "petersburgBlock", block: c.PetersburgBlock, optional: true},
		{name: "istanbulBlock", block: c.IstanbulBlock},
		{name: "berlinBlock", block: c.BerlinBlock},
		{name: "londonBlock", block: c.LondonBlock},
		{name: "mergeBlock", block: c.MergeBlock},
		{name: "shanghaiTime", timestamp: c.ShanghaiTime},
		{name: "cancunTime", timestamp: c.CancunTime},
		{name: "pragueTime", timestamp: c.PragueTime},
		{name: "osakaTime", timestamp: c.OsakaTime},
	} {
		if lastFork.name != "" {
			switch {
			// Non-optional forks must all be present in the chain config up to the last defined fork
			case lastFork.block == nil && lastFork.timestamp == nil && (cur.block != nil || cur.timestamp != nil):
				if cur.block != nil {
					return fmt.Errorf("unsupported fork ordering: %v not enabled, but %v enabled at block %v",
						lastFork.name, cur.name, cur.block)
				}
				return fmt.Errorf("unsupported fork ordering: %v not enabled, but %v enabled at timestamp %v",
					lastFork.name, cur.name, *cur.timestamp)

			// Fork (whether defined by block or timestamp) must follow the fork definition sequence
			case (lastFork.block != nil && cur.block != nil) || (lastFork.timestamp != nil && cur.timestamp != nil):
				if lastFork.block != nil && lastFork.block.Cmp(cur.block) > 0 {
					return fmt.Errorf("unsupported fork ordering: %v enabled at block %v, but %v enabled at block %v",
						lastFork.name, lastFork.block, cur.name, cur.block)
				} else if lastFork.timestamp != nil && *lastFork.timestamp > *cur.timestamp {
					return fmt.Errorf("unsupported fork ordering: %v enabled at timestamp %v, but %v enabled at timestamp %v",
						lastFork.name, *lastFork.timestamp, cur.name, *cur.timestamp)
				}
			}
		}
		// If it was optional and not set, then ignore it
		if !cur.optional || (cur.block != nil || cur.timestamp != nil) {
			lastFork = cur
		}
	}
	return nil
}

// isBlockForked returns whether a fork scheduled at block s is active at the
// given head block.
func isBlockForked(s, head *big.Int) bool {
	if s == nil || head == nil {
		return false
	}
	return s.Cmp(head) <= 0
}

// isTimestampForked returns whether a fork scheduled at timestamp s is active
// at the given head timestamp.
func isTimestampForked(s *uint64, head uint64) bool {
	if s == nil {
		return false
	}
	return *s <= head
}

// Rules wraps ChainConfig and is merely syntactic sugar or can be used for functions
// that do not have or require information about the block.
//
// Rules is a one time interface meaning that it shouldn't be used in between transition
// phases.
// Rules 在一次执行开始时计算一次，之后作为参数显式传递，不存在全局的"当前分叉"。
type Rules struct {
	ChainID                                                 *big.Int
	IsHomestead, IsEIP150, IsEIP155, IsEIP158               bool
	IsEIP2929                                               bool
	IsByzantium, IsConstantinople, IsPetersburg, IsIstanbul bool
	IsBerlin, IsLondon                                      bool
	IsMerge, IsShanghai, IsCancun, IsPrague, IsOsaka        bool
}

// Rules ensures c's ChainID is not nil.
func (c *ChainConfig) Rules(num *big.Int, isMerge bool, timestamp uint64) Rules {
	chainID := c.ChainID
	if chainID == nil {
		chainID = new(big.Int)
	}
	// disallow setting Merge out of order
	isMerge = isMerge && c.IsLondon(num)
	return Rules{
		ChainID:          new(big.Int).Set(chainID),
		IsHomestead:      c.IsHomestead(num),
		IsEIP150:         c.IsEIP150(num),
		IsEIP155:         c.IsEIP155(num),
		IsEIP158:         c.IsEIP158(num),
		IsByzantium:      c.IsByzantium(num),
		IsConstantinople: c.IsConstantinople(num),
		IsPetersburg:     c.IsPetersburg(num),
		IsIstanbul:       c.IsIstanbul(num),
		IsBerlin:         c.IsBerlin(num),
		IsEIP2929:        c.IsBerlin(num),
		IsLondon:         c.IsLondon(num),
		IsMerge:          isMerge,
		IsShanghai:       isMerge && c.IsShanghai(num, timestamp),
		IsCancun:         isMerge && c.IsCancun(num, timestamp),
		IsPrague:         isMerge && c.IsPrague(num, timestamp),
		IsOsaka:          isMerge && c.IsOsaka(num, timestamp),
	}
}
