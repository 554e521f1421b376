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
// Package forks enumerates the protocol upgrades the interpreter understands.
package forks

import (
	"fmt"
	"strings"
)

// Fork is a numerical identifier of specific network upgrades (forks).
// 分叉按激活顺序编号，较大的值总是包含较小值的全部规则。
type Fork int

const (
	Frontier Fork = iota
	Homestead
	TangerineWhistle
	SpuriousDragon
	Byzantium
	Constantinople
	Petersburg
	Istanbul
	Berlin
	London
	Paris
	Shanghai
	Cancun
	Prague
	Osaka
)

var forkNames = map[Fork]string{
	Frontier:         "Frontier",
	Homestead:        "Homestead",
	TangerineWhistle: "TangerineWhistle",
	SpuriousDragon:   "SpuriousDragon",
	Byzantium:        "Byzantium",
	Constantinople:   "Constantinople",
	Petersburg:       "Petersburg",
	Istanbul:         "Istanbul",
	Berlin:           "Berlin",
	London:           "London",
	Paris:            "Paris",
	Shanghai:         "Shanghai",
	Cancun:           "Cancun",
	Prague:           "Prague",
	Osaka:            "Osaka",
}

// Latest is the newest fork the interpreter implements.
const Latest = Osaka

// String implements fmt.Stringer.
func (f Fork) String() string {
	if name, ok := forkNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Fork(%d)", int(f))
}

// Parse resolves a fork by its case-insensitive name. "Merge" is accepted as an
// alias of Paris and "EIP150"/"EIP158" as aliases of the two 2016 forks.
func Parse(name string) (Fork, error) {
	switch strings.ToLower(name) {
	case "merge":
		return Paris, nil
	case "eip150":
		return TangerineWhistle, nil
	case "eip158":
		return SpuriousDragon, nil
	}
	for f, n := range forkNames {
		if strings.EqualFold(n, name) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("unknown fork %q", name)
}
