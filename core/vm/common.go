// Copyright 2014 The go-ethereum Authors
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
	"slices"

	"github.com/holiman/uint256"
	"github.com/sunyihoo/go-evm/common"
)

// calcMemSize64 returns off+l, the memory an access of l bytes at off needs,
// and whether it does not fit in 64 bits.
func calcMemSize64(off, l *uint256.Int) (uint64, bool) {
	if !l.IsUint64() {
		return 0, true
	}
	return calcMemSize64WithUint(off, l.Uint64())
}

// calcMemSize64WithUint is calcMemSize64 for a length already known to fit.
// 长度为零时无论偏移多大都不需要内存。
func calcMemSize64WithUint(off *uint256.Int, length uint64) (uint64, bool) {
	if length == 0 {
		return 0, false
	}
	offset, overflow := off.Uint64WithOverflow()
	if overflow {
		return 0, true
	}
	end := offset + length
	return end, end < offset
}

// getData returns size bytes of data starting at start. Whatever lies past
// the end of data reads as zero.
func getData(data []byte, start uint64, size uint64) []byte {
	n := uint64(len(data))
	start = min(start, n)
	end := start + size
	if end < start || end > n {
		end = n
	}
	return common.RightPadBytes(data[start:end], int(size))
}

// toWordSize rounds size up to whole 32 byte words.
func toWordSize(size uint64) uint64 {
	if size > math.MaxUint64-31 {
		return math.MaxUint64/32 + 1
	}
	return (size + 31) / 32
}

func allZero(b []byte) bool {
	return !slices.ContainsFunc(b, func(c byte) bool { return c != 0 })
}
