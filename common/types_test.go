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

package common

import (
	"bytes"
	"testing"
)

func TestBytesConversion(t *testing.T) {
	bytes := []byte{5}
	hash := BytesToHash(bytes)

	var exp Hash
	exp[31] = 5

	if hash != exp {
		t.Errorf("expected %x got %x", exp, hash)
	}
}

func TestHashCropsFromLeft(t *testing.T) {
	in := make([]byte, 40)
	in[0] = 0xff
	in[39] = 0x01
	h := BytesToHash(in)
	if h[0] != 0 || h[31] != 0x01 {
		t.Errorf("unexpected hash %x", h)
	}
	a := BytesToAddress(in)
	if a[0] != 0 || a[19] != 0x01 {
		t.Errorf("unexpected address %x", a)
	}
}

func TestIsHexAddress(t *testing.T) {
	tests := []struct {
		str string
		exp bool
	}{
		{"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", true},
		{"5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", true},
		{"0X5aaeb6053f3e94c9b9a09f33669435e7ef1beaed", true},
		{"0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA", true},
		{"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed1", false},
		{"0x5aaeb6053f3e94c9b9a09f33669435e7ef1beae", false},
		{"5aaeb6053f3e94c9b9a09f33669435e7ef1beaed11", false},
		{"0xxaaeb6053f3e94c9b9a09f33669435e7ef1beaed", false},
	}

	for _, test := range tests {
		if result := IsHexAddress(test.str); result != test.exp {
			t.Errorf("IsHexAddress(%s) == %v; expected %v",
				test.str, result, test.exp)
		}
	}
}

func TestPadding(t *testing.T) {
	if got := LeftPadBytes([]byte{1, 2}, 4); !bytes.Equal(got, []byte{0, 0, 1, 2}) {
		t.Errorf("LeftPadBytes: got %x", got)
	}
	if got := RightPadBytes([]byte{1, 2}, 4); !bytes.Equal(got, []byte{1, 2, 0, 0}) {
		t.Errorf("RightPadBytes: got %x", got)
	}
	if got := LeftPadBytes([]byte{1, 2, 3}, 2); !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("LeftPadBytes should not truncate: got %x", got)
	}
	if got := FromHex("0x123"); !bytes.Equal(got, []byte{0x01, 0x23}) {
		t.Errorf("FromHex odd length: got %x", got)
	}
	if got := TrimLeftZeroes([]byte{0, 0, 7, 0}); !bytes.Equal(got, []byte{7, 0}) {
		t.Errorf("TrimLeftZeroes: got %x", got)
	}
}
