// Copyright 2018 The go-ethereum Authors
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
package bn256

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

// p is the BN254 base field modulus.
var p, _ = new(big.Int).SetString("30644e72e131a029b85045b68181585d97816a916871ca8d3c208c16d87cfd47", 16)

func encodeG1(x, y int64) []byte {
	out := make([]byte, G1PointSize)
	big.NewInt(x).FillBytes(out[:32])
	big.NewInt(y).FillBytes(out[32:])
	return out
}

func TestUnmarshalG1(t *testing.T) {
	g, err := UnmarshalG1(encodeG1(1, 2))
	require.NoError(t, err)
	require.Equal(t, encodeG1(1, 2), MarshalG1(g))

	_, err = UnmarshalG1(encodeG1(1, 3))
	require.ErrorIs(t, err, ErrPointNotOnCurve)

	inf, err := UnmarshalG1(make([]byte, 64))
	require.NoError(t, err)
	require.True(t, inf.IsInfinity())

	// x = p is not a canonical field element.
	bad := make([]byte, 64)
	p.FillBytes(bad[:32])
	_, err = UnmarshalG1(bad)
	require.ErrorIs(t, err, ErrMalformedPoint)

	_, err = UnmarshalG1(make([]byte, 63))
	require.Error(t, err)
}

func TestGroupLaw(t *testing.T) {
	g1, _ := Generators()
	double := Add(&g1, &g1)
	mul := ScalarMul(&g1, big.NewInt(2))
	require.True(t, bytes.Equal(MarshalG1(double), MarshalG1(mul)))

	inf := new(G1)
	sum := Add(&g1, inf)
	require.True(t, bytes.Equal(MarshalG1(&g1), MarshalG1(sum)))

	zero := ScalarMul(&g1, big.NewInt(0))
	require.True(t, zero.IsInfinity())
}

func TestG2RoundTrip(t *testing.T) {
	_, g2 := Generators()
	enc := MarshalG2(&g2)
	dec, err := UnmarshalG2(enc)
	require.NoError(t, err)
	require.True(t, dec.Equal(&g2))

	// Swapping the Fp2 halves yields a different, invalid point.
	swapped := append(append([]byte{}, enc[32:64]...), enc[:32]...)
	swapped = append(swapped, enc[64:]...)
	_, err = UnmarshalG2(swapped)
	require.Error(t, err)
}

func TestPairingCheck(t *testing.T) {
	g1, g2 := Generators()
	var neg G1
	neg.Neg(&g1)

	ok, err := PairingCheck([]G1{g1, neg}, []G2{g2, g2})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = PairingCheck([]G1{g1}, []G2{g2})
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = PairingCheck(nil, nil)
	require.NoError(t, err)
	require.True(t, ok)
}
