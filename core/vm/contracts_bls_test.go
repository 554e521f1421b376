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

package vm

import (
	"math/big"
	"testing"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fp"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/go-evm/common"
)

func g1Mul(p *bls12381.G1Affine, k int64) *bls12381.G1Affine {
	return new(bls12381.G1Affine).ScalarMultiplication(p, big.NewInt(k))
}

func g2Mul(p *bls12381.G2Affine, k int64) *bls12381.G2Affine {
	return new(bls12381.G2Affine).ScalarMultiplication(p, big.NewInt(k))
}

func scalarBytes(k int64) []byte {
	return common.LeftPadBytes(big.NewInt(k).Bytes(), 32)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// g1OffSubgroup returns a point on the G1 curve outside the prime order subgroup.
func g1OffSubgroup(t *testing.T) *bls12381.G1Affine {
	t.Helper()
	var x, rhs, y, four fp.Element
	four.SetUint64(4)
	for i := uint64(1); i < 1000; i++ {
		x.SetUint64(i)
		rhs.Square(&x).Mul(&rhs, &x).Add(&rhs, &four)
		if y.Sqrt(&rhs) == nil {
			continue
		}
		p := &bls12381.G1Affine{X: x, Y: y}
		if p.IsOnCurve() && !p.IsInSubGroup() {
			return p
		}
	}
	t.Fatal("no G1 point outside the subgroup found")
	return nil
}

// g2OffSubgroup returns a point on the G2 twist outside the prime order subgroup.
func g2OffSubgroup(t *testing.T) *bls12381.G2Affine {
	t.Helper()
	var b bls12381.E2
	b.A0.SetUint64(4)
	b.A1.SetUint64(4)
	for i := uint64(1); i < 1000; i++ {
		var x, rhs, y bls12381.E2
		x.A0.SetUint64(i)
		rhs.Square(&x).Mul(&rhs, &x).Add(&rhs, &b)
		if rhs.Legendre() != 1 {
			continue
		}
		y.Sqrt(&rhs)
		p := &bls12381.G2Affine{X: x, Y: y}
		if p.IsOnCurve() && !p.IsInSubGroup() {
			return p
		}
	}
	t.Fatal("no G2 point outside the subgroup found")
	return nil
}

// modulusElement is the 64 byte encoding of the base field modulus.
func modulusElement() []byte {
	return common.LeftPadBytes(fp.Modulus().Bytes(), 64)
}

func TestBLS12381G1Add(t *testing.T) {
	p := precompileAt(t, PrecompiledContractsPrague, 0x0b)
	_, _, g, _ := bls12381.Generators()
	g2x := encodePointG1(g1Mul(&g, 2))

	out, err := p.Run(concat(encodePointG1(&g), encodePointG1(&g)))
	require.NoError(t, err)
	require.Equal(t, g2x, out)

	// g + infinity
	out, err = p.Run(concat(encodePointG1(&g), make([]byte, 128)))
	require.NoError(t, err)
	require.Equal(t, encodePointG1(&g), out)

	// g + -g
	out, err = p.Run(concat(encodePointG1(&g), encodePointG1(new(bls12381.G1Affine).Neg(&g))))
	require.NoError(t, err)
	require.Equal(t, make([]byte, 128), out)

	// addition skips the subgroup check
	_, err = p.Run(concat(encodePointG1(g1OffSubgroup(t)), encodePointG1(&g)))
	require.NoError(t, err)

	_, err = p.Run(out)
	require.ErrorIs(t, err, errBLS12381InvalidInputLength)
}

func TestBLS12381G1MultiExp(t *testing.T) {
	p := precompileAt(t, PrecompiledContractsPrague, 0x0c)
	_, _, g, _ := bls12381.Generators()

	out, err := p.Run(concat(encodePointG1(&g), scalarBytes(5)))
	require.NoError(t, err)
	require.Equal(t, encodePointG1(g1Mul(&g, 5)), out)

	// 2*g + 3*(2g) = 8g
	out, err = p.Run(concat(encodePointG1(&g), scalarBytes(2), encodePointG1(g1Mul(&g, 2)), scalarBytes(3)))
	require.NoError(t, err)
	require.Equal(t, encodePointG1(g1Mul(&g, 8)), out)

	// the group order maps to infinity
	out, err = p.Run(concat(encodePointG1(&g), common.LeftPadBytes(fr.Modulus().Bytes(), 32)))
	require.NoError(t, err)
	require.Equal(t, make([]byte, 128), out)

	_, err = p.Run(concat(encodePointG1(g1OffSubgroup(t)), scalarBytes(1)))
	require.ErrorIs(t, err, errBLS12381G1PointSubgroup)

	_, err = p.Run(make([]byte, 159))
	require.ErrorIs(t, err, errBLS12381InvalidInputLength)
}

func TestBLS12381G2Add(t *testing.T) {
	p := precompileAt(t, PrecompiledContractsPrague, 0x0d)
	_, _, _, g := bls12381.Generators()

	out, err := p.Run(concat(encodePointG2(&g), encodePointG2(&g)))
	require.NoError(t, err)
	require.Equal(t, encodePointG2(g2Mul(&g, 2)), out)

	out, err = p.Run(concat(encodePointG2(&g), encodePointG2(new(bls12381.G2Affine).Neg(&g))))
	require.NoError(t, err)
	require.Equal(t, make([]byte, 256), out)

	_, err = p.Run(concat(encodePointG2(g2OffSubgroup(t)), encodePointG2(&g)))
	require.NoError(t, err)
}

func TestBLS12381G2MultiExp(t *testing.T) {
	p := precompileAt(t, PrecompiledContractsPrague, 0x0e)
	_, _, _, g := bls12381.Generators()

	out, err := p.Run(concat(encodePointG2(&g), scalarBytes(7)))
	require.NoError(t, err)
	require.Equal(t, encodePointG2(g2Mul(&g, 7)), out)

	out, err = p.Run(concat(encodePointG2(&g), scalarBytes(1), encodePointG2(&g), scalarBytes(2)))
	require.NoError(t, err)
	require.Equal(t, encodePointG2(g2Mul(&g, 3)), out)

	_, err = p.Run(concat(encodePointG2(g2OffSubgroup(t)), scalarBytes(1)))
	require.ErrorIs(t, err, errBLS12381G2PointSubgroup)

	_, err = p.Run(make([]byte, 287))
	require.ErrorIs(t, err, errBLS12381InvalidInputLength)
}

func TestBLS12381Pairing(t *testing.T) {
	p := precompileAt(t, PrecompiledContractsPrague, 0x0f)
	_, _, g1, g2 := bls12381.Generators()
	one := common.LeftPadBytes([]byte{1}, 32)

	// e(g1, g2) alone is not the identity
	out, err := p.Run(concat(encodePointG1(&g1), encodePointG2(&g2)))
	require.NoError(t, err)
	require.Equal(t, make([]byte, 32), out)

	// e(2*g1, g2) * e(-g1, 2*g2) = 1
	out, err = p.Run(concat(
		encodePointG1(g1Mul(&g1, 2)), encodePointG2(&g2),
		encodePointG1(new(bls12381.G1Affine).Neg(&g1)), encodePointG2(g2Mul(&g2, 2)),
	))
	require.NoError(t, err)
	require.Equal(t, one, out)

	_, err = p.Run(concat(encodePointG1(g1OffSubgroup(t)), encodePointG2(&g2)))
	require.ErrorIs(t, err, errBLS12381G1PointSubgroup)
	_, err = p.Run(concat(encodePointG1(&g1), encodePointG2(g2OffSubgroup(t))))
	require.ErrorIs(t, err, errBLS12381G2PointSubgroup)
}

func TestBLS12381MapToG1(t *testing.T) {
	p := precompileAt(t, PrecompiledContractsPrague, 0x10)
	var u fp.Element
	u.SetUint64(1)
	input := make([]byte, 64)
	input[63] = 1

	out, err := p.Run(input)
	require.NoError(t, err)
	want := bls12381.MapToG1(u)
	require.Equal(t, encodePointG1(&want), out)

	point, err := decodePointG1(out)
	require.NoError(t, err)
	require.True(t, point.IsInSubGroup())

	_, err = p.Run(modulusElement())
	require.Error(t, err)

	input[0] = 1
	_, err = p.Run(input)
	require.ErrorIs(t, err, errBLS12381InvalidFieldElementTopBytes)

	_, err = p.Run(input[:63])
	require.ErrorIs(t, err, errBLS12381InvalidInputLength)
}

func TestBLS12381MapToG2(t *testing.T) {
	p := precompileAt(t, PrecompiledContractsPrague, 0x11)
	var u bls12381.E2
	u.A0.SetUint64(1)
	u.A1.SetUint64(2)
	input := make([]byte, 128)
	input[63], input[127] = 1, 2

	out, err := p.Run(input)
	require.NoError(t, err)
	want := bls12381.MapToG2(u)
	require.Equal(t, encodePointG2(&want), out)

	point, err := decodePointG2(out)
	require.NoError(t, err)
	require.True(t, point.IsInSubGroup())

	// c1 at the modulus
	_, err = p.Run(concat(input[:64], modulusElement()))
	require.Error(t, err)
}

func TestBLS12381PointDecoding(t *testing.T) {
	_, _, g1, g2 := bls12381.Generators()

	// off the curve
	enc := encodePointG1(&g1)
	enc[127] ^= 1
	_, err := decodePointG1(enc)
	require.ErrorIs(t, err, errBLS12381PointNotOnCurve)

	enc2 := encodePointG2(&g2)
	enc2[255] ^= 1
	_, err = decodePointG2(enc2)
	require.ErrorIs(t, err, errBLS12381PointNotOnCurve)

	// x at the modulus is not canonical
	enc = encodePointG1(&g1)
	copy(enc[:64], modulusElement())
	_, err = decodePointG1(enc)
	require.Error(t, err)

	// x + p encodes the same residue but must still be rejected
	x := new(big.Int).SetBytes(encodePointG1(&g1)[16:64])
	x.Add(x, fp.Modulus())
	enc = encodePointG1(&g1)
	copy(enc[:64], common.LeftPadBytes(x.Bytes(), 64))
	_, err = decodePointG1(enc)
	require.Error(t, err)

	// nonzero padding
	enc = encodePointG1(&g1)
	enc[0] = 1
	_, err = decodePointG1(enc)
	require.ErrorIs(t, err, errBLS12381InvalidFieldElementTopBytes)

	off := g1OffSubgroup(t)
	point, err := decodePointG1(encodePointG1(off))
	require.NoError(t, err)
	require.False(t, point.IsInSubGroup())
}
