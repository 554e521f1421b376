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
// Package bn256 decodes and encodes alt_bn128 (BN254) points in the format
// used by the EIP-196 and EIP-197 precompiles and performs the group
// operations with gnark-crypto.
package bn256

import (
	"errors"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"
)

var (
	// ErrMalformedPoint is returned for coordinates that are not canonical
	// field elements.
	ErrMalformedPoint = errors.New("bn256: malformed point")

	// ErrPointNotOnCurve is returned for points that do not satisfy the
	// curve equation.
	ErrPointNotOnCurve = errors.New("bn256: point not on curve")

	// ErrPointNotInSubgroup is returned for G2 points outside the prime
	// order subgroup.
	ErrPointNotInSubgroup = errors.New("bn256: point not in correct subgroup")
)

const (
	// G1PointSize is the encoded size of a G1 point (x, y).
	G1PointSize = 64
	// G2PointSize is the encoded size of a G2 point (x_im, x_re, y_im, y_re).
	G2PointSize = 128
)

// G1 is an element of the BN254 G1 group in affine form.
type G1 = bn254.G1Affine

// G2 is an element of the BN254 G2 group in affine form.
type G2 = bn254.G2Affine

func decodeElement(b []byte) (fp.Element, error) {
	var buf [fp.Bytes]byte
	copy(buf[:], b)
	e, err := fp.BigEndian.Element(&buf)
	if err != nil {
		return fp.Element{}, ErrMalformedPoint
	}
	return e, nil
}

// UnmarshalG1 decodes a 64 byte G1 point. The all-zero encoding is the point
// at infinity.
// 坐标必须小于域模 p 且点必须在曲线上；G1 的余因子为 1，无需子群检查。
func UnmarshalG1(input []byte) (*G1, error) {
	if len(input) != G1PointSize {
		return nil, ErrMalformedPoint
	}
	x, err := decodeElement(input[:32])
	if err != nil {
		return nil, err
	}
	y, err := decodeElement(input[32:64])
	if err != nil {
		return nil, err
	}
	p := &G1{X: x, Y: y}
	if p.X.IsZero() && p.Y.IsZero() {
		return p, nil
	}
	if !p.IsOnCurve() {
		return nil, ErrPointNotOnCurve
	}
	return p, nil
}

// UnmarshalG2 decodes a 128 byte G2 point. Each Fp2 coordinate is encoded
// with the imaginary part first. The all-zero encoding is the point at
// infinity.
func UnmarshalG2(input []byte) (*G2, error) {
	if len(input) != G2PointSize {
		return nil, ErrMalformedPoint
	}
	var coords [4]fp.Element
	for i := range coords {
		e, err := decodeElement(input[i*32 : (i+1)*32])
		if err != nil {
			return nil, err
		}
		coords[i] = e
	}
	p := new(G2)
	p.X.A1, p.X.A0 = coords[0], coords[1]
	p.Y.A1, p.Y.A0 = coords[2], coords[3]

	if p.X.IsZero() && p.Y.IsZero() {
		return p, nil
	}
	if !p.IsOnCurve() {
		return nil, ErrPointNotOnCurve
	}
	if !p.IsInSubGroup() {
		return nil, ErrPointNotInSubgroup
	}
	return p, nil
}

// MarshalG1 encodes a G1 point as 64 bytes, infinity as all zeroes.
func MarshalG1(p *G1) []byte {
	out := make([]byte, G1PointSize)
	if p.IsInfinity() {
		return out
	}
	x := p.X.Bytes()
	y := p.Y.Bytes()
	copy(out[:32], x[:])
	copy(out[32:], y[:])
	return out
}

// MarshalG2 encodes a G2 point as 128 bytes, imaginary parts first.
func MarshalG2(p *G2) []byte {
	out := make([]byte, G2PointSize)
	if p.IsInfinity() {
		return out
	}
	for i, e := range []fp.Element{p.X.A1, p.X.A0, p.Y.A1, p.Y.A0} {
		b := e.Bytes()
		copy(out[i*32:], b[:])
	}
	return out
}

// Add returns a + b.
func Add(a, b *G1) *G1 {
	return new(G1).Add(a, b)
}

// ScalarMul returns k * p. The scalar is an arbitrary 256 bit integer.
func ScalarMul(p *G1, k *big.Int) *G1 {
	return new(G1).ScalarMultiplication(p, k)
}

// PairingCheck reports whether the product of e(g1[i], g2[i]) is one. Pairs
// containing a point at infinity contribute the identity.
// 空输入视为成功（乘积为单位元）。
func PairingCheck(g1 []G1, g2 []G2) (bool, error) {
	if len(g1) != len(g2) {
		return false, errors.New("bn256: mismatched pairing input lengths")
	}
	ps := make([]G1, 0, len(g1))
	qs := make([]G2, 0, len(g2))
	for i := range g1 {
		if g1[i].IsInfinity() || g2[i].IsInfinity() {
			continue
		}
		ps = append(ps, g1[i])
		qs = append(qs, g2[i])
	}
	if len(ps) == 0 {
		return true, nil
	}
	return bn254.PairingCheck(ps, qs)
}

// Generators returns the canonical generators of G1 and G2.
func Generators() (G1, G2) {
	_, _, g1, g2 := bn254.Generators()
	return g1, g2
}
