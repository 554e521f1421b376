// Copyright 2024 The go-ethereum Authors
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
// Package secp256r1 verifies P-256 signatures for the P256VERIFY precompile.
package secp256r1

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"math/big"
)

// Verify verifies the given signature (r, s) for the given hash and public key (x, y).
// It returns false for malformed public keys, including the point at infinity.
func Verify(hash []byte, r, s, x, y *big.Int) bool {
	curve := elliptic.P256()
	params := curve.Params()
	if x.Cmp(params.P) >= 0 || y.Cmp(params.P) >= 0 {
		return false
	}
	if x.Sign() == 0 && y.Sign() == 0 {
		return false
	}
	if !curve.IsOnCurve(x, y) {
		return false
	}
	if r.Sign() <= 0 || s.Sign() <= 0 || r.Cmp(params.N) >= 0 || s.Cmp(params.N) >= 0 {
		return false
	}
	pub := &ecdsa.PublicKey{Curve: curve, X: x, Y: y}
	return ecdsa.Verify(pub, hash, r, s)
}
