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
package secp256r1

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerify(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	hash := sha256.Sum256([]byte("p256"))
	r, s, err := ecdsa.Sign(rand.Reader, key, hash[:])
	require.NoError(t, err)

	require.True(t, Verify(hash[:], r, s, key.X, key.Y))

	// tampered hash
	bad := hash
	bad[0] ^= 1
	require.False(t, Verify(bad[:], r, s, key.X, key.Y))

	// out of range signature values
	n := elliptic.P256().Params().N
	require.False(t, Verify(hash[:], new(big.Int), s, key.X, key.Y))
	require.False(t, Verify(hash[:], r, new(big.Int).Add(s, n), key.X, key.Y))

	// point at infinity and off-curve keys
	require.False(t, Verify(hash[:], r, s, new(big.Int), new(big.Int)))
	require.False(t, Verify(hash[:], r, s, key.X, new(big.Int).Add(key.Y, big.NewInt(1))))
}
