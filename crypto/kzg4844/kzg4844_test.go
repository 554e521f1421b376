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
package kzg4844

import (
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestZeroBlobProof(t *testing.T) {
	var blob Blob
	commitment, err := BlobToCommitment(&blob)
	require.NoError(t, err)
	// The zero polynomial commits to the compressed point at infinity.
	require.Equal(t, byte(0xc0), commitment[0])

	var point Point
	point[31] = 7
	proof, claim, err := ComputeProof(&blob, point)
	require.NoError(t, err)
	require.Equal(t, Claim{}, claim)
	require.NoError(t, VerifyProof(commitment, point, claim, proof))
}

func TestNonZeroBlobProof(t *testing.T) {
	var blob Blob
	for i := 0; i < 16; i++ {
		blob[i*32+31] = byte(i + 1)
	}
	commitment, err := BlobToCommitment(&blob)
	require.NoError(t, err)

	var point Point
	point[31] = 42
	proof, claim, err := ComputeProof(&blob, point)
	require.NoError(t, err)
	require.NoError(t, VerifyProof(commitment, point, claim, proof))

	claim[31] ^= 1
	require.Error(t, VerifyProof(commitment, point, claim, proof))
}

func TestVersionedHash(t *testing.T) {
	var c Commitment
	c[0] = 0xc0
	vh := CalcBlobHashV1(sha256.New(), &c)
	require.True(t, IsValidVersionedHash(vh[:]))
	require.NoError(t, VerifyVersionedHash(vh[:], &c))

	vh[5] ^= 0xff
	require.Error(t, VerifyVersionedHash(vh[:], &c))
}
