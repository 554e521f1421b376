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
// Package kzg4844 implements the KZG crypto for EIP-4844.
package kzg4844

import (
	"crypto/sha256"
	"errors"
	"hash"
	"sync"

	gokzg4844 "github.com/crate-crypto/go-kzg-4844"
)

// Blob represents a 4844 data blob.
type Blob [131072]byte

// Commitment is a serialized commitment to a polynomial.
type Commitment [48]byte

// Proof is a serialized commitment to the quotient polynomial.
type Proof [48]byte

// Point is a BLS field element.
type Point [32]byte

// Claim is a claimed evaluation value in a specific point.
type Claim [32]byte

// VersionedHashVersion is the version byte prefixed to a sha256 commitment hash.
const VersionedHashVersion = 0x01

var (
	context     *gokzg4844.Context
	contextErr  error
	contextOnce sync.Once
)

// initContext loads the trusted setup. Deserializing it takes a noticeable
// amount of time, so it only happens on first use.
// 受信任设置只在第一次调用时加载。
func initContext() error {
	contextOnce.Do(func() {
		context, contextErr = gokzg4844.NewContext4096Secure()
	})
	return contextErr
}

// BlobToCommitment creates a small commitment out of a data blob.
func BlobToCommitment(blob *Blob) (Commitment, error) {
	if err := initContext(); err != nil {
		return Commitment{}, err
	}
	commitment, err := context.BlobToKZGCommitment((*gokzg4844.Blob)(blob), 0)
	if err != nil {
		return Commitment{}, err
	}
	return Commitment(commitment), nil
}

// ComputeProof computes the KZG proof at the given point for the polynomial
// represented by the blob.
func ComputeProof(blob *Blob, point Point) (Proof, Claim, error) {
	if err := initContext(); err != nil {
		return Proof{}, Claim{}, err
	}
	proof, claim, err := context.ComputeKZGProof((*gokzg4844.Blob)(blob), (gokzg4844.Scalar)(point), 0)
	if err != nil {
		return Proof{}, Claim{}, err
	}
	return Proof(proof), Claim(claim), nil
}

// VerifyProof verifies the KZG proof that the polynomial represented by the blob
// evaluated at the given point is the claimed value.
func VerifyProof(commitment Commitment, point Point, claim Claim, proof Proof) error {
	if err := initContext(); err != nil {
		return err
	}
	return context.VerifyKZGProof((gokzg4844.KZGCommitment)(commitment), (gokzg4844.Scalar)(point), (gokzg4844.Scalar)(claim), (gokzg4844.KZGProof)(proof))
}

// CalcBlobHashV1 calculates the 'versioned blob hash' of a commitment.
// The given hasher must be a sha256 hash instance, otherwise the result will be invalid!
func CalcBlobHashV1(hasher hash.Hash, commit *Commitment) (vh [32]byte) {
	if hasher.Size() != 32 {
		panic("wrong hash size")
	}
	hasher.Reset()
	hasher.Write(commit[:])
	hasher.Sum(vh[:0])
	vh[0] = VersionedHashVersion
	return vh
}

// IsValidVersionedHash checks that h is a structurally-valid versioned blob hash.
func IsValidVersionedHash(h []byte) bool {
	return len(h) == 32 && h[0] == VersionedHashVersion
}

var errVersionedHash = errors.New("kzg4844: versioned hash mismatch")

// VerifyVersionedHash checks that the versioned hash commits to the given
// commitment.
func VerifyVersionedHash(versioned []byte, commitment *Commitment) error {
	vh := CalcBlobHashV1(sha256.New(), commitment)
	if len(versioned) != len(vh) || string(versioned) != string(vh[:]) {
		return errVersionedHash
	}
	return nil
}
