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
// Package forks enumerates the protocol upgrades the interpreter understands.
// Package crypto wraps the hash functions and secp256k1 primitives used by
// the interpreter: KECCAK256, contract address derivation and ECRECOVER.
package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"math/big"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/sunyihoo/go-evm/common"
	"golang.org/x/crypto/sha3"
)

const (
	// DigestLength is the size of the hash a signature commits to.
	DigestLength = 32
	// SignatureLength is R || S || V.
	SignatureLength = 64 + 1
	// RecoveryIDOffset is the position of V in a signature.
	RecoveryIDOffset = 64
)

var (
	secp256k1N     = S256().Params().N
	secp256k1halfN = new(big.Int).Rsh(secp256k1N, 1)
)

// KeccakState is a Keccak-256 hasher that can also be squeezed with Read,
// which avoids the copy done by Sum.
// KECCAK256 指令在每个 EVM 里复用同一个实例。
type KeccakState interface {
	hash.Hash
	Read([]byte) (int, error)
}

// NewKeccakState returns a fresh legacy Keccak-256 hasher.
func NewKeccakState() KeccakState {
	return sha3.NewLegacyKeccak256().(KeccakState)
}

// HashData resets kh and returns the hash of data.
func HashData(kh KeccakState, data []byte) (h common.Hash) {
	kh.Reset()
	kh.Write(data)
	kh.Read(h[:])
	return h
}

// Keccak256Hash returns the Keccak-256 hash of the concatenated inputs.
func Keccak256Hash(data ...[]byte) (h common.Hash) {
	d := NewKeccakState()
	for _, chunk := range data {
		d.Write(chunk)
	}
	d.Read(h[:])
	return h
}

// Keccak256 is Keccak256Hash returning a byte slice.
func Keccak256(data ...[]byte) []byte {
	h := Keccak256Hash(data...)
	return h[:]
}

// CreateAddress derives the address of a contract created by CREATE.
// 地址 = keccak256(rlp([sender, nonce]))[12:]
func CreateAddress(sender common.Address, nonce uint64) common.Address {
	return common.BytesToAddress(Keccak256(encodeSenderNonce(sender, nonce))[12:])
}

// CreateAddress2 derives the address of a contract created by CREATE2.
// 地址 = keccak256(0xff ++ sender ++ salt ++ keccak256(init_code))[12:]，见 EIP-1014。
func CreateAddress2(sender common.Address, salt [32]byte, inithash []byte) common.Address {
	return common.BytesToAddress(Keccak256([]byte{0xff}, sender[:], salt[:], inithash)[12:])
}

// encodeSenderNonce produces the RLP encoding of the two element list
// [address, nonce]. The nonce is a big-endian integer without leading zeroes,
// zero being the empty string and values below 0x80 a single byte.
func encodeSenderNonce(addr common.Address, nonce uint64) []byte {
	var num []byte
	switch {
	case nonce == 0:
		num = []byte{0x80}
	case nonce < 0x80:
		num = []byte{byte(nonce)}
	default:
		be := new(big.Int).SetUint64(nonce).Bytes()
		num = append([]byte{0x80 + byte(len(be))}, be...)
	}
	payload := 1 + common.AddressLength + len(num)
	out := make([]byte, 0, 1+payload)
	out = append(out, 0xc0+byte(payload), 0x80+common.AddressLength)
	out = append(out, addr[:]...)
	return append(out, num...)
}

// HexToECDSA parses a hex encoded secp256k1 private key.
func HexToECDSA(hexkey string) (*ecdsa.PrivateKey, error) {
	b, err := hex.DecodeString(hexkey)
	if err != nil {
		return nil, fmt.Errorf("invalid private key hex: %w", err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("invalid private key length %d, need 32 bytes", len(b))
	}
	var d secp256k1.ModNScalar
	if overflow := d.SetByteSlice(b); overflow {
		return nil, errors.New("invalid private key, >=N")
	}
	if d.IsZero() {
		return nil, errors.New("invalid private key, zero")
	}
	key := secp256k1.NewPrivateKey(&d).ToECDSA()
	key.Curve = S256()
	return key, nil
}

// GenerateKey returns a random secp256k1 private key.
func GenerateKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(S256(), rand.Reader)
}

// FromECDSAPub returns the 65 byte uncompressed encoding of pub.
func FromECDSAPub(pub *ecdsa.PublicKey) []byte {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return nil
	}
	return S256().Marshal(pub.X, pub.Y)
}

// PubkeyToAddress derives the address from a secp256k1 public key.
func PubkeyToAddress(p ecdsa.PublicKey) common.Address {
	return common.BytesToAddress(Keccak256(FromECDSAPub(&p)[1:])[12:])
}

// ValidateSignatureValues checks r and s lie in [1, N) and v is 0 or 1. With
// homestead set, s must also be in the lower half of the range.
// ECRECOVER 预编译调用时 homestead 为 false，即不要求 s 处于低半区。
func ValidateSignatureValues(v byte, r, s *big.Int, homestead bool) bool {
	if v > 1 {
		return false
	}
	inRange := func(x *big.Int) bool { return x.Sign() > 0 && x.Cmp(secp256k1N) < 0 }
	if !inRange(r) || !inRange(s) {
		return false
	}
	return !homestead || s.Cmp(secp256k1halfN) <= 0
}
