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
package crypto

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sunyihoo/go-evm/common"
)

var (
	testAddrHex = "970e8128ab834e8eac17ab8e3812f010678cf791"
	testPrivHex = "289c2857d4598e37fb9647507e47a309d6133539bf21a8b9cb6df88fd5232032"
)

func TestKeccak256Hash(t *testing.T) {
	// keccak256("") is the well known empty code hash.
	want := common.HexToHash("c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")
	require.Equal(t, want, Keccak256Hash(nil))
	require.Equal(t, want[:], Keccak256())
	require.Equal(t, want, HashData(NewKeccakState(), []byte{}))
}

func TestCreateAddress(t *testing.T) {
	sender := common.HexToAddress("0x6ac7ea33f8831ea9dcc53393aaa88b25a785dbf0")
	for nonce, want := range []string{
		"0xcd234a471b72ba2f1ccf0a70fcaba648a5eecd8d",
		"0x343c43a37d37dff08ae8c4a11544c718abb4fcf8",
		"0xf778b86fa74e846c4f0a1fbd1335fe81c00a0c91",
		"0xfffd933a0bc612844eaf0c6fe3e5b8e9b6c1d19c",
	} {
		require.Equal(t, common.HexToAddress(want), CreateAddress(sender, uint64(nonce)), "nonce %d", nonce)
	}
}

func TestEncodeSenderNonce(t *testing.T) {
	var addr common.Address
	enc := encodeSenderNonce(addr, 0x0400)
	// list header, string header, 20 address bytes, 0x82 0x04 0x00
	require.Equal(t, byte(0xc0+1+20+3), enc[0])
	require.Equal(t, byte(0x94), enc[1])
	require.True(t, bytes.Equal(enc[22:], []byte{0x82, 0x04, 0x00}))

	enc = encodeSenderNonce(addr, 0x7f)
	require.Equal(t, byte(0x7f), enc[len(enc)-1])
	require.Len(t, enc, 23)
}

func TestCreateAddress2(t *testing.T) {
	// EIP-1014 example 0
	got := CreateAddress2(common.Address{}, [32]byte{}, Keccak256([]byte{0x00}))
	require.Equal(t, common.HexToAddress("0x4D1A2e2bB4F88F0250f26Ffff098B0b30B26BF38"), got)
}

func TestSignAndRecover(t *testing.T) {
	key, err := HexToECDSA(testPrivHex)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress(testAddrHex), PubkeyToAddress(key.PublicKey))

	msg := Keccak256([]byte("foo"))
	sig, err := Sign(msg, key)
	require.NoError(t, err)
	require.Len(t, sig, SignatureLength)

	pub, err := Ecrecover(msg, sig)
	require.NoError(t, err)
	require.Equal(t, FromECDSAPub(&key.PublicKey), pub)

	recovered, err := SigToPub(msg, sig)
	require.NoError(t, err)
	require.Equal(t, PubkeyToAddress(key.PublicKey), PubkeyToAddress(*recovered))
}

func TestValidateSignatureValues(t *testing.T) {
	one := common.Big1
	zero := common.Big0
	minusOne := big.NewInt(-1)

	require.True(t, ValidateSignatureValues(0, one, one, false))
	require.True(t, ValidateSignatureValues(1, one, one, false))
	require.False(t, ValidateSignatureValues(2, one, one, false))
	require.False(t, ValidateSignatureValues(0, zero, one, false))
	require.False(t, ValidateSignatureValues(0, one, zero, false))
	require.False(t, ValidateSignatureValues(0, minusOne, one, false))
	require.False(t, ValidateSignatureValues(0, secp256k1N, one, false))
	// s above N/2 is only rejected under homestead rules
	high := new(big.Int).Add(secp256k1halfN, one)
	require.True(t, ValidateSignatureValues(0, one, high, false))
	require.False(t, ValidateSignatureValues(0, one, high, true))
}
