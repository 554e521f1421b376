// Copyright 2021 The go-ethereum Authors
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

package types

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/sunyihoo/go-evm/common"
)

// StateAccount is the flat representation of an account as it is kept by the
// key-value state backend. There is no storage root: slots are stored under
// their own keys.
//
// 账户记录只保存 nonce、余额和代码哈希，存储槽单独成键。
type StateAccount struct {
	Nonce    uint64
	Balance  *uint256.Int
	CodeHash []byte
}

const (
	slimAccountSize = 8 + 32
	fullAccountSize = slimAccountSize + common.HashLength
)

var errAccountEncoding = errors.New("invalid account encoding")

// NewEmptyStateAccount constructs an empty state account.
func NewEmptyStateAccount() *StateAccount {
	return &StateAccount{
		Balance:  new(uint256.Int),
		CodeHash: EmptyCodeHash.Bytes(),
	}
}

// Copy returns a deep-copied state account object.
func (acct *StateAccount) Copy() *StateAccount {
	var balance *uint256.Int
	if acct.Balance != nil {
		balance = new(uint256.Int).Set(acct.Balance)
	}
	return &StateAccount{
		Nonce:    acct.Nonce,
		Balance:  balance,
		CodeHash: common.CopyBytes(acct.CodeHash),
	}
}

// Encode serializes the account as nonce (8 bytes, big endian) followed by the
// 32-byte balance. The code hash is appended only when the account has code.
func (acct *StateAccount) Encode() []byte {
	size := slimAccountSize
	hasCode := len(acct.CodeHash) != 0 && common.BytesToHash(acct.CodeHash) != EmptyCodeHash
	if hasCode {
		size = fullAccountSize
	}
	enc := make([]byte, size)
	binary.BigEndian.PutUint64(enc, acct.Nonce)
	if acct.Balance != nil {
		acct.Balance.WriteToSlice(enc[8:slimAccountSize])
	}
	if hasCode {
		copy(enc[slimAccountSize:], acct.CodeHash)
	}
	return enc
}

// DecodeStateAccount is the inverse of Encode.
func DecodeStateAccount(data []byte) (*StateAccount, error) {
	if len(data) != slimAccountSize && len(data) != fullAccountSize {
		return nil, fmt.Errorf("%w: length %d", errAccountEncoding, len(data))
	}
	acct := &StateAccount{
		Nonce:   binary.BigEndian.Uint64(data),
		Balance: new(uint256.Int).SetBytes(data[8:slimAccountSize]),
	}
	if len(data) == fullAccountSize {
		acct.CodeHash = common.CopyBytes(data[slimAccountSize:])
	} else {
		acct.CodeHash = EmptyCodeHash.Bytes()
	}
	return acct, nil
}
