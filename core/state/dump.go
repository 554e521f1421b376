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

package state

import (
	"encoding/json"

	"github.com/sunyihoo/go-evm/common"
	"github.com/sunyihoo/go-evm/common/hexutil"
	"github.com/sunyihoo/go-evm/log"
)

// DumpConfig is a set of options to control what portions of the state will be
// dumped.
type DumpConfig struct {
	SkipCode    bool
	SkipStorage bool
}

// DumpAccount represents an account in the state.
type DumpAccount struct {
	Balance  string                 `json:"balance"`
	Nonce    uint64                 `json:"nonce"`
	CodeHash hexutil.Bytes          `json:"codeHash"`
	Code     hexutil.Bytes          `json:"code,omitempty"`
	Storage  map[common.Hash]string `json:"storage,omitempty"`
}

// Dump represents the full dump in a collected format, as one large map.
type Dump struct {
	Accounts map[string]DumpAccount `json:"accounts"`
}

// RawDump returns the accounts known to this StateDB with all mutations
// applied. Only accounts and slots that were accessed are included, the
// flat backend offers no way to enumerate the rest.
//
// 只导出本次执行中访问过的账户和槽位。
func (s *StateDB) RawDump(conf *DumpConfig) Dump {
	if conf == nil {
		conf = new(DumpConfig)
	}
	dump := Dump{Accounts: make(map[string]DumpAccount)}
	for _, addr := range s.liveAddresses() {
		obj := s.stateObjects[addr]
		account := DumpAccount{
			Balance:  obj.Balance().String(),
			Nonce:    obj.Nonce(),
			CodeHash: obj.CodeHash(),
		}
		if !conf.SkipCode {
			account.Code = obj.Code()
		}
		if !conf.SkipStorage {
			storage := make(map[common.Hash]string)
			for _, layer := range []Storage{obj.originStorage, obj.pendingStorage, obj.dirtyStorage} {
				for key, value := range layer {
					storage[key] = common.Bytes2Hex(common.TrimLeftZeroes(value[:]))
				}
			}
			for key, value := range storage {
				if value == "" {
					delete(storage, key)
				}
			}
			if len(storage) > 0 {
				account.Storage = storage
			}
		}
		dump.Accounts[addr.Hex()] = account
	}
	return dump
}

// Dump returns a JSON string representing the accessed state.
func (s *StateDB) Dump(conf *DumpConfig) []byte {
	dump := s.RawDump(conf)
	out, err := json.MarshalIndent(dump, "", "    ")
	if err != nil {
		log.Error("Error dumping state", "err", err)
	}
	return out
}
