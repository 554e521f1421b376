// Copyright 2025 The go-ethereum Authors
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

package tracing

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReasonNames(t *testing.T) {
	require.Equal(t, "Transfer", BalanceChangeTransfer.String())
	require.Equal(t, "SelfdestructBurn", BalanceDecreaseSelfdestructBurn.String())
	require.Equal(t, "BalanceChangeReason(99)", BalanceChangeReason(99).String())

	require.Equal(t, "TxInitialBalance", GasChangeTxInitialBalance.String())
	require.Equal(t, "CallFailedExecution", GasChangeCallFailedExecution.String())
	require.Equal(t, "Ignored", GasChangeIgnored.String())
	require.Equal(t, "GasChangeReason(200)", GasChangeReason(200).String())
}

// The numeric values are part of the hook contract.
func TestReasonValues(t *testing.T) {
	require.Equal(t, GasChangeReason(5), GasChangeCallInitialBalance)
	require.Equal(t, GasChangeReason(14), GasChangeCallFailedExecution)
	require.Equal(t, BalanceChangeReason(10), BalanceChangeTransfer)
}
