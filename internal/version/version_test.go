// Copyright 2022 The go-ethereum Authors
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

package version

import (
	"runtime/debug"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithCommit(t *testing.T) {
	require.Equal(t, WithMeta, WithCommit("", ""))
	require.Equal(t, WithMeta, WithCommit("abc", ""))

	vsn := WithCommit("0123456789abcdef", "20240901")
	require.True(t, strings.HasPrefix(vsn, Semantic))
	require.Contains(t, vsn, "-01234567")
	require.True(t, strings.HasSuffix(vsn, "-20240901"))
}

func TestBuildInfoVCS(t *testing.T) {
	info := &debug.BuildInfo{Settings: []debug.BuildSetting{
		{Key: "vcs.revision", Value: "deadbeefcafe"},
		{Key: "vcs.time", Value: "2024-03-13T14:55:35Z"},
		{Key: "vcs.modified", Value: "true"},
	}}
	vcs, ok := buildInfoVCS(info)
	require.True(t, ok)
	require.Equal(t, VCSInfo{Commit: "deadbeefcafe", Date: "20240313", Dirty: true}, vcs)

	_, ok = buildInfoVCS(&debug.BuildInfo{})
	require.False(t, ok)
}

func TestMetaSuffix(t *testing.T) {
	require.Empty(t, metaSuffix(""))
	require.Equal(t, "-unstable", metaSuffix("unstable"))
}
