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

// Package version assembles the version string printed by the evm tool from
// the release constants and the VCS stamp of the build.
package version

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/sunyihoo/go-evm/version"
)

const modulePath = "github.com/sunyihoo/go-evm"

// Semantic is major.minor.patch.
var Semantic = fmt.Sprintf("%d.%d.%d", version.Major, version.Minor, version.Patch)

// WithMeta is Semantic followed by the release metadata, if any.
var WithMeta = Semantic + metaSuffix(version.Meta)

func metaSuffix(meta string) string {
	if meta == "" {
		return ""
	}
	return "-" + meta
}

// WithCommit appends the abbreviated commit and, for non-stable releases,
// the commit date to WithMeta.
func WithCommit(gitCommit, gitDate string) string {
	vsn := WithMeta
	if len(gitCommit) >= 8 {
		vsn += "-" + gitCommit[:8]
	}
	if gitDate != "" && version.Meta != "stable" {
		vsn += "-" + gitDate
	}
	return vsn
}

// Linker overrides, e.g.
// -ldflags "-X github.com/sunyihoo/go-evm/internal/version.gitCommit=...".
var gitCommit, gitDate string

// VCSInfo is the repository state the binary was built from.
type VCSInfo struct {
	Commit string
	Date   string // YYYYMMDD
	Dirty  bool
}

// VCS returns the build's repository state. Linker overrides take
// precedence over the stamp the go tool embeds.
func VCS() (VCSInfo, bool) {
	if gitCommit != "" {
		return VCSInfo{Commit: gitCommit, Date: gitDate}, true
	}
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Path != modulePath {
		return VCSInfo{}, false
	}
	return buildInfoVCS(info)
}

func buildInfoVCS(info *debug.BuildInfo) (VCSInfo, bool) {
	var vcs VCSInfo
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			vcs.Commit = setting.Value
		case "vcs.modified":
			vcs.Dirty = setting.Value == "true"
		case "vcs.time":
			// go 工具写入的是 RFC3339 UTC 时间
			if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
				vcs.Date = t.UTC().Format("20060102")
			}
		}
	}
	return vcs, vcs.Commit != "" && vcs.Date != ""
}
