// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"fmt"
	"runtime"
)

// set with -ldflags "-X github.com/sustainable-computing-io/pmtime/internal/version.version=..."
var (
	version   string
	buildTime string
	gitBranch string
	gitCommit string
)

type VersionInfo struct {
	Version   string
	BuildTime string
	GitBranch string
	GitCommit string

	GoVersion string
	GoOS      string
	GoArch    string
}

// Info returns the version information
func Info() VersionInfo {
	return VersionInfo{
		Version:   version,
		BuildTime: buildTime,
		GitBranch: gitBranch,
		GitCommit: gitCommit,

		GoVersion: runtime.Version(),
		GoOS:      runtime.GOOS,
		GoArch:    runtime.GOARCH,
	}
}

func (v VersionInfo) String() string {
	ver := v.Version
	if ver == "" {
		ver = "devel"
	}
	return fmt.Sprintf("pmtime %s (commit %s, branch %s, built %s) %s %s/%s",
		ver, orUnknown(v.GitCommit), orUnknown(v.GitBranch), orUnknown(v.BuildTime),
		v.GoVersion, v.GoOS, v.GoArch)
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
