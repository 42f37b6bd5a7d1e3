// Package version exposes build metadata injected through -ldflags:
//
//	-X github.com/xdpzq/centralgpt/internal/version.Version=v1.2.0
//	-X github.com/xdpzq/centralgpt/internal/version.GitCommit=abc1234
//	-X github.com/xdpzq/centralgpt/internal/version.BuildDate=2026-10-17T00:00:00Z
package version

import (
	"fmt"
	"runtime"
)

// Set at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Short returns the bare version string.
func Short() string {
	return Version
}

// Info returns a one-line description for `centralgpt version`.
func Info() string {
	return fmt.Sprintf("CentralGPT %s (commit %s, built %s, %s %s/%s)",
		Version, GitCommit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// Map returns build metadata for JSON responses.
func Map() map[string]string {
	return map[string]string{
		"version":    Version,
		"git_commit": GitCommit,
		"build_date": BuildDate,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
	}
}
