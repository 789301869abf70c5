// Package config holds the build metadata shared by compliops-server and
// compliopsctl. The server reports it on /health, the client prints it from
// its version command.
package config

import (
	"fmt"
	"runtime"
)

// Build information, stamped by the release build via
// -ldflags "-X github.com/good-yellow-bee/compliops/pkg/config.Version=...".
// Local builds report "dev".
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// BuildInfo is the build information reported by `compliopsctl version -o json`.
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information.
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// VersionString is the one-line version printed by both binaries.
func VersionString() string {
	return fmt.Sprintf("compliops %s (%s) built at %s with %s",
		Version, Commit, BuildTime, runtime.Version())
}

// ShortVersionString is the bare version reported in the health response.
func ShortVersionString() string {
	return Version
}
