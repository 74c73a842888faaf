// Package buildinfo carries version information stamped in at link time:
//
//	go build -ldflags "-X github.com/cleared-dev/envelope/internal/buildinfo.Version=v0.3.0 ..."
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String describes the running binary. Binaries built with go install have
// no ldflags, so the module version and VCS revision embedded by the
// toolchain are used instead when available.
func String() string {
	version, commit := Version, Commit
	if bi, ok := debug.ReadBuildInfo(); ok {
		if version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			version = bi.Main.Version
		}
		if commit == "none" {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" && len(s.Value) >= 7 {
					commit = s.Value[:7]
				}
			}
		}
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, Date)
}
