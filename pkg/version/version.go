// Package version exposes build metadata of the proscan binary.
package version

import (
	"runtime/debug"
)

const unknown = "<unknown>"

// Build metadata, set with -ldflags "-X" at release time.
var (
	Version = "dev"
	Commit  = unknown
	Date    = unknown
)

// InitBinaryVersion fills Commit and Date from the VCS stamp embedded by the Go
// toolchain when they were not set at link time. It also picks up the module
// version for `go install`ed binaries.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	apply(info)
}

func apply(info *debug.BuildInfo) {
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = info.Main.Version
	}

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if Commit == unknown {
				Commit = s.Value
			}
		case "vcs.time":
			if Date == unknown {
				Date = s.Value
			}
		}
	}
}

// String returns the one-line version banner.
func String() string {
	return "proscan " + Version + " (commit: " + Commit + ", built: " + Date + ")"
}
