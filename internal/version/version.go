// Package version exposes build version info for the gitping binaries.
package version

import "runtime/debug"

// Version is the release version, overridable via ldflags at build time.
var Version = "dev"

// GetInfo returns the version string, with the VCS revision appended when available.
func GetInfo() string {
	rev := ""
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" {
				rev = setting.Value
			}
		}
	}
	if len(rev) > 7 {
		rev = rev[:7]
	}
	if rev == "" {
		return Version
	}
	return Version + " (" + rev + ")"
}
