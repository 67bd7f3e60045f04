// Package version tells which build of patchbay is running.
package version

import (
	"runtime"
	"runtime/debug"
)

// You can set the version at build time using something like:
// go build -ldflags "-X github.com/vsariola/patchbay/version.Version=$(git describe --dirty)"

var Version string

// PatchFormat is the newest patch file format the build writes and reads.
const PatchFormat = "1.0.0"

var Hash = func() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	var revision string
	modified := false
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			modified = setting.Value == "true"
		}
	}
	if len(revision) > 7 {
		revision = revision[:7]
	}
	if revision != "" && modified {
		return revision + "-dirty"
	}
	return revision
}()

var VersionOrHash = func() string {
	if Version != "" {
		return Version
	}
	if Hash != "" {
		return Hash
	}
	return "devel"
}()

// Long is VersionOrHash with the patch format and the Go version, for -v
// flags and log lines.
func Long() string {
	return VersionOrHash + " (patch format " + PatchFormat + ", " + runtime.Version() + ")"
}
