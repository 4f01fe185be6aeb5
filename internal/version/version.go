// Package version reports the build version of the speedtest binaries.
package version

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// version is overridden at build time:
//
//	go build -ldflags "-X github.com/cubiclesoft/network-speedtest-cli/internal/version.version=1.2.0"
var version = "dev"

// ProtocolVersion is the revision of the newline-delimited JSON protocol spoken
// by the server and the client driver. Bump the major part for breaking changes.
const ProtocolVersion = "1.0.0"

// Get returns the normalized build version ("v1.2.0") or the raw string for
// non-release builds such as "dev".
func Get() string {
	v, err := semver.NewVersion(version)
	if err != nil {
		return version
	}
	return "v" + v.String()
}

// String is the one-line description printed by the version commands.
func String(binary string) string {
	if !IsRelease() {
		return fmt.Sprintf("%s %s (protocol %s, development build)", binary, Get(), ProtocolVersion)
	}
	return fmt.Sprintf("%s %s (protocol %s)", binary, Get(), ProtocolVersion)
}

// IsRelease reports whether the build carries a semantic version without a
// pre-release suffix.
func IsRelease() bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return v.Prerelease() == ""
}
