// Package version carries build metadata stamped in via ldflags.
package version

import "fmt"

var (
	// Version is the semantic version.
	Version = "dev"

	// GitCommit is the short commit hash of the build.
	GitCommit = "unknown"

	// BuildTime is the build timestamp in RFC3339 format.
	BuildTime = "unknown"
)

// String renders the version line shown by `newsloom --version`.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildTime)
}
