// SPDX-License-Identifier: MIT

// Package version carries build metadata injected with -ldflags "-X".
package version

var (
	// Version is the release tag, e.g. v0.3.0.
	Version = "dev"

	// Commit is the git short hash of the build.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// String formats the metadata for `portcheck version`.
func String() string {
	return Version + " (commit: " + Commit + ", built: " + Date + ")"
}
