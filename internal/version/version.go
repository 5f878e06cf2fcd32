// SPDX-License-Identifier: MIT

// Package version carries build metadata injected with -ldflags.
package version

import "fmt"

var (
	// Version is the release the binary was built from. Release builds set
	// it from the newest CHANGELOG.md entry.
	Version = "v0.1.1"

	// Commit is the git short hash of the build.
	Commit = "unknown"

	// Date is the build timestamp.
	Date = "unknown"
)

// String renders the build metadata on one line.
func String() string {
	return fmt.Sprintf("%s (commit %s, built %s)", Version, Commit, Date)
}
