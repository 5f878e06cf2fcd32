// SPDX-License-Identifier: MIT

// Package changelog reads, checks and edits the project's version history.
//
// Two layouts are understood: Keep a Changelog markdown ("## [1.2.3] -
// 2025-01-02") and the reStructuredText layout of the Open edX cookiecutter
// ("1.2.3 – 2025-01-02" underlined with asterisks).
package changelog

import (
	"errors"
)

// Format is the markup a changelog is written in.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatRST      Format = "rst"
)

// Severity grades a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Categories are the Keep a Changelog change types.
var Categories = []string{"Added", "Changed", "Deprecated", "Removed", "Fixed", "Security"}

var (
	// ErrInvalidVersion is returned for versions that are not MAJOR.MINOR.PATCH.
	ErrInvalidVersion = errors.New("invalid version")
	// ErrVersionNotNewer is returned when a release would not be the newest.
	ErrVersionNotNewer = errors.New("version is not newer than the latest release")
	// ErrNoUnreleased is returned when there is no Unreleased section to promote.
	ErrNoUnreleased = errors.New("no Unreleased section")
	// ErrNothingToRelease is returned when the Unreleased section is empty.
	ErrNothingToRelease = errors.New("nothing to release in the Unreleased section")
)

// Changelog is a parsed version history.
type Changelog struct {
	Title  string
	Format Format
	// Preamble holds the lines between the title and the first release,
	// kept verbatim.
	Preamble []string
	Releases []Release
	// Footer holds markdown link reference definitions.
	Footer []string
}

// Release is one version heading and its sections.
type Release struct {
	Version    string
	Date       string
	Unreleased bool
	Line       int
	Sections   []Section
}

// Entries counts the entries of all sections.
func (r Release) Entries() int {
	n := 0
	for _, s := range r.Sections {
		n += len(s.Entries)
	}
	return n
}

// Section is a change category inside a release.
type Section struct {
	Category string
	Entries  []string
	Line     int
}

// Issue is a validation finding.
type Issue struct {
	Line     int
	Severity Severity
	Message  string
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, is := range issues {
		if is.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Latest returns the newest released version, or "" when nothing has been
// released yet.
func (c *Changelog) Latest() string {
	for _, r := range c.Releases {
		if !r.Unreleased {
			return r.Version
		}
	}
	return ""
}
