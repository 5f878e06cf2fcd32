// SPDX-License-Identifier: MIT

package changelog

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

// DateLayout is the release date format.
const DateLayout = "2006-01-02"

var versionCore = regexp.MustCompile(`^v?(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)([-+].*)?$`)

// canonical returns the "v"-prefixed form semver expects, or "" when v is
// not a full MAJOR.MINOR.PATCH version.
func canonical(v string) string {
	if !versionCore.MatchString(v) {
		return ""
	}
	sv := "v" + strings.TrimPrefix(v, "v")
	if !semver.IsValid(sv) {
		return ""
	}
	return sv
}

// Validate checks versions, ordering, dates and categories.
func Validate(c *Changelog) []Issue {
	var issues []Issue
	add := func(line int, sev Severity, format string, args ...any) {
		issues = append(issues, Issue{Line: line, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	seen := map[string]int{}
	unreleased := 0
	var (
		prevVersion, prevRaw string
		prevDate             time.Time
		prevDateRaw          string
	)

	for i, r := range c.Releases {
		if r.Unreleased {
			unreleased++
			if unreleased > 1 {
				add(r.Line, SeverityError, "more than one Unreleased section")
			} else if i != 0 {
				add(r.Line, SeverityError, "Unreleased section must come first")
			}
			checkCategories(r, add)
			continue
		}

		sv := canonical(r.Version)
		switch {
		case sv == "":
			add(r.Line, SeverityError, "version %q is not MAJOR.MINOR.PATCH semver", r.Version)
		case seen[semver.Canonical(sv)] != 0:
			add(r.Line, SeverityError, "version %s is already listed on line %d", r.Version, seen[semver.Canonical(sv)])
		default:
			seen[semver.Canonical(sv)] = r.Line
			if prevVersion != "" && semver.Compare(sv, prevVersion) >= 0 {
				add(r.Line, SeverityError, "version %s is not lower than %s above it", r.Version, prevRaw)
			}
			prevVersion, prevRaw = sv, r.Version
		}

		if r.Date == "" {
			add(r.Line, SeverityWarning, "release %s has no date", r.Version)
		} else if d, err := time.Parse(DateLayout, r.Date); err != nil {
			add(r.Line, SeverityError, "date %q of %s is not YYYY-MM-DD", r.Date, r.Version)
		} else {
			if !prevDate.IsZero() && d.After(prevDate) {
				add(r.Line, SeverityError, "date %s of %s is later than %s above it", r.Date, r.Version, prevDateRaw)
			}
			prevDate, prevDateRaw = d, r.Date
		}

		if r.Entries() == 0 {
			add(r.Line, SeverityWarning, "release %s has no entries", r.Version)
		}
		checkCategories(r, add)
	}
	return issues
}

func checkCategories(r Release, add func(int, Severity, string, ...any)) {
	for _, s := range r.Sections {
		if s.Category == "" {
			continue
		}
		if !slices.Contains(Categories, s.Category) {
			add(s.Line, SeverityWarning, "unknown category %q (want one of %s)", s.Category, strings.Join(Categories, ", "))
		}
	}
}
