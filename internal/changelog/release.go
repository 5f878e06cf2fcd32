// SPDX-License-Identifier: MIT

package changelog

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/renameio/v2"
	"golang.org/x/mod/semver"
)

// unreleasedCompare matches "[Unreleased]: <repo>/compare/<tag>...<head>".
var unreleasedCompare = regexp.MustCompile(`(?i)^\[unreleased\]:\s*(\S+)/compare/(\S+)\.\.\.(\S+)$`)

// Release promotes the Unreleased entries into a new section for version
// dated date. An empty Unreleased section stays on top. A markdown
// "[Unreleased]" compare link is moved on to the new tag.
func (c *Changelog) Release(version string, date time.Time) error {
	sv := canonical(version)
	if sv == "" {
		return fmt.Errorf("%w: %q", ErrInvalidVersion, version)
	}
	if latest := c.Latest(); latest != "" {
		if lv := canonical(latest); lv != "" && semver.Compare(sv, lv) <= 0 {
			return fmt.Errorf("%w: %s <= %s", ErrVersionNotNewer, version, latest)
		}
	}
	if len(c.Releases) == 0 || !c.Releases[0].Unreleased {
		return ErrNoUnreleased
	}

	unreleased := &c.Releases[0]
	if unreleased.Entries() == 0 {
		return ErrNothingToRelease
	}

	var sections []Section
	for _, s := range unreleased.Sections {
		if len(s.Entries) > 0 {
			sections = append(sections, s)
		}
	}
	rel := Release{
		Version:  version,
		Date:     date.Format(DateLayout),
		Sections: sections,
	}
	unreleased.Sections = nil

	c.Releases = append(c.Releases[:1], append([]Release{rel}, c.Releases[1:]...)...)
	c.linkRelease(version)
	return nil
}

// linkRelease points the Unreleased compare link at the tag of version and
// adds a compare link for version from the previous tag. Tags keep the
// previous tag's "v" prefix convention.
func (c *Changelog) linkRelease(version string) {
	for i, l := range c.Footer {
		m := unreleasedCompare.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		repo, prev, head := m[1], m[2], m[3]
		tag := strings.TrimPrefix(version, "v")
		if strings.HasPrefix(prev, "v") {
			tag = "v" + tag
		}
		label := l[1:strings.Index(l, "]")]

		link := fmt.Sprintf("[%s]: %s/compare/%s...%s", version, repo, prev, tag)
		footer := append([]string{}, c.Footer[:i]...)
		footer = append(footer, fmt.Sprintf("[%s]: %s/compare/%s...%s", label, repo, tag, head), link)
		c.Footer = append(footer, c.Footer[i+1:]...)
		return
	}
}

// Render writes c back in its source format.
func Render(c *Changelog) []byte {
	if c.Format == FormatRST {
		return renderRST(c)
	}
	return renderMarkdown(c)
}

func renderMarkdown(c *Changelog) []byte {
	var b bytes.Buffer
	title := c.Title
	if title == "" {
		title = "Changelog"
	}
	fmt.Fprintf(&b, "# %s\n", title)
	writePreamble(&b, c.Preamble)

	for _, r := range c.Releases {
		b.WriteString("\n")
		switch {
		case r.Unreleased:
			b.WriteString("## [Unreleased]\n")
		case r.Date != "":
			fmt.Fprintf(&b, "## [%s] - %s\n", r.Version, r.Date)
		default:
			fmt.Fprintf(&b, "## [%s]\n", r.Version)
		}
		for _, s := range r.Sections {
			if s.Category != "" {
				fmt.Fprintf(&b, "\n### %s\n", s.Category)
			}
			b.WriteString("\n")
			writeEntries(&b, s.Entries, "- ")
		}
	}

	if len(c.Footer) > 0 {
		b.WriteString("\n")
		for _, l := range c.Footer {
			b.WriteString(l + "\n")
		}
	}
	return b.Bytes()
}

func renderRST(c *Changelog) []byte {
	var b bytes.Buffer
	title := c.Title
	if title == "" {
		title = "Change Log"
	}
	writeRSTHeading(&b, title, '#')
	writePreamble(&b, c.Preamble)

	for _, r := range c.Releases {
		b.WriteString("\n")
		switch {
		case r.Unreleased:
			writeRSTHeading(&b, "Unreleased", '*')
		case r.Date != "":
			writeRSTHeading(&b, r.Version+" – "+r.Date, '*')
		default:
			writeRSTHeading(&b, r.Version, '*')
		}
		for _, s := range r.Sections {
			if s.Category != "" {
				b.WriteString("\n")
				writeRSTHeading(&b, s.Category, '=')
			}
			b.WriteString("\n")
			writeEntries(&b, s.Entries, "* ")
		}
	}
	return b.Bytes()
}

func writeRSTHeading(b *bytes.Buffer, text string, ch rune) {
	b.WriteString(text + "\n")
	b.WriteString(strings.Repeat(string(ch), utf8.RuneCountInString(text)) + "\n")
}

func writePreamble(b *bytes.Buffer, lines []string) {
	if len(lines) == 0 {
		return
	}
	b.WriteString("\n")
	for _, l := range lines {
		b.WriteString(l + "\n")
	}
}

// writeEntries writes bullets; continuation lines are indented under the
// bullet text.
func writeEntries(b *bytes.Buffer, entries []string, marker string) {
	indent := strings.Repeat(" ", len(marker))
	for _, e := range entries {
		for i, l := range strings.Split(e, "\n") {
			if i == 0 {
				b.WriteString(marker + l + "\n")
			} else {
				b.WriteString(indent + l + "\n")
			}
		}
	}
}

// WriteFile renders c to path atomically.
func WriteFile(path string, c *Changelog) error {
	if err := renameio.WriteFile(path, Render(c), 0o644); err != nil {
		return fmt.Errorf("write changelog: %w", err)
	}
	return nil
}
