// SPDX-License-Identifier: MIT

package changelog

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	// [1.2.3] - 2025-01-02, v1.2.3 – 2025-01-02, [1.2.3], Unreleased,
	// [1.2.3](https://…) - 2025-01-02, [1.2.3](https://…) (2025-01-02)
	releaseHeading = regexp.MustCompile(`^\[?([^\]\s(]+)\]?(?:\([^)]*\))?(?:\s*[-–—]\s*(.*)|\s+\(([^)]*)\))?$`)
	linkReference  = regexp.MustCompile(`^\[[^\]]+\]:\s*\S`)
	rstUnderline   = regexp.MustCompile(`^([#*=\-~^"+])\1*$`)
)

// Load parses the changelog at path.
func Load(path string) (*Changelog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse reads a changelog and detects its format.
func Parse(r io.Reader) (*Changelog, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), " \t\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read changelog: %w", err)
	}

	if detectFormat(lines) == FormatRST {
		return parseRST(lines), nil
	}
	return parseMarkdown(lines), nil
}

func detectFormat(lines []string) Format {
	for i, l := range lines {
		if l == "" {
			continue
		}
		if strings.HasPrefix(l, "#") && strings.HasPrefix(strings.TrimLeft(l, "#"), " ") {
			return FormatMarkdown
		}
		if i+1 < len(lines) && isUnderline(l, lines[i+1]) {
			return FormatRST
		}
		if !strings.HasPrefix(l, "..") {
			return FormatMarkdown
		}
	}
	return FormatMarkdown
}

func isUnderline(text, under string) bool {
	if text == "" || strings.HasPrefix(text, " ") || !rstUnderline.MatchString(under) {
		return false
	}
	return utf8.RuneCountInString(under) >= utf8.RuneCountInString(strings.TrimSpace(text))
}

// parseHeading splits a release heading into version and date.
func parseHeading(text string) Release {
	text = strings.TrimSpace(text)
	if strings.EqualFold(strings.Trim(text, "[]"), "unreleased") {
		return Release{Unreleased: true}
	}
	m := releaseHeading.FindStringSubmatch(text)
	if m == nil {
		return Release{Version: text}
	}
	if strings.EqualFold(m[1], "unreleased") {
		return Release{Unreleased: true}
	}
	date := m[2]
	if date == "" {
		date = m[3]
	}
	return Release{Version: m[1], Date: strings.TrimSpace(date)}
}

// builder accumulates releases and entries for both formats.
type builder struct {
	c       *Changelog
	release *Release
	section *Section
}

func (b *builder) startRelease(heading string, line int) {
	b.flush()
	r := parseHeading(heading)
	r.Line = line
	b.release = &r
	b.section = nil
}

func (b *builder) startSection(category string, line int) {
	if b.release == nil {
		return
	}
	b.release.Sections = append(b.release.Sections, Section{Category: strings.TrimSpace(category), Line: line})
	b.section = &b.release.Sections[len(b.release.Sections)-1]
}

func (b *builder) addEntry(text string, line int) {
	// An empty bullet is the placeholder of an empty Unreleased section.
	if b.release == nil || text == "" {
		return
	}
	if b.section == nil {
		// Entries without a category heading are kept in an anonymous section.
		b.startSection("", line)
	}
	b.section.Entries = append(b.section.Entries, text)
}

func (b *builder) continueEntry(text string) {
	if b.section == nil || len(b.section.Entries) == 0 {
		b.addEntry(text, 0)
		return
	}
	last := &b.section.Entries[len(b.section.Entries)-1]
	*last += "\n" + text
}

func (b *builder) flush() {
	if b.release != nil {
		b.c.Releases = append(b.c.Releases, *b.release)
	}
	b.release = nil
	b.section = nil
}

func bullet(line string) (string, bool) {
	for _, p := range []string{"- ", "* ", "+ "} {
		if strings.HasPrefix(line, p) {
			return strings.TrimSpace(line[len(p):]), true
		}
	}
	if line == "-" || line == "*" {
		return "", true
	}
	return "", false
}

func parseMarkdown(lines []string) *Changelog {
	c := &Changelog{Format: FormatMarkdown}
	b := &builder{c: c}

	for i, l := range lines {
		n := i + 1
		switch {
		case strings.HasPrefix(l, "# ") && c.Title == "" && b.release == nil:
			c.Title = strings.TrimSpace(l[2:])
		case strings.HasPrefix(l, "## "):
			b.startRelease(l[3:], n)
		case strings.HasPrefix(l, "### "):
			b.startSection(l[4:], n)
		case linkReference.MatchString(l):
			c.Footer = append(c.Footer, l)
		case b.release == nil:
			c.Preamble = append(c.Preamble, l)
		case l == "":
		default:
			if text, ok := bullet(l); ok {
				b.addEntry(text, n)
			} else {
				b.continueEntry(strings.TrimSpace(l))
			}
		}
	}
	b.flush()
	c.Preamble = trimBlank(c.Preamble)
	return c
}

// parseRST understands three heading levels: the title, releases and
// categories, in the order their underline characters first appear.
func parseRST(lines []string) *Changelog {
	c := &Changelog{Format: FormatRST}
	b := &builder{c: c}
	var levels []byte

	level := func(ch byte) int {
		for i, l := range levels {
			if l == ch {
				return i
			}
		}
		levels = append(levels, ch)
		return len(levels) - 1
	}

	for i := 0; i < len(lines); i++ {
		l := lines[i]
		n := i + 1
		if i+1 < len(lines) && isUnderline(l, lines[i+1]) {
			switch level(lines[i+1][0]) {
			case 0:
				c.Title = strings.TrimSpace(l)
			case 1:
				b.startRelease(l, n)
			default:
				b.startSection(l, n)
			}
			i++
			continue
		}
		switch {
		case b.release == nil:
			if c.Title != "" {
				c.Preamble = append(c.Preamble, l)
			}
		case l == "":
		default:
			if text, ok := bullet(l); ok {
				b.addEntry(text, n)
			} else {
				b.continueEntry(strings.TrimSpace(l))
			}
		}
	}
	b.flush()
	c.Preamble = trimBlank(c.Preamble)
	return c
}

func trimBlank(lines []string) []string {
	for len(lines) > 0 && lines[0] == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
