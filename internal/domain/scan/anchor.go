// Package scan provides the anchored field extraction shared by the
// document parsers. Each field is an ordered chain of candidate patterns;
// payer-specific layout quirks are handled by appending an alternate
// pattern to the chain rather than rewriting a parser.
package scan

import (
	"regexp"
	"strings"
)

// Anchor is one named field extractor.
type Anchor struct {
	Name     string
	Patterns []*regexp.Regexp
}

// NewAnchor compiles an anchor from pattern strings. Panics on an invalid
// pattern; anchors are package-level constants in practice.
func NewAnchor(name string, patterns ...string) Anchor {
	a := Anchor{Name: name}
	for _, p := range patterns {
		a.Patterns = append(a.Patterns, regexp.MustCompile(p))
	}
	return a
}

// FindString tries each pattern in order against the whole text and
// returns the submatches of the first hit (index 0 is the full match).
func (a Anchor) FindString(text string) ([]string, bool) {
	for _, re := range a.Patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m, true
		}
	}
	return nil, false
}

// FindLines tries each pattern in order across all lines, so a strict
// pattern on a late line still beats a fallback pattern on an early one.
func (a Anchor) FindLines(lines []string) ([]string, bool) {
	for _, re := range a.Patterns {
		for _, line := range lines {
			if m := re.FindStringSubmatch(line); m != nil {
				return m, true
			}
		}
	}
	return nil, false
}

// Lines splits page texts into trimmed, non-empty lines in document order.
func Lines(pages []string) []string {
	var out []string
	for _, page := range pages {
		for _, line := range strings.Split(page, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
	}
	return out
}
