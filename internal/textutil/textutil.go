// Package textutil normalizes text scraped from recipe pages.
package textutil

import (
	"html"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Clean unescapes HTML entities, converts to Unicode NFC, turns
// non-breaking and other Unicode spaces into plain spaces, and collapses
// whitespace runs. The result has no leading or trailing space.
func Clean(s string) string {
	s = norm.NFC.String(html.UnescapeString(s))
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		if unicode.IsSpace(r) || r == '\u200b' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimRight(b.String(), " ")
}

// CleanAll cleans every element and drops the ones that end up empty.
func CleanAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if c := Clean(s); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// JoinNonEmpty cleans the parts and joins the non-empty ones with a space.
func JoinNonEmpty(parts ...string) string {
	return strings.Join(CleanAll(parts), " ")
}
