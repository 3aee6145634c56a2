// Package textsearch builds the accent- and case-insensitive search keys
// stored next to human-entered text fields.
package textsearch

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize returns the search key for s: combining marks removed, lower-cased
// and trimmed. "THỨC ĂN CHÓ" becomes "thuc an cho".
//
// Normalize is total and idempotent. Lower-casing runs before decomposition
// because some upper-case letters lower to a base letter plus a combining mark
// (U+0130 becomes "i" + U+0307), and the mark must be stripped in the same pass.
func Normalize(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}

	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, string(utf8.RuneError))
	}

	// Casers and transform chains keep state, so they are built per call.
	lowered := cases.Lower(language.Und).String(s)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, _ := transform.String(t, lowered)

	return strings.TrimSpace(stripped)
}

// Contains reports whether key contains the normalized form of query.
// An empty query matches everything.
func Contains(key, query string) bool {
	q := Normalize(query)
	if q == "" {
		return true
	}

	return strings.Contains(key, q)
}

// LikeEscape is the escape character used by LikePattern.
const LikeEscape = `\`

// LikePattern returns a SQL LIKE pattern matching any key containing the
// normalized query. Wildcards in the query are escaped with LikeEscape.
func LikePattern(query string) string {
	q := Normalize(query)

	var b strings.Builder
	b.Grow(len(q) + 2)
	b.WriteByte('%')
	for _, r := range q {
		switch r {
		case '%', '_', '\\':
			b.WriteString(LikeEscape)
		}
		b.WriteRune(r)
	}
	b.WriteByte('%')

	return b.String()
}
