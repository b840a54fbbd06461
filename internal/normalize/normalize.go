// Package normalize canonicalizes the free-text identity fields and status
// labels found in historical service order records.
//
// All functions are pure and safe for concurrent use.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Unknown replaces identity fields that are empty or missing in the source.
const Unknown = "Desconocido"

// Name trims surrounding whitespace. Empty input yields Unknown.
func Name(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return Unknown
	}
	return s
}

// Key folds a display name into the comparison form used for natural-key
// lookups: accents stripped, lower-cased, internal whitespace collapsed.
// Key("  José  PÉREZ ") == "jose perez".
func Key(s string) string {
	s = stripDiacritics(Name(s))
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// SplitFullName splits a full name on whitespace. The first token is the
// first name; the remaining tokens, joined by single spaces, are the last
// name. A single token yields an empty last name. Empty input yields
// (Unknown, "").
func SplitFullName(s string) (first, rest string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return Unknown, ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}

// stripDiacritics decomposes s into NFD and drops the combining marks.
func stripDiacritics(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
