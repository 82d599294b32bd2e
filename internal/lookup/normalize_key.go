package lookup

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// KeyFunc canonicalizes a join key before it is stored or looked up.
type KeyFunc func(string) string

// Exact trims surrounding whitespace and keeps case.
func Exact(s string) string { return strings.TrimSpace(s) }

// Fold trims and applies Unicode case folding, for email addresses and
// domains compared case-insensitively.
func Fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// Lower applies the full Unicode lower-case mapping and keeps whitespace.
// Unlike Fold it leaves ß alone, so keys written back to output keep their
// spelling.
func Lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// Upper trims and upper-cases, for device serial numbers.
func Upper(s string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(s))
}
