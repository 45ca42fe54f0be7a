package utils

import (
	"strings"
	"unicode"
)

// IsSeparator checks if a rune separates tokens inside a symbol name
func IsSeparator(r rune) bool {
	return r == ' ' || r == '_' || r == '-' || r == '.' || r == '/' || r == ':' || r == '~'
}

// CollapseSpace trims s and collapses every run of whitespace into one space.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Span is a half-open byte range [Start, End) of a token inside a string.
type Span struct {
	Start int
	End   int
}

// TokenSpans splits s into tokens. Tokens are separated by separator runes
// and by lower-to-upper case transitions (camelCase).
func TokenSpans(s string) []Span {
	var spans []Span
	start := -1
	var prev rune
	for i, r := range s {
		switch {
		case IsSeparator(r):
			if start >= 0 {
				spans = append(spans, Span{Start: start, End: i})
				start = -1
			}
		case start < 0:
			start = i
		case unicode.IsLower(prev) && unicode.IsUpper(r):
			spans = append(spans, Span{Start: start, End: i})
			start = i
		}
		prev = r
	}
	if start >= 0 {
		spans = append(spans, Span{Start: start, End: len(s)})
	}
	return spans
}
