package voice

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds text for comparison: Unicode canonical decomposition (NFD),
// removal of combining marks, and lowercasing. "Mónica" and "monica" fold to
// the same string, so accent-bearing and accent-free queries are equivalent.
//
// Normalize is pure, total and idempotent. It never fails; empty input
// yields empty output.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	// The transformer chain is stateful, so build it per call rather than
	// sharing one across goroutines.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	folded, _, err := transform.String(t, text)
	if err != nil {
		// Malformed UTF-8 cannot be decomposed; fall back to plain lowering.
		return strings.ToLower(text)
	}
	return strings.ToLower(folded)
}
