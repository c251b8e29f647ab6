package voice

import (
	"fmt"
	"strings"
)

// maxSuggestions caps how many candidate names a [NotFoundError] lists in
// its message.
const maxSuggestions = 5

// NotFoundError is returned when voice resolution exhausts every tier
// against an empty candidate set, or when strict validation finds no match.
type NotFoundError struct {
	// Query is the free-text voice query that failed to resolve.
	Query string

	// Candidates holds a few available voice names to help the caller,
	// typically fuzzy suggestions. May be empty.
	Candidates []string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if len(e.Candidates) == 0 {
		return fmt.Sprintf("voice %q not found", e.Query)
	}
	shown := e.Candidates
	if len(shown) > maxSuggestions {
		shown = shown[:maxSuggestions]
	}
	return fmt.Sprintf("voice %q not found; available: %s", e.Query, strings.Join(shown, ", "))
}
