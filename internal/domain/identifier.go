package domain

import (
	"regexp"
)

// paperIDPattern accepts new-style ("2301.12345") and old-style
// ("hep-th/9901001") arXiv identifiers. Version suffixes are not accepted.
var paperIDPattern = regexp.MustCompile(`^(\d{4}\.\d{4,5}|[a-z\-]+/\d{7})$`)

// PaperID is a validated arXiv identifier. The zero value is not a valid
// identifier; values are only produced by ParsePaperID.
type PaperID struct {
	value string
}

// ParsePaperID validates raw against the arXiv identifier grammar.
// The input is not trimmed or case-folded: a valid identifier round-trips
// to exactly the same string through String.
func ParsePaperID(raw string) (PaperID, error) {
	if raw == "" {
		return PaperID{}, NewValidationError("arxiv_id", "arXiv ID is required")
	}
	if !paperIDPattern.MatchString(raw) {
		return PaperID{}, NewValidationError("arxiv_id", "invalid arXiv ID format")
	}
	return PaperID{value: raw}, nil
}

// MustParsePaperID is like ParsePaperID but panics on invalid input.
// Intended for constants and tests.
func MustParsePaperID(raw string) PaperID {
	id, err := ParsePaperID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the canonical identifier.
func (id PaperID) String() string {
	return id.value
}

// IsZero reports whether id was never assigned a validated value.
func (id PaperID) IsZero() bool {
	return id.value == ""
}
