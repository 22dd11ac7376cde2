package domain

import (
	"strings"
	"time"
)

// Paper holds the bibliographic metadata resolved for an identifier.
// A Paper is replaced wholesale whenever it is re-fetched.
type Paper struct {
	// ID is the arXiv identifier.
	ID PaperID

	// Title is the paper title with whitespace normalized.
	Title string

	// Authors is the free-text author list, comma separated
	// (e.g. "Alice Smith, Bob Lee").
	Authors string

	// Abstract is the paper abstract.
	Abstract string

	// PublishedAt is the first publication date, if known.
	PublishedAt *time.Time
}

// AuthorNames splits the comma-joined author field into trimmed names,
// dropping empty entries.
func (p *Paper) AuthorNames() []string {
	parts := strings.Split(p.Authors, ",")
	names := make([]string, 0, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

// PublishedYear returns the publication year, or 0 when unknown.
func (p *Paper) PublishedYear() int {
	if p.PublishedAt == nil {
		return 0
	}
	return p.PublishedAt.Year()
}

// Clone returns a deep copy of the paper.
func (p *Paper) Clone() *Paper {
	if p == nil {
		return nil
	}
	cp := *p
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		cp.PublishedAt = &t
	}
	return &cp
}
