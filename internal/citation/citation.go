// Package citation renders bibliographic citations for arXiv papers.
package citation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/helixir/paper-analysis-service/internal/domain"
)

// noDate is used in place of the year when the publication date is unknown.
const noDate = "n.d."

// Generate renders the APA, MLA, Chicago and BibTeX citations of p.
// It is a pure function of p.
func Generate(p domain.Paper) domain.Citation {
	year := Year(p)
	authors := ReduceAuthors(p.Authors)
	id := p.ID.String()

	mla := fmt.Sprintf("%s. \"%s.\" arXiv preprint arXiv:%s (%s).", authors, p.Title, id, year)

	return domain.Citation{
		APA:     fmt.Sprintf("%s (%s). %s. arXiv:%s", authors, year, p.Title, id),
		MLA:     mla,
		Chicago: mla,
		BibTeX: fmt.Sprintf("@article{%s%s,\n  title={%s},\n  author={%s},\n  journal={arXiv preprint arXiv:%s},\n  year={%s}\n}",
			CiteKeyAuthor(p.Authors), year, p.Title, p.Authors, id, year),
	}
}

// Year returns the four digit publication year or "n.d.".
func Year(p domain.Paper) string {
	if p.PublishedAt == nil {
		return noDate
	}
	return strconv.Itoa(p.PublishedAt.Year())
}

// ReduceAuthors shortens a comma-joined author list to the surname form
// used in running citations: "Smith", "Smith & Lee" or "Smith et al.".
func ReduceAuthors(authors string) string {
	names := splitAuthors(authors)
	switch len(names) {
	case 0:
		return ""
	case 1:
		return surname(names[0])
	case 2:
		return surname(names[0]) + " & " + surname(names[1])
	default:
		return surname(names[0]) + " et al."
	}
}

// CiteKeyAuthor returns the first author's surname with every character
// outside A-Z and a-z removed.
func CiteKeyAuthor(authors string) string {
	names := splitAuthors(authors)
	if len(names) == 0 {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return r
		}
		return -1
	}, surname(names[0]))
}

// splitAuthors splits on commas and drops trailing empty entries, so a
// dangling comma does not count as an extra author.
func splitAuthors(authors string) []string {
	parts := strings.Split(authors, ",")
	for len(parts) > 0 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// surname is the last whitespace-separated token of a full name.
func surname(fullName string) string {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}
