// Package semanticscholar resolves arXiv papers through the Semantic Scholar
// Graph API, which indexes them under "arXiv:<id>".
//
// API Documentation: https://api.semanticscholar.org/api-docs/
package semanticscholar

// PaperResult is the subset of a Graph API paper record the service reads.
type PaperResult struct {
	PaperID         string   `json:"paperId"`
	Title           string   `json:"title"`
	Abstract        string   `json:"abstract"`
	Year            int      `json:"year"`
	PublicationDate string   `json:"publicationDate"`
	Authors         []Author `json:"authors"`
}

// Author is a paper author as returned by the API.
type Author struct {
	AuthorID string `json:"authorId"`
	Name     string `json:"name"`
}

// ErrorResponse is the body the API sends with 4xx and 5xx responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
