// Package domain provides the domain model of the paper analysis service:
// identifiers, papers, analyses, jobs and their pipeline stages, and the
// error taxonomy shared by every layer.
package domain
