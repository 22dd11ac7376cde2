// Package store holds resolved paper metadata and completed analyses.
//
// # Freshness
//
// An analysis is served only while it is younger than the configured
// freshness window (30 days by default). A stale analysis is deleted the
// first time it is read; there is no background sweep.
//
// # Thread Safety
//
// Store implementations are safe for concurrent use by multiple goroutines.
// Values are copied on the way in and on the way out, so callers never share
// mutable state with the store.
package store

import (
	"context"

	"github.com/helixir/paper-analysis-service/internal/domain"
)

// Store is the result store consumed by the pipeline and the query layer.
type Store interface {
	// PutPaper inserts or replaces the paper stored under p.ID.
	// Replacement is wholesale; fields are never merged.
	PutPaper(ctx context.Context, p *domain.Paper) error

	// GetPaper retrieves the paper stored under id.
	// Returns domain.ErrNotFound if no paper is stored.
	GetPaper(ctx context.Context, id domain.PaperID) (*domain.Paper, error)

	// PutAnalysis inserts or replaces the analysis stored under a.PaperID.
	PutAnalysis(ctx context.Context, a *domain.Analysis) error

	// GetAnalysis retrieves the fresh analysis stored under id.
	// A stale analysis is evicted and reported as absent.
	// Returns domain.ErrNotFound if no fresh analysis exists.
	GetAnalysis(ctx context.Context, id domain.PaperID) (*domain.Analysis, error)
}

// Stats summarizes the store contents.
type Stats struct {
	Papers   int `json:"totalPapers"`
	Analyses int `json:"totalAnalyses"`
}
