// Package papersources resolves arXiv identifiers to paper metadata.
//
// Each upstream API (arXiv, Semantic Scholar) implements Source. A Chain
// queries sources in order and returns the first match, which lets the
// service fall back to a secondary index when arXiv is unreachable or
// rate limiting.
//
// Example usage:
//
//	chain := papersources.NewChain(logger, metrics,
//		arxiv.New(arxiv.Config{}),
//		semanticscholar.NewClient(semanticscholar.Config{}, nil),
//	)
//	paper, err := chain.Fetch(ctx, id)
package papersources

import (
	"context"

	"github.com/helixir/paper-analysis-service/internal/domain"
)

// Source is a single upstream metadata API.
type Source interface {
	// Name returns the source label used in logs and metrics.
	Name() string

	// GetByID retrieves the paper for id.
	// Returns domain.ErrNotFound if the source does not know the paper.
	GetByID(ctx context.Context, id domain.PaperID) (*domain.Paper, error)
}
