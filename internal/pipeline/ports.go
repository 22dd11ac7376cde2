package pipeline

import (
	"context"

	"github.com/helixir/paper-analysis-service/internal/domain"
)

// MetadataSource resolves an identifier to bibliographic metadata.
type MetadataSource interface {
	// Fetch returns the paper for id, or nil and no error when no source
	// knows the identifier. A returned error is treated as a failure of the job.
	Fetch(ctx context.Context, id domain.PaperID) (*domain.Paper, error)
}

// TextSource resolves an identifier to the full text of the paper.
type TextSource interface {
	// Extract returns the document text. Implementations degrade to a
	// diagnostic string rather than returning an error when extraction fails;
	// the string is then summarized like any other text.
	Extract(ctx context.Context, id domain.PaperID) (string, error)
}

// Summarizer produces the natural-language parts of an analysis.
type Summarizer interface {
	SummarizeAbstract(ctx context.Context, abstract string) (string, error)
	SummarizeFull(ctx context.Context, text string) (string, error)
	EstimateDifficulty(ctx context.Context, text string) (domain.Difficulty, error)
	EstimateReadingMinutes(text string) int
}

// EventPublisher announces jobs that reached a terminal stage.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.JobEvent) error
}
