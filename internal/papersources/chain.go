package papersources

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-analysis-service/internal/domain"
	"github.com/helixir/paper-analysis-service/internal/observability"
)

// Lookup outcomes recorded per source.
const (
	outcomeFound    = "found"
	outcomeNotFound = "not_found"
	outcomeError    = "error"
)

// Chain tries its sources in order and returns the first paper found.
type Chain struct {
	sources []Source
	logger  zerolog.Logger
	metrics *observability.Metrics
}

// NewChain creates a chain over sources. metrics may be nil.
func NewChain(logger zerolog.Logger, metrics *observability.Metrics, sources ...Source) *Chain {
	return &Chain{
		sources: sources,
		logger:  logger.With().Str("component", "metadata_chain").Logger(),
		metrics: metrics,
	}
}

// Sources returns the names of the chained sources in lookup order.
func (c *Chain) Sources() []string {
	names := make([]string, len(c.sources))
	for i, s := range c.sources {
		names[i] = s.Name()
	}
	return names
}

// Fetch returns the first paper any source resolves for id.
// When no source has it, including when every source failed, Fetch
// returns nil and no error; source failures are logged and counted.
// Only cancellation of ctx is returned as an error.
func (c *Chain) Fetch(ctx context.Context, id domain.PaperID) (*domain.Paper, error) {
	for _, source := range c.sources {
		logger := observability.WithSourceContext(c.logger, source.Name(), id.String())

		start := time.Now()
		paper, err := source.GetByID(ctx, id)
		elapsed := time.Since(start).Seconds()

		switch {
		case err == nil && paper != nil:
			c.record(source.Name(), outcomeFound, elapsed)
			logger.Debug().Str("title", paper.Title).Msg("paper metadata resolved")
			return paper, nil
		case err == nil, errors.Is(err, domain.ErrNotFound):
			c.record(source.Name(), outcomeNotFound, elapsed)
			logger.Debug().Msg("paper not known to source")
		default:
			c.record(source.Name(), outcomeError, elapsed)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Warn().Err(err).Msg("metadata lookup failed, trying next source")
		}
	}
	return nil, nil
}

func (c *Chain) record(source, outcome string, seconds float64) {
	if c.metrics != nil {
		c.metrics.RecordSourceRequest(source, outcome, seconds)
	}
}
