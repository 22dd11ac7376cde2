// Package app assembles the analysis service's components from configuration.
// The server, the worker and the CLI all build the same graph here and
// differ only in which front end they attach to it.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-analysis-service/internal/config"
	"github.com/helixir/paper-analysis-service/internal/domain"
	"github.com/helixir/paper-analysis-service/internal/events"
	"github.com/helixir/paper-analysis-service/internal/jobs"
	"github.com/helixir/paper-analysis-service/internal/llm"
	"github.com/helixir/paper-analysis-service/internal/observability"
	"github.com/helixir/paper-analysis-service/internal/papersources"
	"github.com/helixir/paper-analysis-service/internal/papersources/arxiv"
	"github.com/helixir/paper-analysis-service/internal/papersources/semanticscholar"
	"github.com/helixir/paper-analysis-service/internal/pdf"
	"github.com/helixir/paper-analysis-service/internal/pipeline"
	"github.com/helixir/paper-analysis-service/internal/render"
	"github.com/helixir/paper-analysis-service/internal/store"
)

// MetricsNamespace prefixes every exported Prometheus metric.
const MetricsNamespace = "paper_analysis"

// Publisher is the event sink owned by an App.
type Publisher interface {
	pipeline.EventPublisher
	Close() error
}

// App holds the wired components.
type App struct {
	Store        *store.Memory
	Jobs         *jobs.Memory
	Metadata     *papersources.Chain
	Text         *pdf.TextSource
	Engine       *llm.Engine
	Breakers     *llm.BreakerRegistry
	Renderer     *render.Markdown
	Publisher    Publisher
	Orchestrator *pipeline.Orchestrator
}

// New builds the component graph described by cfg. metrics may be nil.
func New(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger zerolog.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}

	a := &App{
		Jobs:     jobs.NewMemory(),
		Renderer: render.NewMarkdown(),
	}

	a.Store = store.NewMemory(
		store.WithFreshness(cfg.Pipeline.Freshness),
		store.WithEvictionHook(func(id domain.PaperID) {
			if metrics != nil {
				metrics.RecordStoreEviction()
			}
			logger.Debug().Str("arxiv_id", id.String()).Msg("stale analysis evicted")
		}),
	)

	a.Metadata = NewMetadataChain(cfg.PaperSources, metrics, logger)

	downloader := pdf.NewDownloader(pdf.Config{
		Timeout:   cfg.PDF.Timeout,
		MaxSize:   cfg.PDF.MaxSize,
		UserAgent: cfg.PDF.UserAgent,
	})
	a.Text = pdf.NewTextSource(downloader, pdf.TextSourceConfig{
		PDFBaseURL:          cfg.PaperSources.ArXiv.PDFBaseURL,
		HTMLBaseURL:         cfg.PaperSources.ArXiv.HTMLBaseURL,
		DisableHTMLFallback: cfg.PaperSources.ArXiv.DisableHTMLFallback,
	}, metrics, logger)

	completer, err := llm.NewCompleter(ctx, completerConfig(cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("create llm completer: %w", err)
	}
	a.Breakers = llm.NewBreakerRegistry(breakerConfig(cfg.LLM.CircuitBreaker, metrics, logger))
	if cfg.LLM.CircuitBreaker.Enabled {
		breaker := a.Breakers.Get(completer.Provider())
		if metrics != nil {
			metrics.SetBreakerState(breaker.Name(), int(llm.CircuitClosed))
		}
		completer = llm.NewBreakerCompleter(completer, breaker)
	}
	a.Engine = llm.NewEngine(completer, metrics, logger)
	logger.Info().
		Str("provider", completer.Provider()).
		Str("model", completer.Model()).
		Msg("language model configured")

	if cfg.Kafka.Enabled {
		a.Publisher = events.NewPublisher(events.PublisherConfig{
			Brokers:      cfg.Kafka.Brokers,
			Topic:        cfg.Kafka.Topic,
			BatchSize:    cfg.Kafka.BatchSize,
			BatchTimeout: cfg.Kafka.BatchTimeout,
		}, metrics, logger)
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("job events enabled")
	} else {
		a.Publisher = events.NoopPublisher{}
	}

	a.Orchestrator, err = pipeline.New(pipeline.Deps{
		Store:      a.Store,
		Jobs:       a.Jobs,
		Metadata:   a.Metadata,
		Text:       a.Text,
		Summarizer: a.Engine,
		Events:     a.Publisher,
		Metrics:    metrics,
	}, pipeline.Config{MaxConcurrent: cfg.Pipeline.MaxConcurrent}, logger)
	if err != nil {
		_ = a.Publisher.Close()
		return nil, fmt.Errorf("create orchestrator: %w", err)
	}

	return a, nil
}

// Close releases the event publisher. Callers wait for running pipelines
// first so their terminal events are not lost.
func (a *App) Close() error {
	if a.Publisher == nil {
		return nil
	}
	if err := a.Publisher.Close(); err != nil {
		return fmt.Errorf("close event publisher: %w", err)
	}
	return nil
}

// NewMetadataChain builds the metadata lookup chain alone, for callers that
// need bibliographic data without the analysis pipeline.
func NewMetadataChain(cfg config.PaperSourcesConfig, metrics *observability.Metrics, logger zerolog.Logger) *papersources.Chain {
	chain := papersources.NewChain(logger, metrics, metadataSources(cfg, metrics)...)
	logger.Info().Strs("sources", chain.Sources()).Msg("metadata sources configured")
	return chain
}

func metadataSources(cfg config.PaperSourcesConfig, metrics *observability.Metrics) []papersources.Source {
	if cfg.UseMock {
		return []papersources.Source{arxiv.NewMockSource(cfg.MockDelay)}
	}

	var sources []papersources.Source
	if cfg.ArXiv.Enabled {
		sources = append(sources, arxiv.New(arxiv.Config{
			BaseURL:       cfg.ArXiv.BaseURL,
			Timeout:       cfg.ArXiv.Timeout,
			RateLimit:     cfg.ArXiv.RateLimit,
			OnRateLimited: rateLimitedHook(metrics, arxiv.SourceName),
		}))
	}
	if cfg.SemanticScholar.Enabled {
		sources = append(sources, semanticscholar.NewClient(semanticscholar.Config{
			BaseURL:       cfg.SemanticScholar.BaseURL,
			APIKey:        cfg.SemanticScholar.APIKey,
			Timeout:       cfg.SemanticScholar.Timeout,
			RateLimit:     cfg.SemanticScholar.RateLimit,
			OnRateLimited: rateLimitedHook(metrics, semanticscholar.SourceName),
		}, nil))
	}
	return sources
}

func rateLimitedHook(metrics *observability.Metrics, source string) func() {
	if metrics == nil {
		return nil
	}
	return func() { metrics.RecordSourceRateLimited(source) }
}

func breakerConfig(cfg config.CircuitBreakerConfig, metrics *observability.Metrics, logger zerolog.Logger) llm.CircuitBreakerConfig {
	return llm.CircuitBreakerConfig{
		ConsecutiveThreshold: cfg.ConsecutiveThreshold,
		Cooldown:             cfg.Cooldown,
		WindowSize:           cfg.WindowSize,
		OnStateChange: func(name string, from, to llm.CircuitState) {
			if metrics != nil {
				metrics.SetBreakerState(name, int(to))
			}
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}
}

func completerConfig(cfg config.LLMConfig) llm.FactoryConfig {
	return llm.FactoryConfig{
		Provider: cfg.Provider,
		Generation: llm.GenerationConfig{
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
			MaxRetries:  cfg.MaxRetries,
		},
		OpenAI: llm.OpenAIConfig{
			APIKey:  cfg.OpenAI.APIKey,
			Model:   cfg.OpenAI.Model,
			BaseURL: cfg.OpenAI.BaseURL,
		},
		Anthropic: llm.AnthropicConfig{
			APIKey:  cfg.Anthropic.APIKey,
			Model:   cfg.Anthropic.Model,
			BaseURL: cfg.Anthropic.BaseURL,
		},
		Gemini: llm.GeminiConfig{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			BaseURL: cfg.Gemini.BaseURL,
		},
		MockDelay: cfg.MockDelay,
	}
}
