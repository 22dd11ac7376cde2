// Package httpserver provides the HTTP REST API for the paper analysis service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/helixir/paper-analysis-service/internal/domain"
	"github.com/helixir/paper-analysis-service/internal/llm"
	"github.com/helixir/paper-analysis-service/internal/store"
)

// Analyzer is the job and query surface of the pipeline orchestrator.
type Analyzer interface {
	Submit(ctx context.Context, rawID string) (string, error)
	Job(token string) (domain.Job, bool)
	GetAnalysis(ctx context.Context, id domain.PaperID) (*domain.Analysis, bool)
	Paper(ctx context.Context, id domain.PaperID) (*domain.Paper, bool)
}

// TextExtractor returns the full text of a paper.
type TextExtractor interface {
	Extract(ctx context.Context, id domain.PaperID) (string, error)
}

// MetadataFetcher resolves paper metadata. A nil paper means no source has it.
type MetadataFetcher interface {
	Fetch(ctx context.Context, id domain.PaperID) (*domain.Paper, error)
}

// QuestionAnswerer answers questions about a paper's stored content.
type QuestionAnswerer interface {
	Answer(ctx context.Context, paperContext, question string) string
}

// Cache exposes the result store to the diagnostic endpoints.
type Cache interface {
	PutPaper(ctx context.Context, p *domain.Paper) error
	Stats() store.Stats
	Clear()
}

// MarkdownRenderer converts summary Markdown to HTML.
type MarkdownRenderer interface {
	ToHTML(source string) (string, error)
}

// BreakerReporter exposes circuit breaker state.
type BreakerReporter interface {
	Snapshots() map[string]llm.BreakerSnapshot
}

// Deps are the collaborators the HTTP handlers call.
type Deps struct {
	Analyzer Analyzer
	Text     TextExtractor
	Metadata MetadataFetcher
	Answerer QuestionAnswerer
	Cache    Cache

	// Renderer is optional; HTML summaries are omitted when nil.
	Renderer MarkdownRenderer
	// Breakers is optional; the breaker endpoint reports none when nil.
	Breakers BreakerReporter
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// ApplicationName is reported by the health endpoint.
	ApplicationName string

	// StreamPollInterval is how often progress streams poll the job registry.
	StreamPollInterval time.Duration
	// StreamMaxDuration caps how long a progress stream stays open.
	StreamMaxDuration time.Duration
}

// Server is the HTTP REST API server.
type Server struct {
	router     chi.Router
	httpServer *http.Server
	deps       Deps
	validate   *validator.Validate
	logger     zerolog.Logger

	appName      string
	pollInterval time.Duration
	maxStream    time.Duration
	now          func() time.Time
}

// NewServer creates a new HTTP server with all dependencies.
func NewServer(cfg Config, deps Deps, logger zerolog.Logger) *Server {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(jsonFieldName)

	s := &Server{
		deps:         deps,
		validate:     validate,
		logger:       logger.With().Str("component", "http-server").Logger(),
		appName:      cfg.ApplicationName,
		pollInterval: cfg.StreamPollInterval,
		maxStream:    cfg.StreamMaxDuration,
		now:          time.Now,
	}
	if s.appName == "" {
		s.appName = "paper-analysis-service"
	}
	if s.pollInterval <= 0 {
		s.pollInterval = defaultStreamPollInterval
	}
	if s.maxStream <= 0 {
		s.maxStream = defaultStreamMaxDuration
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)
	r.Use(s.accessLogMiddleware)
	r.Use(corsMiddleware)
	r.Use(jsonContentTypeMiddleware)

	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.applicationHealth)
		r.Get("/circuitbreaker", s.circuitBreakers)

		r.Route("/papers", func(r chi.Router) {
			r.Post("/analyze", s.analyzePaper)
			r.Get("/jobs/{jobID}", s.getJobStatus)
			r.Get("/jobs/{jobID}/stream", s.streamProgress)
			r.Get("/{arxivID}", s.getPaperAnalysis)
			r.Get("/{arxivID}/raw-text", s.getRawText)
			r.Post("/{arxivID}/ask", s.askQuestion)
		})

		r.Route("/test", func(r chi.Router) {
			r.Get("/pdf-stats/extract-stats/{arxivID}", s.extractStats)
			r.Get("/pdf/extract/{arxivID}", s.extractText)
			r.Get("/{arxivID}/exists", s.checkPaperExists)
			r.Get("/stats", s.storeStats)
			r.Delete("/cache", s.clearCache)
		})
	})

	return r
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessHandler reports ready once every collaborator is wired.
func (s *Server) readinessHandler(w http.ResponseWriter, _ *http.Request) {
	if s.deps.Analyzer == nil || s.deps.Text == nil || s.deps.Cache == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// applicationHealth handles GET /api/v1/health.
func (s *Server) applicationHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "UP",
		Application: s.appName,
		Timestamp:   s.now(),
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort; headers already sent.
		_ = err
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error": message,
	})
}
