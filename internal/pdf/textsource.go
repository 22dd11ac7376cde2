package pdf

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-analysis-service/internal/domain"
	"github.com/helixir/paper-analysis-service/internal/observability"
)

// Default arXiv endpoints.
const (
	DefaultPDFBaseURL  = "https://arxiv.org/pdf/"
	DefaultHTMLBaseURL = "https://arxiv.org/html/"
)

// Extraction methods recorded in metrics.
const (
	MethodPDF      = "pdf"
	MethodHTML     = "html"
	MethodDegraded = "degraded"
)

// UnavailablePrefix starts the text returned when no content could be extracted.
const UnavailablePrefix = "Unable to extract PDF content. Error: "

// TextSourceConfig configures a TextSource.
type TextSourceConfig struct {
	PDFBaseURL  string
	HTMLBaseURL string
	// DisableHTMLFallback skips the HTML rendering lookup.
	DisableHTMLFallback bool
}

// TextSource extracts the full text of arXiv papers.
type TextSource struct {
	downloader *Downloader
	cfg        TextSourceConfig
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

// NewTextSource creates a TextSource. metrics may be nil.
func NewTextSource(downloader *Downloader, cfg TextSourceConfig, metrics *observability.Metrics, logger zerolog.Logger) *TextSource {
	if cfg.PDFBaseURL == "" {
		cfg.PDFBaseURL = DefaultPDFBaseURL
	}
	if cfg.HTMLBaseURL == "" {
		cfg.HTMLBaseURL = DefaultHTMLBaseURL
	}
	return &TextSource{
		downloader: downloader,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger.With().Str("component", "text_source").Logger(),
	}
}

// Extract returns the text of the paper. Failures to obtain the text are
// not errors: the result is then a message starting with UnavailablePrefix.
// Only cancellation of ctx is returned as an error.
func (s *TextSource) Extract(ctx context.Context, id domain.PaperID) (string, error) {
	logger := observability.LoggerFromContext(ctx, s.logger).With().Str("arxiv_id", id.String()).Logger()

	text, pdfErr := s.fromPDF(ctx, id)
	if pdfErr == nil {
		s.record(MethodPDF)
		logger.Info().Int("chars", len(text)).Msg("extracted text from PDF")
		return text, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	logger.Warn().Err(pdfErr).Msg("PDF extraction failed")

	if !s.cfg.DisableHTMLFallback {
		text, htmlErr := s.fromHTML(ctx, id)
		if htmlErr == nil {
			s.record(MethodHTML)
			logger.Info().Int("chars", len(text)).Msg("extracted text from HTML rendering")
			return text, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		logger.Warn().Err(htmlErr).Msg("HTML extraction failed")
	}

	s.record(MethodDegraded)
	return UnavailablePrefix + pdfErr.Error(), nil
}

// IsUnavailable reports whether text is the placeholder Extract returns
// when nothing could be extracted.
func IsUnavailable(text string) bool {
	return strings.HasPrefix(text, UnavailablePrefix)
}

func (s *TextSource) fromPDF(ctx context.Context, id domain.PaperID) (string, error) {
	data, err := s.downloader.DownloadPDF(ctx, s.cfg.PDFBaseURL+id.String()+".pdf")
	if err != nil {
		return "", err
	}
	return ExtractText(data)
}

func (s *TextSource) fromHTML(ctx context.Context, id domain.PaperID) (string, error) {
	pageURL := s.cfg.HTMLBaseURL + id.String()
	page, err := s.downloader.DownloadHTML(ctx, pageURL)
	if err != nil {
		return "", err
	}
	text, err := ExtractArticle(page, pageURL)
	if errors.Is(err, ErrNoText) {
		return "", errors.New("HTML rendering has no readable text")
	}
	return text, err
}

func (s *TextSource) record(method string) {
	if s.metrics != nil {
		s.metrics.RecordTextExtraction(method)
	}
}
