package semanticscholar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/helixir/paper-analysis-service/internal/domain"
	"github.com/helixir/paper-analysis-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default base URL for the Semantic Scholar Graph API.
	DefaultBaseURL = "https://api.semanticscholar.org/graph/v1"

	// DefaultRateLimit is the default rate limit. Unauthenticated clients
	// share a pool of 100 requests per 5 minutes.
	DefaultRateLimit = 1.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 5

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// SourceName is the label used for this source in logs and metrics.
	SourceName = "semantic_scholar"

	apiKeyHeader = "x-api-key"
	paperFields  = "title,abstract,authors,year,publicationDate"
)

// Config contains configuration options for the Semantic Scholar client.
type Config struct {
	// BaseURL defaults to DefaultBaseURL.
	BaseURL string

	// APIKey is the optional API key for authenticated requests.
	APIKey string

	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration

	// RateLimit defaults to DefaultRateLimit.
	RateLimit float64

	// BurstSize defaults to DefaultBurstSize.
	BurstSize int

	// MaxRetries is passed to the HTTP client. Negative disables retries.
	MaxRetries int

	// OnRateLimited is invoked when the API answers 429.
	OnRateLimited func()
}

// Client looks arXiv papers up in Semantic Scholar.
type Client struct {
	httpClient *papersources.HTTPClient
	config     Config
}

var _ papersources.Source = (*Client)(nil)

// NewClient creates a new Semantic Scholar client.
// If httpClient is nil, one is built from cfg.
func NewClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = DefaultBurstSize
	}

	if httpClient == nil {
		httpClient = papersources.NewHTTPClient(papersources.HTTPClientConfig{
			Timeout:       cfg.Timeout,
			RateLimit:     cfg.RateLimit,
			BurstSize:     cfg.BurstSize,
			MaxRetries:    cfg.MaxRetries,
			APIKey:        cfg.APIKey,
			APIKeyHeader:  apiKeyHeader,
			OnRateLimited: cfg.OnRateLimited,
		})
	}

	return &Client{
		httpClient: httpClient,
		config:     cfg,
	}
}

// Name returns the source label.
func (c *Client) Name() string {
	return SourceName
}

// GetByID retrieves the Semantic Scholar record for an arXiv identifier.
func (c *Client) GetByID(ctx context.Context, id domain.PaperID) (*domain.Paper, error) {
	paperURL := fmt.Sprintf("%s/paper/%s?fields=%s",
		strings.TrimRight(c.config.BaseURL, "/"),
		url.PathEscape("arXiv:"+id.String()),
		paperFields,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, paperURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NewNotFoundError("paper", id.String())
	}
	if err := handleErrorResponse(resp); err != nil {
		return nil, err
	}

	var result PaperResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, 10<<20)).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	paper := convertToPaper(id, result)
	if paper == nil {
		return nil, domain.NewNotFoundError("paper", id.String())
	}
	return paper, nil
}

// handleErrorResponse turns a non-2xx response into an ExternalAPIError.
func handleErrorResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.NewExternalAPIError("Semantic Scholar", resp.StatusCode, "failed to read error response", err)
	}

	message := string(body)
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		switch {
		case errResp.Error != "":
			message = errResp.Error
		case errResp.Message != "":
			message = errResp.Message
		}
	}
	return domain.NewExternalAPIError("Semantic Scholar", resp.StatusCode, message, nil)
}

// convertToPaper maps an API record to a Paper. Records without a title
// yield nil.
func convertToPaper(id domain.PaperID, result PaperResult) *domain.Paper {
	title := strings.TrimSpace(result.Title)
	if title == "" {
		return nil
	}

	names := make([]string, 0, len(result.Authors))
	for _, a := range result.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			names = append(names, name)
		}
	}

	return &domain.Paper{
		ID:          id,
		Title:       title,
		Authors:     strings.Join(names, ", "),
		Abstract:    strings.TrimSpace(result.Abstract),
		PublishedAt: publicationDate(result),
	}
}

// publicationDate prefers the full date and falls back to January 1st of
// the publication year.
func publicationDate(result PaperResult) *time.Time {
	if result.PublicationDate != "" {
		if t, err := time.Parse("2006-01-02", result.PublicationDate); err == nil {
			return &t
		}
	}
	if result.Year > 0 {
		t := time.Date(result.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return &t
	}
	return nil
}
