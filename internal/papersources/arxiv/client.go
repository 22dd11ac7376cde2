// Package arxiv resolves paper metadata through the arXiv export API.
package arxiv

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/helixir/paper-analysis-service/internal/domain"
	"github.com/helixir/paper-analysis-service/internal/papersources"
)

const (
	// DefaultBaseURL is the default arXiv API base URL.
	DefaultBaseURL = "https://export.arxiv.org/api"

	// DefaultRateLimit is one request every three seconds.
	DefaultRateLimit = 1.0 / 3.0

	// DefaultBurstSize is the default burst size for rate limiting.
	DefaultBurstSize = 3

	// DefaultTimeout is the default request timeout.
	DefaultTimeout = 30 * time.Second

	// SourceName is the label used for this source in logs and metrics.
	SourceName = "arxiv"

	maxFeedBytes = 10 << 20
)

// Config holds configuration for the arXiv client.
type Config struct {
	// BaseURL is the arXiv API base URL.
	BaseURL string

	// Timeout is the request timeout.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// OnRateLimited is invoked when arXiv answers 429.
	OnRateLimited func()
}

func (c *Config) applyDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RateLimit == 0 {
		c.RateLimit = DefaultRateLimit
	}
	if c.BurstSize == 0 {
		c.BurstSize = DefaultBurstSize
	}
}

// Client looks papers up by identifier in the arXiv Atom API.
type Client struct {
	config     Config
	httpClient *papersources.HTTPClient
	parser     *gofeed.Parser
}

var _ papersources.Source = (*Client)(nil)

// New creates a new arXiv client with the given configuration.
func New(cfg Config) *Client {
	cfg.applyDefaults()

	httpClient := papersources.NewHTTPClient(papersources.HTTPClientConfig{
		Timeout:       cfg.Timeout,
		RateLimit:     cfg.RateLimit,
		BurstSize:     cfg.BurstSize,
		OnRateLimited: cfg.OnRateLimited,
	})

	return NewWithHTTPClient(cfg, httpClient)
}

// NewWithHTTPClient creates a new arXiv client with a custom HTTP client.
func NewWithHTTPClient(cfg Config, httpClient *papersources.HTTPClient) *Client {
	cfg.applyDefaults()

	return &Client{
		config:     cfg,
		httpClient: httpClient,
		parser:     gofeed.NewParser(),
	}
}

// Name returns the source label.
func (c *Client) Name() string {
	return SourceName
}

// GetByID retrieves the paper registered under id.
func (c *Client) GetByID(ctx context.Context, id domain.PaperID) (*domain.Paper, error) {
	queryURL, err := c.buildQueryURL(id)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/atom+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		return nil, domain.NewExternalAPIError("arXiv", resp.StatusCode, string(body), nil)
	}

	feed, err := c.parser.Parse(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("decoding feed: %w", err)
	}

	for _, item := range feed.Items {
		if isErrorEntry(item) {
			return nil, domain.NewNotFoundError("paper", id.String())
		}
		if paper := itemToPaper(id, item); paper != nil {
			return paper, nil
		}
	}

	return nil, domain.NewNotFoundError("paper", id.String())
}

func (c *Client) buildQueryURL(id domain.PaperID) (string, error) {
	baseURL, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing base URL: %w", err)
	}

	baseURL.Path = strings.TrimRight(baseURL.Path, "/") + "/query"
	query := url.Values{}
	query.Set("id_list", id.String())
	query.Set("max_results", "1")
	baseURL.RawQuery = query.Encode()

	return baseURL.String(), nil
}

// isErrorEntry reports whether item is the pseudo-entry arXiv returns for a
// malformed or unknown id_list.
func isErrorEntry(item *gofeed.Item) bool {
	return strings.Contains(item.GUID, "arxiv.org/api/errors") ||
		strings.EqualFold(strings.TrimSpace(item.Title), "error")
}

// itemToPaper converts an Atom entry into a Paper. Entries without a title
// are skipped.
func itemToPaper(id domain.PaperID, item *gofeed.Item) *domain.Paper {
	title := normalizeWhitespace(item.Title)
	if title == "" {
		return nil
	}

	names := make([]string, 0, len(item.Authors))
	for _, a := range item.Authors {
		if a == nil {
			continue
		}
		if name := normalizeWhitespace(a.Name); name != "" {
			names = append(names, name)
		}
	}

	var published *time.Time
	if item.PublishedParsed != nil {
		t := item.PublishedParsed.UTC()
		published = &t
	}

	return &domain.Paper{
		ID:          id,
		Title:       title,
		Authors:     strings.Join(names, ", "),
		Abstract:    normalizeWhitespace(item.Description),
		PublishedAt: published,
	}
}

// normalizeWhitespace trims and collapses runs of whitespace, including the
// hard line breaks arXiv puts inside titles and abstracts.
func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
