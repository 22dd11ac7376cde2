// Package pdf turns arXiv identifiers into plain text.
//
// TextSource downloads the paper PDF and extracts its text. When the PDF
// cannot be fetched or parsed it falls back to the arXiv HTML rendering,
// and when that fails too it yields a diagnostic string so that analysis
// can proceed on the abstract alone.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Sentinel errors for download operations.
var (
	// ErrNotPDF is returned when the response Content-Type is not application/pdf.
	ErrNotPDF = errors.New("pdf: response is not a PDF")
	// ErrTooLarge is returned when the body exceeds the maximum allowed size.
	ErrTooLarge = errors.New("pdf: file exceeds maximum size")
	// ErrDownloadFailed is returned for network and HTTP errors.
	ErrDownloadFailed = errors.New("pdf: download failed")
	// ErrSSRF is returned when the URL resolves to a private network address.
	ErrSSRF = errors.New("pdf: request to private network denied")
)

// DefaultUserAgent is sent with every download.
const DefaultUserAgent = "ResearchPaperAssistant/1.0"

// Config holds downloader configuration.
type Config struct {
	// Timeout is the HTTP request timeout. Default: 60 seconds.
	Timeout time.Duration
	// MaxSize is the maximum body size in bytes. Default: 50MB.
	MaxSize int64
	// UserAgent is the User-Agent header. Default: DefaultUserAgent.
	UserAgent string
	// AllowPrivateNetworks disables the private-address checks.
	// Only tests running against httptest servers set this.
	AllowPrivateNetworks bool
}

// Downloader fetches documents over HTTP with size and address limits.
type Downloader struct {
	client               *http.Client
	maxSize              int64
	userAgent            string
	allowPrivateNetworks bool
}

// NewDownloader creates a new Downloader with the given configuration.
func NewDownloader(cfg Config) *Downloader {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxSize == 0 {
		cfg.MaxSize = 50 * 1024 * 1024
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	d := &Downloader{
		maxSize:              cfg.MaxSize,
		userAgent:            cfg.UserAgent,
		allowPrivateNetworks: cfg.AllowPrivateNetworks,
	}

	d.client = &http.Client{
		Timeout: cfg.Timeout,
		// Redirect targets are checked too: arxiv.org redirects PDF
		// requests to its mirrors.
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("%w: too many redirects", ErrDownloadFailed)
			}
			if !d.allowPrivateNetworks {
				return validateURLNotPrivate(req.URL.String())
			}
			return nil
		},
	}

	return d
}

// DownloadPDF fetches a PDF.
// Returns ErrNotPDF if Content-Type is not application/pdf, ErrTooLarge if
// the body exceeds MaxSize and ErrDownloadFailed for non-2xx responses.
func (d *Downloader) DownloadPDF(ctx context.Context, rawURL string) ([]byte, error) {
	return d.download(ctx, rawURL, "application/pdf, */*;q=0.8", "application/pdf")
}

// DownloadHTML fetches an HTML page.
func (d *Downloader) DownloadHTML(ctx context.Context, rawURL string) ([]byte, error) {
	return d.download(ctx, rawURL, "text/html, application/xhtml+xml;q=0.9", "html")
}

func (d *Downloader) download(ctx context.Context, rawURL, accept, wantType string) ([]byte, error) {
	if !d.allowPrivateNetworks {
		if err := validateURLNotPrivate(rawURL); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid URL: %w", ErrDownloadFailed, err)
	}
	req.Header.Set("User-Agent", d.userAgent)
	req.Header.Set("Accept", accept)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrDownloadFailed, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), wantType) {
		if wantType == "application/pdf" {
			return nil, fmt.Errorf("%w: Content-Type is %q", ErrNotPDF, contentType)
		}
		return nil, fmt.Errorf("%w: unexpected Content-Type %q", ErrDownloadFailed, contentType)
	}

	// One extra byte detects oversized bodies.
	content, err := io.ReadAll(io.LimitReader(resp.Body, d.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrDownloadFailed, err)
	}
	if int64(len(content)) > d.maxSize {
		return nil, fmt.Errorf("%w: exceeded %d bytes", ErrTooLarge, d.maxSize)
	}

	return content, nil
}

// isPrivateIP reports whether ip is loopback, link-local or in a private range.
func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsUnspecified()
}

// validateURLNotPrivate resolves the hostname and rejects private IPs.
func validateURLNotPrivate(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSSRF, err)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return fmt.Errorf("%w: scheme %q is not allowed", ErrSSRF, parsed.Scheme)
	}

	host := parsed.Hostname()
	ips, err := net.LookupHost(host)
	if err != nil {
		return fmt.Errorf("%w: DNS lookup failed for %s: %w", ErrDownloadFailed, host, err)
	}
	for _, ipStr := range ips {
		if ip := net.ParseIP(ipStr); ip != nil && isPrivateIP(ip) {
			return fmt.Errorf("%w: %s resolves to private address %s", ErrSSRF, host, ipStr)
		}
	}
	return nil
}
