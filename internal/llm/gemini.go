package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	defaultGeminiModel      = "gemini-2.0-flash"
	defaultGeminiRetryDelay = time.Second
)

// GeminiConfig holds the parameters needed to create a Gemini provider.
type GeminiConfig struct {
	// APIKey is the Gemini API key.
	APIKey string
	// Model is the model identifier (e.g., "gemini-2.0-flash").
	Model string
	// BaseURL overrides the API endpoint (empty means default).
	BaseURL string
}

// GeminiProvider implements Completer with the Gemini generateContent API.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int
	maxRetries  int
	retryDelay  time.Duration
}

var _ Completer = (*GeminiProvider)(nil)

// NewGeminiProvider creates a Gemini provider backed by the genai SDK.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig, gen GenerationConfig) (*GeminiProvider, error) {
	gen.applyDefaults()

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  newHTTPClient(gen.Timeout),
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	return &GeminiProvider{
		client:      client,
		model:       model,
		temperature: float32(gen.Temperature),
		maxTokens:   gen.MaxTokens,
		maxRetries:  gen.MaxRetries,
		retryDelay:  defaultGeminiRetryDelay,
	}, nil
}

// Complete sends the prompt as a single user turn.
func (p *GeminiProvider) Complete(ctx context.Context, req Request) (string, error) {
	maxTokens := p.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	genCfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.temperature),
		MaxOutputTokens: int32(maxTokens),
	}

	return withRetry(ctx, "gemini", p.maxRetries, p.retryDelay, func() (string, error) {
		resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(req.Prompt), genCfg)
		if err != nil {
			return "", convertGeminiError(ctx, err)
		}
		text := strings.TrimSpace(resp.Text())
		if text == "" {
			return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
		}
		return text, nil
	})
}

// Provider returns the provider name.
func (p *GeminiProvider) Provider() string {
	return "gemini"
}

// Model returns the model identifier being used.
func (p *GeminiProvider) Model() string {
	return p.model
}

// convertGeminiError maps SDK errors onto APIError so that retries treat
// all providers alike.
func convertGeminiError(ctx context.Context, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			Provider:   "gemini",
			StatusCode: apiErr.Code,
			Message:    apiErr.Message,
			Type:       apiErr.Status,
		}
	}
	if ctx.Err() != nil {
		return fmt.Errorf("gemini: %w", err)
	}
	return &APIError{Provider: "gemini", Message: err.Error(), Type: "network_error"}
}
