package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Provider names accepted by NewCompleter.
const (
	ProviderMock      = "mock"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// GenerationConfig holds the settings shared by all providers.
type GenerationConfig struct {
	// Temperature is the sampling temperature.
	Temperature float64
	// MaxTokens is the default output token limit. Default: 2048.
	MaxTokens int
	// Timeout bounds a single API call. Default: 60 seconds.
	Timeout time.Duration
	// MaxRetries is the number of retries for transient errors.
	MaxRetries int
}

func (g *GenerationConfig) applyDefaults() {
	if g.MaxTokens <= 0 {
		g.MaxTokens = 2048
	}
	if g.Timeout <= 0 {
		g.Timeout = 60 * time.Second
	}
	if g.MaxRetries < 0 {
		g.MaxRetries = 0
	}
}

// FactoryConfig holds the parameters needed to create a Completer.
// It is defined here so that llm does not import the config package.
type FactoryConfig struct {
	// Provider is one of the Provider* constants.
	Provider   string
	Generation GenerationConfig
	OpenAI     OpenAIConfig
	Anthropic  AnthropicConfig
	Gemini     GeminiConfig
	// MockDelay simulates model latency for the mock provider.
	MockDelay time.Duration
}

// NewCompleter creates the Completer selected by cfg.Provider.
func NewCompleter(ctx context.Context, cfg FactoryConfig) (Completer, error) {
	switch cfg.Provider {
	case ProviderMock:
		return NewMockCompleter(cfg.MockDelay), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.OpenAI, cfg.Generation), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(cfg.Anthropic, cfg.Generation), nil
	case ProviderGemini:
		provider, err := NewGeminiProvider(ctx, cfg.Gemini, cfg.Generation)
		if err != nil {
			return nil, err
		}
		return provider, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %q", cfg.Provider)
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
