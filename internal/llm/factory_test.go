package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCompleter(t *testing.T) {
	tests := []struct {
		provider string
		wantType any
	}{
		{ProviderMock, &MockCompleter{}},
		{ProviderOpenAI, &OpenAIProvider{}},
		{ProviderAnthropic, &AnthropicProvider{}},
		{ProviderGemini, &GeminiProvider{}},
	}

	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			completer, err := NewCompleter(context.Background(), FactoryConfig{
				Provider:  tt.provider,
				OpenAI:    OpenAIConfig{APIKey: "k"},
				Anthropic: AnthropicConfig{APIKey: "k"},
				Gemini:    GeminiConfig{APIKey: "k"},
			})
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, completer)
			assert.Equal(t, tt.provider, completer.Provider())
		})
	}
}

func TestNewCompleter_Unknown(t *testing.T) {
	for _, provider := range []string{"", "llama"} {
		completer, err := NewCompleter(context.Background(), FactoryConfig{Provider: provider})
		assert.Nil(t, completer)
		assert.ErrorContains(t, err, "unsupported LLM provider")
	}
}
