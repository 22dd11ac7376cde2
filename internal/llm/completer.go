// Package llm turns paper text into student-oriented summaries, difficulty
// ratings and answers using a large language model.
//
// A Completer is a single provider (OpenAI, Anthropic, Gemini or the offline
// mock). Engine builds the prompts, applies the input limits and converts
// provider failures into the fallbacks the analysis pipeline expects.
//
// Example usage:
//
//	completer, err := llm.NewCompleter(ctx, factoryCfg)
//	engine := llm.NewEngine(completer, metrics, logger)
//	summary, _ := engine.SummarizeAbstract(ctx, paper.Abstract)
package llm

import "context"

// Operation names used for prompts, logs and metrics.
const (
	OperationSummarizeAbstract  = "summarize_abstract"
	OperationSummarizeFull      = "summarize_full"
	OperationEstimateDifficulty = "estimate_difficulty"
	OperationAnswerQuestion     = "answer_question"
)

// Request is a single-turn completion request.
type Request struct {
	// Operation identifies the caller; providers ignore it.
	Operation string
	// Prompt is the user message.
	Prompt string
	// MaxTokens overrides the provider's output token limit when positive.
	MaxTokens int
}

// Completer sends a prompt to a language model and returns its text reply.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)

	// Provider returns the provider name, e.g. "openai".
	Provider() string

	// Model returns the model identifier being used.
	Model() string
}
