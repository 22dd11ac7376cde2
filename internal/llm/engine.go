package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/helixir/paper-analysis-service/internal/domain"
	"github.com/helixir/paper-analysis-service/internal/observability"
)

// Input limits, in characters.
const (
	maxFullTextChars   = 15000
	maxExcerptChars    = 5000
	maxQAContextChars  = 10000
	readingWordsPerMin = 150
)

// SummaryErrorPrefix starts the summary stored when the model call fails.
const SummaryErrorPrefix = "Error generating summary: "

// AnswerUnavailable is returned by Answer when the model call fails.
const AnswerUnavailable = "I'm sorry, I couldn't generate an answer to your question. Please try again."

const abstractPromptTemplate = `You are an AI assistant helping students understand research papers.

Summarize the following research paper abstract in a way that's easy for undergraduate students to understand.
Use simple language, explain technical terms, and highlight the main contributions.
Keep it under 200 words.

Abstract:
%s

Student-Friendly Summary:`

const fullPromptTemplate = `You are an AI assistant helping students understand research papers.

Create a comprehensive summary of this research paper for students.
Structure it with:
1. Main Idea (1-2 sentences)
2. Key Contributions (bullet points)
3. Methodology (simplified explanation)
4. Results (what they found)
5. Why It Matters (real-world impact)

Keep the language accessible to undergraduate students.

Paper Text:
%s

Structured Summary:`

const difficultyPromptTemplate = `Analyze the difficulty level of this research paper for students.
Consider: mathematical complexity, required background knowledge, technical jargon, and concept density.

Respond with ONLY ONE of these levels:
- BEGINNER (undergraduate can understand with basic knowledge)
- INTERMEDIATE (requires some domain knowledge)
- ADVANCED (requires significant expertise)
- EXPERT (cutting-edge research level)

Paper excerpt:
%s

Difficulty Level:`

const answerPromptTemplate = `You are an AI assistant helping students understand research papers.
Based on the paper content below, answer the student's question clearly and concisely.
If the answer is not in the paper, say so politely.
Use simple language and explain technical terms.

Paper Content:
%s

Student's Question: %s

Answer:`

// Engine produces the language-model parts of a paper analysis.
// Model failures never surface as errors: summaries degrade to a message
// starting with SummaryErrorPrefix and difficulty falls back to a
// length-based estimate.
type Engine struct {
	completer Completer
	metrics   *observability.Metrics
	logger    zerolog.Logger
}

// NewEngine creates an Engine over completer. metrics may be nil.
func NewEngine(completer Completer, metrics *observability.Metrics, logger zerolog.Logger) *Engine {
	return &Engine{
		completer: completer,
		metrics:   metrics,
		logger: logger.With().
			Str("component", "llm_engine").
			Str("model", completer.Model()).
			Logger(),
	}
}

// Provider returns the name of the underlying provider.
func (e *Engine) Provider() string {
	return e.completer.Provider()
}

// SummarizeAbstract explains the abstract for undergraduate readers.
func (e *Engine) SummarizeAbstract(ctx context.Context, abstract string) (string, error) {
	summary, err := e.complete(ctx, OperationSummarizeAbstract, fmt.Sprintf(abstractPromptTemplate, abstract))
	if err != nil {
		return SummaryErrorPrefix + err.Error(), nil
	}
	return summary, nil
}

// SummarizeFull produces a structured summary of the paper text.
func (e *Engine) SummarizeFull(ctx context.Context, text string) (string, error) {
	prompt := fmt.Sprintf(fullPromptTemplate, truncate(text, maxFullTextChars))
	summary, err := e.complete(ctx, OperationSummarizeFull, prompt)
	if err != nil {
		return SummaryErrorPrefix + err.Error(), nil
	}
	return summary, nil
}

// EstimateDifficulty asks the model for a difficulty level. Replies that
// name no level, and failed calls, fall back to DifficultyFromLength.
func (e *Engine) EstimateDifficulty(ctx context.Context, text string) (domain.Difficulty, error) {
	prompt := fmt.Sprintf(difficultyPromptTemplate, truncate(text, maxExcerptChars))
	reply, err := e.complete(ctx, OperationEstimateDifficulty, prompt)
	if err == nil {
		if level, ok := ParseDifficulty(reply); ok {
			return level, nil
		}
		e.logger.Warn().Str("reply", truncate(reply, 200)).Msg("unrecognized difficulty reply, using length heuristic")
	}
	return DifficultyFromLength(text), nil
}

// EstimateReadingMinutes returns the reading time of text.
func (e *Engine) EstimateReadingMinutes(text string) int {
	return ReadingMinutes(text)
}

// Answer answers a question about a paper given its stored content.
func (e *Engine) Answer(ctx context.Context, paperContext, question string) string {
	prompt := fmt.Sprintf(answerPromptTemplate, truncate(paperContext, maxQAContextChars), question)
	answer, err := e.complete(ctx, OperationAnswerQuestion, prompt)
	if err != nil {
		return AnswerUnavailable
	}
	return answer
}

func (e *Engine) complete(ctx context.Context, operation, prompt string) (string, error) {
	logger := observability.WithLLMContext(observability.LoggerFromContext(ctx, e.logger), e.completer.Provider(), operation)

	start := time.Now()
	text, err := e.completer.Complete(ctx, Request{Operation: operation, Prompt: prompt})
	elapsed := time.Since(start)

	if err != nil {
		if e.metrics != nil {
			e.metrics.RecordLLMRequestFailed(operation, e.completer.Provider(), elapsed.Seconds())
		}
		logger.Error().Err(err).Dur("duration", elapsed).Msg("language model call failed")
		return "", err
	}

	if e.metrics != nil {
		e.metrics.RecordLLMRequest(operation, e.completer.Provider(), elapsed.Seconds())
	}
	logger.Debug().Dur("duration", elapsed).Int("reply_chars", len(text)).Msg("language model call completed")
	return text, nil
}

// ParseDifficulty finds a difficulty level named in a model reply.
// Levels are checked from easiest to hardest.
func ParseDifficulty(reply string) (domain.Difficulty, bool) {
	upper := strings.ToUpper(reply)
	for _, level := range domain.AllDifficulties() {
		if strings.Contains(upper, string(level)) {
			return level, true
		}
	}
	return "", false
}

// DifficultyFromLength rates text by its length in characters.
func DifficultyFromLength(text string) domain.Difficulty {
	switch n := len(text); {
	case n < 10000:
		return domain.DifficultyBeginner
	case n < 20000:
		return domain.DifficultyIntermediate
	case n < 40000:
		return domain.DifficultyAdvanced
	default:
		return domain.DifficultyExpert
	}
}

// ReadingMinutes estimates reading time at 150 words per minute, with a
// five minute minimum, rounded up to a multiple of five.
func ReadingMinutes(text string) int {
	minutes := max(5, len(strings.Fields(text))/readingWordsPerMin)
	return ((minutes + 4) / 5) * 5
}

// truncate cuts s to limit runes and marks the cut with "...".
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
