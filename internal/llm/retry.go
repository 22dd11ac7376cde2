package llm

import (
	"context"
	"fmt"
	"time"
)

// withRetry calls fn until it succeeds, returns a non-transient error or
// maxRetries retries are spent. The wait doubles after every attempt.
func withRetry(ctx context.Context, provider string, maxRetries int, baseDelay time.Duration, fn func() (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := baseDelay * time.Duration(1<<(attempt-1))
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return "", fmt.Errorf("%s: context cancelled during retry wait: %w", provider, ctx.Err())
			case <-timer.C:
			}
		}

		text, err := fn()
		if err == nil {
			return text, nil
		}
		if !isTransientError(err) {
			return "", err
		}
		lastErr = err
	}

	return "", fmt.Errorf("%s: exhausted %d retries: %w", provider, maxRetries, lastErr)
}
