package observability

import (
	"context"

	"github.com/rs/zerolog"
)

type contextKey string

const (
	requestIDKey     contextKey = "request_id"
	correlationIDKey contextKey = "correlation_id"
	jobTokenKey      contextKey = "job_id"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithCorrelationID adds a correlation ID to the context.
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

// CorrelationIDFromContext retrieves the correlation ID from context.
// Returns empty string if not present.
func CorrelationIDFromContext(ctx context.Context) string {
	return stringValue(ctx, correlationIDKey)
}

// WithJobToken adds an analysis job token to the context.
func WithJobToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, jobTokenKey, token)
}

// JobTokenFromContext retrieves the job token from context.
// Returns empty string if not present.
func JobTokenFromContext(ctx context.Context) string {
	return stringValue(ctx, jobTokenKey)
}

// LoggerFromContext enriches logger with whatever request and job
// identifiers ctx carries.
func LoggerFromContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	logger = WithRequestContext(logger, RequestIDFromContext(ctx), CorrelationIDFromContext(ctx))
	if token := JobTokenFromContext(ctx); token != "" {
		logger = logger.With().Str("job_id", token).Logger()
	}
	return logger
}

func stringValue(ctx context.Context, key contextKey) string {
	if v := ctx.Value(key); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
