package logger

import (
	"context"
	"log/slog"
	"time"
)

// ContextKey is the type for context keys used in logging
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"
	OperationKey ContextKey = "operation"

	// Business context keys, following OpenTelemetry semantic conventions
	// with a 'search.' prefix
	QueryKey       ContextKey = "search.query"
	IndexKey       ContextKey = "search.index"
	VariantKindKey ContextKey = "search.variant.kind"
	PipelineStage  ContextKey = "search.pipeline.stage"
	DictGeneration ContextKey = "search.dictionary.generation"
)

// GlobalContext is the global ContextLogger instance
var GlobalContext *ContextLogger

// ContextLogger wraps a slog.Logger to add context-aware logging
type ContextLogger struct {
	logger *slog.Logger
}

// NewContextLogger creates a new ContextLogger wrapping the provided logger
func NewContextLogger(logger *slog.Logger) *ContextLogger {
	return &ContextLogger{logger: logger}
}

// WithContext adds context values to log entries and returns a new logger
func (cl *ContextLogger) WithContext(ctx context.Context) *slog.Logger {
	args := make([]any, 0)

	for _, key := range []ContextKey{RequestIDKey, OperationKey, QueryKey, IndexKey, VariantKindKey, PipelineStage, DictGeneration} {
		if v := ctx.Value(key); v != nil {
			if s, ok := v.(string); ok {
				args = append(args, string(key), s)
			}
		}
	}

	return cl.logger.With(args...)
}

// LogDuration logs an operation completion with duration in milliseconds
func (cl *ContextLogger) LogDuration(ctx context.Context, operation string, durationMs int64) {
	cl.WithContext(ctx).Info("operation completed",
		"operation", operation,
		"duration_ms", durationMs,
	)
}

// LogError logs an operation failure with error details
func (cl *ContextLogger) LogError(ctx context.Context, operation string, err error) {
	cl.WithContext(ctx).Error("operation failed",
		"operation", operation,
		"error", err,
	)
}

// WithContext returns a logger carrying the business context values. Before
// Init runs it falls back to the process default logger.
func WithContext(ctx context.Context) *slog.Logger {
	if GlobalContext != nil {
		return GlobalContext.WithContext(ctx)
	}
	return NewContextLogger(slog.Default()).WithContext(ctx)
}

// Context helper functions for business context

// WithRequestID adds the request ID to context for observability
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithQuery adds the raw query to context for observability
func WithQuery(ctx context.Context, query string) context.Context {
	return context.WithValue(ctx, QueryKey, query)
}

// WithIndex adds the target index name to context for observability
func WithIndex(ctx context.Context, index string) context.Context {
	return context.WithValue(ctx, IndexKey, index)
}

// WithPipelineStage adds the pipeline stage to context for observability
func WithPipelineStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, PipelineStage, stage)
}

// LogDurationTime is a convenience function that takes time.Duration
func (cl *ContextLogger) LogDurationTime(ctx context.Context, operation string, duration time.Duration) {
	cl.LogDuration(ctx, operation, duration.Milliseconds())
}
