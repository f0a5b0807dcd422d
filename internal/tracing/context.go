// Package tracing propagates invocation correlation identifiers through
// context. A correlation ID ties together the log lines, audit records,
// and retries of a single logical request across tools.
package tracing

import (
	"context"

	"github.com/google/uuid"
)

// ContextKey is the type for context keys
type ContextKey string

const (
	// CorrelationIDKey is the context key for the correlation ID
	CorrelationIDKey ContextKey = "correlation_id"
	// CallerIDKey is the context key for the caller identity
	CallerIDKey ContextKey = "caller_id"
)

// NewCorrelationID generates a new correlation ID
func NewCorrelationID() string {
	return uuid.New().String()
}

// WithCorrelationID adds a correlation ID to the context
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, id)
}

// CorrelationIDFrom returns the correlation ID from the context, or empty
func CorrelationIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return id
	}
	return ""
}

// WithCallerID adds a caller identity to the context
func WithCallerID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CallerIDKey, id)
}

// CallerIDFrom returns the caller identity from the context, or empty
func CallerIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(CallerIDKey).(string); ok {
		return id
	}
	return ""
}

// EnsureCorrelationID returns the context's correlation ID, generating and
// attaching one when missing.
func EnsureCorrelationID(ctx context.Context) (context.Context, string) {
	if id := CorrelationIDFrom(ctx); id != "" {
		return ctx, id
	}
	id := NewCorrelationID()
	return WithCorrelationID(ctx, id), id
}
