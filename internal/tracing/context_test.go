package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCorrelationIDRoundTrip(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "corr-1")
	assert.Equal(t, "corr-1", CorrelationIDFrom(ctx))

	assert.Empty(t, CorrelationIDFrom(context.Background()))
}

func TestCallerIDRoundTrip(t *testing.T) {
	ctx := WithCallerID(context.Background(), "agent-1")
	assert.Equal(t, "agent-1", CallerIDFrom(ctx))

	assert.Empty(t, CallerIDFrom(context.Background()))
}

func TestEnsureCorrelationID(t *testing.T) {
	ctx, id := EnsureCorrelationID(context.Background())
	assert.NotEmpty(t, id)
	assert.Equal(t, id, CorrelationIDFrom(ctx))

	// An existing ID is preserved
	ctx2, id2 := EnsureCorrelationID(ctx)
	assert.Equal(t, id, id2)
	assert.Equal(t, ctx, ctx2)
}

func TestNewCorrelationIDUnique(t *testing.T) {
	assert.NotEqual(t, NewCorrelationID(), NewCorrelationID())
}
