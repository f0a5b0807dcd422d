package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPolicy disables real sleeping and jitter, recording requested delays
func newTestPolicy(cfg Config) (*Policy, *[]time.Duration) {
	p := New(cfg)
	slept := &[]time.Duration{}
	p.sleep = func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
	p.jitter = func(d time.Duration) time.Duration { return 0 }
	return p, slept
}

func TestPolicy_Delay(t *testing.T) {
	p := New(DefaultConfig())

	assert.Equal(t, time.Duration(0), p.Delay(1))
	assert.Equal(t, time.Second, p.Delay(2))
	assert.Equal(t, 2*time.Second, p.Delay(3))
	assert.Equal(t, 4*time.Second, p.Delay(4))
	assert.Equal(t, 32*time.Second, p.Delay(7))

	// Capped at MaxDelay
	assert.Equal(t, 60*time.Second, p.Delay(8))
	assert.Equal(t, 60*time.Second, p.Delay(50))
}

func TestPolicy_Do_FirstAttemptSucceeds(t *testing.T) {
	p, slept := newTestPolicy(DefaultConfig())

	result, attempts, err := p.Do(context.Background(), func(ctx context.Context) (interface{}, error) {
		return "done", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "done", result)
	assert.Equal(t, 1, attempts)
	assert.Empty(t, *slept)
}

func TestPolicy_Do_TransientRetried(t *testing.T) {
	p, slept := newTestPolicy(DefaultConfig())

	calls := 0
	result, attempts, err := p.Do(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, Transient(fmt.Errorf("upstream unavailable"))
		}
		return "recovered", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
}

func TestPolicy_Do_NonTransientFailsFast(t *testing.T) {
	p, slept := newTestPolicy(DefaultConfig())

	boom := errors.New("invalid state")
	calls := 0
	_, attempts, err := p.Do(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
	assert.Empty(t, *slept)
}

func TestPolicy_Do_Exhausted(t *testing.T) {
	p, _ := newTestPolicy(DefaultConfig())

	boom := Transient(errors.New("still down"))
	calls := 0
	_, attempts, err := p.Do(context.Background(), func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, boom
	})

	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, attempts)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, "max_retries_exceeded", exhausted.Code())

	// The chain still exposes the underlying cause
	var transient *TransientError
	assert.True(t, errors.As(err, &transient))
}

func TestPolicy_Do_ContextCancelledDuringBackoff(t *testing.T) {
	p := New(DefaultConfig())
	p.jitter = func(d time.Duration) time.Duration { return 0 }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	_, attempts, err := p.Do(ctx, func(ctx context.Context) (interface{}, error) {
		calls++
		return nil, Transient(errors.New("down"))
	})

	// The first attempt runs, then the backoff observes the cancellation
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsTransient(t *testing.T) {
	assert.False(t, IsTransient(nil))
	assert.False(t, IsTransient(errors.New("plain")))

	assert.True(t, IsTransient(Transient(errors.New("wrapped"))))
	assert.True(t, IsTransient(fmt.Errorf("outer: %w", Transient(errors.New("inner")))))
	assert.True(t, IsTransient(context.DeadlineExceeded))
	assert.False(t, IsTransient(context.Canceled))

	var netErr net.Error = &net.DNSError{IsTimeout: true}
	assert.True(t, IsTransient(netErr))
	assert.False(t, IsTransient(&net.DNSError{}))
}

func TestTransient_NilPassthrough(t *testing.T) {
	assert.Nil(t, Transient(nil))
}

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()
	assert.Equal(t, 3, cfg.MaxAttempts)
	assert.Equal(t, time.Second, cfg.InitialDelay)
	assert.Equal(t, 2.0, cfg.Base)
	assert.Equal(t, 60*time.Second, cfg.MaxDelay)
}
