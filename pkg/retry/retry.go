// Package retry wraps handler execution in bounded exponential backoff.
// Only errors classified as transient (network, timeout) are retried;
// everything else propagates on the first attempt. The attempt counter,
// delay computation, and classification are explicit so the policy can be
// tested without real handlers.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"time"
)

// Config controls the backoff schedule
type Config struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Base         float64
	MaxDelay     time.Duration
}

// DefaultConfig returns the standard schedule
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: time.Second,
		Base:         2,
		MaxDelay:     60 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = time.Second
	}
	if c.Base <= 1 {
		c.Base = 2
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 60 * time.Second
	}
	return c
}

// TransientError marks a failure as retryable. Handlers wrap network and
// upstream-availability errors with Transient to opt into retries.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient execution error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Code returns the machine-readable reason code
func (e *TransientError) Code() string {
	return "transient_execution_error"
}

// Transient wraps an error as retryable
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether an error should be retried: explicit
// TransientError wrappers, deadline expiry, and network timeouts qualify.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}

// ExhaustedError is the terminal error after all attempts failed
type ExhaustedError struct {
	Attempts int
	LastErr  error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d attempts failed, last error: %v", e.Attempts, e.LastErr)
}

func (e *ExhaustedError) Unwrap() error {
	return e.LastErr
}

// Code returns the machine-readable reason code
func (e *ExhaustedError) Code() string {
	return "max_retries_exceeded"
}

// Policy executes functions under the configured schedule
type Policy struct {
	cfg Config

	// sleep is replaceable in tests
	sleep func(ctx context.Context, d time.Duration) error
	// jitter returns a uniform value in [0, d)
	jitter func(d time.Duration) time.Duration
}

// New creates a retry policy
func New(cfg Config) *Policy {
	return &Policy{
		cfg:    cfg.withDefaults(),
		sleep:  sleepCtx,
		jitter: uniformJitter,
	}
}

// Delay returns the base delay before attempt n (1-based, no jitter):
// min(MaxDelay, InitialDelay * Base^(n-2)). Attempt 1 has no delay, so the
// first retry waits exactly InitialDelay.
func (p *Policy) Delay(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	d := time.Duration(float64(p.cfg.InitialDelay) * math.Pow(p.cfg.Base, float64(attempt-2)))
	if d > p.cfg.MaxDelay || d <= 0 {
		d = p.cfg.MaxDelay
	}
	return d
}

// Do runs fn up to MaxAttempts times, sleeping the jittered delay between
// attempts. It returns the result, the number of attempts consumed, and the
// final error: nil on success, the original error for non-transient
// failures, or an ExhaustedError once attempts run out.
func (p *Policy) Do(ctx context.Context, fn func(ctx context.Context) (interface{}, error)) (interface{}, int, error) {
	var lastErr error

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := p.Delay(attempt)
			if err := p.sleep(ctx, delay+p.jitter(delay)); err != nil {
				return nil, attempt - 1, err
			}
		}

		result, err := fn(ctx)
		if err == nil {
			return result, attempt, nil
		}

		if !IsTransient(err) {
			return nil, attempt, err
		}
		lastErr = err
	}

	return nil, p.cfg.MaxAttempts, &ExhaustedError{Attempts: p.cfg.MaxAttempts, LastErr: lastErr}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func uniformJitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(d)))
}
