// Package breaker implements the per-tool failure-isolation state machine.
// Each tool gets its own breaker; state for one tool never affects another.
package breaker

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// State of a breaker
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// Config controls the state machine thresholds
type Config struct {
	FailureThreshold int           // consecutive failures before opening
	SuccessThreshold int           // half-open successes before closing
	Timeout          time.Duration // open duration before trial calls
	HalfOpenMaxCalls int           // concurrent trial calls admitted
}

// DefaultConfig returns the standard thresholds
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          120 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

func (c Config) withDefaults() Config {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 5
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 2
	}
	if c.Timeout <= 0 {
		c.Timeout = 120 * time.Second
	}
	if c.HalfOpenMaxCalls <= 0 {
		c.HalfOpenMaxCalls = 1
	}
	return c
}

// OpenError is returned while a breaker rejects calls
type OpenError struct {
	Tool       string
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit open for %s, retry after %s", e.Tool, e.RetryAfter)
}

// Code returns the machine-readable reason code
func (e *OpenError) Code() string {
	return "circuit_open"
}

// Health is a point-in-time snapshot of a breaker
type Health struct {
	Tool                 string    `json:"tool"`
	State                State     `json:"state"`
	ConsecutiveFailures  int       `json:"consecutive_failures"`
	ConsecutiveSuccesses int       `json:"consecutive_successes"`
	OpenedAt             time.Time `json:"opened_at,omitempty"`
}

// Breaker is the state machine for a single tool
type Breaker struct {
	mu sync.Mutex

	tool   string
	cfg    Config
	logger zerolog.Logger
	now    func() time.Time

	state                State
	consecutiveFailures  int
	consecutiveSuccesses int
	openedAt             time.Time
	halfOpenInFlight     int
}

// New creates a breaker in the Closed state
func New(tool string, cfg Config, logger zerolog.Logger) *Breaker {
	return &Breaker{
		tool:   tool,
		cfg:    cfg.withDefaults(),
		logger: logger.With().Str("component", "breaker").Str("tool", tool).Logger(),
		now:    time.Now,
		state:  StateClosed,
	}
}

// Allow decides whether a call may proceed. An Open breaker transitions to
// HalfOpen once its timeout has elapsed; until then every call is rejected
// with the remaining wait. In HalfOpen at most HalfOpenMaxCalls trials run
// concurrently.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil

	case StateOpen:
		elapsed := b.now().Sub(b.openedAt)
		if elapsed < b.cfg.Timeout {
			return &OpenError{Tool: b.tool, RetryAfter: b.cfg.Timeout - elapsed}
		}
		b.transitionLocked(StateHalfOpen)
		b.halfOpenInFlight = 1
		return nil

	case StateHalfOpen:
		if b.halfOpenInFlight >= b.cfg.HalfOpenMaxCalls {
			return &OpenError{Tool: b.tool}
		}
		b.halfOpenInFlight++
		return nil
	}

	return nil
}

// RecordSuccess registers a successful call outcome
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.consecutiveFailures = 0

	case StateHalfOpen:
		if b.halfOpenInFlight > 0 {
			b.halfOpenInFlight--
		}
		b.consecutiveSuccesses++
		if b.consecutiveSuccesses >= b.cfg.SuccessThreshold {
			b.transitionLocked(StateClosed)
		}
	}
}

// RecordFailure registers a failed call outcome. A half-open trial failure
// reopens the breaker immediately and restarts its timeout.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.consecutiveFailures++
		if b.consecutiveFailures >= b.cfg.FailureThreshold {
			b.openLocked()
		}

	case StateHalfOpen:
		if b.halfOpenInFlight > 0 {
			b.halfOpenInFlight--
		}
		b.openLocked()
	}
}

// ForceOpen opens the breaker regardless of its counters
func (b *Breaker) ForceOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openLocked()
}

// ForceClose closes the breaker regardless of its counters
func (b *Breaker) ForceClose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transitionLocked(StateClosed)
}

// Reset returns the breaker to its initial state
func (b *Breaker) Reset() {
	b.ForceClose()
}

// State returns the current state
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Health returns a snapshot of the breaker's counters
func (b *Breaker) Health() Health {
	b.mu.Lock()
	defer b.mu.Unlock()

	return Health{
		Tool:                 b.tool,
		State:                b.state,
		ConsecutiveFailures:  b.consecutiveFailures,
		ConsecutiveSuccesses: b.consecutiveSuccesses,
		OpenedAt:             b.openedAt,
	}
}

func (b *Breaker) openLocked() {
	b.openedAt = b.now()
	b.transitionLocked(StateOpen)
}

// transitionLocked resets the counters for the new state. Callers must hold
// the mutex; openedAt is preserved only for the Open state.
func (b *Breaker) transitionLocked(next State) {
	prev := b.state
	b.state = next
	b.consecutiveFailures = 0
	b.consecutiveSuccesses = 0
	b.halfOpenInFlight = 0
	if next != StateOpen {
		b.openedAt = time.Time{}
	}

	if prev != next {
		b.logger.Warn().
			Str("from", string(prev)).
			Str("to", string(next)).
			Msg("Breaker state changed")
	}
}
