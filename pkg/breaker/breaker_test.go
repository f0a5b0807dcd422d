package breaker

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time { return c.current }

func (c *fakeClock) advance(d time.Duration) { c.current = c.current.Add(d) }

func newTestBreaker(t *testing.T, cfg Config) (*Breaker, *fakeClock) {
	t.Helper()
	b := New("flaky", cfg, zerolog.Nop())
	clock := &fakeClock{current: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	b.now = clock.now
	return b, clock
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	b, _ := newTestBreaker(t, DefaultConfig())

	for i := 0; i < 4; i++ {
		require.NoError(t, b.Allow())
		b.RecordFailure()
		assert.Equal(t, StateClosed, b.State())
	}

	require.NoError(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())

	err := b.Allow()
	var open *OpenError
	require.ErrorAs(t, err, &open)
	assert.Equal(t, "flaky", open.Tool)
	assert.Equal(t, "circuit_open", open.Code())
	assert.Equal(t, 120*time.Second, open.RetryAfter)
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(t, DefaultConfig())

	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	b.RecordSuccess()

	// The streak restarted, so four more failures still leave it closed
	for i := 0; i < 4; i++ {
		b.RecordFailure()
	}
	assert.Equal(t, StateClosed, b.State())

	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_RetryAfterCountsDown(t *testing.T) {
	b, clock := newTestBreaker(t, DefaultConfig())

	b.ForceOpen()
	clock.advance(100 * time.Second)

	err := b.Allow()
	var open *OpenError
	require.ErrorAs(t, err, &open)
	assert.Equal(t, 20*time.Second, open.RetryAfter)
}

func TestBreaker_HalfOpenAfterTimeout(t *testing.T) {
	b, clock := newTestBreaker(t, DefaultConfig())

	b.ForceOpen()
	clock.advance(121 * time.Second)

	assert.NoError(t, b.Allow())
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestBreaker_HalfOpenLimitsTrials(t *testing.T) {
	b, clock := newTestBreaker(t, DefaultConfig())

	b.ForceOpen()
	clock.advance(121 * time.Second)

	require.NoError(t, b.Allow())

	// Only one trial may be in flight
	err := b.Allow()
	var open *OpenError
	require.ErrorAs(t, err, &open)

	// Once the trial completes, the next one is admitted
	b.RecordSuccess()
	assert.NoError(t, b.Allow())
}

func TestBreaker_ClosesAfterSuccessThreshold(t *testing.T) {
	b, clock := newTestBreaker(t, DefaultConfig())

	b.ForceOpen()
	clock.advance(121 * time.Second)

	require.NoError(t, b.Allow())
	b.RecordSuccess()
	assert.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Allow())
	b.RecordSuccess()
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, clock := newTestBreaker(t, DefaultConfig())

	b.ForceOpen()
	clock.advance(121 * time.Second)

	require.NoError(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())

	// The timeout restarted from the trial failure
	clock.advance(119 * time.Second)
	assert.Error(t, b.Allow())

	clock.advance(2 * time.Second)
	assert.NoError(t, b.Allow())
}

func TestBreaker_ForceOverrides(t *testing.T) {
	b, _ := newTestBreaker(t, DefaultConfig())

	b.ForceOpen()
	assert.Equal(t, StateOpen, b.State())
	assert.Error(t, b.Allow())

	b.ForceClose()
	assert.Equal(t, StateClosed, b.State())
	assert.NoError(t, b.Allow())

	b.ForceOpen()
	b.Reset()
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_Health(t *testing.T) {
	b, clock := newTestBreaker(t, DefaultConfig())

	b.RecordFailure()
	b.RecordFailure()

	h := b.Health()
	assert.Equal(t, "flaky", h.Tool)
	assert.Equal(t, StateClosed, h.State)
	assert.Equal(t, 2, h.ConsecutiveFailures)
	assert.True(t, h.OpenedAt.IsZero())

	b.ForceOpen()
	h = b.Health()
	assert.Equal(t, StateOpen, h.State)
	assert.Equal(t, clock.current, h.OpenedAt)
}

func TestBreaker_CustomThresholds(t *testing.T) {
	b, _ := newTestBreaker(t, Config{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Second})

	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())
}

func TestGroup_PerToolIsolation(t *testing.T) {
	g := NewGroup(DefaultConfig(), zerolog.Nop())

	flaky := g.Get("flaky")
	for i := 0; i < 5; i++ {
		flaky.RecordFailure()
	}
	assert.Equal(t, StateOpen, flaky.State())

	// Other tools are unaffected
	assert.Equal(t, StateClosed, g.Get("steady").State())

	// Same name returns the same breaker
	assert.Same(t, flaky, g.Get("flaky"))
}

func TestGroup_Health(t *testing.T) {
	g := NewGroup(DefaultConfig(), zerolog.Nop())

	g.Get("a").ForceOpen()
	g.Get("b")

	health := g.Health()
	require.Len(t, health, 2)
	assert.Equal(t, StateOpen, health["a"].State)
	assert.Equal(t, StateClosed, health["b"].State)
}
