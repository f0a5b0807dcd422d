// Package ratelimit implements a sliding-window throttle keyed by
// (tool, caller). Budgets are independent per pair; callers with no identity
// (internal system traffic) are never throttled.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

const window = 60 * time.Second

// ExceededError is returned when a (tool, caller) pair is over budget
type ExceededError struct {
	Tool       string
	Caller     string
	Limit      int
	RetryAfter time.Duration
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s by %s: %d calls per minute, retry after %s",
		e.Tool, e.Caller, e.Limit, e.RetryAfter)
}

// Code returns the machine-readable reason code
func (e *ExceededError) Code() string {
	return "rate_limit_exceeded"
}

type bucket struct {
	mu     sync.Mutex
	stamps []time.Time
}

// Limiter tracks call timestamps per (tool, caller) key. The map lock is
// held only for key lookup; admission mutates one bucket under its own lock,
// so unrelated pairs never contend.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
	stop    chan struct{}
	once    sync.Once
}

// New creates a limiter and starts its idle-key sweeper
func New() *Limiter {
	l := &Limiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
	go l.sweep(5 * time.Minute)
	return l
}

// Allow admits or rejects a call. Timestamps older than the trailing 60s
// window are pruned lazily on every check; on rejection the retry-after is
// the time until the oldest remaining timestamp leaves the window. A limit
// of zero or an empty caller id always admits.
func (l *Limiter) Allow(tool, caller string, limit int) error {
	if caller == "" || limit <= 0 {
		return nil
	}

	b := l.bucket(tool + "|" + caller)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-window)

	kept := b.stamps[:0]
	for _, ts := range b.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	b.stamps = kept

	if len(b.stamps) >= limit {
		oldest := b.stamps[0]
		return &ExceededError{
			Tool:       tool,
			Caller:     caller,
			Limit:      limit,
			RetryAfter: window - now.Sub(oldest),
		}
	}

	b.stamps = append(b.stamps, now)
	return nil
}

// Stop terminates the background sweeper
func (l *Limiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

func (l *Limiter) bucket(key string) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{}
		l.buckets[key] = b
	}
	return b
}

// sweep periodically drops keys with no activity inside the window so idle
// (tool, caller) pairs do not accumulate forever
func (l *Limiter) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.dropIdle()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) dropIdle() {
	cutoff := l.now().Add(-window)

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, b := range l.buckets {
		b.mu.Lock()
		live := false
		for _, ts := range b.stamps {
			if ts.After(cutoff) {
				live = true
				break
			}
		}
		b.mu.Unlock()
		if !live {
			delete(l.buckets, key)
		}
	}
}
