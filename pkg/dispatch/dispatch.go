// Package dispatch runs tool invocations through the full governance
// pipeline: catalog lookup, input validation, authorization, rate
// limiting, circuit breaking, retries, caching, graceful degradation
// and audit logging. The dispatcher is the only entry point callers
// should use to execute a registered tool.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/skyyrose/toolgate/internal/tracing"
	"github.com/skyyrose/toolgate/pkg/audit"
	"github.com/skyyrose/toolgate/pkg/authz"
	"github.com/skyyrose/toolgate/pkg/breaker"
	"github.com/skyyrose/toolgate/pkg/catalog"
	"github.com/skyyrose/toolgate/pkg/ratelimit"
	"github.com/skyyrose/toolgate/pkg/rescache"
	"github.com/skyyrose/toolgate/pkg/retry"
	"github.com/skyyrose/toolgate/pkg/validate"
)

// Invocation outcome statuses
const (
	StatusSuccess  = "success"
	StatusFailure  = "failure"
	StatusTimeout  = "timeout"
	StatusRejected = "rejected"
)

// Degradation sources
const (
	DegradedStaleCache = "stale_cache"
	DegradedFallback   = "fallback"
)

// InvocationContext carries caller identity and per-call options
type InvocationContext struct {
	CorrelationID string
	CallerID      string
	Permissions   []string
	Admin         bool
	Approved      bool
	Fresh         bool // bypass the result cache for this call
	Metadata      map[string]string
}

// NewInvocationContext creates a context for a caller with a fresh
// correlation ID.
func NewInvocationContext(callerID string, permissions ...string) InvocationContext {
	return InvocationContext{
		CorrelationID: uuid.New().String(),
		CallerID:      callerID,
		Permissions:   permissions,
	}
}

func (inv InvocationContext) identity() authz.Identity {
	return authz.Identity{
		ID:          inv.CallerID,
		Permissions: inv.Permissions,
		Admin:       inv.Admin,
		Approved:    inv.Approved,
	}
}

// InvocationResult is the outcome of a dispatched call
type InvocationResult struct {
	Status     string
	Payload    interface{}
	Err        error
	Reason     string        // machine-readable reason code for non-success outcomes
	RetryAfter time.Duration // hint for rate-limited or circuit-open rejections
	Duration   time.Duration
	CacheHit   bool
	Degraded   string // DegradedStaleCache or DegradedFallback when a substitute was served
	Attempts   int
}

// Config holds dispatcher-level settings
type Config struct {
	// StaleThreshold bounds how old a cached value may be when served
	// as a degraded substitute for a failed call.
	StaleThreshold time.Duration
	Breaker        breaker.Config
	Retry          retry.Config
}

// DefaultConfig returns the default dispatcher configuration
func DefaultConfig() Config {
	return Config{
		StaleThreshold: time.Hour,
		Breaker:        breaker.DefaultConfig(),
		Retry:          retry.DefaultConfig(),
	}
}

func (c Config) withDefaults() Config {
	if c.StaleThreshold <= 0 {
		c.StaleThreshold = time.Hour
	}
	return c
}

// Recorder receives one observation per finished invocation. The metrics
// package implements it; a nil recorder disables instrumentation.
type Recorder interface {
	ObserveInvocation(tool, status string, duration time.Duration, attempts int, cacheHit bool, degraded string)
}

// Stats is a snapshot of dispatcher counters
type Stats struct {
	Invocations int64 `json:"invocations"`
	Successes   int64 `json:"successes"`
	Failures    int64 `json:"failures"`
	Timeouts    int64 `json:"timeouts"`
	Rejected    int64 `json:"rejected"`
	CacheHits   int64 `json:"cache_hits"`
	Degraded    int64 `json:"degraded"`
}

// Dispatcher composes the governance layers around tool execution
type Dispatcher struct {
	catalog  *catalog.Catalog
	gate     *authz.Gate
	limiter  *ratelimit.Limiter
	breakers *breaker.Group
	policy   *retry.Policy
	cache    *rescache.Cache
	ledger   *audit.Ledger
	cfg      Config
	logger   zerolog.Logger

	mu        sync.Mutex
	fallbacks map[string]interface{}
	stats     Stats
	recorder  Recorder
}

// New creates a dispatcher. The ledger may be nil, in which case no
// audit records are written.
func New(cat *catalog.Catalog, ledger *audit.Ledger, cfg Config, logger zerolog.Logger) *Dispatcher {
	cfg = cfg.withDefaults()
	return &Dispatcher{
		catalog:   cat,
		gate:      authz.NewGate(logger),
		limiter:   ratelimit.New(),
		breakers:  breaker.NewGroup(cfg.Breaker, logger),
		policy:    retry.New(cfg.Retry),
		cache:     rescache.New(),
		ledger:    ledger,
		cfg:       cfg,
		logger:    logger.With().Str("component", "dispatcher").Logger(),
		fallbacks: make(map[string]interface{}),
	}
}

// SetRecorder attaches a metrics recorder
func (d *Dispatcher) SetRecorder(r Recorder) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.recorder = r
}

// SetFallback registers a static substitute value served when a tool's
// execution fails and no usable stale cache entry exists.
func (d *Dispatcher) SetFallback(tool string, value interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fallbacks[tool] = value
}

// Invoke runs a tool through the full pipeline. It always returns a
// result; inspect Status and Err for the outcome. Exactly one audit
// record is appended per call, before Invoke returns.
func (d *Dispatcher) Invoke(ctx context.Context, tool string, args map[string]interface{}, inv InvocationContext) InvocationResult {
	start := time.Now()

	if inv.CorrelationID == "" {
		ctx, inv.CorrelationID = tracing.EnsureCorrelationID(ctx)
	}

	spec, ok := d.catalog.Lookup(tool)
	if !ok {
		err := fmt.Errorf("unknown tool: %s", tool)
		return d.finish(tool, args, inv, start, InvocationResult{
			Status: StatusRejected,
			Err:    err,
			Reason: "unknown_tool",
		})
	}
	if spec.Disabled {
		err := fmt.Errorf("tool is disabled: %s", tool)
		return d.finish(tool, args, inv, start, InvocationResult{
			Status: StatusRejected,
			Err:    err,
			Reason: "tool_disabled",
		})
	}

	if err := validate.Input(d.catalog.InputSchema(tool), args); err != nil {
		return d.finish(tool, args, inv, start, InvocationResult{
			Status: StatusRejected,
			Err:    err,
			Reason: reasonCode(err),
		})
	}

	if err := d.gate.Check(spec, inv.identity()); err != nil {
		return d.finish(tool, args, inv, start, InvocationResult{
			Status: StatusRejected,
			Err:    err,
			Reason: reasonCode(err),
		})
	}

	if err := d.limiter.Allow(tool, inv.CallerID, spec.RateLimit); err != nil {
		res := InvocationResult{
			Status: StatusRejected,
			Err:    err,
			Reason: reasonCode(err),
		}
		var exceeded *ratelimit.ExceededError
		if errors.As(err, &exceeded) {
			res.RetryAfter = exceeded.RetryAfter
		}
		return d.finish(tool, args, inv, start, res)
	}

	cacheKey := rescache.Key(tool, args)
	if spec.CacheEligible() && !inv.Fresh {
		if value, hit := d.cache.Get(cacheKey); hit {
			return d.finish(tool, args, inv, start, InvocationResult{
				Status:   StatusSuccess,
				Payload:  value,
				CacheHit: true,
			})
		}
	}

	brk := d.breakers.Get(tool)
	if err := brk.Allow(); err != nil {
		res := d.degrade(spec, cacheKey, InvocationResult{
			Status: StatusRejected,
			Err:    err,
			Reason: reasonCode(err),
		})
		var open *breaker.OpenError
		if res.Status == StatusRejected && errors.As(err, &open) {
			res.RetryAfter = open.RetryAfter
		}
		return d.finish(tool, args, inv, start, res)
	}

	payload, attempts, err := d.policy.Do(ctx, func(ctx context.Context) (interface{}, error) {
		return d.execute(ctx, spec, args)
	})
	if err != nil {
		brk.RecordFailure()

		status := StatusFailure
		if errors.Is(err, context.DeadlineExceeded) {
			status = StatusTimeout
		}
		res := d.degrade(spec, cacheKey, InvocationResult{
			Status:   status,
			Err:      err,
			Reason:   reasonCode(err),
			Attempts: attempts,
		})
		return d.finish(tool, args, inv, start, res)
	}

	if err := validate.Output(d.catalog.OutputSchema(tool), payload); err != nil {
		brk.RecordFailure()

		res := d.degrade(spec, cacheKey, InvocationResult{
			Status:   StatusFailure,
			Err:      err,
			Reason:   reasonCode(err),
			Attempts: attempts,
		})
		return d.finish(tool, args, inv, start, res)
	}

	brk.RecordSuccess()

	if spec.CacheEligible() {
		d.cache.Put(cacheKey, payload, spec.CacheTTL)
	}

	return d.finish(tool, args, inv, start, InvocationResult{
		Status:   StatusSuccess,
		Payload:  payload,
		Attempts: attempts,
	})
}

// execute runs the handler with the tool's timeout applied. The handler
// runs in its own goroutine so a hung tool cannot block the dispatcher
// past its deadline.
func (d *Dispatcher) execute(ctx context.Context, spec *catalog.Specification, args map[string]interface{}) (interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, spec.Timeout)
	defer cancel()

	type outcome struct {
		result interface{}
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := spec.Handler(ctx, args)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// degrade substitutes a stale cached value or a registered fallback for
// a failed result. Only execution and circuit failures degrade; the
// original result is returned unchanged when no substitute exists.
func (d *Dispatcher) degrade(spec *catalog.Specification, cacheKey string, failed InvocationResult) InvocationResult {
	if spec.CacheEligible() {
		if value, _, ok := d.cache.GetStale(cacheKey, d.cfg.StaleThreshold); ok {
			return InvocationResult{
				Status:   StatusSuccess,
				Payload:  value,
				Degraded: DegradedStaleCache,
				Attempts: failed.Attempts,
			}
		}
	}

	d.mu.Lock()
	fallback, ok := d.fallbacks[spec.Name]
	d.mu.Unlock()
	if ok {
		return InvocationResult{
			Status:   StatusSuccess,
			Payload:  fallback,
			Degraded: DegradedFallback,
			Attempts: failed.Attempts,
		}
	}

	return failed
}

// finish stamps the duration, updates counters, writes the audit record
// and returns the result.
func (d *Dispatcher) finish(tool string, args map[string]interface{}, inv InvocationContext, start time.Time, res InvocationResult) InvocationResult {
	res.Duration = time.Since(start)

	d.mu.Lock()
	d.stats.Invocations++
	switch res.Status {
	case StatusSuccess:
		d.stats.Successes++
	case StatusFailure:
		d.stats.Failures++
	case StatusTimeout:
		d.stats.Timeouts++
	case StatusRejected:
		d.stats.Rejected++
	}
	if res.CacheHit {
		d.stats.CacheHits++
	}
	if res.Degraded != "" {
		d.stats.Degraded++
	}
	recorder := d.recorder
	d.mu.Unlock()

	if recorder != nil {
		recorder.ObserveInvocation(tool, res.Status, res.Duration, res.Attempts, res.CacheHit, res.Degraded)
	}

	if d.ledger != nil {
		rec := audit.Record{
			CorrelationID: inv.CorrelationID,
			Tool:          tool,
			Caller:        inv.CallerID,
			Status:        res.Status,
			Reason:        res.Reason,
			Args:          audit.Stringify(args),
			DurationMS:    res.Duration.Milliseconds(),
			CacheHit:      res.CacheHit,
			Degraded:      res.Degraded != "",
			Attempts:      res.Attempts,
		}
		if res.Err != nil {
			rec.Error = res.Err.Error()
		}
		if err := d.ledger.Append(rec); err != nil {
			d.logger.Error().Err(err).Str("tool", tool).Msg("Failed to write audit record")
		}
	}

	event := d.logger.Info()
	if res.Err != nil {
		event = d.logger.Warn().Err(res.Err)
	}
	event.
		Str("tool", tool).
		Str("caller", inv.CallerID).
		Str("status", res.Status).
		Dur("duration", res.Duration).
		Msg("Tool invocation finished")

	return res
}

// Stats returns a snapshot of dispatcher counters
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// BreakerHealth reports the state of every breaker created so far
func (d *Dispatcher) BreakerHealth() map[string]breaker.Health {
	return d.breakers.Health()
}

// Breaker exposes the breaker for a tool, for operational overrides
// such as ForceOpen and Reset.
func (d *Dispatcher) Breaker(tool string) *breaker.Breaker {
	return d.breakers.Get(tool)
}

// InvalidateCache drops the cached result for a specific invocation
func (d *Dispatcher) InvalidateCache(tool string, args map[string]interface{}) {
	d.cache.Delete(rescache.Key(tool, args))
}

// Close stops background goroutines and closes the audit ledger
func (d *Dispatcher) Close() error {
	d.limiter.Stop()
	if d.ledger != nil {
		return d.ledger.Close()
	}
	return nil
}

// reasonCode extracts the machine-readable code from typed pipeline
// errors, falling back to a generic execution code.
func reasonCode(err error) string {
	type coder interface{ Code() string }

	for e := err; e != nil; e = errors.Unwrap(e) {
		if c, ok := e.(coder); ok {
			return c.Code()
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "execution_error"
}
