package config

import (
	"time"

	"github.com/skyyrose/toolgate/pkg/breaker"
	"github.com/skyyrose/toolgate/pkg/dispatch"
	"github.com/skyyrose/toolgate/pkg/retry"
)

// ToDispatcherConfig converts the file representation into the dispatcher's
// runtime configuration. Zero values fall through to the package defaults.
func (c *Config) ToDispatcherConfig() dispatch.Config {
	d := c.Dispatcher
	return dispatch.Config{
		StaleThreshold: time.Duration(d.StaleThresholdSeconds) * time.Second,
		Breaker: breaker.Config{
			FailureThreshold: d.Breaker.FailureThreshold,
			SuccessThreshold: d.Breaker.SuccessThreshold,
			Timeout:          time.Duration(d.Breaker.TimeoutSeconds) * time.Second,
			HalfOpenMaxCalls: d.Breaker.HalfOpenMaxCalls,
		},
		Retry: retry.Config{
			MaxAttempts:  d.Retry.MaxAttempts,
			InitialDelay: time.Duration(d.Retry.InitialDelaySeconds * float64(time.Second)),
			Base:         d.Retry.Base,
			MaxDelay:     time.Duration(d.Retry.MaxDelaySeconds * float64(time.Second)),
		},
	}
}
