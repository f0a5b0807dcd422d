package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidator_Validate_Defaults(t *testing.T) {
	v := NewValidator()
	assert.NoError(t, v.Validate(DefaultConfig()))
}

func TestValidator_ValidateLogging(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateLogging(LoggingConfig{Level: "debug"}))
	assert.NoError(t, v.ValidateLogging(LoggingConfig{}))
	assert.Error(t, v.ValidateLogging(LoggingConfig{Level: "loud"}))
}

func TestValidator_ValidateDispatcher(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		mutate  func(*DispatcherConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(c *DispatcherConfig) {}},
		{name: "negative stale threshold", mutate: func(c *DispatcherConfig) { c.StaleThresholdSeconds = -1 }, wantErr: true},
		{name: "negative failure threshold", mutate: func(c *DispatcherConfig) { c.Breaker.FailureThreshold = -1 }, wantErr: true},
		{name: "negative breaker timeout", mutate: func(c *DispatcherConfig) { c.Breaker.TimeoutSeconds = -5 }, wantErr: true},
		{name: "negative max attempts", mutate: func(c *DispatcherConfig) { c.Retry.MaxAttempts = -1 }, wantErr: true},
		{name: "base of one", mutate: func(c *DispatcherConfig) { c.Retry.Base = 1 }, wantErr: true},
		{name: "zero base falls back to default", mutate: func(c *DispatcherConfig) { c.Retry.Base = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig().Dispatcher
			tt.mutate(&cfg)

			err := v.ValidateDispatcher(cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidator_ValidateMetrics(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.ValidateMetrics(MetricsConfig{}))
	assert.NoError(t, v.ValidateMetrics(MetricsConfig{Enabled: true, Listen: "127.0.0.1:9464"}))
	assert.Error(t, v.ValidateMetrics(MetricsConfig{Enabled: true, Listen: "no-port"}))
}

func TestValidator_Validate_CollectsProblems(t *testing.T) {
	v := NewValidator()

	cfg := DefaultConfig()
	cfg.Logging.Level = "loud"
	cfg.Dispatcher.Retry.MaxAttempts = -1

	err := v.Validate(cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "log level")
	assert.Contains(t, err.Error(), "max attempts")
}
