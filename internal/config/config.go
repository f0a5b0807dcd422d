package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main toolgate configuration
type Config struct {
	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Audit ledger
	Audit AuditConfig `json:"audit" mapstructure:"audit"`

	// Dispatcher behavior
	Dispatcher DispatcherConfig `json:"dispatcher" mapstructure:"dispatcher"`

	// Metrics endpoint
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Data directory
	DataDir string `json:"data_dir" mapstructure:"data_dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Console   bool   `json:"console" mapstructure:"console"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// AuditConfig holds audit ledger configuration
type AuditConfig struct {
	Path string `json:"path" mapstructure:"path"`
	// TailDefault is how many records the CLI shows when no count is given
	TailDefault int `json:"tail_default" mapstructure:"tail_default"`
}

// BreakerConfig holds circuit breaker defaults
type BreakerConfig struct {
	FailureThreshold int `json:"failure_threshold" mapstructure:"failure_threshold"`
	SuccessThreshold int `json:"success_threshold" mapstructure:"success_threshold"`
	TimeoutSeconds   int `json:"timeout_seconds" mapstructure:"timeout_seconds"`
	HalfOpenMaxCalls int `json:"half_open_max_calls" mapstructure:"half_open_max_calls"`
}

// RetryConfig holds retry policy defaults
type RetryConfig struct {
	MaxAttempts         int     `json:"max_attempts" mapstructure:"max_attempts"`
	InitialDelaySeconds float64 `json:"initial_delay_seconds" mapstructure:"initial_delay_seconds"`
	Base                float64 `json:"base" mapstructure:"base"`
	MaxDelaySeconds     float64 `json:"max_delay_seconds" mapstructure:"max_delay_seconds"`
}

// DispatcherConfig holds dispatcher-level settings
type DispatcherConfig struct {
	StaleThresholdSeconds int           `json:"stale_threshold_seconds" mapstructure:"stale_threshold_seconds"`
	Breaker               BreakerConfig `json:"breaker" mapstructure:"breaker"`
	Retry                 RetryConfig   `json:"retry" mapstructure:"retry"`
}

// MetricsConfig holds the Prometheus endpoint configuration
type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Listen  string `json:"listen" mapstructure:"listen"`
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:     "info",
			Console:   true,
			Pretty:    true,
			Redaction: true,
		},
		Audit: AuditConfig{
			TailDefault: 20,
		},
		Dispatcher: DispatcherConfig{
			StaleThresholdSeconds: 3600,
			Breaker: BreakerConfig{
				FailureThreshold: 5,
				SuccessThreshold: 2,
				TimeoutSeconds:   120,
				HalfOpenMaxCalls: 1,
			},
			Retry: RetryConfig{
				MaxAttempts:         3,
				InitialDelaySeconds: 1,
				Base:                2,
				MaxDelaySeconds:     60,
			},
		},
		Metrics: MetricsConfig{
			Listen: "127.0.0.1:9464",
		},
	}
}

// String returns the config as indented JSON with secrets intact; callers
// display it through the redacting logger when needed
func (c *Config) String() string {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", *c)
	}
	return string(data)
}
