package config

import (
	"fmt"
	"net"
	"strings"
)

var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true,
	"warn": true, "error": true,
}

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks the full configuration and returns every problem found
func (v *Validator) Validate(cfg *Config) error {
	problems := []string{}

	if err := v.ValidateLogging(cfg.Logging); err != nil {
		problems = append(problems, err.Error())
	}
	if err := v.ValidateDispatcher(cfg.Dispatcher); err != nil {
		problems = append(problems, err.Error())
	}
	if err := v.ValidateMetrics(cfg.Metrics); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ValidateLogging checks logging configuration
func (v *Validator) ValidateLogging(cfg LoggingConfig) error {
	if cfg.Level != "" && !validLogLevels[cfg.Level] {
		return fmt.Errorf("unknown log level %q", cfg.Level)
	}
	return nil
}

// ValidateDispatcher checks dispatcher thresholds
func (v *Validator) ValidateDispatcher(cfg DispatcherConfig) error {
	if cfg.StaleThresholdSeconds < 0 {
		return fmt.Errorf("stale threshold cannot be negative")
	}
	if cfg.Breaker.FailureThreshold < 0 {
		return fmt.Errorf("breaker failure threshold cannot be negative")
	}
	if cfg.Breaker.SuccessThreshold < 0 {
		return fmt.Errorf("breaker success threshold cannot be negative")
	}
	if cfg.Breaker.TimeoutSeconds < 0 {
		return fmt.Errorf("breaker timeout cannot be negative")
	}
	if cfg.Retry.MaxAttempts < 0 {
		return fmt.Errorf("retry max attempts cannot be negative")
	}
	if cfg.Retry.Base != 0 && cfg.Retry.Base <= 1 {
		return fmt.Errorf("retry base must be greater than 1")
	}
	return nil
}

// ValidateMetrics checks the metrics listen address
func (v *Validator) ValidateMetrics(cfg MetricsConfig) error {
	if !cfg.Enabled || cfg.Listen == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.Listen); err != nil {
		return fmt.Errorf("invalid metrics listen address %q: %w", cfg.Listen, err)
	}
	return nil
}
