package retry

import (
	"fmt"
	"time"
)

// BackoffStrategy picks the delay between attempts
type BackoffStrategy string

const (
	BackoffConstant    BackoffStrategy = "constant"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// Config configures a Retryer
type Config struct {
	Enabled bool `yaml:"enabled"`

	// MaxAttempts counts the first attempt; 0 retries until the context ends
	MaxAttempts int `yaml:"max_attempts"`

	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`

	BackoffStrategy   BackoffStrategy `yaml:"backoff"`
	BackoffMultiplier float64         `yaml:"multiplier"`

	// Jitter randomizes each delay by up to this fraction (0.0 - 1.0)
	Jitter float64 `yaml:"jitter"`

	// RetryableErrors are substrings of retryable error messages; empty retries everything
	RetryableErrors []string `yaml:"retryable_errors"`

	// OnRetry is called before every wait
	OnRetry func(attempt int, err error, delay time.Duration) `yaml:"-"`
}

// Validate checks an enabled config and fills the multiplier default
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.MaxAttempts < 0 {
		return fmt.Errorf("max_attempts must be >= 0, got %d", c.MaxAttempts)
	}
	if c.InitialDelay < 0 {
		return fmt.Errorf("initial_delay must be >= 0")
	}
	if c.MaxDelay < c.InitialDelay {
		return fmt.Errorf("max_delay (%v) must be >= initial_delay (%v)", c.MaxDelay, c.InitialDelay)
	}

	switch c.BackoffStrategy {
	case BackoffConstant, BackoffLinear, BackoffExponential:
	case "":
		c.BackoffStrategy = BackoffExponential
	default:
		return fmt.Errorf("invalid backoff strategy: %s", c.BackoffStrategy)
	}

	if c.BackoffMultiplier <= 0 {
		c.BackoffMultiplier = 2.0
	}
	if c.Jitter < 0 || c.Jitter > 1.0 {
		return fmt.Errorf("jitter must be between 0.0 and 1.0, got %f", c.Jitter)
	}

	return nil
}

// DefaultConfig returns a disabled config with sensible values
func DefaultConfig() Config {
	return Config{
		Enabled:           false,
		MaxAttempts:       5,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          15 * time.Second,
		BackoffStrategy:   BackoffExponential,
		BackoffMultiplier: 2.0,
		Jitter:            0.1,
	}
}

// EnableRetry returns the default config, enabled
func EnableRetry(maxAttempts int, initialDelay time.Duration) Config {
	config := DefaultConfig()
	config.Enabled = true
	config.MaxAttempts = maxAttempts
	config.InitialDelay = initialDelay
	if config.MaxDelay < initialDelay {
		config.MaxDelay = initialDelay
	}
	return config
}
