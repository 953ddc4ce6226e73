package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/rcliao/reelscript/internal/store"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateGeneration(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateUsage(); err != nil {
		return err
	}
	return c.validateLog()
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case BackendSQLite:
		if c.Store.Path == "" {
			return errors.New("store.path must be set for the sqlite backend")
		}
	case BackendDynamoDB:
		if c.Store.Table == "" {
			return errors.New("store.table must be set for the dynamodb backend")
		}
	default:
		return fmt.Errorf("store.backend must be %q or %q, got %q", BackendSQLite, BackendDynamoDB, c.Store.Backend)
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.TimeoutSeconds < 0 {
		return errors.New("llm.timeout_seconds must be non-negative")
	}
	return nil
}

func (c *Config) validateGeneration() error {
	if _, err := store.ParseTTL(c.Generation.CacheTTL); err != nil {
		return fmt.Errorf("generation.cache_ttl: %w", err)
	}
	g := c.Generation
	if g.DialogueLimit < 0 || g.MemeLimit < 0 || g.TrendLimit < 0 {
		return errors.New("generation limits must be non-negative")
	}
	if g.BatchSize < 1 {
		return errors.New("generation.batch_size must be at least 1")
	}
	return nil
}

func (c *Config) validateRetry() error {
	r := c.Retry
	if r.MaxAttempts < 1 {
		return errors.New("retry.max_attempts must be at least 1")
	}
	if r.BaseDelayMS < 0 || r.MaxDelayMS < 0 {
		return errors.New("retry delays must be non-negative")
	}
	if r.MaxDelayMS > 0 && r.MaxDelayMS < r.BaseDelayMS {
		return errors.New("retry.max_delay_ms must be at least retry.base_delay_ms")
	}
	return nil
}

func (c *Config) validateUsage() error {
	u := c.Usage
	if u.InputCostPerMillion < 0 || u.OutputCostPerMillion < 0 || u.USDToINR < 0 {
		return errors.New("usage rates must be non-negative")
	}
	return nil
}

func (c *Config) validateLog() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
}

// CacheTTL returns the parsed generation.cache_ttl. Load has already
// validated it.
func (c *Config) CacheTTL() time.Duration {
	d, err := store.ParseTTL(c.Generation.CacheTTL)
	if err != nil {
		return 7 * 24 * time.Hour
	}
	return d
}

// RetryDelays returns the base and maximum retry delays.
func (c *Config) RetryDelays() (base, max time.Duration) {
	return time.Duration(c.Retry.BaseDelayMS) * time.Millisecond,
		time.Duration(c.Retry.MaxDelayMS) * time.Millisecond
}
