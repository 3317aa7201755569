package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvIngestWorkers              = "MORTAR_INGEST_WORKERS"
	EnvIngestTickInterval         = "MORTAR_INGEST_TICK_INTERVAL"
	EnvIngestBatchSize            = "MORTAR_INGEST_BATCH_SIZE"
	EnvIngestAITimeout            = "MORTAR_INGEST_AI_TIMEOUT"
	EnvIngestDeterministicTimeout = "MORTAR_INGEST_DETERMINISTIC_TIMEOUT"
	EnvIngestMaxTranscriptChars   = "MORTAR_INGEST_MAX_TRANSCRIPT_CHARS"
)

// IngestConfig holds rate-sheet ingestion coordinator settings.
// Workers caps global job concurrency; per-lender concurrency is always 1.
// LenderBackends maps a lender ID to an extraction backend name, overriding
// the default backend selection for that lender's sheets.
type IngestConfig struct {
	Workers              int               `toml:"workers"`
	TickInterval         string            `toml:"tick_interval"`
	BatchSize            int               `toml:"batch_size"`
	AITimeout            string            `toml:"ai_timeout"`
	DeterministicTimeout string            `toml:"deterministic_timeout"`
	MaxTranscriptChars   int               `toml:"max_transcript_chars"`
	LenderBackends       map[string]string `toml:"lender_backends"`
}

// TickIntervalDuration returns TickInterval as a time.Duration.
func (c *IngestConfig) TickIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.TickInterval)
	return d
}

// AITimeoutDuration returns AITimeout as a time.Duration.
func (c *IngestConfig) AITimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.AITimeout)
	return d
}

// DeterministicTimeoutDuration returns DeterministicTimeout as a time.Duration.
func (c *IngestConfig) DeterministicTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.DeterministicTimeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *IngestConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *IngestConfig) Merge(overlay *IngestConfig) {
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.TickInterval != "" {
		c.TickInterval = overlay.TickInterval
	}
	if overlay.BatchSize != 0 {
		c.BatchSize = overlay.BatchSize
	}
	if overlay.AITimeout != "" {
		c.AITimeout = overlay.AITimeout
	}
	if overlay.DeterministicTimeout != "" {
		c.DeterministicTimeout = overlay.DeterministicTimeout
	}
	if overlay.MaxTranscriptChars != 0 {
		c.MaxTranscriptChars = overlay.MaxTranscriptChars
	}
	if len(overlay.LenderBackends) > 0 {
		c.LenderBackends = overlay.LenderBackends
	}
}

func (c *IngestConfig) loadDefaults() {
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.TickInterval == "" {
		c.TickInterval = "15s"
	}
	if c.BatchSize == 0 {
		c.BatchSize = 8
	}
	if c.AITimeout == "" {
		c.AITimeout = "120s"
	}
	if c.DeterministicTimeout == "" {
		c.DeterministicTimeout = "30s"
	}
	if c.MaxTranscriptChars == 0 {
		c.MaxTranscriptChars = 100_000
	}
}

func (c *IngestConfig) loadEnv() {
	if v := os.Getenv(EnvIngestWorkers); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Workers = n
		}
	}
	if v := os.Getenv(EnvIngestTickInterval); v != "" {
		c.TickInterval = v
	}
	if v := os.Getenv(EnvIngestBatchSize); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.BatchSize = n
		}
	}
	if v := os.Getenv(EnvIngestAITimeout); v != "" {
		c.AITimeout = v
	}
	if v := os.Getenv(EnvIngestDeterministicTimeout); v != "" {
		c.DeterministicTimeout = v
	}
	if v := os.Getenv(EnvIngestMaxTranscriptChars); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxTranscriptChars = n
		}
	}
}

func (c *IngestConfig) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive: %d", c.Workers)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be positive: %d", c.BatchSize)
	}
	if _, err := time.ParseDuration(c.TickInterval); err != nil {
		return fmt.Errorf("invalid tick_interval: %w", err)
	}
	if _, err := time.ParseDuration(c.AITimeout); err != nil {
		return fmt.Errorf("invalid ai_timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.DeterministicTimeout); err != nil {
		return fmt.Errorf("invalid deterministic_timeout: %w", err)
	}
	return nil
}
