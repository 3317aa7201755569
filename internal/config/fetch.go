package config

import (
	"fmt"
	"os"
	"time"
)

const (
	EnvFetchSchedule        = "MORTAR_FETCH_SCHEDULE"
	EnvFetchDownloadTimeout = "MORTAR_FETCH_DOWNLOAD_TIMEOUT"
)

// FetchSource identifies one lender rate-sheet URL to poll.
// Username and Password are optional basic-auth credentials.
type FetchSource struct {
	LenderID string `toml:"lender_id"`
	URL      string `toml:"url"`
	Username string `toml:"username"`
	Password string `toml:"password"`
}

// FetchConfig holds the rate-sheet downloader settings. Schedule is a cron
// expression; an empty source list disables the fetcher.
type FetchConfig struct {
	Schedule        string        `toml:"schedule"`
	DownloadTimeout string        `toml:"download_timeout"`
	Sources         []FetchSource `toml:"sources"`
}

// DownloadTimeoutDuration returns DownloadTimeout as a time.Duration.
func (c *FetchConfig) DownloadTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.DownloadTimeout)
	return d
}

// Enabled reports whether any sources are configured.
func (c *FetchConfig) Enabled() bool {
	return len(c.Sources) > 0
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *FetchConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *FetchConfig) Merge(overlay *FetchConfig) {
	if overlay.Schedule != "" {
		c.Schedule = overlay.Schedule
	}
	if overlay.DownloadTimeout != "" {
		c.DownloadTimeout = overlay.DownloadTimeout
	}
	if len(overlay.Sources) > 0 {
		c.Sources = overlay.Sources
	}
}

func (c *FetchConfig) loadDefaults() {
	if c.Schedule == "" {
		c.Schedule = "@every 6h"
	}
	if c.DownloadTimeout == "" {
		c.DownloadTimeout = "30s"
	}
}

func (c *FetchConfig) loadEnv() {
	if v := os.Getenv(EnvFetchSchedule); v != "" {
		c.Schedule = v
	}
	if v := os.Getenv(EnvFetchDownloadTimeout); v != "" {
		c.DownloadTimeout = v
	}
}

func (c *FetchConfig) validate() error {
	if _, err := time.ParseDuration(c.DownloadTimeout); err != nil {
		return fmt.Errorf("invalid download_timeout: %w", err)
	}
	for i, s := range c.Sources {
		if s.LenderID == "" {
			return fmt.Errorf("sources[%d]: lender_id required", i)
		}
		if s.URL == "" {
			return fmt.Errorf("sources[%d]: url required", i)
		}
	}
	return nil
}
