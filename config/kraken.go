package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/smartcharge/infra/kraken"
)

// MaxTimeoutSeconds bounds a single provider request.
const MaxTimeoutSeconds = 90

// KrakenConfig holds the provider API settings.
type KrakenConfig struct {
	APIURL              string  `json:"api_url"`
	APIKey              string  `json:"api_key"`
	TimeoutSeconds      int     `json:"timeout_seconds"`
	PollIntervalSeconds int     `json:"poll_interval_seconds"`
	RateLimitPerSecond  float64 `json:"rate_limit_per_second"`
}

// SetDefaults applies sane defaults.
func (c *KrakenConfig) SetDefaults() {
	if c.APIURL == "" {
		c.APIURL = kraken.DefaultURL
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = 60
	}
	if c.PollIntervalSeconds == 0 {
		c.PollIntervalSeconds = 300
	}
}

// Validate checks mandatory fields.
func (c KrakenConfig) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("kraken api_key is required")
	}
	if c.TimeoutSeconds < 1 || c.TimeoutSeconds > MaxTimeoutSeconds {
		return fmt.Errorf("kraken timeout_seconds must be within [1,%d]", MaxTimeoutSeconds)
	}
	if c.PollIntervalSeconds < 1 {
		return fmt.Errorf("kraken poll_interval_seconds must be positive")
	}
	if c.RateLimitPerSecond < 0 {
		return fmt.Errorf("kraken rate_limit_per_second must not be negative")
	}
	return nil
}

// Timeout returns the request timeout.
func (c KrakenConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// PollInterval returns the refresh period.
func (c KrakenConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// Client converts the section into a kraken client configuration.
func (c KrakenConfig) Client() kraken.Config {
	return kraken.Config{
		URL:       c.APIURL,
		APIKey:    c.APIKey,
		Timeout:   c.Timeout(),
		RateLimit: c.RateLimitPerSecond,
		Burst:     1,
	}
}
