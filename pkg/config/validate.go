package config

import (
	"fmt"
	"time"

	"site-analyzer/pkg/utils"
)

// DefaultUserAgent is used when the config file does not set one.
// A browser-like agent matches what the crawl service advertises by default.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	// DefaultUserAgent
	if c.DefaultUserAgent == "" {
		c.DefaultUserAgent = DefaultUserAgent
	}

	// DefaultCrawlDelay
	if c.DefaultCrawlDelay < 0 {
		warnings = append(warnings, fmt.Sprintf(
			"default_crawl_delay cannot be negative (%v), setting to 0", c.DefaultCrawlDelay))
		c.DefaultCrawlDelay = 0
	}

	// FetchTimeout
	if c.FetchTimeout <= 0 {
		warnings = append(warnings, "fetch_timeout not specified, defaulting to 30s")
		c.FetchTimeout = 30 * time.Second
	}

	// RunTimeout (0 means unlimited, negative is invalid)
	if c.RunTimeout < 0 {
		return warnings, fmt.Errorf("%w: run_timeout cannot be negative (%v)",
			utils.ErrConfigValidation, c.RunTimeout)
	}

	// MaxPageSizeBytes
	if c.MaxPageSizeBytes <= 0 {
		c.MaxPageSizeBytes = 10 << 20 // 10 MiB
	}

	// BatchConcurrency
	if c.BatchConcurrency <= 0 {
		warnings = append(warnings, "batch_concurrency should be > 0, defaulting to 4")
		c.BatchConcurrency = 4
	}

	// StateDir
	if c.StateDir == "" {
		c.StateDir = "./state"
	}

	// HTTP client settings
	if c.HTTPClientSettings.Timeout <= 0 {
		c.HTTPClientSettings.Timeout = c.FetchTimeout
	}
	if c.HTTPClientSettings.MaxIdleConns <= 0 {
		c.HTTPClientSettings.MaxIdleConns = 100
	}
	if c.HTTPClientSettings.MaxIdleConnsPerHost <= 0 {
		c.HTTPClientSettings.MaxIdleConnsPerHost = 10
	}
	if c.HTTPClientSettings.IdleConnTimeout <= 0 {
		c.HTTPClientSettings.IdleConnTimeout = 90 * time.Second
	}
	if c.HTTPClientSettings.TLSHandshakeTimeout <= 0 {
		c.HTTPClientSettings.TLSHandshakeTimeout = 10 * time.Second
	}
	if c.HTTPClientSettings.ExpectContinueTimeout <= 0 {
		c.HTTPClientSettings.ExpectContinueTimeout = 1 * time.Second
	}
	if c.HTTPClientSettings.DialerTimeout <= 0 {
		c.HTTPClientSettings.DialerTimeout = 15 * time.Second
	}
	if c.HTTPClientSettings.DialerKeepAlive <= 0 {
		c.HTTPClientSettings.DialerKeepAlive = 30 * time.Second
	}

	return warnings, nil
}
