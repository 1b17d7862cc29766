package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig holds the global application configuration.
// Defaults here feed into every CrawlRequest that leaves a field unset, so
// orchestrator instances with different defaults can coexist (nothing is
// process-global).
type AppConfig struct {
	DefaultUserAgent  string        `yaml:"default_user_agent,omitempty"`
	DefaultCrawlDelay time.Duration `yaml:"default_crawl_delay,omitempty"`
	FetchTimeout      time.Duration `yaml:"fetch_timeout,omitempty"`    // Timeout for a single page fetch
	RunTimeout        time.Duration `yaml:"run_timeout,omitempty"`      // Timeout for a whole seed's crawl (0 = unlimited)
	MaxPageSizeBytes  int64         `yaml:"max_page_size_bytes,omitempty"`
	SameSiteOnly      *bool         `yaml:"same_site_only,omitempty"`      // Restrict link following to the seed's host (nil = default true)
	SharedRateLimiter *bool         `yaml:"shared_rate_limiter,omitempty"` // Share one rate limiter across batch seeds (nil = default true)
	BatchConcurrency  int           `yaml:"batch_concurrency,omitempty"`   // Max seeds crawled concurrently in a batch
	StateDir          string        `yaml:"state_dir,omitempty"`           // Directory for the results database

	HTTPClientSettings HTTPClientConfig `yaml:"http_client_settings,omitempty"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`       // Timeout for idle connections
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`   // Timeout for TLS handshake
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"` // Timeout for 100-continue
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"`     // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`          // Connection dial timeout
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`       // TCP keep-alive interval
}

// Load reads and parses the config file at path.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// Default returns an AppConfig with all defaults applied and no warnings.
func Default() *AppConfig {
	cfg := &AppConfig{}
	_, _ = cfg.Validate() // defaults never produce a fatal error
	return cfg
}

// EffectiveSameSiteOnly resolves the tri-state same_site_only flag.
// The default restricts traversal to the seed's host.
func (c *AppConfig) EffectiveSameSiteOnly() bool {
	if c.SameSiteOnly != nil {
		return *c.SameSiteOnly
	}
	return true
}

// EffectiveSharedRateLimiter resolves the tri-state shared_rate_limiter flag.
// Sharing is the documented default for batch behavior.
func (c *AppConfig) EffectiveSharedRateLimiter() bool {
	if c.SharedRateLimiter != nil {
		return *c.SharedRateLimiter
	}
	return true
}
