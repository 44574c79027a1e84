package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

type Config struct {
	Engine     EngineConfig     `json:"engine"`
	Probe      ProbeConfig      `json:"probe"`
	Discovery  DiscoveryConfig  `json:"discovery"`
	API        APIConfig        `json:"api"`
	Storage    StorageConfig    `json:"storage"`
	Metrics    MetricsConfig    `json:"metrics"`
	Logging    LoggingConfig    `json:"logging"`
	Submission SubmissionConfig `json:"submission"`

	mu       sync.RWMutex
	filePath string
}

type EngineConfig struct {
	IntervalSeconds  int      `json:"interval_seconds"`
	MaxDomainsPerRun int      `json:"max_domains_per_run"`
	Seeds            []string `json:"seeds"`
	SeedFile         string   `json:"seed_file"`
}

type ProbeConfig struct {
	TimeoutMs     int    `json:"timeout_ms"`
	MinIntervalMs int    `json:"min_interval_ms"`
	MaxBodyBytes  int64  `json:"max_body_bytes"`
	MaxRedirects  int    `json:"max_redirects"`
	SkipWellKnown bool   `json:"skip_well_known"`
	SkipHomepage  bool   `json:"skip_homepage"`
	UserAgent     string `json:"user_agent"`
	Scheme        string `json:"scheme"` // "https" outside of tests
	WellKnownPath string `json:"well_known_path"`
	SOCKS5Proxy   string `json:"socks5_proxy"` // host:port, empty for direct
	AllowPrivate  bool   `json:"allow_private"`
}

func (p ProbeConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMs) * time.Millisecond
}

func (p ProbeConfig) MinInterval() time.Duration {
	return time.Duration(p.MinIntervalMs) * time.Millisecond
}

type DiscoveryConfig struct {
	Sources   []Source `json:"sources"`
	UserAgent string   `json:"user_agent"`
	TimeoutMs int      `json:"timeout_ms"`
}

type Source struct {
	URL     string `json:"url"`
	Type    string `json:"type"` // "text" or "github"
	Enabled bool   `json:"enabled"`
}

type APIConfig struct {
	Addr               string `json:"addr"`
	APIKeyEnv          string `json:"api_key_env"`
	RateLimitPerMinute int    `json:"rate_limit_per_minute"`
	EnableAPIKeyAuth   bool   `json:"enable_api_key_auth"`
	EnableIPRateLimit  bool   `json:"enable_ip_rate_limit"`
}

type StorageConfig struct {
	Type string `json:"type"` // "file", "sqlite", "redis", "postgres"
	Path string `json:"path"` // file/sqlite path, redis addr, or postgres DSN
	Key  string `json:"key"`  // redis key
}

type MetricsConfig struct {
	Enabled   bool   `json:"enabled"`
	Endpoint  string `json:"endpoint"`
	Namespace string `json:"namespace"`
}

type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // "json" or "text"
}

type SubmissionConfig struct {
	QueueSize int `json:"queue_size"`
}

// Load reads configuration from a JSON file.
func Load(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data, filePath)
}

// Parse decodes JSON configuration, applies defaults and validates.
func Parse(data []byte, filePath string) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config JSON: %w", err)
	}
	cfg.filePath = filePath
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Engine.IntervalSeconds == 0 {
		c.Engine.IntervalSeconds = 3600
	}
	if c.Engine.MaxDomainsPerRun == 0 {
		c.Engine.MaxDomainsPerRun = 200
	}
	if c.Probe.TimeoutMs == 0 {
		c.Probe.TimeoutMs = 8000
	}
	if c.Probe.MinIntervalMs == 0 {
		c.Probe.MinIntervalMs = 250
	}
	if c.Probe.MaxBodyBytes == 0 {
		c.Probe.MaxBodyBytes = 512 * 1024
	}
	if c.Probe.MaxRedirects == 0 {
		c.Probe.MaxRedirects = 5
	}
	if c.Probe.UserAgent == "" {
		c.Probe.UserAgent = "windrose-directory-bot/1.0"
	}
	if c.Probe.Scheme == "" {
		c.Probe.Scheme = "https"
	}
	if c.Probe.WellKnownPath == "" {
		c.Probe.WellKnownPath = "/.well-known/mcp.json"
	}
	if c.Discovery.TimeoutMs == 0 {
		c.Discovery.TimeoutMs = 30000
	}
	if c.Discovery.UserAgent == "" {
		c.Discovery.UserAgent = c.Probe.UserAgent
	}
	if c.API.Addr == "" {
		c.API.Addr = ":8083"
	}
	if c.API.RateLimitPerMinute == 0 {
		c.API.RateLimitPerMinute = 600
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "file"
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "data/directory.json"
	}
	if c.Storage.Key == "" {
		c.Storage.Key = "windrose:directory"
	}
	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = "/metrics"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "windrose"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Submission.QueueSize == 0 {
		c.Submission.QueueSize = 1000
	}
}

// Reload reloads configuration from file
func (c *Config) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	newCfg, err := Load(c.filePath)
	if err != nil {
		return err
	}

	c.Engine = newCfg.Engine
	c.Probe = newCfg.Probe
	c.Discovery = newCfg.Discovery
	c.API = newCfg.API
	c.Storage = newCfg.Storage
	c.Metrics = newCfg.Metrics
	c.Logging = newCfg.Logging
	c.Submission = newCfg.Submission
	return nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Engine.MaxDomainsPerRun < 1 || c.Engine.MaxDomainsPerRun > 100000 {
		return fmt.Errorf("max_domains_per_run must be between 1 and 100000")
	}
	if c.Engine.IntervalSeconds < 1 {
		return fmt.Errorf("interval_seconds must be positive")
	}
	if c.Probe.TimeoutMs < 100 || c.Probe.TimeoutMs > 120000 {
		return fmt.Errorf("timeout_ms must be between 100 and 120000")
	}
	if c.Probe.MinIntervalMs < 0 {
		return fmt.Errorf("min_interval_ms must not be negative")
	}
	if c.Probe.MaxBodyBytes < 1024 {
		return fmt.Errorf("max_body_bytes must be at least 1024")
	}
	if c.Probe.Scheme != "https" && c.Probe.Scheme != "http" {
		return fmt.Errorf("scheme must be 'https' or 'http'")
	}
	for _, src := range c.Discovery.Sources {
		if src.Type != "text" && src.Type != "github" {
			return fmt.Errorf("source %s: type must be 'text' or 'github'", src.URL)
		}
	}
	switch c.Storage.Type {
	case "file", "sqlite", "redis", "postgres":
	default:
		return fmt.Errorf("storage type must be 'file', 'sqlite', 'redis', or 'postgres'")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("logging format must be 'json' or 'text'")
	}
	if c.Submission.QueueSize < 1 {
		return fmt.Errorf("queue_size must be positive")
	}
	return nil
}

func (c *Config) Interval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.Engine.IntervalSeconds) * time.Second
}
