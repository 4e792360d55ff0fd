// Package config provides configuration types, loading and validation for
// revdoh.
//
// Configuration lives in a YAML file. A missing path yields the built-in
// defaults, so the binaries run with no configuration at all. Validate
// normalizes the loaded values and fills in anything left unset.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvConfigPath is consulted for the configuration file path when no
// -config flag is given.
const EnvConfigPath = "REVDOH_CONFIG"

// Built-in defaults.
const (
	DefaultEndpoint   = "https://dns.quad9.net/dns-query"
	DefaultTimeout    = "30s"
	DefaultRetries    = 3
	DefaultCacheTTL   = "300s"
	DefaultCacheSize  = 100
	DefaultSweepEvery = "60s"
	DefaultAPIHost    = "0.0.0.0"
	DefaultAPIPort    = 8080
)

// ResolveConfigPath picks the configuration file path: the flag value if
// set, otherwise the REVDOH_CONFIG environment variable, otherwise empty.
func ResolveConfigPath(flagValue string) string {
	if p := strings.TrimSpace(flagValue); p != "" {
		return p
	}
	return strings.TrimSpace(os.Getenv(EnvConfigPath))
}

// Load reads the configuration file at path. An empty path returns the
// defaults. The result is validated and normalized.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates and normalizes the configuration.
func (cfg *Config) Validate() error {
	// Normalize resolver
	if cfg.Resolver.Endpoint == "" {
		cfg.Resolver.Endpoint = DefaultEndpoint
	}
	if !strings.HasPrefix(cfg.Resolver.Endpoint, "https://") {
		return fmt.Errorf("resolver.endpoint must be an https:// URL, got %q", cfg.Resolver.Endpoint)
	}
	if cfg.Resolver.Timeout == "" {
		cfg.Resolver.Timeout = DefaultTimeout
	}
	if _, err := time.ParseDuration(cfg.Resolver.Timeout); err != nil {
		return fmt.Errorf("resolver.timeout: %w", err)
	}
	if cfg.Resolver.Retries <= 0 {
		cfg.Resolver.Retries = DefaultRetries
	}

	// Normalize cache
	if cfg.Cache.TTL == "" {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	if _, err := time.ParseDuration(cfg.Cache.TTL); err != nil {
		return fmt.Errorf("cache.ttl: %w", err)
	}
	if cfg.Cache.MaxEntries <= 0 {
		cfg.Cache.MaxEntries = DefaultCacheSize
	}
	if cfg.Cache.EvictionInterval == "" {
		cfg.Cache.EvictionInterval = DefaultSweepEvery
	}
	if _, err := time.ParseDuration(cfg.Cache.EvictionInterval); err != nil {
		return fmt.Errorf("cache.eviction_interval: %w", err)
	}

	// Normalize logging
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "INFO"
	}
	cfg.Logging.Level = strings.ToUpper(cfg.Logging.Level)
	if cfg.Logging.StructuredFormat == "" {
		cfg.Logging.StructuredFormat = "json"
	}
	if cfg.Logging.ExtraFields == nil {
		cfg.Logging.ExtraFields = map[string]string{}
	}

	// Normalize history
	if cfg.History.Enabled && cfg.History.Path == "" {
		cfg.History.Path = "revdoh.db"
	}

	// Normalize management API
	if cfg.API.Host == "" {
		cfg.API.Host = DefaultAPIHost
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = DefaultAPIPort
	}
	if cfg.API.Port < 0 || cfg.API.Port > 65535 {
		return errors.New("api.port must be 1..65535")
	}

	return nil
}

// ResolverTimeout returns the parsed resolver timeout. Validate must have
// run first.
func (cfg *Config) ResolverTimeout() time.Duration {
	d, _ := time.ParseDuration(cfg.Resolver.Timeout)
	return d
}

// CacheTTL returns the parsed cache TTL. Validate must have run first.
func (cfg *Config) CacheTTL() time.Duration {
	d, _ := time.ParseDuration(cfg.Cache.TTL)
	return d
}

// CacheEvictionInterval returns the parsed eviction interval. Validate
// must have run first.
func (cfg *Config) CacheEvictionInterval() time.Duration {
	d, _ := time.ParseDuration(cfg.Cache.EvictionInterval)
	return d
}
