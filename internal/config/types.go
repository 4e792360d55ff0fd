package config

// Config is the top-level configuration for the revdoh binaries.
type Config struct {
	Resolver ResolverConfig `yaml:"resolver"`
	Cache    CacheConfig    `yaml:"cache"`
	History  HistoryConfig  `yaml:"history"`
	Logging  LoggingConfig  `yaml:"logging"`
	API      APIConfig      `yaml:"api"`
}

// ResolverConfig contains upstream DoH resolver settings.
type ResolverConfig struct {
	Endpoint string `yaml:"endpoint"` // DoH endpoint URL, must be https
	Timeout  string `yaml:"timeout"`  // per-attempt timeout (e.g., "30s")
	Retries  int    `yaml:"retries"`  // attempts per query
}

// CacheConfig contains lookup cache settings.
type CacheConfig struct {
	TTL              string `yaml:"ttl"`               // entry lifetime (e.g., "300s")
	MaxEntries       int    `yaml:"max_entries"`       // capacity bound
	EvictionInterval string `yaml:"eviction_interval"` // minimum spacing between sweeps
}

// HistoryConfig controls the SQLite lookup journal.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // database file path
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level            string            `yaml:"level"`
	Structured       bool              `yaml:"structured"`
	StructuredFormat string            `yaml:"structured_format"`
	IncludePID       bool              `yaml:"include_pid"`
	ExtraFields      map[string]string `yaml:"extra_fields,omitempty"`
}

// APIConfig contains the management REST API settings.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	APIKey  string `yaml:"api_key,omitempty"` // empty disables authentication
}
