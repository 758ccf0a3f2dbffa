package config

import "time"

// DefaultFile is looked up in the working directory when --config is not given.
const DefaultFile = "depgrapher.toml"

type Config struct {
	Version       int           `toml:"version"`
	Registry      Registry      `toml:"registry"`
	Ignore        Ignore        `toml:"ignore"`
	Metadata      Metadata      `toml:"metadata"`
	Output        Output        `toml:"output"`
	DB            Database      `toml:"db"`
	Observability Observability `toml:"observability"`
	Watch         Watch         `toml:"watch"`
}

type Registry struct {
	Source         string        `toml:"source"`
	FallbackSource string        `toml:"fallback_source"`
	CacheDir       string        `toml:"cache_dir"`
	Command        string        `toml:"command"`
	Args           []string      `toml:"args"`
	FetchTimeout   time.Duration `toml:"fetch_timeout"`
	FetchRate      float64       `toml:"fetch_rate"` // fetches per second, 0 = unlimited
	FetchBurst     int           `toml:"fetch_burst"`
	Offline        bool          `toml:"offline"`
}

type Ignore struct {
	Patterns []string `toml:"patterns"`
}

type Metadata struct {
	PreferredFramework string `toml:"preferred_framework"`
}

type Output struct {
	Dir    string `toml:"dir"`
	Format string `toml:"format"`
}

type Database struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Observability struct {
	MetricsFile  string `toml:"metrics_file"`
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}
