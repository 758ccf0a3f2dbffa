package config

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	defaultSource   = "nuget.org"
	defaultCacheDir = ".depgrapher/packages"
	defaultDBPath   = ".depgrapher/history.db"
	defaultFormat   = "plantuml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, &UnknownKeysError{Keys: keys}
	}

	applyDefaults(&cfg)
	normalize(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOptional loads path when it exists and falls back to defaults when it
// does not. An explicit path that is missing is an error.
func LoadOptional(path string, explicit bool) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return nil, err
	}
	return Load(path)
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Registry.Source) == "" {
		cfg.Registry.Source = defaultSource
	}
	if strings.TrimSpace(cfg.Registry.FallbackSource) == "" {
		cfg.Registry.FallbackSource = defaultSource
	}
	if strings.TrimSpace(cfg.Registry.CacheDir) == "" {
		cfg.Registry.CacheDir = defaultCacheDir
	}
	if strings.TrimSpace(cfg.Registry.Command) == "" {
		cfg.Registry.Command = "nuget"
	}
	if cfg.Registry.FetchTimeout == 0 {
		cfg.Registry.FetchTimeout = 5 * time.Minute
	}
	if cfg.Registry.FetchBurst <= 0 {
		cfg.Registry.FetchBurst = 1
	}

	if strings.TrimSpace(cfg.Output.Dir) == "" {
		cfg.Output.Dir = "."
	}
	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = defaultFormat
	}

	if strings.TrimSpace(cfg.DB.Path) == "" {
		cfg.DB.Path = defaultDBPath
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
}

func normalize(cfg *Config) {
	cfg.Registry.Source = strings.TrimSpace(cfg.Registry.Source)
	cfg.Registry.FallbackSource = strings.TrimSpace(cfg.Registry.FallbackSource)
	cfg.Registry.CacheDir = strings.TrimSpace(cfg.Registry.CacheDir)
	cfg.Registry.Command = strings.TrimSpace(cfg.Registry.Command)
	cfg.Metadata.PreferredFramework = strings.TrimSpace(cfg.Metadata.PreferredFramework)
	cfg.Output.Dir = strings.TrimSpace(cfg.Output.Dir)
	cfg.Output.Format = strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	cfg.DB.Path = strings.TrimSpace(cfg.DB.Path)
	cfg.Observability.MetricsFile = strings.TrimSpace(cfg.Observability.MetricsFile)
	cfg.Observability.MetricsAddr = strings.TrimSpace(cfg.Observability.MetricsAddr)
	cfg.Observability.OTLPEndpoint = strings.TrimSpace(cfg.Observability.OTLPEndpoint)

	patterns := make([]string, 0, len(cfg.Ignore.Patterns))
	for _, p := range cfg.Ignore.Patterns {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	cfg.Ignore.Patterns = patterns
}

// UnknownKeysError lists configuration keys that no field accepts.
type UnknownKeysError struct {
	Keys []string
}

func (e *UnknownKeysError) Error() string {
	return "unknown configuration keys: " + strings.Join(e.Keys, ", ")
}
