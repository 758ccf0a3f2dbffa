package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: DEPGRAPHER_[SECTION]_[KEY] (e.g., DEPGRAPHER_REGISTRY_SOURCE).
func ApplyEnvOverrides(cfg *Config) {
	// Registry
	setEnvString(&cfg.Registry.Source, "DEPGRAPHER_REGISTRY_SOURCE")
	setEnvString(&cfg.Registry.FallbackSource, "DEPGRAPHER_REGISTRY_FALLBACK_SOURCE")
	setEnvString(&cfg.Registry.CacheDir, "DEPGRAPHER_REGISTRY_CACHE_DIR")
	setEnvString(&cfg.Registry.Command, "DEPGRAPHER_REGISTRY_COMMAND")
	setEnvDuration(&cfg.Registry.FetchTimeout, "DEPGRAPHER_REGISTRY_FETCH_TIMEOUT")
	setEnvFloat64(&cfg.Registry.FetchRate, "DEPGRAPHER_REGISTRY_FETCH_RATE")
	setEnvInt(&cfg.Registry.FetchBurst, "DEPGRAPHER_REGISTRY_FETCH_BURST")
	setEnvBool(&cfg.Registry.Offline, "DEPGRAPHER_REGISTRY_OFFLINE")

	// Ignore
	setEnvList(&cfg.Ignore.Patterns, "DEPGRAPHER_IGNORE_PATTERNS")

	// Metadata
	setEnvString(&cfg.Metadata.PreferredFramework, "DEPGRAPHER_METADATA_PREFERRED_FRAMEWORK")

	// Output
	setEnvString(&cfg.Output.Dir, "DEPGRAPHER_OUTPUT_DIR")
	setEnvString(&cfg.Output.Format, "DEPGRAPHER_OUTPUT_FORMAT")

	// Database
	setEnvBool(&cfg.DB.Enabled, "DEPGRAPHER_DB_ENABLED")
	setEnvString(&cfg.DB.Path, "DEPGRAPHER_DB_PATH")

	// Observability
	setEnvString(&cfg.Observability.MetricsFile, "DEPGRAPHER_OBSERVABILITY_METRICS_FILE")
	setEnvString(&cfg.Observability.MetricsAddr, "DEPGRAPHER_OBSERVABILITY_METRICS_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "DEPGRAPHER_OBSERVABILITY_OTLP_ENDPOINT")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "DEPGRAPHER_WATCH_DEBOUNCE")

	normalize(cfg)
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = strings.Split(val, ",")
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
