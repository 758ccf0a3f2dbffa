package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/gobwas/glob"
)

var knownFormats = map[string]bool{
	"plantuml":        true,
	"csv-referencers": true,
	"csv-references":  true,
	"circular":        true,
	"overview":        true,
}

// Validate checks a loaded configuration. It expects defaults to be applied.
func Validate(cfg *Config) error {
	validators := []func(*Config) error{
		validateVersion,
		validateRegistry,
		validateIgnore,
		validateOutput,
		validateDatabase,
		validateObservability,
		validateWatch,
	}
	for _, v := range validators {
		if err := v(cfg); err != nil {
			return err
		}
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateRegistry(cfg *Config) error {
	r := cfg.Registry
	if r.CacheDir == "" {
		return fmt.Errorf("registry.cache_dir must not be empty")
	}
	if r.FetchTimeout < 0 {
		return fmt.Errorf("registry.fetch_timeout must not be negative, got %s", r.FetchTimeout)
	}
	if r.FetchRate < 0 {
		return fmt.Errorf("registry.fetch_rate must not be negative, got %v", r.FetchRate)
	}
	if !r.Offline && r.Command == "" {
		return fmt.Errorf("registry.command must not be empty unless registry.offline=true")
	}
	for i, arg := range r.Args {
		if strings.TrimSpace(arg) == "" {
			return fmt.Errorf("registry.args[%d] must not be empty", i)
		}
	}
	if len(r.Args) > 0 && !containsPlaceholder(r.Args, "{name}") {
		return fmt.Errorf("registry.args must reference {name}")
	}
	return nil
}

func containsPlaceholder(args []string, placeholder string) bool {
	for _, a := range args {
		if strings.Contains(a, placeholder) {
			return true
		}
	}
	return false
}

func validateIgnore(cfg *Config) error {
	for i, p := range cfg.Ignore.Patterns {
		if _, err := glob.Compile(p, '.'); err != nil {
			return fmt.Errorf("ignore.patterns[%d] %q is invalid: %w", i, p, err)
		}
	}
	return nil
}

func validateOutput(cfg *Config) error {
	if cfg.Output.Dir == "" {
		return fmt.Errorf("output.dir must not be empty")
	}
	if !knownFormats[cfg.Output.Format] {
		return fmt.Errorf("output.format %q is not one of: plantuml, csv-referencers, csv-references, circular, overview", cfg.Output.Format)
	}
	return nil
}

func validateDatabase(cfg *Config) error {
	if cfg.DB.Enabled && cfg.DB.Path == "" {
		return fmt.Errorf("db.path must not be empty when db.enabled=true")
	}
	return nil
}

func validateObservability(cfg *Config) error {
	addr := cfg.Observability.MetricsAddr
	if addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("observability.metrics_addr %q is not host:port: %w", addr, err)
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", cfg.Watch.Debounce)
	}
	return nil
}
