package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ResolvedPaths holds every filesystem location of a run as a clean path.
// Relative configuration values are anchored at the base directory, which
// is the directory of the config file or the working directory.
type ResolvedPaths struct {
	BaseDir     string
	CacheDir    string
	OutputDir   string
	DBPath      string
	MetricsFile string
}

func ResolvePaths(cfg *Config, baseDir string) (ResolvedPaths, error) {
	if strings.TrimSpace(baseDir) == "" {
		return ResolvedPaths{}, fmt.Errorf("base directory must not be empty")
	}
	base, err := filepath.Abs(baseDir)
	if err != nil {
		return ResolvedPaths{}, fmt.Errorf("resolve base directory %q: %w", baseDir, err)
	}

	resolved := ResolvedPaths{
		BaseDir:   filepath.Clean(base),
		CacheDir:  ResolveRelative(base, cfg.Registry.CacheDir),
		OutputDir: ResolveRelative(base, cfg.Output.Dir),
		DBPath:    ResolveRelative(base, cfg.DB.Path),
	}
	if strings.TrimSpace(cfg.Observability.MetricsFile) != "" {
		resolved.MetricsFile = ResolveRelative(base, cfg.Observability.MetricsFile)
	}
	return resolved, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}
