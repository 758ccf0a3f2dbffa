package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[registry]
source = "https://pkgs.example/v3/index.json"
cache_dir = "cache"
fetch_timeout = "30s"
fetch_rate = 2.5
fetch_burst = 3

[ignore]
patterns = ["Contoso.Internal.*", "  "]

[metadata]
preferred_framework = "net8.0"

[output]
dir = "out"
format = "CSV-Referencers"

[db]
enabled = true

[observability]
metrics_file = "metrics/depgrapher.prom"
metrics_addr = "127.0.0.1:9464"

[watch]
debounce = "1s"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "https://pkgs.example/v3/index.json", cfg.Registry.Source)
	assert.Equal(t, "nuget.org", cfg.Registry.FallbackSource)
	assert.Equal(t, "nuget", cfg.Registry.Command)
	assert.Equal(t, 30*time.Second, cfg.Registry.FetchTimeout)
	assert.Equal(t, 2.5, cfg.Registry.FetchRate)
	assert.Equal(t, 3, cfg.Registry.FetchBurst)
	assert.Equal(t, []string{"Contoso.Internal.*"}, cfg.Ignore.Patterns)
	assert.Equal(t, "net8.0", cfg.Metadata.PreferredFramework)
	assert.Equal(t, "csv-referencers", cfg.Output.Format)
	assert.True(t, cfg.DB.Enabled)
	assert.Equal(t, ".depgrapher/history.db", cfg.DB.Path)
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "nuget.org", cfg.Registry.Source)
	assert.Equal(t, ".depgrapher/packages", cfg.Registry.CacheDir)
	assert.Equal(t, "plantuml", cfg.Output.Format)
	assert.Equal(t, ".", cfg.Output.Dir)
	assert.False(t, cfg.DB.Enabled)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	assert.NoError(t, Validate(cfg))
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
[registry]
sauce = "nuget.org"
`)
	_, err := Load(path)
	require.Error(t, err)
	var unknown *UnknownKeysError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, []string{"registry.sauce"}, unknown.Keys)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"version", "version = 3", "unsupported config version"},
		{"format", "[output]\nformat = \"graphml\"", "output.format"},
		{"negative rate", "[registry]\nfetch_rate = -1.0", "registry.fetch_rate"},
		{"negative timeout", "[registry]\nfetch_timeout = \"-1s\"", "registry.fetch_timeout"},
		{"args without name", "[registry]\nargs = [\"install\", \"{version}\"]", "{name}"},
		{"bad glob", "[ignore]\npatterns = [\"[oops\"]", "ignore.patterns[0]"},
		{"bad addr", "[observability]\nmetrics_addr = \"localhost\"", "observability.metrics_addr"},
		{"negative debounce", "[watch]\ndebounce = \"-5ms\"", "watch.debounce"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadOptional(t *testing.T) {
	missing := filepath.Join(t.TempDir(), DefaultFile)

	cfg, err := LoadOptional(missing, false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = LoadOptional(missing, true)
	assert.Error(t, err)

	cfg, err = LoadOptional(writeConfig(t, "[output]\ndir = \"x\""), true)
	require.NoError(t, err)
	assert.Equal(t, "x", cfg.Output.Dir)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("DEPGRAPHER_REGISTRY_SOURCE", " https://mirror.example ")
	t.Setenv("DEPGRAPHER_REGISTRY_FETCH_RATE", "0.5")
	t.Setenv("DEPGRAPHER_REGISTRY_FETCH_BURST", "not-a-number")
	t.Setenv("DEPGRAPHER_REGISTRY_OFFLINE", "TRUE")
	t.Setenv("DEPGRAPHER_IGNORE_PATTERNS", "Contoso.*, ,Fabrikam.*")
	t.Setenv("DEPGRAPHER_DB_ENABLED", "1")
	t.Setenv("DEPGRAPHER_WATCH_DEBOUNCE", "2s")
	t.Setenv("DEPGRAPHER_OUTPUT_FORMAT", "Overview")

	cfg := Default()
	ApplyEnvOverrides(cfg)

	assert.Equal(t, "https://mirror.example", cfg.Registry.Source)
	assert.Equal(t, 0.5, cfg.Registry.FetchRate)
	assert.Equal(t, 1, cfg.Registry.FetchBurst, "unparsable values are ignored")
	assert.True(t, cfg.Registry.Offline)
	assert.Equal(t, []string{"Contoso.*", "Fabrikam.*"}, cfg.Ignore.Patterns)
	assert.True(t, cfg.DB.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Watch.Debounce)
	assert.Equal(t, "overview", cfg.Output.Format)
	assert.NoError(t, Validate(cfg))
}

func TestResolvePaths(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Observability.MetricsFile = "metrics.prom"
	cfg.Output.Dir = filepath.Join(base, "abs-out")

	paths, err := ResolvePaths(cfg, base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, ".depgrapher", "packages"), paths.CacheDir)
	assert.Equal(t, filepath.Join(base, "abs-out"), paths.OutputDir)
	assert.Equal(t, filepath.Join(base, ".depgrapher", "history.db"), paths.DBPath)
	assert.Equal(t, filepath.Join(base, "metrics.prom"), paths.MetricsFile)

	_, err = ResolvePaths(cfg, " ")
	assert.Error(t, err)
}
