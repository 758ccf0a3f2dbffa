package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDescriptor(t *testing.T, path, name, version string, refs ...string) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "name = %q\nversion = %q\ntarget_platform = \"net8.0\"\n", name, version)
	for _, ref := range refs {
		parts := strings.SplitN(ref, "@", 2)
		fmt.Fprintf(&b, "\n[[references]]\nname = %q\nversion = %q\n", parts[0], parts[1])
	}
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	oldwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Setenv("PWD", dir)
	t.Cleanup(func() {
		if err := os.Chdir(oldwd); err != nil {
			panic("testing.Chdir: " + err.Error())
		}
	})
}

// setupProject writes an offline config and the A -> {B, C}, B -> D 1.0,
// C -> D 2.0 graph into a temp dir and makes it the working directory.
func setupProject(t *testing.T) (dir, root, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	chdir(t, dir)
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))

	cfgPath = filepath.Join(dir, "depgrapher.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`version = 1

[registry]
offline = true

[output]
dir = "out"
`), 0o644))

	root = filepath.Join(dir, "A.module.toml")
	writeDescriptor(t, root, "A", "1.0", "B@1.0", "C@1.0")
	writeDescriptor(t, filepath.Join(dir, "B.module.toml"), "B", "1.0", "D@1.0")
	writeDescriptor(t, filepath.Join(dir, "C.module.toml"), "C", "1.0", "D@2.0")
	writeDescriptor(t, filepath.Join(dir, "D.module.toml"), "D", "1.0")
	writeDescriptor(t, filepath.Join(dir, ".depgrapher", "packages", "D.2.0.0", "lib", "D.module.toml"), "D", "2.0")
	return dir, root, cfgPath
}

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := execute(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersionCommand(t *testing.T) {
	code, out, _ := runCLI(t, "version")
	assert.Equal(t, 0, code)
	assert.Equal(t, "depgrapher v1.0.0\n", out)
}

func TestRun_WritesDefaultExportAndSummary(t *testing.T) {
	dir, root, _ := setupProject(t)

	code, out, stderr := runCLI(t, "-f", root)
	require.Equal(t, 0, code, stderr)

	assert.Contains(t, out, "Dependency Graph Summary")
	assert.Contains(t, out, "Modules:   5")
	assert.Contains(t, out, "1 significant")
	assert.FileExists(t, filepath.Join(dir, "out", "diagram.plantuml"))
}

func TestRun_FlagsOverrideConfig(t *testing.T) {
	dir, root, cfgPath := setupProject(t)

	code, _, stderr := runCLI(t, "--config", cfgPath, "-f", root, "--format", "csv-referencers", "-o", "exports", "-q")
	require.Equal(t, 0, code, stderr)

	data, err := os.ReadFile(filepath.Join(dir, "exports", "referencers.csv"))
	require.NoError(t, err)
	assert.NotEmpty(t, data)
	assert.NoFileExists(t, filepath.Join(dir, "out", "diagram.plantuml"))
}

func TestRun_QuietSuppressesSummary(t *testing.T) {
	_, root, _ := setupProject(t)

	code, out, _ := runCLI(t, "-f", root, "-q")
	require.Equal(t, 0, code)
	assert.Empty(t, out)
}

func TestRun_Failures(t *testing.T) {
	_, root, _ := setupProject(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing root file", []string{"-f", "nope.module.toml"}, "root file does not exist"},
		{"no root", nil, "no root given"},
		{"unknown format", []string{"-f", root, "--format", "svg"}, "svg"},
		{"trace needs two modules", []string{"-f", root, "--trace", "A@1.0"}, "--trace requires two modules"},
		{"stray arguments", []string{"-f", root, "extra"}, "unknown command"},
		{"explicit config missing", []string{"-f", root, "--config", "missing.toml"}, "load config"},
		{"quiet and verbose", []string{"-f", root, "-q", "--verbose"}, "quiet"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, stderr := runCLI(t, tt.args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, stderr, tt.want)
		})
	}
}

func TestRun_TracePrintsChain(t *testing.T) {
	_, root, _ := setupProject(t)

	code, out, stderr := runCLI(t, "-f", root, "--trace", "A@1.0", "D@2.0")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "Dependency chain: A, Version=1.0.0.0 -> D, Version=2.0.0.0")
	assert.Contains(t, out, "C, Version=1.0.0.0")
}

func TestRun_ImpactReport(t *testing.T) {
	_, root, _ := setupProject(t)

	code, out, stderr := runCLI(t, "-f", root, "--impact", "D")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "Impact Analysis")
	assert.Contains(t, out, "Collected versions: 1.0.0, 2.0.0")
}

func TestRun_HistoryWritesTrendExports(t *testing.T) {
	dir, root, _ := setupProject(t)
	tsv := filepath.Join(dir, "trend", "trend.tsv")
	jsonPath := filepath.Join(dir, "trend", "trend.json")

	code, _, stderr := runCLI(t, "-f", root, "-q", "--history")
	require.Equal(t, 0, code, stderr)

	code, out, stderr := runCLI(t, "-f", root, "--history", "--history-tsv", tsv, "--history-json", jsonPath)
	require.Equal(t, 0, code, stderr)

	assert.Contains(t, out, "History: 2 runs")
	assert.Contains(t, out, "Trend latest: modules=5 (+0)")
	assert.FileExists(t, tsv)
	assert.FileExists(t, jsonPath)
	assert.FileExists(t, filepath.Join(dir, ".depgrapher", "history.db"))
}

func TestParseSince(t *testing.T) {
	ts, err := parseSince("")
	require.NoError(t, err)
	assert.True(t, ts.IsZero())

	ts, err = parseSince("2026-01-02T03:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), ts)

	ts, err = parseSince("2026-01-02")
	require.NoError(t, err)
	assert.Equal(t, 2, ts.Day())

	_, err = parseSince("yesterday")
	assert.Error(t, err)
}

func TestParseHistoryWindow(t *testing.T) {
	w, err := parseHistoryWindow("24h")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, w)

	_, err = parseHistoryWindow("-1h")
	assert.Error(t, err)

	_, err = parseHistoryWindow("soon")
	assert.Error(t, err)
}

func TestApplyFlagOverrides_OnlyChangedFlags(t *testing.T) {
	dir, _, cfgPath := setupProject(t)
	opts := &options{
		configPath: cfgPath,
		format:     "overview",
		source:     "https://example.invalid/v3/index.json",
		changed:    func(name string) bool { return name == "format" },
	}

	cfg, paths, path, err := loadConfig(opts, dir)
	require.NoError(t, err)
	assert.Equal(t, "overview", cfg.Output.Format)
	assert.Equal(t, "nuget.org", cfg.Registry.Source)
	assert.True(t, cfg.Registry.Offline)
	assert.Equal(t, cfgPath, path)
	assert.Equal(t, filepath.Join(dir, "out"), paths.OutputDir)
}

func TestLoadConfig_WithoutFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfg, paths, path, err := loadConfig(&options{}, dir)
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, "plantuml", cfg.Output.Format)
	assert.Equal(t, filepath.Join(dir, ".depgrapher", "packages"), paths.CacheDir)
}
