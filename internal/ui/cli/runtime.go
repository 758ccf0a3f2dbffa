package cli

import (
	"context"
	coreapp "depgrapher/internal/core/app"
	"depgrapher/internal/core/config"
	domainerrors "depgrapher/internal/core/errors"
	"depgrapher/internal/data/history"
	"depgrapher/internal/engine/identity"
	"depgrapher/internal/shared/observability"
	"depgrapher/internal/shared/util"
	"depgrapher/internal/ui/report"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

func run(ctx context.Context, opts *options) error {
	cleanupLogs := configureLogging(opts)
	defer cleanupLogs()

	cwd, err := os.Getwd()
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeSetup, "detect working directory")
	}

	traceFrom, traceTo, err := parseTraceArgs(opts)
	if err != nil {
		return err
	}

	cfg, paths, cfgPath, err := loadConfig(opts, cwd)
	if err != nil {
		return err
	}

	shutdown, err := observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint, "depgrapher")
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	} else {
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				slog.Warn("failed to flush traces", "error", err)
			}
		}()
	}

	historyStore, err := openHistoryStoreIfEnabled(opts.history, cfg, paths)
	if err != nil {
		return err
	}
	if historyStore != nil {
		defer historyStore.Close()
	}

	application, err := coreapp.New(cfg, paths,
		coreapp.WithWorkDir(cwd),
		coreapp.WithHistory(historyStore),
	)
	if err != nil {
		return err
	}

	req := coreapp.Request{
		Files:   opts.files,
		Name:    opts.name,
		Version: opts.version,
		Format:  report.Format(cfg.Output.Format),
	}
	result, err := application.Run(ctx, req)
	if err != nil {
		return err
	}

	if opts.trace {
		out, err := application.TraceChain(traceFrom, traceTo)
		if err != nil {
			return err
		}
		fmt.Fprintln(opts.stdout, out)
		return nil
	}
	if opts.impact != "" {
		impact, err := application.AnalyzeImpact(opts.impact)
		if err != nil {
			return err
		}
		fmt.Fprint(opts.stdout, coreapp.FormatImpactReport(impact))
		return nil
	}

	trend, err := runHistoryMode(opts, application, result.RootKey)
	if err != nil {
		return err
	}

	if !opts.ui && !opts.quiet {
		printSummary(opts.stdout, result)
	}

	if !opts.watch {
		if opts.ui {
			return runUI(ctx, application, trend, nil)
		}
		return nil
	}

	if addr := cfg.Observability.MetricsAddr; addr != "" {
		server := NewObservabilityServer(addr, coreapp.NewHealthService(application))
		if err := server.Start(ctx); err != nil {
			return err
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Stop(stopCtx)
		}()
	}

	watchOpts := coreapp.WatchOptions{
		ConfigPath: cfgPath,
		Reload: func() (*config.Config, config.ResolvedPaths, error) {
			cfg, paths, _, err := loadConfig(opts, cwd)
			return cfg, paths, err
		},
	}
	watch := func(ctx context.Context) error {
		return application.Watch(ctx, req, watchOpts)
	}
	if opts.ui {
		return runUI(ctx, application, trend, watch)
	}
	if !opts.quiet {
		printSummaryUpdates(opts.stdout, application)
	}
	return watch(ctx)
}

// loadConfig resolves the config file, environment and flags into a
// validated configuration. Relative config values are anchored at the config
// file's directory, relative flag values at the working directory.
func loadConfig(opts *options, cwd string) (*config.Config, config.ResolvedPaths, string, error) {
	path := strings.TrimSpace(opts.configPath)
	explicit := path != ""
	if !explicit {
		path = filepath.Join(cwd, config.DefaultFile)
	}

	cfg, err := config.LoadOptional(path, explicit)
	if err != nil {
		return nil, config.ResolvedPaths{}, "", domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeValidationError, "load config"),
			domainerrors.CtxPath, path)
	}
	config.ApplyEnvOverrides(cfg)
	applyFlagOverrides(cfg, opts, cwd)
	if err := config.Validate(cfg); err != nil {
		return nil, config.ResolvedPaths{}, "", domainerrors.Wrap(err, domainerrors.CodeValidationError, "invalid configuration")
	}

	base := cwd
	if util.FileExists(path) {
		base = filepath.Dir(path)
	} else {
		path = ""
	}
	paths, err := config.ResolvePaths(cfg, base)
	if err != nil {
		return nil, config.ResolvedPaths{}, "", domainerrors.Wrap(err, domainerrors.CodeSetup, "resolve paths")
	}
	return cfg, paths, path, nil
}

func applyFlagOverrides(cfg *config.Config, opts *options, cwd string) {
	changed := opts.changed
	if changed == nil {
		changed = func(string) bool { return false }
	}
	if changed("source") {
		cfg.Registry.Source = strings.TrimSpace(opts.source)
	}
	if changed("format") {
		cfg.Output.Format = strings.ToLower(strings.TrimSpace(opts.format))
	}
	if changed("output") {
		cfg.Output.Dir = config.ResolveRelative(cwd, opts.output)
	}
	if changed("offline") {
		cfg.Registry.Offline = opts.offline
	}
	if opts.history {
		cfg.DB.Enabled = true
	}
}

func parseTraceArgs(opts *options) (identity.Identity, identity.Identity, error) {
	if !opts.trace {
		return identity.Identity{}, identity.Identity{}, nil
	}
	from, err := coreapp.ParseRef(opts.args[0])
	if err != nil {
		return identity.Identity{}, identity.Identity{}, err
	}
	to, err := coreapp.ParseRef(opts.args[1])
	if err != nil {
		return identity.Identity{}, identity.Identity{}, err
	}
	return from, to, nil
}

func openHistoryStoreIfEnabled(enabled bool, cfg *config.Config, paths config.ResolvedPaths) (*history.Store, error) {
	if !enabled && !cfg.DB.Enabled {
		return nil, nil
	}
	store, err := history.Open(paths.DBPath)
	if err != nil {
		if history.IsCorruptError(err) {
			return nil, domainerrors.AddContext(
				domainerrors.Wrap(err, domainerrors.CodeSetup, "history database is corrupt; remove it to start over"),
				domainerrors.CtxPath, paths.DBPath)
		}
		return nil, domainerrors.Wrap(err, domainerrors.CodeSetup, "open history store")
	}
	return store, nil
}

func runHistoryMode(opts *options, application *coreapp.App, rootKey string) (*history.TrendReport, error) {
	if !opts.history {
		return nil, nil
	}
	since, err := parseSince(opts.since)
	if err != nil {
		return nil, err
	}
	window, err := parseHistoryWindow(opts.historyWindow)
	if err != nil {
		return nil, err
	}

	trend, err := application.Trend(rootKey, since, window)
	if err != nil {
		return nil, err
	}
	if trend == nil {
		fmt.Fprintln(opts.stdout, "History: no runs matched the requested time window.")
		return nil, nil
	}

	fmt.Fprintf(opts.stdout, "History: %d runs from %s to %s\n",
		trend.RunCount,
		trend.Since.Local().Format("2006-01-02 15:04:05"),
		trend.Until.Local().Format("2006-01-02 15:04:05"))
	if len(trend.Points) > 0 {
		latest := trend.Points[len(trend.Points)-1]
		fmt.Fprintf(opts.stdout, "Trend latest: modules=%d (%+d), significant conflicts=%d (%+d), misses=%d (%+d)\n",
			latest.ModuleCount, latest.DeltaModules,
			latest.SignificantConflicts, latest.DeltaConflicts,
			latest.MissCount, latest.DeltaMisses)
	}

	if opts.historyTSV != "" {
		tsv, err := report.RenderTrendTSV(*trend)
		if err != nil {
			return nil, fmt.Errorf("render trend TSV: %w", err)
		}
		if err := util.WriteFileWithDirs(opts.historyTSV, tsv, 0o644); err != nil {
			return nil, fmt.Errorf("write trend TSV %q: %w", opts.historyTSV, err)
		}
	}
	if opts.historyJSON != "" {
		raw, err := report.RenderTrendJSON(*trend)
		if err != nil {
			return nil, fmt.Errorf("render trend JSON: %w", err)
		}
		if err := util.WriteFileWithDirs(opts.historyJSON, raw, 0o644); err != nil {
			return nil, fmt.Errorf("write trend JSON %q: %w", opts.historyJSON, err)
		}
	}
	return trend, nil
}

func parseSince(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	if ts, err := time.ParseInLocation("2006-01-02", value, time.Local); err == nil {
		return ts, nil
	}
	return time.Time{}, domainerrors.Newf(domainerrors.CodeValidationError, "invalid --since %q: use RFC3339 or YYYY-MM-DD", value)
}

func parseHistoryWindow(value string) (time.Duration, error) {
	window, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, domainerrors.Wrap(err, domainerrors.CodeValidationError, "invalid --history-window")
	}
	if window < 0 {
		return 0, domainerrors.New(domainerrors.CodeValidationError, "--history-window must not be negative")
	}
	return window, nil
}
