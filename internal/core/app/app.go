// Package app wires configuration, resolution, collection, analysis and
// output into a single run.
package app

import (
	"context"
	"depgrapher/internal/core/config"
	domainerrors "depgrapher/internal/core/errors"
	"depgrapher/internal/data/history"
	"depgrapher/internal/engine/collector"
	"depgrapher/internal/engine/conflict"
	"depgrapher/internal/engine/graph"
	"depgrapher/internal/engine/identity"
	"depgrapher/internal/engine/metadata"
	"depgrapher/internal/engine/resolver"
	"depgrapher/internal/shared/observability"
	"depgrapher/internal/shared/util"
	"depgrapher/internal/ui/report"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Request selects the roots and the artifact of one run. Either Files or
// Name and Version must be set, never both.
type Request struct {
	Files   []string
	Name    string
	Version string
	Format  report.Format
}

// Result is everything a finished run produced. Store is frozen.
type Result struct {
	RunID            string
	RootKey          string
	Roots            []identity.Identity
	Store            *graph.Store
	Conflicts        conflict.Report
	SelfDependencies []identity.Identity
	Misses           []collector.Miss
	Stats            collector.Stats
	Format           report.Format
	OutputPath       string
	Started          time.Time
	Duration         time.Duration
}

type App struct {
	mu       sync.RWMutex
	config   *config.Config
	paths    config.ResolvedPaths
	workDir  string
	logger   *slog.Logger
	registry *metadata.Registry
	ignore   *collector.Ignore
	fetcher  resolver.Fetcher
	fixed    bool // fetcher injected, survives Reconfigure
	history  *history.Store
	sink     collector.EventSink

	last     *Result
	lastErr  error
	onUpdate func(*Result)
}

type Option func(*App)

func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithFetcher replaces the package manager fetcher built from the config.
func WithFetcher(f resolver.Fetcher) Option {
	return func(a *App) {
		a.fetcher = f
		a.fixed = true
	}
}

// WithHistory records a summary of every run in store.
func WithHistory(store *history.Store) Option {
	return func(a *App) { a.history = store }
}

// WithWorkDir sets the directory searched for co-located artifacts when the
// root is given by name and version.
func WithWorkDir(dir string) Option {
	return func(a *App) { a.workDir = dir }
}

func WithEventSink(sink collector.EventSink) Option {
	return func(a *App) { a.sink = sink }
}

func New(cfg *config.Config, paths config.ResolvedPaths, opts ...Option) (*App, error) {
	a := &App{
		paths:  paths,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, domainerrors.Wrap(err, domainerrors.CodeSetup, "detect working directory")
		}
		a.workDir = wd
	}
	if err := a.Reconfigure(cfg, paths); err != nil {
		return nil, err
	}
	return a, nil
}

// Reconfigure rebuilds the config-derived collaborators. The next run uses
// them; a run in progress is not affected.
func (a *App) Reconfigure(cfg *config.Config, paths config.ResolvedPaths) error {
	if cfg == nil {
		return domainerrors.New(domainerrors.CodeSetup, "configuration is required")
	}
	ignore, err := collector.NewIgnore(cfg.Ignore.Patterns)
	if err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeValidationError, "invalid ignore patterns")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.config = cfg
	a.paths = paths
	a.ignore = ignore
	a.registry = metadata.DefaultRegistry(cfg.Metadata.PreferredFramework)
	if !a.fixed {
		a.fetcher = newFetcher(cfg, a.logger)
	}
	return nil
}

func newFetcher(cfg *config.Config, logger *slog.Logger) resolver.Fetcher {
	if cfg.Registry.Offline {
		return nil
	}
	return &resolver.CommandFetcher{
		Command:        cfg.Registry.Command,
		Args:           cfg.Registry.Args,
		Source:         cfg.Registry.Source,
		FallbackSource: cfg.Registry.FallbackSource,
		Timeout:        cfg.Registry.FetchTimeout,
		Limiter:        util.NewLimiter(cfg.Registry.FetchRate, cfg.Registry.FetchBurst),
		Logger:         logger,
	}
}

func (a *App) Config() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.config
}

func (a *App) Paths() config.ResolvedPaths {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.paths
}

// SetUpdateHandler registers fn to receive every successful run result.
func (a *App) SetUpdateHandler(fn func(*Result)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onUpdate = fn
}

// Last returns the most recent successful result, or nil.
func (a *App) Last() *Result {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last
}

// plan is a validated request.
type plan struct {
	files  []string
	root   identity.Identity
	format report.Format
}

func (a *App) plan(req Request, cfg *config.Config) (plan, error) {
	var p plan

	raw := string(req.Format)
	if raw == "" {
		raw = cfg.Output.Format
	}
	format, err := report.ParseFormat(raw)
	if err != nil {
		return plan{}, err
	}
	p.format = format

	name := strings.TrimSpace(req.Name)
	version := strings.TrimSpace(req.Version)
	switch {
	case len(req.Files) > 0 && (name != "" || version != ""):
		return plan{}, domainerrors.New(domainerrors.CodeValidationError, "root files and a name/version root are mutually exclusive")
	case len(req.Files) > 0:
		for _, f := range req.Files {
			abs, err := filepath.Abs(f)
			if err != nil {
				return plan{}, domainerrors.AddContext(
					domainerrors.Wrap(err, domainerrors.CodeValidationError, "resolve root file"),
					domainerrors.CtxPath, f)
			}
			if !util.FileExists(abs) {
				return plan{}, domainerrors.AddContext(
					domainerrors.New(domainerrors.CodeValidationError, "root file does not exist"),
					domainerrors.CtxPath, f)
			}
			p.files = append(p.files, abs)
		}
	case name != "" && version != "":
		id, err := identity.Parse(name, version)
		if err != nil {
			return plan{}, domainerrors.Wrap(err, domainerrors.CodeValidationError, "invalid root version")
		}
		p.root = id
	case name != "" || version != "":
		return plan{}, domainerrors.New(domainerrors.CodeValidationError, "a name root needs both name and version")
	default:
		return plan{}, domainerrors.New(domainerrors.CodeValidationError, "no root given: pass files or a name and version")
	}
	return p, nil
}

// Run collects the graph for req, analyzes it and writes the requested
// artifact. Unresolvable modules are logged and skipped; only setup failures
// and cancellation return an error.
func (a *App) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	ctx, span := observability.Tracer.Start(ctx, "app.Run")
	defer span.End()

	result, err := a.run(ctx, req, start)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		outcome := "setup_error"
		if collector.IsCanceled(err) {
			outcome = "canceled"
		}
		observability.RunsTotal.WithLabelValues(outcome).Inc()
		a.mu.Lock()
		a.lastErr = err
		a.mu.Unlock()
		return nil, err
	}

	span.SetAttributes(
		attribute.String("run.id", result.RunID),
		attribute.Int("graph.modules", result.Store.ModuleCount()),
		attribute.Int("graph.misses", len(result.Misses)),
	)
	observability.RunsTotal.WithLabelValues("ok").Inc()
	a.exportMetrics()

	a.mu.Lock()
	a.last = result
	a.lastErr = nil
	handler := a.onUpdate
	a.mu.Unlock()
	if handler != nil {
		handler(result)
	}
	return result, nil
}

func (a *App) run(ctx context.Context, req Request, start time.Time) (*Result, error) {
	a.mu.RLock()
	cfg, paths := a.config, a.paths
	registry, ignore, fetcher, sink := a.registry, a.ignore, a.fetcher, a.sink
	a.mu.RUnlock()

	p, err := a.plan(req, cfg)
	if err != nil {
		return nil, err
	}
	if err := util.EnsureWritableDir(paths.OutputDir); err != nil {
		return nil, domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeSetup, "output directory is not writable"),
			domainerrors.CtxPath, paths.OutputDir)
	}

	runID := uuid.NewString()
	logger := a.logger.With("run_id", runID)

	chainOpts := []resolver.Option{resolver.WithLogger(logger)}
	if fetcher != nil {
		chainOpts = append(chainOpts, resolver.WithFetcher(fetcher))
	}
	if len(p.files) == 0 {
		chainOpts = append(chainOpts, resolver.WithLocalDirs(a.workDir))
	}
	chain := resolver.NewChain(registry, paths.CacheDir, chainOpts...)

	roots := a.loadRoots(chain, p, logger)
	logger.Info("collecting dependency graph", "roots", len(roots), "format", string(p.format))

	store := graph.NewStore()
	colOpts := []collector.Option{collector.WithLogger(logger)}
	if sink != nil {
		colOpts = append(colOpts, collector.WithEventSink(sink))
	}
	col := collector.New(store, chain, ignore, colOpts...)
	if err := col.CollectAll(ctx, roots); err != nil {
		return nil, err
	}
	store.Freeze()

	analyzeStart := time.Now()
	conflicts := conflict.Analyze(store)
	conflicts.Log(logger)
	selfDeps := graph.SelfDependencies(store)
	for _, id := range selfDeps {
		logger.Warn("module depends on another version of itself", "module", id.Name, "version", id.Version.String())
	}
	observability.AnalysisDuration.WithLabelValues("analyze").Observe(time.Since(analyzeStart).Seconds())

	path, err := report.WriteFile(paths.OutputDir, p.format, store)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:            runID,
		RootKey:          RootKey(roots),
		Roots:            roots,
		Store:            store,
		Conflicts:        conflicts,
		SelfDependencies: selfDeps,
		Misses:           col.Misses(),
		Stats:            col.Stats(),
		Format:           p.format,
		OutputPath:       path,
		Started:          start,
		Duration:         time.Since(start),
	}
	recordGauges(result)
	a.saveHistory(result, logger)

	logger.Info("dependency graph written",
		"path", path,
		"modules", store.ModuleCount(),
		"names", len(store.Names()),
		"misses", len(result.Misses),
		"duration", result.Duration.Round(time.Millisecond))
	return result, nil
}

// loadRoots reads root files into the chain. An unreadable root is a
// resolution miss like any other.
func (a *App) loadRoots(chain *resolver.Chain, p plan, logger *slog.Logger) []identity.Identity {
	if len(p.files) == 0 {
		return []identity.Identity{p.root}
	}
	roots := make([]identity.Identity, 0, len(p.files))
	for _, path := range p.files {
		mod, err := chain.LoadFile(path)
		if err != nil {
			logger.Warn("could not read root module", "path", path, "error", err)
			continue
		}
		roots = append(roots, mod.ID)
	}
	return roots
}

func recordGauges(r *Result) {
	observability.GraphNodes.Set(float64(r.Store.ModuleCount()))
	observability.GraphEdges.Set(float64(r.Store.EdgeCount()))
	for severity, n := range r.Conflicts.Count() {
		observability.Conflicts.WithLabelValues(string(severity)).Set(float64(n))
	}
	observability.Conflicts.WithLabelValues("platform").Set(float64(r.Conflicts.PlatformConflicts()))
	observability.SelfDependencies.Set(float64(len(r.SelfDependencies)))
}

func (a *App) saveHistory(r *Result, logger *slog.Logger) {
	if a.history == nil {
		return
	}
	counts := r.Conflicts.Count()
	_, err := a.history.SaveRun(history.Run{
		RunID:                r.RunID,
		RootKey:              r.RootKey,
		Timestamp:            r.Started.UTC(),
		Duration:             r.Duration,
		ModuleCount:          r.Store.ModuleCount(),
		NameCount:            len(r.Store.Names()),
		EdgeCount:            r.Store.EdgeCount(),
		MissCount:            len(r.Misses),
		SignificantConflicts: counts[conflict.Significant],
		TrivialConflicts:     counts[conflict.Trivial],
		PlatformConflicts:    r.Conflicts.PlatformConflicts(),
		SelfDependencies:     len(r.SelfDependencies),
	})
	if err != nil {
		logger.Warn("could not record run history", "error", err, "path", a.history.Path())
	}
}

func (a *App) exportMetrics() {
	path := a.Paths().MetricsFile
	if path == "" {
		return
	}
	if err := observability.WriteTextfile(path); err != nil {
		a.logger.Warn("could not write metrics file", "path", path, "error", err)
	}
}

// RootKey groups runs that started from the same roots.
func RootKey(roots []identity.Identity) string {
	keys := make([]string, 0, len(roots))
	for _, id := range roots {
		keys = append(keys, fmt.Sprintf("%s@%s", id.Name, id.Version))
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

// Trend summarizes the stored runs of rootKey since the given time. It
// returns nil when nothing was recorded.
func (a *App) Trend(rootKey string, since time.Time, window time.Duration) (*history.TrendReport, error) {
	if a.history == nil {
		return nil, domainerrors.New(domainerrors.CodeSetup, "run history is not enabled")
	}
	runs, err := a.history.LoadRuns(rootKey, since)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	trend, err := history.BuildTrendReport(rootKey, runs, window)
	if err != nil {
		return nil, err
	}
	return &trend, nil
}

// IsSetupError reports whether err stems from invalid input or environment
// rather than from the graph itself.
func IsSetupError(err error) bool {
	return domainerrors.IsCode(err, domainerrors.CodeSetup) ||
		domainerrors.IsCode(err, domainerrors.CodeValidationError)
}
