// # internal/engine/resolver/resolver.go
package resolver

import (
	"context"
	domainerrors "depgrapher/internal/core/errors"
	"depgrapher/internal/engine/identity"
	"depgrapher/internal/engine/metadata"
	"depgrapher/internal/shared/observability"
	"depgrapher/internal/shared/util"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/codes"
)

// Resolution step labels, also used as the metrics "source" label.
const (
	SourceLoaded       = "loaded"
	SourceLocal        = "local"
	SourcePackageCache = "package_cache"
	SourceFetched      = "fetched"
)

// Fetcher downloads a module into destDir. A fetch has failed when the
// module's cache directory does not exist afterwards, whatever the error.
type Fetcher interface {
	Fetch(ctx context.Context, id identity.Identity, destDir string) error
}

// Chain resolves module identities to their declared metadata by trying, in
// order: modules already loaded in this run, artifacts next to the roots,
// the local package cache, and finally a package-manager fetch into that cache.
type Chain struct {
	registry  *metadata.Registry
	fetcher   Fetcher
	cacheDir  string
	localDirs []string
	logger    *slog.Logger

	mu     sync.Mutex
	loaded map[identity.Identity]*metadata.Module
}

type Option func(*Chain)

func WithFetcher(f Fetcher) Option {
	return func(c *Chain) { c.fetcher = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Chain) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithLocalDirs sets the directories searched for co-located artifacts.
func WithLocalDirs(dirs ...string) Option {
	return func(c *Chain) {
		for _, d := range dirs {
			c.AddLocalDir(d)
		}
	}
}

func NewChain(registry *metadata.Registry, cacheDir string, opts ...Option) *Chain {
	if registry == nil {
		registry = metadata.DefaultRegistry("")
	}
	c := &Chain{
		registry: registry,
		cacheDir: cacheDir,
		logger:   slog.Default(),
		loaded:   make(map[identity.Identity]*metadata.Module),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddLocalDir appends dir to the co-located artifact search path once.
func (c *Chain) AddLocalDir(dir string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.localDirs {
		if existing == dir {
			return
		}
	}
	c.localDirs = append(c.localDirs, dir)
}

// LoadFile reads a root artifact, registers it as loaded and adds its
// directory to the co-located search path.
func (c *Chain) LoadFile(path string) (*metadata.Module, error) {
	mod, err := c.registry.Read(path)
	if err != nil {
		return nil, err
	}
	c.register(mod)
	c.AddLocalDir(filepath.Dir(path))
	return mod, nil
}

// Loaded returns how many distinct modules have been read so far.
func (c *Chain) Loaded() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.loaded)
}

// register keeps the first module seen for an identity.
func (c *Chain) register(mod *metadata.Module) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.loaded[mod.ID]; !ok {
		c.loaded[mod.ID] = mod
	}
}

func (c *Chain) lookup(id identity.Identity) (*metadata.Module, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	mod, ok := c.loaded[id]
	return mod, ok
}

// Resolve returns the metadata of exactly id, or a NOT_FOUND error.
func (c *Chain) Resolve(ctx context.Context, id identity.Identity) (*metadata.Module, error) {
	ctx, span := observability.Tracer.Start(ctx, "resolver.Resolve", observability.ModuleAttrs(id.Name, id.Version.String()))
	defer span.End()

	mod, source, err := c.resolve(ctx, id)
	if err != nil {
		observability.ResolutionMissesTotal.Inc()
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	observability.ModulesResolvedTotal.WithLabelValues(source).Inc()
	return mod, nil
}

func (c *Chain) resolve(ctx context.Context, id identity.Identity) (*metadata.Module, string, error) {
	if mod, ok := c.lookup(id); ok {
		return mod, SourceLoaded, nil
	}

	if mod, ok := c.resolveLocal(id); ok {
		return mod, SourceLocal, nil
	}

	source := SourcePackageCache
	dir := c.cacheDirFor(id)
	if !util.DirExists(dir) {
		if c.fetcher == nil {
			return nil, "", notFound(id, "not in package cache and fetching is disabled")
		}
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		if err := c.fetcher.Fetch(ctx, id, c.cacheDir); err != nil {
			c.logger.Debug("package fetch reported an error", "module", id.Name, "version", id.Version.String(), "error", err)
		}
		if !util.DirExists(dir) {
			observability.FetchFailuresTotal.Inc()
			return nil, "", domainerrors.AddContext(
				domainerrors.New(domainerrors.CodeFetchFailed, "package fetch did not produce cache directory"),
				domainerrors.CtxPath, dir)
		}
		source = SourceFetched
	}

	artifact, ok := c.firstArtifact(dir)
	if !ok {
		return nil, "", notFound(id, "no readable artifact in package cache directory")
	}

	mod, err := c.registry.Read(artifact)
	if err != nil {
		return nil, "", err
	}
	c.register(mod)
	if mod.ID != id {
		return nil, "", domainerrors.AddContext(
			notFound(id, "cached artifact declares "+mod.ID.String()),
			domainerrors.CtxPath, artifact)
	}
	return mod, source, nil
}

func (c *Chain) resolveLocal(id identity.Identity) (*metadata.Module, bool) {
	c.mu.Lock()
	dirs := append([]string(nil), c.localDirs...)
	c.mu.Unlock()
	if len(dirs) == 0 {
		dirs = []string{""}
	}

	for _, dir := range dirs {
		for _, suffix := range c.registry.Suffixes() {
			path := filepath.Join(dir, id.Name+suffix)
			if !util.FileExists(path) {
				continue
			}
			mod, err := c.registry.Read(path)
			if err != nil {
				c.logger.Warn("failed to read co-located artifact", "path", path, "error", err)
				continue
			}
			c.register(mod)
			if mod.ID == id {
				return mod, true
			}
			c.logger.Debug("co-located artifact has a different version", "path", path, "want", id.String(), "got", mod.ID.String())
		}
	}
	return nil, false
}

func (c *Chain) cacheDirFor(id identity.Identity) string {
	return filepath.Join(c.cacheDir, id.CacheKey())
}

// firstArtifact returns the first supported artifact under dir in lexical
// path order.
func (c *Chain) firstArtifact(dir string) (string, bool) {
	var candidates []string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.Type().IsRegular() && c.registry.Supports(path) {
			candidates = append(candidates, path)
		}
		return nil
	})
	if len(candidates) == 0 {
		return "", false
	}
	sort.Strings(candidates)
	return candidates[0], true
}

func notFound(id identity.Identity, reason string) error {
	err := domainerrors.New(domainerrors.CodeNotFound, reason)
	err = domainerrors.AddContext(err, domainerrors.CtxModule, id.Name)
	return domainerrors.AddContext(err, domainerrors.CtxVersion, id.Version.String())
}

// IsMiss reports whether err is one of the non-fatal resolution failures:
// not found, fetch failure or malformed metadata.
func IsMiss(err error) bool {
	switch domainerrors.CodeOf(err) {
	case domainerrors.CodeNotFound, domainerrors.CodeFetchFailed, domainerrors.CodeMalformed, domainerrors.CodeValidationError:
		return true
	}
	return false
}
