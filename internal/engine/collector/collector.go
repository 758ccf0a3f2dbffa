// Package collector walks module references from one or more roots and
// records every resolvable module in a graph.Store.
package collector

import (
	"context"
	"depgrapher/internal/engine/graph"
	"depgrapher/internal/engine/identity"
	"depgrapher/internal/engine/metadata"
	"depgrapher/internal/shared/observability"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Provider resolves an identity to the metadata of exactly that module.
type Provider interface {
	Resolve(ctx context.Context, id identity.Identity) (*metadata.Module, error)
}

type EventKind string

const (
	EventResolved EventKind = "resolved"
	EventMiss     EventKind = "miss"
	EventIgnored  EventKind = "ignored"
)

// Event describes one collection step. From is the zero Identity for roots.
type Event struct {
	Kind     EventKind
	ID       identity.Identity
	From     identity.Identity
	Platform string
	Err      error
}

// IsRoot reports whether the event concerns a root identity.
func (e Event) IsRoot() bool { return e.From == (identity.Identity{}) }

type EventSink func(Event)

// Miss is an identity that could not be resolved, with the first error seen.
type Miss struct {
	ID  identity.Identity
	Err error
}

type Stats struct {
	Resolved int
	Misses   int
	Ignored  int
}

// Collector is the single writer of a graph.Store during collection.
type Collector struct {
	store    *graph.Store
	provider Provider
	ignore   *Ignore
	logger   *slog.Logger
	sink     EventSink

	misses   map[identity.Identity]error
	missList []identity.Identity
	stats    Stats
}

type Option func(*Collector)

func WithLogger(l *slog.Logger) Option {
	return func(c *Collector) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithEventSink(sink EventSink) Option {
	return func(c *Collector) { c.sink = sink }
}

func New(store *graph.Store, provider Provider, ignore *Ignore, opts ...Option) *Collector {
	if ignore == nil {
		ignore = DefaultIgnore()
	}
	c := &Collector{
		store:    store,
		provider: provider,
		ignore:   ignore,
		logger:   slog.Default(),
		misses:   make(map[identity.Identity]error),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type frame struct {
	id   identity.Identity
	from identity.Identity
}

// CollectAll collects every root into the shared store, in order.
func (c *Collector) CollectAll(ctx context.Context, roots []identity.Identity) error {
	start := time.Now()
	defer func() {
		observability.AnalysisDuration.WithLabelValues("collect").Observe(time.Since(start).Seconds())
	}()
	for _, root := range roots {
		if err := c.Collect(ctx, root); err != nil {
			return err
		}
	}
	return nil
}

// Collect walks everything reachable from root depth first in declaration
// order. Resolution failures are recorded and skipped; only context
// cancellation stops the walk.
func (c *Collector) Collect(ctx context.Context, root identity.Identity) error {
	ctx, span := observability.Tracer.Start(ctx, "collector.Collect", observability.ModuleAttrs(root.Name, root.Version.String()))
	defer span.End()

	before := c.stats
	stack := []frame{{id: root}}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return err
		}

		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if c.ignore.ShouldIgnore(top.id) {
			c.ignored(top)
			continue
		}
		if c.store.Has(top.id) {
			continue
		}
		if _, missed := c.misses[top.id]; missed {
			continue
		}

		mod, err := c.provider.Resolve(ctx, top.id)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				span.SetStatus(codes.Error, ctxErr.Error())
				return ctxErr
			}
			c.miss(top, err)
			continue
		}

		c.store.AddModule(top.id, mod.TargetPlatform)
		c.stats.Resolved++
		c.emit(Event{Kind: EventResolved, ID: top.id, From: top.from, Platform: c.store.Platform(top.id)})

		children := make([]identity.Identity, 0, len(mod.References))
		for _, ref := range mod.References {
			if c.ignore.ShouldIgnore(ref) {
				c.ignored(frame{id: ref, from: top.id})
				continue
			}
			if err := c.store.AddEdge(top.id, ref); err != nil {
				return err
			}
			children = append(children, ref)
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, frame{id: children[i], from: top.id})
		}
	}

	span.AddEvent("collected", trace.WithAttributes(
		attribute.Int("resolved", c.stats.Resolved-before.Resolved),
		attribute.Int("misses", c.stats.Misses-before.Misses),
	))
	return nil
}

func (c *Collector) miss(f frame, err error) {
	c.misses[f.id] = err
	c.missList = append(c.missList, f.id)
	c.stats.Misses++

	attrs := []any{"module", f.id.Name, "version", f.id.Version.String(), "error", err}
	if f.from != (identity.Identity{}) {
		attrs = append(attrs, "referenced_by", f.from.String())
	}
	c.logger.Warn("could not resolve module", attrs...)
	c.emit(Event{Kind: EventMiss, ID: f.id, From: f.from, Err: err})
}

func (c *Collector) ignored(f frame) {
	c.stats.Ignored++
	observability.IgnoredReferencesTotal.Inc()
	c.logger.Debug("ignoring reserved module", "module", f.id.Name, "version", f.id.Version.String())
	c.emit(Event{Kind: EventIgnored, ID: f.id, From: f.from})
}

func (c *Collector) emit(e Event) {
	if c.sink != nil {
		c.sink(e)
	}
}

// Misses returns unresolved identities in discovery order.
func (c *Collector) Misses() []Miss {
	out := make([]Miss, 0, len(c.missList))
	for _, id := range c.missList {
		out = append(out, Miss{ID: id, Err: c.misses[id]})
	}
	return out
}

func (c *Collector) Stats() Stats { return c.stats }

// IsCanceled reports whether err ended a collection early.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
