// Package conflict reports module names that were collected in more than one
// version. It only reads the graph.
package conflict

import (
	"context"
	"depgrapher/internal/engine/graph"
	"depgrapher/internal/engine/identity"
	"log/slog"
	"sort"
)

type Severity string

const (
	// Trivial conflicts differ only in build or revision.
	Trivial     Severity = "trivial"
	Significant Severity = "significant"
)

type Referencer struct {
	ID       identity.Identity
	Platform string
}

// VersionUsage is one conflicting version and the modules that asked for it.
type VersionUsage struct {
	Version     identity.Version
	Platform    string
	Referencers []Referencer
}

type Conflict struct {
	Name             string
	Min              identity.Version
	Max              identity.Version
	Severity         Severity
	PlatformConflict bool
	Platforms        []string
	Versions         []VersionUsage
}

// Actionable reports whether the conflict needs attention: either the
// versions differ above build level or the platforms disagree.
func (c Conflict) Actionable() bool {
	return c.Severity == Significant || c.PlatformConflict
}

type Report struct {
	Conflicts []Conflict
}

// Classify compares major and minor of both bounds.
func Classify(lo, hi identity.Version) Severity {
	if lo.Major == hi.Major && lo.Minor == hi.Minor {
		return Trivial
	}
	return Significant
}

// Analyze finds every multi-version name in s, sorted by name.
func Analyze(s *graph.Store) Report {
	var report Report
	for _, name := range s.Names() {
		versions := s.Versions(name)
		if len(versions) < 2 {
			continue
		}
		lo, hi, _ := identity.MinMax(versions)
		c := Conflict{
			Name:     name,
			Min:      lo,
			Max:      hi,
			Severity: Classify(lo, hi),
		}

		platforms := make(map[string]struct{})
		for _, v := range versions {
			id := identity.New(name, v)
			usage := VersionUsage{Version: v, Platform: s.Platform(id)}
			platforms[usage.Platform] = struct{}{}
			for _, ref := range s.Referencers(id) {
				usage.Referencers = append(usage.Referencers, Referencer{ID: ref, Platform: s.Platform(ref)})
			}
			c.Versions = append(c.Versions, usage)
		}
		for p := range platforms {
			c.Platforms = append(c.Platforms, p)
		}
		sort.Strings(c.Platforms)
		c.PlatformConflict = len(c.Platforms) > 1

		report.Conflicts = append(report.Conflicts, c)
	}
	return report
}

// Count returns the number of conflicts per severity.
func (r Report) Count() map[Severity]int {
	out := map[Severity]int{Trivial: 0, Significant: 0}
	for _, c := range r.Conflicts {
		out[c.Severity]++
	}
	return out
}

// PlatformConflicts returns how many names span more than one platform.
func (r Report) PlatformConflicts() int {
	n := 0
	for _, c := range r.Conflicts {
		if c.PlatformConflict {
			n++
		}
	}
	return n
}

// Find returns the conflict for name, if any.
func (r Report) Find(name string) (Conflict, bool) {
	i := sort.Search(len(r.Conflicts), func(i int) bool { return r.Conflicts[i].Name >= name })
	if i < len(r.Conflicts) && r.Conflicts[i].Name == name {
		return r.Conflicts[i], true
	}
	return Conflict{}, false
}

// Log writes actionable conflicts at error level with their referencers and
// trivial ones at debug level.
func (r Report) Log(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx := context.Background()
	for _, c := range r.Conflicts {
		if !c.Actionable() {
			logger.Debug("trivial version conflict", "module", c.Name, "min", c.Min.String(), "max", c.Max.String())
			continue
		}
		if c.PlatformConflict {
			logger.Error("framework conflict", "module", c.Name, "platforms", c.Platforms)
		}
		logger.Error("version conflict", "module", c.Name, "severity", string(c.Severity), "min", c.Min.String(), "max", c.Max.String())
		for _, usage := range c.Versions {
			logger.Error("- conflicting version", "module", c.Name, "version", usage.Version.String(), "platform", usage.Platform)
			for _, ref := range usage.Referencers {
				logger.LogAttrs(ctx, slog.LevelError, "  - referenced by",
					slog.String("referencer", ref.ID.Name),
					slog.String("referencer_version", ref.ID.Version.String()),
					slog.String("platform", ref.Platform),
				)
			}
		}
	}
}
