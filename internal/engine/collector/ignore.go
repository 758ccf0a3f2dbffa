package collector

import (
	"depgrapher/internal/engine/identity"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// ReservedPrefixes name platform and runtime supplied modules. They are never
// fetched, stored or traversed.
var ReservedPrefixes = []string{"System", "Microsoft", "netstandard", "mscorlib"}

// Ignore decides which identities the collector skips. Configured patterns
// only ever add to the reserved prefixes.
type Ignore struct {
	prefixes []string
	patterns []string
	globs    []glob.Glob
}

// DefaultIgnore ignores only the reserved prefixes.
func DefaultIgnore() *Ignore {
	return &Ignore{prefixes: append([]string(nil), ReservedPrefixes...)}
}

// NewIgnore compiles extra name patterns on top of the reserved prefixes.
func NewIgnore(patterns []string) (*Ignore, error) {
	ig := DefaultIgnore()
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p, '.')
		if err != nil {
			return nil, fmt.Errorf("compile ignore pattern %q: %w", p, err)
		}
		ig.patterns = append(ig.patterns, p)
		ig.globs = append(ig.globs, g)
	}
	return ig, nil
}

// Patterns returns the configured extra patterns.
func (ig *Ignore) Patterns() []string {
	return append([]string(nil), ig.patterns...)
}

// ShouldIgnore reports whether id is skipped. Patterns use '.' as the
// separator, so "Contoso.*" matches Contoso.Core but not Contoso.Core.Tests.
// A nil Ignore still honours the reserved prefixes.
func (ig *Ignore) ShouldIgnore(id identity.Identity) bool {
	if ig == nil {
		return hasAnyPrefix(id.Name, ReservedPrefixes)
	}
	if hasAnyPrefix(id.Name, ig.prefixes) {
		return true
	}
	for _, g := range ig.globs {
		if g.Match(id.Name) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
