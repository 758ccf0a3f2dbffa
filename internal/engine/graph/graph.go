// # internal/engine/graph/graph.go
package graph

import (
	"depgrapher/internal/engine/identity"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// UnknownPlatform marks a module that declares no target platform.
const UnknownPlatform = identity.UnknownPlatform

// Store is the accumulated dependency graph. It is written by a single
// collector and handed read-only to analyzers and writers after Freeze.
type Store struct {
	mu     sync.RWMutex
	frozen bool

	// Relationships
	dependencies map[identity.Identity]map[identity.Identity]struct{} // from -> to
	referencers  map[identity.Identity]map[identity.Identity]struct{} // to -> from

	versionsByName map[string]map[identity.Version]struct{}
	platforms      map[identity.Identity]string
}

func NewStore() *Store {
	return &Store{
		dependencies:   make(map[identity.Identity]map[identity.Identity]struct{}),
		referencers:    make(map[identity.Identity]map[identity.Identity]struct{}),
		versionsByName: make(map[string]map[identity.Version]struct{}),
		platforms:      make(map[identity.Identity]string),
	}
}

// AddModule registers id as processed. It reports false if id was already present.
func (s *Store) AddModule(id identity.Identity, platform string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mustBeWritable()

	if _, ok := s.dependencies[id]; ok {
		return false
	}
	if platform == "" {
		platform = UnknownPlatform
	}

	s.dependencies[id] = make(map[identity.Identity]struct{})
	s.platforms[id] = platform

	versions := s.versionsByName[id.Name]
	if versions == nil {
		versions = make(map[identity.Version]struct{})
		s.versionsByName[id.Name] = versions
	}
	versions[id.Version] = struct{}{}
	return true
}

// AddEdge records that from depends on to. from must already be a module.
func (s *Store) AddEdge(from, to identity.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mustBeWritable()

	deps, ok := s.dependencies[from]
	if !ok {
		return fmt.Errorf("add edge %s -> %s: source module not registered", from, to)
	}
	deps[to] = struct{}{}

	refs := s.referencers[to]
	if refs == nil {
		refs = make(map[identity.Identity]struct{})
		s.referencers[to] = refs
	}
	refs[from] = struct{}{}
	return nil
}

// Freeze makes the store read-only. Later writes panic.
func (s *Store) Freeze() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frozen = true
}

func (s *Store) Frozen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.frozen
}

func (s *Store) mustBeWritable() {
	if s.frozen {
		panic("graph: write to frozen store")
	}
}

// Has reports whether id has been processed.
func (s *Store) Has(id identity.Identity) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.dependencies[id]
	return ok
}

// Modules returns every processed identity ordered by name then version.
func (s *Store) Modules() []identity.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]identity.Identity, 0, len(s.dependencies))
	for id := range s.dependencies {
		out = append(out, id)
	}
	identity.SortIdentities(out)
	return out
}

func (s *Store) ModuleCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.dependencies)
}

// Dependencies returns the outgoing edges of id, sorted.
func (s *Store) Dependencies(id identity.Identity) []identity.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedSet(s.dependencies[id])
}

// Referencers returns the modules that declared a dependency on id, sorted.
func (s *Store) Referencers(id identity.Identity) []identity.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedSet(s.referencers[id])
}

// Referenced returns every identity that has at least one referencer,
// including identities that never resolved.
func (s *Store) Referenced() []identity.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]identity.Identity, 0, len(s.referencers))
	for id, refs := range s.referencers {
		if len(refs) > 0 {
			out = append(out, id)
		}
	}
	identity.SortIdentities(out)
	return out
}

// Missing returns referenced identities that never became modules.
func (s *Store) Missing() []identity.Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []identity.Identity
	for id := range s.referencers {
		if _, ok := s.dependencies[id]; !ok {
			out = append(out, id)
		}
	}
	identity.SortIdentities(out)
	return out
}

// Names returns every module name seen, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.versionsByName))
	for name := range s.versionsByName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Versions returns the distinct versions of name, ascending.
func (s *Store) Versions(name string) []identity.Version {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set := s.versionsByName[name]
	out := make([]identity.Version, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	identity.SortVersions(out)
	return out
}

// Platform returns the declared target platform of id, or UnknownPlatform.
func (s *Store) Platform(id identity.Identity) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.platforms[id]; ok {
		return p
	}
	return UnknownPlatform
}

func (s *Store) EdgeCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, deps := range s.dependencies {
		n += len(deps)
	}
	return n
}

// Verify checks that referencers is the transpose of dependencies and that
// the per-name version index matches the processed modules exactly.
func (s *Store) Verify() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var errs []error
	edges := 0
	for from, deps := range s.dependencies {
		for to := range deps {
			edges++
			if _, ok := s.referencers[to][from]; !ok {
				errs = append(errs, fmt.Errorf("edge %s -> %s missing from referencers", from, to))
			}
		}
	}
	reverse := 0
	for to, refs := range s.referencers {
		for from := range refs {
			reverse++
			if _, ok := s.dependencies[from][to]; !ok {
				errs = append(errs, fmt.Errorf("referencer %s of %s has no matching dependency", from, to))
			}
		}
	}
	if edges != reverse {
		errs = append(errs, fmt.Errorf("edge count %d differs from referencer count %d", edges, reverse))
	}

	expected := make(map[string]map[identity.Version]struct{})
	for id := range s.dependencies {
		if expected[id.Name] == nil {
			expected[id.Name] = make(map[identity.Version]struct{})
		}
		expected[id.Name][id.Version] = struct{}{}
	}
	for name, versions := range s.versionsByName {
		if len(versions) != len(expected[name]) {
			errs = append(errs, fmt.Errorf("version index for %q has %d entries, want %d", name, len(versions), len(expected[name])))
			continue
		}
		for v := range versions {
			if _, ok := expected[name][v]; !ok {
				errs = append(errs, fmt.Errorf("version index for %q lists unprocessed version %s", name, v))
			}
		}
	}
	for name := range expected {
		if _, ok := s.versionsByName[name]; !ok {
			errs = append(errs, fmt.Errorf("version index missing name %q", name))
		}
	}

	return errors.Join(errs...)
}

func sortedSet(set map[identity.Identity]struct{}) []identity.Identity {
	out := make([]identity.Identity, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	identity.SortIdentities(out)
	return out
}
