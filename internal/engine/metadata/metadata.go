// Package metadata reads the declared name, version, target platform and
// references of a module artifact.
package metadata

import (
	domainerrors "depgrapher/internal/core/errors"
	"depgrapher/internal/engine/identity"
	"sort"
	"strings"
)

// Module is the declared metadata of one artifact.
type Module struct {
	ID             identity.Identity
	TargetPlatform string
	References     []identity.Identity
	Path           string
}

// Reader extracts module metadata from an artifact on disk.
type Reader interface {
	Read(path string) (*Module, error)
}

// Registry maps artifact file suffixes to readers. Suffixes are matched
// case-insensitively, longest first, so ".module.toml" wins over ".toml".
type Registry struct {
	readers map[string]Reader
}

func NewRegistry() *Registry {
	return &Registry{readers: make(map[string]Reader)}
}

// DefaultRegistry knows every built-in artifact format.
func DefaultRegistry(preferredFramework string) *Registry {
	nuspec := &NuspecReader{PreferredFramework: preferredFramework}
	r := NewRegistry()
	r.Register(".nuspec", nuspec)
	r.Register(".nupkg", &NupkgReader{Nuspec: nuspec})
	r.Register(".module.toml", &DescriptorReader{})
	return r
}

func (r *Registry) Register(suffix string, reader Reader) {
	r.readers[strings.ToLower(suffix)] = reader
}

// Suffixes returns registered suffixes in lookup priority order.
func (r *Registry) Suffixes() []string {
	out := make([]string, 0, len(r.readers))
	for s := range r.readers {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) == len(out[j]) {
			return out[i] < out[j]
		}
		return len(out[i]) > len(out[j])
	})
	return out
}

// ReaderFor returns the reader responsible for path.
func (r *Registry) ReaderFor(path string) (Reader, bool) {
	lower := strings.ToLower(path)
	for _, suffix := range r.Suffixes() {
		if strings.HasSuffix(lower, suffix) {
			return r.readers[suffix], true
		}
	}
	return nil, false
}

// Supports reports whether some reader handles path.
func (r *Registry) Supports(path string) bool {
	_, ok := r.ReaderFor(path)
	return ok
}

func normalizePlatform(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return identity.UnknownPlatform
	}
	return p
}

// Read dispatches path to its reader.
func (r *Registry) Read(path string) (*Module, error) {
	reader, ok := r.ReaderFor(path)
	if !ok {
		return nil, domainerrors.AddContext(
			domainerrors.New(domainerrors.CodeValidationError, "unsupported artifact type"),
			domainerrors.CtxPath, path)
	}
	mod, err := reader.Read(path)
	if err != nil {
		return nil, err
	}
	mod.Path = path
	return mod, nil
}

func malformed(path string, err error) error {
	return domainerrors.AddContext(
		domainerrors.Wrap(err, domainerrors.CodeMalformed, "malformed module metadata"),
		domainerrors.CtxPath, path)
}
