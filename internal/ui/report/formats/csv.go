package formats

import (
	"depgrapher/internal/engine/graph"
	"depgrapher/internal/engine/identity"
	"encoding/csv"
	"sort"
	"strings"
)

// ReferencersCSVGenerator writes one depName;depVersion;refName;refVersion
// row per edge, grouped by dependency name and ordered by referencer version.
type ReferencersCSVGenerator struct {
	store *graph.Store
}

func NewReferencersCSVGenerator(s *graph.Store) *ReferencersCSVGenerator {
	return &ReferencersCSVGenerator{store: s}
}

func (g *ReferencersCSVGenerator) Generate() (string, error) {
	var rows [][]string
	for _, dep := range g.store.Referenced() {
		refs := g.store.Referencers(dep)
		sortByVersion(refs)
		for _, ref := range refs {
			rows = append(rows, edgeRow(dep, ref))
		}
	}
	return writeRows(rows)
}

// ReferencesCSVGenerator is the forward view: name;version;depName;depVersion
// ordered by module name then dependency version.
type ReferencesCSVGenerator struct {
	store *graph.Store
}

func NewReferencesCSVGenerator(s *graph.Store) *ReferencesCSVGenerator {
	return &ReferencesCSVGenerator{store: s}
}

func (g *ReferencesCSVGenerator) Generate() (string, error) {
	var rows [][]string
	for _, mod := range g.store.Modules() {
		deps := g.store.Dependencies(mod)
		sortByVersion(deps)
		for _, dep := range deps {
			rows = append(rows, edgeRow(mod, dep))
		}
	}
	return writeRows(rows)
}

// sortByVersion orders ids by version, then name for ties.
func sortByVersion(ids []identity.Identity) {
	sort.SliceStable(ids, func(i, j int) bool {
		if c := identity.Compare(ids[i].Version, ids[j].Version); c != 0 {
			return c < 0
		}
		return ids[i].Name < ids[j].Name
	})
}

func edgeRow(a, b identity.Identity) []string {
	return []string{a.Name, a.Version.String(), b.Name, b.Version.String()}
}

func writeRows(rows [][]string) (string, error) {
	var b strings.Builder
	w := csv.NewWriter(&b)
	w.Comma = ';'
	if err := w.WriteAll(rows); err != nil {
		return "", err
	}
	return b.String(), nil
}
