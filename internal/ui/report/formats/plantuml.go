package formats

import (
	"depgrapher/internal/engine/graph"
	"depgrapher/internal/engine/identity"
	"fmt"
	"strings"
)

const (
	entryPointStyle = "#lightblue ##[bold]blue"
	// Several majors loaded side by side tend to fail at runtime.
	multiMajorStyle = "#lightyellow ##[bold]orange"
)

// PlantUMLGenerator renders one class per module name listing its versions,
// and one arrow per dependency edge.
type PlantUMLGenerator struct {
	store *graph.Store
}

func NewPlantUMLGenerator(s *graph.Store) *PlantUMLGenerator {
	return &PlantUMLGenerator{store: s}
}

func (p *PlantUMLGenerator) Generate() (string, error) {
	var b strings.Builder
	b.WriteString("@startuml\n")
	b.WriteString("set namespaceSeparator none\n")
	b.WriteString("hide empty members\n")
	b.WriteString("hide circle\n\n")

	for _, name := range p.store.Names() {
		versions := p.store.Versions(name)
		labels := make([]string, 0, len(versions))
		for _, v := range versions {
			labels = append(labels, v.String())
		}
		b.WriteString(fmt.Sprintf("class \"%s\" %s {\n", escapeLabel(name), p.style(name, versions)))
		b.WriteString(strings.Join(labels, "\n__\n"))
		b.WriteString("\n}\n\n")
	}

	for _, from := range p.store.Modules() {
		for _, to := range p.store.Dependencies(from) {
			b.WriteString(fmt.Sprintf("\"%s\" ---> \"%s\"\n", nodeKey(from), nodeKey(to)))
		}
	}

	b.WriteString("@enduml\n")
	return b.String(), nil
}

func (p *PlantUMLGenerator) style(name string, versions []identity.Version) string {
	if IsEntryPoint(p.store, name) {
		return entryPointStyle
	}
	if lo, hi, ok := identity.MinMax(versions); ok && lo.Major != hi.Major {
		return multiMajorStyle
	}
	return ""
}

// IsEntryPoint reports whether name has a single version that nothing in
// the graph references.
func IsEntryPoint(s *graph.Store, name string) bool {
	versions := s.Versions(name)
	if len(versions) != 1 {
		return false
	}
	return len(s.Referencers(identity.New(name, versions[0]))) == 0
}
