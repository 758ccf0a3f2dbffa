package formats

import (
	"depgrapher/internal/engine/conflict"
	"depgrapher/internal/engine/graph"
	"fmt"
	"sort"
	"strings"
)

// OverviewGenerator renders a short markdown summary of the graph.
type OverviewGenerator struct {
	store *graph.Store
}

func NewOverviewGenerator(s *graph.Store) *OverviewGenerator {
	return &OverviewGenerator{store: s}
}

func (o *OverviewGenerator) Generate() (string, error) {
	var b strings.Builder
	b.WriteString("# Overview\n")
	b.WriteString(fmt.Sprintf("- %d dependencies\n", len(o.store.Names())))
	b.WriteString(fmt.Sprintf("- %d dependencies (including version)\n", o.store.ModuleCount()))
	b.WriteString(fmt.Sprintf("- %d references\n", o.store.EdgeCount()))
	if missing := o.store.Missing(); len(missing) > 0 {
		b.WriteString(fmt.Sprintf("- %d unresolved\n", len(missing)))
	}

	report := conflict.Analyze(o.store)
	if len(report.Conflicts) > 0 {
		counts := report.Count()
		b.WriteString("\n## Conflicts\n")
		b.WriteString(fmt.Sprintf("- %d significant, %d trivial, %d platform\n\n",
			counts[conflict.Significant], counts[conflict.Trivial], report.PlatformConflicts()))
		b.WriteString("| Module | Versions | Severity | Platforms |\n")
		b.WriteString("|---|---|---|---|\n")
		for _, c := range report.Conflicts {
			versions := make([]string, 0, len(c.Versions))
			for _, u := range c.Versions {
				versions = append(versions, u.Version.String())
			}
			b.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
				markdownCell(c.Name),
				strings.Join(versions, ", "),
				c.Severity,
				markdownCell(strings.Join(c.Platforms, ", "))))
		}
	}

	b.WriteString("\n## Unique References\n")
	b.WriteString("| Module | Unique Reference |\n")
	b.WriteString("|---|---|\n")
	for _, row := range o.uniqueReferences() {
		b.WriteString(fmt.Sprintf("| %s | %s |\n", markdownCell(row[0]), markdownCell(row[1])))
	}
	return b.String(), nil
}

// uniqueReferences returns module names whose versions, taken together,
// reference exactly one other module name.
func (o *OverviewGenerator) uniqueReferences() [][2]string {
	byName := make(map[string]map[string]struct{})
	for _, mod := range o.store.Modules() {
		deps, ok := byName[mod.Name]
		if !ok {
			deps = make(map[string]struct{})
			byName[mod.Name] = deps
		}
		for _, dep := range o.store.Dependencies(mod) {
			deps[dep.Name] = struct{}{}
		}
	}

	var rows [][2]string
	for name, deps := range byName {
		if len(deps) != 1 {
			continue
		}
		for dep := range deps {
			rows = append(rows, [2]string{name, dep})
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i][0] < rows[j][0] })
	return rows
}
