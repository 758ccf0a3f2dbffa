package app

import (
	domainerrors "depgrapher/internal/core/errors"
	"depgrapher/internal/engine/graph"
	"depgrapher/internal/engine/identity"
	"fmt"
	"strings"
)

// ParseRef parses "Name@1.2.3" into an identity.
func ParseRef(raw string) (identity.Identity, error) {
	name, version, ok := strings.Cut(strings.TrimSpace(raw), "@")
	if !ok || name == "" || version == "" {
		return identity.Identity{}, domainerrors.Newf(domainerrors.CodeValidationError, "expected <name>@<version>, got %q", raw)
	}
	id, err := identity.Parse(name, version)
	if err != nil {
		return identity.Identity{}, domainerrors.Wrap(err, domainerrors.CodeValidationError, "invalid module reference")
	}
	return id, nil
}

func (a *App) lastStore() (*graph.Store, error) {
	last := a.Last()
	if last == nil {
		return nil, domainerrors.New(domainerrors.CodeNotFound, "no completed run")
	}
	return last.Store, nil
}

// TraceChain renders the shortest dependency path between two collected
// modules of the last run.
func (a *App) TraceChain(from, to identity.Identity) (string, error) {
	store, err := a.lastStore()
	if err != nil {
		return "", err
	}
	if !store.Has(from) {
		return "", domainerrors.Newf(domainerrors.CodeNotFound, "source module not collected: %s", from)
	}
	if !store.Has(to) {
		return "", domainerrors.Newf(domainerrors.CodeNotFound, "target module not collected: %s", to)
	}

	chain, ok := graph.FindDependencyChain(store, from, to)
	if !ok {
		return "", domainerrors.Newf(domainerrors.CodeNotFound, "no dependency chain from %s to %s", from, to)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("Dependency chain: %s -> %s\n\n", from, to))
	for i, id := range chain {
		b.WriteString(id.String())
		b.WriteString("\n")
		if i < len(chain)-1 {
			b.WriteString("  -> ")
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// AnalyzeImpact reports who depends on any version of name in the last run.
func (a *App) AnalyzeImpact(name string) (graph.ImpactReport, error) {
	store, err := a.lastStore()
	if err != nil {
		return graph.ImpactReport{}, err
	}
	return graph.AnalyzeImpact(store, name)
}

func FormatImpactReport(report graph.ImpactReport) string {
	var b strings.Builder

	b.WriteString("Impact Analysis\n")
	b.WriteString("===============\n")
	b.WriteString(fmt.Sprintf("Target module: %s\n", report.TargetName))
	versions := make([]string, 0, len(report.Versions))
	for _, v := range report.Versions {
		versions = append(versions, v.Short())
	}
	b.WriteString(fmt.Sprintf("Collected versions: %s\n", strings.Join(versions, ", ")))
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("Direct referencers (%d)\n", len(report.DirectReferencers)))
	for _, id := range report.DirectReferencers {
		b.WriteString(fmt.Sprintf("- %s\n", id))
	}
	b.WriteString("\n")

	b.WriteString(fmt.Sprintf("Transitive impact (%d)\n", len(report.TransitiveReferencers)))
	for _, id := range report.TransitiveReferencers {
		b.WriteString(fmt.Sprintf("- %s\n", id))
	}

	return b.String()
}
