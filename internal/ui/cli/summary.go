package cli

import (
	coreapp "depgrapher/internal/core/app"
	"depgrapher/internal/engine/conflict"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#F87171"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

const maxSummaryRows = 10

func printSummary(w io.Writer, r *coreapp.Result) {
	fmt.Fprint(w, renderSummary(r))
}

func renderSummary(r *coreapp.Result) string {
	var b strings.Builder
	counts := r.Conflicts.Count()

	b.WriteString(titleStyle.Render("Dependency Graph Summary") + "\n")
	b.WriteString(statusStyle.Render(fmt.Sprintf("run %s | %s", r.RunID, r.Duration.Round(time.Millisecond))) + "\n\n")
	b.WriteString(fmt.Sprintf("Modules:   %d (%d names, %d edges)\n", r.Store.ModuleCount(), len(r.Store.Names()), r.Store.EdgeCount()))
	b.WriteString(fmt.Sprintf("Ignored:   %d references\n", r.Stats.Ignored))
	b.WriteString(fmt.Sprintf("Conflicts: %s | %s | %s\n",
		severityCount(counts[conflict.Significant], "significant", errorStyle),
		severityCount(counts[conflict.Trivial], "trivial", warningStyle),
		severityCount(r.Conflicts.PlatformConflicts(), "platform", errorStyle)))

	actionable := 0
	for _, c := range r.Conflicts.Conflicts {
		if !c.Actionable() {
			continue
		}
		actionable++
		if actionable > maxSummaryRows {
			continue
		}
		label := fmt.Sprintf("  %s %s .. %s", c.Name, c.Min.Short(), c.Max.Short())
		if c.PlatformConflict {
			label += " [" + strings.Join(c.Platforms, ", ") + "]"
		}
		b.WriteString(errorStyle.Render(label) + "\n")
	}
	if actionable > maxSummaryRows {
		b.WriteString(statusStyle.Render(fmt.Sprintf("  ... %d more", actionable-maxSummaryRows)) + "\n")
	}

	b.WriteString(fmt.Sprintf("Self-dependencies: %s\n", severityCount(len(r.SelfDependencies), "modules", errorStyle)))
	for i, id := range r.SelfDependencies {
		if i == maxSummaryRows {
			b.WriteString(statusStyle.Render(fmt.Sprintf("  ... %d more", len(r.SelfDependencies)-maxSummaryRows)) + "\n")
			break
		}
		b.WriteString(errorStyle.Render("  "+id.String()) + "\n")
	}

	b.WriteString(fmt.Sprintf("Unresolved: %s\n", severityCount(len(r.Misses), "modules", warningStyle)))
	for i, m := range r.Misses {
		if i == maxSummaryRows {
			b.WriteString(statusStyle.Render(fmt.Sprintf("  ... %d more", len(r.Misses)-maxSummaryRows)) + "\n")
			break
		}
		b.WriteString(warningStyle.Render("  "+m.ID.String()) + "\n")
	}

	b.WriteString("\n" + successStyle.Render("Wrote "+r.OutputPath) + "\n")
	return b.String()
}

func severityCount(n int, label string, style lipgloss.Style) string {
	text := fmt.Sprintf("%d %s", n, label)
	if n == 0 {
		return successStyle.Render(text)
	}
	return style.Render(text)
}

// printSummaryUpdates prints a summary after every re-run in watch mode.
func printSummaryUpdates(w io.Writer, application *coreapp.App) {
	application.SetUpdateHandler(func(r *coreapp.Result) {
		printSummary(w, r)
	})
}
