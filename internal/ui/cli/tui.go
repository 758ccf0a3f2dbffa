package cli

import (
	coreapp "depgrapher/internal/core/app"
	"depgrapher/internal/data/history"
	"depgrapher/internal/engine/conflict"
	"depgrapher/internal/engine/graph"
	"depgrapher/internal/engine/identity"
	"depgrapher/internal/shared/util"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var docStyle = lipgloss.NewStyle().Margin(1, 2)

type item struct {
	title, desc string
	name        string // module name the item points at, if any
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type panelMode int

const (
	panelIssues panelMode = iota
	panelModules
)

type model struct {
	issueList  list.Model
	moduleList list.Model
	mode       panelMode
	result     *coreapp.Result
	trend      *history.TrendReport
	showTrend  bool
	lastUpdate time.Time

	detailName string
	hasDetails bool
}

type updateMsg struct {
	result *coreapp.Result
}

func initialModel(trend *history.TrendReport) model {
	issueList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	issueList.Title = "Findings"
	issueList.SetShowStatusBar(false)
	issueList.SetFilteringEnabled(true)

	moduleList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	moduleList.Title = "Modules"
	moduleList.SetShowStatusBar(false)
	moduleList.SetFilteringEnabled(true)

	return model{
		issueList:  issueList,
		moduleList: moduleList,
		mode:       panelIssues,
		trend:      trend,
		lastUpdate: time.Now(),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return handleKey(msg, m)
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		height := msg.Height - v - 8
		if height < 5 {
			height = 5
		}
		m.issueList.SetSize(msg.Width-h, height)
		m.moduleList.SetSize(msg.Width-h, height)
	case updateMsg:
		if msg.result == nil {
			return m, nil
		}
		m.result = msg.result
		m.lastUpdate = time.Now()
		m.issueList.SetItems(issueItems(msg.result))
		m.moduleList.SetItems(moduleItems(msg.result.Store))
		if m.hasDetails && len(msg.result.Store.Versions(m.detailName)) == 0 {
			m.hasDetails = false
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.mode == panelIssues {
		m.issueList, cmd = m.issueList.Update(msg)
	} else {
		m.moduleList, cmd = m.moduleList.Update(msg)
	}
	return m, cmd
}

func handleKey(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	filtering := m.issueList.FilterState() == list.Filtering || m.moduleList.FilterState() == list.Filtering
	if !filtering {
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			if m.mode == panelIssues {
				m.mode = panelModules
			} else {
				m.mode = panelIssues
			}
			return m, nil
		case "t":
			m.showTrend = !m.showTrend
			return m, nil
		case "enter":
			if name, ok := m.selectedName(); ok {
				m.detailName = name
				m.hasDetails = true
			}
			return m, nil
		case "esc":
			if m.hasDetails {
				m.hasDetails = false
				return m, nil
			}
		}
	}

	var cmd tea.Cmd
	if m.mode == panelIssues {
		m.issueList, cmd = m.issueList.Update(msg)
	} else {
		m.moduleList, cmd = m.moduleList.Update(msg)
	}
	return m, cmd
}

func (m model) selectedName() (string, bool) {
	active := m.issueList
	if m.mode == panelModules {
		active = m.moduleList
	}
	it, ok := active.SelectedItem().(item)
	if !ok || it.name == "" {
		return "", false
	}
	return it.name, true
}

func (m model) View() string {
	summary := successStyle.Render("No conflicts")
	var modules, misses int
	if m.result != nil {
		modules, misses = m.result.Store.ModuleCount(), len(m.result.Misses)
		counts := m.result.Conflicts.Count()
		if len(m.result.Conflicts.Conflicts) > 0 || len(m.result.SelfDependencies) > 0 {
			summary = fmt.Sprintf("%s | %s | %s",
				errorStyle.Render(fmt.Sprintf("%d significant", counts[conflict.Significant])),
				warningStyle.Render(fmt.Sprintf("%d trivial", counts[conflict.Trivial])),
				errorStyle.Render(fmt.Sprintf("%d self-dependent", len(m.result.SelfDependencies))))
		}
	}
	status := statusStyle.Render(fmt.Sprintf("Last update: %s | %d modules | %d unresolved",
		m.lastUpdate.Format("15:04:05"), modules, misses))

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle.Render("Dependency Graph Browser"), status, summary)

	body := m.issueList.View()
	if m.mode == panelModules {
		body = m.moduleList.View()
	}
	if m.hasDetails && m.result != nil {
		body += "\n\n" + renderModuleDetails(m.result, m.detailName)
	}
	if m.showTrend {
		body += "\n\n" + renderTrendOverlay(m.trend)
	}
	help := statusStyle.Render("Keys: tab panel | / filter | enter details | esc back | t trend | q quit")
	return docStyle.Render(header + "\n" + help + "\n\n" + body)
}

func issueItems(r *coreapp.Result) []list.Item {
	items := make([]list.Item, 0, len(r.Conflicts.Conflicts)+len(r.SelfDependencies)+len(r.Misses))
	for _, c := range r.Conflicts.Conflicts {
		title := "Trivial version conflict: " + c.Name
		if c.Severity == conflict.Significant {
			title = "Significant version conflict: " + c.Name
		}
		if c.PlatformConflict {
			title += " (platforms differ)"
		}
		versions := make([]string, 0, len(c.Versions))
		for _, usage := range c.Versions {
			versions = append(versions, fmt.Sprintf("%s by %d", usage.Version.Short(), len(usage.Referencers)))
		}
		items = append(items, item{title: title, desc: strings.Join(versions, ", "), name: c.Name})
	}
	for _, id := range r.SelfDependencies {
		items = append(items, item{title: "Self dependency", desc: id.String(), name: id.Name})
	}
	for _, miss := range r.Misses {
		items = append(items, item{title: "Unresolved module", desc: fmt.Sprintf("%s: %v", miss.ID, miss.Err)})
	}
	return items
}

func moduleItems(s *graph.Store) []list.Item {
	metrics := graph.ComputeNameMetrics(s)
	items := make([]list.Item, 0, len(metrics))
	for _, name := range util.SortedStringKeys(metrics) {
		nm := metrics[name]
		items = append(items, item{
			title: name,
			desc:  fmt.Sprintf("versions=%d referenced_by=%d depends_on=%d", nm.Versions, nm.FanIn, nm.FanOut),
			name:  name,
		})
	}
	return items
}

func renderModuleDetails(r *coreapp.Result, name string) string {
	versions := r.Store.Versions(name)
	if len(versions) == 0 {
		return statusStyle.Render(fmt.Sprintf("%s was not collected.", name))
	}
	lines := []string{titleStyle.Render("Module Detail: " + name)}
	for _, v := range versions {
		id := identity.New(name, v)
		lines = append(lines, fmt.Sprintf("  %s (%s)", v.Short(), r.Store.Platform(id)))
		lines = append(lines, "    depends on:    "+joinIdentities(r.Store.Dependencies(id)))
		lines = append(lines, "    referenced by: "+joinIdentities(r.Store.Referencers(id)))
	}
	if impact, err := graph.AnalyzeImpact(r.Store, name); err == nil {
		lines = append(lines, fmt.Sprintf("  transitive impact: %d modules", len(impact.TransitiveReferencers)+len(impact.DirectReferencers)))
	}
	return strings.Join(lines, "\n")
}

func joinIdentities(ids []identity.Identity) string {
	if len(ids) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, id.Name+" "+id.Version.Short())
	}
	return strings.Join(parts, ", ")
}

func renderTrendOverlay(report *history.TrendReport) string {
	if report == nil || len(report.Points) == 0 {
		return statusStyle.Render("Trend overlay unavailable (run with --history to record runs).")
	}
	last := report.Points[len(report.Points)-1]
	return strings.Join([]string{
		"Trend Overlay",
		fmt.Sprintf("  Window: %s | Runs: %d", report.Window, report.RunCount),
		fmt.Sprintf("  Module growth: %+d (%.2f%%)", last.DeltaModules, last.ModuleGrowthPct),
		fmt.Sprintf("  Significant conflicts: %d (%+d, avg %.2f)", last.SignificantConflicts, last.DeltaConflicts, last.AvgConflicts),
		fmt.Sprintf("  Unresolved: %d (%+d, avg %.2f)", last.MissCount, last.DeltaMisses, last.AvgMisses),
	}, "\n")
}
