package graph

import "sort"

// NameMetrics aggregates edges over all versions of a module name.
type NameMetrics struct {
	Name     string
	Versions int
	FanIn    int // distinct names depending on this name
	FanOut   int // distinct names this name depends on
}

func ComputeNameMetrics(s *Store) map[string]NameMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	in := make(map[string]map[string]struct{})
	out := make(map[string]map[string]struct{})
	for from, deps := range s.dependencies {
		for to := range deps {
			if from.Name == to.Name {
				continue
			}
			if out[from.Name] == nil {
				out[from.Name] = make(map[string]struct{})
			}
			out[from.Name][to.Name] = struct{}{}
			if in[to.Name] == nil {
				in[to.Name] = make(map[string]struct{})
			}
			in[to.Name][from.Name] = struct{}{}
		}
	}

	metrics := make(map[string]NameMetrics, len(s.versionsByName))
	for name, versions := range s.versionsByName {
		metrics[name] = NameMetrics{
			Name:     name,
			Versions: len(versions),
			FanIn:    len(in[name]),
			FanOut:   len(out[name]),
		}
	}
	return metrics
}

// TopFanIn returns the n most depended-upon names, ties broken by name.
func TopFanIn(metrics map[string]NameMetrics, n int) []NameMetrics {
	if n <= 0 {
		return nil
	}
	rows := make([]NameMetrics, 0, len(metrics))
	for _, m := range metrics {
		rows = append(rows, m)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].FanIn == rows[j].FanIn {
			return rows[i].Name < rows[j].Name
		}
		return rows[i].FanIn > rows[j].FanIn
	})
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}
