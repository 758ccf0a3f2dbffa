package history

import "time"

const SchemaVersion = 1

// Run is the summary of one collection run, keyed by a random run ID and
// grouped by the roots it started from.
type Run struct {
	SchemaVersion        int           `json:"schema_version"`
	RunID                string        `json:"run_id"`
	RootKey              string        `json:"root_key"`
	Timestamp            time.Time     `json:"timestamp"`
	Duration             time.Duration `json:"duration"`
	ModuleCount          int           `json:"module_count"`
	NameCount            int           `json:"name_count"`
	EdgeCount            int           `json:"edge_count"`
	MissCount            int           `json:"miss_count"`
	SignificantConflicts int           `json:"significant_conflicts"`
	TrivialConflicts     int           `json:"trivial_conflicts"`
	PlatformConflicts    int           `json:"platform_conflicts"`
	SelfDependencies     int           `json:"self_dependencies"`
}

type TrendPoint struct {
	Timestamp            time.Time `json:"timestamp"`
	RunID                string    `json:"run_id"`
	ModuleCount          int       `json:"module_count"`
	EdgeCount            int       `json:"edge_count"`
	MissCount            int       `json:"miss_count"`
	SignificantConflicts int       `json:"significant_conflicts"`
	SelfDependencies     int       `json:"self_dependencies"`
	DeltaModules         int       `json:"delta_modules"`
	DeltaEdges           int       `json:"delta_edges"`
	DeltaMisses          int       `json:"delta_misses"`
	DeltaConflicts       int       `json:"delta_conflicts"`
	ModuleGrowthPct      float64   `json:"module_growth_pct"`
	AvgConflicts         float64   `json:"avg_conflicts"`
	AvgMisses            float64   `json:"avg_misses"`
	WindowHours          float64   `json:"window_hours"`
}

type TrendReport struct {
	SchemaVersion int          `json:"schema_version"`
	RootKey       string       `json:"root_key"`
	Since         time.Time    `json:"since"`
	Until         time.Time    `json:"until"`
	Window        string       `json:"window"`
	RunCount      int          `json:"run_count"`
	Points        []TrendPoint `json:"points"`
}
