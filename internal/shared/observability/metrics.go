package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ModulesResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depgrapher_modules_resolved_total",
		Help: "Modules whose metadata was resolved, by the resolution step that found them.",
	}, []string{"source"})

	ResolutionMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depgrapher_resolution_misses_total",
		Help: "Module identities that could not be resolved by any step.",
	})

	IgnoredReferencesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depgrapher_ignored_references_total",
		Help: "References skipped by the ignore policy.",
	})

	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "depgrapher_fetch_seconds",
		Help:    "Time spent in package-manager fetches.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	})

	FetchFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depgrapher_fetch_failures_total",
		Help: "Package-manager fetches that did not produce the expected cache directory.",
	})

	GraphNodes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "depgrapher_graph_nodes",
		Help: "Number of resolved module identities in the dependency graph.",
	})

	GraphEdges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "depgrapher_graph_edges",
		Help: "Number of dependency edges in the graph.",
	})

	Conflicts = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "depgrapher_conflicts",
		Help: "Version conflicts found in the last run, by severity.",
	}, []string{"severity"})

	SelfDependencies = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "depgrapher_self_dependencies",
		Help: "Modules that transitively depend on another version of themselves.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "depgrapher_watcher_events_total",
		Help: "Raw filesystem events seen in watch mode.",
	})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "depgrapher_runs_total",
		Help: "Completed collection runs by outcome.",
	}, []string{"outcome"})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "depgrapher_analysis_seconds",
		Help:    "Time spent on high-level run phases.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task"})
)

// WriteTextfile dumps the default registry in the node-exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
