package report

import (
	"depgrapher/internal/data/history"
	"encoding/json"
	"fmt"
	"strings"
)

func RenderTrendTSV(report history.TrendReport) ([]byte, error) {
	var buf strings.Builder

	buf.WriteString("Timestamp\tRun\tModules\tEdges\tMisses\tConflicts\tSelfDeps\tDeltaModules\tDeltaEdges\tDeltaMisses\tDeltaConflicts\tModuleGrowthPct\tAvgConflicts\tAvgMisses\tWindowHours\n")
	for _, point := range report.Points {
		buf.WriteString(fmt.Sprintf(
			"%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%.2f\t%.2f\t%.2f\t%.2f\n",
			point.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
			point.RunID,
			point.ModuleCount,
			point.EdgeCount,
			point.MissCount,
			point.SignificantConflicts,
			point.SelfDependencies,
			point.DeltaModules,
			point.DeltaEdges,
			point.DeltaMisses,
			point.DeltaConflicts,
			point.ModuleGrowthPct,
			point.AvgConflicts,
			point.AvgMisses,
			point.WindowHours,
		))
	}

	return []byte(buf.String()), nil
}

func RenderTrendJSON(report history.TrendReport) ([]byte, error) {
	return json.MarshalIndent(report, "", "  ")
}
