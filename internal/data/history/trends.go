package history

import (
	"fmt"
	"math"
	"time"
)

// BuildTrendReport turns consecutive runs of one root into deltas and moving
// averages over window.
func BuildTrendReport(rootKey string, runs []Run, window time.Duration) (TrendReport, error) {
	if len(runs) == 0 {
		return TrendReport{}, fmt.Errorf("no runs recorded for %q", rootKey)
	}

	points := make([]TrendPoint, 0, len(runs))
	for i, current := range runs {
		point := TrendPoint{
			Timestamp:            current.Timestamp,
			RunID:                current.RunID,
			ModuleCount:          current.ModuleCount,
			EdgeCount:            current.EdgeCount,
			MissCount:            current.MissCount,
			SignificantConflicts: current.SignificantConflicts,
			SelfDependencies:     current.SelfDependencies,
		}

		if i > 0 {
			prev := runs[i-1]
			point.DeltaModules = current.ModuleCount - prev.ModuleCount
			point.DeltaEdges = current.EdgeCount - prev.EdgeCount
			point.DeltaMisses = current.MissCount - prev.MissCount
			point.DeltaConflicts = current.SignificantConflicts - prev.SignificantConflicts
			if prev.ModuleCount > 0 {
				point.ModuleGrowthPct = round2(float64(point.DeltaModules) / float64(prev.ModuleCount) * 100)
			}
		}

		avgConflicts, avgMisses := movingAverages(runs, i, window)
		point.AvgConflicts = round2(avgConflicts)
		point.AvgMisses = round2(avgMisses)
		point.WindowHours = round2(window.Hours())
		points = append(points, point)
	}

	return TrendReport{
		SchemaVersion: SchemaVersion,
		RootKey:       rootKey,
		Since:         runs[0].Timestamp,
		Until:         runs[len(runs)-1].Timestamp,
		Window:        window.String(),
		RunCount:      len(points),
		Points:        points,
	}, nil
}

func movingAverages(runs []Run, index int, window time.Duration) (float64, float64) {
	if window <= 0 {
		return float64(runs[index].SignificantConflicts), float64(runs[index].MissCount)
	}

	cutoff := runs[index].Timestamp.Add(-window)
	var conflicts, misses, count int
	for i := index; i >= 0; i-- {
		if runs[i].Timestamp.Before(cutoff) {
			break
		}
		conflicts += runs[i].SignificantConflicts
		misses += runs[i].MissCount
		count++
	}
	if count == 0 {
		return 0, 0
	}
	return float64(conflicts) / float64(count), float64(misses) / float64(count)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
