package report

import (
	"depgrapher/internal/data/history"
	"strings"
	"testing"
	"time"
)

func sampleTrend() history.TrendReport {
	return history.TrendReport{
		SchemaVersion: 1,
		RootKey:       "App@1.0.0.0",
		Since:         time.Date(2026, 2, 12, 0, 0, 0, 0, time.UTC),
		Until:         time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC),
		Window:        "24h0m0s",
		RunCount:      1,
		Points: []history.TrendPoint{
			{
				Timestamp:            time.Date(2026, 2, 13, 0, 0, 0, 0, time.UTC),
				RunID:                "run-1",
				ModuleCount:          10,
				EdgeCount:            15,
				MissCount:            2,
				SignificantConflicts: 1,
				AvgConflicts:         1,
				AvgMisses:            2,
				WindowHours:          24,
			},
		},
	}
}

func TestRenderTrendTSV(t *testing.T) {
	out, err := RenderTrendTSV(sampleTrend())
	if err != nil {
		t.Fatalf("render tsv: %v", err)
	}
	text := string(out)
	if !strings.HasPrefix(text, "Timestamp\tRun\tModules") {
		t.Fatalf("missing header: %q", text)
	}
	if !strings.Contains(text, "2026-02-13T00:00:00Z\trun-1\t10\t15\t2\t1\t0\t") {
		t.Fatalf("unexpected row: %q", text)
	}
}

func TestRenderTrendJSON(t *testing.T) {
	out, err := RenderTrendJSON(sampleTrend())
	if err != nil {
		t.Fatalf("render json: %v", err)
	}
	if !strings.Contains(string(out), `"root_key": "App@1.0.0.0"`) {
		t.Fatalf("json missing root key: %s", out)
	}
	if !strings.Contains(string(out), `"run_count": 1`) {
		t.Fatalf("json missing run count: %s", out)
	}
}
