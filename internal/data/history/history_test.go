package history

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestStore_OpenInitializesSchemaAndSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	first, err := store.SaveRun(Run{RootKey: "app@1.0", Timestamp: base, ModuleCount: 5, MissCount: 3, Duration: 1500 * time.Millisecond})
	if err != nil {
		t.Fatalf("save first run: %v", err)
	}
	if _, err := uuid.Parse(first.RunID); err != nil {
		t.Fatalf("expected generated uuid run id, got %q: %v", first.RunID, err)
	}

	// Saving the same run ID again replaces the row.
	first.ModuleCount = 8
	if _, err := store.SaveRun(first); err != nil {
		t.Fatalf("resave first run: %v", err)
	}
	if _, err := store.SaveRun(Run{
		RootKey:              "app@1.0",
		Timestamp:            base.Add(2 * time.Hour),
		ModuleCount:          6,
		EdgeCount:            9,
		SignificantConflicts: 2,
		TrivialConflicts:     1,
		PlatformConflicts:    1,
		SelfDependencies:     1,
	}); err != nil {
		t.Fatalf("save second run: %v", err)
	}

	got, err := store.LoadRuns("app@1.0", base.Add(time.Hour))
	if err != nil {
		t.Fatalf("load runs: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 run after since filter, got %d", len(got))
	}
	if got[0].SignificantConflicts != 2 || got[0].PlatformConflicts != 1 || got[0].SelfDependencies != 1 {
		t.Fatalf("expected analysis counts to roundtrip, got %+v", got[0])
	}

	all, err := store.LoadRuns("app@1.0", time.Time{})
	if err != nil {
		t.Fatalf("load all runs: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(all))
	}
	if all[0].ModuleCount != 8 {
		t.Fatalf("expected upserted module_count=8, got %d", all[0].ModuleCount)
	}
	if all[0].Duration != 1500*time.Millisecond {
		t.Fatalf("expected duration to roundtrip, got %v", all[0].Duration)
	}
}

func TestStore_OpenRejectsDirectoryPath(t *testing.T) {
	_, err := Open(t.TempDir())
	if err == nil {
		t.Fatal("expected open error for directory path")
	}
	if !strings.Contains(err.Error(), "is a directory") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStore_OpenCorruptDBPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	if err := os.WriteFile(path, []byte("this is not sqlite"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Open(path)
	if err == nil {
		t.Fatal("expected sqlite open error")
	}
	lower := strings.ToLower(err.Error())
	if !strings.Contains(lower, "not a database") && !strings.Contains(lower, "schema") {
		t.Fatalf("expected schema/open error, got: %v", err)
	}
}

func TestEnsureSchema_DetectsNewerVersionDrift(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.db.Exec(`INSERT OR REPLACE INTO schema_migrations(version) VALUES (?)`, SchemaVersion+1); err != nil {
		t.Fatal(err)
	}

	db, err := sql.Open(driverName, "file:"+path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	err = EnsureSchema(db)
	if err == nil {
		t.Fatal("expected drift error")
	}
	if !strings.Contains(err.Error(), "newer than supported") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBuildTrendReport(t *testing.T) {
	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	runs := []Run{
		{Timestamp: base, ModuleCount: 4, EdgeCount: 5, SignificantConflicts: 2, MissCount: 4},
		{Timestamp: base.Add(2 * time.Hour), ModuleCount: 6, EdgeCount: 8, SignificantConflicts: 1, MissCount: 2},
		{Timestamp: base.Add(25 * time.Hour), ModuleCount: 7, EdgeCount: 9, SignificantConflicts: 3, MissCount: 1},
	}

	report, err := BuildTrendReport("app@1.0", runs, 24*time.Hour)
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if report.RunCount != 3 {
		t.Fatalf("expected run_count=3, got %d", report.RunCount)
	}
	if report.Points[1].DeltaModules != 2 {
		t.Fatalf("expected delta_modules=2, got %d", report.Points[1].DeltaModules)
	}
	if report.Points[2].DeltaConflicts != 2 {
		t.Fatalf("expected delta_conflicts=2, got %d", report.Points[2].DeltaConflicts)
	}
	if report.Points[1].ModuleGrowthPct != 50 {
		t.Fatalf("expected module growth pct=50, got %v", report.Points[1].ModuleGrowthPct)
	}
	if report.Points[1].AvgConflicts != 1.5 {
		t.Fatalf("expected avg_conflicts=1.5, got %v", report.Points[1].AvgConflicts)
	}
	// The first run falls outside the 24h window of the third.
	if report.Points[2].AvgMisses != 1.5 {
		t.Fatalf("expected avg_misses=1.5, got %v", report.Points[2].AvgMisses)
	}

	if _, err := BuildTrendReport("empty", nil, time.Hour); err == nil {
		t.Fatal("expected error for empty run list")
	}
}

func TestIsCorruptError(t *testing.T) {
	if !IsCorruptError(errors.New("database disk image is malformed")) {
		t.Fatal("expected malformed sqlite message to be treated as corrupt")
	}
	if IsCorruptError(nil) {
		t.Fatal("nil is not corrupt")
	}
}

func TestStore_RootIsolation(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	base := time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)
	if _, err := store.SaveRun(Run{RootKey: "a", Timestamp: base, ModuleCount: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.SaveRun(Run{RootKey: "b", Timestamp: base, ModuleCount: 2}); err != nil {
		t.Fatal(err)
	}

	aRows, err := store.LoadRuns("a", time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(aRows) != 1 || aRows[0].ModuleCount != 1 {
		t.Fatalf("unexpected rows for a: %+v", aRows)
	}

	def, err := store.LoadRuns("  ", time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(def) != 0 {
		t.Fatalf("expected no default rows, got %+v", def)
	}
}
