package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitFor(t *testing.T, ch <-chan []string, want string, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case paths := <-ch:
			for _, p := range paths {
				if p == want {
					return
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for change to %s", want)
		}
	}
}

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil)
	if err == nil {
		t.Fatal("expected error for nil callback")
	}
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func TestWatcher_ReportsMatchingArtifacts(t *testing.T) {
	tmpDir := t.TempDir()

	changed := make(chan []string, 4)
	w, err := NewWatcher(50*time.Millisecond, DefaultPatterns, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	artifact := filepath.Join(tmpDir, "Contoso.Core.module.toml")
	if err := os.WriteFile(artifact, []byte("name = \"Contoso.Core\"\nversion = \"1.0\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changed, artifact, 2*time.Second)

	// Unrelated files are ignored.
	if err := os.WriteFile(filepath.Join(tmpDir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case paths := <-changed:
		t.Fatalf("unexpected change for unrelated file: %v", paths)
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_ExplicitFileAndIdenticalContent(t *testing.T) {
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "depgrapher.toml")
	content := []byte("[output]\ndir = \"out\"\n")
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	changed := make(chan []string, 4)
	w, err := NewWatcher(50*time.Millisecond, nil, func(paths []string) {
		changed <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{cfgPath}); err != nil {
		t.Fatal(err)
	}

	// Rewriting the same bytes does not count as a change.
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case paths := <-changed:
		t.Fatalf("unexpected change for identical content: %v", paths)
	case <-time.After(300 * time.Millisecond):
	}

	if err := os.WriteFile(cfgPath, []byte("[output]\ndir = \"elsewhere\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	abs, _ := filepath.Abs(cfgPath)
	waitFor(t, changed, abs, 2*time.Second)
}

func TestWatcher_WatchMissingPath(t *testing.T) {
	w, err := NewWatcher(10*time.Millisecond, nil, func([]string) {})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch([]string{filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatal("expected error for missing path")
	}
}
