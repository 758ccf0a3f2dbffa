// Package watcher reports debounced changes to module artifacts and the
// configuration file so watch mode can re-run a collection.
package watcher

import (
	"crypto/sha256"
	"depgrapher/internal/shared/observability"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// DefaultPatterns match every artifact type the metadata registry reads.
var DefaultPatterns = []string{"*.nuspec", "*.nupkg", "*.module.toml"}

type Watcher struct {
	fsWatcher  *fsnotify.Watcher
	debounce   time.Duration
	include    []glob.Glob
	files      map[string]bool
	onChange   func([]string)
	callbackMu sync.Mutex

	hashes    map[string][sha256.Size]byte
	pending   map[string]time.Time
	pendingMu sync.Mutex
	timer     *time.Timer
}

// NewWatcher reports changes to files whose base name matches one of the
// include patterns, or that were passed to Watch explicitly.
func NewWatcher(debounce time.Duration, include []string, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}

	compiled := make([]glob.Glob, 0, len(include))
	for _, pattern := range include {
		g, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, g)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher: fsw,
		debounce:  debounce,
		include:   compiled,
		files:     make(map[string]bool),
		onChange:  onChange,
		hashes:    make(map[string][sha256.Size]byte),
		pending:   make(map[string]time.Time),
	}, nil
}

func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.debounce = debounce
}

// Watch starts watching paths. A directory is watched for matching files; a
// file is watched through its directory and always reported.
func (w *Watcher) Watch(paths []string) error {
	dirs := make(map[string]bool)
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		info, err := os.Stat(abs)
		if err != nil {
			return err
		}
		if info.IsDir() {
			dirs[abs] = true
			continue
		}
		w.pendingMu.Lock()
		w.files[abs] = true
		w.pendingMu.Unlock()
		w.remember(abs)
		dirs[filepath.Dir(abs)] = true
	}

	for dir := range dirs {
		if err := w.fsWatcher.Add(dir); err != nil {
			return err
		}
	}

	go w.run()
	return nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if !w.matches(event.Name) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.scheduleChange(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) matches(path string) bool {
	abs, err := filepath.Abs(path)
	if err == nil {
		w.pendingMu.Lock()
		explicit := w.files[abs]
		w.pendingMu.Unlock()
		if explicit {
			return true
		}
	}
	base := strings.ToLower(filepath.Base(path))
	for _, g := range w.include {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = time.Now()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flushChanges)
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	candidates := make([]string, 0, len(w.pending))
	for path := range w.pending {
		candidates = append(candidates, path)
	}
	w.pending = make(map[string]time.Time)
	w.pendingMu.Unlock()

	paths := make([]string, 0, len(candidates))
	for _, path := range candidates {
		if w.changed(path) {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)

	if len(paths) > 0 {
		w.callbackMu.Lock()
		defer w.callbackMu.Unlock()
		w.onChange(paths)
	}
}

// changed compares the file's content hash with the last one seen. Removed
// files always count as changed.
func (w *Watcher) changed(path string) bool {
	sum, ok := hashFile(path)

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	prev, seen := w.hashes[path]
	if !ok {
		delete(w.hashes, path)
		return true
	}
	w.hashes[path] = sum
	return !seen || prev != sum
}

func (w *Watcher) remember(path string) {
	if sum, ok := hashFile(path); ok {
		w.pendingMu.Lock()
		w.hashes[path] = sum
		w.pendingMu.Unlock()
	}
}

func hashFile(path string) ([sha256.Size]byte, bool) {
	var sum [sha256.Size]byte
	f, err := os.Open(path)
	if err != nil {
		return sum, false
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return sum, false
	}
	copy(sum[:], h.Sum(nil))
	return sum, true
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}
