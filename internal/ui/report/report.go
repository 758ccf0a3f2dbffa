// Package report renders a collected graph into the supported export formats
// and writes them to disk.
package report

import (
	domainerrors "depgrapher/internal/core/errors"
	"depgrapher/internal/engine/graph"
	"depgrapher/internal/ui/report/formats"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type Format string

const (
	FormatPlantUML       Format = "plantuml"
	FormatReferencersCSV Format = "csv-referencers"
	FormatReferencesCSV  Format = "csv-references"
	FormatCircular       Format = "circular"
	FormatOverview       Format = "overview"

	DefaultFormat = FormatPlantUML
)

// Generator renders one export format from a frozen graph.
type Generator interface {
	Generate() (string, error)
}

type formatEntry struct {
	filename string
	build    func(*graph.Store) Generator
}

var registry = map[Format]formatEntry{
	FormatPlantUML: {"diagram.plantuml", func(s *graph.Store) Generator { return formats.NewPlantUMLGenerator(s) }},
	FormatReferencersCSV: {"referencers.csv", func(s *graph.Store) Generator {
		return formats.NewReferencersCSVGenerator(s)
	}},
	FormatReferencesCSV: {"references.csv", func(s *graph.Store) Generator {
		return formats.NewReferencesCSVGenerator(s)
	}},
	FormatCircular: {"circular.csv", func(s *graph.Store) Generator { return formats.NewCircularGenerator(s) }},
	FormatOverview: {"overview.md", func(s *graph.Store) Generator { return formats.NewOverviewGenerator(s) }},
}

// Formats lists every supported format name, sorted.
func Formats() []Format {
	out := make([]Format, 0, len(registry))
	for f := range registry {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseFormat accepts a format name case-insensitively. Empty means the default.
func ParseFormat(raw string) (Format, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return DefaultFormat, nil
	}
	f := Format(raw)
	if _, ok := registry[f]; !ok {
		names := make([]string, 0, len(registry))
		for _, known := range Formats() {
			names = append(names, string(known))
		}
		return "", domainerrors.Newf(domainerrors.CodeValidationError,
			"unknown format %q (expected one of %s)", raw, strings.Join(names, ", "))
	}
	return f, nil
}

// Filename is the file a format is written to inside the output directory.
func (f Format) Filename() string {
	return registry[f].filename
}

func Render(f Format, s *graph.Store) (string, error) {
	entry, ok := registry[f]
	if !ok {
		return "", domainerrors.Newf(domainerrors.CodeValidationError, "unknown format %q", f)
	}
	return entry.build(s).Generate()
}

// Write renders f into w.
func Write(w io.Writer, f Format, s *graph.Store) error {
	out, err := Render(f, s)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// WriteFile renders f into dir and returns the written path. The file is
// replaced atomically so a failed run never leaves a truncated export.
func WriteFile(dir string, f Format, s *graph.Store) (string, error) {
	out, err := Render(f, s)
	if err != nil {
		return "", err
	}
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, f.Filename())
	if err := writeAtomic(path, out); err != nil {
		return "", domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeSetup, "write export"),
			domainerrors.CtxPath, path)
	}
	return path, nil
}

func writeAtomic(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory %q: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".depgrapher-export-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %q: %w", path, err)
	}
	tmpName := tmp.Name()

	writeErr := error(nil)
	if _, err := tmp.WriteString(content); err != nil {
		writeErr = fmt.Errorf("write temp file %q: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil && writeErr == nil {
		writeErr = fmt.Errorf("close temp file %q: %w", tmpName, err)
	}
	if writeErr == nil {
		writeErr = os.Chmod(tmpName, 0o644)
	}
	if writeErr != nil {
		_ = os.Remove(tmpName)
		return writeErr
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %q: %w", path, err)
	}
	return nil
}
