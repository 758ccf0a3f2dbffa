package report

import (
	domainerrors "depgrapher/internal/core/errors"
	"depgrapher/internal/engine/graph"
	"depgrapher/internal/engine/identity"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleStore(t *testing.T) *graph.Store {
	t.Helper()
	s := graph.NewStore()
	s.AddModule(identity.MustParse("App", "1.0"), "net8.0")
	s.AddModule(identity.MustParse("Lib", "2.0"), "net8.0")
	require.NoError(t, s.AddEdge(identity.MustParse("App", "1.0"), identity.MustParse("Lib", "2.0")))
	s.Freeze()
	return s
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatPlantUML, f)

	f, err = ParseFormat(" CSV-Referencers ")
	require.NoError(t, err)
	assert.Equal(t, FormatReferencersCSV, f)

	_, err = ParseFormat("graphml")
	require.Error(t, err)
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeValidationError))
	assert.Contains(t, err.Error(), "csv-references")
}

func TestFormats_HaveFilenames(t *testing.T) {
	assert.Len(t, Formats(), 5)
	for _, f := range Formats() {
		assert.NotEmpty(t, f.Filename(), f)
	}
	assert.Equal(t, "diagram.plantuml", FormatPlantUML.Filename())
	assert.Equal(t, "circular.csv", FormatCircular.Filename())
}

func TestWrite(t *testing.T) {
	var b strings.Builder
	require.NoError(t, Write(&b, FormatReferencesCSV, sampleStore(t)))
	assert.Equal(t, "App;1.0.0.0;Lib;2.0.0.0\n", b.String())

	assert.Error(t, Write(&b, Format("nope"), sampleStore(t)))
}

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")
	path, err := WriteFile(dir, FormatOverview, sampleStore(t))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "overview.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# Overview\n"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWriteFile_UnwritableIsSetupError(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := WriteFile(filepath.Join(blocker, "sub"), FormatPlantUML, sampleStore(t))
	require.Error(t, err)
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeSetup))
}
