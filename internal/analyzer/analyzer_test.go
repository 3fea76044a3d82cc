package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codetldr/tldr/internal/cache"
	"github.com/codetldr/tldr/internal/extract"
)

// Test Plan:
// - AnalyzeFile dispatches by extension and reports unreadable or
//   unsupported files inside the Summary, not as errors
// - A layer-1 failure gates layers 2-5 off
// - Cached analysis returns the stored summary on an unchanged file
// - AnalyzeDirectory honors include and exclude globs and the file cap
// - Render is deterministic and carries every requested section
// - FormatSignature covers the parameter and marker variants
// - ShouldUseTLDR keys off extractor support and file size

const pythonSource = `"""Inventory helpers."""
import json
from . import sibling


def main(path, limit=10):
    """Entry point."""
    items = json.loads(path)
    if limit:
        return items[:limit]
    return items


class Inventory:
    capacity: int = 100

    def restock(self, n):
        return n
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAnalyzeFile_Python(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "inv.py", pythonSource)
	a := New(Options{})

	s := a.AnalyzeFile(path, []extract.Layer{1, 2}, false)
	require.Empty(t, s.Errors)
	assert.Equal(t, "python", s.Language)
	assert.Equal(t, []extract.Layer{1, 2}, s.LayersIncluded)
	assert.Equal(t, "Inventory helpers.", s.ModuleDoc)
	require.Len(t, s.Functions, 1)
	assert.Equal(t, "main", s.Functions[0].Name)
	require.Len(t, s.Classes, 1)
	assert.NotEmpty(t, s.FileHash)
	assert.Greater(t, s.TotalLines, 10)
	assert.Greater(t, s.OriginalTokens, 0)
	assert.Greater(t, s.SummaryTokens, 0)
}

func TestAnalyzeFile_TokenCountMatchesRendering(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "inv.py", pythonSource)
	a := New(Options{})

	s := a.AnalyzeFile(path, []extract.Layer{1, 2, 3}, false)
	require.Empty(t, s.Errors)
	assert.Equal(t, extract.EstimateTokens(Render(s)), s.SummaryTokens)
}

func TestAnalyzeFile_DefaultLayers(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "inv.py", pythonSource)
	a := New(Options{})

	s := a.AnalyzeFile(path, nil, false)
	assert.Equal(t, extract.DefaultLayers, s.LayersIncluded)
}

func TestAnalyzeFile_MissingFile(t *testing.T) {
	a := New(Options{Root: t.TempDir()})
	s := a.AnalyzeFile("nope.py", nil, false)
	require.Len(t, s.Errors, 1)
	assert.Contains(t, s.Errors[0], "cannot read")
	assert.Empty(t, s.LayersIncluded)
}

func TestAnalyzeFile_UnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "data.xyz", "whatever")
	a := New(Options{})

	s := a.AnalyzeFile(path, nil, false)
	require.Len(t, s.Errors, 1)
	assert.Contains(t, s.Errors[0], "No extractor for .xyz")
	assert.Empty(t, s.LayersIncluded)
}

func TestAnalyzeFile_SyntaxErrorGatesUpperLayers(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "broken.py", "def broken(:\n    pass\n")
	a := New(Options{})

	s := a.AnalyzeFile(path, []extract.Layer{1, 2, 3, 4, 5}, false)
	require.NotEmpty(t, s.Errors)
	assert.Equal(t, []extract.Layer{extract.LayerSignatures}, s.LayersIncluded)
	assert.Empty(t, s.CallGraph)
	assert.Empty(t, s.ControlFlow)
}

func TestAnalyzeFile_RelativePathResolvedAgainstRoot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "inv.py", pythonSource)
	a := New(Options{Root: dir})

	s := a.AnalyzeFile("inv.py", []extract.Layer{1}, false)
	assert.Empty(t, s.Errors)
	assert.True(t, strings.HasSuffix(s.FilePath, "/inv.py"))
}

func TestAnalyzeFile_CacheRoundtrip(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "inv.py", pythonSource)
	c, err := cache.New(cache.Options{Dir: t.TempDir()})
	require.NoError(t, err)
	defer c.Close()
	a := New(Options{Cache: c})

	first := a.AnalyzeFile(path, []extract.Layer{1}, true)
	require.Empty(t, first.Errors)
	second := a.AnalyzeFile(path, []extract.Layer{1}, true)

	assert.Equal(t, first.FileHash, second.FileHash)
	assert.Equal(t, uint64(1), c.GetStats().Hits)

	// Editing the file invalidates the entry by content hash.
	writeFile(t, dir, "inv.py", pythonSource+"\nEXTRA = 1\n")
	third := a.AnalyzeFile(path, []extract.Layer{1}, true)
	assert.NotEqual(t, first.FileHash, third.FileHash)
}

func TestAnalyzeDirectory_Globs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keep.py", "x = 1\n")
	writeFile(t, dir, "sub/also.py", "y = 2\n")
	writeFile(t, dir, "sub/skip.py", "z = 3\n")
	writeFile(t, dir, "notes.txt", "not code")
	a := New(Options{})

	summaries, err := a.AnalyzeDirectory(context.Background(), dir, DirectoryOptions{
		Layers:  []extract.Layer{1},
		Exclude: []string{"sub/skip.py"},
	})
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.True(t, strings.HasSuffix(summaries[0].FilePath, "/keep.py"))
	assert.True(t, strings.HasSuffix(summaries[1].FilePath, "/sub/also.py"))

	summaries, err = a.AnalyzeDirectory(context.Background(), dir, DirectoryOptions{
		Layers:  []extract.Layer{1},
		Include: []string{"sub/*"},
	})
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	for _, s := range summaries {
		assert.Contains(t, s.FilePath, "/sub/")
	}
}

func TestAnalyzeDirectory_MaxFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.py", "a = 1\n")
	writeFile(t, dir, "b.py", "b = 2\n")
	writeFile(t, dir, "c.py", "c = 3\n")
	a := New(Options{})

	summaries, err := a.AnalyzeDirectory(context.Background(), dir, DirectoryOptions{
		Layers:   []extract.Layer{1},
		MaxFiles: 2,
	})
	require.NoError(t, err)
	assert.Len(t, summaries, 2)
}

func TestAnalyzeDirectory_BadGlob(t *testing.T) {
	a := New(Options{})
	_, err := a.AnalyzeDirectory(context.Background(), t.TempDir(), DirectoryOptions{
		Include: []string{"[unclosed"},
	})
	assert.Error(t, err)
}

func TestRender_Sections(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "inv.py", pythonSource)
	a := New(Options{})
	s := a.AnalyzeFile(path, []extract.Layer{1, 2, 3}, false)
	require.Empty(t, s.Errors)

	out := Render(s)
	assert.True(t, strings.HasPrefix(out, "# "))
	assert.Contains(t, out, "(python, ")
	assert.Contains(t, out, "Inventory helpers.")
	assert.Contains(t, out, "## Imports")
	assert.Contains(t, out, "- json")
	assert.Contains(t, out, "- . {sibling}")
	assert.Contains(t, out, "## class Inventory [")
	assert.Contains(t, out, "- capacity: int")
	assert.Contains(t, out, "## Functions")
	assert.Contains(t, out, "main(path, limit=10)")
	assert.Contains(t, out, "## Calls")
	assert.Contains(t, out, "main -> json.loads")
	assert.Contains(t, out, "[external]")
	assert.Contains(t, out, "## Control flow")
	assert.Contains(t, out, "## External dependencies")

	assert.Equal(t, out, Render(s), "rendering must be deterministic")
}

func TestRender_ErrorSummary(t *testing.T) {
	s := errorSummary("gone.py", "cannot read gone.py: no such file")
	out := Render(s)
	assert.Contains(t, out, "! cannot read gone.py")
}

func TestRender_CapsCallEdges(t *testing.T) {
	s := &extract.Summary{FilePath: "big.py", Language: "python", TotalLines: 1}
	for i := 0; i < maxRenderedCallEdges+5; i++ {
		s.CallGraph = append(s.CallGraph, extract.CallGraphEdge{Caller: "f", Callee: "g", Line: i + 1})
	}
	out := Render(s)
	assert.Contains(t, out, "... 5 more edges")
}

func TestFormatSignature(t *testing.T) {
	fn := extract.FunctionSignature{
		Name:      "fetch",
		IsAsync:   true,
		StartLine: 3,
		EndLine:   9,
		Parameters: []extract.ParameterInfo{
			{Name: "url", Type: "str"},
			{Name: "timeout", Default: "30"},
			{Name: "args", IsVariadic: true},
			{Name: "kwargs", IsKeyword: true},
		},
		ReturnType: "Response",
		Complexity: 4,
	}
	assert.Equal(t,
		"async fetch(url: str, timeout=30, *args, **kwargs) -> Response [cc=4] [3-9]",
		FormatSignature(fn))

	static := extract.FunctionSignature{Name: "parse", IsStatic: true, StartLine: 1, EndLine: 2}
	assert.Equal(t, "parse() [static] [1-2]", FormatSignature(static))
}

func TestShouldUseTLDR(t *testing.T) {
	dir := t.TempDir()
	big := writeFile(t, dir, "big.py", strings.Repeat("x = 1\n", 500))
	small := writeFile(t, dir, "small.py", "x = 1\n")
	other := writeFile(t, dir, "data.xyz", strings.Repeat("data\n", 1000))
	a := New(Options{})

	assert.True(t, a.ShouldUseTLDR(big))
	assert.False(t, a.ShouldUseTLDR(small), "tiny files are cheaper read whole")
	assert.False(t, a.ShouldUseTLDR(other), "unsupported extension")
	assert.False(t, a.ShouldUseTLDR(dir), "directories never qualify")
	assert.False(t, a.ShouldUseTLDR(filepath.Join(dir, "gone.py")))
}

func TestSupported(t *testing.T) {
	a := New(Options{})
	assert.True(t, a.Supported("x.py"))
	assert.True(t, a.Supported("x.ts"))
	assert.False(t, a.Supported("x.xyz"))
}
