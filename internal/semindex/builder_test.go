package semindex

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codetldr/tldr/internal/analyzer"
	"github.com/codetldr/tldr/internal/embed"
)

// Test Plan:
// - Build indexes functions, classes, methods, and one file entry per file
// - A second build over unchanged files skips all of them
// - Editing a file reindexes it and replaces its old entries
// - The progress callback fires once per discovered file

const builderSource = `"""Order utilities."""

def load_orders(path):
    """Read orders from disk."""
    return path


class OrderBook:
    def add(self, order):
        return order
`

func writeBuilderProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.py"), []byte(builderSource), 0o644))
	return dir
}

func newTestBuilder(t *testing.T) (*Builder, *Index) {
	t.Helper()
	idx := newTestIndex(t)
	a := analyzer.New(analyzer.Options{})
	return NewBuilder(a, idx), idx
}

func TestBuilder_Build(t *testing.T) {
	dir := writeBuilderProject(t)
	b, idx := newTestBuilder(t)

	var seen []string
	stats, err := b.Build(context.Background(), dir, BuildOptions{
		Progress: func(path string) { seen = append(seen, path) },
	})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.FilesIndexed)
	assert.Equal(t, 0, stats.FilesSkipped)
	assert.Equal(t, 0, stats.Errors)
	// load_orders, OrderBook, OrderBook.add, and the file entry.
	assert.Equal(t, 4, stats.Entries)
	assert.Equal(t, 4, idx.Len())
	assert.Len(t, seen, 1)

	file := idx.Files()[0]
	_, ok := idx.Entry(EntryID(file, KindFunction, "load_orders"))
	assert.True(t, ok)
	_, ok = idx.Entry(EntryID(file, KindClass, "OrderBook"))
	assert.True(t, ok)
	_, ok = idx.Entry(EntryID(file, KindFunction, "OrderBook.add"))
	assert.True(t, ok)
	_, ok = idx.Entry(EntryID(file, KindFile, file))
	assert.True(t, ok)
}

func TestBuilder_RebuildSkipsUnchanged(t *testing.T) {
	dir := writeBuilderProject(t)
	b, _ := newTestBuilder(t)

	_, err := b.Build(context.Background(), dir, BuildOptions{})
	require.NoError(t, err)

	stats, err := b.Build(context.Background(), dir, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.FilesIndexed)
	assert.Equal(t, 1, stats.FilesSkipped)
}

func TestBuilder_RebuildAfterEdit(t *testing.T) {
	dir := writeBuilderProject(t)
	b, idx := newTestBuilder(t)

	_, err := b.Build(context.Background(), dir, BuildOptions{})
	require.NoError(t, err)

	edited := "def load_orders(path):\n    return path\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "orders.py"), []byte(edited), 0o644))

	stats, err := b.Build(context.Background(), dir, BuildOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesIndexed)

	// The class entries from the first build are gone.
	assert.Equal(t, 2, idx.Len())
	file := idx.Files()[0]
	_, ok := idx.Entry(EntryID(file, KindClass, "OrderBook"))
	assert.False(t, ok)
}

func TestBuilder_SavesIndex(t *testing.T) {
	dir := writeBuilderProject(t)
	indexPath := filepath.Join(t.TempDir(), "index.json")
	embedder := embed.NewLocalEmbedder(64)
	idx, err := Open(indexPath, embedder)
	require.NoError(t, err)

	b := NewBuilder(analyzer.New(analyzer.Options{}), idx)
	_, err = b.Build(context.Background(), dir, BuildOptions{})
	require.NoError(t, err)

	reopened, err := Open(indexPath, embedder)
	require.NoError(t, err)
	assert.Equal(t, 4, reopened.Len())
}
