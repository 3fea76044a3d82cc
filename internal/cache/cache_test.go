package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codetldr/tldr/internal/extract"
)

// Test Plan:
// - Key.String is canonical: layers sorted and de-duplicated
// - Set then Get returns the same summary; a content hash change is a miss
// - Disk hits survive a memory eviction and are promoted back
// - InvalidateFile removes every key for the path in both tiers
// - Corrupt disk files are misses, not errors, and get cleaned up
// - CleanupExpired honors the TTL; Clear empties everything
// - Stats counters track hits and misses

func newTestCache(t *testing.T, capacity int) *Cache {
	t.Helper()
	c, err := New(Options{
		Dir:            t.TempDir(),
		MemoryCapacity: capacity,
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func testSummary(path string) *extract.Summary {
	return &extract.Summary{
		FilePath:       path,
		Language:       "python",
		TotalLines:     10,
		LayersIncluded: []extract.Layer{extract.LayerSignatures},
	}
}

func TestKey_StringIsCanonical(t *testing.T) {
	a := Key{Path: "src/app.py", Layers: []extract.Layer{3, 1, 2}}
	b := Key{Path: "src/app.py", Layers: []extract.Layer{1, 2, 3, 3}}
	assert.Equal(t, "src/app.py|L1,2,3", a.String())
	assert.Equal(t, a.String(), b.String())
}

func TestCache_SetGet(t *testing.T) {
	c := newTestCache(t, 10)
	key := Key{Path: "a.py", Layers: []extract.Layer{1}}
	hash := HashContent([]byte("content"))

	_, ok := c.Get(key, hash)
	assert.False(t, ok)

	require.NoError(t, c.Set(key, hash, testSummary("a.py")))

	got, ok := c.Get(key, hash)
	require.True(t, ok)
	assert.Equal(t, "a.py", got.FilePath)

	stats := c.GetStats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, 1, stats.MemoryEntries)
	assert.Equal(t, 1, stats.DiskEntries)
}

func TestCache_HitsAreIsolatedFromCallerMutation(t *testing.T) {
	c := newTestCache(t, 10)
	key := Key{Path: "a.py", Layers: []extract.Layer{1}}
	hash := HashContent([]byte("content"))

	s := testSummary("a.py")
	s.Functions = []extract.FunctionSignature{{Name: "main"}}
	require.NoError(t, c.Set(key, hash, s))

	// Mutating the summary after Set must not reach the stored entry.
	s.Functions[0].Name = "clobbered"
	s.LayersIncluded[0] = extract.LayerSlices

	first, ok := c.Get(key, hash)
	require.True(t, ok)
	assert.Equal(t, "main", first.Functions[0].Name)
	assert.Equal(t, extract.LayerSignatures, first.LayersIncluded[0])

	// Mutating a hit must not corrupt later hits either.
	first.Functions[0].Name = "clobbered"
	first.FilePath = "elsewhere.py"

	second, ok := c.Get(key, hash)
	require.True(t, ok)
	assert.Equal(t, "main", second.Functions[0].Name)
	assert.Equal(t, "a.py", second.FilePath)
}

func TestCache_HashMismatchIsMiss(t *testing.T) {
	c := newTestCache(t, 10)
	key := Key{Path: "a.py", Layers: []extract.Layer{1}}

	require.NoError(t, c.Set(key, HashContent([]byte("v1")), testSummary("a.py")))

	_, ok := c.Get(key, HashContent([]byte("v2")))
	assert.False(t, ok)

	// The stale entry is gone from both tiers.
	stats := c.GetStats()
	assert.Equal(t, 0, stats.MemoryEntries)
	assert.Equal(t, 0, stats.DiskEntries)
}

func TestCache_DiskHitPromotesAfterEviction(t *testing.T) {
	c := newTestCache(t, 1)
	hash := HashContent([]byte("x"))
	keyA := Key{Path: "a.py", Layers: []extract.Layer{1}}
	keyB := Key{Path: "b.py", Layers: []extract.Layer{1}}

	require.NoError(t, c.Set(keyA, hash, testSummary("a.py")))
	require.NoError(t, c.Set(keyB, hash, testSummary("b.py"))) // evicts a.py from memory

	stats := c.GetStats()
	assert.Equal(t, 1, stats.MemoryEntries)
	assert.Equal(t, uint64(1), stats.Evictions)
	assert.Equal(t, 2, stats.DiskEntries)

	got, ok := c.Get(keyA, hash)
	require.True(t, ok, "evicted entry should still hit via disk")
	assert.Equal(t, "a.py", got.FilePath)
}

func TestCache_InvalidateFile(t *testing.T) {
	c := newTestCache(t, 10)
	hash := HashContent([]byte("x"))

	require.NoError(t, c.Set(Key{Path: "a.py", Layers: []extract.Layer{1}}, hash, testSummary("a.py")))
	require.NoError(t, c.Set(Key{Path: "a.py", Layers: []extract.Layer{1, 2}}, hash, testSummary("a.py")))
	require.NoError(t, c.Set(Key{Path: "b.py", Layers: []extract.Layer{1}}, hash, testSummary("b.py")))

	removed, err := c.InvalidateFile("a.py")
	require.NoError(t, err)
	// Two memory entries plus their two disk entries.
	assert.Equal(t, 4, removed)

	_, ok := c.Get(Key{Path: "a.py", Layers: []extract.Layer{1}}, hash)
	assert.False(t, ok)
	_, ok = c.Get(Key{Path: "b.py", Layers: []extract.Layer{1}}, hash)
	assert.True(t, ok, "other files stay cached")
}

func TestCache_CorruptDiskFileIsMiss(t *testing.T) {
	dir := t.TempDir()
	c, err := New(Options{Dir: dir, MemoryCapacity: 1})
	require.NoError(t, err)
	defer c.Close()

	hash := HashContent([]byte("x"))
	keyA := Key{Path: "a.py", Layers: []extract.Layer{1}}
	require.NoError(t, c.Set(keyA, hash, testSummary("a.py")))
	// Push a.py out of memory so the next Get goes to disk.
	require.NoError(t, c.Set(Key{Path: "b.py", Layers: []extract.Layer{1}}, hash, testSummary("b.py")))

	// Corrupt a.py's disk file.
	name := HashContent([]byte(keyA.String())) + ".json"
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("{not json"), 0o644))

	_, ok := c.Get(keyA, hash)
	assert.False(t, ok)

	// The corrupt file was removed, not retried forever.
	_, statErr := os.Stat(filepath.Join(dir, name))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCache_CleanupExpired(t *testing.T) {
	dir := t.TempDir()
	c, err := New(Options{Dir: dir, MemoryCapacity: 10, TTL: time.Hour})
	require.NoError(t, err)
	defer c.Close()

	hash := HashContent([]byte("x"))
	key := Key{Path: "a.py", Layers: []extract.Layer{1}}
	require.NoError(t, c.Set(key, hash, testSummary("a.py")))

	// Backdate the entry on disk and in the index.
	old := time.Now().Add(-2 * time.Hour)
	name := HashContent([]byte(key.String())) + ".json"
	entryPath := filepath.Join(dir, name)
	data, err := os.ReadFile(entryPath)
	require.NoError(t, err)
	var entry Entry
	require.NoError(t, json.Unmarshal(data, &entry))
	entry.CreatedAt = old
	backdated, err := json.Marshal(&entry)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(entryPath, backdated, 0o644))
	_, err = c.disk.db.Exec(`UPDATE entries SET created_at = ? WHERE key = ?`, old.Unix(), key.String())
	require.NoError(t, err)

	removed, err := c.CleanupExpired()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, c.GetStats().DiskEntries)
}

func TestCache_TTLExpiryOnGet(t *testing.T) {
	dir := t.TempDir()
	c, err := New(Options{Dir: dir, MemoryCapacity: 1, TTL: time.Hour})
	require.NoError(t, err)
	defer c.Close()

	hash := HashContent([]byte("x"))
	keyA := Key{Path: "a.py", Layers: []extract.Layer{1}}
	require.NoError(t, c.Set(keyA, hash, testSummary("a.py")))
	require.NoError(t, c.Set(Key{Path: "b.py", Layers: []extract.Layer{1}}, hash, testSummary("b.py")))

	// Backdate a.py's disk entry past the TTL.
	name := HashContent([]byte(keyA.String())) + ".json"
	entryPath := filepath.Join(dir, name)
	data, err := os.ReadFile(entryPath)
	require.NoError(t, err)
	var entry Entry
	require.NoError(t, json.Unmarshal(data, &entry))
	entry.CreatedAt = time.Now().Add(-2 * time.Hour)
	backdated, err := json.Marshal(&entry)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(entryPath, backdated, 0o644))

	_, ok := c.Get(keyA, hash)
	assert.False(t, ok, "expired disk entry must miss")
}

func TestCache_Clear(t *testing.T) {
	c := newTestCache(t, 10)
	hash := HashContent([]byte("x"))
	require.NoError(t, c.Set(Key{Path: "a.py", Layers: []extract.Layer{1}}, hash, testSummary("a.py")))
	require.NoError(t, c.Set(Key{Path: "b.py", Layers: []extract.Layer{1}}, hash, testSummary("b.py")))

	require.NoError(t, c.Clear())
	stats := c.GetStats()
	assert.Equal(t, 0, stats.MemoryEntries)
	assert.Equal(t, 0, stats.DiskEntries)
}

func TestCache_MemoryOnly(t *testing.T) {
	c, err := New(Options{MemoryCapacity: 10})
	require.NoError(t, err)
	defer c.Close()

	hash := HashContent([]byte("x"))
	key := Key{Path: "a.py", Layers: []extract.Layer{1}}
	require.NoError(t, c.Set(key, hash, testSummary("a.py")))

	_, ok := c.Get(key, hash)
	assert.True(t, ok)
	assert.Equal(t, 0, c.GetStats().DiskEntries)
}

func TestHashContent_Deterministic(t *testing.T) {
	assert.Equal(t, HashContent([]byte("same")), HashContent([]byte("same")))
	assert.NotEqual(t, HashContent([]byte("a")), HashContent([]byte("b")))
	assert.Len(t, HashContent(nil), 64)
}
