// Package semindex is the embedding-backed semantic search index. Entries
// are embedded snippets of code structure (one per function, class, and
// file); the whole index persists as a single JSON document and is searched
// with a linear cosine scan, which is plenty at single-project scale.
package semindex

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/viterin/vek/vek32"

	"github.com/codetldr/tldr/internal/embed"
)

// Entry kinds.
const (
	KindFunction = "function"
	KindClass    = "class"
	KindFile     = "file"
)

// Entry is one indexed code entity with its embedding.
type Entry struct {
	ID          string            `json:"id"`
	FilePath    string            `json:"file_path"`
	ContentHash string            `json:"content_hash"`
	Kind        string            `json:"kind"`
	Name        string            `json:"name"`
	Text        string            `json:"text"`
	Vector      []float32         `json:"vector"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	IndexedAt   time.Time         `json:"indexed_at"`
}

// Result is one search hit.
type Result struct {
	Entry *Entry  `json:"entry"`
	Score float64 `json:"score"`
}

// SearchOptions filter and bound a search.
type SearchOptions struct {
	Limit      int
	KindFilter string // exact kind match when non-empty
	PathFilter string // substring match on file path when non-empty
	MinScore   float64
}

// indexDocument is the on-disk shape.
type indexDocument struct {
	Dimensions int               `json:"dimensions"`
	Entries    map[string]*Entry `json:"entries"`
	SavedAt    time.Time         `json:"saved_at"`
}

// Index holds the entries in memory and serializes writers. Readers may
// search concurrently.
type Index struct {
	mu       sync.RWMutex
	path     string
	embedder embed.Embedder
	entries  map[string]*Entry
	byFile   map[string][]string // file path -> entry ids
	dirty    bool
}

// Open loads the index document at path, or starts empty if it does not
// exist. A document whose dimensionality does not match the embedder's is
// discarded so incompatible vectors never mix.
func Open(path string, embedder embed.Embedder) (*Index, error) {
	idx := &Index{
		path:     path,
		embedder: embedder,
		entries:  make(map[string]*Entry),
		byFile:   make(map[string][]string),
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index %s: %w", path, err)
	}
	var doc indexDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		// Corrupt document: start over rather than fail the caller.
		return idx, nil
	}
	if doc.Dimensions != embedder.Dimensions() {
		return idx, nil
	}
	if doc.Entries != nil {
		idx.entries = doc.Entries
	}
	for id, e := range idx.entries {
		idx.byFile[e.FilePath] = append(idx.byFile[e.FilePath], id)
	}
	for _, ids := range idx.byFile {
		sort.Strings(ids)
	}
	return idx, nil
}

// EntryID derives the deterministic id for an entity. Re-indexing the same
// entity always lands on the same id.
func EntryID(filePath, kind, name string) string {
	sum := sha256.Sum256([]byte(filePath + "\x00" + kind + "\x00" + name))
	return hex.EncodeToString(sum[:16])
}

// AddEntry embeds text and stores the entry, replacing any previous entry
// with the same identity.
func (idx *Index) AddEntry(ctx context.Context, filePath, contentHash, kind, name, text string, metadata map[string]string) (*Entry, error) {
	vector, err := idx.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %s %s: %w", kind, name, err)
	}
	entry := &Entry{
		ID:          EntryID(filePath, kind, name),
		FilePath:    filePath,
		ContentHash: contentHash,
		Kind:        kind,
		Name:        name,
		Text:        text,
		Vector:      vector,
		Metadata:    metadata,
		IndexedAt:   time.Now().UTC(),
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, exists := idx.entries[entry.ID]; !exists {
		idx.byFile[filePath] = append(idx.byFile[filePath], entry.ID)
		sort.Strings(idx.byFile[filePath])
	}
	idx.entries[entry.ID] = entry
	idx.dirty = true
	return entry, nil
}

// RemoveFile deletes every entry for a file and returns how many it removed.
func (idx *Index) RemoveFile(filePath string) int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	ids := idx.byFile[filePath]
	for _, id := range ids {
		delete(idx.entries, id)
	}
	delete(idx.byFile, filePath)
	if len(ids) > 0 {
		idx.dirty = true
	}
	return len(ids)
}

// IsFileCurrent reports whether the file already has entries stored under
// the given content hash. Used during rebuilds to skip unchanged files.
func (idx *Index) IsFileCurrent(filePath, contentHash string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	ids := idx.byFile[filePath]
	if len(ids) == 0 {
		return false
	}
	entry, ok := idx.entries[ids[0]]
	return ok && entry.ContentHash == contentHash
}

// Search embeds the query once and ranks every entry by cosine similarity.
func (idx *Index) Search(ctx context.Context, query string, opts SearchOptions) ([]Result, error) {
	queryVec, err := idx.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.rank(queryVec, "", opts), nil
}

// SearchSimilar ranks entries against an existing entry's vector, excluding
// the entry itself.
func (idx *Index) SearchSimilar(entryID string, limit int) ([]Result, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	entry, ok := idx.entries[entryID]
	if !ok {
		return nil, fmt.Errorf("no index entry with id %s", entryID)
	}
	return idx.rank(entry.Vector, entryID, SearchOptions{Limit: limit}), nil
}

// rank is the shared linear scan. Callers hold at least the read lock.
func (idx *Index) rank(queryVec []float32, excludeID string, opts SearchOptions) []Result {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}
	results := make([]Result, 0, len(idx.entries))
	for id, entry := range idx.entries {
		if id == excludeID {
			continue
		}
		if opts.KindFilter != "" && entry.Kind != opts.KindFilter {
			continue
		}
		if opts.PathFilter != "" && !strings.Contains(entry.FilePath, opts.PathFilter) {
			continue
		}
		score := cosine(queryVec, entry.Vector)
		if score < opts.MinScore {
			continue
		}
		results = append(results, Result{Entry: entry, Score: score})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Entry.ID < results[j].Entry.ID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Save writes the whole index as one JSON document, via a temp file and
// rename so concurrent readers never see a partial write.
func (idx *Index) Save() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.dirty {
		return nil
	}
	doc := indexDocument{
		Dimensions: idx.embedder.Dimensions(),
		Entries:    idx.entries,
		SavedAt:    time.Now().UTC(),
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(idx.path), 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}
	tmp := idx.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	if err := os.Rename(tmp, idx.path); err != nil {
		return fmt.Errorf("failed to replace index: %w", err)
	}
	idx.dirty = false
	return nil
}

// Len returns the number of stored entries.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Entry returns a stored entry by id.
func (idx *Index) Entry(id string) (*Entry, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	e, ok := idx.entries[id]
	return e, ok
}

// Files returns the indexed file paths, sorted.
func (idx *Index) Files() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	files := make([]string, 0, len(idx.byFile))
	for f := range idx.byFile {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// cosine is the cosine similarity of two equal-length vectors. Mismatched
// lengths or zero vectors score 0.
func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	dot := float64(vek32.Dot(a, b))
	na := math.Sqrt(float64(vek32.Dot(a, a)))
	nb := math.Sqrt(float64(vek32.Dot(b, b)))
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (na * nb)
}
