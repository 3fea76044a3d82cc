// Package cache provides the two-tier summary cache: a bounded in-process
// LRU in front of an on-disk one-file-per-key JSON store. Entries are keyed
// by (normalized file path, sorted layer set) and validated against the
// file's content hash; a hash mismatch is a miss, never an error.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/codetldr/tldr/internal/extract"
)

const (
	// DefaultMemoryCapacity bounds the in-process tier.
	DefaultMemoryCapacity = 1000
	// DefaultTTL expires disk entries.
	DefaultTTL = 24 * time.Hour
)

// Key identifies one cached summary.
type Key struct {
	Path   string
	Layers []extract.Layer
}

// String renders the canonical cache key: the normalized path plus the
// sorted layer set.
func (k Key) String() string {
	layers := extract.NormalizeLayers(k.Layers)
	parts := make([]string, len(layers))
	for i, l := range layers {
		parts[i] = fmt.Sprintf("%d", l)
	}
	return k.Path + "|L" + strings.Join(parts, ",")
}

// Entry is one stored summary with its validation hash.
type Entry struct {
	Key       string           `json:"key"`
	FilePath  string           `json:"file_path"`
	FileHash  string           `json:"file_hash"`
	CreatedAt time.Time        `json:"created_at"`
	Summary   *extract.Summary `json:"summary"`
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits          uint64 `json:"hits"`
	Misses        uint64 `json:"misses"`
	Evictions     uint64 `json:"evictions"`
	MemoryEntries int    `json:"memory_entries"`
	DiskEntries   int    `json:"disk_entries"`
}

// Options configures a Cache.
type Options struct {
	// Dir is the on-disk store location. Empty disables the disk tier.
	Dir string
	// MemoryCapacity is the LRU size; 0 means DefaultMemoryCapacity.
	MemoryCapacity int
	// TTL is the disk expiry; 0 means DefaultTTL.
	TTL time.Duration
}

// Cache is the two-tier store. All methods are safe for concurrent use;
// writers are serialized by the internal mutex.
type Cache struct {
	mu       sync.Mutex
	memory   *lru.Cache[string, *Entry]
	pathKeys map[string]map[string]struct{}
	disk     *diskStore
	ttl      time.Duration

	hits      uint64
	misses    uint64
	evictions uint64
}

// New creates a Cache. The disk tier is optional: with an empty dir the
// cache is memory-only.
func New(opts Options) (*Cache, error) {
	capacity := opts.MemoryCapacity
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c := &Cache{
		pathKeys: make(map[string]map[string]struct{}),
		ttl:      ttl,
	}

	memory, err := lru.NewWithEvict[string, *Entry](capacity, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("create memory tier: %w", err)
	}
	c.memory = memory

	if opts.Dir != "" {
		disk, err := newDiskStore(opts.Dir)
		if err != nil {
			return nil, fmt.Errorf("create disk tier: %w", err)
		}
		c.disk = disk
	}
	return c, nil
}

// onEvict keeps the path index in step with LRU evictions. golang-lru calls
// it synchronously from Add/Remove, with c.mu already held by the caller.
func (c *Cache) onEvict(key string, entry *Entry) {
	c.evictions++
	if keys, ok := c.pathKeys[entry.FilePath]; ok {
		delete(keys, key)
		if len(keys) == 0 {
			delete(c.pathKeys, entry.FilePath)
		}
	}
}

// Get returns a copy of the cached summary for the key if present and still
// valid against contentHash. Hits hand out clones so callers cannot mutate
// the stored entry. A disk hit is promoted into memory. Corrupt or stale
// entries are dropped and reported as misses.
func (c *Cache) Get(key Key, contentHash string) (*extract.Summary, bool) {
	keyStr := key.String()

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.memory.Get(keyStr); ok {
		if entry.FileHash == contentHash {
			c.hits++
			return entry.Summary.Clone(), true
		}
		c.memory.Remove(keyStr)
	}

	if c.disk != nil {
		entry, ok := c.disk.get(keyStr)
		if ok && entry.FileHash == contentHash && time.Since(entry.CreatedAt) < c.ttl {
			c.addToMemory(keyStr, entry)
			c.hits++
			return entry.Summary.Clone(), true
		}
		if ok {
			// stale, expired, or invalidated by a content change
			c.disk.remove(keyStr)
		}
	}

	c.misses++
	return nil, false
}

// Set writes the summary through both tiers unconditionally. The stored
// entry is a clone, so later mutations by the caller do not reach the cache.
func (c *Cache) Set(key Key, contentHash string, summary *extract.Summary) error {
	entry := &Entry{
		Key:       key.String(),
		FilePath:  key.Path,
		FileHash:  contentHash,
		CreatedAt: time.Now(),
		Summary:   summary.Clone(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.addToMemory(entry.Key, entry)
	if c.disk != nil {
		if err := c.disk.put(entry); err != nil {
			return fmt.Errorf("write disk cache entry: %w", err)
		}
	}
	return nil
}

func (c *Cache) addToMemory(key string, entry *Entry) {
	c.memory.Add(key, entry)
	keys, ok := c.pathKeys[entry.FilePath]
	if !ok {
		keys = make(map[string]struct{})
		c.pathKeys[entry.FilePath] = keys
	}
	keys[key] = struct{}{}
}

// InvalidateFile removes every entry, in both tiers, belonging to the given
// file path. It returns the number of entries removed.
func (c *Cache) InvalidateFile(path string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	if keys, ok := c.pathKeys[path]; ok {
		for key := range keys {
			if c.memory.Remove(key) {
				removed++
			}
		}
		delete(c.pathKeys, path)
	}

	if c.disk != nil {
		n, err := c.disk.removeFile(path)
		if err != nil {
			return removed, fmt.Errorf("invalidate disk entries for %s: %w", path, err)
		}
		removed += n
	}
	return removed, nil
}

// Clear empties both tiers.
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.memory.Purge()
	c.pathKeys = make(map[string]map[string]struct{})
	if c.disk != nil {
		if err := c.disk.clear(); err != nil {
			return fmt.Errorf("clear disk cache: %w", err)
		}
	}
	return nil
}

// CleanupExpired removes disk entries older than the TTL and returns the
// number removed.
func (c *Cache) CleanupExpired() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disk == nil {
		return 0, nil
	}
	return c.disk.removeOlderThan(time.Now().Add(-c.ttl))
}

// Close releases the disk tier's resources.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disk != nil {
		return c.disk.close()
	}
	return nil
}

// GetStats returns a snapshot of the counters and tier sizes.
func (c *Cache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Stats{
		Hits:          c.hits,
		Misses:        c.misses,
		Evictions:     c.evictions,
		MemoryEntries: c.memory.Len(),
	}
	if c.disk != nil {
		stats.DiskEntries = c.disk.count()
	}
	return stats
}

// HashContent returns the deterministic content hash used for cache and
// index invalidation: sha256 over the raw bytes, hex-encoded. Modification
// times are never trusted.
func HashContent(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
