package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codetldr/tldr/internal/extract"
)

// Test Plan:
// - Defaults load with no config file present
// - A .tldr/config.yml overrides defaults; TLDR_* env vars override both
// - Path helpers resolve against the project root unless set explicitly
// - Validation rejects bad providers, layers, and negative limits

func writeConfigFile(t *testing.T, root, content string) {
	t.Helper()
	dir := filepath.Join(root, ".tldr")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(content), 0o644))
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfigFromDir(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, cfg.Analysis.Layers)
	assert.Equal(t, 100, cfg.Analysis.MaxFiles)
	assert.Contains(t, cfg.Analysis.Exclude, "node_modules/**")
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 1000, cfg.Cache.MemoryCapacity)
	assert.Equal(t, 24, cfg.Cache.TTLHours)
	assert.Equal(t, "local", cfg.Embedding.Provider)
	assert.Equal(t, 256, cfg.Embedding.Dimensions)
}

func TestLoadConfig_FromFile(t *testing.T) {
	root := t.TempDir()
	writeConfigFile(t, root, `
analysis:
  layers: [1, 2]
  max_files: 50
cache:
  enabled: false
embedding:
  provider: ollama
  model: nomic-embed-text
`)

	cfg, err := LoadConfigFromDir(root)
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2}, cfg.Analysis.Layers)
	assert.Equal(t, 50, cfg.Analysis.MaxFiles)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	// Untouched sections keep their defaults.
	assert.Equal(t, 1000, cfg.Cache.MemoryCapacity)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	root := t.TempDir()
	writeConfigFile(t, root, `
embedding:
  provider: ollama
cache:
  ttl_hours: 12
`)
	t.Setenv("TLDR_EMBEDDING_PROVIDER", "openai")
	t.Setenv("TLDR_EMBEDDING_API_KEY", "sk-test")
	t.Setenv("TLDR_CACHE_MEMORY_CAPACITY", "5")

	cfg, err := LoadConfigFromDir(root)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, 5, cfg.Cache.MemoryCapacity)
	assert.Equal(t, 12, cfg.Cache.TTLHours, "file values survive unrelated env overrides")
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	root := t.TempDir()
	writeConfigFile(t, root, "analysis: [not: a: map\n")

	_, err := LoadConfigFromDir(root)
	assert.Error(t, err)
}

func TestConfig_PathHelpers(t *testing.T) {
	cfg := Default()
	assert.Equal(t, filepath.Join("/proj", ".tldr", "cache"), cfg.CacheDir("/proj"))
	assert.Equal(t, filepath.Join("/proj", ".tldr", "index.json"), cfg.IndexPath("/proj"))
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL())

	cfg.Cache.Dir = "/elsewhere/cache"
	cfg.Index.Path = "/elsewhere/index.json"
	assert.Equal(t, "/elsewhere/cache", cfg.CacheDir("/proj"))
	assert.Equal(t, "/elsewhere/index.json", cfg.IndexPath("/proj"))
}

func TestConfig_LayerSet(t *testing.T) {
	cfg := Default()
	cfg.Analysis.Layers = []int{3, 1, 1, 2}
	assert.Equal(t, []extract.Layer{1, 2, 3}, cfg.LayerSet())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(Default()))

	bad := Default()
	bad.Embedding.Provider = "pinecone"
	err := Validate(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidProvider)

	bad = Default()
	bad.Analysis.Layers = []int{0, 6}
	err = Validate(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "layer must be 1-5")

	bad = Default()
	bad.Analysis.MaxFiles = -1
	assert.ErrorIs(t, Validate(bad), ErrInvalidMaxFiles)

	bad = Default()
	bad.Cache.MemoryCapacity = -1
	assert.ErrorIs(t, Validate(bad), ErrInvalidCacheSettings)

	bad = Default()
	bad.Embedding.Provider = "local"
	bad.Embedding.Dimensions = -1
	assert.ErrorIs(t, Validate(bad), ErrInvalidDimensions)
}
