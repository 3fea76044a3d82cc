// Package config loads tldr configuration from .tldr/config.yml with
// environment variable overrides.
package config

import (
	"path/filepath"
	"time"

	"github.com/codetldr/tldr/internal/extract"
)

// Config is the complete tldr configuration.
type Config struct {
	Analysis  AnalysisConfig  `yaml:"analysis" mapstructure:"analysis"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Index     IndexConfig     `yaml:"index" mapstructure:"index"`
}

// AnalysisConfig bounds directory analysis.
type AnalysisConfig struct {
	Layers   []int    `yaml:"layers" mapstructure:"layers"`       // default layer set, 1-5
	Include  []string `yaml:"include" mapstructure:"include"`     // glob patterns to analyze
	Exclude  []string `yaml:"exclude" mapstructure:"exclude"`     // glob patterns to skip
	MaxFiles int      `yaml:"max_files" mapstructure:"max_files"` // per-batch file cap
	Workers  int      `yaml:"workers" mapstructure:"workers"`     // 0 means GOMAXPROCS
}

// CacheConfig configures the two-tier summary cache.
type CacheConfig struct {
	Enabled        bool   `yaml:"enabled" mapstructure:"enabled"`
	Dir            string `yaml:"dir" mapstructure:"dir"` // empty means .tldr/cache under the root
	MemoryCapacity int    `yaml:"memory_capacity" mapstructure:"memory_capacity"`
	TTLHours       int    `yaml:"ttl_hours" mapstructure:"ttl_hours"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"` // "local", "openai", or "ollama"
	Model      string `yaml:"model" mapstructure:"model"`
	Endpoint   string `yaml:"endpoint" mapstructure:"endpoint"`
	APIKey     string `yaml:"api_key" mapstructure:"api_key"`
	Dimensions int    `yaml:"dimensions" mapstructure:"dimensions"` // local provider only
}

// IndexConfig locates the semantic index document.
type IndexConfig struct {
	Path string `yaml:"path" mapstructure:"path"` // empty means .tldr/index.json under the root
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	layers := make([]int, len(extract.DefaultLayers))
	for i, l := range extract.DefaultLayers {
		layers[i] = int(l)
	}
	return &Config{
		Analysis: AnalysisConfig{
			Layers: layers,
			Exclude: []string{
				"node_modules/**",
				".git/**",
				"dist/**",
				"build/**",
				"__pycache__/**",
				".venv/**",
				"venv/**",
			},
			MaxFiles: 100,
		},
		Cache: CacheConfig{
			Enabled:        true,
			MemoryCapacity: 1000,
			TTLHours:       24,
		},
		Embedding: EmbeddingConfig{
			Provider:   "local",
			Dimensions: 256,
		},
		Index: IndexConfig{},
	}
}

// CacheDir resolves the cache directory against a project root.
func (c *Config) CacheDir(root string) string {
	if c.Cache.Dir != "" {
		return c.Cache.Dir
	}
	return filepath.Join(root, ".tldr", "cache")
}

// CacheTTL converts the configured hours to a duration.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLHours) * time.Hour
}

// IndexPath resolves the index document path against a project root.
func (c *Config) IndexPath(root string) string {
	if c.Index.Path != "" {
		return c.Index.Path
	}
	return filepath.Join(root, ".tldr", "index.json")
}

// LayerSet converts the configured layer numbers to typed layers, dropping
// anything out of range.
func (c *Config) LayerSet() []extract.Layer {
	layers := make([]extract.Layer, 0, len(c.Analysis.Layers))
	for _, n := range c.Analysis.Layers {
		layers = append(layers, extract.Layer(n))
	}
	return extract.NormalizeLayers(layers)
}
