package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/codetldr/tldr/internal/analyzer"
	"github.com/codetldr/tldr/internal/cache"
	"github.com/codetldr/tldr/internal/config"
	"github.com/codetldr/tldr/internal/embed"
	"github.com/codetldr/tldr/internal/extract"
	"github.com/codetldr/tldr/internal/semindex"
)

// app bundles the wired components one command invocation needs.
type app struct {
	root     string
	cfg      *config.Config
	cache    *cache.Cache
	analyzer *analyzer.Analyzer
}

// newApp loads config and wires the analyzer and cache for the chosen root.
func newApp() (*app, error) {
	root := rootDir
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}

	cfg, err := config.LoadConfigFromDir(root)
	if err != nil {
		return nil, err
	}

	var c *cache.Cache
	if cfg.Cache.Enabled && !noCache {
		c, err = cache.New(cache.Options{
			Dir:            cfg.CacheDir(root),
			MemoryCapacity: cfg.Cache.MemoryCapacity,
			TTL:            cfg.CacheTTL(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open cache: %w", err)
		}
	}

	a := analyzer.New(analyzer.Options{
		Root:    root,
		Cache:   c,
		Workers: cfg.Analysis.Workers,
	})

	return &app{root: root, cfg: cfg, cache: c, analyzer: a}, nil
}

// resolve anchors a relative path at the project root.
func (a *app) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(a.root, path)
}

// close releases the cache if one was opened.
func (a *app) close() {
	if a.cache != nil {
		a.cache.Close()
	}
}

// openIndex opens the semantic index with the configured embedder.
func (a *app) openIndex() (*semindex.Index, error) {
	embedder := embed.NewEmbedder(embed.Config{
		Provider:   a.cfg.Embedding.Provider,
		Model:      a.cfg.Embedding.Model,
		Endpoint:   a.cfg.Embedding.Endpoint,
		APIKey:     a.cfg.Embedding.APIKey,
		Dimensions: a.cfg.Embedding.Dimensions,
	})
	return semindex.Open(a.cfg.IndexPath(a.root), embedder)
}

// directoryOptions translates config into batch options.
func (a *app) directoryOptions(layers []extract.Layer) analyzer.DirectoryOptions {
	return analyzer.DirectoryOptions{
		Layers:   layers,
		Include:  a.cfg.Analysis.Include,
		Exclude:  a.cfg.Analysis.Exclude,
		MaxFiles: a.cfg.Analysis.MaxFiles,
		UseCache: a.cache != nil,
	}
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// parseLayers converts --layers ints to typed layers; empty means default.
func parseLayers(nums []int) ([]extract.Layer, error) {
	layers := make([]extract.Layer, 0, len(nums))
	for _, n := range nums {
		if n < 1 || n > 5 {
			return nil, fmt.Errorf("layer must be 1-5, got %d", n)
		}
		layers = append(layers, extract.Layer(n))
	}
	return layers, nil
}
