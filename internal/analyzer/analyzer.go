// Package analyzer orchestrates layered extraction: it dispatches files to
// extractors, sequences layers in dependency order, accounts token savings,
// and reads/writes the summary cache. Content-dependent failures never
// escape as errors; they come back inside the Summary's Errors field.
package analyzer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"golang.org/x/sync/errgroup"

	"github.com/codetldr/tldr/internal/cache"
	"github.com/codetldr/tldr/internal/extract"
	"github.com/codetldr/tldr/internal/extract/pattern"
	"github.com/codetldr/tldr/internal/extract/pyast"
)

// DefaultMaxFiles caps a directory batch.
const DefaultMaxFiles = 100

// Options configures an Analyzer.
type Options struct {
	// Root anchors relative paths. Empty means the current directory.
	Root string
	// Cache is optional; nil disables caching entirely.
	Cache *cache.Cache
	// Workers bounds directory-batch parallelism; 0 means GOMAXPROCS.
	Workers int
}

// Analyzer runs layered analysis over files and directories. It is safe for
// concurrent use: extractors carry no cross-call state and the cache
// serializes its own writers.
type Analyzer struct {
	root     string
	registry *extract.Registry
	cache    *cache.Cache
	workers  int
}

// New creates an Analyzer with the closed extractor set: the structural
// Python extractor first, then the pattern fallback.
func New(opts Options) *Analyzer {
	root := opts.Root
	if root == "" {
		root = "."
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Analyzer{
		root:     root,
		registry: extract.NewRegistry(pyast.New(), pattern.New()),
		cache:    opts.Cache,
		workers:  workers,
	}
}

// AnalyzeFile analyzes one file at the requested layers (default 1-3). A
// missing file, unreadable file, or unsupported extension yields an error
// Summary with zero layers rather than an error return.
func (a *Analyzer) AnalyzeFile(path string, layers []extract.Layer, useCache bool) *extract.Summary {
	start := time.Now()
	layers = extract.NormalizeLayers(layers)
	if len(layers) == 0 {
		layers = extract.DefaultLayers
	}

	resolved := a.resolve(path)
	normalized := normalizePath(resolved)

	data, err := os.ReadFile(resolved)
	if err != nil {
		return errorSummary(normalized, fmt.Sprintf("cannot read %s: %v", path, err))
	}
	// Invalid bytes are replaced, never fatal.
	source := strings.ToValidUTF8(string(data), "�")
	contentHash := cache.HashContent(data)

	key := cache.Key{Path: normalized, Layers: layers}
	if useCache && a.cache != nil {
		if summary, ok := a.cache.Get(key, contentHash); ok {
			return summary
		}
	}

	extractor := a.registry.For(resolved)
	if extractor == nil {
		return errorSummary(normalized, fmt.Sprintf("No extractor for %s", extract.Ext(resolved)))
	}

	summary := a.runLayers(extractor, source, normalized, layers)
	summary.FileHash = contentHash
	summary.TotalLines = strings.Count(source, "\n") + 1
	summary.OriginalTokens = extract.EstimateTokens(source)
	// The rendered header embeds the savings figure, which depends on this
	// very count; iterate until the estimate agrees with its own rendering.
	for i := 0; i < 4; i++ {
		tokens := extract.EstimateTokens(Render(summary))
		if tokens == summary.SummaryTokens {
			break
		}
		summary.SummaryTokens = tokens
	}
	summary.AnalysisTimeMs = time.Since(start).Milliseconds()

	if useCache && a.cache != nil {
		if err := a.cache.Set(key, contentHash, summary); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("cache write failed: %v", err))
		}
	}
	return summary
}

// runLayers executes the requested layers in dependency order:
// L1 -> {L2, L3, L4} -> L5. Layers 2-5 are only attempted when layer 1
// succeeded; they key off its functions and classes.
func (a *Analyzer) runLayers(extractor extract.Extractor, source, path string, layers []extract.Layer) *extract.Summary {
	summary := &extract.Summary{
		FilePath:  path,
		Language:  languageFor(extractor, path),
		CreatedAt: time.Now().UTC(),
	}

	wanted := make(map[extract.Layer]bool, len(layers))
	for _, l := range layers {
		wanted[l] = true
	}

	l1 := extractor.ExtractL1(source, path)
	summary.Errors = append(summary.Errors, l1.Errors...)
	l1OK := len(l1.Errors) == 0

	if wanted[extract.LayerSignatures] {
		summary.Imports = l1.Imports
		summary.Functions = l1.Functions
		summary.Classes = l1.Classes
		summary.ModuleDoc = l1.ModuleDoc
		summary.Globals = l1.Globals
		summary.LayersIncluded = append(summary.LayersIncluded, extract.LayerSignatures)
	}
	if !l1OK {
		return summary
	}

	flat := extract.FlattenFunctions(l1.Functions, l1.Classes)

	if wanted[extract.LayerCallGraph] {
		l2 := extractor.ExtractL2(source, path, l1.Functions, l1.Classes)
		summary.CallGraph = l2.Edges
		summary.ExternalCalls = l2.ExternalCalls
		summary.LayersIncluded = append(summary.LayersIncluded, extract.LayerCallGraph)
	}
	if wanted[extract.LayerControlFlow] {
		summary.ControlFlow = extractor.ExtractL3(source, path, flat)
		summary.LayersIncluded = append(summary.LayersIncluded, extract.LayerControlFlow)
	}
	if wanted[extract.LayerDataFlow] {
		summary.DataFlow = extractor.ExtractL4(source, path, flat)
		summary.LayersIncluded = append(summary.LayersIncluded, extract.LayerDataFlow)
	}
	if wanted[extract.LayerSlices] {
		summary.Slices = extractor.ExtractL5(source, path, nil)
		summary.LayersIncluded = append(summary.LayersIncluded, extract.LayerSlices)
	}
	return summary
}

// DirectoryOptions configures a batch analysis.
type DirectoryOptions struct {
	Layers   []extract.Layer
	Include  []string // glob patterns; empty means all supported files
	Exclude  []string // glob patterns dropped from the batch
	MaxFiles int      // 0 means DefaultMaxFiles
	UseCache bool
}

// AnalyzeDirectory analyzes every matching file under dir, in parallel, one
// worker-owned extractor per file. A malformed file becomes an error
// Summary; the batch always completes. Results come back in path order.
func (a *Analyzer) AnalyzeDirectory(ctx context.Context, dir string, opts DirectoryOptions) ([]*extract.Summary, error) {
	files, err := a.discover(dir, opts.Include, opts.Exclude, opts.MaxFiles)
	if err != nil {
		return nil, err
	}

	summaries := make([]*extract.Summary, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)
	for i, file := range files {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			summaries[i] = a.AnalyzeFile(file, opts.Layers, opts.UseCache)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// discover walks dir collecting supported files, applying include and
// exclude globs against slash-separated paths relative to dir, capped at
// maxFiles.
func (a *Analyzer) discover(dir string, include, exclude []string, maxFiles int) ([]string, error) {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	root := a.resolve(dir)

	includes, err := compileGlobs(include)
	if err != nil {
		return nil, fmt.Errorf("bad include pattern: %w", err)
	}
	excludes, err := compileGlobs(exclude)
	if err != nil {
		return nil, fmt.Errorf("bad exclude pattern: %w", err)
	}

	var files []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // unreadable subtree: skip, do not abort the batch
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if matchesAny(excludes, rel) {
			return nil
		}
		if len(includes) > 0 && !matchesAny(includes, rel) {
			return nil
		}
		if a.registry.For(path) == nil {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}

	sort.Strings(files)
	if len(files) > maxFiles {
		files = files[:maxFiles]
	}
	return files, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

func matchesAny(globs []glob.Glob, path string) bool {
	for _, g := range globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// resolve anchors relative paths at the project root.
func (a *Analyzer) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(a.root, path)
}

// normalizePath is the canonical cache-key form of a path.
func normalizePath(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

func languageFor(extractor extract.Extractor, path string) string {
	if _, ok := extractor.(*pattern.Extractor); ok {
		return pattern.LanguageFor(path)
	}
	return extractor.Language()
}

// errorSummary wraps an input error as a zero-layer Summary.
func errorSummary(path, msg string) *extract.Summary {
	return &extract.Summary{
		FilePath:       path,
		LayersIncluded: []extract.Layer{},
		Errors:         []string{msg},
		CreatedAt:      time.Now().UTC(),
	}
}
