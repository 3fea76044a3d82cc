package semindex

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/codetldr/tldr/internal/analyzer"
	"github.com/codetldr/tldr/internal/extract"
)

// BuildStats reports what one index build did.
type BuildStats struct {
	FilesIndexed int `json:"files_indexed"`
	FilesSkipped int `json:"files_skipped"`
	Entries      int `json:"entries"`
	Errors       int `json:"errors"`
}

// BuildOptions configures a build.
type BuildOptions struct {
	Include  []string
	Exclude  []string
	MaxFiles int
	// Progress, when set, is called once per discovered file.
	Progress func(filePath string)
}

// Builder runs the analyzer over a tree and indexes one entry per function,
// one per class, and one per file.
type Builder struct {
	analyzer *analyzer.Analyzer
	index    *Index
}

// NewBuilder wires an analyzer to an index.
func NewBuilder(a *analyzer.Analyzer, idx *Index) *Builder {
	return &Builder{analyzer: a, index: idx}
}

// Build analyzes dir at layers 1 and 2 and indexes every file whose content
// hash is not already current. Per-file embedding failures are logged and
// counted, never fatal.
func (b *Builder) Build(ctx context.Context, dir string, opts BuildOptions) (*BuildStats, error) {
	summaries, err := b.analyzer.AnalyzeDirectory(ctx, dir, analyzer.DirectoryOptions{
		Layers:   []extract.Layer{extract.LayerSignatures, extract.LayerCallGraph},
		Include:  opts.Include,
		Exclude:  opts.Exclude,
		MaxFiles: opts.MaxFiles,
		UseCache: true,
	})
	if err != nil {
		return nil, err
	}

	stats := &BuildStats{}
	for _, s := range summaries {
		if opts.Progress != nil {
			opts.Progress(s.FilePath)
		}
		if b.index.IsFileCurrent(s.FilePath, s.FileHash) {
			stats.FilesSkipped++
			continue
		}
		b.index.RemoveFile(s.FilePath)
		added, err := b.indexSummary(ctx, s)
		if err != nil {
			log.Printf("index: %s: %v", s.FilePath, err)
			stats.Errors++
			continue
		}
		stats.FilesIndexed++
		stats.Entries += added
	}

	if err := b.index.Save(); err != nil {
		return stats, fmt.Errorf("failed to save index: %w", err)
	}
	return stats, nil
}

// indexSummary adds the per-function, per-class, and file-level entries for
// one analyzed file.
func (b *Builder) indexSummary(ctx context.Context, s *extract.Summary) (int, error) {
	added := 0
	for _, fn := range s.Functions {
		meta := map[string]string{"line": fmt.Sprintf("%d", fn.StartLine)}
		if _, err := b.index.AddEntry(ctx, s.FilePath, s.FileHash, KindFunction, fn.Name, functionText(s.FilePath, "", fn), meta); err != nil {
			return added, err
		}
		added++
	}
	for _, cls := range s.Classes {
		meta := map[string]string{"line": fmt.Sprintf("%d", cls.StartLine)}
		if _, err := b.index.AddEntry(ctx, s.FilePath, s.FileHash, KindClass, cls.Name, classText(s.FilePath, cls), meta); err != nil {
			return added, err
		}
		added++
		for _, m := range cls.Methods {
			name := cls.Name + "." + m.Name
			meta := map[string]string{"line": fmt.Sprintf("%d", m.StartLine)}
			if _, err := b.index.AddEntry(ctx, s.FilePath, s.FileHash, KindFunction, name, functionText(s.FilePath, cls.Name, m), meta); err != nil {
				return added, err
			}
			added++
		}
	}
	if _, err := b.index.AddEntry(ctx, s.FilePath, s.FileHash, KindFile, s.FilePath, fileText(s), nil); err != nil {
		return added, err
	}
	return added + 1, nil
}

// functionText is the embeddable blob for one function or method.
func functionText(filePath, className string, fn extract.FunctionSignature) string {
	var b strings.Builder
	b.WriteString(filePath)
	b.WriteByte(' ')
	if className != "" {
		b.WriteString(className)
		b.WriteByte('.')
	}
	b.WriteString(fn.Name)
	for _, p := range fn.Parameters {
		b.WriteByte(' ')
		b.WriteString(p.Name)
		if p.Type != "" {
			b.WriteByte(' ')
			b.WriteString(p.Type)
		}
	}
	if fn.ReturnType != "" {
		b.WriteByte(' ')
		b.WriteString(fn.ReturnType)
	}
	if fn.Docstring != "" {
		b.WriteByte(' ')
		b.WriteString(fn.Docstring)
	}
	return b.String()
}

// classText is the embeddable blob for one class.
func classText(filePath string, cls extract.ClassSignature) string {
	parts := []string{filePath, cls.Name}
	parts = append(parts, cls.Bases...)
	for _, m := range cls.Methods {
		parts = append(parts, m.Name)
	}
	for _, a := range cls.Attributes {
		parts = append(parts, a.Name)
	}
	if cls.Docstring != "" {
		parts = append(parts, cls.Docstring)
	}
	return strings.Join(parts, " ")
}

// fileText is the file-level blob: names, imports, and the module docstring.
func fileText(s *extract.Summary) string {
	parts := []string{s.FilePath, s.Language}
	for _, imp := range s.Imports {
		parts = append(parts, imp.Module)
		parts = append(parts, imp.Names...)
	}
	for _, fn := range s.Functions {
		parts = append(parts, fn.Name)
	}
	for _, cls := range s.Classes {
		parts = append(parts, cls.Name)
	}
	if s.ModuleDoc != "" {
		parts = append(parts, s.ModuleDoc)
	}
	return strings.Join(parts, " ")
}
