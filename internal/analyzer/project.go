package analyzer

import (
	"context"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"

	"github.com/codetldr/tldr/internal/extract"
)

// FileExternalCalls pairs a file with how many external call references its
// call graph recorded.
type FileExternalCalls struct {
	FilePath string `json:"file_path"`
	Count    int    `json:"count"`
}

// ProjectSummary aggregates per-file Summaries for one directory tree.
type ProjectSummary struct {
	Root            string              `json:"root"`
	TotalFiles      int                 `json:"total_files"`
	TotalLines      int                 `json:"total_lines"`
	TotalFunctions  int                 `json:"total_functions"`
	TotalClasses    int                 `json:"total_classes"`
	TokenSavingsPct float64             `json:"token_savings_pct"`
	EntryPoints     []string            `json:"entry_points,omitempty"` // "path:function"
	TopExternalDeps []FileExternalCalls `json:"top_external_deps,omitempty"`
	Languages       []string            `json:"languages,omitempty"`
	ErrorFiles      []string            `json:"error_files,omitempty"`
	ImportCycles    [][]string          `json:"import_cycles,omitempty"`
}

// topExternalFiles is how many files the external-call ranking reports.
const topExternalFiles = 10

// ProjectSummary analyzes a directory at layers 1 and 2 and aggregates the
// results. Layer 2 is included so external call references and the import
// cycle report have data to work from.
func (a *Analyzer) ProjectSummary(ctx context.Context, dir string, opts DirectoryOptions) (*ProjectSummary, error) {
	if len(opts.Layers) == 0 {
		opts.Layers = []extract.Layer{extract.LayerSignatures, extract.LayerCallGraph}
	}
	summaries, err := a.AnalyzeDirectory(ctx, dir, opts)
	if err != nil {
		return nil, err
	}

	ps := &ProjectSummary{Root: dir, TotalFiles: len(summaries)}
	languages := make(map[string]bool)
	var originalTokens, summaryTokens int

	for _, s := range summaries {
		ps.TotalLines += s.TotalLines
		ps.TotalFunctions += len(s.Functions)
		ps.TotalClasses += len(s.Classes)
		originalTokens += s.OriginalTokens
		summaryTokens += s.SummaryTokens
		if s.Language != "" && s.Language != "unknown" {
			languages[s.Language] = true
		}
		if len(s.Errors) > 0 {
			ps.ErrorFiles = append(ps.ErrorFiles, s.FilePath)
		}
		// Methods live under classes, not in Functions; count them in too.
		for _, cls := range s.Classes {
			ps.TotalFunctions += len(cls.Methods)
		}
		for _, fn := range s.Functions {
			if fn.Name == "main" {
				ps.EntryPoints = append(ps.EntryPoints, s.FilePath+":"+fn.Name)
			}
		}
	}

	if originalTokens > 0 {
		pct := (1 - float64(summaryTokens)/float64(originalTokens)) * 100
		if pct < 0 {
			pct = 0
		}
		ps.TokenSavingsPct = pct
	}

	for lang := range languages {
		ps.Languages = append(ps.Languages, lang)
	}
	sort.Strings(ps.Languages)

	ps.TopExternalDeps = rankExternalCalls(summaries, topExternalFiles)
	ps.ImportCycles = importCycles(summaries)
	return ps, nil
}

// rankExternalCalls orders files by external call-edge count, descending,
// ties broken by path.
func rankExternalCalls(summaries []*extract.Summary, limit int) []FileExternalCalls {
	ranked := make([]FileExternalCalls, 0, len(summaries))
	for _, s := range summaries {
		count := 0
		for _, edge := range s.CallGraph {
			if edge.IsExternal {
				count++
			}
		}
		if count > 0 {
			ranked = append(ranked, FileExternalCalls{FilePath: s.FilePath, Count: count})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].FilePath < ranked[j].FilePath
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// importCycles builds a directed graph of local import edges between the
// analyzed files and returns the dependency cycles among them. Imports that
// do not resolve to an analyzed file are outside the project and ignored.
func importCycles(summaries []*extract.Summary) [][]string {
	byModule := make(map[string]string, len(summaries))
	for _, s := range summaries {
		byModule[moduleName(s.FilePath)] = s.FilePath
	}

	g := graph.New(graph.StringHash, graph.Directed())
	for _, s := range summaries {
		_ = g.AddVertex(s.FilePath)
	}
	for _, s := range summaries {
		for _, imp := range s.Imports {
			target, ok := resolveLocalImport(s.FilePath, imp, byModule)
			if !ok || target == s.FilePath {
				continue
			}
			_ = g.AddEdge(s.FilePath, target)
		}
	}

	sccs, err := graph.StronglyConnectedComponents(g)
	if err != nil {
		return nil
	}
	var cycles [][]string
	for _, scc := range sccs {
		if len(scc) < 2 {
			continue
		}
		sort.Strings(scc)
		cycles = append(cycles, scc)
	}
	sort.Slice(cycles, func(i, j int) bool { return cycles[i][0] < cycles[j][0] })
	return cycles
}

// moduleName maps "pkg/sub/mod.py" to "pkg.sub.mod".
func moduleName(path string) string {
	path = strings.TrimSuffix(path, extract.Ext(path))
	return strings.ReplaceAll(strings.ReplaceAll(path, "\\", "/"), "/", ".")
}

// resolveLocalImport finds the analyzed file an import refers to, if any.
// Absolute imports match by module suffix; relative imports are resolved
// against the importing file's package.
func resolveLocalImport(fromPath string, imp extract.ImportInfo, byModule map[string]string) (string, bool) {
	if imp.IsRelative {
		parts := strings.Split(moduleName(fromPath), ".")
		// Level 1 strips the file segment, each further level one package.
		if imp.Level > len(parts) {
			return "", false
		}
		base := parts[:len(parts)-imp.Level]
		candidate := strings.Join(append(base, imp.Module), ".")
		if imp.Module == "" {
			candidate = strings.Join(base, ".")
		}
		path, ok := byModule[candidate]
		return path, ok
	}
	if path, ok := byModule[imp.Module]; ok {
		return path, true
	}
	// Suffix match tolerates the analyzed root not being the package root.
	suffix := "." + imp.Module
	for mod, path := range byModule {
		if strings.HasSuffix(mod, suffix) {
			return path, true
		}
	}
	return "", false
}
