package extract

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Extractor is the per-language-family extraction capability. Implementations
// must never panic on malformed input: a failed parse yields empty
// collections and one error string in the L1Result, and later layers are
// simply not attempted by the caller.
//
// Extractors may hold per-call scratch state during a traversal but carry no
// mutable state across calls, so one instance per worker is safe.
type Extractor interface {
	// CanHandle reports whether this extractor accepts the file, by extension.
	CanHandle(path string) bool

	// Language returns the language tag recorded in summaries.
	Language() string

	// ExtractL1 parses signatures: imports, functions, classes, module doc,
	// module-level globals.
	ExtractL1(source, path string) *L1Result

	// ExtractL2 builds the call graph. It needs the L1 functions/classes to
	// classify call targets as local or external.
	ExtractL2(source, path string, functions []FunctionSignature, classes []ClassSignature) *L2Result

	// ExtractL3 returns control-flow nodes keyed by qualified function name.
	ExtractL3(source, path string, functions []FunctionSignature) map[string][]ControlFlowNode

	// ExtractL4 returns def-use edges keyed by qualified function name.
	ExtractL4(source, path string, functions []FunctionSignature) map[string][]DataFlowEdge

	// ExtractL5 computes dependency slices. With no explicit targets the
	// extractor auto-selects variables that are returned directly.
	ExtractL5(source, path string, targets []SliceTarget) []DependencySlice
}

// SliceTarget names a variable and the line at which to slice.
type SliceTarget struct {
	Variable string `json:"variable"`
	Line     int    `json:"line"`
}

// EstimateTokens is the fixed token-cost heuristic shared by every extractor
// and by the analyzer's savings accounting: one token per four characters.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}

// TruncateDocstring bounds a docstring for the signature layer.
func TruncateDocstring(doc string) string {
	return truncate(strings.TrimSpace(doc), 200)
}

// TruncateCondition bounds control-flow condition text.
func TruncateCondition(cond string) string {
	return truncate(strings.TrimSpace(cond), 50)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Back up to a rune boundary so multi-byte text stays valid UTF-8.
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// Ext returns the lower-cased file extension including the dot.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
