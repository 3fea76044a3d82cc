package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/codetldr/tldr/internal/extract"
)

// maxRenderedCallEdges caps the call-graph excerpt in the compact rendering.
const maxRenderedCallEdges = 20

// Render produces the deterministic compact digest of a Summary: the text
// handed to the LLM-facing caller in place of the raw file. Its token count
// is what the summary-tokens accounting measures.
func Render(s *extract.Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s (%s, %d lines", s.FilePath, s.Language, s.TotalLines)
	if s.OriginalTokens > 0 {
		fmt.Fprintf(&b, ", %.0f%% token savings", s.TokenSavingsPercent())
	}
	b.WriteString(")\n")

	if s.ModuleDoc != "" {
		fmt.Fprintf(&b, "%s\n", firstLine(s.ModuleDoc))
	}
	for _, msg := range s.Errors {
		fmt.Fprintf(&b, "! %s\n", msg)
	}

	if len(s.Imports) > 0 {
		b.WriteString("\n## Imports\n")
		for _, imp := range s.Imports {
			b.WriteString("- ")
			b.WriteString(renderImport(imp))
			b.WriteByte('\n')
		}
	}

	for _, cls := range s.Classes {
		fmt.Fprintf(&b, "\n## class %s", cls.Name)
		if len(cls.Bases) > 0 {
			fmt.Fprintf(&b, "(%s)", strings.Join(cls.Bases, ", "))
		}
		fmt.Fprintf(&b, " [%d-%d]\n", cls.StartLine, cls.EndLine)
		if cls.Docstring != "" {
			fmt.Fprintf(&b, "%s\n", firstLine(cls.Docstring))
		}
		for _, attr := range cls.Attributes {
			if attr.Type != "" {
				fmt.Fprintf(&b, "- %s: %s\n", attr.Name, attr.Type)
			} else {
				fmt.Fprintf(&b, "- %s\n", attr.Name)
			}
		}
		for _, m := range cls.Methods {
			fmt.Fprintf(&b, "- %s\n", FormatSignature(m))
		}
	}

	if len(s.Functions) > 0 {
		b.WriteString("\n## Functions\n")
		for _, fn := range s.Functions {
			fmt.Fprintf(&b, "- %s\n", FormatSignature(fn))
		}
	}

	if len(s.CallGraph) > 0 {
		b.WriteString("\n## Calls\n")
		edges := s.CallGraph
		if len(edges) > maxRenderedCallEdges {
			edges = edges[:maxRenderedCallEdges]
		}
		for _, edge := range edges {
			fmt.Fprintf(&b, "- %s -> %s (line %d)", edge.Caller, edge.Callee, edge.Line)
			if edge.IsExternal {
				b.WriteString(" [external]")
			}
			b.WriteByte('\n')
		}
		if len(s.CallGraph) > maxRenderedCallEdges {
			fmt.Fprintf(&b, "- ... %d more edges\n", len(s.CallGraph)-maxRenderedCallEdges)
		}
	}

	if len(s.ControlFlow) > 0 {
		b.WriteString("\n## Control flow\n")
		names := make([]string, 0, len(s.ControlFlow))
		for name := range s.ControlFlow {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "- %s: %d nodes\n", name, len(s.ControlFlow[name]))
		}
	}

	if len(s.ExternalCalls) > 0 {
		b.WriteString("\n## External dependencies\n")
		fmt.Fprintf(&b, "%s\n", strings.Join(s.ExternalCalls, ", "))
	}

	return b.String()
}

// FormatSignature renders one function as a single line.
func FormatSignature(fn extract.FunctionSignature) string {
	var b strings.Builder
	if fn.IsAsync {
		b.WriteString("async ")
	}
	b.WriteString(fn.Name)
	b.WriteByte('(')
	for i, p := range fn.Parameters {
		if i > 0 {
			b.WriteString(", ")
		}
		if p.IsVariadic {
			b.WriteByte('*')
		}
		if p.IsKeyword {
			b.WriteString("**")
		}
		b.WriteString(p.Name)
		if p.Type != "" {
			b.WriteString(": ")
			b.WriteString(p.Type)
		}
		if p.Default != "" {
			b.WriteString("=")
			b.WriteString(p.Default)
		}
	}
	b.WriteByte(')')
	if fn.ReturnType != "" {
		b.WriteString(" -> ")
		b.WriteString(fn.ReturnType)
	}
	var marks []string
	if fn.IsGenerator {
		marks = append(marks, "generator")
	}
	if fn.IsStatic {
		marks = append(marks, "static")
	}
	if fn.IsClassMethod {
		marks = append(marks, "classmethod")
	}
	if fn.IsProperty {
		marks = append(marks, "property")
	}
	if fn.Complexity > 1 {
		marks = append(marks, fmt.Sprintf("cc=%d", fn.Complexity))
	}
	if len(marks) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(marks, ", "))
	}
	fmt.Fprintf(&b, " [%d-%d]", fn.StartLine, fn.EndLine)
	return b.String()
}

func renderImport(imp extract.ImportInfo) string {
	var b strings.Builder
	if imp.IsRelative {
		b.WriteString(strings.Repeat(".", imp.Level))
	}
	b.WriteString(imp.Module)
	if len(imp.Names) > 0 {
		fmt.Fprintf(&b, " {%s}", strings.Join(imp.Names, ", "))
	}
	if imp.Alias != "" {
		fmt.Fprintf(&b, " as %s", imp.Alias)
	}
	return b.String()
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx != -1 {
		return s[:idx]
	}
	return s
}
