// Package pyast implements the structural extractor for the Python language
// family on top of tree-sitter. It is the native-parser-backed variant of
// the extract.Extractor contract; languages without a wired grammar fall
// back to the pattern extractor.
package pyast

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/codetldr/tldr/internal/extract"
)

var pyExtensions = map[string]bool{
	".py":  true,
	".pyi": true,
	".pyw": true,
}

// Extractor is the tree-sitter-backed Python extractor. It holds only the
// compiled grammar; parsers are created per call, so instances are safe to
// share across workers.
type Extractor struct {
	language *sitter.Language
}

// New creates a Python extractor.
func New() *Extractor {
	return &Extractor{
		language: sitter.NewLanguage(python.Language()),
	}
}

// CanHandle reports whether the path has a Python extension.
func (e *Extractor) CanHandle(path string) bool {
	return pyExtensions[extract.Ext(path)]
}

// Language returns the language tag for summaries.
func (e *Extractor) Language() string { return "python" }

// parse runs tree-sitter over the source. It returns a nil tree when the
// source cannot be parsed at all, and reports whether the tree contains
// syntax errors. Callers must Close() a non-nil tree.
func (e *Extractor) parse(source []byte) (*sitter.Tree, bool) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(e.language)

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, false
	}
	return tree, !tree.RootNode().HasError()
}

// nodeText returns the source text covered by a node.
func nodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// line returns the 1-indexed start line of a node.
func line(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

// endLine returns the 1-indexed end line of a node.
func endLine(node *sitter.Node) int {
	return int(node.EndPosition().Row) + 1
}

// walk visits node and its subtree in source order. Returning false from the
// visitor skips the node's children.
func walk(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil {
		return
	}
	if !visitor(node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		walk(node.Child(i), visitor)
	}
}

// findChild returns the first direct child of the given kind.
func findChild(node *sitter.Node, kind string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		if child := node.Child(i); child.Kind() == kind {
			return child
		}
	}
	return nil
}

// hasChildKind reports whether any direct child has the given kind. Used for
// the anonymous "async" keyword child on function/for/with nodes.
func hasChildKind(node *sitter.Node, kind string) bool {
	return findChild(node, kind) != nil
}

// stripPyString removes string prefixes and quotes from a Python string
// literal, leaving the content.
func stripPyString(s string) string {
	s = strings.TrimLeft(s, "rRbBuUfF")
	for _, q := range []string{`"""`, "'''", `"`, "'"} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}

// docstringOf returns the docstring of a body block: the string expression
// statement at its head, if any.
func docstringOf(body *sitter.Node, source []byte) string {
	if body == nil || body.ChildCount() == 0 {
		return ""
	}
	first := body.Child(0)
	if first.Kind() != "expression_statement" || first.ChildCount() == 0 {
		return ""
	}
	str := first.Child(0)
	if str.Kind() != "string" {
		return ""
	}
	return extract.TruncateDocstring(stripPyString(nodeText(str, source)))
}
