package pyast

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codetldr/tldr/internal/extract"
)

// ExtractL4 computes def-use edges per function with a single forward pass:
// a map of variable -> last definition line, where each later read of a
// mapped variable emits one edge. Re-assignment overwrites the map entry
// (last-write-wins; no branch-sensitive reasoning).
func (e *Extractor) ExtractL4(source, path string, functions []extract.FunctionSignature) map[string][]extract.DataFlowEdge {
	out := make(map[string][]extract.DataFlowEdge)
	src := []byte(source)

	tree, ok := e.parse(src)
	if tree == nil || !ok {
		if tree != nil {
			tree.Close()
		}
		return out
	}
	defer tree.Close()

	walk(tree.RootNode(), func(n *sitter.Node) bool {
		if n.Kind() != "function_definition" {
			return true
		}
		name := qualifiedScope(n, src)
		out[name] = e.dataFlowEdges(n, src)
		return true
	})
	return out
}

// dataFlowEdges runs the linear def-use pass over one function.
func (e *Extractor) dataFlowEdges(fn *sitter.Node, src []byte) []extract.DataFlowEdge {
	var edges []extract.DataFlowEdge
	defs := make(map[string]int)

	// Parameters define at the signature line.
	if params := fn.ChildByFieldName("parameters"); params != nil {
		for _, name := range patternNames(params, src) {
			defs[name] = line(fn)
		}
	}

	use := func(name string, at int) {
		if defLine, ok := defs[name]; ok {
			edges = append(edges, extract.DataFlowEdge{
				Variable: name,
				DefLine:  defLine,
				UseLine:  at,
				Kind:     "def-use",
			})
		}
	}

	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		switch n.Kind() {
		case "function_definition":
			if n.Id() != fn.Id() {
				return // nested function: separate scope
			}
		case "assignment":
			// Reads on the right happen before the write on the left.
			if right := n.ChildByFieldName("right"); right != nil {
				visit(right)
			}
			for _, name := range targetNames(n.ChildByFieldName("left"), src) {
				defs[name] = line(n)
			}
			return
		case "augmented_assignment":
			// x += y reads both sides, then redefines the target.
			if right := n.ChildByFieldName("right"); right != nil {
				visit(right)
			}
			for _, name := range targetNames(n.ChildByFieldName("left"), src) {
				use(name, line(n))
				defs[name] = line(n)
			}
			return
		case "for_statement":
			if right := n.ChildByFieldName("right"); right != nil {
				visit(right)
			}
			for _, name := range targetNames(n.ChildByFieldName("left"), src) {
				defs[name] = line(n)
			}
			if body := n.ChildByFieldName("body"); body != nil {
				visit(body)
			}
			return
		case "identifier":
			if !isAttributeName(n) && !isKeywordArgName(n) {
				use(nodeText(n, src), line(n))
			}
			return
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			visit(n.Child(i))
		}
	}
	if body := fn.ChildByFieldName("body"); body != nil {
		visit(body)
	}
	return edges
}

// targetNames collects the identifiers bound by an assignment target,
// including tuple and list patterns. Attribute and subscript targets are
// skipped: they mutate objects, not local names.
func targetNames(target *sitter.Node, src []byte) []string {
	if target == nil {
		return nil
	}
	switch target.Kind() {
	case "identifier":
		return []string{nodeText(target, src)}
	case "pattern_list", "tuple_pattern", "list_pattern":
		var names []string
		for i := uint(0); i < target.ChildCount(); i++ {
			names = append(names, targetNames(target.Child(i), src)...)
		}
		return names
	default:
		return nil
	}
}

// patternNames collects plain parameter identifiers for the initial def set.
func patternNames(params *sitter.Node, src []byte) []string {
	var names []string
	walk(params, func(n *sitter.Node) bool {
		if n.Kind() == "identifier" {
			names = append(names, nodeText(n, src))
			return false
		}
		return true
	})
	return names
}

// isAttributeName reports whether the identifier is the attribute part of
// x.attr, which is a member name rather than a variable read.
func isAttributeName(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil || parent.Kind() != "attribute" {
		return false
	}
	attr := parent.ChildByFieldName("attribute")
	return attr != nil && attr.Id() == n.Id()
}

// isKeywordArgName reports whether the identifier names a keyword argument
// (f(x=1)): the name is part of the call syntax, not a variable read.
func isKeywordArgName(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil || parent.Kind() != "keyword_argument" {
		return false
	}
	name := parent.ChildByFieldName("name")
	return name != nil && name.Id() == n.Id()
}
