package pyast

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codetldr/tldr/internal/extract"
)

// ExtractL3 emits one ControlFlowNode per branching construct inside each
// function, in source order, keyed by qualified function name. The result is
// a flattened list: Branches stays empty.
func (e *Extractor) ExtractL3(source, path string, functions []extract.FunctionSignature) map[string][]extract.ControlFlowNode {
	out := make(map[string][]extract.ControlFlowNode)
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
		out[name] = e.controlFlowNodes(n.ChildByFieldName("body"), src)
		// Nested functions are visited separately via the continued walk.
		return true
	})
	return out
}

// controlFlowNodes flattens the branching constructs of one function body.
func (e *Extractor) controlFlowNodes(body *sitter.Node, src []byte) []extract.ControlFlowNode {
	var nodes []extract.ControlFlowNode
	nextID := 0

	add := func(kind string, n *sitter.Node, condition *sitter.Node) {
		node := extract.ControlFlowNode{
			ID:   nextID,
			Kind: kind,
			Line: line(n),
		}
		if condition != nil {
			node.Condition = extract.TruncateCondition(nodeText(condition, src))
		}
		nextID++
		nodes = append(nodes, node)
	}

	walk(body, func(n *sitter.Node) bool {
		switch n.Kind() {
		case "function_definition":
			// Nested function bodies belong to the nested function.
			return false
		case "if_statement":
			add("if", n, n.ChildByFieldName("condition"))
		case "elif_clause":
			add("elif", n, n.ChildByFieldName("condition"))
		case "while_statement":
			add("while", n, n.ChildByFieldName("condition"))
		case "for_statement":
			kind := "for"
			if hasChildKind(n, "async") {
				kind = "async-for"
			}
			add(kind, n, n.ChildByFieldName("right"))
		case "try_statement":
			add("try", n, nil)
		case "with_statement":
			kind := "with"
			if hasChildKind(n, "async") {
				kind = "async-with"
			}
			add(kind, n, findChild(n, "with_clause"))
		case "match_statement":
			add("match", n, n.ChildByFieldName("subject"))
		case "return_statement":
			var value *sitter.Node
			if n.ChildCount() > 1 {
				value = n.Child(1)
			}
			add("return", n, value)
		case "raise_statement":
			var value *sitter.Node
			if n.ChildCount() > 1 {
				value = n.Child(1)
			}
			add("raise", n, value)
		}
		return true
	})
	return nodes
}
