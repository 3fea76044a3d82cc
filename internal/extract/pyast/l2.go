package pyast

import (
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codetldr/tldr/internal/extract"
)

// ExtractL2 builds the call graph: one edge per call expression, with the
// caller's qualified name (Class.method for methods, "<module>" at module
// level) and the callee's dotted target. A callee is external when its root
// identifier is not among the names layer 1 found defined in this file.
func (e *Extractor) ExtractL2(source, path string, functions []extract.FunctionSignature, classes []extract.ClassSignature) *extract.L2Result {
	result := &extract.L2Result{}
	src := []byte(source)

	tree, ok := e.parse(src)
	if tree == nil || !ok {
		if tree != nil {
			tree.Close()
		}
		return result
	}
	defer tree.Close()

	defined := definedNames(functions, classes)
	externals := make(map[string]bool)

	e.walkCalls(tree.RootNode(), src, "<module>", func(caller string, call *sitter.Node) {
		callee := resolveCallTarget(call.ChildByFieldName("function"), src)
		if callee == "" {
			return
		}
		root := callee
		if idx := strings.IndexByte(root, '.'); idx != -1 {
			root = root[:idx]
		}
		external := !defined[root] && !defined[callee]
		result.Edges = append(result.Edges, extract.CallGraphEdge{
			Caller:     caller,
			Callee:     callee,
			Line:       line(call),
			IsExternal: external,
		})
		if external {
			externals[callee] = true
		}
	})

	for name := range externals {
		result.ExternalCalls = append(result.ExternalCalls, name)
	}
	sort.Strings(result.ExternalCalls)
	return result
}

// walkCalls visits every call expression, tracking the qualified name of the
// enclosing function or method as it descends.
func (e *Extractor) walkCalls(node *sitter.Node, src []byte, scope string, visit func(string, *sitter.Node)) {
	switch node.Kind() {
	case "function_definition":
		scope = qualifiedScope(node, src)
	case "call":
		visit(scope, node)
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		e.walkCalls(node.Child(i), src, scope, visit)
	}
}

// qualifiedScope computes Class.method / function qualified name for a
// function_definition by walking its ancestry.
func qualifiedScope(node *sitter.Node, src []byte) string {
	name := nodeText(node.ChildByFieldName("name"), src)
	for parent := node.Parent(); parent != nil; parent = parent.Parent() {
		if parent.Kind() == "class_definition" {
			return nodeText(parent.ChildByFieldName("name"), src) + "." + name
		}
		if parent.Kind() == "function_definition" {
			// nested function: qualify by the outer function
			return qualifiedScope(parent, src) + "." + name
		}
	}
	return name
}

// resolveCallTarget renders the callee expression as a dotted name:
// identifiers directly, attribute chains recursively. Calls on arbitrary
// expressions (subscripts, call results) resolve to their trailing
// attribute only.
func resolveCallTarget(fn *sitter.Node, src []byte) string {
	if fn == nil {
		return ""
	}
	switch fn.Kind() {
	case "identifier":
		return nodeText(fn, src)
	case "attribute":
		object := resolveCallTarget(fn.ChildByFieldName("object"), src)
		attr := nodeText(fn.ChildByFieldName("attribute"), src)
		if object == "" {
			return attr
		}
		return object + "." + attr
	default:
		return ""
	}
}

// definedNames collects the local-name universe layer 1 discovered:
// functions, classes, and Class.method pairs.
func definedNames(functions []extract.FunctionSignature, classes []extract.ClassSignature) map[string]bool {
	defined := make(map[string]bool)
	for _, fn := range functions {
		defined[fn.Name] = true
	}
	for _, cls := range classes {
		defined[cls.Name] = true
		for _, m := range cls.Methods {
			defined[cls.Name+"."+m.Name] = true
		}
	}
	return defined
}
