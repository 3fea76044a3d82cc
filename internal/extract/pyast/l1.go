package pyast

import (
	"fmt"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codetldr/tldr/internal/extract"
)

// ExtractL1 collects imports, top-level functions, classes with their
// methods and attributes, the module docstring, and module-level globals in
// a single traversal. A file that fails to parse yields empty collections
// and one error string; it never panics.
func (e *Extractor) ExtractL1(source, path string) *extract.L1Result {
	result := &extract.L1Result{}
	src := []byte(source)

	tree, ok := e.parse(src)
	if tree == nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to parse %s", path))
		return result
	}
	defer tree.Close()
	if !ok {
		result.Errors = append(result.Errors, fmt.Sprintf("syntax error in %s", path))
		return result
	}

	root := tree.RootNode()
	result.ModuleDoc = docstringOf(root, src)

	for i := uint(0); i < root.ChildCount(); i++ {
		e.extractTopLevel(root.Child(i), src, result, nil)
	}
	return result
}

// extractTopLevel dispatches one module-level statement. decorators carries
// decorator names when the statement came wrapped in a decorated_definition.
func (e *Extractor) extractTopLevel(node *sitter.Node, src []byte, result *extract.L1Result, decorators []string) {
	switch node.Kind() {
	case "import_statement", "import_from_statement":
		result.Imports = append(result.Imports, e.extractImport(node, src)...)
	case "decorated_definition":
		names := decoratorNames(node, src)
		if def := node.ChildByFieldName("definition"); def != nil {
			e.extractTopLevel(def, src, result, names)
		}
	case "function_definition":
		result.Functions = append(result.Functions, e.extractFunction(node, src, decorators, false))
	case "class_definition":
		result.Classes = append(result.Classes, e.extractClass(node, src, decorators))
	case "expression_statement":
		if assign := findChild(node, "assignment"); assign != nil {
			if name := assignedName(assign, src); name != "" {
				result.Globals = append(result.Globals, name)
			}
		}
	}
}

// extractImport handles both plain and from-imports. A plain statement with
// several targets yields one ImportInfo per target, matching how import
// lines read.
func (e *Extractor) extractImport(node *sitter.Node, src []byte) []extract.ImportInfo {
	if node.Kind() == "import_statement" {
		var out []extract.ImportInfo
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			switch child.Kind() {
			case "dotted_name":
				out = append(out, extract.ImportInfo{Module: nodeText(child, src)})
			case "aliased_import":
				info := extract.ImportInfo{
					Module: nodeText(child.ChildByFieldName("name"), src),
					Alias:  nodeText(child.ChildByFieldName("alias"), src),
				}
				out = append(out, info)
			}
		}
		return out
	}

	// import_from_statement
	info := extract.ImportInfo{}
	module := node.ChildByFieldName("module_name")
	if module != nil {
		text := nodeText(module, src)
		info.Level = len(text) - len(strings.TrimLeft(text, "."))
		info.IsRelative = info.Level > 0
		info.Module = strings.TrimLeft(text, ".")
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if module != nil && child.Id() == module.Id() {
			continue
		}
		switch child.Kind() {
		case "dotted_name", "identifier":
			info.Names = append(info.Names, nodeText(child, src))
		case "aliased_import":
			info.Names = append(info.Names, nodeText(child.ChildByFieldName("name"), src))
			info.Alias = nodeText(child.ChildByFieldName("alias"), src)
		case "wildcard_import":
			info.Names = append(info.Names, "*")
		}
	}
	return []extract.ImportInfo{info}
}

// decoratorNames reads the decorator list off a decorated_definition.
func decoratorNames(node *sitter.Node, src []byte) []string {
	var names []string
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() != "decorator" {
			continue
		}
		text := strings.TrimPrefix(nodeText(child, src), "@")
		// Keep just the decorator name, not its arguments.
		if idx := strings.IndexByte(text, '('); idx != -1 {
			text = text[:idx]
		}
		names = append(names, strings.TrimSpace(text))
	}
	return names
}

// extractFunction builds a FunctionSignature from a function_definition.
func (e *Extractor) extractFunction(node *sitter.Node, src []byte, decorators []string, isMethod bool) extract.FunctionSignature {
	body := node.ChildByFieldName("body")
	sig := extract.FunctionSignature{
		Name:       nodeText(node.ChildByFieldName("name"), src),
		Parameters: e.extractParameters(node.ChildByFieldName("parameters"), src),
		ReturnType: nodeText(node.ChildByFieldName("return_type"), src),
		Decorators: decorators,
		Docstring:  docstringOf(body, src),
		IsAsync:    hasChildKind(node, "async"),
		IsMethod:   isMethod,
		StartLine:  line(node),
		EndLine:    endLine(node),
		Complexity: complexity(body),
	}
	sig.IsGenerator = containsYield(body)
	for _, dec := range decorators {
		switch dec {
		case "staticmethod":
			sig.IsStatic = true
		case "classmethod":
			sig.IsClassMethod = true
		case "property", "cached_property", "functools.cached_property":
			sig.IsProperty = true
		}
	}
	return sig
}

// extractParameters classifies each entry of a parameters node.
func (e *Extractor) extractParameters(params *sitter.Node, src []byte) []extract.ParameterInfo {
	if params == nil {
		return nil
	}
	var out []extract.ParameterInfo
	for i := uint(0); i < params.ChildCount(); i++ {
		child := params.Child(i)
		switch child.Kind() {
		case "identifier":
			out = append(out, extract.ParameterInfo{Name: nodeText(child, src)})
		case "typed_parameter":
			p := extract.ParameterInfo{Type: nodeText(child.ChildByFieldName("type"), src)}
			if inner := findChild(child, "identifier"); inner != nil {
				p.Name = nodeText(inner, src)
			} else if splat := findChild(child, "list_splat_pattern"); splat != nil {
				p.Name = strings.TrimPrefix(nodeText(splat, src), "*")
				p.IsVariadic = true
			} else if splat := findChild(child, "dictionary_splat_pattern"); splat != nil {
				p.Name = strings.TrimPrefix(nodeText(splat, src), "**")
				p.IsKeyword = true
			}
			out = append(out, p)
		case "default_parameter", "typed_default_parameter":
			out = append(out, extract.ParameterInfo{
				Name:    nodeText(child.ChildByFieldName("name"), src),
				Type:    nodeText(child.ChildByFieldName("type"), src),
				Default: nodeText(child.ChildByFieldName("value"), src),
			})
		case "list_splat_pattern":
			out = append(out, extract.ParameterInfo{
				Name:       strings.TrimPrefix(nodeText(child, src), "*"),
				IsVariadic: true,
			})
		case "dictionary_splat_pattern":
			out = append(out, extract.ParameterInfo{
				Name:      strings.TrimPrefix(nodeText(child, src), "**"),
				IsKeyword: true,
			})
		}
	}
	return out
}

// extractClass builds a ClassSignature, including methods and class-level
// attributes read off the class body.
func (e *Extractor) extractClass(node *sitter.Node, src []byte, decorators []string) extract.ClassSignature {
	body := node.ChildByFieldName("body")
	cls := extract.ClassSignature{
		Name:       nodeText(node.ChildByFieldName("name"), src),
		Decorators: decorators,
		Docstring:  docstringOf(body, src),
		StartLine:  line(node),
		EndLine:    endLine(node),
	}

	if supers := node.ChildByFieldName("superclasses"); supers != nil {
		for i := uint(0); i < supers.ChildCount(); i++ {
			child := supers.Child(i)
			switch child.Kind() {
			case "identifier", "attribute", "subscript":
				cls.Bases = append(cls.Bases, nodeText(child, src))
			}
		}
	}

	for _, dec := range decorators {
		if dec == "dataclass" || dec == "dataclasses.dataclass" {
			cls.IsDataclass = true
		}
	}
	for _, base := range cls.Bases {
		if base == "ABC" || base == "abc.ABC" {
			cls.IsAbstract = true
		}
	}

	if body == nil {
		return cls
	}
	for i := uint(0); i < body.ChildCount(); i++ {
		stmt := body.Child(i)
		switch stmt.Kind() {
		case "function_definition":
			cls.Methods = append(cls.Methods, e.extractFunction(stmt, src, nil, true))
		case "decorated_definition":
			names := decoratorNames(stmt, src)
			if def := stmt.ChildByFieldName("definition"); def != nil && def.Kind() == "function_definition" {
				method := e.extractFunction(def, src, names, true)
				cls.Methods = append(cls.Methods, method)
				for _, dec := range names {
					if dec == "abstractmethod" || dec == "abc.abstractmethod" {
						cls.IsAbstract = true
					}
				}
			}
		case "expression_statement":
			if assign := findChild(stmt, "assignment"); assign != nil {
				if name := assignedName(assign, src); name != "" {
					cls.Attributes = append(cls.Attributes, extract.AttributeInfo{
						Name: name,
						Type: nodeText(assign.ChildByFieldName("type"), src),
					})
				}
			}
		}
	}
	return cls
}

// assignedName returns the simple identifier target of an assignment, or ""
// when the target is a tuple, subscript, or attribute.
func assignedName(assign *sitter.Node, src []byte) string {
	left := assign.ChildByFieldName("left")
	if left == nil || left.Kind() != "identifier" {
		return ""
	}
	return nodeText(left, src)
}

// complexity is 1 plus the count of branching constructs in the body: a
// structural proxy for cyclomatic complexity, not an exact CFG path count.
func complexity(body *sitter.Node) int {
	count := 1
	walk(body, func(n *sitter.Node) bool {
		// Nested functions carry their own complexity.
		if n.Kind() == "function_definition" {
			return false
		}
		switch n.Kind() {
		case "if_statement", "elif_clause", "for_statement", "while_statement",
			"except_clause", "boolean_operator", "conditional_expression",
			"if_clause", "case_clause":
			count++
		}
		return true
	})
	return count
}

// containsYield reports whether the body makes the function a generator.
func containsYield(body *sitter.Node) bool {
	found := false
	walk(body, func(n *sitter.Node) bool {
		if found {
			return false
		}
		// Do not descend into nested functions: their yields are theirs.
		if n.Kind() == "function_definition" {
			return false
		}
		if n.Kind() == "yield" {
			found = true
			return false
		}
		return true
	})
	return found
}
