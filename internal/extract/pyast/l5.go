package pyast

import (
	"fmt"
	"sort"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/codetldr/tldr/internal/extract"
)

// assignRecord is one assignment statement seen in the file: the names it
// binds and the names its right-hand side reads.
type assignRecord struct {
	line   int
	writes []string
	reads  []string
}

// ExtractL5 computes dependency slices. The backward slice is transitive: a
// worklist over the variables feeding the target. The forward slice is a
// single-level match on the exact target name in later statements. If no
// targets are given, variables returned directly by a return statement are
// sliced at their return lines.
func (e *Extractor) ExtractL5(source, path string, targets []extract.SliceTarget) []extract.DependencySlice {
	src := []byte(source)

	tree, ok := e.parse(src)
	if tree == nil || !ok {
		if tree != nil {
			tree.Close()
		}
		return nil
	}
	defer tree.Close()
	root := tree.RootNode()

	assigns := collectAssignments(root, src)
	if len(targets) == 0 {
		targets = autoTargets(root, src)
	}

	var slices []extract.DependencySlice
	for _, target := range targets {
		slice := extract.DependencySlice{
			Variable:      target.Variable,
			Line:          target.Line,
			BackwardLines: backwardSlice(assigns, target),
			ForwardLines:  forwardSlice(root, src, target),
		}
		slice.Functions = enclosingFunctions(root, src, append(slice.BackwardLines, target.Line))
		slices = append(slices, slice)
	}
	return slices
}

// collectAssignments records every assignment statement with its writes and
// right-hand-side reads.
func collectAssignments(root *sitter.Node, src []byte) []assignRecord {
	var records []assignRecord
	walk(root, func(n *sitter.Node) bool {
		if n.Kind() != "assignment" && n.Kind() != "augmented_assignment" {
			return true
		}
		rec := assignRecord{
			line:   line(n),
			writes: targetNames(n.ChildByFieldName("left"), src),
		}
		if right := n.ChildByFieldName("right"); right != nil {
			rec.reads = identifiersIn(right, src)
		}
		if n.Kind() == "augmented_assignment" {
			rec.reads = append(rec.reads, rec.writes...)
		}
		records = append(records, rec)
		return true
	})
	return records
}

// backwardSlice runs the worklist: pop a variable, include every earlier
// assignment to it, and push the variables its right-hand side reads.
func backwardSlice(assigns []assignRecord, target extract.SliceTarget) []int {
	lines := make(map[int]bool)
	visited := map[string]bool{target.Variable: true}
	worklist := []string{target.Variable}

	for len(worklist) > 0 {
		name := worklist[0]
		worklist = worklist[1:]
		for _, rec := range assigns {
			if rec.line >= target.Line || !contains(rec.writes, name) {
				continue
			}
			lines[rec.line] = true
			for _, read := range rec.reads {
				if !visited[read] {
					visited[read] = true
					worklist = append(worklist, read)
				}
			}
		}
	}
	return sortedLines(lines)
}

// forwardSlice includes every statement after the target line whose subtree
// reads the exact target name. Derived variables are not followed.
func forwardSlice(root *sitter.Node, src []byte, target extract.SliceTarget) []int {
	lines := make(map[int]bool)
	walk(root, func(n *sitter.Node) bool {
		if !isStatement(n) || line(n) <= target.Line {
			return true
		}
		if contains(identifiersIn(n, src), target.Variable) {
			lines[line(n)] = true
		}
		return true
	})
	return sortedLines(lines)
}

// autoTargets picks slice targets heuristically: variables that are the
// direct operand of a return statement.
func autoTargets(root *sitter.Node, src []byte) []extract.SliceTarget {
	var targets []extract.SliceTarget
	seen := make(map[string]bool)
	walk(root, func(n *sitter.Node) bool {
		if n.Kind() != "return_statement" || n.ChildCount() < 2 {
			return true
		}
		value := n.Child(1)
		if value.Kind() != "identifier" {
			return true
		}
		name := nodeText(value, src)
		key := fmt.Sprintf("%s@%d", name, line(n))
		if !seen[key] {
			seen[key] = true
			targets = append(targets, extract.SliceTarget{Variable: name, Line: line(n)})
		}
		return true
	})
	return targets
}

// enclosingFunctions names the functions whose ranges cover any slice line.
func enclosingFunctions(root *sitter.Node, src []byte, lines []int) []string {
	var names []string
	walk(root, func(n *sitter.Node) bool {
		if n.Kind() != "function_definition" {
			return true
		}
		start, end := line(n), endLine(n)
		for _, l := range lines {
			if l >= start && l <= end {
				names = append(names, qualifiedScope(n, src))
				break
			}
		}
		return true
	})
	sort.Strings(names)
	return names
}

// identifiersIn lists variable-position identifiers in a subtree.
func identifiersIn(n *sitter.Node, src []byte) []string {
	var names []string
	walk(n, func(child *sitter.Node) bool {
		if child.Kind() == "identifier" && !isAttributeName(child) && !isKeywordArgName(child) {
			names = append(names, nodeText(child, src))
		}
		return true
	})
	return names
}

// isStatement reports whether the node is a statement-level construct whose
// line is meaningful in a slice.
func isStatement(n *sitter.Node) bool {
	switch n.Kind() {
	case "expression_statement", "return_statement", "assignment",
		"augmented_assignment", "if_statement", "while_statement",
		"for_statement", "raise_statement", "assert_statement",
		"delete_statement":
		return true
	}
	return false
}

func contains(names []string, want string) bool {
	for _, name := range names {
		if name == want {
			return true
		}
	}
	return false
}

func sortedLines(set map[int]bool) []int {
	lines := make([]int, 0, len(set))
	for l := range set {
		lines = append(lines, l)
	}
	sort.Ints(lines)
	return lines
}
