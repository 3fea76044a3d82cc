package pattern

import (
	"regexp"
	"sort"
	"strings"

	"github.com/codetldr/tldr/internal/extract"
)

// Call-shaped identifiers: bare calls and dotted calls. Keyword-shaped
// matches are filtered by the denylist afterwards.
var reCall = regexp.MustCompile(`([A-Za-z_$][\w$]*(?:\.[A-Za-z_$][\w$]*)*)\s*\(`)

// callKeywords are keyword-shaped tokens that look like calls.
var callKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"return": true, "function": true, "typeof": true, "await": true,
	"constructor": true, "super": true, "do": true, "else": true,
}

var (
	reDefine = regexp.MustCompile(`^\s*(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*(?::[^=]+)?=`)
	reAssign = regexp.MustCompile(`^\s*([A-Za-z_$][\w$]*)\s*(?:[-+*/|&]{0,2}|\?\?)=[^=]`)
	reIdent  = regexp.MustCompile(`[A-Za-z_$][\w$]*`)
)

// ExtractL2 builds an approximate call graph with per-line identifier
// matching: every call-shaped token inside a known function range becomes an
// edge from that function.
func (e *Extractor) ExtractL2(source, path string, functions []extract.FunctionSignature, classes []extract.ClassSignature) *extract.L2Result {
	result := &extract.L2Result{}
	lines := strings.Split(source, "\n")
	ranges := functionRanges(functions, classes)
	defined := definedNames(functions, classes)
	externals := make(map[string]bool)

	for i, line := range lines {
		lineNo := i + 1
		caller := enclosingFunction(ranges, lineNo)
		for _, m := range reCall.FindAllStringSubmatch(line, -1) {
			callee := m[1]
			root := callee
			if idx := strings.IndexByte(root, '.'); idx != -1 {
				root = root[:idx]
			}
			if callKeywords[root] {
				continue
			}
			external := !defined[root] && !defined[callee]
			result.Edges = append(result.Edges, extract.CallGraphEdge{
				Caller:     caller,
				Callee:     callee,
				Line:       lineNo,
				IsExternal: external,
			})
			if external {
				externals[callee] = true
			}
		}
	}

	for name := range externals {
		result.ExternalCalls = append(result.ExternalCalls, name)
	}
	sort.Strings(result.ExternalCalls)
	return result
}

// ExtractL3 emits flattened control-flow nodes from per-line keyword
// matching, attributed to the enclosing function.
func (e *Extractor) ExtractL3(source, path string, functions []extract.FunctionSignature) map[string][]extract.ControlFlowNode {
	out := make(map[string][]extract.ControlFlowNode)
	lines := strings.Split(source, "\n")
	ranges := functionRangesOnly(functions)
	counters := make(map[string]int)

	add := func(fn, kind, condition string, lineNo int) {
		node := extract.ControlFlowNode{
			ID:        counters[fn],
			Kind:      kind,
			Line:      lineNo,
			Condition: extract.TruncateCondition(condition),
		}
		counters[fn]++
		out[fn] = append(out[fn], node)
	}

	for i, line := range lines {
		lineNo := i + 1
		fn := enclosingFunction(ranges, lineNo)
		if fn == "<module>" {
			continue
		}
		kind, condition, ok := matchFlowKeyword(line)
		if ok {
			add(fn, kind, condition, lineNo)
		}
	}
	return out
}

var (
	reElseIf = regexp.MustCompile(`^\s*\}?\s*else\s+if\s*\((.*)\)`)
	reIf     = regexp.MustCompile(`^\s*if\s*\((.*)\)`)
	reWhile  = regexp.MustCompile(`^\s*\}?\s*while\s*\((.*)\)`)
	reFor    = regexp.MustCompile(`^\s*for\s*(?:await\s*)?\((.*)\)`)
	reSwitch = regexp.MustCompile(`^\s*switch\s*\((.*)\)`)
	reTry    = regexp.MustCompile(`^\s*try\s*\{`)
	reReturn = regexp.MustCompile(`^\s*return\b\s*(.*?);?\s*$`)
	reThrow  = regexp.MustCompile(`^\s*throw\b\s*(.*?);?\s*$`)
)

func matchFlowKeyword(line string) (kind, condition string, ok bool) {
	switch {
	case reElseIf.MatchString(line):
		return "else-if", reElseIf.FindStringSubmatch(line)[1], true
	case reIf.MatchString(line):
		return "if", reIf.FindStringSubmatch(line)[1], true
	case reWhile.MatchString(line):
		return "while", reWhile.FindStringSubmatch(line)[1], true
	case reFor.MatchString(line):
		return "for", reFor.FindStringSubmatch(line)[1], true
	case reSwitch.MatchString(line):
		return "switch", reSwitch.FindStringSubmatch(line)[1], true
	case reTry.MatchString(line):
		return "try", "", true
	case reReturn.MatchString(line):
		return "return", reReturn.FindStringSubmatch(line)[1], true
	case reThrow.MatchString(line):
		return "throw", reThrow.FindStringSubmatch(line)[1], true
	}
	return "", "", false
}

// ExtractL4 tracks per-line definitions and uses inside each function with
// the same last-write-wins map the structural extractor keeps.
func (e *Extractor) ExtractL4(source, path string, functions []extract.FunctionSignature) map[string][]extract.DataFlowEdge {
	out := make(map[string][]extract.DataFlowEdge)
	lines := strings.Split(source, "\n")
	ranges := functionRangesOnly(functions)

	for _, r := range ranges {
		defs := make(map[string]int)
		var edges []extract.DataFlowEdge
		for lineNo := r.start; lineNo <= r.end && lineNo <= len(lines); lineNo++ {
			line := lines[lineNo-1]

			var defName string
			if m := reDefine.FindStringSubmatch(line); m != nil {
				defName = m[1]
			} else if m := reAssign.FindStringSubmatch(line); m != nil && !callKeywords[m[1]] {
				defName = m[1]
			}

			// Reads first: everything on the line except the defined name's
			// left-hand occurrence.
			seen := make(map[string]bool)
			for _, ident := range reIdent.FindAllString(line, -1) {
				if callKeywords[ident] || seen[ident] {
					continue
				}
				seen[ident] = true
				if ident == defName {
					continue
				}
				if defLine, ok := defs[ident]; ok {
					edges = append(edges, extract.DataFlowEdge{
						Variable: ident,
						DefLine:  defLine,
						UseLine:  lineNo,
						Kind:     "def-use",
					})
				}
			}
			if defName != "" {
				defs[defName] = lineNo
			}
		}
		out[r.name] = edges
	}
	return out
}

// ExtractL5 reuses the line-based assignment scan for slicing. The backward
// worklist and single-level forward match mirror the structural extractor.
func (e *Extractor) ExtractL5(source, path string, targets []extract.SliceTarget) []extract.DependencySlice {
	lines := strings.Split(source, "\n")

	type assignLine struct {
		line  int
		write string
		reads []string
	}
	var assigns []assignLine
	for i, line := range lines {
		var name string
		if m := reDefine.FindStringSubmatch(line); m != nil {
			name = m[1]
		} else if m := reAssign.FindStringSubmatch(line); m != nil && !callKeywords[m[1]] {
			name = m[1]
		}
		if name == "" {
			continue
		}
		rhs := line
		if idx := strings.Index(line, "="); idx != -1 {
			rhs = line[idx+1:]
		}
		var reads []string
		for _, ident := range reIdent.FindAllString(rhs, -1) {
			if !callKeywords[ident] {
				reads = append(reads, ident)
			}
		}
		assigns = append(assigns, assignLine{line: i + 1, write: name, reads: reads})
	}

	if len(targets) == 0 {
		for i, line := range lines {
			if m := reReturn.FindStringSubmatch(line); m != nil {
				value := strings.TrimSpace(m[1])
				if reIdent.MatchString(value) && reIdent.FindString(value) == value {
					targets = append(targets, extract.SliceTarget{Variable: value, Line: i + 1})
				}
			}
		}
	}

	var slices []extract.DependencySlice
	for _, target := range targets {
		backward := make(map[int]bool)
		visited := map[string]bool{target.Variable: true}
		worklist := []string{target.Variable}
		for len(worklist) > 0 {
			name := worklist[0]
			worklist = worklist[1:]
			for _, a := range assigns {
				if a.line >= target.Line || a.write != name {
					continue
				}
				backward[a.line] = true
				for _, read := range a.reads {
					if !visited[read] {
						visited[read] = true
						worklist = append(worklist, read)
					}
				}
			}
		}

		forward := make(map[int]bool)
		for i := target.Line; i < len(lines); i++ {
			for _, ident := range reIdent.FindAllString(lines[i], -1) {
				if ident == target.Variable {
					forward[i+1] = true
					break
				}
			}
		}

		slices = append(slices, extract.DependencySlice{
			Variable:      target.Variable,
			Line:          target.Line,
			BackwardLines: sortedKeys(backward),
			ForwardLines:  sortedKeys(forward),
		})
	}
	return slices
}

type fnRange struct {
	name  string
	start int
	end   int
}

// functionRanges maps line ranges to qualified names for functions and
// class methods.
func functionRanges(functions []extract.FunctionSignature, classes []extract.ClassSignature) []fnRange {
	ranges := functionRangesOnly(functions)
	for _, cls := range classes {
		for _, m := range cls.Methods {
			ranges = append(ranges, fnRange{name: cls.Name + "." + m.Name, start: m.StartLine, end: m.EndLine})
		}
	}
	return ranges
}

func functionRangesOnly(functions []extract.FunctionSignature) []fnRange {
	ranges := make([]fnRange, 0, len(functions))
	for _, fn := range functions {
		ranges = append(ranges, fnRange{name: fn.Name, start: fn.StartLine, end: fn.EndLine})
	}
	return ranges
}

// enclosingFunction picks the innermost (narrowest) range covering the line,
// or "<module>".
func enclosingFunction(ranges []fnRange, line int) string {
	best := "<module>"
	bestSpan := int(^uint(0) >> 1)
	for _, r := range ranges {
		if line >= r.start && line <= r.end && r.end-r.start < bestSpan {
			best = r.name
			bestSpan = r.end - r.start
		}
	}
	return best
}

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

func sortedKeys(set map[int]bool) []int {
	keys := make([]int, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
