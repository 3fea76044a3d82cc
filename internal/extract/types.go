// Package extract defines the layered extraction data model and the
// per-language extractor contract. A Summary holds everything the analyzer
// learned about one file at the requested layers; all records are plain
// values and are never mutated after construction.
package extract

import "time"

// Layer identifies one of the five progressively more expensive analysis
// passes.
type Layer int

const (
	// LayerSignatures extracts imports, function and class signatures.
	LayerSignatures Layer = 1
	// LayerCallGraph extracts caller/callee edges.
	LayerCallGraph Layer = 2
	// LayerControlFlow extracts per-function control-flow nodes.
	LayerControlFlow Layer = 3
	// LayerDataFlow extracts per-function def-use edges.
	LayerDataFlow Layer = 4
	// LayerSlices extracts backward/forward dependency slices.
	LayerSlices Layer = 5
)

// DefaultLayers is the layer set used when the caller does not choose one.
var DefaultLayers = []Layer{LayerSignatures, LayerCallGraph, LayerControlFlow}

// ImportInfo describes one import statement.
type ImportInfo struct {
	Module     string   `json:"module"`
	Names      []string `json:"names,omitempty"`
	Alias      string   `json:"alias,omitempty"`
	IsRelative bool     `json:"is_relative,omitempty"`
	Level      int      `json:"level,omitempty"` // relative depth (number of leading dots)
}

// ParameterInfo describes one parameter of a function signature.
type ParameterInfo struct {
	Name       string `json:"name"`
	Type       string `json:"type,omitempty"`
	Default    string `json:"default,omitempty"`
	IsVariadic bool   `json:"is_variadic,omitempty"` // *args
	IsKeyword  bool   `json:"is_keyword,omitempty"`  // **kwargs
}

// FunctionSignature describes one function or method.
type FunctionSignature struct {
	Name          string          `json:"name"`
	Parameters    []ParameterInfo `json:"parameters,omitempty"`
	ReturnType    string          `json:"return_type,omitempty"`
	Decorators    []string        `json:"decorators,omitempty"`
	Docstring     string          `json:"docstring,omitempty"` // truncated to 200 chars
	IsAsync       bool            `json:"is_async,omitempty"`
	IsGenerator   bool            `json:"is_generator,omitempty"`
	IsMethod      bool            `json:"is_method,omitempty"`
	IsStatic      bool            `json:"is_static,omitempty"`
	IsClassMethod bool            `json:"is_classmethod,omitempty"`
	IsProperty    bool            `json:"is_property,omitempty"`
	StartLine     int             `json:"start_line"`
	EndLine       int             `json:"end_line"`
	Complexity    int             `json:"complexity"` // cyclomatic, >= 1
}

// AttributeInfo is one (name, optional type) class attribute.
type AttributeInfo struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// ClassSignature describes one class, interface, or type alias.
type ClassSignature struct {
	Name        string              `json:"name"`
	Bases       []string            `json:"bases,omitempty"`
	Decorators  []string            `json:"decorators,omitempty"`
	Docstring   string              `json:"docstring,omitempty"`
	Methods     []FunctionSignature `json:"methods,omitempty"`
	Attributes  []AttributeInfo     `json:"attributes,omitempty"`
	IsDataclass bool                `json:"is_dataclass,omitempty"`
	IsAbstract  bool                `json:"is_abstract,omitempty"`
	StartLine   int                 `json:"start_line"`
	EndLine     int                 `json:"end_line"`
}

// CallGraphEdge records one call site. Caller and callee are qualified
// names (Class.method for methods). IsExternal is true when the callee's
// root identifier is not defined in the analyzed file.
type CallGraphEdge struct {
	Caller     string `json:"caller"`
	Callee     string `json:"callee"`
	Line       int    `json:"line"`
	IsExternal bool   `json:"is_external,omitempty"`
}

// ControlFlowNode is one branching or flow-relevant construct in source
// order. Branches is reserved in the schema; neither extractor populates
// successor links, so the node list is flat rather than a true graph.
type ControlFlowNode struct {
	ID        int    `json:"id"`
	Kind      string `json:"kind"` // if, elif, while, for, async-for, try, with, async-with, match, switch, return, raise, throw
	Line      int    `json:"line"`
	Condition string `json:"condition,omitempty"` // truncated to 50 chars
	Branches  []int  `json:"branches,omitempty"`  // reserved, unpopulated
}

// DataFlowEdge links a variable definition to a later use.
type DataFlowEdge struct {
	Variable string `json:"variable"`
	DefLine  int    `json:"def_line"`
	UseLine  int    `json:"use_line"`
	Kind     string `json:"kind"` // always "def-use"
}

// DependencySlice is the backward/forward program slice for one variable at
// one line. The backward slice is transitive; the forward slice is a
// single-level name match. That asymmetry is deliberate.
type DependencySlice struct {
	Variable      string   `json:"variable"`
	Line          int      `json:"line"`
	BackwardLines []int    `json:"backward_lines,omitempty"`
	ForwardLines  []int    `json:"forward_lines,omitempty"`
	Functions     []string `json:"functions,omitempty"`
}

// L1Result is everything layer 1 extracts from one file.
type L1Result struct {
	Imports   []ImportInfo        `json:"imports,omitempty"`
	Functions []FunctionSignature `json:"functions,omitempty"`
	Classes   []ClassSignature    `json:"classes,omitempty"`
	ModuleDoc string              `json:"module_doc,omitempty"`
	Globals   []string            `json:"globals,omitempty"`
	Errors    []string            `json:"errors,omitempty"`
}

// L2Result is the call graph for one file.
type L2Result struct {
	Edges         []CallGraphEdge `json:"edges,omitempty"`
	ExternalCalls []string        `json:"external_calls,omitempty"`
}

// Summary is the aggregate result of analyzing one file at a chosen set of
// layers. Layer collections are empty unless the layer was requested and
// succeeded. A Summary is built once per analysis and returned as-is from
// the cache afterwards.
type Summary struct {
	FilePath       string                       `json:"file_path"`
	Language       string                       `json:"language"`
	FileHash       string                       `json:"file_hash"`
	TotalLines     int                          `json:"total_lines"`
	OriginalTokens int                          `json:"original_tokens"`
	SummaryTokens  int                          `json:"summary_tokens"`
	Imports        []ImportInfo                 `json:"imports,omitempty"`
	Functions      []FunctionSignature          `json:"functions,omitempty"`
	Classes        []ClassSignature             `json:"classes,omitempty"`
	ModuleDoc      string                       `json:"module_doc,omitempty"`
	Globals        []string                     `json:"globals,omitempty"`
	CallGraph      []CallGraphEdge              `json:"call_graph,omitempty"`
	ExternalCalls  []string                     `json:"external_calls,omitempty"`
	ControlFlow    map[string][]ControlFlowNode `json:"control_flow,omitempty"`
	DataFlow       map[string][]DataFlowEdge    `json:"data_flow,omitempty"`
	Slices         []DependencySlice            `json:"slices,omitempty"`
	LayersIncluded []Layer                      `json:"layers_included"`
	AnalysisTimeMs int64                        `json:"analysis_time_ms"`
	Errors         []string                     `json:"errors,omitempty"`
	CreatedAt      time.Time                    `json:"created_at"`
}

// Clone returns a deep copy. The cache hands out clones on hits so a caller
// mutating its result cannot corrupt the stored entry.
func (s *Summary) Clone() *Summary {
	if s == nil {
		return nil
	}
	out := *s
	if s.Imports != nil {
		out.Imports = make([]ImportInfo, len(s.Imports))
		for i, imp := range s.Imports {
			imp.Names = cloneStrings(imp.Names)
			out.Imports[i] = imp
		}
	}
	out.Functions = cloneFunctions(s.Functions)
	if s.Classes != nil {
		out.Classes = make([]ClassSignature, len(s.Classes))
		for i, cls := range s.Classes {
			cls.Bases = cloneStrings(cls.Bases)
			cls.Decorators = cloneStrings(cls.Decorators)
			cls.Methods = cloneFunctions(cls.Methods)
			cls.Attributes = append([]AttributeInfo(nil), cls.Attributes...)
			out.Classes[i] = cls
		}
	}
	out.Globals = cloneStrings(s.Globals)
	out.CallGraph = append([]CallGraphEdge(nil), s.CallGraph...)
	out.ExternalCalls = cloneStrings(s.ExternalCalls)
	if s.ControlFlow != nil {
		out.ControlFlow = make(map[string][]ControlFlowNode, len(s.ControlFlow))
		for name, nodes := range s.ControlFlow {
			copied := append([]ControlFlowNode(nil), nodes...)
			for i := range copied {
				copied[i].Branches = append([]int(nil), copied[i].Branches...)
			}
			out.ControlFlow[name] = copied
		}
	}
	if s.DataFlow != nil {
		out.DataFlow = make(map[string][]DataFlowEdge, len(s.DataFlow))
		for name, edges := range s.DataFlow {
			out.DataFlow[name] = append([]DataFlowEdge(nil), edges...)
		}
	}
	if s.Slices != nil {
		out.Slices = make([]DependencySlice, len(s.Slices))
		for i, sl := range s.Slices {
			sl.BackwardLines = append([]int(nil), sl.BackwardLines...)
			sl.ForwardLines = append([]int(nil), sl.ForwardLines...)
			sl.Functions = cloneStrings(sl.Functions)
			out.Slices[i] = sl
		}
	}
	out.LayersIncluded = append([]Layer(nil), s.LayersIncluded...)
	out.Errors = cloneStrings(s.Errors)
	return &out
}

func cloneFunctions(fns []FunctionSignature) []FunctionSignature {
	if fns == nil {
		return nil
	}
	out := make([]FunctionSignature, len(fns))
	for i, fn := range fns {
		fn.Parameters = append([]ParameterInfo(nil), fn.Parameters...)
		fn.Decorators = cloneStrings(fn.Decorators)
		out[i] = fn
	}
	return out
}

func cloneStrings(in []string) []string {
	return append([]string(nil), in...)
}

// HasLayer reports whether the summary includes the given layer.
func (s *Summary) HasLayer(l Layer) bool {
	for _, have := range s.LayersIncluded {
		if have == l {
			return true
		}
	}
	return false
}

// TokenSavingsPercent returns (1 - summary/original) * 100, clamped to 0
// when the original is empty or the summary came out larger.
func (s *Summary) TokenSavingsPercent() float64 {
	if s.OriginalTokens <= 0 {
		return 0
	}
	savings := (1 - float64(s.SummaryTokens)/float64(s.OriginalTokens)) * 100
	if savings < 0 {
		return 0
	}
	return savings
}

// NormalizeLayers sorts, de-duplicates, and bounds a requested layer set.
// Unknown layer numbers are dropped.
func NormalizeLayers(layers []Layer) []Layer {
	seen := make(map[Layer]bool, len(layers))
	out := make([]Layer, 0, len(layers))
	for l := LayerSignatures; l <= LayerSlices; l++ {
		for _, have := range layers {
			if have == l && !seen[l] {
				seen[l] = true
				out = append(out, l)
			}
		}
	}
	return out
}
