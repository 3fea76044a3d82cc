package extract

// Registry selects an extractor for a file. It is a closed, ordered list:
// the first extractor whose CanHandle accepts the path wins, and nothing is
// registered at runtime.
type Registry struct {
	extractors []Extractor
}

// NewRegistry builds a registry from the given extractors, consulted in
// order.
func NewRegistry(extractors ...Extractor) *Registry {
	return &Registry{extractors: extractors}
}

// For returns the extractor handling the path, or nil when no extractor
// accepts its extension.
func (r *Registry) For(path string) Extractor {
	for _, e := range r.extractors {
		if e.CanHandle(path) {
			return e
		}
	}
	return nil
}

// FlattenFunctions returns top-level functions plus class methods under
// their qualified Class.method names, with method ranges intact. Layers 3
// and 4 key their results off this flattened view.
func FlattenFunctions(functions []FunctionSignature, classes []ClassSignature) []FunctionSignature {
	out := make([]FunctionSignature, 0, len(functions))
	out = append(out, functions...)
	for _, cls := range classes {
		for _, m := range cls.Methods {
			qualified := m
			qualified.Name = cls.Name + "." + m.Name
			out = append(out, qualified)
		}
	}
	return out
}
