// Package pattern implements the regex-based fallback extractor for
// languages without a wired native parser, currently the JavaScript/
// TypeScript family. It runs ordered regular-expression passes over raw
// text, so precision is lower than the structural extractor's; it degrades
// to best-effort partial data rather than refusing to run.
package pattern

import (
	"regexp"
	"strings"

	"github.com/codetldr/tldr/internal/extract"
)

var jsExtensions = map[string]string{
	".js":  "javascript",
	".jsx": "javascript",
	".mjs": "javascript",
	".cjs": "javascript",
	".ts":  "typescript",
	".tsx": "typescript",
}

// Ordered import-statement forms. Named before default so that
// `import {a} from 'x'` is not swallowed by the default-import pattern.
var (
	reImportNamed   = regexp.MustCompile(`^\s*import\s+(?:type\s+)?\{([^}]*)\}\s*from\s*['"]([^'"]+)['"]`)
	reImportStar    = regexp.MustCompile(`^\s*import\s+\*\s+as\s+(\w+)\s+from\s*['"]([^'"]+)['"]`)
	reImportDefault = regexp.MustCompile(`^\s*import\s+(\w+)\s*(?:,\s*\{([^}]*)\})?\s*from\s*['"]([^'"]+)['"]`)
	reImportBare    = regexp.MustCompile(`^\s*import\s*['"]([^'"]+)['"]`)
	reRequire       = regexp.MustCompile(`^\s*(?:const|let|var)\s+(\w+)\s*=\s*require\(\s*['"]([^'"]+)['"]\s*\)`)

	reFunction = regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(async\s+)?function\s*(\*?)\s*(\w+)\s*\(([^)]*)\)(?:\s*:\s*([^{]+?))?\s*\{`)
	reArrowFn  = regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+(\w+)(?:\s*:\s*[^=]+)?\s*=\s*(async\s+)?(?:\(([^)]*)\)|(\w+))\s*(?::\s*([^=]+?)\s*)?=>`)
	reMethod   = regexp.MustCompile(`^\s*(?:public\s+|private\s+|protected\s+|readonly\s+)*(static\s+)?(async\s+)?(get\s+|set\s+)?(\*?)\s*(\w+)\s*\(([^)]*)\)(?:\s*:\s*([^{]+?))?\s*\{`)

	reClass     = regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(abstract\s+)?class\s+(\w+)(?:\s+extends\s+([\w.<>,\s]+?))?(?:\s+implements\s+([\w.<>,\s]+?))?\s*\{`)
	reInterface = regexp.MustCompile(`^\s*(?:export\s+)?interface\s+(\w+)(?:\s+extends\s+([\w.<>,\s]+?))?\s*\{`)
	reTypeAlias = regexp.MustCompile(`^\s*(?:export\s+)?type\s+(\w+)(?:<[^=]*>)?\s*=`)

	reDecorator = regexp.MustCompile(`^\s*@(\w+)`)
)

// methodKeywords are line starters that look like methods to reMethod but
// are language keywords.
var methodKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"return": true, "function": true, "do": true,
	"else": true, "typeof": true, "new": true, "await": true, "import": true,
	"export": true, "delete": true, "void": true, "case": true, "in": true,
	"of": true, "throw": true, "yield": true, "super": true,
}

// Extractor is the regex fallback extractor.
type Extractor struct{}

// New creates a pattern extractor.
func New() *Extractor { return &Extractor{} }

// CanHandle reports whether the path has a JavaScript/TypeScript extension.
func (e *Extractor) CanHandle(path string) bool {
	_, ok := jsExtensions[extract.Ext(path)]
	return ok
}

// Language returns the generic family tag; per-file tags come from
// LanguageFor.
func (e *Extractor) Language() string { return "javascript" }

// LanguageFor returns the per-extension language tag.
func LanguageFor(path string) string {
	if lang, ok := jsExtensions[extract.Ext(path)]; ok {
		return lang
	}
	return "javascript"
}

// ExtractL1 scans the file line by line with the ordered pattern passes.
// It never fails: unrecognized text is simply skipped.
func (e *Extractor) ExtractL1(source, path string) *extract.L1Result {
	result := &extract.L1Result{}
	lines := strings.Split(source, "\n")

	var pendingDecorators []string
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		lineNo := i + 1

		if m := reDecorator.FindStringSubmatch(line); m != nil {
			pendingDecorators = append(pendingDecorators, m[1])
			continue
		}

		if imp, ok := matchImport(line); ok {
			result.Imports = append(result.Imports, imp)
			pendingDecorators = nil
			continue
		}

		if cls, bodyEnd, ok := e.matchClass(lines, i); ok {
			// Keep markers matchClass already set (interfaces, aliases).
			cls.Decorators = append(pendingDecorators, cls.Decorators...)
			pendingDecorators = nil
			result.Classes = append(result.Classes, cls)
			// bodyEnd is the 1-indexed line after the body; the loop
			// increment must land there, not one past it.
			i = bodyEnd - 2
			continue
		}

		if fn, ok := matchFunction(line, lineNo, lines); ok {
			fn.Decorators = pendingDecorators
			pendingDecorators = nil
			result.Functions = append(result.Functions, fn)
			continue
		}

		if strings.TrimSpace(line) != "" {
			pendingDecorators = nil
		}
	}
	return result
}

// matchImport tries the import forms in order.
func matchImport(line string) (extract.ImportInfo, bool) {
	if m := reImportNamed.FindStringSubmatch(line); m != nil {
		return extract.ImportInfo{
			Module:     m[2],
			Names:      splitNames(m[1]),
			IsRelative: strings.HasPrefix(m[2], "."),
			Level:      relativeLevel(m[2]),
		}, true
	}
	if m := reImportStar.FindStringSubmatch(line); m != nil {
		return extract.ImportInfo{
			Module:     m[2],
			Alias:      m[1],
			IsRelative: strings.HasPrefix(m[2], "."),
			Level:      relativeLevel(m[2]),
		}, true
	}
	if m := reImportDefault.FindStringSubmatch(line); m != nil {
		names := []string{m[1]}
		names = append(names, splitNames(m[2])...)
		return extract.ImportInfo{
			Module:     m[3],
			Names:      names,
			IsRelative: strings.HasPrefix(m[3], "."),
			Level:      relativeLevel(m[3]),
		}, true
	}
	if m := reRequire.FindStringSubmatch(line); m != nil {
		return extract.ImportInfo{
			Module:     m[2],
			Alias:      m[1],
			IsRelative: strings.HasPrefix(m[2], "."),
			Level:      relativeLevel(m[2]),
		}, true
	}
	if m := reImportBare.FindStringSubmatch(line); m != nil {
		return extract.ImportInfo{
			Module:     m[1],
			IsRelative: strings.HasPrefix(m[1], "."),
			Level:      relativeLevel(m[1]),
		}, true
	}
	return extract.ImportInfo{}, false
}

// matchFunction tries declaration and arrow forms on one line.
func matchFunction(line string, lineNo int, lines []string) (extract.FunctionSignature, bool) {
	if m := reFunction.FindStringSubmatch(line); m != nil {
		return extract.FunctionSignature{
			Name:        m[3],
			Parameters:  parseParams(m[4]),
			ReturnType:  strings.TrimSpace(m[5]),
			IsAsync:     m[1] != "",
			IsGenerator: m[2] == "*",
			StartLine:   lineNo,
			EndLine:     blockEnd(lines, lineNo-1),
			Complexity:  1,
		}, true
	}
	if m := reArrowFn.FindStringSubmatch(line); m != nil {
		params := m[3]
		if params == "" && m[4] != "" {
			params = m[4]
		}
		return extract.FunctionSignature{
			Name:       m[1],
			Parameters: parseParams(params),
			ReturnType: strings.TrimSpace(m[5]),
			IsAsync:    m[2] != "",
			StartLine:  lineNo,
			EndLine:    blockEnd(lines, lineNo-1),
			Complexity: 1,
		}, true
	}
	return extract.FunctionSignature{}, false
}

// matchClass matches a class, interface, or type-alias declaration starting
// at line index i. For classes and interfaces it isolates the brace-balanced
// body and scans it for members. It returns the 1-indexed line after the
// body so the caller can skip it.
func (e *Extractor) matchClass(lines []string, i int) (extract.ClassSignature, int, bool) {
	line := lines[i]
	lineNo := i + 1

	if m := reClass.FindStringSubmatch(line); m != nil {
		cls := extract.ClassSignature{
			Name:       m[2],
			Bases:      append(splitNames(m[3]), splitNames(m[4])...),
			IsAbstract: m[1] != "",
			StartLine:  lineNo,
		}
		cls.EndLine = blockEnd(lines, i)
		e.scanClassBody(lines, i+1, cls.EndLine-1, &cls)
		return cls, cls.EndLine + 1, true
	}
	if m := reInterface.FindStringSubmatch(line); m != nil {
		cls := extract.ClassSignature{
			Name:       m[1],
			Bases:      splitNames(m[2]),
			Decorators: []string{"interface"},
			StartLine:  lineNo,
		}
		cls.EndLine = blockEnd(lines, i)
		e.scanInterfaceBody(lines, i+1, cls.EndLine-1, &cls)
		return cls, cls.EndLine + 1, true
	}
	if m := reTypeAlias.FindStringSubmatch(line); m != nil {
		cls := extract.ClassSignature{
			Name:       m[1],
			Decorators: []string{"interface"},
			StartLine:  lineNo,
			EndLine:    lineNo,
		}
		return cls, lineNo + 1, true
	}
	return extract.ClassSignature{}, 0, false
}

// scanClassBody extracts methods and field declarations between the class
// braces (1-indexed inclusive line range).
func (e *Extractor) scanClassBody(lines []string, startIdx, endLine int, cls *extract.ClassSignature) {
	for i := startIdx; i < endLine && i < len(lines); i++ {
		line := lines[i]
		if m := reMethod.FindStringSubmatch(line); m != nil {
			name := m[5]
			if methodKeywords[name] {
				continue
			}
			method := extract.FunctionSignature{
				Name:       name,
				Parameters: parseParams(m[6]),
				ReturnType: strings.TrimSpace(m[7]),
				IsAsync:    m[2] != "",
				IsMethod:   true,
				IsStatic:   m[1] != "",
				IsProperty: m[3] != "",
				StartLine:  i + 1,
				EndLine:    blockEnd(lines, i),
				Complexity: 1,
			}
			cls.Methods = append(cls.Methods, method)
			i = method.EndLine - 1
			continue
		}
		if name, typ, ok := matchField(line); ok {
			cls.Attributes = append(cls.Attributes, extract.AttributeInfo{Name: name, Type: typ})
		}
	}
}

var reField = regexp.MustCompile(`^\s*(?:public\s+|private\s+|protected\s+|readonly\s+|static\s+)*(\w+)(\?)?\s*:\s*([^;=]+)[;=]?`)

// matchField matches a property declaration (TypeScript-style annotation).
func matchField(line string) (string, string, bool) {
	m := reField.FindStringSubmatch(line)
	if m == nil || methodKeywords[m[1]] {
		return "", "", false
	}
	return m[1], strings.TrimSpace(m[3]), true
}

// scanInterfaceBody records interface members as attributes.
func (e *Extractor) scanInterfaceBody(lines []string, startIdx, endLine int, cls *extract.ClassSignature) {
	for i := startIdx; i < endLine && i < len(lines); i++ {
		if name, typ, ok := matchField(lines[i]); ok {
			cls.Attributes = append(cls.Attributes, extract.AttributeInfo{Name: name, Type: typ})
		}
	}
}

// blockEnd finds the line (1-indexed) closing the brace block opened at line
// index i, by brace balancing. When braces never balance (arrow expression
// bodies, malformed input) it returns the opening line.
func blockEnd(lines []string, i int) int {
	depth := 0
	opened := false
	for j := i; j < len(lines); j++ {
		for _, ch := range lines[j] {
			switch ch {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
				if opened && depth == 0 {
					return j + 1
				}
			}
		}
		if opened && depth <= 0 {
			return j + 1
		}
	}
	if !opened {
		return i + 1
	}
	return len(lines)
}

func splitNames(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	var names []string
	for _, part := range parts {
		name := strings.TrimSpace(part)
		// "foo as bar" keeps the local name
		if idx := strings.Index(name, " as "); idx != -1 {
			name = strings.TrimSpace(name[idx+4:])
		}
		if name != "" {
			names = append(names, name)
		}
	}
	return names
}

func parseParams(raw string) []extract.ParameterInfo {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []extract.ParameterInfo
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		p := extract.ParameterInfo{}
		if strings.HasPrefix(part, "...") {
			p.IsVariadic = true
			part = strings.TrimPrefix(part, "...")
		}
		if idx := strings.Index(part, "="); idx != -1 {
			p.Default = strings.TrimSpace(part[idx+1:])
			part = strings.TrimSpace(part[:idx])
		}
		if idx := strings.Index(part, ":"); idx != -1 {
			p.Type = strings.TrimSpace(part[idx+1:])
			part = strings.TrimSpace(part[:idx])
		}
		p.Name = strings.TrimSuffix(strings.TrimSpace(part), "?")
		out = append(out, p)
	}
	return out
}

func relativeLevel(module string) int {
	level := 0
	for _, seg := range strings.Split(module, "/") {
		if seg == "." {
			level = 1
		} else if seg == ".." {
			level++
		} else {
			break
		}
	}
	return level
}
