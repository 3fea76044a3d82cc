package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codetldr/tldr/internal/extract"
)

// Test Plan:
// - L1 recognizes every import form (named, star, default, bare, require)
// - L1 extracts function declarations, arrow functions, classes with
//   methods and typed fields, interfaces, and type aliases
// - L2 attributes call-shaped tokens to the enclosing function and
//   classifies unknown roots as external
// - L3 matches flow keywords per line inside function ranges
// - L4 links const/let definitions to later reads
// - L5 mirrors the structural slicer: transitive backward, shallow forward

const sampleTS = `import { useState } from 'react';
import * as path from 'path';
import React from 'react';
import './styles.css';
const fs = require('fs');

export function parseConfig(raw: string): Config {
  if (!raw) {
    return defaults;
  }
  return JSON.parse(raw);
}

const format = async (value) => {
  return value.trim();
};

export class Widget extends Base {
  width: number;
  height?: number;

  constructor(width: number) {
    this.width = width;
  }

  async render(): Promise<void> {
    draw(this.width);
  }

  static create(): Widget {
    return new Widget(0);
  }
}

export interface Options extends BaseOptions {
  verbose: boolean;
  retries: number;
}

export type Handler = (e: Event) => void;
`

func TestExtractL1_ImportForms(t *testing.T) {
	e := New()
	result := e.ExtractL1(sampleTS, "app.ts")
	require.Empty(t, result.Errors)
	require.Len(t, result.Imports, 5)

	assert.Equal(t, "react", result.Imports[0].Module)
	assert.Equal(t, []string{"useState"}, result.Imports[0].Names)

	assert.Equal(t, "path", result.Imports[1].Module)
	assert.Equal(t, "path", result.Imports[1].Alias)

	assert.Equal(t, "react", result.Imports[2].Module)
	assert.Equal(t, []string{"React"}, result.Imports[2].Names)

	assert.Equal(t, "./styles.css", result.Imports[3].Module)
	assert.True(t, result.Imports[3].IsRelative)
	assert.Equal(t, 1, result.Imports[3].Level)

	assert.Equal(t, "fs", result.Imports[4].Module)
	assert.Equal(t, "fs", result.Imports[4].Alias)
}

func TestExtractL1_Functions(t *testing.T) {
	e := New()
	result := e.ExtractL1(sampleTS, "app.ts")
	require.Len(t, result.Functions, 2)

	parse := result.Functions[0]
	assert.Equal(t, "parseConfig", parse.Name)
	assert.Equal(t, "Config", parse.ReturnType)
	require.Len(t, parse.Parameters, 1)
	assert.Equal(t, "raw", parse.Parameters[0].Name)
	assert.Equal(t, "string", parse.Parameters[0].Type)
	assert.Equal(t, 7, parse.StartLine)
	assert.Equal(t, 12, parse.EndLine)

	format := result.Functions[1]
	assert.Equal(t, "format", format.Name)
	assert.True(t, format.IsAsync)
}

func TestExtractL1_ClassInterfaceAlias(t *testing.T) {
	e := New()
	result := e.ExtractL1(sampleTS, "app.ts")
	require.Len(t, result.Classes, 3)

	widget := result.Classes[0]
	assert.Equal(t, "Widget", widget.Name)
	assert.Equal(t, []string{"Base"}, widget.Bases)
	require.Len(t, widget.Methods, 3)
	assert.Equal(t, "constructor", widget.Methods[0].Name)
	assert.Equal(t, "render", widget.Methods[1].Name)
	assert.True(t, widget.Methods[1].IsAsync)
	assert.Equal(t, "Promise<void>", widget.Methods[1].ReturnType)
	assert.Equal(t, "create", widget.Methods[2].Name)
	assert.True(t, widget.Methods[2].IsStatic)

	require.Len(t, widget.Attributes, 2)
	assert.Equal(t, "width", widget.Attributes[0].Name)
	assert.Equal(t, "number", widget.Attributes[0].Type)
	assert.Equal(t, "height", widget.Attributes[1].Name)

	opts := result.Classes[1]
	assert.Equal(t, "Options", opts.Name)
	assert.Equal(t, []string{"BaseOptions"}, opts.Bases)
	assert.Equal(t, []string{"interface"}, opts.Decorators)
	require.Len(t, opts.Attributes, 2)

	alias := result.Classes[2]
	assert.Equal(t, "Handler", alias.Name)
	assert.Equal(t, []string{"interface"}, alias.Decorators)
}

func TestExtractL1_GeneratorAndVariadic(t *testing.T) {
	source := "function* gen(...items) {\n  yield items;\n}\n"
	e := New()
	result := e.ExtractL1(source, "gen.js")
	require.Len(t, result.Functions, 1)
	assert.True(t, result.Functions[0].IsGenerator)
	require.Len(t, result.Functions[0].Parameters, 1)
	assert.True(t, result.Functions[0].Parameters[0].IsVariadic)
	assert.Equal(t, "items", result.Functions[0].Parameters[0].Name)
}

func TestExtractL2_CallAttribution(t *testing.T) {
	e := New()
	l1 := e.ExtractL1(sampleTS, "app.ts")
	l2 := e.ExtractL2(sampleTS, "app.ts", l1.Functions, l1.Classes)

	edges := make(map[string]extract.CallGraphEdge)
	for _, edge := range l2.Edges {
		edges[edge.Caller+"->"+edge.Callee] = edge
	}

	jsonCall, ok := edges["parseConfig->JSON.parse"]
	require.True(t, ok)
	assert.True(t, jsonCall.IsExternal)

	drawCall, ok := edges["Widget.render->draw"]
	require.True(t, ok)
	assert.True(t, drawCall.IsExternal)

	assert.Contains(t, l2.ExternalCalls, "JSON.parse")
	assert.Contains(t, l2.ExternalCalls, "draw")
}

func TestExtractL3_FlowKeywords(t *testing.T) {
	source := `function retry(n) {
  for (let i = 0; i < n; i++) {
    if (ready()) {
      return i;
    } else if (failed()) {
      throw new Error("failed");
    }
  }
  try {
    cleanup();
  } catch (e) {
  }
  return -1;
}
`
	e := New()
	l1 := e.ExtractL1(source, "retry.js")
	require.Len(t, l1.Functions, 1)

	flow := e.ExtractL3(source, "retry.js", extract.FlattenFunctions(l1.Functions, l1.Classes))
	nodes := flow["retry"]
	require.NotEmpty(t, nodes)

	kinds := make([]string, len(nodes))
	for i, n := range nodes {
		kinds[i] = n.Kind
	}
	assert.Equal(t, []string{"for", "if", "return", "else-if", "throw", "try", "return"}, kinds)
}

func TestExtractL4_DefUse(t *testing.T) {
	source := `function calc(x) {
  const total = x + 1;
  const result = total * 2;
  return result;
}
`
	e := New()
	l1 := e.ExtractL1(source, "calc.js")
	flow := e.ExtractL4(source, "calc.js", extract.FlattenFunctions(l1.Functions, l1.Classes))
	edges := flow["calc"]

	type link struct {
		variable string
		def, use int
	}
	var links []link
	for _, edge := range edges {
		links = append(links, link{edge.Variable, edge.DefLine, edge.UseLine})
	}
	assert.Contains(t, links, link{"total", 2, 3})
	assert.Contains(t, links, link{"result", 3, 4})
}

func TestExtractL5_Slices(t *testing.T) {
	source := `function f() {
  const a = 1;
  const b = a + 1;
  return b;
}
`
	e := New()
	slices := e.ExtractL5(source, "f.js", nil)
	require.Len(t, slices, 1)
	assert.Equal(t, "b", slices[0].Variable)
	assert.Equal(t, 4, slices[0].Line)
	assert.Equal(t, []int{2, 3}, slices[0].BackwardLines)
	assert.Empty(t, slices[0].ForwardLines)
}

func TestCanHandleAndLanguage(t *testing.T) {
	e := New()
	assert.True(t, e.CanHandle("a.js"))
	assert.True(t, e.CanHandle("a.tsx"))
	assert.True(t, e.CanHandle("a.mjs"))
	assert.False(t, e.CanHandle("a.py"))
	assert.Equal(t, "typescript", LanguageFor("a.ts"))
	assert.Equal(t, "javascript", LanguageFor("a.cjs"))
}

func TestExtractL1_InterfaceMarkerWithoutDecorators(t *testing.T) {
	source := `export interface Opts {
  verbose: boolean;
}

export type Alias = string;
`
	e := New()
	result := e.ExtractL1(source, "opts.ts")
	require.Len(t, result.Classes, 2)
	assert.Equal(t, "Opts", result.Classes[0].Name)
	assert.Equal(t, []string{"interface"}, result.Classes[0].Decorators)
	assert.Equal(t, "Alias", result.Classes[1].Name)
	assert.Equal(t, []string{"interface"}, result.Classes[1].Decorators)
}

func TestExtractL1_DecoratedClassKeepsDecorators(t *testing.T) {
	source := `@Injectable()
export class Service {
  run() {
    return 1;
  }
}
`
	e := New()
	result := e.ExtractL1(source, "service.ts")
	require.Len(t, result.Classes, 1)
	assert.Equal(t, []string{"Injectable"}, result.Classes[0].Decorators)
}

func TestExtractL1_DeclarationAfterClassBody(t *testing.T) {
	source := `class A {
  run() {
    return 1;
  }
}
function after() {
  return 2;
}

export type Shim = number;
const tail = () => {
  return 3;
};
`
	e := New()
	result := e.ExtractL1(source, "after.ts")
	require.Len(t, result.Classes, 2)
	assert.Equal(t, "A", result.Classes[0].Name)
	assert.Equal(t, "Shim", result.Classes[1].Name)

	require.Len(t, result.Functions, 2)
	assert.Equal(t, "after", result.Functions[0].Name)
	assert.Equal(t, 6, result.Functions[0].StartLine)
	assert.Equal(t, "tail", result.Functions[1].Name)
}
