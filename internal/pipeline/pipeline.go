// Package pipeline drives the compiler stages in order: lex and parse, type
// check, tail-call analysis, code generation. Each stage short-circuits on
// errors; diagnostics from all completed stages are returned together.
package pipeline

import (
	"github.com/stolas-lang/stolas/internal/ast"
	"github.com/stolas-lang/stolas/internal/checker"
	"github.com/stolas-lang/stolas/internal/codegen"
	"github.com/stolas-lang/stolas/internal/diag"
	"github.com/stolas-lang/stolas/internal/ir"
	"github.com/stolas-lang/stolas/internal/lower"
	"github.com/stolas-lang/stolas/internal/parser"
	"github.com/stolas-lang/stolas/internal/types"
)

// Version is the compiler version checked against manifest constraints.
const Version = "0.3.0"

// Pipeline compiles Stolas source into SSA modules. It owns the source map
// that diagnostics formatters read snippets from.
type Pipeline struct {
	sources *diag.SourceMap
}

// New creates a pipeline with an empty source map.
func New() *Pipeline {
	return &Pipeline{sources: diag.NewSourceMap()}
}

// Sources exposes the registered source texts for diagnostic rendering.
func (p *Pipeline) Sources() *diag.SourceMap {
	return p.sources
}

// Compile compiles a single source text registered under name.
func (p *Pipeline) Compile(name, src string) (*ir.Module, []diag.Diagnostic) {
	p.sources.Add(name, src)

	file, diags := p.parse(name, src)
	if diag.HasErrors(diags) {
		return nil, diags
	}
	return p.compileFile(file, diags)
}

// parse runs lexing and parsing over one source.
func (p *Pipeline) parse(name, src string) (*ast.File[ast.Untyped], []diag.Diagnostic) {
	ps := parser.New(src, parser.WithSource(name))
	file := ps.Parse()
	return file, ps.Diagnostics()
}

// compileFile runs the back half of the pipeline over a parsed unit.
func (p *Pipeline) compileFile(file *ast.File[ast.Untyped], diags []diag.Diagnostic) (*ir.Module, []diag.Diagnostic) {
	env := NewGlobalEnv()
	chk := checker.New(env)
	typed := chk.Check(file)

	diags = append(diags, chk.Diagnostics()...)
	if diag.HasErrors(diags) {
		return nil, diags
	}

	tails := lower.Analyze(typed)

	cg := codegen.New(tails)
	module := cg.Compile(typed)

	diags = append(diags, cg.Diagnostics()...)
	if diag.HasErrors(diags) {
		return nil, diags
	}
	return module, diags
}

// NewGlobalEnv creates a root environment with the host routines registered.
func NewGlobalEnv() *types.Environment {
	env := types.NewEnvironment()
	for _, sig := range codegen.Builtins() {
		env.DefineFunction(sig)
	}
	return env
}
