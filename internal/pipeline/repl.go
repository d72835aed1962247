package pipeline

import (
	"fmt"
	"io"
	"strings"

	"github.com/stolas-lang/stolas/internal/ast"
	"github.com/stolas-lang/stolas/internal/checker"
	"github.com/stolas-lang/stolas/internal/codegen"
	"github.com/stolas-lang/stolas/internal/diag"
	"github.com/stolas-lang/stolas/internal/lexer"
	"github.com/stolas-lang/stolas/internal/lower"
	"github.com/stolas-lang/stolas/internal/parser"
	"github.com/stolas-lang/stolas/internal/run"
	"github.com/stolas-lang/stolas/internal/types"
)

// ReplSession evaluates lines interactively. Declarations accumulate;
// expressions are compiled against everything declared so far and executed
// immediately. Each entry recompiles the accumulated program, so a rejected
// line never poisons the session.
type ReplSession struct {
	out     io.Writer
	sources *diag.SourceMap

	decls []replDecl
	seq   int
}

type replDecl struct {
	name string
	src  string
}

// NewReplSession creates a session writing program output to out.
func NewReplSession(out io.Writer) *ReplSession {
	return &ReplSession{
		out:     out,
		sources: diag.NewSourceMap(),
	}
}

// Sources exposes entered texts for diagnostic rendering.
func (r *ReplSession) Sources() *diag.SourceMap {
	return r.sources
}

// Eval processes one line. The returned string is the value to echo; it is
// empty for declarations and unit-valued expressions.
func (r *ReplSession) Eval(line string) (string, []diag.Diagnostic, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil, nil
	}

	r.seq++
	name := fmt.Sprintf("<repl:%d>", r.seq)
	r.sources.Add(name, line)

	if isDeclLine(line) {
		return r.evalDecl(name, line)
	}
	return r.evalExpr(name, line)
}

func isDeclLine(line string) bool {
	lx := lexer.New(line)
	switch lx.NextToken().Type {
	case lexer.FN, lexer.LET, lexer.PUB, lexer.STRUCT, lexer.ENUM,
		lexer.TRAIT, lexer.IMPORT, lexer.TYPE:
		return true
	default:
		return false
	}
}

// evalDecl validates the accumulated program plus the new declaration and
// keeps the declaration only if everything still compiles.
func (r *ReplSession) evalDecl(name, line string) (string, []diag.Diagnostic, error) {
	candidate := append(append([]replDecl{}, r.decls...), replDecl{name: name, src: line})

	_, _, _, diags := r.compileDecls(candidate)
	if diag.HasErrors(diags) {
		return "", diags, nil
	}

	r.decls = candidate
	return "", diags, nil
}

// evalExpr compiles the accumulated declarations, then the expression as the
// synthetic entry function, and runs it.
func (r *ReplSession) evalExpr(name, line string) (string, []diag.Diagnostic, error) {
	chk, cg, typedFile, diags := r.compileDecls(r.decls)
	if diag.HasErrors(diags) {
		return "", diags, nil
	}

	ps := parser.New(line, parser.WithSource(name))
	expr := ps.ParseExpression()
	diags = append(diags, ps.Diagnostics()...)
	if diag.HasErrors(diags) || expr == nil {
		return "", diags, nil
	}

	typedExpr := chk.CheckExpr(expr)
	diags = append(diags, chk.Diagnostics()...)
	if diag.HasErrors(diags) {
		return "", diags, nil
	}

	module := cg.Compile(typedFile)
	module = cg.CompileExpr(typedExpr)
	diags = append(diags, cg.Diagnostics()...)
	if diag.HasErrors(diags) {
		return "", diags, nil
	}

	session := run.NewSession(module, run.WithOutput(r.out))
	val, err := session.Call(codegen.ExprFuncName, nil)
	if err != nil {
		return "", diags, err
	}

	if types.Unit.Equal(ast.TypeOf(typedExpr)) {
		return "", diags, nil
	}
	return val.String(), diags, nil
}

// compileDecls parses and checks the accumulated declarations, returning the
// checker and code generator so the caller can push one more expression
// through them.
func (r *ReplSession) compileDecls(decls []replDecl) (*checker.Checker, *codegen.Codegen, *ast.File[ast.Typed], []diag.Diagnostic) {
	var diags []diag.Diagnostic

	combined := ast.NewFile[ast.Untyped](lexer.Span{})
	for _, d := range decls {
		ps := parser.New(d.src, parser.WithSource(d.name))
		file := ps.Parse()
		diags = append(diags, ps.Diagnostics()...)
		combined.Stmts = append(combined.Stmts, file.Stmts...)
	}
	if diag.HasErrors(diags) {
		return nil, nil, nil, diags
	}

	chk := checker.New(NewGlobalEnv())
	typed := chk.Check(combined)
	diags = append(diags, chk.Diagnostics()...)
	if diag.HasErrors(diags) {
		return nil, nil, nil, diags
	}

	cg := codegen.New(lower.Analyze(typed))
	return chk, cg, typed, diags
}
