// Package codegen translates the typed syntax tree into SSA. Each function
// becomes a block graph; conditional expressions merge through block
// parameters and marked tail self-calls become jumps to a loop header, so a
// tail-recursive function runs in constant stack.
package codegen

import (
	"fmt"

	"github.com/stolas-lang/stolas/internal/ast"
	"github.com/stolas-lang/stolas/internal/diag"
	"github.com/stolas-lang/stolas/internal/ir"
	"github.com/stolas-lang/stolas/internal/lexer"
	"github.com/stolas-lang/stolas/internal/lower"
	"github.com/stolas-lang/stolas/internal/types"
)

// InitFuncName is the synthesized function that assigns module globals.
const InitFuncName = "__init"

// ExprFuncName is the synthesized wrapper the REPL compiles expressions into.
const ExprFuncName = "__expr"

type externSig struct {
	Params []ir.Type
	Return ir.Type
}

// Host routines callable from compiled code. The checker-facing signatures
// live in Builtins; the two tables must agree.
var externSigs = map[string]externSig{
	"write":  {Params: []ir.Type{ir.TypeI32}, Return: ir.TypeUnit},
	"getpid": {Params: nil, Return: ir.TypeI32},
}

// Builtins returns checker signatures for the host routines.
func Builtins() []*types.Signature {
	return []*types.Signature{
		{Name: "write", Params: []types.Type{types.I32}, Return: types.Unit},
		{Name: "getpid", Return: types.I32},
	}
}

// fnSym describes a compiled function symbol: declared parameters first,
// captured values as trailing parameters.
type fnSym struct {
	Name     string // source-level name
	Sym      string // module symbol
	Params   []ir.Type
	Captures []ast.Capture
	Return   ir.Type
}

// Codegen holds module-wide state: the symbol tables and the shared name
// counters. Per-function state lives on fnEmitter.
type Codegen struct {
	module *ir.Module
	tails  *lower.TailInfo
	diags  []diag.Diagnostic

	funcs          map[string]*fnSym
	globals        map[string]ir.Type
	globalOrder    []string
	usedExterns    map[string]bool
	externWrappers map[string]string

	nestedSeq int
}

// New creates a code generator. tails may be nil when no tail-call analysis
// was run.
func New(tails *lower.TailInfo) *Codegen {
	if tails == nil {
		tails = &lower.TailInfo{
			Funcs: make(map[string]bool),
			Sites: make(map[*ast.Call[ast.Typed]]bool),
		}
	}
	return &Codegen{
		module:         &ir.Module{},
		tails:          tails,
		funcs:          make(map[string]*fnSym),
		globals:        make(map[string]ir.Type),
		usedExterns:    make(map[string]bool),
		externWrappers: make(map[string]string),
	}
}

// Diagnostics returns the errors accumulated during compilation.
func (cg *Codegen) Diagnostics() []diag.Diagnostic {
	return cg.diags
}

// Compile translates a checked compilation unit into an SSA module.
func (cg *Codegen) Compile(file *ast.File[ast.Typed]) *ir.Module {
	// Declare all function symbols first so bodies can call forward.
	for _, stmt := range file.Stmts {
		if fn, ok := stmt.(*ast.FnStmt[ast.Typed]); ok {
			cg.declareFn(fn)
		}
	}

	// Top-level bindings become module globals assigned by the init
	// function, in declaration order.
	var lets []*ast.LetStmt[ast.Typed]
	for _, stmt := range file.Stmts {
		if let, ok := stmt.(*ast.LetStmt[ast.Typed]); ok {
			t, ok := cg.mapType(ast.TypeOf(let.Value), let.Span())
			if !ok {
				continue
			}
			cg.module.Globals = append(cg.module.Globals, ir.Global{Name: let.Name, Type: t})
			cg.globals[let.Name] = t
			cg.globalOrder = append(cg.globalOrder, let.Name)
			lets = append(lets, let)
		}
	}
	if len(lets) > 0 {
		cg.emitInit(lets)
	}

	for _, stmt := range file.Stmts {
		if fn, ok := stmt.(*ast.FnStmt[ast.Typed]); ok {
			if sym, declared := cg.funcs[fn.Name]; declared {
				cg.emitFn(sym, fn)
			}
		}
	}

	for name := range cg.usedExterns {
		cg.module.Externs = append(cg.module.Externs, name)
	}
	return cg.module
}

// CompileExpr wraps a standalone expression into the synthetic __expr
// function. The interactive session compiles each entered expression this
// way and invokes it against the module built so far.
func (cg *Codegen) CompileExpr(expr ast.Expr[ast.Typed]) *ir.Module {
	ret, _ := cg.mapType(ast.TypeOf(expr), expr.Span())

	fn, b := ir.NewFunction(ExprFuncName, nil, ret)
	cg.module.Funcs = append(cg.module.Funcs, fn)

	e := &fnEmitter{cg: cg, b: b, self: &fnSym{Name: ExprFuncName, Sym: ExprFuncName, Return: ret}}
	e.pushFrame()

	v := e.emitExpr(expr)
	if !b.Terminated() {
		if ret == ir.TypeUnit {
			v = ir.NoValue
		}
		b.Return(v)
	}

	for name := range cg.usedExterns {
		if !cg.module.HasExtern(name) {
			cg.module.Externs = append(cg.module.Externs, name)
		}
	}
	return cg.module
}

func (cg *Codegen) declareFn(fn *ast.FnStmt[ast.Typed]) {
	sym := &fnSym{Name: fn.Name, Sym: fn.Name}

	for _, p := range fn.Params {
		t, ok := cg.mapTypeExpr(p.Type)
		if !ok {
			cg.report(diag.CodeGenUnsupportedType,
				fmt.Sprintf("parameter '%s' has a type the backend cannot represent", p.Name),
				p.Span())
			return
		}
		sym.Params = append(sym.Params, t)
	}

	ret := ir.TypeUnit
	if fn.ReturnType != nil {
		t, ok := cg.mapTypeExpr(fn.ReturnType)
		if !ok {
			cg.report(diag.CodeGenUnsupportedType,
				fmt.Sprintf("function '%s' returns a type the backend cannot represent", fn.Name),
				fn.NameSpan)
			return
		}
		ret = t
	}
	sym.Return = ret

	cg.funcs[fn.Name] = sym
}

// emitInit builds the global-initializer function.
func (cg *Codegen) emitInit(lets []*ast.LetStmt[ast.Typed]) {
	fn, b := ir.NewFunction(InitFuncName, nil, ir.TypeUnit)
	cg.module.Funcs = append(cg.module.Funcs, fn)
	cg.module.InitFunc = InitFuncName

	e := &fnEmitter{cg: cg, b: b, self: &fnSym{Name: InitFuncName, Sym: InitFuncName, Return: ir.TypeUnit}}
	e.pushFrame()

	for _, let := range lets {
		v := e.emitExpr(let.Value)
		b.GlobalSet(let.Name, v)
	}
	b.Return(ir.NoValue)
}

// externWrapper materializes a host routine as an ordinary module function
// so it can travel as a first-class value. The wrapper forwards its
// parameters to the host routine and is emitted once per extern.
func (cg *Codegen) externWrapper(name string, sig externSig) string {
	if sym, ok := cg.externWrappers[name]; ok {
		return sym
	}
	sym := "__extern." + name

	params := make([]ir.Param, len(sig.Params))
	for i, t := range sig.Params {
		params[i] = ir.Param{Name: fmt.Sprintf("a%d", i), Type: t}
	}
	fn, b := ir.NewFunction(sym, params, sig.Return)
	cg.module.Funcs = append(cg.module.Funcs, fn)

	args := make([]ir.ValueID, len(fn.Params))
	for i, p := range fn.Params {
		args[i] = p.Value
	}
	v := b.CallExtern(name, sig.Return, args)
	if sig.Return == ir.TypeUnit {
		v = ir.NoValue
	}
	b.Return(v)

	cg.usedExterns[name] = true
	cg.externWrappers[name] = sym
	return sym
}

// emitFn compiles one function definition into the module. Captured values
// arrive as trailing parameters after the declared ones.
func (cg *Codegen) emitFn(sym *fnSym, decl *ast.FnStmt[ast.Typed]) {
	params := make([]ir.Param, 0, len(sym.Params)+len(sym.Captures))
	for i, t := range sym.Params {
		params = append(params, ir.Param{Name: decl.Params[i].Name, Type: t})
	}
	for _, cap := range sym.Captures {
		t, ok := cg.mapType(cap.Type, cap.Span)
		if !ok {
			return
		}
		params = append(params, ir.Param{Name: cap.Name, Type: t})
	}

	fn, b := ir.NewFunction(sym.Sym, params, sym.Return)
	cg.module.Funcs = append(cg.module.Funcs, fn)

	e := &fnEmitter{cg: cg, b: b, self: sym}
	e.pushFrame()

	// Captures bind to their entry values for the function's whole lifetime.
	for i, cap := range sym.Captures {
		pv := fn.Params[len(sym.Params)+i]
		e.define(cap.Name, slot{val: pv.Value, typ: pv.Type})
		e.capVals = append(e.capVals, pv.Value)
	}

	if cg.tails.IsTailRecursive(sym.Name) {
		// Declared parameters flow through a loop header; each tail
		// self-call re-enters it with fresh arguments.
		header := b.NewBlock("header")
		args := make([]ir.ValueID, 0, len(sym.Params))
		for i := range sym.Params {
			args = append(args, fn.Params[i].Value)
		}
		b.Jump(header, args)
		b.SetBlock(header)

		for i := range sym.Params {
			pv := b.AddParam(header, sym.Params[i])
			e.define(decl.Params[i].Name, slot{val: pv, typ: sym.Params[i]})
		}
		e.header = header
	} else {
		for i := range sym.Params {
			pv := fn.Params[i]
			e.define(decl.Params[i].Name, slot{val: pv.Value, typ: pv.Type})
		}
	}

	v := e.emitExpr(decl.Body)
	if !b.Terminated() {
		if sym.Return == ir.TypeUnit {
			v = ir.NoValue
		}
		b.Return(v)
	}
}

// mapType lowers a semantic type to a backend type. String and char values
// have no representation in the backend yet; using one is a codegen error.
func (cg *Codegen) mapType(t types.Type, span lexer.Span) (ir.Type, bool) {
	switch {
	case t == nil, types.Unit.Equal(t):
		return ir.TypeUnit, true
	case types.Bool.Equal(t):
		return ir.TypeBool, true
	case types.I32.Equal(t):
		return ir.TypeI32, true
	case types.I64.Equal(t):
		return ir.TypeI64, true
	case types.Decimal.Equal(t):
		return ir.TypeDec, true
	}
	if _, ok := t.(*types.Function); ok {
		return ir.TypeFunc, true
	}
	cg.report(diag.CodeGenUnsupportedType,
		fmt.Sprintf("type %s is not supported by the backend", t), span)
	return ir.TypeUnit, false
}

func (cg *Codegen) mapTypeExpr(t ast.TypeExpr) (ir.Type, bool) {
	named, ok := t.(*ast.NamedType)
	if !ok {
		return ir.TypeUnit, false
	}
	switch named.Name {
	case "i32", "int":
		return ir.TypeI32, true
	case "i64":
		return ir.TypeI64, true
	case "dec":
		return ir.TypeDec, true
	case "bool":
		return ir.TypeBool, true
	case "unit":
		return ir.TypeUnit, true
	default:
		return ir.TypeUnit, false
	}
}

func (cg *Codegen) report(code diag.Code, msg string, span lexer.Span) {
	d := diag.Diagnostic{
		Stage:    diag.StageCodegen,
		Severity: diag.SeverityError,
		Code:     code,
		Message:  msg,
		Span:     toDiagSpan(span),
	}
	cg.diags = append(cg.diags, d.WithPrimarySpan(toDiagSpan(span), "here"))
}

func toDiagSpan(s lexer.Span) diag.Span {
	return diag.Span{
		Source: s.Source,
		Line:   s.Line,
		Column: s.Column,
		Start:  s.Start,
		End:    s.End,
	}
}

// slot is one name binding inside a function: the SSA value plus, for nested
// function bindings, the symbol it refers to.
type slot struct {
	val ir.ValueID
	typ ir.Type
	fn  *fnSym // non-nil when the binding is a nested function
}

// frame is one lexical scope. Frames form an arena indexed by parent so
// entering a scope never copies bindings.
type frame struct {
	parent int
	names  map[string]slot
}

// fnEmitter carries the per-function emission state.
type fnEmitter struct {
	cg *Codegen
	b  *ir.Builder

	self    *fnSym
	capVals []ir.ValueID // own captures, as seen inside the body

	header *ir.Block // tail-recursion loop header, nil otherwise

	frames []frame
	cur    int

	blockSeq int
}

func (e *fnEmitter) pushFrame() {
	e.frames = append(e.frames, frame{parent: e.cur, names: make(map[string]slot)})
	e.cur = len(e.frames) - 1
}

func (e *fnEmitter) popFrame() {
	e.cur = e.frames[e.cur].parent
}

func (e *fnEmitter) define(name string, s slot) {
	e.frames[e.cur].names[name] = s
}

// lookup walks the frame chain innermost-first.
func (e *fnEmitter) lookup(name string) (slot, bool) {
	if len(e.frames) == 0 {
		return slot{}, false
	}
	i := e.cur
	for {
		if s, ok := e.frames[i].names[name]; ok {
			return s, true
		}
		if i == e.frames[i].parent {
			return slot{}, false
		}
		i = e.frames[i].parent
	}
}

// newBlock creates a uniquely named block.
func (e *fnEmitter) newBlock(base string) *ir.Block {
	e.blockSeq++
	return e.b.NewBlock(fmt.Sprintf("%s%d", base, e.blockSeq))
}
