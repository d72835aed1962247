// Package checker resolves names and types over the untyped syntax tree and
// produces the typed tree consumed by lowering and code generation. It is a
// single top-down walk over a scope chain: one environment frame per block or
// function body, innermost-first lookup, shadowing by construction.
package checker

import (
	"fmt"

	"github.com/stolas-lang/stolas/internal/ast"
	"github.com/stolas-lang/stolas/internal/diag"
	"github.com/stolas-lang/stolas/internal/lexer"
	"github.com/stolas-lang/stolas/internal/types"
)

// fnContext tracks the function body currently being checked: its root
// environment frame (references resolving past it are captures), its declared
// return type, and the definition the captures attach to.
type fnContext struct {
	root     *types.Environment
	ret      types.Type
	captures *[]ast.Capture
	seen     map[string]bool
}

// Checker converts File[Untyped] to File[Typed], accumulating diagnostics
// instead of stopping at the first error.
type Checker struct {
	global *types.Environment
	named  map[string]types.Type

	fnStack []*fnContext
	diags   []diag.Diagnostic
}

// New creates a checker over the provided global environment. Callers share
// one environment across files of a program and across REPL entries.
func New(global *types.Environment) *Checker {
	return &Checker{
		global: global,
		named:  make(map[string]types.Type),
	}
}

// Diagnostics returns all errors accumulated so far.
func (c *Checker) Diagnostics() []diag.Diagnostic {
	return c.diags
}

// Check type-checks a compilation unit. Function signatures are registered
// before any body is checked so definition order never matters and recursion
// needs no forward declarations.
func (c *Checker) Check(file *ast.File[ast.Untyped]) *ast.File[ast.Typed] {
	out := ast.NewFile[ast.Typed](file.Span())

	c.registerDecls(file)

	for _, stmt := range file.Stmts {
		if checked := c.checkStmt(stmt, c.global); checked != nil {
			out.Stmts = append(out.Stmts, checked)
		}
	}
	return out
}

// CheckExpr type-checks a standalone expression against the global scope.
func (c *Checker) CheckExpr(expr ast.Expr[ast.Untyped]) ast.Expr[ast.Typed] {
	return c.checkExpr(expr, c.global)
}

// registerDecls installs type declarations and function signatures into the
// global scope ahead of body checking.
func (c *Checker) registerDecls(file *ast.File[ast.Untyped]) {
	// Named types first: signatures may reference them.
	for _, stmt := range file.Stmts {
		switch s := stmt.(type) {
		case *ast.StructStmt[ast.Untyped]:
			fields := make([]types.Field, 0, len(s.Fields))
			for _, f := range s.Fields {
				fields = append(fields, types.Field{Name: f.Name, Type: c.resolveType(f.Type)})
			}
			c.named[s.Name] = &types.Struct{Name: s.Name, Fields: fields}
		case *ast.EnumStmt[ast.Untyped]:
			c.named[s.Name] = &types.Symbol{Name: s.Name}
		case *ast.TraitStmt[ast.Untyped]:
			c.named[s.Name] = &types.Symbol{Name: s.Name}
		case *ast.TypeAliasStmt[ast.Untyped]:
			c.named[s.Name] = c.resolveType(s.Target)
		}
	}

	for _, stmt := range file.Stmts {
		fn, ok := stmt.(*ast.FnStmt[ast.Untyped])
		if !ok {
			continue
		}
		c.registerFn(fn, c.global)
	}
}

func (c *Checker) registerFn(fn *ast.FnStmt[ast.Untyped], env *types.Environment) *types.Signature {
	sig := &types.Signature{
		Name:   fn.Name,
		Return: c.resolveReturnType(fn.ReturnType),
		Span:   fn.NameSpan,
	}
	for _, p := range fn.Params {
		sig.Params = append(sig.Params, c.resolveType(p.Type))
	}

	if prior, ok := env.DefineFunction(sig); !ok {
		c.report(diag.CodeTypeDuplicateFunction,
			fmt.Sprintf("function '%s' is defined more than once", fn.Name),
			fn.NameSpan, "redefined here").
			WithSecondarySpanTo(c, prior.Span, "first defined here")
		return prior
	}
	return sig
}

func (c *Checker) checkStmt(stmt ast.Stmt[ast.Untyped], env *types.Environment) ast.Stmt[ast.Typed] {
	switch s := stmt.(type) {
	case *ast.ExprStmt[ast.Untyped]:
		expr := c.checkExpr(s.Expr, env)
		return ast.NewExprStmt(expr, s.Span())

	case *ast.ScopeStmt[ast.Untyped]:
		block := c.checkBlock(s.Block, env.Child())
		return ast.NewScopeStmt(block, s.Span())

	case *ast.LetStmt[ast.Untyped]:
		return c.checkLetStmt(s, env)

	case *ast.FnStmt[ast.Untyped]:
		return c.checkFnStmt(s, env)

	case *ast.ReturnStmt[ast.Untyped]:
		return c.checkReturnStmt(s, env)

	case *ast.IfStmt[ast.Untyped]:
		cond := c.checkCondition(s.Cond, env)
		then := c.checkBlock(s.Then, env.Child())
		var els *ast.Block[ast.Typed]
		if s.Else != nil {
			els = c.checkBlock(s.Else, env.Child())
		}
		return ast.NewIfStmt(cond, then, els, s.Span())

	case *ast.WhileStmt[ast.Untyped]:
		cond := c.checkCondition(s.Cond, env)
		body := c.checkBlock(s.Body, env.Child())
		return ast.NewWhileStmt(cond, body, s.Span())

	case *ast.StructStmt[ast.Untyped]:
		return ast.NewStructStmt[ast.Typed](s.Vis, s.Name, s.NameSpan, s.Fields, s.Span())

	case *ast.EnumStmt[ast.Untyped]:
		return ast.NewEnumStmt[ast.Typed](s.Vis, s.Name, s.NameSpan, s.Variants, s.Span())

	case *ast.TraitStmt[ast.Untyped]:
		return ast.NewTraitStmt[ast.Typed](s.Name, s.NameSpan, s.Methods, s.Span())

	case *ast.ImportStmt[ast.Untyped]:
		// Module wiring happens before checking; the statement is kept so
		// printers and spans survive the phase change.
		return ast.NewImportStmt[ast.Typed](s.Path, s.PathSpan, s.Span())

	case *ast.TypeAliasStmt[ast.Untyped]:
		if _, ok := c.named[s.Name]; !ok {
			c.named[s.Name] = c.resolveType(s.Target)
		}
		return ast.NewTypeAliasStmt[ast.Typed](s.Vis, s.Name, s.NameSpan, s.Target, s.Span())

	default:
		panic(fmt.Sprintf("checker: unhandled statement %T", stmt))
	}
}

func (c *Checker) checkLetStmt(s *ast.LetStmt[ast.Untyped], env *types.Environment) ast.Stmt[ast.Typed] {
	value := c.checkExpr(s.Value, env)
	valueType := ast.TypeOf(value)

	declared := valueType
	if s.Type != nil {
		declared = c.resolveType(s.Type)
		if !declared.Equal(valueType) {
			c.report(diag.CodeTypeMismatchedTypes,
				fmt.Sprintf("cannot bind a value of type %s to '%s' declared as %s",
					valueType, s.Name, declared),
				value.Span(), "this has type "+valueType.String()).
				WithSecondarySpanTo(c, s.Type.Span(), "declared "+declared.String()+" here")
		}
	}

	// The binding is inserted after the initializer is checked, so the
	// initializer still sees any shadowed outer binding of the same name.
	env.DefineVariable(s.Name, declared, s.NameSpan)

	return ast.NewLetStmt(s.Vis, s.Name, s.NameSpan, s.Type, value, s.Span())
}

func (c *Checker) checkFnStmt(s *ast.FnStmt[ast.Untyped], env *types.Environment) ast.Stmt[ast.Typed] {
	sig, registered := env.LookupFunction(s.Name)
	if !registered || sig.Span != s.NameSpan {
		// Nested functions are registered lazily, when their definition is
		// reached; top-level ones were pre-registered.
		sig = c.registerFn(s, env)
	}

	paramTypes := sig.Params
	if len(paramTypes) != len(s.Params) {
		// sig belongs to a clashing earlier definition; fall back to this
		// definition's own annotations so the body still checks.
		paramTypes = make([]types.Type, 0, len(s.Params))
		for _, p := range s.Params {
			paramTypes = append(paramTypes, c.resolveType(p.Type))
		}
	}

	bodyEnv := env.Child()
	for i, p := range s.Params {
		bodyEnv.DefineVariable(p.Name, paramTypes[i], p.NameSpan)
	}

	out := ast.NewFnStmt[ast.Typed](s.Vis, s.Name, s.NameSpan, s.Params, s.ReturnType, nil, s.Span())

	ctx := &fnContext{
		root:     bodyEnv,
		ret:      sig.Return,
		captures: &out.Captures,
		seen:     make(map[string]bool),
	}
	c.fnStack = append(c.fnStack, ctx)
	body := c.checkExpr(s.Body, bodyEnv)
	c.fnStack = c.fnStack[:len(c.fnStack)-1]

	bodyType := ast.TypeOf(body)
	if !types.Unit.Equal(sig.Return) && !bodyType.Equal(sig.Return) && !alwaysReturns(body) {
		c.report(diag.CodeTypeMismatchedTypes,
			fmt.Sprintf("function '%s' returns %s but its body has type %s",
				s.Name, sig.Return, bodyType),
			body.Span(), "this has type "+bodyType.String()).
			WithSecondarySpanTo(c, s.NameSpan, "declared to return "+sig.Return.String())
	}

	out.Body = body
	return out
}

// alwaysReturns reports whether the body cannot complete normally: every
// path through it leaves via a 'return' statement. Such a body needs no tail
// expression to satisfy the declared return type; checkReturnStmt has already
// validated each return value.
func alwaysReturns(body ast.Expr[ast.Typed]) bool {
	block, ok := body.(*ast.Block[ast.Typed])
	if !ok {
		return false
	}
	return blockReturns(block)
}

func blockReturns(b *ast.Block[ast.Typed]) bool {
	for _, stmt := range b.Stmts {
		switch s := stmt.(type) {
		case *ast.ReturnStmt[ast.Typed]:
			return true
		case *ast.ScopeStmt[ast.Typed]:
			if blockReturns(s.Block) {
				return true
			}
		case *ast.IfStmt[ast.Typed]:
			if s.Else != nil && blockReturns(s.Then) && blockReturns(s.Else) {
				return true
			}
		}
	}
	return false
}

func (c *Checker) checkReturnStmt(s *ast.ReturnStmt[ast.Untyped], env *types.Environment) ast.Stmt[ast.Typed] {
	if len(c.fnStack) == 0 {
		c.report(diag.CodeTypeReturnOutsideFn,
			"'return' outside of a function body", s.Span(), "")
		var value ast.Expr[ast.Typed]
		if s.Value != nil {
			value = c.checkExpr(s.Value, env)
		}
		return ast.NewReturnStmt(value, s.Span())
	}

	ctx := c.fnStack[len(c.fnStack)-1]

	var value ast.Expr[ast.Typed]
	valueType := types.Type(types.Unit)
	if s.Value != nil {
		value = c.checkExpr(s.Value, env)
		valueType = ast.TypeOf(value)
	}

	if !valueType.Equal(ctx.ret) {
		c.report(diag.CodeTypeMismatchedTypes,
			fmt.Sprintf("return value has type %s but the function returns %s",
				valueType, ctx.ret),
			s.Span(), "this has type "+valueType.String())
	}

	return ast.NewReturnStmt(value, s.Span())
}

func (c *Checker) checkBlock(block *ast.Block[ast.Untyped], env *types.Environment) *ast.Block[ast.Typed] {
	var stmts []ast.Stmt[ast.Typed]
	for _, stmt := range block.Stmts {
		if checked := c.checkStmt(stmt, env); checked != nil {
			stmts = append(stmts, checked)
		}
	}

	var tail ast.Expr[ast.Typed]
	blockType := types.Type(types.Unit)
	if block.Tail != nil {
		tail = c.checkExpr(block.Tail, env)
		blockType = ast.TypeOf(tail)
	}

	return ast.NewBlock(stmts, tail, ast.Typed{Type: blockType}, block.Span())
}

func (c *Checker) checkExpr(expr ast.Expr[ast.Untyped], env *types.Environment) ast.Expr[ast.Typed] {
	switch e := expr.(type) {
	case *ast.Literal[ast.Untyped]:
		return c.checkLiteral(e)

	case *ast.Ident[ast.Untyped]:
		return c.checkIdent(e, env)

	case *ast.Unary[ast.Untyped]:
		operand := c.checkExpr(e.Operand, env)
		t := ast.TypeOf(operand)
		if !types.IsNumeric(t) {
			c.report(diag.CodeTypeMismatchedTypes,
				fmt.Sprintf("cannot negate a value of type %s", t),
				operand.Span(), "this has type "+t.String())
		}
		return ast.NewUnary(e.Op, operand, ast.Typed{Type: t}, e.Span())

	case *ast.Binary[ast.Untyped]:
		return c.checkBinary(e, env)

	case *ast.Group[ast.Untyped]:
		inner := c.checkExpr(e.Inner, env)
		return ast.NewGroup(inner, ast.Typed{Type: ast.TypeOf(inner)}, e.Span())

	case *ast.Block[ast.Untyped]:
		return c.checkBlock(e, env.Child())

	case *ast.Ternary[ast.Untyped]:
		return c.checkTernary(e, env)

	case *ast.Call[ast.Untyped]:
		return c.checkCall(e, env)

	default:
		panic(fmt.Sprintf("checker: unhandled expression %T", expr))
	}
}

func (c *Checker) checkLiteral(e *ast.Literal[ast.Untyped]) ast.Expr[ast.Typed] {
	var t types.Type
	switch e.Kind {
	case ast.LitI32:
		t = types.I32
	case ast.LitI64:
		t = types.I64
	case ast.LitDecimal:
		t = types.Decimal
	case ast.LitBool:
		t = types.Bool
	case ast.LitString:
		t = types.String
	case ast.LitChar:
		t = types.Char
	default:
		panic(fmt.Sprintf("checker: unhandled literal kind %d", e.Kind))
	}

	out := ast.NewLiteral(e.Kind, ast.Typed{Type: t}, e.Span())
	out.Int = e.Int
	out.Dec = e.Dec
	out.Bool = e.Bool
	out.Text = e.Text
	return out
}

// checkIdent resolves an identifier: variables shadow functions, and a
// variable owned by a frame outside the current function body is recorded as
// a capture on the enclosing definition.
func (c *Checker) checkIdent(e *ast.Ident[ast.Untyped], env *types.Environment) ast.Expr[ast.Typed] {
	if t, owner, ok := env.LookupVariableEnv(e.Name); ok {
		c.noteCapture(e, t, owner, env)
		return ast.NewIdent(e.Name, ast.Typed{Type: t}, e.Span())
	}

	if sig, ok := env.LookupFunction(e.Name); ok {
		return ast.NewIdent(e.Name, ast.Typed{Type: sig.Func()}, e.Span())
	}

	c.report(diag.CodeTypeUndefinedIdentifier,
		fmt.Sprintf("undefined identifier '%s'", e.Name),
		e.Span(), "not found in this scope")
	return ast.NewIdent(e.Name, ast.Typed{Type: types.Unit}, e.Span())
}

// noteCapture records e as a capture when its binding lives outside the
// current function body but is not a global. The binding is recorded on every
// function between the reference and the owning frame, so each level threads
// the value through to the next. Captures bind by value at the definition
// site and keep the order of first reference.
func (c *Checker) noteCapture(e *ast.Ident[ast.Untyped], t types.Type, owner, env *types.Environment) {
	if len(c.fnStack) == 0 || owner == c.global {
		return
	}

	// Walk from the reference toward the owning frame; every function-body
	// root crossed on the way marks a function that needs the capture.
	idx := len(c.fnStack) - 1
	var crossed []*fnContext
	for frame := env; frame != nil; frame = frame.Parent() {
		if frame == owner {
			break
		}
		if idx >= 0 && frame == c.fnStack[idx].root {
			crossed = append(crossed, c.fnStack[idx])
			idx--
		}
	}

	for _, ctx := range crossed {
		if ctx.seen[e.Name] {
			continue
		}
		ctx.seen[e.Name] = true
		*ctx.captures = append(*ctx.captures, ast.Capture{Name: e.Name, Type: t, Span: e.Span()})
	}
}

func (c *Checker) checkBinary(e *ast.Binary[ast.Untyped], env *types.Environment) ast.Expr[ast.Typed] {
	left := c.checkExpr(e.Left, env)
	right := c.checkExpr(e.Right, env)
	lt, rt := ast.TypeOf(left), ast.TypeOf(right)

	mismatch := func() {
		c.report(diag.CodeTypeMismatchedTypes,
			fmt.Sprintf("operator '%s' cannot combine %s and %s", e.Op, lt, rt),
			left.Span(), "this has type "+lt.String()).
			WithSecondarySpanTo(c, right.Span(), "this has type "+rt.String())
	}

	var t types.Type
	switch e.Op {
	case lexer.PLUS, lexer.MINUS, lexer.ASTERISK, lexer.SLASH:
		if !lt.Equal(rt) || !types.IsNumeric(lt) {
			mismatch()
		}
		t = lt

	case lexer.LT, lexer.LE, lexer.GT, lexer.GE:
		if !lt.Equal(rt) || !types.IsNumeric(lt) {
			mismatch()
		}
		t = types.Bool

	case lexer.EQ, lexer.NOT_EQ:
		if !lt.Equal(rt) {
			mismatch()
		}
		t = types.Bool

	default:
		panic(fmt.Sprintf("checker: unhandled binary operator %s", e.Op))
	}

	return ast.NewBinary(e.Op, left, right, ast.Typed{Type: t}, e.Span())
}

func (c *Checker) checkTernary(e *ast.Ternary[ast.Untyped], env *types.Environment) ast.Expr[ast.Typed] {
	truthy := c.checkExpr(e.Truthy, env)
	cond := c.checkCondition(e.Cond, env)
	falsy := c.checkExpr(e.Falsy, env)

	tt, ft := ast.TypeOf(truthy), ast.TypeOf(falsy)
	if !tt.Equal(ft) {
		c.report(diag.CodeTypeMismatchedTypes,
			fmt.Sprintf("conditional branches disagree: %s versus %s", tt, ft),
			truthy.Span(), "this has type "+tt.String()).
			WithSecondarySpanTo(c, falsy.Span(), "this has type "+ft.String())
	}

	return ast.NewTernary(truthy, cond, falsy, ast.Typed{Type: tt}, e.Span())
}

func (c *Checker) checkCondition(expr ast.Expr[ast.Untyped], env *types.Environment) ast.Expr[ast.Typed] {
	cond := c.checkExpr(expr, env)
	if t := ast.TypeOf(cond); !types.Bool.Equal(t) {
		c.report(diag.CodeTypeConditionNotBool,
			fmt.Sprintf("condition must be bool, found %s", t),
			cond.Span(), "this has type "+t.String())
	}
	return cond
}

func (c *Checker) checkCall(e *ast.Call[ast.Untyped], env *types.Environment) ast.Expr[ast.Typed] {
	callee := c.checkExpr(e.Callee, env)

	var args []ast.Expr[ast.Typed]
	for _, arg := range e.Args {
		args = append(args, c.checkExpr(arg, env))
	}

	fn, ok := ast.TypeOf(callee).(*types.Function)
	if !ok {
		c.report(diag.CodeTypeNotCallable,
			fmt.Sprintf("type %s is not callable", ast.TypeOf(callee)),
			callee.Span(), "cannot be called")
		return ast.NewCall(callee, args, ast.Typed{Type: types.Unit}, e.Span())
	}

	if len(args) != len(fn.Params) {
		c.report(diag.CodeTypeWrongArgumentCount,
			fmt.Sprintf("call expects %d argument(s), found %d", len(fn.Params), len(args)),
			e.Span(), "")
	} else {
		for i, arg := range args {
			at := ast.TypeOf(arg)
			if !at.Equal(fn.Params[i]) {
				c.report(diag.CodeTypeMismatchedTypes,
					fmt.Sprintf("argument %d has type %s, expected %s", i+1, at, fn.Params[i]),
					arg.Span(), "this has type "+at.String())
			}
		}
	}

	return ast.NewCall(callee, args, ast.Typed{Type: fn.Return}, e.Span())
}

// resolveReturnType maps an absent annotation to unit.
func (c *Checker) resolveReturnType(t ast.TypeExpr) types.Type {
	if t == nil {
		return types.Unit
	}
	return c.resolveType(t)
}

// resolveType maps a source annotation to a semantic type. 'int' is accepted
// as an alias for i32.
func (c *Checker) resolveType(t ast.TypeExpr) types.Type {
	named, ok := t.(*ast.NamedType)
	if !ok {
		panic(fmt.Sprintf("checker: unhandled type annotation %T", t))
	}

	switch named.Name {
	case "i32", "int":
		return types.I32
	case "i64":
		return types.I64
	case "dec":
		return types.Decimal
	case "bool":
		return types.Bool
	case "str":
		return types.String
	case "char":
		return types.Char
	case "unit":
		return types.Unit
	}

	if resolved, ok := c.named[named.Name]; ok && resolved != nil {
		return resolved
	}

	c.report(diag.CodeTypeUnknownType,
		fmt.Sprintf("unknown type '%s'", named.Name),
		named.Span(), "not a known type")
	return types.Unit
}

// report appends a typecheck diagnostic and returns its index wrapper so the
// caller can chain a secondary span onto the entry that was just stored.
func (c *Checker) report(code diag.Code, msg string, span lexer.Span, label string) reported {
	d := diag.Diagnostic{
		Stage:    diag.StageTypeCheck,
		Severity: diag.SeverityError,
		Code:     code,
		Message:  msg,
		Span:     toDiagSpan(span),
	}
	if label == "" {
		label = "here"
	}
	d = d.WithPrimarySpan(toDiagSpan(span), label)

	c.diags = append(c.diags, d)
	return reported{index: len(c.diags) - 1}
}

type reported struct {
	index int
}

// WithSecondarySpanTo attaches a secondary span to the stored diagnostic.
func (r reported) WithSecondarySpanTo(c *Checker, span lexer.Span, label string) reported {
	if span == (lexer.Span{}) {
		return r
	}
	c.diags[r.index] = c.diags[r.index].WithSecondarySpan(toDiagSpan(span), label)
	return r
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
