package codegen

import (
	"fmt"

	"github.com/stolas-lang/stolas/internal/ast"
	"github.com/stolas-lang/stolas/internal/diag"
	"github.com/stolas-lang/stolas/internal/ir"
	"github.com/stolas-lang/stolas/internal/lexer"
	"github.com/stolas-lang/stolas/internal/types"
)

// emitExpr lowers one expression into the current block and returns the SSA
// value holding its result. When the expression diverts control (a tail
// self-call), the current block ends terminated and the returned value is
// NoValue.
func (e *fnEmitter) emitExpr(expr ast.Expr[ast.Typed]) ir.ValueID {
	switch x := expr.(type) {
	case *ast.Literal[ast.Typed]:
		return e.emitLiteral(x)

	case *ast.Ident[ast.Typed]:
		return e.emitIdent(x)

	case *ast.Unary[ast.Typed]:
		operand := e.emitExpr(x.Operand)
		t, _ := e.cg.mapType(ast.TypeOf(x), x.Span())
		return e.b.Neg(t, operand)

	case *ast.Binary[ast.Typed]:
		return e.emitBinary(x)

	case *ast.Group[ast.Typed]:
		return e.emitExpr(x.Inner)

	case *ast.Block[ast.Typed]:
		return e.emitBlock(x)

	case *ast.Ternary[ast.Typed]:
		return e.emitTernary(x)

	case *ast.Call[ast.Typed]:
		return e.emitCall(x)

	default:
		panic(fmt.Sprintf("codegen: unhandled expression %T", expr))
	}
}

func (e *fnEmitter) emitLiteral(x *ast.Literal[ast.Typed]) ir.ValueID {
	switch x.Kind {
	case ast.LitI32:
		return e.b.ConstI32(x.Int)
	case ast.LitI64:
		return e.b.ConstI64(x.Int)
	case ast.LitDecimal:
		return e.b.ConstDec(x.Dec)
	case ast.LitBool:
		return e.b.ConstBool(x.Bool)
	case ast.LitString, ast.LitChar:
		e.cg.report(diag.CodeGenUnsupportedType,
			"string and char values are not supported by the backend", x.Span())
		return e.b.ConstUnit()
	default:
		panic(fmt.Sprintf("codegen: unhandled literal kind %d", x.Kind))
	}
}

// emitIdent resolves a name to a value: local binding, then module global,
// then a module function or host routine materialized as a function value.
func (e *fnEmitter) emitIdent(x *ast.Ident[ast.Typed]) ir.ValueID {
	if s, ok := e.lookup(x.Name); ok {
		return s.val
	}
	if t, ok := e.cg.globals[x.Name]; ok {
		return e.b.GlobalGet(x.Name, t)
	}
	if sym, ok := e.cg.funcs[x.Name]; ok {
		return e.b.FuncAddr(sym.Sym)
	}
	if sig, ok := externSigs[x.Name]; ok {
		return e.b.FuncAddr(e.cg.externWrapper(x.Name, sig))
	}
	e.cg.report(diag.CodeGenUndefinedVariable,
		fmt.Sprintf("undefined variable '%s'", x.Name), x.Span())
	return e.b.ConstUnit()
}

func (e *fnEmitter) emitBinary(x *ast.Binary[ast.Typed]) ir.ValueID {
	left := e.emitExpr(x.Left)
	right := e.emitExpr(x.Right)

	// The operand type, not the result type, selects between the integer
	// and decimal instruction families.
	operandType, _ := e.cg.mapType(ast.TypeOf(x.Left), x.Left.Span())
	dec := operandType == ir.TypeDec

	switch x.Op {
	case lexer.PLUS:
		return e.arith(dec, ir.OpFAdd, ir.OpIAdd, operandType, left, right)
	case lexer.MINUS:
		return e.arith(dec, ir.OpFSub, ir.OpISub, operandType, left, right)
	case lexer.ASTERISK:
		return e.arith(dec, ir.OpFMul, ir.OpIMul, operandType, left, right)
	case lexer.SLASH:
		return e.arith(dec, ir.OpFDiv, ir.OpIDiv, operandType, left, right)

	case lexer.LT:
		return e.compare(operandType, ir.CondLt, left, right)
	case lexer.LE:
		return e.compare(operandType, ir.CondLe, left, right)
	case lexer.GT:
		return e.compare(operandType, ir.CondGt, left, right)
	case lexer.GE:
		return e.compare(operandType, ir.CondGe, left, right)
	case lexer.EQ:
		return e.compare(operandType, ir.CondEq, left, right)
	case lexer.NOT_EQ:
		return e.compare(operandType, ir.CondNe, left, right)

	default:
		panic(fmt.Sprintf("codegen: unhandled binary operator %s", x.Op))
	}
}

func (e *fnEmitter) arith(dec bool, fop, iop ir.Op, t ir.Type, l, r ir.ValueID) ir.ValueID {
	if dec {
		return e.b.Binary(fop, t, l, r)
	}
	return e.b.Binary(iop, t, l, r)
}

func (e *fnEmitter) compare(operandType ir.Type, cond ir.Cond, l, r ir.ValueID) ir.ValueID {
	switch operandType {
	case ir.TypeDec:
		return e.b.Compare(ir.OpFCmp, cond, l, r)
	case ir.TypeBool:
		return e.b.Compare(ir.OpBCmp, cond, l, r)
	default:
		return e.b.Compare(ir.OpICmp, cond, l, r)
	}
}

// emitBlock lowers a block expression in a fresh scope frame; the block's
// value is its tail expression, or unit.
func (e *fnEmitter) emitBlock(x *ast.Block[ast.Typed]) ir.ValueID {
	e.pushFrame()
	defer e.popFrame()

	for _, stmt := range x.Stmts {
		e.emitStmt(stmt)
		if e.b.Terminated() {
			return ir.NoValue
		}
	}

	if x.Tail != nil {
		return e.emitExpr(x.Tail)
	}
	return e.b.ConstUnit()
}

// emitTernary lowers `truthy if cond else falsy` into a diamond whose merge
// block receives the chosen value as a block parameter. An arm that ends in
// a tail self-call jumps to the loop header instead and contributes no merge
// edge.
func (e *fnEmitter) emitTernary(x *ast.Ternary[ast.Typed]) ir.ValueID {
	resultType, _ := e.cg.mapType(ast.TypeOf(x), x.Span())

	cond := e.emitExpr(x.Cond)
	thenBlk := e.newBlock("then")
	elseBlk := e.newBlock("else")
	mergeBlk := e.newBlock("merge")

	var mergeParam ir.ValueID = ir.NoValue
	if resultType != ir.TypeUnit {
		mergeParam = e.b.AddParam(mergeBlk, resultType)
	}

	e.b.Branch(cond, thenBlk, nil, elseBlk, nil)

	emitArm := func(blk *ir.Block, arm ast.Expr[ast.Typed]) {
		e.b.SetBlock(blk)
		v := e.emitExpr(arm)
		if e.b.Terminated() {
			return
		}
		if mergeParam != ir.NoValue {
			e.b.Jump(mergeBlk, []ir.ValueID{v})
		} else {
			e.b.Jump(mergeBlk, nil)
		}
	}

	emitArm(thenBlk, x.Truthy)
	emitArm(elseBlk, x.Falsy)

	e.b.SetBlock(mergeBlk)
	if mergeParam != ir.NoValue {
		return mergeParam
	}
	return e.b.ConstUnit()
}

// emitCall lowers a call. Resolution order for a named callee: local
// binding, the enclosing function itself, module function, host routine.
func (e *fnEmitter) emitCall(x *ast.Call[ast.Typed]) ir.ValueID {
	retType, _ := e.cg.mapType(ast.TypeOf(x), x.Span())

	ident, named := x.Callee.(*ast.Ident[ast.Typed])
	if !named {
		callee := e.emitExpr(x.Callee)
		return e.b.CallValue(callee, retType, e.emitArgs(x.Args))
	}

	if s, ok := e.lookup(ident.Name); ok {
		// Nested definitions are bound as closure values, so calling one by
		// name goes through the value; the closure carries its captures.
		return e.b.CallValue(s.val, retType, e.emitArgs(x.Args))
	}

	if ident.Name == e.self.Name {
		args := e.emitArgs(x.Args)
		if e.header != nil && e.cg.tails.IsTailSite(x) {
			e.b.Jump(e.header, args)
			return ir.NoValue
		}
		return e.b.Call(e.self.Sym, e.self.Return, append(args, e.capVals...))
	}

	if sym, ok := e.cg.funcs[ident.Name]; ok {
		return e.b.Call(sym.Sym, sym.Return, e.emitArgs(x.Args))
	}

	if sig, ok := externSigs[ident.Name]; ok {
		e.cg.usedExterns[ident.Name] = true
		return e.b.CallExtern(ident.Name, sig.Return, e.emitArgs(x.Args))
	}

	if t, ok := e.cg.globals[ident.Name]; ok && t == ir.TypeFunc {
		callee := e.b.GlobalGet(ident.Name, t)
		return e.b.CallValue(callee, retType, e.emitArgs(x.Args))
	}

	e.cg.report(diag.CodeGenUndefinedFunction,
		fmt.Sprintf("undefined function '%s'", ident.Name), ident.Span())
	return e.b.ConstUnit()
}

func (e *fnEmitter) emitArgs(args []ast.Expr[ast.Typed]) []ir.ValueID {
	out := make([]ir.ValueID, 0, len(args))
	for _, arg := range args {
		out = append(out, e.emitExpr(arg))
	}
	return out
}

func (e *fnEmitter) emitStmt(stmt ast.Stmt[ast.Typed]) {
	switch s := stmt.(type) {
	case *ast.ExprStmt[ast.Typed]:
		e.emitExpr(s.Expr)

	case *ast.ScopeStmt[ast.Typed]:
		e.emitBlock(s.Block)

	case *ast.LetStmt[ast.Typed]:
		v := e.emitExpr(s.Value)
		t, _ := e.cg.mapType(ast.TypeOf(s.Value), s.Value.Span())
		e.define(s.Name, slot{val: v, typ: t})

	case *ast.FnStmt[ast.Typed]:
		e.emitNestedFn(s)

	case *ast.ReturnStmt[ast.Typed]:
		v := ir.NoValue
		if s.Value != nil {
			v = e.emitExpr(s.Value)
			if e.b.Terminated() {
				return
			}
			if types.Unit.Equal(ast.TypeOf(s.Value)) {
				v = ir.NoValue
			}
		}
		e.b.Return(v)

	case *ast.IfStmt[ast.Typed]:
		e.emitIfStmt(s)

	case *ast.WhileStmt[ast.Typed]:
		e.emitWhileStmt(s)

	case *ast.StructStmt[ast.Typed], *ast.EnumStmt[ast.Typed],
		*ast.TraitStmt[ast.Typed], *ast.ImportStmt[ast.Typed],
		*ast.TypeAliasStmt[ast.Typed]:
		// Type-level declarations produce no code.

	default:
		panic(fmt.Sprintf("codegen: unhandled statement %T", stmt))
	}
}

// emitNestedFn compiles a nested definition as a separate module function.
// Captured values are materialized at the definition site and packed into a
// closure value bound to the function's name.
func (e *fnEmitter) emitNestedFn(s *ast.FnStmt[ast.Typed]) {
	e.cg.nestedSeq++
	sym := &fnSym{
		Name:     s.Name,
		Sym:      fmt.Sprintf("%s.%s.%d", e.self.Sym, s.Name, e.cg.nestedSeq),
		Captures: s.Captures,
	}

	for _, p := range s.Params {
		t, ok := e.cg.mapTypeExpr(p.Type)
		if !ok {
			e.cg.report(diag.CodeGenUnsupportedType,
				fmt.Sprintf("parameter '%s' has a type the backend cannot represent", p.Name),
				p.Span())
			return
		}
		sym.Params = append(sym.Params, t)
	}
	sym.Return = ir.TypeUnit
	if s.ReturnType != nil {
		t, ok := e.cg.mapTypeExpr(s.ReturnType)
		if !ok {
			e.cg.report(diag.CodeGenUnsupportedType,
				fmt.Sprintf("function '%s' returns a type the backend cannot represent", s.Name),
				s.NameSpan)
			return
		}
		sym.Return = t
	}

	e.cg.emitFn(sym, s)

	// Captures bind by value here, at the definition site.
	var captured []ir.ValueID
	for _, cap := range s.Captures {
		if cs, ok := e.lookup(cap.Name); ok {
			captured = append(captured, cs.val)
			continue
		}
		e.cg.report(diag.CodeGenUndefinedVariable,
			fmt.Sprintf("captured variable '%s' is not in scope", cap.Name), cap.Span)
		captured = append(captured, e.b.ConstUnit())
	}

	var v ir.ValueID
	if len(captured) > 0 {
		v = e.b.MakeClosure(sym.Sym, captured)
	} else {
		v = e.b.FuncAddr(sym.Sym)
	}
	e.define(s.Name, slot{val: v, typ: ir.TypeFunc, fn: sym})
}

func (e *fnEmitter) emitIfStmt(s *ast.IfStmt[ast.Typed]) {
	cond := e.emitExpr(s.Cond)

	thenBlk := e.newBlock("then")
	joinBlk := e.newBlock("join")
	elseBlk := joinBlk
	if s.Else != nil {
		elseBlk = e.newBlock("else")
	}

	e.b.Branch(cond, thenBlk, nil, elseBlk, nil)

	e.b.SetBlock(thenBlk)
	e.emitBlock(s.Then)
	e.b.Jump(joinBlk, nil)

	if s.Else != nil {
		e.b.SetBlock(elseBlk)
		e.emitBlock(s.Else)
		e.b.Jump(joinBlk, nil)
	}

	e.b.SetBlock(joinBlk)
}

func (e *fnEmitter) emitWhileStmt(s *ast.WhileStmt[ast.Typed]) {
	condBlk := e.newBlock("loop")
	bodyBlk := e.newBlock("body")
	exitBlk := e.newBlock("exit")

	e.b.Jump(condBlk, nil)

	e.b.SetBlock(condBlk)
	cond := e.emitExpr(s.Cond)
	e.b.Branch(cond, bodyBlk, nil, exitBlk, nil)

	e.b.SetBlock(bodyBlk)
	e.emitBlock(s.Body)
	e.b.Jump(condBlk, nil)

	e.b.SetBlock(exitBlk)
}
