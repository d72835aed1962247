// Package lower runs AST-level analyses between type checking and code
// generation. Its one pass today finds direct self-recursive calls in tail
// position so codegen can turn them into jumps instead of growing the stack.
package lower

import (
	"github.com/stolas-lang/stolas/internal/ast"
)

// TailInfo is the side table produced by Analyze. It never mutates the tree:
// codegen consults Funcs to decide whether a function needs a loop header and
// Sites to decide whether a particular call becomes a jump.
type TailInfo struct {
	// Funcs maps a function name to true when at least one of its calls is a
	// direct self-call in tail position.
	Funcs map[string]bool

	// Sites marks the exact call nodes that are self-calls in tail position.
	Sites map[*ast.Call[ast.Typed]]bool
}

// IsTailRecursive reports whether the named function has any tail self-call.
func (t *TailInfo) IsTailRecursive(name string) bool {
	return t.Funcs[name]
}

// IsTailSite reports whether the call node is a tail self-call.
func (t *TailInfo) IsTailSite(call *ast.Call[ast.Typed]) bool {
	return t.Sites[call]
}

// Analyze scans every function in the file, including nested definitions,
// and records its tail self-call sites.
func Analyze(file *ast.File[ast.Typed]) *TailInfo {
	info := &TailInfo{
		Funcs: make(map[string]bool),
		Sites: make(map[*ast.Call[ast.Typed]]bool),
	}
	for _, stmt := range file.Stmts {
		if fn, ok := stmt.(*ast.FnStmt[ast.Typed]); ok {
			info.analyzeFn(fn)
		}
	}
	return info
}

// AnalyzeFn scans a single function definition. The REPL uses this entry
// point for definitions entered interactively.
func AnalyzeFn(fn *ast.FnStmt[ast.Typed]) *TailInfo {
	info := &TailInfo{
		Funcs: make(map[string]bool),
		Sites: make(map[*ast.Call[ast.Typed]]bool),
	}
	info.analyzeFn(fn)
	return info
}

func (t *TailInfo) analyzeFn(fn *ast.FnStmt[ast.Typed]) {
	// The body expression is in tail position, and so is the value of every
	// return statement in the body (a return leaves the function directly).
	t.markTail(fn.Body, fn)
	t.scanStmts(fn.Body, fn)
}

// markTail walks an expression known to be in tail position and records
// qualifying self-calls. Tail position distributes into both arms of a
// conditional expression and into a block's trailing expression, but never
// into operands, arguments or conditions.
func (t *TailInfo) markTail(expr ast.Expr[ast.Typed], fn *ast.FnStmt[ast.Typed]) {
	switch e := expr.(type) {
	case *ast.Call[ast.Typed]:
		if isSelfCall(e, fn) {
			t.Funcs[fn.Name] = true
			t.Sites[e] = true
		}
	case *ast.Ternary[ast.Typed]:
		t.markTail(e.Truthy, fn)
		t.markTail(e.Falsy, fn)
	case *ast.Group[ast.Typed]:
		t.markTail(e.Inner, fn)
	case *ast.Block[ast.Typed]:
		if e.Tail != nil {
			t.markTail(e.Tail, fn)
		}
	}
}

// scanStmts finds return statements anywhere in the body (their values are
// tail positions) and descends into nested definitions, which get their own
// analysis keyed by their own name.
func (t *TailInfo) scanStmts(expr ast.Expr[ast.Typed], fn *ast.FnStmt[ast.Typed]) {
	block, ok := expr.(*ast.Block[ast.Typed])
	if !ok {
		return
	}
	for _, stmt := range block.Stmts {
		t.scanStmt(stmt, fn)
	}
	if block.Tail != nil {
		t.scanStmts(block.Tail, fn)
	}
}

func (t *TailInfo) scanStmt(stmt ast.Stmt[ast.Typed], fn *ast.FnStmt[ast.Typed]) {
	switch s := stmt.(type) {
	case *ast.ReturnStmt[ast.Typed]:
		if s.Value != nil {
			t.markTail(s.Value, fn)
		}
	case *ast.IfStmt[ast.Typed]:
		t.scanBlock(s.Then, fn)
		if s.Else != nil {
			t.scanBlock(s.Else, fn)
		}
	case *ast.WhileStmt[ast.Typed]:
		t.scanBlock(s.Body, fn)
	case *ast.ScopeStmt[ast.Typed]:
		t.scanBlock(s.Block, fn)
	case *ast.FnStmt[ast.Typed]:
		t.analyzeFn(s)
	}
}

func (t *TailInfo) scanBlock(block *ast.Block[ast.Typed], fn *ast.FnStmt[ast.Typed]) {
	for _, stmt := range block.Stmts {
		t.scanStmt(stmt, fn)
	}
	// A nested block's tail is not the function's tail unless the block
	// itself is in tail position, which markTail already covers. Returns
	// inside the tail expression still count.
	if block.Tail != nil {
		t.scanStmts(block.Tail, fn)
	}
}

// isSelfCall reports whether the call targets the enclosing function by name.
// A local rebinding of the name would have function type too, so the check
// also requires the callee's type to match the definition's own signature.
func isSelfCall(call *ast.Call[ast.Typed], fn *ast.FnStmt[ast.Typed]) bool {
	ident, ok := call.Callee.(*ast.Ident[ast.Typed])
	if !ok || ident.Name != fn.Name {
		return false
	}
	return len(call.Args) == len(fn.Params)
}
