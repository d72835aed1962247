package checker

import (
	"testing"

	"github.com/stolas-lang/stolas/internal/ast"
	"github.com/stolas-lang/stolas/internal/diag"
	"github.com/stolas-lang/stolas/internal/parser"
	"github.com/stolas-lang/stolas/internal/types"
)

func testEnv() *types.Environment {
	env := types.NewEnvironment()
	env.DefineFunction(&types.Signature{Name: "write", Params: []types.Type{types.I32}, Return: types.Unit})
	env.DefineFunction(&types.Signature{Name: "getpid", Return: types.I32})
	return env
}

func check(t *testing.T, src string) (*ast.File[ast.Typed], []diag.Diagnostic) {
	t.Helper()
	p := parser.New(src)
	file := p.Parse()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}

	chk := New(testEnv())
	typed := chk.Check(file)
	return typed, chk.Diagnostics()
}

func checkClean(t *testing.T, src string) *ast.File[ast.Typed] {
	t.Helper()
	typed, diags := check(t, src)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	return typed
}

func checkExpr(t *testing.T, src string) (ast.Expr[ast.Typed], []diag.Diagnostic) {
	t.Helper()
	p := parser.New(src)
	expr := p.ParseExpression()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parse errors: %v", errs)
	}

	chk := New(testEnv())
	typed := chk.CheckExpr(expr)
	return typed, chk.Diagnostics()
}

func firstCode(diags []diag.Diagnostic) diag.Code {
	if len(diags) == 0 {
		return ""
	}
	return diags[0].Code
}

func TestFibTypechecks(t *testing.T) {
	typed := checkClean(t, `
fn fib(n ~ i32) -> i32 {
	fib(n - 1) + fib(n - 2) if n > 1 else n
}
fn main() -> i32 { fib(10) }
`)
	fn := typed.Stmts[0].(*ast.FnStmt[ast.Typed])
	if got := ast.TypeOf(fn.Body); !types.I32.Equal(got) {
		t.Errorf("body type %s, want i32", got)
	}
}

func TestLiteralTypes(t *testing.T) {
	tests := []struct {
		src  string
		want types.Type
	}{
		{"42", types.I32},
		{"42i64", types.I64},
		{"3.14", types.Decimal},
		{"true", types.Bool},
		{`"hi"`, types.String},
		{"'x'", types.Char},
	}
	for _, tt := range tests {
		expr, diags := checkExpr(t, tt.src)
		if len(diags) != 0 {
			t.Errorf("%q: diagnostics %v", tt.src, diags)
			continue
		}
		if got := ast.TypeOf(expr); !tt.want.Equal(got) {
			t.Errorf("%q: type %s, want %s", tt.src, got, tt.want)
		}
	}
}

func TestComparisonYieldsBool(t *testing.T) {
	for _, src := range []string{"1 < 2", "1 <= 2", "1 > 2", "1 >= 2", "1 == 2", "1 != 2", "1.5 < 2.5"} {
		expr, diags := checkExpr(t, src)
		if len(diags) != 0 {
			t.Errorf("%q: diagnostics %v", src, diags)
			continue
		}
		if got := ast.TypeOf(expr); !types.Bool.Equal(got) {
			t.Errorf("%q: type %s, want bool", src, got)
		}
	}
}

func TestMismatchLabelsBothOperands(t *testing.T) {
	_, diags := checkExpr(t, "1 + true")
	if firstCode(diags) != diag.CodeTypeMismatchedTypes {
		t.Fatalf("got %v", diags)
	}
	if len(diags[0].LabeledSpans) != 2 {
		t.Errorf("expected both operands labeled, got %d spans", len(diags[0].LabeledSpans))
	}
}

func TestMixedWidthsRejected(t *testing.T) {
	_, diags := checkExpr(t, "1 + 2i64")
	if firstCode(diags) != diag.CodeTypeMismatchedTypes {
		t.Fatalf("i32 + i64 should not typecheck, got %v", diags)
	}
}

func TestDuplicateFunctionReportsBothSites(t *testing.T) {
	_, diags := check(t, "fn f() { }\nfn f() { }")
	if firstCode(diags) != diag.CodeTypeDuplicateFunction {
		t.Fatalf("got %v", diags)
	}
	if len(diags[0].LabeledSpans) != 2 {
		t.Errorf("expected both definition sites labeled, got %d spans", len(diags[0].LabeledSpans))
	}
}

func TestUndefinedIdentifier(t *testing.T) {
	_, diags := checkExpr(t, "missing + 1")
	if firstCode(diags) != diag.CodeTypeUndefinedIdentifier {
		t.Fatalf("got %v", diags)
	}
}

func TestConditionMustBeBool(t *testing.T) {
	_, diags := check(t, "fn f() { if 1 { } }")
	if firstCode(diags) != diag.CodeTypeConditionNotBool {
		t.Fatalf("got %v", diags)
	}

	_, diags = checkExpr(t, "1 if 2 else 3")
	if firstCode(diags) != diag.CodeTypeConditionNotBool {
		t.Fatalf("ternary: got %v", diags)
	}
}

func TestTernaryBranchesMustAgree(t *testing.T) {
	_, diags := checkExpr(t, "1 if true else 2.5")
	if firstCode(diags) != diag.CodeTypeMismatchedTypes {
		t.Fatalf("got %v", diags)
	}
}

func TestNotCallable(t *testing.T) {
	_, diags := check(t, "fn f() { let x = 1; x(); }")
	if firstCode(diags) != diag.CodeTypeNotCallable {
		t.Fatalf("got %v", diags)
	}
}

func TestWrongArgumentCount(t *testing.T) {
	_, diags := check(t, "fn f(a ~ i32) -> i32 { a }\nfn g() { f(1, 2); }")
	if firstCode(diags) != diag.CodeTypeWrongArgumentCount {
		t.Fatalf("got %v", diags)
	}
}

func TestArgumentTypeMismatch(t *testing.T) {
	_, diags := check(t, "fn f(a ~ i32) -> i32 { a }\nfn g() { f(true); }")
	if firstCode(diags) != diag.CodeTypeMismatchedTypes {
		t.Fatalf("got %v", diags)
	}
}

func TestUnknownType(t *testing.T) {
	_, diags := check(t, "fn f(x ~ banana) { }")
	if firstCode(diags) != diag.CodeTypeUnknownType {
		t.Fatalf("got %v", diags)
	}
}

func TestIntAlias(t *testing.T) {
	checkClean(t, "fn f(x ~ int) -> i32 { x }")
}

func TestLetAnnotationMismatch(t *testing.T) {
	_, diags := check(t, "let x ~ bool = 1;")
	if firstCode(diags) != diag.CodeTypeMismatchedTypes {
		t.Fatalf("got %v", diags)
	}
	if len(diags[0].LabeledSpans) != 2 {
		t.Errorf("expected value and annotation labeled, got %d spans", len(diags[0].LabeledSpans))
	}
}

func TestReturnOutsideFunction(t *testing.T) {
	_, diags := checkExpr(t, "{ return 1; }")
	if firstCode(diags) != diag.CodeTypeReturnOutsideFn {
		t.Fatalf("got %v", diags)
	}
}

func TestReturnTypeMismatch(t *testing.T) {
	_, diags := check(t, "fn f() -> i32 { return true; }")
	if firstCode(diags) != diag.CodeTypeMismatchedTypes {
		t.Fatalf("got %v", diags)
	}
}

func TestBodyTypeMismatch(t *testing.T) {
	_, diags := check(t, "fn f() -> i32 { true }")
	if firstCode(diags) != diag.CodeTypeMismatchedTypes {
		t.Fatalf("got %v", diags)
	}
}

func TestShadowingInNestedScopes(t *testing.T) {
	typed := checkClean(t, `
fn f() -> i32 {
	let x = 5;
	let y = { let x = true; x if x else false };
	x
}
`)
	fn := typed.Stmts[0].(*ast.FnStmt[ast.Typed])
	if got := ast.TypeOf(fn.Body); !types.I32.Equal(got) {
		t.Errorf("body type %s, want i32 from the outer x", got)
	}
}

func TestInitializerSeesOuterBinding(t *testing.T) {
	// The shadowing binding is inserted after its initializer is checked.
	checkClean(t, `
fn f() -> i32 {
	let x = 5;
	{
		let x = x + 1;
		x
	}
}
`)
}

func TestCapturesRecorded(t *testing.T) {
	typed := checkClean(t, `
fn outer(a ~ i32, b ~ i32) -> i32 {
	fn inner(c ~ i32) -> i32 { a + b + c }
	inner(1)
}
`)
	outer := typed.Stmts[0].(*ast.FnStmt[ast.Typed])
	body := outer.Body.(*ast.Block[ast.Typed])
	inner := body.Stmts[0].(*ast.FnStmt[ast.Typed])

	if len(inner.Captures) != 2 {
		t.Fatalf("captures = %+v, want a and b", inner.Captures)
	}
	if inner.Captures[0].Name != "a" || inner.Captures[1].Name != "b" {
		t.Errorf("capture order: %+v", inner.Captures)
	}
	if !types.I32.Equal(inner.Captures[0].Type) {
		t.Errorf("capture type: %s", inner.Captures[0].Type)
	}
}

func TestGlobalsAreNotCaptures(t *testing.T) {
	typed := checkClean(t, `
let base = 40;
fn f() -> i32 { base + 2 }
`)
	fn := typed.Stmts[1].(*ast.FnStmt[ast.Typed])
	if len(fn.Captures) != 0 {
		t.Errorf("globals should not be captured: %+v", fn.Captures)
	}
}

func TestOwnParamsAreNotCaptures(t *testing.T) {
	typed := checkClean(t, "fn f(a ~ i32) -> i32 { a + a }")
	fn := typed.Stmts[0].(*ast.FnStmt[ast.Typed])
	if len(fn.Captures) != 0 {
		t.Errorf("parameters are locals: %+v", fn.Captures)
	}
}

func TestForwardReference(t *testing.T) {
	// Signatures are pre-registered, so definition order never matters.
	checkClean(t, `
fn first() -> i32 { second() }
fn second() -> i32 { 2 }
`)
}

func TestFunctionAsValue(t *testing.T) {
	typed := checkClean(t, `
fn double(x ~ i32) -> i32 { x * 2 }
fn apply() -> i32 {
	let f = double;
	f(21)
}
`)
	apply := typed.Stmts[1].(*ast.FnStmt[ast.Typed])
	if got := ast.TypeOf(apply.Body); !types.I32.Equal(got) {
		t.Errorf("apply body type %s, want i32", got)
	}
}

func TestTypeAlias(t *testing.T) {
	checkClean(t, `
type Id = i32;
fn f(x ~ Id) -> i32 { x + 1 }
`)
}

func TestStructTypeRegistered(t *testing.T) {
	checkClean(t, `
struct Point { x ~ i32, y ~ i32 }
fn f(p ~ Point) { }
`)
}

func TestReturnStatementsSatisfyReturnType(t *testing.T) {
	// A body whose every path leaves through 'return' needs no tail
	// expression; each return value is checked at its own site.
	checkClean(t, `
fn countdown(n ~ i32) -> i32 {
	if n <= 0 {
		return 0;
	}
	return countdown(n - 1);
}
`)
	checkClean(t, `
fn pick(b ~ bool) -> i32 {
	if b {
		return 1;
	} else {
		return 2;
	}
}
`)
}

func TestPartialReturnStillMismatches(t *testing.T) {
	_, diags := check(t, "fn f(b ~ bool) -> i32 { if b { return 1; } }")
	if firstCode(diags) != diag.CodeTypeMismatchedTypes {
		t.Fatalf("a path that falls off the end should not typecheck, got %v", diags)
	}
}

func TestTransitiveCaptures(t *testing.T) {
	typed := checkClean(t, `
fn outer() -> i32 {
	let x = 41;
	fn mid() -> i32 {
		fn inner() -> i32 { x + 1 }
		inner()
	}
	mid()
}
`)
	outer := typed.Stmts[0].(*ast.FnStmt[ast.Typed])
	body := outer.Body.(*ast.Block[ast.Typed])
	mid := body.Stmts[1].(*ast.FnStmt[ast.Typed])

	if len(mid.Captures) != 1 || mid.Captures[0].Name != "x" {
		t.Fatalf("intermediate function must thread the binding through: %+v", mid.Captures)
	}

	inner := mid.Body.(*ast.Block[ast.Typed]).Stmts[0].(*ast.FnStmt[ast.Typed])
	if len(inner.Captures) != 1 || inner.Captures[0].Name != "x" {
		t.Fatalf("innermost captures: %+v", inner.Captures)
	}
}
