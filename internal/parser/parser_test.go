package parser

import (
	"strings"
	"testing"

	"github.com/stolas-lang/stolas/internal/ast"
	"github.com/stolas-lang/stolas/internal/diag"
)

func parseExpr(t *testing.T, input string) string {
	t.Helper()
	p := New(input)
	expr := p.ParseExpression()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parse errors for %q: %v", input, errs)
	}
	if expr == nil {
		t.Fatalf("no expression parsed from %q", input)
	}
	return ast.PrintExpr(expr)
}

func parseFile(t *testing.T, input string) *ast.File[ast.Untyped] {
	t.Helper()
	p := New(input)
	file := p.Parse()
	if errs := p.Errors(); len(errs) != 0 {
		t.Fatalf("parse errors for %q: %v", input, errs)
	}
	return file
}

func errorCodes(t *testing.T, input string) []diag.Code {
	t.Helper()
	p := New(input)
	p.Parse()

	var codes []diag.Code
	for _, e := range p.Errors() {
		codes = append(codes, e.Code)
	}
	return codes
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2 + 3 * 4", "(+ 2 (* 3 4))"},
		{"8 - 4 / 2", "(- 8 (/ 4 2))"},
		{"10 - 3 - 2", "(- (- 10 3) 2)"},
		{"2 * 3 * 4", "(* (* 2 3) 4)"},
		{"2 * (3 + 4)", "(* 2 (+ 3 4))"},
		{"-5 + 3", "(+ (- 5) 3)"},
		{"-(5 + 3)", "(- (+ 5 3))"},
		{"1 + 2 < 3 * 4", "(< (+ 1 2) (* 3 4))"},
		{"1 < 2 == true", "(== (< 1 2) true)"},
		{"a != b == c", "(== (!= a b) c)"},
		{"1 + 2 if true else 3 * 4", "(ternary true (+ 1 2) (* 3 4))"},
		{"a if x < y else b", "(ternary (< x y) a b)"},
		{"f(1, 2 + 3) * 2", "(* (call f 1 (+ 2 3)) 2)"},
		{"f(g(1))(2)", "(call (call f (call g 1)) 2)"},
		{"3.5 * 2.0", "(* 3.5 2)"},
	}

	for _, tt := range tests {
		if got := parseExpr(t, tt.input); got != tt.want {
			t.Errorf("%q: got %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestTernaryChaining(t *testing.T) {
	// A chained conditional associates from the left; nesting in the
	// condition requires parentheses.
	got := parseExpr(t, "a if c1 else b if c2 else c")
	want := "(ternary c2 (ternary c1 a b) c)"
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestBlockExpression(t *testing.T) {
	got := parseExpr(t, "{ let x = 5; x + 1 }")
	want := "{ (let x 5) (+ x 1) }"
	if got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestFnDeclaration(t *testing.T) {
	file := parseFile(t, "fn add(a ~ i32, b ~ i32) -> i32 { a + b }")
	if len(file.Stmts) != 1 {
		t.Fatalf("got %d declarations, want 1", len(file.Stmts))
	}

	fn, ok := file.Stmts[0].(*ast.FnStmt[ast.Untyped])
	if !ok {
		t.Fatalf("expected FnStmt, got %T", file.Stmts[0])
	}
	if fn.Name != "add" || len(fn.Params) != 2 || fn.ReturnType == nil {
		t.Errorf("fn = %q params = %d ret = %v", fn.Name, len(fn.Params), fn.ReturnType)
	}

	if got := ast.Print(file); got != "(fn add (a b) { (+ a b) })\n" {
		t.Errorf("printed: %s", got)
	}
}

// The return annotation may also be written with '~', and a
// single-expression body needs no braces.
func TestFnExpressionBody(t *testing.T) {
	file := parseFile(t, "fn fib(n ~ i32) ~ i32 fib(n - 1) + fib(n - 2) if n > 1 else n;")
	fn := file.Stmts[0].(*ast.FnStmt[ast.Untyped])
	if _, ok := fn.Body.(*ast.Ternary[ast.Untyped]); !ok {
		t.Fatalf("expected ternary body, got %T", fn.Body)
	}
}

func TestFnUnitReturn(t *testing.T) {
	file := parseFile(t, "fn ping() { }")
	fn := file.Stmts[0].(*ast.FnStmt[ast.Untyped])
	if fn.ReturnType != nil {
		t.Errorf("expected nil return annotation, got %v", fn.ReturnType)
	}
}

func TestLetDeclaration(t *testing.T) {
	file := parseFile(t, "let answer ~ i32 = 6 * 7;")
	let := file.Stmts[0].(*ast.LetStmt[ast.Untyped])
	if let.Name != "answer" || let.Type == nil {
		t.Errorf("let = %+v", let)
	}

	file = parseFile(t, "let inferred = true;")
	let = file.Stmts[0].(*ast.LetStmt[ast.Untyped])
	if let.Type != nil {
		t.Errorf("expected inferred let to carry no annotation")
	}
}

func TestVisibility(t *testing.T) {
	file := parseFile(t, "pub fn a() { }\npub mod fn b() { }\nfn c() { }")
	wants := []ast.Visibility{ast.Public, ast.Module, ast.Private}
	for i, want := range wants {
		fn := file.Stmts[i].(*ast.FnStmt[ast.Untyped])
		if fn.Vis != want {
			t.Errorf("decl %d: visibility %v, want %v", i, fn.Vis, want)
		}
	}
}

func TestInvalidVisibility(t *testing.T) {
	for _, input := range []string{"pub import foo;", "pub trait T { }"} {
		codes := errorCodes(t, input)
		found := false
		for _, c := range codes {
			if c == diag.CodeParseInvalidVisibility {
				found = true
			}
		}
		if !found {
			t.Errorf("%q: expected CodeParseInvalidVisibility, got %v", input, codes)
		}
	}
}

func TestStructEnumTrait(t *testing.T) {
	file := parseFile(t, `
struct Point { x ~ i32, y ~ i32 }
enum Color { Red, Green, Blue }
trait Shape { fn area(self ~ Point) -> dec; }
type Id = i32;
import math;
`)
	if len(file.Stmts) != 5 {
		t.Fatalf("got %d declarations, want 5", len(file.Stmts))
	}

	st := file.Stmts[0].(*ast.StructStmt[ast.Untyped])
	if len(st.Fields) != 2 || st.Fields[1].Name != "y" {
		t.Errorf("struct fields: %+v", st.Fields)
	}
	en := file.Stmts[1].(*ast.EnumStmt[ast.Untyped])
	if len(en.Variants) != 3 || en.Variants[2].Name != "Blue" {
		t.Errorf("enum variants: %+v", en.Variants)
	}
	tr := file.Stmts[2].(*ast.TraitStmt[ast.Untyped])
	if len(tr.Methods) != 1 || tr.Methods[0].Name != "area" {
		t.Errorf("trait methods: %+v", tr.Methods)
	}
	im := file.Stmts[4].(*ast.ImportStmt[ast.Untyped])
	if im.Path != "math" {
		t.Errorf("import path: %q", im.Path)
	}
}

func TestStatements(t *testing.T) {
	file := parseFile(t, `
fn main() -> i32 {
	let x = 5;
	{ let x = 10; };
	if x > 3 {
		write(x);
	} else {
		write(0);
	}
	while false {
		write(1);
	}
	return x;
}
`)
	fn := file.Stmts[0].(*ast.FnStmt[ast.Untyped])
	body := fn.Body.(*ast.Block[ast.Untyped])
	if len(body.Stmts) != 5 {
		t.Fatalf("got %d statements, want 5", len(body.Stmts))
	}
	if _, ok := body.Stmts[1].(*ast.ScopeStmt[ast.Untyped]); !ok {
		t.Errorf("statement 1: %T, want ScopeStmt", body.Stmts[1])
	}
	if _, ok := body.Stmts[2].(*ast.IfStmt[ast.Untyped]); !ok {
		t.Errorf("statement 2: %T, want IfStmt", body.Stmts[2])
	}
	if _, ok := body.Stmts[3].(*ast.WhileStmt[ast.Untyped]); !ok {
		t.Errorf("statement 3: %T, want WhileStmt", body.Stmts[3])
	}
}

func TestBlockTail(t *testing.T) {
	file := parseFile(t, "fn f() -> i32 { let x = 1; x + 1 }")
	fn := file.Stmts[0].(*ast.FnStmt[ast.Untyped])
	body := fn.Body.(*ast.Block[ast.Untyped])
	if body.Tail == nil {
		t.Fatal("expected a block tail")
	}
	if len(body.Stmts) != 1 {
		t.Errorf("got %d statements, want 1", len(body.Stmts))
	}
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		input string
		want  diag.Code
	}{
		{"fn () { }", diag.CodeParseExpectedIdentifier},
		{"let x = 5", diag.CodeParseExpectedSemicolon},
		{"42;", diag.CodeParseExpectedDeclaration},
		{"fn f(a ~ ) { }", diag.CodeParseExpectedType},
		{"let x = ;", diag.CodeParseExpectedExpression},
	}

	for _, tt := range tests {
		codes := errorCodes(t, tt.input)
		if len(codes) == 0 {
			t.Errorf("%q: expected an error", tt.input)
			continue
		}
		if codes[0] != tt.want {
			t.Errorf("%q: got %v, want %v first", tt.input, codes, tt.want)
		}
	}
}

// One malformed declaration must not take the rest of the file with it.
func TestDeclarationRecovery(t *testing.T) {
	p := New("let = 5;\nfn ok() -> i32 { 1 }")
	file := p.Parse()

	if len(p.Errors()) == 0 {
		t.Fatal("expected errors from the malformed let")
	}
	if len(file.Stmts) != 1 {
		t.Fatalf("got %d declarations, want the surviving fn", len(file.Stmts))
	}
	fn, ok := file.Stmts[0].(*ast.FnStmt[ast.Untyped])
	if !ok || fn.Name != "ok" {
		t.Errorf("surviving declaration: %+v", file.Stmts[0])
	}
}

func TestStatementRecovery(t *testing.T) {
	p := New("fn f() -> i32 { let = 1; 2 }")
	file := p.Parse()

	if len(p.Errors()) == 0 {
		t.Fatal("expected an error from the malformed let")
	}
	if len(file.Stmts) != 1 {
		t.Fatalf("the function itself should survive, got %d decls", len(file.Stmts))
	}
}

func TestDiagnosticsIncludeLexerErrors(t *testing.T) {
	p := New("fn f() { let s = \"abc }")
	p.Parse()

	diags := p.Diagnostics()
	found := false
	for _, d := range diags {
		if d.Stage == diag.StageLexer {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a lexer diagnostic, got %v", diags)
	}
}

func TestSpanCoversDeclaration(t *testing.T) {
	input := "let x = 5;"
	file := parseFile(t, input)
	span := file.Stmts[0].Span()
	if span.Start != 0 || span.End != len(input) {
		t.Errorf("span = %+v, want [0,%d)", span, len(input))
	}
}

func TestParseExpressionRejectsTrailing(t *testing.T) {
	p := New("1 + 2 3")
	p.ParseExpression()
	if len(p.Errors()) == 0 {
		t.Fatal("expected a trailing-input error")
	}
	if p.Errors()[0].Code != diag.CodeParseExpectedToken {
		t.Errorf("got %v", p.Errors()[0].Code)
	}
}

func TestPrintFile(t *testing.T) {
	file := parseFile(t, "fn main() { write(1); }")
	out := ast.Print(file)
	if !strings.Contains(out, "(call write 1)") {
		t.Errorf("printed: %s", out)
	}
}

func TestBlockAsBlockTail(t *testing.T) {
	file := parseFile(t, "fn f() -> i32 { let x = 5; { let x = x + 1; x } }")
	fn := file.Stmts[0].(*ast.FnStmt[ast.Untyped])
	body := fn.Body.(*ast.Block[ast.Untyped])

	if len(body.Stmts) != 1 {
		t.Fatalf("got %d statements, want 1", len(body.Stmts))
	}
	if body.Tail == nil {
		t.Fatal("a block before the closing '}' is the tail expression")
	}
	if _, ok := body.Tail.(*ast.Block[ast.Untyped]); !ok {
		t.Errorf("tail: %T, want Block", body.Tail)
	}
}

func TestScopeStatementNeedsSemicolonBeforeMore(t *testing.T) {
	codes := errorCodes(t, "fn f() -> i32 { { let x = 1; } 2 }")
	if len(codes) == 0 || codes[0] != diag.CodeParseExpectedSemicolon {
		t.Fatalf("got %v", codes)
	}
}
