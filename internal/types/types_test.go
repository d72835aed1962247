package types

import (
	"testing"

	"github.com/stolas-lang/stolas/internal/lexer"
)

func TestPrimitiveEquality(t *testing.T) {
	if !I32.Equal(I32) || I32.Equal(I64) || I32.Equal(Bool) {
		t.Error("primitive equality is by name")
	}
	if Unit.Equal(nil) {
		t.Error("nothing equals nil")
	}
}

func TestStructEqualityIgnoresFieldOrder(t *testing.T) {
	a := &Struct{Name: "Point", Fields: []Field{{"x", I32}, {"y", I32}}}
	b := &Struct{Name: "Point", Fields: []Field{{"y", I32}, {"x", I32}}}
	if !a.Equal(b) {
		t.Error("field order must not affect equality")
	}

	c := &Struct{Name: "Point", Fields: []Field{{"x", I32}, {"y", I64}}}
	if a.Equal(c) {
		t.Error("field types differ")
	}
	d := &Struct{Name: "Point", Fields: []Field{{"x", I32}}}
	if a.Equal(d) {
		t.Error("field counts differ")
	}
}

func TestFunctionEquality(t *testing.T) {
	f := &Function{Params: []Type{I32, Bool}, Return: Unit}
	same := &Function{Params: []Type{I32, Bool}, Return: Unit}
	if !f.Equal(same) {
		t.Error("identical signatures must be equal")
	}
	if f.Equal(&Function{Params: []Type{Bool, I32}, Return: Unit}) {
		t.Error("parameter order matters")
	}
	if f.Equal(&Function{Params: []Type{I32, Bool}, Return: I32}) {
		t.Error("return type matters")
	}
}

func TestNumericPredicates(t *testing.T) {
	for _, tt := range []struct {
		typ     Type
		numeric bool
		integer bool
	}{
		{I32, true, true},
		{I64, true, true},
		{Decimal, true, false},
		{Bool, false, false},
		{String, false, false},
		{Unit, false, false},
	} {
		if got := IsNumeric(tt.typ); got != tt.numeric {
			t.Errorf("IsNumeric(%s) = %t", tt.typ, got)
		}
		if got := IsInteger(tt.typ); got != tt.integer {
			t.Errorf("IsInteger(%s) = %t", tt.typ, got)
		}
	}
}

func TestEnvironmentShadowing(t *testing.T) {
	root := NewEnvironment()
	root.DefineVariable("x", I32, lexer.Span{})

	child := root.Child()
	child.DefineVariable("x", Bool, lexer.Span{})

	if got, _ := child.LookupVariable("x"); !Bool.Equal(got) {
		t.Errorf("inner lookup: %s, want the shadowing bool", got)
	}
	if got, _ := root.LookupVariable("x"); !I32.Equal(got) {
		t.Errorf("outer lookup: %s, want i32", got)
	}
}

func TestLookupReportsOwnerFrame(t *testing.T) {
	root := NewEnvironment()
	root.DefineVariable("x", I32, lexer.Span{})
	inner := root.Child().Child()

	_, owner, ok := inner.LookupVariableEnv("x")
	if !ok || owner != root {
		t.Errorf("owner = %p, want the root frame %p", owner, root)
	}

	inner.DefineVariable("x", Bool, lexer.Span{})
	_, owner, _ = inner.LookupVariableEnv("x")
	if owner != inner {
		t.Error("shadowing moves ownership to the inner frame")
	}
}

func TestDefineFunctionRejectsDuplicates(t *testing.T) {
	env := NewEnvironment()
	first := &Signature{Name: "f", Return: Unit, Span: lexer.Span{Start: 0, End: 5}}
	if _, ok := env.DefineFunction(first); !ok {
		t.Fatal("first registration must succeed")
	}

	prior, ok := env.DefineFunction(&Signature{Name: "f", Return: I32})
	if ok {
		t.Fatal("duplicate registration must be rejected")
	}
	if prior != first {
		t.Error("rejection must surface the prior signature")
	}
}

func TestFunctionLookupCrossesFrames(t *testing.T) {
	root := NewEnvironment()
	root.DefineFunction(&Signature{Name: "f", Return: Unit})

	child := root.Child()
	if _, ok := child.LookupFunction("f"); !ok {
		t.Error("function lookup must walk the chain")
	}

	// A nested frame may register its own f without clashing with the root's.
	if _, ok := child.DefineFunction(&Signature{Name: "f", Return: I32}); !ok {
		t.Error("same name in a nested frame is not a duplicate")
	}
	sig, _ := child.LookupFunction("f")
	if !I32.Equal(sig.Return) {
		t.Error("inner registration shadows the outer one")
	}
}

func TestVariableSpanTracksDeclarationSite(t *testing.T) {
	env := NewEnvironment()
	span := lexer.Span{Line: 3, Column: 5, Start: 20, End: 21}
	env.DefineVariable("x", I32, span)

	got, ok := env.Child().VariableSpan("x")
	if !ok || got != span {
		t.Errorf("span = %+v, want %+v", got, span)
	}
}

func TestSignatureFuncValueType(t *testing.T) {
	sig := &Signature{Name: "add", Params: []Type{I32, I32}, Return: I32}
	f := sig.Func()
	if f.String() != "fn(i32, i32) -> i32" {
		t.Errorf("got %q", f.String())
	}
}
