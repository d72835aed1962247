package run

import (
	"errors"
	"testing"

	"github.com/stolas-lang/stolas/internal/interp"
	"github.com/stolas-lang/stolas/internal/ir"
)

// constMain builds a module whose main returns the given i32.
func constMain(v int64) *ir.Module {
	fn, b := ir.NewFunction("main", nil, ir.TypeI32)
	b.Return(b.ConstI32(v))
	return &ir.Module{Funcs: []*ir.Function{fn}}
}

func TestRunReturnsMainValue(t *testing.T) {
	val, err := NewRunner().Run(constMain(42))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val.Int != 42 {
		t.Errorf("got %d, want 42", val.Int)
	}
}

func TestRunWithoutMain(t *testing.T) {
	_, err := NewRunner().Run(&ir.Module{})

	var re *RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RuntimeError, got %v", err)
	}
}

func TestFaultBecomesError(t *testing.T) {
	fn, b := ir.NewFunction("main", nil, ir.TypeI32)
	one := b.ConstI32(1)
	zero := b.ConstI32(0)
	b.Return(b.Binary(ir.OpIDiv, ir.TypeI32, one, zero))
	module := &ir.Module{Funcs: []*ir.Function{fn}}

	_, err := NewRunner().Run(module)
	var re *RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("expected *RuntimeError, got %v", err)
	}
	if re.Msg != "division by zero" {
		t.Errorf("message: %q", re.Msg)
	}
}

func TestSessionCallsByName(t *testing.T) {
	fn, b := ir.NewFunction("inc", []ir.Param{{Name: "x", Type: ir.TypeI32}}, ir.TypeI32)
	one := b.ConstI32(1)
	b.Return(b.Binary(ir.OpIAdd, ir.TypeI32, fn.Params[0].Value, one))
	module := &ir.Module{Funcs: []*ir.Function{fn}}

	s := NewSession(module)
	for _, in := range []int32{4, 41} {
		val, err := s.Call("inc", []interp.Value{interp.I32(in)})
		if err != nil {
			t.Fatalf("inc(%d): %v", in, err)
		}
		if val.Int != int64(in)+1 {
			t.Errorf("inc(%d) = %d", in, val.Int)
		}
	}
}

func TestSessionIsolatesFaults(t *testing.T) {
	div, b := ir.NewFunction("div", []ir.Param{
		{Name: "a", Type: ir.TypeI32},
		{Name: "b", Type: ir.TypeI32},
	}, ir.TypeI32)
	b.Return(b.Binary(ir.OpIDiv, ir.TypeI32, div.Params[0].Value, div.Params[1].Value))
	module := &ir.Module{Funcs: []*ir.Function{div}}

	s := NewSession(module)
	if _, err := s.Call("div", []interp.Value{interp.I32(1), interp.I32(0)}); err == nil {
		t.Fatal("expected a fault")
	}

	// The session stays usable after a fault.
	val, err := s.Call("div", []interp.Value{interp.I32(10), interp.I32(2)})
	if err != nil {
		t.Fatalf("session unusable after fault: %v", err)
	}
	if val.Int != 5 {
		t.Errorf("div(10, 2) = %d", val.Int)
	}
}

func TestInitRunsOncePerSession(t *testing.T) {
	initFn, ib := ir.NewFunction("__init", nil, ir.TypeUnit)
	ib.GlobalSet("n", ib.ConstI32(1))
	ib.Return(ir.NoValue)

	bump, bb := ir.NewFunction("bump", nil, ir.TypeUnit)
	prev := bb.GlobalGet("n", ir.TypeI32)
	one := bb.ConstI32(1)
	bb.GlobalSet("n", bb.Binary(ir.OpIAdd, ir.TypeI32, prev, one))
	bb.Return(ir.NoValue)

	get, gb := ir.NewFunction("get", nil, ir.TypeI32)
	gb.Return(gb.GlobalGet("n", ir.TypeI32))

	module := &ir.Module{
		Funcs:    []*ir.Function{initFn, bump, get},
		Globals:  []ir.Global{{Name: "n", Type: ir.TypeI32}},
		InitFunc: "__init",
	}

	// If init reran on the later calls it would reset n back to 1.
	s := NewSession(module)
	if _, err := s.Call("bump", nil); err != nil {
		t.Fatalf("bump: %v", err)
	}
	val, err := s.Call("get", nil)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val.Int != 2 {
		t.Errorf("n = %d, want 2", val.Int)
	}
}
