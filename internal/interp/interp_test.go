package interp

import (
	"bytes"
	"testing"

	"github.com/stolas-lang/stolas/internal/ir"
)

func runFn(t *testing.T, fn *ir.Function, args []Value) (val Value, fault *Fault) {
	t.Helper()
	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(Fault)
			if !ok {
				panic(r)
			}
			fault = &f
		}
	}()
	m := New(&ir.Module{Funcs: []*ir.Function{fn}})
	return m.Call(fn.Name, args), nil
}

// A self-jump aliases its target's parameters with its own arguments; the
// transfer must read every argument before writing any parameter.
func TestEdgeTransferIsSimultaneous(t *testing.T) {
	fn, b := ir.NewFunction("swap", []ir.Param{
		{Name: "a", Type: ir.TypeI32},
		{Name: "b", Type: ir.TypeI32},
	}, ir.TypeI32)

	loop := b.NewBlock("loop")
	x := b.AddParam(loop, ir.TypeI32)
	y := b.AddParam(loop, ir.TypeI32)
	i := b.AddParam(loop, ir.TypeI32)
	exit := b.NewBlock("exit")

	zero := b.ConstI32(0)
	b.Jump(loop, []ir.ValueID{fn.Params[0].Value, fn.Params[1].Value, zero})

	b.SetBlock(loop)
	one := b.ConstI32(1)
	next := b.Binary(ir.OpIAdd, ir.TypeI32, i, one)
	again := b.Compare(ir.OpICmp, ir.CondLt, i, one)
	b.Branch(again, loop, []ir.ValueID{y, x, next}, exit, nil)

	b.SetBlock(exit)
	ten := b.ConstI32(10)
	hi := b.Binary(ir.OpIMul, ir.TypeI32, x, ten)
	b.Return(b.Binary(ir.OpIAdd, ir.TypeI32, hi, y))

	val, fault := runFn(t, fn, []Value{I32(1), I32(2)})
	if fault != nil {
		t.Fatalf("fault: %v", fault)
	}
	// One swap of (1, 2): x = 2, y = 1. A sequential in-place transfer
	// would clobber x before y reads it and yield 22.
	if val.Int != 21 {
		t.Errorf("got %d, want 21", val.Int)
	}
}

func TestJumpsDoNotConsumeCallDepth(t *testing.T) {
	fn, b := ir.NewFunction("spin", []ir.Param{{Name: "n", Type: ir.TypeI32}}, ir.TypeI32)

	loop := b.NewBlock("loop")
	k := b.AddParam(loop, ir.TypeI32)
	exit := b.NewBlock("exit")

	b.Jump(loop, []ir.ValueID{fn.Params[0].Value})

	b.SetBlock(loop)
	zero := b.ConstI32(0)
	done := b.Compare(ir.OpICmp, ir.CondLe, k, zero)
	one := b.ConstI32(1)
	dec := b.Binary(ir.OpISub, ir.TypeI32, k, one)
	b.Branch(done, exit, nil, loop, []ir.ValueID{dec})

	b.SetBlock(exit)
	b.Return(k)

	val, fault := runFn(t, fn, []Value{I32(maxCallDepth * 3)})
	if fault != nil {
		t.Fatalf("fault: %v", fault)
	}
	if val.Int != 0 {
		t.Errorf("got %d, want 0", val.Int)
	}
}

func TestCallDepthFault(t *testing.T) {
	fn, b := ir.NewFunction("boom", nil, ir.TypeI32)
	b.Return(b.Call("boom", ir.TypeI32, nil))

	_, fault := runFn(t, fn, nil)
	if fault == nil {
		t.Fatal("expected a call depth fault")
	}
	if fault.Msg != "call depth exceeded" {
		t.Errorf("fault: %q", fault.Msg)
	}
}

func TestArityFault(t *testing.T) {
	fn, b := ir.NewFunction("id", []ir.Param{{Name: "x", Type: ir.TypeI32}}, ir.TypeI32)
	b.Return(fn.Params[0].Value)

	_, fault := runFn(t, fn, nil)
	if fault == nil {
		t.Fatal("expected an arity fault")
	}
}

func TestI32Truncation(t *testing.T) {
	fn, b := ir.NewFunction("wrap", nil, ir.TypeI32)
	max := b.ConstI32(2147483647)
	one := b.ConstI32(1)
	b.Return(b.Binary(ir.OpIAdd, ir.TypeI32, max, one))

	val, fault := runFn(t, fn, nil)
	if fault != nil {
		t.Fatalf("fault: %v", fault)
	}
	if val.Int != -2147483648 {
		t.Errorf("got %d", val.Int)
	}
}

func TestClosureCallValue(t *testing.T) {
	// add(base, x) = base + x, closed over base; apply(f) = f(2).
	add, ab := ir.NewFunction("add", []ir.Param{
		{Name: "x", Type: ir.TypeI32},
		{Name: "base", Type: ir.TypeI32},
	}, ir.TypeI32)
	ab.Return(ab.Binary(ir.OpIAdd, ir.TypeI32, add.Params[0].Value, add.Params[1].Value))

	main, mb := ir.NewFunction("main", nil, ir.TypeI32)
	base := mb.ConstI32(40)
	clo := mb.MakeClosure("add", []ir.ValueID{base})
	two := mb.ConstI32(2)
	mb.Return(mb.CallValue(clo, ir.TypeI32, []ir.ValueID{two}))

	m := New(&ir.Module{Funcs: []*ir.Function{add, main}})
	if got := m.Run(); got.Int != 42 {
		t.Errorf("got %d, want 42", got.Int)
	}
}

func TestWriteExternOutput(t *testing.T) {
	fn, b := ir.NewFunction("main", nil, ir.TypeUnit)
	v := b.ConstI32(7)
	b.CallExtern("write", ir.TypeUnit, []ir.ValueID{v})
	b.Return(ir.NoValue)

	var out bytes.Buffer
	m := New(&ir.Module{Funcs: []*ir.Function{fn}, Externs: []string{"write"}}, WithOutput(&out))
	m.Run()
	if out.String() != "7\n" {
		t.Errorf("output %q", out.String())
	}
}

func TestValueString(t *testing.T) {
	tests := []struct {
		val  Value
		want string
	}{
		{Unit, "()"},
		{Bool(true), "true"},
		{I32(42), "42"},
		{Dec(2.5), "2.5"},
		{Value{Type: ir.TypeFunc, Fn: &Closure{Sym: "double"}}, "<fn double>"},
	}
	for _, tt := range tests {
		if got := tt.val.String(); got != tt.want {
			t.Errorf("%v: %q, want %q", tt.val.Type, got, tt.want)
		}
	}
}
