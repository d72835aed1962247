// Package interp executes SSA modules directly. It is the reference
// execution backend: a register machine over each function's dense value
// numbering, with block parameters bound on every edge transfer. Runtime
// faults surface as Fault panics; the run package converts them to errors at
// the execution boundary.
package interp

import (
	"fmt"
	"io"
	"os"

	"github.com/stolas-lang/stolas/internal/ir"
)

// Fault is a runtime fault raised by executing code: division by zero,
// exhausted call depth, or a reference the module cannot satisfy.
type Fault struct {
	Msg string
}

func (f Fault) Error() string {
	return f.Msg
}

// maxCallDepth bounds recursion so runaway non-tail recursion faults instead
// of exhausting the host stack.
const maxCallDepth = 100_000

// Value is one runtime value. The Type field selects which payload is live.
type Value struct {
	Type ir.Type
	Int  int64
	Dec  float64
	Bool bool
	Fn   *Closure
}

// Closure is a function value: a module symbol plus captured values that are
// appended to the arguments on invocation.
type Closure struct {
	Sym      string
	Captured []Value
}

// String renders a value the way the REPL shows results.
func (v Value) String() string {
	switch v.Type {
	case ir.TypeUnit:
		return "()"
	case ir.TypeBool:
		return fmt.Sprintf("%t", v.Bool)
	case ir.TypeDec:
		return fmt.Sprintf("%g", v.Dec)
	case ir.TypeFunc:
		if v.Fn != nil {
			return "<fn " + v.Fn.Sym + ">"
		}
		return "<fn>"
	default:
		return fmt.Sprintf("%d", v.Int)
	}
}

// Unit is the unit value.
var Unit = Value{Type: ir.TypeUnit}

// I32 constructs a 32-bit integer value.
func I32(v int32) Value { return Value{Type: ir.TypeI32, Int: int64(v)} }

// I64 constructs a 64-bit integer value.
func I64(v int64) Value { return Value{Type: ir.TypeI64, Int: v} }

// Dec constructs a decimal value.
func Dec(v float64) Value { return Value{Type: ir.TypeDec, Dec: v} }

// Bool constructs a boolean value.
func Bool(v bool) Value { return Value{Type: ir.TypeBool, Bool: v} }

// Option configures a Machine.
type Option func(*Machine)

// WithOutput redirects the write host routine; stdout by default.
func WithOutput(w io.Writer) Option {
	return func(m *Machine) {
		m.out = w
	}
}

// Machine executes one module. Globals persist across calls, so a REPL can
// keep one machine alive across entries.
type Machine struct {
	module  *ir.Module
	out     io.Writer
	globals map[string]Value
	depth   int
	inited  bool
}

// New creates a machine over the module.
func New(module *ir.Module, opts ...Option) *Machine {
	m := &Machine{
		module:  module,
		out:     os.Stdout,
		globals: make(map[string]Value),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run executes the module's init function (once) and then main.
func (m *Machine) Run() Value {
	m.runInit()
	return m.Call("main", nil)
}

// Call executes the named function with the given arguments. The init
// function runs first if it has not yet.
func (m *Machine) Call(name string, args []Value) Value {
	m.runInit()
	fn := m.fnByName(name)
	return m.call(fn, args)
}

func (m *Machine) runInit() {
	if m.inited {
		return
	}
	m.inited = true
	if m.module.InitFunc == "" {
		return
	}
	if fn := m.module.Func(m.module.InitFunc); fn != nil {
		m.call(fn, nil)
	}
}

func (m *Machine) fnByName(name string) *ir.Function {
	fn := m.module.Func(name)
	if fn == nil {
		panic(Fault{Msg: fmt.Sprintf("undefined function '%s'", name)})
	}
	return fn
}

func (m *Machine) call(fn *ir.Function, args []Value) Value {
	if len(args) != len(fn.Params) {
		panic(Fault{Msg: fmt.Sprintf(
			"function '%s' called with %d argument(s), expects %d",
			fn.Name, len(args), len(fn.Params))})
	}
	m.depth++
	if m.depth > maxCallDepth {
		panic(Fault{Msg: "call depth exceeded"})
	}
	defer func() { m.depth-- }()

	regs := make([]Value, fn.NumValues())

	blk := fn.Entry()
	for i, p := range blk.Params {
		regs[p.Value] = args[i]
	}

	for {
		for _, in := range blk.Instrs {
			regs[in.ID] = m.eval(fn, in, regs)
		}

		switch term := blk.Term.(type) {
		case *ir.Return:
			if term.Value == ir.NoValue {
				return Unit
			}
			return regs[term.Value]

		case *ir.Jump:
			blk = m.enter(fn, blk, term.Target, term.Args, regs)

		case *ir.Branch:
			if regs[term.Cond].Bool {
				blk = m.enter(fn, blk, term.Then, term.ThenArgs, regs)
			} else {
				blk = m.enter(fn, blk, term.Else, term.ElseArgs, regs)
			}

		default:
			panic(Fault{Msg: fmt.Sprintf(
				"block %s of '%s' has no terminator", blk.Name, fn.Name)})
		}
	}
}

// enter binds the edge arguments to the target's block parameters and
// returns the target block.
func (m *Machine) enter(fn *ir.Function, from *ir.Block, target ir.BlockID, args []ir.ValueID, regs []Value) *ir.Block {
	blk := fn.BlockByID(target)
	if len(args) != len(blk.Params) {
		panic(Fault{Msg: fmt.Sprintf(
			"edge %s -> %s carries %d value(s), block expects %d",
			from.Name, blk.Name, len(args), len(blk.Params))})
	}
	// Arguments are read before any parameter is written so a block may
	// permute its own parameters through a self-edge.
	vals := make([]Value, len(args))
	for i, a := range args {
		vals[i] = regs[a]
	}
	for i, p := range blk.Params {
		regs[p.Value] = vals[i]
	}
	return blk
}

func (m *Machine) eval(fn *ir.Function, in *ir.Instr, regs []Value) Value {
	switch in.Op {
	case ir.OpConstI32:
		return Value{Type: ir.TypeI32, Int: in.Int}
	case ir.OpConstI64:
		return Value{Type: ir.TypeI64, Int: in.Int}
	case ir.OpConstDec:
		return Value{Type: ir.TypeDec, Dec: in.Dec}
	case ir.OpConstBool:
		return Value{Type: ir.TypeBool, Bool: in.Bool}
	case ir.OpConstUnit:
		return Unit

	case ir.OpNeg:
		v := regs[in.Args[0]]
		if in.Type == ir.TypeDec {
			return Value{Type: ir.TypeDec, Dec: -v.Dec}
		}
		return truncate(in.Type, -v.Int)

	case ir.OpIAdd:
		return truncate(in.Type, regs[in.Args[0]].Int+regs[in.Args[1]].Int)
	case ir.OpISub:
		return truncate(in.Type, regs[in.Args[0]].Int-regs[in.Args[1]].Int)
	case ir.OpIMul:
		return truncate(in.Type, regs[in.Args[0]].Int*regs[in.Args[1]].Int)
	case ir.OpIDiv:
		divisor := regs[in.Args[1]].Int
		if divisor == 0 {
			panic(Fault{Msg: "division by zero"})
		}
		return truncate(in.Type, regs[in.Args[0]].Int/divisor)

	case ir.OpFAdd:
		return Value{Type: ir.TypeDec, Dec: regs[in.Args[0]].Dec + regs[in.Args[1]].Dec}
	case ir.OpFSub:
		return Value{Type: ir.TypeDec, Dec: regs[in.Args[0]].Dec - regs[in.Args[1]].Dec}
	case ir.OpFMul:
		return Value{Type: ir.TypeDec, Dec: regs[in.Args[0]].Dec * regs[in.Args[1]].Dec}
	case ir.OpFDiv:
		return Value{Type: ir.TypeDec, Dec: regs[in.Args[0]].Dec / regs[in.Args[1]].Dec}

	case ir.OpICmp:
		return Bool(compareOrdered(in.Cond, regs[in.Args[0]].Int, regs[in.Args[1]].Int))
	case ir.OpFCmp:
		return Bool(compareOrdered(in.Cond, regs[in.Args[0]].Dec, regs[in.Args[1]].Dec))
	case ir.OpBCmp:
		l, r := regs[in.Args[0]].Bool, regs[in.Args[1]].Bool
		switch in.Cond {
		case ir.CondEq:
			return Bool(l == r)
		case ir.CondNe:
			return Bool(l != r)
		default:
			panic(Fault{Msg: fmt.Sprintf("bool comparison '%s' is not ordered", in.Cond)})
		}

	case ir.OpCall:
		return m.call(m.fnByName(in.Sym), m.gather(in.Args, regs))

	case ir.OpCallValue:
		callee := regs[in.Args[0]]
		if callee.Type != ir.TypeFunc || callee.Fn == nil {
			panic(Fault{Msg: "call through a non-function value"})
		}
		args := m.gather(in.Args[1:], regs)
		args = append(args, callee.Fn.Captured...)
		return m.call(m.fnByName(callee.Fn.Sym), args)

	case ir.OpCallExtern:
		return m.callExtern(in.Sym, m.gather(in.Args, regs))

	case ir.OpFuncAddr:
		return Value{Type: ir.TypeFunc, Fn: &Closure{Sym: in.Sym}}

	case ir.OpMakeClosure:
		return Value{Type: ir.TypeFunc, Fn: &Closure{
			Sym:      in.Sym,
			Captured: m.gather(in.Args, regs),
		}}

	case ir.OpGlobalGet:
		v, ok := m.globals[in.Sym]
		if !ok {
			panic(Fault{Msg: fmt.Sprintf("global '%s' read before initialization", in.Sym)})
		}
		return v

	case ir.OpGlobalSet:
		m.globals[in.Sym] = regs[in.Args[0]]
		return Unit

	default:
		panic(Fault{Msg: fmt.Sprintf("unknown instruction '%s' in '%s'", in.Op, fn.Name)})
	}
}

func (m *Machine) gather(ids []ir.ValueID, regs []Value) []Value {
	out := make([]Value, len(ids))
	for i, id := range ids {
		out[i] = regs[id]
	}
	return out
}

func (m *Machine) callExtern(sym string, args []Value) Value {
	switch sym {
	case "write":
		fmt.Fprintln(m.out, args[0].String())
		return Unit
	case "getpid":
		return I32(int32(os.Getpid()))
	default:
		panic(Fault{Msg: fmt.Sprintf("unknown extern '%s'", sym)})
	}
}

// truncate narrows an integer result to its type's width; i32 arithmetic
// wraps at 32 bits.
func truncate(t ir.Type, v int64) Value {
	if t == ir.TypeI32 {
		return Value{Type: ir.TypeI32, Int: int64(int32(v))}
	}
	return Value{Type: t, Int: v}
}

func compareOrdered[T int64 | float64](cond ir.Cond, l, r T) bool {
	switch cond {
	case ir.CondEq:
		return l == r
	case ir.CondNe:
		return l != r
	case ir.CondLt:
		return l < r
	case ir.CondLe:
		return l <= r
	case ir.CondGt:
		return l > r
	case ir.CondGe:
		return l >= r
	default:
		panic(Fault{Msg: fmt.Sprintf("unknown comparison '%s'", cond)})
	}
}
