// Package ir defines the SSA program representation produced by codegen and
// consumed by the execution backends. Values are immutable and numbered once;
// control flow merges carry values through block parameters, so there are no
// phi nodes and no mutable slots.
package ir

// ValueID names one SSA value inside a function. IDs are dense and assigned
// in emission order; 0 is a valid ID.
type ValueID int

// NoValue marks the absence of a value operand.
const NoValue ValueID = -1

// BlockID names one basic block inside a function.
type BlockID int

// Type is the machine-level type of an SSA value.
type Type int

const (
	TypeUnit Type = iota
	TypeBool
	TypeI32
	TypeI64
	TypeDec
	TypeFunc // function address or closure
)

func (t Type) String() string {
	switch t {
	case TypeUnit:
		return "unit"
	case TypeBool:
		return "bool"
	case TypeI32:
		return "i32"
	case TypeI64:
		return "i64"
	case TypeDec:
		return "dec"
	case TypeFunc:
		return "fn"
	default:
		return "?"
	}
}

// Op is the operation performed by an instruction.
type Op string

const (
	OpConstI32  Op = "const.i32"
	OpConstI64  Op = "const.i64"
	OpConstDec  Op = "const.dec"
	OpConstBool Op = "const.bool"
	OpConstUnit Op = "const.unit"

	OpNeg Op = "neg"

	OpIAdd Op = "iadd"
	OpISub Op = "isub"
	OpIMul Op = "imul"
	OpIDiv Op = "idiv"

	OpFAdd Op = "fadd"
	OpFSub Op = "fsub"
	OpFMul Op = "fmul"
	OpFDiv Op = "fdiv"

	OpICmp Op = "icmp"
	OpFCmp Op = "fcmp"
	OpBCmp Op = "bcmp"

	// OpCall invokes a function in the module by symbol.
	OpCall Op = "call"
	// OpCallValue invokes a first-class function value (Args[0] is the
	// callee, the rest are arguments).
	OpCallValue Op = "call.value"
	// OpCallExtern invokes a registered host routine by symbol.
	OpCallExtern Op = "call.extern"

	// OpFuncAddr materializes a module function as a value.
	OpFuncAddr Op = "func.addr"
	// OpMakeClosure pairs a module function with captured values.
	OpMakeClosure Op = "make.closure"

	// OpGlobalGet reads a module global by symbol.
	OpGlobalGet Op = "global.get"
	// OpGlobalSet writes a module global (Args[0] is the value).
	OpGlobalSet Op = "global.set"
)

// Cond is the comparison predicate for OpICmp/OpFCmp/OpBCmp.
type Cond string

const (
	CondEq Cond = "eq"
	CondNe Cond = "ne"
	CondLt Cond = "lt"
	CondLe Cond = "le"
	CondGt Cond = "gt"
	CondGe Cond = "ge"
)

// Instr is one SSA instruction. Every instruction defines exactly one value
// (unit-typed results exist but are never read by arithmetic).
type Instr struct {
	ID   ValueID
	Op   Op
	Type Type

	Args []ValueID // value operands

	Int  int64   // OpConstI32/OpConstI64 payload
	Dec  float64 // OpConstDec payload
	Bool bool    // OpConstBool payload
	Sym  string  // OpCall/OpCallExtern/OpFuncAddr/OpMakeClosure target
	Cond Cond    // OpICmp/OpFCmp/OpBCmp predicate
}

// BlockParam is an SSA value bound on entry to a block by the jump that
// targets it.
type BlockParam struct {
	Value ValueID
	Type  Type
}

// Block is a basic block: parameters, a straight-line instruction list and
// exactly one terminator.
type Block struct {
	ID     BlockID
	Name   string
	Params []BlockParam
	Instrs []*Instr
	Term   Terminator
}

// Terminator ends a block.
type Terminator interface {
	termNode()
}

// Jump transfers control unconditionally, passing Args to the target's
// block parameters.
type Jump struct {
	Target BlockID
	Args   []ValueID
}

func (*Jump) termNode() {}

// Branch transfers control on a boolean condition. Each edge carries its own
// argument list.
type Branch struct {
	Cond     ValueID
	Then     BlockID
	ThenArgs []ValueID
	Else     BlockID
	ElseArgs []ValueID
}

func (*Branch) termNode() {}

// Return leaves the function. Value is NoValue for unit returns.
type Return struct {
	Value ValueID
}

func (*Return) termNode() {}

// Param is a function parameter; its Value is bound by the caller.
type Param struct {
	Name  string
	Type  Type
	Value ValueID
}

// Function is one SSA function. Blocks[0] is the entry block; its parameters
// mirror Params.
type Function struct {
	Name   string
	Params []Param
	Return Type
	Blocks []*Block

	nextValue ValueID
	nextBlock BlockID
}

// NumValues returns the number of SSA values defined in the function,
// suitable for sizing a dense register file.
func (f *Function) NumValues() int {
	return int(f.nextValue)
}

// Entry returns the function's entry block.
func (f *Function) Entry() *Block {
	return f.Blocks[0]
}

// BlockByID returns the block with the given ID.
func (f *Function) BlockByID(id BlockID) *Block {
	return f.Blocks[int(id)]
}

// Global is a module-level variable initialized by the module's init
// function before main runs.
type Global struct {
	Name string
	Type Type
}

// Module is a compiled program: functions, module globals and the extern
// symbols its code may call into. InitFunc names the function that assigns
// the globals; it is empty when the module has none.
type Module struct {
	Funcs    []*Function
	Globals  []Global
	Externs  []string
	InitFunc string
}

// Func returns the named function, or nil.
func (m *Module) Func(name string) *Function {
	for _, f := range m.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// HasExtern reports whether the module references the extern symbol.
func (m *Module) HasExtern(name string) bool {
	for _, e := range m.Externs {
		if e == name {
			return true
		}
	}
	return false
}
