package ir

// Builder emits instructions into one function, one block at a time. It owns
// the function's value and block counters so IDs stay dense and unique even
// when emission jumps between blocks.
type Builder struct {
	fn  *Function
	cur *Block
}

// NewFunction creates a function with an entry block whose parameters mirror
// the function parameters, and a builder positioned at that entry.
func NewFunction(name string, params []Param, ret Type) (*Function, *Builder) {
	fn := &Function{Name: name, Return: ret}

	b := &Builder{fn: fn}
	entry := b.NewBlock("entry")
	for i := range params {
		params[i].Value = fn.allocValue()
		entry.Params = append(entry.Params, BlockParam{Value: params[i].Value, Type: params[i].Type})
	}
	fn.Params = params

	b.cur = entry
	return fn, b
}

func (f *Function) allocValue() ValueID {
	id := f.nextValue
	f.nextValue++
	return id
}

// NewBlock appends a block to the function without repositioning the builder.
func (b *Builder) NewBlock(name string) *Block {
	blk := &Block{ID: b.fn.nextBlock, Name: name}
	b.fn.nextBlock++
	b.fn.Blocks = append(b.fn.Blocks, blk)
	return blk
}

// AddParam appends a parameter to a block and returns its value.
func (b *Builder) AddParam(blk *Block, t Type) ValueID {
	id := b.fn.allocValue()
	blk.Params = append(blk.Params, BlockParam{Value: id, Type: t})
	return id
}

// SetBlock repositions the builder; subsequent emissions go to blk.
func (b *Builder) SetBlock(blk *Block) {
	b.cur = blk
}

// Block returns the block the builder is currently emitting into.
func (b *Builder) Block() *Block {
	return b.cur
}

// Terminated reports whether the current block already has a terminator.
// Emission after a return (dead code in source) is silently dropped by
// callers checking this.
func (b *Builder) Terminated() bool {
	return b.cur.Term != nil
}

func (b *Builder) emit(instr *Instr) ValueID {
	instr.ID = b.fn.allocValue()
	b.cur.Instrs = append(b.cur.Instrs, instr)
	return instr.ID
}

// ConstI32 emits a 32-bit integer constant.
func (b *Builder) ConstI32(v int64) ValueID {
	return b.emit(&Instr{Op: OpConstI32, Type: TypeI32, Int: v})
}

// ConstI64 emits a 64-bit integer constant.
func (b *Builder) ConstI64(v int64) ValueID {
	return b.emit(&Instr{Op: OpConstI64, Type: TypeI64, Int: v})
}

// ConstDec emits a decimal constant.
func (b *Builder) ConstDec(v float64) ValueID {
	return b.emit(&Instr{Op: OpConstDec, Type: TypeDec, Dec: v})
}

// ConstBool emits a boolean constant.
func (b *Builder) ConstBool(v bool) ValueID {
	return b.emit(&Instr{Op: OpConstBool, Type: TypeBool, Bool: v})
}

// ConstUnit emits the unit value.
func (b *Builder) ConstUnit() ValueID {
	return b.emit(&Instr{Op: OpConstUnit, Type: TypeUnit})
}

// Neg emits arithmetic negation.
func (b *Builder) Neg(t Type, v ValueID) ValueID {
	return b.emit(&Instr{Op: OpNeg, Type: t, Args: []ValueID{v}})
}

// Binary emits one of the arithmetic operations.
func (b *Builder) Binary(op Op, t Type, l, r ValueID) ValueID {
	return b.emit(&Instr{Op: op, Type: t, Args: []ValueID{l, r}})
}

// Compare emits a comparison producing a bool.
func (b *Builder) Compare(op Op, cond Cond, l, r ValueID) ValueID {
	return b.emit(&Instr{Op: op, Type: TypeBool, Cond: cond, Args: []ValueID{l, r}})
}

// Call emits a direct call to a module function.
func (b *Builder) Call(sym string, ret Type, args []ValueID) ValueID {
	return b.emit(&Instr{Op: OpCall, Type: ret, Sym: sym, Args: args})
}

// CallValue emits a call through a first-class function value.
func (b *Builder) CallValue(callee ValueID, ret Type, args []ValueID) ValueID {
	all := append([]ValueID{callee}, args...)
	return b.emit(&Instr{Op: OpCallValue, Type: ret, Args: all})
}

// CallExtern emits a call to a host routine.
func (b *Builder) CallExtern(sym string, ret Type, args []ValueID) ValueID {
	return b.emit(&Instr{Op: OpCallExtern, Type: ret, Sym: sym, Args: args})
}

// FuncAddr materializes a module function as a callable value.
func (b *Builder) FuncAddr(sym string) ValueID {
	return b.emit(&Instr{Op: OpFuncAddr, Type: TypeFunc, Sym: sym})
}

// GlobalGet reads a module global.
func (b *Builder) GlobalGet(sym string, t Type) ValueID {
	return b.emit(&Instr{Op: OpGlobalGet, Type: t, Sym: sym})
}

// GlobalSet writes a module global.
func (b *Builder) GlobalSet(sym string, v ValueID) ValueID {
	return b.emit(&Instr{Op: OpGlobalSet, Type: TypeUnit, Sym: sym, Args: []ValueID{v}})
}

// MakeClosure pairs a module function with its captured values.
func (b *Builder) MakeClosure(sym string, captures []ValueID) ValueID {
	return b.emit(&Instr{Op: OpMakeClosure, Type: TypeFunc, Sym: sym, Args: captures})
}

// Jump terminates the current block with an unconditional edge.
func (b *Builder) Jump(target *Block, args []ValueID) {
	if b.cur.Term != nil {
		return
	}
	b.cur.Term = &Jump{Target: target.ID, Args: args}
}

// Branch terminates the current block with a conditional edge pair.
func (b *Builder) Branch(cond ValueID, then *Block, thenArgs []ValueID, els *Block, elseArgs []ValueID) {
	if b.cur.Term != nil {
		return
	}
	b.cur.Term = &Branch{Cond: cond, Then: then.ID, ThenArgs: thenArgs, Else: els.ID, ElseArgs: elseArgs}
}

// Return terminates the current block, leaving the function.
func (b *Builder) Return(v ValueID) {
	if b.cur.Term != nil {
		return
	}
	b.cur.Term = &Return{Value: v}
}
