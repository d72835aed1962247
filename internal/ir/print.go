package ir

import (
	"fmt"
	"strings"
)

// String renders the module in a stable textual form for tests and the
// `stolas build --emit-ir` path.
func (m *Module) String() string {
	var b strings.Builder
	for i, e := range m.Externs {
		if i == 0 {
			b.WriteString("; externs:")
		}
		b.WriteString(" ")
		b.WriteString(e)
		if i == len(m.Externs)-1 {
			b.WriteString("\n\n")
		}
	}
	for _, g := range m.Globals {
		fmt.Fprintf(&b, "global %s ~ %s\n", g.Name, g.Type)
	}
	if len(m.Globals) > 0 {
		b.WriteString("\n")
	}
	for i, f := range m.Funcs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(f.String())
	}
	return b.String()
}

// String renders one function.
func (f *Function) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "fn %s(", f.Name)
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s v%d ~ %s", p.Name, p.Value, p.Type)
	}
	fmt.Fprintf(&b, ") -> %s {\n", f.Return)

	for _, blk := range f.Blocks {
		fmt.Fprintf(&b, "%s", blk.Name)
		if len(blk.Params) > 0 {
			b.WriteString("(")
			for i, p := range blk.Params {
				if i > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(&b, "v%d ~ %s", p.Value, p.Type)
			}
			b.WriteString(")")
		}
		b.WriteString(":\n")

		for _, instr := range blk.Instrs {
			b.WriteString("  ")
			b.WriteString(instr.String())
			b.WriteString("\n")
		}

		b.WriteString("  ")
		b.WriteString(f.termString(blk.Term))
		b.WriteString("\n")
	}

	b.WriteString("}\n")
	return b.String()
}

// String renders one instruction.
func (in *Instr) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "v%d = %s", in.ID, in.Op)

	switch in.Op {
	case OpConstI32, OpConstI64:
		fmt.Fprintf(&b, " %d", in.Int)
	case OpConstDec:
		fmt.Fprintf(&b, " %g", in.Dec)
	case OpConstBool:
		fmt.Fprintf(&b, " %t", in.Bool)
	case OpICmp, OpFCmp, OpBCmp:
		fmt.Fprintf(&b, ".%s", in.Cond)
	}

	if in.Sym != "" {
		fmt.Fprintf(&b, " @%s", in.Sym)
	}
	for _, arg := range in.Args {
		fmt.Fprintf(&b, " v%d", arg)
	}
	return b.String()
}

func (f *Function) termString(t Terminator) string {
	switch term := t.(type) {
	case *Jump:
		return "jump " + f.edgeString(term.Target, term.Args)
	case *Branch:
		return fmt.Sprintf("branch v%d %s %s", term.Cond,
			f.edgeString(term.Then, term.ThenArgs),
			f.edgeString(term.Else, term.ElseArgs))
	case *Return:
		if term.Value == NoValue {
			return "return"
		}
		return fmt.Sprintf("return v%d", term.Value)
	case nil:
		return "<unterminated>"
	default:
		return fmt.Sprintf("<%T>", t)
	}
}

func (f *Function) edgeString(target BlockID, args []ValueID) string {
	name := fmt.Sprintf("b%d", target)
	if int(target) < len(f.Blocks) {
		name = f.Blocks[target].Name
	}
	if len(args) == 0 {
		return name
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = fmt.Sprintf("v%d", a)
	}
	return name + "(" + strings.Join(parts, ", ") + ")"
}
