package ast

import (
	"fmt"
	"strings"
)

// Print renders a file as an s-expression-like outline. The output is for
// tests and debugging, not for reparsing.
func Print[P Phase](file *File[P]) string {
	var b strings.Builder
	for _, stmt := range file.Stmts {
		printStmt(&b, stmt, 0)
	}
	return b.String()
}

// PrintExpr renders a single expression.
func PrintExpr[P Phase](expr Expr[P]) string {
	var b strings.Builder
	printExpr(&b, expr)
	return b.String()
}

func indent(b *strings.Builder, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
}

func printStmt[P Phase](b *strings.Builder, stmt Stmt[P], depth int) {
	indent(b, depth)
	switch s := stmt.(type) {
	case *ExprStmt[P]:
		printExpr(b, s.Expr)
		b.WriteString(";\n")
	case *ScopeStmt[P]:
		printExpr(b, s.Block)
		b.WriteString("\n")
	case *LetStmt[P]:
		fmt.Fprintf(b, "(let %s ", s.Name)
		printExpr(b, s.Value)
		b.WriteString(")\n")
	case *FnStmt[P]:
		fmt.Fprintf(b, "(fn %s (", s.Name)
		for i, p := range s.Params {
			if i > 0 {
				b.WriteString(" ")
			}
			b.WriteString(p.Name)
		}
		b.WriteString(") ")
		printExpr(b, s.Body)
		b.WriteString(")\n")
	case *StructStmt[P]:
		fmt.Fprintf(b, "(struct %s)\n", s.Name)
	case *EnumStmt[P]:
		fmt.Fprintf(b, "(enum %s)\n", s.Name)
	case *TraitStmt[P]:
		fmt.Fprintf(b, "(trait %s)\n", s.Name)
	case *ReturnStmt[P]:
		b.WriteString("(return")
		if s.Value != nil {
			b.WriteString(" ")
			printExpr(b, s.Value)
		}
		b.WriteString(")\n")
	case *IfStmt[P]:
		b.WriteString("(if ")
		printExpr(b, s.Cond)
		b.WriteString(" ")
		printExpr(b, s.Then)
		if s.Else != nil {
			b.WriteString(" ")
			printExpr(b, s.Else)
		}
		b.WriteString(")\n")
	case *WhileStmt[P]:
		b.WriteString("(while ")
		printExpr(b, s.Cond)
		b.WriteString(" ")
		printExpr(b, s.Body)
		b.WriteString(")\n")
	case *ImportStmt[P]:
		fmt.Fprintf(b, "(import %s)\n", s.Path)
	case *TypeAliasStmt[P]:
		fmt.Fprintf(b, "(type %s)\n", s.Name)
	default:
		panic(fmt.Sprintf("ast: unhandled statement %T", stmt))
	}
}

func printExpr[P Phase](b *strings.Builder, expr Expr[P]) {
	switch e := expr.(type) {
	case *Literal[P]:
		switch e.Kind {
		case LitI32, LitI64:
			fmt.Fprintf(b, "%d", e.Int)
		case LitDecimal:
			fmt.Fprintf(b, "%g", e.Dec)
		case LitBool:
			fmt.Fprintf(b, "%t", e.Bool)
		case LitString:
			fmt.Fprintf(b, "%q", e.Text)
		case LitChar:
			fmt.Fprintf(b, "'%s'", e.Text)
		}
	case *Ident[P]:
		b.WriteString(e.Name)
	case *Unary[P]:
		fmt.Fprintf(b, "(%s ", e.Op)
		printExpr(b, e.Operand)
		b.WriteString(")")
	case *Binary[P]:
		fmt.Fprintf(b, "(%s ", e.Op)
		printExpr(b, e.Left)
		b.WriteString(" ")
		printExpr(b, e.Right)
		b.WriteString(")")
	case *Group[P]:
		printExpr(b, e.Inner)
	case *Block[P]:
		b.WriteString("{")
		for _, stmt := range e.Stmts {
			b.WriteString(" ")
			var inner strings.Builder
			printStmt(&inner, stmt, 0)
			b.WriteString(strings.TrimRight(inner.String(), "\n"))
		}
		if e.Tail != nil {
			b.WriteString(" ")
			printExpr(b, e.Tail)
		}
		b.WriteString(" }")
	case *Ternary[P]:
		b.WriteString("(ternary ")
		printExpr(b, e.Cond)
		b.WriteString(" ")
		printExpr(b, e.Truthy)
		b.WriteString(" ")
		printExpr(b, e.Falsy)
		b.WriteString(")")
	case *Call[P]:
		b.WriteString("(call ")
		printExpr(b, e.Callee)
		for _, arg := range e.Args {
			b.WriteString(" ")
			printExpr(b, arg)
		}
		b.WriteString(")")
	default:
		panic(fmt.Sprintf("ast: unhandled expression %T", expr))
	}
}
