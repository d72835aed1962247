package ast

import (
	"github.com/stolas-lang/stolas/internal/lexer"
	"github.com/stolas-lang/stolas/internal/types"
)

// Phase selects whether the tree carries resolved type information. The
// parser produces Untyped trees; the checker converts them to Typed trees.
// One tree definition serves both phases; there is no duplicated AST.
type Phase interface {
	Untyped | Typed
}

// Untyped is the phase annotation before type checking.
type Untyped struct{}

// Typed is the phase annotation after type checking; every expression node
// carries its resolved type.
type Typed struct {
	Type types.Type
}

// Node represents any AST node with an associated source span.
type Node interface {
	Span() lexer.Span
}

// Expr represents an expression node in phase P.
type Expr[P Phase] interface {
	Node
	Meta() P
	exprNode(P)
}

// Stmt represents a statement node in phase P.
type Stmt[P Phase] interface {
	Node
	stmtNode(P)
}

// TypeExpr represents a type annotation as written in source. Annotations
// are phase-independent; resolution happens in the checker.
type TypeExpr interface {
	Node
	typeNode()
}

// TypeOf returns the resolved type of a checked expression.
func TypeOf(e Expr[Typed]) types.Type {
	return e.Meta().Type
}

// File represents a parsed compilation unit.
type File[P Phase] struct {
	Stmts []Stmt[P]
	span  lexer.Span
}

func (f *File[P]) Span() lexer.Span        { return f.span }
func (f *File[P]) SetSpan(span lexer.Span) { f.span = span }

// NewFile constructs a file node with the provided span.
func NewFile[P Phase](span lexer.Span) *File[P] {
	return &File[P]{span: span}
}

// LitKind discriminates literal expressions.
type LitKind int

const (
	LitI32 LitKind = iota
	LitI64
	LitDecimal
	LitBool
	LitString
	LitChar
)

// Literal is a primary literal expression. Int/Dec/Bool carry the decoded
// value for the kinds that use them; Text keeps the decoded text for
// string/char literals.
type Literal[P Phase] struct {
	Kind LitKind
	Int  int64
	Dec  float64
	Bool bool
	Text string
	meta P
	span lexer.Span
}

func (l *Literal[P]) Span() lexer.Span { return l.span }
func (l *Literal[P]) Meta() P          { return l.meta }
func (*Literal[P]) exprNode(P)         {}

func NewLiteral[P Phase](kind LitKind, meta P, span lexer.Span) *Literal[P] {
	return &Literal[P]{Kind: kind, meta: meta, span: span}
}

// Ident is an identifier reference.
type Ident[P Phase] struct {
	Name string
	meta P
	span lexer.Span
}

func (i *Ident[P]) Span() lexer.Span { return i.span }
func (i *Ident[P]) Meta() P          { return i.meta }
func (*Ident[P]) exprNode(P)         {}

func NewIdent[P Phase](name string, meta P, span lexer.Span) *Ident[P] {
	return &Ident[P]{Name: name, meta: meta, span: span}
}

// Unary is a prefix operator expression (negation).
type Unary[P Phase] struct {
	Op      lexer.TokenType
	Operand Expr[P]
	meta    P
	span    lexer.Span
}

func (u *Unary[P]) Span() lexer.Span { return u.span }
func (u *Unary[P]) Meta() P          { return u.meta }
func (*Unary[P]) exprNode(P)         {}

func NewUnary[P Phase](op lexer.TokenType, operand Expr[P], meta P, span lexer.Span) *Unary[P] {
	return &Unary[P]{Op: op, Operand: operand, meta: meta, span: span}
}

// Binary is an infix operator expression.
type Binary[P Phase] struct {
	Op    lexer.TokenType
	Left  Expr[P]
	Right Expr[P]
	meta  P
	span  lexer.Span
}

func (b *Binary[P]) Span() lexer.Span { return b.span }
func (b *Binary[P]) Meta() P          { return b.meta }
func (*Binary[P]) exprNode(P)         {}

func NewBinary[P Phase](op lexer.TokenType, left, right Expr[P], meta P, span lexer.Span) *Binary[P] {
	return &Binary[P]{Op: op, Left: left, Right: right, meta: meta, span: span}
}

// Group is a parenthesized expression. It resets operator precedence during
// parsing and is kept in the tree so spans stay faithful to the source.
type Group[P Phase] struct {
	Inner Expr[P]
	meta  P
	span  lexer.Span
}

func (g *Group[P]) Span() lexer.Span { return g.span }
func (g *Group[P]) Meta() P          { return g.meta }
func (*Group[P]) exprNode(P)         {}

func NewGroup[P Phase](inner Expr[P], meta P, span lexer.Span) *Group[P] {
	return &Group[P]{Inner: inner, meta: meta, span: span}
}

// Block is a brace-delimited statement sequence with an optional trailing
// expression. The block's value is its tail expression, or unit if absent.
type Block[P Phase] struct {
	Stmts []Stmt[P]
	Tail  Expr[P] // nil when the block has no trailing expression
	meta  P
	span  lexer.Span
}

func (b *Block[P]) Span() lexer.Span        { return b.span }
func (b *Block[P]) SetSpan(span lexer.Span) { b.span = span }
func (b *Block[P]) Meta() P                 { return b.meta }
func (b *Block[P]) SetMeta(meta P)          { b.meta = meta }
func (*Block[P]) exprNode(P)                {}

func NewBlock[P Phase](stmts []Stmt[P], tail Expr[P], meta P, span lexer.Span) *Block[P] {
	return &Block[P]{Stmts: stmts, Tail: tail, meta: meta, span: span}
}

// Ternary is the conditional expression `truthy if cond else falsy`. Both
// branches are required.
type Ternary[P Phase] struct {
	Truthy Expr[P]
	Cond   Expr[P]
	Falsy  Expr[P]
	meta   P
	span   lexer.Span
}

func (t *Ternary[P]) Span() lexer.Span { return t.span }
func (t *Ternary[P]) Meta() P          { return t.meta }
func (*Ternary[P]) exprNode(P)         {}

func NewTernary[P Phase](truthy, cond, falsy Expr[P], meta P, span lexer.Span) *Ternary[P] {
	return &Ternary[P]{Truthy: truthy, Cond: cond, Falsy: falsy, meta: meta, span: span}
}

// Call is a function application.
type Call[P Phase] struct {
	Callee Expr[P]
	Args   []Expr[P]
	meta   P
	span   lexer.Span
}

func (c *Call[P]) Span() lexer.Span { return c.span }
func (c *Call[P]) Meta() P          { return c.meta }
func (*Call[P]) exprNode(P)         {}

func NewCall[P Phase](callee Expr[P], args []Expr[P], meta P, span lexer.Span) *Call[P] {
	return &Call[P]{Callee: callee, Args: args, meta: meta, span: span}
}
