package ast

import (
	"github.com/stolas-lang/stolas/internal/lexer"
	"github.com/stolas-lang/stolas/internal/types"
)

// Visibility of a declaration.
type Visibility int

const (
	Private Visibility = iota
	Public             // pub
	Module             // pub mod
)

// ExprStmt is an expression used as a statement.
type ExprStmt[P Phase] struct {
	Expr Expr[P]
	span lexer.Span
}

func (s *ExprStmt[P]) Span() lexer.Span { return s.span }
func (*ExprStmt[P]) stmtNode(P)         {}

func NewExprStmt[P Phase](expr Expr[P], span lexer.Span) *ExprStmt[P] {
	return &ExprStmt[P]{Expr: expr, span: span}
}

// ScopeStmt is a bare block used as a statement; it introduces a scope and
// discards the block's value.
type ScopeStmt[P Phase] struct {
	Block *Block[P]
	span  lexer.Span
}

func (s *ScopeStmt[P]) Span() lexer.Span { return s.span }
func (*ScopeStmt[P]) stmtNode(P)         {}

func NewScopeStmt[P Phase](block *Block[P], span lexer.Span) *ScopeStmt[P] {
	return &ScopeStmt[P]{Block: block, span: span}
}

// LetStmt is a value binding: `let name [~ Type] = expr;`.
type LetStmt[P Phase] struct {
	Vis      Visibility
	Name     string
	NameSpan lexer.Span
	Type     TypeExpr // nil when the type is inferred
	Value    Expr[P]
	span     lexer.Span
}

func (s *LetStmt[P]) Span() lexer.Span { return s.span }
func (*LetStmt[P]) stmtNode(P)         {}

func NewLetStmt[P Phase](vis Visibility, name string, nameSpan lexer.Span, typ TypeExpr, value Expr[P], span lexer.Span) *LetStmt[P] {
	return &LetStmt[P]{Vis: vis, Name: name, NameSpan: nameSpan, Type: typ, Value: value, span: span}
}

// Param is a function parameter: `name ~ Type`.
type Param struct {
	Name     string
	NameSpan lexer.Span
	Type     TypeExpr
	span     lexer.Span
}

func (p *Param) Span() lexer.Span { return p.span }

func NewParam(name string, nameSpan lexer.Span, typ TypeExpr, span lexer.Span) *Param {
	return &Param{Name: name, NameSpan: nameSpan, Type: typ, span: span}
}

// Capture is a free variable referenced inside a function body and resolved
// from an enclosing scope at the function's definition site. The checker
// records captures in definition order.
type Capture struct {
	Name string
	Type types.Type
	Span lexer.Span
}

// FnStmt is a function definition. Body is either a Block or a bare
// expression (single-expression bodies need no braces). Captures is empty
// until the checker runs and stays empty for top-level functions.
type FnStmt[P Phase] struct {
	Vis        Visibility
	Name       string
	NameSpan   lexer.Span
	Params     []*Param
	ReturnType TypeExpr // nil means unit
	Body       Expr[P]
	Captures   []Capture
	span       lexer.Span
}

func (s *FnStmt[P]) Span() lexer.Span { return s.span }
func (*FnStmt[P]) stmtNode(P)         {}

func NewFnStmt[P Phase](vis Visibility, name string, nameSpan lexer.Span, params []*Param, ret TypeExpr, body Expr[P], span lexer.Span) *FnStmt[P] {
	return &FnStmt[P]{Vis: vis, Name: name, NameSpan: nameSpan, Params: params, ReturnType: ret, Body: body, span: span}
}

// StructField is a named field in a struct declaration.
type StructField struct {
	Name     string
	NameSpan lexer.Span
	Type     TypeExpr
}

// StructStmt is a struct declaration.
type StructStmt[P Phase] struct {
	Vis      Visibility
	Name     string
	NameSpan lexer.Span
	Fields   []StructField
	span     lexer.Span
}

func (s *StructStmt[P]) Span() lexer.Span { return s.span }
func (*StructStmt[P]) stmtNode(P)         {}

func NewStructStmt[P Phase](vis Visibility, name string, nameSpan lexer.Span, fields []StructField, span lexer.Span) *StructStmt[P] {
	return &StructStmt[P]{Vis: vis, Name: name, NameSpan: nameSpan, Fields: fields, span: span}
}

// EnumVariant is a named member of an enum declaration.
type EnumVariant struct {
	Name string
	Span lexer.Span
}

// EnumStmt is an enum declaration listing named variants.
type EnumStmt[P Phase] struct {
	Vis      Visibility
	Name     string
	NameSpan lexer.Span
	Variants []EnumVariant
	span     lexer.Span
}

func (s *EnumStmt[P]) Span() lexer.Span { return s.span }
func (*EnumStmt[P]) stmtNode(P)         {}

func NewEnumStmt[P Phase](vis Visibility, name string, nameSpan lexer.Span, variants []EnumVariant, span lexer.Span) *EnumStmt[P] {
	return &EnumStmt[P]{Vis: vis, Name: name, NameSpan: nameSpan, Variants: variants, span: span}
}

// TraitMethod is a method signature inside a trait declaration.
type TraitMethod struct {
	Name     string
	NameSpan lexer.Span
	Params   []*Param
	Return   TypeExpr
}

// TraitStmt is a trait declaration listing method signatures.
type TraitStmt[P Phase] struct {
	Name     string
	NameSpan lexer.Span
	Methods  []TraitMethod
	span     lexer.Span
}

func (s *TraitStmt[P]) Span() lexer.Span { return s.span }
func (*TraitStmt[P]) stmtNode(P)         {}

func NewTraitStmt[P Phase](name string, nameSpan lexer.Span, methods []TraitMethod, span lexer.Span) *TraitStmt[P] {
	return &TraitStmt[P]{Name: name, NameSpan: nameSpan, Methods: methods, span: span}
}

// ReturnStmt returns from the enclosing function.
type ReturnStmt[P Phase] struct {
	Value Expr[P] // nil for bare return
	span  lexer.Span
}

func (s *ReturnStmt[P]) Span() lexer.Span { return s.span }
func (*ReturnStmt[P]) stmtNode(P)         {}

func NewReturnStmt[P Phase](value Expr[P], span lexer.Span) *ReturnStmt[P] {
	return &ReturnStmt[P]{Value: value, span: span}
}

// IfStmt is the conditional statement form: `if cond { } [else { }]`.
type IfStmt[P Phase] struct {
	Cond Expr[P]
	Then *Block[P]
	Else *Block[P] // nil when absent
	span lexer.Span
}

func (s *IfStmt[P]) Span() lexer.Span { return s.span }
func (*IfStmt[P]) stmtNode(P)         {}

func NewIfStmt[P Phase](cond Expr[P], then, els *Block[P], span lexer.Span) *IfStmt[P] {
	return &IfStmt[P]{Cond: cond, Then: then, Else: els, span: span}
}

// WhileStmt is the loop statement: `while cond { }`.
type WhileStmt[P Phase] struct {
	Cond Expr[P]
	Body *Block[P]
	span lexer.Span
}

func (s *WhileStmt[P]) Span() lexer.Span { return s.span }
func (*WhileStmt[P]) stmtNode(P)         {}

func NewWhileStmt[P Phase](cond Expr[P], body *Block[P], span lexer.Span) *WhileStmt[P] {
	return &WhileStmt[P]{Cond: cond, Body: body, span: span}
}

// ImportStmt brings another module's declarations into scope.
type ImportStmt[P Phase] struct {
	Path     string
	PathSpan lexer.Span
	span     lexer.Span
}

func (s *ImportStmt[P]) Span() lexer.Span { return s.span }
func (*ImportStmt[P]) stmtNode(P)         {}

func NewImportStmt[P Phase](path string, pathSpan, span lexer.Span) *ImportStmt[P] {
	return &ImportStmt[P]{Path: path, PathSpan: pathSpan, span: span}
}

// TypeAliasStmt is `type Name = Target;`.
type TypeAliasStmt[P Phase] struct {
	Vis      Visibility
	Name     string
	NameSpan lexer.Span
	Target   TypeExpr
	span     lexer.Span
}

func (s *TypeAliasStmt[P]) Span() lexer.Span { return s.span }
func (*TypeAliasStmt[P]) stmtNode(P)         {}

func NewTypeAliasStmt[P Phase](vis Visibility, name string, nameSpan lexer.Span, target TypeExpr, span lexer.Span) *TypeAliasStmt[P] {
	return &TypeAliasStmt[P]{Vis: vis, Name: name, NameSpan: nameSpan, Target: target, span: span}
}

// NamedType is a type annotation referencing a type by name.
type NamedType struct {
	Name string
	span lexer.Span
}

func (t *NamedType) Span() lexer.Span { return t.span }
func (*NamedType) typeNode()          {}

func NewNamedType(name string, span lexer.Span) *NamedType {
	return &NamedType{Name: name, span: span}
}
