package types

import (
	"sort"
	"strings"
)

// Type is the closed set of Stolas types. Equality is structural for struct
// types (field order does not matter) and tag-based (plus referenced name)
// for everything else.
type Type interface {
	Equal(Type) bool
	String() string
	typeNode()
}

// Primitive is a built-in scalar type. The package-level singletons below
// are the only instances; comparing them by pointer is safe but Equal is
// the supported operation.
type Primitive struct {
	name string
}

func (p *Primitive) typeNode()      {}
func (p *Primitive) String() string { return p.name }

func (p *Primitive) Equal(other Type) bool {
	o, ok := other.(*Primitive)
	return ok && o.name == p.name
}

var (
	Unit    = &Primitive{name: "unit"}
	Bool    = &Primitive{name: "bool"}
	I32     = &Primitive{name: "i32"}
	I64     = &Primitive{name: "i64"}
	Decimal = &Primitive{name: "dec"}
	String  = &Primitive{name: "str"}
	Char    = &Primitive{name: "char"}
)

// Symbol is a named nominal type (enum or trait reference).
type Symbol struct {
	Name string
}

func (s *Symbol) typeNode()      {}
func (s *Symbol) String() string { return s.Name }

func (s *Symbol) Equal(other Type) bool {
	o, ok := other.(*Symbol)
	return ok && o.Name == s.Name
}

// Generic is a placeholder type parameter referenced by name.
type Generic struct {
	Name string
}

func (g *Generic) typeNode()      {}
func (g *Generic) String() string { return g.Name }

func (g *Generic) Equal(other Type) bool {
	o, ok := other.(*Generic)
	return ok && o.Name == g.Name
}

// Field is a named struct member.
type Field struct {
	Name string
	Type Type
}

// Struct is a record type with ordered fields. Declaration order is kept
// for layout, but equality is order-independent.
type Struct struct {
	Name   string
	Fields []Field
}

func (s *Struct) typeNode() {}

func (s *Struct) String() string {
	var b strings.Builder
	b.WriteString("struct ")
	b.WriteString(s.Name)
	b.WriteString(" {")
	for i, f := range s.Fields {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(" ")
		b.WriteString(f.Name)
		b.WriteString(" ~ ")
		b.WriteString(f.Type.String())
	}
	b.WriteString(" }")
	return b.String()
}

func (s *Struct) Equal(other Type) bool {
	o, ok := other.(*Struct)
	if !ok || len(o.Fields) != len(s.Fields) {
		return false
	}

	a := sortedFields(s.Fields)
	b := sortedFields(o.Fields)
	for i := range a {
		if a[i].Name != b[i].Name || !a[i].Type.Equal(b[i].Type) {
			return false
		}
	}
	return true
}

func sortedFields(fields []Field) []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Function is the type of a function value (a declared function referenced
// as a value, or a closure). It exists so identifiers resolving to functions
// can participate in expression checking; it is not part of the surface
// annotation syntax.
type Function struct {
	Params []Type
	Return Type
}

func (f *Function) typeNode() {}

func (f *Function) String() string {
	var b strings.Builder
	b.WriteString("fn(")
	for i, p := range f.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteString(") -> ")
	b.WriteString(f.Return.String())
	return b.String()
}

func (f *Function) Equal(other Type) bool {
	o, ok := other.(*Function)
	if !ok || len(o.Params) != len(f.Params) {
		return false
	}
	for i := range f.Params {
		if !f.Params[i].Equal(o.Params[i]) {
			return false
		}
	}
	return f.Return.Equal(o.Return)
}

// IsNumeric reports whether t supports arithmetic instructions.
func IsNumeric(t Type) bool {
	return I32.Equal(t) || I64.Equal(t) || Decimal.Equal(t)
}

// IsInteger reports whether t is an integer type.
func IsInteger(t Type) bool {
	return I32.Equal(t) || I64.Equal(t)
}
