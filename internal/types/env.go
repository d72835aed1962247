package types

import "github.com/stolas-lang/stolas/internal/lexer"

// Signature is a registered function's full signature. Functions get their
// own table (separate from variables) so they can be pre-registered before
// their bodies are checked, enabling recursion and forward references.
type Signature struct {
	Name   string
	Params []Type
	Return Type
	Span   lexer.Span // declaration site, for duplicate reporting
}

// Func returns the value type of a reference to this function.
func (s *Signature) Func() *Function {
	return &Function{Params: s.Params, Return: s.Return}
}

// Environment is one frame of the scope chain: its own bindings plus a
// parent with strictly greater lifetime. Lookup walks innermost to
// outermost; the first match wins, so inner bindings shadow outer ones.
// A child environment is created per block or function entry and discarded
// when the block exits.
type Environment struct {
	parent    *Environment
	variables map[string]Type
	varSpans  map[string]lexer.Span
	functions map[string]*Signature
}

// NewEnvironment creates a root environment.
func NewEnvironment() *Environment {
	return &Environment{
		variables: make(map[string]Type),
		varSpans:  make(map[string]lexer.Span),
		functions: make(map[string]*Signature),
	}
}

// Child creates a nested environment whose lookups fall through to e.
func (e *Environment) Child() *Environment {
	env := NewEnvironment()
	env.parent = e
	return env
}

// Parent returns the enclosing environment, or nil at the root.
func (e *Environment) Parent() *Environment { return e.parent }

// DefineVariable binds a name in this frame, shadowing any outer binding.
func (e *Environment) DefineVariable(name string, t Type, span lexer.Span) {
	e.variables[name] = t
	e.varSpans[name] = span
}

// DefineFunction registers a signature in this frame. If the name is already
// registered in this same frame, the prior signature is returned and the
// registration is rejected.
func (e *Environment) DefineFunction(sig *Signature) (prior *Signature, ok bool) {
	if existing, exists := e.functions[sig.Name]; exists {
		return existing, false
	}
	e.functions[sig.Name] = sig
	return nil, true
}

// LookupVariable resolves a variable name through the scope chain.
func (e *Environment) LookupVariable(name string) (Type, bool) {
	t, _, ok := e.LookupVariableEnv(name)
	return t, ok
}

// LookupVariableEnv resolves a variable and reports the frame that owns the
// binding. The owning frame lets the checker decide whether a reference
// crosses a function boundary (a capture).
func (e *Environment) LookupVariableEnv(name string) (Type, *Environment, bool) {
	for env := e; env != nil; env = env.parent {
		if t, ok := env.variables[name]; ok {
			return t, env, true
		}
	}
	return nil, nil, false
}

// VariableSpan returns the declaration site of a variable visible from e.
func (e *Environment) VariableSpan(name string) (lexer.Span, bool) {
	for env := e; env != nil; env = env.parent {
		if s, ok := env.varSpans[name]; ok {
			return s, true
		}
	}
	return lexer.Span{}, false
}

// LookupFunction resolves a function signature through the scope chain.
func (e *Environment) LookupFunction(name string) (*Signature, bool) {
	for env := e; env != nil; env = env.parent {
		if sig, ok := env.functions[name]; ok {
			return sig, true
		}
	}
	return nil, false
}
