// Package run is the execution boundary: it runs compiled modules and turns
// runtime faults into errors instead of letting them unwind the host. The
// compiler proper never observes a panic from executing user code.
package run

import (
	"fmt"
	"io"

	"github.com/stolas-lang/stolas/internal/interp"
	"github.com/stolas-lang/stolas/internal/ir"
)

// RuntimeError is a fault raised while executing compiled code.
type RuntimeError struct {
	Msg string
}

func (e *RuntimeError) Error() string {
	return "runtime error: " + e.Msg
}

// Runner executes a compiled module's entry point.
type Runner interface {
	Run(module *ir.Module) (interp.Value, error)
}

// Option configures a runner or session.
type Option func(*config)

type config struct {
	out io.Writer
}

// WithOutput redirects program output. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		c.out = w
	}
}

// MachineRunner executes modules on the reference machine.
type MachineRunner struct {
	cfg config
}

// NewRunner creates the default runner.
func NewRunner(opts ...Option) *MachineRunner {
	r := &MachineRunner{}
	for _, opt := range opts {
		opt(&r.cfg)
	}
	return r
}

func (r *MachineRunner) machineOpts() []interp.Option {
	if r.cfg.out == nil {
		return nil
	}
	return []interp.Option{interp.WithOutput(r.cfg.out)}
}

// Run executes the module's main function.
func (r *MachineRunner) Run(module *ir.Module) (val interp.Value, err error) {
	defer recoverFault(&err)
	if module.Func("main") == nil {
		return interp.Unit, &RuntimeError{Msg: "module has no 'main' function"}
	}
	return interp.New(module, r.machineOpts()...).Run(), nil
}

// Session keeps one machine alive across calls so globals and definitions
// persist; the interactive loop is built on it. The module may grow between
// calls, new functions become callable immediately.
type Session struct {
	machine *interp.Machine
}

// NewSession creates a session over the module.
func NewSession(module *ir.Module, opts ...Option) *Session {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	var mopts []interp.Option
	if cfg.out != nil {
		mopts = append(mopts, interp.WithOutput(cfg.out))
	}
	return &Session{machine: interp.New(module, mopts...)}
}

// Call executes one function in the session, isolating faults.
func (s *Session) Call(name string, args []interp.Value) (val interp.Value, err error) {
	defer recoverFault(&err)
	return s.machine.Call(name, args), nil
}

// recoverFault converts an interpreter fault into a RuntimeError. Anything
// that is not a fault is a backend bug and keeps unwinding.
func recoverFault(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if f, ok := r.(interp.Fault); ok {
		*err = &RuntimeError{Msg: f.Msg}
		return
	}
	panic(fmt.Sprintf("run: unexpected panic from compiled code: %v", r))
}
