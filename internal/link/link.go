// Package link drives the system toolchain to combine object files into an
// executable. Linking is a subprocess boundary: every failure mode maps to a
// distinct error type so callers can tell a missing toolchain from a missing
// input from a link failure.
package link

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// defaultCandidates are probed in order; the first that answers --version
// wins.
var defaultCandidates = []string{"cc", "gcc", "clang"}

// NoLinkerFoundError means no candidate toolchain answered the probe.
type NoLinkerFoundError struct {
	Tried []string
}

func (e *NoLinkerFoundError) Error() string {
	return "no system linker found (tried " + strings.Join(e.Tried, ", ") + ")"
}

// IoError means an input object could not be read.
type IoError struct {
	Path string
	Err  error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("cannot read object '%s': %v", e.Path, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// FailedToLinkError means the toolchain ran but rejected the link.
type FailedToLinkError struct {
	Linker string
	Output string
	Err    error
}

func (e *FailedToLinkError) Error() string {
	msg := fmt.Sprintf("%s failed to link: %v", e.Linker, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *FailedToLinkError) Unwrap() error { return e.Err }

// Option configures a Linker.
type Option func(*Linker)

// WithCandidates overrides the probed toolchain names.
func WithCandidates(names ...string) Option {
	return func(l *Linker) {
		l.candidates = names
	}
}

// WithExec overrides subprocess execution; tests inject a fake here.
func WithExec(run func(name string, args ...string) ([]byte, error)) Option {
	return func(l *Linker) {
		l.run = run
	}
}

// WithStat overrides input probing; tests inject a fake here.
func WithStat(stat func(path string) error) Option {
	return func(l *Linker) {
		l.stat = stat
	}
}

// Linker locates a system toolchain and invokes it.
type Linker struct {
	candidates []string
	run        func(name string, args ...string) ([]byte, error)
	stat       func(path string) error
}

// New creates a linker with the default probe order.
func New(opts ...Option) *Linker {
	l := &Linker{
		candidates: defaultCandidates,
		run: func(name string, args ...string) ([]byte, error) {
			return exec.Command(name, args...).CombinedOutput()
		},
		stat: func(path string) error {
			_, err := os.Stat(path)
			return err
		},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Detect probes the candidates with --version and returns the first that
// responds.
func (l *Linker) Detect() (string, error) {
	for _, name := range l.candidates {
		if _, err := l.run(name, "--version"); err == nil {
			return name, nil
		}
	}
	return "", &NoLinkerFoundError{Tried: l.candidates}
}

// Link combines the object files into an executable at out.
func (l *Linker) Link(objects []string, out string) error {
	for _, obj := range objects {
		if err := l.stat(obj); err != nil {
			return &IoError{Path: obj, Err: err}
		}
	}

	linker, err := l.Detect()
	if err != nil {
		return err
	}

	args := append([]string{"-o", out}, objects...)
	output, err := l.run(linker, args...)
	if err != nil {
		return &FailedToLinkError{Linker: linker, Output: string(output), Err: err}
	}
	return nil
}
