package link

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
)

// fakeExec records invocations and answers from a canned table keyed by
// command name.
type fakeExec struct {
	calls  []string
	probes map[string]bool // which candidates answer --version
	link   func(name string, args []string) ([]byte, error)
}

func (f *fakeExec) run(name string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, name+" "+strings.Join(args, " "))
	if len(args) == 1 && args[0] == "--version" {
		if f.probes[name] {
			return []byte(name + " version 1.0"), nil
		}
		return nil, errors.New("executable file not found")
	}
	if f.link != nil {
		return f.link(name, args)
	}
	return nil, nil
}

func statOK(string) error { return nil }

func TestDetectPicksFirstResponder(t *testing.T) {
	fake := &fakeExec{probes: map[string]bool{"gcc": true, "clang": true}}
	l := New(WithExec(fake.run))

	name, err := l.Detect()
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if name != "gcc" {
		t.Errorf("got %q, want gcc (cc does not respond)", name)
	}
}

func TestDetectExhaustsCandidates(t *testing.T) {
	fake := &fakeExec{probes: map[string]bool{}}
	l := New(WithCandidates("cc", "gcc"), WithExec(fake.run))

	_, err := l.Detect()
	var nf *NoLinkerFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NoLinkerFoundError, got %v", err)
	}
	if len(nf.Tried) != 2 || nf.Tried[0] != "cc" {
		t.Errorf("tried = %v", nf.Tried)
	}
	if !strings.Contains(err.Error(), "cc, gcc") {
		t.Errorf("message: %q", err.Error())
	}
}

func TestLinkAssemblesCommand(t *testing.T) {
	fake := &fakeExec{probes: map[string]bool{"cc": true}}
	l := New(WithExec(fake.run), WithStat(statOK))

	if err := l.Link([]string{"a.o", "b.o"}, "prog"); err != nil {
		t.Fatalf("link: %v", err)
	}

	want := "cc -o prog a.o b.o"
	if fake.calls[len(fake.calls)-1] != want {
		t.Errorf("final call %q, want %q", fake.calls[len(fake.calls)-1], want)
	}
}

func TestLinkMissingObject(t *testing.T) {
	fake := &fakeExec{probes: map[string]bool{"cc": true}}
	l := New(WithExec(fake.run), WithStat(func(path string) error {
		if path == "gone.o" {
			return fs.ErrNotExist
		}
		return nil
	}))

	err := l.Link([]string{"ok.o", "gone.o"}, "prog")
	var ioErr *IoError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected *IoError, got %v", err)
	}
	if ioErr.Path != "gone.o" {
		t.Errorf("path = %q", ioErr.Path)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Error("cause not preserved through Unwrap")
	}
	if len(fake.calls) != 0 {
		t.Errorf("no subprocess should run before inputs are verified: %v", fake.calls)
	}
}

func TestLinkToolchainFailure(t *testing.T) {
	fake := &fakeExec{
		probes: map[string]bool{"cc": true},
		link: func(name string, args []string) ([]byte, error) {
			return []byte("undefined reference to 'main'"), fmt.Errorf("exit status 1")
		},
	}
	l := New(WithExec(fake.run), WithStat(statOK))

	err := l.Link([]string{"a.o"}, "prog")
	var fl *FailedToLinkError
	if !errors.As(err, &fl) {
		t.Fatalf("expected *FailedToLinkError, got %v", err)
	}
	if fl.Linker != "cc" {
		t.Errorf("linker = %q", fl.Linker)
	}
	if !strings.Contains(err.Error(), "undefined reference") {
		t.Errorf("toolchain output lost: %q", err.Error())
	}
}

func TestLinkWithoutToolchain(t *testing.T) {
	fake := &fakeExec{probes: map[string]bool{}}
	l := New(WithExec(fake.run), WithStat(statOK))

	err := l.Link([]string{"a.o"}, "prog")
	var nf *NoLinkerFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NoLinkerFoundError, got %v", err)
	}
}
