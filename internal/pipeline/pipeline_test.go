package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stolas-lang/stolas/internal/diag"
	"github.com/stolas-lang/stolas/internal/run"
)

func TestCompileAndRun(t *testing.T) {
	p := New()
	module, diags := p.Compile("main.st", `
fn fib(n ~ i32) -> i32 {
	fib(n - 1) + fib(n - 2) if n > 1 else n
}
fn main() -> i32 { fib(10) }
`)
	if diag.HasErrors(diags) {
		t.Fatalf("diagnostics: %v", diags)
	}

	val, err := run.NewRunner().Run(module)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if val.Int != 55 {
		t.Errorf("got %d, want 55", val.Int)
	}
}

func TestCompileReportsTypeErrors(t *testing.T) {
	p := New()
	module, diags := p.Compile("main.st", "fn main() -> i32 { 1 + true }")
	if module != nil {
		t.Error("no module should come out of a failed compile")
	}
	if !diag.HasErrors(diags) {
		t.Fatal("expected diagnostics")
	}
	if diags[0].Code != diag.CodeTypeMismatchedTypes {
		t.Errorf("got %v", diags[0].Code)
	}
}

func TestCompileStopsAfterParseErrors(t *testing.T) {
	p := New()
	_, diags := p.Compile("main.st", "fn main( { }")
	if !diag.HasErrors(diags) {
		t.Fatal("expected diagnostics")
	}
	for _, d := range diags {
		if d.Stage == diag.StageTypeCheck {
			t.Error("type checking should not run after a parse failure")
		}
	}
}

func TestSourcesRegistered(t *testing.T) {
	p := New()
	p.Compile("main.st", "fn main() { }")
	if _, ok := p.Sources().Get("main.st"); !ok {
		t.Error("compiled source missing from the source map")
	}
}

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestCompileDirMergesFiles(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		// main.st references a function defined in a sibling file.
		"main.st": "fn main() -> i32 { double(21) }",
		"lib.st":  "fn double(x ~ i32) -> i32 { x * 2 }",
		"note.md": "not a source file",
	})

	module, diags, err := New().CompileDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("compile dir: %v", err)
	}
	if diag.HasErrors(diags) {
		t.Fatalf("diagnostics: %v", diags)
	}

	val, err := run.NewRunner().Run(module)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if val.Int != 42 {
		t.Errorf("got %d, want 42", val.Int)
	}
}

func TestCompileDirEmpty(t *testing.T) {
	_, _, err := New().CompileDir(context.Background(), t.TempDir())
	if err == nil || !strings.Contains(err.Error(), SourceExt) {
		t.Fatalf("expected a no-sources error, got %v", err)
	}
}

func TestCompileDirDiagnosticsNameTheFile(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"bad.st":  "fn broken() -> i32 { true }",
		"good.st": "fn main() { }",
	})

	_, diags, err := New().CompileDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("compile dir: %v", err)
	}
	if !diag.HasErrors(diags) {
		t.Fatal("expected diagnostics")
	}
	if src := diags[0].Span.Source; !strings.HasSuffix(src, "bad.st") {
		t.Errorf("diagnostic source %q, want bad.st", src)
	}
}

func TestManifestGatesCompile(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.st":    "fn main() { }",
		ManifestName: `{"name": "demo", "compiler": ">= 0.1"}`,
	})
	if _, _, err := New().CompileDir(context.Background(), dir); err != nil {
		t.Fatalf("satisfiable constraint rejected: %v", err)
	}

	dir = writeFiles(t, map[string]string{
		"main.st":    "fn main() { }",
		ManifestName: `{"name": "demo", "compiler": "< 0.1"}`,
	})
	_, _, err := New().CompileDir(context.Background(), dir)
	if err == nil || !strings.Contains(err.Error(), "requires compiler") {
		t.Fatalf("unsatisfiable constraint accepted: %v", err)
	}
}

func TestManifestMalformed(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"main.st":    "fn main() { }",
		ManifestName: "{not json",
	})
	if _, _, err := New().CompileDir(context.Background(), dir); err == nil {
		t.Fatal("malformed manifest accepted")
	}
}

func TestManifestVersionValidated(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		ManifestName: `{"name": "demo", "version": "not.a.version"}`,
	})
	if _, err := LoadManifest(dir); err == nil {
		t.Fatal("invalid module version accepted")
	}
}

func TestLoadManifestMissing(t *testing.T) {
	m, err := LoadManifest(t.TempDir())
	if err != nil {
		t.Fatalf("missing manifest is not an error: %v", err)
	}
	if m != nil {
		t.Errorf("got %+v, want nil", m)
	}
}

func TestReplDeclareThenEvaluate(t *testing.T) {
	var out bytes.Buffer
	r := NewReplSession(&out)

	echo, diags, err := r.Eval("fn double(x ~ i32) -> i32 { x * 2 }")
	if err != nil || diag.HasErrors(diags) {
		t.Fatalf("declaration: %v %v", err, diags)
	}
	if echo != "" {
		t.Errorf("declarations echo nothing, got %q", echo)
	}

	echo, diags, err = r.Eval("double(21)")
	if err != nil || diag.HasErrors(diags) {
		t.Fatalf("expression: %v %v", err, diags)
	}
	if echo != "42" {
		t.Errorf("echo %q, want 42", echo)
	}
}

func TestReplLetPersists(t *testing.T) {
	var out bytes.Buffer
	r := NewReplSession(&out)

	if _, diags, _ := r.Eval("let base = 40;"); diag.HasErrors(diags) {
		t.Fatalf("let: %v", diags)
	}
	echo, diags, err := r.Eval("base + 2")
	if err != nil || diag.HasErrors(diags) {
		t.Fatalf("expression: %v %v", err, diags)
	}
	if echo != "42" {
		t.Errorf("echo %q, want 42", echo)
	}
}

func TestReplRejectedLineDoesNotPoison(t *testing.T) {
	var out bytes.Buffer
	r := NewReplSession(&out)

	_, diags, err := r.Eval("fn bad() -> i32 { true }")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !diag.HasErrors(diags) {
		t.Fatal("expected diagnostics from the bad declaration")
	}

	// The session still works, and the bad name never entered it.
	echo, diags, err := r.Eval("1 + 1")
	if err != nil || diag.HasErrors(diags) {
		t.Fatalf("session poisoned: %v %v", err, diags)
	}
	if echo != "2" {
		t.Errorf("echo %q, want 2", echo)
	}
	if _, diags, _ := r.Eval("bad()"); !diag.HasErrors(diags) {
		t.Error("rejected declaration is still visible")
	}
}

func TestReplExpressionErrors(t *testing.T) {
	var out bytes.Buffer
	r := NewReplSession(&out)

	_, diags, err := r.Eval("missing + 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !diag.HasErrors(diags) || diags[0].Code != diag.CodeTypeUndefinedIdentifier {
		t.Errorf("got %v", diags)
	}
}

func TestReplUnitExpressionEchoesNothing(t *testing.T) {
	var out bytes.Buffer
	r := NewReplSession(&out)

	echo, diags, err := r.Eval("write(7)")
	if err != nil || diag.HasErrors(diags) {
		t.Fatalf("write: %v %v", err, diags)
	}
	if echo != "" {
		t.Errorf("unit expression echoed %q", echo)
	}
	if out.String() != "7\n" {
		t.Errorf("program output %q, want \"7\\n\"", out.String())
	}
}

func TestReplRuntimeError(t *testing.T) {
	var out bytes.Buffer
	r := NewReplSession(&out)

	_, _, err := r.Eval("1 / 0")
	if err == nil || !strings.Contains(err.Error(), "division by zero") {
		t.Fatalf("got %v", err)
	}
}

func TestReplBlankLine(t *testing.T) {
	var out bytes.Buffer
	r := NewReplSession(&out)

	echo, diags, err := r.Eval("   ")
	if echo != "" || diags != nil || err != nil {
		t.Errorf("blank line: %q %v %v", echo, diags, err)
	}
}
