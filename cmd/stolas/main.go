// Command stolas is the compiler driver: it builds and runs Stolas modules,
// links object files through the system toolchain, hosts an interactive
// session and recompiles on change in watch mode.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/peterh/liner"

	"github.com/stolas-lang/stolas/internal/diag"
	"github.com/stolas-lang/stolas/internal/ir"
	"github.com/stolas-lang/stolas/internal/link"
	"github.com/stolas-lang/stolas/internal/pipeline"
	"github.com/stolas-lang/stolas/internal/run"
)

const usage = `stolas - the Stolas compiler

Usage:
  stolas build [-emit-ir] [-o file] <dir|file>   compile a module
  stolas run <dir|file>                          compile and execute main
  stolas repl                                    interactive session
  stolas watch <dir>                             recompile on change
  stolas link -o <file> <object>...              link objects into an executable
  stolas version                                 print the compiler version
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "build":
		err = cmdBuild(os.Args[2:])
	case "run":
		err = cmdRun(os.Args[2:])
	case "repl":
		err = cmdRepl()
	case "watch":
		err = cmdWatch(os.Args[2:])
	case "link":
		err = cmdLink(os.Args[2:])
	case "version":
		fmt.Println("stolas", pipeline.Version)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}

// errReported marks failures whose details were already rendered as
// diagnostics.
var errReported = errors.New("compilation failed")

// compile builds a module from a directory or a single file.
func compile(p *pipeline.Pipeline, target string) (*ir.Module, []diag.Diagnostic, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, nil, err
	}

	if info.IsDir() {
		return p.CompileDir(context.Background(), target)
	}

	src, err := os.ReadFile(target)
	if err != nil {
		return nil, nil, err
	}
	module, diags := p.Compile(target, string(src))
	return module, diags, nil
}

func report(p *pipeline.Pipeline, diags []diag.Diagnostic) error {
	if len(diags) == 0 {
		return nil
	}
	f := diag.NewFormatter(os.Stderr, p.Sources())
	f.FormatAll(diags)
	if diag.HasErrors(diags) {
		return errReported
	}
	return nil
}

func cmdBuild(args []string) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	emitIR := fs.Bool("emit-ir", false, "print the SSA module instead of writing it")
	out := fs.String("o", "", "output file (defaults to <module>.ir)")
	fs.Parse(args)

	target := "."
	if fs.NArg() > 0 {
		target = fs.Arg(0)
	}

	p := pipeline.New()
	module, diags, err := compile(p, target)
	if err != nil {
		return err
	}
	if rerr := report(p, diags); rerr != nil {
		return rerr
	}

	if *emitIR {
		fmt.Print(module.String())
		return nil
	}

	path := *out
	if path == "" {
		base := strings.TrimSuffix(filepath.Base(target), pipeline.SourceExt)
		if base == "." {
			base = "module"
		}
		path = base + ".ir"
	}
	return os.WriteFile(path, []byte(module.String()), 0o644)
}

func cmdRun(args []string) error {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}

	p := pipeline.New()
	module, diags, err := compile(p, target)
	if err != nil {
		return err
	}
	if rerr := report(p, diags); rerr != nil {
		return rerr
	}

	runner := run.NewRunner()
	val, err := runner.Run(module)
	if err != nil {
		return err
	}
	if val.Type != ir.TypeUnit {
		fmt.Println(val.String())
	}
	return nil
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".stolas_history")
}

func cmdRepl() error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	history := historyPath()
	if history != "" {
		if f, err := os.Open(history); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
	}

	session := pipeline.NewReplSession(os.Stdout)
	formatter := diag.NewFormatter(os.Stderr, session.Sources())

	fmt.Println("stolas", pipeline.Version, "- :quit to exit")
	for {
		input, err := line.Prompt(">> ")
		if err != nil {
			// Ctrl+C aborts the line, Ctrl+D ends the session.
			if err == liner.ErrPromptAborted {
				continue
			}
			break
		}
		if strings.TrimSpace(input) == ":quit" {
			break
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}

		result, diags, err := session.Eval(input)
		formatter.FormatAll(diags)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		if result != "" {
			fmt.Println(result)
		}
	}

	if history != "" {
		if f, err := os.Create(history); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}
	return nil
}

func cmdWatch(args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	rebuild := func() {
		p := pipeline.New()
		_, diags, err := compile(p, dir)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return
		}
		if rerr := report(p, diags); rerr == nil {
			fmt.Println("ok")
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	if err := watcher.Add(dir); err != nil {
		return err
	}

	fmt.Println("watching", dir)
	rebuild()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantChange(event) {
				continue
			}
			fmt.Println("--", filepath.Base(event.Name), "changed")
			rebuild()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(os.Stderr, "watch error:", err)
		}
	}
}

func relevantChange(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
		return false
	}
	name := filepath.Base(event.Name)
	return filepath.Ext(name) == pipeline.SourceExt || name == pipeline.ManifestName
}

func cmdLink(args []string) error {
	fs := flag.NewFlagSet("link", flag.ExitOnError)
	out := fs.String("o", "a.out", "output executable")
	fs.Parse(args)

	if fs.NArg() == 0 {
		return errors.New("link: no object files given")
	}
	return link.New().Link(fs.Args(), *out)
}
