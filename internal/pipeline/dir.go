package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/stolas-lang/stolas/internal/ast"
	"github.com/stolas-lang/stolas/internal/diag"
	"github.com/stolas-lang/stolas/internal/ir"
)

// SourceExt is the file extension of Stolas sources.
const SourceExt = ".st"

// DiscoverSources returns the module's source files in deterministic order.
func DiscoverSources(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading module directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != SourceExt {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

// CompileDir compiles every source file under dir as one program. Files are
// parsed in parallel, then merged in name order so declaration order is
// stable, and checked as a single unit. A manifest, when present, gates the
// compile on its compiler constraint.
func (p *Pipeline) CompileDir(ctx context.Context, dir string) (*ir.Module, []diag.Diagnostic, error) {
	manifest, err := LoadManifest(dir)
	if err != nil {
		return nil, nil, err
	}
	if manifest != nil {
		if err := manifest.CheckCompiler(Version); err != nil {
			return nil, nil, err
		}
	}

	paths, err := DiscoverSources(dir)
	if err != nil {
		return nil, nil, err
	}
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("no %s files in %s", SourceExt, dir)
	}

	type parsed struct {
		src   string
		file  *ast.File[ast.Untyped]
		diags []diag.Diagnostic
	}
	results := make([]parsed, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			file, diags := p.parse(path, string(src))
			results[i] = parsed{src: string(src), file: file, diags: diags}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	// The source map is not safe for concurrent writes; register texts only
	// after all parsers are done.
	for i, path := range paths {
		p.sources.Add(path, results[i].src)
	}

	var diags []diag.Diagnostic
	combined := ast.NewFile[ast.Untyped](results[0].file.Span())
	for _, r := range results {
		diags = append(diags, r.diags...)
		combined.Stmts = append(combined.Stmts, r.file.Stmts...)
		combined.SetSpan(combined.Span().Merge(r.file.Span()))
	}
	if diag.HasErrors(diags) {
		return nil, diags, nil
	}

	module, diags := p.compileFile(combined, diags)
	return module, diags, nil
}
