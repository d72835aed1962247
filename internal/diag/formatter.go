package diag

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// SourceMap maps source names to their full text. The pipeline registers the
// current module's files (and the REPL its input) so the formatter can show
// snippets for any span it encounters.
type SourceMap struct {
	sources map[string]string
}

// NewSourceMap creates an empty source map.
func NewSourceMap() *SourceMap {
	return &SourceMap{sources: make(map[string]string)}
}

// Add registers source text under a name.
func (m *SourceMap) Add(name, text string) {
	m.sources[name] = text
}

// Get returns the text registered under name.
func (m *SourceMap) Get(name string) (string, bool) {
	src, ok := m.sources[name]
	return src, ok
}

// Formatter renders diagnostics with source snippets and span underlines.
type Formatter struct {
	out     io.Writer
	sources *SourceMap
	color   bool
}

// NewFormatter creates a formatter writing to out. Color is enabled only
// when out is a terminal.
func NewFormatter(out io.Writer, sources *SourceMap) *Formatter {
	return &Formatter{
		out:     out,
		sources: sources,
		color:   isTerminal(out),
	}
}

// SetColor overrides terminal detection.
func (f *Formatter) SetColor(on bool) { f.color = on }

// FormatAll renders every diagnostic in order.
func (f *Formatter) FormatAll(diags []Diagnostic) {
	for _, d := range diags {
		f.Format(d)
	}
}

// Format renders a single diagnostic.
func (f *Formatter) Format(d Diagnostic) {
	f.printHeader(d)

	spans := f.collectSpans(d)
	if len(spans) > 0 {
		bySource := make(map[string][]LabeledSpan)
		var order []string
		for _, ls := range spans {
			name := ls.Span.Source
			if _, seen := bySource[name]; !seen {
				order = append(order, name)
			}
			bySource[name] = append(bySource[name], ls)
		}
		for _, name := range order {
			if src, ok := f.sources.Get(name); ok {
				f.printSourceSpans(name, src, bySource[name])
			} else {
				for _, ls := range bySource[name] {
					fmt.Fprintf(f.out, "  --> %s\n", ls.Span)
				}
			}
		}
	}

	for _, note := range d.Notes {
		fmt.Fprintf(f.out, "  = note: %s\n", note)
	}
	if d.Help != "" {
		fmt.Fprintf(f.out, "help: %s\n", d.Help)
	}
}

func (f *Formatter) collectSpans(d Diagnostic) []LabeledSpan {
	if len(d.LabeledSpans) > 0 {
		return d.LabeledSpans
	}
	if d.Span.IsValid() {
		return []LabeledSpan{{Span: d.Span, Style: "primary"}}
	}
	return nil
}

func (f *Formatter) printHeader(d Diagnostic) {
	severity := string(d.Severity)
	if severity == "" {
		severity = string(SeverityError)
	}

	sev := severity
	if f.color {
		switch d.Severity {
		case SeverityWarning:
			sev = "\x1b[33m" + severity + "\x1b[0m"
		case SeverityNote:
			sev = "\x1b[36m" + severity + "\x1b[0m"
		default:
			sev = "\x1b[31m" + severity + "\x1b[0m"
		}
	}

	if d.Code != "" {
		fmt.Fprintf(f.out, "%s[%s]: %s\n", sev, d.Code, d.Message)
	} else {
		fmt.Fprintf(f.out, "%s: %s\n", sev, d.Message)
	}
}

func (f *Formatter) printSourceSpans(name, src string, spans []LabeledSpan) {
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].Span.Line != spans[j].Span.Line {
			return spans[i].Span.Line < spans[j].Span.Line
		}
		return spans[i].Span.Column < spans[j].Span.Column
	})

	lines := strings.Split(src, "\n")

	byLine := make(map[int][]LabeledSpan)
	var lineNums []int
	for _, ls := range spans {
		line := ls.Span.Line
		if line < 1 || line > len(lines) {
			continue
		}
		if _, seen := byLine[line]; !seen {
			lineNums = append(lineNums, line)
		}
		byLine[line] = append(byLine[line], ls)
	}
	if len(lineNums) == 0 {
		return
	}
	sort.Ints(lineNums)

	width := len(fmt.Sprintf("%d", lineNums[len(lineNums)-1]))
	gutter := strings.Repeat(" ", width)

	fmt.Fprintf(f.out, "%s--> %s:%d:%d\n", gutter, name, spans[0].Span.Line, spans[0].Span.Column)
	fmt.Fprintf(f.out, "%s |\n", gutter)

	for _, line := range lineNums {
		content := lines[line-1]
		fmt.Fprintf(f.out, "%*d | %s\n", width, line, content)
		f.printUnderline(width, content, byLine[line])
	}

	fmt.Fprintf(f.out, "%s |\n", gutter)
}

func (f *Formatter) printUnderline(width int, content string, spans []LabeledSpan) {
	marks := make([]byte, len([]rune(content)))
	for i := range marks {
		marks[i] = ' '
	}

	mark := func(ls LabeledSpan, ch byte) {
		start := ls.Span.Column - 1
		length := ls.Span.End - ls.Span.Start
		if length < 1 {
			length = 1
		}
		for i := start; i < start+length && i < len(marks); i++ {
			if i >= 0 && (ch == '^' || marks[i] == ' ') {
				marks[i] = ch
			}
		}
	}

	for _, ls := range spans {
		if ls.Style == "primary" {
			mark(ls, '^')
		}
	}
	for _, ls := range spans {
		if ls.Style != "primary" {
			mark(ls, '~')
		}
	}

	var labels []string
	for _, ls := range spans {
		if ls.Label != "" {
			labels = append(labels, ls.Label)
		}
	}

	trimmed := strings.TrimRight(string(marks), " ")
	if trimmed == "" && len(labels) == 0 {
		return
	}

	gutter := strings.Repeat(" ", width)
	if len(labels) > 0 {
		fmt.Fprintf(f.out, "%s | %s %s\n", gutter, trimmed, labels[0])
		for _, label := range labels[1:] {
			fmt.Fprintf(f.out, "%s | %s %s\n", gutter, strings.Repeat(" ", len(trimmed)), label)
		}
	} else {
		fmt.Fprintf(f.out, "%s | %s\n", gutter, trimmed)
	}
}
