package diag

import "fmt"

// Stage identifies which compiler phase produced the diagnostic.
type Stage string

const (
	StageLexer     Stage = "lexer"
	StageParser    Stage = "parser"
	StageTypeCheck Stage = "typecheck"
	StageCodegen   Stage = "codegen"
	StageRuntime   Stage = "runtime"
)

// Severity captures how impactful the diagnostic is.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityNote    Severity = "note"
)

// Code is a stable identifier for a diagnostic.
type Code string

const (
	// Lexer errors
	CodeLexerUnterminatedString Code = "LEXER_UNTERMINATED_STRING"
	CodeLexerUnterminatedChar   Code = "LEXER_UNTERMINATED_CHAR"
	CodeLexerInvalidChar        Code = "LEXER_INVALID_CHAR_LITERAL"
	CodeLexerIllegalRune        Code = "LEXER_ILLEGAL_RUNE"
	CodeLexerMalformedNumber    Code = "LEXER_MALFORMED_NUMBER"

	// Parser errors
	CodeParseExpectedIdentifier  Code = "PARSE_EXPECTED_IDENTIFIER"
	CodeParseExpectedSemicolon   Code = "PARSE_EXPECTED_SEMICOLON"
	CodeParseExpectedDeclaration Code = "PARSE_EXPECTED_DECLARATION"
	CodeParseExpectedType        Code = "PARSE_EXPECTED_TYPE"
	CodeParseExpectedExpression  Code = "PARSE_EXPECTED_EXPRESSION"
	CodeParseExpectedToken       Code = "PARSE_EXPECTED_TOKEN"
	CodeParseInvalidVisibility   Code = "PARSE_INVALID_VISIBILITY_MODIFIER"

	// Type checker errors
	CodeTypeUndefinedIdentifier Code = "TYPE_UNDEFINED_IDENTIFIER"
	CodeTypeMismatchedTypes     Code = "TYPE_MISMATCHED_TYPES"
	CodeTypeDuplicateFunction   Code = "TYPE_DUPLICATE_FUNCTION_NAME"
	CodeTypeConditionNotBool    Code = "TYPE_CONDITION_NOT_BOOL"
	CodeTypeNotCallable         Code = "TYPE_NOT_CALLABLE"
	CodeTypeWrongArgumentCount  Code = "TYPE_WRONG_ARGUMENT_COUNT"
	CodeTypeUnknownType         Code = "TYPE_UNKNOWN_TYPE"
	CodeTypeReturnOutsideFn     Code = "TYPE_RETURN_OUTSIDE_FUNCTION"

	// Codegen errors
	CodeGenUndefinedFunction Code = "CODEGEN_UNDEFINED_FUNCTION"
	CodeGenUndefinedVariable Code = "CODEGEN_UNDEFINED_VARIABLE"
	CodeGenUnsupportedType   Code = "CODEGEN_UNSUPPORTED_TYPE"
	CodeGenUnsupportedExpr   Code = "CODEGEN_UNSUPPORTED_EXPR"
)

// Span represents a location in source code. Source identifies which entry
// of a SourceMap the offsets refer to; offsets are half-open rune indices.
type Span struct {
	Source string
	Line   int
	Column int
	Start  int
	End    int
}

// String returns a human-readable representation of the span.
func (s Span) String() string {
	if s.Source != "" {
		return fmt.Sprintf("%s:%d:%d", s.Source, s.Line, s.Column)
	}
	return fmt.Sprintf("%d:%d", s.Line, s.Column)
}

// IsValid returns true if the span has valid location information.
func (s Span) IsValid() bool {
	return s.Line > 0 && s.Column > 0
}

// LabeledSpan is a span with an optional label. Primary spans are emphasized
// when rendered; secondary spans provide context.
type LabeledSpan struct {
	Span  Span
	Label string
	Style string // "primary" or "secondary"
}

// Diagnostic is a compiler diagnostic surfaced to end-users. Diagnostics are
// plain values: stages collect them into slices and return them; they carry
// no behavior beyond rendering.
type Diagnostic struct {
	Stage    Stage
	Severity Severity
	Code     Code
	Message  string
	Span     Span // primary span

	// LabeledSpans allows multiple spans with labels. The first is treated
	// as primary, the rest as secondary.
	LabeledSpans []LabeledSpan
	Notes        []string
	Help         string
}

// Error satisfies the error interface so a single diagnostic can travel
// through error-returning plumbing when needed.
func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Span, d.Severity, d.Message)
}

// WithPrimarySpan adds a primary labeled span.
func (d Diagnostic) WithPrimarySpan(span Span, label string) Diagnostic {
	return d.withLabeledSpan(span, label, "primary")
}

// WithSecondarySpan adds a secondary labeled span.
func (d Diagnostic) WithSecondarySpan(span Span, label string) Diagnostic {
	return d.withLabeledSpan(span, label, "secondary")
}

func (d Diagnostic) withLabeledSpan(span Span, label, style string) Diagnostic {
	d.LabeledSpans = append(d.LabeledSpans, LabeledSpan{
		Span:  span,
		Label: label,
		Style: style,
	})
	return d
}

// WithNote adds a note to the diagnostic.
func (d Diagnostic) WithNote(note string) Diagnostic {
	d.Notes = append(d.Notes, note)
	return d
}

// WithHelp adds help text to the diagnostic.
func (d Diagnostic) WithHelp(help string) Diagnostic {
	d.Help = help
	return d
}

// HasErrors reports whether any diagnostic in the list is an error.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
