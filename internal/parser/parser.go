package parser

import (
	"github.com/stolas-lang/stolas/internal/ast"
	"github.com/stolas-lang/stolas/internal/diag"
	"github.com/stolas-lang/stolas/internal/lexer"
)

// declParseFn parses one top-level declaration. The leading token selects
// the rule from the parser's declaration table; visibility has already been
// consumed by the caller.
type declParseFn func(vis ast.Visibility, visSpan lexer.Span) ast.Stmt[ast.Untyped]

// ParseError captures a recoverable parsing error with location context.
type ParseError struct {
	Code    diag.Code
	Message string
	Span    lexer.Span
	Label   string
	Help    string
}

// ToDiagnostic converts a parse error into the shared diagnostic structure.
func (e ParseError) ToDiagnostic() diag.Diagnostic {
	d := diag.Diagnostic{
		Stage:    diag.StageParser,
		Severity: diag.SeverityError,
		Code:     e.Code,
		Message:  e.Message,
		Span:     toDiagSpan(e.Span),
		Help:     e.Help,
	}
	label := e.Label
	if label == "" {
		label = "here"
	}
	return d.WithPrimarySpan(toDiagSpan(e.Span), label)
}

func toDiagSpan(s lexer.Span) diag.Span {
	return diag.Span{
		Source: s.Source,
		Line:   s.Line,
		Column: s.Column,
		Start:  s.Start,
		End:    s.End,
	}
}

type Option func(*options)

type options struct {
	source string
}

// WithSource attributes all emitted spans to the provided source name.
func WithSource(name string) Option {
	return func(o *options) {
		o.source = name
	}
}

// Parser is a recursive-descent parser with Pratt-style binding powers for
// expressions. The curTok/peekTok pair is the sole lookahead window and is
// only mutated through nextToken. errors is an append-only accumulator of
// recoverable diagnostics; callers consult Errors (or Diagnostics) after
// Parse.
type Parser struct {
	lx      *lexer.Lexer
	curTok  lexer.Token
	peekTok lexer.Token

	errors []ParseError

	declRules map[lexer.TokenType]declParseFn
}

// New returns a parser initialised with the provided source input.
func New(input string, opts ...Option) *Parser {
	cfg := options{}
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Parser{
		lx:        lexer.New(input),
		declRules: make(map[lexer.TokenType]declParseFn),
	}
	if cfg.source != "" {
		p.lx.SetSource(cfg.source)
	}

	p.declRules[lexer.FN] = p.parseFnDecl
	p.declRules[lexer.LET] = p.parseLetDecl
	p.declRules[lexer.STRUCT] = p.parseStructDecl
	p.declRules[lexer.ENUM] = p.parseEnumDecl
	p.declRules[lexer.TRAIT] = p.parseTraitDecl
	p.declRules[lexer.IMPORT] = p.parseImportDecl
	p.declRules[lexer.TYPE] = p.parseTypeAliasDecl

	// Seed curTok/peekTok.
	p.nextToken()
	p.nextToken()

	return p
}

// Errors returns all recoverable parse errors that were encountered.
func (p *Parser) Errors() []ParseError {
	return p.errors
}

// Diagnostics returns lexer and parser errors, lexer first, as diagnostics.
func (p *Parser) Diagnostics() []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, e := range p.lx.Errors {
		out = append(out, e.ToDiagnostic())
	}
	for _, e := range p.errors {
		out = append(out, e.ToDiagnostic())
	}
	return out
}

// Parse parses a full compilation unit: declarations until the input is
// exhausted. Each failed declaration is recorded and the parser
// resynchronizes at the next declaration boundary.
func (p *Parser) Parse() *ast.File[ast.Untyped] {
	file := ast.NewFile[ast.Untyped](p.curTok.Span)

	for p.curTok.Type != lexer.EOF {
		prevTok := p.curTok
		decl := p.parseDecl()
		if decl != nil {
			file.Stmts = append(file.Stmts, decl)
			file.SetSpan(file.Span().Merge(decl.Span()))
			continue
		}

		if p.curTok.Type == lexer.EOF {
			break
		}
		p.recoverDecl(prevTok)
	}

	file.SetSpan(file.Span().Merge(p.curTok.Span))
	return file
}

// ParseExpression parses a single expression followed by end of input. The
// REPL and the reference-evaluator tests use this entry point.
func (p *Parser) ParseExpression() ast.Expr[ast.Untyped] {
	expr := p.parseExpr(bpLowest)
	if expr == nil {
		return nil
	}
	if p.peekTok.Type != lexer.EOF && p.peekTok.Type != lexer.SEMICOLON {
		p.reportError(diag.CodeParseExpectedToken,
			"unexpected trailing input after expression", p.peekTok.Span, "")
	}
	return expr
}

// parseDecl parses visibility, then dispatches on the leading token through
// the declaration-rule table. Declarations other than value/type definitions
// reject a visibility modifier.
func (p *Parser) parseDecl() ast.Stmt[ast.Untyped] {
	vis := ast.Private
	visSpan := lexer.Span{}

	if p.curTok.Type == lexer.PUB {
		vis = ast.Public
		visSpan = p.curTok.Span
		if p.peekTok.Type == lexer.MOD {
			vis = ast.Module
			p.nextToken()
			visSpan = visSpan.Merge(p.curTok.Span)
		}
		p.nextToken()
	}

	rule, ok := p.declRules[p.curTok.Type]
	if !ok {
		p.reportErrorWithHelp(diag.CodeParseExpectedDeclaration,
			"expected a declaration", p.curTok.Span,
			"found '"+p.curTok.Raw+"'",
			"top-level items are fn, let, struct, enum, trait, import and type declarations")
		return nil
	}

	return rule(vis, visSpan)
}

// rejectVisibility reports InvalidVisibilityModifier for declarations that
// cannot carry one (anything that is not a value or type definition).
func (p *Parser) rejectVisibility(vis ast.Visibility, visSpan lexer.Span, what string) {
	if vis == ast.Private {
		return
	}
	p.reportErrorWithHelp(diag.CodeParseInvalidVisibility,
		what+" declarations cannot carry a visibility modifier", visSpan,
		"remove this modifier", "")
}

// nextToken advances the parser's token window. After the call,
// curTok == old(peekTok); the lexer is only queried from this hop.
func (p *Parser) nextToken() {
	p.curTok = p.peekTok
	p.peekTok = p.lx.NextToken()
}

// expect asserts that the peek token matches the provided type and promotes
// it into curTok on success. It never rewinds.
func (p *Parser) expect(tt lexer.TokenType) bool {
	if p.peekTok.Type == tt {
		p.nextToken()
		return true
	}

	code := diag.CodeParseExpectedToken
	switch tt {
	case lexer.IDENT:
		code = diag.CodeParseExpectedIdentifier
	case lexer.SEMICOLON:
		code = diag.CodeParseExpectedSemicolon
	}
	p.reportError(code, "expected '"+string(tt)+"'", p.peekTok.Span,
		"found '"+p.peekTok.Raw+"'")
	return false
}

func (p *Parser) reportError(code diag.Code, msg string, span lexer.Span, label string) {
	p.errors = append(p.errors, ParseError{
		Code:    code,
		Message: msg,
		Span:    span,
		Label:   label,
	})
}

func (p *Parser) reportErrorWithHelp(code diag.Code, msg string, span lexer.Span, label, help string) {
	p.errors = append(p.errors, ParseError{
		Code:    code,
		Message: msg,
		Span:    span,
		Label:   label,
		Help:    help,
	})
}

func sameTokenPosition(a, b lexer.Token) bool {
	return a.Type == b.Type && a.Span.Start == b.Span.Start && a.Span.End == b.Span.End
}

func isDeclStart(tt lexer.TokenType) bool {
	switch tt {
	case lexer.FN, lexer.LET, lexer.STRUCT, lexer.ENUM, lexer.TRAIT,
		lexer.IMPORT, lexer.TYPE, lexer.PUB:
		return true
	default:
		return false
	}
}

// recoverDecl skips tokens until the next plausible declaration boundary so
// one malformed declaration does not poison the rest of the file.
func (p *Parser) recoverDecl(prev lexer.Token) {
	if p.curTok.Type == lexer.EOF {
		return
	}
	if sameTokenPosition(p.curTok, prev) {
		p.nextToken()
	}

	for p.curTok.Type != lexer.EOF {
		switch {
		case p.curTok.Type == lexer.SEMICOLON:
			p.nextToken()
			return
		case isDeclStart(p.curTok.Type):
			return
		}
		p.nextToken()
	}
}

// recoverStmt skips tokens until the next statement boundary inside a block.
func (p *Parser) recoverStmt(prev lexer.Token) {
	if sameTokenPosition(p.curTok, prev) {
		p.nextToken()
	}

	for p.curTok.Type != lexer.EOF && p.curTok.Type != lexer.RBRACE {
		if p.curTok.Type == lexer.SEMICOLON {
			p.nextToken()
			return
		}
		p.nextToken()
	}
}

// parseTypeExpr parses a type annotation.
func (p *Parser) parseTypeExpr() ast.TypeExpr {
	if p.curTok.Type != lexer.IDENT {
		p.reportErrorWithHelp(diag.CodeParseExpectedType,
			"expected a type", p.curTok.Span,
			"found '"+p.curTok.Raw+"'",
			"write a type name such as i32, i64, dec, bool, str, char or unit")
		return nil
	}
	return ast.NewNamedType(p.curTok.Raw, p.curTok.Span)
}
