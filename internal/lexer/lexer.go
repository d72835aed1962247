package lexer

import (
	"strconv"

	"github.com/stolas-lang/stolas/internal/diag"
)

type LexerErrorKind int

const (
	ErrUnterminatedString LexerErrorKind = iota
	ErrUnterminatedChar
	ErrInvalidCharLiteral
	ErrIllegalRune
	ErrMalformedNumber
)

// LexerError is a recoverable lexical error. The lexer records it and keeps
// producing tokens; error isolation is per token, not per stream.
type LexerError struct {
	Kind    LexerErrorKind
	Message string
	Span    Span
}

func (k LexerErrorKind) diagnosticCode() diag.Code {
	switch k {
	case ErrUnterminatedString:
		return diag.CodeLexerUnterminatedString
	case ErrUnterminatedChar:
		return diag.CodeLexerUnterminatedChar
	case ErrInvalidCharLiteral:
		return diag.CodeLexerInvalidChar
	case ErrMalformedNumber:
		return diag.CodeLexerMalformedNumber
	case ErrIllegalRune:
		return diag.CodeLexerIllegalRune
	default:
		return diag.Code("LEXER_UNKNOWN_ERROR")
	}
}

// ToDiagnostic converts a lexer error into the shared diagnostic structure.
func (e LexerError) ToDiagnostic() diag.Diagnostic {
	return diag.Diagnostic{
		Stage:    diag.StageLexer,
		Severity: diag.SeverityError,
		Code:     e.Kind.diagnosticCode(),
		Message:  e.Message,
		Span: diag.Span{
			Source: e.Span.Source,
			Line:   e.Span.Line,
			Column: e.Span.Column,
			Start:  e.Span.Start,
			End:    e.Span.End,
		},
	}
}

// Lexer produces tokens lazily, one per NextToken call. Recreating a lexer
// from a string is cheap and side-effect-free.
type Lexer struct {
	input  []rune
	pos    int  // index of the current rune
	ch     rune // current rune (0 = EOF)
	line   int  // 1-based
	column int  // 1-based
	source string

	Errors []LexerError
}

// New creates a new lexer for the given input.
func New(input string) *Lexer {
	l := &Lexer{
		input:  []rune(input),
		pos:    -1,
		line:   1,
		column: 0,
	}
	l.read()
	return l
}

// SetSource attributes all subsequent spans to the named source.
func (l *Lexer) SetSource(name string) { l.source = name }

func (l *Lexer) addError(kind LexerErrorKind, msg string, span Span) {
	l.Errors = append(l.Errors, LexerError{Kind: kind, Message: msg, Span: span})
}

// read advances the lexer to the next rune, keeping line/column in sync with
// the rune at pos.
func (l *Lexer) read() {
	l.pos++
	prev := l.pos - 1

	if l.pos >= len(l.input) {
		if prev >= 0 && prev < len(l.input) && l.input[prev] == '\n' {
			l.line++
			l.column = 1
		} else {
			l.column++
		}
		l.ch = 0
		return
	}

	l.ch = l.input[l.pos]
	if prev >= 0 && l.input[prev] == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
}

func (l *Lexer) peek() rune {
	if l.pos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.pos+1]
}

func (l *Lexer) spanFrom(startLine, startColumn, startPos int) Span {
	return Span{
		Source: l.source,
		Line:   startLine,
		Column: startColumn,
		Start:  startPos,
		End:    l.pos,
	}
}

func (l *Lexer) makeToken(tt TokenType, startLine, startColumn, startPos int, raw, value string) Token {
	return Token{
		Type:  tt,
		Raw:   raw,
		Value: value,
		Span:  l.spanFrom(startLine, startColumn, startPos),
	}
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.read()
	}
}

func (l *Lexer) skipLineComment() {
	for l.ch != '\n' && l.ch != 0 {
		l.read()
	}
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.read()
	}
	return string(l.input[start:l.pos])
}

// readNumber reads an integer or decimal literal. Without a suffix the
// literal defaults to INT32; i32/i64 suffixes force the width; a '.' makes
// it DECIMAL. Suffixed decimals are malformed.
func (l *Lexer) readNumber(startLine, startColumn, startPos int) Token {
	start := l.pos
	for isDigit(l.ch) || l.ch == '_' {
		l.read()
	}

	isDecimal := false
	if l.ch == '.' && isDigit(l.peek()) {
		isDecimal = true
		l.read() // consume '.'
		for isDigit(l.ch) || l.ch == '_' {
			l.read()
		}
	}

	tt := INT32
	if isDecimal {
		tt = DECIMAL
	}

	if l.ch == 'i' {
		suffixStart := l.pos
		l.read()
		for isDigit(l.ch) {
			l.read()
		}
		suffix := string(l.input[suffixStart:l.pos])
		switch {
		case isDecimal:
			raw := string(l.input[start:l.pos])
			tok := l.makeToken(ILLEGAL, startLine, startColumn, startPos, raw, raw)
			l.addError(ErrMalformedNumber, "decimal literal cannot carry an integer width suffix", tok.Span)
			return tok
		case suffix == "i32":
			tt = INT32
		case suffix == "i64":
			tt = INT64
		default:
			raw := string(l.input[start:l.pos])
			tok := l.makeToken(ILLEGAL, startLine, startColumn, startPos, raw, raw)
			l.addError(ErrMalformedNumber, "unknown integer suffix "+strconv.Quote(suffix), tok.Span)
			return tok
		}
	}

	raw := string(l.input[start:l.pos])
	value := stripNumber(raw)
	return l.makeToken(tt, startLine, startColumn, startPos, raw, value)
}

// stripNumber removes digit-group underscores and a width suffix, leaving
// the numeric text strconv can parse.
func stripNumber(raw string) string {
	out := make([]rune, 0, len(raw))
	for _, r := range raw {
		if r == '_' {
			continue
		}
		if r == 'i' {
			break
		}
		out = append(out, r)
	}
	return string(out)
}

// NextToken returns the next token from the input.
func (l *Lexer) NextToken() Token {
	for {
		l.skipWhitespace()

		startLine, startColumn, startPos := l.line, l.column, l.pos

		switch l.ch {
		case 0:
			if startColumn == 0 {
				startColumn = 1
			}
			return l.makeToken(EOF, startLine, startColumn, startPos, "", "")

		case '=':
			if l.peek() == '=' {
				l.read()
				l.read()
				return l.makeToken(EQ, startLine, startColumn, startPos, "==", "==")
			}
			l.read()
			return l.makeToken(ASSIGN, startLine, startColumn, startPos, "=", "=")

		case '+':
			l.read()
			return l.makeToken(PLUS, startLine, startColumn, startPos, "+", "+")

		case '-':
			if l.peek() == '>' {
				l.read()
				l.read()
				return l.makeToken(ARROW, startLine, startColumn, startPos, "->", "->")
			}
			l.read()
			return l.makeToken(MINUS, startLine, startColumn, startPos, "-", "-")

		case '*':
			l.read()
			return l.makeToken(ASTERISK, startLine, startColumn, startPos, "*", "*")

		case '/':
			if l.peek() == '/' {
				l.skipLineComment()
				continue
			}
			l.read()
			return l.makeToken(SLASH, startLine, startColumn, startPos, "/", "/")

		case '!':
			if l.peek() == '=' {
				l.read()
				l.read()
				return l.makeToken(NOT_EQ, startLine, startColumn, startPos, "!=", "!=")
			}
			l.read()
			return l.makeToken(BANG, startLine, startColumn, startPos, "!", "!")

		case '~':
			l.read()
			return l.makeToken(TILDE, startLine, startColumn, startPos, "~", "~")

		case '<':
			if l.peek() == '=' {
				l.read()
				l.read()
				return l.makeToken(LE, startLine, startColumn, startPos, "<=", "<=")
			}
			l.read()
			return l.makeToken(LT, startLine, startColumn, startPos, "<", "<")

		case '>':
			if l.peek() == '=' {
				l.read()
				l.read()
				return l.makeToken(GE, startLine, startColumn, startPos, ">=", ">=")
			}
			l.read()
			return l.makeToken(GT, startLine, startColumn, startPos, ">", ">")

		case ',':
			l.read()
			return l.makeToken(COMMA, startLine, startColumn, startPos, ",", ",")

		case ';':
			l.read()
			return l.makeToken(SEMICOLON, startLine, startColumn, startPos, ";", ";")

		case '(':
			l.read()
			return l.makeToken(LPAREN, startLine, startColumn, startPos, "(", "(")

		case ')':
			l.read()
			return l.makeToken(RPAREN, startLine, startColumn, startPos, ")", ")")

		case '{':
			l.read()
			return l.makeToken(LBRACE, startLine, startColumn, startPos, "{", "{")

		case '}':
			l.read()
			return l.makeToken(RBRACE, startLine, startColumn, startPos, "}", "}")

		case '"':
			return l.readString(startLine, startColumn, startPos)

		case '\'':
			return l.readChar(startLine, startColumn, startPos)

		default:
			if isLetter(l.ch) {
				literal := l.readIdentifier()
				return l.makeToken(LookupIdent(literal), startLine, startColumn, startPos, literal, literal)
			}
			if isDigit(l.ch) {
				return l.readNumber(startLine, startColumn, startPos)
			}

			raw := string(l.ch)
			l.read()
			tok := l.makeToken(ILLEGAL, startLine, startColumn, startPos, raw, raw)
			l.addError(ErrIllegalRune, "illegal character "+strconv.Quote(raw), tok.Span)
			return tok
		}
	}
}

func isLetter(ch rune) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

// decodeEscape maps an escape character to its rune value.
func decodeEscape(ch rune) (rune, bool) {
	switch ch {
	case 'n':
		return '\n', true
	case 't':
		return '\t', true
	case 'r':
		return '\r', true
	case '0':
		return 0, true
	case '\\':
		return '\\', true
	case '"':
		return '"', true
	case '\'':
		return '\'', true
	default:
		return 0, false
	}
}

// readString reads a string literal, handling escape sequences and
// multi-byte runes.
func (l *Lexer) readString(startLine, startColumn, startPos int) Token {
	var raw []rune
	var decoded []rune

	raw = append(raw, '"')
	l.read() // opening quote

	for {
		if l.ch == 0 || l.ch == '\n' {
			tok := l.makeToken(ILLEGAL, startLine, startColumn, startPos, string(raw), string(decoded))
			l.addError(ErrUnterminatedString, "unterminated string literal", tok.Span)
			return tok
		}
		if l.ch == '"' {
			raw = append(raw, '"')
			l.read()
			return l.makeToken(STRING, startLine, startColumn, startPos, string(raw), string(decoded))
		}
		if l.ch == '\\' {
			raw = append(raw, '\\')
			l.read()
			raw = append(raw, l.ch)
			if dec, ok := decodeEscape(l.ch); ok {
				decoded = append(decoded, dec)
			} else {
				decoded = append(decoded, '\\', l.ch)
			}
			l.read()
			continue
		}
		raw = append(raw, l.ch)
		decoded = append(decoded, l.ch)
		l.read()
	}
}

// readChar reads a character literal. The literal must decode to exactly one
// Unicode scalar value.
func (l *Lexer) readChar(startLine, startColumn, startPos int) Token {
	var raw []rune
	var decoded []rune

	raw = append(raw, '\'')
	l.read() // opening quote

	for l.ch != '\'' {
		if l.ch == 0 || l.ch == '\n' {
			tok := l.makeToken(ILLEGAL, startLine, startColumn, startPos, string(raw), string(decoded))
			l.addError(ErrUnterminatedChar, "unterminated character literal", tok.Span)
			return tok
		}
		if l.ch == '\\' {
			raw = append(raw, '\\')
			l.read()
			raw = append(raw, l.ch)
			if dec, ok := decodeEscape(l.ch); ok {
				decoded = append(decoded, dec)
			} else {
				decoded = append(decoded, '\\', l.ch)
			}
			l.read()
			continue
		}
		raw = append(raw, l.ch)
		decoded = append(decoded, l.ch)
		l.read()
	}

	raw = append(raw, '\'')
	l.read() // closing quote

	tok := l.makeToken(CHAR, startLine, startColumn, startPos, string(raw), string(decoded))
	if len(decoded) != 1 {
		tok.Type = ILLEGAL
		l.addError(ErrInvalidCharLiteral,
			"character literal must contain exactly one character", tok.Span)
	}
	return tok
}
