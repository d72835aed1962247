package lexer

// TokenType represents the type of a token
type TokenType string

// Span represents the source location of a token. Start/End are half-open
// rune offsets into the original input; Line/Column are 1-based and refer to
// the first rune. Spans are immutable values: they are created at token or
// node construction and only ever replaced, never mutated.
type Span struct {
	Source string // source name for diagnostics (file path or "<repl>")
	Line   int
	Column int
	Start  int
	End    int // exclusive
}

// Merge returns the span covering both s and other. Merging is commutative
// and associative for spans over the same source; a zero span is the
// identity element.
func (s Span) Merge(other Span) Span {
	if s == (Span{}) {
		return other
	}
	if other == (Span{}) {
		return s
	}

	out := s
	if other.Start < s.Start {
		out.Line = other.Line
		out.Column = other.Column
		out.Start = other.Start
	}
	if other.End > out.End {
		out.End = other.End
	}
	if out.Source == "" {
		out.Source = other.Source
	}
	return out
}

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Raw   string // exact runes from source
	Value string // decoded value (for strings/chars; same as Raw for others)
	Span  Span
}

// Token type constants
const (
	// Special tokens
	ILLEGAL TokenType = "ILLEGAL"
	EOF     TokenType = "EOF"

	// Identifiers and literals
	IDENT   TokenType = "IDENT"
	INT32   TokenType = "INT32"   // 42, 42i32
	INT64   TokenType = "INT64"   // 42i64
	DECIMAL TokenType = "DECIMAL" // 3.14
	STRING  TokenType = "STRING"  // "hello"
	CHAR    TokenType = "CHAR"    // 'x'

	// Operators
	ASSIGN   TokenType = "="
	PLUS     TokenType = "+"
	MINUS    TokenType = "-"
	ASTERISK TokenType = "*"
	SLASH    TokenType = "/"
	BANG     TokenType = "!"
	TILDE    TokenType = "~"
	ARROW    TokenType = "->"

	LT     TokenType = "<"
	GT     TokenType = ">"
	LE     TokenType = "<="
	GE     TokenType = ">="
	EQ     TokenType = "=="
	NOT_EQ TokenType = "!="

	// Delimiters
	COMMA     TokenType = ","
	SEMICOLON TokenType = ";"

	LPAREN TokenType = "("
	RPAREN TokenType = ")"
	LBRACE TokenType = "{"
	RBRACE TokenType = "}"

	// Keywords
	FN     TokenType = "FN"
	LET    TokenType = "LET"
	PUB    TokenType = "PUB"
	MOD    TokenType = "MOD"
	IF     TokenType = "IF"
	ELSE   TokenType = "ELSE"
	WHILE  TokenType = "WHILE"
	RETURN TokenType = "RETURN"
	STRUCT TokenType = "STRUCT"
	ENUM   TokenType = "ENUM"
	TRAIT  TokenType = "TRAIT"
	IMPORT TokenType = "IMPORT"
	TYPE   TokenType = "TYPE"
	TRUE   TokenType = "TRUE"
	FALSE  TokenType = "FALSE"
)

var keywords = map[string]TokenType{
	"fn":     FN,
	"let":    LET,
	"pub":    PUB,
	"mod":    MOD,
	"if":     IF,
	"else":   ELSE,
	"while":  WHILE,
	"return": RETURN,
	"struct": STRUCT,
	"enum":   ENUM,
	"trait":  TRAIT,
	"import": IMPORT,
	"type":   TYPE,
	"true":   TRUE,
	"false":  FALSE,
}

// LookupIdent checks if the identifier is a keyword
func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}
