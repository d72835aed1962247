package parser

import (
	"strconv"

	"github.com/stolas-lang/stolas/internal/ast"
	"github.com/stolas-lang/stolas/internal/diag"
	"github.com/stolas-lang/stolas/internal/lexer"
)

// Expression parsing uses explicit left/right binding powers instead of a
// single precedence level per operator. A right power one above the left
// power makes the operator left-associative; the loop keeps consuming while
// the next operator's left power is at least the caller's minimum.
const (
	bpLowest = 0

	bpTernary    = 10
	bpEquality   = 30
	bpRelational = 40
	bpAdditive   = 50
	bpFactor     = 60
	bpUnary      = 70
	bpCall       = 80
)

type bindingPower struct {
	Left  int
	Right int
}

var infixPowers = map[lexer.TokenType]bindingPower{
	lexer.IF: {bpTernary, bpTernary + 1},

	lexer.EQ:     {bpEquality, bpEquality + 1},
	lexer.NOT_EQ: {bpEquality, bpEquality + 1},

	lexer.LT: {bpRelational, bpRelational + 1},
	lexer.LE: {bpRelational, bpRelational + 1},
	lexer.GT: {bpRelational, bpRelational + 1},
	lexer.GE: {bpRelational, bpRelational + 1},

	lexer.PLUS:  {bpAdditive, bpAdditive + 1},
	lexer.MINUS: {bpAdditive, bpAdditive + 1},

	lexer.ASTERISK: {bpFactor, bpFactor + 1},
	lexer.SLASH:    {bpFactor, bpFactor + 1},

	lexer.LPAREN: {bpCall, 0},
}

// parseExpr parses an expression whose operators all bind at least as
// tightly as minBP. Entered with curTok on the expression's first token,
// returns with curTok on its last.
func (p *Parser) parseExpr(minBP int) ast.Expr[ast.Untyped] {
	left := p.parsePrefix()
	if left == nil {
		return nil
	}

	for {
		bp, ok := infixPowers[p.peekTok.Type]
		if !ok || bp.Left < minBP {
			break
		}
		p.nextToken() // operator

		switch p.curTok.Type {
		case lexer.LPAREN:
			left = p.parseCall(left)
		case lexer.IF:
			left = p.parseTernary(left, bp)
		default:
			left = p.parseInfix(left, bp)
		}
		if left == nil {
			return nil
		}
	}

	return left
}

// parsePrefix parses a primary expression or prefix operator.
func (p *Parser) parsePrefix() ast.Expr[ast.Untyped] {
	switch p.curTok.Type {
	case lexer.INT32:
		return p.parseIntLiteral(ast.LitI32, 32)
	case lexer.INT64:
		return p.parseIntLiteral(ast.LitI64, 64)
	case lexer.DECIMAL:
		return p.parseDecimalLiteral()
	case lexer.TRUE, lexer.FALSE:
		lit := ast.NewLiteral[ast.Untyped](ast.LitBool, ast.Untyped{}, p.curTok.Span)
		lit.Bool = p.curTok.Type == lexer.TRUE
		return lit
	case lexer.STRING:
		lit := ast.NewLiteral[ast.Untyped](ast.LitString, ast.Untyped{}, p.curTok.Span)
		lit.Text = p.curTok.Value
		return lit
	case lexer.CHAR:
		lit := ast.NewLiteral[ast.Untyped](ast.LitChar, ast.Untyped{}, p.curTok.Span)
		lit.Text = p.curTok.Value
		return lit
	case lexer.IDENT:
		return ast.NewIdent(p.curTok.Raw, ast.Untyped{}, p.curTok.Span)
	case lexer.MINUS:
		return p.parseUnary()
	case lexer.LPAREN:
		return p.parseGroup()
	case lexer.LBRACE:
		return p.parseBlock()
	default:
		p.reportErrorWithHelp(diag.CodeParseExpectedExpression,
			"expected an expression", p.curTok.Span,
			"found '"+p.curTok.Raw+"'",
			"expressions start with a literal, an identifier, '-', '(' or '{'")
		return nil
	}
}

func (p *Parser) parseIntLiteral(kind ast.LitKind, bits int) ast.Expr[ast.Untyped] {
	v, err := strconv.ParseInt(p.curTok.Value, 10, bits)
	if err != nil {
		p.reportError(diag.CodeParseExpectedExpression,
			"integer literal out of range", p.curTok.Span, "")
		return nil
	}
	lit := ast.NewLiteral[ast.Untyped](kind, ast.Untyped{}, p.curTok.Span)
	lit.Int = v
	return lit
}

func (p *Parser) parseDecimalLiteral() ast.Expr[ast.Untyped] {
	v, err := strconv.ParseFloat(p.curTok.Value, 64)
	if err != nil {
		p.reportError(diag.CodeParseExpectedExpression,
			"malformed decimal literal", p.curTok.Span, "")
		return nil
	}
	lit := ast.NewLiteral[ast.Untyped](ast.LitDecimal, ast.Untyped{}, p.curTok.Span)
	lit.Dec = v
	return lit
}

func (p *Parser) parseUnary() ast.Expr[ast.Untyped] {
	op := p.curTok.Type
	start := p.curTok.Span

	p.nextToken()
	operand := p.parseExpr(bpUnary)
	if operand == nil {
		return nil
	}

	return ast.NewUnary(op, operand, ast.Untyped{}, start.Merge(operand.Span()))
}

func (p *Parser) parseGroup() ast.Expr[ast.Untyped] {
	start := p.curTok.Span

	p.nextToken()
	inner := p.parseExpr(bpLowest)
	if inner == nil {
		return nil
	}

	if !p.expect(lexer.RPAREN) {
		return nil
	}

	return ast.NewGroup(inner, ast.Untyped{}, start.Merge(p.curTok.Span))
}

// parseCall parses the argument list of a call; curTok is on '(' and the
// callee has already been parsed.
func (p *Parser) parseCall(callee ast.Expr[ast.Untyped]) ast.Expr[ast.Untyped] {
	var args []ast.Expr[ast.Untyped]

	if p.peekTok.Type == lexer.RPAREN {
		p.nextToken()
	} else {
		for {
			p.nextToken()
			arg := p.parseExpr(bpLowest)
			if arg == nil {
				return nil
			}
			args = append(args, arg)

			if p.peekTok.Type == lexer.COMMA {
				p.nextToken()
				continue
			}
			break
		}
		if !p.expect(lexer.RPAREN) {
			return nil
		}
	}

	span := callee.Span().Merge(p.curTok.Span)
	return ast.NewCall(callee, args, ast.Untyped{}, span)
}

// parseTernary parses `truthy if cond else falsy`; the truthy arm has
// already been parsed and curTok is on 'if'. The condition is parsed above
// the operator's own power so nested conditionals need parentheses.
func (p *Parser) parseTernary(truthy ast.Expr[ast.Untyped], bp bindingPower) ast.Expr[ast.Untyped] {
	p.nextToken()
	cond := p.parseExpr(bp.Right)
	if cond == nil {
		return nil
	}

	if !p.expect(lexer.ELSE) {
		return nil
	}

	p.nextToken()
	falsy := p.parseExpr(bp.Right)
	if falsy == nil {
		return nil
	}

	span := truthy.Span().Merge(falsy.Span())
	return ast.NewTernary(truthy, cond, falsy, ast.Untyped{}, span)
}

func (p *Parser) parseInfix(left ast.Expr[ast.Untyped], bp bindingPower) ast.Expr[ast.Untyped] {
	op := p.curTok.Type

	p.nextToken()
	right := p.parseExpr(bp.Right)
	if right == nil {
		return nil
	}

	span := left.Span().Merge(right.Span())
	return ast.NewBinary(op, left, right, ast.Untyped{}, span)
}
