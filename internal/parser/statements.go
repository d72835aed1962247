package parser

import (
	"github.com/stolas-lang/stolas/internal/ast"
	"github.com/stolas-lang/stolas/internal/diag"
	"github.com/stolas-lang/stolas/internal/lexer"
)

// Statement parsers are entered with curTok on the statement's first token
// and return with curTok on its last token (usually ';' or '}'). The
// declaration wrappers below additionally advance past that last token so
// the top-level loop always sees the start of the next declaration.

func (p *Parser) parseFnDecl(vis ast.Visibility, visSpan lexer.Span) ast.Stmt[ast.Untyped] {
	stmt := p.parseFnStmt(vis)
	p.nextToken()
	return stmt
}

func (p *Parser) parseLetDecl(vis ast.Visibility, visSpan lexer.Span) ast.Stmt[ast.Untyped] {
	stmt := p.parseLetStmt(vis)
	p.nextToken()
	return stmt
}

func (p *Parser) parseStructDecl(vis ast.Visibility, visSpan lexer.Span) ast.Stmt[ast.Untyped] {
	stmt := p.parseStructStmt(vis)
	p.nextToken()
	return stmt
}

func (p *Parser) parseEnumDecl(vis ast.Visibility, visSpan lexer.Span) ast.Stmt[ast.Untyped] {
	stmt := p.parseEnumStmt(vis)
	p.nextToken()
	return stmt
}

func (p *Parser) parseTypeAliasDecl(vis ast.Visibility, visSpan lexer.Span) ast.Stmt[ast.Untyped] {
	stmt := p.parseTypeAliasStmt(vis)
	p.nextToken()
	return stmt
}

func (p *Parser) parseTraitDecl(vis ast.Visibility, visSpan lexer.Span) ast.Stmt[ast.Untyped] {
	p.rejectVisibility(vis, visSpan, "trait")
	stmt := p.parseTraitStmt()
	p.nextToken()
	return stmt
}

func (p *Parser) parseImportDecl(vis ast.Visibility, visSpan lexer.Span) ast.Stmt[ast.Untyped] {
	p.rejectVisibility(vis, visSpan, "import")
	stmt := p.parseImportStmt()
	p.nextToken()
	return stmt
}

// parseLetStmt parses `let name [~ Type] = expr;`.
func (p *Parser) parseLetStmt(vis ast.Visibility) ast.Stmt[ast.Untyped] {
	start := p.curTok.Span

	if !p.expect(lexer.IDENT) {
		return nil
	}
	name := p.curTok.Raw
	nameSpan := p.curTok.Span

	var typ ast.TypeExpr
	if p.peekTok.Type == lexer.TILDE {
		p.nextToken() // '~'
		p.nextToken() // type start
		typ = p.parseTypeExpr()
		if typ == nil {
			return nil
		}
	}

	if !p.expect(lexer.ASSIGN) {
		return nil
	}

	p.nextToken()
	value := p.parseExpr(bpLowest)
	if value == nil {
		return nil
	}

	if !p.expect(lexer.SEMICOLON) {
		return nil
	}

	span := start.Merge(p.curTok.Span)
	return ast.NewLetStmt[ast.Untyped](vis, name, nameSpan, typ, value, span)
}

// parseFnStmt parses a function definition. The body is either a block or,
// for single-expression bodies, a bare expression terminated by ';'. The
// return type is introduced by '->' or '~'; omitting it means unit.
func (p *Parser) parseFnStmt(vis ast.Visibility) ast.Stmt[ast.Untyped] {
	start := p.curTok.Span

	if !p.expect(lexer.IDENT) {
		return nil
	}
	name := p.curTok.Raw
	nameSpan := p.curTok.Span

	if !p.expect(lexer.LPAREN) {
		return nil
	}

	var params []*ast.Param
	if p.peekTok.Type == lexer.RPAREN {
		p.nextToken()
	} else {
		for {
			if !p.expect(lexer.IDENT) {
				return nil
			}
			paramName := p.curTok.Raw
			paramNameSpan := p.curTok.Span

			if !p.expect(lexer.TILDE) {
				return nil
			}
			p.nextToken()
			typ := p.parseTypeExpr()
			if typ == nil {
				return nil
			}

			params = append(params, ast.NewParam(paramName, paramNameSpan, typ,
				paramNameSpan.Merge(typ.Span())))

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

	var ret ast.TypeExpr
	if p.peekTok.Type == lexer.ARROW || p.peekTok.Type == lexer.TILDE {
		p.nextToken() // '->' or '~'
		p.nextToken() // type start
		ret = p.parseTypeExpr()
		if ret == nil {
			return nil
		}
	}

	var body ast.Expr[ast.Untyped]
	if p.peekTok.Type == lexer.LBRACE {
		p.nextToken()
		body = p.parseBlock()
		if body == nil {
			return nil
		}
		// Optional ';' after a braced body.
		if p.peekTok.Type == lexer.SEMICOLON {
			p.nextToken()
		}
	} else {
		p.nextToken()
		body = p.parseExpr(bpLowest)
		if body == nil {
			return nil
		}
		if !p.expect(lexer.SEMICOLON) {
			return nil
		}
	}

	span := start.Merge(p.curTok.Span)
	return ast.NewFnStmt[ast.Untyped](vis, name, nameSpan, params, ret, body, span)
}

// parseStructStmt parses `struct Name { field ~ Type, ... }[;]`.
func (p *Parser) parseStructStmt(vis ast.Visibility) ast.Stmt[ast.Untyped] {
	start := p.curTok.Span

	if !p.expect(lexer.IDENT) {
		return nil
	}
	name := p.curTok.Raw
	nameSpan := p.curTok.Span

	if !p.expect(lexer.LBRACE) {
		return nil
	}

	var fields []ast.StructField
	for p.peekTok.Type != lexer.RBRACE {
		if !p.expect(lexer.IDENT) {
			return nil
		}
		fieldName := p.curTok.Raw
		fieldSpan := p.curTok.Span

		if !p.expect(lexer.TILDE) {
			return nil
		}
		p.nextToken()
		typ := p.parseTypeExpr()
		if typ == nil {
			return nil
		}

		fields = append(fields, ast.StructField{Name: fieldName, NameSpan: fieldSpan, Type: typ})

		if p.peekTok.Type == lexer.COMMA {
			p.nextToken()
			continue
		}
		break
	}

	if !p.expect(lexer.RBRACE) {
		return nil
	}
	if p.peekTok.Type == lexer.SEMICOLON {
		p.nextToken()
	}

	span := start.Merge(p.curTok.Span)
	return ast.NewStructStmt[ast.Untyped](vis, name, nameSpan, fields, span)
}

// parseEnumStmt parses `enum Name { A, B, ... }[;]`.
func (p *Parser) parseEnumStmt(vis ast.Visibility) ast.Stmt[ast.Untyped] {
	start := p.curTok.Span

	if !p.expect(lexer.IDENT) {
		return nil
	}
	name := p.curTok.Raw
	nameSpan := p.curTok.Span

	if !p.expect(lexer.LBRACE) {
		return nil
	}

	var variants []ast.EnumVariant
	for p.peekTok.Type != lexer.RBRACE {
		if !p.expect(lexer.IDENT) {
			return nil
		}
		variants = append(variants, ast.EnumVariant{Name: p.curTok.Raw, Span: p.curTok.Span})

		if p.peekTok.Type == lexer.COMMA {
			p.nextToken()
			continue
		}
		break
	}

	if !p.expect(lexer.RBRACE) {
		return nil
	}
	if p.peekTok.Type == lexer.SEMICOLON {
		p.nextToken()
	}

	span := start.Merge(p.curTok.Span)
	return ast.NewEnumStmt[ast.Untyped](vis, name, nameSpan, variants, span)
}

// parseTraitStmt parses `trait Name { fn m(p ~ T, ...) -> T; ... }[;]`.
func (p *Parser) parseTraitStmt() ast.Stmt[ast.Untyped] {
	start := p.curTok.Span

	if !p.expect(lexer.IDENT) {
		return nil
	}
	name := p.curTok.Raw
	nameSpan := p.curTok.Span

	if !p.expect(lexer.LBRACE) {
		return nil
	}

	var methods []ast.TraitMethod
	for p.peekTok.Type == lexer.FN {
		p.nextToken() // 'fn'

		if !p.expect(lexer.IDENT) {
			return nil
		}
		methodName := p.curTok.Raw
		methodSpan := p.curTok.Span

		if !p.expect(lexer.LPAREN) {
			return nil
		}

		var params []*ast.Param
		if p.peekTok.Type == lexer.RPAREN {
			p.nextToken()
		} else {
			for {
				if !p.expect(lexer.IDENT) {
					return nil
				}
				paramName := p.curTok.Raw
				paramNameSpan := p.curTok.Span

				if !p.expect(lexer.TILDE) {
					return nil
				}
				p.nextToken()
				typ := p.parseTypeExpr()
				if typ == nil {
					return nil
				}
				params = append(params, ast.NewParam(paramName, paramNameSpan, typ,
					paramNameSpan.Merge(typ.Span())))

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

		var ret ast.TypeExpr
		if p.peekTok.Type == lexer.ARROW || p.peekTok.Type == lexer.TILDE {
			p.nextToken()
			p.nextToken()
			ret = p.parseTypeExpr()
			if ret == nil {
				return nil
			}
		}

		if !p.expect(lexer.SEMICOLON) {
			return nil
		}

		methods = append(methods, ast.TraitMethod{
			Name:     methodName,
			NameSpan: methodSpan,
			Params:   params,
			Return:   ret,
		})
	}

	if !p.expect(lexer.RBRACE) {
		return nil
	}
	if p.peekTok.Type == lexer.SEMICOLON {
		p.nextToken()
	}

	span := start.Merge(p.curTok.Span)
	return ast.NewTraitStmt[ast.Untyped](name, nameSpan, methods, span)
}

// parseImportStmt parses `import name;`.
func (p *Parser) parseImportStmt() ast.Stmt[ast.Untyped] {
	start := p.curTok.Span

	if !p.expect(lexer.IDENT) {
		return nil
	}
	path := p.curTok.Raw
	pathSpan := p.curTok.Span

	if !p.expect(lexer.SEMICOLON) {
		return nil
	}

	return ast.NewImportStmt[ast.Untyped](path, pathSpan, start.Merge(p.curTok.Span))
}

// parseTypeAliasStmt parses `type Name = Target;`.
func (p *Parser) parseTypeAliasStmt(vis ast.Visibility) ast.Stmt[ast.Untyped] {
	start := p.curTok.Span

	if !p.expect(lexer.IDENT) {
		return nil
	}
	name := p.curTok.Raw
	nameSpan := p.curTok.Span

	if !p.expect(lexer.ASSIGN) {
		return nil
	}
	p.nextToken()
	target := p.parseTypeExpr()
	if target == nil {
		return nil
	}

	if !p.expect(lexer.SEMICOLON) {
		return nil
	}

	span := start.Merge(p.curTok.Span)
	return ast.NewTypeAliasStmt[ast.Untyped](vis, name, nameSpan, target, span)
}

// parseReturnStmt parses `return [expr];`.
func (p *Parser) parseReturnStmt() ast.Stmt[ast.Untyped] {
	start := p.curTok.Span

	var value ast.Expr[ast.Untyped]
	if p.peekTok.Type != lexer.SEMICOLON {
		p.nextToken()
		value = p.parseExpr(bpLowest)
		if value == nil {
			return nil
		}
	}

	if !p.expect(lexer.SEMICOLON) {
		return nil
	}

	return ast.NewReturnStmt(value, start.Merge(p.curTok.Span))
}

// parseIfStmt parses `if cond { ... } [else { ... }]`.
func (p *Parser) parseIfStmt() ast.Stmt[ast.Untyped] {
	start := p.curTok.Span

	p.nextToken()
	cond := p.parseExpr(bpLowest)
	if cond == nil {
		return nil
	}

	if !p.expect(lexer.LBRACE) {
		return nil
	}
	then := p.parseBlock()
	if then == nil {
		return nil
	}

	var els *ast.Block[ast.Untyped]
	if p.peekTok.Type == lexer.ELSE {
		p.nextToken() // 'else'
		if !p.expect(lexer.LBRACE) {
			return nil
		}
		els = p.parseBlock()
		if els == nil {
			return nil
		}
	}

	return ast.NewIfStmt(cond, then, els, start.Merge(p.curTok.Span))
}

// parseWhileStmt parses `while cond { ... }`.
func (p *Parser) parseWhileStmt() ast.Stmt[ast.Untyped] {
	start := p.curTok.Span

	p.nextToken()
	cond := p.parseExpr(bpLowest)
	if cond == nil {
		return nil
	}

	if !p.expect(lexer.LBRACE) {
		return nil
	}
	body := p.parseBlock()
	if body == nil {
		return nil
	}

	return ast.NewWhileStmt(cond, body, start.Merge(p.curTok.Span))
}

// parseBlock parses `{ stmts... [tail] }`. Entered with curTok on '{',
// returns with curTok on '}'. A trailing expression without ';' becomes the
// block's tail; the block span covers all constituent statements.
func (p *Parser) parseBlock() *ast.Block[ast.Untyped] {
	start := p.curTok.Span

	var stmts []ast.Stmt[ast.Untyped]
	var tail ast.Expr[ast.Untyped]

	p.nextToken()
	for p.curTok.Type != lexer.RBRACE && p.curTok.Type != lexer.EOF {
		prev := p.curTok

		var stmt ast.Stmt[ast.Untyped]
		switch p.curTok.Type {
		case lexer.LET:
			stmt = p.parseLetStmt(ast.Private)
		case lexer.FN:
			stmt = p.parseFnStmt(ast.Private)
		case lexer.RETURN:
			stmt = p.parseReturnStmt()
		case lexer.IF:
			stmt = p.parseIfStmt()
		case lexer.WHILE:
			stmt = p.parseWhileStmt()
		case lexer.LBRACE:
			block := p.parseBlock()
			if block != nil {
				// A block directly before the closing '}' is the enclosing
				// block's tail expression; anywhere else it is a scope
				// statement and requires its ';'.
				if p.peekTok.Type == lexer.RBRACE {
					if tail != nil {
						p.reportError(diag.CodeParseExpectedSemicolon,
							"unexpected expression after block tail", block.Span(), "")
					} else {
						tail = block
					}
					p.nextToken() // onto '}'
					continue
				}
				if p.expect(lexer.SEMICOLON) {
					stmt = ast.NewScopeStmt(block, block.Span().Merge(p.curTok.Span))
				}
			}
		default:
			expr := p.parseExpr(bpLowest)
			if expr != nil {
				switch p.peekTok.Type {
				case lexer.SEMICOLON:
					p.nextToken()
					stmt = ast.NewExprStmt(expr, expr.Span().Merge(p.curTok.Span))
				case lexer.RBRACE:
					if tail != nil {
						p.reportError(diag.CodeParseExpectedSemicolon,
							"unexpected expression after block tail", expr.Span(), "")
					} else {
						tail = expr
					}
					p.nextToken() // onto '}'
					continue
				default:
					p.reportErrorWithHelp(diag.CodeParseExpectedSemicolon,
						"expected ';' after expression", p.peekTok.Span,
						"found '"+p.peekTok.Raw+"'",
						"only the final expression of a block may omit its ';'")
				}
			}
		}

		if stmt == nil {
			p.recoverStmt(prev)
			if p.curTok.Type == lexer.SEMICOLON {
				p.nextToken()
			}
			continue
		}

		stmts = append(stmts, stmt)
		p.nextToken()
	}

	if p.curTok.Type != lexer.RBRACE {
		p.reportError(diag.CodeParseExpectedToken,
			"expected '}' to close block", p.curTok.Span, "")
	}

	span := start.Merge(p.curTok.Span)
	for _, s := range stmts {
		span = span.Merge(s.Span())
	}
	if tail != nil {
		span = span.Merge(tail.Span())
	}

	return ast.NewBlock(stmts, tail, ast.Untyped{}, span)
}
