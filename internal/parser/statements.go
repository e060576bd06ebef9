package parser

import (
	"github.com/Aiffelowy/harpy-sub000/internal/ast"
	"github.com/Aiffelowy/harpy-sub000/internal/source"
	"github.com/Aiffelowy/harpy-sub000/internal/token"
	"github.com/Aiffelowy/harpy-sub000/internal/types"
)

func (p *Parser) parseFuncDecl() *ast.FuncDecl {
	tok := p.curToken // 'fn'
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	name := p.curToken.Lexeme

	if !p.expectPeek(token.LPAREN) {
		return nil
	}
	params := p.parseParamList()

	retType := types.Void()
	if p.peekTokenIs(token.ARROW) {
		p.nextToken()
		p.nextToken()
		retType = p.parseType()
	}

	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	body := p.parseBlockStmt()
	if body == nil {
		return nil
	}
	return ast.NewFuncDecl(source.Merge(tok.Span, body.Span()), name, params, retType, body)
}

func (p *Parser) parseParamList() []*ast.Param {
	var params []*ast.Param
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return params
	}
	p.nextToken()
	params = append(params, p.parseParam())
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		params = append(params, p.parseParam())
	}
	if !p.expectPeek(token.RPAREN) {
		return params
	}
	return params
}

func (p *Parser) parseParam() *ast.Param {
	tok := p.curToken
	name := p.curToken.Lexeme
	if !p.expectPeek(token.COLON) {
		return ast.NewParam(tok.Span, name, types.Unknown())
	}
	p.nextToken()
	t := p.parseType()
	return ast.NewParam(source.Merge(tok.Span, p.curToken.Span), name, t)
}

func (p *Parser) parseBlockStmt() *ast.BlockStmt {
	tok := p.curToken // '{'
	var stmts []ast.Statement
	p.nextToken()
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		if s := p.parseStatement(); s != nil {
			stmts = append(stmts, s)
		} else {
			p.synchronize()
			continue
		}
		p.nextToken()
		if p.curTokenIs(token.SEMI) {
			p.nextToken()
		}
	}
	return ast.NewBlockStmt(source.Merge(tok.Span, p.curToken.Span), stmts)
}

// asStmt converts a possibly-nil concrete *T statement pointer into an
// ast.Statement, collapsing it to a true nil interface rather than an
// interface wrapping a nil pointer (the classic typed-nil trap).
func asStmt[T interface {
	ast.Statement
	comparable
}](v T) ast.Statement {
	var zero T
	if v == zero {
		return nil
	}
	return v
}

func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Kind {
	case token.LET:
		return p.parseLetStmt()
	case token.GLOBAL:
		return asStmt(p.parseGlobalStmt())
	case token.FOR:
		return asStmt(p.parseForStmt())
	case token.WHILE:
		return asStmt(p.parseWhileStmt())
	case token.LOOP:
		return asStmt(p.parseLoopStmt())
	case token.IF:
		return asStmt(p.parseIfStmt())
	case token.SWITCH:
		return asStmt(p.parseSwitchStmt())
	case token.RETURN:
		return asStmt(p.parseReturnStmt())
	case token.LBRACE:
		return asStmt(p.parseBlockStmt())
	default:
		return p.parseExprOrAssignStmt()
	}
}

func (p *Parser) parseLetStmt() ast.Statement {
	tok := p.curToken // 'let'
	mutable := false
	if p.peekTokenIs(token.MUT) {
		mutable = true
		p.nextToken()
	}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	name := p.curToken.Lexeme

	var declared *types.Type
	if p.peekTokenIs(token.COLON) {
		p.nextToken()
		p.nextToken()
		t := p.parseType()
		declared = &t
	}

	var value ast.Expression
	if p.peekTokenIs(token.ASSIGN) {
		p.nextToken()
		p.nextToken()
		value = p.parseExpression(LOWEST)
	}
	end := p.curToken.Span
	return ast.NewLetStmt(source.Merge(tok.Span, end), name, declared, value, mutable)
}

func (p *Parser) parseGlobalStmt() *ast.GlobalStmt {
	tok := p.curToken // 'global'
	mutable := false
	if p.peekTokenIs(token.MUT) {
		mutable = true
		p.nextToken()
	}
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	name := p.curToken.Lexeme
	if !p.expectPeek(token.COLON) {
		return nil
	}
	p.nextToken()
	declared := p.parseType()
	if !p.expectPeek(token.ASSIGN) {
		return nil
	}
	p.nextToken()
	value := p.parseExpression(LOWEST)
	return ast.NewGlobalStmt(source.Merge(tok.Span, p.curToken.Span), name, declared, value, mutable)
}

func (p *Parser) parseForStmt() *ast.ForStmt {
	tok := p.curToken // 'for'
	if !p.expectPeek(token.IDENT) {
		return nil
	}
	v := p.curToken.Lexeme
	if !p.expectPeek(token.IN) {
		return nil
	}
	p.nextToken()
	from := p.parseExpression(LOWEST)
	if !p.expectPeek(token.FATARROW) {
		return nil
	}
	p.nextToken()
	to := p.parseExpression(LOWEST)
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	body := p.parseBlockStmt()
	return ast.NewForStmt(source.Merge(tok.Span, body.Span()), v, from, to, body)
}

func (p *Parser) parseWhileStmt() *ast.WhileStmt {
	tok := p.curToken // 'while'
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	body := p.parseBlockStmt()
	return ast.NewWhileStmt(source.Merge(tok.Span, body.Span()), cond, body)
}

func (p *Parser) parseLoopStmt() *ast.LoopStmt {
	tok := p.curToken // 'loop'
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	body := p.parseBlockStmt()
	return ast.NewLoopStmt(source.Merge(tok.Span, body.Span()), body)
}

func (p *Parser) parseIfStmt() *ast.IfStmt {
	tok := p.curToken // 'if'
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	then := p.parseBlockStmt()

	var els ast.Statement
	end := then.Span()
	if p.peekTokenIs(token.ELSE) {
		p.nextToken()
		if p.peekTokenIs(token.IF) {
			p.nextToken()
			if elseIf := p.parseIfStmt(); elseIf != nil {
				els = elseIf
				end = elseIf.Span()
			}
		} else if p.expectPeek(token.LBRACE) {
			if block := p.parseBlockStmt(); block != nil {
				els = block
				end = block.Span()
			}
		}
	}
	return ast.NewIfStmt(source.Merge(tok.Span, end), cond, then, els)
}

func (p *Parser) parseSwitchStmt() *ast.SwitchStmt {
	tok := p.curToken // 'switch'
	p.nextToken()
	subject := p.parseExpression(LOWEST)
	if !p.expectPeek(token.LBRACE) {
		return nil
	}
	p.nextToken()

	var cases []*ast.SwitchCase
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.EOF) {
		caseTok := p.curToken
		isDefault := p.curTokenIs(token.DOT)
		var value ast.Expression
		if isDefault {
			p.nextToken()
		} else {
			value = p.parseExpression(LOWEST)
			p.nextToken()
		}
		if !p.curTokenIs(token.ARROW) {
			p.errorf(p.curToken.Span, "UnexpectedToken", "expected '->' in switch case, got %s", p.curToken.Kind)
			p.synchronize()
			continue
		}
		p.nextToken()
		body := p.parseStatement()
		cases = append(cases, ast.NewSwitchCase(source.Merge(caseTok.Span, p.curToken.Span), value, isDefault, body))
		p.nextToken()
		if p.curTokenIs(token.SEMI) {
			p.nextToken()
		}
	}
	return ast.NewSwitchStmt(source.Merge(tok.Span, p.curToken.Span), subject, cases)
}

func (p *Parser) parseReturnStmt() *ast.ReturnStmt {
	tok := p.curToken // 'return'
	if p.peekTokenIs(token.SEMI) || p.peekTokenIs(token.RBRACE) {
		return ast.NewReturnStmt(tok.Span, nil)
	}
	p.nextToken()
	value := p.parseExpression(LOWEST)
	end := tok.Span
	if value != nil {
		end = source.Merge(tok.Span, value.Span())
	}
	return ast.NewReturnStmt(end, value)
}

var assignOps = map[token.Kind]ast.AssignOp{
	token.ASSIGN:       ast.AssignPlain,
	token.PLUS_ASSIGN:  ast.AssignAdd,
	token.MINUS_ASSIGN: ast.AssignSub,
	token.STAR_ASSIGN:  ast.AssignMul,
	token.SLASH_ASSIGN: ast.AssignDiv,
}

func (p *Parser) parseExprOrAssignStmt() ast.Statement {
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}
	if op, ok := assignOps[p.peekToken.Kind]; ok {
		p.nextToken()
		assignOp := op
		p.nextToken()
		value := p.parseExpression(LOWEST)
		if !ast.IsLvalue(expr) {
			p.errorf(expr.Span(), "AssignToRValue", "left-hand side of assignment is not an lvalue")
		}
		return ast.NewAssignStmt(source.Merge(expr.Span(), value.Span()), expr, assignOp, value)
	}
	return ast.NewExprStmt(expr.Span(), expr)
}
