package parser

import (
	"strings"

	"github.com/Aiffelowy/harpy-sub000/internal/ast"
	"github.com/Aiffelowy/harpy-sub000/internal/source"
	"github.com/Aiffelowy/harpy-sub000/internal/token"
	"github.com/Aiffelowy/harpy-sub000/internal/types"
)

func (p *Parser) parseExpression(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Kind]
	if prefix == nil {
		p.errorf(p.curToken.Span, "UnexpectedToken", "no expression can start with %s", p.curToken.Kind)
		return nil
	}
	left := prefix()

	for !p.peekTokenIs(token.SEMI) && precedence < p.peekPrecedence() {
		infix := p.infixParseFns[p.peekToken.Kind]
		if infix == nil {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	return left
}

func (p *Parser) parseIdentifierOrCall() ast.Expression {
	ident := ast.NewIdentifier(p.curToken.Span, p.curToken.Lexeme)
	if !p.peekTokenIs(token.LPAREN) {
		return ident
	}
	p.nextToken() // consume '('
	startSpan := ident.Span()
	args := p.parseCallArgs()
	callSpan := source.Merge(startSpan, p.curToken.Span)
	return ast.NewCallExpr(callSpan, ident, args)
}

func (p *Parser) parseCallArgs() []ast.Expression {
	var args []ast.Expression
	if p.peekTokenIs(token.RPAREN) {
		p.nextToken()
		return args
	}
	p.nextToken()
	args = append(args, p.parseExpression(LOWEST))
	for p.peekTokenIs(token.COMMA) {
		p.nextToken()
		p.nextToken()
		args = append(args, p.parseExpression(LOWEST))
	}
	if !p.expectPeek(token.RPAREN) {
		return args
	}
	return args
}

func (p *Parser) parseIntLiteral() ast.Expression {
	return ast.NewIntLiteral(p.curToken.Span, p.curToken.IntVal)
}

func (p *Parser) parseFloatLiteral() ast.Expression {
	return ast.NewFloatLiteral(p.curToken.Span, p.curToken.FltVal)
}

func (p *Parser) parseBoolLiteral() ast.Expression {
	return ast.NewBoolLiteral(p.curToken.Span, p.curToken.Kind == token.TRUE)
}

func (p *Parser) parseStringLiteral() ast.Expression {
	return ast.NewStringLiteral(p.curToken.Span, p.curToken.StrVal)
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken()
	exp := p.parseExpression(LOWEST)
	if !p.expectPeek(token.RPAREN) {
		return nil
	}
	return exp
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	tok := p.curToken
	var op ast.PrefixOp
	switch tok.Kind {
	case token.PLUS:
		op = ast.PrefixPlus
	case token.MINUS:
		op = ast.PrefixMinus
	case token.BANG:
		op = ast.PrefixNot
	case token.STAR:
		op = ast.PrefixStar
	}
	p.nextToken()
	right := p.parseExpression(PREFIX)
	if right == nil {
		return nil
	}
	return ast.NewPrefixExpr(source.Merge(tok.Span, right.Span()), op, right)
}

func (p *Parser) parseBorrowExpression() ast.Expression {
	tok := p.curToken // '&'
	mutable := false
	if p.peekTokenIs(token.MUT) {
		mutable = true
		p.nextToken()
	}
	p.nextToken()
	target := p.parseExpression(PREFIX)
	if target == nil {
		return nil
	}
	if !ast.IsLvalue(target) {
		p.errorf(target.Span(), "InvalidBorrow", "cannot borrow a non-lvalue expression")
	}
	return ast.NewBorrowExpr(source.Merge(tok.Span, target.Span()), target, mutable)
}

func (p *Parser) parseBoxExpression() ast.Expression {
	tok := p.curToken // 'box'
	p.nextToken()
	value := p.parseExpression(PREFIX)
	if value == nil {
		return nil
	}
	return ast.NewBoxExpr(source.Merge(tok.Span, value.Span()), value)
}

var infixOps = map[token.Kind]ast.InfixOp{
	token.PLUS:   ast.OpAdd,
	token.MINUS:  ast.OpSub,
	token.STAR:   ast.OpMul,
	token.SLASH:  ast.OpDiv,
	token.LT:     ast.OpLt,
	token.LTE:    ast.OpLte,
	token.GT:     ast.OpGt,
	token.GTE:    ast.OpGte,
	token.EQ:     ast.OpEq,
	token.NEQ:    ast.OpNeq,
	token.ANDAND: ast.OpAnd,
	token.OROR:   ast.OpOr,
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	tok := p.curToken
	op := infixOps[tok.Kind]
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(precedence)
	if right == nil {
		return nil
	}
	return ast.NewInfixExpr(source.Merge(left.Span(), right.Span()), op, left, right)
}

// parseType parses a type annotation: a primitive/custom base name,
// optionally wrapped in `boxed` / `borrow`|`borrowed`, each optionally
// carrying an inner `mut`.
func (p *Parser) parseType() types.Type {
	switch p.curToken.Kind {
	case token.BOXED:
		p.nextToken()
		mutable := p.consumeMut()
		return types.Boxed(p.parseType(), mutable)
	case token.BORROW, token.BORROWED:
		p.nextToken()
		mutable := p.consumeMut()
		return types.Ref(p.parseType(), mutable)
	case token.IDENT:
		name := p.curToken.Lexeme
		return baseTypeFromName(name)
	default:
		p.errorf(p.curToken.Span, "UnexpectedToken", "expected a type, got %s", p.curToken.Kind)
		return types.Unknown()
	}
}

func (p *Parser) consumeMut() bool {
	if p.curTokenIs(token.MUT) {
		p.nextToken()
		return true
	}
	return false
}

func baseTypeFromName(name string) types.Type {
	switch strings.ToLower(name) {
	case "int":
		return types.BasePrim(types.Int, false)
	case "float":
		return types.BasePrim(types.Float, false)
	case "str":
		return types.BasePrim(types.Str, false)
	case "bool":
		return types.BasePrim(types.Bool, false)
	default:
		return types.Custom(name, false)
	}
}
