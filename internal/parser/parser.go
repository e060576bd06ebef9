// Package parser implements a Pratt parser over harpy's token stream,
// producing the internal/ast tree the analyzer and code generator consume.
//
// Grounded on funxy's internal/parser/expressions_core.go: the same
// curToken/peekToken cursor, a parseExpression(precedence) loop driven by
// prefixParseFns/infixParseFns tables keyed by token kind, and
// synchronize-on-sentinel error recovery so one bad statement doesn't
// abort the whole file.
package parser

import (
	"github.com/Aiffelowy/harpy-sub000/internal/ast"
	"github.com/Aiffelowy/harpy-sub000/internal/diagnostics"
	"github.com/Aiffelowy/harpy-sub000/internal/lexer"
	"github.com/Aiffelowy/harpy-sub000/internal/source"
	"github.com/Aiffelowy/harpy-sub000/internal/token"
)

// Precedence levels, lowest to highest.
const (
	LOWEST = iota + 1
	LOGIC_OR
	LOGIC_AND
	EQUALS
	COMPARE
	SUM
	PRODUCT
	PREFIX
	CALL
)

var precedences = map[token.Kind]int{
	token.OROR:   LOGIC_OR,
	token.ANDAND: LOGIC_AND,
	token.EQ:     EQUALS,
	token.NEQ:    EQUALS,
	token.LT:     COMPARE,
	token.LTE:    COMPARE,
	token.GT:     COMPARE,
	token.GTE:    COMPARE,
	token.PLUS:   SUM,
	token.MINUS:  SUM,
	token.STAR:   PRODUCT,
	token.SLASH:  PRODUCT,
	token.LPAREN: CALL,
}

type prefixParseFn func() ast.Expression
type infixParseFn func(ast.Expression) ast.Expression

// Parser consumes a token stream and builds the AST.
type Parser struct {
	l    *lexer.Lexer
	file *source.File

	curToken  token.Token
	peekToken token.Token

	Errors []*diagnostics.Diagnostic

	prefixParseFns map[token.Kind]prefixParseFn
	infixParseFns  map[token.Kind]infixParseFn
}

// New creates a Parser over f, priming the two-token lookahead.
func New(f *source.File) *Parser {
	p := &Parser{l: lexer.New(f), file: f}

	p.prefixParseFns = map[token.Kind]prefixParseFn{
		token.IDENT:    p.parseIdentifierOrCall,
		token.INT:      p.parseIntLiteral,
		token.FLOAT:    p.parseFloatLiteral,
		token.TRUE:     p.parseBoolLiteral,
		token.FALSE:    p.parseBoolLiteral,
		token.STRING:   p.parseStringLiteral,
		token.LPAREN:   p.parseGroupedExpression,
		token.MINUS:    p.parsePrefixExpression,
		token.PLUS:     p.parsePrefixExpression,
		token.BANG:     p.parsePrefixExpression,
		token.STAR:     p.parsePrefixExpression,
		token.AMP:      p.parseBorrowExpression,
		token.BOX:      p.parseBoxExpression,
	}
	p.infixParseFns = map[token.Kind]infixParseFn{
		token.PLUS:   p.parseInfixExpression,
		token.MINUS:  p.parseInfixExpression,
		token.STAR:   p.parseInfixExpression,
		token.SLASH:  p.parseInfixExpression,
		token.LT:     p.parseInfixExpression,
		token.LTE:    p.parseInfixExpression,
		token.GT:     p.parseInfixExpression,
		token.GTE:    p.parseInfixExpression,
		token.EQ:     p.parseInfixExpression,
		token.NEQ:    p.parseInfixExpression,
		token.ANDAND: p.parseInfixExpression,
		token.OROR:   p.parseInfixExpression,
	}

	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curTokenIs(k token.Kind) bool  { return p.curToken.Kind == k }
func (p *Parser) peekTokenIs(k token.Kind) bool { return p.peekToken.Kind == k }

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Kind]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.curToken.Kind]; ok {
		return pr
	}
	return LOWEST
}

// expectPeek advances past an expected peek token, recording an
// UnexpectedToken diagnostic and returning false otherwise.
func (p *Parser) expectPeek(k token.Kind) bool {
	if p.peekTokenIs(k) {
		p.nextToken()
		return true
	}
	p.errorf(p.peekToken.Span, "UnexpectedToken", "expected %s, got %s", k, p.peekToken.Kind)
	return false
}

func (p *Parser) errorf(span source.Span, code, format string, args ...interface{}) {
	p.Errors = append(p.Errors, diagnostics.New(code, span, format, args...))
}

// synchronize skips tokens until a likely statement boundary, so one
// malformed statement doesn't cascade into spurious follow-on errors.
func (p *Parser) synchronize() {
	for !p.curTokenIs(token.RBRACE) && !p.curTokenIs(token.SEMI) && !p.curTokenIs(token.EOF) {
		p.nextToken()
	}
	if p.curTokenIs(token.SEMI) {
		p.nextToken()
	}
}

// ParseProgram parses the whole file into a Program node, collecting
// declarations and accumulating recoverable errors as it goes.
func ParseProgram(f *source.File) (*ast.Program, []*diagnostics.Diagnostic) {
	p := New(f)
	start := p.curToken.Span
	prog := ast.NewProgram(start)

	for !p.curTokenIs(token.EOF) {
		switch p.curToken.Kind {
		case token.FN:
			if fn := p.parseFuncDecl(); fn != nil {
				prog.Functions = append(prog.Functions, fn)
				p.nextToken()
			} else {
				p.synchronize()
			}
		case token.GLOBAL:
			if g := p.parseGlobalStmt(); g != nil {
				prog.Globals = append(prog.Globals, g)
				p.nextToken()
				if p.curTokenIs(token.SEMI) {
					p.nextToken()
				}
			} else {
				p.synchronize()
			}
		default:
			p.errorf(p.curToken.Span, "UnexpectedToken", "expected 'fn' or 'global' at top level, got %s", p.curToken.Kind)
			p.synchronize()
		}
	}
	return prog, p.Errors
}
