package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aiffelowy/harpy-sub000/internal/lexer"
	"github.com/Aiffelowy/harpy-sub000/internal/source"
	"github.com/Aiffelowy/harpy-sub000/internal/token"
)

func lexAll(t *testing.T, input string) []token.Token {
	t.Helper()
	l := lexer.New(source.NewFile("<test>", input))
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	return toks
}

func kinds(toks []token.Token) []token.Kind {
	ks := make([]token.Kind, len(toks))
	for i, t := range toks {
		ks[i] = t.Kind
	}
	return ks
}

func TestLexer_Punctuation(t *testing.T) {
	toks := lexAll(t, "-> => == != <= >= += -= *= /= && ||")
	assert.Equal(t, []token.Kind{
		token.ARROW, token.FATARROW, token.EQ, token.NEQ, token.LTE, token.GTE,
		token.PLUS_ASSIGN, token.MINUS_ASSIGN, token.STAR_ASSIGN, token.SLASH_ASSIGN,
		token.ANDAND, token.OROR, token.EOF,
	}, kinds(toks))
}

func TestLexer_KeywordsVsIdentifiers(t *testing.T) {
	toks := lexAll(t, "fn let mut global box boxed borrow borrowed foo")
	assert.Equal(t, []token.Kind{
		token.FN, token.LET, token.MUT, token.GLOBAL, token.BOX, token.BOXED,
		token.BORROW, token.BORROWED, token.IDENT, token.EOF,
	}, kinds(toks))
}

func TestLexer_IntAndFloatLiterals(t *testing.T) {
	toks := lexAll(t, "42 3.5")
	require.Len(t, toks, 3)
	assert.Equal(t, token.INT, toks[0].Kind)
	assert.Equal(t, int64(42), toks[0].IntVal)
	assert.Equal(t, token.FLOAT, toks[1].Kind)
	assert.Equal(t, 3.5, toks[1].FltVal)
}

func TestLexer_StringEscapedQuote(t *testing.T) {
	toks := lexAll(t, `"hello \"world\""`)
	require.Len(t, toks, 2)
	assert.Equal(t, token.STRING, toks[0].Kind)
	assert.Equal(t, `hello "world"`, toks[0].StrVal)
}

func TestLexer_UnterminatedStringReportsError(t *testing.T) {
	f := source.NewFile("<test>", `"unterminated`)
	l := lexer.New(f)
	l.NextToken()
	require.Len(t, l.Errors, 1)
	assert.Equal(t, "UnclosedStr", l.Errors[0].Kind)
}

func TestLexer_LineComment(t *testing.T) {
	toks := lexAll(t, "1 // this is a comment\n2")
	require.Len(t, toks, 3)
	assert.Equal(t, int64(1), toks[0].IntVal)
	assert.Equal(t, int64(2), toks[1].IntVal)
}

func TestLexer_UnknownTokenReportsError(t *testing.T) {
	f := source.NewFile("<test>", "1 @ 2")
	l := lexer.New(f)
	for {
		tok := l.NextToken()
		if tok.Kind == token.EOF {
			break
		}
	}
	require.Len(t, l.Errors, 1)
	assert.Equal(t, "UnknownToken", l.Errors[0].Kind)
}
