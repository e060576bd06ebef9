package parser_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aiffelowy/harpy-sub000/internal/ast"
	"github.com/Aiffelowy/harpy-sub000/internal/parser"
	"github.com/Aiffelowy/harpy-sub000/internal/source"
)

func parse(t *testing.T, input string) *ast.Program {
	t.Helper()
	prog, diags := parser.ParseProgram(source.NewFile("<test>", input))
	require.Empty(t, diags, "unexpected parse errors for: %s", input)
	return prog
}

func TestParseFuncDecl_ParamsAndReturnType(t *testing.T) {
	prog := parse(t, `fn add(a: int, b: int) -> int { return a + b; }`)
	require.Len(t, prog.Functions, 1)
	fn := prog.Functions[0]
	assert.Equal(t, "add", fn.Name)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Name)
	assert.Equal(t, "b", fn.Params[1].Name)
	require.Len(t, fn.Body.Statements, 1)
}

func TestParseGlobalStmt(t *testing.T) {
	prog := parse(t, `global mut counter: int = 0;`)
	require.Len(t, prog.Globals, 1)
	g := prog.Globals[0]
	assert.Equal(t, "counter", g.Name)
	assert.True(t, g.Mutable)
}

func TestParseBinaryPrecedence(t *testing.T) {
	prog := parse(t, `fn main() -> int { return 2 + 3 * 4; }`)
	ret := prog.Functions[0].Body.Statements[0].(*ast.ReturnStmt)
	infix, ok := ret.Value.(*ast.InfixExpr)
	require.True(t, ok, "expected top-level +")
	assert.Equal(t, ast.OpAdd, infix.Op)
	rhs, ok := infix.Right.(*ast.InfixExpr)
	require.True(t, ok, "expected * to bind tighter than +")
	assert.Equal(t, ast.OpMul, rhs.Op)
}

func TestParseForStmt(t *testing.T) {
	prog := parse(t, `
fn main() -> int {
	let mut s = 0;
	for i in 1 => 5 {
		s = s + i;
	}
	return s;
}
`)
	body := prog.Functions[0].Body.Statements
	require.Len(t, body, 3)
	forStmt, ok := body[1].(*ast.ForStmt)
	require.True(t, ok)
	assert.Equal(t, "i", forStmt.Var)
}

func TestParseBoxAndBorrowExpressions(t *testing.T) {
	prog := parse(t, `fn main() { let x: boxed int = box 1; let r = &x; }`)
	body := prog.Functions[0].Body.Statements
	require.Len(t, body, 2)
	let0 := body[0].(*ast.LetStmt)
	_, ok := let0.Value.(*ast.BoxExpr)
	assert.True(t, ok, "expected box expression")
	let1 := body[1].(*ast.LetStmt)
	_, ok = let1.Value.(*ast.BorrowExpr)
	assert.True(t, ok, "expected borrow expression")
}

func TestParseUnexpectedTokenRecovers(t *testing.T) {
	prog, diags := parser.ParseProgram(source.NewFile("<test>", `fn main() { let = 1; } fn ok() -> int { return 0; }`))
	assert.NotEmpty(t, diags)
	assert.Len(t, prog.Functions, 2, "parsing must continue past the bad let to the next function")
}
