package analyzer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aiffelowy/harpy-sub000/internal/analyzer"
	"github.com/Aiffelowy/harpy-sub000/internal/parser"
	"github.com/Aiffelowy/harpy-sub000/internal/source"
)

// analyzeSource lexes, parses and analyzes input, returning the
// accumulated semantic errors. Reused across this file's test cases.
func analyzeSource(t *testing.T, input string) []*analyzer.SemanticError {
	t.Helper()
	f := source.NewFile("<test>", input)
	prog, diags := parser.ParseProgram(f)
	require.Empty(t, diags, "unexpected parse errors")
	result := analyzer.Analyze(prog)
	return result.Errors
}

func expectError(t *testing.T, input, code string) *analyzer.SemanticError {
	t.Helper()
	errs := analyzeSource(t, input)
	for _, e := range errs {
		if e.Code == code {
			return e
		}
	}
	t.Fatalf("expected error %s, got %v\ninput: %s", code, errs, input)
	return nil
}

func expectNoErrors(t *testing.T, input string) {
	t.Helper()
	errs := analyzeSource(t, input)
	assert.Empty(t, errs, "input: %s", input)
}

func TestS2_ReturnTypeMismatch(t *testing.T) {
	expectError(t, `fn main() -> int { return true; }`, analyzer.ErrReturnTypeMismatch)
}

func TestS4_ReturnRefToLocal(t *testing.T) {
	expectError(t, `fn main() -> borrow int { let x = 1; return &x; }`, analyzer.ErrReturnRefToLocal)
}

func TestS5_ConflictingBorrows(t *testing.T) {
	expectError(t,
		`fn main() { let mut x = 0; let a = &x; let b = &mut x; }`,
		analyzer.ErrCreatedMutableBorrowWhileImmutableBorrow)
}

func TestImmutableBorrowRejectedWhileMutablyBorrowed(t *testing.T) {
	expectError(t,
		`fn main() { let mut x = 0; let a = &mut x; let b = &x; }`,
		analyzer.ErrAlreadyMutablyBorrowed)
}

func TestBorrowMutNonMutable(t *testing.T) {
	expectError(t, `fn main() { let x = 0; let a = &mut x; }`, analyzer.ErrBorrowMutNonMutable)
}

func TestNotAllPathsReturn(t *testing.T) {
	expectError(t, `fn main() -> int { if true { return 1; } }`, analyzer.ErrNotAllPathsReturn)
}

func TestNotAllPathsReturn_OkWithElse(t *testing.T) {
	expectNoErrors(t, `fn main() -> int { if true { return 1; } else { return 2; } }`)
}

func TestVoidFunctionNeedsNoReturn(t *testing.T) {
	expectNoErrors(t, `fn main() { let x = 1; }`)
}

func TestArgCountMismatch(t *testing.T) {
	expectError(t, `
fn add(a: int, b: int) -> int { return a + b; }
fn main() -> int { return add(1); }
`, analyzer.ErrArgCountMismatch)
}

func TestArgTypeMismatch(t *testing.T) {
	expectError(t, `
fn takes(a: int) -> int { return a; }
fn main() -> int { return takes(true); }
`, analyzer.ErrArgTypeMismatch)
}

func TestUninitializedVar(t *testing.T) {
	expectError(t, `fn main() -> int { let x: int; return x; }`, analyzer.ErrUninitializedVar)
}

func TestAssignToConst(t *testing.T) {
	expectError(t, `fn main() { let x = 1; x = 2; }`, analyzer.ErrAssignToConst)
}

func TestAssignToMutableOk(t *testing.T) {
	expectNoErrors(t, `fn main() { let mut x = 1; x = 2; }`)
}

func TestForLoopSum_NoErrors(t *testing.T) {
	expectNoErrors(t, `
fn main() -> int {
	let mut s = 0;
	for i in 1 => 5 {
		s = s + i;
	}
	return s;
}
`)
}

func TestWhileTypeMismatch(t *testing.T) {
	expectError(t, `fn main() { while 1 { } }`, analyzer.ErrWhileTypeMismatch)
}

func TestIfTypeMismatch(t *testing.T) {
	expectError(t, `fn main() { if 1 { } }`, analyzer.ErrIfTypeMismatch)
}

func TestDuplicateSymbol(t *testing.T) {
	expectError(t, `fn main() { let x = 1; let x = 2; }`, analyzer.ErrDuplicateSymbol)
}

func TestPointerToRef(t *testing.T) {
	expectError(t, `fn main() { let x: boxed borrow int = box 1; }`, analyzer.ErrPointerToRef)
}

func TestBorrowSameScopeAsVariable_Ok(t *testing.T) {
	expectNoErrors(t, `fn main() { let x = 1; let a = &x; }`)
}

func TestBorrowFromEnclosingScope_LifetimeMismatch(t *testing.T) {
	expectError(t, `
fn main() {
	let x = 1;
	{
		let a = &x;
	}
}
`, analyzer.ErrLifetimeMismatch)
}
