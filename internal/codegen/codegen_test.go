package codegen_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aiffelowy/harpy-sub000/internal/compiler"
	"github.com/Aiffelowy/harpy-sub000/internal/source"
)

// Label resolution (codegen.go's two-pass measure-then-patch scheme)
// must be deterministic: compiling the same source twice must produce
// byte-identical, non-empty code.
func TestCodegen_LabelResolutionIsDeterministic(t *testing.T) {
	src := `
fn main() -> int {
	let mut s = 0;
	let mut i = 0;
	while i < 10 {
		if i == 5 {
			s = s + 100;
		} else {
			s = s + i;
		}
		i = i + 1;
	}
	return s;
}
`
	img1, errs1 := compiler.Compile(source.NewFile("<a>", src))
	require.Empty(t, errs1)
	img2, errs2 := compiler.Compile(source.NewFile("<b>", src))
	require.Empty(t, errs2)

	assert.Equal(t, img1.Code, img2.Code, "identical sources must generate identical bytecode")
	assert.NotEmpty(t, img1.Code)
}

func TestCodegen_FunctionCallCompiles(t *testing.T) {
	src := `
fn add(a: int, b: int) -> int { return a + b; }
fn main() -> int { return add(2, 3); }
`
	img, errs := compiler.Compile(source.NewFile("<test>", src))
	require.Empty(t, errs)
	require.Len(t, img.Functions, 2)
	assert.NotEmpty(t, img.Code)
}
