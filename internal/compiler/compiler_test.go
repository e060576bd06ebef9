package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aiffelowy/harpy-sub000/internal/bytecode"
	"github.com/Aiffelowy/harpy-sub000/internal/compiler"
	"github.com/Aiffelowy/harpy-sub000/internal/source"
)

func TestCompile_MissingMainIsAnError(t *testing.T) {
	img, errs := compiler.Compile(source.NewFile("<test>", `fn helper() -> int { return 1; }`))
	assert.Nil(t, img)
	require.NotEmpty(t, errs)
}

func TestCompile_ParseErrorsShortCircuitAnalysis(t *testing.T) {
	img, errs := compiler.Compile(source.NewFile("<test>", `fn main() -> int { let = 1; }`))
	assert.Nil(t, img)
	require.NotEmpty(t, errs)
}

func TestCompile_ProducesWritableImage(t *testing.T) {
	img, errs := compiler.Compile(source.NewFile("<test>", `
fn add(a: int, b: int) -> int { return a + b; }
fn main() -> int { return add(2, 3); }
`))
	require.Empty(t, errs)
	require.NotNil(t, img)

	data, err := bytecode.Write(img)
	require.NoError(t, err)

	back, err := bytecode.Read(data)
	require.NoError(t, err)
	assert.Equal(t, img.MainFunctionIndex, back.MainFunctionIndex)
}

func TestCompile_AnalysisErrorStopsCodegen(t *testing.T) {
	img, errs := compiler.Compile(source.NewFile("<test>", `fn main() -> int { return true; }`))
	assert.Nil(t, img)
	require.NotEmpty(t, errs)
}
