package vm_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aiffelowy/harpy-sub000/internal/bytecode"
	"github.com/Aiffelowy/harpy-sub000/internal/compiler"
	"github.com/Aiffelowy/harpy-sub000/internal/config"
	"github.com/Aiffelowy/harpy-sub000/internal/source"
	"github.com/Aiffelowy/harpy-sub000/internal/vm"
)

// compileAndRun drives the full pipeline (compile -> write -> read ->
// run) exactly the way cmd/harpy's "compile" then "run" subcommands do,
// so these tests exercise the same image-roundtrip boundary a real
// user hits.
func compileAndRun(t *testing.T, src string) (string, error) {
	t.Helper()
	f := source.NewFile("<test>", src)
	img, errs := compiler.Compile(f)
	require.Empty(t, errs, "unexpected compile errors")

	data, err := bytecode.Write(img)
	require.NoError(t, err)

	loaded, err := bytecode.Read(data)
	require.NoError(t, err)

	var out bytes.Buffer
	machine := vm.New(loaded, config.Default().VM, &out)
	_, runErr := machine.Run()
	return out.String(), runErr
}

func TestS1_ArithmeticPrecedence(t *testing.T) {
	out, err := compileAndRun(t, `fn main() -> int { return 2 + 3 * 4; }`)
	require.NoError(t, err)
	assert.Equal(t, "Int(14)\n", out)
}

func TestS3_ForLoopSum(t *testing.T) {
	out, err := compileAndRun(t, `
fn main() -> int {
	let mut s = 0;
	for i in 1 => 5 {
		s = s + i;
	}
	return s;
}
`)
	require.NoError(t, err)
	assert.Equal(t, "Int(10)\n", out)
}

func TestS6_GCReclaimsShortLivedBoxes(t *testing.T) {
	out, err := compileAndRun(t, `
fn main() -> int {
	let mut i = 0;
	let mut last = 0;
	while i < 10000 {
		let p = box i;
		last = *p;
		i = i + 1;
	}
	return last;
}
`)
	require.NoError(t, err)
	assert.Equal(t, "Int(9999)\n", out)
}
