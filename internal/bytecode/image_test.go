package bytecode_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aiffelowy/harpy-sub000/internal/bytecode"
)

// buildImage constructs a small but representative image exercising
// every section kind: a primitive type for each const kind, a Boxed
// type, one of each const kind (each pointing at its own type entry),
// one global, and one function with two locals.
func buildImage() *bytecode.Image {
	return &bytecode.Image{
		MainFunctionIndex: 0,
		Types: []bytecode.TypeEntry{
			{Kind: bytecode.TVoid},
			{Kind: bytecode.TPrimitive, Prim: bytecode.PrimInt, Size: 8},
			{Kind: bytecode.TBoxed, PointeeIdx: 1},
			{Kind: bytecode.TPrimitive, Prim: bytecode.PrimFloat, Size: 8},
			{Kind: bytecode.TPrimitive, Prim: bytecode.PrimBool, Size: 1},
			{Kind: bytecode.TPrimitive, Prim: bytecode.PrimStr, Size: 16},
		},
		Globals: []int{1},
		Consts: []bytecode.ConstEntry{
			bytecode.VoidConst(0),
			bytecode.IntConst(1, 42),
			bytecode.FloatConst(3, 3.5),
			bytecode.BoolConst(4, true),
			bytecode.StrConst(5, "hi"),
		},
		Functions: []bytecode.FuncEntry{
			{CodeOffset: 0, ParamCount: 1, LocalTypes: []int{1, 2}},
		},
		Code: []byte{byte(bytecode.HALT)},
	}
}

func TestImage_RoundTrip(t *testing.T) {
	img := buildImage()
	data, err := bytecode.Write(img)
	require.NoError(t, err)

	got, err := bytecode.Read(data)
	require.NoError(t, err)

	assert.Equal(t, img.MainFunctionIndex, got.MainFunctionIndex)
	assert.Equal(t, img.Types, got.Types)
	assert.Equal(t, img.Globals, got.Globals)
	assert.Equal(t, img.Consts, got.Consts)
	assert.Equal(t, img.Functions, got.Functions)
	assert.Equal(t, img.Code, got.Code)
}

func TestImage_StartsWithMagicAndVersion(t *testing.T) {
	data, err := bytecode.Write(buildImage())
	require.NoError(t, err)
	assert.Equal(t, []byte("harpy"), data[0:5])
	assert.Equal(t, []byte{0, 1}, data[5:7])
}

func TestImage_ReadRejectsTruncatedData(t *testing.T) {
	data, err := bytecode.Write(buildImage())
	require.NoError(t, err)
	_, err = bytecode.Read(data[:3])
	assert.Error(t, err)
}
