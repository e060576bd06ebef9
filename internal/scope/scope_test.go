package scope_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aiffelowy/harpy-sub000/internal/scope"
	"github.com/Aiffelowy/harpy-sub000/internal/types"
)

func TestDefine_DuplicateInSameScope(t *testing.T) {
	root := scope.NewRoot()
	a := &scope.Symbol{Name: "x", TypeInfo: types.NewTypeInfo(types.BasePrim(types.Int, false), 0)}
	b := &scope.Symbol{Name: "x", TypeInfo: types.NewTypeInfo(types.BasePrim(types.Int, false), 0)}

	require.NoError(t, root.Define(a))
	err := root.Define(b)
	require.Error(t, err)
	var dup *scope.ErrDuplicateSymbol
	assert.ErrorAs(t, err, &dup)
	assert.Equal(t, "x", dup.Name)
}

func TestLookup_EscalatesToParent(t *testing.T) {
	root := scope.NewRoot()
	outer := &scope.Symbol{Name: "g"}
	require.NoError(t, root.Define(outer))

	child := root.Push(scope.KindBlock, "")
	found, ok := child.Lookup("g")
	require.True(t, ok)
	assert.Same(t, outer, found)

	_, ok = child.Lookup("nope")
	assert.False(t, ok)
}

func TestLookup_ChildShadowsDoesNotLeakUpward(t *testing.T) {
	root := scope.NewRoot()
	child := root.Push(scope.KindBlock, "")
	inner := &scope.Symbol{Name: "y"}
	require.NoError(t, child.Define(inner))

	_, ok := root.Lookup("y")
	assert.False(t, ok, "a symbol defined in a child scope must not be visible from the parent")
}

func TestEnclosingFunction(t *testing.T) {
	root := scope.NewRoot()
	fn := root.Push(scope.KindFunction, "main")
	block := fn.Push(scope.KindBlock, "")
	loop := block.Push(scope.KindLoop, "")

	assert.Same(t, fn, loop.EnclosingFunction())
	assert.Nil(t, root.EnclosingFunction())
}

func TestPush_AssignsIncrementingDepth(t *testing.T) {
	root := scope.NewRoot()
	assert.Equal(t, 0, root.Depth)
	child := root.Push(scope.KindBlock, "")
	assert.Equal(t, 1, child.Depth)
	grandchild := child.Push(scope.KindLoop, "")
	assert.Equal(t, 2, grandchild.Depth)
}

func TestDefine_SetsScopeDepthOnSymbol(t *testing.T) {
	root := scope.NewRoot()
	child := root.Push(scope.KindBlock, "")
	sym := &scope.Symbol{Name: "z"}
	require.NoError(t, child.Define(sym))
	assert.Equal(t, child.Depth, sym.ScopeDepth)
}
