package tables_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aiffelowy/harpy-sub000/internal/ast"
	"github.com/Aiffelowy/harpy-sub000/internal/source"
	"github.com/Aiffelowy/harpy-sub000/internal/tables"
	"github.com/Aiffelowy/harpy-sub000/internal/types"
)

func TestTypeTable_VoidReservedAtZero(t *testing.T) {
	tt := tables.NewTypeTable()
	assert.Equal(t, 0, tt.Intern(types.Void()))
	assert.Equal(t, 1, tt.Len())
}

func TestTypeTable_Dedup(t *testing.T) {
	tt := tables.NewTypeTable()
	a := tt.Intern(types.BasePrim(types.Int, false))
	b := tt.Intern(types.BasePrim(types.Int, false))
	c := tt.Intern(types.BasePrim(types.Float, false))
	assert.Equal(t, a, b, "interning the same structural type twice must return the same index")
	assert.NotEqual(t, a, c)
}

func TestConstPool_VoidReservedAtZero(t *testing.T) {
	cp := tables.NewConstPool()
	assert.Equal(t, 1, cp.Len())
	assert.Equal(t, tables.LitVoid, cp.Get(0).Kind)
}

func TestConstPool_Dedup(t *testing.T) {
	cp := tables.NewConstPool()
	a := cp.Intern(tables.IntLiteral(42))
	b := cp.Intern(tables.IntLiteral(42))
	c := cp.Intern(tables.IntLiteral(43))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestConstPool_IntAndFloatDoNotCollide(t *testing.T) {
	cp := tables.NewConstPool()
	i := cp.Intern(tables.IntLiteral(1))
	f := cp.Intern(tables.FloatLiteral(1))
	assert.NotEqual(t, i, f)
}

func TestFunctionTable_DeclareAndMain(t *testing.T) {
	ft := tables.NewFunctionTable()
	idx, first := ft.Declare("main", ast.NewNodeId())
	require.True(t, first)
	require.NotNil(t, ft.MainID)
	assert.Equal(t, idx, *ft.MainID)

	_, firstAgain := ft.Declare("main", ast.NewNodeId())
	assert.False(t, firstAgain, "redeclaring the same name must report it wasn't new")
}

func TestFunctionTable_CallSiteBinding(t *testing.T) {
	ft := tables.NewFunctionTable()
	idx, _ := ft.Declare("add", ast.NewNodeId())
	site := ast.NewNodeId()
	ft.BindCallSite(site, idx)
	got, ok := ft.CallSiteFunc(site)
	require.True(t, ok)
	assert.Equal(t, idx, got)
}

func TestGlobalTable_AddressesAreSequential(t *testing.T) {
	gt := tables.NewGlobalTable()
	a := gt.Declare(ast.NewNodeId(), "a", types.NewTypeInfo(types.BasePrim(types.Int, false), 0), source.Span{})
	b := gt.Declare(ast.NewNodeId(), "b", types.NewTypeInfo(types.BasePrim(types.Int, false), 0), source.Span{})
	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)

	entry, ok := gt.Lookup("b")
	require.True(t, ok)
	assert.Equal(t, 1, entry.Address)
}

func TestConvertToRuntime_FailsWithoutMain(t *testing.T) {
	cp := tables.NewConstPool()
	ft := tables.NewFunctionTable()
	gt := tables.NewGlobalTable()

	img, errs := tables.ConvertToRuntime(cp, ft, gt, nil)
	assert.Nil(t, img)
	require.Len(t, errs, 1)
	var missingMain *tables.MissingMainError
	assert.ErrorAs(t, errs[0], &missingMain)
}

func TestConvertToRuntime_FailsOnUnknownType(t *testing.T) {
	cp := tables.NewConstPool()
	ft := tables.NewFunctionTable()
	gt := tables.NewGlobalTable()
	ft.Declare("main", ast.NewNodeId())
	ft.Get(0).ReturnType = types.NewTypeInfo(types.Unknown(), 0)

	img, errs := tables.ConvertToRuntime(cp, ft, gt, map[string]source.Span{"main": {}})
	assert.Nil(t, img)
	require.NotEmpty(t, errs)
	var cantInfer *tables.CantInferTypeError
	assert.ErrorAs(t, errs[0], &cantInfer)
}

func TestConvertToRuntime_Succeeds(t *testing.T) {
	cp := tables.NewConstPool()
	ft := tables.NewFunctionTable()
	gt := tables.NewGlobalTable()
	ft.Declare("main", ast.NewNodeId())
	ft.Get(0).ReturnType = types.NewTypeInfo(types.BasePrim(types.Int, false), 0)

	img, errs := tables.ConvertToRuntime(cp, ft, gt, map[string]source.Span{"main": {}})
	require.Empty(t, errs)
	require.NotNil(t, img)
	assert.Equal(t, 0, img.Functions.MainIdx)
}

// A literal can reach the const pool without ever being a param, local,
// global or return type — e.g. a bool literal used only as an `if`
// condition in a function whose every typed slot is `int`. The runtime
// type table must still carry a RuntimeType for that literal's
// primitive so the compiler's const-pool conversion can find it.
func TestConvertToRuntime_InternsConstOnlyPrimitive(t *testing.T) {
	cp := tables.NewConstPool()
	cp.Intern(tables.BoolLiteral(true))
	ft := tables.NewFunctionTable()
	gt := tables.NewGlobalTable()
	ft.Declare("main", ast.NewNodeId())
	ft.Get(0).ReturnType = types.NewTypeInfo(types.BasePrim(types.Int, false), 0)

	img, errs := tables.ConvertToRuntime(cp, ft, gt, map[string]source.Span{"main": {}})
	require.Empty(t, errs)
	require.NotNil(t, img)

	found := false
	for _, rt := range img.Types.All() {
		if rt.Kind == tables.RBase && !rt.Base.IsCustom && rt.Base.Primitive == types.Bool {
			found = true
		}
	}
	assert.True(t, found, "bool literal's primitive must be interned into the runtime type table")
}
