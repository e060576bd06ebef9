package types_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aiffelowy/harpy-sub000/internal/types"
)

func TestVerifyPointers_RejectsBoxedRef(t *testing.T) {
	boxedRef := types.Boxed(types.Ref(types.BasePrim(types.Int, false), false), false)
	err := types.VerifyPointers(boxedRef)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PointerToRef")
}

func TestVerifyPointers_AllowsRefBoxed(t *testing.T) {
	refBoxed := types.Ref(types.Boxed(types.BasePrim(types.Int, false), false), false)
	assert.NoError(t, types.VerifyPointers(refBoxed))
}

func TestCompatible_MutableObserverRequiresMutableSource(t *testing.T) {
	immutInt := types.BasePrim(types.Int, false)
	mutInt := types.BasePrim(types.Int, true)

	assert.True(t, types.Compatible(immutInt, mutInt), "immutable observer accepts mutable source")
	assert.True(t, types.Compatible(immutInt, immutInt))
	assert.False(t, types.Compatible(mutInt, immutInt), "mutable observer rejects immutable source")
	assert.True(t, types.Compatible(mutInt, mutInt))
}

func TestStrictCompatible_RequiresExactMutability(t *testing.T) {
	immutInt := types.BasePrim(types.Int, false)
	mutInt := types.BasePrim(types.Int, true)
	assert.False(t, types.StrictCompatible(immutInt, mutInt))
	assert.True(t, types.StrictCompatible(mutInt, mutInt))
}

func TestAssignCompatible_RefRequiresMutableSourceForMutableDest(t *testing.T) {
	mutRef := types.Ref(types.BasePrim(types.Int, true), false)
	immutSourceRef := types.Ref(types.BasePrim(types.Int, false), false)
	mutSourceRef := types.Ref(types.BasePrim(types.Int, true), false)

	assert.False(t, types.AssignCompatible(mutRef, immutSourceRef))
	assert.True(t, types.AssignCompatible(mutRef, mutSourceRef))
}

func TestParamCompatible_BaseEquality(t *testing.T) {
	intParam := types.BasePrim(types.Int, false)
	floatArg := types.BasePrim(types.Float, false)
	assert.False(t, types.ParamCompatible(intParam, floatArg))
	assert.True(t, types.ParamCompatible(intParam, intParam))
}

func TestReturnCompatible_IndirectionsNeedStrictInner(t *testing.T) {
	wanted := types.Ref(types.BasePrim(types.Int, false), false)
	mismatched := types.Ref(types.BasePrim(types.Int, true), false)
	assert.False(t, types.ReturnCompatible(wanted, mismatched))
	assert.True(t, types.ReturnCompatible(wanted, wanted))
}

func TestByteSize(t *testing.T) {
	assert.Equal(t, 0, types.Void().ByteSize())
	assert.Equal(t, 8, types.BasePrim(types.Int, false).ByteSize())
	assert.Equal(t, 8, types.BasePrim(types.Float, false).ByteSize())
	assert.Equal(t, 1, types.BasePrim(types.Bool, false).ByteSize())
	assert.Equal(t, 16, types.BasePrim(types.Str, false).ByteSize())
	assert.Equal(t, 16, types.Boxed(types.BasePrim(types.Int, false), false).ByteSize())
	assert.Equal(t, 16, types.Ref(types.BasePrim(types.Int, false), false).ByteSize())
}

func TestContainsUnknown(t *testing.T) {
	assert.True(t, types.Unknown().ContainsUnknown())
	assert.True(t, types.Boxed(types.Unknown(), false).ContainsUnknown())
	assert.False(t, types.BasePrim(types.Int, false).ContainsUnknown())
}
