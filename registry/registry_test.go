package registry_test

import (
	"testing"

	"github.com/PolymeshAssociation/polymesh-api-sub001/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prim(id registry.TypeID, p registry.Primitive) registry.Type {
	return registry.Type{ID: id, Def: registry.TypeDef{Kind: registry.KindPrimitive, Primitive: p}}
}

func TestNewDense(t *testing.T) {
	reg, err := registry.New([]registry.Type{
		prim(0, registry.U32),
		{ID: 1, Path: []string{"sp_core", "Wrapper"}, Def: registry.TypeDef{Kind: registry.KindComposite, Fields: []registry.Field{{Type: 0}}}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())

	ty, ok := reg.Resolve(1)
	require.True(t, ok)
	assert.Equal(t, "sp_core::Wrapper", ty.String())
	assert.Equal(t, "Wrapper", ty.Name())

	_, ok = reg.Resolve(2)
	assert.False(t, ok)

	found, ok := reg.FindByPath("sp_core", "Wrapper")
	require.True(t, ok)
	assert.EqualValues(t, 1, found.ID)
}

func TestNewCopiesInput(t *testing.T) {
	types := []registry.Type{
		prim(0, registry.U32),
		{ID: 1, Path: []string{"sp_core", "Wrapper"}, Def: registry.TypeDef{Kind: registry.KindComposite, Fields: []registry.Field{{Name: "inner", Type: 0}}}},
	}
	reg, err := registry.New(types)
	require.NoError(t, err)

	types[0].Def.Primitive = registry.Bool
	types[1].Path[1] = "Changed"
	types[1].Def.Fields[0].Name = "changed"

	ty, ok := reg.Resolve(0)
	require.True(t, ok)
	assert.Equal(t, registry.U32, ty.Def.Primitive)
	ty, ok = reg.Resolve(1)
	require.True(t, ok)
	assert.Equal(t, "sp_core::Wrapper", ty.String())
	assert.Equal(t, "inner", ty.Def.Fields[0].Name)
}

func TestNewSparse(t *testing.T) {
	reg, err := registry.New([]registry.Type{
		prim(7, registry.Bool),
		{ID: 100, Def: registry.TypeDef{Kind: registry.KindSequence, Elem: 7}},
	})
	require.NoError(t, err)
	ty, ok := reg.Resolve(100)
	require.True(t, ok)
	assert.Equal(t, registry.KindSequence, ty.Def.Kind)
	_, ok = reg.Resolve(0)
	assert.False(t, ok)
}

func TestNewReportsAllProblems(t *testing.T) {
	_, err := registry.New([]registry.Type{
		prim(0, registry.U8),
		prim(0, registry.U16),
		{ID: 1, Def: registry.TypeDef{Kind: registry.KindSequence, Elem: 42}},
		{ID: 2, Def: registry.TypeDef{Kind: registry.KindVariant, Variants: []registry.Variant{
			{Name: "A", Index: 3},
			{Name: "B", Index: 3},
		}}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrDuplicateType)
	assert.ErrorIs(t, err, registry.ErrMissingType)
	assert.ErrorIs(t, err, registry.ErrInvalidType)
}

func TestMixedFieldNames(t *testing.T) {
	_, err := registry.New([]registry.Type{
		prim(0, registry.U8),
		{ID: 1, Def: registry.TypeDef{Kind: registry.KindComposite, Fields: []registry.Field{{Name: "a", Type: 0}, {Type: 0}}}},
	})
	assert.ErrorIs(t, err, registry.ErrInvalidType)
}

func TestVariantByIndex(t *testing.T) {
	def := registry.TypeDef{Kind: registry.KindVariant, Variants: []registry.Variant{
		{Name: "Zero", Index: 0},
		{Name: "Five", Index: 5},
		{Name: "TwoHundred", Index: 200},
	}}
	for idx, name := range map[uint8]string{0: "Zero", 5: "Five", 200: "TwoHundred"} {
		v, ok := def.VariantByIndex(idx)
		require.True(t, ok, "index %d", idx)
		assert.Equal(t, name, v.Name)
	}
	_, ok := def.VariantByIndex(1)
	assert.False(t, ok)
	_, ok = def.VariantByIndex(2)
	assert.False(t, ok)

	v, ok := def.VariantByName("Five")
	require.True(t, ok)
	assert.EqualValues(t, 5, v.Index)
}

func TestIsOption(t *testing.T) {
	opt := registry.Type{Path: []string{"Option"}, Def: registry.TypeDef{Kind: registry.KindVariant}}
	assert.True(t, opt.IsOption())
	other := registry.Type{Path: []string{"my", "Option"}, Def: registry.TypeDef{Kind: registry.KindVariant}}
	assert.False(t, other.IsOption())
}

func TestParam(t *testing.T) {
	id := registry.TypeID(3)
	ty := registry.Type{Params: []registry.TypeParam{{Name: "T", Type: &id}, {Name: "E"}}}
	got, ok := ty.Param("T")
	assert.True(t, ok)
	assert.Equal(t, id, got)
	_, ok = ty.Param("E")
	assert.False(t, ok)
}
