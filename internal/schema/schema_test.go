package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSchema(t *testing.T) {
	t.Parallel()

	s := Default()

	t.Run("FieldAt returns declared field", func(t *testing.T) {
		t.Parallel()
		f := s.FieldAt("financial_metrics", "noi_annual")
		require.NotNil(t, f)
		assert.Equal(t, TypeDecimal, f.Type)
		assert.Equal(t, CardScalar, f.Card)
	})

	t.Run("FieldAt returns nil for unknown field", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, s.FieldAt("financial_metrics", "nonexistent"))
		assert.Nil(t, s.FieldAt("nonexistent", "noi_annual"))
	})

	t.Run("list fields declare item keys", func(t *testing.T) {
		t.Parallel()
		f := s.FieldAt("tenant_information", "major_tenants")
		require.NotNil(t, f)
		assert.Equal(t, CardList, f.Card)
		assert.Equal(t, "name", f.ItemKey)
	})

	t.Run("six categories in declaration order", func(t *testing.T) {
		t.Parallel()
		var names []string
		for _, c := range s.Categories {
			names = append(names, c.Name)
		}
		assert.Equal(t, []string{
			"property_details", "financial_metrics", "loan_details",
			"tenant_information", "market_analysis", "risk_assessment",
		}, names)
	})

	t.Run("Category returns ordered field definitions", func(t *testing.T) {
		t.Parallel()
		fields := s.Category("risk_assessment")
		require.Len(t, fields, 2)
		assert.Equal(t, "identified_risks", fields[0].Name)
		assert.Nil(t, s.Category("nonexistent"))
	})

	t.Run("property types ordered most specific first", func(t *testing.T) {
		t.Parallel()
		f := s.FieldAt("property_details", "property_type")
		require.NotNil(t, f)
		require.NotEmpty(t, f.Enum)
		assert.Equal(t, "medical office", f.Enum[0])
	})
}

func TestLeaves(t *testing.T) {
	t.Parallel()

	s := Default()
	leaves := s.Leaves()

	// 10 + 13 + 7 + 3 + 4 + 2 fields.
	assert.Len(t, leaves, 39)
	assert.Equal(t, "property_details.property_address", leaves[0].Path())
	assert.Equal(t, "risk_assessment.mitigation_strategies", leaves[len(leaves)-1].Path())
}

func TestFlattenPaths(t *testing.T) {
	t.Parallel()

	s := Default()
	paths := s.FlattenPaths()

	// 33 scalars + 6 lists expanding to two paths each.
	assert.Len(t, paths, 45)
	assert.Contains(t, paths, "financial_metrics.cap_rate")
	assert.Contains(t, paths, "tenant_information.major_tenants[].name")
	assert.Contains(t, paths, "tenant_information.major_tenants[].citation")
	assert.NotContains(t, paths, "tenant_information.major_tenants")
}

func TestResponseSchema(t *testing.T) {
	t.Parallel()

	s := Default()
	rs := s.ResponseSchema(10)

	assert.Equal(t, "object", rs["type"])
	assert.Equal(t, false, rs["additionalProperties"])
	require.Len(t, rs["required"], 6)

	props, ok := rs["properties"].(map[string]any)
	require.True(t, ok)
	require.Len(t, props, 6)

	t.Run("scalar fields require value unit citation", func(t *testing.T) {
		t.Parallel()
		fin, ok := props["financial_metrics"].(map[string]any)
		require.True(t, ok)
		fields, ok := fin["properties"].(map[string]any)
		require.True(t, ok)
		noi, ok := fields["noi_annual"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, []string{"value", "unit", "citation"}, noi["required"])
		assert.Equal(t, false, noi["additionalProperties"])
	})

	t.Run("list fields cap items and require item key", func(t *testing.T) {
		t.Parallel()
		ten, ok := props["tenant_information"].(map[string]any)
		require.True(t, ok)
		fields, ok := ten["properties"].(map[string]any)
		require.True(t, ok)
		tenants, ok := fields["major_tenants"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "array", tenants["type"])
		assert.Equal(t, 10, tenants["maxItems"])
		item, ok := tenants["items"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, []string{"name", "citation"}, item["required"])
	})

	t.Run("numeric fields accept JSON numbers", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, []string{"integer", "null"}, jsonTypes(TypeInteger))
		assert.Equal(t, []string{"number", "null"}, jsonTypes(TypeDecimal))
		assert.Equal(t, []string{"number", "null"}, jsonTypes(TypePercent))
		assert.Equal(t, []string{"string", "null"}, jsonTypes(TypeText))
	})
}
