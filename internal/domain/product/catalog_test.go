package product

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	require.Equal(t, 2, c.Len())

	pc, err := c.Get("1")
	require.NoError(t, err)
	assert.Equal(t, "Ordinateur Gaming Pro", pc.Name)
	assert.True(t, pc.Price.Equal(decimal.NewFromInt(1299)))
	assert.True(t, pc.Has3DModel())
	assert.Len(t, pc.Parts, 3)
	assert.Len(t, pc.OptionGroups, 3)

	gpu, ok := pc.FindPart("gpu-1")
	require.True(t, ok)
	assert.Equal(t, "RTX 4070 Ti", gpu.Name)
	assert.True(t, gpu.InStock)

	warranty, ok := pc.FindOptionGroup("warranty-group")
	require.True(t, ok)
	assert.Equal(t, SelectionSingle, warranty.Type)

	phone, err := c.Get("2")
	require.NoError(t, err)
	assert.False(t, phone.Has3DModel())
	assert.Equal(t, "smartphone-premium", phone.Handle())
}

func TestCatalogGetMissing(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	_, err = c.Get("404")
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCatalogProductsReturnsCopy(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	list := c.Products()
	list[0].Name = "changed"

	p, err := c.Get(list[0].ID)
	require.NoError(t, err)
	assert.NotEqual(t, "changed", p.Name)
}

func TestLoadRejectsBadCatalogs(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
	}{
		{
			name: "duplicate id",
			doc:  "products:\n  - id: a\n    name: A\n  - id: a\n    name: B\n",
		},
		{
			name: "missing id",
			doc:  "products:\n  - name: A\n",
		},
		{
			name: "unknown group type",
			doc:  "products:\n  - id: a\n    option_groups:\n      - id: g\n        type: several\n",
		},
		{
			name: "not yaml",
			doc:  "products: [",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tc.doc))
			assert.Error(t, err)
		})
	}
}

func TestHandleFallsBackToID(t *testing.T) {
	p := Product{ID: "42"}
	assert.Equal(t, "42", p.Handle())
}
