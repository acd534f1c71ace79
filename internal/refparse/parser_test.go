package refparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/pricehound/internal/marketdata"
)

func TestParse_WildberriesLinks(t *testing.T) {
	p := New(nil)

	tests := []struct {
		name string
		in   string
		id   string
	}{
		{"catalog link", "https://www.wildberries.ru/catalog/546168907/detail.aspx", "546168907"},
		{"catalog link with query", "https://www.wildberries.ru/catalog/123456/detail.aspx?targetUrl=GP", "123456"},
		{"bare host link", "wildberries.ru/catalog/99887766", "99887766"},
		{"nm query form", "https://www.wildberries.ru/product?nm=546168907", "546168907"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := p.Parse(tt.in)
			require.NoError(t, err)
			assert.Equal(t, marketdata.Wildberries, ref.Marketplace)
			assert.Equal(t, tt.id, ref.ProductID)
			assert.Equal(t, tt.in, ref.URL)
		})
	}
}

func TestParse_BareDigits(t *testing.T) {
	p := New(nil)

	ref, err := p.Parse("546168907")
	require.NoError(t, err)
	assert.Equal(t, marketdata.Wildberries, ref.Marketplace)
	assert.Equal(t, "546168907", ref.ProductID)
	assert.Equal(t, "https://www.wildberries.ru/catalog/546168907/detail.aspx", ref.URL)

	// Boundary lengths
	for _, in := range []string{"123456", "123456789012"} {
		ref, err := p.Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, in, ref.ProductID)
	}
	for _, in := range []string{"12345", "1234567890123"} {
		_, err := p.Parse(in)
		assert.ErrorIs(t, err, ErrUnrecognized, in)
	}
}

type ozonFirst struct{}

func (ozonFirst) BareDigits(id string) marketdata.Ref {
	return marketdata.Ref{Marketplace: marketdata.Ozon, ProductID: id, URL: OzonURL(id)}
}

func TestParse_DisambiguatorIsPluggable(t *testing.T) {
	p := New(ozonFirst{})

	ref, err := p.Parse("546168907")
	require.NoError(t, err)
	assert.Equal(t, marketdata.Ozon, ref.Marketplace)
}

func TestParse_OzonLinks(t *testing.T) {
	p := New(nil)

	ref, err := p.Parse("https://www.ozon.ru/product/nekotoryi-tovar-123456789/")
	require.NoError(t, err)
	assert.Equal(t, marketdata.Ozon, ref.Marketplace)
	assert.Equal(t, "123456789", ref.ProductID)

	ref, err = p.Parse("https://www.ozon.ru/product/tovar-987654321/?from=search")
	require.NoError(t, err)
	assert.Equal(t, "987654321", ref.ProductID)

	// No extractable sku stays a valid, degraded reference.
	ref, err = p.Parse("https://www.ozon.ru/t/Qw3rTy")
	require.NoError(t, err)
	assert.Equal(t, marketdata.Ozon, ref.Marketplace)
	assert.Equal(t, marketdata.UnknownProductID, ref.ProductID)
}

func TestParse_PrefixForms(t *testing.T) {
	p := New(nil)

	ref, err := p.Parse("ozon 123456789")
	require.NoError(t, err)
	assert.Equal(t, marketdata.Ozon, ref.Marketplace)
	assert.Equal(t, "123456789", ref.ProductID)
	assert.Equal(t, "https://www.ozon.ru/product/123456789/", ref.URL)

	ref, err = p.Parse("WB 546168907")
	require.NoError(t, err)
	assert.Equal(t, marketdata.Wildberries, ref.Marketplace)
	assert.Equal(t, "546168907", ref.ProductID)
}

func TestParse_Unrecognized(t *testing.T) {
	p := New(nil)

	for _, in := range []string{"", "hello", "avito.ru/item/123456", "ozon abc", "wb 123"} {
		_, err := p.Parse(in)
		assert.ErrorIs(t, err, ErrUnrecognized, in)
	}
}
