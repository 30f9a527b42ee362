package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestEffectivePolicy_Price(t *testing.T) {
	t.Run("per thousand rounds up to cents", func(t *testing.T) {
		p := EffectivePolicy{Mode: ModePerThousand, PricePerUnit: dec("2.50"), MinQty: 100, MaxQty: 5000}

		price, err := p.Price(2000)
		require.NoError(t, err)
		assert.Equal(t, "5.00", price.StringFixed(2))

		price, err = p.Price(101)
		require.NoError(t, err)
		assert.Equal(t, "0.26", price.StringFixed(2))
	})

	t.Run("flat and package ignore quantity", func(t *testing.T) {
		for _, mode := range []PricingMode{ModeFlat, ModePackage} {
			p := EffectivePolicy{Mode: mode, FlatPrice: dec("5.3"), MinQty: 1, MaxQty: 1}
			price, err := p.Price(1)
			require.NoError(t, err)
			assert.Equal(t, "5.30", price.StringFixed(2))
		}
	})

	t.Run("missing price for mode", func(t *testing.T) {
		_, err := EffectivePolicy{Mode: ModePerThousand, FlatPrice: dec("1")}.Price(1)
		assert.Error(t, err)
	})
}

func TestEffectivePolicy_Allows(t *testing.T) {
	p := EffectivePolicy{MinQty: 100, MaxQty: 1000}
	assert.False(t, p.Allows(99))
	assert.True(t, p.Allows(100))
	assert.True(t, p.Allows(1000))
	assert.False(t, p.Allows(1001))
}

func TestMetadata(t *testing.T) {
	m := Metadata{"order_id": "o1", "qty": 3}
	v, err := m.Value()
	require.NoError(t, err)

	var back Metadata
	require.NoError(t, back.Scan(v))
	assert.Equal(t, "o1", back.String("order_id"))
	assert.Equal(t, "", back.String("qty"))

	require.NoError(t, back.Scan(nil))
	assert.Nil(t, back)
	assert.Error(t, back.Scan(42))
}
