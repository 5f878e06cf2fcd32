// SPDX-License-Identifier: MIT

package payments

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCartTotals(t *testing.T) {
	c := &Cart{Items: []CartItem{
		{OriginalPrice: 5000, DiscountAmount: 500, TaxAmount: 675, FinalPrice: 5175, Item: CatalogueItem{Currency: "SAR"}},
		{OriginalPrice: 1000, FinalPrice: 1000},
	}}

	assert.Equal(t, int64(6175), c.Total())
	assert.Equal(t, int64(6000), c.GrossTotal())
	assert.Equal(t, int64(500), c.DiscountTotal())
	assert.Equal(t, int64(675), c.TaxTotal())
	assert.Equal(t, "SAR", c.Currency("USD"))
}

func TestCartCurrencyFallback(t *testing.T) {
	c := &Cart{}
	assert.Equal(t, "USD", c.Currency("USD"))
	assert.Zero(t, c.Total())
}
