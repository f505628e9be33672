package service

import (
	"testing"

	"backend/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeLine_DiscountBeforeTax(t *testing.T) {
	// 10% off 1000 leaves 900; 18% tax applies to the discounted base.
	amounts := ComputeLine(1, dec("1000"),
		&DiscountSpec{Type: model.DiscountTypePercentage, Value: dec("10")},
		&TaxSpec{Computation: model.TaxComputationPercentage, Amount: dec("18")})

	assert.True(t, amounts.Base.Equal(dec("1000")), "base: %s", amounts.Base)
	assert.True(t, amounts.DiscountAmount.Equal(dec("100")), "discount: %s", amounts.DiscountAmount)
	assert.True(t, amounts.TaxAmount.Equal(dec("162")), "tax: %s", amounts.TaxAmount)
	assert.True(t, amounts.NetTotal.Equal(dec("1062")), "net: %s", amounts.NetTotal)
}

func TestComputeLine_FixedDiscountIsFlat(t *testing.T) {
	// A FIXED discount is a flat amount regardless of quantity.
	amounts := ComputeLine(3, dec("100"),
		&DiscountSpec{Type: model.DiscountTypeFixed, Value: dec("50")}, nil)

	assert.True(t, amounts.Base.Equal(dec("300")))
	assert.True(t, amounts.DiscountAmount.Equal(dec("50")))
	assert.True(t, amounts.NetTotal.Equal(dec("250")))
}

func TestComputeLine_FixedTaxScalesWithQuantity(t *testing.T) {
	amounts := ComputeLine(4, dec("25"), nil,
		&TaxSpec{Computation: model.TaxComputationFixed, Amount: dec("2")})

	assert.True(t, amounts.Base.Equal(dec("100")))
	assert.True(t, amounts.TaxAmount.Equal(dec("8")), "tax: %s", amounts.TaxAmount)
	assert.True(t, amounts.NetTotal.Equal(dec("108")))
}

func TestComputeLine_NoDiscountNoTax(t *testing.T) {
	amounts := ComputeLine(2, dec("99.99"), nil, nil)

	assert.True(t, amounts.Base.Equal(dec("199.98")))
	assert.True(t, amounts.DiscountAmount.IsZero())
	assert.True(t, amounts.TaxAmount.IsZero())
	assert.True(t, amounts.NetTotal.Equal(dec("199.98")))
}

func TestComputeSubscriptionTotals_TaxOnUndiscountedBase(t *testing.T) {
	// The subscription list view taxes the full line base even when a
	// discount is attached; only invoice generation discounts before taxing.
	tax := &model.Tax{Computation: model.TaxComputationPercentage, Amount: dec("18")}
	discount := &model.Discount{Type: model.DiscountTypePercentage, Value: dec("10")}

	totals := ComputeSubscriptionTotals([]model.SubscriptionLine{
		{Quantity: 1, UnitPrice: dec("1000"), Tax: tax, Discount: discount},
	})

	assert.True(t, totals.UntaxedAmount.Equal(dec("1000")))
	assert.True(t, totals.TaxAmount.Equal(dec("180")), "tax: %s", totals.TaxAmount)
	assert.True(t, totals.TotalAmount.Equal(dec("1180")))
}

func TestComputeSubscriptionTotals_SumsAcrossLines(t *testing.T) {
	tax := &model.Tax{Computation: model.TaxComputationFixed, Amount: dec("5")}

	totals := ComputeSubscriptionTotals([]model.SubscriptionLine{
		{Quantity: 2, UnitPrice: dec("200"), Tax: tax},
		{Quantity: 1, UnitPrice: dec("150")},
	})

	assert.True(t, totals.UntaxedAmount.Equal(dec("550")))
	assert.True(t, totals.TaxAmount.Equal(dec("10")))
	assert.True(t, totals.TotalAmount.Equal(dec("560")))
}
