package service

import (
	"backend/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

func decimalFromInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}

// DiscountSpec is the slice of a discount that pricing needs.
type DiscountSpec struct {
	Type  string // PERCENTAGE, FIXED
	Value decimal.Decimal
}

// TaxSpec is the slice of a tax that pricing needs.
type TaxSpec struct {
	Computation string // PERCENTAGE, FIXED
	Amount      decimal.Decimal
}

// LineAmounts is the result of pricing a single line.
type LineAmounts struct {
	Base           decimal.Decimal // quantity × unit_price
	DiscountAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	NetTotal       decimal.Decimal // base − discount + tax
}

// ComputeLine prices one line with discount-before-tax ordering: the
// discount comes off the base first, then a PERCENTAGE tax applies to the
// discounted base. A FIXED discount is a flat amount (not scaled by
// quantity); a FIXED tax is amount × quantity. Pure, no side effects.
func ComputeLine(quantity int, unitPrice decimal.Decimal, disc *DiscountSpec, tax *TaxSpec) LineAmounts {
	base := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))

	discountAmt := decimal.Zero
	if disc != nil {
		discountAmt = discountAmount(base, *disc)
	}

	discountedBase := base.Sub(discountAmt)

	taxAmt := decimal.Zero
	if tax != nil {
		taxAmt = taxAmount(discountedBase, quantity, *tax)
	}

	return LineAmounts{
		Base:           base,
		DiscountAmount: discountAmt,
		TaxAmount:      taxAmt,
		NetTotal:       discountedBase.Add(taxAmt),
	}
}

func discountAmount(base decimal.Decimal, disc DiscountSpec) decimal.Decimal {
	if disc.Type == model.DiscountTypePercentage {
		return base.Mul(disc.Value).Div(hundred)
	}
	return disc.Value
}

func taxAmount(base decimal.Decimal, quantity int, tax TaxSpec) decimal.Decimal {
	if tax.Computation == model.TaxComputationPercentage {
		return base.Mul(tax.Amount).Div(hundred)
	}
	return tax.Amount.Mul(decimal.NewFromInt(int64(quantity)))
}

// SubscriptionTotals are the on-read list-view figures for a subscription.
// Tax here is computed over the undiscounted line base; invoice generation
// discounts before taxing. Keep the two computations separate.
type SubscriptionTotals struct {
	UntaxedAmount decimal.Decimal
	TaxAmount     decimal.Decimal
	TotalAmount   decimal.Decimal
}

// ComputeSubscriptionTotals aggregates a subscription's lines for display.
func ComputeSubscriptionTotals(lines []model.SubscriptionLine) SubscriptionTotals {
	untaxed := decimal.Zero
	taxTotal := decimal.Zero
	for _, line := range lines {
		base := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		untaxed = untaxed.Add(base)
		if line.Tax != nil {
			taxTotal = taxTotal.Add(taxAmount(base, line.Quantity, TaxSpec{
				Computation: line.Tax.Computation,
				Amount:      line.Tax.Amount,
			}))
		}
	}
	return SubscriptionTotals{
		UntaxedAmount: untaxed,
		TaxAmount:     taxTotal,
		TotalAmount:   untaxed.Add(taxTotal),
	}
}

func discountSpecOf(d *model.Discount) *DiscountSpec {
	if d == nil {
		return nil
	}
	return &DiscountSpec{Type: d.Type, Value: d.Value}
}

func taxSpecOf(t *model.Tax) *TaxSpec {
	if t == nil {
		return nil
	}
	return &TaxSpec{Computation: t.Computation, Amount: t.Amount}
}
