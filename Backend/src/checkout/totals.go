package checkout

import "github.com/shopspring/decimal"

// Pricing holds the shop's shipping and tax rules.
type Pricing struct {
	FlatShipping     decimal.Decimal
	FreeShippingOver decimal.Decimal
	TaxRate          decimal.Decimal
}

func DefaultPricing() Pricing {
	return Pricing{
		FlatShipping:     decimal.RequireFromString("9.99"),
		FreeShippingOver: decimal.NewFromInt(50),
		TaxRate:          decimal.RequireFromString("0.08"),
	}
}

// Totals are exact; round only when displaying or encoding.
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Shipping decimal.Decimal `json:"shipping"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Compute applies the rules to a subtotal. Shipping is free only when the
// subtotal is strictly above the threshold.
func (p Pricing) Compute(subtotal decimal.Decimal) Totals {
	shipping := p.FlatShipping
	if p.FreeShipping(subtotal) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(p.TaxRate)
	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}

func (p Pricing) FreeShipping(subtotal decimal.Decimal) bool {
	return subtotal.GreaterThan(p.FreeShippingOver)
}

// UntilFreeShipping is how far subtotal is from the free shipping
// threshold, zero once it qualifies.
func (p Pricing) UntilFreeShipping(subtotal decimal.Decimal) decimal.Decimal {
	if p.FreeShipping(subtotal) {
		return decimal.Zero
	}
	return p.FreeShippingOver.Sub(subtotal)
}
