package domain

import "github.com/shopspring/decimal"

// Order pricing rules. These are fixed business constants, not configuration.
var (
	// FreeShippingThreshold: subtotals strictly above it ship free.
	FreeShippingThreshold = decimal.NewFromInt(500)
	FlatShippingFee       = decimal.NewFromInt(50)
	TaxRate               = decimal.RequireFromString("0.18")
)

// OrderTotals is the price breakdown computed once at placement.
type OrderTotals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total_amount"`
}

// PriceOrder derives the totals from the snapshotted line prices.
// Tax is rounded half away from zero to a whole unit.
func PriceOrder(items []OrderItem) OrderTotals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.LineTotal())
	}

	shipping := FlatShippingFee
	if subtotal.GreaterThan(FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	tax := subtotal.Mul(TaxRate).Round(0)

	return OrderTotals{
		Subtotal:    subtotal,
		ShippingFee: shipping,
		Tax:         tax,
		Total:       subtotal.Add(shipping).Add(tax),
	}
}
