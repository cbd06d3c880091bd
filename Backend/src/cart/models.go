package cart

import (
	"github.com/shopspring/decimal"

	"github.com/vanillapodconfections/storefront/Backend/src/money"
)

// Product is what a listing view hands to the cart. Price keeps whatever
// representation the product source used; the cart normalizes it once.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       money.Price
	SKU         string
	Category    string
	ImageURL    string
}

// LineItem is one product row in the cart. Quantity is always >= 1.
type LineItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	SKU         string          `json:"sku,omitempty"`
	Category    string          `json:"category,omitempty"`
	ImageURL    string          `json:"image_url,omitempty"`
}

// LineTotal is UnitPrice × Quantity, unrounded.
func (it LineItem) LineTotal() decimal.Decimal {
	return money.Line(it.UnitPrice, it.Quantity)
}

// Snapshot is the cart state observers receive after each mutation.
type Snapshot struct {
	Items []LineItem      `json:"items"`
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

func newLineItem(p Product, qty int) LineItem {
	return LineItem{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		UnitPrice:   p.Price.Decimal,
		Quantity:    qty,
		SKU:         p.SKU,
		Category:    p.Category,
		ImageURL:    p.ImageURL,
	}
}
