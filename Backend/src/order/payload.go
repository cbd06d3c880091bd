package order

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Payload is an order as submitted to a backend. It is built once per
// submission and never stored locally.
type Payload struct {
	Customer Customer
	Items    []Item
	Totals   Totals
	Billing  *Address
	Shipping *Address
	Notes    string
	Source   string
	PlacedAt time.Time
}

type Customer struct {
	Name  string
	Email string
	Phone string
}

type Item struct {
	ProductID   string
	Name        string
	UnitPrice   decimal.Decimal
	Quantity    int
	Description string
	SKU         string
}

// LineTotal is UnitPrice × Quantity.
func (it Item) LineTotal() decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// Totals are carried unrounded; backends round to cents when encoding.
type Totals struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

type Address struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Address1  string `json:"address_1,omitempty"`
	Address2  string `json:"address_2,omitempty"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	Postcode  string `json:"postcode,omitempty"`
	Country   string `json:"country,omitempty"`
}

// Receipt is what a backend returns for an accepted order.
type Receipt struct {
	OrderID string `json:"order_id"`
	Number  string `json:"number,omitempty"`
	Message string `json:"message,omitempty"`
}

// Report is the status of a previously submitted order.
type Report struct {
	OrderID  string          `json:"order_id"`
	Number   string          `json:"number,omitempty"`
	Status   string          `json:"status,omitempty"`
	Total    string          `json:"total,omitempty"`
	Currency string          `json:"currency,omitempty"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// amount encodes as a JSON number with exactly two decimals.
type amount decimal.Decimal

func (a amount) MarshalJSON() ([]byte, error) {
	return []byte(decimal.Decimal(a).StringFixed(2)), nil
}

// looseString decodes a JSON string or number into its text form. Backends
// disagree on whether ids and totals are quoted.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = looseString(n.String())
	return nil
}
