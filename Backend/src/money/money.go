// Package money normalizes and formats shop currency amounts.
//
// Amounts are fixed-point decimals end to end. Rounding to cents happens only
// when an amount is rendered for a person (Format) or put on the wire (Fixed).
package money

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Price is a unit price as it arrives from product data. Upstream sources
// send either a JSON number (12.99) or a currency string ("$12.99"); both
// decode to the same amount.
type Price struct {
	decimal.Decimal
}

// NewPrice wraps d, clamping negative amounts to zero.
func NewPrice(d decimal.Decimal) Price {
	if d.IsNegative() {
		return Price{}
	}
	return Price{Decimal: d}
}

// FromFloat builds a price from a float literal using its shortest decimal
// representation, so FromFloat(12.99) is exactly 12.99.
func FromFloat(f float64) Price {
	return NewPrice(decimal.NewFromFloat(f))
}

// MustParse is ParsePrice for fixtures and constants.
func MustParse(s string) Price {
	d, ok := ParsePrice(s)
	if !ok {
		panic(fmt.Sprintf("money: cannot parse %q", s))
	}
	return NewPrice(d)
}

// ParsePrice extracts an amount from a currency string such as "$12.99",
// "CA$1,299.00" or "12.99 CAD". Currency symbols, letters, spaces and
// thousands separators are ignored.
func ParsePrice(s string) (decimal.Decimal, bool) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
		case r == '-' && b.Len() == 0:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 || b.String() == "-" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// UnmarshalJSON accepts numbers, strings and null. Anything unparseable
// degrades to a zero price instead of failing the whole product decode.
func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*p = Price{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		if d, ok := ParsePrice(s); ok {
			*p = NewPrice(d)
		}
		return nil
	}
	// Decode the literal text so a number never passes through float64.
	if d, err := decimal.NewFromString(string(data)); err == nil {
		*p = NewPrice(d)
	}
	return nil
}

// MarshalJSON writes the price as a bare JSON number.
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(p.Decimal.String()), nil
}

// UnmarshalYAML lets fixture files use either form as well.
func (p *Price) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	*p = Price{}
	if d, ok := ParsePrice(s); ok {
		*p = NewPrice(d)
	}
	return nil
}

// Line is unit × quantity.
func Line(unit decimal.Decimal, qty int) decimal.Decimal {
	return unit.Mul(decimal.NewFromInt(int64(qty)))
}

// Format renders an amount for display, e.g. "$1,234.57". Half-cents round
// away from zero.
func Format(d decimal.Decimal) string {
	r := d.Round(2)
	sign := ""
	if r.IsNegative() {
		sign = "-"
		r = r.Neg()
	}
	whole := r.IntPart()
	cents := r.Sub(decimal.NewFromInt(whole)).Shift(2).IntPart()
	return fmt.Sprintf("%s$%s.%02d", sign, humanize.Comma(whole), cents)
}

// Fixed renders an amount with exactly two decimals and no symbol, the form
// order backends expect ("63.97").
func Fixed(d decimal.Decimal) string {
	return d.StringFixed(2)
}
