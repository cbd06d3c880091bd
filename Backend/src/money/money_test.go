package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"$12.99", "12.99", true},
		{"12.99", "12.99", true},
		{"  $24.99 ", "24.99", true},
		{"CA$1,299.00", "1299", true},
		{"18.50 CAD", "18.5", true},
		{"$0.00", "0", true},
		{"free", "0", false},
		{"", "0", false},
		{"$", "0", false},
		{"1.2.3", "0", false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, ok := ParsePrice(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "got %s", got)
		})
	}
}

func TestPriceUnmarshalJSON_NumberAndStringAgree(t *testing.T) {
	var fromNumber, fromString struct {
		Price Price `json:"price"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"price": 12.99}`), &fromNumber))
	require.NoError(t, json.Unmarshal([]byte(`{"price": "$12.99"}`), &fromString))

	assert.True(t, fromNumber.Price.Equal(fromString.Price.Decimal))
	assert.Equal(t, "12.99", fromNumber.Price.String())
}

func TestPriceUnmarshalJSON_Degrades(t *testing.T) {
	for _, raw := range []string{`null`, `"call us"`, `-5`, `"-$3.00"`, `true`} {
		var p Price
		require.NoError(t, json.Unmarshal([]byte(raw), &p), raw)
		assert.True(t, p.IsZero(), "%s decoded to %s", raw, p)
	}
}

func TestPriceMarshalJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Price Price `json:"price"`
	}{MustParse("$32.99")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"price": 32.99}`, string(b))
}

func TestFromFloatIsExact(t *testing.T) {
	assert.Equal(t, "24.99", FromFloat(24.99).String())
	assert.True(t, FromFloat(-1).IsZero())
}

func TestFormat(t *testing.T) {
	cases := map[string]string{
		"63.9684": "$63.97",
		"3.9984":  "$4.00",
		"0":       "$0.00",
		"0.005":   "$0.01",
		"1234.5":  "$1,234.50",
		"-9.99":   "-$9.99",
		"1000000": "$1,000,000.00",
	}
	for in, want := range cases {
		assert.Equal(t, want, Format(decimal.RequireFromString(in)), in)
	}
}

func TestFixedAndLine(t *testing.T) {
	line := Line(decimal.RequireFromString("24.99"), 2)
	assert.Equal(t, "49.98", line.String())
	assert.Equal(t, "63.97", Fixed(decimal.RequireFromString("63.9684")))
	assert.Equal(t, "9.99", Fixed(decimal.RequireFromString("9.99")))
}
