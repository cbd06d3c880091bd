package catalog

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/vanillapodconfections/storefront/Backend/src/money"
)

// Product is a catalog entry as shown on the storefront.
type Product struct {
	ID          string      `json:"id" yaml:"id"`
	Name        string      `json:"name" yaml:"name"`
	Description string      `json:"description" yaml:"description"`
	Price       money.Price `json:"price" yaml:"price"`
	Category    string      `json:"category" yaml:"category"`
	Emoji       string      `json:"emoji,omitempty" yaml:"emoji"`
	SKU         string      `json:"sku,omitempty" yaml:"sku"`
	Slug        string      `json:"slug,omitempty" yaml:"slug"`
	ImageID     string      `json:"image_id,omitempty" yaml:"image_id"`
	ImageURL    string      `json:"image_url,omitempty" yaml:"image_url"`
	Available   bool        `json:"available" yaml:"available"`
	Featured    bool        `json:"featured" yaml:"featured"`
}

const (
	DefaultDescription = "Delicious confection"
	DefaultName        = "Unknown Product"
	DefaultEmoji       = "🍰"
	CategoryOther      = "Other"
	CategoryAll        = "All"

	maxDescription = 150
)

// Categorize guesses a category from a product's title and description.
func Categorize(title, description string) string {
	text := strings.ToLower(title + " " + description)
	switch {
	case strings.Contains(text, "cupcake"):
		return "Cupcakes"
	case strings.Contains(text, "macaron"):
		return "Macarons"
	case strings.Contains(text, "cheesecake"):
		return "Cheesecakes"
	case strings.Contains(text, "cake"):
		return "Cakes"
	case strings.Contains(text, "chocolate"), strings.Contains(text, "cocoa"):
		return "Chocolates"
	}
	return CategoryOther
}

var emojiRules = []struct {
	words []string
	emoji string
}{
	{[]string{"cupcake"}, "🧁"},
	{[]string{"macaron"}, "🥮"},
	{[]string{"cheesecake"}, "🍰"},
	{[]string{"cake"}, "🎂"},
	{[]string{"chocolate", "cocoa"}, "🍫"},
	{[]string{"gift"}, "🎁"},
	{[]string{"lemon"}, "🍋"},
	{[]string{"raspberry"}, "🍓"},
	{[]string{"pistachio"}, "🥜"},
}

// EmojiFor picks a display emoji from a product title.
func EmojiFor(title string) string {
	t := strings.ToLower(title)
	for _, r := range emojiRules {
		for _, w := range r.words {
			if strings.Contains(t, w) {
				return r.emoji
			}
		}
	}
	return DefaultEmoji
}

// truncate cuts s to n runes and marks the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// flexString decodes a JSON string or number as text.
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*s = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}
