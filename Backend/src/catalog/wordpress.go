package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"

	"github.com/vanillapodconfections/storefront/Backend/src/money"
)

// WordPress reads products from the shop's WordPress plugin endpoint
// ({base}/vpc/v1/products).
type WordPress struct {
	base string
	http *http.Client
}

func NewWordPress(base string, hc *http.Client) *WordPress {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &WordPress{base: strings.TrimSuffix(base, "/"), http: hc}
}

func (w *WordPress) Name() string { return "wordpress" }

type wpProduct struct {
	ID          flexString  `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Price       money.Price `json:"price"`
	Image       string      `json:"image"`
	Available   bool        `json:"available"`
	Slug        string      `json:"slug"`
	SKU         string      `json:"sku"`
}

func (w *WordPress) Products(ctx context.Context) ([]Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.base+"/vpc/v1/products", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := w.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wordpress: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("wordpress: status %d", resp.StatusCode)
	}

	var raw []wpProduct
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("wordpress: decode: %w", err)
	}
	out := make([]Product, 0, len(raw))
	for _, p := range raw {
		out = append(out, fromWordPress(p))
	}
	return out, nil
}

func fromWordPress(p wpProduct) Product {
	desc := StripHTML(p.Description)
	if desc == "" {
		desc = DefaultDescription
	}
	name := strings.TrimSpace(p.Title)
	if name == "" {
		name = DefaultName
	}
	return Product{
		ID:          string(p.ID),
		Name:        name,
		Description: truncate(desc, maxDescription),
		Price:       p.Price,
		Category:    Categorize(p.Title, p.Description),
		Emoji:       EmojiFor(p.Title),
		SKU:         p.SKU,
		Slug:        p.Slug,
		ImageURL:    p.Image,
		Available:   p.Available,
		Featured:    p.Available && p.Price.IsPositive(),
	}
}

// StripHTML returns the text content of an HTML fragment with entities
// decoded and whitespace collapsed.
func StripHTML(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(z.Text())
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			b.WriteByte(' ')
		}
	}
}
