package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/vanillapodconfections/storefront/Backend/src/money"
)

type AppwriteConfig struct {
	Endpoint   string // e.g. https://cloud.appwrite.io/v1
	ProjectID  string
	DatabaseID string
	BucketID   string
	APIKey     string
}

// Appwrite reads the "products" table of an Appwrite database and links
// product images from a storage bucket.
type Appwrite struct {
	cfg  AppwriteConfig
	http *http.Client
}

func NewAppwrite(cfg AppwriteConfig, hc *http.Client) *Appwrite {
	if hc == nil {
		hc = http.DefaultClient
	}
	cfg.Endpoint = strings.TrimSuffix(cfg.Endpoint, "/")
	return &Appwrite{cfg: cfg, http: hc}
}

func (a *Appwrite) Name() string { return "appwrite" }

type awRows struct {
	Total int     `json:"total"`
	Rows  []awRow `json:"rows"`
}

type awRow struct {
	ID          string      `json:"$id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Price       money.Price `json:"price"`
	Category    string      `json:"category"`
	Emoji       string      `json:"emoji"`
	SKU         string      `json:"sku"`
	ImageID     string      `json:"imageId"`
	Available   *bool       `json:"available"`
	Featured    bool        `json:"featured"`
}

func (a *Appwrite) Products(ctx context.Context) ([]Product, error) {
	u := fmt.Sprintf("%s/tablesdb/%s/tables/products/rows",
		a.cfg.Endpoint, url.PathEscape(a.cfg.DatabaseID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Appwrite-Project", a.cfg.ProjectID)
	if a.cfg.APIKey != "" {
		req.Header.Set("X-Appwrite-Key", a.cfg.APIKey)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("appwrite: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("appwrite: status %d", resp.StatusCode)
	}

	var page awRows
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("appwrite: decode: %w", err)
	}
	out := make([]Product, 0, len(page.Rows))
	for _, r := range page.Rows {
		out = append(out, a.fromRow(r))
	}
	return out, nil
}

// ImageURL is the public view URL of a file in the configured bucket.
func (a *Appwrite) ImageURL(imageID string) string {
	if imageID == "" {
		return ""
	}
	return fmt.Sprintf("%s/storage/buckets/%s/files/%s/view?project=%s",
		a.cfg.Endpoint, url.PathEscape(a.cfg.BucketID), url.PathEscape(imageID),
		url.QueryEscape(a.cfg.ProjectID))
}

func (a *Appwrite) fromRow(r awRow) Product {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		name = DefaultName
	}
	desc := StripHTML(r.Description)
	if desc == "" {
		desc = DefaultDescription
	}
	category := strings.TrimSpace(r.Category)
	if category == "" {
		category = Categorize(r.Name, r.Description)
	}
	emoji := r.Emoji
	if emoji == "" {
		emoji = EmojiFor(r.Name)
	}
	available := r.Available == nil || *r.Available
	return Product{
		ID:          r.ID,
		Name:        name,
		Description: truncate(desc, maxDescription),
		Price:       r.Price,
		Category:    category,
		Emoji:       emoji,
		SKU:         r.SKU,
		ImageID:     r.ImageID,
		ImageURL:    a.ImageURL(r.ImageID),
		Available:   available,
		Featured:    r.Featured,
	}
}
