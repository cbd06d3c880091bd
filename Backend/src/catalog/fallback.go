package catalog

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed fallback.yaml
var fallbackYAML []byte

// Fallback serves the built-in catalog.
type Fallback struct {
	products []Product
}

func NewFallback() (*Fallback, error) {
	var ps []Product
	if err := yaml.Unmarshal(fallbackYAML, &ps); err != nil {
		return nil, fmt.Errorf("fallback catalog: %w", err)
	}
	return &Fallback{products: ps}, nil
}

// MustFallback panics if the embedded catalog does not parse.
func MustFallback() *Fallback {
	f, err := NewFallback()
	if err != nil {
		panic(err)
	}
	return f
}

func (f *Fallback) Name() string { return "fallback" }

func (f *Fallback) Products(context.Context) ([]Product, error) {
	out := make([]Product, len(f.products))
	copy(out, f.products)
	return out, nil
}
