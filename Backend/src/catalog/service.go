// Package catalog loads the shop's products from the configured backend,
// falling back to a built-in catalog when the backend is unavailable.
package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var ErrNotFound = errors.New("catalog: product not found")

// Source is anything that can list products.
type Source interface {
	Name() string
	Products(ctx context.Context) ([]Product, error)
}

const cacheKey = "products"

type Service struct {
	src      Source
	fallback Source
	cache    *expirable.LRU[string, []Product]
	log      zerolog.Logger
}

type ServiceOption func(*Service)

func WithFallback(src Source) ServiceOption { return func(s *Service) { s.fallback = src } }

func WithLogger(l zerolog.Logger) ServiceOption { return func(s *Service) { s.log = l } }

// WithCacheTTL caches successful source reads for ttl. Zero disables the
// cache.
func WithCacheTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl <= 0 {
			s.cache = nil
			return
		}
		s.cache = expirable.NewLRU[string, []Product](1, nil, ttl)
	}
}

func NewService(src Source, opts ...ServiceOption) *Service {
	s := &Service{
		src:      src,
		fallback: MustFallback(),
		cache:    expirable.NewLRU[string, []Product](1, nil, 5*time.Minute),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every product. Source failures are logged and answered from
// the fallback catalog.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	if s.cache != nil {
		if ps, ok := s.cache.Get(cacheKey); ok {
			return clone(ps), nil
		}
	}

	ps, err := s.src.Products(ctx)
	if err == nil {
		if s.cache != nil {
			s.cache.Add(cacheKey, ps)
		}
		return clone(ps), nil
	}

	s.log.Warn().Err(err).Str("source", s.src.Name()).Msg("catalog: source failed, serving fallback")
	if s.fallback == nil {
		return nil, err
	}
	return s.fallback.Products(ctx)
}

// ByCategory filters by category, ignoring case. "All" returns everything.
func (s *Service) ByCategory(ctx context.Context, category string) ([]Product, error) {
	ps, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	category = strings.TrimSpace(category)
	if category == "" || strings.EqualFold(category, CategoryAll) {
		return ps, nil
	}
	out := ps[:0]
	for _, p := range ps {
		if strings.EqualFold(p.Category, category) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) ByID(ctx context.Context, id string) (Product, error) {
	ps, err := s.List(ctx)
	if err != nil {
		return Product{}, err
	}
	for _, p := range ps {
		if p.ID == id {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

// Categories returns "All" followed by the distinct category labels in
// alphabetical order.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	ps, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	// A Caser is stateful; one per call.
	title := cases.Title(language.English)
	seen := make(map[string]string)
	for _, p := range ps {
		label := strings.TrimSpace(p.Category)
		if label == "" {
			continue
		}
		key := strings.ToLower(label)
		if key == strings.ToLower(CategoryAll) {
			continue
		}
		if _, ok := seen[key]; !ok {
			seen[key] = title.String(label)
		}
	}
	labels := make([]string, 0, len(seen))
	for _, l := range seen {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return append([]string{CategoryAll}, labels...), nil
}

func (s *Service) Featured(ctx context.Context) ([]Product, error) {
	ps, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := ps[:0]
	for _, p := range ps {
		if p.Featured {
			out = append(out, p)
		}
	}
	return out, nil
}

// Invalidate drops the cached product list.
func (s *Service) Invalidate() {
	if s.cache != nil {
		s.cache.Purge()
	}
}

func clone(ps []Product) []Product {
	out := make([]Product, len(ps))
	copy(out, ps)
	return out
}
