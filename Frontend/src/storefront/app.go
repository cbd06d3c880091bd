package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vanillapodconfections/storefront/Backend/src/cart"
	"github.com/vanillapodconfections/storefront/Backend/src/catalog"
	"github.com/vanillapodconfections/storefront/Backend/src/checkout"
	"github.com/vanillapodconfections/storefront/Backend/src/order"
	"github.com/vanillapodconfections/storefront/pkg/config"
)

// App holds the storefront's long-lived dependencies.
type App struct {
	cfg       config.Config
	log       zerolog.Logger
	catalog   *catalog.Service
	orders    order.Backend
	publisher order.Publisher
	repo      *cart.SQLiteRepo
	pricing   checkout.Pricing
}

// NewApp wires the catalog and order backend from cfg. Persistence and the
// event publisher are opened separately by the commands that need them.
func NewApp(cfg config.Config, log zerolog.Logger) (*App, error) {
	hc := &http.Client{Timeout: cfg.HTTPClientTimeout}
	src, err := productSource(cfg, hc)
	if err != nil {
		return nil, err
	}
	fb, err := catalog.NewFallback()
	if err != nil {
		return nil, err
	}
	cat := catalog.NewService(src,
		catalog.WithFallback(fb),
		catalog.WithLogger(log.With().Str("component", "catalog").Logger()),
		catalog.WithCacheTTL(cfg.CatalogCacheTTL),
	)
	orders := order.New(order.Config{
		APIBase:        cfg.WPAPIBase,
		ConsumerKey:    cfg.WCConsumerKey,
		ConsumerSecret: cfg.WCConsumerSecret,
		CustomEndpoint: cfg.CustomOrderEndpoint,
		HTTPClient:     hc,
	})
	log.Info().Str("products", src.Name()).Str("orders", orders.Name()).Msg("app: backends selected")

	return &App{
		cfg:       cfg,
		log:       log,
		catalog:   cat,
		orders:    orders,
		publisher: order.NopPublisher{},
		pricing: checkout.Pricing{
			FlatShipping:     cfg.ShippingFlatFee,
			FreeShippingOver: cfg.FreeShippingThreshold,
			TaxRate:          cfg.TaxRate,
		},
	}, nil
}

func productSource(cfg config.Config, hc *http.Client) (catalog.Source, error) {
	switch cfg.ProductSource {
	case "", "wordpress":
		return catalog.NewWordPress(cfg.ProductsAPIBase, hc), nil
	case "appwrite":
		return catalog.NewAppwrite(catalog.AppwriteConfig{
			Endpoint:   cfg.Appwrite.Endpoint,
			ProjectID:  cfg.Appwrite.ProjectID,
			DatabaseID: cfg.Appwrite.DatabaseID,
			BucketID:   cfg.Appwrite.BucketID,
			APIKey:     cfg.Appwrite.APIKey,
		}, hc), nil
	case "fallback":
		return catalog.NewFallback()
	default:
		return nil, fmt.Errorf("unknown product source %q", cfg.ProductSource)
	}
}

// OpenCartStore opens SQLite cart persistence when a path is configured
// and drops carts idle longer than the retention period.
func (a *App) OpenCartStore(ctx context.Context) error {
	if a.cfg.CartDBPath == "" {
		a.log.Info().Msg("app: carts kept in memory only")
		return nil
	}
	db, err := cart.OpenSQLite(ctx, a.cfg.CartDBDriver, a.cfg.CartDBPath)
	if err != nil {
		return fmt.Errorf("open cart db: %w", err)
	}
	a.repo = cart.NewSQLiteRepo(db)
	a.log.Info().Str("driver", a.cfg.CartDBDriver).Str("path", a.cfg.CartDBPath).Msg("app: cart persistence on")
	a.purge(ctx)
	return nil
}

func (a *App) purge(ctx context.Context) {
	if a.repo == nil || a.cfg.CartRetention <= 0 {
		return
	}
	n, err := a.repo.Purge(ctx, time.Now().Add(-a.cfg.CartRetention))
	if err != nil {
		a.log.Warn().Err(err).Msg("app: purge stale carts")
		return
	}
	if n > 0 {
		a.log.Info().Int64("carts", n).Msg("app: purged stale carts")
	}
}

// OpenPublisher connects to RabbitMQ when a URL is configured. A broker
// that cannot be reached leaves events disabled rather than failing start.
func (a *App) OpenPublisher() {
	if a.cfg.RabbitURL == "" {
		return
	}
	r, err := order.NewRabbit(a.cfg.RabbitURL, a.cfg.EventsExchange, a.log)
	if err != nil {
		a.log.Warn().Err(err).Msg("app: rabbitmq unavailable, order events disabled")
		return
	}
	a.publisher = r
	a.log.Info().Str("exchange", a.cfg.EventsExchange).Msg("app: publishing order events")
}

func (a *App) Sessions() (*Sessions, error) {
	var repo cart.Repository
	if a.repo != nil {
		repo = a.repo
	}
	return NewSessions(a.cfg.SessionCapacity, repo, a.newSubmitter, a.log.With().Str("component", "sessions").Logger())
}

func (a *App) newSubmitter(sessionID string, c *cart.Store) *checkout.Submitter {
	return checkout.NewSubmitter(c, a.orders,
		checkout.WithPricing(a.pricing),
		checkout.WithPublisher(a.publisher),
		checkout.WithLogger(a.log.With().Str("session", sessionID).Logger()),
	)
}

func (a *App) Server(sessions *Sessions) (*Server, error) {
	return NewServer(ServerConfig{
		Catalog:      a.catalog,
		Orders:       a.orders,
		Sessions:     sessions,
		Pricing:      a.pricing,
		ContactEmail: a.cfg.ContactEmail,
		CookieSecure: a.cfg.CookieSecure,
		CORSOrigins:  a.cfg.CORSOrigins,
		Log:          a.log,
	})
}

func (a *App) Close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.repo != nil {
		errs = append(errs, a.repo.Close())
	}
	return errors.Join(errs...)
}
