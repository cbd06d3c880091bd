// Package config loads storefront settings from the environment, after
// reading an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	AppEnv   string
	LogLevel string

	HTTPAddr string
	GRPCAddr string

	// Product source: wordpress, appwrite or fallback.
	ProductSource   string
	ProductsAPIBase string
	Appwrite        Appwrite
	CatalogCacheTTL time.Duration

	// Order backend. WooCommerce is used when both keys are set.
	WPAPIBase           string
	WCConsumerKey       string
	WCConsumerSecret    string
	CustomOrderEndpoint string
	HTTPClientTimeout   time.Duration

	ShippingFlatFee       decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	TaxRate               decimal.Decimal

	CartDBDriver    string
	CartDBPath      string
	CartRetention   time.Duration
	SessionCapacity int
	CookieSecure    bool

	RabbitURL      string
	EventsExchange string

	ContactEmail string
	CORSOrigins  []string
}

type Appwrite struct {
	Endpoint   string
	ProjectID  string
	DatabaseID string
	BucketID   string
	APIKey     string
}

const defaultWPAPIBase = "https://vanillapodconfections.ca/wp-json"

// Load reads files (default ".env") into the environment without
// overriding variables already set, then builds the Config. Missing files
// are skipped; a file that cannot be read or parsed is an error.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	wpBase := getEnv("WP_API_BASE", defaultWPAPIBase)
	return Config{
		AppEnv:   getEnv("APP_ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr: getEnv("GRPC_ADDR", ":50060"),

		ProductSource:   strings.ToLower(getEnv("PRODUCT_SOURCE", "wordpress")),
		ProductsAPIBase: getEnv("PRODUCTS_API_BASE", wpBase),
		Appwrite: Appwrite{
			Endpoint:   getEnv("APPWRITE_ENDPOINT", "https://cloud.appwrite.io/v1"),
			ProjectID:  getEnv("APPWRITE_PROJECT_ID", ""),
			DatabaseID: getEnv("APPWRITE_DATABASE_ID", ""),
			BucketID:   getEnv("APPWRITE_BUCKET_ID", ""),
			APIKey:     getEnv("APPWRITE_API_KEY", ""),
		},
		CatalogCacheTTL: getEnvDuration("CATALOG_CACHE_TTL", 5*time.Minute),

		WPAPIBase:           wpBase,
		WCConsumerKey:       getEnv("WC_CONSUMER_KEY", ""),
		WCConsumerSecret:    getEnv("WC_CONSUMER_SECRET", ""),
		CustomOrderEndpoint: getEnv("CUSTOM_ORDER_ENDPOINT", ""),
		HTTPClientTimeout:   getEnvDuration("HTTP_CLIENT_TIMEOUT", 15*time.Second),

		ShippingFlatFee:       getEnvDecimal("SHIPPING_FLAT_FEE", "9.99"),
		FreeShippingThreshold: getEnvDecimal("FREE_SHIPPING_THRESHOLD", "50"),
		TaxRate:               getEnvDecimal("TAX_RATE", "0.08"),

		CartDBDriver:    getEnv("CART_DB_DRIVER", "sqlite"),
		CartDBPath:      getEnv("CART_DB_PATH", ""),
		CartRetention:   getEnvDuration("CART_RETENTION", 30*24*time.Hour),
		SessionCapacity: getEnvInt("SESSION_CAPACITY", 1024),
		CookieSecure:    getEnvBool("COOKIE_SECURE", false),

		RabbitURL:      getEnv("RABBITMQ_URL", ""),
		EventsExchange: getEnv("EVENTS_EXCHANGE", "vpc_events"),

		ContactEmail: getEnv("CONTACT_EMAIL", "hello@vanillapodconfections.ca"),
		CORSOrigins:  getEnvList("CORS_ORIGINS", []string{"*"}),
	}, nil
}

func (c Config) IsDev() bool { return c.AppEnv == "dev" }

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func getEnvDecimal(key, def string) decimal.Decimal {
	if d, err := decimal.NewFromString(getEnv(key, def)); err == nil && !d.IsNegative() {
		return d
	}
	return decimal.RequireFromString(def)
}

func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
