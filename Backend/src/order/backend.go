// Package order submits orders to the shop's commerce backend and looks
// them up again. Two interchangeable backends exist: the WooCommerce REST
// API and a custom WordPress endpoint. Which one is used is decided once,
// from configuration.
package order

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultAPIBase = "https://vanillapodconfections.ca/wp-json"
	DefaultSource  = "go_storefront"

	userAgent    = "vpc-storefront/1.0"
	maxBodyBytes = 1 << 20
)

type Backend interface {
	Name() string
	Submit(ctx context.Context, p Payload) (Receipt, error)
	Lookup(ctx context.Context, orderID string) (Report, error)
}

type Config struct {
	APIBase        string
	ConsumerKey    string
	ConsumerSecret string
	CustomEndpoint string
	HTTPClient     *http.Client
}

// New returns the WooCommerce backend when both consumer credentials are
// set and the custom endpoint backend otherwise.
func New(cfg Config) Backend {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	cfg.APIBase = strings.TrimSuffix(cfg.APIBase, "/")
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if cfg.ConsumerKey != "" && cfg.ConsumerSecret != "" {
		return NewWooCommerce(cfg)
	}
	return NewCustom(cfg)
}

// client is the JSON-over-HTTP plumbing both backends share.
type client struct {
	name string
	http *http.Client
	auth func(*http.Request)
}

func (c client) do(ctx context.Context, method, url string, body, out any) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, &Error{Backend: c.name, Err: fmt.Errorf("marshal request: %w", err)}
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return nil, &Error{Backend: c.name, Err: fmt.Errorf("create request: %w", err)}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.auth != nil {
		c.auth(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Backend: c.name, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &Error{Backend: c.name, StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		cause := errors.New(http.StatusText(resp.StatusCode))
		if resp.StatusCode == http.StatusNotFound {
			cause = ErrNotFound
		}
		return nil, &Error{
			Backend:    c.name,
			StatusCode: resp.StatusCode,
			Message:    messageOf(raw),
			Err:        cause,
		}
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, &Error{Backend: c.name, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return raw, nil
}

// messageOf pulls "message" out of an error body, best effort.
func messageOf(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &e)
	return strings.TrimSpace(e.Message)
}

func placedAt(p Payload) string {
	t := p.PlacedAt
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339)
}

func sourceOf(p Payload) string {
	if p.Source != "" {
		return p.Source
	}
	return DefaultSource
}

// splitName splits a full name into first name and the rest.
func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
