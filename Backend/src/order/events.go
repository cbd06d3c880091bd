package order

import (
	"context"
	"time"
)

// Routing keys published on the events exchange.
const (
	RKOrderSubmitted = "order.submitted"
)

// SubmittedEvent announces an order the backend accepted.
type SubmittedEvent struct {
	OrderID  string          `json:"order_id"`
	Number   string          `json:"number,omitempty"`
	Backend  string          `json:"backend"`
	Email    string          `json:"email"`
	Items    []SubmittedItem `json:"items"`
	Total    string          `json:"total"`
	PlacedAt time.Time       `json:"placed_at"`
}

type SubmittedItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

// NewSubmittedEvent builds the event for p accepted by backend as r.
func NewSubmittedEvent(backend string, p Payload, r Receipt) SubmittedEvent {
	items := make([]SubmittedItem, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, SubmittedItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
		})
	}
	return SubmittedEvent{
		OrderID:  r.OrderID,
		Number:   r.Number,
		Backend:  backend,
		Email:    p.Customer.Email,
		Items:    items,
		Total:    p.Totals.Total.StringFixed(2),
		PlacedAt: p.PlacedAt.UTC(),
	}
}

// Publisher sends domain events. Publishing is best effort for callers.
type Publisher interface {
	PublishJSON(ctx context.Context, routingKey string, v any) error
	Close() error
}

// NopPublisher drops every event. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishJSON(context.Context, string, any) error { return nil }
func (NopPublisher) Close() error                                  { return nil }
