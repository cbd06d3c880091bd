package order

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Custom posts orders to a custom WordPress endpoint that answers with
// {"message": ..., "order_id": ...}.
type Custom struct {
	endpoint string
	base     string
	c        client
}

func NewCustom(cfg Config) *Custom {
	endpoint := cfg.CustomEndpoint
	if endpoint == "" {
		endpoint = cfg.APIBase + "/custom-api/v1/orders"
	}
	return &Custom{
		endpoint: endpoint,
		base:     cfg.APIBase,
		c:        client{name: "custom", http: cfg.HTTPClient},
	}
}

func (c *Custom) Name() string { return c.c.name }

type customOrder struct {
	Customer        customCustomer `json:"customer"`
	Items           []customItem   `json:"items"`
	Totals          customTotals   `json:"totals"`
	BillingAddress  Address        `json:"billing_address"`
	ShippingAddress Address        `json:"shipping_address"`
	Notes           string         `json:"notes"`
	RequestInvoice  bool           `json:"request_invoice"`
	Source          string         `json:"source"`
	Timestamp       string         `json:"timestamp"`
}

type customCustomer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type customItem struct {
	ProductID   string `json:"product_id"`
	Name        string `json:"name"`
	Quantity    int    `json:"quantity"`
	Price       amount `json:"price"`
	Total       amount `json:"total"`
	Description string `json:"description"`
	SKU         string `json:"sku"`
}

type customTotals struct {
	Subtotal amount `json:"subtotal"`
	Shipping amount `json:"shipping"`
	Tax      amount `json:"tax"`
	Total    amount `json:"total"`
}

type customResponse struct {
	Success *bool       `json:"success"`
	Message string      `json:"message"`
	OrderID looseString `json:"order_id"`
	ID      looseString `json:"id"`
	Number  looseString `json:"number"`
	Status  string      `json:"status"`
	Total   looseString `json:"total"`
}

func (r customResponse) orderID() string {
	if r.OrderID != "" {
		return string(r.OrderID)
	}
	return string(r.ID)
}

func (c *Custom) Submit(ctx context.Context, p Payload) (Receipt, error) {
	var out customResponse
	if _, err := c.c.do(ctx, http.MethodPost, c.endpoint, toCustom(p), &out); err != nil {
		return Receipt{}, err
	}
	if out.Success != nil && !*out.Success {
		return Receipt{}, &Error{Backend: c.c.name, StatusCode: http.StatusOK, Message: out.Message, Err: fmt.Errorf("order rejected")}
	}
	id := out.orderID()
	if id == "" {
		return Receipt{}, &Error{Backend: c.c.name, StatusCode: http.StatusOK, Err: fmt.Errorf("response has no order id")}
	}
	msg := out.Message
	if msg == "" {
		msg = "Order submitted successfully! Invoice email will be sent shortly."
	}
	return Receipt{OrderID: id, Number: string(out.Number), Message: msg}, nil
}

func (c *Custom) Lookup(ctx context.Context, orderID string) (Report, error) {
	var out customResponse
	raw, err := c.c.do(ctx, http.MethodGet, c.base+"/custom-api/v1/orders/"+url.PathEscape(orderID), nil, &out)
	if err != nil {
		return Report{}, err
	}
	id := out.orderID()
	if id == "" {
		id = orderID
	}
	return Report{
		OrderID: id,
		Number:  string(out.Number),
		Status:  out.Status,
		Total:   string(out.Total),
		Raw:     raw,
	}, nil
}

func toCustom(p Payload) customOrder {
	items := make([]customItem, 0, len(p.Items))
	for _, it := range p.Items {
		items = append(items, customItem{
			ProductID:   it.ProductID,
			Name:        it.Name,
			Quantity:    it.Quantity,
			Price:       amount(it.UnitPrice),
			Total:       amount(it.LineTotal()),
			Description: it.Description,
			SKU:         it.SKU,
		})
	}

	var billing, shipping Address
	if p.Billing != nil {
		billing = *p.Billing
		shipping = *p.Billing
	}
	if p.Shipping != nil {
		shipping = *p.Shipping
	}

	return customOrder{
		Customer: customCustomer{
			Name:  p.Customer.Name,
			Email: p.Customer.Email,
			Phone: p.Customer.Phone,
		},
		Items: items,
		Totals: customTotals{
			Subtotal: amount(p.Totals.Subtotal),
			Shipping: amount(p.Totals.Shipping),
			Tax:      amount(p.Totals.Tax),
			Total:    amount(p.Totals.Total),
		},
		BillingAddress:  billing,
		ShippingAddress: shipping,
		Notes:           p.Notes,
		RequestInvoice:  true,
		Source:          sourceOf(p),
		Timestamp:       placedAt(p),
	}
}
