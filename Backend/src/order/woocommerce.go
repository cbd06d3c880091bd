package order

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

const defaultCountry = "CA"

// WooCommerce talks to the WooCommerce REST API v3 with consumer key/secret
// basic auth.
type WooCommerce struct {
	base string
	c    client
}

func NewWooCommerce(cfg Config) *WooCommerce {
	key, secret := cfg.ConsumerKey, cfg.ConsumerSecret
	return &WooCommerce{
		base: cfg.APIBase,
		c: client{
			name: "woocommerce",
			http: cfg.HTTPClient,
			auth: func(r *http.Request) { r.SetBasicAuth(key, secret) },
		},
	}
}

func (w *WooCommerce) Name() string { return w.c.name }

type wcOrder struct {
	PaymentMethod      string           `json:"payment_method"`
	PaymentMethodTitle string           `json:"payment_method_title"`
	SetPaid            bool             `json:"set_paid"`
	Billing            wcAddress        `json:"billing"`
	Shipping           wcAddress        `json:"shipping"`
	LineItems          []wcLineItem     `json:"line_items"`
	ShippingLines      []wcShippingLine `json:"shipping_lines"`
	FeeLines           []wcFeeLine      `json:"fee_lines"`
	CustomerNote       string           `json:"customer_note,omitempty"`
	MetaData           []wcMeta         `json:"meta_data"`
}

type wcAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
}

type wcLineItem struct {
	ProductID int64  `json:"product_id,omitempty"`
	Quantity  int    `json:"quantity"`
	Price     amount `json:"price"`
	Name      string `json:"name"`
	SKU       string `json:"sku"`
}

type wcShippingLine struct {
	MethodID    string `json:"method_id"`
	MethodTitle string `json:"method_title"`
	Total       string `json:"total"`
}

type wcFeeLine struct {
	Name  string `json:"name"`
	Total string `json:"total"`
}

type wcMeta struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type wcOrderResponse struct {
	ID       looseString `json:"id"`
	Number   looseString `json:"number"`
	Status   string      `json:"status"`
	Total    looseString `json:"total"`
	Currency string      `json:"currency"`
}

func (w *WooCommerce) Submit(ctx context.Context, p Payload) (Receipt, error) {
	var out wcOrderResponse
	if _, err := w.c.do(ctx, http.MethodPost, w.base+"/wc/v3/orders", toWooCommerce(p), &out); err != nil {
		return Receipt{}, err
	}
	if out.ID == "" || out.ID == "0" {
		return Receipt{}, &Error{Backend: w.c.name, StatusCode: http.StatusOK, Err: fmt.Errorf("response has no order id")}
	}
	return Receipt{
		OrderID: string(out.ID),
		Number:  string(out.Number),
		Message: "Order submitted successfully! Invoice email will be sent shortly.",
	}, nil
}

func (w *WooCommerce) Lookup(ctx context.Context, orderID string) (Report, error) {
	var out wcOrderResponse
	raw, err := w.c.do(ctx, http.MethodGet, w.base+"/wc/v3/orders/"+url.PathEscape(orderID), nil, &out)
	if err != nil {
		return Report{}, err
	}
	return Report{
		OrderID:  string(out.ID),
		Number:   string(out.Number),
		Status:   out.Status,
		Total:    string(out.Total),
		Currency: out.Currency,
		Raw:      raw,
	}, nil
}

func toWooCommerce(p Payload) wcOrder {
	first, last := splitName(p.Customer.Name)

	billing := wcAddress{
		FirstName: first,
		LastName:  last,
		Email:     p.Customer.Email,
		Phone:     p.Customer.Phone,
		Country:   defaultCountry,
	}
	if a := p.Billing; a != nil {
		billing.Address1, billing.Address2 = a.Address1, a.Address2
		billing.City, billing.State, billing.Postcode = a.City, a.State, a.Postcode
		if a.Country != "" {
			billing.Country = a.Country
		}
	}

	shipping := wcAddress{FirstName: first, LastName: last, Country: defaultCountry}
	switch {
	case p.Shipping != nil:
		shipping = fromAddress(*p.Shipping, first, last)
	case p.Billing != nil:
		shipping = fromAddress(*p.Billing, first, last)
	}

	items := make([]wcLineItem, 0, len(p.Items))
	for _, it := range p.Items {
		li := wcLineItem{
			Quantity: it.Quantity,
			Price:    amount(it.UnitPrice),
			Name:     it.Name,
			SKU:      it.SKU,
		}
		// WooCommerce product ids are integers; anything else is sent as a
		// custom line without a product link.
		if id, err := strconv.ParseInt(it.ProductID, 10, 64); err == nil && id > 0 {
			li.ProductID = id
		}
		items = append(items, li)
	}

	fees := []wcFeeLine{}
	if p.Totals.Tax.IsPositive() {
		fees = append(fees, wcFeeLine{Name: "Tax", Total: p.Totals.Tax.StringFixed(2)})
	}

	return wcOrder{
		PaymentMethod:      "pending",
		PaymentMethodTitle: "Pending Payment",
		SetPaid:            false,
		Billing:            billing,
		Shipping:           shipping,
		LineItems:          items,
		ShippingLines: []wcShippingLine{{
			MethodID:    "flat_rate",
			MethodTitle: "Standard Shipping",
			Total:       p.Totals.Shipping.StringFixed(2),
		}},
		FeeLines:     fees,
		CustomerNote: p.Notes,
		MetaData: []wcMeta{
			{Key: "_invoice_requested", Value: "yes"},
			{Key: "_source", Value: sourceOf(p)},
			{Key: "_order_timestamp", Value: placedAt(p)},
		},
	}
}

func fromAddress(a Address, first, last string) wcAddress {
	out := wcAddress{
		FirstName: a.FirstName,
		LastName:  a.LastName,
		Address1:  a.Address1,
		Address2:  a.Address2,
		City:      a.City,
		State:     a.State,
		Postcode:  a.Postcode,
		Country:   a.Country,
	}
	if out.FirstName == "" && out.LastName == "" {
		out.FirstName, out.LastName = first, last
	}
	if out.Country == "" {
		out.Country = defaultCountry
	}
	return out
}
