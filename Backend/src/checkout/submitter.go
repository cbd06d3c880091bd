// Package checkout turns a session's cart and customer details into an
// order on the configured backend and tracks the outcome.
package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vanillapodconfections/storefront/Backend/src/cart"
	"github.com/vanillapodconfections/storefront/Backend/src/order"
)

// User-facing failure messages.
const (
	MsgMissingCustomer = "Please enter your name and email."
	MsgEmptyCart       = "Your cart is empty."
	MsgUnexpected      = "An unexpected error occurred. Please try again."
)

const publishTimeout = 5 * time.Second

// Cart is the part of the cart store the submitter needs.
type Cart interface {
	Items() []cart.LineItem
	Total() decimal.Decimal
	Subtract([]cart.LineItem)
}

type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Notes string `json:"notes,omitempty"`
}

func (c CustomerInfo) trimmed() CustomerInfo {
	return CustomerInfo{
		Name:  strings.TrimSpace(c.Name),
		Email: strings.TrimSpace(c.Email),
		Phone: strings.TrimSpace(c.Phone),
		Notes: strings.TrimSpace(c.Notes),
	}
}

// Submitter runs checkouts for one session. At most one submission is in
// flight at a time; the backend call runs without holding the lock so
// Status reads see Processing meanwhile.
type Submitter struct {
	cart      Cart
	backend   order.Backend
	pricing   Pricing
	publisher order.Publisher
	log       zerolog.Logger
	now       func() time.Time
	source    string

	mu       sync.Mutex
	status   Status
	customer CustomerInfo
}

type Option func(*Submitter)

func WithPricing(p Pricing) Option { return func(s *Submitter) { s.pricing = p } }

func WithPublisher(p order.Publisher) Option {
	return func(s *Submitter) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithLogger(l zerolog.Logger) Option { return func(s *Submitter) { s.log = l } }

func WithClock(now func() time.Time) Option { return func(s *Submitter) { s.now = now } }

// WithSource sets the source tag sent with orders.
func WithSource(src string) Option { return func(s *Submitter) { s.source = src } }

func NewSubmitter(c Cart, b order.Backend, opts ...Option) *Submitter {
	s := &Submitter{
		cart:      c,
		backend:   b,
		pricing:   DefaultPricing(),
		publisher: order.NopPublisher{},
		log:       zerolog.Nop(),
		now:       time.Now,
		source:    order.DefaultSource,
		status:    Idle{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Submitter) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Customer returns the details entered for the current attempt.
func (s *Submitter) Customer() CustomerInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.customer
}

// Totals prices the cart as it stands now.
func (s *Submitter) Totals() Totals {
	return s.pricing.Compute(s.cart.Total())
}

func (s *Submitter) Pricing() Pricing { return s.pricing }

// Reset returns a finished checkout to Idle so a new order can start. A
// submission in flight is left alone.
func (s *Submitter) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.status.(type) {
	case Succeeded, Failed:
		s.status = Idle{}
	}
}

// Submit validates info and the cart, sends the order and returns the
// resulting status. Errors never escape: they become Failed. While a
// submission is processing or has succeeded, calls are ignored and the
// current status is returned.
//
// Cancelling ctx does not abort a submission that has started; the backend
// client's timeout bounds it instead. On success only the submitted lines
// leave the cart.
func (s *Submitter) Submit(ctx context.Context, info CustomerInfo) Status {
	st, _ := s.TrySubmit(ctx, info)
	return st
}

// TrySubmit is Submit that also reports whether the call was taken up. It
// returns false when the call was ignored because a submission is
// processing or has already succeeded.
func (s *Submitter) TrySubmit(ctx context.Context, info CustomerInfo) (Status, bool) {
	ctx = context.WithoutCancel(ctx)
	s.mu.Lock()
	if locked(s.status) {
		st := s.status
		s.mu.Unlock()
		s.log.Debug().Str("status", string(st.Kind())).Msg("submit: ignored")
		return st, false
	}

	info = info.trimmed()
	s.customer = info
	if info.Name == "" || info.Email == "" {
		return s.failLocked(MsgMissingCustomer), true
	}
	items := s.cart.Items()
	if len(items) == 0 {
		return s.failLocked(MsgEmptyCart), true
	}
	s.status = Processing{}
	s.mu.Unlock()

	p := s.payload(info, items)
	log := s.log.With().Str("backend", s.backend.Name()).Int("lines", len(p.Items)).Logger()
	log.Info().Str("total", p.Totals.Total.StringFixed(2)).Msg("submit: sending")

	receipt, err := s.backend.Submit(ctx, p)
	if err != nil {
		msg := order.Reason(err)
		if msg == "" {
			msg = MsgUnexpected
		}
		log.Error().Err(err).Msg("submit: failed")
		s.mu.Lock()
		return s.failLocked(msg), true
	}

	st := Succeeded{OrderID: receipt.OrderID}
	s.mu.Lock()
	s.status = st
	s.customer = CustomerInfo{}
	s.mu.Unlock()

	s.cart.Subtract(items)
	log.Info().Str("order", receipt.OrderID).Msg("submit: accepted")
	s.publish(ctx, p, receipt)
	return st, true
}

// failLocked sets Failed and releases mu.
func (s *Submitter) failLocked(msg string) Status {
	st := Failed{Message: msg}
	s.status = st
	s.mu.Unlock()
	return st
}

func (s *Submitter) payload(info CustomerInfo, lines []cart.LineItem) order.Payload {
	subtotal := decimal.Zero
	items := make([]order.Item, 0, len(lines))
	for _, li := range lines {
		subtotal = subtotal.Add(li.LineTotal())
		items = append(items, order.Item{
			ProductID:   li.ID,
			Name:        li.Name,
			UnitPrice:   li.UnitPrice,
			Quantity:    li.Quantity,
			Description: li.Description,
			SKU:         li.SKU,
		})
	}
	t := s.pricing.Compute(subtotal)
	placed := s.now().UTC()

	notes := fmt.Sprintf("Submitted via %s at %s", s.source, placed.Format(time.RFC3339))
	if info.Notes != "" {
		notes = info.Notes + "\n\n" + notes
	}

	return order.Payload{
		Customer: order.Customer{Name: info.Name, Email: info.Email, Phone: info.Phone},
		Items:    items,
		Totals: order.Totals{
			Subtotal: t.Subtotal,
			Shipping: t.Shipping,
			Tax:      t.Tax,
			Total:    t.Total,
		},
		Notes:    notes,
		Source:   s.source,
		PlacedAt: placed,
	}
}

func (s *Submitter) publish(ctx context.Context, p order.Payload, r order.Receipt) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	ev := order.NewSubmittedEvent(s.backend.Name(), p, r)
	if err := s.publisher.PublishJSON(ctx, order.RKOrderSubmitted, ev); err != nil {
		s.log.Warn().Err(err).Str("order", r.OrderID).Msg("submit: publish event failed")
	}
}
