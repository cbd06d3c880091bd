package main

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vanillapodconfections/storefront/Backend/src/cart"
	"github.com/vanillapodconfections/storefront/Backend/src/catalog"
	"github.com/vanillapodconfections/storefront/Backend/src/checkout"
	"github.com/vanillapodconfections/storefront/Backend/src/money"
)

const maxAPIBody = 64 << 10

type apiLine struct {
	cart.LineItem
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

type apiTotals struct {
	Subtotal          string `json:"subtotal"`
	Shipping          string `json:"shipping"`
	Tax               string `json:"tax"`
	Total             string `json:"total"`
	UntilFreeShipping string `json:"until_free_shipping"`
}

type apiCartView struct {
	Items    []apiLine     `json:"items"`
	Count    int           `json:"count"`
	Totals   apiTotals     `json:"totals"`
	Checkout checkout.View `json:"checkout"`
}

func (s *Server) cartView(sess *Session) apiCartView {
	snap := sess.Cart.Snapshot()
	lines := make([]apiLine, 0, len(snap.Items))
	for _, it := range snap.Items {
		lines = append(lines, apiLine{
			LineItem:  it,
			UnitPrice: money.Fixed(it.UnitPrice),
			LineTotal: money.Fixed(it.LineTotal()),
		})
	}
	t := s.pricing.Compute(snap.Total)
	return apiCartView{
		Items: lines,
		Count: snap.Count,
		Totals: apiTotals{
			Subtotal:          money.Fixed(t.Subtotal),
			Shipping:          money.Fixed(t.Shipping),
			Tax:               money.Fixed(t.Tax),
			Total:             money.Fixed(t.Total),
			UntilFreeShipping: money.Fixed(s.pricing.UntilFreeShipping(t.Subtotal)),
		},
		Checkout: checkout.ViewOf(sess.Checkout.Status()),
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAPIBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid JSON body"})
		return false
	}
	return true
}

func (s *Server) apiSession(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sess, err := s.session(w, r)
	if err != nil {
		s.log.Error().Err(err).Msg("api: session")
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "session unavailable"})
		return nil, false
	}
	return sess, true
}

type apiProductsView struct {
	Category   string            `json:"category"`
	Categories []string          `json:"categories"`
	Products   []catalog.Product `json:"products"`
}

func (s *Server) apiProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.upstream(r)
	defer cancel()
	category := strings.TrimSpace(r.URL.Query().Get("category"))
	if category == "" {
		category = catalog.CategoryAll
	}
	products, err := s.catalog.ByCategory(ctx, category)
	if err != nil {
		s.log.Error().Err(err).Msg("api: products")
		writeJSON(w, http.StatusBadGateway, apiError{Error: "catalog unavailable"})
		return
	}
	categories, err := s.catalog.Categories(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("api: categories")
		writeJSON(w, http.StatusBadGateway, apiError{Error: "catalog unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, apiProductsView{Category: category, Categories: categories, Products: products})
}

func (s *Server) apiCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.apiSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.cartView(sess))
}

func (s *Server) apiClearCart(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.apiSession(w, r)
	if !ok {
		return
	}
	sess.Cart.Clear()
	writeJSON(w, http.StatusOK, s.cartView(sess))
}

type addItemRequest struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

func (s *Server) apiAddItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.apiSession(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, msg, err := s.lookupProduct(r, strings.TrimSpace(req.ID))
	if err != nil {
		s.log.Error().Err(err).Msg("api: add item")
		writeJSON(w, http.StatusBadGateway, apiError{Error: "catalog unavailable"})
		return
	}
	if msg != "" {
		writeJSON(w, http.StatusNotFound, apiError{Error: msg})
		return
	}
	s.addToCart(sess, toCartProduct(p), req.Quantity)
	writeJSON(w, http.StatusCreated, s.cartView(sess))
}

type updateItemRequest struct {
	Quantity *int `json:"quantity"`
}

func (s *Server) apiUpdateItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.apiSession(w, r)
	if !ok {
		return
	}
	var req updateItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "quantity is required"})
		return
	}
	if !sess.Cart.UpdateQuantity(r.PathValue("id"), *req.Quantity) {
		writeJSON(w, http.StatusNotFound, apiError{Error: "item not in cart"})
		return
	}
	writeJSON(w, http.StatusOK, s.cartView(sess))
}

func (s *Server) apiRemoveItem(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.apiSession(w, r)
	if !ok {
		return
	}
	if !sess.Cart.Remove(r.PathValue("id")) {
		writeJSON(w, http.StatusNotFound, apiError{Error: "item not in cart"})
		return
	}
	writeJSON(w, http.StatusOK, s.cartView(sess))
}

func (s *Server) apiCheckoutStatus(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.apiSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, checkout.ViewOf(sess.Checkout.Status()))
}

// apiCheckout answers 200 for an accepted order, 409 when the submission
// was ignored (another is in flight or the last order succeeded and was not
// reset) and 422 for a failed one.
func (s *Server) apiCheckout(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.apiSession(w, r)
	if !ok {
		return
	}
	var info checkout.CustomerInfo
	if !decodeJSON(w, r, &info) {
		return
	}
	st, taken := sess.Checkout.TrySubmit(r.Context(), info)
	code := http.StatusOK
	switch {
	case !taken:
		code = http.StatusConflict
	case st.Kind() == checkout.KindFailed:
		code = http.StatusUnprocessableEntity
	}
	writeJSON(w, code, checkout.ViewOf(st))
}
