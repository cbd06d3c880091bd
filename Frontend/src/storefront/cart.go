package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vanillapodconfections/storefront/Backend/src/cart"
	"github.com/vanillapodconfections/storefront/Backend/src/catalog"
	"github.com/vanillapodconfections/storefront/Backend/src/checkout"
	"github.com/vanillapodconfections/storefront/Backend/src/order"
)

const (
	msgProductGone = "That product is no longer available."
	msgBadQuantity = "Please enter a valid quantity."
)

func toCartProduct(p catalog.Product) cart.Product {
	return cart.Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		SKU:         p.SKU,
		Category:    p.Category,
		ImageURL:    p.ImageURL,
	}
}

// addToCart starts a new order when the previous one went through.
func (s *Server) addToCart(sess *Session, p cart.Product, qty int) {
	if _, ok := sess.Checkout.Status().(checkout.Succeeded); ok {
		sess.Checkout.Reset()
	}
	sess.Cart.Add(p, qty)
}

// lookupProduct returns the product for id, or a visitor-facing message
// when it cannot be sold.
func (s *Server) lookupProduct(r *http.Request, id string) (catalog.Product, string, error) {
	ctx, cancel := s.upstream(r)
	defer cancel()
	p, err := s.catalog.ByID(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		return catalog.Product{}, msgProductGone, nil
	}
	if err != nil {
		return catalog.Product{}, "", err
	}
	if !p.Available {
		return catalog.Product{}, p.Name + " is currently unavailable.", nil
	}
	return p, "", nil
}

type cartData struct {
	page
	Items     []cart.LineItem
	Totals    checkout.Totals
	UntilFree decimal.Decimal
	FreeOver  decimal.Decimal
	Checkout  checkout.View
	Customer  checkout.CustomerInfo
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.fail(w, err, "cart: session", http.StatusInternalServerError)
		return
	}
	totals := sess.Checkout.Totals()
	s.render(w, http.StatusOK, "cart", cartData{
		page:      s.newPage(r, sess, "Your Cart", "cart"),
		Items:     sess.Cart.Items(),
		Totals:    totals,
		UntilFree: s.pricing.UntilFreeShipping(totals.Subtotal),
		FreeOver:  s.pricing.FreeShippingOver,
		Checkout:  checkout.ViewOf(sess.Checkout.Status()),
		Customer:  sess.Checkout.Customer(),
	})
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess, err := s.session(w, r)
	if err != nil {
		s.fail(w, err, "cart add: session", http.StatusInternalServerError)
		return
	}
	back := localPath(r.Form.Get("return"), "/cart")

	p, msg, err := s.lookupProduct(r, r.Form.Get("id"))
	if err != nil {
		s.fail(w, err, "cart add: product", http.StatusBadGateway)
		return
	}
	if msg != "" {
		redirect(w, r, back, msg)
		return
	}
	qty, _ := strconv.Atoi(r.Form.Get("qty"))
	s.addToCart(sess, toCartProduct(p), qty)
	s.log.Debug().Str("session", sess.ID).Str("product", p.ID).Int("qty", qty).Msg("cart: add")
	redirect(w, r, back, p.Name+" added to your cart.")
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess, err := s.session(w, r)
	if err != nil {
		s.fail(w, err, "cart update: session", http.StatusInternalServerError)
		return
	}
	qty, err := strconv.Atoi(strings.TrimSpace(r.Form.Get("qty")))
	if err != nil {
		redirect(w, r, "/cart", msgBadQuantity)
		return
	}
	sess.Cart.UpdateQuantity(r.Form.Get("id"), qty)
	redirect(w, r, "/cart", "")
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess, err := s.session(w, r)
	if err != nil {
		s.fail(w, err, "cart remove: session", http.StatusInternalServerError)
		return
	}
	if sess.Cart.Remove(r.Form.Get("id")) {
		redirect(w, r, "/cart", "Item removed.")
		return
	}
	redirect(w, r, "/cart", "")
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.fail(w, err, "cart clear: session", http.StatusInternalServerError)
		return
	}
	sess.Cart.Clear()
	redirect(w, r, "/cart", "Cart cleared.")
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess, err := s.session(w, r)
	if err != nil {
		s.fail(w, err, "checkout: session", http.StatusInternalServerError)
		return
	}
	st := sess.Checkout.Submit(r.Context(), checkout.CustomerInfo{
		Name:  r.Form.Get("name"),
		Email: r.Form.Get("email"),
		Phone: r.Form.Get("phone"),
		Notes: r.Form.Get("notes"),
	})
	s.log.Info().Str("session", sess.ID).Str("status", string(st.Kind())).Msg("checkout")
	// The cart page renders the outcome from the session's status.
	redirect(w, r, "/cart", "")
}

func (s *Server) handleCheckoutReset(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.fail(w, err, "checkout reset: session", http.StatusInternalServerError)
		return
	}
	sess.Checkout.Reset()
	redirect(w, r, "/cart", "")
}

func (s *Server) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	ctx, cancel := s.upstream(r)
	defer cancel()
	rep, err := s.orders.Lookup(ctx, id)
	switch {
	case errors.Is(err, order.ErrNotFound):
		writeJSON(w, http.StatusNotFound, apiError{Error: "order not found"})
		return
	case err != nil:
		s.log.Error().Err(err).Str("order", id).Msg("order status")
		writeJSON(w, http.StatusBadGateway, apiError{Error: "order lookup failed"})
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// localPath returns p when it is a path on this site, else def.
func localPath(p, def string) string {
	if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") || strings.HasPrefix(p, "/\\") {
		return def
	}
	return p
}

type apiError struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
