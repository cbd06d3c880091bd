package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanillapodconfections/storefront/Backend/src/cart"
	"github.com/vanillapodconfections/storefront/Backend/src/catalog"
	"github.com/vanillapodconfections/storefront/Backend/src/checkout"
	"github.com/vanillapodconfections/storefront/Backend/src/order"
)

const testContactEmail = "hello@vanillapodconfections.ca"

type fakeOrders struct {
	mu       sync.Mutex
	payloads []order.Payload
	err      error
}

func (f *fakeOrders) Name() string { return "fake" }

func (f *fakeOrders) Submit(_ context.Context, p order.Payload) (order.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, p)
	if f.err != nil {
		return order.Receipt{}, f.err
	}
	return order.Receipt{OrderID: "1234"}, nil
}

func (f *fakeOrders) Lookup(_ context.Context, id string) (order.Report, error) {
	if id != "1234" {
		return order.Report{}, order.ErrNotFound
	}
	return order.Report{OrderID: "1234", Status: "pending", Total: "63.97", Currency: "CAD"}, nil
}

func (f *fakeOrders) submitted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

type harness struct {
	t      *testing.T
	url    string
	client *http.Client
	orders *fakeOrders
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	orders := &fakeOrders{}
	h := newHarnessWith(t, orders)
	h.orders = orders
	return h
}

// newHarnessWith serves the storefront against any order backend.
func newHarnessWith(t *testing.T, orders order.Backend) *harness {
	t.Helper()
	pricing := checkout.DefaultPricing()
	sessions, err := NewSessions(16, nil, func(_ string, c *cart.Store) *checkout.Submitter {
		return checkout.NewSubmitter(c, orders, checkout.WithPricing(pricing))
	}, zerolog.Nop())
	require.NoError(t, err)

	srv, err := NewServer(ServerConfig{
		Catalog:      catalog.NewService(catalog.MustFallback(), catalog.WithCacheTTL(0)),
		Orders:       orders,
		Sessions:     sessions,
		Pricing:      pricing,
		ContactEmail: testContactEmail,
		CORSOrigins:  []string{"*"},
		Log:          zerolog.Nop(),
	})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &harness{
		t:   t,
		url: ts.URL,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (h *harness) get(path string) (*http.Response, string) {
	h.t.Helper()
	resp, err := h.client.Get(h.url + path)
	require.NoError(h.t, err)
	return resp, readBody(h.t, resp)
}

func (h *harness) post(path string, form url.Values) *http.Response {
	h.t.Helper()
	resp, err := h.client.PostForm(h.url+path, form)
	require.NoError(h.t, err)
	readBody(h.t, resp)
	return resp
}

func (h *harness) do(method, path, body string) (*http.Response, string) {
	h.t.Helper()
	req, err := http.NewRequest(method, h.url+path, strings.NewReader(body))
	require.NoError(h.t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.client.Do(req)
	require.NoError(h.t, err)
	return resp, readBody(h.t, resp)
}

func (h *harness) apiCart() apiCartView {
	h.t.Helper()
	resp, body := h.get("/api/cart")
	require.Equal(h.t, http.StatusOK, resp.StatusCode)
	var v apiCartView
	require.NoError(h.t, json.Unmarshal([]byte(body), &v))
	return v
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func TestPages_Render(t *testing.T) {
	h := newHarness(t)
	for path, want := range map[string]string{
		"/":         "Welcome to VanillaPod",
		"/about":    "The Beginning",
		"/workshop": "Vanilla Cupcake Masterclass",
		"/contact":  "Wholesale Inquiry",
		"/products": "Vanilla Bean Truffles",
		"/cart":     "Your cart is empty.",
	} {
		resp, body := h.get(path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Contains(t, body, want, path)
	}
}

func TestPages_UnknownPathIs404(t *testing.T) {
	h := newHarness(t)
	resp, _ := h.get("/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionCookieIssuedOnce(t *testing.T) {
	h := newHarness(t)
	resp, _ := h.get("/cart")
	require.Len(t, resp.Cookies(), 1)
	c := resp.Cookies()[0]
	assert.Equal(t, sessionCookie, c.Name)
	assert.True(t, c.HttpOnly)

	resp, _ = h.get("/cart")
	assert.Empty(t, resp.Cookies(), "existing session keeps its cookie")
}

func TestProducts_FilterByCategory(t *testing.T) {
	h := newHarness(t)
	_, body := h.get("/products?category=cookies")
	assert.Contains(t, body, "Vanilla Cookies")
	assert.NotContains(t, body, "Vanilla Fudge")
}

func TestCart_AddMergesAndRedirects(t *testing.T) {
	h := newHarness(t)

	resp := h.post("/cart/add", url.Values{"id": {"1"}, "qty": {"2"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	loc, err := resp.Location()
	require.NoError(t, err)
	assert.Equal(t, "/cart", loc.Path)
	assert.Equal(t, "Vanilla Bean Truffles added to your cart.", loc.Query().Get("msg"))

	h.post("/cart/add", url.Values{"id": {"1"}, "qty": {"0"}})

	v := h.apiCart()
	require.Len(t, v.Items, 1)
	assert.Equal(t, 3, v.Items[0].Quantity)
	assert.Equal(t, "74.97", v.Totals.Subtotal)
	assert.Equal(t, 3, v.Count)
}

func TestCart_AddReturnsToLocalPathOnly(t *testing.T) {
	h := newHarness(t)
	resp := h.post("/cart/add", url.Values{"id": {"3"}, "return": {"/products?category=Cookies"}})
	loc, err := resp.Location()
	require.NoError(t, err)
	assert.Equal(t, "/products", loc.Path)
	assert.Equal(t, "Cookies", loc.Query().Get("category"))

	resp = h.post("/cart/add", url.Values{"id": {"3"}, "return": {"//evil.example"}})
	loc, err = resp.Location()
	require.NoError(t, err)
	assert.Equal(t, "/cart", loc.Path)
}

func TestCart_AddUnknownProduct(t *testing.T) {
	h := newHarness(t)
	resp := h.post("/cart/add", url.Values{"id": {"999"}})
	loc, err := resp.Location()
	require.NoError(t, err)
	assert.Equal(t, msgProductGone, loc.Query().Get("msg"))
	assert.Empty(t, h.apiCart().Items)
}

func TestCart_UpdateRemoveClear(t *testing.T) {
	h := newHarness(t)
	h.post("/cart/add", url.Values{"id": {"1"}})
	h.post("/cart/add", url.Values{"id": {"2"}})
	h.post("/cart/add", url.Values{"id": {"3"}})

	h.post("/cart/update", url.Values{"id": {"1"}, "qty": {"4"}})
	h.post("/cart/update", url.Values{"id": {"2"}, "qty": {"0"}})
	h.post("/cart/remove", url.Values{"id": {"missing"}})

	v := h.apiCart()
	require.Len(t, v.Items, 2)
	assert.Equal(t, "1", v.Items[0].ID)
	assert.Equal(t, 4, v.Items[0].Quantity)
	assert.Equal(t, "3", v.Items[1].ID)

	h.post("/cart/remove", url.Values{"id": {"3"}})
	assert.Len(t, h.apiCart().Items, 1)

	h.post("/cart/clear", nil)
	h.post("/cart/clear", nil)
	assert.Empty(t, h.apiCart().Items)
}

func TestCart_PageShowsTotalsAndFreeShippingHint(t *testing.T) {
	h := newHarness(t)
	h.post("/cart/add", url.Values{"id": {"3"}, "qty": {"2"}}) // 25.98

	_, body := h.get("/cart")
	assert.Contains(t, body, "$25.98")
	assert.Contains(t, body, "$9.99")
	assert.Contains(t, body, "Add $24.02 more for free shipping!")

	h.post("/cart/update", url.Values{"id": {"3"}, "qty": {"4"}}) // 51.96
	_, body = h.get("/cart")
	assert.Contains(t, body, "FREE")
	assert.NotContains(t, body, "more for free shipping")
}

func TestCheckout_SuccessClearsCartAndShowsOrder(t *testing.T) {
	h := newHarness(t)
	h.post("/cart/add", url.Values{"id": {"1"}, "qty": {"2"}})

	resp := h.post("/checkout", url.Values{"name": {"Ada Lovelace"}, "email": {"ada@example.com"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	_, body := h.get("/cart")
	assert.Contains(t, body, "Order Submitted!")
	assert.Contains(t, body, "#1234")
	assert.Contains(t, body, "Your cart is empty.")

	require.Equal(t, 1, h.orders.submitted())
	p := h.orders.payloads[0]
	assert.Equal(t, "63.9684", p.Totals.Total.String())

	// Another add starts a new order.
	h.post("/cart/add", url.Values{"id": {"2"}})
	assert.Equal(t, checkout.View{State: checkout.KindIdle}, h.apiCart().Checkout)
}

func TestCheckout_ValidationFailures(t *testing.T) {
	h := newHarness(t)

	h.post("/checkout", url.Values{"name": {"Ada"}, "email": {"ada@example.com"}})
	_, body := h.get("/cart")
	assert.Contains(t, body, checkout.MsgEmptyCart)

	h.post("/cart/add", url.Values{"id": {"1"}})
	h.post("/checkout", url.Values{"name": {"Ada"}})
	_, body = h.get("/cart")
	assert.Contains(t, body, checkout.MsgMissingCustomer)
	assert.Contains(t, body, `value="Ada"`, "entered name kept")
	assert.Zero(t, h.orders.submitted())
}

func TestCheckout_BackendFailureKeepsCart(t *testing.T) {
	h := newHarness(t)
	h.orders.err = &order.Error{Backend: "fake", StatusCode: 500, Message: "Invoice service unavailable"}
	h.post("/cart/add", url.Values{"id": {"1"}})

	h.post("/checkout", url.Values{"name": {"Ada"}, "email": {"ada@example.com"}})

	_, body := h.get("/cart")
	assert.Contains(t, body, "Invoice service unavailable")
	assert.Len(t, h.apiCart().Items, 1)
}

func TestCheckout_ResetReturnsToIdle(t *testing.T) {
	h := newHarness(t)
	h.post("/cart/add", url.Values{"id": {"1"}})
	h.post("/checkout", url.Values{"name": {"Ada"}, "email": {"ada@example.com"}})
	require.Equal(t, checkout.KindSucceeded, h.apiCart().Checkout.State)

	h.post("/checkout/reset", nil)
	assert.Equal(t, checkout.KindIdle, h.apiCart().Checkout.State)
}

func TestCheckout_ClientDisconnectStillCompletesOrder(t *testing.T) {
	var created atomic.Int32
	received := make(chan struct{})
	backendSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		created.Add(1)
		close(received)
		time.Sleep(300 * time.Millisecond)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"order_id":"99"}`)
	}))
	t.Cleanup(backendSrv.Close)

	h := newHarnessWith(t, order.New(order.Config{APIBase: backendSrv.URL}))
	h.post("/cart/add", url.Values{"id": {"1"}})

	ctx, cancel := context.WithCancel(context.Background())
	form := url.Values{"name": {"Ada"}, "email": {"ada@example.com"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url+"/checkout", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	errc := make(chan error, 1)
	go func() {
		resp, err := h.client.Do(req)
		if err == nil {
			resp.Body.Close()
		}
		errc <- err
	}()
	<-received
	cancel()
	assert.Error(t, <-errc)

	require.Eventually(t, func() bool {
		return h.apiCart().Checkout.State != checkout.KindProcessing
	}, 2*time.Second, 20*time.Millisecond)
	v := h.apiCart()
	assert.Equal(t, checkout.View{State: checkout.KindSucceeded, OrderID: "99"}, v.Checkout)
	assert.Empty(t, v.Items)
	assert.Equal(t, int32(1), created.Load())
}

func TestOrderStatus(t *testing.T) {
	h := newHarness(t)

	resp, body := h.get("/orders/1234")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var rep order.Report
	require.NoError(t, json.Unmarshal([]byte(body), &rep))
	assert.Equal(t, "pending", rep.Status)

	resp, _ = h.get("/orders/77")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestContact_RedirectsToMailto(t *testing.T) {
	h := newHarness(t)
	resp := h.post("/contact", url.Values{
		"name":    {"Ada"},
		"email":   {"ada@example.com"},
		"subject": {"custom-order"},
		"message": {"A cake for 20, please."},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	loc := resp.Header.Get("Location")
	assert.True(t, strings.HasPrefix(loc, "mailto:"+testContactEmail+"?subject="), loc)
	assert.Contains(t, loc, "subject=VanillaPod%20Confections%20-%20Custom%20Order")
	assert.Contains(t, loc, "A%20cake%20for%2020%2C%20please.")
}

func TestContact_MissingFields(t *testing.T) {
	h := newHarness(t)
	resp, err := h.client.PostForm(h.url+"/contact", url.Values{"name": {"Ada"}, "message": {"Hi"}})
	require.NoError(t, err)
	body := readBody(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, msgRequiredFields)
	assert.Contains(t, body, `value="Ada"`)
}

func TestWorkshop_BookingAddsCartLineAndDraftsEmail(t *testing.T) {
	h := newHarness(t)
	resp := h.post("/workshop/book", url.Values{
		"name":         {"Ada"},
		"email":        {"ada@example.com"},
		"workshop":     {"2"},
		"date":         {"March 18"},
		"participants": {"3"},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Location"), "mailto:"))

	v := h.apiCart()
	require.Len(t, v.Items, 1)
	it := v.Items[0]
	assert.True(t, strings.HasPrefix(it.ID, "workshop-2-"), it.ID)
	assert.Equal(t, "Chocolate Truffle Workshop - March 18", it.Name)
	assert.Equal(t, "285.00", it.UnitPrice)
	assert.Equal(t, 1, it.Quantity)
	assert.Equal(t, "WS2", it.SKU)
	assert.Equal(t, workshopCategory, it.Category)
}

func TestWorkshop_BookingValidation(t *testing.T) {
	h := newHarness(t)
	resp, err := h.client.PostForm(h.url+"/workshop/book", url.Values{"name": {"Ada"}, "email": {"ada@example.com"}, "workshop": {"42"}, "date": {"May 1"}})
	require.NoError(t, err)
	body := readBody(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, msgInvalidWorkshop)

	resp, err = h.client.PostForm(h.url+"/workshop/book", url.Values{"name": {"Ada"}, "email": {"ada@example.com"}, "workshop": {"2"}, "date": {"Christmas"}})
	require.NoError(t, err)
	body = readBody(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, body, msgInvalidDate)
	assert.Empty(t, h.apiCart().Items)
}

func TestAPI_CartLifecycle(t *testing.T) {
	h := newHarness(t)

	resp, body := h.do(http.MethodPost, "/api/cart/items", `{"id":"1","quantity":2}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)

	resp, _ = h.do(http.MethodPost, "/api/cart/items", `{"id":"4"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body = h.do(http.MethodPatch, "/api/cart/items/4", `{"quantity":3}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var v apiCartView
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	assert.Equal(t, 5, v.Count)
	assert.Equal(t, "148.95", v.Totals.Subtotal)
	assert.Equal(t, "0.00", v.Totals.Shipping)
	assert.Equal(t, "11.92", v.Totals.Tax)
	assert.Equal(t, "160.87", v.Totals.Total)
	assert.Equal(t, "0.00", v.Totals.UntilFreeShipping)

	resp, _ = h.do(http.MethodPatch, "/api/cart/items/4", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = h.do(http.MethodDelete, "/api/cart/items/missing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = h.do(http.MethodDelete, "/api/cart/items/1", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, h.apiCart().Items, 1)

	resp, _ = h.do(http.MethodDelete, "/api/cart", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, h.apiCart().Items)
}

func TestAPI_AddRejectsBadInput(t *testing.T) {
	h := newHarness(t)
	resp, _ := h.do(http.MethodPost, "/api/cart/items", `{"id":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := h.do(http.MethodPost, "/api/cart/items", `{"id":"999"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, msgProductGone)
}

func TestAPI_Checkout(t *testing.T) {
	h := newHarness(t)

	resp, body := h.do(http.MethodPost, "/api/checkout", `{"name":"Ada","email":"ada@example.com"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Contains(t, body, checkout.MsgEmptyCart)

	h.do(http.MethodPost, "/api/cart/items", `{"id":"1","quantity":2}`)
	resp, body = h.do(http.MethodPost, "/api/checkout", `{"name":"Ada","email":"ada@example.com","phone":"555-0100"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view checkout.View
	require.NoError(t, json.Unmarshal([]byte(body), &view))
	assert.Equal(t, checkout.View{State: checkout.KindSucceeded, OrderID: "1234"}, view)

	resp, body = h.get("/api/checkout")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `"order_id":"1234"`)
	assert.Empty(t, h.apiCart().Items)

	// Resubmitting before a reset is ignored, not a second order.
	resp, body = h.do(http.MethodPost, "/api/checkout", `{"name":"Ada","email":"ada@example.com"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, body, `"order_id":"1234"`)
	assert.Equal(t, 1, h.orders.submitted())
}

func TestAPI_Products(t *testing.T) {
	h := newHarness(t)
	resp, body := h.get("/api/products?category=Fudge")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var v apiProductsView
	require.NoError(t, json.Unmarshal([]byte(body), &v))
	require.Len(t, v.Products, 1)
	assert.Equal(t, "Vanilla Fudge", v.Products[0].Name)
	assert.Equal(t, catalog.CategoryAll, v.Categories[0])
}

func TestAPI_CORSPreflight(t *testing.T) {
	h := newHarness(t)
	req, err := http.NewRequest(http.MethodOptions, h.url+"/api/cart/items/1", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	resp, err := h.client.Do(req)
	require.NoError(t, err)
	readBody(t, resp)

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPatch)
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)
	resp, body := h.get("/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body)
}

func TestRedirectKeepsExistingQuery(t *testing.T) {
	rec := httptest.NewRecorder()
	redirect(rec, httptest.NewRequest(http.MethodPost, "/cart/add", nil), "/products?category=Baked Goods", "Added.")
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "Baked Goods", loc.Query().Get("category"))
	assert.Equal(t, "Added.", loc.Query().Get("msg"))
}

func TestLocalPath(t *testing.T) {
	assert.Equal(t, "/products", localPath("/products", "/cart"))
	assert.Equal(t, "/cart", localPath("https://evil.example", "/cart"))
	assert.Equal(t, "/cart", localPath("//evil.example", "/cart"))
	assert.Equal(t, "/cart", localPath("", "/cart"))
}
