package main

import (
	"context"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vanillapodconfections/storefront/Backend/src/catalog"
	"github.com/vanillapodconfections/storefront/Backend/src/checkout"
	"github.com/vanillapodconfections/storefront/Backend/src/money"
	"github.com/vanillapodconfections/storefront/Backend/src/order"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

const (
	sessionCookie   = "vpc_session"
	sessionMaxAge   = 30 * 24 * 60 * 60
	upstreamTimeout = 10 * time.Second
)

var pageNames = []string{"home", "about", "workshop", "contact", "products", "cart"}

type Server struct {
	log      zerolog.Logger
	catalog  *catalog.Service
	orders   order.Backend
	sessions *Sessions
	pricing  checkout.Pricing

	contactEmail string
	cookieSecure bool
	corsOrigins  []string

	pages     map[string]*template.Template
	workshops []Workshop
}

type ServerConfig struct {
	Catalog      *catalog.Service
	Orders       order.Backend
	Sessions     *Sessions
	Pricing      checkout.Pricing
	ContactEmail string
	CookieSecure bool
	CORSOrigins  []string
	Log          zerolog.Logger
}

func NewServer(cfg ServerConfig) (*Server, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	workshops, err := loadWorkshops()
	if err != nil {
		return nil, err
	}
	return &Server{
		log:          cfg.Log,
		catalog:      cfg.Catalog,
		orders:       cfg.Orders,
		sessions:     cfg.Sessions,
		pricing:      cfg.Pricing,
		contactEmail: cfg.ContactEmail,
		cookieSecure: cfg.CookieSecure,
		corsOrigins:  cfg.CORSOrigins,
		pages:        pages,
		workshops:    workshops,
	}, nil
}

func parsePages() (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"year":     func() int { return time.Now().Year() },
		"money":    money.Format,
		"price":    func(p money.Price) string { return money.Format(p.Decimal) },
		"positive": func(d decimal.Decimal) bool { return d.IsPositive() },
	}
	layout, err := template.New("layout.html").Funcs(funcs).ParseFS(templatesFS, "templates/layout.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tpl, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := tpl.ParseFS(templatesFS, "templates/"+name+".html"); err != nil {
			return nil, err
		}
		pages[name] = tpl
	}
	return pages, nil
}

// Handler returns the storefront's routes wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /static/", http.FileServer(http.FS(staticFS)))
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /about", s.handleAbout)
	mux.HandleFunc("GET /workshop", s.handleWorkshop)
	mux.HandleFunc("POST /workshop/book", s.handleWorkshopBook)
	mux.HandleFunc("GET /contact", s.handleContact)
	mux.HandleFunc("POST /contact", s.handleContactSubmit)
	mux.HandleFunc("GET /products", s.handleProducts)

	mux.HandleFunc("GET /cart", s.handleCart)
	mux.HandleFunc("POST /cart/add", s.handleAdd)
	mux.HandleFunc("POST /cart/update", s.handleUpdate)
	mux.HandleFunc("POST /cart/remove", s.handleRemove)
	mux.HandleFunc("POST /cart/clear", s.handleClear)
	mux.HandleFunc("POST /checkout", s.handleCheckout)
	mux.HandleFunc("POST /checkout/reset", s.handleCheckoutReset)
	mux.HandleFunc("GET /orders/{id}", s.handleOrderStatus)

	mux.Handle("/api/", s.apiHandler())
	return s.withLog(mux)
}

func (s *Server) apiHandler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/products", s.apiProducts)
	api.HandleFunc("GET /api/cart", s.apiCart)
	api.HandleFunc("DELETE /api/cart", s.apiClearCart)
	api.HandleFunc("POST /api/cart/items", s.apiAddItem)
	api.HandleFunc("PATCH /api/cart/items/{id}", s.apiUpdateItem)
	api.HandleFunc("DELETE /api/cart/items/{id}", s.apiRemoveItem)
	api.HandleFunc("POST /api/checkout", s.apiCheckout)
	api.HandleFunc("GET /api/checkout", s.apiCheckoutStatus)

	c := cors.New(cors.Options{
		AllowedOrigins: s.corsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(api)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) withLog(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h.ServeHTTP(rec, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("http")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// session resolves the caller's session from the cookie, issuing a new
// cookie when the session id changed.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, error) {
	var id string
	if c, err := r.Cookie(sessionCookie); err == nil {
		id = c.Value
	}
	sess, err := s.sessions.Open(r.Context(), id)
	if err != nil {
		return nil, err
	}
	if sess.ID != id {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    sess.ID,
			Path:     "/",
			MaxAge:   sessionMaxAge,
			HttpOnly: true,
			Secure:   s.cookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess, nil
}

func (s *Server) upstream(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), upstreamTimeout)
}

// page is the data every template sees.
type page struct {
	Title     string
	Active    string
	CartCount int
	Msg       string
}

func (s *Server) newPage(r *http.Request, sess *Session, title, active string) page {
	p := page{Title: title, Active: active, Msg: r.URL.Query().Get("msg")}
	if sess != nil {
		p.CartCount = sess.Cart.ItemCount()
	}
	return p
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	tpl, ok := s.pages[name]
	if !ok {
		s.log.Error().Str("page", name).Msg("render: unknown page")
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tpl.ExecuteTemplate(w, "layout.html", data); err != nil {
		s.log.Error().Err(err).Str("page", name).Msg("render")
	}
}

// redirect sends a PRG redirect carrying an optional flash message.
func redirect(w http.ResponseWriter, r *http.Request, path, msg string) {
	if msg != "" {
		if u, err := url.Parse(path); err == nil {
			q := u.Query()
			q.Set("msg", msg)
			u.RawQuery = q.Encode()
			path = u.String()
		}
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

func (s *Server) fail(w http.ResponseWriter, err error, msg string, code int) {
	s.log.Error().Err(err).Msg(msg)
	http.Error(w, http.StatusText(code), code)
}
