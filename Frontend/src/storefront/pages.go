package main

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/vanillapodconfections/storefront/Backend/src/catalog"
)

type homeData struct {
	page
	Featured []catalog.Product
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.fail(w, err, "home: session", http.StatusInternalServerError)
		return
	}
	ctx, cancel := s.upstream(r)
	defer cancel()
	featured, err := s.catalog.Featured(ctx)
	if err != nil {
		// The home page still renders without products.
		s.log.Warn().Err(err).Msg("home: featured products")
	}
	s.render(w, http.StatusOK, "home", homeData{
		page:     s.newPage(r, sess, "Welcome to VanillaPod", "home"),
		Featured: featured,
	})
}

func (s *Server) handleAbout(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.fail(w, err, "about: session", http.StatusInternalServerError)
		return
	}
	s.render(w, http.StatusOK, "about", s.newPage(r, sess, "Our Story", "about"))
}

type productsData struct {
	page
	Products   []catalog.Product
	Categories []string
	Category   string
}

func (s *Server) handleProducts(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.fail(w, err, "products: session", http.StatusInternalServerError)
		return
	}
	ctx, cancel := s.upstream(r)
	defer cancel()

	category := strings.TrimSpace(r.URL.Query().Get("category"))
	if category == "" {
		category = catalog.CategoryAll
	}
	products, err := s.catalog.ByCategory(ctx, category)
	if err != nil {
		s.fail(w, err, "products: list", http.StatusBadGateway)
		return
	}
	categories, err := s.catalog.Categories(ctx)
	if err != nil {
		s.fail(w, err, "products: categories", http.StatusBadGateway)
		return
	}
	s.render(w, http.StatusOK, "products", productsData{
		page:       s.newPage(r, sess, "Our Products", "products"),
		Products:   products,
		Categories: categories,
		Category:   category,
	})
}

type workshopData struct {
	page
	Workshops []Workshop
	Form      Booking
	Error     string
}

func (s *Server) handleWorkshop(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.fail(w, err, "workshop: session", http.StatusInternalServerError)
		return
	}
	s.render(w, http.StatusOK, "workshop", workshopData{
		page:      s.newPage(r, sess, "Workshops", "workshop"),
		Workshops: s.workshops,
		Form:      Booking{WorkshopID: r.URL.Query().Get("workshop"), Participants: 1},
	})
}

// handleWorkshopBook adds the booking to the cart and hands the visitor a
// booking request email draft.
func (s *Server) handleWorkshopBook(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sess, err := s.session(w, r)
	if err != nil {
		s.fail(w, err, "workshop: session", http.StatusInternalServerError)
		return
	}
	n, _ := strconv.Atoi(r.Form.Get("participants"))
	b := Booking{
		Name:         r.Form.Get("name"),
		Email:        r.Form.Get("email"),
		Phone:        strings.TrimSpace(r.Form.Get("phone")),
		WorkshopID:   r.Form.Get("workshop"),
		Date:         r.Form.Get("date"),
		Participants: n,
		Message:      strings.TrimSpace(r.Form.Get("message")),
	}
	ws, msg := b.check(s.workshops)
	if msg != "" {
		s.render(w, http.StatusBadRequest, "workshop", workshopData{
			page:      s.newPage(r, sess, "Workshops", "workshop"),
			Workshops: s.workshops,
			Form:      b,
			Error:     msg,
		})
		return
	}

	s.addToCart(sess, b.cartProduct(ws, uuid.NewString()[:8]), 1)
	s.log.Info().Str("session", sess.ID).Int("workshop", ws.ID).Int("participants", b.Participants).Msg("workshop: booked")

	subject, body := b.email(ws)
	http.Redirect(w, r, mailtoLink(s.contactEmail, subject, body), http.StatusSeeOther)
}

type subjectOption struct {
	Value string
	Label string
}

type contactData struct {
	page
	Form     ContactForm
	Subjects []subjectOption
	Email    string
	Error    string
}

func (s *Server) contactPage(r *http.Request, sess *Session, form ContactForm, errMsg string) contactData {
	opts := make([]subjectOption, 0, len(contactSubjectOrder))
	for _, v := range contactSubjectOrder {
		opts = append(opts, subjectOption{Value: v, Label: contactSubjects[v]})
	}
	return contactData{
		page:     s.newPage(r, sess, "Contact Us", "contact"),
		Form:     form,
		Subjects: opts,
		Email:    s.contactEmail,
		Error:    errMsg,
	}
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.fail(w, err, "contact: session", http.StatusInternalServerError)
		return
	}
	s.render(w, http.StatusOK, "contact", s.contactPage(r, sess, ContactForm{Subject: r.URL.Query().Get("subject")}, ""))
}

// handleContactSubmit redirects to a mailto draft; no mail is sent from
// the server.
func (s *Server) handleContactSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	form := ContactForm{
		Name:    r.Form.Get("name"),
		Email:   r.Form.Get("email"),
		Subject: r.Form.Get("subject"),
		Message: r.Form.Get("message"),
	}
	if !form.complete() {
		sess, err := s.session(w, r)
		if err != nil {
			s.fail(w, err, "contact: session", http.StatusInternalServerError)
			return
		}
		s.render(w, http.StatusBadRequest, "contact", s.contactPage(r, sess, form, msgRequiredFields))
		return
	}
	subject, body := form.email()
	http.Redirect(w, r, mailtoLink(s.contactEmail, subject, body), http.StatusSeeOther)
}
