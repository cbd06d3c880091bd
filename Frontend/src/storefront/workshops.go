package main

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vanillapodconfections/storefront/Backend/src/cart"
	"github.com/vanillapodconfections/storefront/Backend/src/money"
)

//go:embed workshops.yaml
var workshopsYAML []byte

const (
	msgRequiredFields  = "Please fill in all required fields."
	msgInvalidWorkshop = "Please select a valid workshop."
	msgInvalidDate     = "Please pick one of the listed dates for this workshop."
	workshopCategory   = "Workshop"
)

type Workshop struct {
	ID          int         `yaml:"id"`
	Title       string      `yaml:"title"`
	Duration    string      `yaml:"duration"`
	Price       money.Price `yaml:"price"`
	Capacity    int         `yaml:"capacity"`
	Level       string      `yaml:"level"`
	Emoji       string      `yaml:"emoji"`
	Description string      `yaml:"description"`
	Includes    []string    `yaml:"includes"`
	Dates       []string    `yaml:"dates"`
}

func loadWorkshops() ([]Workshop, error) {
	var ws []Workshop
	if err := yaml.Unmarshal(workshopsYAML, &ws); err != nil {
		return nil, fmt.Errorf("workshops: %w", err)
	}
	return ws, nil
}

// Booking is a workshop booking request as entered on the form.
type Booking struct {
	Name         string
	Email        string
	Phone        string
	WorkshopID   string
	Date         string
	Participants int
	Message      string
}

// check returns the booked workshop, or a message for the visitor when the
// request is incomplete. Participants is clamped to the workshop capacity.
func (b *Booking) check(ws []Workshop) (Workshop, string) {
	b.Name = strings.TrimSpace(b.Name)
	b.Email = strings.TrimSpace(b.Email)
	b.Date = strings.TrimSpace(b.Date)
	if b.Name == "" || b.Email == "" || b.WorkshopID == "" || b.Date == "" {
		return Workshop{}, msgRequiredFields
	}
	id, err := strconv.Atoi(b.WorkshopID)
	if err != nil {
		return Workshop{}, msgInvalidWorkshop
	}
	for _, w := range ws {
		if w.ID != id {
			continue
		}
		date, ok := w.scheduled(b.Date)
		if !ok {
			return Workshop{}, msgInvalidDate
		}
		b.Date = date
		if b.Participants < 1 {
			b.Participants = 1
		}
		if w.Capacity > 0 && b.Participants > w.Capacity {
			b.Participants = w.Capacity
		}
		return w, ""
	}
	return Workshop{}, msgInvalidWorkshop
}

// scheduled finds date among the workshop's dates, ignoring case, and
// returns it as listed.
func (w Workshop) scheduled(date string) (string, bool) {
	for _, d := range w.Dates {
		if strings.EqualFold(d, date) {
			return d, true
		}
	}
	return "", false
}

func (w Workshop) total(participants int) decimal.Decimal {
	return money.Line(w.Price.Decimal, participants)
}

// cartProduct is the cart line for a booking. ref keeps separate bookings
// of the same workshop on separate lines.
func (b Booking) cartProduct(w Workshop, ref string) cart.Product {
	return cart.Product{
		ID:          fmt.Sprintf("workshop-%d-%s", w.ID, ref),
		Name:        w.Title + " - " + b.Date,
		Description: fmt.Sprintf("Workshop booking for %s on %s", participants(b.Participants), b.Date),
		Price:       money.NewPrice(w.total(b.Participants)),
		SKU:         fmt.Sprintf("WS%d", w.ID),
		Category:    workshopCategory,
	}
}

func (b Booking) email(w Workshop) (subject, body string) {
	subject = "Workshop Booking Request - " + w.Title
	var sb strings.Builder
	fmt.Fprintf(&sb, "Workshop Booking Request\n\n")
	fmt.Fprintf(&sb, "Name: %s\nEmail: %s\nPhone: %s\n", b.Name, b.Email, b.Phone)
	fmt.Fprintf(&sb, "Workshop: %s\nPreferred Date: %s\n", w.Title, b.Date)
	fmt.Fprintf(&sb, "Number of Participants: %d\n", b.Participants)
	fmt.Fprintf(&sb, "Total Price: %s x %d = %s\n\n", money.Format(w.Price.Decimal), b.Participants, money.Format(w.total(b.Participants)))
	fmt.Fprintf(&sb, "Additional Message:\n%s\n\n", b.Message)
	fmt.Fprintf(&sb, "Workshop Details:\n- Duration: %s\n- Price per person: %s\n- Level: %s\n\n", w.Duration, money.Format(w.Price.Decimal), w.Level)
	sb.WriteString("Note: This workshop has been added to your cart for easy checkout.")
	return subject, sb.String()
}

func participants(n int) string {
	if n == 1 {
		return "1 participant"
	}
	return fmt.Sprintf("%d participants", n)
}
