package main

import (
	"net/url"
	"strings"
)

const shopName = "VanillaPod Confections"

// contactSubjects maps the form's subject values to their labels.
var contactSubjects = map[string]string{
	"general":      "General Inquiry",
	"custom-order": "Custom Order",
	"wholesale":    "Wholesale Inquiry",
	"feedback":     "Feedback",
	"other":        "Other",
}

var contactSubjectOrder = []string{"general", "custom-order", "wholesale", "feedback", "other"}

type ContactForm struct {
	Name    string
	Email   string
	Subject string
	Message string
}

func (f *ContactForm) complete() bool {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Subject = strings.TrimSpace(f.Subject)
	f.Message = strings.TrimSpace(f.Message)
	return f.Name != "" && f.Email != "" && f.Subject != "" && f.Message != ""
}

func subjectLabel(v string) string {
	if l, ok := contactSubjects[v]; ok {
		return l
	}
	return v
}

func (f ContactForm) email() (subject, body string) {
	label := subjectLabel(f.Subject)
	subject = shopName + " - " + label
	body = "Name: " + f.Name + "\nEmail: " + f.Email + "\nSubject: " + label + "\n\nMessage:\n" + f.Message
	return subject, body
}

// mailtoLink builds a mailto URL with percent-encoded subject and body.
func mailtoLink(to, subject, body string) string {
	return "mailto:" + to + "?subject=" + escapeComponent(subject) + "&body=" + escapeComponent(body)
}

// escapeComponent percent-encodes s for a mailto header value. Spaces
// become %20; mail clients do not decode '+'.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
