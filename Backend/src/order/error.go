package order

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("order: not found")

// Error is a failed call to an order backend. Message is the reason the
// backend reported, empty when it gave none (transport failure, malformed
// body, bare error page).
type Error struct {
	Backend    string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d: %s", e.Backend, e.StatusCode, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Backend, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: status %d: %v", e.Backend, e.StatusCode, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Backend, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Reason returns the backend-reported message carried by err, if any.
func Reason(err error) string {
	var oe *Error
	if errors.As(err, &oe) {
		return oe.Message
	}
	return ""
}
