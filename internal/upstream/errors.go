package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Category is the normalized failure taxonomy for backend calls.
type Category string

const (
	// CategoryEligibility: the backend refused this voter for this ballot
	CategoryEligibility Category = "eligibility"

	// CategoryUnauthorized: the credential was rejected
	CategoryUnauthorized Category = "unauthorized"

	CategoryNotFound Category = "not_found"
	CategoryTimeout  Category = "timeout"

	// CategoryOutage: the backend is unreachable or answered 5xx
	CategoryOutage Category = "outage"

	// CategoryBadData: the backend answered with an unusable body
	CategoryBadData Category = "bad_data"

	CategoryInternal Category = "internal"
)

// Error wraps a backend failure with its normalized category.
type Error struct {
	Category   Category
	Service    string
	Status     int
	Message    string
	Underlying error
	Retryable  bool
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Status != 0 {
		msg = http.StatusText(e.Status)
	}
	if e.Underlying != nil {
		return fmt.Sprintf("upstream %s [%s]: %s: %v", e.Service, e.Category, msg, e.Underlying)
	}
	return fmt.Sprintf("upstream %s [%s]: %s", e.Service, e.Category, msg)
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// NewError creates a normalized upstream error.
func NewError(category Category, service, message string, underlying error) *Error {
	return &Error{
		Category:   category,
		Service:    service,
		Message:    message,
		Underlying: underlying,
		Retryable:  category == CategoryTimeout || category == CategoryOutage,
	}
}

// FromStatus classifies a non-2xx response. message is the server's own
// text and is kept verbatim; it stays empty when the server sent none.
func FromStatus(service string, status int, message string) *Error {
	var cat Category
	switch {
	case status == http.StatusForbidden:
		cat = CategoryEligibility
	case status == http.StatusUnauthorized:
		cat = CategoryUnauthorized
	case status == http.StatusNotFound:
		cat = CategoryNotFound
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		cat = CategoryTimeout
	case status >= 500:
		cat = CategoryOutage
	default:
		cat = CategoryBadData
	}
	e := NewError(cat, service, message, nil)
	e.Status = status
	return e
}

// FromTransport classifies an error returned before any response arrived.
func FromTransport(service string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(CategoryTimeout, service, "request timed out", err)
	}
	return NewError(CategoryOutage, service, "request failed", err)
}

// GetCategory extracts the category from err, or CategoryInternal.
func GetCategory(err error) Category {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Category
	}
	return CategoryInternal
}

// IsAuthorizationRejection reports whether err is an eligibility or
// credential refusal. Retrying with another transport cannot fix these.
func IsAuthorizationRejection(err error) bool {
	switch GetCategory(err) {
	case CategoryEligibility, CategoryUnauthorized:
		return true
	}
	return false
}

// IsRetryable reports whether err is worth retrying.
func IsRetryable(err error) bool {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Retryable
	}
	return false
}

// Message returns the server-supplied message carried by err, if any.
// Status is the HTTP status behind err, or 0 when no response arrived.
func Status(err error) int {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Status
	}
	return 0
}

func Message(err error) string {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Message
	}
	return ""
}
