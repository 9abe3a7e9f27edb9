// Package apperr defines the closed error taxonomy shared by the order,
// delivery and payment engines. Handlers translate these into uniform
// {status, message} JSON responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind tags an Error with its taxonomy variant.
type Kind int

const (
	// Validation covers missing or malformed input.
	Validation Kind = iota
	// Forbidden means the actor lacks permission for this transition or resource.
	Forbidden
	// NotFound means a referenced order, product or driver is absent.
	NotFound
	// InvalidTransition means the requested status change is not in the table.
	InvalidTransition
	// AlreadyAssigned means a concurrent actor won the assignment race.
	AlreadyAssigned
	// AlreadyProcessed means the payment has moved past pending.
	AlreadyProcessed
	// UpstreamFailure means the simulated payment provider reported failure.
	UpstreamFailure
	// Unexpected is anything else; internal details stay hidden from callers.
	Unexpected
)

// Error is the single error type the engines return.
type Error struct {
	Kind    Kind
	Message string
	// Fields holds a per-field breakdown for validation failures.
	Fields map[string]string
	// Err is the wrapped cause, logged but never sent to the caller.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus maps the taxonomy onto response codes.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case Unexpected:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// New builds a taxonomy error with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to an Unexpected error.
func Wrap(err error, message string) *Error {
	return &Error{Kind: Unexpected, Message: message, Err: err}
}

// As extracts an *Error from an error chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err is a taxonomy error of the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}
