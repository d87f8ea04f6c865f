// Package errs defines the error taxonomy shared by the chat service layers.
// Services return these typed values; the HTTP and WebSocket boundaries map
// them to status codes or error events.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError marks missing or malformed input. Maps to 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validation(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError marks an unknown receiver, conversation or message. Also used
// when a record exists but the caller is not a participant: existence is not
// confirmed to non-participants. Maps to 404.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

func NotFound(format string, args ...any) error {
	return &NotFoundError{Msg: fmt.Sprintf(format, args...)}
}

// ForbiddenError marks an action the caller may not perform on a record it
// can see. Maps to 403.
type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string { return e.Msg }

func Forbidden(format string, args ...any) error {
	return &ForbiddenError{Msg: fmt.Sprintf(format, args...)}
}

// StoreError wraps a persistence failure. Maps to 500 and is never retried
// automatically.
type StoreError struct {
	Err error
}

func (e *StoreError) Error() string { return "store: " + e.Err.Error() }
func (e *StoreError) Unwrap() error { return e.Err }

func Store(err error) error {
	return &StoreError{Err: err}
}

// HTTPStatus maps a service error to its response status code.
func HTTPStatus(err error) int {
	var (
		v *ValidationError
		n *NotFoundError
		f *ForbiddenError
	)
	switch {
	case errors.As(err, &v):
		return http.StatusBadRequest
	case errors.As(err, &n):
		return http.StatusNotFound
	case errors.As(err, &f):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}
