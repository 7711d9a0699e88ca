// Package apperr declares the error kinds shared by the domain services and
// their mapping onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrConflict     = errors.New("conflict")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation failed")
	ErrUnavailable  = errors.New("service unavailable")
)

// NotFound returns an ErrNotFound carrying a resource-specific message, e.g.
// NotFound("Patient") reads "Patient not found".
func NotFound(what string) error {
	return &Error{Kind: ErrNotFound, Message: what + " not found"}
}

// New wraps kind with a client-facing message.
func New(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Error is a kinded error whose message is safe to return to clients.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// Status maps an error onto an HTTP status code. Unknown errors map to 500.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HTTP converts a service error into an echo.HTTPError. Kinded errors keep
// their message; unclassified errors are reported as a generic 500 so that
// driver details do not leak.
func HTTP(err error) *echo.HTTPError {
	status := Status(err)
	if status == http.StatusInternalServerError {
		return echo.NewHTTPError(status, "internal server error").SetInternal(err)
	}
	var ae *Error
	if errors.As(err, &ae) {
		return echo.NewHTTPError(status, ae.Message)
	}
	if status == http.StatusServiceUnavailable {
		return echo.NewHTTPError(status, "AI service unavailable")
	}
	return echo.NewHTTPError(status, err.Error())
}
