// Package apperrors defines the error kinds shared by the stores, services and handlers,
// and how each kind maps onto an HTTP status.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrDuplicateUser       = errors.New("user already exists")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrInvalidTransition   = errors.New("invalid status transition")
)

// kindError attaches a human readable message to one of the sentinel kinds.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

func newKind(kind error, format string, args ...any) error {
	return &kindError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) error {
	return newKind(ErrValidation, format, args...)
}

func NotFound(format string, args ...any) error {
	return newKind(ErrNotFound, format, args...)
}

func Forbidden(format string, args ...any) error {
	return newKind(ErrForbidden, format, args...)
}

func Unauthorized(format string, args ...any) error {
	return newKind(ErrUnauthorized, format, args...)
}

// Upstream wraps a driver or network error so callers can tell an unreachable
// store apart from a bad request.
func Upstream(err error) error {
	return &kindError{kind: ErrUpstreamUnavailable, msg: "upstream unavailable: " + err.Error()}
}

// HTTPStatus returns the status code a handler should answer with for err.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrDuplicateUser):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Code names the error kind for the "code" field of error responses.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	case errors.Is(err, ErrDuplicateUser):
		return "DuplicateUser"
	case errors.Is(err, ErrInvalidCredentials):
		return "InvalidCredentials"
	case errors.Is(err, ErrUnauthorized):
		return "Unauthorized"
	case errors.Is(err, ErrForbidden):
		return "Forbidden"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrInvalidTransition):
		return "InvalidTransition"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "UpstreamUnavailable"
	default:
		return "InternalError"
	}
}

// FromCode is the inverse of Code, used by the API client to turn an error
// response back into a typed error.
func FromCode(code, msg string) error {
	var kind error
	switch code {
	case "ValidationError":
		kind = ErrValidation
	case "DuplicateUser":
		kind = ErrDuplicateUser
	case "InvalidCredentials":
		kind = ErrInvalidCredentials
	case "Unauthorized":
		kind = ErrUnauthorized
	case "Forbidden":
		kind = ErrForbidden
	case "NotFound":
		kind = ErrNotFound
	case "InvalidTransition":
		kind = ErrInvalidTransition
	case "UpstreamUnavailable":
		kind = ErrUpstreamUnavailable
	default:
		return errors.New(msg)
	}
	return &kindError{kind: kind, msg: msg}
}

// Message is the text safe to show a client. Server-side failures are replaced
// by a generic message; the original error belongs in the log.
func Message(err error) string {
	switch status := HTTPStatus(err); {
	case status == http.StatusServiceUnavailable:
		return "service temporarily unavailable, try again later"
	case status >= 500:
		return "internal server error"
	default:
		return err.Error()
	}
}
