package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure so the HTTP layer never has to parse messages.
type Kind string

const (
	KindConfiguration     Kind = "configuration"
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindUpstream          Kind = "upstream"
	KindMalformedResponse Kind = "malformed_response"
	KindInvalidScore      Kind = "invalid_score"
	KindNetwork           Kind = "network"
	KindPersistence       Kind = "persistence"
)

// Error is the structured error carried from the point of failure up to the handlers.
type Error struct {
	Kind Kind
	// Status is the HTTP status the API surface should answer with.
	Status int
	// UpstreamStatus is the status code returned by an external service, if any.
	UpstreamStatus int
	Message        string
	Err            error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// defaultStatus maps a kind to the status used when none was set explicitly.
func defaultStatus(k Kind) int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindNetwork, KindUpstream, KindMalformedResponse, KindInvalidScore:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// New creates an error of the given kind with its default status.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Status: defaultStatus(kind), Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an error of the given kind around a cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Status: defaultStatus(kind), Message: fmt.Sprintf(format, args...), Err: err}
}

// WithStatus overrides the HTTP status.
func (e *Error) WithStatus(status int) *Error {
	e.Status = status
	return e
}

// Upstream builds an error for a non-success response of an external service.
// The status the client sees is derived from the upstream one.
func Upstream(upstreamStatus int, format string, args ...any) *Error {
	e := New(KindUpstream, format, args...)
	e.UpstreamStatus = upstreamStatus
	e.Status = upstreamToHTTP(upstreamStatus)
	return e
}

func upstreamToHTTP(code int) int {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return http.StatusForbidden
	case code == http.StatusTooManyRequests:
		return http.StatusTooManyRequests
	case code >= 400 && code < 500:
		return http.StatusBadRequest
	default:
		return http.StatusServiceUnavailable
	}
}

// KindOf returns the kind of err, or the empty kind for unstructured errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus returns the status for err; unstructured errors are 500.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}
