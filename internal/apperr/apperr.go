// Package apperr defines the error taxonomy shared by every operation.
// Handlers and the projection engine return these; the HTTP boundary maps
// kinds to status codes without leaking upstream details.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an operation failure.
type Kind int

const (
	// KindUnauthenticated means no valid session accompanied the request.
	KindUnauthenticated Kind = iota + 1
	// KindForbidden means the session lacks the required permission.
	KindForbidden
	// KindInvalidInput means a required field was missing or malformed.
	KindInvalidInput
	// KindNotFound means the referenced bucket or object does not exist.
	KindNotFound
	// KindInvalidState means the OIDC callback state did not match.
	KindInvalidState
	// KindUpstream means the object store or identity provider call failed.
	KindUpstream
)

// HTTPStatus returns the status code a kind maps to at the request boundary.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindInvalidInput, KindInvalidState:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindInvalidInput:
		return "invalid input"
	case KindNotFound:
		return "not found"
	case KindInvalidState:
		return "invalid state"
	case KindUpstream:
		return "upstream failure"
	default:
		return "unknown"
	}
}

// Error carries a kind, a client-safe message, and an optional wrapped cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an error of the given kind with a client-safe message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf is New with formatting.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a kinded error. The message is what clients see;
// the cause only surfaces in logs.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf extracts the kind from an error chain, or 0 if none is present.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return 0
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
