// Package errors defines the request-error taxonomy shared by the REST and
// gRPC entry points, per spec.md section 7.
package errors

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
)

// Kind classifies a request-level failure.
type Kind int

const (
	// KindInternal is an unexpected failure; no internals cross the boundary.
	KindInternal Kind = iota
	// KindAuthentication covers a missing or invalid credential.
	KindAuthentication
	// KindAuthorisation covers an insufficient role or cross-org access.
	KindAuthorisation
	// KindValidation covers a malformed request: bad UUID, missing field, duplicate key.
	KindValidation
	// KindQuotaExceeded covers a rate-limit rejection.
	KindQuotaExceeded
	// KindNotFound covers a missing entity.
	KindNotFound
	// KindConflict covers a duplicate example (trace, dataset).
	KindConflict
	// KindUnavailable covers a backing-store connection failure.
	KindUnavailable
)

// Error is the explicit result type carried across internal boundaries
// instead of being thrown; the edge layer maps Kind to a transport status.
type Error struct {
	Kind    Kind
	Message string
	// Correlation is set on internal errors so the client can reference it
	// in a support request without the server having to reveal internals.
	Correlation string
	cause       error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an Error of the given kind with a user-safe message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap attaches an internal cause to a new Error without leaking it into Message.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// Internal builds a class (h) error carrying a correlation id.
func Internal(correlation string, cause error) *Error {
	return &Error{
		Kind:        KindInternal,
		Message:     "internal error",
		Correlation: correlation,
		cause:       cause,
	}
}

// As extracts an *Error from err, if present.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HTTPStatus maps a Kind to the HTTP status spec.md section 7 names.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindAuthorisation:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindQuotaExceeded:
		return http.StatusTooManyRequests
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GRPCCode maps a Kind to the gRPC status code spec.md section 7 names.
func GRPCCode(kind Kind) codes.Code {
	switch kind {
	case KindAuthentication:
		return codes.Unauthenticated
	case KindAuthorisation:
		return codes.PermissionDenied
	case KindValidation:
		return codes.InvalidArgument
	case KindQuotaExceeded:
		return codes.ResourceExhausted
	case KindNotFound:
		return codes.NotFound
	case KindConflict:
		return codes.AlreadyExists
	case KindUnavailable:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}

// Body is the JSON shape of every error response (spec.md section 7).
type Body struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// ResponseBody renders err (any error, not just *Error) into the wire shape.
func ResponseBody(err error) (int, Body) {
	e, ok := As(err)
	if !ok {
		return http.StatusInternalServerError, Body{Error: "internal error"}
	}
	body := Body{Error: e.Message}
	if e.Correlation != "" {
		body.Details = "correlation_id=" + e.Correlation
	}
	return HTTPStatus(e.Kind), body
}
