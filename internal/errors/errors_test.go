package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindAuthentication: http.StatusUnauthorized,
		KindAuthorisation:  http.StatusForbidden,
		KindValidation:     http.StatusBadRequest,
		KindQuotaExceeded:  http.StatusTooManyRequests,
		KindNotFound:       http.StatusNotFound,
		KindConflict:       http.StatusConflict,
		KindUnavailable:    http.StatusServiceUnavailable,
		KindInternal:       http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, HTTPStatus(kind))
	}
}

func TestGRPCCode(t *testing.T) {
	cases := map[Kind]codes.Code{
		KindAuthentication: codes.Unauthenticated,
		KindAuthorisation:  codes.PermissionDenied,
		KindValidation:     codes.InvalidArgument,
		KindQuotaExceeded:  codes.ResourceExhausted,
		KindNotFound:       codes.NotFound,
		KindConflict:       codes.AlreadyExists,
		KindUnavailable:    codes.Unavailable,
		KindInternal:       codes.Internal,
	}
	for kind, want := range cases {
		assert.Equal(t, want, GRPCCode(kind))
	}
}

func TestResponseBodyHidesInternals(t *testing.T) {
	err := Internal("corr-123", assert.AnError)
	status, body := ResponseBody(err)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "internal error", body.Error)
	assert.Contains(t, body.Details, "corr-123")
	assert.NotContains(t, body.Details, assert.AnError.Error())
}

func TestResponseBodyValidation(t *testing.T) {
	err := New(KindValidation, "invalid UUID")
	status, body := ResponseBody(err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid UUID", body.Error)
	assert.Empty(t, body.Details)
}

func TestWrapUnwrap(t *testing.T) {
	err := Wrap(KindUnavailable, "search engine unreachable", assert.AnError)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), "search engine unreachable")
}
