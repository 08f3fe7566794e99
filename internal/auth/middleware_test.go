package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/aiqaio/evalserver/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHTTPMiddlewarePassesThroughWhenAuthDisabled(t *testing.T) {
	service := NewService(Config{}, nil)
	called := false
	handler := HTTPMiddleware(service, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/experiment", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTPMiddlewareRejectsMissingHeader(t *testing.T) {
	service := NewService(Config{JWTSecret: "secret", TokenExpiry: time.Hour}, nil)
	handler := HTTPMiddleware(service, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/experiment", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHTTPMiddlewareAttachesPrincipalOnSuccess(t *testing.T) {
	hash := HashAPIKey("sk-live-abc123")
	lookup := &fakeKeyLookup{keys: map[string]*domain.APIKey{
		hash: {ID: "key-1", OrganisationID: "org-1", Hash: hash, Role: domain.RoleDeveloper},
	}}
	service := NewService(Config{}, lookup)

	var seen Principal
	handler := HTTPMiddleware(service, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/experiment", nil)
	req.Header.Set("Authorization", "ApiKey sk-live-abc123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "org-1", seen.OrganisationID)
	assert.Equal(t, domain.RoleDeveloper, seen.Role)
}

func TestHTTPMiddlewareRejectsInvalidCredentials(t *testing.T) {
	service := NewService(Config{}, &fakeKeyLookup{keys: map[string]*domain.APIKey{}})
	handler := HTTPMiddleware(service, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/experiment", nil)
	req.Header.Set("Authorization", "ApiKey nope")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

type stubServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *stubServerStream) Context() context.Context {
	return s.ctx
}

func TestUnaryInterceptorPassesThroughWhenAuthDisabled(t *testing.T) {
	service := NewService(Config{}, nil)
	interceptor := UnaryInterceptor(service, discardLogger())

	called := false
	handler := func(ctx context.Context, req any) (any, error) {
		called = true
		return "ok", nil
	}
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{}, handler)
	require.NoError(t, err)
	assert.True(t, called)
}

func TestUnaryInterceptorRejectsMissingMetadata(t *testing.T) {
	service := NewService(Config{JWTSecret: "secret", TokenExpiry: time.Hour}, nil)
	interceptor := UnaryInterceptor(service, discardLogger())

	handler := func(ctx context.Context, req any) (any, error) {
		t.Fatal("handler should not be reached")
		return nil, nil
	}
	_, err := interceptor(context.Background(), nil, &grpc.UnaryServerInfo{}, handler)
	require.Error(t, err)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestUnaryInterceptorAttachesPrincipalOnSuccess(t *testing.T) {
	hash := HashAPIKey("sk-live-abc123")
	lookup := &fakeKeyLookup{keys: map[string]*domain.APIKey{
		hash: {ID: "key-1", OrganisationID: "org-1", Hash: hash, Role: domain.RoleAdmin},
	}}
	service := NewService(Config{}, lookup)
	interceptor := UnaryInterceptor(service, discardLogger())

	md := metadata.New(map[string]string{"authorization": "ApiKey sk-live-abc123"})
	ctx := metadata.NewIncomingContext(context.Background(), md)

	var seen Principal
	handler := func(ctx context.Context, req any) (any, error) {
		seen, _ = PrincipalFromContext(ctx)
		return "ok", nil
	}
	_, err := interceptor(ctx, nil, &grpc.UnaryServerInfo{}, handler)
	require.NoError(t, err)
	assert.Equal(t, "org-1", seen.OrganisationID)
	assert.Equal(t, domain.RoleAdmin, seen.Role)
}

func TestStreamInterceptorAttachesPrincipalOnSuccess(t *testing.T) {
	hash := HashAPIKey("sk-live-abc123")
	lookup := &fakeKeyLookup{keys: map[string]*domain.APIKey{
		hash: {ID: "key-1", OrganisationID: "org-1", Hash: hash, Role: domain.RoleTrace},
	}}
	service := NewService(Config{}, lookup)
	interceptor := StreamInterceptor(service, discardLogger())

	md := metadata.New(map[string]string{"authorization": "ApiKey sk-live-abc123"})
	ctx := metadata.NewIncomingContext(context.Background(), md)
	stream := &stubServerStream{ctx: ctx}

	var seen Principal
	handler := func(srv any, stream grpc.ServerStream) error {
		seen, _ = PrincipalFromContext(stream.Context())
		return nil
	}
	err := interceptor(nil, stream, &grpc.StreamServerInfo{}, handler)
	require.NoError(t, err)
	assert.Equal(t, "org-1", seen.OrganisationID)
}

func TestStreamInterceptorRejectsMissingMetadata(t *testing.T) {
	service := NewService(Config{JWTSecret: "secret", TokenExpiry: time.Hour}, nil)
	interceptor := StreamInterceptor(service, discardLogger())
	stream := &stubServerStream{ctx: context.Background()}

	handler := func(srv any, stream grpc.ServerStream) error {
		t.Fatal("handler should not be reached")
		return nil
	}
	err := interceptor(nil, stream, &grpc.StreamServerInfo{}, handler)
	require.Error(t, err)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}
