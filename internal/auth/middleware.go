package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// HTTPMiddleware enforces the Authorization header scheme spec.md section 6
// describes and stashes the resolved Principal in the request context.
func HTTPMiddleware(service *Service, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if service == nil || !service.Enabled() {
				next.ServeHTTP(w, r)
				return
			}
			header := r.Header.Get("Authorization")
			if header == "" {
				http.Error(w, "missing credentials", http.StatusUnauthorized)
				return
			}
			principal, err := service.authenticate(r.Context(), header)
			if err != nil {
				if logger != nil {
					logger.Warn("authentication failed", "error", err)
				}
				http.Error(w, "invalid credentials", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
		})
	}
}

// UnaryInterceptor enforces JWT/API key auth for unary gRPC calls.
func UnaryInterceptor(service *Service, logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if service == nil || !service.Enabled() {
			return handler(ctx, req)
		}
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "missing metadata")
		}
		header := firstMetadata(md, "authorization")
		if header == "" {
			return nil, status.Error(codes.Unauthenticated, "missing credentials")
		}
		principal, err := service.authenticate(ctx, header)
		if err != nil {
			if logger != nil {
				logger.Warn("authentication failed", "error", err)
			}
			return nil, status.Error(codes.Unauthenticated, "invalid credentials")
		}
		return handler(WithPrincipal(ctx, principal), req)
	}
}

// StreamInterceptor enforces JWT/API key auth for streaming gRPC calls.
func StreamInterceptor(service *Service, logger *slog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, stream grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if service == nil || !service.Enabled() {
			return handler(srv, stream)
		}
		md, ok := metadata.FromIncomingContext(stream.Context())
		if !ok {
			return status.Error(codes.Unauthenticated, "missing metadata")
		}
		header := firstMetadata(md, "authorization")
		if header == "" {
			return status.Error(codes.Unauthenticated, "missing credentials")
		}
		principal, err := service.authenticate(stream.Context(), header)
		if err != nil {
			if logger != nil {
				logger.Warn("authentication failed", "error", err)
			}
			return status.Error(codes.Unauthenticated, "invalid credentials")
		}
		return handler(srv, &wrappedStream{ServerStream: stream, ctx: WithPrincipal(stream.Context(), principal)})
	}
}

type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}

func firstMetadata(md metadata.MD, key string) string {
	values := md.Get(key)
	if len(values) == 0 {
		return ""
	}
	return strings.TrimSpace(values[0])
}
