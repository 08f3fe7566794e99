// Package auth validates the two credential schemes spec.md section 6
// names — a hashed API key or a bearer JWT — and resolves both to the same
// Principal shape (an organisation and a role) so downstream authorisation
// checks never need to know which scheme was used.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/aiqaio/evalserver/internal/domain"
)

var (
	ErrAuthDisabled = errors.New("auth disabled")
	ErrInvalidToken = errors.New("invalid token")
	ErrInvalidKey   = errors.New("invalid api key")
)

// Principal is the authenticated identity attached to a request context:
// the organisation an API key or JWT was issued for, and the role gating
// what it may do (spec.md sections 3, 4.5, 6).
type Principal struct {
	OrganisationID string
	Role           domain.Role
	APIKeyID       string
}

// KeyLookup resolves a hashed API key to its domain record. Satisfied by
// store.APIKeyStore; declared locally so auth does not depend on the
// concrete store package.
type KeyLookup interface {
	FindByHash(ctx context.Context, hash string) (*domain.APIKey, error)
}

// Config configures the JWT half of the auth service.
type Config struct {
	JWTSecret   string
	TokenExpiry time.Duration
}

// Service validates bearer JWTs and hashed API keys.
type Service struct {
	jwt  *JWTService
	keys KeyLookup
}

// NewService constructs an auth service. keys may be nil where only JWT
// auth is exercised (e.g. admin tooling with no API key surface).
func NewService(cfg Config, keys KeyLookup) *Service {
	service := &Service{keys: keys}
	if strings.TrimSpace(cfg.JWTSecret) != "" {
		service.jwt = NewJWTService(cfg.JWTSecret, cfg.TokenExpiry)
	}
	return service
}

// Enabled reports whether any credential scheme is configured.
func (s *Service) Enabled() bool {
	if s == nil {
		return false
	}
	return s.jwt != nil || s.keys != nil
}

// GenerateJWT issues a signed token carrying p.
func (s *Service) GenerateJWT(p Principal) (string, error) {
	if s == nil || s.jwt == nil {
		return "", ErrAuthDisabled
	}
	return s.jwt.Generate(p)
}

// ValidateJWT parses and validates a bearer token.
func (s *Service) ValidateJWT(token string) (Principal, error) {
	if s == nil || s.jwt == nil {
		return Principal{}, ErrAuthDisabled
	}
	return s.jwt.Validate(token)
}

// HashAPIKey returns the SHA-256 hex digest API keys are looked up by. The
// plaintext credential is never persisted (spec.md section 6: "API-key
// creation accepts only the hash and last-4 suffix; never the plaintext").
func HashAPIKey(plaintext string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(plaintext)))
	return hex.EncodeToString(sum[:])
}

// ValidateAPIKey hashes plaintext and resolves it through the configured
// KeyLookup, returning the organisation and role it grants.
func (s *Service) ValidateAPIKey(ctx context.Context, plaintext string) (Principal, error) {
	if s == nil || s.keys == nil {
		return Principal{}, ErrAuthDisabled
	}
	hash := HashAPIKey(plaintext)
	key, err := s.keys.FindByHash(ctx, hash)
	if err != nil {
		return Principal{}, ErrInvalidKey
	}
	// Belt-and-suspenders constant-time check against the row actually
	// returned, mirroring the teacher's habit of never trusting a lookup's
	// equality implicitly on credential paths.
	if subtle.ConstantTimeCompare([]byte(key.Hash), []byte(hash)) != 1 {
		return Principal{}, ErrInvalidKey
	}
	return Principal{OrganisationID: key.OrganisationID, Role: key.Role, APIKeyID: key.ID}, nil
}

// authenticate resolves a Principal from a raw Authorization header value,
// trying the ApiKey scheme then the Bearer scheme (spec.md section 6:
// "Authorization: ApiKey <plaintext> or Authorization: Bearer <jwt>").
func (s *Service) authenticate(ctx context.Context, header string) (Principal, error) {
	header = strings.TrimSpace(header)
	lower := strings.ToLower(header)
	switch {
	case strings.HasPrefix(lower, "apikey "):
		return s.ValidateAPIKey(ctx, strings.TrimSpace(header[len("ApiKey "):]))
	case strings.HasPrefix(lower, "bearer "):
		return s.ValidateJWT(strings.TrimSpace(header[len("Bearer "):]))
	default:
		return Principal{}, ErrInvalidToken
	}
}
