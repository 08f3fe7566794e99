package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aiqaio/evalserver/internal/domain"
)

// JWTService handles token signing and verification.
type JWTService struct {
	secret []byte
	expiry time.Duration
}

// NewJWTService builds a JWT helper with the given secret and expiry.
func NewJWTService(secret string, expiry time.Duration) *JWTService {
	return &JWTService{secret: []byte(secret), expiry: expiry}
}

// Claims carries a Principal across a signed token.
type Claims struct {
	OrganisationID string `json:"organisation"`
	Role           string `json:"role"`
	jwt.RegisteredClaims
}

// Generate issues a signed token for p.
func (s *JWTService) Generate(p Principal) (string, error) {
	if s == nil || len(s.secret) == 0 {
		return "", ErrAuthDisabled
	}
	if strings.TrimSpace(p.OrganisationID) == "" {
		return "", fmt.Errorf("organisation id required")
	}

	claims := Claims{
		OrganisationID: p.OrganisationID,
		Role:           string(p.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.APIKeyID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.expiry)),
		},
	}
	if s.expiry <= 0 {
		claims.ExpiresAt = nil
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Validate parses and validates a JWT and returns the Principal embedded in it.
func (s *JWTService) Validate(token string) (Principal, error) {
	if s == nil || len(s.secret) == 0 {
		return Principal{}, ErrAuthDisabled
	}

	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return Principal{}, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Principal{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.OrganisationID) == "" {
		return Principal{}, ErrInvalidToken
	}
	return Principal{
		OrganisationID: claims.OrganisationID,
		Role:           domain.Role(claims.Role),
		APIKeyID:       claims.Subject,
	}, nil
}
