package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiqaio/evalserver/internal/domain"
)

var errKeyNotFound = errors.New("key not found")

type fakeKeyLookup struct {
	keys map[string]*domain.APIKey
}

func (f *fakeKeyLookup) FindByHash(ctx context.Context, hash string) (*domain.APIKey, error) {
	key, ok := f.keys[hash]
	if !ok {
		return nil, errKeyNotFound
	}
	return key, nil
}

func TestHashAPIKeyIsDeterministicAndNeverEqualsPlaintext(t *testing.T) {
	h1 := HashAPIKey("sk-live-abc123")
	h2 := HashAPIKey("sk-live-abc123")
	assert.Equal(t, h1, h2)
	assert.NotEqual(t, "sk-live-abc123", h1)
	assert.Len(t, h1, 64) // hex-encoded SHA-256
}

func TestServiceValidateAPIKey(t *testing.T) {
	hash := HashAPIKey("sk-live-abc123")
	lookup := &fakeKeyLookup{keys: map[string]*domain.APIKey{
		hash: {ID: "key-1", OrganisationID: "org-1", Hash: hash, Role: domain.RoleDeveloper},
	}}
	service := NewService(Config{}, lookup)

	principal, err := service.ValidateAPIKey(context.Background(), "sk-live-abc123")
	require.NoError(t, err)
	assert.Equal(t, "org-1", principal.OrganisationID)
	assert.Equal(t, domain.RoleDeveloper, principal.Role)
	assert.Equal(t, "key-1", principal.APIKeyID)
}

func TestServiceValidateAPIKeyRejectsUnknownKey(t *testing.T) {
	service := NewService(Config{}, &fakeKeyLookup{keys: map[string]*domain.APIKey{}})
	_, err := service.ValidateAPIKey(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestServiceDisabledWithoutJWTOrKeys(t *testing.T) {
	service := NewService(Config{}, nil)
	assert.False(t, service.Enabled())
	_, err := service.ValidateAPIKey(context.Background(), "anything")
	assert.ErrorIs(t, err, ErrAuthDisabled)
}

func TestServiceAuthenticateDispatchesByScheme(t *testing.T) {
	hash := HashAPIKey("sk-live-abc123")
	lookup := &fakeKeyLookup{keys: map[string]*domain.APIKey{
		hash: {ID: "key-1", OrganisationID: "org-1", Hash: hash, Role: domain.RoleTrace},
	}}
	service := NewService(Config{JWTSecret: "secret", TokenExpiry: time.Hour}, lookup)

	principal, err := service.authenticate(context.Background(), "ApiKey sk-live-abc123")
	require.NoError(t, err)
	assert.Equal(t, "org-1", principal.OrganisationID)

	token, err := service.GenerateJWT(Principal{OrganisationID: "org-2", Role: domain.RoleAdmin})
	require.NoError(t, err)
	principal, err = service.authenticate(context.Background(), "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, "org-2", principal.OrganisationID)
	assert.Equal(t, domain.RoleAdmin, principal.Role)

	_, err = service.authenticate(context.Background(), "Basic garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
