package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiqaio/evalserver/internal/domain"
)

func TestJWTServiceGenerateValidate(t *testing.T) {
	service := NewJWTService("secret", time.Hour)
	token, err := service.Generate(Principal{OrganisationID: "org-1", Role: domain.RoleAdmin, APIKeyID: "key-1"})
	require.NoError(t, err)

	principal, err := service.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "org-1", principal.OrganisationID)
	assert.Equal(t, domain.RoleAdmin, principal.Role)
	assert.Equal(t, "key-1", principal.APIKeyID)
}

func TestJWTServiceRejectsMissingOrganisation(t *testing.T) {
	service := NewJWTService("secret", time.Hour)
	_, err := service.Generate(Principal{})
	assert.Error(t, err)
}

func TestJWTServiceRejectsTamperedToken(t *testing.T) {
	service := NewJWTService("secret", time.Hour)
	token, err := service.Generate(Principal{OrganisationID: "org-1", Role: domain.RoleTrace})
	require.NoError(t, err)

	other := NewJWTService("different-secret", time.Hour)
	_, err = other.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTServiceNoExpiryOmitsExpiresAt(t *testing.T) {
	service := NewJWTService("secret", 0)
	token, err := service.Generate(Principal{OrganisationID: "org-1", Role: domain.RoleTrace})
	require.NoError(t, err)
	principal, err := service.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "org-1", principal.OrganisationID)
}
