package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/aiqaio/evalserver/internal/auth"
	"github.com/aiqaio/evalserver/internal/config"
	"github.com/aiqaio/evalserver/internal/domain"
	"github.com/aiqaio/evalserver/internal/store"
)

// runOrgCreate inserts a new organisation row directly against the store,
// bypassing the REST surface entirely (spec.md section 1 excludes
// organisation CRUD from it).
func runOrgCreate(cmd *cobra.Command, name, tier string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("--name is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	stores, err := store.NewPostgresStoresFromDSN(cfg.Database.URL, nil, nil)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer stores.Close()

	now := time.Now().UTC()
	org := &domain.Organisation{
		ID:        uuid.NewString(),
		Name:      name,
		Tier:      domain.Tier(tier),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := stores.Organisations.Create(cmd.Context(), org); err != nil {
		return fmt.Errorf("create organisation: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "organisation created: id=%s name=%q tier=%s\n", org.ID, org.Name, org.Tier)
	return nil
}

// runAPIKeyCreate mints a random plaintext credential, stores only its hash
// and last-4 suffix (spec.md section 6: "API-key creation accepts only the
// hash and last-4 suffix; never the plaintext"), and prints the plaintext
// exactly once since it cannot be recovered afterward.
func runAPIKeyCreate(cmd *cobra.Command, organisationID, role, name string) error {
	if strings.TrimSpace(organisationID) == "" {
		return fmt.Errorf("--organisation is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	stores, err := store.NewPostgresStoresFromDSN(cfg.Database.URL, nil, nil)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer stores.Close()

	plaintext, err := randomAPIKey()
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	now := time.Now().UTC()
	key := &domain.APIKey{
		ID:             uuid.NewString(),
		OrganisationID: organisationID,
		Hash:           auth.HashAPIKey(plaintext),
		Last4:          plaintext[len(plaintext)-4:],
		Role:           domain.Role(role),
		Name:           name,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := stores.APIKeys.Create(cmd.Context(), key); err != nil {
		return fmt.Errorf("create api key: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "api key created: id=%s organisation=%s role=%s\n", key.ID, key.OrganisationID, key.Role)
	fmt.Fprintf(out, "plaintext (shown once): %s\n", plaintext)
	return nil
}

// randomAPIKey generates a 32-byte, base64url-encoded credential.
func randomAPIKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
