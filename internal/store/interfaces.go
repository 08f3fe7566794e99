// Package store persists the domain entities described in spec.md section 3
// (organisations, API keys, datasets, experiments) behind a Postgres-shaped
// SQL backend addressed by DATABASE_URL, following the teacher's storage
// package shape (typed stores grouped into a StoreSet, sentinel errors for
// not-found/already-exists).
package store

import (
	"context"
	"errors"

	"github.com/aiqaio/evalserver/internal/domain"
	"github.com/aiqaio/evalserver/internal/query"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// OrganisationStore persists tenant records.
type OrganisationStore interface {
	Create(ctx context.Context, org *domain.Organisation) error
	Get(ctx context.Context, id string) (*domain.Organisation, error)
	Update(ctx context.Context, org *domain.Organisation) error
	Delete(ctx context.Context, id string) error
}

// APIKeyStore persists API key hashes and resolves them at auth time.
type APIKeyStore interface {
	Create(ctx context.Context, key *domain.APIKey) error
	FindByHash(ctx context.Context, hash string) (*domain.APIKey, error)
	List(ctx context.Context, organisationID string) ([]*domain.APIKey, error)
	Delete(ctx context.Context, id string) error
}

// DatasetStore persists dataset metadata and metric definitions (spec.md
// section 6: "GET /dataset/:id, list/create/update/delete").
type DatasetStore interface {
	Create(ctx context.Context, ds *domain.Dataset) error
	Get(ctx context.Context, id string) (*domain.Dataset, error)
	List(ctx context.Context, organisationID string, ast *query.Node, limit, offset int) ([]*domain.Dataset, int, error)
	Update(ctx context.Context, ds *domain.Dataset) error
	Delete(ctx context.Context, id string) error
}

// ExperimentStore persists experiments and folds per-example results into
// their rolling summaries (spec.md section 4.7).
type ExperimentStore interface {
	Create(ctx context.Context, exp *domain.Experiment) error
	Get(ctx context.Context, id string) (*domain.Experiment, error)
	List(ctx context.Context, organisationID string, ast *query.Node, limit, offset int) ([]*domain.Experiment, int, error)
	Update(ctx context.Context, exp *domain.Experiment) error
	Delete(ctx context.Context, id string) error

	// UpsertResult folds result into exp's Results (replacing any prior
	// result for the same ExampleID) and recomputes exp.Summaries from
	// scratch, then persists both. Idempotent: scoring the same example
	// twice replaces, rather than double-counts, its contribution.
	UpsertResult(ctx context.Context, experimentID string, result domain.Result) (*domain.Experiment, error)
}

// StoreSet groups the SQL-backed stores the service depends on.
type StoreSet struct {
	Organisations OrganisationStore
	APIKeys       APIKeyStore
	Datasets      DatasetStore
	Experiments   ExperimentStore
	closer        func() error
}

// Close releases any underlying resources (e.g. the database connection pool).
func (s StoreSet) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}
