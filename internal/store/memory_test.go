package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiqaio/evalserver/internal/domain"
)

func TestMemoryOrganisationStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryOrganisationStore()

	org := &domain.Organisation{ID: "org-1", Name: "Acme", Tier: domain.TierPro, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, s.Create(ctx, org))
	assert.ErrorIs(t, s.Create(ctx, org), ErrAlreadyExists)

	got, err := s.Get(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	got.Name = "Acme Corp"
	require.NoError(t, s.Update(ctx, got))
	reread, err := s.Get(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", reread.Name)

	require.NoError(t, s.Delete(ctx, "org-1"))
	assert.ErrorIs(t, s.Delete(ctx, "org-1"), ErrNotFound)
}

func TestMemoryAPIKeyStoreFindByHash(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAPIKeyStore()
	key := &domain.APIKey{ID: "key-1", OrganisationID: "org-1", Hash: "deadbeef", Role: domain.RoleDeveloper, CreatedAt: time.Now()}
	require.NoError(t, s.Create(ctx, key))

	found, err := s.FindByHash(ctx, "deadbeef")
	require.NoError(t, err)
	assert.Equal(t, "key-1", found.ID)

	_, err = s.FindByHash(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	keys, err := s.List(ctx, "org-1")
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestMemoryDatasetStoreListScopesByOrganisation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryDatasetStore()
	require.NoError(t, s.Create(ctx, &domain.Dataset{ID: "ds-1", OrganisationID: "org-1", Name: "one", CreatedAt: time.Now()}))
	require.NoError(t, s.Create(ctx, &domain.Dataset{ID: "ds-2", OrganisationID: "org-2", Name: "two", CreatedAt: time.Now()}))

	datasets, total, err := s.List(ctx, "org-1", nil, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, datasets, 1)
	assert.Equal(t, "ds-1", datasets[0].ID)
}

func TestMemoryExperimentStoreUpsertResultIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryExperimentStore()
	require.NoError(t, s.Create(ctx, &domain.Experiment{
		ID: "exp-1", OrganisationID: "org-1", Status: domain.ExperimentOpen, CreatedAt: time.Now(),
	}))

	exp, err := s.UpsertResult(ctx, "exp-1", domain.Result{ExampleID: "ex-1", Scores: map[string]float64{"accuracy": 1}})
	require.NoError(t, err)
	assert.Len(t, exp.Results, 1)
	assert.Equal(t, 1, exp.Summaries["accuracy"].Count)

	// Re-scoring the same example replaces, rather than double counts.
	exp, err = s.UpsertResult(ctx, "exp-1", domain.Result{ExampleID: "ex-1", Scores: map[string]float64{"accuracy": 0}})
	require.NoError(t, err)
	assert.Len(t, exp.Results, 1)
	assert.Equal(t, 1, exp.Summaries["accuracy"].Count)
	assert.Equal(t, 0.0, exp.Summaries["accuracy"].Mean)

	_, err = s.UpsertResult(ctx, "missing", domain.Result{ExampleID: "ex-1"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, paginate(items, 0, 0))
	assert.Equal(t, []int{2, 3}, paginate(items, 2, 1))
	assert.Equal(t, []int{}, paginate(items, 2, 10))
}
