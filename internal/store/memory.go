package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aiqaio/evalserver/internal/domain"
	"github.com/aiqaio/evalserver/internal/query"
)

// MemoryOrganisationStore provides an in-memory OrganisationStore, used by
// tests and by local development without a Postgres instance.
type MemoryOrganisationStore struct {
	mu   sync.RWMutex
	orgs map[string]*domain.Organisation
}

func NewMemoryOrganisationStore() *MemoryOrganisationStore {
	return &MemoryOrganisationStore{orgs: make(map[string]*domain.Organisation)}
}

func (s *MemoryOrganisationStore) Create(ctx context.Context, org *domain.Organisation) error {
	if org == nil || org.ID == "" {
		return fmt.Errorf("organisation is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orgs[org.ID]; exists {
		return ErrAlreadyExists
	}
	s.orgs[org.ID] = org
	return nil
}

func (s *MemoryOrganisationStore) Get(ctx context.Context, id string) (*domain.Organisation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return org, nil
}

func (s *MemoryOrganisationStore) Update(ctx context.Context, org *domain.Organisation) error {
	if org == nil || org.ID == "" {
		return fmt.Errorf("organisation is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orgs[org.ID]; !exists {
		return ErrNotFound
	}
	s.orgs[org.ID] = org
	return nil
}

func (s *MemoryOrganisationStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orgs[id]; !exists {
		return ErrNotFound
	}
	delete(s.orgs, id)
	return nil
}

// MemoryAPIKeyStore provides an in-memory APIKeyStore.
type MemoryAPIKeyStore struct {
	mu   sync.RWMutex
	keys map[string]*domain.APIKey
}

func NewMemoryAPIKeyStore() *MemoryAPIKeyStore {
	return &MemoryAPIKeyStore{keys: make(map[string]*domain.APIKey)}
}

func (s *MemoryAPIKeyStore) Create(ctx context.Context, key *domain.APIKey) error {
	if key == nil || key.ID == "" {
		return fmt.Errorf("api key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.keys[key.ID]; exists {
		return ErrAlreadyExists
	}
	s.keys[key.ID] = key
	return nil
}

func (s *MemoryAPIKeyStore) FindByHash(ctx context.Context, hash string) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, key := range s.keys {
		if key.Hash == hash {
			return key, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryAPIKeyStore) List(ctx context.Context, organisationID string) ([]*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]*domain.APIKey, 0)
	for _, key := range s.keys {
		if key.OrganisationID == organisationID {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].CreatedAt.After(keys[j].CreatedAt) })
	return keys, nil
}

func (s *MemoryAPIKeyStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.keys[id]; !exists {
		return ErrNotFound
	}
	delete(s.keys, id)
	return nil
}

// MemoryDatasetStore provides an in-memory DatasetStore. Its List method
// ignores ast filtering beyond organisation scoping — tests exercising the
// §4.1 query language run against the SQL/search emitters directly.
type MemoryDatasetStore struct {
	mu       sync.RWMutex
	datasets map[string]*domain.Dataset
}

func NewMemoryDatasetStore() *MemoryDatasetStore {
	return &MemoryDatasetStore{datasets: make(map[string]*domain.Dataset)}
}

func (s *MemoryDatasetStore) Create(ctx context.Context, ds *domain.Dataset) error {
	if ds == nil || ds.ID == "" {
		return fmt.Errorf("dataset is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.datasets[ds.ID]; exists {
		return ErrAlreadyExists
	}
	s.datasets[ds.ID] = ds
	return nil
}

func (s *MemoryDatasetStore) Get(ctx context.Context, id string) (*domain.Dataset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ds, ok := s.datasets[id]
	if !ok {
		return nil, ErrNotFound
	}
	return ds, nil
}

func (s *MemoryDatasetStore) List(ctx context.Context, organisationID string, ast *query.Node, limit, offset int) ([]*domain.Dataset, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := make([]*domain.Dataset, 0)
	for _, ds := range s.datasets {
		if ds.OrganisationID == organisationID {
			matches = append(matches, ds)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CreatedAt.After(matches[j].CreatedAt) })
	total := len(matches)
	return paginate(matches, limit, offset), total, nil
}

func (s *MemoryDatasetStore) Update(ctx context.Context, ds *domain.Dataset) error {
	if ds == nil || ds.ID == "" {
		return fmt.Errorf("dataset is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.datasets[ds.ID]; !exists {
		return ErrNotFound
	}
	s.datasets[ds.ID] = ds
	return nil
}

func (s *MemoryDatasetStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.datasets[id]; !exists {
		return ErrNotFound
	}
	delete(s.datasets, id)
	return nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset > len(items) {
		offset = len(items)
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

// MemoryExperimentStore provides an in-memory ExperimentStore.
type MemoryExperimentStore struct {
	mu          sync.RWMutex
	experiments map[string]*domain.Experiment
}

func NewMemoryExperimentStore() *MemoryExperimentStore {
	return &MemoryExperimentStore{experiments: make(map[string]*domain.Experiment)}
}

func (s *MemoryExperimentStore) Create(ctx context.Context, exp *domain.Experiment) error {
	if exp == nil || exp.ID == "" {
		return fmt.Errorf("experiment is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.experiments[exp.ID]; exists {
		return ErrAlreadyExists
	}
	s.experiments[exp.ID] = exp
	return nil
}

func (s *MemoryExperimentStore) Get(ctx context.Context, id string) (*domain.Experiment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exp, ok := s.experiments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return exp, nil
}

func (s *MemoryExperimentStore) List(ctx context.Context, organisationID string, ast *query.Node, limit, offset int) ([]*domain.Experiment, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := make([]*domain.Experiment, 0)
	for _, exp := range s.experiments {
		if exp.OrganisationID == organisationID {
			matches = append(matches, exp)
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].CreatedAt.After(matches[j].CreatedAt) })
	total := len(matches)
	return paginate(matches, limit, offset), total, nil
}

func (s *MemoryExperimentStore) Update(ctx context.Context, exp *domain.Experiment) error {
	if exp == nil || exp.ID == "" {
		return fmt.Errorf("experiment is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.experiments[exp.ID]; !exists {
		return ErrNotFound
	}
	s.experiments[exp.ID] = exp
	return nil
}

func (s *MemoryExperimentStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.experiments[id]; !exists {
		return ErrNotFound
	}
	delete(s.experiments, id)
	return nil
}

func (s *MemoryExperimentStore) UpsertResult(ctx context.Context, experimentID string, result domain.Result) (*domain.Experiment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.experiments[experimentID]
	if !ok {
		return nil, ErrNotFound
	}
	merged := false
	for i := range exp.Results {
		if exp.Results[i].ExampleID == result.ExampleID {
			exp.Results[i] = mergeResult(exp.Results[i], result)
			merged = true
			break
		}
	}
	if !merged {
		exp.Results = append(exp.Results, result)
	}
	exp.RecalculateSummaries()
	return exp, nil
}

// NewMemoryStores constructs a StoreSet backed by memory, for local
// development and tests that don't need SQL-level guarantees.
func NewMemoryStores() StoreSet {
	return StoreSet{
		Organisations: NewMemoryOrganisationStore(),
		APIKeys:       NewMemoryAPIKeyStore(),
		Datasets:      NewMemoryDatasetStore(),
		Experiments:   NewMemoryExperimentStore(),
	}
}
