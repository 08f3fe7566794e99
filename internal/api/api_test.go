package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiqaio/evalserver/internal/auth"
	"github.com/aiqaio/evalserver/internal/domain"
	"github.com/aiqaio/evalserver/internal/experiment"
	"github.com/aiqaio/evalserver/internal/query"
	"github.com/aiqaio/evalserver/internal/searchstore"
	"github.com/aiqaio/evalserver/internal/store"
)

type fakeDatasetStore struct {
	datasets map[string]*domain.Dataset
}

func newFakeDatasetStore() *fakeDatasetStore {
	return &fakeDatasetStore{datasets: map[string]*domain.Dataset{}}
}

func (f *fakeDatasetStore) Create(ctx context.Context, ds *domain.Dataset) error {
	f.datasets[ds.ID] = ds
	return nil
}
func (f *fakeDatasetStore) Get(ctx context.Context, id string) (*domain.Dataset, error) {
	ds, ok := f.datasets[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return ds, nil
}
func (f *fakeDatasetStore) List(ctx context.Context, orgID string, ast *query.Node, limit, offset int) ([]*domain.Dataset, int, error) {
	var out []*domain.Dataset
	for _, ds := range f.datasets {
		if ds.OrganisationID == orgID {
			out = append(out, ds)
		}
	}
	return out, len(out), nil
}
func (f *fakeDatasetStore) Update(ctx context.Context, ds *domain.Dataset) error {
	f.datasets[ds.ID] = ds
	return nil
}
func (f *fakeDatasetStore) Delete(ctx context.Context, id string) error {
	delete(f.datasets, id)
	return nil
}

type fakeExperimentStore struct {
	experiments map[string]*domain.Experiment
}

func newFakeExperimentStore() *fakeExperimentStore {
	return &fakeExperimentStore{experiments: map[string]*domain.Experiment{}}
}

func (f *fakeExperimentStore) Create(ctx context.Context, exp *domain.Experiment) error {
	f.experiments[exp.ID] = exp
	return nil
}
func (f *fakeExperimentStore) Get(ctx context.Context, id string) (*domain.Experiment, error) {
	exp, ok := f.experiments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return exp, nil
}
func (f *fakeExperimentStore) List(ctx context.Context, orgID string, ast *query.Node, limit, offset int) ([]*domain.Experiment, int, error) {
	var out []*domain.Experiment
	for _, exp := range f.experiments {
		if exp.OrganisationID == orgID {
			out = append(out, exp)
		}
	}
	return out, len(out), nil
}
func (f *fakeExperimentStore) Update(ctx context.Context, exp *domain.Experiment) error {
	f.experiments[exp.ID] = exp
	return nil
}
func (f *fakeExperimentStore) Delete(ctx context.Context, id string) error {
	delete(f.experiments, id)
	return nil
}
func (f *fakeExperimentStore) UpsertResult(ctx context.Context, experimentID string, result domain.Result) (*domain.Experiment, error) {
	exp := f.experiments[experimentID]
	exp.Results = append(exp.Results, result)
	return exp, nil
}

type fakeExampleStore struct {
	examples map[string]domain.Example
}

func newFakeExampleStore() *fakeExampleStore {
	return &fakeExampleStore{examples: map[string]domain.Example{}}
}

func (f *fakeExampleStore) CreateExample(ctx context.Context, example domain.Example) error {
	for _, e := range f.examples {
		if example.TraceID != "" && e.TraceID == example.TraceID && e.DatasetID == example.DatasetID {
			return searchstore.ErrDuplicateExample
		}
	}
	f.examples[example.ID] = example
	return nil
}
func (f *fakeExampleStore) SearchExamples(ctx context.Context, q, orgID, datasetID string, limit, offset int, includes, excludes []string) ([]domain.Example, int, error) {
	var out []domain.Example
	for _, e := range f.examples {
		if e.OrganisationID == orgID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func newTestDeps() (Deps, *fakeDatasetStore, *fakeExperimentStore, *fakeExampleStore) {
	ds := newFakeDatasetStore()
	exp := newFakeExperimentStore()
	ex := newFakeExampleStore()
	deps := Deps{
		Datasets:    ds,
		Experiments: exp,
		Examples:    ex,
		Scoring:     fakeScorer{},
		Auth:        &auth.Service{},
	}
	return deps, ds, exp, ex
}

type fakeScorer struct{}

func (fakeScorer) ScoreAndStore(ctx context.Context, req experiment.ScoreAndStoreRequest) (*experiment.ScoreAndStoreResponse, error) {
	return &experiment.ScoreAndStoreResponse{Success: true, Scores: req.Scores, ExampleID: req.ExampleID}, nil
}

func withPrincipal(req *http.Request, orgID string) *http.Request {
	return req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{OrganisationID: orgID, Role: domain.RoleDeveloper}))
}

func TestCreateDatasetScopesToCallerOrganisation(t *testing.T) {
	deps, dsStore, _, _ := newTestDeps()
	router := NewRouter(deps)

	body, _ := json.Marshal(map[string]any{"name": "regression set"})
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/dataset", bytes.NewReader(body)), "org-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var got domain.Dataset
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "org-1", got.OrganisationID)
	assert.Len(t, dsStore.datasets, 1)
}

func TestGetDatasetRejectsCrossOrganisationAccess(t *testing.T) {
	deps, dsStore, _, _ := newTestDeps()
	dsStore.datasets["ds-1"] = &domain.Dataset{ID: "ds-1", OrganisationID: "org-owner", Name: "x"}
	router := NewRouter(deps)

	req := withPrincipal(httptest.NewRequest(http.MethodGet, "/dataset/ds-1", nil), "org-other")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateExampleGeneratesUUIDWhenAbsent(t *testing.T) {
	deps, _, _, exStore := newTestDeps()
	router := NewRouter(deps)

	body, _ := json.Marshal(map[string]any{"dataset": "ds-1"})
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/example", bytes.NewReader(body)), "org-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Len(t, exStore.examples, 1)
}

func TestCreateExampleRejectsNonUUIDId(t *testing.T) {
	deps, _, _, _ := newTestDeps()
	router := NewRouter(deps)

	body, _ := json.Marshal(map[string]any{"id": "not-a-uuid", "dataset": "ds-1"})
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/example", bytes.NewReader(body)), "org-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateExampleRejectsDuplicateTraceAndDataset(t *testing.T) {
	deps, _, _, exStore := newTestDeps()
	exStore.examples["existing"] = domain.Example{ID: "existing", DatasetID: "ds-1", TraceID: "trace-1", OrganisationID: "org-1"}
	router := NewRouter(deps)

	body, _ := json.Marshal(map[string]any{"dataset": "ds-1", "trace": "trace-1"})
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/example", bytes.NewReader(body)), "org-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestScoreAndStoreDelegatesToScorer(t *testing.T) {
	deps, _, expStore, _ := newTestDeps()
	expStore.experiments["exp-1"] = &domain.Experiment{ID: "exp-1", OrganisationID: "org-1"}
	router := NewRouter(deps)

	body, _ := json.Marshal(map[string]any{"output": "hello", "scores": map[string]float64{"accuracy": 1}})
	req := withPrincipal(httptest.NewRequest(http.MethodPost, "/experiment/exp-1/example/ex-1/scoreAndStore", bytes.NewReader(body)), "org-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	payload, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"exampleId":"ex-1"`)
}

func TestListExperimentsRequiresOrganisation(t *testing.T) {
	deps, _, _, _ := newTestDeps()
	deps.Auth = &auth.Service{}
	router := NewRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/experiment", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
