package experiment

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiqaio/evalserver/internal/domain"
)

type fakeExampleLister struct {
	examples []domain.Example
}

func (f *fakeExampleLister) SearchExamples(ctx context.Context, q, orgID, datasetID string, limit, offset int, includes, excludes []string) ([]domain.Example, int, error) {
	return f.examples, len(f.examples), nil
}

type fakeScoreAndStoreClient struct {
	calls []ScoreAndStoreRequest
}

func (f *fakeScoreAndStoreClient) ScoreAndStore(ctx context.Context, req ScoreAndStoreRequest) (*ScoreAndStoreResponse, error) {
	f.calls = append(f.calls, req)
	return &ScoreAndStoreResponse{Success: true, Scores: req.Scores, ExampleID: req.ExampleID}, nil
}

func TestRunnerCreatesExperimentWhenNoneSupplied(t *testing.T) {
	expStore := &fakeExperimentStore{}
	client := &fakeScoreAndStoreClient{}
	runner := &Runner{
		Examples:      &fakeExampleLister{examples: []domain.Example{{ID: "ex-1", Input: "hi"}}},
		Experiments:   expStore,
		ScoreAndStore: client,
	}

	results, err := runner.Run(context.Background(), RunRequest{
		DatasetID:      "ds-1",
		OrganisationID: "org-1",
		Engine: func(ctx context.Context, input any, params map[string]string) (any, error) {
			return input, nil
		},
	})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.NotEmpty(t, expStore.exp.ID)
	assert.Len(t, client.calls, 1)
	assert.Contains(t, client.calls[0].Scores, "duration")
}

func TestRunnerRunsComparisonParametersSequentiallyPerExample(t *testing.T) {
	expStore := &fakeExperimentStore{exp: &domain.Experiment{ID: "exp-1", DatasetID: "ds-1", OrganisationID: "org-1"}}
	client := &fakeScoreAndStoreClient{}
	var observedEnv []string

	runner := &Runner{
		Examples:      &fakeExampleLister{examples: []domain.Example{{ID: "ex-1", Input: "hi"}}},
		Experiments:   expStore,
		ScoreAndStore: client,
	}

	results, err := runner.Run(context.Background(), RunRequest{
		DatasetID:            "ds-1",
		OrganisationID:       "org-1",
		ExperimentID:         "exp-1",
		Parameters:           map[string]string{"model": "base"},
		ComparisonParameters: []map[string]string{{"variant": "a"}, {"variant": "b"}},
		Engine: func(ctx context.Context, input any, params map[string]string) (any, error) {
			observedEnv = append(observedEnv, os.Getenv("variant"))
			return params["variant"], nil
		},
	})

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, []string{"a", "b"}, observedEnv)
	assert.Equal(t, "", os.Getenv("variant")) // restored after the run
	assert.Equal(t, "", os.Getenv("model"))
}

func TestRunnerRecordsEngineErrorWithoutCallingScoreAndStore(t *testing.T) {
	expStore := &fakeExperimentStore{exp: &domain.Experiment{ID: "exp-1", DatasetID: "ds-1", OrganisationID: "org-1"}}
	client := &fakeScoreAndStoreClient{}

	runner := &Runner{
		Examples:      &fakeExampleLister{examples: []domain.Example{{ID: "ex-1"}}},
		Experiments:   expStore,
		ScoreAndStore: client,
	}

	results, err := runner.Run(context.Background(), RunRequest{
		DatasetID: "ds-1", OrganisationID: "org-1", ExperimentID: "exp-1",
		Engine: func(ctx context.Context, input any, params map[string]string) (any, error) {
			return nil, assert.AnError
		},
	})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
	assert.Empty(t, client.calls)
}

func TestRunnerMergesClientScorerOntoDuration(t *testing.T) {
	expStore := &fakeExperimentStore{exp: &domain.Experiment{ID: "exp-1", DatasetID: "ds-1", OrganisationID: "org-1"}}
	client := &fakeScoreAndStoreClient{}

	runner := &Runner{
		Examples:      &fakeExampleLister{examples: []domain.Example{{ID: "ex-1"}}},
		Experiments:   expStore,
		ScoreAndStore: client,
	}

	_, err := runner.Run(context.Background(), RunRequest{
		DatasetID: "ds-1", OrganisationID: "org-1", ExperimentID: "exp-1",
		Engine: func(ctx context.Context, input any, params map[string]string) (any, error) { return "out", nil },
		Scorer: func(ctx context.Context, input, output any, params map[string]string) (map[string]float64, error) {
			return map[string]float64{"quality": 1}, nil
		},
	})

	require.NoError(t, err)
	require.Len(t, client.calls, 1)
	assert.Contains(t, client.calls[0].Scores, "duration")
	assert.Equal(t, float64(1), client.calls[0].Scores["quality"])
}
