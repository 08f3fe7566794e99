package experiment

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/aiqaio/evalserver/internal/domain"
	"github.com/aiqaio/evalserver/internal/observability"
	"github.com/aiqaio/evalserver/internal/store"
)

// defaultExampleLimit bounds the number of examples a single run fetches
// (spec.md section 4.7 step 2: "bounded by a configurable limit, default
// 10 000").
const defaultExampleLimit = 10000

// EngineFunc invokes the system under test with one example's input and a
// merged parameter set, returning its output.
type EngineFunc func(ctx context.Context, input any, params map[string]string) (any, error)

// ClientScorerFunc optionally computes client-side scores for an
// (input, output) pair. The runner always adds a "duration" entry in
// milliseconds on top of whatever this returns (spec.md section 4.7 step 3).
type ClientScorerFunc func(ctx context.Context, input, output any, params map[string]string) (map[string]float64, error)

// ExampleLister fetches a dataset's examples, mirroring
// searchstore.Client.SearchExamples's signature so that type satisfies it
// directly.
type ExampleLister interface {
	SearchExamples(ctx context.Context, q, orgID, datasetID string, limit, offset int, includes, excludes []string) ([]domain.Example, int, error)
}

// ScoreAndStoreClient is the subset of Service the runner depends on,
// declared locally so tests can substitute a fake without a real store.
type ScoreAndStoreClient interface {
	ScoreAndStore(ctx context.Context, req ScoreAndStoreRequest) (*ScoreAndStoreResponse, error)
}

var _ ScoreAndStoreClient = (*Service)(nil)

// Runner drives the client-side experiment loop (spec.md section 4.7).
type Runner struct {
	Examples      ExampleLister
	Experiments   store.ExperimentStore
	ScoreAndStore ScoreAndStoreClient
	Log           *observability.Logger

	// ExampleLimit overrides defaultExampleLimit when positive.
	ExampleLimit int
}

// RunRequest configures one experiment run.
type RunRequest struct {
	DatasetID            string
	OrganisationID       string
	ExperimentID         string // optional; created if empty
	Name                 string
	Parameters           map[string]string
	ComparisonParameters []map[string]string // defaults to [{}]
	Engine               EngineFunc
	Scorer                ClientScorerFunc // optional
}

// ExampleResult is one (example, parameter set) iteration's outcome, useful
// for callers that want a summary after Run returns.
type ExampleResult struct {
	ExampleID string
	Params    map[string]string
	Output    any
	Scores    map[string]float64
	Err       error
}

// Run implements spec.md section 4.7's client-side steps 1-4.
func (r *Runner) Run(ctx context.Context, req RunRequest) ([]ExampleResult, error) {
	experimentID := req.ExperimentID
	if experimentID == "" {
		exp := &domain.Experiment{
			ID:             uuid.NewString(),
			DatasetID:      req.DatasetID,
			OrganisationID: req.OrganisationID,
			Name:           req.Name,
			Parameters:     req.Parameters,
			Status:         domain.ExperimentOpen,
		}
		if err := r.Experiments.Create(ctx, exp); err != nil {
			return nil, fmt.Errorf("experiment: create: %w", err)
		}
		experimentID = exp.ID
	}

	limit := r.ExampleLimit
	if limit <= 0 {
		limit = defaultExampleLimit
	}
	examples, _, err := r.Examples.SearchExamples(ctx, "", req.OrganisationID, req.DatasetID, limit, 0, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("experiment: list examples: %w", err)
	}

	comparisonSets := req.ComparisonParameters
	if len(comparisonSets) == 0 {
		comparisonSets = []map[string]string{{}}
	}

	results := make([]ExampleResult, 0, len(examples)*len(comparisonSets))

	// The inner loop over parameter sets must stay strictly sequential per
	// example: it mutates process environment variables shared by every
	// invocation, so concurrent parameter sets would interfere with each
	// other's view of the environment (spec.md section 4.7 step 4).
	for _, example := range examples {
		for _, comparison := range comparisonSets {
			merged := mergeParams(req.Parameters, comparison)
			result := r.runOne(ctx, experimentID, example, merged, req.Engine, req.Scorer)
			results = append(results, result)
		}
	}

	return results, nil
}

func (r *Runner) runOne(ctx context.Context, experimentID string, example domain.Example, params map[string]string, engine EngineFunc, clientScorer ClientScorerFunc) ExampleResult {
	restore := setProcessEnv(params)
	defer restore()

	start := time.Now()
	output, err := engine(ctx, example.Input, params)
	duration := time.Since(start)

	if err != nil {
		if r.Log != nil {
			r.Log.Warn(ctx, "engine invocation failed", "example", example.ID, "error", err)
		}
		return ExampleResult{ExampleID: example.ID, Params: params, Err: err}
	}

	scores := map[string]float64{"duration": float64(duration.Milliseconds())}
	if clientScorer != nil {
		clientScores, err := clientScorer(ctx, example.Input, output, params)
		if err != nil {
			if r.Log != nil {
				r.Log.Warn(ctx, "client scorer failed", "example", example.ID, "error", err)
			}
		} else {
			for k, v := range clientScores {
				scores[k] = v
			}
		}
	}

	resp, err := r.ScoreAndStore.ScoreAndStore(ctx, ScoreAndStoreRequest{
		ExperimentID: experimentID,
		ExampleID:    example.ID,
		TraceID:      example.TraceID,
		Output:       output,
		Scores:       scores,
	})
	if err != nil {
		if r.Log != nil {
			r.Log.Warn(ctx, "scoreAndStore failed", "example", example.ID, "error", err)
		}
		return ExampleResult{ExampleID: example.ID, Params: params, Output: output, Scores: scores, Err: err}
	}

	return ExampleResult{ExampleID: example.ID, Params: params, Output: output, Scores: resp.Scores}
}

// mergeParams combines base parameters with one comparison entry,
// comparison values taking precedence on key collision.
func mergeParams(base map[string]string, comparison map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(comparison))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range comparison {
		merged[k] = v
	}
	return merged
}

// setProcessEnv applies params to the process environment (spec.md section
// 4.7 step 3: "set the process-environment from the merged map
// (string-valued only)") and returns a function that restores the prior
// values. Safe only because the runner's own contract guarantees parameter
// sets run strictly sequentially.
func setProcessEnv(params map[string]string) (restore func()) {
	previous := make(map[string]*string, len(params))
	for k, v := range params {
		if old, ok := os.LookupEnv(k); ok {
			old := old
			previous[k] = &old
		} else {
			previous[k] = nil
		}
		_ = os.Setenv(k, v)
	}
	return func() {
		for k, old := range previous {
			if old == nil {
				_ = os.Unsetenv(k)
			} else {
				_ = os.Setenv(k, *old)
			}
		}
	}
}
