// Package experiment implements the server-side scoreAndStore endpoint and
// the client-side experiment runner (spec.md section 4.7), grounded on
// haasonsaas-nexus's internal/web handler shape (resolve → authorise →
// resolve sub-resource → do the work → typed response) for the server
// side, and its agent-loop sequential-step pattern for the client side.
package experiment

import (
	"context"

	"github.com/aiqaio/evalserver/internal/auth"
	"github.com/aiqaio/evalserver/internal/domain"
	evalerrors "github.com/aiqaio/evalserver/internal/errors"
	"github.com/aiqaio/evalserver/internal/observability"
	"github.com/aiqaio/evalserver/internal/scorer"
	"github.com/aiqaio/evalserver/internal/searchstore"
	"github.com/aiqaio/evalserver/internal/store"
)

// ExampleFetcher is the subset of searchstore.Client the scoring endpoint
// needs; declared locally so tests can substitute a fake without spinning
// up an httptest server.
type ExampleFetcher interface {
	GetExampleByID(ctx context.Context, id, orgID string) (*domain.Example, error)
}

var _ ExampleFetcher = (*searchstore.Client)(nil)

// Service implements the scoreAndStore endpoint.
type Service struct {
	Datasets    store.DatasetStore
	Experiments store.ExperimentStore
	Examples    ExampleFetcher
	Scorer      *scorer.Scorer
	Log         *observability.Logger
}

// ScoreAndStoreRequest carries the caller-supplied output and any
// client-computed scores for one example within an experiment.
type ScoreAndStoreRequest struct {
	ExperimentID string
	ExampleID    string
	TraceID      string
	Output       any
	Scores       map[string]float64
	RateLimited  bool
}

// ScoreAndStoreResponse is returned verbatim to the client (spec.md section
// 4.7 step 8: "{success, scores, exampleId}").
type ScoreAndStoreResponse struct {
	Success   bool               `json:"success"`
	Scores    map[string]float64 `json:"scores"`
	ExampleID string             `json:"exampleId"`
}

// ScoreAndStore implements spec.md section 4.7's server-side steps 1-8.
func (s *Service) ScoreAndStore(ctx context.Context, req ScoreAndStoreRequest) (*ScoreAndStoreResponse, error) {
	principal, ok := auth.PrincipalFromContext(ctx)
	if !ok {
		return nil, evalerrors.New(evalerrors.KindAuthentication, "missing credentials")
	}

	exp, err := s.Experiments.Get(ctx, req.ExperimentID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, evalerrors.New(evalerrors.KindNotFound, "experiment not found")
		}
		return nil, evalerrors.Wrap(evalerrors.KindUnavailable, "could not resolve experiment", err)
	}

	if exp.OrganisationID != principal.OrganisationID {
		return nil, evalerrors.New(evalerrors.KindAuthorisation, "experiment belongs to a different organisation")
	}

	example, err := s.Examples.GetExampleByID(ctx, req.ExampleID, principal.OrganisationID)
	if err != nil {
		return nil, evalerrors.Wrap(evalerrors.KindUnavailable, "could not resolve example", err)
	}
	if example == nil {
		return nil, evalerrors.New(evalerrors.KindNotFound, "example not found")
	}

	dataset, err := s.Datasets.Get(ctx, exp.DatasetID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, evalerrors.New(evalerrors.KindNotFound, "dataset not found")
		}
		return nil, evalerrors.Wrap(evalerrors.KindUnavailable, "could not resolve dataset", err)
	}

	metrics := mergeMetrics(dataset.Metrics, example.Metrics)

	scores := make(map[string]float64, len(metrics))
	errs := make(map[string]string)

	for _, metric := range metrics {
		if value, ok := req.Scores[metric.ID]; ok {
			scores[metric.ID] = value
			continue
		}
		if !metric.RequiresComputation() {
			continue
		}
		value, err := s.Scorer.Score(ctx, metric, req.Output, *example)
		if err != nil {
			errs[metric.ID] = err.Error()
			if s.Log != nil {
				s.Log.Warn(ctx, "metric scoring failed", "metric", metric.ID, "experiment", req.ExperimentID, "error", err)
			}
			continue
		}
		scores[metric.ID] = value
	}

	result := domain.Result{
		ExampleID:   req.ExampleID,
		TraceID:     req.TraceID,
		Scores:      scores,
		RateLimited: req.RateLimited,
	}
	if len(errs) > 0 {
		result.Errors = errs
	}

	if _, err := s.Experiments.UpsertResult(ctx, req.ExperimentID, result); err != nil {
		return nil, evalerrors.Wrap(evalerrors.KindUnavailable, "could not persist result", err)
	}

	return &ScoreAndStoreResponse{Success: true, Scores: scores, ExampleID: req.ExampleID}, nil
}

// mergeMetrics combines dataset-level and example-specific metrics (spec.md
// section 4.7 step 4), example metrics taking precedence on id collision.
func mergeMetrics(datasetMetrics, exampleMetrics []domain.Metric) []domain.Metric {
	byID := make(map[string]domain.Metric, len(datasetMetrics)+len(exampleMetrics))
	order := make([]string, 0, len(datasetMetrics)+len(exampleMetrics))
	for _, m := range datasetMetrics {
		byID[m.ID] = m
		order = append(order, m.ID)
	}
	for _, m := range exampleMetrics {
		if _, exists := byID[m.ID]; !exists {
			order = append(order, m.ID)
		}
		byID[m.ID] = m
	}
	out := make([]domain.Metric, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}
