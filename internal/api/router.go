// Package api wires the REST surface spec.md section 6 names (experiment,
// example, and dataset endpoints) onto a gorilla/mux router, following the
// teacher's HttpServer shape: a router built once at startup, middlewares
// applied in order, then wrapped in gziphandler before being handed to
// net/http. Dataset endpoints are deliberately thin (spec.md section 1:
// dataset CRUD is "thin glue over the core"); experiment and example
// endpoints carry the core logic.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/NYTimes/gziphandler"
	"github.com/gorilla/mux"

	"github.com/aiqaio/evalserver/internal/auth"
	"github.com/aiqaio/evalserver/internal/domain"
	"github.com/aiqaio/evalserver/internal/experiment"
	"github.com/aiqaio/evalserver/internal/observability"
	"github.com/aiqaio/evalserver/internal/searchstore"
	"github.com/aiqaio/evalserver/internal/store"
)

// ExampleStore is the subset of searchstore.Client the example endpoints
// need, declared locally so tests can substitute a fake without an
// httptest Elasticsearch stub.
type ExampleStore interface {
	CreateExample(ctx context.Context, example domain.Example) error
	SearchExamples(ctx context.Context, q, orgID, datasetID string, limit, offset int, includes, excludes []string) ([]domain.Example, int, error)
}

var _ ExampleStore = (*searchstore.Client)(nil)

// Scorer is the subset of experiment.Service the scoreAndStore endpoint
// needs, declared locally for the same reason.
type Scorer interface {
	ScoreAndStore(ctx context.Context, req experiment.ScoreAndStoreRequest) (*experiment.ScoreAndStoreResponse, error)
}

var _ Scorer = (*experiment.Service)(nil)

// Deps are the dependencies the REST surface needs, assembled once at boot.
type Deps struct {
	Datasets    store.DatasetStore
	Experiments store.ExperimentStore
	Examples    ExampleStore
	Scoring     Scorer
	Auth        *auth.Service
	Log         *slog.Logger
	Tracer      *observability.Tracer
}

// NewRouter builds the REST router and wraps it in gzip compression the way
// the teacher's HttpServer does (gziphandler.GzipHandler(r)).
func NewRouter(deps Deps) http.Handler {
	r := mux.NewRouter()
	if deps.Tracer != nil {
		r.Use(traceMiddleware(deps.Tracer))
	}
	r.Use(auth.HTTPMiddleware(deps.Auth, deps.Log))

	h := &handlers{deps: deps}

	r.HandleFunc("/experiment", h.createExperiment).Methods(http.MethodPost)
	r.HandleFunc("/experiment", h.listExperiments).Methods(http.MethodGet)
	r.HandleFunc("/experiment/{id}", h.getExperiment).Methods(http.MethodGet)
	r.HandleFunc("/experiment/{id}", h.updateExperiment).Methods(http.MethodPut)
	r.HandleFunc("/experiment/{id}", h.deleteExperiment).Methods(http.MethodDelete)
	r.HandleFunc("/experiment/{id}/example/{exampleId}/scoreAndStore", h.scoreAndStore).Methods(http.MethodPost)

	r.HandleFunc("/example", h.createExample).Methods(http.MethodPost)
	r.HandleFunc("/example", h.listExamples).Methods(http.MethodGet)

	r.HandleFunc("/dataset", h.createDataset).Methods(http.MethodPost)
	r.HandleFunc("/dataset", h.listDatasets).Methods(http.MethodGet)
	r.HandleFunc("/dataset/{id}", h.getDataset).Methods(http.MethodGet)
	r.HandleFunc("/dataset/{id}", h.updateDataset).Methods(http.MethodPut)
	r.HandleFunc("/dataset/{id}", h.deleteDataset).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	return gziphandler.GzipHandler(r)
}

// traceMiddleware wraps every request in a span named after its method and
// route template (spec.md section 6's REST surface).
func traceMiddleware(tracer *observability.Tracer) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if route := mux.CurrentRoute(r); route != nil {
				if tmpl, err := route.GetPathTemplate(); err == nil {
					path = tmpl
				}
			}
			ctx, span := tracer.TraceHTTPRequest(r.Context(), r.Method, path)
			defer span.End()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type handlers struct {
	deps Deps
}

func notFound(w http.ResponseWriter, r *http.Request) {
	writeErrorBody(w, http.StatusNotFound, "not found")
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeErrorBody(w, http.StatusMethodNotAllowed, "method not allowed")
}
