package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/aiqaio/evalserver/internal/domain"
	evalerrors "github.com/aiqaio/evalserver/internal/errors"
	"github.com/aiqaio/evalserver/internal/experiment"
	"github.com/aiqaio/evalserver/internal/query"
	"github.com/aiqaio/evalserver/internal/store"
)

// createExperimentRequest mirrors spec.md section 6's create body:
// "{dataset, organisation, name?, batch?, parameters?}".
type createExperimentRequest struct {
	Dataset      string            `json:"dataset"`
	Organisation string            `json:"organisation"`
	Name         string            `json:"name,omitempty"`
	Batch        string            `json:"batch,omitempty"`
	Parameters   map[string]string `json:"parameters,omitempty"`
}

func (h *handlers) createExperiment(w http.ResponseWriter, r *http.Request) {
	var req createExperimentRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		writeError(w, evalerrors.Wrap(evalerrors.KindValidation, "malformed request body", err))
		return
	}
	if req.Dataset == "" || req.Organisation == "" {
		writeError(w, evalerrors.New(evalerrors.KindValidation, "dataset and organisation are required"))
		return
	}
	if p, ok := principal(r); ok && p.OrganisationID != req.Organisation {
		writeError(w, evalerrors.New(evalerrors.KindAuthorisation, "cannot create an experiment for another organisation"))
		return
	}

	exp := &domain.Experiment{
		ID:             uuid.NewString(),
		DatasetID:      req.Dataset,
		OrganisationID: req.Organisation,
		BatchID:        req.Batch,
		Name:           req.Name,
		Parameters:     req.Parameters,
		Status:         domain.ExperimentOpen,
	}
	if err := h.deps.Experiments.Create(r.Context(), exp); err != nil {
		writeError(w, evalerrors.Wrap(evalerrors.KindUnavailable, "could not create experiment", err))
		return
	}
	writeJSON(w, http.StatusCreated, exp)
}

func (h *handlers) getExperiment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	exp, err := h.resolveExperiment(r, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

func (h *handlers) updateExperiment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	exp, err := h.resolveExperiment(r, id)
	if err != nil {
		writeError(w, err)
		return
	}

	var patch struct {
		Name       *string                  `json:"name,omitempty"`
		Status     *domain.ExperimentStatus `json:"status,omitempty"`
		Parameters map[string]string        `json:"parameters,omitempty"`
	}
	if err := decodeJSONBody(w, r, &patch); err != nil {
		writeError(w, evalerrors.Wrap(evalerrors.KindValidation, "malformed request body", err))
		return
	}
	if patch.Name != nil {
		exp.Name = *patch.Name
	}
	if patch.Status != nil {
		exp.Status = *patch.Status
	}
	if patch.Parameters != nil {
		exp.Parameters = patch.Parameters
	}

	if err := h.deps.Experiments.Update(r.Context(), exp); err != nil {
		writeError(w, evalerrors.Wrap(evalerrors.KindUnavailable, "could not update experiment", err))
		return
	}
	writeJSON(w, http.StatusOK, exp)
}

func (h *handlers) deleteExperiment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.resolveExperiment(r, id); err != nil {
		writeError(w, err)
		return
	}
	if err := h.deps.Experiments.Delete(r.Context(), id); err != nil {
		writeError(w, evalerrors.Wrap(evalerrors.KindUnavailable, "could not delete experiment", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listExperiments implements `GET /experiment?organisation=…&q=…&limit&offset`
// (spec.md section 6), q compiled by the section 4.1 query language.
func (h *handlers) listExperiments(w http.ResponseWriter, r *http.Request) {
	orgID := organisationScope(r)
	if orgID == "" {
		writeError(w, evalerrors.New(evalerrors.KindValidation, "organisation is required"))
		return
	}
	ast := query.Parse(r.URL.Query().Get("q"))
	limit, offset := pagination(r)

	results, total, err := h.deps.Experiments.List(r.Context(), orgID, ast, limit, offset)
	if err != nil {
		writeError(w, evalerrors.Wrap(evalerrors.KindUnavailable, "could not list experiments", err))
		return
	}
	writeJSON(w, http.StatusOK, listResponse[*domain.Experiment]{Results: results, Total: total})
}

// scoreAndStore implements `POST /experiment/:id/example/:exampleid/scoreAndStore`.
func (h *handlers) scoreAndStore(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var body struct {
		Output  any                `json:"output"`
		TraceID string             `json:"traceId,omitempty"`
		Scores  map[string]float64 `json:"scores,omitempty"`
	}
	if err := decodeJSONBody(w, r, &body); err != nil {
		writeError(w, evalerrors.Wrap(evalerrors.KindValidation, "malformed request body", err))
		return
	}

	resp, err := h.deps.Scoring.ScoreAndStore(r.Context(), experiment.ScoreAndStoreRequest{
		ExperimentID: vars["id"],
		ExampleID:    vars["exampleId"],
		TraceID:      body.TraceID,
		Output:       body.Output,
		Scores:       body.Scores,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// resolveExperiment fetches an experiment by id and enforces organisation
// ownership the way the scoreAndStore endpoint does (spec.md section 4.7
// steps 1-2, reused here for the plain CRUD endpoints).
func (h *handlers) resolveExperiment(r *http.Request, id string) (*domain.Experiment, error) {
	exp, err := h.deps.Experiments.Get(r.Context(), id)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, evalerrors.New(evalerrors.KindNotFound, "experiment not found")
		}
		return nil, evalerrors.Wrap(evalerrors.KindUnavailable, "could not resolve experiment", err)
	}
	if p, ok := principal(r); ok && exp.OrganisationID != p.OrganisationID {
		return nil, evalerrors.New(evalerrors.KindAuthorisation, "experiment belongs to a different organisation")
	}
	return exp, nil
}

type listResponse[T any] struct {
	Results []T `json:"results"`
	Total   int `json:"total"`
}
