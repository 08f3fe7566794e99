package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/aiqaio/evalserver/internal/domain"
	evalerrors "github.com/aiqaio/evalserver/internal/errors"
	"github.com/aiqaio/evalserver/internal/query"
	"github.com/aiqaio/evalserver/internal/store"
)

// Dataset endpoints are a thin passthrough over store.DatasetStore (spec.md
// section 1: dataset CRUD is "thin glue over the core"); no scoring or
// experiment logic lives here.

func (h *handlers) createDataset(w http.ResponseWriter, r *http.Request) {
	var ds domain.Dataset
	if err := decodeJSONBody(w, r, &ds); err != nil {
		writeError(w, evalerrors.Wrap(evalerrors.KindValidation, "malformed request body", err))
		return
	}
	if ds.ID == "" {
		ds.ID = uuid.NewString()
	}
	if p, ok := principal(r); ok {
		ds.OrganisationID = p.OrganisationID
	}
	if ds.OrganisationID == "" || ds.Name == "" {
		writeError(w, evalerrors.New(evalerrors.KindValidation, "organisation and name are required"))
		return
	}
	if err := h.deps.Datasets.Create(r.Context(), &ds); err != nil {
		writeError(w, evalerrors.Wrap(evalerrors.KindUnavailable, "could not create dataset", err))
		return
	}
	writeJSON(w, http.StatusCreated, &ds)
}

func (h *handlers) getDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := h.resolveDataset(r, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}

func (h *handlers) updateDataset(w http.ResponseWriter, r *http.Request) {
	ds, err := h.resolveDataset(r, mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	var patch domain.Dataset
	if err := decodeJSONBody(w, r, &patch); err != nil {
		writeError(w, evalerrors.Wrap(evalerrors.KindValidation, "malformed request body", err))
		return
	}
	patch.ID = ds.ID
	patch.OrganisationID = ds.OrganisationID
	if err := h.deps.Datasets.Update(r.Context(), &patch); err != nil {
		writeError(w, evalerrors.Wrap(evalerrors.KindUnavailable, "could not update dataset", err))
		return
	}
	writeJSON(w, http.StatusOK, &patch)
}

func (h *handlers) deleteDataset(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.resolveDataset(r, id); err != nil {
		writeError(w, err)
		return
	}
	if err := h.deps.Datasets.Delete(r.Context(), id); err != nil {
		writeError(w, evalerrors.Wrap(evalerrors.KindUnavailable, "could not delete dataset", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) listDatasets(w http.ResponseWriter, r *http.Request) {
	orgID := organisationScope(r)
	if orgID == "" {
		writeError(w, evalerrors.New(evalerrors.KindValidation, "organisation is required"))
		return
	}
	ast := query.Parse(r.URL.Query().Get("q"))
	limit, offset := pagination(r)

	results, total, err := h.deps.Datasets.List(r.Context(), orgID, ast, limit, offset)
	if err != nil {
		writeError(w, evalerrors.Wrap(evalerrors.KindUnavailable, "could not list datasets", err))
		return
	}
	writeJSON(w, http.StatusOK, listResponse[*domain.Dataset]{Results: results, Total: total})
}

func (h *handlers) resolveDataset(r *http.Request, id string) (*domain.Dataset, error) {
	ds, err := h.deps.Datasets.Get(r.Context(), id)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, evalerrors.New(evalerrors.KindNotFound, "dataset not found")
		}
		return nil, evalerrors.Wrap(evalerrors.KindUnavailable, "could not resolve dataset", err)
	}
	if p, ok := principal(r); ok && ds.OrganisationID != p.OrganisationID {
		return nil, evalerrors.New(evalerrors.KindAuthorisation, "dataset belongs to a different organisation")
	}
	return ds, nil
}
