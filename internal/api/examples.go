package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/aiqaio/evalserver/internal/domain"
	evalerrors "github.com/aiqaio/evalserver/internal/errors"
	"github.com/aiqaio/evalserver/internal/searchstore"
)

// createExample implements `POST /example` (spec.md section 6): "server
// generates UUID if id absent or empty; rejects non-UUID-format ids with
// 400; rejects duplicates by (trace, dataset) with 409".
func (h *handlers) createExample(w http.ResponseWriter, r *http.Request) {
	var example domain.Example
	if err := decodeJSONBody(w, r, &example); err != nil {
		writeError(w, evalerrors.Wrap(evalerrors.KindValidation, "malformed request body", err))
		return
	}
	if strings.TrimSpace(example.ID) == "" {
		example.ID = uuid.NewString()
	} else if _, err := uuid.Parse(example.ID); err != nil {
		writeError(w, evalerrors.New(evalerrors.KindValidation, "id must be a valid UUID"))
		return
	}
	if example.DatasetID == "" {
		writeError(w, evalerrors.New(evalerrors.KindValidation, "dataset is required"))
		return
	}
	if p, ok := principal(r); ok {
		example.OrganisationID = p.OrganisationID
	}
	if err := example.Validate(); err != nil {
		writeError(w, evalerrors.Wrap(evalerrors.KindValidation, "invalid example", err))
		return
	}

	if err := h.deps.Examples.CreateExample(r.Context(), example); err != nil {
		if err == searchstore.ErrDuplicateExample {
			writeError(w, evalerrors.New(evalerrors.KindConflict, `duplicate example for trace "`+example.TraceID+`" and dataset "`+example.DatasetID+`"`))
			return
		}
		writeError(w, evalerrors.Wrap(evalerrors.KindUnavailable, "could not create example", err))
		return
	}
	writeJSON(w, http.StatusCreated, example)
}

// listExamples implements `GET /example?organisation=…&dataset=…&q=…&limit=100&offset=0`.
func (h *handlers) listExamples(w http.ResponseWriter, r *http.Request) {
	orgID := organisationScope(r)
	if orgID == "" {
		writeError(w, evalerrors.New(evalerrors.KindValidation, "organisation is required"))
		return
	}
	datasetID := r.URL.Query().Get("dataset")
	limit, offset := pagination(r)

	results, total, err := h.deps.Examples.SearchExamples(r.Context(), r.URL.Query().Get("q"), orgID, datasetID, limit, offset, nil, nil)
	if err != nil {
		writeError(w, evalerrors.Wrap(evalerrors.KindUnavailable, "could not list examples", err))
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.Example]{Results: results, Total: total})
}
