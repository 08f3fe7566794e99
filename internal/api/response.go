package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/aiqaio/evalserver/internal/auth"
	evalerrors "github.com/aiqaio/evalserver/internal/errors"
)

const (
	defaultListLimit = 100
	maxRequestBytes  = 8 * 1024 * 1024
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	status, body := evalerrors.ResponseBody(err)
	writeJSON(w, status, body)
}

func writeErrorBody(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, evalerrors.Body{Error: message})
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	return dec.Decode(out)
}

// principal requires an authenticated Principal on the request context; it
// is always present by the time a handler runs unless auth is disabled
// (local/test configurations), in which case callers fall back to an
// org-scoping query parameter.
func principal(r *http.Request) (auth.Principal, bool) {
	return auth.PrincipalFromContext(r.Context())
}

func pagination(r *http.Request) (limit, offset int) {
	limit = defaultListLimit
	offset = 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed >= 0 {
			offset = parsed
		}
	}
	return limit, offset
}

// organisationScope resolves the organisation a list/search request is
// scoped to: the authenticated principal's organisation when auth is
// enabled, otherwise the `organisation` query parameter (spec.md section 6
// names this parameter; scoping it to the principal rather than trusting
// the parameter blindly keeps the query language itself from ever crossing
// a tenant boundary, matching the store layer's own mandatory predicate).
func organisationScope(r *http.Request) string {
	if p, ok := principal(r); ok {
		return p.OrganisationID
	}
	return r.URL.Query().Get("organisation")
}
