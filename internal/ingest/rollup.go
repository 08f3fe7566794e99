package ingest

import (
	"github.com/aiqaio/evalserver/internal/domain"
	"github.com/aiqaio/evalserver/internal/normalize"
)

// rollUpWithinBatch computes parent/child roll-ups for every child whose
// parent is present in the same ingestion batch, in document order (spec.md
// section 4.5 step 6, section 5: "computed before insertion"). Children
// whose parent is not in the batch are left for the deferred path.
func rollUpWithinBatch(spans []domain.Span) map[string]bool {
	byID := make(map[string]*domain.Span, len(spans))
	for i := range spans {
		byID[spans[i].ID] = &spans[i]
	}
	rolledUp := make(map[string]bool, len(spans))
	for i := range spans {
		child := &spans[i]
		if child.ParentID == "" {
			continue
		}
		if parent, ok := byID[child.ParentID]; ok {
			normalize.RollUp(parent, child)
			rolledUp[child.ID] = true
		}
	}
	return rolledUp
}
