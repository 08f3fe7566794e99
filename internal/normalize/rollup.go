package normalize

import (
	"hash/fnv"
	"strconv"

	"github.com/aiqaio/evalserver/internal/domain"
)

// ContentHash fingerprints a child span's content for the parent's `_seen`
// set, so that re-ingesting the same batch does not double-count usage
// (spec.md section 4.3). Grounded on the teacher's fnv-based bucketing
// helper, widened from 32- to 64-bit since this hash guards data
// correctness rather than picking a percentile bucket.
func ContentHash(s *domain.Span) string {
	h := fnv.New64a()
	h.Write([]byte(s.ID))
	h.Write([]byte{0})
	h.Write([]byte(s.InputHash))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(s.EndMS, 10)))
	return strconv.FormatUint(h.Sum64(), 16)
}

// RollUp folds child's usage counters into parent, guarded by parent's
// `_seen` set so a repeat ingest of the same child is a no-op (spec.md
// section 4.3: "If the hash is already present, skip").
func RollUp(parent, child *domain.Span) {
	hash := ContentHash(child)
	if !parent.MarkSeen(hash) {
		return
	}
	parent.Usage.Add(child.Usage)
}
