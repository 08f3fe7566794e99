package domain

// Attributes is a flattened key-value bag. Values may be string, float64,
// int64, bool, []any, or map[string]any — OTLP attributes are
// heterogeneously typed, and encoding/json's interface{} decoding already
// gives us the tagged-union shape spec.md section 9 describes, so no
// separate sum type is introduced.
type Attributes map[string]any

// Status is a span's terminal status (spec.md section 3).
type Status struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// Usage carries the token/cost counters rolled up from children (spec.md section 4.3).
type Usage struct {
	TotalTokens       int64   `json:"totalTokens,omitempty"`
	InputTokens       int64   `json:"inputTokens,omitempty"`
	OutputTokens      int64   `json:"outputTokens,omitempty"`
	CachedInputTokens int64   `json:"cachedInputTokens,omitempty"`
	CostUSD           float64 `json:"costUsd,omitempty"`
}

// Add accumulates other into u in place.
func (u *Usage) Add(other Usage) {
	u.TotalTokens += other.TotalTokens
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CachedInputTokens += other.CachedInputTokens
	u.CostUSD += other.CostUSD
}

// Span is one unit of work in a trace, extended with AIQA-specific fields
// (spec.md section 3).
type Span struct {
	ID       string `json:"id"`
	TraceID  string `json:"traceId"`
	ParentID string `json:"parentId,omitempty"`

	OrganisationID string `json:"organisation"`
	Name           string `json:"name"`
	Kind           int    `json:"kind"`
	Status         Status `json:"status"`

	StartMS  int64 `json:"start"`
	EndMS    int64 `json:"end"`
	Duration int64 `json:"duration"`

	Attributes           Attributes `json:"attributes,omitempty"`
	UnindexedAttributes   Attributes `json:"unindexedAttributes,omitempty"`

	Tags        []string       `json:"tags,omitempty"`
	Annotations map[string]any `json:"annotations,omitempty"`

	InputHash string `json:"inputHash,omitempty"`

	// Seen holds hex-encoded fnv-64 hashes of children already rolled into
	// this span's Usage counters (spec.md section 4.3, 9).
	Seen []string `json:"_seen,omitempty"`

	Usage Usage `json:"usage,omitempty"`

	ExperimentID string `json:"experimentId,omitempty"`
	ExampleID    string `json:"exampleId,omitempty"`
}

// IsRoot reports whether the span is a trace root (spec.md section 3 invariant).
func (s *Span) IsRoot() bool { return s.ParentID == "" }

// HasSeen reports whether childHash is already present in Seen.
func (s *Span) HasSeen(childHash string) bool {
	for _, h := range s.Seen {
		if h == childHash {
			return true
		}
	}
	return false
}

// MarkSeen appends childHash to Seen if not already present. Returns true if
// it was newly added.
func (s *Span) MarkSeen(childHash string) bool {
	if s.HasSeen(childHash) {
		return false
	}
	s.Seen = append(s.Seen, childHash)
	return true
}
