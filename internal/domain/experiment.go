package domain

import "time"

// ExperimentStatus is open while a run accepts new results, closed once finished.
type ExperimentStatus string

const (
	ExperimentOpen   ExperimentStatus = "open"
	ExperimentClosed ExperimentStatus = "closed"
)

// Summary is the running mean/variance/min/max/count for one metric,
// maintained online via Welford's algorithm (spec.md section 3, 8).
type Summary struct {
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Var   float64 `json:"var"`
	Count int     `json:"count"`

	// m2 is Welford's running sum of squared deviations; it is the
	// intermediate state variance is derived from and is not itself part
	// of the spec.md Experiment shape, so it is not serialised.
	m2 float64
}

// Result is one example's scoring outcome within an Experiment (spec.md section 3).
type Result struct {
	ExampleID  string             `json:"exampleId"`
	TraceID    string             `json:"traceId,omitempty"`
	Scores     map[string]float64 `json:"scores"`
	Messages   map[string]string  `json:"messages,omitempty"`
	Errors     map[string]string  `json:"errors,omitempty"`
	RateLimited bool              `json:"rateLimited,omitempty"`
}

// Experiment is one run of a Dataset through user code with a particular
// parameter set (spec.md section 3).
type Experiment struct {
	ID             string `json:"id"`
	DatasetID      string `json:"dataset"`
	OrganisationID string `json:"organisation"`
	BatchID        string `json:"batch,omitempty"`
	Name           string `json:"name,omitempty"`

	Parameters map[string]string `json:"parameters,omitempty"`

	// ComparisonParameters is deprecated in spirit (spec.md section 9, Open
	// Question ii) but still honoured by the runner: the client iterates
	// Parameters merged with each entry here (defaulting to a single empty
	// map), as a precursor to batch-linked experiments.
	ComparisonParameters []map[string]string `json:"comparisonParameters,omitempty"`

	Status ExperimentStatus `json:"status"`

	Summaries map[string]*Summary `json:"summaries,omitempty"`
	Results   []Result            `json:"results,omitempty"`
	TraceIDs  []string            `json:"traceIds,omitempty"`

	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"updated"`
}

// Update folds a new observation into the summary using Welford's online
// algorithm (spec.md section 8: mean/variance/min/max/count consistent with
// the full result set without ever rescanning it).
func (s *Summary) Update(x float64) {
	s.Count++
	if s.Count == 1 {
		s.Mean = x
		s.Min = x
		s.Max = x
		s.m2 = 0
		s.Var = 0
		return
	}
	delta := x - s.Mean
	s.Mean += delta / float64(s.Count)
	s.m2 += delta * (x - s.Mean)
	s.Var = s.m2 / float64(s.Count-1)
	if x < s.Min {
		s.Min = x
	}
	if x > s.Max {
		s.Max = x
	}
}

// NewSummary returns a zero-value Summary ready for Update.
func NewSummary() *Summary { return &Summary{} }

// RecalculateSummaries rebuilds Summaries from scratch across all Results,
// rather than folding in a single new observation (spec.md section 4.7's
// full-recompute operation, used after edits or deletions that Update's
// incremental path can't reverse).
func (e *Experiment) RecalculateSummaries() {
	summaries := make(map[string]*Summary, len(e.Summaries))
	for _, result := range e.Results {
		if result.RateLimited {
			continue
		}
		for metricID, score := range result.Scores {
			summary, ok := summaries[metricID]
			if !ok {
				summary = NewSummary()
				summaries[metricID] = summary
			}
			summary.Update(score)
		}
	}
	e.Summaries = summaries
}

// ResultByExample returns a pointer to the Result for exampleID, if present.
func (e *Experiment) ResultByExample(exampleID string) *Result {
	for i := range e.Results {
		if e.Results[i].ExampleID == exampleID {
			return &e.Results[i]
		}
	}
	return nil
}
