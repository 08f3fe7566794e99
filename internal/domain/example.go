package domain

import "time"

// ExampleSpan is a span stripped down for inclusion in an Example's `spans`
// bag (spec.md section 3: "stripped to {id, name, attributes, parent}").
type ExampleSpan struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Attributes Attributes `json:"attributes,omitempty"`
	ParentID   string     `json:"parent,omitempty"`
}

// Outputs is the good/bad reference pair a Metric may compare against
// (spec.md section 3).
type Outputs struct {
	Good any `json:"good,omitempty"`
	Bad  any `json:"bad,omitempty"`
}

// Example is one test case in a Dataset (spec.md section 3). Exactly one of
// Spans or Input should be set.
type Example struct {
	ID             string `json:"id"`
	DatasetID      string `json:"dataset"`
	OrganisationID string `json:"organisation"`
	TraceID        string `json:"trace,omitempty"`

	Name        string         `json:"name,omitempty"`
	Tags        []string       `json:"tags,omitempty"`
	Annotations map[string]any `json:"annotations,omitempty"`

	Spans []ExampleSpan `json:"spans,omitempty"`
	Input any           `json:"input,omitempty"`

	Outputs *Outputs `json:"outputs,omitempty"`
	Metrics []Metric  `json:"metrics,omitempty"`

	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"updated"`
}

// Validate enforces the section 3 invariants that don't depend on other
// examples (the (trace, dataset) uniqueness check is the store's job, since
// it needs to see other rows).
func (e *Example) Validate() error {
	for _, s := range e.Spans {
		if s.ID == "" {
			return errMissingSpanID
		}
	}
	return nil
}
