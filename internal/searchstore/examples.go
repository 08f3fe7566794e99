package searchstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aiqaio/evalserver/internal/domain"
)

// ErrDuplicateExample is returned by CreateExample when an example with the
// same (trace, dataset) pair already exists for the organisation (spec.md
// section 6: "rejects duplicates by (trace, dataset) with 409").
var ErrDuplicateExample = errors.New("searchstore: duplicate (trace, dataset)")

type exampleDoc struct {
	domain.Example
	Attributes          domain.Attributes `json:"attributes,omitempty"`
	UnindexedAttributes domain.Attributes `json:"unindexed_attributes,omitempty"`
}

// BulkInsertExamples writes examples to the examples index, one document
// per example id. Uniqueness of (trace, dataset) is the caller's
// responsibility (spec.md section 4.4, 4.7).
func (c *Client) BulkInsertExamples(ctx context.Context, examples []domain.Example) error {
	lines := make([][]byte, 0, len(examples)*2)
	for _, e := range examples {
		meta, err := json.Marshal(map[string]any{"index": map[string]any{"_index": examplesAlias, "_id": e.ID}})
		if err != nil {
			return fmt.Errorf("searchstore: encode bulk meta: %w", err)
		}
		doc, err := json.Marshal(exampleDoc{Example: e})
		if err != nil {
			return fmt.Errorf("searchstore: encode example %s: %w", e.ID, err)
		}
		lines = append(lines, meta, doc)
	}
	return c.bulk(ctx, examplesAlias, lines)
}

// CreateExample inserts a single example after checking the (trace,
// dataset) uniqueness invariant within the example's organisation (spec.md
// section 3, 6). Examples with an empty TraceID are never considered
// duplicates of one another, since uniqueness is scoped to real traces.
func (c *Client) CreateExample(ctx context.Context, example domain.Example) error {
	if example.TraceID != "" {
		existing, _, err := c.findByTraceAndDataset(ctx, example.TraceID, example.DatasetID, example.OrganisationID)
		if err != nil {
			return err
		}
		if existing {
			return ErrDuplicateExample
		}
	}
	return c.BulkInsertExamples(ctx, []domain.Example{example})
}

func (c *Client) findByTraceAndDataset(ctx context.Context, traceID, datasetID, orgID string) (bool, int, error) {
	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": []map[string]any{
					{"term": map[string]any{"trace": traceID}},
					{"term": map[string]any{"dataset": datasetID}},
					{"term": map[string]any{"organisation": orgID}},
				},
			},
		},
		"size": 0,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return false, 0, fmt.Errorf("searchstore: encode duplicate check: %w", err)
	}
	var resp exampleSearchHits
	if err := c.do(ctx, "POST", "/"+examplesAlias+"/_search", bytesReader(payload), "application/json", &resp); err != nil {
		return false, 0, err
	}
	return resp.Hits.Total.Value > 0, resp.Hits.Total.Value, nil
}

// DeleteExample removes the example matching id, scoped to orgID.
func (c *Client) DeleteExample(ctx context.Context, id, orgID string) error {
	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": []map[string]any{
					{"term": map[string]any{"_id": id}},
					{"term": map[string]any{"organisation": orgID}},
				},
			},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("searchstore: encode delete: %w", err)
	}
	return c.do(ctx, "POST", "/"+examplesAlias+"/_delete_by_query", bytesReader(payload), "application/json", nil)
}

type exampleSearchHits struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source exampleDoc `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchExamples mirrors SearchSpans, sorted by `created` descending by
// default (spec.md section 4.4).
func (c *Client) SearchExamples(ctx context.Context, q, orgID, datasetID string, limit, offset int, includes, excludes []string) ([]domain.Example, int, error) {
	body := searchBody(q, orgID, datasetID, limit, offset, "created", includes, excludes)
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("searchstore: encode example search: %w", err)
	}
	var resp exampleSearchHits
	if err := c.do(ctx, "POST", "/"+examplesAlias+"/_search", bytesReader(payload), "application/json", &resp); err != nil {
		return nil, 0, err
	}
	out := make([]domain.Example, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		out = append(out, h.Source.Example)
	}
	return out, resp.Hits.Total.Value, nil
}

// UpdateExample partially merges patch into the document matching id, and
// must match orgID (spec.md section 4.4).
func (c *Client) UpdateExample(ctx context.Context, id string, patch map[string]any, orgID string) error {
	return c.update(ctx, examplesAlias, id, patch, orgID)
}

// GetExampleByID fetches a single example scoped to orgID, used by
// scoreAndStore's example resolution (spec.md section 4.7 step 3: "resolve
// example (by id within dataset); 404 if absent"). Returns nil, nil if no
// example matches.
func (c *Client) GetExampleByID(ctx context.Context, id, orgID string) (*domain.Example, error) {
	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": []map[string]any{
					{"term": map[string]any{"_id": id}},
					{"term": map[string]any{"organisation": orgID}},
				},
			},
		},
		"size": 1,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("searchstore: encode get example: %w", err)
	}
	var resp exampleSearchHits
	if err := c.do(ctx, "POST", "/"+examplesAlias+"/_search", bytesReader(payload), "application/json", &resp); err != nil {
		return nil, err
	}
	if len(resp.Hits.Hits) == 0 {
		return nil, nil
	}
	example := resp.Hits.Hits[0].Source.Example
	return &example, nil
}
