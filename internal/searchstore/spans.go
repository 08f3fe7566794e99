package searchstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aiqaio/evalserver/internal/domain"
	"github.com/aiqaio/evalserver/internal/normalize"
	"github.com/aiqaio/evalserver/internal/query"
)

// spanDoc is the on-the-wire document shape: attributes split between the
// indexed and unindexed subtrees per spec.md section 4.3.
type spanDoc struct {
	domain.Span
	Attributes          domain.Attributes `json:"attributes,omitempty"`
	UnindexedAttributes domain.Attributes `json:"unindexed_attributes,omitempty"`
}

func toSpanDoc(s domain.Span) spanDoc {
	indexed, unindexed := normalize.PrepareForIndex(s.Attributes)
	s.Attributes = nil
	s.UnindexedAttributes = nil
	return spanDoc{Span: s, Attributes: indexed, UnindexedAttributes: unindexed}
}

func fromSpanDoc(d spanDoc) domain.Span {
	s := d.Span
	s.Attributes = normalize.MergeForRead(d.Attributes, d.UnindexedAttributes)
	s.UnindexedAttributes = nil
	return s
}

// BulkInsertSpans writes spans to the spans index, one document per span id
// (spec.md section 4.4).
func (c *Client) BulkInsertSpans(ctx context.Context, spans []domain.Span) error {
	lines := make([][]byte, 0, len(spans)*2)
	for _, s := range spans {
		meta, err := json.Marshal(map[string]any{"index": map[string]any{"_index": spansAlias, "_id": s.ID}})
		if err != nil {
			return fmt.Errorf("searchstore: encode bulk meta: %w", err)
		}
		doc, err := json.Marshal(toSpanDoc(s))
		if err != nil {
			return fmt.Errorf("searchstore: encode span %s: %w", s.ID, err)
		}
		lines = append(lines, meta, doc)
	}
	return c.bulk(ctx, spansAlias, lines)
}

type searchHits struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source spanDoc `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchSpans compiles query via the §4.1 compiler, ANDs in an
// organisation filter and an optional dataset filter, and sorts by `start`
// descending by default (spec.md section 4.4).
func (c *Client) SearchSpans(ctx context.Context, q, orgID, datasetID string, limit, offset int, includes, excludes []string) ([]domain.Span, int, error) {
	body := searchBody(q, orgID, datasetID, limit, offset, "start", includes, excludes)
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("searchstore: encode span search: %w", err)
	}
	var resp searchHits
	if err := c.do(ctx, "POST", "/"+spansAlias+"/_search", bytesReader(payload), "application/json", &resp); err != nil {
		return nil, 0, err
	}
	out := make([]domain.Span, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		out = append(out, fromSpanDoc(h.Source))
	}
	return out, resp.Hits.Total.Value, nil
}

// UpdateSpan partially merges patch into the document matching id, and must
// match orgID (spec.md section 4.4).
func (c *Client) UpdateSpan(ctx context.Context, id string, patch map[string]any, orgID string) error {
	return c.update(ctx, spansAlias, id, patch, orgID)
}

// GetSpanByID fetches a single span scoped to orgID, used by the ingestion
// pipeline's deferred parent roll-up (spec.md section 4.5 step 6: "for
// parents not in the batch ... read parents by id scoped to org"). Returns
// nil, nil if no span matches.
func (c *Client) GetSpanByID(ctx context.Context, id, orgID string) (*domain.Span, error) {
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
		return nil, fmt.Errorf("searchstore: encode get span: %w", err)
	}
	var resp searchHits
	if err := c.do(ctx, "POST", "/"+spansAlias+"/_search", bytesReader(payload), "application/json", &resp); err != nil {
		return nil, err
	}
	if len(resp.Hits.Hits) == 0 {
		return nil, nil
	}
	span := fromSpanDoc(resp.Hits.Hits[0].Source)
	return &span, nil
}

func (c *Client) update(ctx context.Context, alias, id string, patch map[string]any, orgID string) error {
	body := map[string]any{
		"script": map[string]any{
			"source": "ctx._source.putAll(params.patch)",
			"params": map[string]any{"patch": patch},
		},
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
		return fmt.Errorf("searchstore: encode update: %w", err)
	}
	return c.do(ctx, "POST", "/"+alias+"/_update_by_query", bytesReader(payload), "application/json", nil)
}

func searchBody(q, orgID, datasetID string, limit, offset int, sortField string, includes, excludes []string) map[string]any {
	filters := []map[string]any{
		{"term": map[string]any{"organisation": orgID}},
	}
	if datasetID != "" {
		filters = append(filters, map[string]any{"term": map[string]any{"dataset": datasetID}})
	}
	dsl := query.ToDSL(query.Parse(q))
	body := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must":   []map[string]any{dsl},
				"filter": filters,
			},
		},
		"sort": []map[string]any{{sortField: map[string]any{"order": "desc"}}},
		"size": limit,
		"from": offset,
	}
	if s := sourceFilter(includes); s != nil {
		body["_source_includes"] = s
	}
	if s := sourceFilter(excludes); s != nil {
		body["_source_excludes"] = s
	}
	return body
}
