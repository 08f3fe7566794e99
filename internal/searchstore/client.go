// Package searchstore adapts an Elasticsearch-compatible search engine to
// the span/example storage operations of spec.md section 4.4. Two logical
// indices (spans, examples) are addressed through aliases so that a schema
// migration can build a `_vN+1` index, reindex, and flip the alias
// atomically without request-path code ever seeing the underlying name.
package searchstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	spansAlias    = "spans"
	examplesAlias = "examples"
)

// Client is a thin REST client over an Elasticsearch-compatible engine,
// shaped after the teacher's provider HTTP clients: a typed struct wrapping
// a base URL and an *http.Client, one method per remote operation.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client against baseURL (spec.md's ELASTICSEARCH_URL).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("searchstore: build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("searchstore: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("searchstore: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("searchstore: %s %s: status %d: %s", method, path, resp.StatusCode, string(payload))
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("searchstore: decode response: %w", err)
	}
	return nil
}

// DeleteIndex is administrative and is never called from a request path
// (spec.md section 4.4).
func (c *Client) DeleteIndex(ctx context.Context, name string) error {
	return c.do(ctx, http.MethodDelete, "/"+name, nil, "", nil)
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int    `json:"status"`
		Error  *struct {
			Reason string `json:"reason"`
		} `json:"error,omitempty"`
	} `json:"items"`
}

// bulk executes an NDJSON _bulk request against alias.
func (c *Client) bulk(ctx context.Context, alias string, lines [][]byte) error {
	if len(lines) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, l := range lines {
		buf.Write(l)
		buf.WriteByte('\n')
	}
	var resp bulkResponse
	if err := c.do(ctx, http.MethodPost, "/"+alias+"/_bulk", &buf, "application/x-ndjson", &resp); err != nil {
		return err
	}
	if resp.Errors {
		for _, item := range resp.Items {
			for _, result := range item {
				if result.Error != nil {
					return fmt.Errorf("searchstore: bulk insert into %s: %s", alias, result.Error.Reason)
				}
			}
		}
		return fmt.Errorf("searchstore: bulk insert into %s failed", alias)
	}
	return nil
}
