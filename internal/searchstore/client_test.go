package searchstore

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aiqaio/evalserver/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkInsertSpansPostsNDJSON(t *testing.T) {
	var gotPath, gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"errors":false,"items":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.BulkInsertSpans(context.Background(), []domain.Span{
		{ID: "s1", OrganisationID: "org1", Name: "root"},
	})
	require.NoError(t, err)
	assert.Equal(t, "/spans/_bulk", gotPath)
	assert.Equal(t, "application/x-ndjson", gotContentType)
	assert.Contains(t, string(gotBody), `"_id":"s1"`)
}

func TestBulkInsertSpansSurfacesEngineError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":true,"items":[{"index":{"status":400,"error":{"reason":"mapper error"}}}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.BulkInsertSpans(context.Background(), []domain.Span{{ID: "s1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mapper error")
}

func TestSearchSpansFiltersByOrgAndDataset(t *testing.T) {
	var reqBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &reqBody)
		w.Write([]byte(`{"hits":{"total":{"value":0},"hits":[]}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, _, err := c.SearchSpans(context.Background(), "name:foo", "org1", "ds1", 10, 0, nil, nil)
	require.NoError(t, err)

	b, ok := reqBody["query"].(map[string]any)["bool"].(map[string]any)
	require.True(t, ok)
	filters, ok := b["filter"].([]any)
	require.True(t, ok)
	assert.Len(t, filters, 2)
}

func TestSearchSpansMergesUnindexedAttributes(t *testing.T) {
	hit := `{"hits":{"total":{"value":1},"hits":[{"_source":{"id":"s1","attributes":{"input":{"value":"hi"}},"unindexed_attributes":{"blob":"x"}}}]}}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(hit))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	spans, total, err := c.SearchSpans(context.Background(), "", "org1", "", 10, 0, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, spans, 1)
	assert.Equal(t, "hi", spans[0].Attributes["input"])
	assert.Equal(t, "x", spans[0].Attributes["blob"])
}

func TestSourceFilterIncludesUnindexedAlongsideAttributes(t *testing.T) {
	assert.ElementsMatch(t, []string{"attributes", "unindexed_attributes"}, sourceFilter([]string{"attributes"}))
	assert.Nil(t, sourceFilter(nil))
}
