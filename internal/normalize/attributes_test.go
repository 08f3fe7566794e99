package normalize

import (
	"strings"
	"testing"

	"github.com/aiqaio/evalserver/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareForIndexWrapsPrimitiveIO(t *testing.T) {
	indexed, _ := PrepareForIndex(domain.Attributes{"input": "hello"})
	m, ok := indexed["input"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "hello", m["value"])
}

func TestPrepareForIndexSniffsJSONStrings(t *testing.T) {
	indexed, _ := PrepareForIndex(domain.Attributes{"meta": `{"a":1}`})
	m, ok := indexed["meta"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(1), m["a"])
}

func TestPrepareForIndexLeavesInvalidJSONRaw(t *testing.T) {
	indexed, _ := PrepareForIndex(domain.Attributes{"meta": `{not json`})
	assert.Equal(t, `{not json`, indexed["meta"])
}

func TestPrepareForIndexOffloadsOversizedValue(t *testing.T) {
	big := strings.Repeat("x", OversizedThresholdBytes+10)
	indexed, unindexed := PrepareForIndex(domain.Attributes{"blob": big})
	_, stillIndexed := indexed["blob"]
	assert.False(t, stillIndexed)
	assert.Equal(t, big, unindexed["blob"])
}

func TestMergeForReadUnwrapsAndMerges(t *testing.T) {
	indexed := domain.Attributes{"input": map[string]any{"value": "hi"}}
	unindexed := domain.Attributes{"blob": "large"}
	merged := MergeForRead(indexed, unindexed)
	assert.Equal(t, "hi", merged["input"])
	assert.Equal(t, "large", merged["blob"])
}

func TestMergeForReadUnindexedTakesPrecedence(t *testing.T) {
	indexed := domain.Attributes{"k": "old"}
	unindexed := domain.Attributes{"k": "new"}
	merged := MergeForRead(indexed, unindexed)
	assert.Equal(t, "new", merged["k"])
}
