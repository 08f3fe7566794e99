package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aiqaio/evalserver/internal/domain"
)

func TestExtractUsageSumsInputAndOutputIntoTotal(t *testing.T) {
	span := &domain.Span{Attributes: domain.Attributes{
		attrInputTokens:       int64(10),
		attrOutputTokens:      int64(5),
		attrCachedInputTokens: int64(2),
		attrCostUSD:           0.001,
	}}

	extractUsage(span)

	assert.Equal(t, int64(10), span.Usage.InputTokens)
	assert.Equal(t, int64(5), span.Usage.OutputTokens)
	assert.Equal(t, int64(2), span.Usage.CachedInputTokens)
	assert.Equal(t, int64(15), span.Usage.TotalTokens)
	assert.InDelta(t, 0.001, span.Usage.CostUSD, 1e-9)
}

func TestExtractUsageDefaultsMissingCountersToZero(t *testing.T) {
	span := &domain.Span{Attributes: domain.Attributes{}}
	extractUsage(span)
	assert.Equal(t, domain.Usage{}, span.Usage)
}
