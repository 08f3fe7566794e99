package scorer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiqaio/evalserver/internal/domain"
)

func exampleWithGood(good any) domain.Example {
	return domain.Example{Outputs: &domain.Outputs{Good: good}}
}

func TestScoreContainsPassesWhenSubstringPresent(t *testing.T) {
	s := New(nil, nil)
	score, err := s.Score(context.Background(), domain.Metric{Kind: domain.MetricContains}, "the quick brown fox", exampleWithGood("quick brown"))
	require.NoError(t, err)
	assert.Equal(t, float64(1), score)
}

func TestScoreContainsFailsWhenSubstringAbsent(t *testing.T) {
	s := New(nil, nil)
	score, err := s.Score(context.Background(), domain.Metric{Kind: domain.MetricContains}, "the quick brown fox", exampleWithGood("lazy dog"))
	require.NoError(t, err)
	assert.Equal(t, float64(0), score)
}

func TestScoreEqualsComparesStructurally(t *testing.T) {
	s := New(nil, nil)
	output := map[string]any{"a": float64(1), "b": "x"}
	good := map[string]any{"a": float64(1), "b": "x"}
	score, err := s.Score(context.Background(), domain.Metric{Kind: domain.MetricEquals}, output, exampleWithGood(good))
	require.NoError(t, err)
	assert.Equal(t, float64(1), score)
}

func TestScoreNotEqualsDetectsDifference(t *testing.T) {
	s := New(nil, nil)
	score, err := s.Score(context.Background(), domain.Metric{Kind: domain.MetricNotEquals}, "a", exampleWithGood("b"))
	require.NoError(t, err)
	assert.Equal(t, float64(1), score)
}

func TestScoreSimilarReturnsTokenOverlapRatio(t *testing.T) {
	s := New(nil, nil)
	score, err := s.Score(context.Background(), domain.Metric{Kind: domain.MetricSimilar}, "red blue green", exampleWithGood("red blue yellow"))
	require.NoError(t, err)
	assert.InDelta(t, 0.5, score, 1e-9) // {red,blue} / {red,blue,green,yellow}
}

func TestScoreComparisonFailsWithoutReferenceOutputs(t *testing.T) {
	s := New(nil, nil)
	_, err := s.Score(context.Background(), domain.Metric{Kind: domain.MetricEquals}, "a", domain.Example{})
	assert.Error(t, err)
}

func TestScoreNumberAndSystemAreNotComputed(t *testing.T) {
	s := New(nil, nil)
	_, err := s.Score(context.Background(), domain.Metric{Kind: domain.MetricNumber}, "a", domain.Example{})
	assert.Error(t, err)
	_, err = s.Score(context.Background(), domain.Metric{Kind: domain.MetricSystem}, "a", domain.Example{})
	assert.Error(t, err)
}
