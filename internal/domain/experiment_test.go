package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummaryUpdateMatchesNaiveComputation(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	s := NewSummary()
	for _, v := range values {
		s.Update(v)
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sqDiff float64
	for _, v := range values {
		sqDiff += (v - mean) * (v - mean)
	}
	variance := sqDiff / float64(len(values)-1)

	assert.InDelta(t, mean, s.Mean, 1e-9)
	assert.InDelta(t, variance, s.Var, 1e-9)
	assert.Equal(t, 2.0, s.Min)
	assert.Equal(t, 9.0, s.Max)
	assert.Equal(t, len(values), s.Count)
}

func TestSummaryUpdateSingleValue(t *testing.T) {
	s := NewSummary()
	s.Update(42)
	assert.Equal(t, 42.0, s.Mean)
	assert.Equal(t, 0.0, s.Var)
	assert.Equal(t, 1, s.Count)
}

func TestSummaryUpdateNoNaN(t *testing.T) {
	s := NewSummary()
	s.Update(1)
	s.Update(1)
	s.Update(1)
	assert.False(t, math.IsNaN(s.Var))
	assert.Equal(t, 0.0, s.Var)
}

func TestRecalculateSummariesMatchesIncrementalUpdate(t *testing.T) {
	exp := &Experiment{
		Results: []Result{
			{ExampleID: "ex-1", Scores: map[string]float64{"accuracy": 1, "latency": 10}},
			{ExampleID: "ex-2", Scores: map[string]float64{"accuracy": 0, "latency": 20}},
			{ExampleID: "ex-3", Scores: map[string]float64{"accuracy": 1}},
		},
	}
	exp.RecalculateSummaries()

	accuracy := NewSummary()
	accuracy.Update(1)
	accuracy.Update(0)
	accuracy.Update(1)

	assert.InDelta(t, accuracy.Mean, exp.Summaries["accuracy"].Mean, 1e-9)
	assert.Equal(t, 3, exp.Summaries["accuracy"].Count)
	assert.Equal(t, 2, exp.Summaries["latency"].Count)
}

func TestRecalculateSummariesSkipsRateLimitedResults(t *testing.T) {
	exp := &Experiment{
		Results: []Result{
			{ExampleID: "ex-1", Scores: map[string]float64{"accuracy": 1}},
			{ExampleID: "ex-2", Scores: map[string]float64{"accuracy": 0}, RateLimited: true},
		},
	}
	exp.RecalculateSummaries()
	assert.Equal(t, 1, exp.Summaries["accuracy"].Count)
}

func TestResultByExample(t *testing.T) {
	exp := &Experiment{Results: []Result{{ExampleID: "ex-1"}, {ExampleID: "ex-2"}}}
	r := exp.ResultByExample("ex-2")
	assert.NotNil(t, r)
	assert.Equal(t, "ex-2", r.ExampleID)
	assert.Nil(t, exp.ResultByExample("missing"))
}
