package scorer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiqaio/evalserver/internal/domain"
)

func TestRunJavaScriptReturnsNumericResult(t *testing.T) {
	score, err := runJavaScript(context.Background(), `return output.length;`, "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(5), score)
}

func TestRunJavaScriptCoercesStringResult(t *testing.T) {
	score, err := runJavaScript(context.Background(), `return "3.5";`, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3.5, score)
}

func TestRunJavaScriptFailsOnNonFiniteResult(t *testing.T) {
	_, err := runJavaScript(context.Background(), `return 1/0;`, nil, nil)
	assert.Error(t, err)
}

func TestRunJavaScriptFailsOnNonNumericResult(t *testing.T) {
	_, err := runJavaScript(context.Background(), `return {not: "a number"};`, nil, nil)
	assert.Error(t, err)
}

func TestRunJavaScriptShadowsDangerousGlobals(t *testing.T) {
	score, err := runJavaScript(context.Background(), `return (typeof require === "undefined" && typeof process === "undefined" && typeof fetch === "undefined") ? 1 : 0;`, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, float64(1), score)
}

func TestRunJavaScriptReceivesExampleArgument(t *testing.T) {
	score, err := runJavaScript(context.Background(), `return example.target === "x" ? 1 : 0;`, nil, map[string]any{"target": "x"})
	require.NoError(t, err)
	assert.Equal(t, float64(1), score)
}

func TestRunJavaScriptEnforcesTimeout(t *testing.T) {
	start := time.Now()
	_, err := runJavaScript(context.Background(), `while (true) {}`, nil, nil)
	elapsed := time.Since(start)

	assert.Error(t, err)
	assert.Less(t, elapsed, sandboxTimeout+2*time.Second)
}

func TestScoreDispatchesJavaScriptKind(t *testing.T) {
	s := New(nil, nil)
	score, err := s.Score(context.Background(), domain.Metric{Kind: domain.MetricJavaScript, Code: "return 1;"}, nil, domain.Example{})
	require.NoError(t, err)
	assert.Equal(t, float64(1), score)
}
