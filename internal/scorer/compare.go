package scorer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aiqaio/evalserver/internal/domain"
)

// runComparison implements the deterministic comparison metric kinds
// (spec.md section 4.6): contains / equals / not_contains / not_equals /
// similar, all measured against example.outputs.good. Each returns 1 for a
// pass and 0 for a failure, matching the other scorer paths' numeric score
// convention.
func runComparison(kind domain.MetricKind, output any, example domain.Example) (float64, error) {
	if example.Outputs == nil {
		return 0, fmt.Errorf("comparison metric: example has no reference outputs")
	}
	good := example.Outputs.Good

	switch kind {
	case domain.MetricContains:
		return boolScore(containsValue(toComparable(output), toComparable(good))), nil
	case domain.MetricNotContains:
		return boolScore(!containsValue(toComparable(output), toComparable(good))), nil
	case domain.MetricEquals:
		return boolScore(equalsValue(output, good)), nil
	case domain.MetricNotEquals:
		return boolScore(!equalsValue(output, good)), nil
	case domain.MetricSimilar:
		return similarity(toComparable(output), toComparable(good)), nil
	default:
		return 0, fmt.Errorf("comparison metric: unsupported kind %q", kind)
	}
}

func boolScore(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}

// toComparable renders any value (string or structured JSON) to a string
// for substring/similarity comparisons.
func toComparable(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func containsValue(output, good string) bool {
	return strings.Contains(output, good)
}

// equalsValue compares structurally: two values whose JSON encodings are
// identical are considered equal, so map-shaped outputs compare by content
// rather than Go identity.
func equalsValue(output, good any) bool {
	outBytes, err1 := json.Marshal(output)
	goodBytes, err2 := json.Marshal(good)
	if err1 != nil || err2 != nil {
		return fmt.Sprintf("%v", output) == fmt.Sprintf("%v", good)
	}
	return string(outBytes) == string(goodBytes)
}

// similarity is a token-overlap ratio (Jaccard over whitespace-split
// tokens), a dependency-free stand-in for semantic similarity that is
// deterministic and explainable — appropriate for a "similar" comparison
// kind that spec.md does not pin to a specific algorithm.
func similarity(a, b string) float64 {
	aTokens := tokenSet(a)
	bTokens := tokenSet(b)
	if len(aTokens) == 0 && len(bTokens) == 0 {
		return 1
	}
	intersection := 0
	for t := range aTokens {
		if bTokens[t] {
			intersection++
		}
	}
	union := len(aTokens)
	for t := range bTokens {
		if !aTokens[t] {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	tokens := strings.Fields(strings.ToLower(s))
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		set[t] = true
	}
	return set
}
