package query

import (
	"strconv"
	"time"
)

// dateFields are the fields for which range values may additionally parse
// as ISO-8601 timestamps (spec.md section 4.1).
var dateFields = map[string]bool{
	"start":      true,
	"end":        true,
	"duration":   true,
	"@timestamp": true,
}

// ToDSL renders n as a search-engine query body (spec.md section 4.1). A
// nil tree renders as match_all, matching the SQL emitter's "1=1" fallback.
func ToDSL(n *Node) map[string]any {
	if n == nil {
		return map[string]any{"match_all": map[string]any{}}
	}
	return dslNode(n)
}

func dslNode(n *Node) map[string]any {
	switch n.Kind {
	case KindBare:
		return map[string]any{
			"query_string": map[string]any{
				"query":           n.Bare,
				"default_operator": "AND",
			},
		}
	case KindTerm:
		return dslTerm(n)
	case KindBool:
		clauses := make([]map[string]any, 0, len(n.Children))
		for i := range n.Children {
			clauses = append(clauses, dslNode(&n.Children[i]))
		}
		if n.BoolOp == Or {
			return map[string]any{
				"bool": map[string]any{
					"should":               clauses,
					"minimum_should_match": 1,
				},
			}
		}
		return map[string]any{"bool": map[string]any{"must": clauses}}
	default:
		return map[string]any{"match_all": map[string]any{}}
	}
}

func dslTerm(n *Node) map[string]any {
	if n.Unset {
		return map[string]any{
			"bool": map[string]any{
				"must_not": map[string]any{
					"exists": map[string]any{"field": n.Field},
				},
			},
		}
	}
	if n.Rng != RangeEQ {
		return map[string]any{
			"range": map[string]any{
				n.Field: map[string]any{rangeKey(n.Rng): rangeValue(n.Field, n.Value)},
			},
		}
	}
	if f, ok := numeric(n.Value); ok {
		return map[string]any{"term": map[string]any{n.Field: f}}
	}
	return map[string]any{
		"bool": map[string]any{
			"should": []map[string]any{
				{"term": map[string]any{n.Field: n.Value}},
				{"term": map[string]any{n.Field + ".keyword": n.Value}},
				{"match": map[string]any{n.Field: n.Value}},
			},
			"minimum_should_match": 1,
		},
	}
}

func rangeKey(r Range) string {
	switch r {
	case RangeGT:
		return "gt"
	case RangeGE:
		return "gte"
	case RangeLT:
		return "lt"
	case RangeLE:
		return "lte"
	default:
		return "gte"
	}
}

// rangeValue parses a range operand per spec.md section 4.1: for date-like
// fields try ISO-8601 first, then milliseconds; otherwise numeric, falling
// back to the raw string.
func rangeValue(field, raw string) any {
	if dateFields[field] {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			return t.UnixMilli()
		}
	}
	if f, ok := numeric(raw); ok {
		return f
	}
	return raw
}

func numeric(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
