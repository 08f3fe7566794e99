package ingest

import "github.com/aiqaio/evalserver/internal/domain"

// Attribute keys under which token/cost counters are expected to travel on
// a span, following the OpenTelemetry GenAI semantic conventions for the
// token counts and an AIQA-specific extension for cost, which has no
// standardised convention yet.
const (
	attrInputTokens       = "gen_ai.usage.input_tokens"
	attrOutputTokens      = "gen_ai.usage.output_tokens"
	attrCachedInputTokens = "gen_ai.usage.cached_input_tokens"
	attrCostUSD           = "aiqa.cost.usd"
)

// extractUsage reads the usage counters out of span's attributes into its
// Usage field. TotalTokens is always the sum of input and output, not a
// separately-carried attribute.
func extractUsage(span *domain.Span) {
	span.Usage.InputTokens = attrInt64(span.Attributes, attrInputTokens)
	span.Usage.OutputTokens = attrInt64(span.Attributes, attrOutputTokens)
	span.Usage.CachedInputTokens = attrInt64(span.Attributes, attrCachedInputTokens)
	span.Usage.CostUSD = attrFloat64(span.Attributes, attrCostUSD)
	span.Usage.TotalTokens = span.Usage.InputTokens + span.Usage.OutputTokens
}

func attrInt64(attrs domain.Attributes, key string) int64 {
	switch v := attrs[key].(type) {
	case int64:
		return v
	case float64:
		return int64(v)
	case int:
		return int64(v)
	default:
		return 0
	}
}

func attrFloat64(attrs domain.Attributes, key string) float64 {
	switch v := attrs[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}
