package normalize

import (
	"encoding/json"
	"strings"

	"github.com/aiqaio/evalserver/internal/domain"
)

// OversizedThresholdBytes is the nominal 32 KiB cutoff past which a value
// moves from attributes to unindexed_attributes (spec.md section 4.3).
const OversizedThresholdBytes = 32 * 1024

// ioKeys are the attribute keys that carry a span's primitive input/output,
// and so are candidates for the {value: x} wrap spec.md section 4.3
// describes ("some engines refuse scalars under a flattened field").
var ioKeys = map[string]bool{"input": true, "output": true}

// PrepareForIndex applies the section 4.3 attribute rules ahead of a write:
// JSON-string sniffing, primitive input/output wrapping, and oversized-value
// offload into a separate unindexed bag.
func PrepareForIndex(attrs domain.Attributes) (indexed, unindexed domain.Attributes) {
	indexed = make(domain.Attributes, len(attrs))
	unindexed = domain.Attributes{}
	for k, v := range attrs {
		v = sniffJSON(v)
		if ioKeys[k] {
			v = wrapPrimitive(v)
		}
		if oversized(v) {
			unindexed[k] = v
			continue
		}
		indexed[k] = v
	}
	if len(unindexed) == 0 {
		return indexed, nil
	}
	return indexed, unindexed
}

// MergeForRead reverses PrepareForIndex on the way out: unindexed values
// take precedence on key collision, {value: x} wrappers are unwrapped, and
// JSON-looking strings under input/output are parsed.
func MergeForRead(indexed, unindexed domain.Attributes) domain.Attributes {
	out := make(domain.Attributes, len(indexed)+len(unindexed))
	for k, v := range indexed {
		out[k] = v
	}
	for k, v := range unindexed {
		out[k] = v
	}
	for k, v := range out {
		v = sniffJSON(v)
		if ioKeys[k] {
			v = unwrapPrimitive(v)
		}
		out[k] = v
	}
	return out
}

// sniffJSON parses s if it looks like a JSON object/array (first non-space
// byte '{' or '['); any other value, or a parse failure, passes through
// unchanged.
func sniffJSON(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || (trimmed[0] != '{' && trimmed[0] != '[') {
		return v
	}
	var parsed any
	if err := json.Unmarshal([]byte(trimmed), &parsed); err != nil {
		return v
	}
	return parsed
}

func wrapPrimitive(v any) any {
	switch v.(type) {
	case string, float64, int64, int, bool:
		return map[string]any{"value": v}
	default:
		return v
	}
}

func unwrapPrimitive(v any) any {
	m, ok := v.(map[string]any)
	if !ok || len(m) != 1 {
		return v
	}
	inner, ok := m["value"]
	if !ok {
		return v
	}
	return inner
}

func oversized(v any) bool {
	b, err := json.Marshal(v)
	if err != nil {
		return false
	}
	return len(b) > OversizedThresholdBytes
}
