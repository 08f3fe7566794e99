// Package normalize implements the time and attribute normalisation rules
// of spec.md section 4.3: turning heterogeneous OTLP timestamp/attribute
// shapes into the flattened, epoch-millisecond form the span store indexes.
package normalize

import (
	"strconv"
	"time"
)

// hrTimeNsThreshold is the magnitude above which a bare number is assumed
// to be nanoseconds rather than milliseconds (spec.md section 4.3).
const hrTimeNsThreshold = 1e12

// Time normalises an OTLP-ish timestamp value to epoch milliseconds. It
// accepts ISO-8601 strings, numbers, numeric strings, and HrTime two-tuples
// [seconds, nanos]. Invalid input returns (0, false).
func Time(v any) (int64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case string:
		return timeFromString(t)
	case float64:
		return timeFromNumber(t), true
	case int64:
		return timeFromNumber(float64(t)), true
	case int:
		return timeFromNumber(float64(t)), true
	case []any:
		return timeFromHrTime(t)
	default:
		return 0, false
	}
}

func timeFromString(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return timeFromNumber(n), true
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts.UnixMilli(), true
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts.UnixMilli(), true
	}
	return 0, false
}

func timeFromNumber(n float64) int64 {
	if n >= hrTimeNsThreshold {
		return int64(n) / 1_000_000
	}
	return int64(n)
}

func timeFromHrTime(pair []any) (int64, bool) {
	if len(pair) != 2 {
		return 0, false
	}
	sec, ok1 := asFloat(pair[0])
	nanos, ok2 := asFloat(pair[1])
	if !ok1 || !ok2 {
		return 0, false
	}
	return int64(sec*1000) + int64(nanos)/1_000_000, true
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
