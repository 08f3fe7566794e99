// Package ingest implements the OTLP span ingestion pipeline of spec.md
// section 4.5: authenticate, authorise, rate-limit, flatten, normalise,
// roll up, and bulk-insert — fed by the HTTP/JSON, HTTP/Protobuf, and gRPC
// transports described in section 6.
package ingest

import (
	"encoding/hex"

	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	coltracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"

	"github.com/aiqaio/evalserver/internal/domain"
	"github.com/aiqaio/evalserver/internal/normalize"
)

// flattenRequest materialises one domain.Span per ResourceSpans x ScopeSpans
// x Span in req, merging resource attributes into each span's attribute bag
// (spec.md section 4.5 step 4). Span-level attributes win on key collision.
func flattenRequest(req *coltracepb.ExportTraceServiceRequest) []domain.Span {
	var spans []domain.Span
	for _, rs := range req.GetResourceSpans() {
		resourceAttrs := attributesFromProto(rs.GetResource().GetAttributes())
		for _, ss := range rs.GetScopeSpans() {
			for _, s := range ss.GetSpans() {
				spans = append(spans, flattenSpan(s, resourceAttrs))
			}
		}
	}
	return spans
}

func flattenSpan(s *tracepb.Span, resourceAttrs domain.Attributes) domain.Span {
	attrs := make(domain.Attributes, len(resourceAttrs)+len(s.GetAttributes()))
	for k, v := range resourceAttrs {
		attrs[k] = v
	}
	for k, v := range attributesFromProto(s.GetAttributes()) {
		attrs[k] = v
	}

	startMS, _ := normalize.Time(int64(s.GetStartTimeUnixNano()))
	endMS, _ := normalize.Time(int64(s.GetEndTimeUnixNano()))

	span := domain.Span{
		ID:         hex.EncodeToString(s.GetSpanId()),
		TraceID:    hex.EncodeToString(s.GetTraceId()),
		ParentID:   hex.EncodeToString(s.GetParentSpanId()),
		Name:       s.GetName(),
		Kind:       int(s.GetKind()),
		StartMS:    startMS,
		EndMS:      endMS,
		Duration:   endMS - startMS,
		Attributes: attrs,
	}
	if status := s.GetStatus(); status != nil {
		span.Status = domain.Status{Code: int(status.GetCode()), Message: status.GetMessage()}
	}
	extractUsage(&span)
	return span
}

// attributesFromProto converts an OTLP KeyValue list to a flattened
// attribute bag (spec.md section 9: attributes are a heterogeneously typed
// bag serialised through a JSON-equivalent encoder).
func attributesFromProto(kvs []*commonpb.KeyValue) domain.Attributes {
	if len(kvs) == 0 {
		return domain.Attributes{}
	}
	out := make(domain.Attributes, len(kvs))
	for _, kv := range kvs {
		out[kv.GetKey()] = anyValueToGo(kv.GetValue())
	}
	return out
}

func anyValueToGo(v *commonpb.AnyValue) any {
	if v == nil {
		return nil
	}
	switch x := v.GetValue().(type) {
	case *commonpb.AnyValue_StringValue:
		return x.StringValue
	case *commonpb.AnyValue_BoolValue:
		return x.BoolValue
	case *commonpb.AnyValue_IntValue:
		return x.IntValue
	case *commonpb.AnyValue_DoubleValue:
		return x.DoubleValue
	case *commonpb.AnyValue_BytesValue:
		return x.BytesValue
	case *commonpb.AnyValue_ArrayValue:
		values := x.ArrayValue.GetValues()
		arr := make([]any, len(values))
		for i, e := range values {
			arr[i] = anyValueToGo(e)
		}
		return arr
	case *commonpb.AnyValue_KvlistValue:
		values := x.KvlistValue.GetValues()
		m := make(map[string]any, len(values))
		for _, kv := range values {
			m[kv.GetKey()] = anyValueToGo(kv.GetValue())
		}
		return m
	default:
		return nil
	}
}
