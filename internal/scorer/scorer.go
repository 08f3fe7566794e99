// Package scorer dispatches a Metric against an (output, example) pair by
// metric kind (spec.md section 4.6): numeric/system passthrough, a
// restricted JavaScript sandbox, LLM-as-judge via a provider adapter, or a
// deterministic string/structural comparison. It is grounded on the client
// dispatch shape of haasonsaas-nexus's agent tool-call handling (dispatch by
// a kind string, return a typed result or an error message rather than
// panicking) adapted to a pure function with no agent-loop state.
package scorer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/aiqaio/evalserver/internal/domain"
	"github.com/aiqaio/evalserver/internal/observability"
	"github.com/aiqaio/evalserver/internal/providers"
)

// Scorer evaluates Metrics against example outputs.
type Scorer struct {
	providers *providers.Registry
	tracer    *observability.Tracer
}

// New builds a Scorer backed by registry for llm-kind metrics. registry may
// be nil if no llm metrics will ever be scored; Score returns an error for
// that kind in that case instead of panicking. tracer may be nil, in which
// case scoring spans are simply not recorded.
func New(registry *providers.Registry, tracer *observability.Tracer) *Scorer {
	return &Scorer{providers: registry, tracer: tracer}
}

// Score computes metric's value for output against example. It never
// returns a value for number/system metrics — those are client-supplied
// (spec.md section 4.6) and callers should check Metric.RequiresComputation
// before calling Score.
func (s *Scorer) Score(ctx context.Context, metric domain.Metric, output any, example domain.Example) (float64, error) {
	switch metric.Kind {
	case domain.MetricNumber, domain.MetricSystem:
		return 0, fmt.Errorf("scorer: %s metrics are client-supplied, not computed", metric.Kind)

	case domain.MetricJavaScript:
		if s.tracer != nil {
			var span trace.Span
			ctx, span = s.tracer.TraceToolExecution(ctx, metric.ID)
			defer span.End()
		}
		score, err := runJavaScript(ctx, metric.Code, output, example)
		s.recordError(ctx, err)
		return score, err

	case domain.MetricLLM:
		if s.providers == nil {
			return 0, fmt.Errorf("scorer: no provider registry configured for llm metric %q", metric.ID)
		}
		if s.tracer != nil {
			var span trace.Span
			ctx, span = s.tracer.TraceScorer(ctx, "llm_judge", metric.ID)
			defer span.End()
			llmCtx, llmSpan := s.tracer.TraceLLMRequest(ctx, metric.Provider, metric.Model)
			defer llmSpan.End()
			score, err := runJudge(llmCtx, s.providers, metric, output, example)
			s.tracer.RecordError(llmSpan, err)
			s.recordError(ctx, err)
			return score, err
		}
		return runJudge(ctx, s.providers, metric, output, example)

	case domain.MetricContains, domain.MetricEquals, domain.MetricNotContains, domain.MetricNotEquals, domain.MetricSimilar:
		return runComparison(metric.Kind, output, example)

	default:
		return 0, fmt.Errorf("scorer: unknown metric kind %q", metric.Kind)
	}
}

// recordError marks the current span (if tracing is enabled) as failed.
func (s *Scorer) recordError(ctx context.Context, err error) {
	if s.tracer == nil || err == nil {
		return
	}
	s.tracer.RecordError(observability.SpanFromContext(ctx), err)
}
