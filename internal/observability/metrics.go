package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides a centralized interface for collecting application metrics.
//
// The metrics system is built on Prometheus and tracks:
//   - Span ingestion throughput and batch sizes, by organisation and transport
//   - Rate-limit rejections
//   - LLM-as-judge request performance, token usage, and cost
//   - Scorer latency by metric kind
//   - HTTP/gRPC request latency and database query latency
//
// Usage:
//
//	metrics := observability.NewMetrics()
//	metrics.SpansIngested("org-123", "grpc", 42)
//	defer metrics.LLMRequestDuration("anthropic", "claude-3-opus").Observe(time.Since(start).Seconds())
type Metrics struct {
	// SpanIngestCounter tracks ingested spans by organisation and transport.
	// Labels: organisation, transport (http_json|http_protobuf|grpc)
	SpanIngestCounter *prometheus.CounterVec

	// IngestBatchDuration measures end-to-end ingestion pipeline latency.
	// Labels: transport
	IngestBatchDuration *prometheus.HistogramVec

	// RateLimitRejections counts requests rejected for exceeding quota.
	// Labels: organisation
	RateLimitRejections *prometheus.CounterVec

	// LLMRequestDuration measures LLM API call latency in seconds.
	// Labels: provider (anthropic|openai|azure-openai|gemini), model
	// Buckets: 0.1s, 0.5s, 1s, 2s, 5s, 10s, 30s, 60s
	LLMRequestDuration *prometheus.HistogramVec

	// LLMRequestCounter counts LLM requests by provider and model.
	// Labels: provider, model, status (success|error)
	LLMRequestCounter *prometheus.CounterVec

	// LLMTokensUsed tracks token consumption.
	// Labels: provider, model, type (prompt|completion)
	LLMTokensUsed *prometheus.CounterVec

	// LLMCostUSD tracks estimated cost in USD.
	// Labels: provider, model
	LLMCostUSD *prometheus.CounterVec

	// ScorerDuration measures metric scoring latency.
	// Labels: kind (number|javascript|llm_judge|...)
	ScorerDuration *prometheus.HistogramVec

	// ScorerCounter counts metric scoring outcomes.
	// Labels: kind, status (success|error)
	ScorerCounter *prometheus.CounterVec

	// ExperimentResultsRecorded counts results folded into an experiment's
	// running summaries.
	// Labels: organisation
	ExperimentResultsRecorded *prometheus.CounterVec

	// ErrorCounter tracks errors by type and component.
	// Labels: component (ingest|scorer|experiment|store), error_type
	ErrorCounter *prometheus.CounterVec

	// HTTPRequestDuration measures HTTP API request latency.
	// Labels: method, path, status_code
	// Buckets: 0.001s, 0.005s, 0.01s, 0.05s, 0.1s, 0.5s, 1s, 5s
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestCounter counts HTTP requests.
	// Labels: method, path, status_code
	HTTPRequestCounter *prometheus.CounterVec

	// DatabaseQueryDuration measures database query latency.
	// Labels: operation (select|insert|update|delete), table
	// Buckets: 0.001s, 0.005s, 0.01s, 0.05s, 0.1s, 0.5s, 1s, 5s
	DatabaseQueryDuration *prometheus.HistogramVec

	// DatabaseQueryCounter counts database queries.
	// Labels: operation, table, status (success|error)
	DatabaseQueryCounter *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics.
// This should be called once at application startup.
//
// All metrics are automatically registered with Prometheus's default registry
// and will be available at the /metrics endpoint when using prometheus HTTP handler.
func NewMetrics() *Metrics {
	return &Metrics{
		SpanIngestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evalserver_spans_ingested_total",
				Help: "Total number of spans ingested by organisation and transport",
			},
			[]string{"organisation", "transport"},
		),

		IngestBatchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "evalserver_ingest_batch_duration_seconds",
				Help:    "Duration of span ingestion batches in seconds",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"transport"},
		),

		RateLimitRejections: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evalserver_rate_limit_rejections_total",
				Help: "Total number of requests rejected for exceeding an organisation's quota",
			},
			[]string{"organisation"},
		),

		LLMRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "evalserver_llm_request_duration_seconds",
				Help:    "Duration of LLM API requests in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider", "model"},
		),

		LLMRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evalserver_llm_requests_total",
				Help: "Total number of LLM requests by provider, model, and status",
			},
			[]string{"provider", "model", "status"},
		),

		LLMTokensUsed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evalserver_llm_tokens_total",
				Help: "Total number of tokens used by provider, model, and type",
			},
			[]string{"provider", "model", "type"},
		),

		LLMCostUSD: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evalserver_llm_cost_usd_total",
				Help: "Estimated LLM API cost in USD",
			},
			[]string{"provider", "model"},
		),

		ScorerDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "evalserver_scorer_duration_seconds",
				Help:    "Duration of metric scoring in seconds",
				Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"kind"},
		),

		ScorerCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evalserver_scorer_results_total",
				Help: "Total number of metric scoring attempts by kind and status",
			},
			[]string{"kind", "status"},
		),

		ExperimentResultsRecorded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evalserver_experiment_results_total",
				Help: "Total number of per-example results folded into an experiment's summaries",
			},
			[]string{"organisation"},
		),

		ErrorCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evalserver_errors_total",
				Help: "Total number of errors by component and error type",
			},
			[]string{"component", "error_type"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "evalserver_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "path", "status_code"},
		),

		HTTPRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evalserver_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),

		DatabaseQueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "evalserver_database_query_duration_seconds",
				Help:    "Duration of database queries in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"operation", "table"},
		),

		DatabaseQueryCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evalserver_database_queries_total",
				Help: "Total number of database queries",
			},
			[]string{"operation", "table", "status"},
		),
	}
}

// SpansIngested records n spans ingested for organisation via transport.
//
// Example:
//
//	metrics.SpansIngested("org-123", "grpc", 42)
func (m *Metrics) SpansIngested(organisation, transport string, n int) {
	m.SpanIngestCounter.WithLabelValues(organisation, transport).Add(float64(n))
}

// RecordIngestBatch records the duration of one ingestion batch.
func (m *Metrics) RecordIngestBatch(transport string, durationSeconds float64) {
	m.IngestBatchDuration.WithLabelValues(transport).Observe(durationSeconds)
}

// RecordRateLimitRejection increments the rejection counter for organisation.
func (m *Metrics) RecordRateLimitRejection(organisation string) {
	m.RateLimitRejections.WithLabelValues(organisation).Inc()
}

// RecordLLMRequest records metrics for an LLM API request.
//
// Example:
//
//	start := time.Now()
//	// ... make LLM request ...
//	metrics.RecordLLMRequest("anthropic", "claude-3-opus", "success", time.Since(start).Seconds(), 100, 500)
func (m *Metrics) RecordLLMRequest(provider, model, status string, durationSeconds float64, promptTokens, completionTokens int) {
	m.LLMRequestCounter.WithLabelValues(provider, model, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider, model).Observe(durationSeconds)
	if promptTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.LLMTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
	}
}

// RecordLLMCost records estimated API cost.
func (m *Metrics) RecordLLMCost(provider, model string, costUSD float64) {
	m.LLMCostUSD.WithLabelValues(provider, model).Add(costUSD)
}

// RecordScorer records one metric-scoring attempt.
//
// Example:
//
//	start := time.Now()
//	// ... score metric ...
//	metrics.RecordScorer("llm_judge", "success", time.Since(start).Seconds())
func (m *Metrics) RecordScorer(kind, status string, durationSeconds float64) {
	m.ScorerCounter.WithLabelValues(kind, status).Inc()
	m.ScorerDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordExperimentResult increments the per-organisation results counter.
func (m *Metrics) RecordExperimentResult(organisation string) {
	m.ExperimentResultsRecorded.WithLabelValues(organisation).Inc()
}

// RecordError increments the error counter for a given component and error type.
//
// Example:
//
//	metrics.RecordError("ingest", "auth_failed")
//	metrics.RecordError("scorer", "timeout")
func (m *Metrics) RecordError(component, errorType string) {
	m.ErrorCounter.WithLabelValues(component, errorType).Inc()
}

// RecordHTTPRequest records metrics for an HTTP request.
//
// Example:
//
//	start := time.Now()
//	// ... handle HTTP request ...
//	metrics.RecordHTTPRequest("GET", "/api/experiments", "200", time.Since(start).Seconds())
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, durationSeconds float64) {
	m.HTTPRequestCounter.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, statusCode).Observe(durationSeconds)
}

// RecordDatabaseQuery records metrics for a database query.
//
// Example:
//
//	start := time.Now()
//	// ... execute database query ...
//	metrics.RecordDatabaseQuery("select", "experiments", "success", time.Since(start).Seconds())
func (m *Metrics) RecordDatabaseQuery(operation, table, status string, durationSeconds float64) {
	m.DatabaseQueryCounter.WithLabelValues(operation, table, status).Inc()
	m.DatabaseQueryDuration.WithLabelValues(operation, table).Observe(durationSeconds)
}
