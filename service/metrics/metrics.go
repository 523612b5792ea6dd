package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Solana RPC Metrics
	solanaRPCCallsTotal    *prometheus.CounterVec
	solanaRPCCallDuration  *prometheus.HistogramVec
	solanaRPCRateLimitHits *prometheus.CounterVec
	solanaRPCRetries       *prometheus.CounterVec

	// Indexer Metrics
	indexerRequestsTotal   *prometheus.CounterVec
	indexerRequestDuration prometheus.Histogram

	// Bot Metrics
	botCommandsTotal *prometheus.CounterVec

	// Report Metrics
	reportBuildDuration    *prometheus.HistogramVec
	reportSectionsDegraded *prometheus.CounterVec

	// HTTP Metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		// Solana RPC Metrics
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),
		solanaRPCRateLimitHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_rate_limit_hits_total",
				Help: "Total number of Solana RPC rate limit hits (429 errors)",
			},
			[]string{"endpoint"},
		),
		solanaRPCRetries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_retries_total",
				Help: "Total number of Solana RPC retry attempts",
			},
			[]string{"method", "reason"},
		),

		// Indexer Metrics
		indexerRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "indexer_requests_total",
				Help: "Total number of NFT indexer requests by status",
			},
			[]string{"status"},
		),
		indexerRequestDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "indexer_request_duration_seconds",
				Help:    "Duration of NFT indexer requests in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
		),

		// Bot Metrics
		botCommandsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bot_commands_total",
				Help: "Total number of chat commands handled by command and outcome",
			},
			[]string{"command", "outcome"},
		),

		// Report Metrics
		reportBuildDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "report_build_duration_seconds",
				Help:    "Duration of wallet report builds in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"outcome"},
		),
		reportSectionsDegraded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "report_sections_degraded_total",
				Help: "Total number of report sections rendered as unavailable",
			},
			[]string{"section"},
		),

		// HTTP Metrics
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
	}
}

// Solana RPC metric helpers

// RecordRPCCall records a Solana RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	m.solanaRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// RecordRateLimitHit records a rate limit hit (429 error).
func (m *Metrics) RecordRateLimitHit(endpoint string) {
	m.solanaRPCRateLimitHits.WithLabelValues(endpoint).Inc()
}

// RecordRPCRetry records a retry attempt.
func (m *Metrics) RecordRPCRetry(method, reason string) {
	m.solanaRPCRetries.WithLabelValues(method, reason).Inc()
}

// Indexer metric helpers

// RecordIndexerRequest records an NFT indexer request with duration.
func (m *Metrics) RecordIndexerRequest(statusCode int, duration float64) {
	m.indexerRequestsTotal.WithLabelValues(statusCodeToString(statusCode)).Inc()
	m.indexerRequestDuration.Observe(duration)
}

// Bot metric helpers

// RecordCommand records a handled chat command.
func (m *Metrics) RecordCommand(command, outcome string) {
	m.botCommandsTotal.WithLabelValues(command, outcome).Inc()
}

// Report metric helpers

// RecordReportBuild records a report build with duration.
func (m *Metrics) RecordReportBuild(outcome string, duration float64) {
	m.reportBuildDuration.WithLabelValues(outcome).Observe(duration)
}

// RecordSectionDegraded records a report section that could not be fetched.
func (m *Metrics) RecordSectionDegraded(section string) {
	m.reportSectionsDegraded.WithLabelValues(section).Inc()
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// Helper functions

func statusCodeToString(code int) string {
	// Group status codes by class
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
