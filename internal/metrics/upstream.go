package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Provider and operation label values for upstream metrics.
const (
	ProviderOpenAI   = "openai"
	ProviderPinecone = "pinecone"
	ProviderRedis    = "redis"

	OpEmbedding  = "embedding"
	OpCompletion = "completion"
	OpInitialize = "initialize"
	OpQuery      = "query"
)

// Upstream Prometheus metrics.
var (
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sharingan",
			Name:      "upstream_requests_total",
			Help:      "Total number of calls to external providers",
		},
		[]string{"provider", "operation", "status"},
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sharingan",
			Name:      "upstream_request_duration_seconds",
			Help:      "External provider call duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"provider", "operation"},
	)

	TokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sharingan",
			Name:      "tokens_total",
			Help:      "Total provider tokens consumed",
		},
		[]string{"model", "operation", "type"},
	)

	PipelineOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sharingan",
			Name:      "pipeline_outcomes_total",
			Help:      "Semantic search requests by terminal state",
		},
		[]string{"outcome"}, // ok, validation_failed, configuration_failed, upstream_failed, internal_error
	)
)

var registerOnce sync.Once

// RegisterUpstreamMetrics registers upstream and pipeline metrics. Must be called from main.
// Safe to call more than once (tests do).
func RegisterUpstreamMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(UpstreamRequestsTotal)
		prometheus.MustRegister(UpstreamRequestDuration)
		prometheus.MustRegister(TokensTotal)
		prometheus.MustRegister(PipelineOutcomesTotal)
	})
}

// ObserveUpstream records one provider call: count by status and, on success, its duration.
func ObserveUpstream(provider, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	UpstreamRequestsTotal.WithLabelValues(provider, operation, status).Inc()
	if err == nil {
		UpstreamRequestDuration.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
	}
}
