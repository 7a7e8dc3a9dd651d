package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var registry = prometheus.NewRegistry()

var registerer = prometheus.WrapRegistererWith(nil, registry)

const (
	OutcomePassed        = "passed"
	OutcomeBlocked       = "blocked"
	OutcomeOutputBlocked = "output_blocked"
	OutcomeUpstreamError = "upstream_error"

	DirectionInput  = "input"
	DirectionOutput = "output"

	LatencyTotal    = "total"
	LatencyUpstream = "upstream"
)

var (
	// Latency buckets in milliseconds. LLM upstreams routinely take seconds,
	// so the tail extends further than typical HTTP buckets.
	latencyBuckets = []float64{
		5, 10, 25,
		50, 100, 250,
		500, 1000, 2500,
		5000, 10000, 30000,
		60000,
	}

	RequestTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinelgate_requests_total",
			Help: "Total number of chat completion requests processed",
		},
		[]string{"status", "outcome"},
	)

	BlockedTotal = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinelgate_blocked_total",
			Help: "Total number of guardrail blocks by traffic direction",
		},
		[]string{"direction"},
	)

	RequestLatency = promauto.With(registerer).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sentinelgate_latency_ms",
			Help:    "Request latency in milliseconds",
			Buckets: latencyBuckets,
		},
		[]string{"type"}, // type can be "total" or "upstream"
	)

	AuditDroppedTotal = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "sentinelgate_audit_dropped_total",
			Help: "Audit entries dropped because the queue was full",
		},
	)

	StreamFragmentsTotal = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "sentinelgate_stream_fragments_total",
			Help: "Sanitized fragments released on streaming responses",
		},
	)
)

func Initialize() {
	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
}
