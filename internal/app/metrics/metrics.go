package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	submissions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "valuation_engine",
			Subsystem: "consensus",
			Name:      "submissions_total",
			Help:      "Total number of price submissions by outcome.",
		},
		[]string{"outcome"},
	)

	consensusCommits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "valuation_engine",
			Subsystem: "consensus",
			Name:      "commits_total",
			Help:      "Total number of valuations committed.",
		},
	)

	consensusDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "valuation_engine",
			Subsystem: "consensus",
			Name:      "compute_duration_seconds",
			Help:      "Duration of a record-then-recompute pass.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12), // 0.5ms to ~2s
		},
	)

	approvedOracles = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "valuation_engine",
			Subsystem: "registry",
			Name:      "approved_oracles",
			Help:      "Current number of approved oracles.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "valuation_engine",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests by method and status code.",
		},
		[]string{"code", "method"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "valuation_engine",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	Registry.MustRegister(
		submissions,
		consensusCommits,
		consensusDuration,
		approvedOracles,
		httpRequests,
		httpDuration,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// InstrumentHandler wraps an HTTP handler with request counting and latency
// observation.
func InstrumentHandler(next http.Handler) http.Handler {
	return promhttp.InstrumentHandlerDuration(httpDuration,
		promhttp.InstrumentHandlerCounter(httpRequests, next))
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordSubmission records the outcome of a submission pass. Committed passes
// additionally bump the commit counter.
func RecordSubmission(outcome string, duration time.Duration, committed bool) {
	if duration <= 0 {
		duration = time.Microsecond
	}
	submissions.WithLabelValues(outcome).Inc()
	consensusDuration.Observe(duration.Seconds())
	if committed {
		consensusCommits.Inc()
	}
}

// SetApprovedOracles updates the registry size gauge.
func SetApprovedOracles(n int) {
	approvedOracles.Set(float64(n))
}
