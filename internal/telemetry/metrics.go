// Package telemetry provides Prometheus metrics for the agent loop.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CyclesTotal counts completed cycles by outcome.
	// Labels: outcome (committed, regenerated, degraded, error)
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jarvys",
			Subsystem: "loop",
			Name:      "cycles_total",
			Help:      "Total number of completed agent cycles by outcome",
		},
		[]string{"outcome"},
	)

	// StageDuration tracks per-stage execution time.
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jarvys",
			Subsystem: "loop",
			Name:      "stage_duration_seconds",
			Help:      "Duration of cycle stage execution in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		},
		[]string{"stage"},
	)

	// ProviderRequests counts completion requests by provider and result.
	// Labels: provider, result (success, error)
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jarvys",
			Subsystem: "router",
			Name:      "provider_requests_total",
			Help:      "Total number of LLM completion requests by provider",
		},
		[]string{"provider", "result"},
	)

	// ProviderLatency tracks completion latency per provider.
	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "jarvys",
			Subsystem: "router",
			Name:      "provider_latency_seconds",
			Help:      "Latency of LLM completion requests in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10),
		},
		[]string{"provider"},
	)

	// Fallbacks counts fallback-chain activations by task type.
	Fallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "jarvys",
			Subsystem: "router",
			Name:      "fallbacks_total",
			Help:      "Total number of fallback-chain activations by task type",
		},
		[]string{"task_type"},
	)

	// Escalations counts confidence-gate suspensions.
	Escalations = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jarvys",
			Subsystem: "governor",
			Name:      "escalations_total",
			Help:      "Total number of confidence-gate suspensions",
		},
	)

	// MemoryFallbackWrites counts log records diverted to the local file store.
	MemoryFallbackWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "jarvys",
			Subsystem: "memory",
			Name:      "fallback_writes_total",
			Help:      "Total number of log records written to the local fallback store",
		},
	)
)

// RecordProviderRequest records the outcome and latency of one completion call.
func RecordProviderRequest(provider string, latency time.Duration, success bool) {
	result := "error"
	if success {
		result = "success"
	}
	ProviderRequests.WithLabelValues(provider, result).Inc()
	ProviderLatency.WithLabelValues(provider).Observe(latency.Seconds())
}

// RecordStage records the duration of one cycle stage.
func RecordStage(stage string, d time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}
