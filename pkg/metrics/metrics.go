// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks ops HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docbot_http_request_duration_seconds",
			Help:    "Ops HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total ops HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docbot_http_requests_total",
			Help: "Total ops HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// JobDuration tracks conversion and merge job duration.
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docbot_job_duration_seconds",
			Help:    "Document job duration from download to upload",
			Buckets: []float64{.5, 1, 2, 5, 10, 20, 30, 60, 120, 240},
		},
		[]string{"kind", "status"},
	)

	// JobsTotal tracks finished jobs by kind and outcome.
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docbot_jobs_total",
			Help: "Document jobs by kind and outcome",
		},
		[]string{"kind", "status"},
	)

	// IntentsTotal tracks classified free-text intents.
	IntentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docbot_intents_total",
			Help: "Classified free-text intents",
		},
		[]string{"intent"},
	)

	// AICallsTotal tracks AI chat calls by feature and outcome.
	AICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docbot_ai_calls_total",
			Help: "AI chat calls by feature and outcome",
		},
		[]string{"feature", "status"},
	)

	// AICallDuration tracks AI call latency including retries.
	AICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docbot_ai_call_duration_seconds",
			Help:    "AI chat call duration including retries",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"feature"},
	)

	// MemoryFallbackActive is 1 while conversation memory runs on the in-process fallback.
	MemoryFallbackActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docbot_memory_fallback_active",
			Help: "1 when conversation memory is served from the in-memory fallback",
		},
	)

	// ConversationLanesActive tracks conversations with queued or running events.
	ConversationLanesActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "docbot_conversation_lanes_active",
			Help: "Conversations with queued or in-flight events",
		},
	)
)

// RecordRequest records metrics for an ops HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordJob records a finished conversion or merge job.
func RecordJob(kind, status string, duration float64) {
	JobDuration.WithLabelValues(kind, status).Observe(duration)
	JobsTotal.WithLabelValues(kind, status).Inc()
}

// RecordIntent records a classified intent.
func RecordIntent(intent string) {
	IntentsTotal.WithLabelValues(intent).Inc()
}

// RecordAICall records an AI call outcome.
func RecordAICall(feature, status string, duration float64) {
	AICallsTotal.WithLabelValues(feature, status).Inc()
	AICallDuration.WithLabelValues(feature).Observe(duration)
}

// SetMemoryFallback flips the memory fallback gauge.
func SetMemoryFallback(active bool) {
	if active {
		MemoryFallbackActive.Set(1)
		return
	}
	MemoryFallbackActive.Set(0)
}

// IncrementLanes increments the active conversation lane count.
func IncrementLanes() {
	ConversationLanesActive.Inc()
}

// DecrementLanes decrements the active conversation lane count.
func DecrementLanes() {
	ConversationLanesActive.Dec()
}
