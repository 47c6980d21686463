// Package metrics exposes Prometheus metrics for the meeting assistant.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InferenceCallsTotal counts outbound inference calls.
	// Labels: capability (transcribe/translate/sentiment/...), status (success/error)
	InferenceCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetassist_inference_calls_total",
			Help: "Total number of inference calls by capability and outcome",
		},
		[]string{"capability", "status"},
	)

	// InferenceErrorsTotal counts failed inference calls by error code.
	// Labels: capability, error_code (INFERENCE_FAILED/INFERENCE_TIMEOUT/...)
	InferenceErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetassist_inference_errors_total",
			Help: "Total number of inference errors by capability and error code",
		},
		[]string{"capability", "error_code"},
	)

	// InferenceDuration observes inference latency in seconds.
	// Buckets: 50ms .. 120s
	InferenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meetassist_inference_duration_seconds",
			Help:    "Inference call duration in seconds by capability",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"capability"},
	)

	// AssistantCommandsTotal counts routed assistant commands.
	// Labels: intent, state (answered/failed)
	AssistantCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetassist_assistant_commands_total",
			Help: "Total number of assistant commands by intent and final state",
		},
		[]string{"intent", "state"},
	)

	// DegradationEventsTotal counts adapter switches.
	// Labels: from, to (adapter names)
	DegradationEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetassist_degradation_events_total",
			Help: "Total number of inference adapter switches",
		},
		[]string{"from", "to"},
	)

	// SessionSize reports the current size of each session collection.
	// Labels: collection (transcript/speakers/action_items)
	SessionSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "meetassist_session_size",
			Help: "Current number of entries per session collection",
		},
		[]string{"collection"},
	)

	// SessionGeneration is the current buffer generation.
	SessionGeneration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "meetassist_session_generation",
			Help: "Current session buffer generation",
		},
	)

	// HTTPRequestsTotal counts served HTTP requests.
	// Labels: method, route (gin full path), status
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "meetassist_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestDuration observes HTTP request latency in seconds.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "meetassist_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// InferenceDegraded is 1 while the fallback adapter is active.
	InferenceDegraded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "meetassist_inference_degraded",
			Help: "Inference degraded mode (0=primary, 1=fallback)",
		},
	)
)

// RecordInferenceCall records one completed inference call.
func RecordInferenceCall(capability string, success bool, durationSeconds float64) {
	status := "success"
	if !success {
		status = "error"
	}
	InferenceCallsTotal.WithLabelValues(capability, status).Inc()
	InferenceDuration.WithLabelValues(capability).Observe(durationSeconds)
}

// RecordInferenceError records an inference error code.
func RecordInferenceError(capability, errorCode string) {
	InferenceErrorsTotal.WithLabelValues(capability, errorCode).Inc()
}

// RecordCommand records the final state of an assistant command.
func RecordCommand(intent, state string) {
	AssistantCommandsTotal.WithLabelValues(intent, state).Inc()
}

// RecordDegradationEvent records an adapter switch.
func RecordDegradationEvent(from, to string) {
	DegradationEventsTotal.WithLabelValues(from, to).Inc()
}

// RecordHTTPRequest records one served HTTP request.
func RecordHTTPRequest(method, route, status string, durationSeconds float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(route).Observe(durationSeconds)
}

// SetDegraded sets the degraded-mode gauge.
func SetDegraded(degraded bool) {
	if degraded {
		InferenceDegraded.Set(1)
	} else {
		InferenceDegraded.Set(0)
	}
}

// SetSessionSize publishes collection sizes and the generation.
func SetSessionSize(segments, speakers, actionItems int, generation uint64) {
	SessionSize.WithLabelValues("transcript").Set(float64(segments))
	SessionSize.WithLabelValues("speakers").Set(float64(speakers))
	SessionSize.WithLabelValues("action_items").Set(float64(actionItems))
	SessionGeneration.Set(float64(generation))
}
