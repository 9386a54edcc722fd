// Package metrics provides the centralized Prometheus metrics registry for
// the race engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	SamplesAcceptedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runbattle",
		Name:      "samples_accepted_total",
		Help:      "Total number of position samples that passed the filter",
	})
	SamplesRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runbattle",
		Name:      "samples_rejected_total",
		Help:      "Total number of position samples rejected by the filter",
	}, []string{"reason"})
	SamplesBootstrapTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runbattle",
		Name:      "samples_bootstrap_total",
		Help:      "Total number of first-fix samples that established a filter reference point",
	})
	EventsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runbattle",
		Name:      "events_dropped_total",
		Help:      "Total number of events dropped after session teardown",
	})
	SessionsCompletedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runbattle",
		Name:      "sessions_completed_total",
		Help:      "Total number of sessions that reached COMPLETED",
	})
	SessionsCancelledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runbattle",
		Name:      "sessions_cancelled_total",
		Help:      "Total number of sessions that reached CANCELLED",
	})
	GraceTimeoutsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runbattle",
		Name:      "grace_timeouts_total",
		Help:      "Total number of grace windows that expired with stragglers",
	})
	BroadcastsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "runbattle",
		Name:      "broadcasts_total",
		Help:      "Total number of outbound broadcasts by event type",
	}, []string{"type"})
	FinishClaimMismatchTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runbattle",
		Name:      "finish_claim_mismatch_total",
		Help:      "Total number of finish claims whose totals disagreed with the ledger",
	})
	RateLimitedMessagesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "runbattle",
		Name:      "rate_limited_messages_total",
		Help:      "Total number of inbound messages dropped by the rate limiter",
	})
)

// Gauge metrics
var (
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "runbattle",
		Name:      "sessions_active",
		Help:      "Number of live session actors",
	})
	ConnectedClients = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "runbattle",
		Name:      "connected_clients",
		Help:      "Number of connected WebSocket clients",
	})
)

// Histogram metrics
var (
	EventProcessingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "runbattle",
		Name:      "event_processing_duration_seconds",
		Help:      "Duration of one session-actor event cycle in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	ResultPersistLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "runbattle",
		Name:      "result_persist_latency_seconds",
		Help:      "Latency of final-result persistence in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	EventQueueDepth = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "runbattle",
		Name:      "event_queue_depth",
		Help:      "Queue length observed when a session actor dequeues an event",
		Buckets:   []float64{0, 1, 2, 4, 8, 16, 32, 64, 128, 256},
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		// Register counter metrics
		registry.MustRegister(SamplesAcceptedTotal)
		registry.MustRegister(SamplesRejectedTotal)
		registry.MustRegister(SamplesBootstrapTotal)
		registry.MustRegister(EventsDroppedTotal)
		registry.MustRegister(SessionsCompletedTotal)
		registry.MustRegister(SessionsCancelledTotal)
		registry.MustRegister(GraceTimeoutsTotal)
		registry.MustRegister(BroadcastsTotal)
		registry.MustRegister(FinishClaimMismatchTotal)
		registry.MustRegister(RateLimitedMessagesTotal)

		// Register gauge metrics
		registry.MustRegister(SessionsActive)
		registry.MustRegister(ConnectedClients)

		// Register histogram metrics
		registry.MustRegister(EventProcessingDuration)
		registry.MustRegister(ResultPersistLatency)
		registry.MustRegister(EventQueueDepth)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordSampleVerdict records the outcome of filtering one position sample.
// A first fix only establishes the reference point; it is normal operation,
// not a rejection.
func RecordSampleVerdict(verdict string) {
	switch verdict {
	case "accepted":
		SamplesAcceptedTotal.Inc()
	case "bootstrap":
		SamplesBootstrapTotal.Inc()
	default:
		SamplesRejectedTotal.WithLabelValues(verdict).Inc()
	}
}

// RecordBroadcast records one outbound broadcast.
func RecordBroadcast(eventType string) {
	BroadcastsTotal.WithLabelValues(eventType).Inc()
}
