// Package metrics holds the process-wide Prometheus registry,
// mirroring the teacher's pkg/metrics / internal/metrics convention of
// package-level promauto collectors rather than a struct passed
// through every constructor.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReplicatorLagSeconds is registered for the age of the oldest
	// unacked event in a replicator's event-hub queue; no code path
	// sets it.
	ReplicatorLagSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "replicator_lag_seconds",
			Help: "Age of the oldest unacked event in a replicator's queue",
		},
		[]string{"topic"},
	)

	// ReplicatorStepsTotal is registered for steady-loop steps by
	// outcome; no code path increments it.
	ReplicatorStepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replicator_steps_total",
			Help: "Total replicator steady-loop steps by outcome",
		},
		[]string{"topic", "outcome"},
	)

	// ReplicatorAppliedTotal is registered for entities applied to the
	// replica by change kind; no code path increments it.
	ReplicatorAppliedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "replicator_applied_total",
			Help: "Total entities applied to the replica by change kind",
		},
		[]string{"topic", "kind"},
	)

	// EventHubQueueDepth is registered for the number of unacked events
	// across all consumers of a topic; no code path sets it.
	EventHubQueueDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "event_hub_queue_depth",
			Help: "Unacked events outstanding for a topic",
		},
		[]string{"topic"},
	)

	// EventHubConsumersCleanedTotal is registered for idle consumers
	// removed by publish-time cleanup; the cleanup logs its count but
	// does not increment this counter.
	EventHubConsumersCleanedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_hub_consumers_cleaned_total",
			Help: "Idle event-hub consumers removed during cleanup",
		},
		[]string{"topic"},
	)

	// EvaluatorDurationSeconds times one read-API GetConfigValue call
	// (lookup, rendering and evaluation together).
	EvaluatorDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "evaluator_duration_seconds",
			Help:    "Duration of override evaluation",
			Buckets: []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		},
	)

	// ReadAPIRequestsTotal counts read-API HTTP requests by route and
	// status code.
	ReadAPIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "read_api_requests_total",
			Help: "Total read API requests by route and status",
		},
		[]string{"route", "status"},
	)

	// ReadAPIRequestDurationSeconds is registered for read-API HTTP
	// request durations; no code path observes it.
	ReadAPIRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "read_api_request_duration_seconds",
			Help:    "Duration of read API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// StreamSubscribersActive is the number of open /events SSE
	// connections per project.
	StreamSubscribersActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "stream_subscribers_active",
			Help: "Open SSE subscribers by project",
		},
		[]string{"project_id"},
	)
)
