package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HttpRequestsTotal counts HTTP requests handled by the task API.
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of http requests handled by the service.",
		},
		[]string{"path", "method", "code"},
	)

	// TasksSubmittedTotal counts task submissions by outcome.
	TasksSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasks_submitted_total",
			Help: "Total number of task submissions.",
		},
		[]string{"status"}, // stored / store_failed
	)

	// DispatchFailuresTotal counts submissions that were stored but could not
	// be published to the work queue. These tasks need operator re-dispatch.
	DispatchFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "task_dispatch_failures_total",
			Help: "Total number of stored tasks that failed to enqueue for dispatch.",
		},
	)

	// TaskTransitionsTotal counts state transition requests by target and outcome.
	TaskTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_transitions_total",
			Help: "Total number of task state transition requests.",
		},
		[]string{"target_state", "status"}, // applied / rejected / failed
	)

	// TasksProcessedTotal counts tasks the worker finished, by type and outcome.
	TasksProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasks_processed_total",
			Help: "Total number of tasks processed by the worker.",
		},
		[]string{"task_type", "status"}, // success / failed
	)

	// TaskProcessingDuration tracks payload execution latency in seconds.
	TaskProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "task_processing_duration_seconds",
			Help:    "Duration of payload execution on the worker.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task_type"},
	)

	// QueueDepth tracks the number of pending dispatch messages.
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "task_queue_depth",
			Help: "Number of task references waiting in the work queue.",
		},
	)
)

// Register is an explicit registration point called from main. The promauto
// constructors above already register with the default registry.
func Register() {
}
