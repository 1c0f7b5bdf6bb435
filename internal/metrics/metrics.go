// Package metrics holds the gateway's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WorkerCount tracks connected MIT workers.
	WorkerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mit_worker_count",
		Help: "Number of mit workers",
	})

	// QueueLength tracks the dispatch queue length.
	QueueLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mit_worker_queue_length",
		Help: "Length of mit worker queue",
	})

	// TaskDispatchCount counts tasks enqueued for dispatch.
	TaskDispatchCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mit_worker_task_dispatch_count",
		Help: "Number of mit worker tasks dispatched",
	})

	// TaskFinishCount counts tasks finished successfully.
	TaskFinishCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mit_worker_task_finish_count",
		Help: "Number of mit worker tasks finished",
	})

	// TaskErrorCount counts failed task attempts.
	TaskErrorCount = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mit_worker_task_error_count",
		Help: "Number of mit worker tasks errored",
	})

	// TaskDuration observes successful task execution time.
	TaskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mit_worker_task_duration_seconds",
		Help:    "Duration of mit worker tasks",
		Buckets: prometheus.DefBuckets,
	})
)
