// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QueueJobsTotal counts jobs leaving the queue by terminal outcome.
	QueueJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ytdlq_queue_jobs_total",
		Help: "Total jobs retired by the download queue, by outcome",
	}, []string{"outcome"})

	// QueueAdmittedTotal counts jobs accepted by Add.
	QueueAdmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytdlq_queue_admitted_total",
		Help: "Total jobs accepted into the pending queue",
	})

	// QueuePending is the current pending queue length.
	QueuePending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ytdlq_queue_pending",
		Help: "Jobs waiting for a free slot",
	})

	// QueueActive is the number of running jobs.
	QueueActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ytdlq_queue_active",
		Help: "Jobs currently running",
	})

	// QueueDrainsTotal counts queue-complete emissions.
	QueueDrainsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ytdlq_queue_drains_total",
		Help: "Number of times the queue drained (pending and active both empty)",
	})

	// JobDuration observes wall time from start to terminal state.
	JobDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ytdlq_job_duration_seconds",
		Help:    "Download job duration from start to terminal state",
		Buckets: prometheus.ExponentialBuckets(1, 2, 14), // 1s to ~4.5h
	}, []string{"outcome"})
)

// Job outcomes used as label values.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
	OutcomeRemoved   = "removed"
)

// IncJobOutcome records a retired job.
func IncJobOutcome(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	QueueJobsTotal.WithLabelValues(outcome).Inc()
}

// SetQueueDepth publishes the pending/active gauges in one call.
func SetQueueDepth(pending, active int) {
	QueuePending.Set(float64(pending))
	QueueActive.Set(float64(active))
}
