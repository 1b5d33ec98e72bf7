// internal/service/publishing/application/metrics.go
package application

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "publish_jobs_processed_total",
		Help: "Jobs claimed and driven through the publish pipeline.",
	})
	jobsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "publish_jobs_published_total",
		Help: "Jobs that were delivered and terminalized as published.",
	})
	jobsCancelled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "publish_jobs_cancelled_total",
		Help: "Jobs cancelled for configuration reasons.",
	}, []string{"reason"})
	jobsRetried = promauto.NewCounter(prometheus.CounterOpts{
		Name: "publish_jobs_retried_total",
		Help: "Failed jobs rescheduled for a later cycle.",
	})
	jobsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "publish_jobs_failed_total",
		Help: "Jobs that exhausted their retry budget.",
	})
	cycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "publish_cycle_duration_seconds",
		Help:    "Wall time of one worker cycle.",
		Buckets: prometheus.DefBuckets,
	})
)
