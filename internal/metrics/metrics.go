// Package metrics exposes Prometheus instrumentation for the ingestion and
// generation pipelines.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AlertsIngested counts alerts accepted by the correlation engine,
	// labeled by source and severity
	AlertsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rcapilot_alerts_ingested_total",
		Help: "Total number of alerts accepted for correlation",
	}, []string{"source", "severity"})

	// AlertsDeduplicated counts alerts folded into an existing occurrence
	AlertsDeduplicated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rcapilot_alerts_deduplicated_total",
		Help: "Total number of alerts folded into an existing fingerprint",
	})

	// GroupsOpened counts correlation groups opened
	GroupsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rcapilot_groups_opened_total",
		Help: "Total number of correlation groups opened",
	})

	// GroupsClosed counts correlation groups closed, labeled by how
	// ("sweep" or "manual")
	GroupsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rcapilot_groups_closed_total",
		Help: "Total number of correlation groups closed",
	}, []string{"reason"})

	// RCAGenerations counts RCA generation attempts by outcome
	RCAGenerations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rcapilot_rca_generations_total",
		Help: "Total number of RCA generation attempts by outcome",
	}, []string{"outcome"})

	// ModelLatency observes end-to-end model invocation latency per RCA
	ModelLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rcapilot_model_latency_seconds",
		Help:    "End-to-end model latency for RCA generation",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	})

	// FeedbackRecorded counts feedback submissions
	FeedbackRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rcapilot_feedback_recorded_total",
		Help: "Total number of feedback entries recorded",
	})
)
