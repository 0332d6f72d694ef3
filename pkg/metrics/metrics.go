// Package metrics provides Prometheus metrics for the verification checker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReconciliationsTotal tracks reconciliation runs by outcome
	ReconciliationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checker",
			Subsystem: "reconciliation",
			Name:      "runs_total",
			Help:      "Total number of reconciliation runs by status",
		},
		[]string{"mode", "status"},
	)

	// ReconciliationDuration tracks end to end run duration in seconds
	ReconciliationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "checker",
			Subsystem: "reconciliation",
			Name:      "run_duration_seconds",
			Help:      "Duration of reconciliation runs in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"mode"},
	)

	// OutcomesTotal tracks per-message outcomes
	OutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checker",
			Subsystem: "reconciliation",
			Name:      "outcomes_total",
			Help:      "Total number of internal messages by outcome",
		},
		[]string{"status", "reason"},
	)

	// MatchConfidence tracks the similarity of accepted matches
	MatchConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "checker",
			Subsystem: "reconciliation",
			Name:      "match_confidence",
			Help:      "Similarity score of matched messages",
			Buckets:   []float64{0.5, 0.6, 0.7, 0.8, 0.85, 0.9, 0.95, 0.99, 1},
		},
	)

	// ProviderRequestsTotal tracks outbound provider page requests
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checker",
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Total number of provider page requests",
		},
		[]string{"status_code"},
	)

	// ProviderRequestDuration tracks provider request duration
	ProviderRequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "checker",
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Duration of provider page requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)

	// ProviderFetchesTotal tracks per-phone-number fetch results
	ProviderFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checker",
			Subsystem: "provider",
			Name:      "fetches_total",
			Help:      "Total number of per phone number fetches by status",
		},
		[]string{"status"},
	)

	// CacheLookupsTotal tracks provider cache lookups
	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checker",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Total number of provider cache lookups by result",
		},
		[]string{"backend", "result"},
	)

	// EventsPublishedTotal tracks completion events sent to kafka
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "checker",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of reconciliation events published",
		},
		[]string{"status"},
	)
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"

	CacheHit  = "hit"
	CacheMiss = "miss"
)
