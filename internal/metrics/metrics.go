// Package metrics provides Prometheus metrics for peervote.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "peervote"
)

// API client metrics
var (
	// APIRequestsTotal counts outbound API requests by operation and outcome.
	// Outcome is the HTTP status code, or "transport_error" when no response arrived.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of outbound API requests",
		},
		[]string{"operation", "outcome"},
	)

	// APIRequestDuration tracks outbound request latency.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Outbound API request latency in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"operation"},
	)
)

// Voting metrics
var (
	// VotesTotal counts vote attempts by result (accepted, failed, skipped).
	VotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "votes",
			Name:      "total",
			Help:      "Vote attempts by result",
		},
		[]string{"result"},
	)

	// VotesInFlight tracks vote submissions awaiting a response.
	VotesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "votes",
			Name:      "in_flight",
			Help:      "Vote submissions awaiting a response",
		},
	)
)

// Vote results.
const (
	VoteAccepted = "accepted"
	VoteFailed   = "failed"
	VoteSkipped  = "skipped"
)

// Dev server metrics
var (
	// DevServerRequestsTotal counts requests handled by the development backend.
	DevServerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "devserver",
			Name:      "requests_total",
			Help:      "Requests handled by the development backend",
		},
		[]string{"method", "route", "status"},
	)
)
