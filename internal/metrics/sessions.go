// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package metrics holds the Prometheus collectors of the daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "subview_sessions_active",
		Help: "Number of registered viewing sessions",
	})

	sessionOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subview_session_ops_total",
		Help: "Session registry operations by op and outcome",
	}, []string{"op", "outcome"}) // outcome=ok|not_found|invalid_track|noop|error

	visibilityDeltasTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subview_visibility_deltas_total",
		Help: "Visibility changes computed on time updates by kind",
	}, []string{"kind"}) // kind=add|remove|none

	subtitleLinesAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subview_subtitle_lines_added_total",
		Help: "Subtitle lines that became visible through time updates",
	})

	sessionsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subview_sessions_expired_total",
		Help: "Sessions removed by the heartbeat sweeper",
	})

	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "subview_sweep_duration_seconds",
		Help:    "Duration of heartbeat expiry sweeps",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})
)

// SetSessionsActive records the current number of sessions.
func SetSessionsActive(n int) {
	sessionsActive.Set(float64(n))
}

// IncSessionOp records one registry operation.
func IncSessionOp(op, outcome string) {
	if op == "" {
		op = "unknown"
	}
	if outcome == "" {
		outcome = "ok"
	}
	sessionOpsTotal.WithLabelValues(op, outcome).Inc()
}

// RecordVisibilityDelta records the result of a cursor move.
// added is the number of newly visible lines for kind "add".
func RecordVisibilityDelta(kind string, added int) {
	visibilityDeltasTotal.WithLabelValues(kind).Inc()
	if added > 0 {
		subtitleLinesAddedTotal.Add(float64(added))
	}
}

// AddSessionsExpired records sessions removed by a sweep.
func AddSessionsExpired(n int) {
	if n > 0 {
		sessionsExpiredTotal.Add(float64(n))
	}
}

// ObserveSweep records the duration of one sweep in seconds.
func ObserveSweep(seconds float64) {
	sweepDuration.Observe(seconds)
}
