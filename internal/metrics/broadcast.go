// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	broadcastFramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subview_broadcast_frames_total",
		Help: "Frames delivered to viewer connections by scope kind",
	}, []string{"scope"}) // scope=global|session

	broadcastDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subview_broadcast_dropped_total",
		Help: "Viewer connections dropped during broadcast by scope kind and reason",
	}, []string{"scope", "reason"}) // reason=closed|slow|rejected|error

	viewersConnected = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "subview_viewers_connected",
		Help: "Connected viewer connections by scope kind",
	}, []string{"scope"})
)

// AddBroadcastFrames records delivered frames.
func AddBroadcastFrames(scope string, n int) {
	if n > 0 {
		broadcastFramesTotal.WithLabelValues(scope).Add(float64(n))
	}
}

// IncBroadcastDrop records a connection dropped from a scope.
func IncBroadcastDrop(scope, reason string) {
	if reason == "" {
		reason = "error"
	}
	broadcastDroppedTotal.WithLabelValues(scope, reason).Inc()
}

// AddViewers adjusts the connected viewer gauge by delta.
func AddViewers(scope string, delta int) {
	viewersConnected.WithLabelValues(scope).Add(float64(delta))
}
