// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	subtitleBlocksSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subview_subtitle_blocks_skipped_total",
		Help: "Malformed subtitle blocks skipped during parsing by reason",
	}, []string{"reason"})

	trackCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "subview_track_cache_total",
		Help: "Parsed-track cache lookups by result",
	}, []string{"result"}) // result=hit|miss

	tracksRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "subview_tracks_rejected_total",
		Help: "Subtitle tracks rejected at session init because no line could be parsed",
	})
)

// AddSubtitleBlocksSkipped records n skipped blocks for reason.
func AddSubtitleBlocksSkipped(reason string, n int) {
	if n > 0 {
		subtitleBlocksSkipped.WithLabelValues(reason).Add(float64(n))
	}
}

// IncTrackCache records one track cache lookup.
func IncTrackCache(result string) {
	trackCacheTotal.WithLabelValues(result).Inc()
}

// IncTracksRejected records a track dropped at init.
func IncTracksRejected() {
	tracksRejectedTotal.Inc()
}
