// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package subtitle

import (
	"fmt"

	svlog "github.com/ManuGH/subview/internal/log"
	"github.com/ManuGH/subview/internal/metrics"
)

// Build parses raw SRT content into a named track. Skipped blocks are logged
// and counted; a file without a single valid block yields ErrNoLines.
func Build(name string, raw []byte) (*Track, Report, error) {
	lines, report, err := Parse(raw)
	if err != nil {
		return nil, report, err
	}
	recordReport(name, report)
	if len(lines) == 0 {
		return nil, report, fmt.Errorf("track %q: %w", name, ErrNoLines)
	}
	return NewTrack(name, DetectLanguage(name, lines), lines), report, nil
}

func recordReport(name string, report Report) {
	for reason, n := range report.Skipped {
		metrics.AddSubtitleBlocksSkipped(string(reason), n)
	}
	if report.SkippedTotal() == 0 {
		return
	}
	logger := svlog.WithComponent("subtitle")
	logger.Warn().
		Str(svlog.FieldEvent, "subtitle.blocks_skipped").
		Str(svlog.FieldTrack, name).
		Int("blocks", report.Blocks).
		Int("skipped", report.SkippedTotal()).
		Interface("reasons", report.Skipped).
		Msg("skipped malformed subtitle blocks")
}
