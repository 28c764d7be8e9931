// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package subtitle

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrNoLines is returned when a file contains no usable subtitle block.
var ErrNoLines = errors.New("subtitle: no valid lines")

// SkipReason classifies a block that was dropped during parsing.
type SkipReason string

const (
	SkipMalformedBlock SkipReason = "malformed_block"
	SkipBadIndex       SkipReason = "bad_index"
	SkipBadTimestamp   SkipReason = "bad_timestamp"
	SkipInvertedTiming SkipReason = "inverted_timing"
)

// Report summarises a parse run.
type Report struct {
	Blocks  int
	Parsed  int
	Skipped map[SkipReason]int
}

// SkippedTotal returns the number of dropped blocks.
func (r Report) SkippedTotal() int {
	n := 0
	for _, c := range r.Skipped {
		n += c
	}
	return n
}

func (r *Report) skip(reason SkipReason) {
	if r.Skipped == nil {
		r.Skipped = make(map[SkipReason]int)
	}
	r.Skipped[reason]++
}

var timingRe = regexp.MustCompile(`^\s*(\d+):(\d{1,2}):(\d{1,2})[,.](\d{1,3})\s*-->\s*(\d+):(\d{1,2}):(\d{1,2})[,.](\d{1,3})`)

// Parse decodes raw SRT bytes into lines sorted by start time.
// Malformed blocks are skipped and counted in the report; only a decoding
// failure is returned as an error. UTF-8 and BOM-marked UTF-16 are accepted.
func Parse(raw []byte) ([]Line, Report, error) {
	decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), raw)
	if err != nil {
		return nil, Report{}, fmt.Errorf("decode subtitle text: %w", err)
	}
	lines, report := parseText(string(decoded))
	return lines, report, nil
}

// parseString parses already decoded SRT text.
func parseString(text string) ([]Line, Report) {
	return parseText(strings.TrimPrefix(text, "\ufeff"))
}

func parseText(text string) ([]Line, Report) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var (
		report Report
		out    []Line
		block  []string
	)

	flush := func() {
		if len(block) == 0 {
			return
		}
		report.Blocks++
		if line, reason, ok := parseBlock(block); ok {
			out = append(out, line)
			report.Parsed++
		} else {
			report.skip(reason)
		}
		block = block[:0]
	}

	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) == "" {
			flush()
			continue
		}
		block = append(block, l)
	}
	flush()

	return NewTrack("", "", out).lines, report
}

func parseBlock(block []string) (Line, SkipReason, bool) {
	if len(block) < 3 {
		return Line{}, SkipMalformedBlock, false
	}
	if _, err := strconv.Atoi(strings.TrimSpace(block[0])); err != nil {
		return Line{}, SkipBadIndex, false
	}

	m := timingRe.FindStringSubmatch(block[1])
	if m == nil {
		return Line{}, SkipBadTimestamp, false
	}
	start, ok := timestampMs(m[1], m[2], m[3], m[4])
	if !ok {
		return Line{}, SkipBadTimestamp, false
	}
	end, ok := timestampMs(m[5], m[6], m[7], m[8])
	if !ok {
		return Line{}, SkipBadTimestamp, false
	}
	if start >= end {
		return Line{}, SkipInvertedTiming, false
	}

	// Blocks are split on blank lines, so the text is never empty here.
	text := strings.TrimSpace(strings.Join(block[2:], "\n"))

	return Line{Text: norm.NFC.String(text), StartMs: start, EndMs: end}, "", true
}

// maxHours keeps the millisecond total of a timestamp inside int64.
const maxHours = (math.MaxInt64 - 3_599_999) / 3_600_000

func timestampMs(h, m, s, ms string) (int64, bool) {
	hours, err := strconv.ParseInt(h, 10, 64)
	if err != nil || hours > maxHours {
		return 0, false
	}
	minutes, _ := strconv.ParseInt(m, 10, 64)
	seconds, _ := strconv.ParseInt(s, 10, 64)
	millis, _ := strconv.ParseInt(ms, 10, 64)
	if minutes >= 60 || seconds >= 60 || millis >= 1000 {
		return 0, false
	}
	return ((hours*60+minutes)*60+seconds)*1000 + millis, true
}
