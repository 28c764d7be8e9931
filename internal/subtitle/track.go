// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package subtitle parses SRT subtitle files into immutable, time-ordered tracks.
package subtitle

import (
	"sort"
)

// Line is a single timed subtitle entry.
type Line struct {
	Text    string `json:"text"`
	StartMs int64  `json:"start_ms"`
	EndMs   int64  `json:"end_ms,omitempty"`
}

// Track is an immutable list of lines sorted by start time.
// A nil *Track behaves as an empty track.
type Track struct {
	name     string
	language string
	lines    []Line
}

// NewTrack copies lines into a new track, sorting them by start time.
// Lines sharing a start time keep their input order.
func NewTrack(name, language string, lines []Line) *Track {
	cp := make([]Line, len(lines))
	copy(cp, lines)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].StartMs < cp[j].StartMs })
	return &Track{name: name, language: language, lines: cp}
}

// Name returns the track name, unique within a session.
func (t *Track) Name() string {
	if t == nil {
		return ""
	}
	return t.name
}

// Language returns the detected BCP-47 language tag, or "" if unknown.
func (t *Track) Language() string {
	if t == nil {
		return ""
	}
	return t.language
}

// Len returns the number of lines.
func (t *Track) Len() int {
	if t == nil {
		return 0
	}
	return len(t.lines)
}

// Line returns the i-th line in time order.
func (t *Track) Line(i int) Line {
	return t.lines[i]
}

// Lines returns a copy of all lines.
func (t *Track) Lines() []Line {
	return t.Range(0, t.Len())
}

// Range returns a copy of lines [from, to).
func (t *Track) Range(from, to int) []Line {
	if t == nil || from >= to {
		return []Line{}
	}
	out := make([]Line, to-from)
	copy(out, t.lines[from:to])
	return out
}

// CursorAt returns the number of lines whose start time is at or before timeMs.
func (t *Track) CursorAt(timeMs int64) int {
	if t == nil {
		return 0
	}
	return sort.Search(len(t.lines), func(i int) bool {
		return t.lines[i].StartMs > timeMs
	})
}
