// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"github.com/ManuGH/subview/internal/domain/session/model"
	"github.com/ManuGH/subview/internal/subtitle"
)

// DeltaKind classifies a cursor move.
type DeltaKind string

const (
	DeltaNone   DeltaKind = "none"
	DeltaAdd    DeltaKind = "add"
	DeltaRemove DeltaKind = "remove"
)

// Delta is the change needed to move a viewer from one cursor to another.
type Delta struct {
	Kind    DeltaKind
	Cursor  int
	Added   []subtitle.Line
	Removed int
}

// ComputeDelta moves the visible cursor of track to timeMs.
// Lines become visible when their start time is at or before timeMs.
func ComputeDelta(track *subtitle.Track, oldCursor int, timeMs int64) Delta {
	next := track.CursorAt(timeMs)
	switch {
	case next > oldCursor:
		return Delta{Kind: DeltaAdd, Cursor: next, Added: track.Range(oldCursor, next)}
	case next < oldCursor:
		return Delta{Kind: DeltaRemove, Cursor: next, Removed: oldCursor - next}
	default:
		return Delta{Kind: DeltaNone, Cursor: next}
	}
}

// Events returns the viewer events that apply the delta, oldest line first.
func (d Delta) Events() []model.SessionEvent {
	switch d.Kind {
	case DeltaAdd:
		out := make([]model.SessionEvent, len(d.Added))
		for i, l := range d.Added {
			out[i] = model.SubtitleAdd{Subtitle: l}
		}
		return out
	case DeltaRemove:
		return []model.SessionEvent{model.SubtitleRemove{Count: d.Removed}}
	default:
		return nil
	}
}
