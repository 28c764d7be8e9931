// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package model defines the session data exchanged with viewers.
package model

import (
	"time"

	"github.com/ManuGH/subview/internal/subtitle"
)

// EventType is the "type" discriminator of every viewer frame.
type EventType string

const (
	EventTracks         EventType = "tracks"
	EventSubtitlesInit  EventType = "subtitles_init"
	EventSubtitleAdd    EventType = "subtitle_add"
	EventSubtitleRemove EventType = "subtitle_remove"
	EventSessionClosed  EventType = "session_closed"

	EventSessionsList   EventType = "sessions_list"
	EventSessionAdded   EventType = "session_added"
	EventSessionUpdated EventType = "session_updated"
	EventSessionRemoved EventType = "session_removed"

	CommandSelectTrack EventType = "selectTrack"
)

// DefaultVideoTitle is shown until a session is initialised.
const DefaultVideoTitle = "Untitled"

// CloseReason explains why a session ended.
type CloseReason string

const (
	CloseDeleted  CloseReason = "deleted"
	CloseExpired  CloseReason = "expired"
	CloseShutdown CloseReason = "shutdown"
)

// SessionEvent is a frame for the viewers of one session.
// The set of implementations is closed.
type SessionEvent interface {
	Type() EventType
	sessionEvent()
}

// GlobalEvent is a frame for observers of the session list.
// The set of implementations is closed.
type GlobalEvent interface {
	Type() EventType
	globalEvent()
}

// Tracks announces the available tracks and the active one.
type Tracks struct {
	Names      []string          `json:"tracks"`
	Active     *string           `json:"currentTrack"`
	VideoTitle string            `json:"videoTitle"`
	Languages  map[string]string `json:"languages,omitempty"`
}

// SubtitlesInit replaces the viewer's visible list.
type SubtitlesInit struct {
	Lines []subtitle.Line `json:"lines"`
}

// SubtitleAdd appends one line to the visible list.
type SubtitleAdd struct {
	Subtitle subtitle.Line `json:"subtitle"`
}

// SubtitleRemove drops the last Count lines of the visible list.
type SubtitleRemove struct {
	Count int `json:"count"`
}

// SessionClosed tells viewers the session is gone; the connection closes next.
type SessionClosed struct {
	SessionID string      `json:"session_id"`
	Reason    CloseReason `json:"reason"`
}

func (Tracks) Type() EventType         { return EventTracks }
func (SubtitlesInit) Type() EventType  { return EventSubtitlesInit }
func (SubtitleAdd) Type() EventType    { return EventSubtitleAdd }
func (SubtitleRemove) Type() EventType { return EventSubtitleRemove }
func (SessionClosed) Type() EventType  { return EventSessionClosed }

func (Tracks) sessionEvent()         {}
func (SubtitlesInit) sessionEvent()  {}
func (SubtitleAdd) sessionEvent()    {}
func (SubtitleRemove) sessionEvent() {}
func (SessionClosed) sessionEvent()  {}

// Summary describes a session in the global list.
type Summary struct {
	ID           string    `json:"id"`
	VideoTitle   string    `json:"video_title"`
	Viewers      int       `json:"viewers"`
	Initialized  bool      `json:"initialized"`
	ActiveTrack  string    `json:"active_track,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// SessionsList is the snapshot sent when a global observer joins.
type SessionsList struct {
	Sessions []Summary `json:"sessions"`
}

// SessionAdded announces a new session.
type SessionAdded struct {
	Session Summary `json:"session"`
}

// SessionUpdated announces a changed title, track or viewer count.
type SessionUpdated struct {
	Session Summary `json:"session"`
}

// SessionRemoved announces a deleted or expired session.
type SessionRemoved struct {
	SessionID string `json:"session_id"`
}

func (SessionsList) Type() EventType   { return EventSessionsList }
func (SessionAdded) Type() EventType   { return EventSessionAdded }
func (SessionUpdated) Type() EventType { return EventSessionUpdated }
func (SessionRemoved) Type() EventType { return EventSessionRemoved }

func (SessionsList) globalEvent()   {}
func (SessionAdded) globalEvent()   {}
func (SessionUpdated) globalEvent() {}
func (SessionRemoved) globalEvent() {}
