// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/ManuGH/subview/internal/broadcast"
	"github.com/ManuGH/subview/internal/domain/session/model"
	"github.com/ManuGH/subview/internal/subtitle"
)

// sessionMeta is the part of a session shown in summaries. It is replaced
// as a whole so summaries can be built without taking the session lock.
type sessionMeta struct {
	title       string
	initialized bool
	activeTrack string
}

// session is one player instance. Fields below mu are guarded by it.
type session struct {
	id        string
	createdAt time.Time
	viewers   *broadcast.Scope

	lastActivity atomic.Int64 // unix nanoseconds
	meta         atomic.Pointer[sessionMeta]

	mu          sync.Mutex
	closed      bool
	title       string
	tracks      map[string]*subtitle.Track
	names       []string // sorted
	active      *subtitle.Track
	currentMs   int64
	cursor      int
	initialized bool
}

func newSession(id string, now time.Time, maxViewers int) *session {
	s := &session{
		id:        id,
		createdAt: now,
		viewers:   broadcast.NewScope("session", id, maxViewers),
		title:     model.DefaultVideoTitle,
		tracks:    map[string]*subtitle.Track{},
	}
	s.touch(now)
	s.storeMeta()
	return s
}

func (s *session) touch(now time.Time) {
	s.lastActivity.Store(now.UnixNano())
}

func (s *session) lastActive() time.Time {
	return time.Unix(0, s.lastActivity.Load())
}

// storeMeta publishes the summary fields; the caller holds mu or owns s.
func (s *session) storeMeta() {
	s.meta.Store(&sessionMeta{
		title:       s.title,
		initialized: s.initialized,
		activeTrack: s.active.Name(),
	})
}

func (s *session) summary() model.Summary {
	m := s.meta.Load()
	return model.Summary{
		ID:           s.id,
		VideoTitle:   m.title,
		Viewers:      s.viewers.Len(),
		Initialized:  m.initialized,
		ActiveTrack:  m.activeTrack,
		CreatedAt:    s.createdAt.UTC(),
		LastActivity: s.lastActive().UTC(),
	}
}

// tracksEvent describes the registered tracks; the caller holds mu.
func (s *session) tracksEvent() model.Tracks {
	ev := model.Tracks{
		Names:      append([]string{}, s.names...),
		VideoTitle: s.title,
	}
	if s.active != nil {
		name := s.active.Name()
		ev.Active = &name
	}
	for _, name := range s.names {
		if lang := s.tracks[name].Language(); lang != "" {
			if ev.Languages == nil {
				ev.Languages = make(map[string]string)
			}
			ev.Languages[name] = lang
		}
	}
	return ev
}

// snapshot is what a viewer needs to mirror the session; the caller holds mu.
func (s *session) snapshot() []model.SessionEvent {
	return []model.SessionEvent{
		s.tracksEvent(),
		model.SubtitlesInit{Lines: s.active.Range(0, s.cursor)},
	}
}
