// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package manager owns the live session registry and the visibility
// cursor that drives viewer updates.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/subview/internal/broadcast"
	"github.com/ManuGH/subview/internal/domain/session/model"
	"github.com/ManuGH/subview/internal/log"
	"github.com/ManuGH/subview/internal/metrics"
	"github.com/ManuGH/subview/internal/subtitle"
	"github.com/ManuGH/subview/internal/telemetry"
)

// Options configures a Registry. Zero values fall back to defaults.
type Options struct {
	Builder              subtitle.Builder
	MaxViewersPerSession int
	MaxGlobalViewers     int
	Clock                func() time.Time
	NewID                func() string
}

// TrackInfo describes one accepted track after Init.
type TrackInfo struct {
	Name     string `json:"name"`
	Language string `json:"language,omitempty"`
	Lines    int    `json:"lines"`
}

// RejectedTrack is a track Init could not use.
type RejectedTrack struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// InitResult reports what Init registered.
type InitResult struct {
	Tracks   []TrackInfo     `json:"tracks"`
	Active   string          `json:"active,omitempty"`
	Entries  int             `json:"entries_count"`
	Rejected []RejectedTrack `json:"rejected,omitempty"`
}

// Stats is a point-in-time count of registry contents.
type Stats struct {
	Sessions      int `json:"sessions"`
	Viewers       int `json:"viewers"`
	GlobalViewers int `json:"global_viewers"`
}

// Registry holds every live session.
//
// Lock order: mu, then a session's mu, then globalMu, then scope locks.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*session
	closed   bool

	// globalMu serialises global scope snapshots against global events.
	globalMu sync.Mutex
	global   *broadcast.Scope

	builder    subtitle.Builder
	maxViewers atomic.Int64
	now        func() time.Time
	newID      func() string
	tracer     trace.Tracer
	logger     zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) *Registry {
	r := &Registry{
		sessions: make(map[string]*session),
		global:   broadcast.NewScope("global", "sessions", opts.MaxGlobalViewers),
		builder:  opts.Builder,
		now:      opts.Clock,
		newID:    opts.NewID,
		tracer:   telemetry.Tracer("subview/session"),
		logger:   log.WithComponent("session"),
	}
	if r.builder == nil {
		r.builder = subtitle.DirectBuilder{}
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.newID == nil {
		r.newID = func() string { return uuid.New().String() }
	}
	r.maxViewers.Store(int64(opts.MaxViewersPerSession))
	return r
}

// SetMaxViewersPerSession changes the viewer cap for sessions created afterwards.
func (r *Registry) SetMaxViewersPerSession(n int) {
	r.maxViewers.Store(int64(n))
}

// MaxViewersPerSession returns the cap applied to new sessions.
func (r *Registry) MaxViewersPerSession() int {
	return int(r.maxViewers.Load())
}

// Create registers a new, uninitialised session and returns its id.
func (r *Registry) Create(ctx context.Context) (string, error) {
	_, span := r.tracer.Start(ctx, "session.create")
	defer span.End()

	s := newSession(r.newID(), r.now(), int(r.maxViewers.Load()))

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.finish(span, "create", model.ErrRegistryClosed)
		return "", model.ErrRegistryClosed
	}
	if _, dup := r.sessions[s.id]; dup {
		r.mu.Unlock()
		err := fmt.Errorf("duplicate session id %q", s.id)
		r.finish(span, "create", err)
		return "", err
	}
	r.sessions[s.id] = s
	count := len(r.sessions)
	r.emitGlobal(model.SessionAdded{Session: s.summary()})
	r.mu.Unlock()

	metrics.SetSessionsActive(count)
	span.SetAttributes(telemetry.SessionAttributes(s.id, "")...)
	r.finish(span, "create", nil)
	r.logger.Info().
		Str(log.FieldEvent, "session.created").
		Str(log.FieldSessionID, s.id).
		Int("sessions", count).
		Msg("session created")
	return s.id, nil
}

// Init replaces the session's tracks and title and resets playback to 0.
// Tracks that fail to parse or contain no cues are reported as rejected.
// The first accepted track by name becomes active.
func (r *Registry) Init(ctx context.Context, id, title string, raw map[string][]byte) (InitResult, error) {
	ctx, span := r.tracer.Start(ctx, "session.init",
		trace.WithAttributes(telemetry.SessionAttributes(id, "")...))
	defer span.End()

	s, err := r.lookup(id)
	if err != nil {
		r.finish(span, "init", err)
		return InitResult{}, err
	}

	tracks, result := r.buildTracks(ctx, id, raw)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		r.finish(span, "init", model.ErrNotFound)
		return InitResult{}, model.ErrNotFound
	}
	s.tracks = tracks
	s.names = make([]string, 0, len(tracks))
	for name := range tracks {
		s.names = append(s.names, name)
	}
	sort.Strings(s.names)
	s.active = nil
	if len(s.names) > 0 {
		s.active = tracks[s.names[0]]
	}
	s.title = title
	if s.title == "" {
		s.title = model.DefaultVideoTitle
	}
	s.currentMs = 0
	s.cursor = 0
	s.initialized = true
	s.touch(r.now())
	s.storeMeta()

	s.viewers.Broadcast(r.sessionFrames(s.tracksEvent(), model.SubtitlesInit{})...)
	r.emitGlobal(model.SessionUpdated{Session: s.summary()})
	active := s.active
	s.mu.Unlock()

	result.Active = active.Name()
	result.Entries = active.Len()
	span.SetAttributes(
		attribute.Int("session.tracks", len(result.Tracks)),
		attribute.Int("session.tracks_rejected", len(result.Rejected)),
		attribute.String("session.track", result.Active),
	)
	r.finish(span, "init", nil)
	r.logger.Info().
		Str(log.FieldEvent, "session.initialized").
		Str(log.FieldSessionID, id).
		Str(log.FieldTrack, result.Active).
		Int("tracks", len(result.Tracks)).
		Int("rejected", len(result.Rejected)).
		Int("entries", result.Entries).
		Msg("session initialized")
	return result, nil
}

func (r *Registry) buildTracks(ctx context.Context, id string, raw map[string][]byte) (map[string]*subtitle.Track, InitResult) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	tracks := make(map[string]*subtitle.Track, len(names))
	result := InitResult{Tracks: []TrackInfo{}}
	for _, name := range names {
		track, _, err := r.builder.Build(ctx, name, raw[name])
		if err == nil && track.Len() == 0 {
			err = subtitle.ErrNoLines
		}
		if err != nil {
			metrics.IncTracksRejected()
			result.Rejected = append(result.Rejected, RejectedTrack{Name: name, Reason: err.Error()})
			r.logger.Warn().
				Err(err).
				Str(log.FieldEvent, "session.track_rejected").
				Str(log.FieldSessionID, id).
				Str(log.FieldTrack, name).
				Msg("subtitle track rejected")
			continue
		}
		tracks[name] = track
		result.Tracks = append(result.Tracks, TrackInfo{
			Name:     name,
			Language: track.Language(),
			Lines:    track.Len(),
		})
	}
	return tracks, result
}

// UpdateTime moves playback to timeMs and pushes the visibility change to
// viewers. On an uninitialised session it only refreshes the heartbeat.
func (r *Registry) UpdateTime(ctx context.Context, id string, timeMs int64) (Delta, error) {
	_, span := r.tracer.Start(ctx, "session.update_time",
		trace.WithAttributes(telemetry.SessionAttributes(id, "")...))
	defer span.End()

	s, err := r.lookup(id)
	if err != nil {
		r.finish(span, "update_time", err)
		return Delta{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		r.finish(span, "update_time", model.ErrNotFound)
		return Delta{}, model.ErrNotFound
	}
	s.touch(r.now())
	if !s.initialized {
		r.finish(span, "update_time", nil)
		return Delta{Kind: DeltaNone}, nil
	}

	d := ComputeDelta(s.active, s.cursor, timeMs)
	s.currentMs = timeMs
	s.cursor = d.Cursor
	if d.Kind != DeltaNone {
		s.viewers.Broadcast(r.sessionFrames(d.Events()...)...)
	}

	metrics.RecordVisibilityDelta(string(d.Kind), len(d.Added))
	span.SetAttributes(telemetry.DeltaAttributes(string(d.Kind), len(d.Added)+d.Removed, d.Cursor, timeMs)...)
	r.finish(span, "update_time", nil)
	if d.Kind != DeltaNone {
		r.logger.Debug().
			Str(log.FieldSessionID, id).
			Int64(log.FieldTimeMs, timeMs).
			Int(log.FieldCursor, d.Cursor).
			Str("delta", string(d.Kind)).
			Msg("visibility changed")
	}
	return d, nil
}

// SelectTrack switches the active track and resends the visible prefix of
// the new track at the current playback time.
func (r *Registry) SelectTrack(ctx context.Context, id, name string) error {
	_, span := r.tracer.Start(ctx, "session.select_track",
		trace.WithAttributes(telemetry.SessionAttributes(id, name)...))
	defer span.End()

	s, err := r.lookup(id)
	if err != nil {
		r.finish(span, "select_track", err)
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		r.finish(span, "select_track", model.ErrNotFound)
		return model.ErrNotFound
	}
	track, ok := s.tracks[name]
	if !ok {
		s.mu.Unlock()
		r.finish(span, "select_track", model.ErrInvalidTrack)
		return model.ErrInvalidTrack
	}
	s.touch(r.now())
	s.active = track
	s.cursor = track.CursorAt(s.currentMs)
	s.storeMeta()

	s.viewers.Broadcast(r.sessionFrames(
		model.SubtitlesInit{Lines: track.Range(0, s.cursor)},
		s.tracksEvent(),
	)...)
	r.emitGlobal(model.SessionUpdated{Session: s.summary()})
	s.mu.Unlock()

	r.finish(span, "select_track", nil)
	r.logger.Info().
		Str(log.FieldEvent, "session.track_selected").
		Str(log.FieldSessionID, id).
		Str(log.FieldTrack, name).
		Msg("active track changed")
	return nil
}

// HandleCommand applies a command sent by a viewer of session id.
func (r *Registry) HandleCommand(ctx context.Context, id string, cmd model.Command) error {
	switch c := cmd.(type) {
	case model.SelectTrack:
		return r.SelectTrack(ctx, id, c.Track)
	default:
		return model.ErrUnknownCommand
	}
}

// Heartbeat refreshes the session's liveness without other effects.
func (r *Registry) Heartbeat(ctx context.Context, id string) error {
	_, span := r.tracer.Start(ctx, "session.heartbeat",
		trace.WithAttributes(telemetry.SessionAttributes(id, "")...))
	defer span.End()

	s, err := r.lookup(id)
	if err != nil {
		r.finish(span, "heartbeat", err)
		return err
	}
	s.touch(r.now())
	r.finish(span, "heartbeat", nil)
	return nil
}

// Health reports whether id names a live session.
func (r *Registry) Health(id string) bool {
	_, err := r.lookup(id)
	return err == nil
}

// Delete removes the session, notifying its viewers and global viewers.
func (r *Registry) Delete(ctx context.Context, id string) error {
	_, span := r.tracer.Start(ctx, "session.delete",
		trace.WithAttributes(telemetry.SessionAttributes(id, "")...))
	defer span.End()

	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		r.mu.Unlock()
		r.finish(span, "delete", model.ErrNotFound)
		return model.ErrNotFound
	}
	delete(r.sessions, id)
	count := len(r.sessions)
	r.mu.Unlock()

	r.closeSession(s, model.CloseDeleted)
	metrics.SetSessionsActive(count)
	r.finish(span, "delete", nil)
	r.logger.Info().
		Str(log.FieldEvent, "session.deleted").
		Str(log.FieldSessionID, id).
		Int("sessions", count).
		Msg("session deleted")
	return nil
}

// SweepExpired removes sessions whose last heartbeat is older than timeout
// at now and returns their ids.
func (r *Registry) SweepExpired(ctx context.Context, now time.Time, timeout time.Duration) []string {
	_, span := r.tracer.Start(ctx, "session.sweep")
	defer span.End()

	r.mu.Lock()
	var expired []*session
	for id, s := range r.sessions {
		if now.Sub(s.lastActive()) > timeout {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	count := len(r.sessions)
	r.mu.Unlock()

	if len(expired) == 0 {
		return nil
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].id < expired[j].id })

	ids := make([]string, len(expired))
	for i, s := range expired {
		ids[i] = s.id
		r.closeSession(s, model.CloseExpired)
		r.logger.Info().
			Str(log.FieldEvent, "session.expired").
			Str(log.FieldSessionID, s.id).
			Time("last_activity", s.lastActive()).
			Msg("session expired")
	}
	metrics.SetSessionsActive(count)
	metrics.AddSessionsExpired(len(ids))
	span.SetAttributes(attribute.Int("session.expired", len(ids)))
	return ids
}

// ListSummaries returns all live sessions, most recently active first.
func (r *Registry) ListSummaries() []model.Summary {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.summariesLocked()
}

func (r *Registry) summariesLocked() []model.Summary {
	out := make([]model.Summary, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s.summary())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastActivity.Equal(out[j].LastActivity) {
			return out[i].LastActivity.After(out[j].LastActivity)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// AttachViewer sends the session snapshot to conn and subscribes it to
// further session events.
func (r *Registry) AttachViewer(ctx context.Context, id string, conn broadcast.Conn) error {
	_, span := r.tracer.Start(ctx, "session.attach_viewer",
		trace.WithAttributes(telemetry.SessionAttributes(id, "")...))
	defer span.End()

	s, err := r.lookup(id)
	if err != nil {
		r.finish(span, "attach_viewer", err)
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		r.finish(span, "attach_viewer", model.ErrNotFound)
		return model.ErrNotFound
	}
	err = s.viewers.Join(conn, r.sessionFrames(s.snapshot()...)...)
	if err == nil {
		r.emitGlobal(model.SessionUpdated{Session: s.summary()})
	}
	s.mu.Unlock()

	if errors.Is(err, broadcast.ErrScopeFull) {
		err = model.ErrViewerLimit
	} else if errors.Is(err, broadcast.ErrScopeClosed) {
		err = model.ErrNotFound
	}
	r.finish(span, "attach_viewer", err)
	return err
}

// DetachViewer unsubscribes the viewer connection connID from session id.
func (r *Registry) DetachViewer(id, connID string) {
	s, err := r.lookup(id)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.viewers.Leave(connID) && !s.closed {
		r.emitGlobal(model.SessionUpdated{Session: s.summary()})
	}
}

// AttachGlobal sends the current session list to conn and subscribes it to
// session lifecycle events.
func (r *Registry) AttachGlobal(ctx context.Context, conn broadcast.Conn) error {
	_, span := r.tracer.Start(ctx, "session.attach_global")
	defer span.End()

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		r.finish(span, "attach_global", model.ErrRegistryClosed)
		return model.ErrRegistryClosed
	}

	r.globalMu.Lock()
	defer r.globalMu.Unlock()
	frame, err := model.EncodeGlobalEvent(model.SessionsList{Sessions: r.summariesLocked()})
	if err != nil {
		r.finish(span, "attach_global", err)
		return err
	}
	err = r.global.Join(conn, frame)
	if errors.Is(err, broadcast.ErrScopeFull) {
		err = model.ErrViewerLimit
	} else if errors.Is(err, broadcast.ErrScopeClosed) {
		err = model.ErrRegistryClosed
	}
	r.finish(span, "attach_global", err)
	return err
}

// DetachGlobal unsubscribes a global viewer.
func (r *Registry) DetachGlobal(connID string) {
	r.global.Leave(connID)
}

// Stats returns the number of sessions and connected viewers.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st := Stats{Sessions: len(r.sessions), GlobalViewers: r.global.Len()}
	for _, s := range r.sessions {
		st.Viewers += s.viewers.Len()
	}
	return st
}

// Counts reports the session and viewer totals and whether the registry
// still accepts sessions.
func (r *Registry) Counts() (sessions, viewers int, open bool) {
	st := r.Stats()
	r.mu.RLock()
	open = !r.closed
	r.mu.RUnlock()
	return st.Sessions, st.Viewers, open
}

// Shutdown closes every session and the global scope. Later calls to
// Create or AttachGlobal fail with ErrRegistryClosed.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	sessions := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.sessions = make(map[string]*session)
	r.mu.Unlock()

	for _, s := range sessions {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.closeSession(s, model.CloseShutdown)
	}
	r.globalMu.Lock()
	r.global.CloseAll()
	r.globalMu.Unlock()

	metrics.SetSessionsActive(0)
	r.logger.Info().
		Str(log.FieldEvent, "session.registry_closed").
		Int("sessions", len(sessions)).
		Msg("session registry shut down")
	return nil
}

func (r *Registry) lookup(id string) (*session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, model.ErrNotFound
	}
	return s, nil
}

// closeSession marks s closed, sends the close reason to its viewers and
// announces the removal. s must already be out of the sessions map.
func (r *Registry) closeSession(s *session, reason model.CloseReason) {
	s.mu.Lock()
	s.closed = true
	final := r.sessionFrames(model.SessionClosed{SessionID: s.id, Reason: reason})
	s.viewers.CloseAll(final...)
	s.mu.Unlock()

	r.emitGlobal(model.SessionRemoved{SessionID: s.id})
}

func (r *Registry) sessionFrames(events ...model.SessionEvent) [][]byte {
	frames := make([][]byte, 0, len(events))
	for _, ev := range events {
		frame, err := model.EncodeSessionEvent(ev)
		if err != nil {
			r.logger.Error().Err(err).Str(log.FieldEvent, string(ev.Type())).Msg("encode session event")
			continue
		}
		frames = append(frames, frame)
	}
	return frames
}

func (r *Registry) emitGlobal(ev model.GlobalEvent) {
	frame, err := model.EncodeGlobalEvent(ev)
	if err != nil {
		r.logger.Error().Err(err).Str(log.FieldEvent, string(ev.Type())).Msg("encode global event")
		return
	}
	r.globalMu.Lock()
	r.global.Broadcast(frame)
	r.globalMu.Unlock()
}

func (r *Registry) finish(span trace.Span, op string, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, model.ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, model.ErrInvalidTrack):
		outcome = "invalid_track"
	case errors.Is(err, model.ErrViewerLimit):
		outcome = "limit"
	case errors.Is(err, model.ErrRegistryClosed):
		outcome = "closed"
	default:
		outcome = "error"
	}
	metrics.IncSessionOp(op, outcome)
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(telemetry.ErrorAttributes(err, outcome)...)
		if outcome == "error" {
			span.SetStatus(codes.Error, err.Error())
		}
	}
}
