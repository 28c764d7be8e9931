// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package broadcast fans frames out to sets of viewer connections.
package broadcast

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/subview/internal/log"
	"github.com/ManuGH/subview/internal/metrics"
)

var (
	// ErrScopeFull is returned by Join when the member cap is reached.
	ErrScopeFull = errors.New("broadcast scope full")
	// ErrScopeClosed is returned by Join after CloseAll.
	ErrScopeClosed = errors.New("broadcast scope closed")
	// ErrConnClosed is returned by Conn.Send after the connection closed.
	ErrConnClosed = errors.New("connection closed")
	// ErrSlowConsumer is returned by Conn.Send when the outbound queue is full.
	ErrSlowConsumer = errors.New("connection outbound queue full")
)

// Conn is one viewer connection. Send must not block: it either queues
// the frame or fails. Close must be idempotent.
type Conn interface {
	ID() string
	Send(frame []byte) error
	Close()
}

const dropLogEvery = 100

var dropCount atomic.Uint64

// Scope is a set of connections that receive the same frames.
// Join and Broadcast are serialised, so a joining member sees its
// snapshot frames before any later broadcast.
type Scope struct {
	kind  string // "global" or "session", used as metric label
	name  string
	limit int

	mu      sync.Mutex
	members map[string]Conn
	closed  bool
}

// NewScope creates a scope. A limit of zero or less means unbounded.
func NewScope(kind, name string, limit int) *Scope {
	return &Scope{
		kind:    kind,
		name:    name,
		limit:   limit,
		members: make(map[string]Conn),
	}
}

// Name returns the scope name.
func (s *Scope) Name() string { return s.name }

// Join sends the snapshot frames to c and then adds it as a member.
// If a snapshot frame cannot be queued, c is not added and the send error is returned.
func (s *Scope) Join(c Conn, snapshot ...[]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrScopeClosed
	}
	_, rejoin := s.members[c.ID()]
	if !rejoin && s.limit > 0 && len(s.members) >= s.limit {
		metrics.IncBroadcastDrop(s.kind, "rejected")
		return ErrScopeFull
	}
	for _, frame := range snapshot {
		if err := c.Send(frame); err != nil {
			return err
		}
	}
	if !rejoin {
		metrics.AddViewers(s.kind, 1)
	}
	s.members[c.ID()] = c
	metrics.AddBroadcastFrames(s.kind, len(snapshot))
	return nil
}

// Leave removes the member with the given id. It reports whether it was present.
// The connection itself is not closed.
func (s *Scope) Leave(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.members[id]; !ok {
		return false
	}
	delete(s.members, id)
	metrics.AddViewers(s.kind, -1)
	return true
}

// Len returns the number of members.
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.members)
}

// Broadcast queues frames, in order, on every member. Members that fail
// are removed and closed; the number of dropped members is returned.
func (s *Scope) Broadcast(frames ...[]byte) int {
	if len(frames) == 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dropped := 0
	delivered := 0
	for id, c := range s.members {
		var sendErr error
		for _, frame := range frames {
			if sendErr = c.Send(frame); sendErr != nil {
				break
			}
			delivered++
		}
		if sendErr == nil {
			continue
		}
		delete(s.members, id)
		metrics.AddViewers(s.kind, -1)
		c.Close()
		dropped++
		s.recordDrop(id, sendErr)
	}
	metrics.AddBroadcastFrames(s.kind, delivered)
	return dropped
}

// CloseAll sends the final frames to every member, closes them and
// refuses further joins.
func (s *Scope) CloseAll(final ...[]byte) {
	s.mu.Lock()
	members := s.members
	s.members = make(map[string]Conn)
	s.closed = true
	s.mu.Unlock()

	for _, c := range members {
		for _, frame := range final {
			if err := c.Send(frame); err != nil {
				break
			}
		}
		c.Close()
	}
	if n := len(members); n > 0 {
		metrics.AddViewers(s.kind, -n)
	}
}

func (s *Scope) recordDrop(id string, err error) {
	reason := "error"
	switch {
	case errors.Is(err, ErrSlowConsumer):
		reason = "slow"
	case errors.Is(err, ErrConnClosed):
		reason = "closed"
	}
	metrics.IncBroadcastDrop(s.kind, reason)

	count := dropCount.Add(1)
	if reason == "closed" && count%dropLogEvery != 0 {
		return
	}
	logger := log.WithComponent("broadcast")
	logger.Debug().
		Err(err).
		Str(log.FieldScope, s.name).
		Str(log.FieldConnID, id).
		Str("reason", reason).
		Uint64("dropped", count).
		Msg("dropped viewer connection")
}
