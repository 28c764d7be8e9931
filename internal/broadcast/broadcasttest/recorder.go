// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package broadcasttest provides an in-memory broadcast.Conn for tests.
package broadcasttest

import (
	"encoding/json"
	"sync"

	"github.com/ManuGH/subview/internal/broadcast"
)

// Recorder is a broadcast.Conn that stores every frame it accepts.
type Recorder struct {
	id    string
	limit int

	mu     sync.Mutex
	frames [][]byte
	closed bool
	failed bool
}

// NewRecorder returns a recorder accepting any number of frames.
func NewRecorder(id string) *Recorder {
	return &Recorder{id: id}
}

// NewLimitedRecorder returns a recorder that reports ErrSlowConsumer once
// it holds limit frames.
func NewLimitedRecorder(id string, limit int) *Recorder {
	return &Recorder{id: id, limit: limit}
}

// ID implements broadcast.Conn.
func (r *Recorder) ID() string { return r.id }

// Send implements broadcast.Conn.
func (r *Recorder) Send(frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed || r.failed {
		return broadcast.ErrConnClosed
	}
	if r.limit > 0 && len(r.frames) >= r.limit {
		return broadcast.ErrSlowConsumer
	}
	cp := make([]byte, len(frame))
	copy(cp, frame)
	r.frames = append(r.frames, cp)
	return nil
}

// Close implements broadcast.Conn.
func (r *Recorder) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

// Fail makes every later Send fail as if the peer went away.
func (r *Recorder) Fail() {
	r.mu.Lock()
	r.failed = true
	r.mu.Unlock()
}

// Closed reports whether Close was called.
func (r *Recorder) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Frames returns a copy of the recorded frames.
func (r *Recorder) Frames() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]byte, len(r.frames))
	copy(out, r.frames)
	return out
}

// Reset forgets recorded frames.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.frames = nil
	r.mu.Unlock()
}

// Messages decodes the recorded frames as JSON objects.
func (r *Recorder) Messages() []map[string]any {
	frames := r.Frames()
	out := make([]map[string]any, 0, len(frames))
	for _, f := range frames {
		var m map[string]any
		if err := json.Unmarshal(f, &m); err != nil {
			m = map[string]any{"raw": string(f)}
		}
		out = append(out, m)
	}
	return out
}

// Types returns the "type" field of every recorded frame.
func (r *Recorder) Types() []string {
	msgs := r.Messages()
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i], _ = m["type"].(string)
	}
	return out
}

var _ broadcast.Conn = (*Recorder)(nil)
