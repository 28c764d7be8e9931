// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ManuGH/subview/internal/broadcast/broadcasttest"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func srtTimestamp(ms int64) string {
	return fmt.Sprintf("%02d:%02d:%02d,%03d", ms/3_600_000, ms/60_000%60, ms/1000%60, ms%1000)
}

// srt renders one cue per start time, each 500ms long, with text "cue <start>".
func srt(starts ...int64) []byte {
	var b strings.Builder
	for i, start := range starts {
		fmt.Fprintf(&b, "%d\n%s --> %s\ncue %d\n\n", i+1, srtTimestamp(start), srtTimestamp(start+500), start)
	}
	return []byte(b.String())
}

func newTestRegistry(t *testing.T, clock *fakeClock) *Registry {
	t.Helper()
	n := 0
	var mu sync.Mutex
	return NewRegistry(Options{
		MaxViewersPerSession: 4,
		Clock:                clock.Now,
		NewID: func() string {
			mu.Lock()
			defer mu.Unlock()
			n++
			return fmt.Sprintf("s%d", n)
		},
	})
}

func createInit(t *testing.T, r *Registry, tracks map[string][]byte) string {
	t.Helper()
	ctx := context.Background()
	id, err := r.Create(ctx)
	require.NoError(t, err)
	_, err = r.Init(ctx, id, "Movie", tracks)
	require.NoError(t, err)
	return id
}

// replay applies recorded viewer frames and returns the visible cue texts.
func replay(t *testing.T, rec *broadcasttest.Recorder) []string {
	t.Helper()
	var visible []string
	for _, m := range rec.Messages() {
		switch m["type"] {
		case "subtitles_init":
			visible = visible[:0]
			for _, l := range m["lines"].([]any) {
				visible = append(visible, l.(map[string]any)["text"].(string))
			}
		case "subtitle_add":
			visible = append(visible, m["subtitle"].(map[string]any)["text"].(string))
		case "subtitle_remove":
			n := int(m["count"].(float64))
			require.LessOrEqual(t, n, len(visible), "remove past start of visible list")
			visible = visible[:len(visible)-n]
		}
	}
	return visible
}

func cueTexts(starts ...int64) []string {
	out := make([]string, len(starts))
	for i, s := range starts {
		out[i] = fmt.Sprintf("cue %d", s)
	}
	return out
}
