// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestSweeper_SweepOnce(t *testing.T) {
	clock := newFakeClock()
	r := newTestRegistry(t, clock)
	ctx := context.Background()

	id, err := r.Create(ctx)
	require.NoError(t, err)

	s := NewSweeper(r, SweeperConfig{Interval: time.Second, Timeout: 10 * time.Second})
	assert.Empty(t, s.SweepOnce(ctx))

	clock.Advance(11 * time.Second)
	assert.Equal(t, []string{id}, s.SweepOnce(ctx))
	assert.False(t, r.Health(id))
}

func TestSweeper_UpdateChangesTimeout(t *testing.T) {
	clock := newFakeClock()
	r := newTestRegistry(t, clock)
	ctx := context.Background()

	id, err := r.Create(ctx)
	require.NoError(t, err)
	clock.Advance(20 * time.Second)

	s := NewSweeper(r, SweeperConfig{Interval: time.Second, Timeout: time.Minute})
	assert.Empty(t, s.SweepOnce(ctx))

	s.Update(SweeperConfig{Interval: time.Second, Timeout: 5 * time.Second})
	assert.Equal(t, 5*time.Second, s.Config().Timeout)
	assert.Equal(t, []string{id}, s.SweepOnce(ctx))
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	r := NewRegistry(Options{})
	ctx := context.Background()
	id, err := r.Create(ctx)
	require.NoError(t, err)

	s := NewSweeper(r, SweeperConfig{Interval: 5 * time.Millisecond, Timeout: time.Hour})
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- s.Run(runCtx) }()

	s.Update(SweeperConfig{Interval: 5 * time.Millisecond, Timeout: 0})
	require.Eventually(t, func() bool { return !r.Health(id) }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
