// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package manager

import (
	"context"
	"sync"
	"time"

	"github.com/ManuGH/subview/internal/log"
	"github.com/ManuGH/subview/internal/metrics"
)

// SweeperConfig holds the expiry timings.
type SweeperConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

// Sweeper periodically removes sessions that stopped sending heartbeats.
type Sweeper struct {
	Registry *Registry

	mu    sync.Mutex
	conf  SweeperConfig
	reset chan struct{}
}

// NewSweeper creates a sweeper for reg.
func NewSweeper(reg *Registry, conf SweeperConfig) *Sweeper {
	return &Sweeper{
		Registry: reg,
		conf:     conf,
		reset:    make(chan struct{}, 1),
	}
}

// Config returns the timings in effect.
func (s *Sweeper) Config() SweeperConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conf
}

// Update replaces the timings. A running loop picks up the new interval
// on its next iteration.
func (s *Sweeper) Update(conf SweeperConfig) {
	s.mu.Lock()
	changed := s.conf != conf
	s.conf = conf
	s.mu.Unlock()
	if !changed {
		return
	}
	select {
	case s.reset <- struct{}{}:
	default:
	}
}

// Run sweeps until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	conf := s.Config()
	logger := log.WithComponent("sweeper")
	logger.Info().
		Str(log.FieldEvent, "sweeper.started").
		Dur("interval", conf.Interval).
		Dur("timeout", conf.Timeout).
		Msg("session sweeper started")

	ticker := time.NewTicker(conf.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Str(log.FieldEvent, "sweeper.stopped").Msg("session sweeper stopped")
			return nil
		case <-s.reset:
			conf = s.Config()
			ticker.Reset(conf.Interval)
			logger.Info().
				Str(log.FieldEvent, "sweeper.reconfigured").
				Dur("interval", conf.Interval).
				Dur("timeout", conf.Timeout).
				Msg("session sweeper timings updated")
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce expires idle sessions now and returns their ids.
func (s *Sweeper) SweepOnce(ctx context.Context) []string {
	start := time.Now()
	conf := s.Config()
	expired := s.Registry.SweepExpired(ctx, s.Registry.now(), conf.Timeout)
	metrics.ObserveSweep(time.Since(start).Seconds())
	if len(expired) > 0 {
		logger := log.WithComponent("sweeper")
		logger.Info().
			Str(log.FieldEvent, "sweeper.expired").
			Int("count", len(expired)).
			Strs("sessions", expired).
			Msg("expired idle sessions")
	}
	return expired
}
