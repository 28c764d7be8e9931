// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/subview/internal/config"
	sessionmanager "github.com/ManuGH/subview/internal/domain/session/manager"
	"github.com/ManuGH/subview/internal/log"
)

// App owns the long-lived runtime lifecycle (sweeper, config reload) and
// delegates server management to Manager.
type App struct {
	logger       zerolog.Logger
	manager      Manager
	cfgHolder    *config.Holder
	registry     *sessionmanager.Registry
	sweeper      *sessionmanager.Sweeper
	reloadSignal os.Signal

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewApp creates a new App orchestrator. holder, reg and sweeper may be nil.
func NewApp(logger zerolog.Logger, mgr Manager, holder *config.Holder, reg *sessionmanager.Registry, sweeper *sessionmanager.Sweeper) *App {
	return &App{
		logger:       logger,
		manager:      mgr,
		cfgHolder:    holder,
		registry:     reg,
		sweeper:      sweeper,
		reloadSignal: syscall.SIGHUP,
		stopCh:       make(chan struct{}),
	}
}

// Stop asks a running App to shut down. It is safe to call more than once.
func (a *App) Stop() {
	a.stopOnce.Do(func() { close(a.stopCh) })
}

// Run starts all owned background subsystems and blocks until ctx is
// cancelled, Stop is called or a fatal error occurs.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		select {
		case <-ctx.Done():
		case <-a.stopCh:
			a.logger.Info().Str(log.FieldEvent, "daemon.stop_requested").Msg("stop requested")
			cancel()
		}
		return nil
	})

	if a.sweeper != nil {
		g.Go(func() error { return a.sweeper.Run(ctx) })
	}

	if a.cfgHolder != nil {
		// The watcher is best-effort: startup must not fail on it.
		g.Go(func() error {
			if err := a.cfgHolder.Watch(ctx); err != nil {
				a.logger.Warn().Err(err).Str(log.FieldEvent, "config.watcher_start_failed").Msg("failed to start config watcher")
			}
			return nil
		})

		applyCh := make(chan config.AppConfig, 1)
		a.cfgHolder.RegisterListener(applyCh)
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case cfg := <-applyCh:
					a.apply(cfg)
				}
			}
		})
	}

	if a.cfgHolder != nil && a.reloadSignal != nil {
		g.Go(func() error {
			hupChan := make(chan os.Signal, 1)
			signal.Notify(hupChan, a.reloadSignal)
			defer signal.Stop(hupChan)

			for {
				select {
				case <-ctx.Done():
					return nil
				case <-hupChan:
					a.logger.Info().
						Str(log.FieldEvent, "config.reload_signal").
						Str("signal", a.reloadSignal.String()).
						Msg("received reload signal, reloading config")
					if err := a.cfgHolder.Reload(ctx); err != nil {
						a.logger.Warn().
							Err(err).
							Str(log.FieldEvent, "config.reload_failed").
							Msg("config reload failed")
					}
				}
			}
		})
	}

	g.Go(func() error {
		err := a.manager.Start(ctx)
		if err != nil {
			_ = a.manager.Shutdown(context.WithoutCancel(ctx))
		}
		cancel()
		return err
	})

	return g.Wait()
}

// apply pushes the hot-reloadable settings of cfg into the running subsystems.
func (a *App) apply(cfg config.AppConfig) {
	if cfg.LogLevel != "" {
		if _, err := log.SetLevel(cfg.LogLevel); err != nil {
			a.logger.Warn().Err(err).Str("level", cfg.LogLevel).Msg("ignoring invalid log level")
		}
	}
	if a.sweeper != nil {
		a.sweeper.Update(sessionmanager.SweeperConfig{
			Interval: cfg.Sessions.SweepInterval,
			Timeout:  cfg.Sessions.HeartbeatTimeout,
		})
	}
	if a.registry != nil {
		a.registry.SetMaxViewersPerSession(cfg.Sessions.MaxViewersPerSession)
	}
	a.logger.Info().Str(log.FieldEvent, "config.applied").Msg("runtime configuration applied")
}
