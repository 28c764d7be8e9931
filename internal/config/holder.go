// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	svlog "github.com/ManuGH/subview/internal/log"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const reloadDebounce = 500 * time.Millisecond

// Holder holds configuration with atomic reloading capability.
// Listener sockets are bound once at startup; a reload only affects
// settings that are read at use time (log level, session timings, limits).
type Holder struct {
	mu         sync.RWMutex
	current    AppConfig
	loader     *Loader
	configPath string
	logger     zerolog.Logger

	reloadMu        sync.RWMutex
	reloadListeners []chan<- AppConfig
}

// NewHolder creates a new configuration holder with initial config.
func NewHolder(initial AppConfig, loader *Loader) *Holder {
	path := ""
	if loader != nil {
		path = loader.Path()
	}
	return &Holder{
		current:    initial,
		loader:     loader,
		configPath: path,
		logger:     svlog.WithComponent("config"),
	}
}

// Get returns the current configuration (thread-safe read).
func (h *Holder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload re-reads the configuration. On failure the old configuration stays active.
func (h *Holder) Reload(_ context.Context) error {
	if h.loader == nil {
		return fmt.Errorf("reload: no loader configured")
	}
	h.logger.Info().Str(svlog.FieldEvent, "config.reload_start").Msg("reloading configuration")

	newCfg, err := h.loader.Load()
	if err != nil {
		h.logger.Error().
			Err(err).
			Str(svlog.FieldEvent, "config.reload_failed").
			Msg("failed to load new configuration")
		return fmt.Errorf("load config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.current
	newCfg.Version = oldCfg.Version
	if newCfg.Server.ListenAddr != oldCfg.Server.ListenAddr {
		h.logger.Warn().
			Str("old", oldCfg.Server.ListenAddr).
			Str("new", newCfg.Server.ListenAddr).
			Msg("listen address change requires restart, keeping current")
		newCfg.Server = oldCfg.Server
	}
	h.current = newCfg
	h.mu.Unlock()

	h.notifyListeners(newCfg)
	h.logChanges(oldCfg, newCfg)

	h.logger.Info().
		Str(svlog.FieldEvent, "config.reload_success").
		Msg("configuration reloaded successfully")
	return nil
}

// Watch blocks watching the config file until ctx is cancelled.
// It watches the parent directory so atomic rename-based writes are seen.
// Without a config file it returns immediately.
func (h *Holder) Watch(ctx context.Context) error {
	if h.configPath == "" {
		h.logger.Info().
			Str(svlog.FieldEvent, "config.watcher_disabled").
			Msg("config file watcher disabled (using ENV-only configuration)")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	target := filepath.Clean(h.configPath)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}

	h.logger.Info().
		Str(svlog.FieldEvent, "config.watcher_started").
		Str(svlog.FieldPath, target).
		Msg("watching config file for changes")

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str(svlog.FieldEvent, "config.watcher_stopped").Msg("config watcher stopped")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			h.logger.Debug().
				Str(svlog.FieldEvent, "config.file_changed").
				Str(svlog.FieldOp, event.Op.String()).
				Msg("config file changed")

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				if err := h.Reload(ctx); err != nil {
					h.logger.Error().
						Err(err).
						Str(svlog.FieldEvent, "config.auto_reload_failed").
						Msg("automatic config reload failed")
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			h.logger.Error().
				Err(err).
				Str(svlog.FieldEvent, "config.watcher_error").
				Msg("config watcher error")
		}
	}
}

// RegisterListener registers a channel to receive config reload notifications.
// Sends are non-blocking; a full channel misses that update.
func (h *Holder) RegisterListener(ch chan<- AppConfig) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()
	h.reloadListeners = append(h.reloadListeners, ch)
}

func (h *Holder) notifyListeners(newCfg AppConfig) {
	h.reloadMu.RLock()
	defer h.reloadMu.RUnlock()

	for _, ch := range h.reloadListeners {
		select {
		case ch <- newCfg:
		default:
			h.logger.Warn().
				Str(svlog.FieldEvent, "config.listener_skip").
				Msg("skipped notifying listener (channel full)")
		}
	}
}

func (h *Holder) logChanges(old, newCfg AppConfig) {
	if old.LogLevel != newCfg.LogLevel {
		h.logger.Info().Str("old", old.LogLevel).Str("new", newCfg.LogLevel).Msg("config changed: logLevel")
	}
	if old.Sessions.HeartbeatTimeout != newCfg.Sessions.HeartbeatTimeout {
		h.logger.Info().
			Dur("old", old.Sessions.HeartbeatTimeout).
			Dur("new", newCfg.Sessions.HeartbeatTimeout).
			Msg("config changed: sessions.heartbeatTimeout")
	}
	if old.Sessions.SweepInterval != newCfg.Sessions.SweepInterval {
		h.logger.Info().
			Dur("old", old.Sessions.SweepInterval).
			Dur("new", newCfg.Sessions.SweepInterval).
			Msg("config changed: sessions.sweepInterval")
	}
	if old.Sessions.MaxViewersPerSession != newCfg.Sessions.MaxViewersPerSession {
		h.logger.Info().
			Int("old", old.Sessions.MaxViewersPerSession).
			Int("new", newCfg.Sessions.MaxViewersPerSession).
			Msg("config changed: sessions.maxViewersPerSession")
	}
}
