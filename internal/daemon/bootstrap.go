// SPDX-License-Identifier: MIT

// Package daemon provides the core daemon bootstrapping and lifecycle management.
package daemon

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/subview/internal/api"
	"github.com/ManuGH/subview/internal/cache"
	"github.com/ManuGH/subview/internal/config"
	sessionmanager "github.com/ManuGH/subview/internal/domain/session/manager"
	"github.com/ManuGH/subview/internal/health"
	"github.com/ManuGH/subview/internal/log"
	"github.com/ManuGH/subview/internal/subtitle"
	"github.com/ManuGH/subview/internal/telemetry"
)

// redisKeyPrefix namespaces parsed tracks in a shared Redis.
const redisKeyPrefix = "subview:track:"

// Build wires the session registry, the HTTP surface and their supporting
// services from cfg. holder may be nil when hot reload is not wanted.
func Build(ctx context.Context, cfg config.AppConfig, holder *config.Holder) (_ *App, err error) {
	logger := log.WithComponent("daemon")

	if err = health.PerformStartupChecks(ctx, cfg); err != nil {
		return nil, fmt.Errorf("startup checks: %w", err)
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		Environment:    cfg.Tracing.Environment,
		ExporterType:   cfg.Tracing.Exporter,
		Endpoint:       cfg.Tracing.Endpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	trackCache, backend := newTrackCache(ctx, cfg)
	defer func() {
		if err != nil {
			_ = trackCache.Close()
			_ = tp.Shutdown(context.WithoutCancel(ctx))
		}
	}()

	reg := sessionmanager.NewRegistry(sessionmanager.Options{
		Builder:              subtitle.NewCachedBuilder(trackCache, cfg.Cache.TTL),
		MaxViewersPerSession: cfg.Sessions.MaxViewersPerSession,
		MaxGlobalViewers:     cfg.Sessions.MaxGlobalViewers,
	})
	sweeper := sessionmanager.NewSweeper(reg, sessionmanager.SweeperConfig{
		Interval: cfg.Sessions.SweepInterval,
		Timeout:  cfg.Sessions.HeartbeatTimeout,
	})

	hm := health.NewManager(cfg.Version)
	hm.RegisterChecker(health.NewSessionsChecker(reg))
	hm.RegisterChecker(health.NewCacheChecker(backend, trackCache))

	app := NewApp(logger, nil, holder, reg, sweeper)

	srv, err := api.New(api.Deps{
		Registry: reg,
		Health:   hm,
		Config:   cfg,
		Shutdown: app.Stop,
	})
	if err != nil {
		return nil, err
	}

	deps := Deps{
		Logger:     logger,
		APIHandler: srv.Handler(),
	}
	if cfg.Metrics.Enabled && cfg.Metrics.ListenAddr != "" {
		deps.MetricsHandler = promhttp.Handler()
		deps.MetricsAddr = cfg.Metrics.ListenAddr
	}
	mgr, err := NewManager(config.ServerConfigFor(cfg), deps)
	if err != nil {
		return nil, err
	}

	// LIFO: the registry closes first, telemetry flushes last.
	mgr.RegisterShutdownHook("telemetry", tp.Shutdown)
	mgr.RegisterShutdownHook("track_cache", func(context.Context) error { return trackCache.Close() })
	mgr.RegisterShutdownHook("readiness", func(context.Context) error {
		hm.SetDraining(true)
		return nil
	})
	mgr.RegisterShutdownHook("sessions", reg.Shutdown)

	app.manager = mgr

	logger.Info().
		Str(log.FieldEvent, "daemon.built").
		Str("cache", backend).
		Bool("tracing", tp.Enabled()).
		Str("listen", cfg.Server.ListenAddr).
		Msg("daemon wired")
	return app, nil
}

// newTrackCache connects to Redis when configured and falls back to the
// in-process cache when it is not or cannot be reached.
func newTrackCache(ctx context.Context, cfg config.AppConfig) (cache.Cache, string) {
	if cfg.Cache.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			Prefix:   redisKeyPrefix,
		}, log.WithComponent("cache"))
		if err == nil {
			return rc, "redis"
		}
		cacheLogger := log.WithComponent("cache")
		cacheLogger.Warn().
			Err(err).
			Str("addr", cfg.Cache.RedisAddr).
			Msg("redis unavailable, using in-memory track cache")
	}
	return cache.NewMemoryCache(cfg.Cache.TTL), "memory"
}
