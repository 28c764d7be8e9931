// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/subview/internal/config"
	"github.com/ManuGH/subview/internal/log"
)

// PerformStartupChecks validates the environment and dependencies before starting the server.
func PerformStartupChecks(ctx context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")
	logger.Info().Msg("running pre-flight startup checks")

	if err := checkListenAddr("server.listenAddr", cfg.Server.ListenAddr); err != nil {
		return err
	}
	if cfg.Metrics.Enabled && cfg.Metrics.ListenAddr != "" {
		if err := checkListenAddr("metrics.listenAddr", cfg.Metrics.ListenAddr); err != nil {
			return err
		}
		if cfg.Metrics.ListenAddr == cfg.Server.ListenAddr {
			return fmt.Errorf("metrics.listenAddr must differ from server.listenAddr (%s)", cfg.Server.ListenAddr)
		}
	}
	logger.Info().Str("addr", cfg.Server.ListenAddr).Msg("listen address is valid")

	if cfg.Cache.RedisAddr != "" {
		checkRedisReachable(ctx, logger, cfg.Cache.RedisAddr)
	}
	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		return fmt.Errorf("tracing.endpoint is required when tracing is enabled")
	}

	host, _, _ := net.SplitHostPort(cfg.Server.ListenAddr)
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		logger.Warn().
			Str("addr", cfg.Server.ListenAddr).
			Msg("control API listens on all interfaces; any host on the network can drive sessions")
	}
	if cfg.Server.AllowShutdown {
		logger.Warn().Msg("remote shutdown endpoint is enabled")
	}

	logger.Info().Msg("all startup checks passed")
	return nil
}

func checkListenAddr(field, addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", field, addr, err)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("invalid port %q in %s %q", port, field, addr)
	}
	return nil
}

// checkRedisReachable only warns: the track cache falls back to parsing.
func checkRedisReachable(ctx context.Context, logger zerolog.Logger, addr string) {
	d := net.Dialer{Timeout: 2 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		logger.Warn().Err(err).Str("addr", addr).Msg("redis track cache unreachable at startup")
		return
	}
	_ = conn.Close()
	logger.Info().Str("addr", addr).Msg("redis track cache reachable")
}
