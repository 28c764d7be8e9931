// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/subview/internal/validate"
)

// Validate checks the effective configuration for values the daemon cannot run with.
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.LogLevel("logLevel", cfg.LogLevel)

	v.ListenAddr("server.listenAddr", cfg.Server.ListenAddr)
	v.DurationRange("server.readTimeout", cfg.Server.ReadTimeout, 0, time.Hour)
	v.DurationRange("server.writeTimeout", cfg.Server.WriteTimeout, 0, time.Hour)
	v.DurationRange("server.shutdownTimeout", cfg.Server.ShutdownTimeout, time.Second, 5*time.Minute)
	v.DurationRange("server.shutdownDelay", cfg.Server.ShutdownDelay, 0, time.Minute)
	v.NonNegative("server.maxConnections", cfg.Server.MaxConnections)

	v.DurationRange("sessions.heartbeatTimeout", cfg.Sessions.HeartbeatTimeout, time.Second, 24*time.Hour)
	v.DurationRange("sessions.sweepInterval", cfg.Sessions.SweepInterval, 100*time.Millisecond, time.Hour)
	v.Range("sessions.maxViewersPerSession", cfg.Sessions.MaxViewersPerSession, 1, 10000)
	v.Range("sessions.maxGlobalViewers", cfg.Sessions.MaxGlobalViewers, 1, 10000)

	v.DurationRange("websocket.pingInterval", cfg.WebSocket.PingInterval, time.Second, 10*time.Minute)
	v.DurationRange("websocket.writeTimeout", cfg.WebSocket.WriteTimeout, 100*time.Millisecond, time.Minute)
	v.Range("websocket.sendBuffer", cfg.WebSocket.SendBuffer, 1, 65536)
	v.Range("websocket.maxMessageSize", cfg.WebSocket.MaxMessageSize, 64, 1<<20)
	if cfg.WebSocket.CommandRate <= 0 {
		v.AddError("websocket.commandRate", "value must be positive", cfg.WebSocket.CommandRate)
	}
	v.Positive("websocket.commandBurst", cfg.WebSocket.CommandBurst)

	if cfg.RateLimit.Enabled {
		v.Positive("rateLimit.requests", cfg.RateLimit.Requests)
		v.DurationRange("rateLimit.window", cfg.RateLimit.Window, time.Second, time.Hour)
	}

	if cfg.Metrics.ListenAddr != "" {
		v.ListenAddr("metrics.listenAddr", cfg.Metrics.ListenAddr)
	}

	if cfg.Tracing.Enabled {
		v.OneOf("tracing.exporter", cfg.Tracing.Exporter, []string{"grpc", "http"})
		v.NotEmpty("tracing.endpoint", cfg.Tracing.Endpoint)
		v.Fraction("tracing.samplingRate", cfg.Tracing.SamplingRate)
	}

	v.DurationRange("cache.ttl", cfg.Cache.TTL, time.Second, 7*24*time.Hour)
	v.Range("cache.redisDB", cfg.Cache.RedisDB, 0, 15)

	return v.Err()
}
