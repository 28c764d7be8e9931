// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

const (
	DefaultListenAddr           = "127.0.0.1:8765"
	DefaultHeartbeatTimeout     = 90 * time.Second
	DefaultSweepInterval        = 30 * time.Second
	DefaultMaxViewersPerSession = 100
	DefaultShutdownDelay        = 500 * time.Millisecond
	DefaultPingInterval         = 30 * time.Second
)

// Default returns the built-in configuration.
func Default() AppConfig {
	return AppConfig{
		LogLevel:   "info",
		LogService: "subview",
		Server: ServerSection{
			ListenAddr:      DefaultListenAddr,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			ShutdownDelay:   DefaultShutdownDelay,
			MaxConnections:  512,
			AllowShutdown:   true,
		},
		Sessions: SessionsConfig{
			HeartbeatTimeout:     DefaultHeartbeatTimeout,
			SweepInterval:        DefaultSweepInterval,
			MaxViewersPerSession: DefaultMaxViewersPerSession,
			MaxGlobalViewers:     DefaultMaxViewersPerSession,
		},
		WebSocket: WebSocketConfig{
			PingInterval:   DefaultPingInterval,
			WriteTimeout:   10 * time.Second,
			SendBuffer:     256,
			MaxMessageSize: 4096,
			CommandRate:    5,
			CommandBurst:   10,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 6000,
			Window:   time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		Tracing: TracingConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
			Environment:  "development",
		},
		Cache: TrackCacheConfig{
			TTL: 30 * time.Minute,
		},
	}
}
