// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package config loads, validates and hot-reloads the daemon configuration.
package config

import "time"

// AppConfig is the effective runtime configuration.
type AppConfig struct {
	Version    string `yaml:"-"`
	LogLevel   string `yaml:"logLevel,omitempty"`
	LogService string `yaml:"logService,omitempty"`

	Server    ServerSection    `yaml:"server"`
	Sessions  SessionsConfig   `yaml:"sessions"`
	WebSocket WebSocketConfig  `yaml:"websocket"`
	RateLimit RateLimitConfig  `yaml:"rateLimit"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	Tracing   TracingConfig    `yaml:"tracing"`
	Cache     TrackCacheConfig `yaml:"cache"`
}

// ServerSection configures the control/viewer HTTP listener.
type ServerSection struct {
	ListenAddr      string        `yaml:"listenAddr,omitempty"`
	ReadTimeout     time.Duration `yaml:"readTimeout,omitempty"`
	WriteTimeout    time.Duration `yaml:"writeTimeout,omitempty"`
	IdleTimeout     time.Duration `yaml:"idleTimeout,omitempty"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout,omitempty"`
	ShutdownDelay   time.Duration `yaml:"shutdownDelay,omitempty"`
	MaxConnections  int           `yaml:"maxConnections,omitempty"`
	AllowShutdown   bool          `yaml:"allowShutdown"`
}

// SessionsConfig controls session liveness.
type SessionsConfig struct {
	HeartbeatTimeout     time.Duration `yaml:"heartbeatTimeout,omitempty"`
	SweepInterval        time.Duration `yaml:"sweepInterval,omitempty"`
	MaxViewersPerSession int           `yaml:"maxViewersPerSession,omitempty"`
	MaxGlobalViewers     int           `yaml:"maxGlobalViewers,omitempty"`
}

// WebSocketConfig tunes viewer connections.
type WebSocketConfig struct {
	PingInterval   time.Duration `yaml:"pingInterval,omitempty"`
	WriteTimeout   time.Duration `yaml:"writeTimeout,omitempty"`
	SendBuffer     int           `yaml:"sendBuffer,omitempty"`
	MaxMessageSize int           `yaml:"maxMessageSize,omitempty"`
	CommandRate    float64       `yaml:"commandRate,omitempty"`
	CommandBurst   int           `yaml:"commandBurst,omitempty"`
	AllowedOrigins []string      `yaml:"allowedOrigins,omitempty"`
}

// RateLimitConfig guards the control API.
type RateLimitConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Requests  int           `yaml:"requests,omitempty"`
	Window    time.Duration `yaml:"window,omitempty"`
	Whitelist []string      `yaml:"whitelist,omitempty"`
}

// MetricsConfig exposes Prometheus metrics.
type MetricsConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listenAddr,omitempty"`
}

// TracingConfig configures the OpenTelemetry exporter.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter,omitempty"`
	Endpoint     string  `yaml:"endpoint,omitempty"`
	SamplingRate float64 `yaml:"samplingRate,omitempty"`
	Environment  string  `yaml:"environment,omitempty"`
}

// TrackCacheConfig configures the parsed-track cache.
type TrackCacheConfig struct {
	TTL           time.Duration `yaml:"ttl,omitempty"`
	RedisAddr     string        `yaml:"redisAddr,omitempty"`
	RedisPassword string        `yaml:"redisPassword,omitempty"`
	RedisDB       int           `yaml:"redisDB,omitempty"`
}
