// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	// ListenAddr is the address to listen on (e.g., "127.0.0.1:8765")
	ListenAddr string

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes of the response.
	// WebSocket writers set their own per-frame deadline after the upgrade.
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration

	// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header
	MaxHeaderBytes int

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown
	ShutdownTimeout time.Duration

	// MaxConnections caps concurrently accepted connections; 0 disables the cap.
	MaxConnections int
}

const (
	defaultMaxHeaderBytes    = 1 << 20
	minimumShutdownTimeout   = 3 * time.Second
	defaultServerReadTimeout = 10 * time.Second
	defaultServerIdleTimeout = 120 * time.Second
)

// ServerConfigFor derives the listener settings from the application config.
func ServerConfigFor(cfg AppConfig) ServerConfig {
	out := ServerConfig{
		ListenAddr:      cfg.Server.ListenAddr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		MaxHeaderBytes:  defaultMaxHeaderBytes,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxConnections:  cfg.Server.MaxConnections,
	}
	if out.ListenAddr == "" {
		out.ListenAddr = DefaultListenAddr
	}
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = defaultServerReadTimeout
	}
	if out.IdleTimeout <= 0 {
		out.IdleTimeout = defaultServerIdleTimeout
	}
	if out.ShutdownTimeout < minimumShutdownTimeout {
		out.ShutdownTimeout = minimumShutdownTimeout
	}
	return out
}
