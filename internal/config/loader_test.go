// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/subview/internal/validate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := NewLoader("", "v1.2.3").Load()
	require.NoError(t, err)

	assert.Equal(t, "v1.2.3", cfg.Version)
	assert.Equal(t, DefaultListenAddr, cfg.Server.ListenAddr)
	assert.Equal(t, 90*time.Second, cfg.Sessions.HeartbeatTimeout)
	assert.Equal(t, 30*time.Second, cfg.Sessions.SweepInterval)
	assert.Equal(t, 100, cfg.Sessions.MaxViewersPerSession)
	assert.Equal(t, 500*time.Millisecond, cfg.Server.ShutdownDelay)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
logLevel: debug
server:
  listenAddr: "127.0.0.1:9000"
sessions:
  heartbeatTimeout: 2m
websocket:
  sendBuffer: 64
`)
	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.ListenAddr)
	assert.Equal(t, 2*time.Minute, cfg.Sessions.HeartbeatTimeout)
	assert.Equal(t, 64, cfg.WebSocket.SendBuffer)
	// untouched sections keep their defaults
	assert.Equal(t, DefaultSweepInterval, cfg.Sessions.SweepInterval)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "sessions:\n  heartbeatTimeout: 2m\n")
	t.Setenv("SUBVIEW_HEARTBEAT_TIMEOUT", "45s")
	t.Setenv("SUBVIEW_WS_MAX_CLIENTS", "7")
	t.Setenv("SUBVIEW_WS_ALLOWED_ORIGINS", "http://a.example, http://b.example")

	l := NewLoader(path, "")
	cfg, err := l.Load()
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, cfg.Sessions.HeartbeatTimeout)
	assert.Equal(t, 7, cfg.Sessions.MaxViewersPerSession)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.WebSocket.AllowedOrigins)
	assert.Contains(t, l.ConsumedEnvKeys, "SUBVIEW_HEARTBEAT_TIMEOUT")
}

func TestInvalidEnvFallsBackToCurrentValue(t *testing.T) {
	t.Setenv("SUBVIEW_SWEEP_INTERVAL", "soon")
	cfg, err := NewLoader("", "").Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultSweepInterval, cfg.Sessions.SweepInterval)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "sessions:\n  heartbeatTimout: 2m\n")
	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownConfigField), err.Error())
}

func TestLoadRejectsNonYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	_, err := NewLoader(path, "").Load()
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoadRejectsMultipleDocuments(t *testing.T) {
	path := writeConfig(t, "logLevel: info\n---\nlogLevel: debug\n")
	_, err := NewLoader(path, "").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple documents")
}

func TestLoadEmptyFileUsesDefaults(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := NewLoader(path, "").Load()
	require.NoError(t, err)
	assert.Equal(t, Default().Sessions, cfg.Sessions)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		field  string
	}{
		{"bad log level", func(c *AppConfig) { c.LogLevel = "loud" }, "logLevel"},
		{"bad listen addr", func(c *AppConfig) { c.Server.ListenAddr = "nowhere" }, "server.listenAddr"},
		{"zero heartbeat", func(c *AppConfig) { c.Sessions.HeartbeatTimeout = 0 }, "sessions.heartbeatTimeout"},
		{"zero viewers", func(c *AppConfig) { c.Sessions.MaxViewersPerSession = 0 }, "sessions.maxViewersPerSession"},
		{"tracing exporter", func(c *AppConfig) {
			c.Tracing.Enabled = true
			c.Tracing.Exporter = "zipkin"
		}, "tracing.exporter"},
		{"sampling rate", func(c *AppConfig) {
			c.Tracing.Enabled = true
			c.Tracing.SamplingRate = 2
		}, "tracing.samplingRate"},
	}

	require.NoError(t, Validate(Default()))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)

			var verr validate.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Errors()[0].Field)
		})
	}
}

func TestServerConfigFor(t *testing.T) {
	cfg := Default()
	cfg.Server.ShutdownTimeout = time.Second
	cfg.Server.ReadTimeout = 0

	sc := ServerConfigFor(cfg)
	assert.Equal(t, DefaultListenAddr, sc.ListenAddr)
	assert.Equal(t, minimumShutdownTimeout, sc.ShutdownTimeout)
	assert.Equal(t, defaultServerReadTimeout, sc.ReadTimeout)
	assert.Equal(t, defaultMaxHeaderBytes, sc.MaxHeaderBytes)
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.Sessions.HeartbeatTimeout = 75 * time.Second

	require.NoError(t, WriteFile(path, cfg, false))
	require.Error(t, WriteFile(path, cfg, false), "existing file must not be replaced")
	require.NoError(t, WriteFile(path, cfg, true))

	loaded, err := NewLoader(path, "").Load()
	require.NoError(t, err)
	assert.Equal(t, 75*time.Second, loaded.Sessions.HeartbeatTimeout)
	assert.Equal(t, cfg.WebSocket, loaded.WebSocket)
}
