// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api exposes the session registry over HTTP and WebSocket.
package api

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ManuGH/subview/internal/config"
	"github.com/ManuGH/subview/internal/control/middleware"
	"github.com/ManuGH/subview/internal/domain/session/manager"
	"github.com/ManuGH/subview/internal/health"
	"github.com/ManuGH/subview/internal/log"
)

var (
	ErrMissingRegistry = errors.New("api: session registry is required")
	ErrMissingHealth   = errors.New("api: health manager is required")
)

// Deps are the collaborators of the HTTP surface.
type Deps struct {
	Registry *manager.Registry
	Health   *health.Manager
	Config   config.AppConfig
	// Shutdown is invoked once, after the configured delay, when a client
	// calls POST /api/shutdown. Nil disables the endpoint.
	Shutdown func()
}

// Server holds the HTTP handlers.
type Server struct {
	registry *manager.Registry
	health   *health.Manager
	cfg      config.AppConfig
	shutdown func()
	upgrader websocket.Upgrader
	logger   zerolog.Logger

	shutdownOnce sync.Once
	shuttingDown chan struct{}
}

// New validates deps and builds a Server.
func New(deps Deps) (*Server, error) {
	if deps.Registry == nil {
		return nil, ErrMissingRegistry
	}
	if deps.Health == nil {
		return nil, ErrMissingHealth
	}
	s := &Server{
		registry:     deps.Registry,
		health:       deps.Health,
		cfg:          deps.Config,
		shutdown:     deps.Shutdown,
		logger:       log.WithComponent("api"),
		shuttingDown: make(chan struct{}),
	}
	origins := deps.Config.WebSocket.AllowedOrigins
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  4096,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || middleware.OriginAllowed(origins, origin)
		},
	}
	return s, nil
}

// Handler returns the root router.
func (s *Server) Handler() http.Handler {
	stack := middleware.StackConfig{
		EnableCORS:            true,
		AllowedOrigins:        s.cfg.WebSocket.AllowedOrigins,
		EnableSecurityHeaders: true,
		EnableMetrics:         s.cfg.Metrics.Enabled,
		EnableLogging:         true,
	}
	if s.cfg.Tracing.Enabled {
		stack.TracingService = tracingService(s.cfg)
	}
	r := middleware.NewRouter(stack)

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	if s.cfg.Metrics.Enabled && s.cfg.Metrics.ListenAddr == "" {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if s.cfg.RateLimit.Enabled {
			r.Use(middleware.APIRateLimit(s.cfg.RateLimit.Requests, s.cfg.RateLimit.Window, s.cfg.RateLimit.Whitelist))
		}
		r.Get("/openapi.yaml", serveOpenAPI)
		r.Post("/shutdown", s.handleShutdown)

		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", s.handleCreateSession)
			r.Get("/", s.handleListSessions)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(sessionContext)
				r.Delete("/", s.handleDeleteSession)
				r.Post("/init", s.handleInitSession)
				r.Post("/time", s.handleUpdateTime)
				r.Post("/track", s.handleSelectTrack)
				r.Post("/heartbeat", s.handleHeartbeat)
				r.Get("/health", s.handleSessionHealth)
			})
		})
	})

	ws := middleware.OTelHTTP(tracingService(s.cfg), "ws")
	r.With(ws).Get("/ws", s.handleGlobalWS)
	r.With(ws, sessionContext).Get("/ws/sessions/{id}", s.handleSessionWS)

	return r
}

// ShuttingDown is closed once a remote shutdown was accepted.
func (s *Server) ShuttingDown() <-chan struct{} {
	return s.shuttingDown
}

func (s *Server) handleShutdown(w http.ResponseWriter, r *http.Request) {
	if s.shutdown == nil || !s.cfg.Server.AllowShutdown {
		RespondError(w, r, ErrShutdownDisabled)
		return
	}
	delay := s.cfg.Server.ShutdownDelay
	accepted := false
	s.shutdownOnce.Do(func() {
		accepted = true
		close(s.shuttingDown)
		s.health.SetDraining(true)
		time.AfterFunc(delay, s.shutdown)
	})
	log.FromContext(r.Context()).Info().
		Str(log.FieldEvent, "api.shutdown_requested").
		Bool("first", accepted).
		Dur("delay", delay).
		Msg("shutdown requested")
	writeJSON(w, r, http.StatusAccepted, map[string]string{"status": "shutting_down"})
}

// sessionContext tags the request context with the session id for logging.
func sessionContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		ctx := log.ContextWithSessionID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func tracingService(cfg config.AppConfig) string {
	if cfg.LogService != "" {
		return cfg.LogService
	}
	return "subview"
}
