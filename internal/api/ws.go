// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ManuGH/subview/internal/broadcast"
	"github.com/ManuGH/subview/internal/domain/session/model"
	"github.com/ManuGH/subview/internal/log"
)

// Close codes sent when a viewer cannot be attached.
const (
	closeSessionNotFound = 4404
	closeViewerLimit     = websocket.CloseTryAgainLater
)

// wsConn adapts a websocket to broadcast.Conn. Frames are queued on a
// bounded channel and written by writePump, so Send never blocks.
type wsConn struct {
	id     string
	ws     *websocket.Conn
	send   chan []byte
	done   chan struct{}
	exited chan struct{}
	once   sync.Once

	pingInterval time.Duration
	writeTimeout time.Duration
	logger       zerolog.Logger
}

var _ broadcast.Conn = (*wsConn)(nil)

func (s *Server) newConn(ws *websocket.Conn, r *http.Request, scope string) *wsConn {
	wsCfg := s.cfg.WebSocket
	buf := wsCfg.SendBuffer
	if buf <= 0 {
		buf = 256
	}
	ping := wsCfg.PingInterval
	if ping <= 0 {
		ping = 30 * time.Second
	}
	writeTimeout := wsCfg.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	maxMsg := int64(wsCfg.MaxMessageSize)
	if maxMsg <= 0 {
		maxMsg = 4096
	}
	ws.SetReadLimit(maxMsg)

	id := uuid.New().String()
	return &wsConn{
		id:           id,
		ws:           ws,
		send:         make(chan []byte, buf),
		done:         make(chan struct{}),
		exited:       make(chan struct{}),
		pingInterval: ping,
		writeTimeout: writeTimeout,
		logger: log.WithComponentFromContext(r.Context(), "ws").With().
			Str(log.FieldConnID, id).
			Str(log.FieldScope, scope).
			Logger(),
	}
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(frame []byte) error {
	select {
	case <-c.done:
		return broadcast.ErrConnClosed
	default:
	}
	select {
	case c.send <- frame:
		return nil
	default:
		return broadcast.ErrSlowConsumer
	}
}

func (c *wsConn) Close() {
	c.once.Do(func() { close(c.done) })
}

// closeWith sends a close frame with code and text, then closes c.
func (c *wsConn) closeWith(code int, text string) {
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text), time.Now().Add(c.writeTimeout))
	c.Close()
}

// writePump owns all data writes to the socket.
func (c *wsConn) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
		close(c.exited)
	}()

	write := func(frame []byte) bool {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
			c.logger.Debug().Err(err).Msg("websocket write failed")
			c.Close()
			return false
		}
		return true
	}

	for {
		select {
		case frame := <-c.send:
			if !write(frame) {
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout)); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			// flush frames queued before Close, such as session_closed
			for {
				select {
				case frame := <-c.send:
					if !write(frame) {
						return
					}
				default:
					_ = c.ws.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
						time.Now().Add(c.writeTimeout))
					return
				}
			}
		}
	}
}

// readPump reads until the peer goes away and passes each text message to
// handle. Pongs extend the read deadline.
func (c *wsConn) readPump(handle func([]byte)) {
	pongWait := c.pingInterval * 2
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		msgType, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug().Err(err).Msg("websocket closed unexpectedly")
			}
			return
		}
		if msgType == websocket.TextMessage && handle != nil {
			handle(msg)
		}
	}
}

// finish closes c and waits for the writer to exit.
func (c *wsConn) finish() {
	c.Close()
	<-c.exited
}

func (s *Server) handleGlobalWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := s.newConn(ws, r, "global")
	go conn.writePump()
	defer conn.finish()

	if err := s.registry.AttachGlobal(r.Context(), conn); err != nil {
		conn.closeWith(closeCodeFor(err), err.Error())
		return
	}
	defer s.registry.DetachGlobal(conn.id)
	conn.logger.Debug().Str(log.FieldEvent, "ws.global_attached").Msg("global viewer attached")

	conn.readPump(nil)
}

func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.registry.Health(id) {
		RespondError(w, r, ErrSessionNotFound)
		return
	}
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := s.newConn(ws, r, "session")
	go conn.writePump()
	defer conn.finish()

	ctx := r.Context()
	if err := s.registry.AttachViewer(ctx, id, conn); err != nil {
		conn.closeWith(closeCodeFor(err), err.Error())
		return
	}
	defer s.registry.DetachViewer(id, conn.id)
	conn.logger.Debug().Str(log.FieldEvent, "ws.viewer_attached").Msg("session viewer attached")

	limiter := rate.NewLimiter(rate.Limit(s.cfg.WebSocket.CommandRate), max(s.cfg.WebSocket.CommandBurst, 1))
	if s.cfg.WebSocket.CommandRate <= 0 {
		limiter.SetLimit(rate.Inf)
	}
	conn.readPump(func(msg []byte) {
		if !limiter.Allow() {
			conn.logger.Debug().Msg("viewer command dropped by rate limit")
			return
		}
		cmd, err := model.DecodeCommand(msg)
		if err != nil {
			conn.logger.Debug().Err(err).Msg("ignoring viewer message")
			return
		}
		if err := s.registry.HandleCommand(ctx, id, cmd); err != nil {
			conn.logger.Info().Err(err).Str(log.FieldOp, string(cmd.Type())).Msg("viewer command failed")
		}
	})
}

func closeCodeFor(err error) int {
	switch {
	case errors.Is(err, model.ErrViewerLimit):
		return closeViewerLimit
	case errors.Is(err, model.ErrNotFound):
		return closeSessionNotFound
	default:
		return websocket.CloseGoingAway
	}
}
