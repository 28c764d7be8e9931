// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/subview/internal/domain/session/manager"
	"github.com/ManuGH/subview/internal/domain/session/model"
)

const (
	maxInitBodyBytes    = 32 << 20
	maxControlBodyBytes = 64 << 10
)

type createSessionResponse struct {
	SessionID string `json:"session_id"`
}

type listSessionsResponse struct {
	Sessions []model.Summary `json:"sessions"`
}

type initSessionRequest struct {
	VideoTitle     string            `json:"video_title"`
	SubtitleTracks map[string]string `json:"subtitle_tracks"`
}

type initSessionResponse struct {
	Status string `json:"status"`
	manager.InitResult
}

type updateTimeRequest struct {
	TimeMs *float64 `json:"time_ms"`
}

type selectTrackRequest struct {
	Track string `json:"track"`
}

type statusResponse struct {
	Status string `json:"status"`
	Active string `json:"active,omitempty"`
}

type sessionHealthResponse struct {
	SessionID string `json:"session_id"`
	Healthy   bool   `json:"healthy"`
}

// decodeJSON reads a single JSON object of at most limit bytes into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limit))
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("malformed JSON: %w", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	id, err := s.registry.Create(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/sessions/"+id)
	writeJSON(w, r, http.StatusCreated, createSessionResponse{SessionID: id})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, listSessionsResponse{Sessions: s.registry.ListSummaries()})
}

func (s *Server) handleInitSession(w http.ResponseWriter, r *http.Request) {
	var req initSessionRequest
	if err := decodeJSON(w, r, maxInitBodyBytes, &req); err != nil {
		RespondError(w, r, ErrInvalidRequest, err.Error())
		return
	}
	raw := make(map[string][]byte, len(req.SubtitleTracks))
	for name, content := range req.SubtitleTracks {
		name = strings.TrimSpace(name)
		if name == "" {
			RespondError(w, r, ErrInvalidRequest, "track names must not be empty")
			return
		}
		if _, dup := raw[name]; dup {
			RespondError(w, r, ErrInvalidRequest, fmt.Sprintf("duplicate track name %q", name))
			return
		}
		raw[name] = []byte(content)
	}

	res, err := s.registry.Init(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(req.VideoTitle), raw)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, initSessionResponse{Status: "ok", InitResult: res})
}

func (s *Server) handleUpdateTime(w http.ResponseWriter, r *http.Request) {
	var req updateTimeRequest
	if err := decodeJSON(w, r, maxControlBodyBytes, &req); err != nil {
		RespondError(w, r, ErrInvalidRequest, err.Error())
		return
	}
	if req.TimeMs == nil || math.IsNaN(*req.TimeMs) || math.IsInf(*req.TimeMs, 0) {
		RespondError(w, r, ErrInvalidRequest, "time_ms is required")
		return
	}
	// players report fractional milliseconds
	rounded := math.Round(*req.TimeMs)
	if rounded >= math.MaxInt64 || rounded < math.MinInt64 {
		RespondError(w, r, ErrInvalidRequest, "time_ms out of range")
		return
	}
	timeMs := int64(rounded)

	if _, err := s.registry.UpdateTime(r.Context(), chi.URLParam(r, "id"), timeMs); err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleSelectTrack(w http.ResponseWriter, r *http.Request) {
	var req selectTrackRequest
	if err := decodeJSON(w, r, maxControlBodyBytes, &req); err != nil {
		RespondError(w, r, ErrInvalidRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Track) == "" {
		RespondError(w, r, ErrInvalidRequest, "track is required")
		return
	}
	if err := s.registry.SelectTrack(r.Context(), chi.URLParam(r, "id"), req.Track); err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, statusResponse{Status: "ok", Active: req.Track})
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Heartbeat(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleSessionHealth(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	writeJSON(w, r, http.StatusOK, sessionHealthResponse{SessionID: id, Healthy: s.registry.Health(id)})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.registry.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
