// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, zerolog.InfoLevel, resolveLevel(""))
	assert.Equal(t, zerolog.DebugLevel, resolveLevel("debug"))
	assert.Equal(t, zerolog.InfoLevel, resolveLevel("nonsense"))

	t.Setenv("LOG_LEVEL", "warn")
	assert.Equal(t, zerolog.WarnLevel, resolveLevel(""))
}

func TestSetLevel(t *testing.T) {
	prev := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	lvl, err := SetLevel("error")
	require.NoError(t, err)
	assert.Equal(t, zerolog.ErrorLevel, lvl)
	assert.Equal(t, zerolog.ErrorLevel, zerolog.GlobalLevel())

	_, err = SetLevel("loud")
	require.Error(t, err)
	assert.Equal(t, zerolog.ErrorLevel, zerolog.GlobalLevel())
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(nil) })

	l := WithComponent("registry")
	l.Warn().Msg("component line")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "registry", entry[FieldComponent])
	assert.Contains(t, entry, "service")
}

func TestMiddlewareLogsRoutePattern(t *testing.T) {
	prev := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prev) })

	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(nil) })

	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/api/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info().Msg("inside")
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/sessions/abc", nil)
	req = req.WithContext(ContextWithRequestID(req.Context(), "rid-9"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var handled map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &handled))
	assert.Equal(t, "request.handled", handled[FieldEvent])
	assert.Equal(t, "/api/sessions/{id}", handled[FieldPath])
	assert.Equal(t, float64(http.StatusNotFound), handled[FieldStatus])
	assert.Equal(t, "rid-9", handled[FieldRequestID])
	assert.Equal(t, "warn", handled["level"])

	assert.Contains(t, lines[0], `"request_id":"rid-9"`)
}
