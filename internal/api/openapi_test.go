// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const apiBase = "/api"

var (
	openapiOnce sync.Once
	openapiDoc  *openapi3.T
	openapiErr  error
)

func loadOpenAPIDoc(t *testing.T) *openapi3.T {
	t.Helper()
	openapiOnce.Do(func() {
		doc, err := openapi3.NewLoader().LoadFromData(OpenAPISpec())
		if err != nil {
			openapiErr = err
			return
		}
		if err := doc.Validate(context.Background()); err != nil {
			openapiErr = err
			return
		}
		openapiDoc = doc
	})
	if openapiErr != nil {
		t.Fatalf("openapi load failed: %v", openapiErr)
	}
	return openapiDoc
}

func TestOpenAPIServed(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(t, http.MethodGet, "/api/openapi.yaml", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	assert.Equal(t, OpenAPISpec(), rec.Body.Bytes())
}

// Every documented operation is mounted and every mounted API route is documented.
func TestRouterParity(t *testing.T) {
	doc := loadOpenAPIDoc(t)
	env := newTestEnv(t, nil)

	var documented []string
	for path, item := range doc.Paths.Map() {
		for method := range item.Operations() {
			documented = append(documented, method+" "+path)

			req := httptest.NewRequest(method, apiBase+strings.ReplaceAll(path, "{id}", "missing"), nil)
			rec := httptest.NewRecorder()
			env.handler.ServeHTTP(rec, req)
			if rec.Code == http.StatusMethodNotAllowed ||
				(rec.Code == http.StatusNotFound && !strings.Contains(rec.Body.String(), "SESSION.NOT_FOUND")) {
				t.Errorf("route not mounted: %s %s -> %d", method, path, rec.Code)
			}
		}
	}

	routes, ok := env.handler.(chi.Routes)
	require.True(t, ok)
	var mounted []string
	err := chi.Walk(routes, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		if !strings.HasPrefix(route, apiBase+"/") || route == apiBase+"/openapi.yaml" {
			return nil
		}
		route = strings.TrimSuffix(strings.TrimPrefix(route, apiBase), "/")
		mounted = append(mounted, method+" "+route)
		return nil
	})
	require.NoError(t, err)

	sort.Strings(documented)
	sort.Strings(mounted)
	assert.Equal(t, documented, mounted)
}

// validateResponse checks rec against the documented response of the operation.
func validateResponse(t *testing.T, doc *openapi3.T, req *http.Request, template string, rec *httptest.ResponseRecorder) {
	t.Helper()
	item := doc.Paths.Value(template)
	require.NotNil(t, item, template)
	op := item.GetOperation(req.Method)
	require.NotNil(t, op, req.Method+" "+template)

	input := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: &openapi3filter.RequestValidationInput{
			Request: req,
			Route: &routers.Route{
				Spec:      doc,
				Path:      template,
				PathItem:  item,
				Method:    req.Method,
				Operation: op,
			},
		},
		Status:  rec.Code,
		Header:  rec.Header(),
		Body:    io.NopCloser(bytes.NewReader(rec.Body.Bytes())),
		Options: &openapi3filter.Options{IncludeResponseStatus: true},
	}
	require.NoError(t, openapi3filter.ValidateResponse(context.Background(), input),
		"%s %s -> %d %s", req.Method, template, rec.Code, rec.Body.String())
}

func TestResponsesMatchContract(t *testing.T) {
	doc := loadOpenAPIDoc(t)
	env := newTestEnv(t, nil)

	call := func(method, path, template, body string) *httptest.ResponseRecorder {
		var rd io.Reader
		if body != "" {
			rd = strings.NewReader(body)
		}
		req := httptest.NewRequest(method, apiBase+path, rd)
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		validateResponse(t, doc, req, template, rec)
		return rec
	}

	rec := call(http.MethodPost, "/sessions", "/sessions", "")
	id := decodeBody[createSessionResponse](t, rec).SessionID
	base := "/sessions/" + id

	call(http.MethodGet, "/sessions", "/sessions", "")
	call(http.MethodPost, base+"/init", "/sessions/{id}/init",
		`{"video_title":"Movie","subtitle_tracks":{"English":"1\n00:00:01,000 --> 00:00:02,000\nHello\n","Empty":""}}`)
	call(http.MethodPost, base+"/time", "/sessions/{id}/time", `{"time_ms":1500}`)
	call(http.MethodPost, base+"/time", "/sessions/{id}/time", `{}`)
	call(http.MethodPost, base+"/track", "/sessions/{id}/track", `{"track":"English"}`)
	call(http.MethodPost, base+"/track", "/sessions/{id}/track", `{"track":"Nope"}`)
	call(http.MethodPost, base+"/heartbeat", "/sessions/{id}/heartbeat", "")
	call(http.MethodGet, base+"/health", "/sessions/{id}/health", "")
	call(http.MethodGet, "/sessions", "/sessions", "")
	call(http.MethodDelete, base, "/sessions/{id}", "")
	call(http.MethodDelete, base, "/sessions/{id}", "")
	call(http.MethodPost, "/shutdown", "/shutdown", "")
}
