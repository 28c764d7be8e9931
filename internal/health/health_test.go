// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/subview/internal/config"
)

type mockChecker struct {
	name   string
	status Status
}

func (m *mockChecker) Name() string { return m.name }

func (m *mockChecker) Check(_ context.Context) CheckResult {
	return CheckResult{Status: m.status}
}

type fakeCounts struct {
	sessions, viewers int
	open              bool
}

func (f fakeCounts) Counts() (int, int, bool) { return f.sessions, f.viewers, f.open }

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestManager_Health_NoCheckers(t *testing.T) {
	m := NewManager("v1.0.0")

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.0.0", resp.Version)
	assert.GreaterOrEqual(t, resp.Uptime, int64(0))
	assert.Nil(t, resp.Checks)
}

func TestManager_Health_Verbose(t *testing.T) {
	m := NewManager("v1.0.0")
	m.RegisterChecker(&mockChecker{name: "healthy", status: StatusHealthy})
	m.RegisterChecker(&mockChecker{name: "degraded", status: StatusDegraded})

	resp := m.Health(context.Background(), false)
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Nil(t, resp.Checks)

	resp = m.Health(context.Background(), true)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Len(t, resp.Checks, 2)
	assert.Equal(t, StatusDegraded, resp.Checks["degraded"].Status)
}

func TestManager_Ready(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []Status
		wantReady bool
		want      Status
	}{
		{"no checkers", nil, true, StatusHealthy},
		{"all healthy", []Status{StatusHealthy, StatusHealthy}, true, StatusHealthy},
		{"degraded stays ready", []Status{StatusHealthy, StatusDegraded}, true, StatusDegraded},
		{"unhealthy wins", []Status{StatusDegraded, StatusUnhealthy}, false, StatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewManager("v")
			for i, s := range tt.statuses {
				m.RegisterChecker(&mockChecker{name: string(rune('a' + i)), status: s})
			}
			resp := m.Ready(context.Background())
			assert.Equal(t, tt.wantReady, resp.Ready)
			assert.Equal(t, tt.want, resp.Status)
		})
	}
}

func TestManager_ReadyFailsWhileDraining(t *testing.T) {
	m := NewManager("v")
	m.SetDraining(true)
	assert.False(t, m.Ready(context.Background()).Ready)
	m.SetDraining(false)
	assert.True(t, m.Ready(context.Background()).Ready)
}

func TestManager_ServeHealth(t *testing.T) {
	m := NewManager("v1")
	m.RegisterChecker(&mockChecker{name: "x", status: StatusUnhealthy})

	rec := httptest.NewRecorder()
	m.ServeHealth(rec, httptest.NewRequest(http.MethodGet, "/healthz?verbose=true", nil))

	assert.Equal(t, http.StatusOK, rec.Code, "liveness is always 200")
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Contains(t, resp.Checks, "x")
}

func TestManager_ServeReady(t *testing.T) {
	m := NewManager("v1")
	rec := httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	m.RegisterChecker(&mockChecker{name: "x", status: StatusUnhealthy})
	rec = httptest.NewRecorder()
	m.ServeReady(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Ready)
}

func TestSessionsChecker(t *testing.T) {
	c := NewSessionsChecker(fakeCounts{sessions: 2, viewers: 5, open: true})
	assert.Equal(t, "sessions", c.Name())
	res := c.Check(context.Background())
	assert.Equal(t, StatusHealthy, res.Status)
	assert.Equal(t, 2, res.Details["sessions"])
	assert.Equal(t, 5, res.Details["viewers"])

	res = NewSessionsChecker(fakeCounts{}).Check(context.Background())
	assert.Equal(t, StatusUnhealthy, res.Status)
}

func TestCacheChecker(t *testing.T) {
	ok := NewCacheChecker("redis", fakePinger{})
	assert.Equal(t, StatusHealthy, ok.Check(context.Background()).Status)

	down := NewCacheChecker("redis", fakePinger{err: errors.New("connection refused")})
	res := down.Check(context.Background())
	assert.Equal(t, StatusDegraded, res.Status)
	assert.Equal(t, "connection refused", res.Error)
}

func TestCheckerFunc(t *testing.T) {
	c := NewCheckerFunc("custom", func(context.Context) CheckResult {
		return CheckResult{Status: StatusDegraded, Message: "slow"}
	})
	assert.Equal(t, "custom", c.Name())
	assert.Equal(t, "slow", c.Check(context.Background()).Message)
}

func TestPerformStartupChecks(t *testing.T) {
	cfg := config.Default()
	require.NoError(t, PerformStartupChecks(context.Background(), cfg))

	bad := cfg
	bad.Server.ListenAddr = "localhost"
	assert.Error(t, PerformStartupChecks(context.Background(), bad))

	clash := cfg
	clash.Metrics.Enabled = true
	clash.Metrics.ListenAddr = cfg.Server.ListenAddr
	assert.Error(t, PerformStartupChecks(context.Background(), clash))

	tracing := cfg
	tracing.Tracing.Enabled = true
	tracing.Tracing.Endpoint = ""
	assert.Error(t, PerformStartupChecks(context.Background(), tracing))
}
