// SPDX-License-Identifier: MIT

package health

import (
	"context"
	"time"
)

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc struct {
	name string
	fn   func(ctx context.Context) CheckResult
}

// NewCheckerFunc creates a named checker backed by fn.
func NewCheckerFunc(name string, fn func(ctx context.Context) CheckResult) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

func (c *CheckerFunc) Name() string { return c.name }

func (c *CheckerFunc) Check(ctx context.Context) CheckResult { return c.fn(ctx) }

// SessionCounts is implemented by the session registry.
type SessionCounts interface {
	Counts() (sessions, viewers int, open bool)
}

// SessionsChecker reports registry occupancy. A closed registry is unhealthy.
type SessionsChecker struct {
	src SessionCounts
}

// NewSessionsChecker creates a checker over src.
func NewSessionsChecker(src SessionCounts) *SessionsChecker {
	return &SessionsChecker{src: src}
}

func (c *SessionsChecker) Name() string { return "sessions" }

func (c *SessionsChecker) Check(_ context.Context) CheckResult {
	sessions, viewers, open := c.src.Counts()
	details := map[string]any{"sessions": sessions, "viewers": viewers}
	if !open {
		return CheckResult{Status: StatusUnhealthy, Message: "session registry closed", Details: details}
	}
	return CheckResult{Status: StatusHealthy, Details: details}
}

// Pinger is implemented by cache backends.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CacheChecker pings the track cache. Failures degrade rather than fail
// readiness because tracks are re-parsed on a cache miss.
type CacheChecker struct {
	backend string
	cache   Pinger
	timeout time.Duration
}

// NewCacheChecker creates a checker for the named cache backend.
func NewCacheChecker(backend string, cache Pinger) *CacheChecker {
	return &CacheChecker{backend: backend, cache: cache, timeout: 2 * time.Second}
}

func (c *CacheChecker) Name() string { return "track_cache" }

func (c *CacheChecker) Check(ctx context.Context) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	details := map[string]any{"backend": c.backend}
	if err := c.cache.Ping(ctx); err != nil {
		return CheckResult{
			Status:  StatusDegraded,
			Message: "cache unreachable, parsing without cache",
			Error:   err.Error(),
			Details: details,
		}
	}
	return CheckResult{Status: StatusHealthy, Details: details}
}
