// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package subtitle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ManuGH/subview/internal/cache"
	svlog "github.com/ManuGH/subview/internal/log"
	"github.com/ManuGH/subview/internal/metrics"
)

const cacheKeyPrefix = "track:v1:"

// Builder turns raw subtitle content into tracks.
type Builder interface {
	Build(ctx context.Context, name string, raw []byte) (*Track, Report, error)
}

// DirectBuilder parses on every call.
type DirectBuilder struct{}

// Build implements Builder.
func (DirectBuilder) Build(_ context.Context, name string, raw []byte) (*Track, Report, error) {
	return Build(name, raw)
}

// CachedBuilder memoises parse results keyed by a digest of the raw content,
// so a player re-registering the same files after an expiry skips parsing.
type CachedBuilder struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedBuilder wraps c. A non-positive ttl defaults to 30 minutes.
func NewCachedBuilder(c cache.Cache, ttl time.Duration) *CachedBuilder {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &CachedBuilder{cache: c, ttl: ttl}
}

type cachedTrack struct {
	Lines        []Line             `json:"lines"`
	TextLanguage string             `json:"text_language,omitempty"`
	Blocks       int                `json:"blocks"`
	Skipped      map[SkipReason]int `json:"skipped,omitempty"`
}

// Build implements Builder.
func (b *CachedBuilder) Build(ctx context.Context, name string, raw []byte) (*Track, Report, error) {
	key := contentKey(raw)

	if data, ok := b.cache.Get(ctx, key); ok {
		var ct cachedTrack
		if err := json.Unmarshal(data, &ct); err == nil {
			metrics.IncTrackCache("hit")
			report := Report{Blocks: ct.Blocks, Parsed: len(ct.Lines), Skipped: ct.Skipped}
			lang := languageFromName(name)
			if lang == "" {
				lang = ct.TextLanguage
			}
			return NewTrack(name, lang, ct.Lines), report, nil
		}
		b.cache.Delete(ctx, key)
	}
	metrics.IncTrackCache("miss")

	lines, report, err := Parse(raw)
	if err != nil {
		return nil, report, err
	}
	recordReport(name, report)
	if len(lines) == 0 {
		return nil, report, fmt.Errorf("track %q: %w", name, ErrNoLines)
	}

	ct := cachedTrack{
		Lines:        lines,
		TextLanguage: languageFromText(lines),
		Blocks:       report.Blocks,
		Skipped:      report.Skipped,
	}
	if data, err := json.Marshal(ct); err == nil {
		b.cache.Set(ctx, key, data, b.ttl)
	} else {
		logger := svlog.WithComponentFromContext(ctx, "subtitle")
		logger.Warn().Err(err).Str(svlog.FieldTrack, name).Msg("failed to encode track for cache")
	}

	lang := languageFromName(name)
	if lang == "" {
		lang = ct.TextLanguage
	}
	return NewTrack(name, lang, lines), report, nil
}

func contentKey(raw []byte) string {
	sum := sha256.Sum256(raw)
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}
