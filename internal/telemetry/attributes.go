// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	SessionIDKey     = "session.id"
	SessionTrackKey  = "session.track"
	SessionTimeMsKey = "session.time_ms"
	SessionCursorKey = "session.cursor"
	DeltaKindKey     = "delta.kind"
	DeltaLinesKey    = "delta.lines"

	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// SessionAttributes creates session span attributes; an empty track is omitted.
func SessionAttributes(sessionID, track string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String(SessionIDKey, sessionID)}
	if track != "" {
		attrs = append(attrs, attribute.String(SessionTrackKey, track))
	}
	return attrs
}

// DeltaAttributes describes a visibility change.
func DeltaAttributes(kind string, lines, cursor int, timeMs int64) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(DeltaKindKey, kind),
		attribute.Int(DeltaLinesKey, lines),
		attribute.Int(SessionCursorKey, cursor),
		attribute.Int64(SessionTimeMsKey, timeMs),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
