// SPDX-License-Identifier: MIT
package validate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListenAddr(t *testing.T) {
	tests := []struct {
		name  string
		addr  string
		valid bool
	}{
		{"loopback", "127.0.0.1:8765", true},
		{"any host", ":8765", true},
		{"ephemeral", "127.0.0.1:0", true},
		{"hostname", "localhost:8080", true},
		{"missing port", "127.0.0.1", false},
		{"port out of range", ":70000", false},
		{"port not numeric", ":http", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.ListenAddr("listenAddr", tt.addr)
			assert.Equal(t, tt.valid, v.IsValid(), v.Errors())
		})
	}
}

func TestDurationRange(t *testing.T) {
	v := New()
	v.DurationRange("timeout", 90*time.Second, time.Second, time.Hour)
	assert.True(t, v.IsValid())

	v.DurationRange("timeout", 0, time.Second, time.Hour)
	require.False(t, v.IsValid())
	assert.Equal(t, "timeout", v.Errors()[0].Field)
}

func TestErrAggregatesMessages(t *testing.T) {
	v := New()
	require.NoError(t, v.Err())

	v.Positive("a", 0)
	v.OneOf("b", "x", []string{"grpc", "http"})
	v.Fraction("c", 1.5)

	err := v.Err()
	require.Error(t, err)

	var verr ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Errors(), 3)
	assert.Contains(t, err.Error(), "validation failed for a")
	assert.Contains(t, err.Error(), "; ")
}

func TestParseLogLevel(t *testing.T) {
	lvl, err := ParseLogLevel(" Debug ")
	require.NoError(t, err)
	assert.Equal(t, "debug", lvl)

	_, err = ParseLogLevel("verbose")
	var verr Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "logLevel", verr.Field)
	assert.Equal(t, "verbose", verr.Value)

	v := New()
	v.LogLevel("log.level", "trace")
	assert.True(t, v.IsValid())
	v.LogLevel("log.level", "loud")
	require.Len(t, v.Errors(), 1)
	assert.Equal(t, "log.level", v.Errors()[0].Field)
}
