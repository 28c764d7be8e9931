// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import "errors"

var (
	// ErrNotFound is returned for operations on an unknown or removed session.
	ErrNotFound = errors.New("session not found")
	// ErrInvalidTrack is returned when a track name is not registered on the session.
	ErrInvalidTrack = errors.New("invalid track")
	// ErrViewerLimit is returned when a viewer scope is at capacity.
	ErrViewerLimit = errors.New("viewer limit reached")
	// ErrRegistryClosed is returned once the registry has shut down.
	ErrRegistryClosed = errors.New("session registry closed")
	// ErrUnknownCommand is returned for viewer messages with an unsupported type.
	ErrUnknownCommand = errors.New("unknown viewer command")
)
