// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ManuGH/subview/internal/subtitle"
)

// EncodeSessionEvent renders ev as a JSON frame with a "type" field.
func EncodeSessionEvent(ev SessionEvent) ([]byte, error) {
	switch e := ev.(type) {
	case Tracks:
		if e.Names == nil {
			e.Names = []string{}
		}
		return json.Marshal(struct {
			Type EventType `json:"type"`
			Tracks
		}{EventTracks, e})
	case SubtitlesInit:
		if e.Lines == nil {
			e.Lines = []subtitle.Line{}
		}
		return json.Marshal(struct {
			Type EventType `json:"type"`
			SubtitlesInit
		}{EventSubtitlesInit, e})
	case SubtitleAdd:
		return json.Marshal(struct {
			Type EventType `json:"type"`
			SubtitleAdd
		}{EventSubtitleAdd, e})
	case SubtitleRemove:
		return json.Marshal(struct {
			Type EventType `json:"type"`
			SubtitleRemove
		}{EventSubtitleRemove, e})
	case SessionClosed:
		return json.Marshal(struct {
			Type EventType `json:"type"`
			SessionClosed
		}{EventSessionClosed, e})
	default:
		return nil, fmt.Errorf("encode session event: unsupported %T", ev)
	}
}

// EncodeGlobalEvent renders ev as a JSON frame with a "type" field.
func EncodeGlobalEvent(ev GlobalEvent) ([]byte, error) {
	switch e := ev.(type) {
	case SessionsList:
		if e.Sessions == nil {
			e.Sessions = []Summary{}
		}
		return json.Marshal(struct {
			Type EventType `json:"type"`
			SessionsList
		}{EventSessionsList, e})
	case SessionAdded:
		return json.Marshal(struct {
			Type EventType `json:"type"`
			SessionAdded
		}{EventSessionAdded, e})
	case SessionUpdated:
		return json.Marshal(struct {
			Type EventType `json:"type"`
			SessionUpdated
		}{EventSessionUpdated, e})
	case SessionRemoved:
		return json.Marshal(struct {
			Type EventType `json:"type"`
			SessionRemoved
		}{EventSessionRemoved, e})
	default:
		return nil, fmt.Errorf("encode global event: unsupported %T", ev)
	}
}

// Command is a message sent by a session viewer.
type Command interface {
	Type() EventType
	command()
}

// SelectTrack asks to switch the session's active track.
type SelectTrack struct {
	Track string `json:"track"`
}

func (SelectTrack) Type() EventType { return CommandSelectTrack }
func (SelectTrack) command()        {}

// DecodeCommand parses a viewer message.
func DecodeCommand(data []byte) (Command, error) {
	var head struct {
		Type  EventType `json:"type"`
		Track *string   `json:"track"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode viewer command: %w", err)
	}
	switch head.Type {
	case CommandSelectTrack:
		if head.Track == nil || strings.TrimSpace(*head.Track) == "" {
			return nil, fmt.Errorf("decode viewer command: selectTrack without track")
		}
		return SelectTrack{Track: *head.Track}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, head.Type)
	}
}
