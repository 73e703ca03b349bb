// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

package models

// WebSocket message type discriminators.
const (
	WSTypeFull   = "full"
	WSTypeUpdate = "update"
)

// WSFullMessage carries a complete race snapshot. Sent once on
// subscribe, and again (with an empty map) when a race is cleared.
type WSFullMessage struct {
	Type  string               `json:"type"`
	Boats map[string]BoatState `json:"boats"`
}

// NewWSFullMessage builds a full-snapshot message. A nil boats map is
// normalized to an empty map so clients always receive "{}" rather
// than null.
func NewWSFullMessage(boats map[string]BoatState) WSFullMessage {
	if boats == nil {
		boats = map[string]BoatState{}
	}
	return WSFullMessage{Type: WSTypeFull, Boats: boats}
}

// WSUpdateMessage carries a single boat's new frame, sent on every
// successful ingestion for the race.
type WSUpdateMessage struct {
	Type string    `json:"type"`
	Boat string    `json:"boat"`
	Data BoatState `json:"data"`
}

// NewWSUpdateMessage builds a single-boat update message.
func NewWSUpdateMessage(boatID string, state BoatState) WSUpdateMessage {
	return WSUpdateMessage{Type: WSTypeUpdate, Boat: boatID, Data: state}
}
