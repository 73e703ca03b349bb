// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

package api

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Saucyfinn/finntrack/internal/hub"
	"github.com/Saucyfinn/finntrack/internal/logging"
)

// WSHandler upgrades viewer connections and registers them with the
// broadcast hub.
type WSHandler struct {
	hub           *hub.Hub
	defaultRaceID string
	upgrader      websocket.Upgrader
}

// NewWSHandler creates the WebSocket upgrade handler. checkOrigin nil
// means same-origin only; the viewer SPA runs cross-origin, so the
// router passes an origin check built from the CORS allowlist.
func NewWSHandler(h *hub.Hub, defaultRaceID string, checkOrigin func(*http.Request) bool) *WSHandler {
	return &WSHandler{
		hub:           h,
		defaultRaceID: defaultRaceID,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Subscribe upgrades the connection and subscribes it to the race
// named by ?raceId=. The hub immediately sends a full fleet snapshot;
// from then on the client receives per-boat updates until it
// disconnects.
func (h *WSHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	raceID := r.URL.Query().Get("raceId")
	if raceID == "" {
		raceID = h.defaultRaceID
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := hub.NewClient(h.hub, conn, raceID)
	h.hub.Register <- client
	client.Start()
}
