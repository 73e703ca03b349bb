// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

package services

import (
	"context"
)

// HubRunner matches the WebSocket hub's RunWithContext method.
// Satisfied by *hub.Hub.
type HubRunner interface {
	RunWithContext(ctx context.Context) error
}

// HubService wraps the WebSocket broadcast hub as a supervised
// service. If the hub loop panics, the supervisor restarts it;
// subscribers reconnect and receive a fresh snapshot.
type HubService struct {
	hub  HubRunner
	name string
}

// NewHubService creates a new hub service wrapper.
func NewHubService(h HubRunner) *HubService {
	return &HubService{hub: h, name: "websocket-hub"}
}

// Serve implements suture.Service. Delegates to the hub's run loop,
// which returns ctx.Err() on normal shutdown.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

// String implements fmt.Stringer for supervisor logging.
func (s *HubService) String() string {
	return s.name
}
