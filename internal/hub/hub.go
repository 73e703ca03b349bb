// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

// Package hub fans live race telemetry out to WebSocket spectators.
// Each client subscribes to exactly one race; broadcasts carry the
// race ID and are delivered only to that race's room. A freshly
// subscribed client immediately receives a full fleet snapshot so the
// map renders without waiting for the next position report.
package hub

import (
	"context"
	"sort"
	"sync"

	"github.com/Saucyfinn/finntrack/internal/logging"
	"github.com/Saucyfinn/finntrack/internal/metrics"
	"github.com/Saucyfinn/finntrack/internal/models"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was
	// canceled. This is the normal graceful shutdown path (SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was
	// exceeded. This may indicate a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// envelope pairs a routed race ID with the message to deliver.
type envelope struct {
	raceID  string
	msgType string
	data    interface{}
}

// SnapshotFunc produces the full fleet snapshot for a race. The hub
// calls it when a client subscribes so the first frame the client sees
// is the complete current state.
type SnapshotFunc func(raceID string) (*models.WSFullMessage, error)

// Hub maintains the set of subscribed clients and routes messages to
// the clients watching each race.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan envelope
	Register   chan *Client
	Unregister chan *Client
	snapshot   SnapshotFunc
	mu         sync.RWMutex
}

// NewHub creates a hub. snapshot may be nil, in which case subscribers
// receive nothing until the next broadcast.
func NewHub(snapshot SnapshotFunc) *Hub {
	return &Hub{
		broadcast:  make(chan envelope, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		snapshot:   snapshot,
	}
}

// RunWithContext starts the hub with context support for graceful
// shutdown. Designed for use under suture supervision: on cancellation
// all clients are closed and ctx.Err() is returned so the supervisor
// does not restart a healthy shutdown.
//
// DETERMINISM: Uses priority-based selection so behavior is
// predictable when several channels are ready at once:
// - Priority 1: Context cancellation (shutdown)
// - Priority 2: Client lifecycle events (Register/Unregister)
// - Priority 3: Broadcast messages
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Priority 1: Check for shutdown (non-blocking)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: Handle client lifecycle (non-blocking check)
		select {
		case client := <-h.Register:
			h.registerClient(client)
			continue
		case client := <-h.Unregister:
			h.unregisterClient(client)
			continue
		default:
		}

		// Priority 3: Handle broadcasts or wait for any event
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.Unregister:
			h.unregisterClient(client)

		case env := <-h.broadcast:
			h.broadcastToRace(env)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Inc()
	logging.Info().
		Str("race_id", client.raceID).
		Int("total_clients", total).
		Msg("websocket client subscribed")

	h.sendSnapshot(client)
}

// sendSnapshot pushes the full fleet state to a newly subscribed
// client. A failed snapshot is logged and skipped; the client will
// catch up on the next per-boat broadcast.
func (h *Hub) sendSnapshot(client *Client) {
	if h.snapshot == nil {
		return
	}
	full, err := h.snapshot(client.raceID)
	if err != nil {
		logging.Error().Err(err).
			Str("race_id", client.raceID).
			Msg("failed to build subscribe snapshot")
		return
	}
	select {
	case client.send <- envelope{raceID: client.raceID, msgType: models.WSTypeFull, data: full}:
		metrics.RecordWSMessage(models.WSTypeFull)
	default:
		metrics.WSMessagesDropped.Inc()
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		metrics.WSConnections.Dec()
	}
	total := len(h.clients)
	h.mu.Unlock()

	logging.Info().
		Str("race_id", client.raceID).
		Int("total_clients", total).
		Msg("websocket client disconnected")
}

// logGracefulShutdown closes all clients and logs the shutdown with
// structured fields. ctx.Err() is not logged as an error because
// cancellation is expected behavior during graceful shutdown.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.ClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.Canceled:
		return ShutdownReasonContextCanceled
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// broadcastToRace delivers a message to every client subscribed to the
// envelope's race, in a deterministic order.
//
// DETERMINISM: Clients are sorted by their monotonically assigned IDs
// so delivery order is reproducible across runs. A client with a full
// send buffer is dropped rather than blocking the fleet: the spectator
// is stale anyway and will resubscribe for a fresh snapshot.
func (h *Hub) broadcastToRace(env envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		if client.raceID == env.raceID {
			clients = append(clients, client)
		}
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- env:
			metrics.RecordWSMessage(env.msgType)
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		metrics.WSConnections.Dec()
		metrics.WSMessagesDropped.Inc()
		logging.Warn().
			Str("race_id", client.raceID).
			Msg("dropping slow websocket client")
	}
}

// closeAllClients closes all connected clients in ID order.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
		metrics.WSConnections.Dec()
	}
	logging.Info().Msg("closed all websocket clients during shutdown")
}

// BroadcastUpdate sends a single boat's new position to the race's
// spectators. Dropped (with a warning) if the hub's queue is full.
func (h *Hub) BroadcastUpdate(raceID, boatID string, state models.BoatState) {
	env := envelope{
		raceID:  raceID,
		msgType: models.WSTypeUpdate,
		data:    models.NewWSUpdateMessage(boatID, state),
	}

	select {
	case h.broadcast <- env:
	default:
		metrics.WSMessagesDropped.Inc()
		logging.Warn().Str("race_id", raceID).Msg("broadcast channel full, dropping update message")
	}
}

// BroadcastFull sends a complete fleet snapshot to the race's
// spectators. Used after a clear so maps empty immediately.
func (h *Hub) BroadcastFull(raceID string, boats map[string]models.BoatState) {
	env := envelope{
		raceID:  raceID,
		msgType: models.WSTypeFull,
		data:    models.NewWSFullMessage(boats),
	}

	select {
	case h.broadcast <- env:
	default:
		metrics.WSMessagesDropped.Inc()
		logging.Warn().Str("race_id", raceID).Msg("broadcast channel full, dropping full message")
	}
}

// ClientCount returns the number of connected clients across all races.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RaceClientCount returns the number of clients watching one race.
func (h *Hub) RaceClientCount(raceID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for client := range h.clients {
		if client.raceID == raceID {
			count++
		}
	}
	return count
}
