// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

package race

import (
	"sort"
	"sync"

	"github.com/Saucyfinn/finntrack/internal/config"
	"github.com/Saucyfinn/finntrack/internal/metrics"
	"github.com/Saucyfinn/finntrack/internal/models"
	"github.com/Saucyfinn/finntrack/internal/storage"
)

// Registry maps race IDs to their actors, spawning lazily on first
// reference. Actors are never evicted while the process runs; a race
// that has gone quiet costs one idle struct.
type Registry struct {
	cfg     config.LivenessConfig
	states  *storage.StateStore
	history *storage.HistoryStore
	hub     Broadcaster

	mu     sync.RWMutex
	actors map[string]*Actor
}

// NewRegistry creates an empty registry. hub may be nil for callers
// that only read (exporters, course detection CLI use).
func NewRegistry(cfg config.LivenessConfig, states *storage.StateStore, history *storage.HistoryStore, hub Broadcaster) *Registry {
	return &Registry{
		cfg:     cfg,
		states:  states,
		history: history,
		hub:     hub,
		actors:  make(map[string]*Actor),
	}
}

// Get returns the actor for a race, creating it on first reference.
func (r *Registry) Get(raceID string) *Actor {
	r.mu.RLock()
	actor, ok := r.actors[raceID]
	r.mu.RUnlock()
	if ok {
		return actor
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Re-check under the write lock; another goroutine may have won.
	if actor, ok = r.actors[raceID]; ok {
		return actor
	}
	actor = NewActor(raceID, r.cfg, r.states, r.history, r.hub)
	r.actors[raceID] = actor
	metrics.ActiveRaces.Set(float64(len(r.actors)))
	return actor
}

// FullSnapshot adapts the registry to the hub's SnapshotFunc: a new
// viewer's subscribe triggers snapshot(0) on the race's actor.
func (r *Registry) FullSnapshot(raceID string) (*models.WSFullMessage, error) {
	return r.Get(raceID).FullMessage()
}

// RaceIDs returns the races with live actors, sorted.
func (r *Registry) RaceIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.actors))
	for id := range r.actors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Drain waits for every actor's in-flight history appends. Called on
// shutdown after ingestion has stopped.
func (r *Registry) Drain() {
	r.mu.RLock()
	actors := make([]*Actor, 0, len(r.actors))
	for _, a := range r.actors {
		actors = append(actors, a)
	}
	r.mu.RUnlock()

	for _, a := range actors {
		a.Drain()
	}
}
