// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

// Package race owns live fleet state. One Actor per race holds the
// authoritative latest position of every boat; a Registry lazily
// spawns actors on first reference and rehydrates them from durable
// storage after a restart. All mutation of a race's state goes through
// its actor, so no two updates for the same race ever interleave.
// Different races share nothing and run fully in parallel.
package race

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Saucyfinn/finntrack/internal/config"
	"github.com/Saucyfinn/finntrack/internal/logging"
	"github.com/Saucyfinn/finntrack/internal/metrics"
	"github.com/Saucyfinn/finntrack/internal/models"
	"github.com/Saucyfinn/finntrack/internal/storage"
	"github.com/Saucyfinn/finntrack/internal/validation"
)

// ErrInvalidPayload rejects updates with empty identifiers or
// non-finite coordinates.
var ErrInvalidPayload = errors.New("race: invalid update payload")

// Broadcaster is the fan-out surface the actor notifies after a
// successful ingestion or a clear. Satisfied by hub.Hub.
type Broadcaster interface {
	BroadcastUpdate(raceID, boatID string, state models.BoatState)
	BroadcastFull(raceID string, boats map[string]models.BoatState)
}

// Actor serializes all mutation of one race's live state. The mutex
// is the per-race writer; snapshot readers take it too, so a snapshot
// never observes a half-applied update.
type Actor struct {
	raceID  string
	cfg     config.LivenessConfig
	states  *storage.StateStore
	history *storage.HistoryStore
	hub     Broadcaster

	mu       sync.Mutex
	boats    map[string]models.Update
	hydrated bool

	// appends tracks in-flight fire-and-forget history writes so
	// shutdown (and tests) can wait for them.
	appends sync.WaitGroup

	now func() time.Time
}

// NewActor creates an actor for one race. State is rehydrated lazily
// on the first operation that needs it.
func NewActor(raceID string, cfg config.LivenessConfig, states *storage.StateStore, history *storage.HistoryStore, hub Broadcaster) *Actor {
	return &Actor{
		raceID:  raceID,
		cfg:     cfg,
		states:  states,
		history: history,
		hub:     hub,
		boats:   make(map[string]models.Update),
		now:     time.Now,
	}
}

// RaceID returns the race this actor owns.
func (a *Actor) RaceID() string {
	return a.raceID
}

// hydrate reloads every boat's persisted latest frame after a restart.
// Caller holds the mutex. Runs at most once per actor lifetime: an
// explicit clear leaves the actor hydrated-and-empty rather than
// triggering a reload of state that no longer exists.
func (a *Actor) hydrate() error {
	if a.hydrated {
		return nil
	}
	loaded, err := a.states.LoadLatest(a.raceID)
	if err != nil {
		return fmt.Errorf("hydrating race %s: %w", a.raceID, err)
	}
	for boatID, u := range loaded {
		a.boats[boatID] = u
	}
	a.hydrated = true
	if len(loaded) > 0 {
		logging.Info().
			Str("race_id", a.raceID).
			Int("boats", len(loaded)).
			Msg("rehydrated race state from storage")
	}
	return nil
}

// Update ingests one position report. The latest frame is newest-write
// wins regardless of timestamp: a late-arriving older report still
// overwrites, matching call order rather than clock order. The durable
// latest is written synchronously; the history append and the viewer
// broadcast are fire-and-forget so a slow log or viewer never stalls
// the next report.
func (a *Actor) Update(u models.Update) error {
	if u.RaceID == "" || u.BoatID == "" || !u.HasFinitePosition() {
		metrics.RecordRejection("invalid_payload")
		return ErrInvalidPayload
	}
	if verr := validation.ValidateStruct(&u); verr != nil {
		metrics.RecordRejection("validation_failed")
		return fmt.Errorf("%w: %s", ErrInvalidPayload, verr.Error())
	}

	a.mu.Lock()
	if err := a.hydrate(); err != nil {
		a.mu.Unlock()
		return err
	}
	a.boats[u.BoatID] = u
	boatCount := len(a.boats)
	a.mu.Unlock()

	if err := a.states.PutLatest(u); err != nil {
		return fmt.Errorf("persisting latest for %s/%s: %w", u.RaceID, u.BoatID, err)
	}

	metrics.TrackedBoats.WithLabelValues(a.raceID).Set(float64(boatCount))

	a.appends.Add(1)
	go func() {
		defer a.appends.Done()
		if err := a.history.Append(u); err != nil {
			logging.Error().Err(err).
				Str("race_id", u.RaceID).
				Str("boat_id", u.BoatID).
				Msg("history append failed, live state unaffected")
		}
	}()

	if a.hub != nil {
		a.hub.BroadcastUpdate(a.raceID, u.BoatID, a.withActive(u, a.cfg.BroadcastWindow))
	}
	return nil
}

// Snapshot returns every known boat's latest frame. A positive window
// excludes boats whose last report is older than the window entirely;
// a zero window returns everything, annotated active or not against
// the default snapshot window.
func (a *Actor) Snapshot(window time.Duration) (map[string]models.BoatState, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.hydrate(); err != nil {
		return nil, err
	}
	metrics.SnapshotRequests.Inc()

	out := make(map[string]models.BoatState, len(a.boats))
	nowMs := a.now().UnixMilli()

	for boatID, u := range a.boats {
		age := nowMs - u.TimestampMs
		if window > 0 {
			if age > window.Milliseconds() {
				continue
			}
			out[boatID] = models.BoatState{Update: u, Active: true}
			continue
		}
		out[boatID] = a.withActive(u, a.cfg.SnapshotWindow)
	}
	return out, nil
}

// FullMessage builds the fleet snapshot sent to a subscribing viewer.
func (a *Actor) FullMessage() (*models.WSFullMessage, error) {
	boats, err := a.Snapshot(0)
	if err != nil {
		return nil, err
	}
	msg := models.NewWSFullMessage(boats)
	return &msg, nil
}

// Clear empties live state and the durable per-boat latest records,
// then pushes an empty full snapshot to viewers so their maps blank
// immediately. History records are untouched: replay and course
// detection survive a clear. Returns the number of boats removed.
func (a *Actor) Clear() (int, error) {
	a.mu.Lock()
	if err := a.hydrate(); err != nil {
		a.mu.Unlock()
		return 0, err
	}
	count := len(a.boats)
	a.boats = make(map[string]models.Update)
	a.mu.Unlock()

	if _, err := a.states.ClearRace(a.raceID); err != nil {
		return count, fmt.Errorf("clearing durable state for %s: %w", a.raceID, err)
	}

	metrics.TrackedBoats.WithLabelValues(a.raceID).Set(0)
	logging.Info().Str("race_id", a.raceID).Int("boats_cleared", count).Msg("race state cleared")

	if a.hub != nil {
		a.hub.BroadcastFull(a.raceID, map[string]models.BoatState{})
	}
	return count, nil
}

// Drain blocks until all in-flight history appends complete. Called
// during shutdown so the log loses nothing already acknowledged.
func (a *Actor) Drain() {
	a.appends.Wait()
}

func (a *Actor) withActive(u models.Update, window time.Duration) models.BoatState {
	age := a.now().UnixMilli() - u.TimestampMs
	return models.BoatState{Update: u, Active: age <= window.Milliseconds()}
}
