// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

package race

import (
	"errors"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/Saucyfinn/finntrack/internal/config"
	"github.com/Saucyfinn/finntrack/internal/logging"
	"github.com/Saucyfinn/finntrack/internal/models"
	"github.com/Saucyfinn/finntrack/internal/storage"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "console", Output: io.Discard})
}

func newTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := storage.Open(config.StorageConfig{InMemory: true})
	if err != nil {
		t.Fatalf("opening in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testLiveness() config.LivenessConfig {
	return config.LivenessConfig{
		SnapshotWindow:  300 * time.Second,
		BroadcastWindow: 120 * time.Second,
	}
}

// recordingHub captures broadcasts for assertions.
type recordingHub struct {
	mu      sync.Mutex
	updates []models.WSUpdateMessage
	fulls   []map[string]models.BoatState
}

func (h *recordingHub) BroadcastUpdate(raceID, boatID string, state models.BoatState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.updates = append(h.updates, models.NewWSUpdateMessage(boatID, state))
}

func (h *recordingHub) BroadcastFull(raceID string, boats map[string]models.BoatState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fulls = append(h.fulls, boats)
}

func (h *recordingHub) lastUpdate(t *testing.T) models.WSUpdateMessage {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.updates) == 0 {
		t.Fatal("no update broadcasts recorded")
	}
	return h.updates[len(h.updates)-1]
}

func newTestActor(t *testing.T, raceID string) (*Actor, *recordingHub, *storage.HistoryStore) {
	t.Helper()
	db := newTestDB(t)
	states := storage.NewStateStore(db)
	history := storage.NewHistoryStore(db)
	hub := &recordingHub{}
	a := NewActor(raceID, testLiveness(), states, history, hub)
	return a, hub, history
}

func testUpdate(raceID, boatID string, ts int64) models.Update {
	return models.Update{
		RaceID: raceID, BoatID: boatID,
		Lat: -27.46, Lon: 153.19,
		SpeedKnots: 5, HeadingDeg: 90, TimestampMs: ts,
	}
}

func TestActorUpdateThenSnapshotZero(t *testing.T) {
	a, _, _ := newTestActor(t, "R1")
	// Freeze the clock just after the frame so a 1970-era timestamp
	// still counts as fresh.
	a.now = func() time.Time { return time.UnixMilli(2000) }

	if err := a.Update(testUpdate("R1", "B1", 1000)); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	boats, err := a.Snapshot(0)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	b1, ok := boats["B1"]
	if !ok {
		t.Fatal("snapshot missing B1")
	}
	if b1.Lat != -27.46 || b1.Lon != 153.19 || b1.SpeedKnots != 5 || b1.HeadingDeg != 90 {
		t.Errorf("frame = %+v", b1.Update)
	}
	if b1.TimestampMs != 1000 {
		t.Errorf("TimestampMs = %d", b1.TimestampMs)
	}
	if !b1.Active {
		t.Error("boat reported 1s ago should be active")
	}
}

func TestActorLastCallWins(t *testing.T) {
	a, _, history := newTestActor(t, "R1")
	a.now = func() time.Time { return time.UnixMilli(2000) }

	if err := a.Update(testUpdate("R1", "B1", 1000)); err != nil {
		t.Fatalf("Update(t=1000) error = %v", err)
	}
	if err := a.Update(testUpdate("R1", "B1", 500)); err != nil {
		t.Fatalf("Update(t=500) error = %v", err)
	}
	a.Drain()

	boats, err := a.Snapshot(0)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	// Latest follows call order, not clock order.
	if got := boats["B1"].TimestampMs; got != 500 {
		t.Errorf("latest TimestampMs = %d, want 500", got)
	}

	// History keeps both frames, replay re-imposes clock order.
	tracks, err := history.Replay("R1")
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	track := tracks["B1"]
	if len(track) != 2 {
		t.Fatalf("history has %d frames, want 2", len(track))
	}
	if track[0].TimestampMs != 500 || track[1].TimestampMs != 1000 {
		t.Errorf("replay order = [%d, %d], want [500, 1000]", track[0].TimestampMs, track[1].TimestampMs)
	}
}

func TestActorClear(t *testing.T) {
	a, hub, history := newTestActor(t, "R1")
	a.now = func() time.Time { return time.UnixMilli(2000) }

	_ = a.Update(testUpdate("R1", "B1", 1000))
	_ = a.Update(testUpdate("R1", "B2", 1100))
	a.Drain()

	count, err := a.Clear()
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Clear() = %d, want 2", count)
	}

	boats, err := a.Snapshot(0)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(boats) != 0 {
		t.Errorf("snapshot after clear has %d boats", len(boats))
	}

	hub.mu.Lock()
	fulls := len(hub.fulls)
	var lastFull map[string]models.BoatState
	if fulls > 0 {
		lastFull = hub.fulls[fulls-1]
	}
	hub.mu.Unlock()
	if fulls == 0 {
		t.Fatal("clear did not broadcast a full snapshot")
	}
	if lastFull == nil || len(lastFull) != 0 {
		t.Errorf("clear broadcast = %v, want empty map", lastFull)
	}

	// The audit trail survives.
	tracks, err := history.Replay("R1")
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if len(tracks) != 2 {
		t.Errorf("replay after clear has %d boats, want 2", len(tracks))
	}
}

func TestActorRejectsInvalidPayloads(t *testing.T) {
	a, _, _ := newTestActor(t, "R1")

	tests := []struct {
		name string
		u    models.Update
	}{
		{"empty boat id", models.Update{RaceID: "R1", Lat: -27, Lon: 153}},
		{"empty race id", models.Update{BoatID: "B1", Lat: -27, Lon: 153}},
		{"NaN lat", models.Update{RaceID: "R1", BoatID: "B1", Lat: math.NaN(), Lon: 153}},
		{"infinite lon", models.Update{RaceID: "R1", BoatID: "B1", Lat: -27, Lon: math.Inf(-1)}},
		{"lat out of range", models.Update{RaceID: "R1", BoatID: "B1", Lat: 91, Lon: 153}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := a.Update(tt.u); !errors.Is(err, ErrInvalidPayload) {
				t.Errorf("Update() error = %v, want ErrInvalidPayload", err)
			}
		})
	}

	boats, err := a.Snapshot(0)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(boats) != 0 {
		t.Errorf("rejected updates leaked into state: %d boats", len(boats))
	}
}

func TestActorSnapshotWindowExcludesStale(t *testing.T) {
	a, _, _ := newTestActor(t, "R1")
	base := int64(1_000_000)
	a.now = func() time.Time { return time.UnixMilli(base) }

	_ = a.Update(testUpdate("R1", "fresh", base-10_000))  // 10s old
	_ = a.Update(testUpdate("R1", "stale", base-400_000)) // 400s old
	a.Drain()

	// Positive window: stale boats are excluded entirely.
	boats, err := a.Snapshot(60 * time.Second)
	if err != nil {
		t.Fatalf("Snapshot(60s) error = %v", err)
	}
	if _, ok := boats["stale"]; ok {
		t.Error("stale boat present in windowed snapshot")
	}
	fresh, ok := boats["fresh"]
	if !ok {
		t.Fatal("fresh boat missing from windowed snapshot")
	}
	if !fresh.Active {
		t.Error("boat inside the window should be active")
	}

	// Zero window: everything returns, annotated against the default.
	boats, err = a.Snapshot(0)
	if err != nil {
		t.Fatalf("Snapshot(0) error = %v", err)
	}
	if len(boats) != 2 {
		t.Fatalf("Snapshot(0) has %d boats, want 2", len(boats))
	}
	if !boats["fresh"].Active {
		t.Error("fresh boat should be active against the 300s default")
	}
	if boats["stale"].Active {
		t.Error("400s-old boat should be inactive against the 300s default")
	}
}

func TestActorBroadcastCarriesActiveFlag(t *testing.T) {
	a, hub, _ := newTestActor(t, "R1")
	base := int64(1_000_000)
	a.now = func() time.Time { return time.UnixMilli(base) }

	_ = a.Update(testUpdate("R1", "B1", base-1000))
	msg := hub.lastUpdate(t)
	if msg.Boat != "B1" {
		t.Errorf("Boat = %q", msg.Boat)
	}
	if !msg.Data.Active {
		t.Error("1s-old frame should broadcast active against the 120s window")
	}

	_ = a.Update(testUpdate("R1", "B1", base-200_000))
	if msg = hub.lastUpdate(t); msg.Data.Active {
		t.Error("200s-old frame should broadcast inactive against the 120s window")
	}
}

func TestActorRehydration(t *testing.T) {
	db := newTestDB(t)
	states := storage.NewStateStore(db)
	history := storage.NewHistoryStore(db)
	nowFn := func() time.Time { return time.UnixMilli(2000) }

	first := NewActor("R1", testLiveness(), states, history, nil)
	first.now = nowFn
	_ = first.Update(testUpdate("R1", "B1", 1000))
	_ = first.Update(testUpdate("R1", "B2", 1100))
	first.Drain()

	// A fresh actor over the same store sees the fleet again.
	second := NewActor("R1", testLiveness(), states, history, nil)
	second.now = nowFn
	boats, err := second.Snapshot(0)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(boats) != 2 {
		t.Fatalf("rehydrated snapshot has %d boats, want 2", len(boats))
	}
	if boats["B1"].TimestampMs != 1000 || boats["B2"].TimestampMs != 1100 {
		t.Errorf("rehydrated frames = %d/%d", boats["B1"].TimestampMs, boats["B2"].TimestampMs)
	}
}

func TestActorClearThenUpdateStartsFresh(t *testing.T) {
	a, _, _ := newTestActor(t, "R1")
	a.now = func() time.Time { return time.UnixMilli(5000) }

	_ = a.Update(testUpdate("R1", "B1", 1000))
	a.Drain()
	if _, err := a.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	// New updates after a clear must not resurrect cleared boats.
	_ = a.Update(testUpdate("R1", "B2", 4000))
	boats, err := a.Snapshot(0)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(boats) != 1 {
		t.Fatalf("snapshot has %d boats, want 1", len(boats))
	}
	if _, ok := boats["B1"]; ok {
		t.Error("cleared boat B1 reappeared")
	}
}

func TestActorConcurrentUpdates(t *testing.T) {
	a, _, _ := newTestActor(t, "R1")
	a.now = func() time.Time { return time.UnixMilli(100_000) }

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			boat := string(rune('A' + n))
			for ts := int64(1); ts <= 50; ts++ {
				_ = a.Update(testUpdate("R1", boat, ts*100))
			}
		}(i)
	}
	wg.Wait()
	a.Drain()

	boats, err := a.Snapshot(0)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(boats) != 8 {
		t.Errorf("snapshot has %d boats, want 8", len(boats))
	}
	for boat, state := range boats {
		if state.TimestampMs != 5000 {
			t.Errorf("boat %s latest = %d, want 5000", boat, state.TimestampMs)
		}
	}
}
