// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

package race

import (
	"sync"
	"testing"
	"time"

	"github.com/Saucyfinn/finntrack/internal/storage"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	db := newTestDB(t)
	return NewRegistry(testLiveness(), storage.NewStateStore(db), storage.NewHistoryStore(db), &recordingHub{})
}

func TestRegistryLazySpawn(t *testing.T) {
	r := newTestRegistry(t)

	if got := len(r.RaceIDs()); got != 0 {
		t.Fatalf("fresh registry tracks %d races", got)
	}

	a := r.Get("LIVE")
	if a == nil {
		t.Fatal("Get() returned nil")
	}
	if a.RaceID() != "LIVE" {
		t.Errorf("RaceID() = %q", a.RaceID())
	}
	if again := r.Get("LIVE"); again != a {
		t.Error("Get() spawned a second actor for the same race")
	}

	r.Get("training")
	ids := r.RaceIDs()
	if len(ids) != 2 || ids[0] != "LIVE" || ids[1] != "training" {
		t.Errorf("RaceIDs() = %v", ids)
	}
}

func TestRegistryConcurrentGet(t *testing.T) {
	r := newTestRegistry(t)

	var wg sync.WaitGroup
	actors := make([]*Actor, 16)
	for i := range actors {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			actors[n] = r.Get("LIVE")
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(actors); i++ {
		if actors[i] != actors[0] {
			t.Fatal("concurrent Get() produced distinct actors for one race")
		}
	}
	if got := len(r.RaceIDs()); got != 1 {
		t.Errorf("registry tracks %d races, want 1", got)
	}
}

func TestRegistryFullSnapshot(t *testing.T) {
	r := newTestRegistry(t)

	a := r.Get("LIVE")
	a.now = func() time.Time { return time.UnixMilli(2000) }
	if err := a.Update(testUpdate("LIVE", "B1", 1000)); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	msg, err := r.FullSnapshot("LIVE")
	if err != nil {
		t.Fatalf("FullSnapshot() error = %v", err)
	}
	if msg.Type != "full" {
		t.Errorf("Type = %q", msg.Type)
	}
	if len(msg.Boats) != 1 {
		t.Errorf("Boats has %d entries, want 1", len(msg.Boats))
	}

	// Unknown races yield an empty, non-null fleet.
	msg, err = r.FullSnapshot("nowhere")
	if err != nil {
		t.Fatalf("FullSnapshot(nowhere) error = %v", err)
	}
	if msg.Boats == nil || len(msg.Boats) != 0 {
		t.Errorf("unknown race snapshot = %v, want empty map", msg.Boats)
	}
}
