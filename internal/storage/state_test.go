// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

package storage

import (
	"errors"
	"io"
	"testing"

	"github.com/dgraph-io/badger/v4"

	"github.com/Saucyfinn/finntrack/internal/config"
	"github.com/Saucyfinn/finntrack/internal/logging"
	"github.com/Saucyfinn/finntrack/internal/models"
)

func init() {
	logging.Init(logging.Config{Output: io.Discard})
}

func newTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := Open(config.StorageConfig{InMemory: true})
	if err != nil {
		t.Fatalf("open in-memory badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testUpdate(raceID, boatID string, ts int64) models.Update {
	return models.Update{
		RaceID:      raceID,
		BoatID:      boatID,
		Lat:         -27.46,
		Lon:         153.19,
		SpeedKnots:  5,
		HeadingDeg:  90,
		TimestampMs: ts,
	}
}

func TestPutGetLatest(t *testing.T) {
	store := NewStateStore(newTestDB(t))

	u := testUpdate("R1", "B1", 1000)
	if err := store.PutLatest(u); err != nil {
		t.Fatalf("PutLatest: %v", err)
	}

	got, err := store.GetLatest("R1", "B1")
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if got != u {
		t.Errorf("GetLatest = %+v, want %+v", got, u)
	}
}

func TestGetLatestNotFound(t *testing.T) {
	store := NewStateStore(newTestDB(t))

	_, err := store.GetLatest("R1", "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPutLatestOverwrites(t *testing.T) {
	store := NewStateStore(newTestDB(t))

	if err := store.PutLatest(testUpdate("R1", "B1", 1000)); err != nil {
		t.Fatalf("PutLatest: %v", err)
	}
	// A frame with an older timestamp still overwrites: last call wins.
	if err := store.PutLatest(testUpdate("R1", "B1", 500)); err != nil {
		t.Fatalf("PutLatest: %v", err)
	}

	got, err := store.GetLatest("R1", "B1")
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if got.TimestampMs != 500 {
		t.Errorf("timestamp = %d, want 500 (last write)", got.TimestampMs)
	}
}

func TestBoatIDsRegistration(t *testing.T) {
	store := NewStateStore(newTestDB(t))

	for _, boat := range []string{"B2", "B1", "B2", "B3"} {
		if err := store.PutLatest(testUpdate("R1", boat, 1000)); err != nil {
			t.Fatalf("PutLatest(%s): %v", boat, err)
		}
	}

	boatIDs, err := store.BoatIDs("R1")
	if err != nil {
		t.Fatalf("BoatIDs: %v", err)
	}
	want := []string{"B1", "B2", "B3"}
	if len(boatIDs) != len(want) {
		t.Fatalf("BoatIDs = %v, want %v", boatIDs, want)
	}
	for i := range want {
		if boatIDs[i] != want[i] {
			t.Errorf("BoatIDs[%d] = %q, want %q", i, boatIDs[i], want[i])
		}
	}
}

func TestBoatIDsEmptyRace(t *testing.T) {
	store := NewStateStore(newTestDB(t))

	boatIDs, err := store.BoatIDs("never-seen")
	if err != nil {
		t.Fatalf("BoatIDs: %v", err)
	}
	if len(boatIDs) != 0 {
		t.Errorf("expected empty set, got %v", boatIDs)
	}
}

func TestLoadLatest(t *testing.T) {
	store := NewStateStore(newTestDB(t))

	u1 := testUpdate("R1", "B1", 1000)
	u2 := testUpdate("R1", "B2", 2000)
	for _, u := range []models.Update{u1, u2} {
		if err := store.PutLatest(u); err != nil {
			t.Fatalf("PutLatest: %v", err)
		}
	}
	// Another race must not leak in.
	if err := store.PutLatest(testUpdate("R2", "B9", 3000)); err != nil {
		t.Fatalf("PutLatest: %v", err)
	}

	boats, err := store.LoadLatest("R1")
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if len(boats) != 2 {
		t.Fatalf("loaded %d boats, want 2", len(boats))
	}
	if boats["B1"] != u1 || boats["B2"] != u2 {
		t.Errorf("LoadLatest = %+v", boats)
	}
}

func TestClearRace(t *testing.T) {
	store := NewStateStore(newTestDB(t))

	for _, boat := range []string{"B1", "B2", "B3"} {
		if err := store.PutLatest(testUpdate("R1", boat, 1000)); err != nil {
			t.Fatalf("PutLatest: %v", err)
		}
	}

	cleared, err := store.ClearRace("R1")
	if err != nil {
		t.Fatalf("ClearRace: %v", err)
	}
	if cleared != 3 {
		t.Errorf("cleared = %d, want 3", cleared)
	}

	boatIDs, err := store.BoatIDs("R1")
	if err != nil {
		t.Fatalf("BoatIDs after clear: %v", err)
	}
	if len(boatIDs) != 0 {
		t.Errorf("boat set should be empty after clear, got %v", boatIDs)
	}
	if _, err := store.GetLatest("R1", "B1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("latest frame should be gone after clear, got %v", err)
	}
}

func TestClearRaceEmpty(t *testing.T) {
	store := NewStateStore(newTestDB(t))

	cleared, err := store.ClearRace("empty")
	if err != nil {
		t.Fatalf("ClearRace: %v", err)
	}
	if cleared != 0 {
		t.Errorf("cleared = %d, want 0", cleared)
	}
}
