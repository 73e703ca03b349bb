// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

package storage

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"

	"github.com/Saucyfinn/finntrack/internal/logging"
	"github.com/Saucyfinn/finntrack/internal/metrics"
	"github.com/Saucyfinn/finntrack/internal/models"
)

// Key prefixes for durable race state.
const (
	statePrefix  = "state:"
	latestSuffix = ":latest"
)

// StateStore persists each race's latest-per-boat view so an actor can
// rehydrate after a restart without replaying the full history log.
// One writer per race (the race actor) is assumed; the store itself
// adds no cross-race coordination.
type StateStore struct {
	db *badger.DB
}

// NewStateStore creates a state store on the shared Badger handle.
func NewStateStore(db *badger.DB) *StateStore {
	return &StateStore{db: db}
}

func latestKey(raceID, boatID string) []byte {
	return []byte(statePrefix + raceID + ":boat:" + boatID + latestSuffix)
}

func boatSetKey(raceID string) []byte {
	return []byte(statePrefix + raceID + ":boatIds")
}

// PutLatest overwrites the boat's durable latest frame and registers
// the boat in the race's known-boat set, in one transaction.
func (s *StateStore) PutLatest(u models.Update) error {
	start := time.Now()
	defer func() { metrics.RecordStorageOp("put", time.Since(start)) }()

	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal latest frame: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(latestKey(u.RaceID, u.BoatID), data); err != nil {
			return fmt.Errorf("set latest: %w", err)
		}

		boatIDs, err := readBoatSet(txn, u.RaceID)
		if err != nil {
			return err
		}
		for _, id := range boatIDs {
			if id == u.BoatID {
				return nil // already registered
			}
		}
		boatIDs = append(boatIDs, u.BoatID)
		sort.Strings(boatIDs)

		setData, err := json.Marshal(boatIDs)
		if err != nil {
			return fmt.Errorf("marshal boat set: %w", err)
		}
		return txn.Set(boatSetKey(u.RaceID), setData)
	})
}

// GetLatest returns the boat's durable latest frame, or ErrNotFound.
func (s *StateStore) GetLatest(raceID, boatID string) (models.Update, error) {
	start := time.Now()
	defer func() { metrics.RecordStorageOp("get", time.Since(start)) }()

	var u models.Update
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(latestKey(raceID, boatID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("get latest: %w", err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &u)
		})
	})
	return u, err
}

// BoatIDs returns the race's known boat IDs. A race that has never
// seen an update yields an empty slice, not an error.
func (s *StateStore) BoatIDs(raceID string) ([]string, error) {
	start := time.Now()
	defer func() { metrics.RecordStorageOp("get", time.Since(start)) }()

	var boatIDs []string
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		boatIDs, err = readBoatSet(txn, raceID)
		return err
	})
	return boatIDs, err
}

// LoadLatest loads every known boat's latest frame for rehydration.
// Boats whose latest record is missing or corrupt are skipped.
func (s *StateStore) LoadLatest(raceID string) (map[string]models.Update, error) {
	boatIDs, err := s.BoatIDs(raceID)
	if err != nil {
		return nil, err
	}

	boats := make(map[string]models.Update, len(boatIDs))
	for _, boatID := range boatIDs {
		u, err := s.GetLatest(raceID, boatID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			logging.Warn().
				Err(err).
				Str("race_id", raceID).
				Str("boat_id", boatID).
				Msg("Skipping unreadable latest frame during rehydration")
			continue
		}
		boats[boatID] = u
	}
	return boats, nil
}

// ClearRace deletes the race's latest frames and boat set, returning
// the number of boats cleared. History records are untouched.
func (s *StateStore) ClearRace(raceID string) (int, error) {
	start := time.Now()
	defer func() { metrics.RecordStorageOp("delete", time.Since(start)) }()

	cleared := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)

		prefix := []byte(statePrefix + raceID + ":boat:")
		var keys [][]byte
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("delete latest: %w", err)
			}
			cleared++
		}

		if err := txn.Delete(boatSetKey(raceID)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete boat set: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return cleared, nil
}

// readBoatSet reads the race's boat set inside a transaction. Missing
// key means empty set.
func readBoatSet(txn *badger.Txn, raceID string) ([]string, error) {
	item, err := txn.Get(boatSetKey(raceID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get boat set: %w", err)
	}

	var boatIDs []string
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &boatIDs)
	})
	if err != nil {
		return nil, fmt.Errorf("unmarshal boat set: %w", err)
	}
	return boatIDs, nil
}
