// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

// Package archive snapshots a race's full replay into durable
// object-style records so a finished regatta can be served long after
// its live history has been compacted away. Layout mirrors an object
// store: one meta record plus one track record per boat under the
// race's prefix.
package archive

import (
	"errors"
	"fmt"
	"sort"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/Saucyfinn/finntrack/internal/logging"
	"github.com/Saucyfinn/finntrack/internal/metrics"
	"github.com/Saucyfinn/finntrack/internal/models"
	"github.com/Saucyfinn/finntrack/internal/storage"
)

// ErrNotFound is returned when a race has no archive.
var ErrNotFound = errors.New("archive: not found")

// Archived response payload for load.
type Archived struct {
	RaceID string                     `json:"raceId"`
	Meta   models.ArchiveMeta         `json:"meta"`
	Boats  map[string][]models.Update `json:"boats"`
}

// Store reads and writes race archives.
type Store struct {
	db      *badger.DB
	history *storage.HistoryStore
	now     func() time.Time
}

// NewStore creates an archive store over the shared database.
func NewStore(db *badger.DB, history *storage.HistoryStore) *Store {
	return &Store{db: db, history: history, now: time.Now}
}

func metaKey(raceID string) []byte {
	return []byte("archive:" + raceID + ":meta")
}

func trackKey(raceID, boatID string) []byte {
	return []byte("archive:" + raceID + ":boat:" + boatID)
}

// Save snapshots the race's full replay into the archive, overwriting
// any previous archive for the race. Returns the meta record written.
func (s *Store) Save(raceID string) (models.ArchiveMeta, error) {
	start := time.Now()
	boats, err := s.history.Replay(raceID)
	if err != nil {
		metrics.RecordArchiveOperation("save", err)
		return models.ArchiveMeta{}, fmt.Errorf("replaying %s for archive: %w", raceID, err)
	}

	boatIDs := make([]string, 0, len(boats))
	frames := 0
	for boatID, track := range boats {
		boatIDs = append(boatIDs, boatID)
		frames += len(track)
	}
	sort.Strings(boatIDs)

	meta := models.ArchiveMeta{
		RaceID:     raceID,
		ArchivedAt: s.now().UnixMilli(),
		BoatIDs:    boatIDs,
		Frames:     frames,
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		metaBytes, merr := json.Marshal(meta)
		if merr != nil {
			return merr
		}
		if serr := txn.Set(metaKey(raceID), metaBytes); serr != nil {
			return serr
		}
		for _, boatID := range boatIDs {
			trackBytes, merr := json.Marshal(boats[boatID])
			if merr != nil {
				return merr
			}
			if serr := txn.Set(trackKey(raceID, boatID), trackBytes); serr != nil {
				return serr
			}
		}
		return nil
	})
	metrics.RecordArchiveOperation("save", err)
	if err != nil {
		return models.ArchiveMeta{}, fmt.Errorf("writing archive for %s: %w", raceID, err)
	}

	logging.Info().
		Str("race_id", raceID).
		Int("boats", len(boatIDs)).
		Int("frames", frames).
		Dur("duration", time.Since(start)).
		Msg("race archived")
	return meta, nil
}

// Load reads a race's archive back. A boat listed in meta whose track
// record is missing is skipped, mirroring replay's tolerance of
// partial data.
func (s *Store) Load(raceID string) (Archived, error) {
	out := Archived{RaceID: raceID, Boats: make(map[string][]models.Update)}

	err := s.db.View(func(txn *badger.Txn) error {
		item, gerr := txn.Get(metaKey(raceID))
		if gerr != nil {
			if errors.Is(gerr, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return gerr
		}
		if verr := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out.Meta)
		}); verr != nil {
			return verr
		}

		for _, boatID := range out.Meta.BoatIDs {
			item, gerr = txn.Get(trackKey(raceID, boatID))
			if gerr != nil {
				if errors.Is(gerr, badger.ErrKeyNotFound) {
					logging.Warn().
						Str("race_id", raceID).
						Str("boat_id", boatID).
						Msg("archived track missing, skipping boat")
					continue
				}
				return gerr
			}
			var track []models.Update
			if verr := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &track)
			}); verr != nil {
				return verr
			}
			out.Boats[boatID] = track
		}
		return nil
	})
	metrics.RecordArchiveOperation("load", err)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Archived{}, ErrNotFound
		}
		return Archived{}, fmt.Errorf("loading archive for %s: %w", raceID, err)
	}
	return out, nil
}
