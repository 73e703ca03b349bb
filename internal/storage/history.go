// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

package storage

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/Saucyfinn/finntrack/internal/logging"
	"github.com/Saucyfinn/finntrack/internal/metrics"
	"github.com/Saucyfinn/finntrack/internal/models"
)

// History key layout: race:<raceId>:boat:<boatId>:ts:<timestampMs>
const (
	historyPrefix = "race:"
	tsSeparator   = ":ts:"
)

// HistoryStore is the append-only position log. Records are immutable;
// a duplicate (race, boat, timestamp) key is last-write-wins, which is
// idempotent for re-sent frames.
//
// Appends run through a circuit breaker so a failing disk degrades the
// live feed to memory-only instead of stalling every update.
type HistoryStore struct {
	db      *badger.DB
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// NewHistoryStore creates a history store on the shared Badger handle.
func NewHistoryStore(db *badger.DB) *HistoryStore {
	settings := gobreaker.Settings{
		Name:    "history-append",
		Timeout: 15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.HistoryBreakerState.Set(float64(breakerStateValue(to)))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("History breaker state changed")
		},
	}

	return &HistoryStore{
		db:      db,
		breaker: gobreaker.NewCircuitBreaker[struct{}](settings),
	}
}

func historyKey(raceID, boatID string, timestampMs int64) []byte {
	return []byte(historyPrefix + raceID + ":boat:" + boatID + tsSeparator + strconv.FormatInt(timestampMs, 10))
}

// Append writes one immutable history record.
func (s *HistoryStore) Append(u models.Update) error {
	start := time.Now()
	defer func() { metrics.RecordStorageOp("put", time.Since(start)) }()

	_, err := s.breaker.Execute(func() (struct{}, error) {
		data, err := json.Marshal(u)
		if err != nil {
			return struct{}{}, fmt.Errorf("marshal history record: %w", err)
		}
		err = s.db.Update(func(txn *badger.Txn) error {
			return txn.Set(historyKey(u.RaceID, u.BoatID, u.TimestampMs), data)
		})
		if err != nil {
			return struct{}{}, fmt.Errorf("append history record: %w", err)
		}
		return struct{}{}, nil
	})

	metrics.RecordHistoryAppend(err)
	return err
}

// Replay returns every boat's full history for a race, each track
// sorted ascending by timestamp. Append order does not matter; the
// sort here is what establishes chronology. Corrupt records are
// skipped, never fatal.
//
// Boats are discovered from the history keys themselves, so replay
// still works after a clear has wiped the live boat set.
func (s *HistoryStore) Replay(raceID string) (map[string][]models.Update, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStorageOp("scan", time.Since(start))
		metrics.ReplayDuration.Observe(time.Since(start).Seconds())
	}()

	boats := make(map[string][]models.Update)
	skipped := 0

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(historyPrefix + raceID + ":boat:")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()

			boatID, ok := boatIDFromKey(string(item.Key()), raceID)
			if !ok {
				skipped++
				continue
			}

			var u models.Update
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &u)
			})
			if err != nil {
				skipped++
				continue
			}

			boats[boatID] = append(boats[boatID], u)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("replay race %q: %w", raceID, err)
	}

	if skipped > 0 {
		logging.Warn().
			Str("race_id", raceID).
			Int("skipped", skipped).
			Msg("Skipped corrupt history records during replay")
	}

	for boatID := range boats {
		track := boats[boatID]
		sort.Slice(track, func(i, j int) bool {
			return track[i].TimestampMs < track[j].TimestampMs
		})
		boats[boatID] = track
	}

	return boats, nil
}

// boatIDFromKey extracts the boat ID from a history key. Boat IDs may
// themselves contain colons, so the split anchors on the final ":ts:"
// separator.
func boatIDFromKey(key, raceID string) (string, bool) {
	rest, ok := strings.CutPrefix(key, historyPrefix+raceID+":boat:")
	if !ok {
		return "", false
	}
	idx := strings.LastIndex(rest, tsSeparator)
	if idx <= 0 {
		return "", false
	}
	return rest[:idx], true
}

// breakerStateValue maps breaker states to gauge values.
func breakerStateValue(s gobreaker.State) int {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
