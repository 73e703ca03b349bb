// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

// Package storage provides the Badger-backed durable stores: the
// latest-per-boat race state snapshots and the append-only position
// history log.
//
// Key layout (one shared database hosts every race):
//
//	state:<raceId>:boat:<boatId>:latest   latest frame, overwritten in place
//	state:<raceId>:boatIds                JSON array of known boat IDs
//	race:<raceId>:boat:<boatId>:ts:<ms>   history record, never overwritten
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/Saucyfinn/finntrack/internal/config"
	"github.com/Saucyfinn/finntrack/internal/logging"
)

// ErrNotFound is returned when a requested key does not exist.
var ErrNotFound = errors.New("storage: key not found")

// Open opens the Badger database per the storage configuration.
// The caller owns the returned handle and must Close it on shutdown.
func Open(cfg config.StorageConfig) (*badger.DB, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithLogger(badgerLogger{})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", cfg.Path, err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Msg("Storage opened")

	return db, nil
}

// RunGC runs Badger value-log garbage collection on a fixed interval
// until ctx is cancelled. Badger returns ErrNoRewrite when there is
// nothing to collect; that is the steady state, not a failure.
func RunGC(ctx context.Context, db *badger.DB, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				if err := db.RunValueLogGC(0.5); err != nil {
					break
				}
			}
		}
	}
}

// badgerLogger routes Badger's internal logging through zerolog.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	logging.Error().Msgf("badger: "+format, args...)
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	logging.Warn().Msgf("badger: "+format, args...)
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	logging.Debug().Msgf("badger: "+format, args...)
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	logging.Trace().Msgf("badger: "+format, args...)
}
