// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

package services

import (
	"context"
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/Saucyfinn/finntrack/internal/storage"
)

// GCService runs Badger value-log garbage collection on an interval.
// History appends are write-heavy, so reclaiming dead value-log space
// matters on long-running trackers.
type GCService struct {
	db       *badger.DB
	interval time.Duration
	name     string
}

// NewGCService creates a new storage GC service.
func NewGCService(db *badger.DB, interval time.Duration) *GCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &GCService{db: db, interval: interval, name: "storage-gc"}
}

// Serve implements suture.Service. Blocks until ctx is canceled.
func (s *GCService) Serve(ctx context.Context) error {
	storage.RunGC(ctx, s.db, s.interval)
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logging.
func (s *GCService) String() string {
	return s.name
}
