// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

package services

import (
	"context"
	"time"

	"github.com/Saucyfinn/finntrack/internal/logging"
)

// LimiterPruner matches the ingest rate limiter's Prune method.
// Satisfied by *ingest.BoatLimiter.
type LimiterPruner interface {
	Prune() int
}

// PruneService periodically evicts idle per-boat rate limiter entries.
// Boats that stop reporting (race over, tracker off) would otherwise
// hold a limiter forever.
type PruneService struct {
	limiter  LimiterPruner
	interval time.Duration
	name     string
}

// NewPruneService creates a new limiter prune service.
func NewPruneService(limiter LimiterPruner, interval time.Duration) *PruneService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &PruneService{limiter: limiter, interval: interval, name: "limiter-prune"}
}

// Serve implements suture.Service. Blocks until ctx is canceled.
func (s *PruneService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if evicted := s.limiter.Prune(); evicted > 0 {
				logging.Debug().Int("evicted", evicted).Msg("Pruned idle boat limiters")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (s *PruneService) String() string {
	return s.name
}
