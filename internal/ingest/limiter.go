// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

package ingest

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// BoatLimiter rate-limits position reports per boat. GPS trackers
// configured with too-aggressive reporting intervals (or stuck in a
// retry loop) would otherwise flood the race actor and the history
// log; excess reports are dropped, not queued, because only the most
// recent position matters for live display.
type BoatLimiter struct {
	mu       sync.Mutex
	limiters map[string]*boatEntry
	rps      rate.Limit
	burst    int
}

type boatEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// idleEviction is how long an unseen boat's limiter survives before
// the prune pass reclaims it.
const idleEviction = 10 * time.Minute

// NewBoatLimiter creates a limiter allowing rps reports per second
// with the given burst per boat.
func NewBoatLimiter(rps float64, burst int) *BoatLimiter {
	return &BoatLimiter{
		limiters: make(map[string]*boatEntry),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// Allow reports whether a position report from the boat should be
// accepted. Keys combine race and boat so the same tracker feeding two
// races gets independent budgets.
func (b *BoatLimiter) Allow(raceID, boatID string) bool {
	key := raceID + "\x00" + boatID

	b.mu.Lock()
	entry, ok := b.limiters[key]
	if !ok {
		entry = &boatEntry{limiter: rate.NewLimiter(b.rps, b.burst)}
		b.limiters[key] = entry
	}
	entry.lastSeen = time.Now()
	b.mu.Unlock()

	return entry.limiter.Allow()
}

// Prune removes limiters for boats not seen within the eviction
// window and returns how many were removed. Called periodically by the
// maintenance service.
func (b *BoatLimiter) Prune() int {
	cutoff := time.Now().Add(-idleEviction)

	b.mu.Lock()
	defer b.mu.Unlock()

	removed := 0
	for key, entry := range b.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(b.limiters, key)
			removed++
		}
	}
	return removed
}

// Size returns the number of tracked limiters.
func (b *BoatLimiter) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.limiters)
}
