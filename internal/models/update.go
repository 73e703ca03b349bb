// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

package models

import "math"

// Update is the canonical position report produced by the ingest
// normalization boundary. Every adapter (plain JSON, Traccar, OwnTracks)
// resolves its own field aliases into this one struct; nothing downstream
// re-interprets ambiguous field names.
//
// Fields:
//   - RaceID/BoatID: non-empty identifiers; BoatID is unique within a race
//   - Lat/Lon: WGS84 decimal degrees, finite, lat in [-90,90], lon in [-180,180]
//   - SpeedKnots: speed over ground in knots
//   - HeadingDeg: course over ground in degrees true [0, 360)
//   - TimestampMs: epoch milliseconds UTC (normalized; never seconds)
//
// Example JSON:
//
//	{
//	  "raceId": "AUSNATS-2026-R01",
//	  "boatId": "AUS-261",
//	  "lat": -27.46,
//	  "lon": 153.19,
//	  "speed": 5.2,
//	  "heading": 90,
//	  "timestamp": 1767115200000
//	}
type Update struct {
	RaceID      string  `json:"raceId"      validate:"required,max=128"`
	BoatID      string  `json:"boatId"      validate:"required,max=128"`
	Lat         float64 `json:"lat"         validate:"gte=-90,lte=90"`
	Lon         float64 `json:"lon"         validate:"gte=-180,lte=180"`
	SpeedKnots  float64 `json:"speed"`
	HeadingDeg  float64 `json:"heading"`
	TimestampMs int64   `json:"timestamp"`

	// Optional display metadata, passed through unmodified.
	BoatName string `json:"boatName,omitempty" validate:"max=128"`
	Nation   string `json:"nation,omitempty"   validate:"max=8"`
}

// HasFinitePosition reports whether lat/lon are finite numbers.
// NaN and Inf coordinates are rejected at the actor boundary; the
// validator's range tags alone would pass NaN through.
func (u *Update) HasFinitePosition() bool {
	return !math.IsNaN(u.Lat) && !math.IsInf(u.Lat, 0) &&
		!math.IsNaN(u.Lon) && !math.IsInf(u.Lon, 0)
}

// BoatState is a boat's latest frame plus its liveness flag, owned
// exclusively by the boat's race actor. Active is derived at read time
// (snapshot or broadcast), never persisted.
type BoatState struct {
	Update
	Active bool `json:"active"`
}
