// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

// Package ingest normalizes position reports from heterogeneous
// trackers (FinnTrack app JSON, Traccar/OsmAnd devices, OwnTracks
// phones) into the canonical models.Update. Field aliasing and the
// seconds-versus-milliseconds timestamp heuristic are resolved here,
// once; nothing downstream re-interprets ambiguous names.
package ingest

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/Saucyfinn/finntrack/internal/config"
	"github.com/Saucyfinn/finntrack/internal/models"
)

// Normalization errors.
var (
	ErrMissingBoatID  = errors.New("ingest: missing boatId")
	ErrMissingRaceID  = errors.New("ingest: missing raceId")
	ErrInvalidLatLon  = errors.New("ingest: missing or invalid lat/lon coordinates")
	ErrInvalidPayload = errors.New("ingest: invalid payload")
)

// secondsThreshold is the year-2100 epoch in seconds. Timestamp values
// below it are taken to be seconds and scaled to milliseconds; values
// at or above are already milliseconds.
const secondsThreshold = 4_102_444_800

// kmhPerKnot converts OwnTracks velocities (km/h) to knots.
const kmhPerKnot = 1.852

// Normalizer builds canonical updates from raw tracker payloads.
type Normalizer struct {
	cfg config.IngestConfig
	now func() time.Time
}

// NewNormalizer creates a normalizer with the ingest defaults.
func NewNormalizer(cfg config.IngestConfig) *Normalizer {
	return &Normalizer{cfg: cfg, now: time.Now}
}

// FromJSON normalizes a decoded JSON body from the FinnTrack app or a
// Traccar client posting JSON. Aliases resolved:
//
//	boatId | id | uniqueId
//	lat | latitude, lon | lng | longitude
//	speed | sog
//	heading | cog | course | bearing
//	timestamp | ts | t (seconds or milliseconds, or RFC3339 string)
//
// A missing raceId falls back to the configured default so trackers
// left running between races still land somewhere visible.
func (n *Normalizer) FromJSON(raw map[string]interface{}) (models.Update, error) {
	u := models.Update{
		RaceID: firstString(raw, "raceId"),
		BoatID: firstString(raw, "boatId", "id", "uniqueId"),
	}
	if u.RaceID == "" {
		u.RaceID = n.cfg.DefaultRaceID
	}
	if u.BoatID == "" {
		return models.Update{}, ErrMissingBoatID
	}

	lat, latOK := firstNumber(raw, "lat", "latitude")
	lon, lonOK := firstNumber(raw, "lon", "lng", "longitude")
	if !latOK || !lonOK {
		return models.Update{}, ErrInvalidLatLon
	}
	u.Lat, u.Lon = lat, lon
	if !u.HasFinitePosition() {
		return models.Update{}, ErrInvalidLatLon
	}

	if speed, ok := firstNumber(raw, "speed", "sog"); ok {
		u.SpeedKnots = speed
	} else if vel, ok := firstNumber(raw, "vel"); ok {
		// vel only ever comes from OwnTracks-shaped payloads, in km/h.
		u.SpeedKnots = vel / kmhPerKnot
	}
	u.HeadingDeg, _ = firstNumber(raw, "heading", "cog", "course", "bearing")
	u.TimestampMs = n.normalizeTimestamp(raw, "timestamp", "ts", "t")
	u.BoatName = firstString(raw, "boatName")
	u.Nation = firstString(raw, "nation")

	return u, nil
}

// FromOwnTracks normalizes an OwnTracks location publish. OwnTracks
// uses tid for the device, tst for epoch seconds, and vel for km/h.
// Non-location message types are rejected.
func (n *Normalizer) FromOwnTracks(raw map[string]interface{}) (models.Update, error) {
	if msgType := firstString(raw, "_type"); msgType != "" && msgType != "location" {
		return models.Update{}, fmt.Errorf("%w: unsupported OwnTracks message type %q", ErrInvalidPayload, msgType)
	}

	u := models.Update{
		RaceID: firstString(raw, "raceId"),
		BoatID: firstString(raw, "boatId", "tid", "id"),
	}
	if u.RaceID == "" {
		u.RaceID = n.cfg.DefaultRaceID
	}
	if u.BoatID == "" {
		return models.Update{}, ErrMissingBoatID
	}

	lat, latOK := firstNumber(raw, "lat")
	lon, lonOK := firstNumber(raw, "lon")
	if !latOK || !lonOK {
		return models.Update{}, ErrInvalidLatLon
	}
	u.Lat, u.Lon = lat, lon
	if !u.HasFinitePosition() {
		return models.Update{}, ErrInvalidLatLon
	}

	if vel, ok := firstNumber(raw, "vel"); ok {
		u.SpeedKnots = vel / kmhPerKnot
	}
	u.HeadingDeg, _ = firstNumber(raw, "cog")
	u.TimestampMs = n.normalizeTimestamp(raw, "tst")

	return u, nil
}

// normalizeTimestamp extracts the first present timestamp alias and
// scales it to epoch milliseconds. Accepts raw numbers (seconds or
// milliseconds per the heuristic), numeric strings, and RFC3339
// strings. Absent or unparseable values fall back to the current time,
// matching tracker firmware that omits clocks entirely.
func (n *Normalizer) normalizeTimestamp(raw map[string]interface{}, keys ...string) int64 {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			if !math.IsNaN(t) && !math.IsInf(t, 0) {
				return scaleTimestamp(int64(t))
			}
		case string:
			if num, err := strconv.ParseInt(t, 10, 64); err == nil {
				return scaleTimestamp(num)
			}
			if parsed, err := time.Parse(time.RFC3339, t); err == nil {
				return parsed.UnixMilli()
			}
		}
	}
	return n.now().UnixMilli()
}

// scaleTimestamp applies the seconds-versus-milliseconds heuristic.
func scaleTimestamp(v int64) int64 {
	if v < secondsThreshold {
		return v * 1000
	}
	return v
}

// firstString returns the first present key rendered as a string.
// Numeric IDs (Traccar sends device IDs as numbers) are stringified.
func firstString(raw map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if t != "" {
				return t
			}
		case float64:
			if t == math.Trunc(t) {
				return strconv.FormatInt(int64(t), 10)
			}
			return strconv.FormatFloat(t, 'f', -1, 64)
		}
	}
	return ""
}

// firstNumber returns the first present key as a float64. Numeric
// strings are accepted; anything else is skipped.
func firstNumber(raw map[string]interface{}, keys ...string) (float64, bool) {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			return t, true
		case string:
			if parsed, err := strconv.ParseFloat(t, 64); err == nil {
				return parsed, true
			}
		}
	}
	return 0, false
}
