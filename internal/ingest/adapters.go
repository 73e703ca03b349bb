// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

package ingest

import (
	"net/url"
	"strconv"

	"github.com/Saucyfinn/finntrack/internal/models"
)

// FromTraccar normalizes a Traccar/OsmAnd report delivered as URL
// query parameters (GET) or form values (POST); both carry the same
// field set. OsmAnd sends bearing, Traccar proper sends course; the
// timestamp is epoch seconds or milliseconds. Devices report a bare
// numeric id, so the boat gets a "Device <id>" display name unless the
// payload names it. Defaults to the configured Traccar race.
func (n *Normalizer) FromTraccar(values url.Values) (models.Update, error) {
	u := models.Update{
		RaceID: values.Get("raceId"),
		BoatID: firstValue(values, "id", "uniqueId", "deviceid"),
	}
	if u.RaceID == "" {
		u.RaceID = n.cfg.TraccarRaceID
	}
	if u.BoatID == "" {
		return models.Update{}, ErrMissingBoatID
	}

	lat, latErr := strconv.ParseFloat(values.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(values.Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		return models.Update{}, ErrInvalidLatLon
	}
	u.Lat, u.Lon = lat, lon
	if !u.HasFinitePosition() {
		return models.Update{}, ErrInvalidLatLon
	}

	u.SpeedKnots = parseFloatValue(values, "speed")
	u.HeadingDeg = parseFloatValue(values, "bearing", "course", "heading")
	u.TimestampMs = n.timestampFromValues(values, "timestamp")
	u.BoatName = values.Get("boatName")
	if u.BoatName == "" {
		u.BoatName = "Device " + u.BoatID
	}

	return u, nil
}

// FromQuery normalizes the legacy GET /update endpoint, which the app
// used before it switched to JSON posts. Field names match the JSON
// aliases but arrive as query parameters.
func (n *Normalizer) FromQuery(values url.Values) (models.Update, error) {
	u := models.Update{
		RaceID: values.Get("raceId"),
		BoatID: firstValue(values, "boatId", "id"),
	}
	if u.RaceID == "" {
		u.RaceID = n.cfg.TraccarRaceID
	}
	if u.BoatID == "" {
		return models.Update{}, ErrMissingBoatID
	}

	lat, latErr := strconv.ParseFloat(values.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(values.Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		return models.Update{}, ErrInvalidLatLon
	}
	u.Lat, u.Lon = lat, lon
	if !u.HasFinitePosition() {
		return models.Update{}, ErrInvalidLatLon
	}

	u.SpeedKnots = parseFloatValue(values, "sog", "speed")
	u.HeadingDeg = parseFloatValue(values, "cog", "heading")
	u.TimestampMs = n.timestampFromValues(values, "t", "timestamp")
	u.BoatName = values.Get("boatName")
	u.Nation = values.Get("nation")

	return u, nil
}

// timestampFromValues parses the first present timestamp parameter,
// applying the same seconds heuristic as JSON ingest. Missing or
// unparseable values fall back to the current time.
func (n *Normalizer) timestampFromValues(values url.Values, keys ...string) int64 {
	for _, key := range keys {
		raw := values.Get(key)
		if raw == "" {
			continue
		}
		if num, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return scaleTimestamp(num)
		}
	}
	return n.now().UnixMilli()
}

func firstValue(values url.Values, keys ...string) string {
	for _, key := range keys {
		if v := values.Get(key); v != "" {
			return v
		}
	}
	return ""
}

func parseFloatValue(values url.Values, keys ...string) float64 {
	for _, key := range keys {
		raw := values.Get(key)
		if raw == "" {
			continue
		}
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
			return parsed
		}
	}
	return 0
}
