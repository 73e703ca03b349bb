// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

package models

// RaceSummary is one entry in the race catalog served to the UI
// dropdown. The catalog offers IDs and labels only; it never creates
// race data.
type RaceSummary struct {
	RaceID string `json:"raceId"`
	Title  string `json:"title"`
	Series string `json:"series"`
	Year   int    `json:"year"`
	RaceNo int    `json:"raceNo"`
}

// RaceList wraps the race catalog response.
type RaceList struct {
	Races []RaceSummary `json:"races"`
}

// ReplayResponse is the full chronological history of a race, one
// ascending-by-timestamp track per boat.
type ReplayResponse struct {
	RaceID string              `json:"raceId"`
	Boats  map[string][]Update `json:"boats"`
}

// ClearResponse reports the result of wiping a race's live state.
// History records are preserved; only the latest-per-boat view is reset.
type ClearResponse struct {
	RaceID  string `json:"raceId"`
	Cleared int    `json:"cleared"`
}

// ArchiveMeta describes one archived race. Stored alongside the
// per-boat track files when a race is archived.
type ArchiveMeta struct {
	RaceID     string   `json:"raceId"`
	ArchivedAt int64    `json:"archivedAt"`
	BoatIDs    []string `json:"boatIds"`
	Frames     int      `json:"frames"`
}
