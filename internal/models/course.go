// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

package models

// LatLng is a single WGS84 coordinate.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Line is a two-endpoint line segment on the water, used for the
// inferred start and finish lines.
type Line struct {
	A LatLng `json:"a"`
	B LatLng `json:"b"`
}

// CourseFeatures is the racecourse geometry inferred from a race's
// replayed tracks. It is derived on demand and never persisted by the
// core; nil pointer fields mean the feature could not be detected from
// the available data.
//
// Example JSON:
//
//	{
//	  "startTimeMs": 1767115200000,
//	  "startLine": {"a": {"lat": -27.46, "lon": 153.19}, "b": {"lat": -27.461, "lon": 153.192}},
//	  "finishLine": null,
//	  "marks": [{"lat": -27.45, "lon": 153.20}],
//	  "coursePolygon": [{"lat": -27.46, "lon": 153.19}, ...],
//	  "windDirectionDeg": 45.5
//	}
type CourseFeatures struct {
	StartTimeMs      *int64   `json:"startTimeMs"`
	StartLine        *Line    `json:"startLine"`
	FinishLine       *Line    `json:"finishLine"`
	Marks            []LatLng `json:"marks"`
	CoursePolygon    []LatLng `json:"coursePolygon"`
	WindDirectionDeg *float64 `json:"windDirectionDeg"`
}
