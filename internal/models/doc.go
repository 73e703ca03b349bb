// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

// Package models defines the shared data types exchanged between the
// ingest adapters, race actors, broadcast hub, storage layer, and HTTP API.
//
// All timestamps are epoch milliseconds UTC. All positions are WGS84
// decimal degrees. Speeds are knots, headings degrees true [0, 360).
package models
