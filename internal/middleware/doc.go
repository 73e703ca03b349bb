// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

// Package middleware provides HTTP middleware shared by all routes:
// request ID propagation, Prometheus instrumentation, and gzip
// compression for the track export endpoints.
package middleware
