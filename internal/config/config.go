// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

// Package config defines FinnTrack's configuration structure and its
// layered koanf-based loader (defaults < YAML file < environment).
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the FinnTrack server.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	Liveness LivenessConfig `koanf:"liveness"`
	Course   CourseConfig   `koanf:"course"`
	Ingest   IngestConfig   `koanf:"ingest"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// CORSOrigins lists allowed origins for browser clients. The
	// tracker pages are served from arbitrary hosts, so the default
	// is wide open.
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs requests per RateLimitWindow per client IP.
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// StorageConfig holds Badger settings for the durable state and
// history stores.
type StorageConfig struct {
	// Path is the Badger data directory. Empty with InMemory set
	// runs fully in memory (tests).
	Path     string `koanf:"path"`
	InMemory bool   `koanf:"in_memory"`

	// GCInterval is how often value-log garbage collection runs.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// LivenessConfig holds the two independent liveness windows. The
// snapshot filter and the broadcast active flag use different horizons
// on purpose; they are tuned separately.
type LivenessConfig struct {
	SnapshotWindow  time.Duration `koanf:"snapshot_window"`
	BroadcastWindow time.Duration `koanf:"broadcast_window"`
}

// CourseConfig holds the course-detection thresholds.
type CourseConfig struct {
	// StartSpeedKnots is the speed a boat must exceed to count as
	// "moving" for start-time detection.
	StartSpeedKnots float64 `koanf:"start_speed_knots"`

	// PrestartWindow is how far before the detected start each boat's
	// position is sampled for the start-line estimate.
	PrestartWindow time.Duration `koanf:"prestart_window"`

	// WindWindow is the post-start span used for the wind estimate.
	WindWindow time.Duration `koanf:"wind_window"`

	// WindMinSpeedKnots filters drifting boats out of the wind estimate.
	WindMinSpeedKnots float64 `koanf:"wind_min_speed_knots"`

	// TurnThresholdDeg is the heading change between consecutive
	// frames that counts as a mark rounding.
	TurnThresholdDeg float64 `koanf:"turn_threshold_deg"`

	// MarkClusterRadiusM is the clustering radius for candidate
	// mark positions, in meters.
	MarkClusterRadiusM float64 `koanf:"mark_cluster_radius_m"`
}

// IngestConfig holds position-ingest settings.
type IngestConfig struct {
	// SharedKey guards the write endpoints when non-empty. Trackers
	// send it as a Bearer token or ?key= query parameter.
	SharedKey string `koanf:"shared_key"`

	// DefaultRaceID is assigned to plain /update reports that omit a
	// raceId. Trackers left running between races land here.
	DefaultRaceID string `koanf:"default_race_id"`

	// TraccarRaceID is assigned to Traccar/OsmAnd reports, which have
	// no race field at all.
	TraccarRaceID string `koanf:"traccar_race_id"`

	// PerBoatRate/PerBoatBurst bound the sustained and burst report
	// rate per boat (token bucket).
	PerBoatRate  float64 `koanf:"per_boat_rate"`
	PerBoatBurst int     `koanf:"per_boat_burst"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for values that would misbehave at
// runtime rather than fail fast.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if !c.Storage.InMemory && c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required unless storage.in_memory is set")
	}
	if c.Liveness.SnapshotWindow <= 0 {
		return fmt.Errorf("liveness.snapshot_window must be positive, got %s", c.Liveness.SnapshotWindow)
	}
	if c.Liveness.BroadcastWindow <= 0 {
		return fmt.Errorf("liveness.broadcast_window must be positive, got %s", c.Liveness.BroadcastWindow)
	}
	if c.Course.StartSpeedKnots < 0 {
		return fmt.Errorf("course.start_speed_knots must be non-negative, got %g", c.Course.StartSpeedKnots)
	}
	if c.Course.TurnThresholdDeg <= 0 || c.Course.TurnThresholdDeg > 180 {
		return fmt.Errorf("course.turn_threshold_deg must be in (0, 180], got %g", c.Course.TurnThresholdDeg)
	}
	if c.Course.MarkClusterRadiusM <= 0 {
		return fmt.Errorf("course.mark_cluster_radius_m must be positive, got %g", c.Course.MarkClusterRadiusM)
	}
	if c.Ingest.PerBoatRate <= 0 {
		return fmt.Errorf("ingest.per_boat_rate must be positive, got %g", c.Ingest.PerBoatRate)
	}
	if c.Ingest.PerBoatBurst < 1 {
		return fmt.Errorf("ingest.per_boat_burst must be at least 1, got %d", c.Ingest.PerBoatBurst)
	}
	return nil
}
