// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	if cfg.Liveness.SnapshotWindow != 300*time.Second {
		t.Errorf("snapshot window = %s, want 300s", cfg.Liveness.SnapshotWindow)
	}
	if cfg.Liveness.BroadcastWindow != 120*time.Second {
		t.Errorf("broadcast window = %s, want 120s", cfg.Liveness.BroadcastWindow)
	}
	if cfg.Course.StartSpeedKnots != 2.5 {
		t.Errorf("start speed = %g, want 2.5", cfg.Course.StartSpeedKnots)
	}
	if cfg.Course.MarkClusterRadiusM != 40 {
		t.Errorf("mark cluster radius = %g, want 40", cfg.Course.MarkClusterRadiusM)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too big", func(c *Config) { c.Server.Port = 70000 }},
		{"no storage path", func(c *Config) { c.Storage.Path = ""; c.Storage.InMemory = false }},
		{"zero snapshot window", func(c *Config) { c.Liveness.SnapshotWindow = 0 }},
		{"zero broadcast window", func(c *Config) { c.Liveness.BroadcastWindow = 0 }},
		{"negative start speed", func(c *Config) { c.Course.StartSpeedKnots = -1 }},
		{"turn threshold over 180", func(c *Config) { c.Course.TurnThresholdDeg = 181 }},
		{"zero mark radius", func(c *Config) { c.Course.MarkClusterRadiusM = 0 }},
		{"zero boat rate", func(c *Config) { c.Ingest.PerBoatRate = 0 }},
		{"zero boat burst", func(c *Config) { c.Ingest.PerBoatBurst = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestInMemoryNeedsNoPath(t *testing.T) {
	cfg := defaultConfig()
	cfg.Storage.Path = ""
	cfg.Storage.InMemory = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("in-memory storage should not require a path: %v", err)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("INGEST_KEY", "secret-key")
	t.Setenv("SNAPSHOT_WINDOW", "600s")
	t.Setenv("STORAGE_IN_MEMORY", "true")
	t.Setenv("DATA_PATH", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000 from env", cfg.Server.Port)
	}
	if cfg.Ingest.SharedKey != "secret-key" {
		t.Errorf("shared key = %q, want env value", cfg.Ingest.SharedKey)
	}
	if cfg.Liveness.SnapshotWindow != 600*time.Second {
		t.Errorf("snapshot window = %s, want 600s from env", cfg.Liveness.SnapshotWindow)
	}
}

func TestLoadIgnoresUnmappedEnv(t *testing.T) {
	t.Setenv("RANDOM_UNRELATED_VAR", "surprise")
	t.Setenv("STORAGE_IN_MEMORY", "true")

	if _, err := Load(); err != nil {
		t.Fatalf("unmapped env vars must not break loading: %v", err)
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 8080
liveness:
  broadcast_window: 90s
storage:
  in_memory: true
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080 from file", cfg.Server.Port)
	}
	if cfg.Liveness.BroadcastWindow != 90*time.Second {
		t.Errorf("broadcast window = %s, want 90s from file", cfg.Liveness.BroadcastWindow)
	}
	// Defaults survive where the file is silent.
	if cfg.Course.TurnThresholdDeg != 60 {
		t.Errorf("turn threshold = %g, want default 60", cfg.Course.TurnThresholdDeg)
	}
}

func TestEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 8080
storage:
  in_memory: true
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("HTTP_PORT", "9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want env override 9999", cfg.Server.Port)
	}
}
