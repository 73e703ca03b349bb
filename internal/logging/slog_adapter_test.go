// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSlogHandlerWritesToZerolog(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	defer Init(DefaultConfig())

	logger := slog.New(NewSlogHandler())
	logger.Info("service started", "service", "broadcast-hub")

	out := buf.String()
	if !strings.Contains(out, `"service":"broadcast-hub"`) {
		t.Errorf("expected slog attr translated to zerolog field, got %q", out)
	}
	if !strings.Contains(out, "service started") {
		t.Errorf("expected message in output, got %q", out)
	}
}

func TestSlogHandlerLevels(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	defer Init(DefaultConfig())

	logger := slog.New(NewSlogHandler())
	logger.Warn("restarting")
	logger.Error("failed")

	out := buf.String()
	if !strings.Contains(out, `"level":"warn"`) {
		t.Errorf("expected warn level, got %q", out)
	}
	if !strings.Contains(out, `"level":"error"`) {
		t.Errorf("expected error level, got %q", out)
	}
}

func TestSlogHandlerWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))
	defer Init(DefaultConfig())

	logger := slog.New(NewSlogHandler()).With("component", "actor").WithGroup("race")
	logger.Info("update applied", "boat", "NZL-1")

	out := buf.String()
	if !strings.Contains(out, `"component":"actor"`) {
		t.Errorf("expected pre-set attr, got %q", out)
	}
	if !strings.Contains(out, `"race.boat":"NZL-1"`) {
		t.Errorf("expected group-prefixed attr, got %q", out)
	}
}

func TestSlogToZerologLevel(t *testing.T) {
	tests := []struct {
		in   slog.Level
		want zerolog.Level
	}{
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn, zerolog.WarnLevel},
		{slog.LevelError, zerolog.ErrorLevel},
	}
	for _, tt := range tests {
		if got := slogToZerologLevel(tt.in); got != tt.want {
			t.Errorf("slogToZerologLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
