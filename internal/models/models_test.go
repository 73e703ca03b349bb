// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

package models

import (
	"math"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
)

func TestUpdateJSONRoundTrip(t *testing.T) {
	in := Update{
		RaceID:      "AUSNATS-2026-R01",
		BoatID:      "AUS-261",
		Lat:         -27.46,
		Lon:         153.19,
		SpeedKnots:  5.2,
		HeadingDeg:  90,
		TimestampMs: 1767115200000,
		BoatName:    "Swift",
		Nation:      "AUS",
	}

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// Wire names are the short aliases the frontend expects.
	for _, field := range []string{`"raceId"`, `"boatId"`, `"speed"`, `"heading"`, `"timestamp"`} {
		if !strings.Contains(string(data), field) {
			t.Errorf("expected %s in JSON, got %s", field, data)
		}
	}

	var out Update
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != in {
		t.Errorf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestHasFinitePosition(t *testing.T) {
	tests := []struct {
		name     string
		lat, lon float64
		want     bool
	}{
		{"valid", -27.46, 153.19, true},
		{"zero", 0, 0, true},
		{"nan lat", math.NaN(), 153.19, false},
		{"nan lon", -27.46, math.NaN(), false},
		{"inf lat", math.Inf(1), 153.19, false},
		{"neg inf lon", -27.46, math.Inf(-1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := Update{Lat: tt.lat, Lon: tt.lon}
			if got := u.HasFinitePosition(); got != tt.want {
				t.Errorf("HasFinitePosition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewWSFullMessageNormalizesNil(t *testing.T) {
	msg := NewWSFullMessage(nil)
	if msg.Type != WSTypeFull {
		t.Errorf("type = %q, want %q", msg.Type, WSTypeFull)
	}
	if msg.Boats == nil {
		t.Fatal("boats map should be non-nil")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"boats":{}`) {
		t.Errorf("expected empty object for boats, got %s", data)
	}
}

func TestNewWSUpdateMessage(t *testing.T) {
	state := BoatState{
		Update: Update{RaceID: "R1", BoatID: "B1", Lat: 1, Lon: 2, TimestampMs: 1000},
		Active: true,
	}
	msg := NewWSUpdateMessage("B1", state)

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if !strings.Contains(s, `"type":"update"`) || !strings.Contains(s, `"boat":"B1"`) {
		t.Errorf("unexpected message shape: %s", s)
	}
	if !strings.Contains(s, `"active":true`) {
		t.Errorf("active flag missing: %s", s)
	}
}

func TestCourseFeaturesNullFields(t *testing.T) {
	data, err := json.Marshal(CourseFeatures{})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	// Undetected features serialize as explicit nulls, not omitted keys.
	for _, field := range []string{`"startTimeMs":null`, `"startLine":null`, `"finishLine":null`, `"windDirectionDeg":null`} {
		if !strings.Contains(s, field) {
			t.Errorf("expected %s in JSON, got %s", field, s)
		}
	}
}
