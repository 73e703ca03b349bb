// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

package race

import (
	"fmt"

	"github.com/Saucyfinn/finntrack/internal/models"
)

// Catalog returns the curated race list the UI offers in its dropdown.
// These are labels and IDs only; a race holds no data until the first
// tracker reports into it.
func Catalog() models.RaceList {
	races := make([]models.RaceSummary, 0, 34)
	races = append(races, series("Australian Finn Nationals", 2026, 6, "AUSNATS")...)
	races = append(races, series("Finn Gold Cup", 2026, 10, "GOLDCUP")...)
	races = append(races, series("Finn World Masters", 2026, 8, "MASTERS")...)
	races = append(races, series("Undefined Race", 2026, 10, "UNDEF")...)
	return models.RaceList{Races: races}
}

func series(name string, year, count int, prefix string) []models.RaceSummary {
	out := make([]models.RaceSummary, count)
	for i := range out {
		n := i + 1
		out[i] = models.RaceSummary{
			RaceID: fmt.Sprintf("%s-%d-R%02d", prefix, year, n),
			Title:  fmt.Sprintf("%s %d — Race %d", name, year, n),
			Series: name,
			Year:   year,
			RaceNo: n,
		}
	}
	return out
}
