// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

package course

import (
	"math"
	"sort"
	"time"

	"github.com/Saucyfinn/finntrack/internal/config"
	"github.com/Saucyfinn/finntrack/internal/metrics"
	"github.com/Saucyfinn/finntrack/internal/models"
)

// Detector runs unsupervised course detection over a race's replayed
// tracks. It is stateless and safe for concurrent use.
type Detector struct {
	cfg config.CourseConfig
}

// NewDetector creates a detector with the given thresholds.
func NewDetector(cfg config.CourseConfig) *Detector {
	return &Detector{cfg: cfg}
}

// Detect infers course features from the replay result (boatID →
// chronological track). Deterministic for a given input; features that
// cannot be detected come back as nil, never as an error.
func (d *Detector) Detect(boats map[string][]models.Update) models.CourseFeatures {
	start := time.Now()
	defer func() { metrics.RecordCourseDetection(time.Since(start)) }()

	features := models.CourseFeatures{
		Marks:         []models.LatLng{},
		CoursePolygon: []models.LatLng{},
	}

	startTime := d.detectStartTime(boats)
	features.StartTimeMs = startTime
	if startTime != nil {
		features.StartLine = d.detectStartLine(boats, *startTime)
		features.WindDirectionDeg = d.estimateWind(boats, *startTime)
	}
	features.Marks = d.detectMarks(boats)
	features.CoursePolygon = d.coursePolygon(boats)
	features.FinishLine = d.detectFinishLine(boats)

	return features
}

// detectStartTime finds each boat's first frame past the motion
// threshold (skipping the very first frame, which often carries a
// stale pre-launch fix) and returns the median of those timestamps.
// The median resists boats that moved early for other reasons.
func (d *Detector) detectStartTime(boats map[string][]models.Update) *int64 {
	var moves []int64
	for _, frames := range boats {
		for i := 1; i < len(frames); i++ {
			if frames[i].SpeedKnots > d.cfg.StartSpeedKnots {
				moves = append(moves, frames[i].TimestampMs)
				break
			}
		}
	}
	if len(moves) == 0 {
		return nil
	}
	sort.Slice(moves, func(i, j int) bool { return moves[i] < moves[j] })
	median := moves[len(moves)/2]
	return &median
}

// detectStartLine samples each boat's position just before the start
// and two-means the samples into the line's endpoints. Needs at least
// four boats to say anything about a line.
func (d *Detector) detectStartLine(boats map[string][]models.Update, startTimeMs int64) *models.Line {
	target := startTimeMs - d.cfg.PrestartWindow.Milliseconds()

	var points []models.LatLng
	for _, boatID := range sortedBoatIDs(boats) {
		for _, f := range boats[boatID] {
			if f.TimestampMs >= target {
				points = append(points, models.LatLng{Lat: f.Lat, Lon: f.Lon})
				break
			}
		}
	}
	if len(points) < 4 {
		return nil
	}

	a, b := kmeansTwo(points)
	return &models.Line{A: a, B: b}
}

// estimateWind averages fleet headings in the window right after the
// start, assuming the fleet sails upwind off the line. Boats below the
// speed floor are drifting, not sailing, and are excluded.
func (d *Detector) estimateWind(boats map[string][]models.Update, startTimeMs int64) *float64 {
	windowEnd := startTimeMs + d.cfg.WindWindow.Milliseconds()

	var sum float64
	var n int
	for _, frames := range boats {
		for _, f := range frames {
			if f.TimestampMs > startTimeMs && f.TimestampMs <= windowEnd &&
				f.SpeedKnots > d.cfg.WindMinSpeedKnots {
				sum += f.HeadingDeg
				n++
			}
		}
	}
	if n == 0 {
		return nil
	}
	mean := sum / float64(n)
	return &mean
}

// detectMarks treats a large heading change between consecutive frames
// as a mark rounding, collects the post-turn positions from every
// boat, and clusters them into approximate mark locations. The naive
// heading difference wraps badly across north (|350-10| = 340), so a
// rounding right at 0° can be missed; rare in practice.
func (d *Detector) detectMarks(boats map[string][]models.Update) []models.LatLng {
	var turnPoints []models.LatLng
	for _, boatID := range sortedBoatIDs(boats) {
		frames := boats[boatID]
		for i := 2; i < len(frames); i++ {
			if math.Abs(frames[i-1].HeadingDeg-frames[i].HeadingDeg) > d.cfg.TurnThresholdDeg {
				turnPoints = append(turnPoints, models.LatLng{Lat: frames[i].Lat, Lon: frames[i].Lon})
			}
		}
	}
	return clusterPoints(turnPoints, d.cfg.MarkClusterRadiusM)
}

// detectFinishLine two-means every boat's final position. Like the
// start line, it needs at least four boats.
func (d *Detector) detectFinishLine(boats map[string][]models.Update) *models.Line {
	var points []models.LatLng
	for _, boatID := range sortedBoatIDs(boats) {
		frames := boats[boatID]
		if len(frames) > 0 {
			f := frames[len(frames)-1]
			points = append(points, models.LatLng{Lat: f.Lat, Lon: f.Lon})
		}
	}
	if len(points) < 4 {
		return nil
	}

	a, b := kmeansTwo(points)
	return &models.Line{A: a, B: b}
}

// coursePolygon is the convex hull of every position ever observed in
// the race: a bounding outline, not the actual course shape.
func (d *Detector) coursePolygon(boats map[string][]models.Update) []models.LatLng {
	var pts []models.LatLng
	for _, frames := range boats {
		for _, f := range frames {
			pts = append(pts, models.LatLng{Lat: f.Lat, Lon: f.Lon})
		}
	}
	if len(pts) < 3 {
		return []models.LatLng{}
	}
	return convexHull(pts)
}

// sortedBoatIDs gives map iteration a stable order so detection output
// is deterministic run to run.
func sortedBoatIDs(boats map[string][]models.Update) []string {
	ids := make([]string, 0, len(boats))
	for id := range boats {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
