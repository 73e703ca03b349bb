// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

// Package course infers racecourse geometry (start time, start and
// finish lines, marks, course outline, wind direction) from a race's
// replayed tracks. Detection is a pure function of the replay result;
// it never touches live state.
package course

import (
	"math"
	"sort"

	"github.com/Saucyfinn/finntrack/internal/models"
)

// metersPerDegree approximates one degree of latitude in meters, used
// to convert clustering radii into degree space. Crude but adequate at
// racecourse scale.
const metersPerDegree = 111111.0

// distDegrees is the Euclidean distance between two points in raw
// degree space. Only used for relative comparisons at course scale,
// where the longitude compression error does not change outcomes.
func distDegrees(a, b models.LatLng) float64 {
	return math.Hypot(a.Lat-b.Lat, a.Lon-b.Lon)
}

// centroid returns the arithmetic mean of the points. Panics on an
// empty slice; callers guarantee at least one point.
func centroid(points []models.LatLng) models.LatLng {
	var lat, lon float64
	for _, p := range points {
		lat += p.Lat
		lon += p.Lon
	}
	n := float64(len(points))
	return models.LatLng{Lat: lat / n, Lon: lon / n}
}

// kmeansTwo splits points into two clusters and returns their
// centroids. Seeds are the first and last input points, which for
// pre-start positions tend to sit near opposite line ends; a fixed
// ten iterations is plenty at this scale.
func kmeansTwo(points []models.LatLng) (models.LatLng, models.LatLng) {
	const iterations = 10

	c1 := points[0]
	c2 := points[len(points)-1]

	for iter := 0; iter < iterations; iter++ {
		var g1, g2 []models.LatLng
		for _, p := range points {
			if distDegrees(p, c1) < distDegrees(p, c2) {
				g1 = append(g1, p)
			} else {
				g2 = append(g2, p)
			}
		}
		if len(g1) > 0 {
			c1 = centroid(g1)
		}
		if len(g2) > 0 {
			c2 = centroid(g2)
		}
	}

	return c1, c2
}

// distanceMeters returns the haversine distance between two coordinates.
func distanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusM = 6371000.0
	toRad := func(x float64) float64 { return x * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Pow(math.Sin(dLat/2), 2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Pow(math.Sin(dLon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusM * c
}

// convexHull computes the convex hull of the points using the monotone
// chain algorithm, treating longitude as x and latitude as y. Interior
// and collinear points are discarded; the result is in counter-clockwise
// order without the duplicated endpoints.
func convexHull(points []models.LatLng) []models.LatLng {
	pts := make([]models.LatLng, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].Lon != pts[j].Lon {
			return pts[i].Lon < pts[j].Lon
		}
		return pts[i].Lat < pts[j].Lat
	})

	cross := func(o, a, b models.LatLng) float64 {
		return (a.Lon-o.Lon)*(b.Lat-o.Lat) - (a.Lat-o.Lat)*(b.Lon-o.Lon)
	}

	var lower []models.LatLng
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}

	var upper []models.LatLng
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	lower = lower[:len(lower)-1]
	upper = upper[:len(upper)-1]
	return append(lower, upper...)
}

// clusterPoints greedily clusters points: each point joins the first
// cluster whose running centroid lies within radiusMeters (in degree
// space), pulling the centroid toward itself; otherwise it seeds a new
// cluster. Returns the final centroids.
//
// The greediness means the result depends on input order, and dense
// turn areas can both over- and under-cluster. Good enough for placing
// approximate mark positions on a map.
func clusterPoints(points []models.LatLng, radiusMeters float64) []models.LatLng {
	type cluster struct {
		points   []models.LatLng
		centroid models.LatLng
	}

	threshold := radiusMeters / metersPerDegree
	var clusters []*cluster

	for _, p := range points {
		placed := false
		for _, c := range clusters {
			if distDegrees(p, c.centroid) < threshold {
				c.points = append(c.points, p)
				c.centroid = centroid(c.points)
				placed = true
				break
			}
		}
		if !placed {
			clusters = append(clusters, &cluster{points: []models.LatLng{p}, centroid: p})
		}
	}

	out := make([]models.LatLng, len(clusters))
	for i, c := range clusters {
		out[i] = c.centroid
	}
	return out
}
