// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

// Package export serializes replayed race tracks to GPX and KML.
// Input is a replay result, which already guarantees finite
// coordinates and chronological order; no further validation happens
// here.
package export

import (
	"bytes"
	"encoding/xml"
	"sort"
	"strconv"
	"time"

	"github.com/Saucyfinn/finntrack/internal/models"
)

// MIME types for the export endpoints.
const (
	ContentTypeGPX = "application/gpx+xml"
	ContentTypeKML = "application/vnd.google-earth.kml+xml"
)

// GPX renders one <trk> per boat with a <trkpt> per frame. Timestamps
// become ISO-8601 UTC.
func GPX(boats map[string][]models.Update) []byte {
	var buf bytes.Buffer
	buf.WriteString("<?xml version=\"1.0\"?>\n")
	buf.WriteString("<gpx version=\"1.1\" creator=\"FinnTrack\">\n")

	for _, boatID := range sortedBoatIDs(boats) {
		buf.WriteString("<trk><name>")
		xmlEscape(&buf, boatID)
		buf.WriteString("</name><trkseg>\n")

		for _, f := range boats[boatID] {
			buf.WriteString("<trkpt lat=\"")
			buf.WriteString(formatCoord(f.Lat))
			buf.WriteString("\" lon=\"")
			buf.WriteString(formatCoord(f.Lon))
			buf.WriteString("\"><time>")
			buf.WriteString(time.UnixMilli(f.TimestampMs).UTC().Format(time.RFC3339))
			buf.WriteString("</time></trkpt>\n")
		}

		buf.WriteString("</trkseg></trk>\n")
	}

	buf.WriteString("</gpx>\n")
	return buf.Bytes()
}

// KML renders one <Placemark> with a <LineString> per boat, using
// "lon,lat,0" coordinate tuples.
func KML(boats map[string][]models.Update) []byte {
	var buf bytes.Buffer
	buf.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	buf.WriteString("<kml xmlns=\"http://www.opengis.net/kml/2.2\"><Document>\n")

	for _, boatID := range sortedBoatIDs(boats) {
		buf.WriteString("<Placemark><name>")
		xmlEscape(&buf, boatID)
		buf.WriteString("</name><LineString><coordinates>\n")

		for _, f := range boats[boatID] {
			buf.WriteString(formatCoord(f.Lon))
			buf.WriteByte(',')
			buf.WriteString(formatCoord(f.Lat))
			buf.WriteString(",0 ")
		}

		buf.WriteString("</coordinates></LineString></Placemark>\n")
	}

	buf.WriteString("</Document></kml>\n")
	return buf.Bytes()
}

// formatCoord renders a coordinate with the shortest exact decimal form.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// xmlEscape writes s with XML special characters escaped. Boat IDs
// come from trackers in the field and cannot be trusted in markup.
func xmlEscape(buf *bytes.Buffer, s string) {
	_ = xml.EscapeText(buf, []byte(s))
}

// sortedBoatIDs keeps export output stable across runs.
func sortedBoatIDs(boats map[string][]models.Update) []string {
	ids := make([]string, 0, len(boats))
	for id := range boats {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
