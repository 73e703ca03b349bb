// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/Saucyfinn/finntrack/internal/archive"
	"github.com/Saucyfinn/finntrack/internal/config"
	"github.com/Saucyfinn/finntrack/internal/course"
	"github.com/Saucyfinn/finntrack/internal/export"
	"github.com/Saucyfinn/finntrack/internal/ingest"
	"github.com/Saucyfinn/finntrack/internal/logging"
	"github.com/Saucyfinn/finntrack/internal/metrics"
	"github.com/Saucyfinn/finntrack/internal/models"
	"github.com/Saucyfinn/finntrack/internal/race"
	"github.com/Saucyfinn/finntrack/internal/storage"
)

// maxBodyBytes caps ingestion payloads. Position reports are tiny;
// anything larger is misconfigured or hostile.
const maxBodyBytes = 64 * 1024

// Handler carries the dependencies every endpoint needs.
type Handler struct {
	cfg        *config.Config
	registry   *race.Registry
	history    *storage.HistoryStore
	detector   *course.Detector
	archives   *archive.Store
	normalizer *ingest.Normalizer
	limiter    *ingest.BoatLimiter
	ws         *WSHandler
}

// NewHandler wires the endpoint dependencies together.
func NewHandler(cfg *config.Config, registry *race.Registry, history *storage.HistoryStore, detector *course.Detector, archives *archive.Store, normalizer *ingest.Normalizer, limiter *ingest.BoatLimiter, ws *WSHandler) *Handler {
	return &Handler{
		cfg:        cfg,
		registry:   registry,
		history:    history,
		detector:   detector,
		archives:   archives,
		normalizer: normalizer,
		limiter:    limiter,
		ws:         ws,
	}
}

// Health reports liveness plus the endpoint inventory, useful when
// pointing a new tracker or viewer at a deployment.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(map[string]interface{}{
		"ok":   true,
		"time": time.Now().UTC().Format(time.RFC3339),
		"endpoints": []string{
			"GET /health",
			"GET /race/list",
			"GET /boats?raceId=",
			"GET /replay-multi?raceId=",
			"GET /autocourse?raceId=",
			"GET /export/gpx?raceId=",
			"GET /export/kml?raceId=",
			"GET /live?raceId= (websocket)",
			"POST /update",
			"GET|POST /traccar",
			"POST /owntracks",
			"POST /clear?raceId=",
			"POST /archive/save?raceId=",
			"GET /archive/load?raceId=",
		},
	})
}

// RaceList serves the curated series catalog for viewer dropdowns.
func (h *Handler) RaceList(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Success(race.Catalog())
}

// Boats returns the latest fleet state for a race.
// activeSeconds > 0 excludes boats older than the window entirely;
// absent or zero returns every boat annotated with its active flag.
func (h *Handler) Boats(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	raceID := r.URL.Query().Get("raceId")
	if raceID == "" {
		rw.MissingRaceID()
		return
	}

	window := time.Duration(0)
	if raw := r.URL.Query().Get("activeSeconds"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs < 0 {
			rw.BadRequest("activeSeconds must be a non-negative integer")
			return
		}
		window = time.Duration(secs) * time.Second
	}

	boats, err := h.registry.Get(raceID).Snapshot(window)
	if err != nil {
		rw.StorageError(err)
		return
	}
	rw.Success(map[string]interface{}{"raceId": raceID, "boats": boats})
}

// ReplayMulti returns every boat's full chronological track.
func (h *Handler) ReplayMulti(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	raceID := r.URL.Query().Get("raceId")
	if raceID == "" {
		rw.MissingRaceID()
		return
	}

	boats, err := h.history.Replay(raceID)
	if err != nil {
		rw.StorageError(err)
		return
	}
	rw.Success(models.ReplayResponse{RaceID: raceID, Boats: boats})
}

// AutoCourse runs course detection over the race's durable history.
// Best-effort analytics: an empty race yields all-null features, never
// an error.
func (h *Handler) AutoCourse(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	raceID := r.URL.Query().Get("raceId")
	if raceID == "" {
		rw.MissingRaceID()
		return
	}

	boats, err := h.history.Replay(raceID)
	if err != nil {
		rw.StorageError(err)
		return
	}
	rw.Success(h.detector.Detect(boats))
}

// ExportGPX serves the race's tracks as a GPX document.
func (h *Handler) ExportGPX(w http.ResponseWriter, r *http.Request) {
	h.exportTracks(w, r, export.ContentTypeGPX, "gpx", export.GPX)
}

// ExportKML serves the race's tracks as a KML document.
func (h *Handler) ExportKML(w http.ResponseWriter, r *http.Request) {
	h.exportTracks(w, r, export.ContentTypeKML, "kml", export.KML)
}

func (h *Handler) exportTracks(w http.ResponseWriter, r *http.Request, contentType, ext string, render func(map[string][]models.Update) []byte) {
	raceID := r.URL.Query().Get("raceId")
	if raceID == "" {
		NewResponseWriter(w, r).MissingRaceID()
		return
	}

	boats, err := h.history.Replay(raceID)
	if err != nil {
		NewResponseWriter(w, r).StorageError(err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+raceID+"."+ext+`"`)
	if _, err := w.Write(render(boats)); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("race_id", raceID).Msg("failed to write export")
	}
}

// UpdatePost ingests a canonical or aliased JSON position report.
func (h *Handler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var raw map[string]interface{}
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		metrics.RecordRejection("malformed_json")
		rw.BadRequest("request body is not valid JSON")
		return
	}

	u, err := h.normalizer.FromJSON(raw)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	h.ingestUpdate(rw, u, "json")
}

// UpdateGet ingests a query-parameter report, the legacy app path.
func (h *Handler) UpdateGet(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	u, err := h.normalizer.FromQuery(r.URL.Query())
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	h.ingestUpdate(rw, u, "query")
}

// Traccar ingests OsmAnd-style GET query reports and legacy Traccar
// form POSTs, which carry the same field set.
func (h *Handler) Traccar(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	values := r.URL.Query()
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			metrics.RecordRejection("malformed_form")
			rw.BadRequest("request body is not valid form data")
			return
		}
		values = r.PostForm
	}

	u, err := h.normalizer.FromTraccar(values)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	h.ingestUpdate(rw, u, "traccar")
}

// OwnTracks ingests an OwnTracks location publish.
func (h *Handler) OwnTracks(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var raw map[string]interface{}
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		metrics.RecordRejection("malformed_json")
		rw.BadRequest("request body is not valid JSON")
		return
	}

	u, err := h.normalizer.FromOwnTracks(raw)
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}
	h.ingestUpdate(rw, u, "owntracks")
}

// ingestUpdate is the shared tail of every ingestion adapter:
// per-boat rate limit, then hand the canonical update to the race's
// actor.
func (h *Handler) ingestUpdate(rw *ResponseWriter, u models.Update, adapter string) {
	if !h.limiter.Allow(u.RaceID, u.BoatID) {
		metrics.RecordRejection("rate_limited")
		rw.Error(http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "boat is reporting too frequently")
		return
	}

	if err := h.registry.Get(u.RaceID).Update(u); err != nil {
		if errors.Is(err, race.ErrInvalidPayload) {
			rw.BadRequest(err.Error())
			return
		}
		rw.StorageError(err)
		return
	}

	metrics.RecordIngest(adapter)
	rw.Success(map[string]interface{}{
		"raceId": u.RaceID,
		"boatId": u.BoatID,
	})
}

// Clear wipes a race's live state. Privileged: routed behind the
// shared-key check. History is preserved.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	raceID := r.URL.Query().Get("raceId")
	if raceID == "" {
		rw.MissingRaceID()
		return
	}

	cleared, err := h.registry.Get(raceID).Clear()
	if err != nil {
		rw.StorageError(err)
		return
	}
	rw.Success(models.ClearResponse{RaceID: raceID, Cleared: cleared})
}

// ArchiveSave snapshots a race's replay into the archive.
func (h *Handler) ArchiveSave(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	raceID := r.URL.Query().Get("raceId")
	if raceID == "" {
		rw.MissingRaceID()
		return
	}

	meta, err := h.archives.Save(raceID)
	if err != nil {
		rw.StorageError(err)
		return
	}
	rw.Success(meta)
}

// ArchiveLoad reads a previously saved archive.
func (h *Handler) ArchiveLoad(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	raceID := r.URL.Query().Get("raceId")
	if raceID == "" {
		rw.MissingRaceID()
		return
	}

	archived, err := h.archives.Load(raceID)
	if err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			rw.NotFound("no archive for race " + raceID)
			return
		}
		rw.StorageError(err)
		return
	}
	rw.Success(archived)
}

// Live upgrades the connection and subscribes the viewer to a race.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	h.ws.Subscribe(w, r)
}
