// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Saucyfinn/finntrack/internal/middleware"
)

// Router assembles the HTTP surface.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	sharedKey     string
}

// NewRouter creates a router over the wired handler.
func NewRouter(handler *Handler, mw *ChiMiddleware, sharedKey string) *Router {
	return &Router{handler: handler, chiMiddleware: mw, sharedKey: sharedKey}
}

// Setup configures all routes.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied to all routes in order.
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is handled

	auth := SharedKeyAuth(router.sharedKey)

	// Read endpoints: rate limited per IP, instrumented.
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(middleware.PrometheusMetrics)

		r.Get("/health", router.handler.Health)
		r.Get("/race/list", router.handler.RaceList)
		r.Get("/boats", router.handler.Boats)
		r.Get("/replay-multi", router.handler.ReplayMulti)
		r.Get("/autocourse", router.handler.AutoCourse)
		r.Get("/archive/load", router.handler.ArchiveLoad)
	})

	// Track exports: same protections plus gzip, the documents are
	// large and repetitive.
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(middleware.PrometheusMetrics)
		r.Use(middleware.Compression)

		r.Get("/export/gpx", router.handler.ExportGPX)
		r.Get("/export/kml", router.handler.ExportKML)
	})

	// Ingestion: shared-key checked. Per-boat throttling happens in
	// the handler, after normalization identifies the boat.
	r.Group(func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)
		r.Use(auth)

		r.Post("/update", router.handler.UpdatePost)
		r.Get("/update", router.handler.UpdateGet)
		r.Get("/traccar", router.handler.Traccar)
		r.Post("/traccar", router.handler.Traccar)
		r.Post("/owntracks", router.handler.OwnTracks)
		r.Post("/ingest", router.handler.UpdatePost)
	})

	// Privileged operations.
	r.Group(func(r chi.Router) {
		r.Use(middleware.PrometheusMetrics)
		r.Use(auth)

		r.Post("/clear", router.handler.Clear)
		r.Post("/archive/save", router.handler.ArchiveSave)
	})

	// WebSocket subscribe. No metrics wrapper: the hijacked
	// connection must reach gorilla/websocket unwrapped.
	r.Get("/live", router.handler.Live)
	r.Get("/ws/live", router.handler.Live)

	// Observability.
	r.Handle("/metrics", promhttp.Handler())

	return r
}
