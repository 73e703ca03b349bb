// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

// Package main is the entry point for the FinnTrack server.
//
// FinnTrack ingests GPS position reports from boats in a sailing race
// (plain JSON trackers, Traccar/OsmAnd devices, OwnTracks phones),
// keeps a live latest-per-boat view per race, broadcasts updates to
// WebSocket spectators, appends every frame to a durable history log,
// and derives course features (start line, marks, wind direction) from
// the recorded tracks.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Koanf v2 layered sources (env > file > defaults)
//  2. Storage: Badger database holding live state, history, archives
//  3. WebSocket Hub: real-time fan-out to race subscribers
//  4. Race Registry: lazily-spawned per-race live state actors
//  5. HTTP Server: ingestion, query, export, and live endpoints
//
// Everything long-running (HTTP server, hub, Badger GC, limiter
// pruning) runs under a suture supervisor tree so a crash in one
// layer restarts in isolation.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (HTTP_PORT, INGEST_KEY, DATA_PATH, ...)
//   - Config file (config.yaml, or CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (10s timeout)
//   - Drains pending history appends
//   - Closes the Badger database
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Saucyfinn/finntrack/internal/api"
	"github.com/Saucyfinn/finntrack/internal/archive"
	"github.com/Saucyfinn/finntrack/internal/config"
	"github.com/Saucyfinn/finntrack/internal/course"
	"github.com/Saucyfinn/finntrack/internal/hub"
	"github.com/Saucyfinn/finntrack/internal/ingest"
	"github.com/Saucyfinn/finntrack/internal/logging"
	"github.com/Saucyfinn/finntrack/internal/models"
	"github.com/Saucyfinn/finntrack/internal/race"
	"github.com/Saucyfinn/finntrack/internal/storage"
	"github.com/Saucyfinn/finntrack/internal/supervisor"
	"github.com/Saucyfinn/finntrack/internal/supervisor/services"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("data_path", cfg.Storage.Path).
		Bool("in_memory", cfg.Storage.InMemory).
		Bool("ingest_key_set", cfg.Ingest.SharedKey != "").
		Msg("Starting FinnTrack")

	if cfg.Ingest.SharedKey == "" {
		logging.Warn().Msg("INGEST_KEY not set: write endpoints are open. Fine for training, not for a public regatta.")
	}

	// Storage: one Badger database hosts live state, history, archives.
	db, err := storage.Open(cfg.Storage)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing storage")
		}
	}()

	states := storage.NewStateStore(db)
	history := storage.NewHistoryStore(db)

	// The hub needs a snapshot source and the registry needs the hub;
	// the closure breaks the construction cycle.
	var registry *race.Registry
	wsHub := hub.NewHub(func(raceID string) (*models.WSFullMessage, error) {
		return registry.FullSnapshot(raceID)
	})
	registry = race.NewRegistry(cfg.Liveness, states, history, wsHub)

	detector := course.NewDetector(cfg.Course)
	archives := archive.NewStore(db, history)
	normalizer := ingest.NewNormalizer(cfg.Ingest)
	limiter := ingest.NewBoatLimiter(cfg.Ingest.PerBoatRate, cfg.Ingest.PerBoatBurst)

	wsHandler := api.NewWSHandler(wsHub, cfg.Ingest.TraccarRaceID, originChecker(cfg.Server.CORSOrigins))

	handler := api.NewHandler(cfg, registry, history, detector, archives, normalizer, limiter, wsHandler)
	router := api.NewRouter(handler, api.NewChiMiddleware(&api.ChiMiddlewareConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		RateLimitRequests:  cfg.Server.RateLimitReqs,
		RateLimitWindow:    cfg.Server.RateLimitWindow,
	}), cfg.Ingest.SharedKey)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		// No WriteTimeout: it would kill long-lived WebSocket connections.
		IdleTimeout: 120 * time.Second,
	}

	// Supervisor tree: zerolog bridged to slog for sutureslog.
	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddStorageService(services.NewGCService(db, cfg.Storage.GCInterval))
	tree.AddStorageService(services.NewPruneService(limiter, 5*time.Minute))
	tree.AddMessagingService(services.NewHubService(wsHub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished).
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	// Flush fire-and-forget history appends before the database closes.
	registry.Drain()

	logging.Info().Msg("FinnTrack stopped gracefully")
}

// originChecker builds the WebSocket origin check from the CORS
// allowlist. "*" or an empty list admits every origin, matching the
// HTTP CORS behavior; browsers without an Origin header (and native
// tracker apps) are always admitted.
func originChecker(allowed []string) func(*http.Request) bool {
	open := len(allowed) == 0
	for _, o := range allowed {
		if o == "*" {
			open = true
		}
	}
	if open {
		return func(*http.Request) bool { return true }
	}

	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}
