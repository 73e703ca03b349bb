// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

// Package metrics provides Prometheus instrumentation for:
//   - Position ingest throughput and rejections
//   - History store appends and circuit breaker state
//   - WebSocket fan-out
//   - API endpoint latency and throughput
//   - Course detection runs
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingest metrics
	UpdatesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finntrack_updates_ingested_total",
			Help: "Total position updates accepted, by ingest adapter",
		},
		[]string{"adapter"}, // "json", "traccar", "owntracks"
	)

	UpdatesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finntrack_updates_rejected_total",
			Help: "Total position updates rejected, by reason",
		},
		[]string{"reason"}, // "invalid_payload", "rate_limited", "unauthorized"
	)

	// Race actor metrics
	ActiveRaces = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "finntrack_active_races",
			Help: "Current number of live race actors",
		},
	)

	TrackedBoats = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "finntrack_tracked_boats",
			Help: "Current number of known boats per race",
		},
		[]string{"race_id"},
	)

	SnapshotRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "finntrack_snapshot_requests_total",
			Help: "Total snapshot requests served by race actors",
		},
	)

	// History store metrics
	HistoryAppends = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "finntrack_history_appends_total",
			Help: "Total history records appended",
		},
	)

	HistoryAppendErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "finntrack_history_append_errors_total",
			Help: "Total failed history appends (includes breaker-open rejections)",
		},
	)

	HistoryBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "finntrack_history_breaker_state",
			Help: "History append circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	ReplayDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "finntrack_replay_duration_seconds",
			Help:    "Duration of full-race history replays in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	StorageOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finntrack_storage_op_duration_seconds",
			Help:    "Duration of Badger operations in seconds",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
		[]string{"operation"}, // "get", "put", "delete", "scan"
	)

	// WebSocket metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "finntrack_ws_connections",
			Help: "Current number of connected WebSocket viewers",
		},
	)

	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finntrack_ws_messages_sent_total",
			Help: "Total WebSocket messages sent, by type",
		},
		[]string{"type"}, // "full", "update"
	)

	WSMessagesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "finntrack_ws_messages_dropped_total",
			Help: "Total WebSocket messages dropped due to slow consumers",
		},
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finntrack_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "finntrack_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finntrack_api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Course detection metrics
	CourseDetections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "finntrack_course_detections_total",
			Help: "Total course detection runs",
		},
	)

	CourseDetectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "finntrack_course_detection_duration_seconds",
			Help:    "Duration of course detection runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Archive metrics
	ArchiveOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "finntrack_archive_operations_total",
			Help: "Total archive save/load operations",
		},
		[]string{"operation", "result"}, // operation: "save", "load"; result: "ok", "error"
	)
)

// RecordIngest tracks one accepted position update.
func RecordIngest(adapter string) {
	UpdatesIngested.WithLabelValues(adapter).Inc()
}

// RecordRejection tracks one rejected position update.
func RecordRejection(reason string) {
	UpdatesRejected.WithLabelValues(reason).Inc()
}

// RecordHistoryAppend tracks a history append attempt.
func RecordHistoryAppend(err error) {
	if err != nil {
		HistoryAppendErrors.Inc()
		return
	}
	HistoryAppends.Inc()
}

// RecordStorageOp tracks the duration of one Badger operation.
func RecordStorageOp(operation string, duration time.Duration) {
	StorageOpDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordAPIRequest tracks a completed API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordCourseDetection tracks one course detection run.
func RecordCourseDetection(duration time.Duration) {
	CourseDetections.Inc()
	CourseDetectionDuration.Observe(duration.Seconds())
}

// RecordWSMessage tracks one delivered WebSocket message.
func RecordWSMessage(msgType string) {
	WSMessagesSent.WithLabelValues(msgType).Inc()
}

// RecordArchiveOperation tracks one archive save or load.
func RecordArchiveOperation(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ArchiveOperations.WithLabelValues(operation, result).Inc()
}
