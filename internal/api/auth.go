// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/Saucyfinn/finntrack/internal/metrics"
)

// SharedKeyAuth guards ingestion and privileged endpoints with a
// single shared secret, presented either as a bearer token or a ?key=
// query parameter (trackers that cannot set headers use the latter).
// An empty configured key disables the check, which is the open
// training-mode deployment.
func SharedKeyAuth(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !keyMatches(r, key) {
				metrics.RecordRejection("unauthorized")
				NewResponseWriter(w, r).Unauthorized("missing or invalid update key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func keyMatches(r *http.Request, key string) bool {
	presented := r.URL.Query().Get("key")
	if auth := r.Header.Get("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			presented = token
		}
	}
	if presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(key)) == 1
}
