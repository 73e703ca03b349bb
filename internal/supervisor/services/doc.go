// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

/*
Package services provides suture.Service wrappers for FinnTrack
components.

Each wrapper adapts one long-running component to the suture v4
supervision model, translating its lifecycle (ListenAndServe, Run,
periodic loop) into suture's context-aware Serve pattern:

	type Service interface {
	    Serve(ctx context.Context) error
	}

The wrappers depend on small locally-declared interfaces rather than
the concrete component types, so they can be tested with mocks and do
not pull component packages into the supervision layer.
*/
package services
