// FinnTrack - Live Sailing Race Telemetry and Course Detection
// Copyright 2026 Saucyfinn
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Saucyfinn/finntrack

package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

// mockHub implements HubRunner for testing.
type mockHub struct {
	runErr error
}

func (m *mockHub) RunWithContext(ctx context.Context) error {
	if m.runErr != nil {
		return m.runErr
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestHubServiceDelegatesRun(t *testing.T) {
	svc := NewHubService(&mockHub{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
}

func TestHubServicePropagatesError(t *testing.T) {
	boom := errors.New("hub crashed")
	svc := NewHubService(&mockHub{runErr: boom})

	if err := svc.Serve(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Serve() = %v, want hub error", err)
	}
}

func TestHubServiceString(t *testing.T) {
	if got := NewHubService(&mockHub{}).String(); got != "websocket-hub" {
		t.Errorf("String() = %q", got)
	}
}
