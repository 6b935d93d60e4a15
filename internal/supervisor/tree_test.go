// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

package supervisor

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

// blockingService runs until its context is canceled, counting starts.
type blockingService struct {
	starts atomic.Int32
}

func (s *blockingService) Serve(ctx context.Context) error {
	s.starts.Add(1)
	<-ctx.Done()
	return ctx.Err()
}

func (s *blockingService) String() string { return "blocking-service" }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestTreeRunsAndStopsServices(t *testing.T) {
	tree := NewTree(testLogger(), DefaultTreeConfig())

	svc := &blockingService{}
	tree.AddPipelineService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.After(5 * time.Second)
	for svc.starts.Load() == 0 {
		select {
		case <-deadline:
			t.Fatal("service never started")
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(5 * time.Second):
		t.Fatal("tree did not stop after cancel")
	}
}

func TestTreeRestartsFailedService(t *testing.T) {
	cfg := DefaultTreeConfig()
	cfg.FailureBackoff = 10 * time.Millisecond
	tree := NewTree(testLogger(), cfg)

	// A service that fails immediately a few times, then blocks.
	var starts atomic.Int32
	tree.AddIntakeService(serviceFunc(func(ctx context.Context) error {
		if starts.Add(1) < 3 {
			return nil // treated as a completed service; suture restarts it
		}
		<-ctx.Done()
		return ctx.Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	deadline := time.After(5 * time.Second)
	for starts.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("service restarted %d times, want 3", starts.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}

	cancel()
	<-errCh
}

type serviceFunc func(ctx context.Context) error

func (f serviceFunc) Serve(ctx context.Context) error { return f(ctx) }
