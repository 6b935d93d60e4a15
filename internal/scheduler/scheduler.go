// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

// Package scheduler drives the periodic pipeline tasks: the windowed
// ingestion scheduler, the risk aggregation sweep, and the retention
// cleaner. Each task is a suture.Service and survives restarts through its
// persisted state.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/certalo/loginwatch/internal/config"
	"github.com/certalo/loginwatch/internal/database"
	"github.com/certalo/loginwatch/internal/detection"
	"github.com/certalo/loginwatch/internal/logging"
	"github.com/certalo/loginwatch/internal/metrics"
	"github.com/certalo/loginwatch/internal/models"
)

// TaskName is the persisted pointer key for the ingestion scheduler.
const TaskName = "process_logs"

// bootstrapGap keeps the fresh window's end one minute behind now so the
// upstream mirror has settled before the window is read.
const bootstrapGap = time.Minute

// Store is the persistence surface the scheduler needs. *database.DB
// satisfies it.
type Store interface {
	GetTask(ctx context.Context, name string) (*models.TaskSettings, error)
	CreateTask(ctx context.Context, t *models.TaskSettings) error
	AdvanceTask(ctx context.Context, name string, prevStart, prevEnd, newStart, newEnd time.Time) error
	DistinctUsernames(ctx context.Context, start, end time.Time) ([]string, error)
	QueryEvents(ctx context.Context, username string, start, end time.Time) ([]models.Event, error)
	GetOrCreateUser(ctx context.Context, username string) (*models.User, error)
	GetRuntimeConfig(ctx context.Context) (*models.RuntimeConfig, error)
}

// Processor applies one user's ordered events. *detection.Processor
// satisfies it.
type Processor interface {
	ProcessEvents(ctx context.Context, user *models.User, events []models.Event, policy *models.RuntimeConfig) error
}

// Scheduler advances the process_logs window pointer and fans sub-window
// work out to a per-user worker pool. One instance per task name; concurrent
// invocations are defused by the conditional pointer advance.
type Scheduler struct {
	store     Store
	processor Processor
	cfg       config.SchedulerConfig
	breaker   *gobreaker.CircuitBreaker[[]models.Event]
	limiter   *rate.Limiter

	// now is injectable for tests.
	now func() time.Time
}

// New creates a scheduler over the given store and processor.
func New(store Store, processor Processor, cfg config.SchedulerConfig) *Scheduler {
	var limiter *rate.Limiter
	if cfg.UserQueriesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.UserQueriesPerSecond), cfg.UserQueriesPerSecond)
	}

	breaker := gobreaker.NewCircuitBreaker[[]models.Event](gobreaker.Settings{
		Name:     "log-store",
		Interval: time.Minute,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})

	return &Scheduler{
		store:     store,
		processor: processor,
		cfg:       cfg,
		breaker:   breaker,
		limiter:   limiter,
		now:       time.Now,
	}
}

// Serve implements suture.Service: it invokes the scheduler on the
// configured interval until the context is canceled. Invocation errors are
// logged and retried on the next tick; the persisted pointer guarantees no
// window is skipped.
func (s *Scheduler) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			logging.Error().Err(err).Msg("scheduler invocation failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (s *Scheduler) String() string {
	return "ingestion-scheduler"
}

// RunOnce performs one scheduler invocation: bounded catch-up over
// sub-windows, or a data-loss reset when the pointer has fallen too far
// behind.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	task, err := s.store.GetTask(ctx, TaskName)
	if errors.Is(err, database.ErrNotFound) {
		return s.bootstrap(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to read task pointer: %w", err)
	}

	for i := 0; i < s.cfg.MaxSubwindowsPerInvocation; i++ {
		now := s.now().UTC()

		if now.Sub(task.EndDate) >= s.cfg.DataLossThreshold() {
			return s.resetAfterDataLoss(ctx, task, now)
		}

		// Stop once the pointer is within one slide of now-1m: the next
		// sub-window would not be fully in the past yet.
		if now.Add(-bootstrapGap).Sub(task.EndDate) < s.cfg.Slide() {
			return nil
		}

		newStart := task.StartDate.Add(s.cfg.Slide())
		newEnd := task.EndDate.Add(s.cfg.Slide())
		if err := s.processSubwindow(ctx, newStart, newEnd); err != nil {
			return fmt.Errorf("sub-window [%s, %s): %w",
				newStart.Format(time.RFC3339), newEnd.Format(time.RFC3339), err)
		}

		err := s.store.AdvanceTask(ctx, TaskName, task.StartDate, task.EndDate, newStart, newEnd)
		if errors.Is(err, database.ErrStaleWindow) {
			logging.Warn().Msg("task pointer advanced by another writer, abandoning invocation")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to advance task pointer: %w", err)
		}
		task.StartDate, task.EndDate = newStart, newEnd
		metrics.SubwindowsProcessed.Inc()
	}
	return nil
}

// bootstrap creates the initial pointer one slide behind now-1m. Processing
// starts on the next invocation.
func (s *Scheduler) bootstrap(ctx context.Context) error {
	end := s.now().UTC().Add(-bootstrapGap)
	start := end.Add(-s.cfg.Slide())
	err := s.store.CreateTask(ctx, &models.TaskSettings{
		TaskName:  TaskName,
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		return fmt.Errorf("failed to bootstrap task pointer: %w", err)
	}
	logging.Info().
		Time("start", start).
		Time("end", end).
		Msg("task pointer bootstrapped")
	return nil
}

// resetAfterDataLoss abandons the stale interval and re-anchors the pointer
// to a fresh window ending at now-1m. No per-user work happens this
// invocation; events in the skipped interval never produce alerts.
func (s *Scheduler) resetAfterDataLoss(ctx context.Context, task *models.TaskSettings, now time.Time) error {
	newEnd := now.Add(-bootstrapGap)
	newStart := newEnd.Add(-s.cfg.Slide())

	err := s.store.AdvanceTask(ctx, TaskName, task.StartDate, task.EndDate, newStart, newEnd)
	if errors.Is(err, database.ErrStaleWindow) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to reset task pointer: %w", err)
	}

	metrics.DataLossResets.Inc()
	logging.Warn().
		Time("stale_end", task.EndDate).
		Time("new_start", newStart).
		Time("new_end", newEnd).
		Dur("lag", now.Sub(task.EndDate)).
		Msg("data loss detected, window pointer reset")
	return nil
}

// processSubwindow fans the window's users out to the worker pool under a
// per-sub-window deadline and a policy snapshot taken once at the boundary.
// Per-user failures are isolated from each other but any failure keeps the
// pointer from advancing, so the sub-window is retried next invocation.
func (s *Scheduler) processSubwindow(ctx context.Context, start, end time.Time) error {
	began := time.Now()
	defer func() {
		metrics.SubwindowDuration.Observe(time.Since(began).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.SubwindowTimeout)
	defer cancel()

	policy, err := s.store.GetRuntimeConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to snapshot runtime config: %w", err)
	}

	usernames, err := s.store.DistinctUsernames(ctx, start, end)
	if err != nil {
		return fmt.Errorf("failed to enumerate users: %w", err)
	}
	if len(usernames) == 0 {
		return nil
	}

	workers := s.cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(usernames) {
		workers = len(usernames)
	}

	work := make(chan string)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var failed []string

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for username := range work {
				if err := s.processUser(ctx, username, start, end, policy); err != nil {
					metrics.UserProcessingFailures.Inc()
					logging.Error().Err(err).Str("username", username).Msg("user processing failed")
					mu.Lock()
					failed = append(failed, username)
					mu.Unlock()
				}
			}
		}()
	}

	for _, username := range usernames {
		select {
		case work <- username:
		case <-ctx.Done():
			close(work)
			wg.Wait()
			return ctx.Err()
		}
	}
	close(work)
	wg.Wait()

	if len(failed) > 0 {
		return fmt.Errorf("%d of %d users failed", len(failed), len(usernames))
	}
	return nil
}

// processUser runs one user's window slice through the detection pipeline.
// Events arrive from the store already sorted by timestamp ascending.
func (s *Scheduler) processUser(ctx context.Context, username string, start, end time.Time, policy *models.RuntimeConfig) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	events, err := s.breaker.Execute(func() ([]models.Event, error) {
		return s.store.QueryEvents(ctx, username, start, end)
	})
	if err != nil {
		return fmt.Errorf("failed to query events: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	user, err := s.store.GetOrCreateUser(ctx, username)
	if err != nil {
		return fmt.Errorf("failed to resolve user: %w", err)
	}
	return s.processor.ProcessEvents(ctx, user, events, policy)
}

// compile-time interface checks
var (
	_ Store     = (*database.DB)(nil)
	_ Processor = (*detection.Processor)(nil)
)
