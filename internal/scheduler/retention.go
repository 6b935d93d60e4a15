// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/certalo/loginwatch/internal/config"
	"github.com/certalo/loginwatch/internal/database"
	"github.com/certalo/loginwatch/internal/logging"
	"github.com/certalo/loginwatch/internal/metrics"
)

// RetentionStore is the deletion surface of the retention cleaner.
// *database.DB satisfies it.
type RetentionStore interface {
	DeleteStaleLogins(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteStaleAlerts(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteStaleUserIPs(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteStaleUsers(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteStaleRawEvents(ctx context.Context, cutoff time.Time) (int64, error)
}

// Retention sweeps rows whose updated watermark predates the retention
// horizon. Dependents go first so a user row is only removed once nothing
// references it. Interruptible and resume-safe; a partial sweep just leaves
// work for the next interval.
type Retention struct {
	store RetentionStore
	cfg   config.RetentionConfig
	now   func() time.Time
}

// NewRetention creates a retention cleaner.
func NewRetention(store RetentionStore, cfg config.RetentionConfig) *Retention {
	return &Retention{store: store, cfg: cfg, now: time.Now}
}

// Serve implements suture.Service.
func (r *Retention) Serve(ctx context.Context) error {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.RunOnce(ctx); err != nil {
				logging.Error().Err(err).Msg("retention sweep failed")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (r *Retention) String() string {
	return "retention-cleaner"
}

// RunOnce performs one full sweep.
func (r *Retention) RunOnce(ctx context.Context) error {
	cutoff := r.now().UTC().Add(-r.cfg.Horizon())

	deletions := []struct {
		table string
		fn    func(context.Context, time.Time) (int64, error)
	}{
		{"logins", r.store.DeleteStaleLogins},
		{"alerts", r.store.DeleteStaleAlerts},
		{"users_ips", r.store.DeleteStaleUserIPs},
		{"users", r.store.DeleteStaleUsers},
		{"raw_events", r.store.DeleteStaleRawEvents},
	}

	for _, d := range deletions {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := d.fn(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("failed to sweep %s: %w", d.table, err)
		}
		if n > 0 {
			metrics.RetentionDeleted.WithLabelValues(d.table).Add(float64(n))
			logging.Info().Str("table", d.table).Int64("rows", n).Msg("stale rows deleted")
		}
	}
	return nil
}

var _ RetentionStore = (*database.DB)(nil)
