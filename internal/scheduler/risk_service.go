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
	"github.com/certalo/loginwatch/internal/detection"
	"github.com/certalo/loginwatch/internal/logging"
	"github.com/certalo/loginwatch/internal/models"
)

// UserLister enumerates monitored users. *database.DB satisfies it.
type UserLister interface {
	ListUsers(ctx context.Context) ([]models.User, error)
}

// RiskService periodically recomputes every user's risk label from its
// unfiltered alert volume. Idempotent per sweep.
type RiskService struct {
	users UserLister
	agg   *detection.RiskAggregator
	cfg   config.RiskConfig
}

// NewRiskService creates a risk aggregation sweep service.
func NewRiskService(users UserLister, agg *detection.RiskAggregator, cfg config.RiskConfig) *RiskService {
	return &RiskService{users: users, agg: agg, cfg: cfg}
}

// Serve implements suture.Service.
func (s *RiskService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				logging.Error().Err(err).Msg("risk sweep failed")
			}
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (s *RiskService) String() string {
	return "risk-aggregator"
}

// RunOnce recomputes all users' risk labels. A per-user failure does not
// stop the sweep.
func (s *RiskService) RunOnce(ctx context.Context) error {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	var failures int
	for i := range users {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := s.agg.UpdateUser(ctx, &users[i]); err != nil {
			failures++
			logging.Error().Err(err).Str("username", users[i].Username).Msg("risk update failed")
		}
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d risk updates failed", failures, len(users))
	}
	return nil
}

var _ UserLister = (*database.DB)(nil)
