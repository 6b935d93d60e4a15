// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

package detection

import (
	"context"
	"fmt"
	"time"

	"github.com/certalo/loginwatch/internal/logging"
	"github.com/certalo/loginwatch/internal/metrics"
	"github.com/certalo/loginwatch/internal/models"
)

// RiskAggregator maps each user's unfiltered alert volume to a risk label.
// Idempotent: re-running over an unchanged alert set writes the same label.
type RiskAggregator struct {
	store RiskStore
	// lookback bounds the counting window; zero counts all time.
	lookback time.Duration
	now      func() time.Time
}

// NewRiskAggregator creates a risk aggregator.
func NewRiskAggregator(store RiskStore, lookback time.Duration) *RiskAggregator {
	return &RiskAggregator{store: store, lookback: lookback, now: time.Now}
}

// UpdateUser recomputes and persists one user's risk label, returning it.
func (r *RiskAggregator) UpdateUser(ctx context.Context, user *models.User) (models.RiskScore, error) {
	var since time.Time
	if r.lookback > 0 {
		since = r.now().UTC().Add(-r.lookback)
	}

	n, err := r.store.CountUnfilteredAlerts(ctx, user.ID, since)
	if err != nil {
		return "", fmt.Errorf("failed to count alerts for user %q: %w", user.Username, err)
	}

	score := models.RiskForAlertCount(n)
	if score == user.RiskScore {
		return score, nil
	}
	if err := r.store.UpdateRiskScore(ctx, user.ID, score); err != nil {
		return "", fmt.Errorf("failed to update risk score for user %q: %w", user.Username, err)
	}
	metrics.RiskUpdates.Inc()
	logging.Info().
		Str("username", user.Username).
		Str("previous", string(user.RiskScore)).
		Str("risk", string(score)).
		Int("alerts", n).
		Msg("risk score updated")
	return score, nil
}
