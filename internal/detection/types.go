// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

// Package detection implements the three login anomaly detectors, the alert
// filter, the per-user field processor, and the risk aggregator. Detectors
// depend only on the narrow store interfaces below, never on a query layer.
package detection

import (
	"context"
	"time"

	"github.com/certalo/loginwatch/internal/models"
)

// LoginStore is the login history surface the detectors read and the
// processor writes. *database.DB satisfies it.
type LoginStore interface {
	HasLoginWithAgent(ctx context.Context, userID int64, agent string) (bool, error)
	HasLoginFromCountry(ctx context.Context, userID int64, country string) (bool, error)
	HasLoginKey(ctx context.Context, userID int64, agent, country, index string) (bool, error)
	LastLoginBefore(ctx context.Context, userID int64, ts time.Time) (*models.Login, error)
	UpsertLogin(ctx context.Context, l *models.Login) error
}

// AlertStore persists raised alerts.
type AlertStore interface {
	InsertAlert(ctx context.Context, a *models.Alert) error
}

// UserIPStore tracks source IPs per user.
type UserIPStore interface {
	IPKnown(ctx context.Context, userID int64, ip string) (bool, error)
	UpsertUserIP(ctx context.Context, userID int64, ip string) error
}

// Store is the full persistence surface the field processor needs.
type Store interface {
	LoginStore
	AlertStore
	UserIPStore
}

// RiskStore is the surface the risk aggregator needs.
type RiskStore interface {
	CountUnfilteredAlerts(ctx context.Context, userID int64, since time.Time) (int, error)
	UpdateRiskScore(ctx context.Context, userID int64, score models.RiskScore) error
}

// Draft is a detector's pending alert before filtering and persistence.
type Draft struct {
	Name        models.DetectionType
	Description string
}

// Detector evaluates one candidate event against the user's prior login
// history. A nil draft with a nil error means no anomaly.
type Detector interface {
	Name() models.DetectionType
	Check(ctx context.Context, user *models.User, event *models.Event) (*Draft, error)
}
