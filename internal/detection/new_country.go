// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

package detection

import (
	"context"
	"fmt"

	"github.com/certalo/loginwatch/internal/geo"
	"github.com/certalo/loginwatch/internal/models"
)

// NewCountryDetector raises an alert when no prior login for the user
// originates from the event's country. An empty country is not checkable and
// never alerts.
type NewCountryDetector struct {
	logins LoginStore
}

// NewNewCountryDetector creates a new-country detector.
func NewNewCountryDetector(logins LoginStore) *NewCountryDetector {
	return &NewCountryDetector{logins: logins}
}

// Name returns the persisted alert name.
func (d *NewCountryDetector) Name() models.DetectionType {
	return models.DetectionNewCountry
}

// Check evaluates the event against the user's known countries.
func (d *NewCountryDetector) Check(ctx context.Context, user *models.User, event *models.Event) (*Draft, error) {
	if event.Country == "" {
		return nil, nil
	}
	known, err := d.logins.HasLoginFromCountry(ctx, user.ID, event.Country)
	if err != nil {
		return nil, fmt.Errorf("failed to check known countries: %w", err)
	}
	if known {
		return nil, nil
	}
	return &Draft{
		Name: models.DetectionNewCountry,
		Description: fmt.Sprintf("Login from new country for User: %s, at: %s, from: %s",
			user.Username, geo.FormatTimestamp(event.Timestamp), event.Country),
	}, nil
}
