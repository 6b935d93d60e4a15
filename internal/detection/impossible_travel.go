// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

package detection

import (
	"context"
	"errors"
	"fmt"

	"github.com/certalo/loginwatch/internal/database"
	"github.com/certalo/loginwatch/internal/geo"
	"github.com/certalo/loginwatch/internal/models"
)

// ImpossibleTravelDetector raises an alert when the ground velocity required
// to travel from the user's most recent prior login to the candidate event
// exceeds the plausibility threshold.
type ImpossibleTravelDetector struct {
	logins         LoginStore
	velocityMaxKmH int
}

// NewImpossibleTravelDetector creates an impossible-travel detector with the
// given velocity ceiling in km/h.
func NewImpossibleTravelDetector(logins LoginStore, velocityMaxKmH int) *ImpossibleTravelDetector {
	return &ImpossibleTravelDetector{logins: logins, velocityMaxKmH: velocityMaxKmH}
}

// Name returns the persisted alert name.
func (d *ImpossibleTravelDetector) Name() models.DetectionType {
	return models.DetectionImpTravel
}

// Check compares the event against the most recent prior login. Prior logins
// sharing the maximum timestamp are broken deterministically by the store
// (lexicographically greatest user agent). A first-ever login never alerts.
func (d *ImpossibleTravelDetector) Check(ctx context.Context, user *models.User, event *models.Event) (*Draft, error) {
	prev, err := d.logins.LastLoginBefore(ctx, user.ID, event.Timestamp)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last login: %w", err)
	}

	v := geo.Velocity(prev.Latitude, prev.Longitude, prev.Timestamp,
		event.Latitude, event.Longitude, event.Timestamp)
	if v <= float64(d.velocityMaxKmH) {
		return nil, nil
	}

	return &Draft{
		Name: models.DetectionImpTravel,
		Description: fmt.Sprintf(
			"Impossible Travel detected for User: %s, at: %s, from: %s, previous country: %s, distance covered at %d Km/h",
			user.Username, geo.FormatTimestamp(event.Timestamp), event.Country,
			prev.Country, geo.RoundVelocity(v)),
	}, nil
}
