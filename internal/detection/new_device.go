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

// NewDeviceDetector raises an alert when no prior login for the user carries
// the event's user agent.
type NewDeviceDetector struct {
	logins LoginStore
}

// NewNewDeviceDetector creates a new-device detector.
func NewNewDeviceDetector(logins LoginStore) *NewDeviceDetector {
	return &NewDeviceDetector{logins: logins}
}

// Name returns the persisted alert name.
func (d *NewDeviceDetector) Name() models.DetectionType {
	return models.DetectionNewDevice
}

// Check evaluates the event against the user's known user agents.
func (d *NewDeviceDetector) Check(ctx context.Context, user *models.User, event *models.Event) (*Draft, error) {
	known, err := d.logins.HasLoginWithAgent(ctx, user.ID, event.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to check known agents: %w", err)
	}
	if known {
		return nil, nil
	}
	return &Draft{
		Name: models.DetectionNewDevice,
		Description: fmt.Sprintf("Login from new device for User: %s, at: %s",
			user.Username, geo.FormatTimestamp(event.Timestamp)),
	}, nil
}
