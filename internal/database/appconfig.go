// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/certalo/loginwatch/internal/models"
)

// GetRuntimeConfig returns a snapshot of the alerting policy singleton. A
// fresh database yields the zero policy: no allowed countries, no VIPs,
// vip-only off.
func (db *DB) GetRuntimeConfig(ctx context.Context) (*models.RuntimeConfig, error) {
	var (
		cfg           models.RuntimeConfig
		allowed, vips string
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT allowed_countries, vip_users, alert_is_vip_only, updated
		   FROM app_config WHERE id = 1`,
	).Scan(&allowed, &vips, &cfg.AlertIsVIPOnly, &cfg.Updated)
	if err != nil {
		// Treat a missing row the same as the zero policy; it is created
		// lazily on the first update.
		return &models.RuntimeConfig{}, nil //nolint:nilerr
	}
	if err := json.Unmarshal([]byte(allowed), &cfg.AllowedCountries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal allowed countries: %w", err)
	}
	if err := json.Unmarshal([]byte(vips), &cfg.VIPUsers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal vip users: %w", err)
	}
	return &cfg, nil
}

// UpdateRuntimeConfig replaces the alerting policy singleton.
func (db *DB) UpdateRuntimeConfig(ctx context.Context, cfg *models.RuntimeConfig) error {
	allowed, err := json.Marshal(emptyIfNil(cfg.AllowedCountries))
	if err != nil {
		return fmt.Errorf("failed to marshal allowed countries: %w", err)
	}
	vips, err := json.Marshal(emptyIfNil(cfg.VIPUsers))
	if err != nil {
		return fmt.Errorf("failed to marshal vip users: %w", err)
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO app_config (id, allowed_countries, vip_users, alert_is_vip_only, updated)
		 VALUES (1, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			allowed_countries = excluded.allowed_countries,
			vip_users = excluded.vip_users,
			alert_is_vip_only = excluded.alert_is_vip_only,
			updated = excluded.updated`,
		string(allowed), string(vips), cfg.AlertIsVIPOnly, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to update runtime config: %w", err)
	}
	return nil
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
