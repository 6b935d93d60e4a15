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

	"github.com/certalo/loginwatch/internal/metrics"
	"github.com/certalo/loginwatch/internal/models"
)

// InsertAlert persists a new alert. filter_type is stored as a JSON array so
// its order survives round trips.
func (db *DB) InsertAlert(ctx context.Context, a *models.Alert) error {
	start := time.Now()
	defer func() {
		metrics.DBQueryDuration.WithLabelValues("insert", "alerts").Observe(time.Since(start).Seconds())
	}()

	filters := a.FilterType
	if filters == nil {
		filters = []models.FilterType{}
	}
	filterJSON, err := json.Marshal(filters)
	if err != nil {
		return fmt.Errorf("failed to marshal filter types: %w", err)
	}

	raw := a.LoginRawData
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO alerts (user_id, name, description, login_raw_data, is_filtered, filter_type, updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, string(a.Name), a.Description, string(raw), a.IsFiltered, string(filterJSON), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// CountUnfilteredAlerts counts alerts for the user with is_filtered = false
// and updated at or after since. A zero since counts all time.
func (db *DB) CountUnfilteredAlerts(ctx context.Context, userID int64, since time.Time) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT count(*) FROM alerts WHERE user_id = ? AND is_filtered = FALSE AND updated >= ?`,
		userID, since.UTC(),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count unfiltered alerts: %w", err)
	}
	return n, nil
}

// ListAlerts returns alerts for the user ordered by insertion, oldest first.
// A zero userID lists alerts across all users.
func (db *DB) ListAlerts(ctx context.Context, userID int64, limit int) ([]models.Alert, error) {
	query := `SELECT id, user_id, name, description, login_raw_data, is_filtered, filter_type, updated
		FROM alerts`
	args := []interface{}{}
	if userID != 0 {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY id`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer closeQuietly(rows)

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		var name, raw, filterJSON string
		if err := rows.Scan(&a.ID, &a.UserID, &name, &a.Description, &raw, &a.IsFiltered, &filterJSON, &a.Updated); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Name = models.DetectionType(name)
		a.LoginRawData = json.RawMessage(raw)
		if err := json.Unmarshal([]byte(filterJSON), &a.FilterType); err != nil {
			return nil, fmt.Errorf("failed to unmarshal filter types: %w", err)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// DeleteStaleAlerts deletes alerts whose watermark is older than the cutoff.
func (db *DB) DeleteStaleAlerts(ctx context.Context, cutoff time.Time) (int64, error) {
	return db.deleteStale(ctx, "alerts", cutoff)
}
