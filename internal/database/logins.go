// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/certalo/loginwatch/internal/metrics"
	"github.com/certalo/loginwatch/internal/models"
)

// HasLoginWithAgent reports whether any login for the user carries the given
// user agent.
func (db *DB) HasLoginWithAgent(ctx context.Context, userID int64, agent string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT count(*) FROM logins WHERE user_id = ? AND user_agent = ?`,
		userID, agent,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query logins by agent: %w", err)
	}
	return n > 0, nil
}

// HasLoginFromCountry reports whether any login for the user originates from
// the given country.
func (db *DB) HasLoginFromCountry(ctx context.Context, userID int64, country string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT count(*) FROM logins WHERE user_id = ? AND country = ?`,
		userID, country,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query logins by country: %w", err)
	}
	return n > 0, nil
}

// HasLoginKey reports whether a login row exists for the user with exactly
// the given (user_agent, country, index) identity.
func (db *DB) HasLoginKey(ctx context.Context, userID int64, agent, country, index string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT count(*) FROM logins WHERE user_id = ? AND user_agent = ? AND country = ? AND index_name = ?`,
		userID, agent, country, index,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query logins by key: %w", err)
	}
	return n > 0, nil
}

// LastLoginBefore returns the most recent login for the user strictly before
// ts, or ErrNotFound. Logins sharing the maximum timestamp are broken by the
// lexicographically greatest user agent, keeping the choice deterministic.
func (db *DB) LastLoginBefore(ctx context.Context, userID int64, ts time.Time) (*models.Login, error) {
	var l models.Login
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, event_timestamp, latitude, longitude, country, user_agent, index_name, updated
		   FROM logins
		  WHERE user_id = ? AND event_timestamp < ?
		  ORDER BY event_timestamp DESC, user_agent DESC
		  LIMIT 1`,
		userID, ts.UTC(),
	).Scan(&l.ID, &l.UserID, &l.Timestamp, &l.Latitude, &l.Longitude, &l.Country, &l.UserAgent, &l.Index, &l.Updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last login: %w", err)
	}
	l.Timestamp = l.Timestamp.UTC()
	return &l, nil
}

// UpsertLogin inserts the login or, when a row with the same
// (user, user_agent, country, index) already exists, refreshes its
// timestamp, coordinates, and watermark.
func (db *DB) UpsertLogin(ctx context.Context, l *models.Login) error {
	start := time.Now()
	defer func() {
		metrics.DBQueryDuration.WithLabelValues("upsert", "logins").Observe(time.Since(start).Seconds())
	}()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO logins (user_id, event_timestamp, latitude, longitude, country, user_agent, index_name, updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, user_agent, country, index_name) DO UPDATE SET
			event_timestamp = excluded.event_timestamp,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			updated = excluded.updated`,
		l.UserID, l.Timestamp.UTC(), l.Latitude, l.Longitude, l.Country, l.UserAgent, l.Index, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert login: %w", err)
	}
	return nil
}

// ListLogins returns all logins for the user ordered by timestamp.
func (db *DB) ListLogins(ctx context.Context, userID int64) ([]models.Login, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, event_timestamp, latitude, longitude, country, user_agent, index_name, updated
		   FROM logins WHERE user_id = ? ORDER BY event_timestamp`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list logins: %w", err)
	}
	defer closeQuietly(rows)

	var logins []models.Login
	for rows.Next() {
		var l models.Login
		if err := rows.Scan(&l.ID, &l.UserID, &l.Timestamp, &l.Latitude, &l.Longitude,
			&l.Country, &l.UserAgent, &l.Index, &l.Updated); err != nil {
			return nil, fmt.Errorf("failed to scan login: %w", err)
		}
		l.Timestamp = l.Timestamp.UTC()
		logins = append(logins, l)
	}
	return logins, rows.Err()
}

// DeleteStaleLogins deletes logins whose watermark is older than the cutoff.
func (db *DB) DeleteStaleLogins(ctx context.Context, cutoff time.Time) (int64, error) {
	return db.deleteStale(ctx, "logins", cutoff)
}

// deleteStale removes rows older than the cutoff from a dependent table.
func (db *DB) deleteStale(ctx context.Context, table string, cutoff time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE updated < ?`, table), cutoff, //nolint:gosec // table names are package constants
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale rows from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil //nolint:nilerr // row count is advisory
	}
	return n, nil
}
