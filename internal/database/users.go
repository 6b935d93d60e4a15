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

// GetUser returns the user with the given username, or ErrNotFound.
func (db *DB) GetUser(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, username, risk_score, updated FROM users WHERE username = ?`,
		username,
	).Scan(&u.ID, &u.Username, &u.RiskScore, &u.Updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user %q: %w", username, err)
	}
	return &u, nil
}

// GetOrCreateUser returns the user for the username, creating it with a
// NoRisk score on first observation. The updated watermark is touched either
// way.
func (db *DB) GetOrCreateUser(ctx context.Context, username string) (*models.User, error) {
	start := time.Now()
	defer func() {
		metrics.DBQueryDuration.WithLabelValues("upsert", "users").Observe(time.Since(start).Seconds())
	}()

	now := time.Now().UTC()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (username, risk_score, updated) VALUES (?, ?, ?)
		 ON CONFLICT (username) DO UPDATE SET updated = excluded.updated`,
		username, string(models.RiskNone), now,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user %q: %w", username, err)
	}
	return db.GetUser(ctx, username)
}

// ListUsers returns all monitored users ordered by username.
func (db *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, username, risk_score, updated FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer closeQuietly(rows)

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.RiskScore, &u.Updated); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateRiskScore writes a user's risk label and touches the watermark.
func (db *DB) UpdateRiskScore(ctx context.Context, userID int64, score models.RiskScore) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE users SET risk_score = ?, updated = ? WHERE id = ?`,
		string(score), time.Now().UTC(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update risk score for user %d: %w", userID, err)
	}
	return nil
}

// DeleteStaleUsers deletes users whose updated watermark is older than the
// cutoff and that have no dependents newer than the cutoff. Dependents are
// expected to have been cleaned first; this guard keeps a user alive while
// any recent login, alert, or IP row still references it.
func (db *DB) DeleteStaleUsers(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM users WHERE updated < ?
		   AND NOT EXISTS (SELECT 1 FROM logins l WHERE l.user_id = users.id)
		   AND NOT EXISTS (SELECT 1 FROM alerts a WHERE a.user_id = users.id)
		   AND NOT EXISTS (SELECT 1 FROM users_ips i WHERE i.user_id = users.id)`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale users: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil //nolint:nilerr // row count is advisory
	}
	return n, nil
}
