// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

package database

import (
	"context"
	"fmt"
	"time"
)

// IPKnown reports whether the IP has ever been observed for the user.
func (db *DB) IPKnown(ctx context.Context, userID int64, ip string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT count(*) FROM users_ips WHERE user_id = ? AND ip = ?`,
		userID, ip,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query users_ips: %w", err)
	}
	return n > 0, nil
}

// UpsertUserIP records the IP for the user, refreshing the watermark when
// the pair already exists. (user_id, ip) stays unique.
func (db *DB) UpsertUserIP(ctx context.Context, userID int64, ip string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users_ips (user_id, ip, updated) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, ip) DO UPDATE SET updated = excluded.updated`,
		userID, ip, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert users_ip: %w", err)
	}
	return nil
}

// CountUserIPs returns the number of distinct IPs recorded for the user.
func (db *DB) CountUserIPs(ctx context.Context, userID int64) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT count(*) FROM users_ips WHERE user_id = ?`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count users_ips: %w", err)
	}
	return n, nil
}

// DeleteStaleUserIPs deletes IP rows whose watermark is older than the cutoff.
func (db *DB) DeleteStaleUserIPs(ctx context.Context, cutoff time.Time) (int64, error) {
	return db.deleteStale(ctx, "users_ips", cutoff)
}
