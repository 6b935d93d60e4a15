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

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createSchema creates sequences, tables, and indexes.
func (db *DB) createSchema() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		`CREATE SEQUENCE IF NOT EXISTS seq_users_id START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_logins_id START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_users_ips_id START 1`,
		`CREATE SEQUENCE IF NOT EXISTS seq_alerts_id START 1`,

		// Monitored principals. risk_score is maintained by the risk
		// aggregator; updated is the retention watermark.
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_users_id'),
			username TEXT NOT NULL UNIQUE,
			risk_score TEXT NOT NULL DEFAULT 'No risk',
			updated TIMESTAMP NOT NULL
		)`,

		// Canonical login records. (user_id, user_agent, country, index_name)
		// identifies at most one row; repeated observations refresh it.
		`CREATE TABLE IF NOT EXISTS logins (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_logins_id'),
			user_id BIGINT NOT NULL,
			event_timestamp TIMESTAMP NOT NULL,
			latitude DOUBLE NOT NULL DEFAULT 0,
			longitude DOUBLE NOT NULL DEFAULT 0,
			country TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			index_name TEXT NOT NULL DEFAULT '',
			updated TIMESTAMP NOT NULL,
			UNIQUE (user_id, user_agent, country, index_name)
		)`,

		// Source IPs ever observed per user.
		`CREATE TABLE IF NOT EXISTS users_ips (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_users_ips_id'),
			user_id BIGINT NOT NULL,
			ip TEXT NOT NULL,
			updated TIMESTAMP NOT NULL,
			UNIQUE (user_id, ip)
		)`,

		// Raised detections. filter_type is a JSON array of filter reasons;
		// login_raw_data is the verbatim triggering event.
		`CREATE TABLE IF NOT EXISTS alerts (
			id BIGINT PRIMARY KEY DEFAULT nextval('seq_alerts_id'),
			user_id BIGINT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL,
			login_raw_data TEXT NOT NULL DEFAULT '{}',
			is_filtered BOOLEAN NOT NULL DEFAULT FALSE,
			filter_type TEXT NOT NULL DEFAULT '[]',
			updated TIMESTAMP NOT NULL
		)`,

		// Process-wide alerting policy singleton.
		`CREATE TABLE IF NOT EXISTS app_config (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			allowed_countries TEXT NOT NULL DEFAULT '[]',
			vip_users TEXT NOT NULL DEFAULT '[]',
			alert_is_vip_only BOOLEAN NOT NULL DEFAULT FALSE,
			updated TIMESTAMP NOT NULL
		)`,

		// Per-task window pointer.
		`CREATE TABLE IF NOT EXISTS task_settings (
			task_name TEXT PRIMARY KEY,
			start_date TIMESTAMP NOT NULL,
			end_date TIMESTAMP NOT NULL
		)`,

		// Ingested mirror of the upstream log store. The scheduler queries
		// this table per user and window.
		`CREATE TABLE IF NOT EXISTS raw_events (
			id UUID PRIMARY KEY,
			username TEXT NOT NULL,
			event_id TEXT NOT NULL DEFAULT '',
			index_name TEXT NOT NULL DEFAULT '',
			ip TEXT NOT NULL DEFAULT '',
			latitude DOUBLE NOT NULL DEFAULT 0,
			longitude DOUBLE NOT NULL DEFAULT 0,
			country TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			event_timestamp TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return db.createIndexes(ctx)
}

func (db *DB) createIndexes(ctx context.Context) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_logins_user ON logins (user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_logins_user_ts ON logins (user_id, event_timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_user ON alerts (user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_updated ON alerts (updated)`,
		`CREATE INDEX IF NOT EXISTS idx_users_ips_user ON users_ips (user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_raw_events_user_ts ON raw_events (username, event_timestamp)`,
	}

	for _, query := range indexes {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
