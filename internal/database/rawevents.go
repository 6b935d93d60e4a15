// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/certalo/loginwatch/internal/metrics"
	"github.com/certalo/loginwatch/internal/models"
)

// InsertRawEvent stores an ingested authentication event in the local mirror
// of the upstream log store.
func (db *DB) InsertRawEvent(ctx context.Context, username string, e *models.Event) error {
	start := time.Now()
	defer func() {
		metrics.DBQueryDuration.WithLabelValues("insert", "raw_events").Observe(time.Since(start).Seconds())
	}()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO raw_events (id, username, event_id, index_name, ip, latitude, longitude, country, user_agent, event_timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), username, e.ID, e.Index, e.IP,
		e.Latitude, e.Longitude, e.Country, e.UserAgent, e.Timestamp.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert raw event: %w", err)
	}
	return nil
}

// QueryEvents returns the user's events with start <= event_timestamp < end,
// ordered by timestamp ascending.
func (db *DB) QueryEvents(ctx context.Context, username string, start, end time.Time) ([]models.Event, error) {
	qstart := time.Now()
	defer func() {
		metrics.DBQueryDuration.WithLabelValues("select", "raw_events").Observe(time.Since(qstart).Seconds())
	}()

	rows, err := db.conn.QueryContext(ctx,
		`SELECT event_id, index_name, ip, latitude, longitude, country, user_agent, event_timestamp
		   FROM raw_events
		  WHERE username = ? AND event_timestamp >= ? AND event_timestamp < ?
		  ORDER BY event_timestamp`,
		username, start.UTC(), end.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for %q: %w", username, err)
	}
	defer closeQuietly(rows)

	var events []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.Index, &e.IP, &e.Latitude, &e.Longitude,
			&e.Country, &e.UserAgent, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Timestamp = e.Timestamp.UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}

// DistinctUsernames returns the usernames with at least one event in
// [start, end), ordered for deterministic scheduling.
func (db *DB) DistinctUsernames(ctx context.Context, start, end time.Time) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT username FROM raw_events
		  WHERE event_timestamp >= ? AND event_timestamp < ?
		  ORDER BY username`,
		start.UTC(), end.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query distinct usernames: %w", err)
	}
	defer closeQuietly(rows)

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan username: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// DeleteStaleRawEvents deletes mirrored events older than the cutoff by
// event timestamp.
func (db *DB) DeleteStaleRawEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM raw_events WHERE event_timestamp < ?`, cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale raw events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil //nolint:nilerr // row count is advisory
	}
	return n, nil
}
