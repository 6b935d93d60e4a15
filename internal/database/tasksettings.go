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

	"github.com/certalo/loginwatch/internal/models"
)

// GetTask returns the persisted window pointer for the named task, or
// ErrNotFound when the task has never run.
func (db *DB) GetTask(ctx context.Context, name string) (*models.TaskSettings, error) {
	var t models.TaskSettings
	err := db.conn.QueryRowContext(ctx,
		`SELECT task_name, start_date, end_date FROM task_settings WHERE task_name = ?`,
		name,
	).Scan(&t.TaskName, &t.StartDate, &t.EndDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query task %q: %w", name, err)
	}
	t.StartDate = t.StartDate.UTC()
	t.EndDate = t.EndDate.UTC()
	return &t, nil
}

// CreateTask records the initial window pointer for a task.
func (db *DB) CreateTask(ctx context.Context, t *models.TaskSettings) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO task_settings (task_name, start_date, end_date) VALUES (?, ?, ?)`,
		t.TaskName, t.StartDate.UTC(), t.EndDate.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to create task %q: %w", t.TaskName, err)
	}
	return nil
}

// AdvanceTask moves the task pointer from (prevStart, prevEnd) to
// (newStart, newEnd). The update is conditional on the previous bounds still
// being in place; a concurrent advance makes it a no-op and returns
// ErrStaleWindow so the caller can abandon its pass.
func (db *DB) AdvanceTask(ctx context.Context, name string, prevStart, prevEnd, newStart, newEnd time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE task_settings SET start_date = ?, end_date = ?
		  WHERE task_name = ? AND start_date = ? AND end_date = ?`,
		newStart.UTC(), newEnd.UTC(), name, prevStart.UTC(), prevEnd.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to advance task %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected for task %q: %w", name, err)
	}
	if n == 0 {
		return ErrStaleWindow
	}
	return nil
}
