// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

// Package database owns the DuckDB store: connection lifecycle, schema, and
// the narrow repositories the detection pipeline depends on (logins, alerts,
// user IPs, users, task settings, runtime config, raw events).
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/certalo/loginwatch/internal/config"
	"github.com/certalo/loginwatch/internal/logging"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("database: not found")

// ErrStaleWindow is returned when a conditional task-window advance does not
// match the persisted pointer, indicating a concurrent writer.
var ErrStaleWindow = errors.New("database: task window advanced by another writer")

// DB wraps the DuckDB connection and provides the data access methods used
// by the pipeline and the admin API.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New opens the database and initializes the schema.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	numThreads := cfg.Threads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	connStr := cfg.Path
	if cfg.Path != ":memory:" && cfg.Path != "" {
		// Ensure the parent directory exists before DuckDB opens the file.
		dbDir := filepath.Dir(cfg.Path)
		if dbDir != "" && dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dbDir, err)
			}
		}
		connStr = fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s",
			cfg.Path, numThreads, cfg.MaxMemory)
	}

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg}

	db.configureConnectionPool(numThreads)

	if err := db.createSchema(); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// configureConnectionPool applies pool settings sized to the thread budget.
func (db *DB) configureConnectionPool(numThreads int) {
	db.conn.SetMaxOpenConns(numThreads)
	db.conn.SetMaxIdleConns(2)
	db.conn.SetConnMaxLifetime(time.Hour)
	db.conn.SetConnMaxIdleTime(5 * time.Minute)
}

// Conn returns the underlying SQL connection. Intended for tests and for
// packages that need transactional access.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Ping checks if the database connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	if db.conn == nil {
		return fmt.Errorf("database connection is nil")
	}
	return db.conn.PingContext(ctx)
}

// Close checkpoints and closes the database connection.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		logging.Warn().Err(err).Msg("failed to checkpoint database before close")
	}
	return db.conn.Close()
}

// closeQuietly closes a resource, discarding the error. Used on cleanup
// paths where a close failure has no recovery.
func closeQuietly(c interface{ Close() error }) {
	_ = c.Close()
}
