// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

// Package config provides layered configuration loading for Loginwatch:
// built-in defaults, an optional YAML file, and environment variables, in
// increasing order of precedence.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the service.
type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	NATS      NATSConfig      `koanf:"nats"`
	Detection DetectionConfig `koanf:"detection"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Retention RetentionConfig `koanf:"retention"`
	Risk      RiskConfig      `koanf:"risk"`
	Security  SecurityConfig  `koanf:"security"`
}

// DatabaseConfig configures the DuckDB store.
type DatabaseConfig struct {
	// Path is the database file path; ":memory:" opens an in-memory store.
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	// Threads <= 0 uses runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// ServerConfig configures the admin HTTP server.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// NATSConfig configures the authentication-event intake stream.
type NATSConfig struct {
	Enabled        bool   `koanf:"enabled"`
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	// Topic is the subject carrying normalized authentication events.
	Topic       string `koanf:"topic"`
	DurableName string `koanf:"durable_name"`
	QueueGroup  string `koanf:"queue_group"`
}

// DetectionConfig configures the detectors.
type DetectionConfig struct {
	// VelocityMaxKmH is the ground-speed ceiling for plausible travel.
	VelocityMaxKmH int `koanf:"velocity_max_kmh"`
}

// SchedulerConfig configures the ingestion scheduler.
type SchedulerConfig struct {
	// Interval is how often the process_logs task is invoked.
	Interval time.Duration `koanf:"interval"`
	// SlideMinutes is the width of one sub-window of forward progress.
	SlideMinutes int `koanf:"slide_minutes"`
	// DataLossMinutes is the pointer lag beyond which the window is reset.
	DataLossMinutes int `koanf:"data_loss_minutes"`
	// MaxSubwindowsPerInvocation bounds catch-up work per invocation.
	MaxSubwindowsPerInvocation int `koanf:"max_subwindows_per_invocation"`
	// SubwindowTimeout is the deadline for processing one sub-window.
	SubwindowTimeout time.Duration `koanf:"subwindow_timeout"`
	// Workers is the number of concurrent per-user processing workers.
	Workers int `koanf:"workers"`
	// UserQueriesPerSecond paces log-store queries within a sub-window.
	// Zero disables pacing.
	UserQueriesPerSecond int `koanf:"user_queries_per_second"`
}

// Slide returns the sub-window width as a duration.
func (c SchedulerConfig) Slide() time.Duration {
	return time.Duration(c.SlideMinutes) * time.Minute
}

// DataLossThreshold returns the data-loss lag as a duration.
func (c SchedulerConfig) DataLossThreshold() time.Duration {
	return time.Duration(c.DataLossMinutes) * time.Minute
}

// RetentionConfig configures the retention cleaner.
type RetentionConfig struct {
	Days     int           `koanf:"days"`
	Interval time.Duration `koanf:"interval"`
}

// Horizon returns the retention horizon as a duration.
func (c RetentionConfig) Horizon() time.Duration {
	return time.Duration(c.Days) * 24 * time.Hour
}

// RiskConfig configures the risk aggregator.
type RiskConfig struct {
	Interval time.Duration `koanf:"interval"`
	// Lookback bounds the alert counting window; zero means all time.
	Lookback time.Duration `koanf:"lookback"`
}

// SecurityConfig configures admin API authentication.
type SecurityConfig struct {
	// JWTSecret signs admin API bearer tokens. Empty disables auth, which is
	// only acceptable for local development.
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

// Validate checks cross-field constraints. It returns an error for settings
// the service cannot run with.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Detection.VelocityMaxKmH <= 0 {
		return fmt.Errorf("detection.velocity_max_kmh must be positive, got %d", c.Detection.VelocityMaxKmH)
	}
	if c.Scheduler.SlideMinutes <= 0 {
		return fmt.Errorf("scheduler.slide_minutes must be positive, got %d", c.Scheduler.SlideMinutes)
	}
	if c.Scheduler.DataLossMinutes < c.Scheduler.SlideMinutes {
		return fmt.Errorf("scheduler.data_loss_minutes (%d) must be >= scheduler.slide_minutes (%d)",
			c.Scheduler.DataLossMinutes, c.Scheduler.SlideMinutes)
	}
	if c.Scheduler.MaxSubwindowsPerInvocation <= 0 {
		return fmt.Errorf("scheduler.max_subwindows_per_invocation must be positive, got %d",
			c.Scheduler.MaxSubwindowsPerInvocation)
	}
	if c.Scheduler.Workers <= 0 {
		return fmt.Errorf("scheduler.workers must be positive, got %d", c.Scheduler.Workers)
	}
	if c.Retention.Days <= 0 {
		return fmt.Errorf("retention.days must be positive, got %d", c.Retention.Days)
	}
	if c.NATS.Enabled && c.NATS.URL == "" && !c.NATS.EmbeddedServer {
		return fmt.Errorf("nats.url must be set when nats is enabled without an embedded server")
	}
	return nil
}
