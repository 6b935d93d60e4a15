// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

package config

import (
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Detection.VelocityMaxKmH != 300 {
		t.Errorf("velocity_max_kmh default = %d, want 300", cfg.Detection.VelocityMaxKmH)
	}
	if cfg.Scheduler.SlideMinutes != 30 {
		t.Errorf("slide_minutes default = %d, want 30", cfg.Scheduler.SlideMinutes)
	}
	if cfg.Scheduler.DataLossMinutes != 60 {
		t.Errorf("data_loss_minutes default = %d, want 60", cfg.Scheduler.DataLossMinutes)
	}
	if cfg.Scheduler.MaxSubwindowsPerInvocation != 6 {
		t.Errorf("max_subwindows default = %d, want 6", cfg.Scheduler.MaxSubwindowsPerInvocation)
	}
	if cfg.Scheduler.SubwindowTimeout != 5*time.Minute {
		t.Errorf("subwindow_timeout default = %v, want 5m", cfg.Scheduler.SubwindowTimeout)
	}
	if cfg.Retention.Days != 90 {
		t.Errorf("retention_days default = %d, want 90", cfg.Retention.Days)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestDerivedDurations(t *testing.T) {
	sc := SchedulerConfig{SlideMinutes: 30, DataLossMinutes: 60}
	if sc.Slide() != 30*time.Minute {
		t.Errorf("Slide() = %v, want 30m", sc.Slide())
	}
	if sc.DataLossThreshold() != time.Hour {
		t.Errorf("DataLossThreshold() = %v, want 1h", sc.DataLossThreshold())
	}

	rc := RetentionConfig{Days: 90}
	if rc.Horizon() != 90*24*time.Hour {
		t.Errorf("Horizon() = %v, want 2160h", rc.Horizon())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty database path", func(c *Config) { c.Database.Path = "" }},
		{"port out of range", func(c *Config) { c.Server.Port = 0 }},
		{"zero velocity threshold", func(c *Config) { c.Detection.VelocityMaxKmH = 0 }},
		{"negative slide", func(c *Config) { c.Scheduler.SlideMinutes = -1 }},
		{"data loss below slide", func(c *Config) { c.Scheduler.DataLossMinutes = 10 }},
		{"zero subwindow cap", func(c *Config) { c.Scheduler.MaxSubwindowsPerInvocation = 0 }},
		{"zero workers", func(c *Config) { c.Scheduler.Workers = 0 }},
		{"zero retention", func(c *Config) { c.Retention.Days = 0 }},
		{"nats without url or embedded", func(c *Config) {
			c.NATS.Enabled = true
			c.NATS.URL = ""
			c.NATS.EmbeddedServer = false
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestEnvTransform(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"VELOCITY_MAX_KMH", "detection.velocity_max_kmh"},
		{"SLIDE_MINUTES", "scheduler.slide_minutes"},
		{"DATA_LOSS_MINUTES", "scheduler.data_loss_minutes"},
		{"RETENTION_DAYS", "retention.days"},
		{"DUCKDB_PATH", "database.path"},
		{"HOME", ""},
		{"RANDOM_UNRELATED_VAR", ""},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.in); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
