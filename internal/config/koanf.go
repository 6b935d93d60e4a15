// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order
// of priority. The first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/loginwatch/config.yaml",
	"/etc/loginwatch/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:      "/data/loginwatch.duckdb",
			MaxMemory: "1GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8374,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		NATS: NATSConfig{
			Enabled:        true,
			URL:            "nats://127.0.0.1:4222",
			EmbeddedServer: true,
			StoreDir:       "/data/nats/jetstream",
			Topic:          "auth.logins",
			DurableName:    "login-ingest",
			QueueGroup:     "ingesters",
		},
		Detection: DetectionConfig{
			VelocityMaxKmH: 300,
		},
		Scheduler: SchedulerConfig{
			Interval:                   30 * time.Minute,
			SlideMinutes:               30,
			DataLossMinutes:            60,
			MaxSubwindowsPerInvocation: 6,
			SubwindowTimeout:           5 * time.Minute,
			Workers:                    4,
			UserQueriesPerSecond:       0, // Unpaced
		},
		Retention: RetentionConfig{
			Days:     90,
			Interval: 24 * time.Hour,
		},
		Risk: RiskConfig{
			Interval: 10 * time.Minute,
			Lookback: 0, // All time
		},
		Security: SecurityConfig{
			JWTSecret: "",
			TokenTTL:  24 * time.Hour,
		},
	}
}

// Load builds the configuration from layered sources:
//  1. Defaults: built-in values from defaultConfig
//  2. Config file: optional YAML file
//  3. Environment variables: highest priority
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file path, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables are dropped so arbitrary environment does not pollute
// the configuration.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Database
		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",

		// Server
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		// NATS intake
		"nats_enabled":      "nats.enabled",
		"nats_url":          "nats.url",
		"nats_embedded":     "nats.embedded_server",
		"nats_store_dir":    "nats.store_dir",
		"nats_topic":        "nats.topic",
		"nats_durable_name": "nats.durable_name",
		"nats_queue_group":  "nats.queue_group",

		// Detection
		"velocity_max_kmh": "detection.velocity_max_kmh",

		// Scheduler
		"scheduler_interval":            "scheduler.interval",
		"slide_minutes":                 "scheduler.slide_minutes",
		"data_loss_minutes":             "scheduler.data_loss_minutes",
		"max_subwindows_per_invocation": "scheduler.max_subwindows_per_invocation",
		"subwindow_timeout":             "scheduler.subwindow_timeout",
		"scheduler_workers":             "scheduler.workers",
		"user_queries_per_second":       "scheduler.user_queries_per_second",

		// Retention
		"retention_days":     "retention.days",
		"retention_interval": "retention.interval",

		// Risk
		"risk_interval": "risk.interval",
		"risk_lookback": "risk.lookback",

		// Security
		"jwt_secret": "security.jwt_secret",
		"token_ttl":  "security.token_ttl",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
