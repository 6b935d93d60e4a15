// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

// Package main is the entry point for the Loginwatch server.
//
// Loginwatch watches normalized authentication events for behavioral
// anomalies: logins from new devices, logins from new countries, and
// impossible travel between successive logins. Alerts are filtered by a
// runtime policy (VIP users, allowed countries), aggregated into per-user
// risk labels, and exposed through an admin HTTP API.
//
// # Startup order
//
//  1. Configuration: Koanf v2 layered loading (defaults, config.yaml, env)
//  2. Logging: zerolog global logger
//  3. Database: DuckDB store with schema bootstrap
//  4. NATS intake: embedded JetStream server (optional) and consumer
//  5. Supervisor tree: pipeline, intake, and API layers under suture
//
// # Signal handling
//
// SIGINT and SIGTERM cancel the root context; the supervisor tree shuts
// services down gracefully and the store is checkpointed on close.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/certalo/loginwatch/internal/api"
	"github.com/certalo/loginwatch/internal/config"
	"github.com/certalo/loginwatch/internal/database"
	"github.com/certalo/loginwatch/internal/detection"
	"github.com/certalo/loginwatch/internal/ingest"
	"github.com/certalo/loginwatch/internal/logging"
	"github.com/certalo/loginwatch/internal/scheduler"
	"github.com/certalo/loginwatch/internal/supervisor"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("server exited")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Warn().Err(err).Msg("failed to close database")
		}
	}()
	logging.Info().Str("path", cfg.Database.Path).Msg("database ready")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Supervisor events go through slog; application logs stay on zerolog.
	slogger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	tree := supervisor.NewTree(slogger, supervisor.DefaultTreeConfig())

	processor := detection.NewProcessor(db, cfg.Detection.VelocityMaxKmH)
	tree.AddPipelineService(scheduler.New(db, processor, cfg.Scheduler))

	riskAgg := detection.NewRiskAggregator(db, cfg.Risk.Lookback)
	tree.AddPipelineService(scheduler.NewRiskService(db, riskAgg, cfg.Risk))
	tree.AddPipelineService(scheduler.NewRetention(db, cfg.Retention))

	if cfg.NATS.Enabled {
		natsCfg := cfg.NATS
		if natsCfg.EmbeddedServer {
			embedded, err := ingest.NewEmbeddedServer(&natsCfg)
			if err != nil {
				return err
			}
			defer func() {
				if err := embedded.Shutdown(context.Background()); err != nil {
					logging.Warn().Err(err).Msg("failed to stop embedded NATS server")
				}
			}()
			natsCfg.URL = embedded.ClientURL()
			logging.Info().Str("url", natsCfg.URL).Msg("embedded NATS server started")
		}

		sub, err := ingest.NewSubscriber(&natsCfg, nil)
		if err != nil {
			return err
		}
		defer func() {
			if err := sub.Close(); err != nil {
				logging.Warn().Err(err).Msg("failed to close subscriber")
			}
		}()
		tree.AddIntakeService(ingest.NewConsumer(sub, db, natsCfg.Topic))
	}

	if cfg.Security.JWTSecret == "" {
		logging.Warn().Msg("admin API authentication disabled, set security.jwt_secret in production")
	}
	router := api.NewRouter(db, cfg.Security)
	tree.AddAPIService(api.NewServer(router.Handler(), cfg.Server))

	logging.Info().Msg("starting supervisor tree")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logging.Info().Msg("shutdown complete")
	return nil
}
