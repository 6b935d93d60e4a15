// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

// Package api exposes the admin HTTP surface: read access to users, alerts,
// and logins, management of the alerting policy, health, and metrics.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/certalo/loginwatch/internal/config"
	"github.com/certalo/loginwatch/internal/database"
	"github.com/certalo/loginwatch/internal/models"
)

// Store is the persistence surface of the admin API. *database.DB
// satisfies it.
type Store interface {
	Ping(ctx context.Context) error
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, username string) (*models.User, error)
	ListAlerts(ctx context.Context, userID int64, limit int) ([]models.Alert, error)
	ListLogins(ctx context.Context, userID int64) ([]models.Login, error)
	GetRuntimeConfig(ctx context.Context) (*models.RuntimeConfig, error)
	UpdateRuntimeConfig(ctx context.Context, cfg *models.RuntimeConfig) error
}

// Router builds the admin HTTP handler.
type Router struct {
	store    Store
	security config.SecurityConfig
}

// NewRouter creates an admin API router over the store.
func NewRouter(store Store, security config.SecurityConfig) *Router {
	return &Router{store: store, security: security}
}

// Handler assembles the chi route tree. Health and metrics stay
// unauthenticated for probes and scrapers; everything under /api/v1
// requires a bearer token when a JWT secret is configured.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/healthz", rt.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rt.authenticate)

		r.Get("/users", rt.listUsers)
		r.Get("/users/{username}/logins", rt.listLogins)
		r.Get("/alerts", rt.listAlerts)
		r.Get("/config", rt.getConfig)
		r.Put("/config", rt.putConfig)
	})

	return r
}

var _ Store = (*database.DB)(nil)
