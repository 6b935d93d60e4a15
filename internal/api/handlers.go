// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/certalo/loginwatch/internal/database"
	"github.com/certalo/loginwatch/internal/logging"
	"github.com/certalo/loginwatch/internal/models"
)

// errorResponse is the uniform error envelope.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func (rt *Router) health(w http.ResponseWriter, r *http.Request) {
	if err := rt.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := rt.store.ListUsers(r.Context())
	if err != nil {
		logging.Error().Err(err).Msg("failed to list users")
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []models.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (rt *Router) listLogins(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	user, err := rt.store.GetUser(r.Context(), username)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		logging.Error().Err(err).Str("username", username).Msg("failed to look up user")
		writeError(w, http.StatusInternalServerError, "failed to look up user")
		return
	}

	logins, err := rt.store.ListLogins(r.Context(), user.ID)
	if err != nil {
		logging.Error().Err(err).Str("username", username).Msg("failed to list logins")
		writeError(w, http.StatusInternalServerError, "failed to list logins")
		return
	}
	if logins == nil {
		logins = []models.Login{}
	}
	writeJSON(w, http.StatusOK, logins)
}

// listAlerts returns alerts, optionally restricted to one user via
// ?username= and capped via ?limit=.
func (rt *Router) listAlerts(w http.ResponseWriter, r *http.Request) {
	var userID int64
	if username := r.URL.Query().Get("username"); username != "" {
		user, err := rt.store.GetUser(r.Context(), username)
		if errors.Is(err, database.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		if err != nil {
			logging.Error().Err(err).Str("username", username).Msg("failed to look up user")
			writeError(w, http.StatusInternalServerError, "failed to look up user")
			return
		}
		userID = user.ID
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	alerts, err := rt.store.ListAlerts(r.Context(), userID, limit)
	if err != nil {
		logging.Error().Err(err).Msg("failed to list alerts")
		writeError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}
	if alerts == nil {
		alerts = []models.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (rt *Router) getConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := rt.store.GetRuntimeConfig(r.Context())
	if err != nil {
		logging.Error().Err(err).Msg("failed to read runtime config")
		writeError(w, http.StatusInternalServerError, "failed to read config")
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (rt *Router) putConfig(w http.ResponseWriter, r *http.Request) {
	var cfg models.RuntimeConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid config payload")
		return
	}

	if cfg.AlertIsVIPOnly && len(cfg.VIPUsers) == 0 {
		// Persisted as given; the filter treats it as vip-only off until
		// VIP users are added.
		logging.Warn().Msg("runtime config sets alert_is_vip_only with empty vip_users")
	}

	if err := rt.store.UpdateRuntimeConfig(r.Context(), &cfg); err != nil {
		logging.Error().Err(err).Msg("failed to update runtime config")
		writeError(w, http.StatusInternalServerError, "failed to update config")
		return
	}

	updated, err := rt.store.GetRuntimeConfig(r.Context())
	if err != nil {
		logging.Error().Err(err).Msg("failed to re-read runtime config")
		writeError(w, http.StatusInternalServerError, "failed to read config")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
