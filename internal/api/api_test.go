// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/certalo/loginwatch/internal/config"
	"github.com/certalo/loginwatch/internal/database"
	"github.com/certalo/loginwatch/internal/models"
)

type mockAPIStore struct {
	users  map[string]*models.User
	alerts []models.Alert
	logins map[int64][]models.Login
	policy models.RuntimeConfig

	pingErr error
}

func newMockAPIStore() *mockAPIStore {
	return &mockAPIStore{
		users:  make(map[string]*models.User),
		logins: make(map[int64][]models.Login),
	}
}

func (m *mockAPIStore) Ping(_ context.Context) error { return m.pingErr }

func (m *mockAPIStore) ListUsers(_ context.Context) ([]models.User, error) {
	var out []models.User
	for _, u := range m.users {
		out = append(out, *u)
	}
	return out, nil
}

func (m *mockAPIStore) GetUser(_ context.Context, username string) (*models.User, error) {
	if u, ok := m.users[username]; ok {
		return u, nil
	}
	return nil, database.ErrNotFound
}

func (m *mockAPIStore) ListAlerts(_ context.Context, userID int64, limit int) ([]models.Alert, error) {
	var out []models.Alert
	for _, a := range m.alerts {
		if userID != 0 && a.UserID != userID {
			continue
		}
		out = append(out, a)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockAPIStore) ListLogins(_ context.Context, userID int64) ([]models.Login, error) {
	return m.logins[userID], nil
}

func (m *mockAPIStore) GetRuntimeConfig(_ context.Context) (*models.RuntimeConfig, error) {
	p := m.policy
	return &p, nil
}

func (m *mockAPIStore) UpdateRuntimeConfig(_ context.Context, cfg *models.RuntimeConfig) error {
	m.policy = *cfg
	return nil
}

func newTestHandler(store Store, security config.SecurityConfig) http.Handler {
	return NewRouter(store, security).Handler()
}

func TestHealthz(t *testing.T) {
	store := newMockAPIStore()
	handler := newTestHandler(store, config.SecurityConfig{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestListUsers(t *testing.T) {
	store := newMockAPIStore()
	store.users["alice"] = &models.User{ID: 1, Username: "alice", RiskScore: models.RiskLow}
	handler := newTestHandler(store, config.SecurityConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var users []models.User
	if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(users) != 1 || users[0].Username != "alice" {
		t.Errorf("users = %+v", users)
	}
}

func TestListLoginsUnknownUser(t *testing.T) {
	handler := newTestHandler(newMockAPIStore(), config.SecurityConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/nobody/logins", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestListAlertsByUsername(t *testing.T) {
	store := newMockAPIStore()
	store.users["alice"] = &models.User{ID: 1, Username: "alice"}
	store.alerts = []models.Alert{
		{ID: 1, UserID: 1, Name: models.DetectionNewDevice},
		{ID: 2, UserID: 2, Name: models.DetectionImpTravel},
	}
	handler := newTestHandler(store, config.SecurityConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts?username=alice", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var alerts []models.Alert
	if err := json.Unmarshal(rec.Body.Bytes(), &alerts); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(alerts) != 1 || alerts[0].UserID != 1 {
		t.Errorf("alerts = %+v", alerts)
	}
}

func TestListAlertsInvalidLimit(t *testing.T) {
	handler := newTestHandler(newMockAPIStore(), config.SecurityConfig{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts?limit=nope", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	store := newMockAPIStore()
	handler := newTestHandler(store, config.SecurityConfig{})

	body := `{"allowed_countries":["Italy"],"vip_users":["alice"],"alert_is_vip_only":true}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/config", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, want %d", rec.Code, http.StatusOK)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/config", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var got models.RuntimeConfig
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !got.AlertIsVIPOnly || len(got.AllowedCountries) != 1 || !got.IsVIP("alice") {
		t.Errorf("config = %+v", got)
	}
}

func TestAuthentication(t *testing.T) {
	security := config.SecurityConfig{JWTSecret: "test-secret", TokenTTL: time.Hour}
	handler := newTestHandler(newMockAPIStore(), security)

	tests := []struct {
		name   string
		header func(t *testing.T) string
		want   int
	}{
		{
			name:   "missing token",
			header: func(*testing.T) string { return "" },
			want:   http.StatusUnauthorized,
		},
		{
			name:   "garbage token",
			header: func(*testing.T) string { return "Bearer not.a.token" },
			want:   http.StatusUnauthorized,
		},
		{
			name: "wrong secret",
			header: func(t *testing.T) string {
				tok, err := IssueToken("other-secret", "admin", time.Hour)
				if err != nil {
					t.Fatalf("IssueToken() error = %v", err)
				}
				return "Bearer " + tok
			},
			want: http.StatusUnauthorized,
		},
		{
			name: "expired token",
			header: func(t *testing.T) string {
				tok, err := IssueToken("test-secret", "admin", -time.Hour)
				if err != nil {
					t.Fatalf("IssueToken() error = %v", err)
				}
				return "Bearer " + tok
			},
			want: http.StatusUnauthorized,
		},
		{
			name: "valid token",
			header: func(t *testing.T) string {
				tok, err := IssueToken("test-secret", "admin", time.Hour)
				if err != nil {
					t.Fatalf("IssueToken() error = %v", err)
				}
				return "Bearer " + tok
			},
			want: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
			if h := tt.header(t); h != "" {
				req.Header.Set("Authorization", h)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHealthzUnhealthy(t *testing.T) {
	store := newMockAPIStore()
	store.pingErr = context.DeadlineExceeded
	handler := newTestHandler(store, config.SecurityConfig{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
