// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

package detection

import (
	"context"
	"fmt"
	"time"

	"github.com/certalo/loginwatch/internal/database"
	"github.com/certalo/loginwatch/internal/models"
)

// mockStore is an in-memory Store and RiskStore for detector and processor
// tests. Not safe for concurrent use; tests are single-goroutine.
type mockStore struct {
	logins     []models.Login
	alerts     []models.Alert
	ips        map[string]bool
	riskScores map[int64]models.RiskScore

	insertErr error
	nextID    int64
}

func newMockStore() *mockStore {
	return &mockStore{
		ips:        make(map[string]bool),
		riskScores: make(map[int64]models.RiskScore),
	}
}

func ipKey(userID int64, ip string) string {
	return fmt.Sprintf("%d/%s", userID, ip)
}

func (m *mockStore) HasLoginWithAgent(_ context.Context, userID int64, agent string) (bool, error) {
	for _, l := range m.logins {
		if l.UserID == userID && l.UserAgent == agent {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) HasLoginFromCountry(_ context.Context, userID int64, country string) (bool, error) {
	for _, l := range m.logins {
		if l.UserID == userID && l.Country == country {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) HasLoginKey(_ context.Context, userID int64, agent, country, index string) (bool, error) {
	for _, l := range m.logins {
		if l.UserID == userID && l.UserAgent == agent && l.Country == country && l.Index == index {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStore) LastLoginBefore(_ context.Context, userID int64, ts time.Time) (*models.Login, error) {
	var best *models.Login
	for i := range m.logins {
		l := &m.logins[i]
		if l.UserID != userID || !l.Timestamp.Before(ts) {
			continue
		}
		switch {
		case best == nil,
			l.Timestamp.After(best.Timestamp),
			l.Timestamp.Equal(best.Timestamp) && l.UserAgent > best.UserAgent:
			best = l
		}
	}
	if best == nil {
		return nil, database.ErrNotFound
	}
	out := *best
	return &out, nil
}

func (m *mockStore) UpsertLogin(_ context.Context, l *models.Login) error {
	for i := range m.logins {
		existing := &m.logins[i]
		if existing.UserID == l.UserID && existing.UserAgent == l.UserAgent &&
			existing.Country == l.Country && existing.Index == l.Index {
			existing.Timestamp = l.Timestamp
			existing.Latitude = l.Latitude
			existing.Longitude = l.Longitude
			return nil
		}
	}
	m.nextID++
	stored := *l
	stored.ID = m.nextID
	m.logins = append(m.logins, stored)
	return nil
}

func (m *mockStore) InsertAlert(_ context.Context, a *models.Alert) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.nextID++
	stored := *a
	stored.ID = m.nextID
	m.alerts = append(m.alerts, stored)
	return nil
}

func (m *mockStore) IPKnown(_ context.Context, userID int64, ip string) (bool, error) {
	return m.ips[ipKey(userID, ip)], nil
}

func (m *mockStore) UpsertUserIP(_ context.Context, userID int64, ip string) error {
	m.ips[ipKey(userID, ip)] = true
	return nil
}

func (m *mockStore) CountUnfilteredAlerts(_ context.Context, userID int64, _ time.Time) (int, error) {
	n := 0
	for _, a := range m.alerts {
		if a.UserID == userID && !a.IsFiltered {
			n++
		}
	}
	return n, nil
}

func (m *mockStore) UpdateRiskScore(_ context.Context, userID int64, score models.RiskScore) error {
	m.riskScores[userID] = score
	return nil
}
