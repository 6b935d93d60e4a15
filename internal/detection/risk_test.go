// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

package detection

import (
	"context"
	"testing"

	"github.com/certalo/loginwatch/internal/models"
)

func TestRiskAggregatorBoundaries(t *testing.T) {
	tests := []struct {
		name       string
		unfiltered int
		filtered   int
		want       models.RiskScore
	}{
		{"no alerts", 0, 0, models.RiskNone},
		{"one alert", 1, 0, models.RiskLow},
		{"two alerts", 2, 0, models.RiskLow},
		{"three alerts", 3, 0, models.RiskMedium},
		{"four alerts", 4, 0, models.RiskMedium},
		{"five alerts", 5, 0, models.RiskHigh},
		{"many alerts", 12, 0, models.RiskHigh},
		{"filtered alerts do not count", 0, 4, models.RiskNone},
		{"mixed counts only unfiltered", 1, 6, models.RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			for i := 0; i < tt.unfiltered; i++ {
				store.alerts = append(store.alerts, models.Alert{UserID: 1, Name: models.DetectionNewDevice})
			}
			for i := 0; i < tt.filtered; i++ {
				store.alerts = append(store.alerts, models.Alert{
					UserID: 1, Name: models.DetectionNewDevice, IsFiltered: true,
					FilterType: []models.FilterType{models.FilterAllowedCountry},
				})
			}

			agg := NewRiskAggregator(store, 0)
			got, err := agg.UpdateUser(context.Background(), &models.User{ID: 1, Username: "Bob"})
			if err != nil {
				t.Fatalf("UpdateUser() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("UpdateUser() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRiskAggregatorIdempotent(t *testing.T) {
	store := newMockStore()
	store.alerts = append(store.alerts, models.Alert{UserID: 1})
	agg := NewRiskAggregator(store, 0)
	user := &models.User{ID: 1, Username: "Bob"}

	first, err := agg.UpdateUser(context.Background(), user)
	if err != nil {
		t.Fatalf("UpdateUser() error = %v", err)
	}
	user.RiskScore = first

	// Re-running with an unchanged alert set writes nothing new and yields
	// the same label.
	second, err := agg.UpdateUser(context.Background(), user)
	if err != nil {
		t.Fatalf("UpdateUser() second error = %v", err)
	}
	if second != first {
		t.Errorf("second run = %q, want %q", second, first)
	}
}

func TestRiskAggregatorMonotonic(t *testing.T) {
	store := newMockStore()
	agg := NewRiskAggregator(store, 0)
	user := &models.User{ID: 1, Username: "Bob"}

	order := map[models.RiskScore]int{
		models.RiskNone: 0, models.RiskLow: 1, models.RiskMedium: 2, models.RiskHigh: 3,
	}
	prev := models.RiskNone
	for i := 0; i < 7; i++ {
		store.alerts = append(store.alerts, models.Alert{UserID: 1})
		got, err := agg.UpdateUser(context.Background(), user)
		if err != nil {
			t.Fatalf("UpdateUser() error = %v", err)
		}
		if order[got] < order[prev] {
			t.Fatalf("risk regressed from %q to %q after adding an alert", prev, got)
		}
		prev = got
		user.RiskScore = got
	}
	if prev != models.RiskHigh {
		t.Errorf("final risk = %q, want %q", prev, models.RiskHigh)
	}
}
