// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

package detection

import (
	"testing"

	"github.com/certalo/loginwatch/internal/models"
)

func TestApplyFilters(t *testing.T) {
	policy := &models.RuntimeConfig{
		AllowedCountries: []string{"Italy", "Romania"},
		VIPUsers:         []string{"Aisha Delgado"},
		AlertIsVIPOnly:   true,
	}

	tests := []struct {
		name     string
		policy   *models.RuntimeConfig
		username string
		country  string
		want     []models.FilterType
	}{
		{
			name:     "vip user from unlisted country passes",
			policy:   policy,
			username: "Aisha Delgado",
			country:  "United States",
			want:     nil,
		},
		{
			name:     "non-vip user is filtered",
			policy:   policy,
			username: "Bob",
			country:  "United States",
			want:     []models.FilterType{models.FilterVIP},
		},
		{
			name:     "non-vip from allowed country carries both reasons in order",
			policy:   policy,
			username: "Bob",
			country:  "Italy",
			want:     []models.FilterType{models.FilterVIP, models.FilterAllowedCountry},
		},
		{
			name: "allowed country alone",
			policy: &models.RuntimeConfig{
				AllowedCountries: []string{"Italy"},
			},
			username: "Bob",
			country:  "Italy",
			want:     []models.FilterType{models.FilterAllowedCountry},
		},
		{
			name:     "empty policy filters nothing",
			policy:   &models.RuntimeConfig{},
			username: "Bob",
			country:  "United States",
			want:     nil,
		},
		{
			name: "vip-only with empty vip list is treated as disabled",
			policy: &models.RuntimeConfig{
				AlertIsVIPOnly: true,
			},
			username: "Bob",
			country:  "United States",
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyFilters(tt.policy, tt.username, tt.country)
			if len(got) != len(tt.want) {
				t.Fatalf("ApplyFilters() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ApplyFilters()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
