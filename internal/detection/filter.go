// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

package detection

import (
	"github.com/certalo/loginwatch/internal/logging"
	"github.com/certalo/loginwatch/internal/models"
)

// ApplyFilters evaluates the alerting policy against a pending alert and
// returns the filter reasons in their fixed order: the VIP rule before the
// allowed-country rule. An empty result means the alert counts toward risk.
//
// A policy with alert_is_vip_only set but no VIP users is contradictory; it
// is logged and treated as vip-only off for this evaluation.
func ApplyFilters(policy *models.RuntimeConfig, username, country string) []models.FilterType {
	var reasons []models.FilterType

	vipOnly := policy.AlertIsVIPOnly
	if vipOnly && len(policy.VIPUsers) == 0 {
		logging.Warn().
			Str("username", username).
			Msg("alert_is_vip_only is set but vip_users is empty, treating as disabled")
		vipOnly = false
	}

	if vipOnly && !policy.IsVIP(username) {
		reasons = append(reasons, models.FilterVIP)
	}
	if country != "" && policy.IsAllowedCountry(country) {
		reasons = append(reasons, models.FilterAllowedCountry)
	}
	return reasons
}
