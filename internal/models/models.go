// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

// Package models defines the persisted entities of the detection pipeline and
// the normalized authentication event consumed by it.
package models

import (
	"time"

	"github.com/goccy/go-json"
)

// RiskScore labels a user's aggregated alert volume.
type RiskScore string

const (
	RiskNone   RiskScore = "No risk"
	RiskLow    RiskScore = "Low"
	RiskMedium RiskScore = "Medium"
	RiskHigh   RiskScore = "High"
)

// RiskForAlertCount maps a count of unfiltered alerts to a risk label.
func RiskForAlertCount(n int) RiskScore {
	switch {
	case n <= 0:
		return RiskNone
	case n <= 2:
		return RiskLow
	case n <= 4:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// DetectionType names the detector that raised an alert. The values are the
// persisted alert names and appear verbatim in alert descriptions.
type DetectionType string

const (
	DetectionImpTravel  DetectionType = "Imp Travel"
	DetectionNewDevice  DetectionType = "New Device"
	DetectionNewCountry DetectionType = "New Country"
)

// FilterType is a reason an alert was excluded from risk aggregation. An
// alert carries zero or more filter reasons in a fixed order: the VIP rule
// before the allowed-country rule.
type FilterType string

const (
	FilterVIP            FilterType = "is_vip_filter"
	FilterAllowedCountry FilterType = "allowed_country_filter"
)

// User is a monitored principal. Created on the first observed event for the
// username; the risk score is maintained by the risk aggregator.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	RiskScore RiskScore `json:"risk_score"`
	Updated   time.Time `json:"updated"`
}

// Login is a canonical persisted login record. For a given user, the triple
// (user_agent, country, index) identifies at most one row; a repeated
// observation refreshes the timestamp and coordinates instead of inserting.
type Login struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Country   string    `json:"country"`
	UserAgent string    `json:"user_agent"`
	Index     string    `json:"index"`
	Updated   time.Time `json:"updated"`
}

// UsersIP records a source IP ever observed for a user. (user_id, ip) is
// unique.
type UsersIP struct {
	ID      int64     `json:"id"`
	UserID  int64     `json:"user_id"`
	IP      string    `json:"ip"`
	Updated time.Time `json:"updated"`
}

// Alert is a raised detection. LoginRawData keeps a verbatim JSON copy of the
// triggering event. IsFiltered is true iff FilterType is non-empty; filtered
// alerts stay persisted but are excluded from risk aggregation.
type Alert struct {
	ID           int64           `json:"id"`
	UserID       int64           `json:"user_id"`
	Name         DetectionType   `json:"name"`
	Description  string          `json:"description"`
	LoginRawData json.RawMessage `json:"login_raw_data"`
	IsFiltered   bool            `json:"is_filtered"`
	FilterType   []FilterType    `json:"filter_type"`
	Updated      time.Time       `json:"updated"`
}

// RuntimeConfig is the process-wide alerting policy. It is persisted as a
// singleton row, mutated only through the admin surface, and read by the
// pipeline as an immutable snapshot at sub-window boundaries.
type RuntimeConfig struct {
	AllowedCountries []string  `json:"allowed_countries"`
	VIPUsers         []string  `json:"vip_users"`
	AlertIsVIPOnly   bool      `json:"alert_is_vip_only"`
	Updated          time.Time `json:"updated"`
}

// IsVIP reports whether the username appears in the VIP list.
func (c RuntimeConfig) IsVIP(username string) bool {
	for _, u := range c.VIPUsers {
		if u == username {
			return true
		}
	}
	return false
}

// IsAllowedCountry reports whether the country appears in the allowed list.
func (c RuntimeConfig) IsAllowedCountry(country string) bool {
	for _, ac := range c.AllowedCountries {
		if ac == country {
			return true
		}
	}
	return false
}

// TaskSettings is the persistent window pointer for a named periodic task.
// start_date/end_date bound the most recently processed window.
type TaskSettings struct {
	TaskName  string    `json:"task_name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// Event is a normalized authentication event as delivered by the upstream
// log source.
type Event struct {
	ID        string    `json:"id"`
	Index     string    `json:"index"`
	IP        string    `json:"ip"`
	Latitude  float64   `json:"lat"`
	Longitude float64   `json:"lon"`
	Country   string    `json:"country"`
	UserAgent string    `json:"agent"`
	Timestamp time.Time `json:"timestamp"`
}

// RawData renders the event as the verbatim JSON copy stored on alerts.
func (e Event) RawData() json.RawMessage {
	raw, err := json.Marshal(e)
	if err != nil {
		// Event is a plain value type; marshaling cannot fail.
		return json.RawMessage("{}")
	}
	return raw
}
