// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

// Package geo provides great-circle distance and travel velocity computation
// plus the timestamp conventions used throughout the detection pipeline.
package geo

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// minElapsedHours is substituted when two logins share a timestamp (or arrive
// out of order) so velocity stays finite. The resulting velocity is large
// enough to exceed any plausible travel threshold.
const minElapsedHours = 1e-3

// TimestampLayout is the canonical wire format for event timestamps:
// ISO-8601 with millisecond precision and a trailing Z.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Haversine returns the great-circle distance in kilometers between two
// points given in decimal degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0

	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLon := (lon2 - lon1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// Velocity returns the ground speed in km/h required to move from point 1 at
// t1 to point 2 at t2. When t2 is not strictly after t1 the elapsed time is
// clamped to a small positive epsilon, yielding a very large velocity.
func Velocity(lat1, lon1 float64, t1 time.Time, lat2, lon2 float64, t2 time.Time) float64 {
	elapsed := t2.Sub(t1).Hours()
	if elapsed <= 0 {
		elapsed = minElapsedHours
	}
	return Haversine(lat1, lon1, lat2, lon2) / elapsed
}

// RoundVelocity rounds a velocity to the nearest integer km/h for alert
// description formatting.
func RoundVelocity(v float64) int {
	return int(math.Round(v))
}

// ParseTimestamp parses an ISO-8601 timestamp with optional fractional
// seconds and a trailing Z, returning the instant in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	if !strings.HasSuffix(s, "Z") {
		return time.Time{}, fmt.Errorf("timestamp %q: missing trailing Z", s)
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

// FormatTimestamp renders an instant in the canonical wire format.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
