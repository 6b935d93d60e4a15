// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

package geo

import (
	"testing"
	"time"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name      string
		lat1      float64
		lon1      float64
		lat2      float64
		lon2      float64
		expected  float64
		tolerance float64
	}{
		{
			name:      "NYC to London",
			lat1:      40.7128,
			lon1:      -74.0060,
			lat2:      51.5074,
			lon2:      -0.1278,
			expected:  5567,
			tolerance: 50,
		},
		{
			name:      "Delhi to NYC",
			lat1:      28.6139,
			lon1:      77.2090,
			lat2:      40.7128,
			lon2:      -74.0060,
			expected:  11766,
			tolerance: 50,
		},
		{
			name:      "same point",
			lat1:      40.7128,
			lon1:      -74.0060,
			lat2:      40.7128,
			lon2:      -74.0060,
			expected:  0,
			tolerance: 0.1,
		},
		{
			name:      "antimeridian crossing",
			lat1:      35.6762,
			lon1:      139.6503, // Tokyo
			lat2:      37.7749,
			lon2:      -122.4194, // San Francisco
			expected:  8280,
			tolerance: 50,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			diff := got - tt.expected
			if diff < 0 {
				diff = -diff
			}
			if diff > tt.tolerance {
				t.Errorf("Haversine = %.2f km, expected %.2f km (+/- %.2f)", got, tt.expected, tt.tolerance)
			}
		})
	}
}

func TestVelocity(t *testing.T) {
	t1 := time.Date(2023, 5, 3, 6, 0, 0, 0, time.UTC)
	t2 := t1.Add(1 * time.Hour)

	// NYC -> London in one hour
	v := Velocity(40.7128, -74.0060, t1, 51.5074, -0.1278, t2)
	if v < 5500 || v > 5650 {
		t.Errorf("velocity = %.2f, expected ~5567 km/h", v)
	}
}

func TestVelocityZeroElapsed(t *testing.T) {
	ts := time.Date(2023, 5, 3, 6, 0, 0, 0, time.UTC)

	// Identical timestamps with distinct coordinates clamp elapsed time to
	// the epsilon, producing an implausibly large velocity.
	v := Velocity(40.7128, -74.0060, ts, 51.5074, -0.1278, ts)
	if v < 1_000_000 {
		t.Errorf("velocity with zero elapsed = %.2f, expected > 1e6 km/h", v)
	}

	// Out-of-order timestamps behave the same way.
	earlier := ts.Add(-10 * time.Minute)
	v = Velocity(40.7128, -74.0060, ts, 51.5074, -0.1278, earlier)
	if v < 1_000_000 {
		t.Errorf("velocity with negative elapsed = %.2f, expected > 1e6 km/h", v)
	}
}

func TestRoundVelocity(t *testing.T) {
	if got := RoundVelocity(133973.28); got != 133973 {
		t.Errorf("RoundVelocity(133973.28) = %d, want 133973", got)
	}
	if got := RoundVelocity(52563.5); got != 52564 {
		t.Errorf("RoundVelocity(52563.5) = %d, want 52564", got)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Time
		wantErr bool
	}{
		{
			name: "fractional seconds",
			in:   "2023-05-03T06:50:03.768Z",
			want: time.Date(2023, 5, 3, 6, 50, 3, 768000000, time.UTC),
		},
		{
			name: "whole seconds",
			in:   "2023-05-03T06:50:03Z",
			want: time.Date(2023, 5, 3, 6, 50, 3, 0, time.UTC),
		},
		{
			name:    "missing zone",
			in:      "2023-05-03T06:50:03.768",
			wantErr: true,
		},
		{
			name:    "garbage",
			in:      "not-a-timestamp-Z",
			wantErr: true,
		},
		{
			name:    "empty",
			in:      "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatTimestampRoundTrip(t *testing.T) {
	in := "2023-05-03T06:55:31.768Z"
	ts, err := ParseTimestamp(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out := FormatTimestamp(ts); out != in {
		t.Errorf("round trip = %q, want %q", out, in)
	}
}
