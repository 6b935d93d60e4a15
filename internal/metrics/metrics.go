// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

// Package metrics exposes Prometheus collectors for the detection pipeline:
// event throughput, per-detector alert volume, scheduler progress, and
// store latencies.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline metrics
	EventsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loginwatch_events_processed_total",
			Help: "Total number of normalized login events run through the field processor",
		},
	)

	EventsMalformed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loginwatch_events_malformed_total",
			Help: "Total number of events skipped because a required field was missing or unparseable",
		},
	)

	EventsKnownIP = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loginwatch_events_known_ip_total",
			Help: "Total number of events whose source IP was already recorded for the user",
		},
	)

	AlertsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loginwatch_alerts_generated_total",
			Help: "Total number of alerts persisted, by detector",
		},
		[]string{"detector"},
	)

	AlertsFiltered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loginwatch_alerts_filtered_total",
			Help: "Total number of persisted alerts carrying at least one filter reason",
		},
		[]string{"filter"},
	)

	DetectionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loginwatch_detection_errors_total",
			Help: "Total number of detector evaluation failures",
		},
		[]string{"detector"},
	)

	// Scheduler metrics
	SubwindowsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loginwatch_subwindows_processed_total",
			Help: "Total number of scheduler sub-windows processed to completion",
		},
	)

	DataLossResets = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loginwatch_data_loss_resets_total",
			Help: "Total number of window pointer resets due to excessive lag",
		},
	)

	UserProcessingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loginwatch_user_processing_failures_total",
			Help: "Total number of per-user sub-window failures (isolated, non-fatal)",
		},
	)

	SubwindowDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "loginwatch_subwindow_duration_seconds",
			Help:    "Wall-clock duration of one sub-window across all users",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Store metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "loginwatch_db_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	// Intake metrics
	IngestEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loginwatch_ingest_events_total",
			Help: "Total number of raw events received on the intake stream, by outcome",
		},
		[]string{"outcome"}, // "stored", "malformed", "failed"
	)

	// Maintenance metrics
	RetentionDeleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "loginwatch_retention_deleted_total",
			Help: "Total number of rows deleted by the retention cleaner, by table",
		},
		[]string{"table"},
	)

	RiskUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "loginwatch_risk_updates_total",
			Help: "Total number of user risk score recomputations that changed the label",
		},
	)
)
