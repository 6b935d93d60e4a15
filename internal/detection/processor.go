// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

package detection

import (
	"context"
	"fmt"

	"github.com/certalo/loginwatch/internal/logging"
	"github.com/certalo/loginwatch/internal/metrics"
	"github.com/certalo/loginwatch/internal/models"
)

// Processor applies a user's chronologically ordered events to the store:
// detectors first (so they observe prior history), then the login and IP
// upserts for the event itself. One processor is safe for concurrent use
// across distinct users; events for a single user must be applied by one
// goroutine at a time.
type Processor struct {
	store     Store
	detectors []Detector
}

// NewProcessor builds a processor running the standard detector set in a
// fixed order: new device, new country, impossible travel.
func NewProcessor(store Store, velocityMaxKmH int) *Processor {
	return &Processor{
		store: store,
		detectors: []Detector{
			NewNewDeviceDetector(store),
			NewNewCountryDetector(store),
			NewImpossibleTravelDetector(store, velocityMaxKmH),
		},
	}
}

// ProcessEvents runs the pipeline of one user over a sorted event slice under
// the given policy snapshot. The first persistence error aborts the sequence
// so the caller can retry the whole sub-window without a partial advance.
func (p *Processor) ProcessEvents(ctx context.Context, user *models.User, events []models.Event, policy *models.RuntimeConfig) error {
	for i := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := p.processEvent(ctx, user, &events[i], policy); err != nil {
			return fmt.Errorf("failed to process event for user %q: %w", user.Username, err)
		}
		metrics.EventsProcessed.Inc()
	}
	return nil
}

func (p *Processor) processEvent(ctx context.Context, user *models.User, event *models.Event, policy *models.RuntimeConfig) error {
	suppressed, err := p.knownEvent(ctx, user, event)
	if err != nil {
		return err
	}

	if !suppressed {
		if err := p.detect(ctx, user, event, policy); err != nil {
			return err
		}
	} else {
		metrics.EventsKnownIP.Inc()
	}

	// The event's own login is persisted after detection so detectors only
	// ever observe prior history. A repeated identity refreshes in place.
	if err := p.store.UpsertLogin(ctx, &models.Login{
		UserID:    user.ID,
		Timestamp: event.Timestamp,
		Latitude:  event.Latitude,
		Longitude: event.Longitude,
		Country:   event.Country,
		UserAgent: event.UserAgent,
		Index:     event.Index,
	}); err != nil {
		return err
	}
	if event.IP == "" {
		return nil
	}
	return p.store.UpsertUserIP(ctx, user.ID, event.IP)
}

// knownEvent reports whether the event is a repeat observation: its IP has
// been seen for the user and its (agent, country, index) login identity
// already exists. Such events refresh state but never alert.
func (p *Processor) knownEvent(ctx context.Context, user *models.User, event *models.Event) (bool, error) {
	if event.IP == "" {
		return false, nil
	}
	ipKnown, err := p.store.IPKnown(ctx, user.ID, event.IP)
	if err != nil {
		return false, err
	}
	if !ipKnown {
		return false, nil
	}
	return p.store.HasLoginKey(ctx, user.ID, event.UserAgent, event.Country, event.Index)
}

func (p *Processor) detect(ctx context.Context, user *models.User, event *models.Event, policy *models.RuntimeConfig) error {
	for _, d := range p.detectors {
		draft, err := d.Check(ctx, user, event)
		if err != nil {
			metrics.DetectionErrors.WithLabelValues(string(d.Name())).Inc()
			return fmt.Errorf("detector %s: %w", d.Name(), err)
		}
		if draft == nil {
			continue
		}

		reasons := ApplyFilters(policy, user.Username, event.Country)
		alert := &models.Alert{
			UserID:       user.ID,
			Name:         draft.Name,
			Description:  draft.Description,
			LoginRawData: event.RawData(),
			IsFiltered:   len(reasons) > 0,
			FilterType:   reasons,
		}
		if err := p.store.InsertAlert(ctx, alert); err != nil {
			return err
		}

		metrics.AlertsGenerated.WithLabelValues(string(draft.Name)).Inc()
		for _, r := range reasons {
			metrics.AlertsFiltered.WithLabelValues(string(r)).Inc()
		}
		logging.Info().
			Str("username", user.Username).
			Str("alert", string(draft.Name)).
			Bool("filtered", alert.IsFiltered).
			Msg("alert raised")
	}
	return nil
}
