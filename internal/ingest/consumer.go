// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

package ingest

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/certalo/loginwatch/internal/database"
	"github.com/certalo/loginwatch/internal/geo"
	"github.com/certalo/loginwatch/internal/logging"
	"github.com/certalo/loginwatch/internal/metrics"
	"github.com/certalo/loginwatch/internal/models"
)

// EventStore persists mirrored events. *database.DB satisfies it.
type EventStore interface {
	InsertRawEvent(ctx context.Context, username string, e *models.Event) error
}

// wireEvent is the intake payload: the normalized upstream event plus the
// owning username. The timestamp stays a string until validated.
type wireEvent struct {
	Username  string  `json:"user"`
	ID        string  `json:"id"`
	Index     string  `json:"index"`
	IP        string  `json:"ip"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	Country   string  `json:"country"`
	UserAgent string  `json:"agent"`
	Timestamp string  `json:"timestamp"`
}

// Consumer reads intake messages and mirrors well-formed events into the
// raw event store. Malformed messages are logged, counted, and acked so
// they never wedge the stream.
type Consumer struct {
	subscriber message.Subscriber
	store      EventStore
	topic      string
}

// NewConsumer creates an intake consumer for the given topic.
func NewConsumer(subscriber message.Subscriber, store EventStore, topic string) *Consumer {
	return &Consumer{subscriber: subscriber, store: store, topic: topic}
}

// Serve implements suture.Service: it consumes until the context is
// canceled or the subscription channel closes.
func (c *Consumer) Serve(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", c.topic, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return fmt.Errorf("subscription to %s closed", c.topic)
			}
			c.handle(ctx, msg)
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (c *Consumer) String() string {
	return "intake-consumer"
}

// handle persists one message. A persistence failure nacks so the broker
// redelivers; a malformed payload acks after logging.
func (c *Consumer) handle(ctx context.Context, msg *message.Message) {
	username, event, err := decode(msg.Payload)
	if err != nil {
		metrics.EventsMalformed.Inc()
		metrics.IngestEvents.WithLabelValues("malformed").Inc()
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("malformed intake event skipped")
		msg.Ack()
		return
	}

	if err := c.store.InsertRawEvent(ctx, username, event); err != nil {
		metrics.IngestEvents.WithLabelValues("store_error").Inc()
		logging.Error().Err(err).Str("username", username).Msg("failed to mirror intake event")
		msg.Nack()
		return
	}

	metrics.IngestEvents.WithLabelValues("ok").Inc()
	msg.Ack()
}

// decode validates the wire payload and normalizes it into a model event.
// Username and a parseable timestamp are required; everything else may be
// empty or zero.
func decode(payload []byte) (string, *models.Event, error) {
	var w wireEvent
	if err := json.Unmarshal(payload, &w); err != nil {
		return "", nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if w.Username == "" {
		return "", nil, fmt.Errorf("event missing username")
	}
	ts, err := geo.ParseTimestamp(w.Timestamp)
	if err != nil {
		return "", nil, fmt.Errorf("event has unparseable timestamp %q: %w", w.Timestamp, err)
	}

	return w.Username, &models.Event{
		ID:        w.ID,
		Index:     w.Index,
		IP:        w.IP,
		Latitude:  w.Latitude,
		Longitude: w.Longitude,
		Country:   w.Country,
		UserAgent: w.UserAgent,
		Timestamp: ts,
	}, nil
}

var _ EventStore = (*database.DB)(nil)
