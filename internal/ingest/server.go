// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

// Package ingest consumes normalized authentication events from the NATS
// intake stream and mirrors them into the raw_events table the scheduler
// reads from.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"

	"github.com/certalo/loginwatch/internal/config"
)

// EmbeddedServer wraps an in-process NATS JetStream server for
// single-instance deployments without an external broker.
type EmbeddedServer struct {
	server    *server.Server
	clientURL string
}

// NewEmbeddedServer creates and starts an embedded NATS server, waiting up
// to 30 seconds for it to accept connections.
func NewEmbeddedServer(cfg *config.NATSConfig) (*EmbeddedServer, error) {
	opts := &server.Options{
		ServerName: "loginwatch-intake",
		JetStream:  true,
		StoreDir:   cfg.StoreDir,
		DontListen: false,
		NoLog:      true,
		MaxPayload: 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within timeout")
	}

	return &EmbeddedServer{server: ns, clientURL: ns.ClientURL()}, nil
}

// ClientURL returns the connection URL for clients.
func (s *EmbeddedServer) ClientURL() string {
	return s.clientURL
}

// Shutdown stops the server, waiting for completion unless the context is
// already canceled.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error {
	s.server.Shutdown()
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.server.WaitForShutdown()
		return nil
	}
}
