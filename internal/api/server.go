// Loginwatch - Behavioral Login Anomaly Detection
// Copyright 2026 Certalo Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/certalo/loginwatch

package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/certalo/loginwatch/internal/config"
	"github.com/certalo/loginwatch/internal/logging"
)

// Server runs the admin HTTP server as a supervised service.
type Server struct {
	httpServer *http.Server
	cfg        config.ServerConfig
}

// NewServer creates the admin server with sane read/write deadlines.
func NewServer(handler http.Handler, cfg config.ServerConfig) *Server {
	return &Server{
		cfg: cfg,
		httpServer: &http.Server{
			Addr:              net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       cfg.Timeout,
			WriteTimeout:      cfg.Timeout,
			IdleTimeout:       2 * time.Minute,
		},
	}
}

// Serve implements suture.Service: it listens until the context is canceled
// and then shuts down gracefully.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", s.httpServer.Addr).Msg("admin API listening")
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("admin API server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin API shutdown: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logs.
func (s *Server) String() string {
	return "admin-api"
}
