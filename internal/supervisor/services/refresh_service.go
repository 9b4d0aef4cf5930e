// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Refresher reloads metadata from an external model server.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RefreshService keeps a remote classifier's labels and version current.
type RefreshService struct {
	target   Refresher
	interval time.Duration
	logger   zerolog.Logger
	name     string
}

// NewRefreshService creates the service. interval defaults to 5m.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewRefreshService(target Refresher, interval time.Duration, logger zerolog.Logger) *RefreshService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &RefreshService{
		target:   target,
		interval: interval,
		logger:   logger.With().Str("service", "remote-refresh").Logger(),
		name:     "remote-refresh",
	}
}

// Serve implements suture.Service. It refreshes immediately, then on every tick.
func (s *RefreshService) Serve(ctx context.Context) error {
	s.refresh(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *RefreshService) refresh(ctx context.Context) {
	if err := s.target.Refresh(ctx); err != nil {
		if ctx.Err() == nil {
			s.logger.Warn().Err(err).Msg("remote model refresh failed")
		}
		return
	}
	s.logger.Debug().Msg("remote model refreshed")
}

// String returns the service name for logging.
func (s *RefreshService) String() string {
	return s.name
}
