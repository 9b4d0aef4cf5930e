// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/agrosense/internal/training"
)

// ModelTrainer is the training pipeline driven by TrainingService.
type ModelTrainer interface {
	// Restore loads the latest stored model, reporting whether one existed.
	Restore(ctx context.Context) (bool, error)

	// Run trains, evaluates and publishes a new model.
	Run(ctx context.Context) (*training.Result, error)
}

// TrainingServiceConfig holds configuration for the training service.
type TrainingServiceConfig struct {
	// TrainOnStartup forces a run at startup even when a stored model was
	// restored. Without a stored model the service always trains at startup.
	TrainOnStartup bool

	// TrainInterval is how often to retrain. Default: 24h.
	TrainInterval time.Duration
}

// TrainingService restores the stored model once, then trains at startup
// and on a fixed interval.
type TrainingService struct {
	trainer  ModelTrainer
	config   TrainingServiceConfig
	logger   zerolog.Logger
	name     string
	restored atomic.Bool
	started  atomic.Bool
}

// NewTrainingService creates the service.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewTrainingService(trainer ModelTrainer, cfg TrainingServiceConfig, logger zerolog.Logger) *TrainingService {
	if cfg.TrainInterval <= 0 {
		cfg.TrainInterval = 24 * time.Hour
	}
	return &TrainingService{
		trainer: trainer,
		config:  cfg,
		logger:  logger.With().Str("service", "training").Logger(),
		name:    "training-service",
	}
}

// Serve implements suture.Service. Restores and the startup run happen only
// on the first Serve; restarts by the supervisor go straight to the ticker.
func (s *TrainingService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("train_on_startup", s.config.TrainOnStartup).
		Dur("train_interval", s.config.TrainInterval).
		Msg("training service starting")

	if s.started.CompareAndSwap(false, true) {
		ok, err := s.trainer.Restore(ctx)
		switch {
		case err != nil:
			s.logger.Warn().Err(err).Msg("could not restore stored model")
		case ok:
			s.restored.Store(true)
		}

		if s.config.TrainOnStartup || !s.restored.Load() {
			s.train(ctx, "startup")
		}
	}

	ticker := time.NewTicker(s.config.TrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("training service shutting down")
			return ctx.Err()

		case <-ticker.C:
			s.train(ctx, "scheduled")
		}
	}
}

// train runs one training cycle. Failures are logged; the previous model
// keeps serving.
func (s *TrainingService) train(ctx context.Context, trigger string) {
	res, err := s.trainer.Run(ctx)
	switch {
	case err == nil:
		s.logger.Info().
			Str("trigger", trigger).
			Str("run_id", res.RunID).
			Int("version", res.ModelVersion).
			Float64("accuracy", res.Report.Accuracy).
			Dur("duration", res.Duration).
			Msg("model training complete")
	case errors.Is(err, training.ErrTrainingInProgress):
		s.logger.Debug().Str("trigger", trigger).Msg("training skipped, run already in progress")
	case ctx.Err() != nil:
		s.logger.Info().Str("trigger", trigger).Msg("training cancelled")
	default:
		s.logger.Warn().Err(err).Str("trigger", trigger).Msg("model training failed, will retry on schedule")
	}
}

// String returns the service name for logging.
func (s *TrainingService) String() string {
	return s.name
}
