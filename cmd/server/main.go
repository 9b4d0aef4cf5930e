// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tomtom215/agrosense/internal/api"
	"github.com/tomtom215/agrosense/internal/classifier/remote"
	"github.com/tomtom215/agrosense/internal/config"
	"github.com/tomtom215/agrosense/internal/crop"
	"github.com/tomtom215/agrosense/internal/database"
	"github.com/tomtom215/agrosense/internal/history"
	"github.com/tomtom215/agrosense/internal/logging"
	"github.com/tomtom215/agrosense/internal/recommend"
	"github.com/tomtom215/agrosense/internal/storage"
	"github.com/tomtom215/agrosense/internal/supervisor"
	"github.com/tomtom215/agrosense/internal/supervisor/services"
	"github.com/tomtom215/agrosense/internal/synth"
	"github.com/tomtom215/agrosense/internal/training"
)

// historyGCInterval is how often Badger value log GC runs for the history store.
const historyGCInterval = 10 * time.Minute

// modelRefreshInterval is how often the remote model server is re-queried
// for its labels and version.
const modelRefreshInterval = 5 * time.Minute

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	// A missing .env file is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logging.Warn().Err(err).Msg("Failed to read .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", api.Version).
		Str("environment", cfg.Server.Environment).
		Bool("remote_model", cfg.Remote.Enabled).
		Bool("database", cfg.Database.Enabled).
		Bool("history", cfg.History.Enabled).
		Msg("Starting Agrosense with supervisor tree")

	table, err := loadTable(&cfg.Crops)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.Crops.TablePath).Msg("Failed to load crop table")
	}
	logging.Info().Int("crops", table.Len()).Msg("Crop table loaded")

	engine, err := recommend.NewEngine(&cfg.Recommend, table, logging.WithComponent("recommend"))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create recommendation engine")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	handlerOpts := []api.Option{api.WithTrainingContext(ctx)}

	// === MODEL LAYER ===

	if cfg.Remote.Enabled {
		client := remote.NewClient(remote.Config{
			BaseURL:        cfg.Remote.URL,
			APIKey:         cfg.Remote.APIKey,
			Timeout:        cfg.Remote.Timeout,
			RateLimit:      cfg.Remote.RateLimit,
			Burst:          cfg.Remote.Burst,
			BreakerTimeout: cfg.Remote.BreakerTimeout,
		})

		// The first refresh is best effort; the refresh service keeps retrying.
		refreshCtx, refreshCancel := context.WithTimeout(ctx, cfg.Remote.Timeout)
		if err := client.Refresh(refreshCtx); err != nil {
			logging.Warn().Err(err).Str("url", cfg.Remote.URL).Msg("Remote model server not reachable yet")
		}
		refreshCancel()

		engine.SetClassifier(client)
		tree.AddModelService(services.NewRefreshService(client, modelRefreshInterval, logging.WithComponent("remote")))
		logging.Info().Str("url", cfg.Remote.URL).Msg("Remote classifier configured")
	} else {
		trainer, db, models := initTraining(ctx, cfg, table, engine)
		if db != nil {
			defer func() {
				if err := db.Close(); err != nil {
					logging.Error().Err(err).Msg("Error closing database")
				}
			}()
			handlerOpts = append(handlerOpts, api.WithDatabase(db), api.WithRunStore(db))
		}
		if models != nil {
			handlerOpts = append(handlerOpts, api.WithModelCatalog(models))
		}

		tree.AddModelService(services.NewTrainingService(trainer, services.TrainingServiceConfig{
			TrainOnStartup: cfg.Training.OnStartup,
			TrainInterval:  cfg.Training.Interval,
		}, logging.WithComponent("training")))
		handlerOpts = append(handlerOpts, api.WithTrainer(trainer))
		logging.Info().Dur("interval", cfg.Training.Interval).Msg("Training service added to supervisor tree")
	}

	if cfg.History.Enabled {
		store, err := history.Open(history.Config{
			Dir:        cfg.History.Dir,
			InMemory:   cfg.History.InMemory,
			TTL:        cfg.History.TTL,
			GCInterval: historyGCInterval,
		}, logging.WithComponent("history"))
		if err != nil {
			logging.Fatal().Err(err).Str("dir", cfg.History.Dir).Msg("Failed to open recommendation history")
		}
		defer func() {
			if err := store.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing recommendation history")
			}
		}()
		handlerOpts = append(handlerOpts, api.WithHistory(store))
		logging.Info().Str("dir", cfg.History.Dir).Bool("in_memory", cfg.History.InMemory).Msg("Recommendation history opened")
	}

	// === API LAYER ===

	handler := api.NewHandler(engine, handlerOpts...)
	mw := api.NewMiddleware(&api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.Security.CORSOrigins,
		CORSMaxAge:         86400,
		RateLimitRequests:  cfg.Security.RateLimitReqs,
		RateLimitWindow:    cfg.Security.RateLimitWindow,
		RateLimitDisabled:  cfg.Security.RateLimitDisabled,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(handler, mw),
		ReadTimeout:       cfg.Server.Timeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, cfg.Server.ShutdownTimeout, logging.WithComponent("http")))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	// The channel delivers exactly one result when the tree stops.
	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
		serveErr = <-errCh
	case serveErr = <-errCh:
		cancel()
	}
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		logging.Error().Err(serveErr).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

// loadTable returns the configured crop table, or the built-in one.
func loadTable(cfg *config.CropsConfig) (*crop.Table, error) {
	if cfg.TablePath == "" {
		return crop.DefaultTable(), nil
	}
	if cfg.Sheet != "" && strings.EqualFold(filepath.Ext(cfg.TablePath), ".xlsx") {
		return crop.LoadXLSX(cfg.TablePath, cfg.Sheet)
	}
	return crop.LoadFile(cfg.TablePath)
}

// initTraining builds the local training pipeline. The DuckDB dataset store
// and the model snapshot store are optional; failures to open them degrade
// to an in-memory pipeline rather than stopping the server.
func initTraining(ctx context.Context, cfg *config.Config, table *crop.Table, engine *recommend.Engine) (*training.Trainer, *database.DB, *storage.Store) {
	generator, err := synth.NewGenerator(cfg.Synth, logging.WithComponent("synth"))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create sample generator")
	}

	trainer, err := training.NewTrainer(training.Config{
		SamplesPerCrop: cfg.Synth.SamplesPerCrop,
		Seed:           cfg.Synth.Seed,
		TestRatio:      cfg.Training.TestRatio,
		VarSmoothing:   cfg.Training.VarSmoothing,
		MinAccuracy:    cfg.Training.MinAccuracy,
		Timeout:        cfg.Training.Timeout,
		KeepVersions:   cfg.Models.KeepVersions,
		ExportDir:      cfg.Database.ExportDir,

		ImportanceRepeats: cfg.Training.ImportanceRepeats,
	}, table, generator, engine, logging.WithComponent("training"))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create trainer")
	}

	var models *storage.Store
	if cfg.Models.Dir != "" {
		store, err := storage.NewStore(cfg.Models.Dir)
		if err != nil {
			logging.Warn().Err(err).Str("dir", cfg.Models.Dir).Msg("Model store unavailable, models will not be persisted")
		} else {
			models = store
			trainer.SetModelStore(store)
			logging.Info().Str("dir", store.Dir()).Msg("Model store initialized")
		}
	}

	if !cfg.Database.Enabled {
		return trainer, nil, models
	}

	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path}, logging.WithComponent("database"))
	if err != nil {
		logging.Warn().Err(err).Str("path", cfg.Database.Path).Msg("Dataset store unavailable, training samples will not be persisted")
		return trainer, nil, models
	}
	trainer.SetDatasetStore(db)
	logging.Info().Str("path", cfg.Database.Path).Msg("Dataset store initialized")

	return trainer, db, models
}
