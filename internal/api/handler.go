// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

/*
Package api exposes the recommendation engine over HTTP.

All responses use the models.APIResponse envelope. Routes are mounted by
NewRouter on a chi router with request ID, real IP, panic recovery, CORS,
rate limiting and Prometheus middleware.

Endpoints:

	POST /api/v1/recommendations                ranked crops for one set of readings
	GET  /api/v1/recommendations?limit=         recently served recommendations
	GET  /api/v1/recommendations/{id}           one served recommendation
	GET  /api/v1/crops                          reference table summary
	GET  /api/v1/crops/{name}                   one crop profile
	GET  /api/v1/crops/{name}/suitability       explainer verdicts for readings
	GET  /api/v1/context                        derived season and soil type
	GET  /api/v1/model                          active classifier and training status
	POST /api/v1/model/train                    start a training run
	GET  /api/v1/model/runs?limit=              recorded training runs
	GET  /api/v1/model/runs/{id}                one run with per-crop sample means
	GET  /api/v1/model/runs/{id}/samples        stored samples of one run, filtered
	GET  /api/v1/models                         latest stored snapshot per classifier
	GET  /api/v1/health[/live|/ready]           health checks
	GET  /metrics                               Prometheus exposition
*/
package api

import (
	"context"
	"time"

	"github.com/tomtom215/agrosense/internal/database"
	"github.com/tomtom215/agrosense/internal/history"
	"github.com/tomtom215/agrosense/internal/recommend"
	"github.com/tomtom215/agrosense/internal/storage"
	"github.com/tomtom215/agrosense/internal/synth"
	"github.com/tomtom215/agrosense/internal/training"
)

// Version is reported by the health endpoint.
var Version = "dev"

// HistoryStore is the recommendation history used by the handlers.
type HistoryStore interface {
	Record(ctx context.Context, resp *recommend.Response) error
	Get(ctx context.Context, id string) (*history.Record, error)
	Recent(ctx context.Context, limit int) ([]history.Record, error)
}

// TrainingRunner starts and reports training runs.
type TrainingRunner interface {
	// Start begins a background run, or returns
	// training.ErrTrainingInProgress when one is already active.
	Start(ctx context.Context) error
	Status() training.Status
}

// RunStore reads recorded training runs and their samples.
type RunStore interface {
	ListRuns(ctx context.Context, limit int) ([]database.Run, error)
	GetRun(ctx context.Context, runID string) (*database.Run, error)
	CropSummaries(ctx context.Context, runID string) ([]database.CropSummary, error)
	Samples(ctx context.Context, f database.SampleFilter) ([]synth.Sample, error)
}

// ModelCatalog lists stored model snapshots.
type ModelCatalog interface {
	ListModels(ctx context.Context) ([]storage.ModelMetadata, error)
}

// Pinger checks a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the API endpoints.
type Handler struct {
	engine   *recommend.Engine
	history  HistoryStore
	trainer  TrainingRunner
	database Pinger
	runs     RunStore
	catalog  ModelCatalog

	// trainCtx bounds runs started through the API; it is cancelled on shutdown.
	trainCtx  context.Context
	startTime time.Time
}

// Option configures optional handler dependencies.
type Option func(*Handler)

// WithHistory enables recording and lookup of served recommendations.
func WithHistory(h HistoryStore) Option {
	return func(handler *Handler) { handler.history = h }
}

// WithTrainer enables the model status and training endpoints.
func WithTrainer(t TrainingRunner) Option {
	return func(handler *Handler) { handler.trainer = t }
}

// WithDatabase reports dataset store connectivity in health checks.
func WithDatabase(p Pinger) Option {
	return func(handler *Handler) { handler.database = p }
}

// WithRunStore enables the training run endpoints.
func WithRunStore(rs RunStore) Option {
	return func(handler *Handler) { handler.runs = rs }
}

// WithModelCatalog enables GET /api/v1/models.
func WithModelCatalog(c ModelCatalog) Option {
	return func(handler *Handler) { handler.catalog = c }
}

// WithTrainingContext sets the parent context of API-triggered training runs.
func WithTrainingContext(ctx context.Context) Option {
	return func(handler *Handler) { handler.trainCtx = ctx }
}

// NewHandler creates a handler around engine.
func NewHandler(engine *recommend.Engine, opts ...Option) *Handler {
	h := &Handler{
		engine:    engine,
		trainCtx:  context.Background(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}
