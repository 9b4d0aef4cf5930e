// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

// Package training runs the model training pipeline:
//
//  1. generate seeded synthetic samples from the crop table
//  2. persist them to the dataset store (optional)
//  3. stratified train/test split
//  4. fit a Gaussian naive Bayes classifier
//  5. evaluate held-out accuracy
//  6. persist the model snapshot (optional)
//  7. swap the model into the recommendation engine
//
// Failures of the optional stores are logged and do not fail the run.
package training

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math/rand"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/agrosense/internal/classifier"
	"github.com/tomtom215/agrosense/internal/crop"
	"github.com/tomtom215/agrosense/internal/database"
	"github.com/tomtom215/agrosense/internal/logging"
	"github.com/tomtom215/agrosense/internal/metrics"
	"github.com/tomtom215/agrosense/internal/recommend"
	"github.com/tomtom215/agrosense/internal/storage"
	"github.com/tomtom215/agrosense/internal/synth"
)

var (
	// ErrTrainingInProgress is returned when Run is called during a run.
	ErrTrainingInProgress = errors.New("training already in progress")

	// ErrAccuracyTooLow is returned when a model scores below MinAccuracy.
	// The previous model stays in service.
	ErrAccuracyTooLow = errors.New("model accuracy below threshold")
)

// DatasetStore persists generated samples.
type DatasetStore interface {
	CreateRun(ctx context.Context, run database.Run) error
	InsertSamples(ctx context.Context, runID string, samples []synth.Sample) (int, error)
	CompleteRun(ctx context.Context, runID string, accuracy float64, modelVersion int) error
	ExportCSV(ctx context.Context, runID, path string) error
}

// ModelStore persists classifier snapshots.
type ModelStore interface {
	Save(ctx context.Context, name string, version int, data interface{}, meta storage.ModelMetadata) (storage.ModelMetadata, error)
	LoadLatest(ctx context.Context, name string, target interface{}) (*storage.ModelMetadata, error)
	Prune(ctx context.Context, name string, keep int) (int, error)
	LatestVersion(name string) (int, bool)
}

// ClassifierSink receives newly trained models.
type ClassifierSink interface {
	SetClassifier(c recommend.Classifier)
}

// Config controls a training run.
type Config struct {
	SamplesPerCrop int
	Seed           int64
	TestRatio      float64
	VarSmoothing   float64
	MinAccuracy    float64
	Timeout        time.Duration

	// KeepVersions bounds stored model snapshots.
	KeepVersions int

	// ExportDir receives {run_id}.csv per run when set.
	ExportDir string

	// ImportanceRepeats is the number of shuffles per feature for
	// permutation importance. Zero skips the measurement.
	ImportanceRepeats int
}

// Status reports the trainer state.
type Status struct {
	IsTraining             bool               `json:"is_training"`
	Classifier             string             `json:"classifier,omitempty"`
	ModelVersion           int                `json:"model_version"`
	RunID                  string             `json:"run_id,omitempty"`
	LastTrainedAt          time.Time          `json:"last_trained_at,omitempty"`
	LastTrainingDurationMS int64              `json:"last_training_duration_ms"`
	LastError              string             `json:"last_error,omitempty"`
	SampleCount            int                `json:"sample_count"`
	CropCount              int                `json:"crop_count"`
	Accuracy               float64            `json:"accuracy"`
	PerCrop                map[string]float64 `json:"per_crop_accuracy,omitempty"`
	Runs                   int                `json:"runs"`

	MacroF1           float64                            `json:"macro_f1"`
	Classes           map[string]classifier.ClassMetrics `json:"classes,omitempty"`
	FeatureImportance []classifier.FeatureImportance     `json:"feature_importance,omitempty"`
}

// Result describes one completed run.
type Result struct {
	RunID        string
	ModelVersion int
	SampleCount  int
	Report       classifier.Report
	Importance   []classifier.FeatureImportance
	Duration     time.Duration
}

// Trainer owns the training pipeline.
type Trainer struct {
	cfg       Config
	table     *crop.Table
	generator *synth.Generator
	sink      ClassifierSink
	logger    zerolog.Logger

	datasets DatasetStore
	models   ModelStore

	runMu sync.Mutex // held for the duration of a run

	mu      sync.RWMutex
	status  Status
	version int
}

// NewTrainer creates a trainer. Stores are attached with SetDatasetStore and
// SetModelStore.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewTrainer(cfg Config, table *crop.Table, generator *synth.Generator, sink ClassifierSink, logger zerolog.Logger) (*Trainer, error) {
	if table == nil || table.Len() == 0 {
		return nil, errors.New("crop table is required")
	}
	if generator == nil {
		return nil, errors.New("sample generator is required")
	}
	if sink == nil {
		return nil, errors.New("classifier sink is required")
	}
	if cfg.SamplesPerCrop <= 0 {
		return nil, fmt.Errorf("samples per crop must be positive, got %d", cfg.SamplesPerCrop)
	}
	if cfg.TestRatio <= 0 || cfg.TestRatio >= 1 {
		return nil, fmt.Errorf("test ratio must be in (0, 1), got %v", cfg.TestRatio)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if cfg.KeepVersions <= 0 {
		cfg.KeepVersions = 5
	}

	return &Trainer{
		cfg:       cfg,
		table:     table,
		generator: generator,
		sink:      sink,
		logger:    logger.With().Str("component", "training").Logger(),
	}, nil
}

// SetDatasetStore attaches the sample store.
func (t *Trainer) SetDatasetStore(ds DatasetStore) { t.datasets = ds }

// SetModelStore attaches the model snapshot store.
func (t *Trainer) SetModelStore(ms ModelStore) { t.models = ms }

// Status returns a copy of the current status.
func (t *Trainer) Status() Status {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := t.status
	s.PerCrop = maps.Clone(t.status.PerCrop)
	s.Classes = maps.Clone(t.status.Classes)
	s.FeatureImportance = slices.Clone(t.status.FeatureImportance)
	return s
}

// Restore loads the latest stored model into the sink. It reports false
// when there is no model store or nothing stored yet.
func (t *Trainer) Restore(ctx context.Context) (bool, error) {
	if t.models == nil {
		return false, nil
	}

	var state classifier.State
	meta, err := t.models.LoadLatest(ctx, classifier.Name, &state)
	if errors.Is(err, storage.ErrModelNotFound) {
		return false, nil
	}
	if err != nil {
		// Versions already on disk stay reserved even if the newest is unreadable.
		if v, ok := t.models.LatestVersion(classifier.Name); ok {
			t.mu.Lock()
			t.version = max(t.version, v)
			t.mu.Unlock()
		}
		return false, fmt.Errorf("load stored model: %w", err)
	}

	model := classifier.NewGaussianNB(t.cfg.VarSmoothing)
	if err := model.Restore(state); err != nil {
		return false, fmt.Errorf("restore stored model: %w", err)
	}
	t.sink.SetClassifier(model)

	t.mu.Lock()
	t.version = max(t.version, meta.Version)
	t.status.Classifier = model.Name()
	t.status.ModelVersion = meta.Version
	t.status.RunID = meta.RunID
	t.status.LastTrainedAt = meta.TrainedAt
	t.status.LastTrainingDurationMS = meta.TrainingDurationMS
	t.status.SampleCount = meta.SampleCount
	t.status.CropCount = meta.CropCount
	t.status.Accuracy = meta.Accuracy
	t.mu.Unlock()

	metrics.ModelVersion.Set(float64(meta.Version))
	metrics.ModelAccuracy.Set(meta.Accuracy)

	t.logger.Info().
		Int("version", meta.Version).
		Float64("accuracy", meta.Accuracy).
		Time("trained_at", meta.TrainedAt).
		Msg("Restored stored model")
	return true, nil
}

// Run executes one training run and waits for it to finish.
func (t *Trainer) Run(ctx context.Context) (*Result, error) {
	if !t.claim() {
		return nil, ErrTrainingInProgress
	}
	return t.run(ctx)
}

// Start claims the training slot and runs in the background. It returns
// ErrTrainingInProgress without starting anything when a run is active, so
// of two concurrent callers exactly one succeeds.
func (t *Trainer) Start(ctx context.Context) error {
	if !t.claim() {
		return ErrTrainingInProgress
	}
	go func() {
		if _, err := t.run(ctx); err != nil {
			logging.Ctx(ctx).Error().Err(err).Msg("Background training run did not complete")
		}
	}()
	return nil
}

// claim takes the run lock and marks the trainer busy.
func (t *Trainer) claim() bool {
	if !t.runMu.TryLock() {
		return false
	}
	t.mu.Lock()
	t.status.IsTraining = true
	t.status.LastError = ""
	t.mu.Unlock()
	return true
}

// run executes a claimed run and releases the claim when done.
func (t *Trainer) run(ctx context.Context) (res *Result, err error) {
	defer t.runMu.Unlock()

	runID := uuid.NewString()
	ctx = logging.ContextWithCorrelationID(ctx, runID)
	ctx, cancel := context.WithTimeout(ctx, t.cfg.Timeout)
	defer cancel()

	logger := t.logger.With().Str("run_id", runID).Logger()
	start := time.Now()

	defer func() {
		duration := time.Since(start)
		t.mu.Lock()
		t.status.IsTraining = false
		t.status.Runs++
		if err != nil {
			t.status.LastError = err.Error()
		}
		t.mu.Unlock()

		accuracy, version := 0.0, 0
		if res != nil {
			accuracy, version = res.Report.Accuracy, res.ModelVersion
		}
		metrics.RecordTraining(duration, accuracy, version, err)
	}()

	logger.Info().
		Int("crops", t.table.Len()).
		Int("samples_per_crop", t.cfg.SamplesPerCrop).
		Int64("seed", t.cfg.Seed).
		Msg("Starting model training")

	samples, err := t.generator.GenerateParallel(ctx, t.table.Profiles(), t.cfg.SamplesPerCrop, t.cfg.Seed)
	if err != nil {
		return nil, fmt.Errorf("generate dataset: %w", err)
	}
	logger.Debug().Int("samples", len(samples)).Msg("Synthetic dataset generated")

	t.persistSamples(ctx, logger, runID, samples)

	train, test, err := classifier.StratifiedSplit(samples, t.cfg.TestRatio, rand.New(rand.NewSource(t.cfg.Seed))) //nolint:gosec // reproducible split
	if err != nil {
		return nil, fmt.Errorf("split samples: %w", err)
	}

	t.mu.RLock()
	base := t.version
	t.mu.RUnlock()

	model := classifier.NewGaussianNB(t.cfg.VarSmoothing)
	model.StartVersion(base)
	if err := model.Train(ctx, train); err != nil {
		return nil, fmt.Errorf("train classifier: %w", err)
	}

	report, err := classifier.Evaluate(ctx, model, test)
	if err != nil {
		return nil, fmt.Errorf("evaluate classifier: %w", err)
	}

	var importance []classifier.FeatureImportance
	if t.cfg.ImportanceRepeats > 0 {
		rng := rand.New(rand.NewSource(t.cfg.Seed)) //nolint:gosec // reproducible shuffles
		importance, err = classifier.PermutationImportance(ctx, model, test, t.cfg.ImportanceRepeats, rng)
		if err != nil {
			return nil, fmt.Errorf("feature importance: %w", err)
		}
	}

	res = &Result{
		RunID:        runID,
		ModelVersion: model.Version(),
		SampleCount:  len(samples),
		Report:       report,
		Importance:   importance,
		Duration:     time.Since(start),
	}

	if t.datasets != nil {
		if cerr := t.datasets.CompleteRun(ctx, runID, report.Accuracy, res.ModelVersion); cerr != nil {
			logger.Warn().Err(cerr).Msg("Failed to record run result")
		}
	}

	if report.Accuracy < t.cfg.MinAccuracy {
		logger.Warn().
			Float64("accuracy", report.Accuracy).
			Float64("min_accuracy", t.cfg.MinAccuracy).
			Msg("Trained model rejected")
		return res, fmt.Errorf("%w: %.4f < %.4f", ErrAccuracyTooLow, report.Accuracy, t.cfg.MinAccuracy)
	}

	t.persistModel(ctx, logger, model, res)

	t.sink.SetClassifier(model)

	t.mu.Lock()
	t.version = res.ModelVersion
	t.status.Classifier = model.Name()
	t.status.ModelVersion = res.ModelVersion
	t.status.RunID = runID
	t.status.LastTrainedAt = model.LastTrainedAt()
	t.status.LastTrainingDurationMS = res.Duration.Milliseconds()
	t.status.SampleCount = len(samples)
	t.status.CropCount = len(model.Labels())
	t.status.Accuracy = report.Accuracy
	t.status.PerCrop = report.PerCrop
	t.status.MacroF1 = report.MacroF1
	t.status.Classes = report.Classes
	t.status.FeatureImportance = importance
	t.mu.Unlock()

	logger.Info().
		Int("version", res.ModelVersion).
		Float64("accuracy", report.Accuracy).
		Float64("macro_f1", report.MacroF1).
		Int("train", len(train)).
		Int("test", len(test)).
		Dur("duration", res.Duration).
		Msg("Model training complete")
	return res, nil
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func (t *Trainer) persistSamples(ctx context.Context, logger zerolog.Logger, runID string, samples []synth.Sample) {
	if t.datasets == nil {
		return
	}
	run := database.Run{ID: runID, Seed: t.cfg.Seed, SamplesPerCrop: t.cfg.SamplesPerCrop}
	if err := t.datasets.CreateRun(ctx, run); err != nil {
		logger.Warn().Err(err).Msg("Failed to record training run")
		return
	}
	if _, err := t.datasets.InsertSamples(ctx, runID, samples); err != nil {
		logger.Warn().Err(err).Msg("Failed to store training samples")
		return
	}
	if t.cfg.ExportDir != "" {
		path := filepath.Join(t.cfg.ExportDir, runID+".csv")
		if err := t.datasets.ExportCSV(ctx, runID, path); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Failed to export training samples")
		}
	}
}

//nolint:gocritic // zerolog.Logger is designed to be passed by value
func (t *Trainer) persistModel(ctx context.Context, logger zerolog.Logger, model *classifier.GaussianNB, res *Result) {
	if t.models == nil {
		return
	}
	state, err := model.Snapshot()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to snapshot model")
		return
	}
	meta := storage.ModelMetadata{
		TrainedAt:          state.TrainedAt,
		SampleCount:        res.SampleCount,
		CropCount:          len(state.Labels),
		Accuracy:           res.Report.Accuracy,
		RunID:              res.RunID,
		TrainingDurationMS: res.Duration.Milliseconds(),
	}
	if _, err := t.models.Save(ctx, model.Name(), res.ModelVersion, state, meta); err != nil {
		logger.Warn().Err(err).Msg("Failed to save model")
		return
	}
	if removed, err := t.models.Prune(ctx, model.Name(), t.cfg.KeepVersions); err != nil {
		logger.Warn().Err(err).Msg("Failed to prune old models")
	} else if removed > 0 {
		logger.Debug().Int("removed", removed).Msg("Pruned old models")
	}
}
