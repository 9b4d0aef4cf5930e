// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package config

import (
	"net"
	"strconv"
	"time"

	"github.com/tomtom215/agrosense/internal/recommend"
	"github.com/tomtom215/agrosense/internal/synth"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig     `koanf:"server"`
	Security  SecurityConfig   `koanf:"security"`
	Logging   LoggingConfig    `koanf:"logging"`
	Crops     CropsConfig      `koanf:"crops"`
	Recommend recommend.Config `koanf:"recommend"`
	Synth     synth.Config     `koanf:"synth"`
	Training  TrainingConfig   `koanf:"training"`
	Models    ModelsConfig     `koanf:"models"`
	Database  DatabaseConfig   `koanf:"database"`
	History   HistoryConfig    `koanf:"history"`
	Remote    RemoteConfig     `koanf:"remote"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development or production
}

// SecurityConfig holds CORS and rate limit settings for the API.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level"`

	// Format is json or console.
	Format string `koanf:"format"`

	// Caller includes file and line in each entry.
	Caller bool `koanf:"caller"`
}

// CropsConfig selects the crop reference table.
type CropsConfig struct {
	// TablePath is a .yaml, .csv or .xlsx file. Empty uses the built-in table.
	TablePath string `koanf:"table_path"`

	// Sheet is the worksheet read from an .xlsx table. Empty uses the first sheet.
	Sheet string `koanf:"sheet"`
}

// TrainingConfig controls the model training pipeline.
type TrainingConfig struct {
	// OnStartup trains a model before the API starts serving predictions.
	OnStartup bool `koanf:"on_startup"`

	// Interval is how often the model is retrained. Zero uses 24h.
	Interval time.Duration `koanf:"interval"`

	// TestRatio is the held-out fraction used for evaluation.
	TestRatio float64 `koanf:"test_ratio"`

	// VarSmoothing is the Gaussian naive Bayes variance smoothing factor.
	VarSmoothing float64 `koanf:"var_smoothing"`

	// MinAccuracy rejects a trained model that scores below it.
	MinAccuracy float64 `koanf:"min_accuracy"`

	// Timeout bounds one training run.
	Timeout time.Duration `koanf:"timeout"`

	// ImportanceRepeats is the number of shuffles per feature when measuring
	// permutation importance on the held-out set. Zero disables it.
	ImportanceRepeats int `koanf:"importance_repeats"`
}

// ModelsConfig configures persisted classifier snapshots.
type ModelsConfig struct {
	Dir          string `koanf:"dir"`
	KeepVersions int    `koanf:"keep_versions"`
}

// DatabaseConfig configures the DuckDB training dataset store.
type DatabaseConfig struct {
	Enabled bool `koanf:"enabled"`

	// Path is the DuckDB file. Empty opens an in-memory database.
	Path string `koanf:"path"`

	// ExportDir receives a CSV export of every training run when set.
	ExportDir string `koanf:"export_dir"`
}

// HistoryConfig configures the BadgerDB recommendation history.
type HistoryConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Dir      string        `koanf:"dir"`
	InMemory bool          `koanf:"in_memory"`
	TTL      time.Duration `koanf:"ttl"`
}

// RemoteConfig configures an external model server. When enabled the
// remote classifier replaces the locally trained one.
type RemoteConfig struct {
	Enabled        bool          `koanf:"enabled"`
	URL            string        `koanf:"url"`
	APIKey         string        `koanf:"api_key"`
	Timeout        time.Duration `koanf:"timeout"`
	RateLimit      float64       `koanf:"rate_limit"`
	Burst          int           `koanf:"burst"`
	BreakerTimeout time.Duration `koanf:"breaker_timeout"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
