// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/agrosense/internal/classifier"
	"github.com/tomtom215/agrosense/internal/recommend"
	"github.com/tomtom215/agrosense/internal/synth"
)

// DefaultConfigPaths lists the config file search order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/agrosense/config.yaml",
	"/etc/agrosense/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Recommend: *recommend.DefaultConfig(),
		Synth:     synth.DefaultConfig(),
		Training: TrainingConfig{
			OnStartup:    true,
			Interval:     24 * time.Hour,
			TestRatio:    0.2,
			VarSmoothing: classifier.DefaultVarSmoothing,
			MinAccuracy:  0.5,
			Timeout:      5 * time.Minute,

			ImportanceRepeats: 2,
		},
		Models: ModelsConfig{
			Dir:          "/data/models",
			KeepVersions: 5,
		},
		Database: DatabaseConfig{
			Enabled: true,
			Path:    "/data/agrosense.duckdb",
		},
		History: HistoryConfig{
			Enabled: true,
			Dir:     "/data/history",
			TTL:     30 * 24 * time.Hour,
		},
		Remote: RemoteConfig{
			Timeout:        10 * time.Second,
			RateLimit:      20,
			Burst:          40,
			BreakerTimeout: 30 * time.Second,
		},
	}
}

// Load reads configuration from defaults, an optional YAML file and the
// environment, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields splits comma-separated env values into slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		str, ok := k.Get(path).(string)
		if !ok || str == "" {
			continue
		}
		parts := strings.Split(str, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"http_host":        "server.host",
	"http_port":        "server.port",
	"http_timeout":     "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	"cors_origins":        "security.cors_origins",
	"rate_limit_reqs":     "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"log_level":           "logging.level",
	"log_format":          "logging.format",
	"log_caller":          "logging.caller",
	"crop_table_path":     "crops.table_path",
	"crop_table_sheet":    "crops.sheet",
	"recommend_default_k": "recommend.limits.default_k",
	"recommend_max_k":     "recommend.limits.max_k",
	"recommend_cache":     "recommend.cache.enabled",
	"recommend_cache_ttl": "recommend.cache.ttl",
	"soil_advice":         "recommend.soil_advice",

	"synth_samples_per_crop": "synth.samples_per_crop",
	"synth_seed":             "synth.seed",

	"train_on_startup":         "training.on_startup",
	"train_interval":           "training.interval",
	"train_test_ratio":         "training.test_ratio",
	"train_var_smoothing":      "training.var_smoothing",
	"train_min_accuracy":       "training.min_accuracy",
	"train_timeout":            "training.timeout",
	"train_importance_repeats": "training.importance_repeats",
	"model_dir":                "models.dir",
	"model_keep_versions":      "models.keep_versions",
	"enable_dataset_store":     "database.enabled",
	"duckdb_path":              "database.path",
	"dataset_export_dir":       "database.export_dir",
	"enable_history":           "history.enabled",
	"history_dir":              "history.dir",
	"history_in_memory":        "history.in_memory",
	"history_ttl":              "history.ttl",
	"enable_remote_model":      "remote.enabled",
	"remote_model_url":         "remote.url",
	"remote_model_api_key":     "remote.api_key",
	"remote_model_timeout":     "remote.timeout",
	"remote_model_rate":        "remote.rate_limit",
	"remote_model_burst":       "remote.burst",
	"remote_breaker_timeout":   "remote.breaker_timeout",
}

// envTransformFunc maps an environment variable name to a config path.
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
