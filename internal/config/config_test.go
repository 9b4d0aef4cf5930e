// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Recommend.Limits.DefaultK != 3 {
		t.Errorf("Recommend.Limits.DefaultK = %d, want 3", cfg.Recommend.Limits.DefaultK)
	}
	if cfg.Synth.Seed != 42 || cfg.Synth.SamplesPerCrop != 300 {
		t.Errorf("Synth = %+v", cfg.Synth)
	}
	if cfg.Training.TestRatio != 0.2 {
		t.Errorf("Training.TestRatio = %v, want 0.2", cfg.Training.TestRatio)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"bad environment", func(c *Config) { c.Server.Environment = "qa" }, "server.environment"},
		{"rate limit zero", func(c *Config) { c.Security.RateLimitReqs = 0 }, "rate_limit_reqs"},
		{"rate limit disabled", func(c *Config) {
			c.Security.RateLimitReqs = 0
			c.Security.RateLimitDisabled = true
		}, ""},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad table ext", func(c *Config) { c.Crops.TablePath = "crops.txt" }, "crops.table_path"},
		{"xlsx table", func(c *Config) { c.Crops.TablePath = "/etc/crops.XLSX" }, ""},
		{"test ratio", func(c *Config) { c.Training.TestRatio = 1 }, "test_ratio"},
		{"min accuracy", func(c *Config) { c.Training.MinAccuracy = 1.5 }, "min_accuracy"},
		{"importance repeats", func(c *Config) { c.Training.ImportanceRepeats = -1 }, "importance_repeats"},
		{"keep versions", func(c *Config) { c.Models.KeepVersions = 0 }, "keep_versions"},
		{"history dir", func(c *Config) { c.History.Dir = "" }, "history.dir"},
		{"history in memory", func(c *Config) {
			c.History.Dir = ""
			c.History.InMemory = true
		}, ""},
		{"remote url", func(c *Config) {
			c.Remote.Enabled = true
			c.Remote.URL = "models:9000"
		}, "remote.url"},
		{"remote ok", func(c *Config) {
			c.Remote.Enabled = true
			c.Remote.URL = "http://models:9000"
		}, ""},
		{"recommend section", func(c *Config) { c.Recommend.Limits.DefaultK = 0 }, "recommend:"},
		{"synth section", func(c *Config) { c.Synth.PH.Sigma = -1 }, "synth:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"HTTP_PORT":       "server.port",
		"DUCKDB_PATH":     "database.path",
		"SYNTH_SEED":      "synth.seed",
		"CROP_TABLE_PATH": "crops.table_path",
		"HOME":            "",
		"PATH":            "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}

// Load reads process-wide environment, so these tests use t.Setenv and
// cannot run in parallel.

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(ConfigPathEnvVar, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 || cfg.Training.Interval != 24*time.Hour {
		t.Errorf("defaults not applied: %+v", cfg.Server)
	}
	if len(cfg.Security.CORSOrigins) != 1 || cfg.Security.CORSOrigins[0] != "*" {
		t.Errorf("CORSOrigins = %v", cfg.Security.CORSOrigins)
	}
}

func TestLoadFileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "agrosense.yaml")
	yaml := `
server:
  port: 9090
synth:
  samples_per_crop: 50
  seed: 7
  soil_ph:
    sigma: 0.2
    margin: 0.4
training:
  interval: 1h
history:
  in_memory: true
  dir: ""
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("SYNTH_SEED", "99")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090 from file", cfg.Server.Port)
	}
	if cfg.Synth.SamplesPerCrop != 50 {
		t.Errorf("SamplesPerCrop = %d, want 50", cfg.Synth.SamplesPerCrop)
	}
	if cfg.Synth.Seed != 99 {
		t.Errorf("Seed = %d, want env override 99", cfg.Synth.Seed)
	}
	if cfg.Synth.PH.Sigma != 0.2 || cfg.Synth.Temperature.Sigma != 3 {
		t.Errorf("spreads = %+v / %+v", cfg.Synth.PH, cfg.Synth.Temperature)
	}
	if cfg.Training.Interval != time.Hour {
		t.Errorf("Training.Interval = %v, want 1h", cfg.Training.Interval)
	}
	if got := cfg.Security.CORSOrigins; len(got) != 2 || got[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", got)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("HTTP_PORT", "70000")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestServerAddr(t *testing.T) {
	t.Parallel()

	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got := s.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q", got)
	}
}
