// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Validate checks every section and returns all problems found.
func (c *Config) Validate() error {
	errs := []error{
		c.validateServer(),
		c.validateSecurity(),
		c.validateLogging(),
		c.validateCrops(),
		c.validateTraining(),
		c.validateStores(),
		c.validateRemote(),
	}
	if err := c.Recommend.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("recommend: %w", err))
	}
	if err := c.Synth.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("synth: %w", err))
	}
	return errors.Join(errs...)
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %v", c.Server.Timeout)
	}
	switch c.Server.Environment {
	case "development", "production":
	default:
		return fmt.Errorf("server.environment must be development or production, got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs <= 0 {
		return fmt.Errorf("security.rate_limit_reqs must be positive, got %d", c.Security.RateLimitReqs)
	}
	if c.Security.RateLimitWindow <= 0 {
		return fmt.Errorf("security.rate_limit_window must be positive, got %v", c.Security.RateLimitWindow)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q is not a known level", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

func (c *Config) validateCrops() error {
	if c.Crops.TablePath == "" {
		return nil
	}
	switch strings.ToLower(filepath.Ext(c.Crops.TablePath)) {
	case ".yaml", ".yml", ".csv", ".xlsx":
		return nil
	default:
		return fmt.Errorf("crops.table_path must be a .yaml, .csv or .xlsx file, got %q", c.Crops.TablePath)
	}
}

func (c *Config) validateTraining() error {
	t := c.Training
	if t.TestRatio <= 0 || t.TestRatio >= 1 {
		return fmt.Errorf("training.test_ratio must be in (0, 1), got %v", t.TestRatio)
	}
	if t.VarSmoothing < 0 {
		return fmt.Errorf("training.var_smoothing must be non-negative, got %v", t.VarSmoothing)
	}
	if t.MinAccuracy < 0 || t.MinAccuracy > 1 {
		return fmt.Errorf("training.min_accuracy must be in [0, 1], got %v", t.MinAccuracy)
	}
	if t.Interval < 0 {
		return fmt.Errorf("training.interval must be non-negative, got %v", t.Interval)
	}
	if t.Timeout <= 0 {
		return fmt.Errorf("training.timeout must be positive, got %v", t.Timeout)
	}
	if t.ImportanceRepeats < 0 {
		return fmt.Errorf("training.importance_repeats must be non-negative, got %d", t.ImportanceRepeats)
	}
	return nil
}

func (c *Config) validateStores() error {
	if c.Models.Dir != "" && c.Models.KeepVersions < 1 {
		return fmt.Errorf("models.keep_versions must be at least 1, got %d", c.Models.KeepVersions)
	}
	if c.History.Enabled {
		if !c.History.InMemory && c.History.Dir == "" {
			return errors.New("history.dir is required unless history.in_memory is set")
		}
		if c.History.TTL < 0 {
			return fmt.Errorf("history.ttl must be non-negative, got %v", c.History.TTL)
		}
	}
	return nil
}

func (c *Config) validateRemote() error {
	if !c.Remote.Enabled {
		return nil
	}
	u, err := url.Parse(c.Remote.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("remote.url must be an http(s) URL, got %q", c.Remote.URL)
	}
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("remote.timeout must be positive, got %v", c.Remote.Timeout)
	}
	if c.Remote.RateLimit < 0 {
		return fmt.Errorf("remote.rate_limit must be non-negative, got %v", c.Remote.RateLimit)
	}
	return nil
}
