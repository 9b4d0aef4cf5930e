// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package recommend

import (
	"errors"
	"fmt"
	"time"
)

// Config contains all configuration for the recommendation engine.
type Config struct {
	// Limits contains operational limits.
	Limits LimitsConfig `json:"limits" koanf:"limits"`

	// Cache contains caching parameters.
	Cache CacheConfig `json:"cache" koanf:"cache"`

	// SoilAdvice enables crop-independent soil management tips in responses.
	SoilAdvice bool `json:"soil_advice" koanf:"soil_advice"`
}

// LimitsConfig contains operational limits.
type LimitsConfig struct {
	// DefaultK is the number of entries returned when a request sets none.
	DefaultK int `json:"default_k" koanf:"default_k"`

	// MaxK caps the number of entries a request may ask for.
	MaxK int `json:"max_k" koanf:"max_k"`

	// PredictTimeout bounds a single classifier call.
	PredictTimeout time.Duration `json:"predict_timeout" koanf:"predict_timeout"`
}

// CacheConfig contains caching parameters.
type CacheConfig struct {
	// Enabled turns on the in-memory response cache.
	Enabled bool `json:"enabled" koanf:"enabled"`

	// TTL is how long a cached response stays valid.
	TTL time.Duration `json:"ttl" koanf:"ttl"`

	// MaxEntries bounds the cache size. The cache is cleared when full.
	MaxEntries int `json:"max_entries" koanf:"max_entries"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() *Config {
	return &Config{
		Limits: LimitsConfig{
			DefaultK:       3,
			MaxK:           20,
			PredictTimeout: 5 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        10 * time.Minute,
			MaxEntries: 10000,
		},
		SoilAdvice: true,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Limits.DefaultK <= 0 {
		errs = append(errs, fmt.Errorf("default_k must be positive, got %d", c.Limits.DefaultK))
	}
	if c.Limits.MaxK < c.Limits.DefaultK {
		errs = append(errs, fmt.Errorf("max_k (%d) must be >= default_k (%d)", c.Limits.MaxK, c.Limits.DefaultK))
	}
	if c.Limits.PredictTimeout < 0 {
		errs = append(errs, fmt.Errorf("predict_timeout must be non-negative, got %v", c.Limits.PredictTimeout))
	}
	if c.Cache.Enabled {
		if c.Cache.TTL <= 0 {
			errs = append(errs, fmt.Errorf("cache ttl must be positive, got %v", c.Cache.TTL))
		}
		if c.Cache.MaxEntries <= 0 {
			errs = append(errs, fmt.Errorf("cache max_entries must be positive, got %d", c.Cache.MaxEntries))
		}
	}

	return errors.Join(errs...)
}

// Clone returns a copy of the configuration. Config holds only values, so
// the copy shares nothing with c.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
