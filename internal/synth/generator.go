// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package synth

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/agrosense/internal/crop"
	"github.com/tomtom215/agrosense/internal/metrics"
)

var (
	// ErrWrappingWindow is returned for a planting window that crosses the
	// year end. Uniform month sampling is only defined for Start <= End.
	ErrWrappingWindow = errors.New("planting window wraps across year end")

	// ErrInvalidSampleCount is returned when samplesPerCrop is below one.
	ErrInvalidSampleCount = errors.New("samples per crop must be at least 1")
)

// Sample is one labeled synthetic observation.
type Sample struct {
	Observation crop.Observation `json:"observation"`
	Label       string           `json:"label"`
}

// Generator produces synthetic samples. It holds no random state, so a
// single Generator may be shared; callers supply the random source.
type Generator struct {
	cfg    Config
	logger zerolog.Logger
}

// NewGenerator creates a generator with the given noise model.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewGenerator(cfg Config, logger zerolog.Logger) (*Generator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generator config: %w", err)
	}
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}

	return &Generator{
		cfg:    cfg,
		logger: logger.With().Str("component", "synth").Logger(),
	}, nil
}

// Config returns the generator configuration.
func (g *Generator) Config() Config {
	return g.cfg
}

// NewSource returns a random source seeded with seed, or with the
// configured default when seed is zero.
func (g *Generator) NewSource(seed int64) *rand.Rand {
	if seed == 0 {
		seed = g.cfg.Seed
	}
	return rand.New(rand.NewSource(seed)) //nolint:gosec // reproducible sampling, not security sensitive
}

// Generate draws samplesPerCrop samples for every profile, in profile order.
// The result has exactly len(profiles)*samplesPerCrop entries. Profiles are
// checked before any draw, so an error never yields partial output.
func (g *Generator) Generate(profiles []crop.Profile, samplesPerCrop int, rng *rand.Rand) ([]Sample, error) {
	if err := checkInputs(profiles, samplesPerCrop); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = g.NewSource(0)
	}

	start := time.Now()
	out := make([]Sample, 0, len(profiles)*samplesPerCrop)
	for i := range profiles {
		out = g.appendCrop(out, &profiles[i], samplesPerCrop, rng)
	}

	metrics.SyntheticSamplesGenerated.Add(float64(len(out)))
	g.logger.Debug().
		Int("crops", len(profiles)).
		Int("samples", len(out)).
		Dur("duration", time.Since(start)).
		Msg("generated synthetic samples")

	return out, nil
}

// GenerateParallel generates each crop on its own goroutine. Crop i uses a
// source seeded with seed+i, so the output is reproducible per seed but is
// a different stream from Generate with the same seed. Samples are returned
// in profile order.
func (g *Generator) GenerateParallel(ctx context.Context, profiles []crop.Profile, samplesPerCrop int, seed int64) ([]Sample, error) {
	if err := checkInputs(profiles, samplesPerCrop); err != nil {
		return nil, err
	}
	if seed == 0 {
		seed = g.cfg.Seed
	}

	start := time.Now()
	out := make([]Sample, len(profiles)*samplesPerCrop)

	eg, ctx := errgroup.WithContext(ctx)
	for i := range profiles {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(seed + int64(i))) //nolint:gosec // reproducible sampling
			chunk := out[i*samplesPerCrop : i*samplesPerCrop : (i+1)*samplesPerCrop]
			g.appendCrop(chunk, &profiles[i], samplesPerCrop, rng)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("generate samples: %w", err)
	}

	metrics.SyntheticSamplesGenerated.Add(float64(len(out)))
	g.logger.Debug().
		Int("crops", len(profiles)).
		Int("samples", len(out)).
		Dur("duration", time.Since(start)).
		Msg("generated synthetic samples in parallel")

	return out, nil
}

func checkInputs(profiles []crop.Profile, samplesPerCrop int) error {
	if samplesPerCrop < 1 {
		return fmt.Errorf("%w, got %d", ErrInvalidSampleCount, samplesPerCrop)
	}
	for i := range profiles {
		if profiles[i].Planting.Wraps() {
			return fmt.Errorf("%s: %w (%d-%d)", profiles[i].Name, ErrWrappingWindow,
				profiles[i].Planting.Start, profiles[i].Planting.End)
		}
	}
	return nil
}

// appendCrop appends n samples for p to dst. The draw order is fixed.
func (g *Generator) appendCrop(dst []Sample, p *crop.Profile, n int, rng *rand.Rand) []Sample {
	months := p.Planting.End - p.Planting.Start + 1
	for j := 0; j < n; j++ {
		obs := crop.Observation{
			PH:          draw(rng, p.PH, g.cfg.PH),
			Temperature: draw(rng, p.Temperature, g.cfg.Temperature),
			Rainfall:    draw(rng, p.Rainfall, g.cfg.Rainfall),
			Nitrogen:    draw(rng, p.Nitrogen, g.cfg.Nitrogen),
			Phosphorus:  draw(rng, p.Phosphorus, g.cfg.Phosphorus),
			Potassium:   draw(rng, p.Potassium, g.cfg.Potassium),
			Humidity:    draw(rng, p.Humidity, g.cfg.Humidity),
		}
		obs.Month = p.Planting.Start + rng.Intn(months)
		obs.Season = p.Season
		obs.Soil = p.Soil

		dst = append(dst, Sample{Observation: obs, Label: p.Name})
	}
	return dst
}

// draw samples N(mid, sigma) and clips it to the band widened by margin.
func draw(rng *rand.Rand, band crop.Range, s Spread) float64 {
	v := band.Midpoint() + rng.NormFloat64()*s.Sigma
	lo, hi := band.Min-s.Margin, band.Max+s.Margin
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
