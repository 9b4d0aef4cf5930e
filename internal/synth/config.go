// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package synth

import (
	"errors"
	"fmt"
)

// Spread is the noise model for one continuous field.
type Spread struct {
	// Sigma is the standard deviation of the normal draw.
	Sigma float64 `json:"sigma" koanf:"sigma"`

	// Margin widens the clip interval on both sides of the tolerance band.
	Margin float64 `json:"margin" koanf:"margin"`
}

// Config controls sample generation.
type Config struct {
	PH          Spread `json:"soil_ph" koanf:"soil_ph"`
	Temperature Spread `json:"temperature" koanf:"temperature"`
	Rainfall    Spread `json:"rainfall" koanf:"rainfall"`
	Nitrogen    Spread `json:"nitrogen" koanf:"nitrogen"`
	Phosphorus  Spread `json:"phosphorus" koanf:"phosphorus"`
	Potassium   Spread `json:"potassium" koanf:"potassium"`
	Humidity    Spread `json:"humidity" koanf:"humidity"`

	// SamplesPerCrop is the default number of samples per table row.
	SamplesPerCrop int `json:"samples_per_crop" koanf:"samples_per_crop"`

	// Seed is the default random seed. Zero selects 42.
	Seed int64 `json:"seed" koanf:"seed"`
}

// DefaultConfig returns the standard noise model.
func DefaultConfig() Config {
	return Config{
		PH:             Spread{Sigma: 0.3, Margin: 0.5},
		Temperature:    Spread{Sigma: 3, Margin: 5},
		Rainfall:       Spread{Sigma: 100, Margin: 200},
		Nitrogen:       Spread{Sigma: 10, Margin: 20},
		Phosphorus:     Spread{Sigma: 5, Margin: 10},
		Potassium:      Spread{Sigma: 5, Margin: 10},
		Humidity:       Spread{Sigma: 5, Margin: 10},
		SamplesPerCrop: 300,
		Seed:           42,
	}
}

// Validate checks that every spread is non-negative.
func (c *Config) Validate() error {
	spreads := []struct {
		name string
		s    Spread
	}{
		{"soil_ph", c.PH},
		{"temperature", c.Temperature},
		{"rainfall", c.Rainfall},
		{"nitrogen", c.Nitrogen},
		{"phosphorus", c.Phosphorus},
		{"potassium", c.Potassium},
		{"humidity", c.Humidity},
	}

	var errs []error
	for _, sp := range spreads {
		if sp.s.Sigma < 0 {
			errs = append(errs, fmt.Errorf("%s sigma must be non-negative, got %v", sp.name, sp.s.Sigma))
		}
		if sp.s.Margin < 0 {
			errs = append(errs, fmt.Errorf("%s margin must be non-negative, got %v", sp.name, sp.s.Margin))
		}
	}
	if c.SamplesPerCrop < 1 {
		errs = append(errs, fmt.Errorf("samples_per_crop must be positive, got %d", c.SamplesPerCrop))
	}

	return errors.Join(errs...)
}
