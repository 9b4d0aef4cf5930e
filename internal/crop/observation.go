// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package crop

import (
	"fmt"
	"math"
)

// NumFeatures is the length of an observation vector.
const NumFeatures = 10

// FeatureNames lists the observation columns in classifier order.
var FeatureNames = [NumFeatures]string{
	"soil_ph",
	"temperature",
	"rainfall",
	"nitrogen",
	"phosphorus",
	"potassium",
	"humidity",
	"month",
	"season",
	"soil_type",
}

// Measurements are the raw field readings supplied by a caller.
type Measurements struct {
	PH          float64 `json:"soil_ph"`
	Temperature float64 `json:"temperature"`
	Rainfall    float64 `json:"rainfall"`
	Nitrogen    float64 `json:"nitrogen"`
	Phosphorus  float64 `json:"phosphorus"`
	Potassium   float64 `json:"potassium"`
	Humidity    float64 `json:"humidity"`
	Month       int     `json:"month"`
}

// Validate checks the measurement bounds.
// Nutrient, temperature and rainfall readings are only required to be finite.
func (m Measurements) Validate() error {
	for i, v := range []float64{m.PH, m.Temperature, m.Rainfall, m.Nitrogen, m.Phosphorus, m.Potassium, m.Humidity} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s", ErrNotFinite, FeatureNames[i])
		}
	}
	if m.Month < 1 || m.Month > 12 {
		return fmt.Errorf("%w (got %d)", ErrInvalidMonth, m.Month)
	}
	if m.PH < 0 || m.PH > 14 {
		return fmt.Errorf("%w (got %.2f)", ErrInvalidPH, m.PH)
	}
	if m.Humidity < 0 || m.Humidity > 100 {
		return fmt.Errorf("%w (got %.2f)", ErrInvalidHumidity, m.Humidity)
	}
	return nil
}

// Observation is the full feature vector consumed by a classifier.
type Observation struct {
	PH          float64  `json:"soil_ph"`
	Temperature float64  `json:"temperature"`
	Rainfall    float64  `json:"rainfall"`
	Nitrogen    float64  `json:"nitrogen"`
	Phosphorus  float64  `json:"phosphorus"`
	Potassium   float64  `json:"potassium"`
	Humidity    float64  `json:"humidity"`
	Month       int      `json:"month"`
	Season      Season   `json:"season"`
	Soil        SoilType `json:"soil_type"`
}

// Features returns the observation in the order given by FeatureNames.
func (o Observation) Features() [NumFeatures]float64 {
	return [NumFeatures]float64{
		o.PH,
		o.Temperature,
		o.Rainfall,
		o.Nitrogen,
		o.Phosphorus,
		o.Potassium,
		o.Humidity,
		float64(o.Month),
		float64(o.Season),
		float64(o.Soil),
	}
}

// Derive validates m and fills in season and soil type from the
// context derivation rules.
func Derive(m Measurements) (Observation, error) {
	if err := m.Validate(); err != nil {
		return Observation{}, err
	}

	season, err := SeasonOf(m.Month)
	if err != nil {
		return Observation{}, err
	}

	return Observation{
		PH:          m.PH,
		Temperature: m.Temperature,
		Rainfall:    m.Rainfall,
		Nitrogen:    m.Nitrogen,
		Phosphorus:  m.Phosphorus,
		Potassium:   m.Potassium,
		Humidity:    m.Humidity,
		Month:       m.Month,
		Season:      season,
		Soil:        SoilTypeOf(m.PH, m.Nitrogen, m.Phosphorus, m.Potassium),
	}, nil
}
