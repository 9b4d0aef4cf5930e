// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package crop

import "fmt"

// Season is an Indian agricultural growing season.
type Season int

const (
	// SeasonKharif is the monsoon season (June-September).
	SeasonKharif Season = 1

	// SeasonRabi is the winter season (October-January).
	SeasonRabi Season = 2

	// SeasonZaid is the summer season (March-May).
	SeasonZaid Season = 3

	// SeasonPerennial marks year-round crops. It is never derived from a month.
	SeasonPerennial Season = 4
)

// String returns the display name of the season.
func (s Season) String() string {
	switch s {
	case SeasonKharif:
		return "Kharif"
	case SeasonRabi:
		return "Rabi"
	case SeasonZaid:
		return "Zaid"
	case SeasonPerennial:
		return "Perennial"
	default:
		return fmt.Sprintf("Season(%d)", int(s))
	}
}

// Valid reports whether s is one of the defined seasons.
func (s Season) Valid() bool {
	return s >= SeasonKharif && s <= SeasonPerennial
}

// SoilType is a coarse soil classification.
type SoilType int

const (
	SoilSandy    SoilType = 1
	SoilLoamy    SoilType = 2
	SoilClay     SoilType = 3
	SoilAlluvial SoilType = 4
	SoilBlack    SoilType = 5
)

// String returns the display name of the soil type.
func (s SoilType) String() string {
	switch s {
	case SoilSandy:
		return "Sandy"
	case SoilLoamy:
		return "Loamy"
	case SoilClay:
		return "Clay"
	case SoilAlluvial:
		return "Alluvial"
	case SoilBlack:
		return "Black"
	default:
		return fmt.Sprintf("SoilType(%d)", int(s))
	}
}

// Valid reports whether s is one of the defined soil types.
func (s SoilType) Valid() bool {
	return s >= SoilSandy && s <= SoilBlack
}

// Range is a closed interval [Min, Max].
type Range struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// Contains reports whether v lies inside the range, inclusive on both ends.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Midpoint returns (Min+Max)/2.
func (r Range) Midpoint() float64 {
	return (r.Min + r.Max) / 2
}

// Valid reports whether Min <= Max.
func (r Range) Valid() bool {
	return r.Min <= r.Max
}

// MonthWindow is an inclusive range of calendar months.
// A window whose End is before its Start wraps across the year end,
// e.g. {Start: 11, End: 2} covers Nov, Dec, Jan and Feb.
type MonthWindow struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Wraps reports whether the window crosses the year boundary.
func (w MonthWindow) Wraps() bool {
	return w.End < w.Start
}

// Contains reports whether month falls inside the window.
func (w MonthWindow) Contains(month int) bool {
	if w.Wraps() {
		return month >= w.Start || month <= w.End
	}
	return month >= w.Start && month <= w.End
}

// Profile is one row of the crop reference table.
type Profile struct {
	// Name is the unique crop identifier (e.g., "Wheat", "Rice_Basmati").
	Name string `json:"name"`

	// Tolerance bands for each continuous measurement.
	PH          Range `json:"soil_ph"`
	Temperature Range `json:"temperature"` // °C
	Rainfall    Range `json:"rainfall"`    // mm per season
	Nitrogen    Range `json:"nitrogen"`    // kg/ha
	Phosphorus  Range `json:"phosphorus"`  // kg/ha
	Potassium   Range `json:"potassium"`   // kg/ha
	Humidity    Range `json:"humidity"`    // %

	// Season is the growing season the crop belongs to.
	Season Season `json:"season"`

	// Planting is the recommended planting window.
	Planting MonthWindow `json:"planting"`

	// Soil is the preferred soil type.
	Soil SoilType `json:"soil_type"`

	// ExpectedYield is in quintals per hectare.
	ExpectedYield float64 `json:"expected_yield"`

	// DurationDays is the time from planting to harvest.
	DurationDays int `json:"duration_days"`
}
