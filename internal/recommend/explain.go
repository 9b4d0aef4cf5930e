// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package recommend

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tomtom215/agrosense/internal/crop"
)

// Factor names, in explanation order.
const (
	FactorPH          = "soil_ph"
	FactorTemperature = "temperature"
	FactorRainfall    = "rainfall"
	FactorNitrogen    = "nitrogen"
	FactorPlanting    = "planting_time"
)

// Verdict is the outcome of comparing one reading with a crop's band.
type Verdict struct {
	Factor  string `json:"factor"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Explain compares obs with p and returns verdicts for soil pH, temperature,
// rainfall, nitrogen and planting timing, in that order. Band checks are
// inclusive on both ends; the planting window may wrap across the year end.
//
//nolint:gocritic // Profile passed by value; it is a small read-only record
func Explain(obs crop.Observation, p crop.Profile) []Verdict {
	verdicts := make([]Verdict, 0, 5)

	ph := fmt.Sprintf("%.1f", obs.PH)
	verdicts = append(verdicts, verdict(FactorPH, p.PH.Contains(obs.PH),
		"Soil pH ("+ph+") is optimal",
		"Soil pH ("+ph+") needs adjustment"))

	temp := formatReading(obs.Temperature)
	verdicts = append(verdicts, verdict(FactorTemperature, p.Temperature.Contains(obs.Temperature),
		"Temperature ("+temp+"°C) is suitable",
		"Temperature ("+temp+"°C) may be challenging"))

	rain := formatReading(obs.Rainfall)
	verdicts = append(verdicts, verdict(FactorRainfall, p.Rainfall.Contains(obs.Rainfall),
		"Rainfall ("+rain+"mm) is adequate",
		"Rainfall ("+rain+"mm) may need irrigation/drainage"))

	verdicts = append(verdicts, verdict(FactorNitrogen, p.Nitrogen.Contains(obs.Nitrogen),
		"Nitrogen levels are good",
		"Nitrogen levels need adjustment"))

	verdicts = append(verdicts, verdict(FactorPlanting, p.Planting.Contains(obs.Month),
		"Good planting time",
		"Consider different planting time"))

	return verdicts
}

func verdict(factor string, ok bool, good, bad string) Verdict {
	if ok {
		return Verdict{Factor: factor, OK: true, Message: good}
	}
	return Verdict{Factor: factor, OK: false, Message: bad}
}

// formatReading prints v with the shortest exact representation and at
// least one decimal place (18 -> "18.0", 18.25 -> "18.25").
func formatReading(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// Messages flattens verdicts into their messages.
func Messages(verdicts []Verdict) []string {
	out := make([]string, len(verdicts))
	for i, v := range verdicts {
		out[i] = v.Message
	}
	return out
}

// Soil management thresholds.
const (
	acidicPH      = 6.0
	alkalinePH    = 7.5
	lowNitrogen   = 80.0
	lowPhosphorus = 40.0
	lowPotassium  = 40.0
)

// SoilAdvice returns crop-independent soil management tips for m.
// The result is empty when no reading is outside the advisory thresholds.
func SoilAdvice(m crop.Measurements) []string {
	var tips []string
	switch {
	case m.PH < acidicPH:
		tips = append(tips, "Consider applying lime to increase soil pH")
	case m.PH > alkalinePH:
		tips = append(tips, "Consider applying sulfur or organic matter to decrease soil pH")
	}
	if m.Nitrogen < lowNitrogen {
		tips = append(tips, "Apply nitrogen-rich fertilizers or organic manure")
	}
	if m.Phosphorus < lowPhosphorus {
		tips = append(tips, "Apply phosphate fertilizers")
	}
	if m.Potassium < lowPotassium {
		tips = append(tips, "Apply potash or wood ash")
	}
	return tips
}
