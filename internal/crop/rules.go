// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package crop

// SeasonOf returns the growing season for a calendar month.
//
//	Jun-Sep        -> Kharif
//	Oct-Jan        -> Rabi
//	Mar-May        -> Zaid
//	Feb            -> Rabi (tail of the winter crop cycle)
//
// Months outside 1..12 return ErrInvalidMonth. SeasonPerennial is never returned.
func SeasonOf(month int) (Season, error) {
	switch month {
	case 6, 7, 8, 9:
		return SeasonKharif, nil
	case 10, 11, 12, 1:
		return SeasonRabi, nil
	case 3, 4, 5:
		return SeasonZaid, nil
	case 2:
		return SeasonRabi, nil
	default:
		return 0, ErrInvalidMonth
	}
}

// SoilRule is one entry of the soil decision list.
type SoilRule struct {
	// Name describes the rule for diagnostics.
	Name string

	// Match reports whether the rule applies to the measurements.
	Match func(ph, n, p, k float64) bool

	// Result is the soil type returned when Match is true.
	Result SoilType
}

// soilRules is evaluated top to bottom; the first match wins.
// The last rule always matches.
var soilRules = []SoilRule{
	{
		Name:   "high NPK",
		Match:  func(_, n, p, k float64) bool { return n > 150 && p > 80 && k > 100 },
		Result: SoilAlluvial,
	},
	{
		Name:   "high N and P",
		Match:  func(_, n, p, _ float64) bool { return n > 100 && p > 60 },
		Result: SoilBlack,
	},
	{
		Name:   "low N and P",
		Match:  func(_, n, p, _ float64) bool { return n < 80 && p < 40 },
		Result: SoilSandy,
	},
	{
		Name:   "alkaline",
		Match:  func(ph, _, _, _ float64) bool { return ph > 7.0 },
		Result: SoilClay,
	},
	{
		Name:   "default",
		Match:  func(_, _, _, _ float64) bool { return true },
		Result: SoilLoamy,
	},
}

// SoilRules returns a copy of the soil decision list in evaluation order.
func SoilRules() []SoilRule {
	out := make([]SoilRule, len(soilRules))
	copy(out, soilRules)
	return out
}

// SoilTypeOf classifies soil from pH and N, P, K levels (kg/ha).
// It is total: every input maps to exactly one soil type.
func SoilTypeOf(ph, n, p, k float64) SoilType {
	for _, rule := range soilRules {
		if rule.Match(ph, n, p, k) {
			return rule.Result
		}
	}
	return SoilLoamy
}
