// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package crop

import "fmt"

// Record is the flat, column-per-field form of a Profile used by the
// file loaders and the built-in table. Column names match crop_database.csv.
type Record struct {
	Name          string  `yaml:"crop_name"`
	PHMin         float64 `yaml:"soil_ph_min"`
	PHMax         float64 `yaml:"soil_ph_max"`
	TempMin       float64 `yaml:"temp_min"`
	TempMax       float64 `yaml:"temp_max"`
	RainfallMin   float64 `yaml:"rainfall_min"`
	RainfallMax   float64 `yaml:"rainfall_max"`
	NitrogenMin   float64 `yaml:"nitrogen_min"`
	NitrogenMax   float64 `yaml:"nitrogen_max"`
	PhosphorusMin float64 `yaml:"phosphorus_min"`
	PhosphorusMax float64 `yaml:"phosphorus_max"`
	PotassiumMin  float64 `yaml:"potassium_min"`
	PotassiumMax  float64 `yaml:"potassium_max"`
	HumidityMin   float64 `yaml:"humidity_min"`
	HumidityMax   float64 `yaml:"humidity_max"`
	Season        int     `yaml:"season"`
	PlantStart    int     `yaml:"plant_month_start"`
	PlantEnd      int     `yaml:"plant_month_end"`
	SoilType      int     `yaml:"soil_type"`
	ExpectedYield float64 `yaml:"expected_yield"`
	DurationDays  int     `yaml:"crop_duration"`
}

// Profile converts the record. It does not validate; NewTable does.
func (r *Record) Profile() Profile {
	return Profile{
		Name:          r.Name,
		PH:            Range{Min: r.PHMin, Max: r.PHMax},
		Temperature:   Range{Min: r.TempMin, Max: r.TempMax},
		Rainfall:      Range{Min: r.RainfallMin, Max: r.RainfallMax},
		Nitrogen:      Range{Min: r.NitrogenMin, Max: r.NitrogenMax},
		Phosphorus:    Range{Min: r.PhosphorusMin, Max: r.PhosphorusMax},
		Potassium:     Range{Min: r.PotassiumMin, Max: r.PotassiumMax},
		Humidity:      Range{Min: r.HumidityMin, Max: r.HumidityMax},
		Season:        Season(r.Season),
		Planting:      MonthWindow{Start: r.PlantStart, End: r.PlantEnd},
		Soil:          SoilType(r.SoilType),
		ExpectedYield: r.ExpectedYield,
		DurationDays:  r.DurationDays,
	}
}

// TableFromRecords converts and validates records.
func TableFromRecords(records []Record) (*Table, error) {
	profiles := make([]Profile, len(records))
	for i := range records {
		profiles[i] = records[i].Profile()
	}
	return NewTable(profiles)
}

// defaultRecords is the built-in reference data.
//
//	name, pH, temp °C, rainfall mm, N, P, K kg/ha, humidity %,
//	season, planting window, soil, yield q/ha, duration days
var defaultRecords = []Record{
	{"Wheat", 6.0, 7.5, 15, 25, 500, 1000, 100, 180, 40, 80, 40, 80, 50, 70, 2, 11, 12, 2, 45, 120},
	{"Rice_Basmati", 6.0, 7.5, 20, 35, 1000, 2500, 80, 150, 40, 80, 40, 80, 70, 90, 1, 6, 8, 3, 50, 120},
	{"Rice_Non_Basmati", 6.0, 7.5, 20, 35, 1000, 2500, 80, 150, 40, 80, 40, 80, 70, 90, 1, 6, 8, 4, 45, 120},
	{"Rice_Short_Grain", 6.0, 7.5, 20, 35, 1000, 2500, 70, 120, 30, 60, 30, 60, 70, 90, 1, 6, 8, 2, 40, 115},
	{"Sugarcane", 6.0, 7.5, 20, 35, 1000, 1800, 120, 200, 40, 80, 80, 150, 70, 85, 4, 2, 3, 2, 800, 365},
	{"Maize", 5.5, 7.0, 18, 30, 600, 1200, 120, 200, 60, 120, 40, 80, 60, 80, 1, 6, 7, 2, 50, 110},
	{"Soybean", 6.0, 7.0, 20, 30, 600, 1200, 30, 60, 60, 120, 40, 80, 60, 80, 1, 6, 7, 2, 25, 100},
	{"Cotton", 5.8, 8.0, 18, 32, 600, 1200, 100, 150, 50, 100, 50, 100, 50, 70, 1, 5, 6, 5, 15, 180},
	{"Groundnut", 6.0, 7.5, 22, 30, 500, 1250, 20, 40, 40, 80, 75, 125, 60, 80, 1, 6, 7, 2, 25, 110},
	{"Mustard", 6.5, 7.5, 10, 25, 250, 600, 60, 100, 40, 80, 40, 80, 60, 80, 2, 10, 12, 2, 15, 120},
	{"Gram", 6.0, 7.5, 10, 25, 350, 650, 15, 25, 60, 120, 20, 40, 60, 80, 2, 10, 12, 2, 12, 120},
	{"Pigeon_Pea", 6.5, 7.5, 20, 30, 600, 1500, 25, 40, 60, 120, 25, 50, 60, 80, 1, 6, 7, 5, 15, 180},
	{"Sunflower", 6.0, 7.5, 20, 25, 450, 900, 60, 100, 30, 60, 50, 100, 60, 70, 1, 6, 7, 2, 18, 110},
	{"Sesame", 5.5, 8.0, 25, 30, 300, 650, 40, 60, 25, 50, 35, 70, 65, 85, 1, 6, 7, 2, 8, 90},
	{"Barley", 6.0, 7.8, 12, 22, 450, 650, 80, 120, 40, 80, 40, 80, 65, 75, 2, 11, 12, 2, 35, 120},
	{"Jowar", 6.0, 8.5, 26, 30, 450, 900, 80, 120, 40, 80, 40, 80, 60, 80, 1, 6, 7, 5, 25, 110},
	{"Bajra", 6.5, 8.0, 25, 35, 350, 650, 80, 120, 40, 80, 40, 80, 60, 80, 1, 6, 7, 1, 20, 85},
	{"Ragi", 5.0, 6.5, 20, 27, 800, 1200, 50, 80, 30, 60, 30, 60, 70, 85, 1, 6, 7, 2, 15, 120},
	{"Potato", 4.8, 6.5, 15, 20, 600, 1100, 150, 220, 80, 120, 150, 200, 80, 90, 2, 10, 12, 2, 250, 90},
	{"Onion", 6.0, 7.5, 13, 25, 600, 1000, 100, 150, 50, 100, 80, 120, 65, 85, 2, 10, 12, 2, 300, 120},
}

// DefaultTable returns the built-in 20 crop reference table.
// Each call returns a new table.
func DefaultTable() *Table {
	t, err := TableFromRecords(defaultRecords)
	if err != nil {
		// The built-in data is covered by tests; failure here is a programming error.
		panic(fmt.Sprintf("invalid built-in crop table: %v", err))
	}
	return t
}
