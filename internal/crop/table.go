// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package crop

import (
	"fmt"
	"math"
)

// Table is an immutable, ordered crop reference table.
// It is safe for concurrent use.
type Table struct {
	profiles []Profile
	index    map[string]int
}

// NewTable validates profiles and returns a table preserving their order.
// The input slice is copied.
func NewTable(profiles []Profile) (*Table, error) {
	if len(profiles) == 0 {
		return nil, &ConfigError{Row: -1, Reason: "no crops defined"}
	}

	t := &Table{
		profiles: make([]Profile, len(profiles)),
		index:    make(map[string]int, len(profiles)),
	}
	copy(t.profiles, profiles)

	for i := range t.profiles {
		p := &t.profiles[i]
		if err := validateProfile(i, p); err != nil {
			return nil, err
		}
		if _, dup := t.index[p.Name]; dup {
			return nil, &ConfigError{Row: i, Crop: p.Name, Field: "name", Reason: "duplicate crop name"}
		}
		t.index[p.Name] = i
	}

	return t, nil
}

func validateProfile(row int, p *Profile) error {
	if p.Name == "" {
		return &ConfigError{Row: row, Field: "name", Reason: "must not be empty"}
	}

	ranges := []struct {
		field string
		r     Range
	}{
		{"soil_ph", p.PH},
		{"temperature", p.Temperature},
		{"rainfall", p.Rainfall},
		{"nitrogen", p.Nitrogen},
		{"phosphorus", p.Phosphorus},
		{"potassium", p.Potassium},
		{"humidity", p.Humidity},
	}
	for _, rr := range ranges {
		if math.IsNaN(rr.r.Min) || math.IsNaN(rr.r.Max) {
			return &ConfigError{Row: row, Crop: p.Name, Field: rr.field, Reason: "bound is NaN"}
		}
		if !rr.r.Valid() {
			return &ConfigError{
				Row: row, Crop: p.Name, Field: rr.field,
				Reason: fmt.Sprintf("min %.2f exceeds max %.2f", rr.r.Min, rr.r.Max),
			}
		}
	}

	if !p.Season.Valid() {
		return &ConfigError{Row: row, Crop: p.Name, Field: "season", Reason: fmt.Sprintf("unknown season code %d", p.Season)}
	}
	if !p.Soil.Valid() {
		return &ConfigError{Row: row, Crop: p.Name, Field: "soil_type", Reason: fmt.Sprintf("unknown soil code %d", p.Soil)}
	}
	if p.Planting.Start < 1 || p.Planting.Start > 12 {
		return &ConfigError{Row: row, Crop: p.Name, Field: "plant_month_start", Reason: fmt.Sprintf("month %d out of range", p.Planting.Start)}
	}
	if p.Planting.End < 1 || p.Planting.End > 12 {
		return &ConfigError{Row: row, Crop: p.Name, Field: "plant_month_end", Reason: fmt.Sprintf("month %d out of range", p.Planting.End)}
	}
	if p.ExpectedYield <= 0 {
		return &ConfigError{Row: row, Crop: p.Name, Field: "expected_yield", Reason: "must be positive"}
	}
	if p.DurationDays <= 0 {
		return &ConfigError{Row: row, Crop: p.Name, Field: "crop_duration", Reason: "must be positive"}
	}

	return nil
}

// Len returns the number of crops.
func (t *Table) Len() int {
	return len(t.profiles)
}

// Profiles returns a copy of all profiles in table order.
func (t *Table) Profiles() []Profile {
	out := make([]Profile, len(t.profiles))
	copy(out, t.profiles)
	return out
}

// Names returns crop names in table order.
func (t *Table) Names() []string {
	names := make([]string, len(t.profiles))
	for i := range t.profiles {
		names[i] = t.profiles[i].Name
	}
	return names
}

// Lookup returns the profile for name.
func (t *Table) Lookup(name string) (Profile, bool) {
	i, ok := t.index[name]
	if !ok {
		return Profile{}, false
	}
	return t.profiles[i], true
}

// Get is like Lookup but returns ErrUnknownCrop when name is missing.
func (t *Table) Get(name string) (Profile, error) {
	p, ok := t.Lookup(name)
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrUnknownCrop, name)
	}
	return p, nil
}
