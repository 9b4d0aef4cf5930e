// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package crop

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

// yamlDocument is the on-disk YAML layout:
//
//	crops:
//	  - crop_name: Wheat
//	    soil_ph_min: 6.0
//	    ...
type yamlDocument struct {
	Crops []Record `yaml:"crops"`
}

// LoadFile reads a reference table, choosing the format from the file
// extension (.yaml, .yml, .xlsx or .csv). For spreadsheets the first
// sheet is used.
func LoadFile(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadYAML(path)
	case ".xlsx":
		return LoadXLSX(path, "")
	case ".csv":
		return LoadCSV(path)
	default:
		return nil, &ConfigError{Row: -1, Reason: fmt.Sprintf("unsupported table format %q", filepath.Ext(path))}
	}
}

// LoadYAML reads a reference table from a YAML file.
func LoadYAML(path string) (*Table, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("read crop table: %w", err)
	}

	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse crop table %s: %w", path, err)
	}

	return TableFromRecords(doc.Crops)
}

// LoadXLSX reads a reference table from a spreadsheet. The first row must
// hold the column names used by crop_database.csv, in any order and case.
// An empty sheet name selects the first sheet.
func LoadXLSX(path, sheet string) (*Table, error) {
	x, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open crop table: %w", err)
	}
	defer func() { _ = x.Close() }() //nolint:errcheck // read-only workbook

	if sheet == "" {
		sheets := x.GetSheetList()
		if len(sheets) == 0 {
			return nil, &ConfigError{Row: -1, Reason: "workbook has no sheets"}
		}
		sheet = sheets[0]
	}

	rows, err := x.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	return parseRows(rows, nil)
}

// LoadCSV reads a reference table in the crop_database.csv layout.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("open crop table: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // read-only file

	cr := csv.NewReader(f)
	var (
		rows  [][]string
		lines []int
	)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read crop table: %w", err)
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, rec)
		lines = append(lines, line)
	}

	return parseRows(rows, lines)
}

// tableColumns binds header names to Record fields, in table column order.
var tableColumns = []struct {
	name string
	set  func(r *Record, v string) error
}{
	{"crop_name", func(r *Record, v string) error { r.Name = v; return nil }},
	{"soil_ph_min", floatSetter(func(r *Record) *float64 { return &r.PHMin })},
	{"soil_ph_max", floatSetter(func(r *Record) *float64 { return &r.PHMax })},
	{"temp_min", floatSetter(func(r *Record) *float64 { return &r.TempMin })},
	{"temp_max", floatSetter(func(r *Record) *float64 { return &r.TempMax })},
	{"rainfall_min", floatSetter(func(r *Record) *float64 { return &r.RainfallMin })},
	{"rainfall_max", floatSetter(func(r *Record) *float64 { return &r.RainfallMax })},
	{"nitrogen_min", floatSetter(func(r *Record) *float64 { return &r.NitrogenMin })},
	{"nitrogen_max", floatSetter(func(r *Record) *float64 { return &r.NitrogenMax })},
	{"phosphorus_min", floatSetter(func(r *Record) *float64 { return &r.PhosphorusMin })},
	{"phosphorus_max", floatSetter(func(r *Record) *float64 { return &r.PhosphorusMax })},
	{"potassium_min", floatSetter(func(r *Record) *float64 { return &r.PotassiumMin })},
	{"potassium_max", floatSetter(func(r *Record) *float64 { return &r.PotassiumMax })},
	{"humidity_min", floatSetter(func(r *Record) *float64 { return &r.HumidityMin })},
	{"humidity_max", floatSetter(func(r *Record) *float64 { return &r.HumidityMax })},
	{"season", intSetter(func(r *Record) *int { return &r.Season })},
	{"plant_month_start", intSetter(func(r *Record) *int { return &r.PlantStart })},
	{"plant_month_end", intSetter(func(r *Record) *int { return &r.PlantEnd })},
	{"soil_type", intSetter(func(r *Record) *int { return &r.SoilType })},
	{"expected_yield", floatSetter(func(r *Record) *float64 { return &r.ExpectedYield })},
	{"crop_duration", intSetter(func(r *Record) *int { return &r.DurationDays })},
}

func floatSetter(field func(*Record) *float64) func(*Record, string) error {
	return func(r *Record, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*field(r) = f
		return nil
	}
}

func intSetter(field func(*Record) *int) func(*Record, string) error {
	return func(r *Record, v string) error {
		// Spreadsheets often store whole numbers as "11.0".
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		if f != float64(int(f)) {
			return fmt.Errorf("%q is not a whole number", v)
		}
		*field(r) = int(f)
		return nil
	}
}

// parseRows converts a header row plus data rows into a validated table.
// Unknown columns are ignored; every known column must be present. Row
// numbers in errors are 1-based source rows taken from lines, or the
// position in rows when lines is nil.
func parseRows(rows [][]string, lines []int) (*Table, error) {
	if len(rows) == 0 {
		return nil, &ConfigError{Row: -1, Reason: "missing header row"}
	}

	cols := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range tableColumns {
		if _, ok := cols[c.name]; !ok {
			return nil, &ConfigError{Row: -1, Field: c.name, Reason: fmt.Sprintf("missing column %q", c.name)}
		}
	}

	records := make([]Record, 0, len(rows)-1)
	sourceRows := make([]int, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		line := i + 2
		if i+1 < len(lines) {
			line = lines[i+1]
		}
		var rec Record
		for _, c := range tableColumns {
			idx := cols[c.name]
			v := ""
			if idx < len(row) {
				v = strings.TrimSpace(row[idx])
			}
			if err := c.set(&rec, v); err != nil {
				return nil, &ConfigError{Row: line, Crop: rec.Name, Field: c.name, Reason: err.Error()}
			}
		}
		records = append(records, rec)
		sourceRows = append(sourceRows, line)
	}

	table, err := TableFromRecords(records)
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) && cfgErr.Row >= 0 && cfgErr.Row < len(sourceRows) {
		cfgErr.Row = sourceRows[cfgErr.Row]
	}
	return table, err
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
