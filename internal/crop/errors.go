// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package crop

import (
	"errors"
	"fmt"
)

// ErrValidation is the parent of every input validation failure.
// Use errors.Is(err, ErrValidation) to detect caller errors.
var ErrValidation = errors.New("invalid input")

// Input validation errors.
var (
	ErrInvalidMonth    = fmt.Errorf("%w: month must be between 1 and 12", ErrValidation)
	ErrInvalidPH       = fmt.Errorf("%w: soil pH must be between 0 and 14", ErrValidation)
	ErrInvalidHumidity = fmt.Errorf("%w: humidity must be between 0 and 100", ErrValidation)
	ErrNotFinite       = fmt.Errorf("%w: measurement must be a finite number", ErrValidation)
)

// ErrUnknownCrop is returned when a crop name is not present in a table.
var ErrUnknownCrop = errors.New("unknown crop")

// ConfigError reports a malformed reference table row.
type ConfigError struct {
	// Row is the zero-based record index for in-memory and YAML tables, or the
	// 1-based source line or sheet row for CSV and XLSX tables. It is -1
	// when the error is not tied to a row.
	Row int

	// Crop is the crop name of the row, if known.
	Crop string

	// Field is the offending column.
	Field string

	// Reason describes the problem.
	Reason string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("crop table: %s", e.Reason)
	}
	if e.Crop == "" {
		return fmt.Sprintf("crop table row %d: %s: %s", e.Row, e.Field, e.Reason)
	}
	return fmt.Sprintf("crop table row %d (%s): %s: %s", e.Row, e.Crop, e.Field, e.Reason)
}
