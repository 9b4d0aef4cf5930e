// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package recommend

import "errors"

// ErrNoClassifier is returned when Recommend is called before a model is set.
var ErrNoClassifier = errors.New("no classifier available")

// ValidationError reports caller input rejected before any derivation or
// prediction. It unwraps to the crop package validation error.
type ValidationError struct {
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "validation failed: " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ValidationError) Unwrap() error {
	return e.Err
}
