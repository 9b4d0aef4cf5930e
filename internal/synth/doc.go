// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

// Package synth generates labeled synthetic training samples from a crop
// reference table.
//
// Each continuous field is drawn from a normal distribution centred on the
// midpoint of the crop's tolerance band and clipped to the band widened by a
// per-field margin. The planting month is drawn uniformly from the crop's
// planting window, and season and soil type are copied from the table row.
//
// Generation is reproducible: for a given table, sample count and seed the
// output is identical across runs. Draws inside a sample happen in a fixed
// order (pH, temperature, rainfall, N, P, K, humidity, month) and crops are
// processed in table order.
package synth
