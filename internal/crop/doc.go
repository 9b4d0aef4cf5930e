// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

/*
Package crop holds the agronomic reference data and the context derivation
rules shared by the sample generator, the ranker and the explainer.

# Reference Table

A Table is an ordered, immutable collection of crop Profiles. Each profile
describes the tolerance band of a crop for soil pH, temperature, rainfall,
nitrogen, phosphorus, potassium and humidity, plus its growing season,
planting window, preferred soil type, expected yield (quintals/ha) and
duration (days). Table order is significant: the generator emits samples in
table order and the ranker breaks ties by classifier label order.

Tables are validated once at construction (NewTable) and never mutated
afterwards, so a single *Table can be shared by every component without
locking. DefaultTable returns the built-in 20 crop table; LoadYAML and
LoadXLSX read the same columns from files.

# Context Derivation

Two categorical features are derived from raw measurements:

  - SeasonOf maps a calendar month to Kharif, Rabi or Zaid. Perennial is a
    table-only value and is never derived.
  - SoilTypeOf classifies soil from pH, N, P and K using an ordered decision
    list where the first matching rule wins.

The derivation deliberately does not reproduce the table's own labels: a
synthetic sample copies season and soil type from its table row, while a live
observation derives them from measurements. Classifiers therefore see
slightly different feature distributions in training and inference.

# Observations

Observation is the ten-field vector a classifier consumes. Features returns
the values in the fixed column order documented by FeatureNames. Derive
validates caller Measurements and fills in the derived fields.
*/
package crop
