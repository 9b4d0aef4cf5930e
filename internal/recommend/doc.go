// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

/*
Package recommend turns a classifier's probability distribution into a ranked,
explained list of crop recommendations.

# Pipeline

For each request the Engine:

 1. Validates the caller's measurements (month, pH, humidity bounds).
 2. Derives season and soil type with the crop package rules.
 3. Asks the Classifier for a probability per crop label.
 4. Ranks labels by descending probability (stable, so ties keep the
    classifier's label order), dropping labels missing from the table.
 5. Truncates to the top K (default 3).
 6. Scores each entry as confidence x 100 and assigns a tier.
 7. Explains each entry against its crop's tolerance bands.

Validation failures are returned before the classifier is called. A label the
classifier knows but the table does not is skipped and counted, never fatal.

# Classifier Contract

A Classifier is any model that maps the ten-feature observation vector to a
distribution over crop names. Probabilities should sum to one; the ranker does
not renormalize. The package ships no model; see internal/classifier for the
built-in Gaussian Naive Bayes and remote HTTP client.

# Explanations

Explain compares an observation with one crop profile and yields five
verdicts in a fixed order: soil pH, temperature, rainfall, nitrogen, planting
timing. Each verdict carries positive phrasing when the reading lies inside
the crop's band (inclusive) and cautionary phrasing otherwise. SoilAdvice adds
crop-independent soil management tips.

# Thread Safety

Engine is safe for concurrent use. The classifier can be swapped at runtime
with SetClassifier (e.g., after retraining); in-flight requests finish with
the model they started with.
*/
package recommend
