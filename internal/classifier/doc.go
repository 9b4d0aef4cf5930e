// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

/*
Package classifier provides the built-in crop classifier and its evaluation
helpers.

# Gaussian Naive Bayes

GaussianNB models each feature of each crop as an independent normal
distribution. Training computes per-class means, per-class variances
(population, ddof=0) and class priors. Every variance is increased by
VarSmoothing times the largest per-feature variance of the whole training set
so that features constant within a class (season, soil type) stay finite.

Prediction sums per-feature log densities with the class log prior and
normalizes with log-sum-exp, so probabilities are well defined even when every
joint likelihood underflows.

Labels are sorted alphabetically. This is the order recommend.Rank uses to
break ties.

# Evaluation

StratifiedSplit partitions samples per label so the test set preserves the
label distribution. Evaluate reports overall and per-crop accuracy using the
arg-max prediction.

# Persistence

Snapshot and Restore expose the fitted parameters as a gob-friendly value;
internal/storage persists it with versioning and checksums.
*/
package classifier
