// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package recommend

import (
	"context"
	"time"

	"github.com/tomtom215/agrosense/internal/crop"
)

// Classifier predicts a probability distribution over crop labels.
// Implementations must be safe for concurrent use.
type Classifier interface {
	// Name returns the model identifier (e.g., "gaussian_nb", "remote").
	Name() string

	// Labels returns the crop labels the model was trained on, in model order.
	Labels() []string

	// PredictProba returns a probability per label for one feature vector.
	// The vector is ordered as crop.FeatureNames.
	PredictProba(ctx context.Context, features [crop.NumFeatures]float64) (map[string]float64, error)

	// Version returns the model version (0 when unknown).
	Version() int
}

// Readier is implemented by classifiers that load their model
// asynchronously, such as a remote model server client.
type Readier interface {
	Ready() bool
}

// Tier is a coarse suitability band derived from the score.
type Tier string

const (
	TierHighlyRecommended  Tier = "Highly Recommended"
	TierModeratelySuitable Tier = "Moderately Suitable"
	TierNotRecommended     Tier = "Not Recommended"
)

// TierOf maps a 0-100 suitability score to a tier.
func TierOf(score float64) Tier {
	switch {
	case score >= 70:
		return TierHighlyRecommended
	case score >= 40:
		return TierModeratelySuitable
	default:
		return TierNotRecommended
	}
}

// Entry is one ranked crop recommendation.
type Entry struct {
	// Crop is the crop name.
	Crop string `json:"crop"`

	// Confidence is the classifier probability (0-1).
	Confidence float64 `json:"confidence"`

	// SuitabilityScore is Confidence x 100, clamped to [0, 100].
	SuitabilityScore float64 `json:"suitability_score"`

	// Tier is derived from SuitabilityScore.
	Tier Tier `json:"tier"`

	// ExpectedYield is in quintals per hectare.
	ExpectedYield float64 `json:"expected_yield"`

	// DurationDays is the crop duration.
	DurationDays int `json:"duration_days"`

	// Explanations are the explainer messages, in factor order.
	Explanations []string `json:"explanations"`
}

// Request is a recommendation request.
type Request struct {
	// Measurements are the raw field readings.
	Measurements crop.Measurements `json:"measurements"`

	// K is the number of entries to return.
	// If zero, Config.Limits.DefaultK is used.
	K int `json:"k,omitempty"`

	// RequestID for tracing. Generated if empty.
	RequestID string `json:"request_id,omitempty"`
}

// Context reports the derived categorical features.
type Context struct {
	Observation crop.Observation `json:"observation"`
	SeasonName  string           `json:"season_name"`
	SoilName    string           `json:"soil_name"`
}

// Response contains ranked recommendations and metadata.
type Response struct {
	// Entries are ordered by descending confidence.
	Entries []Entry `json:"entries"`

	// Context is the derived season and soil type.
	Context Context `json:"context"`

	// Advice holds soil management tips independent of the crop.
	Advice []string `json:"advice,omitempty"`

	// Metadata contains request processing information.
	Metadata ResponseMetadata `json:"metadata"`
}

// ResponseMetadata contains information about how recommendations were generated.
type ResponseMetadata struct {
	RequestID     string    `json:"request_id"`
	Classifier    string    `json:"classifier"`
	ModelVersion  int       `json:"model_version"`
	SkippedLabels int       `json:"skipped_labels"`
	LatencyMS     int64     `json:"latency_ms"`
	CacheHit      bool      `json:"cache_hit"`
	Timestamp     time.Time `json:"timestamp"`
}

// Metrics contains engine performance counters.
type Metrics struct {
	RequestCount  int64 `json:"request_count"`
	CacheHits     int64 `json:"cache_hits"`
	CacheMisses   int64 `json:"cache_misses"`
	ErrorCount    int64 `json:"error_count"`
	UnknownLabels int64 `json:"unknown_labels"`
}
