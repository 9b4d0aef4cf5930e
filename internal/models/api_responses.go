// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package models

import (
	"time"
)

// APIResponse is the envelope returned by every HTTP endpoint.
//
// Status field values:
//   - "success": Request completed successfully, see Data field
//   - "error": Request failed, see Error field for details
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {
//	    "code": "VALIDATION_ERROR",
//	    "message": "soil_ph must be at most 14",
//	    "details": {"field": "soil_ph"}
//	  },
//	  "metadata": {"timestamp": "2026-03-01T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response timing and caching information.
//
// QueryTimeMS is the handler processing time. Cached is set when the
// recommendation engine served the response from its cache.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

// APIError describes a failed request.
//
// Codes used by the API:
//   - VALIDATION_ERROR: request body or query parameters out of bounds
//   - INVALID_JSON: request body could not be decoded
//   - NOT_FOUND: unknown crop, recommendation ID or route
//   - METHOD_NOT_ALLOWED: route exists but not for this method
//   - MODEL_UNAVAILABLE: no classifier has been trained or loaded yet
//   - NOT_READY: readiness check before a classifier is loaded
//   - HISTORY_UNAVAILABLE: recommendation history is disabled
//   - TRAINING_UNAVAILABLE: a remote model server is in use
//   - TRAINING_IN_PROGRESS: a training run is already active
//   - RATE_LIMITED: too many requests from this client
//   - TIMEOUT: prediction did not finish before the request deadline
//   - INTERNAL_ERROR: unexpected failure
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus is the body of GET /api/v1/health.
type HealthStatus struct {
	Status            string  `json:"status"` // "healthy" or "degraded"
	Version           string  `json:"version"`
	ModelLoaded       bool    `json:"model_loaded"`
	Classifier        string  `json:"classifier,omitempty"`
	ModelVersion      int     `json:"model_version"`
	DatabaseConnected bool    `json:"database_connected"`
	HistoryEnabled    bool    `json:"history_enabled"`
	Crops             int     `json:"crops"`
	Uptime            float64 `json:"uptime"`
}

// CropSummary is one row of GET /api/v1/crops.
type CropSummary struct {
	Name          string  `json:"name"`
	Season        string  `json:"season"`
	SoilType      string  `json:"soil_type"`
	ExpectedYield float64 `json:"expected_yield"`
	DurationDays  int     `json:"duration_days"`
}

// ContextResult is the body of GET /api/v1/context.
type ContextResult struct {
	Month    int    `json:"month"`
	Season   string `json:"season"`
	SoilType string `json:"soil_type"`
}

// SuitabilityReport is the body of GET /api/v1/crops/{name}/suitability.
type SuitabilityReport struct {
	Crop      string      `json:"crop"`
	Season    string      `json:"season"`
	SoilType  string      `json:"soil_type"`
	Suitable  int         `json:"suitable_factors"`
	Factors   int         `json:"factors"`
	Verdicts  interface{} `json:"verdicts"`
	Messages  []string    `json:"messages"`
	Reference interface{} `json:"reference"`
}

// ModelInfo is the body of GET /api/v1/model.
type ModelInfo struct {
	Active   *ActiveModel `json:"active,omitempty"`
	Training interface{}  `json:"training,omitempty"`
	Engine   interface{}  `json:"engine"`
}

// ActiveModel describes the classifier currently serving recommendations.
type ActiveModel struct {
	Name    string   `json:"name"`
	Version int      `json:"version"`
	Labels  []string `json:"labels"`
}

// RunDetail is the body of GET /api/v1/model/runs/{id}.
type RunDetail struct {
	Run   interface{} `json:"run"`
	Crops interface{} `json:"crops"`
}
