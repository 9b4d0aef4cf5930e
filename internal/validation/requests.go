// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package validation

// RecommendationRequest is the body of POST /api/v1/recommendations.
// Pointers distinguish an omitted reading from a zero reading.
type RecommendationRequest struct {
	SoilPH      *float64 `json:"soil_ph" validate:"required,finite,gte=0,lte=14"`
	Temperature *float64 `json:"temperature" validate:"required,finite,gte=-50,lte=60"`
	Rainfall    *float64 `json:"rainfall" validate:"required,finite,gte=0"`
	Nitrogen    *float64 `json:"nitrogen" validate:"required,finite,gte=0"`
	Phosphorus  *float64 `json:"phosphorus" validate:"required,finite,gte=0"`
	Potassium   *float64 `json:"potassium" validate:"required,finite,gte=0"`
	Humidity    *float64 `json:"humidity" validate:"required,finite,gte=0,lte=100"`
	Month       *int     `json:"month" validate:"required,gte=1,lte=12"`
	K           int      `json:"k" validate:"gte=0,lte=20"`
}

// ContextQuery holds the query parameters of GET /api/v1/context.
type ContextQuery struct {
	Month      int     `json:"month" validate:"gte=1,lte=12"`
	SoilPH     float64 `json:"soil_ph" validate:"finite,gte=0,lte=14"`
	Nitrogen   float64 `json:"nitrogen" validate:"finite,gte=0"`
	Phosphorus float64 `json:"phosphorus" validate:"finite,gte=0"`
	Potassium  float64 `json:"potassium" validate:"finite,gte=0"`
}

// HistoryQuery holds the query parameters of GET /api/v1/recommendations.
type HistoryQuery struct {
	Limit int `json:"limit" validate:"gte=1,lte=100"`
}

// RunsQuery holds the query parameters of GET /api/v1/model/runs.
type RunsQuery struct {
	Limit int `json:"limit" validate:"gte=1,lte=100"`
}

// SamplesQuery holds the query parameters of
// GET /api/v1/model/runs/{id}/samples. Zero months and nil pH bounds are open.
type SamplesQuery struct {
	Crops     []string `json:"crop" validate:"dive,required,max=64"`
	MonthFrom int      `json:"month_from" validate:"gte=0,lte=12"`
	MonthTo   int      `json:"month_to" validate:"gte=0,lte=12"`
	MinPH     *float64 `json:"ph_min" validate:"omitempty,gte=0,lte=14"`
	MaxPH     *float64 `json:"ph_max" validate:"omitempty,gte=0,lte=14"`
	Limit     int      `json:"limit" validate:"gte=1,lte=5000"`
}
