// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/agrosense/internal/crop"
	"github.com/tomtom215/agrosense/internal/models"
	"github.com/tomtom215/agrosense/internal/recommend"
	"github.com/tomtom215/agrosense/internal/validation"
)

// ListCrops handles GET /api/v1/crops.
func (h *Handler) ListCrops(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	profiles := h.engine.Table().Profiles()
	crops := make([]models.CropSummary, len(profiles))
	for i := range profiles {
		p := &profiles[i]
		crops[i] = models.CropSummary{
			Name:          p.Name,
			Season:        p.Season.String(),
			SoilType:      p.Soil.String(),
			ExpectedYield: p.ExpectedYield,
			DurationDays:  p.DurationDays,
		}
	}

	respondSuccess(w, r, http.StatusOK, crops, start)
}

// GetCrop handles GET /api/v1/crops/{name}.
func (h *Handler) GetCrop(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	p, err := h.engine.Table().Get(chi.URLParam(r, "name"))
	if err != nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Unknown crop", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, p, start)
}

// CropSuitability handles GET /api/v1/crops/{name}/suitability. The readings
// are passed as query parameters named like the recommendation body fields.
func (h *Handler) CropSuitability(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	q := newQueryParams(r)
	req := validation.RecommendationRequest{
		SoilPH:      q.floatPtr("soil_ph"),
		Temperature: q.floatPtr("temperature"),
		Rainfall:    q.floatPtr("rainfall"),
		Nitrogen:    q.floatPtr("nitrogen"),
		Phosphorus:  q.floatPtr("phosphorus"),
		Potassium:   q.floatPtr("potassium"),
		Humidity:    q.floatPtr("humidity"),
		Month:       q.intPtr("month"),
	}
	if q.err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", q.err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr, nil)
		return
	}

	name := chi.URLParam(r, "name")
	obs, verdicts, err := h.engine.ExplainCrop(measurementsFrom(&req), name)
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	p, _ := h.engine.Table().Lookup(name)

	suitable := 0
	for _, v := range verdicts {
		if v.OK {
			suitable++
		}
	}

	respondSuccess(w, r, http.StatusOK, models.SuitabilityReport{
		Crop:      p.Name,
		Season:    obs.Season.String(),
		SoilType:  obs.Soil.String(),
		Suitable:  suitable,
		Factors:   len(verdicts),
		Verdicts:  verdicts,
		Messages:  recommend.Messages(verdicts),
		Reference: p,
	}, start)
}

// Context handles GET /api/v1/context.
func (h *Handler) Context(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	q := newQueryParams(r)
	query := validation.ContextQuery{
		Month:      q.getInt("month", 0),
		SoilPH:     q.getFloat("soil_ph", 0),
		Nitrogen:   q.getFloat("nitrogen", 0),
		Phosphorus: q.getFloat("phosphorus", 0),
		Potassium:  q.getFloat("potassium", 0),
	}
	if q.err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", q.err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&query); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr, nil)
		return
	}

	season, err := crop.SeasonOf(query.Month)
	if err != nil {
		if errors.Is(err, crop.ErrValidation) {
			respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to derive season", err)
		return
	}
	soil := crop.SoilTypeOf(query.SoilPH, query.Nitrogen, query.Phosphorus, query.Potassium)

	respondSuccess(w, r, http.StatusOK, models.ContextResult{
		Month:    query.Month,
		Season:   season.String(),
		SoilType: soil.String(),
	}, start)
}
