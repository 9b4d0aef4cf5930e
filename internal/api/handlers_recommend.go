// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/agrosense/internal/crop"
	"github.com/tomtom215/agrosense/internal/history"
	"github.com/tomtom215/agrosense/internal/logging"
	"github.com/tomtom215/agrosense/internal/models"
	"github.com/tomtom215/agrosense/internal/recommend"
	"github.com/tomtom215/agrosense/internal/validation"
)

const defaultHistoryLimit = 10

// CreateRecommendation handles POST /api/v1/recommendations.
func (h *Handler) CreateRecommendation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req validation.RecommendationRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Request body must be a JSON object of field readings", err)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr, nil)
		return
	}

	resp, err := h.engine.Recommend(r.Context(), recommend.Request{
		Measurements: measurementsFrom(&req),
		K:            req.K,
		RequestID:    logging.RequestIDFromContext(r.Context()),
	})
	if err != nil {
		h.respondEngineError(w, err)
		return
	}

	if h.history != nil {
		if err := h.history.Record(r.Context(), resp); err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("failed to record recommendation history")
		}
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   resp,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
			Cached:      resp.Metadata.CacheHit,
			RequestID:   resp.Metadata.RequestID,
		},
	})
}

// ListRecommendations handles GET /api/v1/recommendations.
func (h *Handler) ListRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, "HISTORY_UNAVAILABLE", "Recommendation history is disabled", nil)
		return
	}

	q := newQueryParams(r)
	query := validation.HistoryQuery{Limit: q.getInt("limit", defaultHistoryLimit)}
	if q.err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", q.err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&query); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr, nil)
		return
	}

	records, err := h.history.Recent(r.Context(), query.Limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read recommendation history", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, records, start)
}

// GetRecommendation handles GET /api/v1/recommendations/{id}.
func (h *Handler) GetRecommendation(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.history == nil {
		respondError(w, http.StatusServiceUnavailable, "HISTORY_UNAVAILABLE", "Recommendation history is disabled", nil)
		return
	}

	id := chi.URLParam(r, "id")
	rec, err := h.history.Get(r.Context(), id)
	switch {
	case errors.Is(err, history.ErrNotFound), errors.Is(err, history.ErrEmptyID):
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Recommendation not found", err)
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read recommendation history", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, rec, start)
}

// respondEngineError maps engine and crop errors to HTTP responses.
func (h *Handler) respondEngineError(w http.ResponseWriter, err error) {
	var verr *recommend.ValidationError
	switch {
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", verr.Err.Error(), err)
	case errors.Is(err, crop.ErrUnknownCrop):
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Unknown crop", err)
	case errors.Is(err, recommend.ErrNoClassifier):
		respondError(w, http.StatusServiceUnavailable, "MODEL_UNAVAILABLE", "No crop model is loaded yet", err)
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "TIMEOUT", "Prediction timed out", err)
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate recommendations", err)
	}
}

// measurementsFrom converts a validated request. All pointers are non-nil.
func measurementsFrom(req *validation.RecommendationRequest) crop.Measurements {
	return crop.Measurements{
		PH:          *req.SoilPH,
		Temperature: *req.Temperature,
		Rainfall:    *req.Rainfall,
		Nitrogen:    *req.Nitrogen,
		Phosphorus:  *req.Phosphorus,
		Potassium:   *req.Potassium,
		Humidity:    *req.Humidity,
		Month:       *req.Month,
	}
}
