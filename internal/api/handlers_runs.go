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

	"github.com/tomtom215/agrosense/internal/database"
	"github.com/tomtom215/agrosense/internal/models"
	"github.com/tomtom215/agrosense/internal/validation"
)

const (
	defaultRunsLimit    = 20
	defaultSamplesLimit = 500
)

// ListRuns handles GET /api/v1/model/runs.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "DATASET_UNAVAILABLE", "Dataset store is disabled", nil)
		return
	}

	q := newQueryParams(r)
	query := validation.RunsQuery{Limit: q.getInt("limit", defaultRunsLimit)}
	if q.err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", q.err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&query); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr, nil)
		return
	}

	runs, err := h.runs.ListRuns(r.Context(), query.Limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list training runs", err)
		return
	}
	if runs == nil {
		runs = []database.Run{}
	}

	respondSuccess(w, r, http.StatusOK, runs, start)
}

// GetRun handles GET /api/v1/model/runs/{id}.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "DATASET_UNAVAILABLE", "Dataset store is disabled", nil)
		return
	}

	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}
	summaries, err := h.runs.CropSummaries(r.Context(), run.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to summarize training run", err)
		return
	}
	if summaries == nil {
		summaries = []database.CropSummary{}
	}

	respondSuccess(w, r, http.StatusOK, models.RunDetail{Run: run, Crops: summaries}, start)
}

// ListRunSamples handles GET /api/v1/model/runs/{id}/samples.
//
// Query parameters: crop (repeatable), month_from, month_to, ph_min, ph_max
// and limit.
func (h *Handler) ListRunSamples(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "DATASET_UNAVAILABLE", "Dataset store is disabled", nil)
		return
	}

	q := newQueryParams(r)
	query := validation.SamplesQuery{
		Crops:     q.values["crop"],
		MonthFrom: q.getInt("month_from", 0),
		MonthTo:   q.getInt("month_to", 0),
		MinPH:     q.floatPtr("ph_min"),
		MaxPH:     q.floatPtr("ph_max"),
		Limit:     q.getInt("limit", defaultSamplesLimit),
	}
	if q.err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", q.err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&query); apiErr != nil {
		respondAPIError(w, http.StatusBadRequest, apiErr, nil)
		return
	}

	run, ok := h.lookupRun(w, r)
	if !ok {
		return
	}
	samples, err := h.runs.Samples(r.Context(), database.SampleFilter{
		RunID:  run.ID,
		Crops:  query.Crops,
		Months: [2]int{query.MonthFrom, query.MonthTo},
		MinPH:  query.MinPH,
		MaxPH:  query.MaxPH,
		Limit:  query.Limit,
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read training samples", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"run_id":  run.ID,
		"count":   len(samples),
		"samples": samples,
	}, start)
}

// lookupRun resolves the {id} path parameter, writing a 404 for unknown runs.
func (h *Handler) lookupRun(w http.ResponseWriter, r *http.Request) (*database.Run, bool) {
	run, err := h.runs.GetRun(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, database.ErrRunNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Training run not found", err)
		return nil, false
	case err != nil:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read training run", err)
		return nil, false
	}
	return run, true
}

// ListModels handles GET /api/v1/models.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.catalog == nil {
		respondError(w, http.StatusServiceUnavailable, "MODEL_STORE_UNAVAILABLE", "Model store is disabled", nil)
		return
	}

	stored, err := h.catalog.ListModels(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list stored models", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, stored, start)
}
