// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/agrosense/internal/logging"
	"github.com/tomtom215/agrosense/internal/models"
	"github.com/tomtom215/agrosense/internal/training"
)

// ModelStatus handles GET /api/v1/model.
func (h *Handler) ModelStatus(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	info := models.ModelInfo{Engine: h.engine.GetMetrics()}
	if cls := h.engine.Classifier(); cls != nil {
		info.Active = &models.ActiveModel{
			Name:    cls.Name(),
			Version: cls.Version(),
			Labels:  cls.Labels(),
		}
	}
	if h.trainer != nil {
		info.Training = h.trainer.Status()
	}

	respondSuccess(w, r, http.StatusOK, info, start)
}

// TrainModel handles POST /api/v1/model/train. The run continues in the
// background; progress is reported by GET /api/v1/model.
func (h *Handler) TrainModel(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if h.trainer == nil {
		respondError(w, http.StatusServiceUnavailable, "TRAINING_UNAVAILABLE", "Training is not configured", nil)
		return
	}
	ctx := logging.ContextWithRequestID(h.trainCtx, logging.RequestIDFromContext(r.Context()))
	if err := h.trainer.Start(ctx); err != nil {
		if errors.Is(err, training.ErrTrainingInProgress) {
			respondError(w, http.StatusConflict, "TRAINING_IN_PROGRESS", "A training run is already in progress", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "TRAINING_FAILED", "Failed to start training", err)
		return
	}

	respondSuccess(w, r, http.StatusAccepted, map[string]interface{}{
		"accepted": true,
	}, start)
}
