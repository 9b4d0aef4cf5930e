// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/agrosense/internal/models"
)

// Health handles GET /api/v1/health.
// The service is degraded until a classifier is loaded or while the dataset
// store is unreachable.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	health := models.HealthStatus{
		Status:         "healthy",
		Version:        Version,
		HistoryEnabled: h.history != nil,
		Crops:          h.engine.Table().Len(),
		Uptime:         time.Since(h.startTime).Seconds(),
	}

	if cls := h.engine.Classifier(); cls != nil {
		health.Classifier = cls.Name()
		health.ModelVersion = cls.Version()
	}
	health.ModelLoaded = h.engine.Ready()
	if !health.ModelLoaded {
		health.Status = "degraded"
	}

	if h.database != nil {
		health.DatabaseConnected = h.database.Ping(r.Context()) == nil
		if !health.DatabaseConnected {
			health.Status = "degraded"
		}
	}

	respondSuccess(w, r, http.StatusOK, health, start)
}

// HealthLive handles liveness check requests (Kubernetes-style)
// Returns 200 OK if the process is alive, regardless of dependencies
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, time.Now())
}

// HealthReady handles readiness check requests (Kubernetes-style)
// Returns 200 OK only once a classifier can serve recommendations; a remote
// model server must have answered at least one refresh.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ready := h.engine.Ready()

	if !ready {
		respondError(w, http.StatusServiceUnavailable, "NOT_READY", "No crop model is loaded yet", nil)
		return
	}
	respondSuccess(w, r, http.StatusOK, map[string]interface{}{
		"ready": true,
	}, time.Now())
}
