// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter mounts the API routes on a chi router.
func NewRouter(h *Handler, mw *Middleware) http.Handler {
	if mw == nil {
		mw = NewMiddleware(nil)
	}

	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(RequestLogger)
	r.Use(mw.CORS()) // global so OPTIONS preflight is answered

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mw.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(PrometheusMetrics)

		r.Route("/recommendations", func(r chi.Router) {
			r.Post("/", h.CreateRecommendation)
			r.Get("/", h.ListRecommendations)
			r.Get("/{id}", h.GetRecommendation)
		})

		r.Route("/crops", func(r chi.Router) {
			r.Get("/", h.ListCrops)
			r.Get("/{name}", h.GetCrop)
			r.Get("/{name}/suitability", h.CropSuitability)
		})

		r.Get("/context", h.Context)

		r.Route("/model", func(r chi.Router) {
			r.Get("/", h.ModelStatus)
			r.With(mw.RateLimitTraining()).Post("/train", h.TrainModel)
			r.Get("/runs", h.ListRuns)
			r.Get("/runs/{id}", h.GetRun)
			r.Get("/runs/{id}/samples", h.ListRunSamples)
		})

		r.Get("/models", h.ListModels)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
