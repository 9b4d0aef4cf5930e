// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/agrosense/internal/crop"
	"github.com/tomtom215/agrosense/internal/recommend"
)

var _ recommend.Classifier = (*Client)(nil)

func newModelServer(t *testing.T, failPredict *atomic.Bool) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/model", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(modelInfo{Name: "rf", Version: 7, Labels: []string{"Barley", "Wheat"}})
	})
	mux.HandleFunc("/predict", func(w http.ResponseWriter, r *http.Request) {
		if failPredict != nil && failPredict.Load() {
			http.Error(w, "model crashed", http.StatusInternalServerError)
			return
		}
		var req predictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Features) != crop.NumFeatures {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		// Echo the month feature back so the test can verify the encoding.
		p := 0.8
		if req.Features[7] != 11 {
			p = 0.1
		}
		_ = json.NewEncoder(w).Encode(predictResponse{Probabilities: map[string]float64{"Wheat": p, "Barley": 1 - p}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_RefreshAndPredict(t *testing.T) {
	t.Parallel()

	srv := newModelServer(t, nil)
	c := NewClient(Config{BaseURL: srv.URL + "/", APIKey: "secret"})

	if c.Name() != "remote" {
		t.Errorf("Name() before refresh = %q", c.Name())
	}
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if c.Name() != "remote:rf" || c.Version() != 7 {
		t.Errorf("Name/Version = %q/%d", c.Name(), c.Version())
	}
	if got := c.Labels(); len(got) != 2 || got[0] != "Barley" {
		t.Errorf("Labels() = %v", got)
	}

	obs := crop.Observation{PH: 6.5, Month: 11, Season: crop.SeasonRabi, Soil: crop.SoilLoamy}
	dist, err := c.PredictProba(context.Background(), obs.Features())
	if err != nil {
		t.Fatalf("PredictProba() error = %v", err)
	}
	if dist["Wheat"] != 0.8 {
		t.Errorf("P(Wheat) = %v, want 0.8", dist["Wheat"])
	}
}

func TestClient_RefreshUnauthorized(t *testing.T) {
	t.Parallel()

	srv := newModelServer(t, nil)
	c := NewClient(Config{BaseURL: srv.URL})

	if err := c.Refresh(context.Background()); err == nil {
		t.Error("Refresh() without API key should fail")
	}
}

func TestClient_CircuitBreakerOpens(t *testing.T) {
	t.Parallel()

	var fail atomic.Bool
	fail.Store(true)
	srv := newModelServer(t, &fail)
	c := NewClient(Config{BaseURL: srv.URL, APIKey: "secret", BreakerTimeout: time.Minute})

	var features [crop.NumFeatures]float64
	for i := 0; i < 10; i++ {
		if _, err := c.PredictProba(context.Background(), features); err == nil {
			t.Fatalf("request %d should fail", i)
		}
	}

	_, err := c.PredictProba(context.Background(), features)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("PredictProba() after failures error = %v, want ErrOpenState", err)
	}
}

func TestClient_RateLimitRespectsContext(t *testing.T) {
	t.Parallel()

	srv := newModelServer(t, nil)
	c := NewClient(Config{BaseURL: srv.URL, APIKey: "secret", RateLimit: 0.001, Burst: 1})

	var features [crop.NumFeatures]float64
	if _, err := c.PredictProba(context.Background(), features); err != nil {
		t.Fatalf("first request error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.PredictProba(ctx, features); err == nil {
		t.Error("second request should be rejected by the limiter")
	}
}

func TestClient_NotReadyUntilRefresh(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/model", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "loading", http.StatusServiceUnavailable)
	})
	mux.HandleFunc("/predict", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(predictResponse{Probabilities: map[string]float64{"Wheat": 0.9, "Rice_Basmati": 0.1}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	c := NewClient(Config{BaseURL: srv.URL})
	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh() expected error from unavailable model server")
	}
	if c.Labels() != nil {
		t.Errorf("Labels() = %v, want nil before a successful refresh", c.Labels())
	}
	if c.Ready() {
		t.Error("Ready() = true before a successful refresh")
	}

	engine, err := recommend.NewEngine(recommend.DefaultConfig(), crop.DefaultTable(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	engine.SetClassifier(c)
	if engine.Ready() {
		t.Error("engine.Ready() = true while the remote model is not loaded")
	}

	resp, err := engine.Recommend(context.Background(), recommend.Request{
		Measurements: crop.Measurements{
			PH: 6.5, Temperature: 18, Rainfall: 750,
			Nitrogen: 140, Phosphorus: 60, Potassium: 60,
			Humidity: 65, Month: 11,
		},
		K: 3,
	})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(resp.Entries) != 2 {
		t.Fatalf("len(Entries) = %d, want 2", len(resp.Entries))
	}
	if resp.Entries[0].Crop != "Wheat" {
		t.Errorf("Entries[0].Crop = %q, want Wheat", resp.Entries[0].Crop)
	}
}
