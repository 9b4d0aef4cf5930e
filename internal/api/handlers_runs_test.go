// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/agrosense/internal/crop"
	"github.com/tomtom215/agrosense/internal/database"
	"github.com/tomtom215/agrosense/internal/storage"
	"github.com/tomtom215/agrosense/internal/synth"
)

// memoryRuns is an in-memory RunStore holding one run.
type memoryRuns struct {
	run     database.Run
	samples []synth.Sample

	mu         sync.Mutex
	lastLimit  int
	lastFilter database.SampleFilter
}

func newMemoryRuns() *memoryRuns {
	acc := 0.93
	return &memoryRuns{
		run: database.Run{ID: "run-1", Seed: 42, SamplesPerCrop: 2, SampleCount: 3, CropCount: 2, Accuracy: &acc},
		samples: []synth.Sample{
			{Label: "Wheat", Observation: crop.Observation{PH: 6.8, Month: 11}},
			{Label: "Wheat", Observation: crop.Observation{PH: 7.1, Month: 12}},
			{Label: "Maize", Observation: crop.Observation{PH: 6.2, Month: 6}},
		},
	}
}

func (m *memoryRuns) ListRuns(_ context.Context, limit int) ([]database.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	return []database.Run{m.run}, nil
}

func (m *memoryRuns) GetRun(_ context.Context, runID string) (*database.Run, error) {
	if runID != m.run.ID {
		return nil, fmt.Errorf("%w: %s", database.ErrRunNotFound, runID)
	}
	run := m.run
	return &run, nil
}

func (m *memoryRuns) CropSummaries(context.Context, string) ([]database.CropSummary, error) {
	return []database.CropSummary{
		{Crop: "Maize", Count: 1, PH: 6.2},
		{Crop: "Wheat", Count: 2, PH: 6.95},
	}, nil
}

func (m *memoryRuns) Samples(_ context.Context, f database.SampleFilter) ([]synth.Sample, error) {
	m.mu.Lock()
	m.lastFilter = f
	m.mu.Unlock()

	var out []synth.Sample
	for _, s := range m.samples {
		if len(f.Crops) > 0 && s.Label != f.Crops[0] {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

type fakeCatalog struct {
	models []storage.ModelMetadata
	err    error
}

func (c fakeCatalog) ListModels(context.Context) ([]storage.ModelMetadata, error) {
	return c.models, c.err
}

func TestListRuns(t *testing.T) {
	t.Parallel()

	runs := newMemoryRuns()
	h := newTestHandler(t, nil, WithRunStore(runs))

	rec, env := serve(t, h, http.MethodGet, "/api/v1/model/runs?limit=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rec.Code, rec.Body.String())
	}
	var got []database.Run
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode runs: %v", err)
	}
	if len(got) != 1 || got[0].ID != "run-1" || got[0].Accuracy == nil || *got[0].Accuracy != 0.93 {
		t.Errorf("runs = %+v", got)
	}
	if runs.lastLimit != 5 {
		t.Errorf("limit passed to store = %d, want 5", runs.lastLimit)
	}

	tests := []struct {
		name   string
		target string
	}{
		{"limit too large", "/api/v1/model/runs?limit=500"},
		{"limit not a number", "/api/v1/model/runs?limit=ten"},
	}
	for _, tt := range tests {
		rec, env := serve(t, h, http.MethodGet, tt.target, "")
		if rec.Code != http.StatusBadRequest || env.Error == nil {
			t.Errorf("%s: status = %d, error = %+v", tt.name, rec.Code, env.Error)
		}
	}
}

func TestGetRun(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, nil, WithRunStore(newMemoryRuns()))

	rec, env := serve(t, h, http.MethodGet, "/api/v1/model/runs/run-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rec.Code, rec.Body.String())
	}
	var detail struct {
		Run   database.Run           `json:"run"`
		Crops []database.CropSummary `json:"crops"`
	}
	if err := json.Unmarshal(env.Data, &detail); err != nil {
		t.Fatalf("decode run detail: %v", err)
	}
	if detail.Run.ID != "run-1" || len(detail.Crops) != 2 || detail.Crops[1].Crop != "Wheat" {
		t.Errorf("detail = %+v", detail)
	}

	rec, env = serve(t, h, http.MethodGet, "/api/v1/model/runs/nope", "")
	if rec.Code != http.StatusNotFound || env.Error.Code != "NOT_FOUND" {
		t.Errorf("unknown run: status = %d, error = %+v", rec.Code, env.Error)
	}
}

func TestListRunSamples(t *testing.T) {
	t.Parallel()

	runs := newMemoryRuns()
	h := newTestHandler(t, nil, WithRunStore(runs))

	target := "/api/v1/model/runs/run-1/samples?crop=Wheat&month_from=11&month_to=12&ph_min=6.5&ph_max=7.5&limit=10"
	rec, env := serve(t, h, http.MethodGet, target, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		RunID   string         `json:"run_id"`
		Count   int            `json:"count"`
		Samples []synth.Sample `json:"samples"`
	}
	if err := json.Unmarshal(env.Data, &body); err != nil {
		t.Fatalf("decode samples: %v", err)
	}
	if body.RunID != "run-1" || body.Count != 2 || len(body.Samples) != 2 {
		t.Errorf("body = %+v", body)
	}

	f := runs.lastFilter
	if f.RunID != "run-1" || !reflect.DeepEqual(f.Crops, []string{"Wheat"}) || f.Months != [2]int{11, 12} || f.Limit != 10 {
		t.Errorf("filter = %+v", f)
	}
	if f.MinPH == nil || *f.MinPH != 6.5 || f.MaxPH == nil || *f.MaxPH != 7.5 {
		t.Errorf("pH bounds = %v, %v", f.MinPH, f.MaxPH)
	}

	tests := []struct {
		name       string
		target     string
		wantStatus int
	}{
		{"unknown run", "/api/v1/model/runs/nope/samples", http.StatusNotFound},
		{"month out of range", "/api/v1/model/runs/run-1/samples?month_from=13", http.StatusBadRequest},
		{"ph out of range", "/api/v1/model/runs/run-1/samples?ph_max=15", http.StatusBadRequest},
		{"bad number", "/api/v1/model/runs/run-1/samples?ph_min=acid", http.StatusBadRequest},
		{"limit too large", "/api/v1/model/runs/run-1/samples?limit=100000", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec, _ := serve(t, h, http.MethodGet, tt.target, "")
		if rec.Code != tt.wantStatus {
			t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, tt.wantStatus)
		}
	}
}

func TestListModels(t *testing.T) {
	t.Parallel()

	stored := []storage.ModelMetadata{{Name: "gaussian_nb", Version: 4, Accuracy: 0.95, RunID: "run-1"}}
	h := newTestHandler(t, nil, WithModelCatalog(fakeCatalog{models: stored}))

	rec, env := serve(t, h, http.MethodGet, "/api/v1/models", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got []storage.ModelMetadata
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode models: %v", err)
	}
	if len(got) != 1 || got[0].Version != 4 || got[0].RunID != "run-1" {
		t.Errorf("models = %+v", got)
	}

	failing := newTestHandler(t, nil, WithModelCatalog(fakeCatalog{err: errors.New("disk gone")}))
	rec, env = serve(t, failing, http.MethodGet, "/api/v1/models", "")
	if rec.Code != http.StatusInternalServerError || env.Error.Code != "INTERNAL_ERROR" {
		t.Errorf("store failure: status = %d, error = %+v", rec.Code, env.Error)
	}
}

func TestRunEndpoints_Disabled(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, nil)
	tests := []struct {
		target string
		code   string
	}{
		{"/api/v1/model/runs", "DATASET_UNAVAILABLE"},
		{"/api/v1/model/runs/run-1", "DATASET_UNAVAILABLE"},
		{"/api/v1/model/runs/run-1/samples", "DATASET_UNAVAILABLE"},
		{"/api/v1/models", "MODEL_STORE_UNAVAILABLE"},
	}
	for _, tt := range tests {
		rec, env := serve(t, h, http.MethodGet, tt.target, "")
		if rec.Code != http.StatusServiceUnavailable || env.Error == nil || env.Error.Code != tt.code {
			t.Errorf("%s: status = %d, error = %+v", tt.target, rec.Code, env.Error)
		}
	}
}
