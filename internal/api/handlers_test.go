// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/agrosense/internal/crop"
	"github.com/tomtom215/agrosense/internal/history"
	"github.com/tomtom215/agrosense/internal/models"
	"github.com/tomtom215/agrosense/internal/recommend"
	"github.com/tomtom215/agrosense/internal/training"
)

// stubClassifier returns a fixed distribution.
type stubClassifier struct {
	labels []string
	dist   map[string]float64
}

func (s *stubClassifier) Name() string     { return "stub" }
func (s *stubClassifier) Labels() []string { return s.labels }
func (s *stubClassifier) Version() int     { return 7 }

func (s *stubClassifier) PredictProba(context.Context, [crop.NumFeatures]float64) (map[string]float64, error) {
	return s.dist, nil
}

func newStubClassifier() *stubClassifier {
	return &stubClassifier{
		labels: []string{"Maize", "Potato", "Wheat"},
		dist:   map[string]float64{"Maize": 0.1, "Potato": 0.15, "Wheat": 0.75},
	}
}

// pendingClassifier is a classifier whose model has not loaded yet.
type pendingClassifier struct {
	*stubClassifier
}

func (pendingClassifier) Ready() bool { return false }

// memoryHistory is an in-memory HistoryStore.
type memoryHistory struct {
	mu      sync.Mutex
	records []history.Record
	err     error
}

func (m *memoryHistory) Record(_ context.Context, resp *recommend.Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, history.Record{ID: resp.Metadata.RequestID, RecordedAt: time.Now(), Response: resp})
	return nil
}

func (m *memoryHistory) Get(_ context.Context, id string) (*history.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == "" {
		return nil, history.ErrEmptyID
	}
	for i := range m.records {
		if m.records[i].ID == id {
			rec := m.records[i]
			return &rec, nil
		}
	}
	return nil, history.ErrNotFound
}

func (m *memoryHistory) Recent(_ context.Context, limit int) ([]history.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]history.Record, 0, limit)
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *memoryHistory) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// fakeTrainer accepts one Start and reports every later one as busy.
type fakeTrainer struct {
	status training.Status
	busy   atomic.Bool
	ran    chan struct{}
}

func (f *fakeTrainer) Start(context.Context) error {
	if f.status.IsTraining || !f.busy.CompareAndSwap(false, true) {
		return training.ErrTrainingInProgress
	}
	if f.ran != nil {
		f.ran <- struct{}{}
	}
	return nil
}

func (f *fakeTrainer) Status() training.Status { return f.status }

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

type envelope struct {
	Status   string           `json:"status"`
	Data     json.RawMessage  `json:"data"`
	Metadata models.Metadata  `json:"metadata"`
	Error    *models.APIError `json:"error"`
}

func newTestHandler(t *testing.T, cls recommend.Classifier, opts ...Option) *Handler {
	t.Helper()
	engine, err := recommend.NewEngine(recommend.DefaultConfig(), crop.DefaultTable(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if cls != nil {
		engine.SetClassifier(cls)
	}
	return NewHandler(engine, opts...)
}

func serve(t *testing.T, h *Handler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	NewRouter(h, NewMiddleware(&MiddlewareConfig{RateLimitDisabled: true})).ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response: %v; body=%s", err, rec.Body.String())
		}
	}
	return rec, env
}

const workedExampleBody = `{"soil_ph":6.5,"temperature":18,"rainfall":750,"nitrogen":140,` +
	`"phosphorus":60,"potassium":60,"humidity":65,"month":11}`

func TestCreateRecommendation(t *testing.T) {
	t.Parallel()

	hist := &memoryHistory{}
	h := newTestHandler(t, newStubClassifier(), WithHistory(hist))

	rec, env := serve(t, h, http.MethodPost, "/api/v1/recommendations", workedExampleBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body=%s", rec.Code, rec.Body.String())
	}
	if env.Status != "success" {
		t.Errorf("envelope status = %q", env.Status)
	}

	var resp recommend.Response
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(resp.Entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(resp.Entries))
	}
	if resp.Entries[0].Crop != "Wheat" || resp.Entries[0].SuitabilityScore != 75 {
		t.Errorf("top entry = %+v, want Wheat at 75", resp.Entries[0])
	}
	if resp.Entries[0].Tier != recommend.TierHighlyRecommended {
		t.Errorf("top tier = %q", resp.Entries[0].Tier)
	}
	if resp.Context.SeasonName != "Rabi" || resp.Context.SoilName != "Loamy" {
		t.Errorf("context = %s/%s, want Rabi/Loamy", resp.Context.SeasonName, resp.Context.SoilName)
	}
	if len(resp.Entries[0].Explanations) != 5 {
		t.Errorf("explanations = %d, want 5", len(resp.Entries[0].Explanations))
	}

	requestID := rec.Header().Get("X-Request-ID")
	if requestID == "" {
		t.Fatal("missing X-Request-ID header")
	}
	if resp.Metadata.RequestID != requestID || env.Metadata.RequestID != requestID {
		t.Errorf("request IDs = %q/%q, want %q", resp.Metadata.RequestID, env.Metadata.RequestID, requestID)
	}
	if hist.len() != 1 {
		t.Errorf("history records = %d, want 1", hist.len())
	}
}

func TestCreateRecommendation_K(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, newStubClassifier())
	body := strings.TrimSuffix(workedExampleBody, "}") + `,"k":1}`

	rec, env := serve(t, h, http.MethodPost, "/api/v1/recommendations", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body=%s", rec.Code, rec.Body.String())
	}
	var resp recommend.Response
	if err := json.Unmarshal(env.Data, &resp); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(resp.Entries) != 1 {
		t.Errorf("entries = %d, want 1", len(resp.Entries))
	}
}

func TestCreateRecommendation_BadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		body     string
		wantCode string
		field    string
	}{
		{
			name:     "malformed json",
			body:     `{"soil_ph":`,
			wantCode: "INVALID_JSON",
		},
		{
			name:     "unknown field",
			body:     strings.TrimSuffix(workedExampleBody, "}") + `,"ph":6}`,
			wantCode: "INVALID_JSON",
		},
		{
			name:     "missing month",
			body:     strings.Replace(workedExampleBody, `,"month":11`, "", 1),
			wantCode: "VALIDATION_ERROR",
			field:    "month",
		},
		{
			name:     "ph above 14",
			body:     strings.Replace(workedExampleBody, `"soil_ph":6.5`, `"soil_ph":14.5`, 1),
			wantCode: "VALIDATION_ERROR",
			field:    "soil_ph",
		},
		{
			name:     "month 13",
			body:     strings.Replace(workedExampleBody, `"month":11`, `"month":13`, 1),
			wantCode: "VALIDATION_ERROR",
			field:    "month",
		},
		{
			name:     "k above max",
			body:     strings.TrimSuffix(workedExampleBody, "}") + `,"k":21}`,
			wantCode: "VALIDATION_ERROR",
			field:    "k",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newTestHandler(t, newStubClassifier())
			rec, env := serve(t, h, http.MethodPost, "/api/v1/recommendations", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400; body=%s", rec.Code, rec.Body.String())
			}
			if env.Error == nil || env.Error.Code != tt.wantCode {
				t.Fatalf("error = %+v, want code %s", env.Error, tt.wantCode)
			}
			if tt.field != "" && env.Error.Details["field"] != tt.field {
				t.Errorf("details = %v, want field %s", env.Error.Details, tt.field)
			}
		})
	}
}

func TestCreateRecommendation_NoModel(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, nil)
	rec, env := serve(t, h, http.MethodPost, "/api/v1/recommendations", workedExampleBody)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if env.Error == nil || env.Error.Code != "MODEL_UNAVAILABLE" {
		t.Errorf("error = %+v", env.Error)
	}
}

func TestCreateRecommendation_HistoryFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, newStubClassifier(), WithHistory(&memoryHistory{err: errors.New("disk full")}))
	rec, _ := serve(t, h, http.MethodPost, "/api/v1/recommendations", workedExampleBody)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestRecommendationHistory(t *testing.T) {
	t.Parallel()

	hist := &memoryHistory{}
	h := newTestHandler(t, newStubClassifier(), WithHistory(hist))

	var ids []string
	for i := 0; i < 3; i++ {
		rec, _ := serve(t, h, http.MethodPost, "/api/v1/recommendations", workedExampleBody)
		if rec.Code != http.StatusOK {
			t.Fatalf("POST status = %d", rec.Code)
		}
		ids = append(ids, rec.Header().Get("X-Request-ID"))
	}

	rec, env := serve(t, h, http.MethodGet, "/api/v1/recommendations?limit=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var records []history.Record
	if err := json.Unmarshal(env.Data, &records); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(records) != 2 || records[0].ID != ids[2] || records[1].ID != ids[1] {
		t.Errorf("recent = %+v, want newest two of %v", records, ids)
	}

	rec, env = serve(t, h, http.MethodGet, "/api/v1/recommendations/"+ids[0], "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var one history.Record
	if err := json.Unmarshal(env.Data, &one); err != nil {
		t.Fatalf("decode record: %v", err)
	}
	if one.ID != ids[0] || one.Response == nil || len(one.Response.Entries) != 3 {
		t.Errorf("record = %+v", one)
	}

	rec, env = serve(t, h, http.MethodGet, "/api/v1/recommendations/missing", "")
	if rec.Code != http.StatusNotFound || env.Error.Code != "NOT_FOUND" {
		t.Errorf("missing: status = %d, error = %+v", rec.Code, env.Error)
	}
}

func TestListRecommendations_Validation(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, newStubClassifier(), WithHistory(&memoryHistory{}))
	for _, q := range []string{"limit=0", "limit=101", "limit=ten"} {
		rec, env := serve(t, h, http.MethodGet, "/api/v1/recommendations?"+q, "")
		if rec.Code != http.StatusBadRequest || env.Error.Code != "VALIDATION_ERROR" {
			t.Errorf("%s: status = %d, error = %+v", q, rec.Code, env.Error)
		}
	}
}

func TestHistoryDisabled(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, newStubClassifier())
	for _, target := range []string{"/api/v1/recommendations", "/api/v1/recommendations/abc"} {
		rec, env := serve(t, h, http.MethodGet, target, "")
		if rec.Code != http.StatusServiceUnavailable || env.Error.Code != "HISTORY_UNAVAILABLE" {
			t.Errorf("%s: status = %d, error = %+v", target, rec.Code, env.Error)
		}
	}
}

func TestCrops(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, nil)

	rec, env := serve(t, h, http.MethodGet, "/api/v1/crops", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var crops []models.CropSummary
	if err := json.Unmarshal(env.Data, &crops); err != nil {
		t.Fatalf("decode crops: %v", err)
	}
	if len(crops) != crop.DefaultTable().Len() {
		t.Errorf("crops = %d, want %d", len(crops), crop.DefaultTable().Len())
	}

	rec, env = serve(t, h, http.MethodGet, "/api/v1/crops/Wheat", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var wheat crop.Profile
	if err := json.Unmarshal(env.Data, &wheat); err != nil {
		t.Fatalf("decode wheat: %v", err)
	}
	if wheat.Name != "Wheat" || wheat.Season != crop.SeasonRabi {
		t.Errorf("wheat = %+v", wheat)
	}

	rec, env = serve(t, h, http.MethodGet, "/api/v1/crops/Quinoa", "")
	if rec.Code != http.StatusNotFound || env.Error.Code != "NOT_FOUND" {
		t.Errorf("unknown crop: status = %d, error = %+v", rec.Code, env.Error)
	}
}

func TestCropSuitability(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t, nil)
	query := "soil_ph=6.5&temperature=18&rainfall=750&nitrogen=140&phosphorus=60&potassium=60&humidity=65&month=11"

	rec, env := serve(t, h, http.MethodGet, "/api/v1/crops/Wheat/suitability?"+query, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; body=%s", rec.Code, rec.Body.String())
	}
	var report models.SuitabilityReport
	if err := json.Unmarshal(env.Data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Crop != "Wheat" || report.Factors != 5 || len(report.Messages) != 5 {
		t.Errorf("report = %+v", report)
	}
	if report.Season != "Rabi" || report.SoilType != "Loamy" {
		t.Errorf("context = %s/%s", report.Season, report.SoilType)
	}

	rec, env = serve(t, h, http.MethodGet, "/api/v1/crops/Quinoa/suitability?"+query, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown crop: status = %d, error = %+v", rec.Code, env.Error)
	}

	rec, env = serve(t, h, http.MethodGet, "/api/v1/crops/Wheat/suitability?soil_ph=6.5", "")
	if rec.Code != http.StatusBadRequest || env.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("missing readings: status = %d, error = %+v", rec.Code, env.Error)
	}
}

func TestContext(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantSeason string
		wantSoil   string
	}{
		{
			name:       "worked example",
			query:      "month=11&soil_ph=6.5&nitrogen=140&phosphorus=60&potassium=60",
			wantStatus: http.StatusOK,
			wantSeason: "Rabi",
			wantSoil:   "Loamy",
		},
		{
			name:       "monsoon month",
			query:      "month=7&soil_ph=6.5&nitrogen=140&phosphorus=60&potassium=60",
			wantStatus: http.StatusOK,
			wantSeason: "Kharif",
			wantSoil:   "Loamy",
		},
		{name: "missing month", query: "soil_ph=6.5", wantStatus: http.StatusBadRequest},
		{name: "month 13", query: "month=13&soil_ph=6.5", wantStatus: http.StatusBadRequest},
		{name: "non-numeric ph", query: "month=3&soil_ph=acid", wantStatus: http.StatusBadRequest},
		{name: "ph NaN", query: "month=3&soil_ph=NaN", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newTestHandler(t, nil)
			rec, env := serve(t, h, http.MethodGet, "/api/v1/context?"+tt.query, "")
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d; body=%s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var got models.ContextResult
			if err := json.Unmarshal(env.Data, &got); err != nil {
				t.Fatalf("decode context: %v", err)
			}
			if got.Season != tt.wantSeason || got.SoilType != tt.wantSoil {
				t.Errorf("context = %+v, want %s/%s", got, tt.wantSeason, tt.wantSoil)
			}
		})
	}
}

func TestModelStatus(t *testing.T) {
	t.Parallel()

	trainer := &fakeTrainer{status: training.Status{ModelVersion: 7, Runs: 2}}
	h := newTestHandler(t, newStubClassifier(), WithTrainer(trainer))

	rec, env := serve(t, h, http.MethodGet, "/api/v1/model", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var info struct {
		Active   models.ActiveModel `json:"active"`
		Training training.Status    `json:"training"`
	}
	if err := json.Unmarshal(env.Data, &info); err != nil {
		t.Fatalf("decode model info: %v", err)
	}
	if info.Active.Name != "stub" || info.Active.Version != 7 || len(info.Active.Labels) != 3 {
		t.Errorf("active = %+v", info.Active)
	}
	if info.Training.Runs != 2 {
		t.Errorf("training = %+v", info.Training)
	}
}

func TestTrainModel(t *testing.T) {
	t.Parallel()

	trainer := &fakeTrainer{ran: make(chan struct{}, 1)}
	h := newTestHandler(t, nil, WithTrainer(trainer))

	rec, _ := serve(t, h, http.MethodPost, "/api/v1/model/train", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	select {
	case <-trainer.ran:
	case <-time.After(5 * time.Second):
		t.Fatal("training run was not started")
	}
}

func TestTrainModel_Conflicts(t *testing.T) {
	t.Parallel()

	busy := newTestHandler(t, nil, WithTrainer(&fakeTrainer{status: training.Status{IsTraining: true}}))
	rec, env := serve(t, busy, http.MethodPost, "/api/v1/model/train", "")
	if rec.Code != http.StatusConflict || env.Error.Code != "TRAINING_IN_PROGRESS" {
		t.Errorf("busy: status = %d, error = %+v", rec.Code, env.Error)
	}

	none := newTestHandler(t, nil)
	rec, env = serve(t, none, http.MethodPost, "/api/v1/model/train", "")
	if rec.Code != http.StatusServiceUnavailable || env.Error.Code != "TRAINING_UNAVAILABLE" {
		t.Errorf("no trainer: status = %d, error = %+v", rec.Code, env.Error)
	}
}

func TestTrainModel_ConcurrentRequests(t *testing.T) {
	t.Parallel()

	trainer := &fakeTrainer{ran: make(chan struct{}, 1)}
	h := newTestHandler(t, nil, WithTrainer(trainer))
	router := NewRouter(h, NewMiddleware(&MiddlewareConfig{RateLimitDisabled: true}))

	const requests = 8
	codes := make(chan int, requests)
	var wg sync.WaitGroup
	for range requests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/model/train", nil))
			codes <- rec.Code
		}()
	}
	wg.Wait()
	close(codes)

	counts := map[int]int{}
	for code := range codes {
		counts[code]++
	}
	if counts[http.StatusAccepted] != 1 || counts[http.StatusConflict] != requests-1 {
		t.Errorf("status counts = %v, want one 202 and %d 409", counts, requests-1)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		cls        recommend.Classifier
		db         Pinger
		wantStatus string
		wantReady  int
	}{
		{name: "model loaded", cls: newStubClassifier(), wantStatus: "healthy", wantReady: http.StatusOK},
		{name: "no model", wantStatus: "degraded", wantReady: http.StatusServiceUnavailable},
		{
			name:       "model not loaded yet",
			cls:        pendingClassifier{newStubClassifier()},
			wantStatus: "degraded",
			wantReady:  http.StatusServiceUnavailable,
		},
		{
			name:       "database down",
			cls:        newStubClassifier(),
			db:         fakePinger{err: errors.New("closed")},
			wantStatus: "degraded",
			wantReady:  http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var opts []Option
			if tt.db != nil {
				opts = append(opts, WithDatabase(tt.db))
			}
			h := newTestHandler(t, tt.cls, opts...)

			rec, env := serve(t, h, http.MethodGet, "/api/v1/health", "")
			if rec.Code != http.StatusOK {
				t.Fatalf("health status = %d", rec.Code)
			}
			var health models.HealthStatus
			if err := json.Unmarshal(env.Data, &health); err != nil {
				t.Fatalf("decode health: %v", err)
			}
			if health.Status != tt.wantStatus {
				t.Errorf("health = %q, want %q", health.Status, tt.wantStatus)
			}
			if health.Crops != crop.DefaultTable().Len() {
				t.Errorf("crops = %d", health.Crops)
			}

			rec, _ = serve(t, h, http.MethodGet, "/api/v1/health/ready", "")
			if rec.Code != tt.wantReady {
				t.Errorf("ready status = %d, want %d", rec.Code, tt.wantReady)
			}

			rec, _ = serve(t, h, http.MethodGet, "/api/v1/health/live", "")
			if rec.Code != http.StatusOK {
				t.Errorf("live status = %d", rec.Code)
			}
		})
	}
}
