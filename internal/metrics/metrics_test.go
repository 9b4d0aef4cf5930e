// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRecommendation(t *testing.T) {
	before := testutil.ToFloat64(RecommendRequests.WithLabelValues("success"))
	RecordRecommendation("success", 2*time.Millisecond)
	after := testutil.ToFloat64(RecommendRequests.WithLabelValues("success"))

	if after-before != 1 {
		t.Errorf("recommend_requests_total{status=success} delta = %v, want 1", after-before)
	}
}

func TestRecordTier(t *testing.T) {
	before := testutil.ToFloat64(RecommendTier.WithLabelValues("Highly Recommended"))
	RecordTier("Highly Recommended")
	RecordTier("Highly Recommended")
	after := testutil.ToFloat64(RecommendTier.WithLabelValues("Highly Recommended"))

	if after-before != 2 {
		t.Errorf("tier delta = %v, want 2", after-before)
	}
}

func TestRecordTraining(t *testing.T) {
	RecordTraining(time.Second, 0.93, 4, nil)
	if got := testutil.ToFloat64(ModelAccuracy); got != 0.93 {
		t.Errorf("model_accuracy_ratio = %v, want 0.93", got)
	}
	if got := testutil.ToFloat64(ModelVersion); got != 4 {
		t.Errorf("model_version = %v, want 4", got)
	}

	before := testutil.ToFloat64(TrainingRuns.WithLabelValues("error"))
	RecordTraining(time.Second, 0.1, 5, errors.New("boom"))
	if got := testutil.ToFloat64(TrainingRuns.WithLabelValues("error")) - before; got != 1 {
		t.Errorf("training_runs_total{status=error} delta = %v, want 1", got)
	}
	// A failed run must not overwrite the active model gauges.
	if got := testutil.ToFloat64(ModelVersion); got != 4 {
		t.Errorf("model_version after failure = %v, want 4", got)
	}
}

func TestRecordDBQuery(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		table     string
		err       error
		wantErr   float64
	}{
		{"successful insert", "INSERT", "samples", nil, 0},
		{"failed select", "SELECT", "samples", errors.New("connection refused"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.ToFloat64(DBQueryErrors.WithLabelValues(tt.operation, tt.table))
			RecordDBQuery(tt.operation, tt.table, 5*time.Millisecond, tt.err)
			after := testutil.ToFloat64(DBQueryErrors.WithLabelValues(tt.operation, tt.table))
			if after-before != tt.wantErr {
				t.Errorf("error delta = %v, want %v", after-before, tt.wantErr)
			}
		})
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/v1/recommendations", "200"))
	RecordAPIRequest("POST", "/api/v1/recommendations", "200", 10*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/v1/recommendations", "200"))

	if after-before != 1 {
		t.Errorf("api_requests_total delta = %v, want 1", after-before)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("after inc = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("after dec = %v, want %v", got, before)
	}
}

func TestRecordHistoryWrite(t *testing.T) {
	before := testutil.ToFloat64(HistoryWrites.WithLabelValues("error"))
	RecordHistoryWrite(errors.New("disk full"))
	if got := testutil.ToFloat64(HistoryWrites.WithLabelValues("error")) - before; got != 1 {
		t.Errorf("history error delta = %v, want 1", got)
	}
}
