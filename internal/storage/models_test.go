// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/agrosense/internal/classifier"
	"github.com/tomtom215/agrosense/internal/crop"
)

func testState(version int) classifier.State {
	var meanA, meanB, ones [crop.NumFeatures]float64
	for i := range ones {
		meanA[i] = 1
		meanB[i] = 10
		ones[i] = 1
	}
	return classifier.State{
		Labels:       []string{"Maize", "Wheat"},
		LogPriors:    []float64{-0.6931471805599453, -0.6931471805599453},
		Means:        [][crop.NumFeatures]float64{meanA, meanB},
		Vars:         [][crop.NumFeatures]float64{ones, ones},
		VarSmoothing: classifier.DefaultVarSmoothing,
		Version:      version,
		TrainedAt:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestParseModelFilename(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		name    string
		version int
		ok      bool
	}{
		{"gaussian_nb_v12.gob.gz", "gaussian_nb", 12, true},
		{"nb_v1.gob.gz", "nb", 1, true},
		{"nb_v0.gob.gz", "", 0, false},
		{"nb_vx.gob.gz", "", 0, false},
		{"_v3.gob.gz", "", 0, false},
		{"nb_v3.gob", "", 0, false},
		{"readme.txt", "", 0, false},
	}
	for _, tt := range tests {
		name, version, ok := parseModelFilename(tt.in)
		if name != tt.name || version != tt.version || ok != tt.ok {
			t.Errorf("parseModelFilename(%q) = %q, %d, %v", tt.in, name, version, ok)
		}
	}
}

func TestStore_SaveLoadClassifierState(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	meta, err := store.Save(ctx, classifier.Name, 1, testState(1), ModelMetadata{
		SampleCount:        600,
		CropCount:          2,
		Accuracy:           0.98,
		TrainingDurationMS: 12,
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if meta.Checksum == "" || meta.SizeBytes == 0 || meta.Name != classifier.Name || meta.Version != 1 {
		t.Errorf("metadata not filled: %+v", meta)
	}

	var state classifier.State
	loaded, err := store.LoadLatest(ctx, classifier.Name, &state)
	if err != nil {
		t.Fatalf("LoadLatest: %v", err)
	}
	if loaded.Accuracy != 0.98 || loaded.SampleCount != 600 {
		t.Errorf("metadata = %+v", loaded)
	}

	model := classifier.NewGaussianNB(0)
	if err := model.Restore(state); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	var x [crop.NumFeatures]float64
	for i := range x {
		x[i] = 9
	}
	proba, err := model.PredictProba(ctx, x)
	if err != nil {
		t.Fatalf("PredictProba: %v", err)
	}
	if proba["Wheat"] < 0.99 {
		t.Errorf("restored model P(Wheat) = %v", proba["Wheat"])
	}
}

func TestStore_VersionsSurviveReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range []int{1, 3, 2} {
		if _, err := store.Save(ctx, "nb", v, testState(v), ModelMetadata{}); err != nil {
			t.Fatalf("Save v%d: %v", v, err)
		}
	}
	if v, ok := store.LatestVersion("nb"); !ok || v != 3 {
		t.Errorf("LatestVersion = %d, %v", v, ok)
	}

	reopened, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := reopened.LatestVersion("nb"); !ok || v != 3 {
		t.Errorf("after reopen LatestVersion = %d, %v", v, ok)
	}

	var state classifier.State
	meta, err := reopened.Load(ctx, "nb", 2, &state)
	if err != nil {
		t.Fatalf("Load v2: %v", err)
	}
	if meta.Version != 2 || state.Version != 2 {
		t.Errorf("loaded version meta=%d state=%d", meta.Version, state.Version)
	}

	models, err := reopened.ListModels(ctx)
	if err != nil || len(models) != 1 || models[0].Version != 3 {
		t.Errorf("ListModels = %+v, %v", models, err)
	}
}

func TestStore_NotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	var state classifier.State
	if _, err := store.LoadLatest(ctx, "nb", &state); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("LoadLatest on empty store = %v, want ErrModelNotFound", err)
	}
	if _, err := store.Load(ctx, "nb", 7, &state); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("Load missing version = %v, want ErrModelNotFound", err)
	}
	if _, ok := store.LatestVersion("nb"); ok {
		t.Error("LatestVersion reported a model")
	}
}

func TestStore_ChecksumMismatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Save(ctx, "nb", 1, testState(1), ModelMetadata{}); err != nil {
		t.Fatal(err)
	}

	// Rewrite the file with a different payload but the original checksum.
	path := filepath.Join(dir, "nb_v1.gob.gz")
	sf, err := readFile(path)
	if err != nil {
		t.Fatal(err)
	}
	other, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := other.Save(ctx, "nb", 1, testState(99), ModelMetadata{}); err != nil {
		t.Fatal(err)
	}
	tampered, err := readFile(filepath.Join(other.Dir(), "nb_v1.gob.gz"))
	if err != nil {
		t.Fatal(err)
	}
	tampered.Metadata = sf.Metadata
	if err := store.writeFile(path, tampered); err != nil {
		t.Fatal(err)
	}

	var state classifier.State
	_, err = store.Load(ctx, "nb", 1, &state)
	if err == nil || !strings.Contains(err.Error(), "checksum mismatch") {
		t.Fatalf("Load = %v, want checksum mismatch", err)
	}
}

func TestStore_Prune(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	store, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	for v := 1; v <= 5; v++ {
		if _, err := store.Save(ctx, "nb", v, testState(v), ModelMetadata{}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := store.Save(ctx, "other", 1, testState(1), ModelMetadata{}); err != nil {
		t.Fatal(err)
	}

	removed, err := store.Prune(ctx, "nb", 2)
	if err != nil || removed != 3 {
		t.Fatalf("Prune = %d, %v; want 3, nil", removed, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	want := []string{"nb_v4.gob.gz", "nb_v5.gob.gz", "other_v1.gob.gz"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("files = %v, want %v", names, want)
	}
	if v, _ := store.LatestVersion("nb"); v != 5 {
		t.Errorf("LatestVersion after prune = %d", v)
	}

	if removed, err := store.Prune(ctx, "nb", 0); err != nil || removed != 1 {
		t.Errorf("Prune keep=0 = %d, %v; want 1 (keeps at least one)", removed, err)
	}
}

func TestStore_SaveRejectsBadInput(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Save(ctx, "../escape", 1, testState(1), ModelMetadata{}); err == nil {
		t.Error("expected error for path separator in name")
	}
	if _, err := store.Save(ctx, "nb", 0, testState(1), ModelMetadata{}); err == nil {
		t.Error("expected error for version 0")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := store.Save(cancelled, "nb", 1, testState(1), ModelMetadata{}); !errors.Is(err, context.Canceled) {
		t.Errorf("Save with cancelled ctx = %v", err)
	}
}
