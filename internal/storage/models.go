// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

// Package storage persists trained classifier snapshots.
//
// Each snapshot is gob-encoded, gzip-compressed and written as
// {name}_v{version}.gob.gz together with its metadata. A SHA-256 checksum of
// the uncompressed payload is verified on load. Writes go to a temporary
// file that is renamed into place, so a crash never leaves a partial model.
package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const modelExt = ".gob.gz"

// ErrModelNotFound is returned when no stored model matches a request.
var ErrModelNotFound = errors.New("model not found")

// ModelMetadata describes a stored model.
type ModelMetadata struct {
	// Name is the classifier name (e.g., "gaussian_nb").
	Name string `json:"name"`

	// Version is the model version, increasing per name.
	Version int `json:"version"`

	TrainedAt time.Time `json:"trained_at"`
	SavedAt   time.Time `json:"saved_at"`

	// SampleCount is the number of synthetic samples used for training.
	SampleCount int `json:"sample_count"`

	// CropCount is the number of distinct crop labels.
	CropCount int `json:"crop_count"`

	// Accuracy is the held-out accuracy in [0, 1].
	Accuracy float64 `json:"accuracy"`

	// RunID links the model to its training run in the dataset store.
	RunID string `json:"run_id,omitempty"`

	// Checksum is the SHA-256 of the uncompressed payload.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed payload size.
	SizeBytes int64 `json:"size_bytes"`

	TrainingDurationMS int64 `json:"training_duration_ms"`
}

// storedFile is the on-disk format.
type storedFile struct {
	Metadata       ModelMetadata
	CompressedData []byte
}

// Store manages model files in one directory.
type Store struct {
	baseDir string

	mu       sync.RWMutex
	versions map[string][]int // ascending
}

// NewStore opens (creating if needed) a model store at baseDir.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create model directory: %w", err)
	}

	s := &Store{baseDir: baseDir, versions: make(map[string][]int)}
	if err := s.scan(); err != nil {
		return nil, fmt.Errorf("scan existing models: %w", err)
	}
	return s, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.baseDir }

func (s *Store) scan() error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, version, ok := parseModelFilename(entry.Name())
		if !ok {
			continue
		}
		s.versions[name] = append(s.versions[name], version)
	}
	for name := range s.versions {
		sort.Ints(s.versions[name])
	}
	return nil
}

// parseModelFilename splits "gaussian_nb_v12.gob.gz" into ("gaussian_nb", 12).
func parseModelFilename(filename string) (name string, version int, ok bool) {
	base, found := strings.CutSuffix(filename, modelExt)
	if !found {
		return "", 0, false
	}
	idx := strings.LastIndex(base, "_v")
	if idx <= 0 {
		return "", 0, false
	}
	version, err := strconv.Atoi(base[idx+2:])
	if err != nil || version <= 0 {
		return "", 0, false
	}
	return base[:idx], version, true
}

// Save writes data as version of name. Checksum, size, name, version and
// SavedAt in meta are filled in by Save.
//
//nolint:gocritic // meta passed by value, fields are filled in locally
func (s *Store) Save(ctx context.Context, name string, version int, data interface{}, meta ModelMetadata) (ModelMetadata, error) {
	if err := ctx.Err(); err != nil {
		return ModelMetadata{}, err
	}
	if name == "" || strings.ContainsAny(name, `/\`) {
		return ModelMetadata{}, fmt.Errorf("invalid model name %q", name)
	}
	if version <= 0 {
		return ModelMetadata{}, fmt.Errorf("invalid model version %d", version)
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(data); err != nil {
		return ModelMetadata{}, fmt.Errorf("encode model: %w", err)
	}
	sum := sha256.Sum256(raw.Bytes())

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return ModelMetadata{}, fmt.Errorf("compress model: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return ModelMetadata{}, fmt.Errorf("finalize compression: %w", err)
	}

	meta.Name = name
	meta.Version = version
	meta.Checksum = hex.EncodeToString(sum[:])
	meta.SizeBytes = int64(compressed.Len())
	meta.SavedAt = time.Now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeFile(s.modelPath(name, version), storedFile{Metadata: meta, CompressedData: compressed.Bytes()}); err != nil {
		return ModelMetadata{}, err
	}

	vs := s.versions[name]
	i := sort.SearchInts(vs, version)
	if i == len(vs) || vs[i] != version {
		vs = append(vs, 0)
		copy(vs[i+1:], vs[i:])
		vs[i] = version
		s.versions[name] = vs
	}
	return meta, nil
}

func (s *Store) writeFile(path string, sf storedFile) error {
	tmp, err := os.CreateTemp(s.baseDir, ".model-*.tmp")
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }() //nolint:errcheck // no-op after a successful rename

	if err := gob.NewEncoder(tmp).Encode(sf); err != nil {
		_ = tmp.Close() //nolint:errcheck // write error takes precedence
		return fmt.Errorf("write model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename model file: %w", err)
	}
	return nil
}

// Load decodes version of name into target. Version 0 loads the latest.
func (s *Store) Load(ctx context.Context, name string, version int, target interface{}) (*ModelMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if version == 0 {
		vs := s.versions[name]
		if len(vs) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
		}
		version = vs[len(vs)-1]
	}

	sf, err := readFile(s.modelPath(name, version))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s v%d", ErrModelNotFound, name, version)
		}
		return nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("decompress model: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // read-only

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed data: %w", err)
	}

	sum := sha256.Sum256(raw)
	if got := hex.EncodeToString(sum[:]); got != sf.Metadata.Checksum {
		return nil, fmt.Errorf("checksum mismatch for %s v%d: expected %s, got %s", name, version, sf.Metadata.Checksum, got)
	}

	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(target); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	return &sf.Metadata, nil
}

// LoadLatest is Load with version 0.
func (s *Store) LoadLatest(ctx context.Context, name string, target interface{}) (*ModelMetadata, error) {
	return s.Load(ctx, name, 0, target)
}

func readFile(path string) (storedFile, error) {
	f, err := os.Open(path) //nolint:gosec // path is built from the store directory
	if err != nil {
		return storedFile{}, fmt.Errorf("open model file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // read-only

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return storedFile{}, fmt.Errorf("read model file: %w", err)
	}
	return sf, nil
}

// LatestVersion returns the highest stored version of name.
func (s *Store) LatestVersion(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vs := s.versions[name]
	if len(vs) == 0 {
		return 0, false
	}
	return vs[len(vs)-1], true
}

// ListModels returns metadata for the latest version of every stored model,
// sorted by name.
func (s *Store) ListModels(ctx context.Context) ([]ModelMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.versions))
	for name := range s.versions {
		names = append(names, name)
	}
	sort.Strings(names)

	models := make([]ModelMetadata, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vs := s.versions[name]
		sf, err := readFile(s.modelPath(name, vs[len(vs)-1]))
		if err != nil {
			return nil, err
		}
		models = append(models, sf.Metadata)
	}
	return models, nil
}

// Prune removes all but the newest keep versions of name.
// It returns the number of files removed.
func (s *Store) Prune(ctx context.Context, name string, keep int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if keep < 1 {
		keep = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	vs := s.versions[name]
	if len(vs) <= keep {
		return 0, nil
	}

	cut := len(vs) - keep
	var errs []error
	removed := 0
	for _, v := range vs[:cut] {
		if err := os.Remove(s.modelPath(name, v)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	s.versions[name] = append([]int(nil), vs[cut:]...)
	return removed, errors.Join(errs...)
}

func (s *Store) modelPath(name string, version int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_v%d%s", name, version, modelExt))
}
