// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tomtom215/agrosense/internal/crop"
	"github.com/tomtom215/agrosense/internal/database/query"
	"github.com/tomtom215/agrosense/internal/metrics"
	"github.com/tomtom215/agrosense/internal/synth"
)

// Run describes one training run.
type Run struct {
	ID             string     `json:"run_id"`
	CreatedAt      time.Time  `json:"created_at"`
	Seed           int64      `json:"seed"`
	SamplesPerCrop int        `json:"samples_per_crop"`
	SampleCount    int        `json:"sample_count"`
	CropCount      int        `json:"crop_count"`
	Accuracy       *float64   `json:"accuracy,omitempty"`
	ModelVersion   *int       `json:"model_version,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// CropSummary aggregates one crop's samples within a run.
type CropSummary struct {
	Crop        string  `json:"crop"`
	Count       int     `json:"count"`
	PH          float64 `json:"mean_soil_ph"`
	Temperature float64 `json:"mean_temperature"`
	Rainfall    float64 `json:"mean_rainfall"`
	Nitrogen    float64 `json:"mean_nitrogen"`
	Phosphorus  float64 `json:"mean_phosphorus"`
	Potassium   float64 `json:"mean_potassium"`
	Humidity    float64 `json:"mean_humidity"`
}

// SampleFilter selects samples of one run.
type SampleFilter struct {
	RunID  string
	Crops  []string
	Months [2]int // inclusive; zero bounds are open
	MinPH  *float64
	MaxPH  *float64
	Limit  int
}

const sampleColumns = `crop, soil_ph, temperature, rainfall, nitrogen, phosphorus, potassium, humidity, month, season, soil_type`

// CreateRun records the start of a training run.
//
//nolint:gocritic // Run passed by value, insert only
func (db *DB) CreateRun(ctx context.Context, run Run) (err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("insert", "training_runs", time.Since(start), err) }()

	if run.ID == "" {
		return errors.New("run ID is required")
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO training_runs (run_id, created_at, seed, samples_per_crop) VALUES (?, ?, ?, ?)`,
		run.ID, run.CreatedAt, run.Seed, run.SamplesPerCrop)
	if err != nil {
		return fmt.Errorf("failed to insert training run %s: %w", run.ID, err)
	}
	return nil
}

// CompleteRun stores the evaluation result of a run.
func (db *DB) CompleteRun(ctx context.Context, runID string, accuracy float64, modelVersion int) (err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("update", "training_runs", time.Since(start), err) }()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE training_runs SET accuracy = ?, model_version = ?, completed_at = ? WHERE run_id = ?`,
		accuracy, modelVersion, time.Now().UTC(), runID)
	if err != nil {
		return fmt.Errorf("failed to complete training run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

// GetRun returns one run.
func (db *DB) GetRun(ctx context.Context, runID string) (*Run, error) {
	runs, err := db.queryRuns(ctx, `WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return &runs[0], nil
}

// ListRuns returns the most recent runs first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	return db.queryRuns(ctx, `ORDER BY created_at DESC, run_id LIMIT ?`, limit)
}

func (db *DB) queryRuns(ctx context.Context, tail string, args ...interface{}) (runs []Run, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", "training_runs", time.Since(start), err) }()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT run_id, created_at, seed, samples_per_crop, sample_count, crop_count,
		       accuracy, model_version, completed_at
		FROM training_runs `+tail, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query training runs: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var (
			r         Run
			accuracy  sql.NullFloat64
			version   sql.NullInt64
			completed sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.Seed, &r.SamplesPerCrop, &r.SampleCount, &r.CropCount,
			&accuracy, &version, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan training run: %w", err)
		}
		if accuracy.Valid {
			r.Accuracy = &accuracy.Float64
		}
		if version.Valid {
			v := int(version.Int64)
			r.ModelVersion = &v
		}
		if completed.Valid {
			r.CompletedAt = &completed.Time
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// InsertSamples writes samples for runID in one transaction and updates the
// run's sample and crop counts. The run must exist.
func (db *DB) InsertSamples(ctx context.Context, runID string, samples []synth.Sample) (inserted int, err error) {
	if len(samples) == 0 {
		return 0, nil
	}
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("insert", "samples", time.Since(start), err) }()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				db.logger.Error().Err(rbErr).AnErr("original_error", err).Msg("Transaction rollback failed")
			}
		}
	}()

	var exists int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM training_runs WHERE run_id = ?`, runID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("failed to look up run %s: %w", runID, err)
	}
	if exists == 0 {
		return 0, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	var offset int
	if err = tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq) + 1, 0) FROM samples WHERE run_id = ?`, runID).Scan(&offset); err != nil {
		return 0, fmt.Errorf("failed to read sample sequence: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO samples (run_id, seq, `+sampleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if closeErr := stmt.Close(); closeErr != nil {
			db.logger.Warn().Err(closeErr).Msg("Failed to close prepared statement")
		}
	}()

	for i := range samples {
		o := &samples[i].Observation
		if _, err = stmt.ExecContext(ctx, runID, offset+i, samples[i].Label,
			o.PH, o.Temperature, o.Rainfall, o.Nitrogen, o.Phosphorus, o.Potassium, o.Humidity,
			o.Month, int(o.Season), int(o.Soil)); err != nil {
			return 0, fmt.Errorf("failed to insert sample %d: %w", i, err)
		}
	}

	if _, err = tx.ExecContext(ctx, `
		UPDATE training_runs SET
			sample_count = (SELECT COUNT(*) FROM samples WHERE run_id = ?),
			crop_count   = (SELECT COUNT(DISTINCT crop) FROM samples WHERE run_id = ?)
		WHERE run_id = ?`, runID, runID, runID); err != nil {
		return 0, fmt.Errorf("failed to update run counts: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit samples: %w", err)
	}

	db.logger.Debug().Str("run_id", runID).Int("samples", len(samples)).Msg("Samples stored")
	return len(samples), nil
}

// Samples reloads samples in insertion order.
func (db *DB) Samples(ctx context.Context, f SampleFilter) (out []synth.Sample, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("select", "samples", time.Since(start), err) }()

	where, args := query.NewWhereBuilder().
		AddEquals("run_id", f.RunID).
		AddIn("crop", f.Crops).
		AddIntRange("month", f.Months[0], f.Months[1]).
		AddRange("soil_ph", f.MinPH, f.MaxPH).
		BuildWithPrefix()

	q := `SELECT ` + sampleColumns + ` FROM samples ` + where + ` ORDER BY seq`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var (
			s            synth.Sample
			season, soil int
		)
		o := &s.Observation
		if err := rows.Scan(&s.Label, &o.PH, &o.Temperature, &o.Rainfall, &o.Nitrogen, &o.Phosphorus,
			&o.Potassium, &o.Humidity, &o.Month, &season, &soil); err != nil {
			return nil, fmt.Errorf("failed to scan sample: %w", err)
		}
		o.Season = crop.Season(season)
		o.Soil = crop.SoilType(soil)
		out = append(out, s)
	}
	return out, rows.Err()
}

// CropSummaries returns per-crop counts and means for a run, by crop name.
func (db *DB) CropSummaries(ctx context.Context, runID string) (out []CropSummary, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("aggregate", "samples", time.Since(start), err) }()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT crop, COUNT(*),
		       AVG(soil_ph), AVG(temperature), AVG(rainfall),
		       AVG(nitrogen), AVG(phosphorus), AVG(potassium), AVG(humidity)
		FROM samples
		WHERE run_id = ?
		GROUP BY crop
		ORDER BY crop`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize samples: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var s CropSummary
		if err := rows.Scan(&s.Crop, &s.Count, &s.PH, &s.Temperature, &s.Rainfall,
			&s.Nitrogen, &s.Phosphorus, &s.Potassium, &s.Humidity); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ExportCSV writes a run's samples to path as CSV with a header row, using
// the same column names as the in-memory feature vector plus "label".
func (db *DB) ExportCSV(ctx context.Context, runID, path string) (err error) {
	if _, err := db.GetRun(ctx, runID); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create export directory: %w", err)
		}
	}

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() { metrics.RecordDBQuery("export", "samples", time.Since(start), err) }()

	// COPY does not accept bind parameters.
	stmt := fmt.Sprintf(`COPY (
		SELECT soil_ph, temperature, rainfall, nitrogen, phosphorus, potassium, humidity,
		       month, season, soil_type, crop AS label
		FROM samples WHERE run_id = %s ORDER BY seq
	) TO %s (HEADER, DELIMITER ',')`, quoteLiteral(runID), quoteLiteral(path))

	if _, err = db.conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("failed to export samples: %w", err)
	}
	db.logger.Info().Str("run_id", runID).Str("path", path).Msg("Training samples exported")
	return nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
