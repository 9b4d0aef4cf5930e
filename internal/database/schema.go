// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/agrosense/internal/metrics"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS training_runs (
		run_id           VARCHAR PRIMARY KEY,
		created_at       TIMESTAMP NOT NULL,
		seed             BIGINT NOT NULL,
		samples_per_crop INTEGER NOT NULL,
		sample_count     INTEGER NOT NULL DEFAULT 0,
		crop_count       INTEGER NOT NULL DEFAULT 0,
		accuracy         DOUBLE,
		model_version    INTEGER,
		completed_at     TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS samples (
		run_id      VARCHAR NOT NULL,
		seq         INTEGER NOT NULL,
		crop        VARCHAR NOT NULL,
		soil_ph     DOUBLE NOT NULL,
		temperature DOUBLE NOT NULL,
		rainfall    DOUBLE NOT NULL,
		nitrogen    DOUBLE NOT NULL,
		phosphorus  DOUBLE NOT NULL,
		potassium   DOUBLE NOT NULL,
		humidity    DOUBLE NOT NULL,
		month       INTEGER NOT NULL,
		season      INTEGER NOT NULL,
		soil_type   INTEGER NOT NULL,
		PRIMARY KEY (run_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_samples_crop ON samples (run_id, crop)`,
}

// CreateSchema creates the tables if they do not exist.
func (db *DB) CreateSchema(ctx context.Context) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			metrics.RecordDBQuery("create_schema", "all", time.Since(start), err)
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	metrics.RecordDBQuery("create_schema", "all", time.Since(start), nil)
	return nil
}
