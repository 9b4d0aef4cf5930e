// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

/*
Package database stores synthetic training datasets in DuckDB.

Every training run writes its generated samples under a run ID so the data
behind a model can be inspected, summarized per crop with SQL, exported to
CSV, or reloaded to retrain without regenerating.

Schema:

	training_runs  one row per run (seed, sample count, accuracy, model version)
	samples        one row per generated sample, keyed by (run_id, seq)

An empty path opens an in-memory database, which tests use.
*/
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // registers the "duckdb" driver

	"github.com/rs/zerolog"
)

const defaultQueryTimeout = 30 * time.Second

// ErrRunNotFound is returned for an unknown run ID.
var ErrRunNotFound = errors.New("training run not found")

// Config configures the dataset store.
type Config struct {
	// Path is the DuckDB file. Empty opens an in-memory database.
	Path string

	// Threads limits DuckDB worker threads. Zero uses NumCPU.
	Threads int
}

// DB is the DuckDB-backed training dataset store.
type DB struct {
	conn   *sql.DB
	path   string
	logger zerolog.Logger
}

// Open opens (or creates) the database at cfg.Path and creates the schema.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func Open(ctx context.Context, cfg Config, logger zerolog.Logger) (*DB, error) {
	if cfg.Path != "" {
		if dir := filepath.Dir(cfg.Path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	dsn := fmt.Sprintf("%s?threads=%d&autoinstall_known_extensions=false&autoload_known_extensions=false", cfg.Path, threads)

	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db := &DB{
		conn:   conn,
		path:   cfg.Path,
		logger: logger.With().Str("component", "dataset_store").Logger(),
	}

	if err := db.CreateSchema(ctx); err != nil {
		closeQuietly(conn)
		return nil, err
	}

	location := cfg.Path
	if location == "" {
		location = ":memory:"
	}
	db.logger.Info().Str("path", location).Int("threads", threads).Msg("Dataset store opened")
	return db, nil
}

// Close closes the database.
func (db *DB) Close() error {
	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// Ping verifies the connection.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()
	return db.conn.PingContext(ctx)
}

// ensureContext applies the default timeout when ctx has no deadline.
func ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); !ok {
		return context.WithTimeout(ctx, defaultQueryTimeout)
	}
	return ctx, func() {}
}

func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close() //nolint:errcheck // best-effort cleanup on error paths
	}
}
