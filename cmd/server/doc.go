// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

/*
Package main is the entry point for the Agrosense server.

Agrosense recommends crops from soil and weather measurements. A Gaussian
naive Bayes classifier trained on synthetic samples ranks the crops of a
reference table, and every recommendation is explained factor by factor
against the crop's tolerance bands.

# Application Architecture

The server runs under a Suture v4 supervisor tree:

	RootSupervisor ("agrosense")
	├── ModelSupervisor ("model-layer")
	│   ├── Training service (local model: restore, train on startup, retrain)
	│   └── Refresh service (remote model: poll labels and version)
	└── APISupervisor ("api-layer")
	    └── HTTP Server

Only one of the two model services runs: the refresh service when
ENABLE_REMOTE_MODEL=true, the training service otherwise.

Component initialization order:

 1. Environment: optional .env file (godotenv)
 2. Configuration: Koanf v2 with defaults, config file and environment
 3. Logging: zerolog with JSON/console output modes
 4. Crop table: built-in, or CROP_TABLE_PATH (.yaml, .csv, .xlsx)
 5. Recommendation engine
 6. Model source: remote client, or trainer with DuckDB dataset store and
    model snapshot store
 7. Recommendation history: BadgerDB
 8. HTTP Server: Chi router with middleware stack

# Configuration

Priority: Environment variables > Config file > Defaults

	# Server
	HTTP_PORT=8080
	LOG_LEVEL=info               # trace, debug, info, warn, error
	LOG_FORMAT=json              # json or console

	# Training
	TRAIN_ON_STARTUP=true
	TRAIN_INTERVAL=24h
	MODEL_DIR=/data/models
	DUCKDB_PATH=/data/agrosense.duckdb

	# History
	ENABLE_HISTORY=true
	HISTORY_DIR=/data/history

	# Remote model server
	ENABLE_REMOTE_MODEL=false
	REMOTE_MODEL_URL=http://models:9000

See internal/config for the complete list.

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains
in-flight requests, a running training job is cancelled, and the dataset
and history stores are closed.
*/
package main
