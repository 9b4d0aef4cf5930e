// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

/*
Package config loads Agrosense configuration with Koanf v2.

Sources are layered, later layers overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. Optional YAML file: CONFIG_PATH, else config.yaml / config.yml /
    /etc/agrosense/config.yaml
 3. Environment variables, through an explicit name mapping
    (HTTP_PORT -> server.port, DUCKDB_PATH -> database.path, ...)

Example config.yaml:

	server:
	  port: 8080
	crops:
	  table_path: /etc/agrosense/crops.xlsx
	  sheet: crops
	training:
	  interval: 24h
	synth:
	  samples_per_crop: 300
	  seed: 42
	history:
	  dir: /data/history
	  ttl: 720h

Unknown environment variables are ignored. Slice values (CORS_ORIGINS) are
comma-separated when set from the environment.

The returned Config is validated and treated as read-only afterwards.
*/
package config
