// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

/*
Package metrics provides Prometheus metrics collection and export.

Collectors are registered with the default registry at package init via
promauto and exposed by the API server at /metrics:

	curl http://localhost:8080/metrics

# Available Metrics

Recommendation:
  - recommend_requests_total{status}
  - recommend_duration_seconds
  - recommend_tier_total{tier}
  - recommend_cache_hits_total, recommend_cache_misses_total
  - recommend_unknown_labels_total

Training:
  - synthetic_samples_generated_total
  - training_runs_total{status}
  - training_duration_seconds
  - model_accuracy_ratio, model_version

Storage:
  - duckdb_query_duration_seconds{operation,table}
  - duckdb_query_errors_total{operation,table}
  - history_writes_total{status}

API:
  - api_requests_total{method,endpoint,status_code}
  - api_request_duration_seconds{method,endpoint}
  - api_active_requests
  - api_rate_limit_hits_total{endpoint}

Circuit breaker (remote classifier):
  - circuit_breaker_state{name}
  - circuit_breaker_requests_total{name,result}
  - circuit_breaker_state_transitions_total{name,from_state,to_state}

The Record* helpers wrap the common label combinations. Collectors are package
level, so tests assert deltas with prometheus/testutil rather than absolute
values.
*/
package metrics
