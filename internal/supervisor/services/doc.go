// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

/*
Package services provides suture.Service wrappers for Agrosense components.

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

and identifies itself through fmt.Stringer for supervisor logs.

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts the blocking ListenAndServe pattern to Serve

Training (TrainingService):
  - Restores the latest stored model on first start
  - Trains at startup when nothing was restored or when forced
  - Retrains on a fixed interval; failures keep the previous model

Remote Refresh (RefreshService):
  - Periodically reloads labels and version from an external model server

# Restart Semantics

Returning an error from Serve makes the supervisor restart the service with
backoff. Returning ctx.Err() after cancellation is a clean stop. Training
failures are logged rather than returned so a bad run never triggers a
restart loop.
*/
package services
