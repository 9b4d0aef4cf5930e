// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

/*
Package supervisor provides process supervision for Agrosense using suture v4.

Long-running services are organized into two layers:

	RootSupervisor ("agrosense")
	├── ModelSupervisor ("model-layer")
	│   ├── TrainingService (local model: restore, startup run, interval runs)
	│   └── RefreshService  (remote model: periodic label refresh)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services are restarted with backoff once FailureThreshold failures
accumulate (decaying at FailureDecay per second). Cancelling the context
passed to Serve shuts every service down, waiting up to ShutdownTimeout for
each; UnstoppedServiceReport lists the ones that did not stop in time.

Supervisor events are written through sutureslog to a log/slog.Logger,
normally backed by the zerolog global logger via logging.NewSlogHandler:

	tree, err := supervisor.NewSupervisorTree(slog.New(logging.NewSlogHandler()), cfg)
	tree.AddModelService(services.NewTrainingService(trainer, trainCfg, logger))
	tree.AddAPIService(services.NewHTTPServerService(server, addr, timeout, logger))
	err = tree.Serve(ctx)
*/
package supervisor
