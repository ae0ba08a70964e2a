// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"log/slog"

	"github.com/oklog/run"
)

// Run runs all Runners in one group. The first Runner to return stops the
// others; each service that is also a Shutdowner is shut down afterwards.
// The returned error is that of the first Runner to return.
func Run(outer context.Context, logger *slog.Logger, services []Service) error {
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(outer)
	defer cancel()

	var g run.Group
	for _, s := range services {
		r, ok := s.(Runner)
		if !ok {
			logger.Debug("skipping service", "service", s.Name())
			continue
		}

		g.Add(
			func() error {
				logger.Debug("Running service", "service", r.Name())
				return r.Run(ctx)
			},
			func(err error) {
				cancel()
				if err != nil {
					logger.Debug("service interrupted", "service", r.Name(), "reason", err)
				}

				sd, ok := r.(Shutdowner)
				if !ok {
					return
				}
				if err := sd.Shutdown(); err != nil {
					logger.Warn("service shutdown failed with error", "service", r.Name(), "error", err)
				}
			},
		)
	}

	return g.Run()
}
