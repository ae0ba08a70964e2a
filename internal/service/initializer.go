// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"fmt"
	"log/slog"
)

// Init initializes services in order. On the first failure the services
// initialized so far are shut down in reverse order and the error is returned.
func Init(logger *slog.Logger, services []Service) error {
	if logger == nil {
		logger = slog.Default()
	}

	initialized := make([]Service, 0, len(services))
	for _, s := range services {
		srv, ok := s.(Initializer)
		if !ok {
			logger.Debug("skipping service initialization", "service", s.Name())
			continue
		}

		logger.Debug("Initializing service", "service", s.Name())
		if err := srv.Init(); err != nil {
			shutdownAll(logger, initialized)
			return fmt.Errorf("failed to initialize service %s: %w", s.Name(), err)
		}
		initialized = append(initialized, s)
	}
	return nil
}

func shutdownAll(logger *slog.Logger, services []Service) {
	for i := len(services) - 1; i >= 0; i-- {
		srv, ok := services[i].(Shutdowner)
		if !ok {
			continue
		}
		if err := srv.Shutdown(); err != nil {
			logger.Error("failed to shutdown service", "service", srv.Name(), "error", err)
		}
	}
}
