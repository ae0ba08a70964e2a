// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
)

// SignalHandler is a Runner that returns once one of its signals arrives,
// which stops every other service in the group.
type SignalHandler struct {
	logger  *slog.Logger
	signals []os.Signal

	mu       sync.Mutex
	received os.Signal
}

var _ Runner = (*SignalHandler)(nil)

func NewSignalHandler(logger *slog.Logger, signals ...os.Signal) *SignalHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SignalHandler{
		logger:  logger.With("service", "signal-handler"),
		signals: signals,
	}
}

func (sh *SignalHandler) Name() string {
	return "signal-handler"
}

func (sh *SignalHandler) Run(ctx context.Context) error {
	c := make(chan os.Signal, 1)
	signal.Notify(c, sh.signals...)
	defer signal.Stop(c)

	select {
	case sig := <-c:
		sh.mu.Lock()
		sh.received = sig
		sh.mu.Unlock()
		sh.logger.Info("Received signal, stopping", "signal", sig)
		return nil

	case <-ctx.Done():
		return ctx.Err()
	}
}

// Received returns the signal that stopped the handler, or nil
func (sh *SignalHandler) Received() os.Signal {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.received
}
