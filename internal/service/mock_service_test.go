// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"sync/atomic"
)

type mockService struct {
	name string
}

func (m *mockService) Name() string {
	return m.name
}

// mockInitShutdownService implements Initializer and Shutdowner
type mockInitShutdownService struct {
	mockService
	initErr       error
	initCount     int
	shutdownCount int
	order         *[]string
}

func (m *mockInitShutdownService) Init() error {
	m.initCount++
	return m.initErr
}

func (m *mockInitShutdownService) Shutdown() error {
	m.shutdownCount++
	if m.order != nil {
		*m.order = append(*m.order, m.name)
	}
	return nil
}

// mockRunner implements Runner and Shutdowner
type mockRunner struct {
	mockService
	runFn         func(ctx context.Context) error
	shutdownCount atomic.Int32
}

func (m *mockRunner) Run(ctx context.Context) error {
	return m.runFn(ctx)
}

func (m *mockRunner) Shutdown() error {
	m.shutdownCount.Add(1)
	return nil
}
