// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package service

import "context"

// Service is anything pmtime starts and stops as a unit
type Service interface {
	Name() string
}

// Initializer is a service that must be prepared before it runs
type Initializer interface {
	Service
	Init() error
}

// Runner is a service that blocks in Run until it is done or ctx is canceled
type Runner interface {
	Service
	Run(ctx context.Context) error
}

// Shutdowner is a service that releases resources once its group stops
type Shutdowner interface {
	Service
	Shutdown() error
}
