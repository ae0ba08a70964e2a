// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blockUntilDone(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestRun(t *testing.T) {
	t.Run("first runner to finish stops the group", func(t *testing.T) {
		workload := &mockRunner{
			mockService: mockService{name: "workload"},
			runFn:       func(ctx context.Context) error { return nil },
		}
		waiter := &mockRunner{
			mockService: mockService{name: "waiter"},
			runFn:       blockUntilDone,
		}

		err := Run(context.Background(), nil, []Service{workload, waiter, &mockService{name: "plain"}})
		assert.NoError(t, err)
		assert.EqualValues(t, 1, workload.shutdownCount.Load())
		assert.EqualValues(t, 1, waiter.shutdownCount.Load())
	})

	t.Run("error of the first runner is returned", func(t *testing.T) {
		runErr := errors.New("exit status 3")
		workload := &mockRunner{
			mockService: mockService{name: "workload"},
			runFn:       func(ctx context.Context) error { return runErr },
		}
		waiter := &mockRunner{
			mockService: mockService{name: "waiter"},
			runFn:       blockUntilDone,
		}

		err := Run(context.Background(), nil, []Service{workload, waiter})
		assert.ErrorIs(t, err, runErr)
	})

	t.Run("outer context cancels all", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		waiter := &mockRunner{
			mockService: mockService{name: "waiter"},
			runFn:       blockUntilDone,
		}
		err := Run(ctx, nil, []Service{waiter})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestSignalHandler(t *testing.T) {
	// keeps SIGUSR1 from terminating the test binary before the handler registers
	guard := make(chan os.Signal, 16)
	signal.Notify(guard, syscall.SIGUSR1)
	defer signal.Stop(guard)

	sh := NewSignalHandler(nil, syscall.SIGUSR1)
	assert.Equal(t, "signal-handler", sh.Name())
	assert.Nil(t, sh.Received())

	t.Run("context cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.ErrorIs(t, sh.Run(ctx), context.Canceled)
		assert.Nil(t, sh.Received())
	})

	t.Run("signal received", func(t *testing.T) {
		errCh := make(chan error, 1)
		go func() {
			errCh <- sh.Run(context.Background())
		}()

		// keep signalling until the handler has registered and returned
		require.Eventually(t, func() bool {
			_ = syscall.Kill(syscall.Getpid(), syscall.SIGUSR1)
			select {
			case err := <-errCh:
				return err == nil
			default:
				return false
			}
		}, 2*time.Second, 10*time.Millisecond)
		assert.Equal(t, syscall.SIGUSR1, sh.Received())
	})
}
