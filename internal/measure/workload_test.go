// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package measure

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sustainable-computing-io/pmtime/internal/logger"
)

func TestWorkload_Init(t *testing.T) {
	t.Run("empty command", func(t *testing.T) {
		w := NewWorkload(logger.Discard(), nil, nil, nil, nil)
		assert.ErrorContains(t, w.Init(), "no command to run")
		assert.Equal(t, ExitStartFailure, w.ExitCode())
	})

	t.Run("unknown program", func(t *testing.T) {
		w := NewWorkload(logger.Discard(), []string{"pmtime-no-such-command"}, nil, nil, nil)
		err := w.Init()
		assert.ErrorIs(t, err, exec.ErrNotFound)
		assert.ErrorContains(t, err, `"pmtime-no-such-command" not found`)
	})

	t.Run("resolved", func(t *testing.T) {
		w := NewWorkload(logger.Discard(), []string{"sh"}, nil, nil, nil)
		require.NoError(t, w.Init())
		assert.NotEmpty(t, w.path)
	})
}

func TestWorkload_Run(t *testing.T) {
	out := &bytes.Buffer{}
	w := NewWorkload(logger.Discard(), []string{"sh", "-c", "echo $0; exit 7"}, strings.NewReader(""), out, out)

	err := w.Run(context.Background())
	require.NoError(t, err, "non-zero exit is reported through ExitCode")
	assert.Equal(t, 7, w.ExitCode())
	assert.Equal(t, "sh\n", out.String(), "argv[0] is kept as given")
	assert.GreaterOrEqual(t, w.ElapsedMs(), 0.0)
	assert.Equal(t, "workload", w.Name())
}

func TestWorkload_RunWithoutInit(t *testing.T) {
	w := NewWorkload(logger.Discard(), []string{"pmtime-no-such-command"}, nil, nil, nil)
	assert.Error(t, w.Run(context.Background()))
	assert.Equal(t, ExitStartFailure, w.ExitCode())
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, ExitStartFailure, exitCode(errors.New("fork failed")))

	err := exec.Command("sh", "-c", "exit 42").Run()
	assert.Equal(t, 42, exitCode(err))

	err = exec.Command("sh", "-c", "kill -KILL $$").Run()
	assert.Equal(t, 128+9, exitCode(err))
}
