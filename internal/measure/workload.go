// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package measure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/sustainable-computing-io/pmtime/internal/service"
	"github.com/sustainable-computing-io/pmtime/pkg/timer"
)

// ExitStartFailure is the exit code reported when the command could not be started
const ExitStartFailure = 1

// Workload runs the wrapped command once and times it with the host timer
type Workload struct {
	logger *slog.Logger
	args   []string
	path   string
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	timer  *timer.HostTimer

	// grace period between the termination signal and a kill on cancel
	waitDelay time.Duration

	mu        sync.Mutex
	elapsedMs float64
	exitCode  int
	done      bool
}

var (
	_ service.Initializer = (*Workload)(nil)
	_ service.Runner      = (*Workload)(nil)
)

// NewWorkload returns a Workload for args, args[0] being the program
func NewWorkload(logger *slog.Logger, args []string, stdin io.Reader, stdout, stderr io.Writer) *Workload {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workload{
		logger:    logger.With("service", "workload"),
		args:      args,
		stdin:     stdin,
		stdout:    stdout,
		stderr:    stderr,
		timer:     timer.NewHostTimer(),
		waitDelay: 10 * time.Second,
	}
}

func (w *Workload) Name() string {
	return "workload"
}

// Init resolves the program in PATH
func (w *Workload) Init() error {
	if len(w.args) == 0 {
		return fmt.Errorf("no command to run")
	}
	path, err := exec.LookPath(w.args[0])
	if err != nil {
		return fmt.Errorf("command %q not found: %w", w.args[0], err)
	}
	w.path = path
	return nil
}

// Run starts the command and blocks until it exits. Canceling ctx sends
// SIGTERM to the command. A non-zero exit is not an error; only failing to
// start it is.
func (w *Workload) Run(ctx context.Context) error {
	if w.path == "" {
		if err := w.Init(); err != nil {
			return err
		}
	}

	cmd := exec.CommandContext(ctx, w.path, w.args[1:]...)
	cmd.Args = w.args
	cmd.Stdin = w.stdin
	cmd.Stdout = w.stdout
	cmd.Stderr = w.stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = w.waitDelay

	w.logger.Info("Running command", "command", w.args)
	ms, err := w.timer.TimeErr(cmd.Run)
	code := exitCode(err)
	w.finish(ms, code)

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		w.logger.Info("Command completed", "elapsed_ms", ms)
		return nil
	case errors.As(err, &exitErr):
		w.logger.Info("Command exited with non-zero status", "exit_code", code, "elapsed_ms", ms)
		return nil
	default:
		return fmt.Errorf("failed to run %s: %w", w.args[0], err)
	}
}

func (w *Workload) finish(ms float64, code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.elapsedMs = ms
	w.exitCode = code
	w.done = true
}

// ElapsedMs returns the host-timed duration of the command in milliseconds
func (w *Workload) ElapsedMs() float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.elapsedMs
}

// ExitCode returns the command's exit status. A command that never ran
// reports ExitStartFailure.
func (w *Workload) ExitCode() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.done {
		return ExitStartFailure
	}
	return w.exitCode
}

// exitCode maps a command error to a shell-style exit status
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return ExitStartFailure
	}
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return exitErr.ExitCode()
}
