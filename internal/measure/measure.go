// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package measure

import (
	"context"
	"io"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/sustainable-computing-io/pmtime/internal/config"
	"github.com/sustainable-computing-io/pmtime/internal/device/gpu"
	"github.com/sustainable-computing-io/pmtime/internal/node"
	"github.com/sustainable-computing-io/pmtime/internal/service"
	"github.com/sustainable-computing-io/pmtime/pkg/pmcounter"
	"k8s.io/utils/clock"
	"k8s.io/utils/ptr"
)

// Result is everything one measurement produced
type Result struct {
	Command      []string
	Node         node.Info
	Accelerators []gpu.Device
	Probes       []pmcounter.ReportEntry

	// StartedAt is the wall-clock time the probes were started
	StartedAt time.Time

	// Enabled is false when the probe set was disabled; Reason says why
	Enabled bool
	Reason  string

	ElapsedMs float64
	ExitCode  int
}

// Opts configures a Measurement
type Opts struct {
	logger       *slog.Logger
	stdin        io.Reader
	stdout       io.Writer
	stderr       io.Writer
	signals      []os.Signal
	accelerators func(*slog.Logger) []gpu.Device
	clock        clock.PassiveClock
}

// DefaultOpts returns a new Opts with defaults set
func DefaultOpts() Opts {
	return Opts{
		logger:       slog.Default(),
		stdin:        os.Stdin,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		signals:      []os.Signal{os.Interrupt, syscall.SIGTERM},
		accelerators: gpu.Inventory,
		clock:        clock.RealClock{},
	}
}

// OptionFn is a function that sets one or more options in Opts
type OptionFn func(*Opts)

// WithLogger sets the logger for the Measurement
func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Opts) {
		o.logger = logger
	}
}

// WithStdio sets the standard streams handed to the command
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) OptionFn {
	return func(o *Opts) {
		o.stdin = stdin
		o.stdout = stdout
		o.stderr = stderr
	}
}

// WithSignals sets the signals that stop the command
func WithSignals(signals ...os.Signal) OptionFn {
	return func(o *Opts) {
		o.signals = signals
	}
}

// withAccelerators replaces the NVML inventory
func withAccelerators(fn func(*slog.Logger) []gpu.Device) OptionFn {
	return func(o *Opts) {
		o.accelerators = fn
	}
}

// withClock sets the clock stamping the Result
func withClock(c clock.PassiveClock) OptionFn {
	return func(o *Opts) {
		o.clock = c
	}
}

// Measurement runs one command between a probe set Start and Stop
type Measurement struct {
	logger  *slog.Logger
	cfg     *config.Config
	command []string
	opts    Opts
}

// New returns a Measurement of command under cfg
func New(cfg *config.Config, command []string, applyOpts ...OptionFn) *Measurement {
	opts := DefaultOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}
	return &Measurement{
		logger:  opts.logger.With("service", "measure"),
		cfg:     cfg,
		command: command,
		opts:    opts,
	}
}

// Run takes the inventories, starts the probes, runs the command to
// completion and stops the probes. It always returns a Result; errors are
// logged and folded into the exit code.
func (m *Measurement) Run(ctx context.Context) Result {
	res := Result{
		Command:      m.command,
		Node:         node.Collect(m.opts.logger, m.cfg.Host.ProcFS),
		Accelerators: []gpu.Device{},
	}
	if ptr.Deref(m.cfg.Accelerator.Inventory.Enabled, true) {
		res.Accelerators = m.opts.accelerators(m.opts.logger)
	}

	probes := pmcounter.New(
		pmcounter.WithLogger(m.opts.logger),
		pmcounter.WithSysFS(m.cfg.Host.SysFS),
	)
	workload := NewWorkload(m.opts.logger, m.command, m.opts.stdin, m.opts.stdout, m.opts.stderr)
	signals := service.NewSignalHandler(m.opts.logger, m.opts.signals...)
	services := []service.Service{workload, signals}

	if err := service.Init(m.logger, services); err != nil {
		m.logger.Error("Failed to initialize", "error", err)
		res.Enabled, res.Reason = probes.Enabled(), probes.Reason()
		res.ExitCode = ExitStartFailure
		return res
	}

	res.StartedAt = m.opts.clock.Now()
	probes.Start()
	if err := service.Run(ctx, m.logger, services); err != nil {
		m.logger.Warn("Measurement stopped early", "error", err)
	}
	probes.Stop()

	if sig := signals.Received(); sig != nil {
		m.logger.Warn("Measurement interrupted", "signal", sig)
	}

	res.Probes = probes.Report()
	res.Enabled = probes.Enabled()
	res.Reason = probes.Reason()
	res.ElapsedMs = workload.ElapsedMs()
	res.ExitCode = workload.ExitCode()
	return res
}
