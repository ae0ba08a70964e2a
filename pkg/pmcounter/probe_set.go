// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package pmcounter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/samber/lo"
)

// State is the lifecycle state of a ProbeSet
type State int

const (
	StateDiscovered State = iota
	StateStarted
	StateStopped
	StateDisabled
)

func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	case StateDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// ProbeSet samples all energy counters available on the node at the start
// and at the end of a measurement window.
//
// A ProbeSet is single use and not safe for concurrent use.
type ProbeSet struct {
	logger  *slog.Logger
	sysfs   string
	probes  []ProbeDescriptor
	enabled bool
	reason  string
	state   State
	start   []EnergySample
	end     []EnergySample
}

// Opts holds the options of a ProbeSet
type Opts struct {
	logger  *slog.Logger
	sysfs   string
	catalog []ProbeDescriptor
}

// DefaultOpts returns a new Opts with defaults set
func DefaultOpts() Opts {
	return Opts{
		logger:  slog.Default(),
		sysfs:   "/sys",
		catalog: catalog,
	}
}

// OptionFn is a function that sets one or more options in Opts
type OptionFn func(*Opts)

// WithLogger sets the logger for the ProbeSet
func WithLogger(logger *slog.Logger) OptionFn {
	return func(o *Opts) {
		o.logger = logger
	}
}

// WithSysFS sets the sysfs mount point the catalog paths are resolved against
func WithSysFS(path string) OptionFn {
	return func(o *Opts) {
		o.sysfs = path
	}
}

// withCatalog replaces the built-in catalog
func withCatalog(c []ProbeDescriptor) OptionFn {
	return func(o *Opts) {
		o.catalog = c
	}
}

// New discovers the counters present on this node. It never fails: a node
// without counters yields a disabled ProbeSet.
func New(applyOpts ...OptionFn) *ProbeSet {
	opts := DefaultOpts()
	for _, apply := range applyOpts {
		apply(&opts)
	}

	ps := &ProbeSet{
		logger: opts.logger.With("service", "pm_counters"),
		sysfs:  opts.sysfs,
	}
	ps.discover(opts.catalog)
	return ps
}

func (ps *ProbeSet) discover(c []ProbeDescriptor) {
	ps.probes = lo.Filter(c, func(p ProbeDescriptor, _ int) bool {
		_, err := os.Stat(ps.path(p))
		return err == nil
	})
	ps.start = make([]EnergySample, 0, len(ps.probes))
	ps.end = make([]EnergySample, 0, len(ps.probes))

	included := lo.Map(ps.probes, func(p ProbeDescriptor, _ int) string { return p.Label })
	excluded, _ := lo.Difference(
		lo.Map(c, func(p ProbeDescriptor, _ int) string { return p.Label }),
		included,
	)
	ps.logger.Debug("Discovered energy counters", "included", included, "excluded", excluded)

	ps.enabled = len(ps.probes) != 0
	ps.state = StateDiscovered
	if !ps.enabled {
		ps.disable(fmt.Sprintf("no energy counters available in %s", filepath.Join(ps.sysfs, CounterDir)))
	}
}

func (ps *ProbeSet) path(p ProbeDescriptor) string {
	return filepath.Join(ps.sysfs, p.Path)
}

func (ps *ProbeSet) disable(reason string) {
	ps.enabled = false
	ps.reason = reason
	ps.state = StateDisabled
	ps.logger.Warn("Energy counters disabled", "reason", reason)
}

// Start samples every active counter. The first failing read disables the set
// and leaves the remaining counters unsampled.
func (ps *ProbeSet) Start() {
	if !ps.enabled {
		return
	}
	if ps.sample(&ps.start) {
		ps.state = StateStarted
	}
}

// Stop samples every active counter again. It does nothing if the set was
// disabled by discovery or by Start.
func (ps *ProbeSet) Stop() {
	if !ps.enabled {
		return
	}
	if ps.sample(&ps.end) {
		ps.state = StateStopped
	}
}

func (ps *ProbeSet) sample(into *[]EnergySample) bool {
	for _, p := range ps.probes {
		s, err := readSample(ps.path(p))
		if err != nil {
			ps.disable(fmt.Sprintf("reading %s counter: %s", p.Label, err))
			return false
		}
		*into = append(*into, s)
	}
	return true
}

// Enabled returns true if counters exist and no read has failed
func (ps *ProbeSet) Enabled() bool {
	return ps.enabled
}

// Reason describes why the set was disabled; empty while enabled
func (ps *ProbeSet) Reason() string {
	return ps.reason
}

// State returns the current lifecycle state
func (ps *ProbeSet) State() State {
	return ps.state
}

// Probes returns the active probes in catalog order
func (ps *ProbeSet) Probes() []ProbeDescriptor {
	return append([]ProbeDescriptor(nil), ps.probes...)
}

// StartSamples returns the samples taken by Start
func (ps *ProbeSet) StartSamples() []EnergySample {
	return append([]EnergySample(nil), ps.start...)
}

// EndSamples returns the samples taken by Stop
func (ps *ProbeSet) EndSamples() []EnergySample {
	return append([]EnergySample(nil), ps.end...)
}
