// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package node

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/procfs"
	"github.com/samber/lo"
)

// Processor is one logical CPU as listed in /proc/cpuinfo
type Processor struct {
	Processor  uint
	VendorID   string
	ModelName  string
	PhysicalID string
	CoreID     string
}

// Info summarizes the node a measurement ran on
type Info struct {
	Hostname string   `json:"hostname"`
	CPUs     int      `json:"cpus"`
	Sockets  int      `json:"sockets"`
	Vendors  []string `json:"vendors,omitempty"`
	Models   []string `json:"models,omitempty"`

	// MemoryBytes is MemTotal from /proc/meminfo
	MemoryBytes uint64 `json:"memory_bytes,omitempty"`

	Processors []Processor `json:"-"`
}

// procFS is an interface for CPUInfo and Meminfo.
type procFS interface {
	CPUInfo() ([]procfs.CPUInfo, error)
	Meminfo() (procfs.Meminfo, error)
}

type realProcFS struct {
	fs procfs.FS
}

func (r *realProcFS) CPUInfo() ([]procfs.CPUInfo, error) {
	return r.fs.CPUInfo()
}

func (r *realProcFS) Meminfo() (procfs.Meminfo, error) {
	return r.fs.Meminfo()
}

func newProcFS(mountPoint string) (procFS, error) {
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, err
	}
	return &realProcFS{fs: fs}, nil
}

// Collect reads the node inventory from the procfs mounted at procPath.
// Failures are logged and leave the corresponding fields empty.
func Collect(logger *slog.Logger, procPath string) Info {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "node")

	fs, err := newProcFS(procPath)
	if err != nil {
		logger.Warn("node cpu inventory unavailable", "error", fmt.Errorf("creating procfs failed: %w", err))
		return Info{Hostname: hostname(logger, os.Hostname)}
	}
	return collect(logger, fs, os.Hostname)
}

func collect(logger *slog.Logger, fs procFS, hostnameFn func() (string, error)) Info {
	info := Info{Hostname: hostname(logger, hostnameFn)}

	if mi, err := fs.Meminfo(); err != nil {
		logger.Warn("node memory inventory unavailable", "error", err)
	} else if mi.MemTotal != nil {
		info.MemoryBytes = *mi.MemTotal * 1024
	}

	cpus, err := fs.CPUInfo()
	if err != nil {
		logger.Warn("node cpu inventory unavailable", "error", err)
		return info
	}

	info.Processors = lo.Map(cpus, func(ci procfs.CPUInfo, _ int) Processor {
		return Processor{
			Processor:  ci.Processor,
			VendorID:   ci.VendorID,
			ModelName:  ci.ModelName,
			PhysicalID: ci.PhysicalID,
			CoreID:     ci.CoreID,
		}
	})
	info.CPUs = len(info.Processors)
	info.Vendors = distinct(info.Processors, func(p Processor) string { return p.VendorID })
	info.Models = distinct(info.Processors, func(p Processor) string { return p.ModelName })
	info.Sockets = len(distinct(info.Processors, func(p Processor) string { return p.PhysicalID }))

	logger.Debug("node inventory collected",
		"hostname", info.Hostname, "cpus", info.CPUs, "sockets", info.Sockets, "models", info.Models)
	return info
}

// distinct returns the non-empty values of field in first-seen order
func distinct(procs []Processor, field func(Processor) string) []string {
	return lo.Uniq(lo.Compact(lo.Map(procs, func(p Processor, _ int) string {
		return field(p)
	})))
}

func hostname(logger *slog.Logger, fn func() (string, error)) string {
	name, err := fn()
	if err != nil {
		logger.Warn("failed to read hostname", "error", err)
		return ""
	}
	return name
}
