// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package stdout

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/sustainable-computing-io/pmtime/internal/config"
	"github.com/sustainable-computing-io/pmtime/internal/device/gpu"
	"github.com/sustainable-computing-io/pmtime/internal/measure"
	"github.com/sustainable-computing-io/pmtime/internal/node"
	"github.com/sustainable-computing-io/pmtime/pkg/pmcounter"
)

// Write renders res in the given report format
func Write(out io.Writer, format string, res measure.Result) error {
	switch format {
	case config.ReportText:
		return writeText(out, res)
	case config.ReportTable:
		return writeTable(out, res)
	case config.ReportJSON:
		return writeJSON(out, res)
	default:
		return fmt.Errorf("unknown report format: %s", format)
	}
}

// writeText keeps stdout to the "<label> <watts>" lines; the elapsed time is
// logged by the workload
func writeText(out io.Writer, res measure.Result) error {
	return pmcounter.WriteEntries(out, res.Probes)
}

func writeTable(out io.Writer, res measure.Result) error {
	devices := gpu.Names(res.Accelerators)

	rows := make([][]string, 0, len(res.Probes))
	for _, e := range res.Probes {
		rows = append(rows, []string{
			e.Label,
			devices[e.Label],
			e.Power().String(),
			e.Energy.String(),
		})
	}

	table := tablewriter.NewWriter(out)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Formatting.Alignment = tw.AlignRight
	})
	table.Header([]string{"Probe", "Device", "Power(W)", "Energy(J)"})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if !res.Enabled && res.Reason != "" {
		if _, err := fmt.Fprintf(out, "probes disabled: %s\n", res.Reason); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(out, "elapsed: %s exit code: %d\n", elapsed(res.ElapsedMs), res.ExitCode)
	return err
}

type jsonProbe struct {
	Label string `json:"label"`
	// nil when the window is empty and the average is undefined
	Watts           *float64 `json:"watts"`
	EnergyJoules    float64  `json:"energy_joules"`
	DurationSeconds float64  `json:"duration_seconds"`
}

type jsonReport struct {
	Command      []string     `json:"command"`
	Node         node.Info    `json:"node"`
	Accelerators []gpu.Device `json:"accelerators"`
	Probes       []jsonProbe  `json:"probes"`
	StartedAt    string       `json:"started_at,omitempty"`
	Enabled      bool         `json:"enabled"`
	Reason       string       `json:"reason,omitempty"`
	ElapsedMs    float64      `json:"elapsed_ms"`
	ExitCode     int          `json:"exit_code"`
}

func writeJSON(out io.Writer, res measure.Result) error {
	report := jsonReport{
		Command:      res.Command,
		Node:         res.Node,
		Accelerators: res.Accelerators,
		Probes:       make([]jsonProbe, 0, len(res.Probes)),
		Enabled:      res.Enabled,
		Reason:       res.Reason,
		ElapsedMs:    res.ElapsedMs,
		ExitCode:     res.ExitCode,
	}
	if !res.StartedAt.IsZero() {
		report.StartedAt = res.StartedAt.Format(time.RFC3339Nano)
	}
	if report.Accelerators == nil {
		report.Accelerators = []gpu.Device{}
	}
	for _, e := range res.Probes {
		p := jsonProbe{
			Label:           e.Label,
			EnergyJoules:    e.Energy.Joules(),
			DurationSeconds: e.Duration.Seconds(),
		}
		if !math.IsNaN(e.Watts) && !math.IsInf(e.Watts, 0) {
			w := e.Watts
			p.Watts = &w
		}
		report.Probes = append(report.Probes, p)
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func elapsed(ms float64) time.Duration {
	return time.Duration(ms * float64(time.Millisecond)).Round(time.Microsecond)
}
