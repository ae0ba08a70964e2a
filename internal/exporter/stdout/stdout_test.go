// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package stdout

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sustainable-computing-io/pmtime/internal/config"
	"github.com/sustainable-computing-io/pmtime/internal/device/gpu"
	"github.com/sustainable-computing-io/pmtime/internal/measure"
	"github.com/sustainable-computing-io/pmtime/internal/node"
	"github.com/sustainable-computing-io/pmtime/pkg/pmcounter"
)

func testResult() measure.Result {
	return measure.Result{
		Command: []string{"./stream", "-n", "4"},
		Node: node.Info{
			Hostname: "nid001234",
			CPUs:     288,
			Sockets:  4,
			Models:   []string{"Neoverse-V2"},
		},
		Accelerators: []gpu.Device{
			{Index: 0, UUID: "GPU-aaaa", Name: "NVIDIA GH200 480GB"},
		},
		Probes: []pmcounter.ReportEntry{
			{Label: "total", Watts: 50, Energy: pmcounter.FromJoules(100), Duration: 2 * time.Second},
			{Label: "gpu0", Watts: 20, Energy: pmcounter.FromJoules(40), Duration: 2 * time.Second},
		},
		StartedAt: time.Date(2025, 6, 1, 12, 0, 0, 500, time.UTC),
		Enabled:   true,
		ElapsedMs: 2000.5,
		ExitCode:  0,
	}
}

func TestWrite_Text(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, Write(buf, config.ReportText, testResult()))

	assert.Equal(t, "total 50.000000\ngpu0 20.000000\n", buf.String())
}

func TestWrite_TextNoProbes(t *testing.T) {
	buf := &bytes.Buffer{}
	res := measure.Result{Reason: "no energy counters available in /sys/cray/pm_counters", ElapsedMs: 1}
	require.NoError(t, Write(buf, config.ReportText, res))

	assert.Empty(t, buf.String())
}

func TestWrite_Table(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, Write(buf, config.ReportTable, testResult()))

	out := buf.String()
	assert.Contains(t, out, "total")
	assert.Contains(t, out, "NVIDIA GH200 480GB")
	assert.Contains(t, out, "50.00W")
	assert.Contains(t, out, "100.00J")
	assert.Contains(t, out, "20.00W")
	assert.Contains(t, out, "40.00J")
	assert.Contains(t, out, "elapsed: 2.0005s exit code: 0\n")
	assert.NotContains(t, out, "probes disabled")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("total")), bytes.Index(buf.Bytes(), []byte("gpu0")),
		"rows keep probe order")
}

func TestWrite_TableDisabled(t *testing.T) {
	buf := &bytes.Buffer{}
	res := measure.Result{
		Reason:    "no energy counters available in /sys/cray/pm_counters",
		ElapsedMs: 12,
		ExitCode:  3,
	}
	require.NoError(t, Write(buf, config.ReportTable, res))

	out := buf.String()
	assert.Contains(t, out, "probes disabled: no energy counters available in /sys/cray/pm_counters\n")
	assert.Contains(t, out, "elapsed: 12ms exit code: 3\n")
}

func TestWrite_JSON(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, Write(buf, config.ReportJSON, testResult()))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, true, got["enabled"])
	assert.NotContains(t, got, "reason")
	assert.Equal(t, 2000.5, got["elapsed_ms"])
	assert.Equal(t, 0.0, got["exit_code"])
	assert.Equal(t, []any{"./stream", "-n", "4"}, got["command"])
	assert.Equal(t, "2025-06-01T12:00:00.0000005Z", got["started_at"])

	nodeInfo := got["node"].(map[string]any)
	assert.Equal(t, "nid001234", nodeInfo["hostname"])
	assert.Equal(t, 288.0, nodeInfo["cpus"])
	assert.NotContains(t, nodeInfo, "Processors")

	accels := got["accelerators"].([]any)
	require.Len(t, accels, 1)
	assert.Equal(t, map[string]any{"index": 0.0, "uuid": "GPU-aaaa", "name": "NVIDIA GH200 480GB"}, accels[0])

	probes := got["probes"].([]any)
	require.Len(t, probes, 2)
	assert.Equal(t, map[string]any{
		"label":            "total",
		"watts":            50.0,
		"energy_joules":    100.0,
		"duration_seconds": 2.0,
	}, probes[0])
}

func TestWrite_JSONUndefinedPower(t *testing.T) {
	res := measure.Result{
		Probes: []pmcounter.ReportEntry{
			{Label: "total", Watts: math.NaN()},
			{Label: "cpu", Watts: math.Inf(1), Energy: pmcounter.FromJoules(5)},
		},
	}
	buf := &bytes.Buffer{}
	require.NoError(t, Write(buf, config.ReportJSON, res))

	var got jsonReport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	require.Len(t, got.Probes, 2)
	assert.Nil(t, got.Probes[0].Watts)
	assert.Nil(t, got.Probes[1].Watts)
	assert.Equal(t, 5.0, got.Probes[1].EnergyJoules)
	assert.NotNil(t, got.Accelerators, "accelerators encode as an empty list")
	assert.Empty(t, got.StartedAt)
}

func TestWrite_UnknownFormat(t *testing.T) {
	err := Write(&bytes.Buffer{}, "csv", testResult())
	assert.ErrorContains(t, err, "unknown report format: csv")
}
