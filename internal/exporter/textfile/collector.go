// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package textfile

import (
	"fmt"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/sustainable-computing-io/pmtime/internal/measure"
)

const (
	pmtimeNS      = "pmtime"
	nodeNameLabel = "node_name"
)

// resultCollector exposes one measure.Result as constant metrics
type resultCollector struct {
	res measure.Result

	power           *prom.Desc
	energy          *prom.Desc
	window          *prom.Desc
	enabled         *prom.Desc
	duration        *prom.Desc
	exitCode        *prom.Desc
	startTime       *prom.Desc
	memory          *prom.Desc
	cpuInfo         *prom.Desc
	acceleratorInfo *prom.Desc
}

var _ prom.Collector = (*resultCollector)(nil)

func newResultCollector(res measure.Result) *resultCollector {
	constLabels := prom.Labels{nodeNameLabel: res.Node.Hostname}
	return &resultCollector{
		res: res,
		power: prom.NewDesc(
			prom.BuildFQName(pmtimeNS, "probe", "average_power_watts"),
			"Average power of the probe over the measurement window",
			[]string{"probe"}, constLabels,
		),
		energy: prom.NewDesc(
			prom.BuildFQName(pmtimeNS, "probe", "energy_joules"),
			"Energy consumed by the probe's domain during the measurement window",
			[]string{"probe"}, constLabels,
		),
		window: prom.NewDesc(
			prom.BuildFQName(pmtimeNS, "window", "duration_seconds"),
			"Measurement window as seen by the probe's counter timestamps",
			[]string{"probe"}, constLabels,
		),
		enabled: prom.NewDesc(
			prom.BuildFQName(pmtimeNS, "probe_set", "enabled"),
			"1 if every energy counter read succeeded, 0 otherwise",
			nil, constLabels,
		),
		duration: prom.NewDesc(
			prom.BuildFQName(pmtimeNS, "command", "duration_milliseconds"),
			"Host wall-clock time of the wrapped command",
			nil, constLabels,
		),
		exitCode: prom.NewDesc(
			prom.BuildFQName(pmtimeNS, "command", "exit_code"),
			"Exit status of the wrapped command",
			nil, constLabels,
		),
		startTime: prom.NewDesc(
			prom.BuildFQName(pmtimeNS, "measurement", "start_timestamp_seconds"),
			"Unix time the energy counters were first sampled",
			nil, constLabels,
		),
		memory: prom.NewDesc(
			prom.BuildFQName(pmtimeNS, "node", "memory_bytes"),
			"Total memory of the node from procfs",
			nil, constLabels,
		),
		cpuInfo: prom.NewDesc(
			prom.BuildFQName(pmtimeNS, "node", "cpu_info"),
			"CPU information from procfs",
			[]string{"processor", "vendor_id", "model_name", "physical_id", "core_id"},
			constLabels,
		),
		acceleratorInfo: prom.NewDesc(
			prom.BuildFQName(pmtimeNS, "accelerator", "info"),
			"Accelerator information from NVML for mapping index to UUID/name",
			[]string{"index", "uuid", "name"},
			constLabels,
		),
	}
}

func (c *resultCollector) Describe(ch chan<- *prom.Desc) {
	ch <- c.power
	ch <- c.energy
	ch <- c.window
	ch <- c.enabled
	ch <- c.duration
	ch <- c.exitCode
	ch <- c.startTime
	ch <- c.memory
	ch <- c.cpuInfo
	ch <- c.acceleratorInfo
}

func (c *resultCollector) Collect(ch chan<- prom.Metric) {
	for _, e := range c.res.Probes {
		ch <- prom.MustNewConstMetric(c.power, prom.GaugeValue, e.Watts, e.Label)
		ch <- prom.MustNewConstMetric(c.energy, prom.GaugeValue, e.Energy.Joules(), e.Label)
		ch <- prom.MustNewConstMetric(c.window, prom.GaugeValue, e.Duration.Seconds(), e.Label)
	}

	enabled := 0.0
	if c.res.Enabled {
		enabled = 1
	}
	ch <- prom.MustNewConstMetric(c.enabled, prom.GaugeValue, enabled)
	ch <- prom.MustNewConstMetric(c.duration, prom.GaugeValue, c.res.ElapsedMs)
	ch <- prom.MustNewConstMetric(c.exitCode, prom.GaugeValue, float64(c.res.ExitCode))
	if !c.res.StartedAt.IsZero() {
		ch <- prom.MustNewConstMetric(c.startTime, prom.GaugeValue, float64(c.res.StartedAt.UnixNano())/1e9)
	}
	if c.res.Node.MemoryBytes != 0 {
		ch <- prom.MustNewConstMetric(c.memory, prom.GaugeValue, float64(c.res.Node.MemoryBytes))
	}

	for _, p := range c.res.Node.Processors {
		ch <- prom.MustNewConstMetric(
			c.cpuInfo,
			prom.GaugeValue,
			1,
			fmt.Sprintf("%d", p.Processor),
			p.VendorID,
			p.ModelName,
			p.PhysicalID,
			p.CoreID,
		)
	}

	for _, d := range c.res.Accelerators {
		ch <- prom.MustNewConstMetric(
			c.acceleratorInfo,
			prom.GaugeValue,
			1,
			fmt.Sprintf("%d", d.Index),
			d.UUID,
			d.Name,
		)
	}
}
