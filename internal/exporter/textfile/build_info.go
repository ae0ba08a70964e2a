// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package textfile

import (
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/sustainable-computing-io/pmtime/internal/version"
)

type buildInfoCollector struct {
	buildInfo *prom.GaugeVec
}

func newBuildInfoCollector() *buildInfoCollector {
	return &buildInfoCollector{
		buildInfo: prom.NewGaugeVec(
			prom.GaugeOpts{
				Namespace: pmtimeNS,
				Subsystem: "build",
				Name:      "info",
				Help:      "A metric with a constant '1' value labeled with version information",
			},
			[]string{"arch", "branch", "revision", "version", "goversion"},
		),
	}
}

func (c *buildInfoCollector) Describe(ch chan<- *prom.Desc) {
	c.buildInfo.Describe(ch)
}

func (c *buildInfoCollector) Collect(ch chan<- prom.Metric) {
	info := version.Info()
	c.buildInfo.WithLabelValues(
		info.GoArch,
		info.GitBranch,
		info.GitCommit,
		info.Version,
		info.GoVersion,
	).Set(1)
	c.buildInfo.Collect(ch)
}
