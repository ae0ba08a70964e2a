// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package textfile

import (
	"fmt"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/sustainable-computing-io/pmtime/internal/measure"
)

// newRegistry returns a private registry holding res
func newRegistry(res measure.Result) (*prom.Registry, error) {
	reg := prom.NewRegistry()
	for _, c := range []prom.Collector{newResultCollector(res), newBuildInfoCollector()} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register collector: %w", err)
		}
	}
	return reg, nil
}

// Write writes res to path in the node_exporter textfile format. The file is
// replaced atomically.
func Write(path string, res measure.Result) error {
	reg, err := newRegistry(res)
	if err != nil {
		return err
	}
	if err := prom.WriteToTextfile(path, reg); err != nil {
		return fmt.Errorf("failed to write textfile %s: %w", path, err)
	}
	return nil
}
