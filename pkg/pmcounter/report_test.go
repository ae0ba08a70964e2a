// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package pmcounter

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowDuration(t *testing.T) {
	tests := []struct {
		name       string
		begin, end uint64
		want       time.Duration
	}{
		{"forward", 1_000_000, 3_500_000, 2500 * time.Millisecond},
		{"unchanged", 42, 42, 0},
		{"timestamp went backwards", 3_000_000, 1_000_000, 0},
		{"does not fit a duration", 0, math.MaxUint64, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := windowDuration(EnergySample{Time: tt.begin}, EnergySample{Time: tt.end})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReport_BackwardsTimestamp(t *testing.T) {
	ps := &ProbeSet{
		probes: []ProbeDescriptor{{Label: "total"}},
		start:  []EnergySample{{Energy: 100, Time: 2_000_000}},
		end:    []EnergySample{{Energy: 150, Time: 1_000_000}},
	}
	report := ps.Report()
	assert.Len(t, report, 1)
	assert.Zero(t, report[0].Duration, "a negative window is not reported")
	assert.Equal(t, FromJoules(50), report[0].Energy)
}
